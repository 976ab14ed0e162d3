// httputil/json.go
package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// ErrorResponse is the JSON error envelope of every API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

var jsonLogger = zap.NewNop()

// SetLogger sets the logger for encoding failures that happen after the
// status line was sent. Call once at startup.
func SetLogger(logger *zap.Logger) {
	if logger != nil {
		jsonLogger = logger
	}
}

// WriteJSON writes v with the given status. Status codes outside 100..599
// become 500.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	if status < 100 || status > 599 {
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		jsonLogger.Error("json encoding failed after headers sent",
			zap.String("type", fmt.Sprintf("%T", v)), zap.Error(err))
	}
}

// JSONError writes an ErrorResponse.
func JSONError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, ErrorResponse{Error: code, Message: message})
}

// ErrBodyTooLarge is returned by BindJSON when the body exceeds the limit
// set with http.MaxBytesReader.
var ErrBodyTooLarge = errors.New("request body too large")

// BindJSON decodes exactly one JSON value from the request body into v.
// Unknown fields are rejected. Returned errors are safe to show clients.
func BindJSON(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return errors.New("request body is empty")
	}
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return parseJSONError(err)
	}
	if dec.More() {
		return errors.New("request body contains multiple JSON values")
	}
	return nil
}

// parseJSONError turns decoder errors into client-facing messages.
func parseJSONError(err error) error {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
		maxErr    *http.MaxBytesError
	)
	switch {
	case errors.Is(err, io.EOF):
		return errors.New("request body is empty")
	case errors.As(err, &maxErr):
		return ErrBodyTooLarge
	case errors.As(err, &syntaxErr):
		return fmt.Errorf("malformed JSON at position %d", syntaxErr.Offset)
	case errors.As(err, &typeErr):
		return fmt.Errorf("invalid value for field %q: expected %s", typeErr.Field, typeErr.Type)
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
		return fmt.Errorf("unknown field %q", field)
	case errors.Is(err, io.ErrUnexpectedEOF):
		return errors.New("malformed JSON: unexpected end of body")
	default:
		// Errors from UnmarshalJSON methods, e.g. an unknown threshold name.
		return fmt.Errorf("invalid JSON in request body: %s", strings.TrimPrefix(err.Error(), "json: "))
	}
}
