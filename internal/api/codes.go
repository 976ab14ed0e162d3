// internal/api/codes.go
package api

import (
	"net/http"

	"github.com/dalemusser/mailcheck/httputil"
	"github.com/dalemusser/mailcheck/isemail"
	"github.com/go-chi/chi/v5"
)

// codeInfo describes one diagnosis code.
type codeInfo struct {
	Value       int          `json:"value"`
	Name        string       `json:"name"`
	Band        isemail.Band `json:"band"`
	Fatal       bool         `json:"fatal"`
	Description string       `json:"description"`
}

func describe(c isemail.Code) codeInfo {
	return codeInfo{
		Value:       int(c),
		Name:        c.String(),
		Band:        c.Band(),
		Fatal:       c.IsFatal(),
		Description: c.Description(),
	}
}

// GET /v1/codes
func (h *Handler) listCodes(w http.ResponseWriter, _ *http.Request) {
	codes := isemail.AllCodes()
	out := make([]codeInfo, len(codes))
	for i, c := range codes {
		out[i] = describe(c)
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"codes": out})
}

// GET /v1/codes/{name}; name may also be the numeric value.
func (h *Handler) getCode(w http.ResponseWriter, r *http.Request) {
	c, err := isemail.ParseCode(chi.URLParam(r, "name"))
	if err != nil || !c.Known() {
		httputil.JSONError(w, http.StatusNotFound, "not_found", "unknown diagnosis code")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, describe(c))
}
