// internal/api/api.go
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/dalemusser/mailcheck/httputil"
	"github.com/dalemusser/mailcheck/isemail"
	"github.com/dalemusser/mailcheck/logging"
	"github.com/dalemusser/mailcheck/middleware"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Config tunes the API handlers.
type Config struct {
	// APIKey, when set, is required on every /v1 route.
	APIKey string
	// MaxBatchSize caps the number of addresses per batch request.
	MaxBatchSize int
	// BatchWorkers is the number of concurrent validations per batch.
	BatchWorkers int
	// MaskAddresses hides local parts in logs.
	MaskAddresses bool
}

// Handler serves the validation API.
type Handler struct {
	validator *isemail.Validator
	cfg       Config
	logger    *zap.Logger
}

// New creates the API handler. v supplies the default options.
func New(v *isemail.Validator, cfg Config, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 1000
	}
	if cfg.BatchWorkers <= 0 {
		cfg.BatchWorkers = 8
	}
	return &Handler{validator: v, cfg: cfg, logger: logger}
}

// Mount registers the /v1 routes on r.
func (h *Handler) Mount(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.RequireAPIKey(h.cfg.APIKey, h.logger))
		r.Use(middleware.RequireJSON())

		r.Get("/validate", h.validateQuery)
		r.Post("/validate", h.validateBody)
		r.Post("/validate/batch", h.validateBatch)
		r.Get("/codes", h.listCodes)
		r.Get("/codes/{name}", h.getCode)
	})
}

// optionsRequest carries per-request overrides; nil fields keep the
// validator defaults.
type optionsRequest struct {
	CheckDNS  *bool         `json:"check_dns,omitempty"`
	Strict    *bool         `json:"strict,omitempty"`
	Threshold *isemail.Code `json:"threshold,omitempty"`
}

func (o optionsRequest) apply(opts isemail.Options) isemail.Options {
	if o.CheckDNS != nil {
		opts.CheckDNS = *o.CheckDNS
	}
	if o.Strict != nil {
		opts.Strict = *o.Strict
	}
	if o.Threshold != nil {
		opts.Threshold = *o.Threshold
	}
	return opts
}

type validateRequest struct {
	Email string `json:"email"`
	optionsRequest
}

// resultResponse is a Result plus the numeric status.
type resultResponse struct {
	isemail.Result
	StatusCode int `json:"status_code"`
}

func newResultResponse(r isemail.Result) resultResponse {
	return resultResponse{Result: r, StatusCode: int(r.Status)}
}

// GET /v1/validate?email=…&dns=…&strict=…&threshold=…
func (h *Handler) validateQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !q.Has("email") {
		httputil.JSONError(w, http.StatusBadRequest, "invalid_request", `query parameter "email" is required`)
		return
	}

	var o optionsRequest
	for _, p := range []struct {
		name string
		dst  **bool
	}{{"dns", &o.CheckDNS}, {"strict", &o.Strict}} {
		if !q.Has(p.name) {
			continue
		}
		b, err := parseBool(q.Get(p.name))
		if err != nil {
			httputil.JSONError(w, http.StatusBadRequest, "invalid_request", "query parameter "+strconv.Quote(p.name)+" must be a boolean")
			return
		}
		*p.dst = &b
	}
	if q.Has("threshold") {
		c, err := isemail.ParseCode(q.Get("threshold"))
		if err != nil {
			httputil.JSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		o.Threshold = &c
	}

	h.respond(w, r, q.Get("email"), o)
}

// POST /v1/validate
func (h *Handler) validateBody(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := httputil.BindJSON(r, &req); err != nil {
		bindError(w, err)
		return
	}
	h.respond(w, r, req.Email, req.optionsRequest)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, email string, o optionsRequest) {
	res := h.validate(r.Context(), email, o)
	w.Header().Set(logging.StatusHeader, res.Status.String())
	httputil.WriteJSON(w, http.StatusOK, newResultResponse(res))
}

func (h *Handler) validate(ctx context.Context, email string, o optionsRequest) isemail.Result {
	res := h.validator.Validate(ctx, email, o.apply(h.validator.Defaults()))
	h.logger.Debug("validated",
		logging.Address("email", email, h.cfg.MaskAddresses),
		zap.Stringer("status", res.Status),
		zap.Bool("valid", res.Valid))
	return res
}

func bindError(w http.ResponseWriter, err error) {
	if errors.Is(err, httputil.ErrBodyTooLarge) {
		httputil.JSONError(w, http.StatusRequestEntityTooLarge, "body_too_large", err.Error())
		return
	}
	httputil.JSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	}
	return strconv.ParseBool(s)
}
