// internal/api/batch.go
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/dalemusser/mailcheck/httputil"
	"github.com/dalemusser/mailcheck/internal/report"
	"github.com/dalemusser/mailcheck/isemail"
	"go.uber.org/zap"
)

type batchRequest struct {
	Emails []string `json:"emails"`
	optionsRequest
}

type batchResponse struct {
	Results []resultResponse `json:"results"`
	Summary report.Summary   `json:"summary"`
}

// POST /v1/validate/batch[?format=csv|xlsx]
func (h *Handler) validateBatch(w http.ResponseWriter, r *http.Request) {
	var format report.Format
	if f := r.URL.Query().Get("format"); f != "" && f != "json" {
		var err error
		if format, err = report.ParseFormat(f); err != nil {
			httputil.JSONError(w, http.StatusBadRequest, "invalid_request", `format must be "json", "csv" or "xlsx"`)
			return
		}
	}

	var req batchRequest
	if err := httputil.BindJSON(r, &req); err != nil {
		bindError(w, err)
		return
	}
	if len(req.Emails) == 0 {
		httputil.JSONError(w, http.StatusBadRequest, "invalid_request", `"emails" must not be empty`)
		return
	}
	if len(req.Emails) > h.cfg.MaxBatchSize {
		httputil.JSONError(w, http.StatusRequestEntityTooLarge, "batch_too_large",
			fmt.Sprintf("at most %d addresses per request", h.cfg.MaxBatchSize))
		return
	}

	results := h.validateAll(r.Context(), req.Emails, req.optionsRequest)

	if format != "" {
		if err := report.Serve(w, format, results); err != nil {
			h.logger.Error("writing report failed", zap.String("format", string(format)), zap.Error(err))
		}
		return
	}

	resp := batchResponse{
		Results: make([]resultResponse, len(results)),
		Summary: report.Summarize(results),
	}
	for i, res := range results {
		resp.Results[i] = newResultResponse(res)
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// validateAll validates emails with at most BatchWorkers goroutines and
// returns the results in input order.
func (h *Handler) validateAll(ctx context.Context, emails []string, o optionsRequest) []isemail.Result {
	results := make([]isemail.Result, len(emails))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for n := min(h.cfg.BatchWorkers, len(emails)); n > 0; n-- {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = h.validate(ctx, emails[i], o)
			}
		}()
	}
	for i := range emails {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return results
}
