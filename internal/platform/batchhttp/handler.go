package batchhttp

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/phrazzld/scry-quizgen/internal/api/middleware"
	"github.com/phrazzld/scry-quizgen/internal/api/shared"
	"github.com/phrazzld/scry-quizgen/internal/batch"
	"github.com/phrazzld/scry-quizgen/internal/generation"
	"github.com/phrazzld/scry-quizgen/internal/platform/logger"
)

type handler struct {
	endpoint batch.Endpoint
}

// NewHandler returns a router serving endpoint under /v1/batches.
func NewHandler(endpoint batch.Endpoint, log *slog.Logger) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	h := &handler{endpoint: endpoint}

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Trace(log.With("component", "batch_http")))
	r.Route("/v1/batches", func(r chi.Router) {
		r.Post("/", h.submit)
		r.Get("/{jobID}", h.poll)
	})
	return otelhttp.NewHandler(r, "batch")
}

func (h *handler) submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "invalid batch request", err)
		return
	}

	jobID, err := h.endpoint.Submit(r.Context(), fromWire(req))
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, statusFor(err), "failed to submit batch job", err)
		return
	}
	logger.FromContext(r.Context()).Info("batch job submitted",
		"job_id", jobID,
		"unit_count", len(req.Requests))
	shared.RespondWithJSON(w, r, http.StatusAccepted, submitResponse{JobID: jobID})
}

func (h *handler) poll(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job, err := h.endpoint.Poll(r.Context(), jobID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, statusFor(err), "failed to fetch batch job", err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, job)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, batch.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, generation.ErrPermanent):
		return http.StatusBadRequest
	case errors.Is(err, generation.ErrTransient):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
