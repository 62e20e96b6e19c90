package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/phrazzld/scry-quizgen/internal/api/shared"
	"github.com/phrazzld/scry-quizgen/internal/domain"
	"github.com/phrazzld/scry-quizgen/internal/platform/logger"
	"github.com/phrazzld/scry-quizgen/internal/task"
)

// ProgressSource reports the live state of a run. *task.Orchestrator
// implements it.
type ProgressSource interface {
	Progress() task.ProgressSnapshot
}

// ResultSource looks up checkpointed results. *checkpoint.Checkpoint
// implements it.
type ResultSource interface {
	Result(unitID string) (domain.Result, bool)
	Results() map[string]domain.Result
}

// ProgressHandler handles the progress endpoints.
type ProgressHandler struct {
	progress ProgressSource
	results  ResultSource
}

// NewProgressHandler creates a ProgressHandler. results may be nil, in which
// case the unit endpoints answer 404.
func NewProgressHandler(progress ProgressSource, results ResultSource) *ProgressHandler {
	return &ProgressHandler{progress: progress, results: results}
}

// GetProgress handles GET /api/progress.
func (h *ProgressHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.progress.Progress())
}

// GetUnit handles GET /api/units/{unitID}.
func (h *ProgressHandler) GetUnit(w http.ResponseWriter, r *http.Request) {
	unitID := chi.URLParam(r, "unitID")
	if unitID == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "unit ID is required")
		return
	}
	if h.results == nil {
		shared.RespondWithError(w, r, http.StatusNotFound, "unit not found")
		return
	}

	res, ok := h.results.Result(unitID)
	if !ok {
		logger.FromContext(r.Context()).Debug("unit not checkpointed", "unit_id", unitID)
		shared.RespondWithError(w, r, http.StatusNotFound, "unit not found")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resultToResponse(res, true))
}

// ListUnits handles GET /api/units?status=&content=.
func (h *ProgressHandler) ListUnits(w http.ResponseWriter, r *http.Request) {
	q := listUnitsQuery{Status: r.URL.Query().Get("status")}
	if raw := r.URL.Query().Get("content"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "content must be a boolean")
			return
		}
		q.IncludeContent = v
	}
	if err := shared.ValidateRequest(q); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest,
			"status must be one of accepted, rejected, failed", err)
		return
	}

	if h.results == nil {
		shared.RespondWithJSON(w, r, http.StatusOK, UnitListResponse{Units: []UnitResultResponse{}})
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resultsToResponse(h.results.Results(), q))
}
