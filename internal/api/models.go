package api

import (
	"sort"
	"time"

	"github.com/phrazzld/scry-quizgen/internal/domain"
)

// UnitResultResponse is the response body for a single finished unit.
type UnitResultResponse struct {
	UnitID       string          `json:"unit_id"`
	Status       string          `json:"status"`
	Attempts     int             `json:"attempts"`
	Lane         int             `json:"lane"`
	FailedChecks []string        `json:"failed_checks,omitempty"`
	LastError    string          `json:"last_error,omitempty"`
	Content      *domain.Content `json:"content,omitempty"`
	CompletedAt  time.Time       `json:"completed_at"`
}

// UnitListResponse is the response body for the unit listing endpoint.
type UnitListResponse struct {
	Count int                  `json:"count"`
	Units []UnitResultResponse `json:"units"`
}

// listUnitsQuery holds the query parameters of GET /api/units.
type listUnitsQuery struct {
	Status         string `validate:"omitempty,oneof=accepted rejected failed"`
	IncludeContent bool
}

func resultToResponse(r domain.Result, includeContent bool) UnitResultResponse {
	resp := UnitResultResponse{
		UnitID:       r.UnitID,
		Status:       string(r.Status),
		Attempts:     r.Attempts,
		Lane:         r.Lane,
		FailedChecks: r.FailedChecks,
		LastError:    r.LastError,
		CompletedAt:  r.CompletedAt,
	}
	if includeContent {
		resp.Content = r.Content
	}
	return resp
}

// resultsToResponse filters results by status and orders them by unit ID.
func resultsToResponse(results map[string]domain.Result, q listUnitsQuery) UnitListResponse {
	units := make([]UnitResultResponse, 0, len(results))
	for _, r := range results {
		if q.Status != "" && string(r.Status) != q.Status {
			continue
		}
		units = append(units, resultToResponse(r, q.IncludeContent))
	}
	sort.Slice(units, func(i, j int) bool { return units[i].UnitID < units[j].UnitID })
	return UnitListResponse{Count: len(units), Units: units}
}
