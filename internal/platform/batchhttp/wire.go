package batchhttp

import (
	"encoding/json"

	"github.com/phrazzld/scry-quizgen/internal/batch"
)

type submitRequest struct {
	Requests []requestItem `json:"requests" validate:"required,min=1,dive"`
}

type requestItem struct {
	UnitID  string          `json:"unit_id" validate:"required"`
	Payload json.RawMessage `json:"payload" validate:"required"`
}

type submitResponse struct {
	JobID string `json:"job_id"`
}

func toWire(requests []batch.Request) submitRequest {
	items := make([]requestItem, len(requests))
	for i, r := range requests {
		items[i] = requestItem{UnitID: r.UnitID, Payload: r.Payload}
	}
	return submitRequest{Requests: items}
}

func fromWire(req submitRequest) []batch.Request {
	out := make([]batch.Request, len(req.Requests))
	for i, item := range req.Requests {
		out[i] = batch.Request{UnitID: item.UnitID, Payload: item.Payload}
	}
	return out
}
