package server

import (
	"context"
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"smart-parking/internal/parking"
)

type Meta struct {
	TraceID   string `json:"trace_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Response is the envelope of every API reply.
type Response struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Slot    *parking.Slot  `json:"slot,omitempty"`
	Slots   []parking.Slot `json:"slots,omitzero"`
	Stats   *parking.Stats `json:"stats,omitempty"`
	Meta    *Meta          `json:"meta,omitempty"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Meta    *Meta  `json:"meta,omitempty"`
}

type CreateSlotRequest struct {
	SlotNo       *float64 `json:"slotNo"`
	IsCovered    bool     `json:"isCovered"`
	IsEVCharging bool     `json:"isEVCharging"`
}

type ParkVehicleRequest struct {
	NeedsEV    bool `json:"needsEV"`
	NeedsCover bool `json:"needsCover"`
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func extractMeta(ctx context.Context) *Meta {
	meta := &Meta{}

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		meta.TraceID = span.SpanContext().TraceID().String()
	}

	if reqID, ok := ctx.Value(RequestIDKey).(string); ok {
		meta.RequestID = reqID
	}

	return meta
}

func WriteSuccess(ctx context.Context, w http.ResponseWriter, status int, resp Response) {
	resp.Success = true
	resp.Meta = extractMeta(ctx)
	WriteJSON(w, status, resp)
}

func WriteError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Response{
		Success: false,
		Message: message,
		Meta:    extractMeta(ctx),
	})
}
