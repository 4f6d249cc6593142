package server

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"smart-parking/internal/logging"
	"smart-parking/internal/parking"
)

type Handler struct {
	registry    *parking.InstrumentedRegistry
	serviceName string
}

func NewHandler(registry *parking.InstrumentedRegistry, serviceName string) *Handler {
	return &Handler{
		registry:    registry,
		serviceName: serviceName,
	}
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: h.serviceName,
		Meta:    extractMeta(r.Context()),
	})
}

func (h *Handler) CreateSlot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req CreateSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	slotNo, ok := slotNumber(req.SlotNo)
	if !ok {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid slot number")
		return
	}

	slot, err := h.registry.Add(ctx, slotNo, req.IsCovered, req.IsEVCharging)
	if err != nil {
		h.writeRegistryError(w, r, err)
		return
	}

	logging.Info(ctx).Int("slotId", slot.ID).Int("slotNo", slot.SlotNo).Msg("slot added")

	WriteSuccess(ctx, w, http.StatusCreated, Response{
		Message: "Slot added successfully",
		Slot:    &slot,
	})
}

func (h *Handler) ListSlots(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	WriteSuccess(ctx, w, http.StatusOK, Response{
		Message: "Slots retrieved successfully",
		Slots:   nonNil(h.registry.ListAll(ctx)),
	})
}

func (h *Handler) ListAvailableSlots(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	needsEV, err := queryBool(r, "needsEV")
	if err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "needsEV must be a boolean")
		return
	}
	needsCover, err := queryBool(r, "needsCover")
	if err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "needsCover must be a boolean")
		return
	}

	WriteSuccess(ctx, w, http.StatusOK, Response{
		Message: "Available slots retrieved successfully",
		Slots:   nonNil(h.registry.ListAvailable(ctx, needsEV, needsCover)),
	})
}

func (h *Handler) GetSlot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	slotID, err := strconv.Atoi(chi.URLParam(r, "slotId"))
	if err != nil {
		WriteError(ctx, w, http.StatusNotFound, parking.ErrSlotNotFound.Error())
		return
	}

	slot, ok := h.registry.GetByID(ctx, slotID)
	if !ok {
		WriteError(ctx, w, http.StatusNotFound, parking.ErrSlotNotFound.Error())
		return
	}

	WriteSuccess(ctx, w, http.StatusOK, Response{
		Message: "Slot retrieved successfully",
		Slot:    &slot,
	})
}

func (h *Handler) ParkVehicle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ParkVehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	slot, err := h.registry.Allocate(ctx, req.NeedsEV, req.NeedsCover)
	if err != nil {
		h.writeRegistryError(w, r, err)
		return
	}

	logging.Info(ctx).
		Int("slotId", slot.ID).
		Int("slotNo", slot.SlotNo).
		Str("vehicleId", *slot.VehicleID).
		Msg("vehicle parked")

	WriteSuccess(ctx, w, http.StatusCreated, Response{
		Message: "Vehicle parked successfully",
		Slot:    &slot,
	})
}

func (h *Handler) RemoveVehicle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// An unparsable id cannot belong to any slot.
	slotID, err := strconv.Atoi(chi.URLParam(r, "slotId"))
	if err != nil {
		WriteError(ctx, w, http.StatusNotFound, parking.ErrSlotNotFound.Error())
		return
	}

	slot, err := h.registry.Release(ctx, slotID)
	if err != nil {
		h.writeRegistryError(w, r, err)
		return
	}

	logging.Info(ctx).Int("slotId", slot.ID).Int("slotNo", slot.SlotNo).Msg("vehicle removed")

	WriteSuccess(ctx, w, http.StatusOK, Response{
		Message: "Vehicle removed successfully",
		Slot:    &slot,
	})
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats := h.registry.Stats(ctx)
	WriteSuccess(ctx, w, http.StatusOK, Response{
		Message: "Status retrieved successfully",
		Stats:   &stats,
	})
}

func (h *Handler) writeRegistryError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logging.Error(ctx).Err(err).Msg("registry operation failed")
	} else {
		logging.Debug(ctx).Err(err).Str("kind", string(parking.KindOf(err))).Msg("request rejected")
	}
	WriteError(ctx, w, status, err.Error())
}

func statusFor(err error) int {
	switch parking.KindOf(err) {
	case parking.KindInvalidInput, parking.KindValidationFailed, parking.KindDuplicateSlotNumber:
		return http.StatusBadRequest
	case parking.KindNoSlotAvailable, parking.KindSlotNotFound, parking.KindAlreadyEmpty:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// slotNumber accepts only positive whole numbers that fit a slot label.
func slotNumber(n *float64) (int, bool) {
	if n == nil || *n <= 0 || *n != math.Trunc(*n) || *n > math.MaxInt32 {
		return 0, false
	}
	return int(*n), true
}

func queryBool(r *http.Request, key string) (bool, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}

func nonNil(slots []parking.Slot) []parking.Slot {
	if slots == nil {
		return []parking.Slot{}
	}
	return slots
}
