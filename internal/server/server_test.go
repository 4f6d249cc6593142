package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart-parking/internal/config"
	"smart-parking/internal/metrics"
	"smart-parking/internal/parking"
)

type testAPI struct {
	handler  http.Handler
	registry *parking.Registry
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	cfg := config.Default()
	cfg.Telemetry.Enabled = false

	telemetry, err := parking.NewTelemetryProvider(context.Background(), cfg.Telemetry)
	require.NoError(t, err)
	t.Cleanup(func() { _ = telemetry.Shutdown(context.Background()) })

	registry := parking.NewRegistry(parking.WithVehicleIDGenerator(parking.NewSequenceGenerator()))
	instrumented, err := parking.NewInstrumentedRegistry(registry, telemetry)
	require.NoError(t, err)

	promRegistry := prometheus.NewRegistry()
	_, err = metrics.Register(promRegistry, registry)
	require.NoError(t, err)

	srv := NewServer(cfg.Server, NewHandler(instrumented, cfg.Telemetry.ServiceName), promRegistry)
	return &testAPI{handler: srv.Handler(), registry: registry}
}

func (a *testAPI) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, Response) {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)

	var resp Response
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func TestCreateSlot(t *testing.T) {
	api := newTestAPI(t)

	w, resp := api.do(t, http.MethodPost, "/api/slots", `{"slotNo": 101, "isCovered": true, "isEVCharging": false}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "Slot added successfully", resp.Message)
	require.NotNil(t, resp.Slot)
	assert.Equal(t, parking.Slot{ID: 1, SlotNo: 101, IsCovered: true}, *resp.Slot)
	assert.NotEmpty(t, resp.Meta.RequestID)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestCreateSlotRejections(t *testing.T) {
	api := newTestAPI(t)
	_, _ = api.do(t, http.MethodPost, "/api/slots", `{"slotNo": 101, "isCovered": true}`)

	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"malformed json", `{"slotNo": `, "Invalid request body"},
		{"string slot number", `{"slotNo": "101", "isCovered": true}`, "Invalid request body"},
		{"missing slot number", `{"isCovered": true}`, "Invalid slot number"},
		{"zero slot number", `{"slotNo": 0, "isCovered": true}`, "Invalid slot number"},
		{"negative slot number", `{"slotNo": -4, "isCovered": true}`, "Invalid slot number"},
		{"fractional slot number", `{"slotNo": 1.5, "isCovered": true}`, "Invalid slot number"},
		{"no amenity", `{"slotNo": 5}`, parking.ErrValidationFailed.Error()},
		{"duplicate", `{"slotNo": 101, "isEVCharging": true}`, "slot number already exists: 101"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := api.do(t, http.MethodPost, "/api/slots", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.message, resp.Message)
		})
	}

	assert.Len(t, api.registry.ListAll(), 1)
}

func TestListSlotsSortedBySlotNumber(t *testing.T) {
	api := newTestAPI(t)

	w, resp := api.do(t, http.MethodGet, "/api/slots", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"slots":[]`)

	for _, n := range []string{"30", "10", "20"} {
		_, _ = api.do(t, http.MethodPost, "/api/slots", `{"slotNo": `+n+`, "isCovered": true}`)
	}

	w, resp = api.do(t, http.MethodGet, "/api/slots", "")
	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, resp.Slots, 3)
	assert.Equal(t, []int{10, 20, 30}, []int{resp.Slots[0].SlotNo, resp.Slots[1].SlotNo, resp.Slots[2].SlotNo})
}

func TestParkAndRemoveScenario(t *testing.T) {
	api := newTestAPI(t)
	_, _ = api.do(t, http.MethodPost, "/api/slots", `{"slotNo": 101, "isCovered": true}`)
	_, _ = api.do(t, http.MethodPost, "/api/slots", `{"slotNo": 102, "isEVCharging": true}`)

	w, resp := api.do(t, http.MethodPost, "/api/park", `{"needsEV": true}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, resp.Slot)
	assert.Equal(t, 102, resp.Slot.SlotNo)
	assert.True(t, resp.Slot.IsOccupied)
	require.NotNil(t, resp.Slot.VehicleID)
	assert.Equal(t, "VEHICLE_1", *resp.Slot.VehicleID)

	w, resp = api.do(t, http.MethodPost, "/api/park", `{"needsEV": true, "needsCover": false}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, "no slot available", resp.Message)
	assert.Nil(t, resp.Slot)

	w, resp = api.do(t, http.MethodDelete, "/api/slots/2", "")
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, resp.Slot)
	assert.False(t, resp.Slot.IsOccupied)
	assert.Nil(t, resp.Slot.VehicleID)
	assert.Contains(t, w.Body.String(), `"vehicleId":null`)

	w, resp = api.do(t, http.MethodDelete, "/api/slots/2", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "slot is already empty: id 2", resp.Message)
}

func TestParkWithoutBodyTreatsRequirementsAsFalse(t *testing.T) {
	api := newTestAPI(t)
	_, _ = api.do(t, http.MethodPost, "/api/slots", `{"slotNo": 7, "isCovered": true}`)

	w, resp := api.do(t, http.MethodPost, "/api/park", "")
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 7, resp.Slot.SlotNo)
}

func TestParkRejectsMalformedBody(t *testing.T) {
	api := newTestAPI(t)

	w, resp := api.do(t, http.MethodPost, "/api/park", `{"needsEV": "yes"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid request body", resp.Message)
}

func TestRemoveUnknownSlot(t *testing.T) {
	api := newTestAPI(t)

	for _, path := range []string{"/api/slots/99", "/api/slots/abc"} {
		w, resp := api.do(t, http.MethodDelete, path, "")
		assert.Equal(t, http.StatusNotFound, w.Code, path)
		assert.False(t, resp.Success, path)
		assert.Contains(t, resp.Message, "slot not found", path)
	}
}

func TestGetSlot(t *testing.T) {
	api := newTestAPI(t)
	_, _ = api.do(t, http.MethodPost, "/api/slots", `{"slotNo": 101, "isCovered": true}`)

	w, resp := api.do(t, http.MethodGet, "/api/slots/1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 101, resp.Slot.SlotNo)

	w, _ = api.do(t, http.MethodGet, "/api/slots/2", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListAvailableSlots(t *testing.T) {
	api := newTestAPI(t)
	_, _ = api.do(t, http.MethodPost, "/api/slots", `{"slotNo": 3, "isCovered": true, "isEVCharging": true}`)
	_, _ = api.do(t, http.MethodPost, "/api/slots", `{"slotNo": 1, "isCovered": true}`)
	_, _ = api.do(t, http.MethodPost, "/api/slots", `{"slotNo": 2, "isEVCharging": true}`)

	_, resp := api.do(t, http.MethodGet, "/api/slots/available?needsEV=true", "")
	require.Len(t, resp.Slots, 2)
	assert.Equal(t, 2, resp.Slots[0].SlotNo)
	assert.Equal(t, 3, resp.Slots[1].SlotNo)

	_, resp = api.do(t, http.MethodGet, "/api/slots/available?needsEV=true&needsCover=true", "")
	require.Len(t, resp.Slots, 1)
	assert.Equal(t, 3, resp.Slots[0].SlotNo)

	w, _ := api.do(t, http.MethodGet, "/api/slots/available?needsEV=maybe", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatus(t *testing.T) {
	api := newTestAPI(t)
	_, _ = api.do(t, http.MethodPost, "/api/slots", `{"slotNo": 1, "isCovered": true}`)
	_, _ = api.do(t, http.MethodPost, "/api/park", `{}`)

	w, resp := api.do(t, http.MethodGet, "/api/status", "")
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, resp.Stats)
	assert.Equal(t, parking.Stats{Total: 1, Occupied: 1, Covered: 1}, *resp.Stats)
}

func TestHealthAndMetrics(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	api.handler.ServeHTTP(w, req)

	var health HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "smart-parking", health.Service)

	_, _ = api.do(t, http.MethodPost, "/api/slots", `{"slotNo": 1, "isCovered": true}`)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w = httptest.NewRecorder()
	api.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "parking_slots_total 1")
}

func TestCORSPreflight(t *testing.T) {
	api := newTestAPI(t)

	w, _ := api.do(t, http.MethodOptions, "/api/slots", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecoveryMiddlewareReportsPanicText(t *testing.T) {
	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(RecoveryMiddleware)
	r.Get("/boom", func(http.ResponseWriter, *http.Request) {
		panic("registry exploded")
	})

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "registry exploded", resp.Message)
}

func TestServerShutdown(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Port = "0"
	srv := NewServer(cfg.Server, NewHandler(nil, "smart-parking"), prometheus.NewRegistry())

	done := make(chan error, 1)
	go func() { done <- srv.Start() }()

	time.Sleep(50 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	assert.ErrorIs(t, <-done, http.ErrServerClosed)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(parking.ErrDuplicateSlotNumber))
	assert.Equal(t, http.StatusNotFound, statusFor(parking.ErrAlreadyEmpty))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}
