package parking

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type InstrumentedRegistry struct {
	*Registry
	telemetry *TelemetryProvider

	// Metrics
	allocations       metric.Int64Counter
	releases          metric.Int64Counter
	additions         metric.Int64Counter
	occupancyGauge    metric.Int64UpDownCounter
	totalSlotsGauge   metric.Int64UpDownCounter
	operationDuration metric.Float64Histogram
}

func NewInstrumentedRegistry(registry *Registry, telemetry *TelemetryProvider) (*InstrumentedRegistry, error) {
	meter := telemetry.Meter()

	allocations, err := meter.Int64Counter("slot_allocations_total",
		metric.WithDescription("Total number of slot allocation attempts"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	releases, err := meter.Int64Counter("slot_releases_total",
		metric.WithDescription("Total number of slot release attempts"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	additions, err := meter.Int64Counter("slot_additions_total",
		metric.WithDescription("Total number of slot definition attempts"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	occupancyGauge, err := meter.Int64UpDownCounter("slot_registry_occupancy",
		metric.WithDescription("Current number of occupied slots"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	totalSlotsGauge, err := meter.Int64UpDownCounter("slot_registry_total_slots",
		metric.WithDescription("Total number of defined slots"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	operationDuration, err := meter.Float64Histogram("slot_operation_duration_seconds",
		metric.WithDescription("Duration of slot registry operations"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	ir := &InstrumentedRegistry{
		Registry:          registry,
		telemetry:         telemetry,
		allocations:       allocations,
		releases:          releases,
		additions:         additions,
		occupancyGauge:    occupancyGauge,
		totalSlotsGauge:   totalSlotsGauge,
		operationDuration: operationDuration,
	}

	// The registry may already hold seeded slots.
	stats := registry.Stats()
	totalSlotsGauge.Add(context.Background(), int64(stats.Total))
	occupancyGauge.Add(context.Background(), int64(stats.Occupied))

	return ir, nil
}

func (ir *InstrumentedRegistry) Add(ctx context.Context, slotNo int, isCovered, isEVCharging bool) (Slot, error) {
	ctx, span := ir.telemetry.Tracer().Start(ctx, "slot_registry.add",
		trace.WithAttributes(
			attribute.Int("slot.number", slotNo),
			attribute.Bool("slot.covered", isCovered),
			attribute.Bool("slot.ev_charging", isEVCharging),
		))
	defer span.End()

	start := time.Now()

	slot, err := ir.Registry.Add(slotNo, isCovered, isEVCharging)

	labels := []attribute.KeyValue{attribute.String("operation", "add")}
	if err != nil {
		labels = append(labels, failed(span, err)...)
	} else {
		labels = append(labels, attribute.String("status", "success"))
		span.SetAttributes(attribute.Int("slot.id", slot.ID))
		span.AddEvent("slot_created")
		ir.totalSlotsGauge.Add(ctx, 1)
	}

	ir.additions.Add(ctx, 1, metric.WithAttributes(labels...))
	ir.operationDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(labels...))

	return slot, err
}

func (ir *InstrumentedRegistry) ListAll(ctx context.Context) []Slot {
	ctx, span := ir.telemetry.Tracer().Start(ctx, "slot_registry.list_all")
	defer span.End()

	start := time.Now()

	slots := ir.Registry.ListAll()

	span.SetAttributes(attribute.Int("slots.count", len(slots)))
	ir.operationDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
		attribute.String("operation", "list_all"),
		attribute.String("status", "success"),
	))

	return slots
}

func (ir *InstrumentedRegistry) ListAvailable(ctx context.Context, needsEV, needsCover bool) []Slot {
	ctx, span := ir.telemetry.Tracer().Start(ctx, "slot_registry.list_available",
		trace.WithAttributes(requirementAttrs(needsEV, needsCover)...))
	defer span.End()

	start := time.Now()

	slots := ir.Registry.ListAvailable(needsEV, needsCover)

	span.SetAttributes(attribute.Int("slots.count", len(slots)))
	ir.operationDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
		attribute.String("operation", "list_available"),
		attribute.String("status", "success"),
	))

	return slots
}

func (ir *InstrumentedRegistry) Allocate(ctx context.Context, needsEV, needsCover bool) (Slot, error) {
	ctx, span := ir.telemetry.Tracer().Start(ctx, "slot_registry.allocate",
		trace.WithAttributes(requirementAttrs(needsEV, needsCover)...))
	defer span.End()

	start := time.Now()

	span.AddEvent("finding_available_slot")

	slot, err := ir.Registry.Allocate(needsEV, needsCover)

	labels := append([]attribute.KeyValue{attribute.String("operation", "allocate")},
		requirementAttrs(needsEV, needsCover)...)

	if err != nil {
		labels = append(labels, failed(span, err)...)
	} else {
		labels = append(labels, attribute.String("status", "success"))
		span.SetAttributes(
			attribute.Int("slot.id", slot.ID),
			attribute.Int("slot.number", slot.SlotNo),
		)
		span.AddEvent("slot_allocated", trace.WithAttributes(
			attribute.Int("slot.number", slot.SlotNo),
		))
		ir.occupancyGauge.Add(ctx, 1)
	}

	ir.allocations.Add(ctx, 1, metric.WithAttributes(labels...))
	ir.operationDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(labels...))

	return slot, err
}

func (ir *InstrumentedRegistry) Release(ctx context.Context, slotID int) (Slot, error) {
	ctx, span := ir.telemetry.Tracer().Start(ctx, "slot_registry.release",
		trace.WithAttributes(
			attribute.Int("slot.id", slotID),
		))
	defer span.End()

	start := time.Now()

	span.AddEvent("releasing_slot")

	slot, err := ir.Registry.Release(slotID)

	labels := []attribute.KeyValue{attribute.String("operation", "release")}

	if err != nil {
		labels = append(labels, failed(span, err)...)
	} else {
		labels = append(labels, attribute.String("status", "success"))
		span.SetAttributes(attribute.Int("slot.number", slot.SlotNo))
		span.AddEvent("slot_released")
		ir.occupancyGauge.Add(ctx, -1)
	}

	ir.releases.Add(ctx, 1, metric.WithAttributes(labels...))
	ir.operationDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(labels...))

	return slot, err
}

func (ir *InstrumentedRegistry) GetByID(ctx context.Context, slotID int) (Slot, bool) {
	ctx, span := ir.telemetry.Tracer().Start(ctx, "slot_registry.get_by_id",
		trace.WithAttributes(
			attribute.Int("slot.id", slotID),
		))
	defer span.End()

	start := time.Now()

	slot, ok := ir.Registry.GetByID(slotID)

	status := "found"
	if !ok {
		status = "not_found"
		span.AddEvent("slot_not_found")
	}

	ir.operationDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
		attribute.String("operation", "get_by_id"),
		attribute.String("status", status),
	))

	return slot, ok
}

func (ir *InstrumentedRegistry) Stats(ctx context.Context) Stats {
	_, span := ir.telemetry.Tracer().Start(ctx, "slot_registry.stats")
	defer span.End()

	stats := ir.Registry.Stats()
	span.SetAttributes(
		attribute.Int("slots.total", stats.Total),
		attribute.Int("slots.occupied", stats.Occupied),
	)
	return stats
}

func requirementAttrs(needsEV, needsCover bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool("needs_ev", needsEV),
		attribute.Bool("needs_cover", needsCover),
	}
}

// failed marks the span as errored and returns the metric labels for a failure.
func failed(span trace.Span, err error) []attribute.KeyValue {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return []attribute.KeyValue{
		attribute.String("status", "failed"),
		attribute.String("error.kind", string(KindOf(err))),
	}
}
