package parking

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const shellHelp = `Commands:
  add_slot <slot_no> <covered|ev|covered,ev>
  list
  available [ev] [covered]
  park [ev] [covered]
  remove <slot_id>
  status
  help`

// Shell is a line-oriented console over an InstrumentedRegistry.
type Shell struct {
	registry  *InstrumentedRegistry
	telemetry *TelemetryProvider
	scanner   *bufio.Scanner
	out       io.Writer
}

func NewShell(registry *InstrumentedRegistry, telemetry *TelemetryProvider, in io.Reader, out io.Writer) *Shell {
	return &Shell{
		registry:  registry,
		telemetry: telemetry,
		scanner:   bufio.NewScanner(in),
		out:       out,
	}
}

// Run processes commands until the input ends or ctx is cancelled.
func (s *Shell) Run(ctx context.Context) {
	tracer := s.telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "shell.run")
	defer span.End()

	span.AddEvent("shell_started")

	for ctx.Err() == nil && s.scanner.Scan() {
		input := strings.TrimSpace(s.scanner.Text())
		if input == "" {
			continue
		}

		cmdCtx, cmdSpan := tracer.Start(ctx, "shell.process_command",
			trace.WithAttributes(attribute.String("command.input", input)))

		s.processCommand(cmdCtx, input)
		cmdSpan.End()
	}

	span.AddEvent("shell_ended")
}

func (s *Shell) processCommand(ctx context.Context, input string) {
	span := trace.SpanFromContext(ctx)

	parts := strings.Fields(input)
	if len(parts) == 0 {
		return
	}

	command := parts[0]
	span.SetAttributes(attribute.String("command.name", command))

	switch command {
	case "add_slot":
		s.handleAddSlot(ctx, parts)
	case "list":
		s.handleList(ctx)
	case "available":
		s.handleAvailable(ctx, parts)
	case "park":
		s.handlePark(ctx, parts)
	case "remove":
		s.handleRemove(ctx, parts)
	case "status":
		s.handleStatus(ctx)
	case "help":
		s.println(shellHelp)
	default:
		span.AddEvent("unknown_command", trace.WithAttributes(
			attribute.String("unknown_command", command),
		))
		s.printf("Unknown command: %s\n", command)
	}
}

func (s *Shell) handleAddSlot(ctx context.Context, parts []string) {
	span := trace.SpanFromContext(ctx)

	if len(parts) != 3 {
		span.AddEvent("invalid_arguments")
		s.println("Usage: add_slot <slot_no> <covered|ev|covered,ev>")
		return
	}

	slotNo, err := strconv.Atoi(parts[1])
	if err != nil {
		span.RecordError(fmt.Errorf("invalid slot number: %s", parts[1]))
		s.println("Invalid slot number")
		return
	}

	var covered, ev bool
	for _, amenity := range strings.Split(parts[2], ",") {
		switch amenity {
		case "covered":
			covered = true
		case "ev":
			ev = true
		default:
			s.printf("Unknown amenity: %s\n", amenity)
			return
		}
	}

	slot, err := s.registry.Add(ctx, slotNo, covered, ev)
	if err != nil {
		s.printf("Error: %s\n", err.Error())
		return
	}

	s.printf("Added slot %d with id %d\n", slot.SlotNo, slot.ID)
}

func (s *Shell) handleList(ctx context.Context) {
	slots := s.registry.ListAll(ctx)
	if len(slots) == 0 {
		s.println("No slots defined")
		return
	}
	s.printSlots(slots)
}

func (s *Shell) handleAvailable(ctx context.Context, parts []string) {
	needsEV, needsCover, err := parseRequirements(parts[1:])
	if err != nil {
		s.printf("Error: %s\n", err.Error())
		return
	}

	slots := s.registry.ListAvailable(ctx, needsEV, needsCover)
	if len(slots) == 0 {
		s.println("No matching slot is free")
		return
	}
	s.printSlots(slots)
}

func (s *Shell) handlePark(ctx context.Context, parts []string) {
	span := trace.SpanFromContext(ctx)

	needsEV, needsCover, err := parseRequirements(parts[1:])
	if err != nil {
		span.AddEvent("invalid_arguments")
		s.printf("Error: %s\n", err.Error())
		return
	}

	slot, err := s.registry.Allocate(ctx, needsEV, needsCover)
	if err != nil {
		span.AddEvent("parking_failed")
		s.println("Sorry, no slot available")
		return
	}

	span.AddEvent("parking_successful", trace.WithAttributes(
		attribute.Int("allocated_slot", slot.SlotNo),
	))
	s.printf("Allocated slot number: %d (id %d, vehicle %s)\n", slot.SlotNo, slot.ID, *slot.VehicleID)
}

func (s *Shell) handleRemove(ctx context.Context, parts []string) {
	span := trace.SpanFromContext(ctx)

	if len(parts) != 2 {
		span.AddEvent("invalid_arguments")
		s.println("Usage: remove <slot_id>")
		return
	}

	slotID, err := strconv.Atoi(parts[1])
	if err != nil {
		span.RecordError(fmt.Errorf("invalid slot id: %s", parts[1]))
		s.println("Invalid slot id")
		return
	}

	slot, err := s.registry.Release(ctx, slotID)
	if err != nil {
		s.printf("Error: %s\n", err.Error())
		return
	}

	s.printf("Slot number %d is free\n", slot.SlotNo)
}

func (s *Shell) handleStatus(ctx context.Context) {
	stats := s.registry.Stats(ctx)
	s.printf("Total: %d\tOccupied: %d\tAvailable: %d\tCovered: %d\tEV: %d\n",
		stats.Total, stats.Occupied, stats.Available, stats.Covered, stats.EVCharging)
}

func (s *Shell) printSlots(slots []Slot) {
	s.println("ID\tSlot No.\tCovered\tEV\tVehicle")
	for _, slot := range slots {
		vehicle := "-"
		if slot.VehicleID != nil {
			vehicle = *slot.VehicleID
		}
		s.printf("%d\t%d\t\t%s\t%s\t%s\n", slot.ID, slot.SlotNo, yesNo(slot.IsCovered), yesNo(slot.IsEVCharging), vehicle)
	}
}

func (s *Shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

func (s *Shell) println(line string) {
	fmt.Fprintln(s.out, line)
}

func parseRequirements(args []string) (needsEV, needsCover bool, err error) {
	for _, arg := range args {
		switch arg {
		case "ev":
			needsEV = true
		case "covered":
			needsCover = true
		default:
			return false, false, errors.New("requirements must be 'ev' and/or 'covered'")
		}
	}
	return needsEV, needsCover, nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
