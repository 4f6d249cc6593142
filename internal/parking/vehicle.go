package parking

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

const vehicleIDPrefix = "VEHICLE_"

// VehicleIDGenerator issues the token stored on a slot when a vehicle is parked.
// Every call must return a value never returned before.
type VehicleIDGenerator interface {
	NewVehicleID() string
}

type UUIDGenerator struct{}

func NewUUIDGenerator() UUIDGenerator {
	return UUIDGenerator{}
}

func (UUIDGenerator) NewVehicleID() string {
	return vehicleIDPrefix + uuid.NewString()
}

// SequenceGenerator hands out VEHICLE_1, VEHICLE_2, ... and is safe for concurrent use.
type SequenceGenerator struct {
	next atomic.Int64
}

func NewSequenceGenerator() *SequenceGenerator {
	return &SequenceGenerator{}
}

func (g *SequenceGenerator) NewVehicleID() string {
	return fmt.Sprintf("%s%d", vehicleIDPrefix, g.next.Add(1))
}
