package parking

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds every slot of the lot in insertion order. All methods are safe
// for concurrent use; each one runs under a single lock so that Allocate's
// select-then-occupy step is atomic.
type Registry struct {
	mu         sync.Mutex
	slots      []*Slot
	nextSlotID int
	vehicleIDs VehicleIDGenerator
}

type Stats struct {
	Total      int `json:"total"`
	Occupied   int `json:"occupied"`
	Available  int `json:"available"`
	Covered    int `json:"covered"`
	EVCharging int `json:"evCharging"`
}

type RegistryOption func(*Registry)

func WithVehicleIDGenerator(g VehicleIDGenerator) RegistryOption {
	return func(r *Registry) {
		r.vehicleIDs = g
	}
}

func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		nextSlotID: 1,
		vehicleIDs: NewUUIDGenerator(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create appends a slot without checking its inputs. Boundaries should call Add.
func (r *Registry) Create(slotNo int, isCovered, isEVCharging bool) Slot {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.create(slotNo, isCovered, isEVCharging)
}

// Add validates a new slot definition and creates it.
func (r *Registry) Add(slotNo int, isCovered, isEVCharging bool) (Slot, error) {
	if slotNo <= 0 {
		return Slot{}, fmt.Errorf("%w: %d", ErrInvalidInput, slotNo)
	}
	if !isCovered && !isEVCharging {
		return Slot{}, ErrValidationFailed
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, slot := range r.slots {
		if slot.SlotNo == slotNo {
			return Slot{}, fmt.Errorf("%w: %d", ErrDuplicateSlotNumber, slotNo)
		}
	}

	return r.create(slotNo, isCovered, isEVCharging), nil
}

func (r *Registry) create(slotNo int, isCovered, isEVCharging bool) Slot {
	slot := NewSlot(r.nextSlotID, slotNo, isCovered, isEVCharging)
	r.nextSlotID++
	r.slots = append(r.slots, slot)
	return slot.snapshot()
}

func (r *Registry) ListAll() []Slot {
	r.mu.Lock()
	defer r.mu.Unlock()

	return snapshots(r.sorted())
}

func (r *Registry) ListAvailable(needsEV, needsCover bool) []Slot {
	r.mu.Lock()
	defer r.mu.Unlock()

	return snapshots(r.available(needsEV, needsCover))
}

// Allocate parks a vehicle in the matching free slot with the lowest slot number.
func (r *Registry) Allocate(needsEV, needsCover bool) (Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	candidates := r.available(needsEV, needsCover)
	if len(candidates) == 0 {
		return Slot{}, ErrNoSlotAvailable
	}

	slot := candidates[0]
	slot.Occupy(r.vehicleIDs.NewVehicleID())
	return slot.snapshot(), nil
}

func (r *Registry) Release(slotID int) (Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	slot := r.find(slotID)
	if slot == nil {
		return Slot{}, fmt.Errorf("%w: id %d", ErrSlotNotFound, slotID)
	}
	if !slot.IsOccupied {
		return Slot{}, fmt.Errorf("%w: id %d", ErrAlreadyEmpty, slotID)
	}

	slot.Vacate()
	return slot.snapshot(), nil
}

func (r *Registry) GetByID(slotID int) (Slot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	slot := r.find(slotID)
	if slot == nil {
		return Slot{}, false
	}
	return slot.snapshot(), true
}

func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := Stats{Total: len(r.slots)}
	for _, slot := range r.slots {
		if slot.IsOccupied {
			stats.Occupied++
		}
		if slot.IsCovered {
			stats.Covered++
		}
		if slot.IsEVCharging {
			stats.EVCharging++
		}
	}
	stats.Available = stats.Total - stats.Occupied
	return stats
}

func (r *Registry) find(slotID int) *Slot {
	for _, slot := range r.slots {
		if slot.ID == slotID {
			return slot
		}
	}
	return nil
}

func (r *Registry) available(needsEV, needsCover bool) []*Slot {
	var matching []*Slot
	for _, slot := range r.sorted() {
		if slot.Matches(needsEV, needsCover) {
			matching = append(matching, slot)
		}
	}
	return matching
}

// sorted orders by slot number without reordering the underlying insertion list.
func (r *Registry) sorted() []*Slot {
	ordered := make([]*Slot, len(r.slots))
	copy(ordered, r.slots)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].SlotNo < ordered[j].SlotNo
	})
	return ordered
}

func snapshots(slots []*Slot) []Slot {
	out := make([]Slot, 0, len(slots))
	for _, slot := range slots {
		out = append(out, slot.snapshot())
	}
	return out
}
