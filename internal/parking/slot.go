package parking

type Slot struct {
	ID           int     `json:"id"`
	SlotNo       int     `json:"slotNo"`
	IsCovered    bool    `json:"isCovered"`
	IsEVCharging bool    `json:"isEVCharging"`
	IsOccupied   bool    `json:"isOccupied"`
	VehicleID    *string `json:"vehicleId"`
}

func NewSlot(id, slotNo int, isCovered, isEVCharging bool) *Slot {
	return &Slot{
		ID:           id,
		SlotNo:       slotNo,
		IsCovered:    isCovered,
		IsEVCharging: isEVCharging,
		IsOccupied:   false,
		VehicleID:    nil,
	}
}

// Matches reports whether the slot is free and carries every required amenity.
func (s *Slot) Matches(needsEV, needsCover bool) bool {
	return !s.IsOccupied &&
		(!needsEV || s.IsEVCharging) &&
		(!needsCover || s.IsCovered)
}

func (s *Slot) Occupy(vehicleID string) {
	s.VehicleID = &vehicleID
	s.IsOccupied = true
}

func (s *Slot) Vacate() string {
	var vehicleID string
	if s.VehicleID != nil {
		vehicleID = *s.VehicleID
	}
	s.VehicleID = nil
	s.IsOccupied = false
	return vehicleID
}

// snapshot returns a copy that shares no memory with the registry.
func (s *Slot) snapshot() Slot {
	c := *s
	if s.VehicleID != nil {
		id := *s.VehicleID
		c.VehicleID = &id
	}
	return c
}
