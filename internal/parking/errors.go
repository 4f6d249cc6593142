package parking

import "errors"

var (
	ErrInvalidInput        = errors.New("invalid slot number")
	ErrDuplicateSlotNumber = errors.New("slot number already exists")
	ErrValidationFailed    = errors.New("please select at least one option: is covered or EV charging available")
	ErrNoSlotAvailable     = errors.New("no slot available")
	ErrSlotNotFound        = errors.New("slot not found")
	ErrAlreadyEmpty        = errors.New("slot is already empty")
)

type Kind string

const (
	KindNone                Kind = ""
	KindInvalidInput        Kind = "InvalidInput"
	KindDuplicateSlotNumber Kind = "DuplicateSlotNumber"
	KindValidationFailed    Kind = "ValidationFailed"
	KindNoSlotAvailable     Kind = "NoSlotAvailable"
	KindSlotNotFound        Kind = "SlotNotFound"
	KindAlreadyEmpty        Kind = "AlreadyEmpty"
	KindInternalFault       Kind = "InternalFault"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrInvalidInput, KindInvalidInput},
	{ErrDuplicateSlotNumber, KindDuplicateSlotNumber},
	{ErrValidationFailed, KindValidationFailed},
	{ErrNoSlotAvailable, KindNoSlotAvailable},
	{ErrSlotNotFound, KindSlotNotFound},
	{ErrAlreadyEmpty, KindAlreadyEmpty},
}

// KindOf classifies err. Errors outside the registry's own set are internal faults.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternalFault
}
