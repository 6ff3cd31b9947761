package pairing

import (
	"errors"
	"fmt"
)

// ErrUnknownStrategy is returned when the requested strategy is not registered.
var ErrUnknownStrategy = errors.New("unknown pairing strategy")

// InvariantViolation is the panic value raised when trades reaching the
// matcher are inconsistently classified.
type InvariantViolation struct {
	OpenHash  string
	CloseHash string
	Reason    string
}

func (v *InvariantViolation) Error() string {
	return fmt.Sprintf("pairing invariant violated (open %s, close %s): %s", v.OpenHash, v.CloseHash, v.Reason)
}

func violate(openHash, closeHash, reason string) {
	panic(&InvariantViolation{OpenHash: openHash, CloseHash: closeHash, Reason: reason})
}
