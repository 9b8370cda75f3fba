package weights

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for this package. Callers match with errors.Is.
var (
	ErrInvalidWeightSet = errors.New("invalid weight set")
	ErrNoCurrent        = errors.New("no current weight set")
)

func errInvalid(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidWeightSet, reason)
}
