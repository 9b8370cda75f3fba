package policy

import (
	"errors"
	"fmt"
)

// ErrInvalidParams marks a prioritization configuration rejected at load.
var ErrInvalidParams = errors.New("invalid prioritization params")

func errInvalid(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidParams, reason)
}
