package signal

import "errors"

// Sentinel error kinds for this package.
var (
	// ErrUnknownSignalType marks a raw signal whose type is not in the
	// registry. Recoverable: the signal is dropped, the batch proceeds.
	ErrUnknownSignalType = errors.New("unknown signal type")
)
