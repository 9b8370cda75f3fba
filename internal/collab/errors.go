package collab

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for collaborator failures.
var (
	// ErrNotFound marks an account unknown to the enrichment provider.
	ErrNotFound = errors.New("account not found")

	// ErrGenerationFailed marks a content generation failure. Recoverable:
	// callers fall back to the template generator.
	ErrGenerationFailed = errors.New("content generation failed")

	// ErrSendRejected marks a channel adapter refusal. Recoverable: the
	// entry is marked failed and sequencing continues.
	ErrSendRejected = errors.New("send rejected")

	// ErrSuppressed marks a compliance suppression. Not a failure: it
	// forces the sequence into its terminal suppressed state.
	ErrSuppressed = errors.New("account suppressed")
)

// Rejected wraps ErrSendRejected with the channel's reason.
func Rejected(reason string) error {
	return fmt.Errorf("%w: %s", ErrSendRejected, reason)
}

// Suppressed wraps ErrSuppressed with the gate's reason.
func Suppressed(reason string) error {
	return fmt.Errorf("%w: %s", ErrSuppressed, reason)
}
