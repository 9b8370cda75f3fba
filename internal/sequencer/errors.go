package sequencer

import "errors"

// Sentinel error kinds for this package.
var (
	// ErrAlreadyActive rejects a duplicate plan start while an account's
	// sequence is still in a non-terminal state.
	ErrAlreadyActive = errors.New("sequence already active")

	// ErrEmptyPlan rejects a plan with no entries.
	ErrEmptyPlan = errors.New("touchpoint plan has no entries")

	// ErrUnknownAccount marks a dispatch or suppression for an account
	// with no sequencer instance.
	ErrUnknownAccount = errors.New("no sequence for account")
)
