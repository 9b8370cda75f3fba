package calibrate

import "errors"

// Sentinel error kinds for this package.
var (
	// ErrCampaignOpen marks an outcome sample containing a campaign that
	// has not reached a terminal state.
	ErrCampaignOpen = errors.New("campaign not finalized")

	// ErrSampleTooSmall marks an outcome sample below the configured
	// minimum.
	ErrSampleTooSmall = errors.New("outcome sample too small")
)
