// Package repository defines the persistence boundary for pipeline state.
//
// The core owns the shapes; this package owns how they survive between
// runs. The default implementation is SQLite.
package repository

import (
	"context"

	"github.com/okian/cadence/internal/domain/model"
	"github.com/okian/cadence/internal/domain/weights"
)

// Store provides durable access to profiles, weight sets, plans, and
// campaign results.
type Store interface {
	// SaveProfile upserts the account's live profile.
	SaveProfile(ctx context.Context, p model.AccountProfile) error
	// Profile returns ErrNotFound for unknown accounts.
	Profile(ctx context.Context, accountID string) (model.AccountProfile, error)

	// SaveWeightSet stores an immutable weight set version.
	SaveWeightSet(ctx context.Context, ws weights.WeightSet) error
	// WeightSet returns ErrNotFound for unknown versions.
	WeightSet(ctx context.Context, version string) (weights.WeightSet, error)

	// SavePlan upserts the account's plan for a campaign.
	SavePlan(ctx context.Context, plan model.TouchpointPlan) error
	// Plan returns ErrNotFound when no plan exists.
	Plan(ctx context.Context, campaignID, accountID string) (model.TouchpointPlan, error)

	// SaveResult upserts a campaign result snapshot.
	SaveResult(ctx context.Context, result *model.CampaignResult) error
	// Result returns ErrNotFound for unknown campaigns.
	Result(ctx context.Context, campaignID string) (*model.CampaignResult, error)

	// Close releases the underlying storage.
	Close() error
}
