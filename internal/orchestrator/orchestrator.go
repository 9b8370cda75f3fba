// Package orchestrator drives accounts through the full pipeline:
// enrichment, signal normalization, scoring, prioritization, and touchpoint
// sequencing, aggregating a campaign result as it goes.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/cadence/internal/adapters/repository"
	"github.com/okian/cadence/internal/collab"
	"github.com/okian/cadence/internal/domain/model"
	"github.com/okian/cadence/internal/domain/policy"
	"github.com/okian/cadence/internal/domain/scoring"
	"github.com/okian/cadence/internal/domain/signal"
	"github.com/okian/cadence/internal/domain/weights"
	"github.com/okian/cadence/internal/sequencer"
	"github.com/okian/cadence/pkg/logger"
	"github.com/okian/cadence/pkg/metrics"
)

// Default orchestration configuration constants.
const (
	defaultWorkerLimit      = 8
	defaultDealSizeCeiling  = 1_000_000
	defaultCampaignDeadline = 30 * 24 * time.Hour
)

// Pipeline stages recorded on per-account failures.
const (
	stageEnrich    = "enrich"
	stageSignals   = "signals"
	stageNormalize = "normalize"
	stageScore     = "score"
	stageSequence  = "sequence"
	stagePersist   = "persist"
)

// Deps are the collaborators and components the orchestrator drives.
type Deps struct {
	Aggregator *signal.Aggregator
	Engine     *scoring.Engine
	Policy     policy.Params
	Weights    *weights.Registry

	Enrichment collab.Enrichment
	Signals    collab.SignalSource
	Generator  collab.ContentGenerator
	Adapter    collab.ChannelAdapter
	Gate       collab.ComplianceGate

	Store repository.Store
}

// Option applies a configuration option to the Orchestrator.
type Option func(*Orchestrator)

// WithWorkerLimit bounds how many accounts are processed concurrently.
func WithWorkerLimit(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workerLimit = n
		}
	}
}

// WithChannels sets the channel rotation for touchpoint plans.
func WithChannels(channels []string) Option {
	return func(o *Orchestrator) {
		if len(channels) > 0 {
			o.channels = channels
		}
	}
}

// WithDealSizeCeiling sets the deal size mapped to 1.0 in prioritization.
func WithDealSizeCeiling(v float64) Option {
	return func(o *Orchestrator) {
		if v > 0 {
			o.dealSizeCeiling = v
		}
	}
}

// WithCampaignDeadline bounds how long a campaign waits for sequencers to
// reach terminal states before suppressing the remainder and finalizing.
func WithCampaignDeadline(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.deadline = d
		}
	}
}

// WithSequencerOptions forwards options to every machine the campaign
// starts. Used by tests to shrink timing windows.
func WithSequencerOptions(opts ...sequencer.Option) Option {
	return func(o *Orchestrator) {
		o.seqOpts = opts
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// Orchestrator executes campaigns. Accounts are independent units of work
// processed in parallel under a bounded worker limit.
type Orchestrator struct {
	deps Deps

	workerLimit     int
	channels        []string
	dealSizeCeiling float64
	deadline        time.Duration
	seqOpts         []sequencer.Option

	mu  sync.RWMutex
	seq *sequencer.Registry
	acc *accumulator

	logger logger.Logger
}

// New creates an orchestrator with configuration options.
func New(deps Deps, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		deps:            deps,
		workerLimit:     defaultWorkerLimit,
		channels:        []string{"email", "linkedin", "direct_mail"},
		dealSizeCeiling: defaultDealSizeCeiling,
		deadline:        defaultCampaignDeadline,
		logger:          logger.Get().Named("orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	metrics.UpdateCampaignWorkers(o.workerLimit)
	return o
}

// Execute runs one campaign over the given accounts. A failure on one
// account never aborts the rest: it is recorded as a failed outcome and
// excluded from aggregate metrics. The returned result is finalized when
// every sequence reaches a terminal state or the campaign deadline elapses.
func (o *Orchestrator) Execute(ctx context.Context, accountIDs, objectives []string) (*model.CampaignResult, error) {
	ws, err := o.deps.Weights.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving weight set: %w", err)
	}
	if err := o.deps.Store.SaveWeightSet(ctx, ws); err != nil {
		return nil, fmt.Errorf("persisting weight set: %w", err)
	}

	campaignID := uuid.NewString()
	acc := newAccumulator(campaignID, time.Now().UTC())
	seq := sequencer.NewRegistry(sequencer.Deps{
		Gate:      o.deps.Gate,
		Adapter:   o.deps.Adapter,
		Generator: o.deps.Generator,
		Sink:      acc,
		Logger:    o.logger.Named("sequencer"),
	}, o.seqOpts...)

	o.mu.Lock()
	o.seq = seq
	o.acc = acc
	o.mu.Unlock()

	o.logger.Info(ctx, "campaign started",
		logger.String("campaignID", campaignID),
		logger.Int("accounts", len(accountIDs)),
		logger.String("weightSetVersion", ws.Version),
	)

	g := &errgroup.Group{}
	g.SetLimit(o.workerLimit)
	for _, accountID := range accountIDs {
		accountID := accountID
		g.Go(func() error {
			o.processAccount(ctx, campaignID, accountID, objectives, ws, seq, acc)
			return nil
		})
	}
	_ = g.Wait()

	// Wait for sequences to finish, bounded by the campaign deadline.
	waitCtx, cancel := context.WithTimeout(ctx, o.deadline)
	defer cancel()
	if !seq.Wait(waitCtx) {
		o.logger.Warn(ctx, "campaign deadline elapsed; suppressing remaining sequences",
			logger.String("campaignID", campaignID),
		)
		seq.SuppressAll(ctx, "campaign_deadline")
		drainCtx, drainCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer drainCancel()
		seq.Wait(drainCtx)
	}

	acc.finalize(time.Now().UTC())
	result := acc.Progress()
	if err := o.deps.Store.SaveResult(ctx, result); err != nil {
		o.logger.Error(ctx, "persisting campaign result failed",
			logger.String("campaignID", campaignID),
			logger.Error(err),
		)
	}

	o.logger.Info(ctx, "campaign finished",
		logger.String("campaignID", campaignID),
		logger.Int("processed", result.AccountsProcessed),
		logger.Int("failed", result.AccountsFailed),
		logger.Float64("pipelineValue", result.PipelineValue),
	)
	return result, nil
}

// processAccount runs one account through the pipeline. Errors are
// recorded on the accumulator, never returned: account failures are
// isolated by design.
func (o *Orchestrator) processAccount(ctx context.Context, campaignID, accountID string, objectives []string, ws weights.WeightSet, seq *sequencer.Registry, acc *accumulator) {
	now := time.Now().UTC()

	fail := func(stage string, err error) {
		metrics.RecordAccountFailed(stage)
		acc.recordFailure(accountID, stage, err.Error(), now)
		o.logger.Warn(ctx, "account failed",
			logger.String("accountID", accountID),
			logger.String("stage", stage),
			logger.Error(err),
		)
	}

	attrs, err := o.deps.Enrichment.Fetch(ctx, accountID)
	if err != nil {
		fail(stageEnrich, err)
		return
	}

	raws, err := o.deps.Signals.Signals(ctx, accountID)
	if err != nil {
		fail(stageSignals, err)
		return
	}

	scored, diags := o.deps.Aggregator.Normalize(ctx, raws, ws, now)
	acc.addDiagnostics(diags)
	if len(raws) > 0 && len(scored) == 0 {
		fail(stageNormalize, fmt.Errorf("all %d signals dropped", len(raws)))
		return
	}

	sa, err := o.deps.Engine.Score(ctx, accountID, scored, attrs.Financials, ws, now)
	if err != nil {
		fail(stageScore, err)
		return
	}

	profile := model.AccountProfile{
		AccountID:        accountID,
		Attributes:       attrs.Attributes,
		FinancialHealth:  sa.FinancialHealth,
		Intent:           sa.Intent,
		Confidence:       sa.Confidence,
		LowConfidence:    sa.LowConfidence,
		WeightSetVersion: sa.WeightSetVersion,
		LastScoredAt:     sa.ScoredAt,
	}
	if err := o.deps.Store.SaveProfile(ctx, profile); err != nil {
		fail(stagePersist, err)
		return
	}

	dealNorm := policy.NormalizeDealSize(attrs.DealSize, o.dealSizeCeiling)
	tier := policy.Prioritize(sa, dealNorm, attrs.Vulnerability, o.deps.Policy)

	plan := buildPlan(campaignID, accountID, tier, o.channels, objectives, nil, nil)
	if err := o.deps.Store.SavePlan(ctx, plan); err != nil {
		fail(stagePersist, err)
		return
	}

	if _, err := seq.Start(ctx, plan, profile); err != nil {
		fail(stageSequence, err)
		return
	}

	signalTypes := make([]model.SignalType, 0, len(scored))
	seen := make(map[model.SignalType]struct{}, len(scored))
	for _, s := range scored {
		if _, ok := seen[s.Signal.Type]; ok {
			continue
		}
		seen[s.Signal.Type] = struct{}{}
		signalTypes = append(signalTypes, s.Signal.Type)
	}

	likelihood := engagementLikelihood(sa.FinancialHealth, sa.Intent, sa.Confidence)
	acc.recordOutcome(model.AccountOutcome{
		AccountID:     accountID,
		Tier:          tier,
		SignalTypes:   signalTypes,
		PipelineValue: attrs.DealSize * likelihood * sa.Intent,
	})
	metrics.RecordAccountProcessed()
}

// Dispatch routes an engagement event to the in-flight campaign's
// sequencer registry, preserving per-account FIFO order.
func (o *Orchestrator) Dispatch(ctx context.Context, ev model.EngagementEvent) error {
	o.mu.RLock()
	seq := o.seq
	o.mu.RUnlock()
	if seq == nil {
		return sequencer.ErrUnknownAccount
	}
	return seq.Dispatch(ctx, ev)
}

// Suppress forwards a compliance opt-out to the in-flight campaign.
func (o *Orchestrator) Suppress(ctx context.Context, accountID, reason string) error {
	o.mu.RLock()
	seq := o.seq
	o.mu.RUnlock()
	if seq == nil {
		return sequencer.ErrUnknownAccount
	}
	return seq.Suppress(ctx, accountID, reason)
}

// Progress returns a snapshot of the in-flight (or last) campaign result.
func (o *Orchestrator) Progress() *model.CampaignResult {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.acc == nil {
		return nil
	}
	return o.acc.Progress()
}
