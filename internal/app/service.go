// Package app provides the core service that wires the pipeline together:
// configuration, weight registry, orchestrator, calibrator, and storage.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/cadence/internal/adapters/repository"
	"github.com/okian/cadence/internal/collab"
	"github.com/okian/cadence/internal/config"
	"github.com/okian/cadence/internal/domain/calibrate"
	"github.com/okian/cadence/internal/domain/model"
	"github.com/okian/cadence/internal/domain/scoring"
	"github.com/okian/cadence/internal/domain/signal"
	"github.com/okian/cadence/internal/domain/weights"
	"github.com/okian/cadence/internal/orchestrator"
	"github.com/okian/cadence/internal/sequencer"
	"github.com/okian/cadence/pkg/logger"
)

// Service implements the campaign pipeline lifecycle.
type Service struct {
	mu sync.RWMutex

	cfg *config.Config

	// Collaborators, swappable at construction.
	enrichment collab.Enrichment
	signals    collab.SignalSource
	generator  collab.ContentGenerator
	adapter    collab.ChannelAdapter
	gate       collab.ComplianceGate

	// Core components, built at Start.
	store        repository.Store
	weightsReg   *weights.Registry
	calibrator   *calibrate.Calibrator
	orchestrator *orchestrator.Orchestrator

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithEnrichment sets the enrichment provider.
func WithEnrichment(e collab.Enrichment) Option {
	return func(s *Service) { s.enrichment = e }
}

// WithSignalSource sets the signal log source.
func WithSignalSource(src collab.SignalSource) Option {
	return func(s *Service) { s.signals = src }
}

// WithContentGenerator sets the primary content generation capability.
// The template fallback still applies on generation failure.
func WithContentGenerator(g collab.ContentGenerator) Option {
	return func(s *Service) { s.generator = g }
}

// WithChannelAdapter sets the delivery channel adapter.
func WithChannelAdapter(a collab.ChannelAdapter) Option {
	return func(s *Service) { s.adapter = a }
}

// WithComplianceGate sets the compliance gate.
func WithComplianceGate(g collab.ComplianceGate) Option {
	return func(s *Service) { s.gate = g }
}

// WithStore overrides the default SQLite store. Used by tests.
func WithStore(st repository.Store) Option {
	return func(s *Service) { s.store = st }
}

// New constructs a Service from validated configuration and options.
func New(cfg *config.Config, opts ...Option) *Service {
	s := &Service{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds and wires the pipeline components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("app")
	}

	s.logger.Info(ctx, "starting cadence service...")

	tmpl := industryTemplate(s.cfg)
	fallback := collab.NewTemplateGenerator(tmpl)
	if s.generator == nil {
		s.generator = fallback
	} else {
		s.generator = collab.NewFallbackGenerator(s.generator, fallback)
	}
	if s.gate == nil {
		s.gate = collab.NewListGate()
	}
	if s.adapter == nil {
		s.adapter = collab.NewRecordingAdapter()
	}
	if s.enrichment == nil {
		s.enrichment = collab.NewStaticEnrichment(nil)
	}
	if s.signals == nil {
		s.signals = collab.NewStaticSignalSource(nil)
	}

	initial, err := s.cfg.WeightSet()
	if err != nil {
		return fmt.Errorf("building initial weight set: %w", err)
	}
	s.weightsReg, err = weights.NewRegistry(initial)
	if err != nil {
		return fmt.Errorf("seeding weight registry: %w", err)
	}

	if s.store == nil {
		s.store, err = repository.OpenSQLite(ctx, s.cfg.DBPath)
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
	}

	s.calibrator = calibrate.NewCalibrator(
		calibrate.WithMaxDelta(s.cfg.Calibration.MaxDelta),
		calibrate.WithLearningRate(s.cfg.Calibration.LearningRate),
		calibrate.WithMinSample(s.cfg.Calibration.MinSample),
	)

	s.orchestrator = orchestrator.New(orchestrator.Deps{
		Aggregator: signal.NewAggregator(signal.WithRetentionHorizon(s.cfg.RetentionDays)),
		Engine: scoring.NewEngine(
			scoring.WithMinSignals(s.cfg.MinSignals),
			scoring.WithMinSources(s.cfg.MinSources),
		),
		Policy:     s.cfg.Policy,
		Weights:    s.weightsReg,
		Enrichment: s.enrichment,
		Signals:    s.signals,
		Generator:  s.generator,
		Adapter:    s.adapter,
		Gate:       s.gate,
		Store:      s.store,
	},
		orchestrator.WithWorkerLimit(s.cfg.WorkerCount),
		orchestrator.WithChannels(s.cfg.Channels),
		orchestrator.WithDealSizeCeiling(s.cfg.DealSizeCeiling),
		orchestrator.WithCampaignDeadline(time.Duration(s.cfg.CampaignDeadlineHours)*time.Hour),
		orchestrator.WithSequencerOptions(
			sequencer.WithResponseWindow(time.Duration(s.cfg.ResponseWindowHours)*time.Hour),
		),
		orchestrator.WithLogger(s.logger.Named("orchestrator")),
	)

	s.started = true
	s.logger.Info(ctx, "cadence service started",
		logger.Int("workers", s.cfg.WorkerCount),
		logger.String("weightSetVersion", initial.Version),
	)
	return nil
}

// Stop releases the service's resources.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	if s.store != nil {
		_ = s.store.Close()
	}
	s.started = false
	s.logger.Info(context.Background(), "cadence service stopped")
}

// Execute runs one campaign over the given accounts.
func (s *Service) Execute(ctx context.Context, accountIDs, objectives []string) (*model.CampaignResult, error) {
	s.mu.RLock()
	orch := s.orchestrator
	started := s.started
	s.mu.RUnlock()
	if !started {
		return nil, fmt.Errorf("service not started")
	}
	return orch.Execute(ctx, accountIDs, objectives)
}

// Dispatch routes an engagement event to its owning sequencer.
func (s *Service) Dispatch(ctx context.Context, ev model.EngagementEvent) error {
	s.mu.RLock()
	orch := s.orchestrator
	s.mu.RUnlock()
	return orch.Dispatch(ctx, ev)
}

// Suppress forwards a compliance opt-out for an account.
func (s *Service) Suppress(ctx context.Context, accountID, reason string) error {
	s.mu.RLock()
	orch := s.orchestrator
	s.mu.RUnlock()
	return orch.Suppress(ctx, accountID, reason)
}

// Progress returns a snapshot of the in-flight campaign result.
func (s *Service) Progress() *model.CampaignResult {
	s.mu.RLock()
	orch := s.orchestrator
	s.mu.RUnlock()
	if orch == nil {
		return nil
	}
	return orch.Progress()
}

// Calibrate derives a candidate weight set from finalized campaigns. The
// candidate is returned for review; it only affects live scoring after
// PublishWeights.
func (s *Service) Calibrate(ctx context.Context, campaignIDs []string) (weights.WeightSet, error) {
	s.mu.RLock()
	store := s.store
	reg := s.weightsReg
	cal := s.calibrator
	s.mu.RUnlock()

	campaigns := make([]*model.CampaignResult, 0, len(campaignIDs))
	for _, id := range campaignIDs {
		result, err := store.Result(ctx, id)
		if err != nil {
			return weights.WeightSet{}, fmt.Errorf("loading campaign %s: %w", id, err)
		}
		campaigns = append(campaigns, result)
	}

	current, err := reg.Current(ctx)
	if err != nil {
		return weights.WeightSet{}, err
	}
	return cal.Calibrate(ctx, campaigns, current)
}

// PublishWeights makes a calibrated candidate the current weight set.
// Validation failure keeps the current set live.
func (s *Service) PublishWeights(ctx context.Context, candidate weights.WeightSet) error {
	s.mu.RLock()
	reg := s.weightsReg
	store := s.store
	s.mu.RUnlock()

	if err := reg.Publish(ctx, candidate); err != nil {
		return err
	}
	if err := store.SaveWeightSet(ctx, candidate); err != nil {
		return fmt.Errorf("persisting weight set: %w", err)
	}
	s.logger.Info(ctx, "weight set published",
		logger.String("version", candidate.Version),
		logger.String("parent", candidate.ParentVersion),
	)
	return nil
}

// CurrentWeights exposes the live weight set version.
func (s *Service) CurrentWeights(ctx context.Context) (weights.WeightSet, error) {
	s.mu.RLock()
	reg := s.weightsReg
	s.mu.RUnlock()
	return reg.Current(ctx)
}

// industryTemplate maps config to the collaborator-facing template type.
func industryTemplate(cfg *config.Config) collab.IndustryTemplate {
	baselines := make(map[string]collab.ChannelBaseline, len(cfg.Industry.ChannelBaselines))
	for ch, b := range cfg.Industry.ChannelBaselines {
		baselines[ch] = collab.ChannelBaseline{
			EngagementRate: b.EngagementRate,
			ConversionRate: b.ConversionRate,
		}
	}
	return collab.IndustryTemplate{
		Industry:           cfg.Industry.Industry,
		PainPoints:         cfg.Industry.PainPoints,
		Personas:           cfg.Industry.Personas,
		DecisionCycleDays:  cfg.Industry.DecisionCycleDays,
		CommunicationStyle: cfg.Industry.CommunicationStyle,
		ChannelBaselines:   baselines,
	}
}
