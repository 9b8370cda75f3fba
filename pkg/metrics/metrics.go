// Package metrics provides Prometheus metrics for the cadence pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "cadence"

// Pipeline metrics.
var (
	signalsNormalized = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signals_normalized_total",
		Help:      "Signals successfully normalized into scored signals.",
	})
	signalsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signals_dropped_total",
		Help:      "Signals dropped during normalization, by reason.",
	}, []string{"reason"})
	scoringPasses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scoring_passes_total",
		Help:      "Completed account scoring passes.",
	})
	scoringLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "scoring_latency_ms",
		Help:      "Scoring pass latency in milliseconds.",
		Buckets:   []float64{0.1, 0.5, 1, 5, 10, 50, 100, 500},
	})
	tierAssignments = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tier_assignments_total",
		Help:      "Action tier assignments, by tier.",
	}, []string{"tier"})
)

// Sequencer metrics.
var (
	touchpointsEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "touchpoints_emitted_total",
		Help:      "Touchpoint intents emitted to the channel adapter.",
	})
	touchpointsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "touchpoints_failed_total",
		Help:      "Touchpoint entries rejected by the channel adapter.",
	})
	touchpointsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "touchpoints_skipped_total",
		Help:      "Touchpoint entries skipped due to suppression or response.",
	})
	engagementEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "engagement_events_total",
		Help:      "Engagement events dispatched to sequencers, by kind.",
	}, []string{"kind"})
	activeSequencers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_sequencers",
		Help:      "Sequencer state machines currently in a non-terminal state.",
	})
)

// Orchestrator and calibration metrics.
var (
	accountsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "accounts_processed_total",
		Help:      "Accounts driven through the full pipeline.",
	})
	accountsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "accounts_failed_total",
		Help:      "Accounts that failed pipeline processing, by stage.",
	}, []string{"stage"})
	campaignWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "campaign_workers",
		Help:      "Configured campaign worker limit.",
	})
	calibrationRuns = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "calibration_runs_total",
		Help:      "Completed calibration runs producing a candidate weight set.",
	})
	weightSetPublishes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "weight_set_publishes_total",
		Help:      "Weight set versions published as current.",
	})
)

// RecordSignalNormalized increments the normalized-signal counter.
func RecordSignalNormalized() { signalsNormalized.Inc() }

// RecordSignalDropped increments the dropped-signal counter for a reason.
func RecordSignalDropped(reason string) { signalsDropped.WithLabelValues(reason).Inc() }

// RecordScoringPass increments the scoring pass counter.
func RecordScoringPass() { scoringPasses.Inc() }

// RecordScoringLatency records a scoring pass latency in milliseconds.
func RecordScoringLatency(ms float64) { scoringLatency.Observe(ms) }

// RecordTierAssignment increments the assignment counter for a tier.
func RecordTierAssignment(tier string) { tierAssignments.WithLabelValues(tier).Inc() }

// RecordTouchpointEmitted increments the emitted-touchpoint counter.
func RecordTouchpointEmitted() { touchpointsEmitted.Inc() }

// RecordTouchpointFailed increments the failed-touchpoint counter.
func RecordTouchpointFailed() { touchpointsFailed.Inc() }

// RecordTouchpointSkipped increments the skipped-touchpoint counter.
func RecordTouchpointSkipped() { touchpointsSkipped.Inc() }

// RecordEngagementEvent increments the engagement counter for an event kind.
func RecordEngagementEvent(kind string) { engagementEvents.WithLabelValues(kind).Inc() }

// UpdateActiveSequencers sets the active sequencer gauge.
func UpdateActiveSequencers(n int) { activeSequencers.Set(float64(n)) }

// RecordAccountProcessed increments the processed-account counter.
func RecordAccountProcessed() { accountsProcessed.Inc() }

// RecordAccountFailed increments the failed-account counter for a stage.
func RecordAccountFailed(stage string) { accountsFailed.WithLabelValues(stage).Inc() }

// UpdateCampaignWorkers sets the campaign worker gauge.
func UpdateCampaignWorkers(n int) { campaignWorkers.Set(float64(n)) }

// RecordCalibrationRun increments the calibration run counter.
func RecordCalibrationRun() { calibrationRuns.Inc() }

// RecordWeightSetPublish increments the weight set publish counter.
func RecordWeightSetPublish() { weightSetPublishes.Inc() }
