// Package config defines service configuration structures and loading.
//
// Conventions follow the rest of the codebase: defaults come from New,
// Load layers an optional YAML file and environment variables on top, and
// everything is validated before the service sees it.
package config

import (
	"runtime"

	"github.com/okian/cadence/internal/domain/model"
	"github.com/okian/cadence/internal/domain/policy"
)

// ChannelBaseline mirrors the externally supplied per-channel performance
// expectations.
type ChannelBaseline struct {
	EngagementRate float64 `koanf:"engagement_rate"`
	ConversionRate float64 `koanf:"conversion_rate"`
}

// IndustryTemplate is the externally supplied industry playbook.
type IndustryTemplate struct {
	Industry           string                     `koanf:"industry"`
	PainPoints         []string                   `koanf:"pain_points"`
	Personas           []string                   `koanf:"personas"`
	DecisionCycleDays  int                        `koanf:"decision_cycle_days"`
	CommunicationStyle string                     `koanf:"communication_style"`
	ChannelBaselines   map[string]ChannelBaseline `koanf:"channel_baselines"`
}

// Calibration holds the feedback loop tuning.
type Calibration struct {
	MaxDelta     float64 `koanf:"max_delta"`
	LearningRate float64 `koanf:"learning_rate"`
	MinSample    int     `koanf:"min_sample"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// MetricsAddr configures the Prometheus exporter listen address.
	MetricsAddr string `koanf:"metrics_addr"`

	// DBPath is the SQLite database location.
	DBPath string `koanf:"db_path"`

	// WorkerCount bounds concurrent account processing.
	WorkerCount int `koanf:"worker_count"`

	// RetentionDays bounds the signal aggregation window.
	RetentionDays int `koanf:"retention_days"`

	// DecayFactor is the per-day exponential signal decay rate.
	DecayFactor float64 `koanf:"decay_factor"`

	// SquashGain steepens the intent squash.
	SquashGain float64 `koanf:"squash_gain"`

	// SignalWeights maps signal type names to base intent weights.
	SignalWeights map[string]float64 `koanf:"signal_weights"`

	// FinancialWeights maps financial dimensions to weights summing to 1.
	FinancialWeights map[string]float64 `koanf:"financial_weights"`

	// MinSignals and MinSources drive scoring confidence.
	MinSignals int `koanf:"min_signals"`
	MinSources int `koanf:"min_sources"`

	// Policy holds the prioritization blend and tier thresholds.
	Policy policy.Params `koanf:"policy"`

	// Channels is the touchpoint channel rotation, in order.
	Channels []string `koanf:"channels"`

	// DealSizeCeiling is the deal size normalized to 1.0.
	DealSizeCeiling float64 `koanf:"deal_size_ceiling"`

	// CampaignDeadlineHours bounds how long a campaign waits for
	// sequences to finish.
	CampaignDeadlineHours int `koanf:"campaign_deadline_hours"`

	// ResponseWindowHours bounds how long a sequence waits for a
	// qualifying response after its last touchpoint.
	ResponseWindowHours int `koanf:"response_window_hours"`

	// Calibration tunes the feedback loop.
	Calibration Calibration `koanf:"calibration"`

	// Industry is the externally supplied industry template.
	Industry IndustryTemplate `koanf:"industry_template"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:      "info",
		MetricsAddr:   ":9090",
		DBPath:        "cadence.db",
		WorkerCount:   runtime.NumCPU() * 2,
		RetentionDays: 180,
		DecayFactor:   0.05,
		SquashGain:    1.0,
		SignalWeights: map[string]float64{
			string(model.SignalPricingPageVisit):   0.9,
			string(model.SignalRateSheetDownload):  1.0,
			string(model.SignalCompetitorResearch): 0.8,
			string(model.SignalContentDownload):    0.5,
			string(model.SignalWebsiteVisit):       0.3,
			string(model.SignalFundingEvent):       0.4,
			string(model.SignalExecChange):         0.2,
			string(model.SignalExpansionNews):      0.4,
		},
		FinancialWeights: map[string]float64{
			model.DimRevenueGrowth:  0.25,
			model.DimProfitability:  0.25,
			model.DimCashFlow:       0.20,
			model.DimDebtRatio:      0.15,
			model.DimPaymentHistory: 0.15,
		},
		MinSignals:            3,
		MinSources:            2,
		Policy:                policy.DefaultParams(),
		Channels:              []string{"email", "linkedin", "direct_mail"},
		DealSizeCeiling:       1_000_000,
		CampaignDeadlineHours: 720,
		ResponseWindowHours:   72,
		Calibration: Calibration{
			MaxDelta:     0.10,
			LearningRate: 0.50,
			MinSample:    5,
		},
		Industry: IndustryTemplate{
			Industry:           "manufacturing",
			PainPoints:         []string{"expansion_capital", "cash_flow_optimization"},
			Personas:           []string{"ceo", "cfo"},
			DecisionCycleDays:  120,
			CommunicationStyle: "consultative",
			ChannelBaselines: map[string]ChannelBaseline{
				"email":       {EngagementRate: 0.42, ConversionRate: 0.08},
				"linkedin":    {EngagementRate: 0.28, ConversionRate: 0.12},
				"direct_mail": {EngagementRate: 0.15, ConversionRate: 0.06},
			},
		},
	}
}
