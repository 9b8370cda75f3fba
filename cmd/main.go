package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/cadence/internal/app"
	"github.com/okian/cadence/internal/collab"
	"github.com/okian/cadence/internal/config"
	"github.com/okian/cadence/internal/domain/model"
	"github.com/okian/cadence/pkg/logger"
)

// HTTP timeout constants for the metrics listener.
const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Demo collaborators: a real deployment swaps these for live
	// enrichment, signal, and channel integrations.
	enrichment, signals, accounts := seedDemoAccounts(time.Now().UTC())
	adapter := collab.NewRecordingAdapter()
	gate := collab.NewListGate()

	svc := app.New(cfg,
		app.WithLogger(log),
		app.WithEnrichment(enrichment),
		app.WithSignalSource(signals),
		app.WithChannelAdapter(adapter),
		app.WithComplianceGate(gate),
	)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	// Prometheus exporter.
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	go func() {
		log.Info(ctx, "metrics listener started", logger.String("addr", cfg.MetricsAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "metrics listener failed", logger.Error(err))
		}
	}()

	type campaignOutcome struct {
		result *model.CampaignResult
		err    error
	}
	done := make(chan campaignOutcome, 1)
	go func() {
		result, err := svc.Execute(ctx, accounts, []string{"introduce_value", "share_case_study", "book_meeting"})
		done <- campaignOutcome{result: result, err: err}
	}()

	// Simulate the external channel reporting engagement back, so the
	// demo campaign reaches terminal states instead of waiting out its
	// touchpoint schedule.
	go simulateEngagement(ctx, svc, accounts)

	select {
	case out := <-done:
		if out.err != nil {
			log.Error(ctx, "campaign failed", logger.Error(out.err))
		} else {
			printResult(out.result)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "metrics listener shutdown failed", logger.Error(err))
	}
}

// simulateEngagement stands in for asynchronous channel callbacks: one
// account replies, one opts out, one is suppressed by compliance.
func simulateEngagement(ctx context.Context, svc *app.Service, accounts []string) {
	select {
	case <-time.After(2 * time.Second):
	case <-ctx.Done():
		return
	}

	now := time.Now().UTC()
	_ = svc.Dispatch(ctx, model.EngagementEvent{
		AccountID: accounts[0],
		Channel:   "email",
		Kind:      model.EngagementReply,
		Timestamp: now,
	})
	_ = svc.Dispatch(ctx, model.EngagementEvent{
		AccountID: accounts[1],
		Channel:   "email",
		Kind:      model.EngagementOptOut,
		Timestamp: now,
	})
	_ = svc.Suppress(ctx, accounts[2], "demo_compliance_optout")
}

// seedDemoAccounts builds three demo accounts with enrichment records and
// recent behavioral signals.
func seedDemoAccounts(now time.Time) (*collab.StaticEnrichment, *collab.StaticSignalSource, []string) {
	accounts := []string{"techcorp_manufacturing", "innovative_engineering", "precision_systems_ltd"}

	enrichment := collab.NewStaticEnrichment(map[string]collab.AttributeRecord{
		accounts[0]: {
			AccountID:  accounts[0],
			Attributes: map[string]string{"industry": "manufacturing", "employees": "150"},
			Financials: model.FinancialMetrics{
				model.DimRevenueGrowth:  0.85,
				model.DimProfitability:  0.75,
				model.DimCashFlow:       0.80,
				model.DimDebtRatio:      0.70,
				model.DimPaymentHistory: 0.90,
			},
			DealSize:      500_000,
			Vulnerability: 0.5,
		},
		accounts[1]: {
			AccountID:  accounts[1],
			Attributes: map[string]string{"industry": "engineering", "employees": "80"},
			Financials: model.FinancialMetrics{
				model.DimRevenueGrowth:  0.60,
				model.DimProfitability:  0.55,
				model.DimCashFlow:       0.65,
				model.DimDebtRatio:      0.60,
				model.DimPaymentHistory: 0.70,
			},
			DealSize:      200_000,
			Vulnerability: 0.4,
		},
		accounts[2]: {
			AccountID:  accounts[2],
			Attributes: map[string]string{"industry": "manufacturing", "employees": "40"},
			Financials: model.FinancialMetrics{
				model.DimRevenueGrowth:  0.35,
				model.DimProfitability:  0.30,
				model.DimCashFlow:       0.40,
				model.DimDebtRatio:      0.45,
				model.DimPaymentHistory: 0.50,
			},
			DealSize:      80_000,
			Vulnerability: 0.3,
		},
	})

	signals := collab.NewStaticSignalSource(map[string][]model.Signal{
		accounts[0]: {
			{ID: "sig-1", AccountID: accounts[0], Source: "web", Type: model.SignalPricingPageVisit, Timestamp: now.Add(-24 * time.Hour)},
			{ID: "sig-2", AccountID: accounts[0], Source: "web", Type: model.SignalRateSheetDownload, Timestamp: now.Add(-48 * time.Hour)},
			{ID: "sig-3", AccountID: accounts[0], Source: "news", Type: model.SignalExpansionNews, Timestamp: now.Add(-96 * time.Hour)},
		},
		accounts[1]: {
			{ID: "sig-4", AccountID: accounts[1], Source: "web", Type: model.SignalContentDownload, Timestamp: now.Add(-72 * time.Hour)},
			{ID: "sig-5", AccountID: accounts[1], Source: "crm", Type: model.SignalWebsiteVisit, Timestamp: now.Add(-120 * time.Hour)},
		},
		accounts[2]: {
			{ID: "sig-6", AccountID: accounts[2], Source: "web", Type: model.SignalWebsiteVisit, Timestamp: now.Add(-150 * 24 * time.Hour)},
		},
	})

	return enrichment, signals, accounts
}

func printResult(r *model.CampaignResult) {
	fmt.Printf("campaign %s\n", r.CampaignID)
	fmt.Printf("  accounts processed: %d (failed: %d)\n", r.AccountsProcessed, r.AccountsFailed)
	fmt.Printf("  touchpoints emitted: %d (failed: %d, skipped: %d)\n",
		r.TouchpointsEmitted, r.TouchpointsFailed, r.TouchpointsSkipped)
	fmt.Printf("  engagement events: %d (rate: %.2f)\n", r.EngagementEvents, r.EngagementRate())
	fmt.Printf("  pipeline value estimate: %.0f\n", r.PipelineValue)
	for id, o := range r.Outcomes {
		fmt.Printf("  %-28s tier=%-20s status=%s\n", id, o.Tier, o.Status)
	}
}
