package app_test

import (
	"context"
	"os"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/cadence/internal/adapters/repository"
	"github.com/okian/cadence/internal/app"
	"github.com/okian/cadence/internal/collab"
	"github.com/okian/cadence/internal/config"
	"github.com/okian/cadence/internal/domain/model"
	"github.com/okian/cadence/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		os.Exit(1)
	}
	os.Exit(m.Run())
}

func startService(t *testing.T) (*app.Service, *collab.StaticEnrichment, *collab.StaticSignalSource) {
	t.Helper()
	ctx := context.Background()

	store, err := repository.OpenSQLite(ctx, ":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}

	cfg := config.New()
	cfg.Calibration.MinSample = 1

	enrichment := collab.NewStaticEnrichment(nil)
	signals := collab.NewStaticSignalSource(nil)

	svc := app.New(cfg,
		app.WithStore(store),
		app.WithEnrichment(enrichment),
		app.WithSignalSource(signals),
	)
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("starting service: %v", err)
	}
	t.Cleanup(svc.Stop)
	return svc, enrichment, signals
}

func seedAccount(enrichment *collab.StaticEnrichment, signals *collab.StaticSignalSource, accountID string, now time.Time) {
	enrichment.Put(collab.AttributeRecord{
		AccountID: accountID,
		Financials: model.FinancialMetrics{
			model.DimRevenueGrowth:  0.8,
			model.DimProfitability:  0.7,
			model.DimCashFlow:       0.75,
			model.DimDebtRatio:      0.6,
			model.DimPaymentHistory: 0.9,
		},
		DealSize:      400_000,
		Vulnerability: 0.5,
	})
	signals.Append(accountID,
		model.Signal{ID: accountID + "-s1", AccountID: accountID, Source: "web", Type: model.SignalPricingPageVisit, Timestamp: now.Add(-24 * time.Hour)},
		model.Signal{ID: accountID + "-s2", AccountID: accountID, Source: "crm", Type: model.SignalRateSheetDownload, Timestamp: now.Add(-48 * time.Hour)},
		model.Signal{ID: accountID + "-s3", AccountID: accountID, Source: "web", Type: model.SignalWebsiteVisit, Timestamp: now.Add(-12 * time.Hour)},
	)
}

func TestServiceClosedLoop(t *testing.T) {
	Convey("Given a started service with one seeded account", t, func() {
		ctx := context.Background()
		svc, enrichment, signals := startService(t)
		seedAccount(enrichment, signals, "acct-1", time.Now().UTC())

		done := make(chan struct{})
		var result *model.CampaignResult
		var execErr error
		go func() {
			defer close(done)
			result, execErr = svc.Execute(ctx, []string{"acct-1"}, []string{"introduce_value"})
		}()

		// Wait for the first touchpoint, then answer it.
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			if p := svc.Progress(); p != nil && p.TouchpointsEmitted > 0 {
				break
			}
			time.Sleep(5 * time.Millisecond)
		}
		So(svc.Dispatch(ctx, model.EngagementEvent{
			AccountID: "acct-1",
			Channel:   "email",
			Kind:      model.EngagementReply,
		}), ShouldBeNil)

		select {
		case <-done:
		case <-time.After(10 * time.Second):
			t.Fatal("campaign did not finish")
		}

		Convey("The campaign converts the account", func() {
			So(execErr, ShouldBeNil)
			So(result.Finalized, ShouldBeTrue)
			So(result.Outcomes["acct-1"].Status, ShouldEqual, model.OutcomeResponded)
			So(result.Outcomes["acct-1"].Converted, ShouldBeTrue)
		})

		Convey("Calibration over the finished campaign yields a publishable candidate", func() {
			before, err := svc.CurrentWeights(ctx)
			So(err, ShouldBeNil)

			candidate, err := svc.Calibrate(ctx, []string{result.CampaignID})
			So(err, ShouldBeNil)
			So(candidate.ParentVersion, ShouldEqual, before.Version)

			Convey("Scoring keeps the old version until the candidate is published", func() {
				current, err := svc.CurrentWeights(ctx)
				So(err, ShouldBeNil)
				So(current.Version, ShouldEqual, before.Version)

				So(svc.PublishWeights(ctx, candidate), ShouldBeNil)

				current, err = svc.CurrentWeights(ctx)
				So(err, ShouldBeNil)
				So(current.Version, ShouldEqual, candidate.Version)
			})
		})
	})
}

func TestServiceLifecycle(t *testing.T) {
	Convey("Given an unstarted service", t, func() {
		svc := app.New(config.New())

		Convey("Execute is rejected", func() {
			_, err := svc.Execute(context.Background(), []string{"acct-1"}, nil)

			So(err, ShouldNotBeNil)
		})

		Convey("Progress is empty", func() {
			So(svc.Progress(), ShouldBeNil)
		})
	})
}
