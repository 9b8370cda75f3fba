package orchestrator_test

import (
	"context"
	"os"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/cadence/internal/adapters/repository"
	"github.com/okian/cadence/internal/collab"
	"github.com/okian/cadence/internal/domain/model"
	"github.com/okian/cadence/internal/domain/policy"
	"github.com/okian/cadence/internal/domain/scoring"
	"github.com/okian/cadence/internal/domain/signal"
	"github.com/okian/cadence/internal/domain/weights"
	"github.com/okian/cadence/internal/orchestrator"
	"github.com/okian/cadence/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		os.Exit(1)
	}
	os.Exit(m.Run())
}

func testWeights(t *testing.T) *weights.Registry {
	t.Helper()
	ws, err := weights.New(
		map[string]float64{
			model.DimRevenueGrowth:  0.25,
			model.DimProfitability:  0.25,
			model.DimCashFlow:       0.20,
			model.DimDebtRatio:      0.15,
			model.DimPaymentHistory: 0.15,
		},
		map[model.SignalType]float64{
			model.SignalPricingPageVisit:  0.9,
			model.SignalRateSheetDownload: 1.0,
			model.SignalWebsiteVisit:      0.3,
		},
		0.05, 1.0,
	)
	if err != nil {
		t.Fatalf("building weight set: %v", err)
	}
	reg, err := weights.NewRegistry(ws)
	if err != nil {
		t.Fatalf("seeding registry: %v", err)
	}
	return reg
}

type fixture struct {
	enrichment *collab.StaticEnrichment
	signals    *collab.StaticSignalSource
	adapter    *collab.RecordingAdapter
	gate       *collab.ListGate
	store      *repository.SQLiteStore
	orch       *orchestrator.Orchestrator
}

func newFixture(t *testing.T, opts ...orchestrator.Option) *fixture {
	t.Helper()
	store, err := repository.OpenSQLite(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	f := &fixture{
		enrichment: collab.NewStaticEnrichment(nil),
		signals:    collab.NewStaticSignalSource(nil),
		adapter:    collab.NewRecordingAdapter(),
		gate:       collab.NewListGate(),
		store:      store,
	}
	f.orch = orchestrator.New(orchestrator.Deps{
		Aggregator: signal.NewAggregator(),
		Engine:     scoring.NewEngine(),
		Policy:     policy.DefaultParams(),
		Weights:    testWeights(t),
		Enrichment: f.enrichment,
		Signals:    f.signals,
		Generator: collab.NewTemplateGenerator(collab.IndustryTemplate{
			Industry:   "manufacturing",
			PainPoints: []string{"cash_flow_optimization"},
		}),
		Adapter: f.adapter,
		Gate:    f.gate,
		Store:   store,
	}, opts...)
	return f
}

func (f *fixture) seedAccount(accountID string, dealSize float64, now time.Time) {
	f.enrichment.Put(collab.AttributeRecord{
		AccountID:  accountID,
		Attributes: map[string]string{"industry": "manufacturing"},
		Financials: model.FinancialMetrics{
			model.DimRevenueGrowth:  0.8,
			model.DimProfitability:  0.7,
			model.DimCashFlow:       0.75,
			model.DimDebtRatio:      0.6,
			model.DimPaymentHistory: 0.9,
		},
		DealSize:      dealSize,
		Vulnerability: 0.5,
		FetchedAt:     now,
	})
	f.signals.Append(accountID,
		model.Signal{ID: accountID + "-s1", AccountID: accountID, Source: "web", Type: model.SignalPricingPageVisit, Timestamp: now.Add(-24 * time.Hour)},
		model.Signal{ID: accountID + "-s2", AccountID: accountID, Source: "crm", Type: model.SignalRateSheetDownload, Timestamp: now.Add(-48 * time.Hour)},
		model.Signal{ID: accountID + "-s3", AccountID: accountID, Source: "web", Type: model.SignalWebsiteVisit, Timestamp: now.Add(-12 * time.Hour)},
	)
}

// waitForEmission polls campaign progress until at least one touchpoint is
// out the door.
func waitForEmission(t *testing.T, orch *orchestrator.Orchestrator) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if p := orch.Progress(); p != nil && p.TouchpointsEmitted > 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for a touchpoint emission")
}

func TestExecute(t *testing.T) {
	Convey("Given a campaign over a healthy and two broken accounts", t, func() {
		ctx := context.Background()
		now := time.Now().UTC()

		f := newFixture(t)
		f.seedAccount("acct-good", 500_000, now)
		// acct-missing has no enrichment record at all.
		// acct-noise has signals nobody recognizes.
		f.signals.Append("acct-noise",
			model.Signal{ID: "n1", AccountID: "acct-noise", Source: "web", Type: model.SignalType("carrier_pigeon"), Timestamp: now},
		)
		f.enrichment.Put(collab.AttributeRecord{AccountID: "acct-noise", Financials: model.FinancialMetrics{}})

		done := make(chan struct{})
		var result *model.CampaignResult
		var execErr error
		go func() {
			defer close(done)
			result, execErr = f.orch.Execute(ctx, []string{"acct-good", "acct-missing", "acct-noise"}, []string{"introduce_value"})
		}()

		waitForEmission(t, f.orch)

		Convey("When the healthy account books a meeting", func() {
			So(f.orch.Dispatch(ctx, model.EngagementEvent{
				AccountID: "acct-good",
				Channel:   "email",
				Kind:      model.EngagementMeetingBooked,
			}), ShouldBeNil)

			select {
			case <-done:
			case <-time.After(10 * time.Second):
				t.Fatal("campaign did not finish")
			}

			Convey("Then the campaign finalizes with the failures isolated", func() {
				So(execErr, ShouldBeNil)
				So(result.Finalized, ShouldBeTrue)
				So(result.AccountsProcessed, ShouldEqual, 1)
				So(result.AccountsFailed, ShouldEqual, 2)

				good := result.Outcomes["acct-good"]
				So(good.Status, ShouldEqual, model.OutcomeResponded)
				So(good.Converted, ShouldBeTrue)
				So(good.Tier, ShouldNotBeEmpty)
				So(good.PipelineValue, ShouldBeGreaterThan, 0)
				So(result.PipelineValue, ShouldEqual, good.PipelineValue)

				So(result.Outcomes["acct-missing"].Status, ShouldEqual, model.OutcomeFailed)
				So(result.Outcomes["acct-missing"].FailedStage, ShouldEqual, "enrich")
				So(result.Outcomes["acct-noise"].Status, ShouldEqual, model.OutcomeFailed)
				So(result.Outcomes["acct-noise"].FailedStage, ShouldEqual, "normalize")
			})

			Convey("And the scored profile, plan, and result are persisted", func() {
				<-done

				profile, err := f.store.Profile(ctx, "acct-good")
				So(err, ShouldBeNil)
				So(profile.FinancialHealth, ShouldBeGreaterThan, 0)
				So(profile.WeightSetVersion, ShouldNotBeEmpty)

				plan, err := f.store.Plan(ctx, result.CampaignID, "acct-good")
				So(err, ShouldBeNil)
				So(plan.Entries, ShouldNotBeEmpty)

				stored, err := f.store.Result(ctx, result.CampaignID)
				So(err, ShouldBeNil)
				So(stored.Finalized, ShouldBeTrue)

				_, err = f.store.Profile(ctx, "acct-missing")
				So(err, ShouldWrap, repository.ErrNotFound)
			})
		})
	})
}

func TestExecuteDeadline(t *testing.T) {
	Convey("Given a campaign whose deadline elapses before any response", t, func() {
		ctx := context.Background()
		f := newFixture(t, orchestrator.WithCampaignDeadline(100*time.Millisecond))
		f.seedAccount("acct-slow", 200_000, time.Now().UTC())

		result, err := f.orch.Execute(ctx, []string{"acct-slow"}, nil)

		Convey("Then the remaining sequence is suppressed and the result finalized", func() {
			So(err, ShouldBeNil)
			So(result.Finalized, ShouldBeTrue)
			So(result.Outcomes["acct-slow"].Status, ShouldEqual, model.OutcomeSuppressed)
			So(result.TouchpointsEmitted, ShouldBeGreaterThanOrEqualTo, 1)
			So(result.TouchpointsSkipped, ShouldBeGreaterThanOrEqualTo, 1)
		})
	})
}

func TestProgress(t *testing.T) {
	Convey("Given an orchestrator with no campaign yet", t, func() {
		f := newFixture(t)

		So(f.orch.Progress(), ShouldBeNil)

		Convey("Dispatch before any campaign is rejected", func() {
			err := f.orch.Dispatch(context.Background(), model.EngagementEvent{AccountID: "x"})

			So(err, ShouldNotBeNil)
		})
	})

	Convey("Given a finished campaign", t, func() {
		ctx := context.Background()
		f := newFixture(t, orchestrator.WithCampaignDeadline(100*time.Millisecond))
		f.seedAccount("acct-1", 100_000, time.Now().UTC())

		result, err := f.orch.Execute(ctx, []string{"acct-1"}, nil)
		So(err, ShouldBeNil)

		Convey("Progress snapshots are independent copies", func() {
			snap := f.orch.Progress()
			snap.Outcomes["intruder"] = model.AccountOutcome{AccountID: "intruder"}

			So(f.orch.Progress().Outcomes, ShouldNotContainKey, "intruder")
			So(result.Outcomes, ShouldNotContainKey, "intruder")
		})
	})
}
