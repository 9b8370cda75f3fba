package calibrate_test

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/cadence/internal/domain/calibrate"
	"github.com/okian/cadence/internal/domain/model"
	"github.com/okian/cadence/internal/domain/weights"
)

func currentWeights() weights.WeightSet {
	ws, err := weights.New(
		map[string]float64{
			model.DimRevenueGrowth:  0.25,
			model.DimProfitability:  0.25,
			model.DimCashFlow:       0.20,
			model.DimDebtRatio:      0.15,
			model.DimPaymentHistory: 0.15,
		},
		map[model.SignalType]float64{
			model.SignalPricingPageVisit:   0.90,
			model.SignalCompetitorResearch: 0.80,
			model.SignalWebsiteVisit:       0.05,
		},
		0.05, 1.0,
	)
	if err != nil {
		panic(err)
	}
	return ws
}

func outcome(id string, converted bool, types ...model.SignalType) model.AccountOutcome {
	return model.AccountOutcome{
		AccountID:   id,
		Status:      model.OutcomeResponded,
		SignalTypes: types,
		Converted:   converted,
	}
}

func campaign(finalized bool, outcomes ...model.AccountOutcome) *model.CampaignResult {
	cr := &model.CampaignResult{
		CampaignID: "camp-1",
		Finalized:  finalized,
		Outcomes:   make(map[string]model.AccountOutcome, len(outcomes)),
	}
	for _, o := range outcomes {
		cr.Outcomes[o.AccountID] = o
	}
	return cr
}

func TestCalibrate(t *testing.T) {
	Convey("Given a calibrator and a finalized campaign", t, func() {
		ctx := context.Background()
		cal := calibrate.NewCalibrator()
		current := currentWeights()

		// Pricing-page visitors all converted; competitor researchers and
		// website visitors never did.
		cr := campaign(true,
			outcome("a1", true, model.SignalPricingPageVisit),
			outcome("a2", true, model.SignalPricingPageVisit),
			outcome("a3", true, model.SignalPricingPageVisit),
			outcome("a4", false, model.SignalCompetitorResearch, model.SignalWebsiteVisit),
			outcome("a5", false, model.SignalCompetitorResearch, model.SignalWebsiteVisit),
			outcome("a6", false, model.SignalCompetitorResearch, model.SignalWebsiteVisit),
		)

		Convey("When calibrating on the sample", func() {
			candidate, err := cal.Calibrate(ctx, []*model.CampaignResult{cr}, current)
			So(err, ShouldBeNil)

			Convey("Then converting signal types gain weight, bounded by the max delta", func() {
				// lift = 1.0 - 0.5, scaled by the learning rate and clamped
				// to 0.10.
				So(candidate.Signals[model.SignalPricingPageVisit], ShouldAlmostEqual, 1.00, 1e-9)
			})

			Convey("And non-converting signal types lose at most the max delta", func() {
				So(candidate.Signals[model.SignalCompetitorResearch], ShouldAlmostEqual, 0.70, 1e-9)
			})

			Convey("And adjusted weights never go negative", func() {
				So(candidate.Signals[model.SignalWebsiteVisit], ShouldEqual, 0)
			})

			Convey("And financial weights are untouched", func() {
				So(candidate.Financial, ShouldResemble, current.Financial)
			})

			Convey("And the candidate links back to its parent version", func() {
				So(candidate.ParentVersion, ShouldEqual, current.Version)
				So(candidate.Version, ShouldNotEqual, current.Version)
			})

			Convey("And the current set is left unmodified", func() {
				So(current.Signals[model.SignalCompetitorResearch], ShouldEqual, 0.80)
			})
		})

		Convey("When a campaign is still open", func() {
			open := campaign(false, outcome("a1", true, model.SignalPricingPageVisit))

			_, err := cal.Calibrate(ctx, []*model.CampaignResult{cr, open}, current)

			So(err, ShouldWrap, calibrate.ErrCampaignOpen)
		})

		Convey("When the terminal sample is too small", func() {
			small := campaign(true,
				outcome("a1", true, model.SignalPricingPageVisit),
				outcome("a2", false, model.SignalCompetitorResearch),
			)

			_, err := cal.Calibrate(ctx, []*model.CampaignResult{small}, current)

			So(err, ShouldWrap, calibrate.ErrSampleTooSmall)
		})

		Convey("When failed accounts pad the sample", func() {
			failed := model.AccountOutcome{
				AccountID: "f1",
				Status:    model.OutcomeFailed,
			}
			small := campaign(true,
				outcome("a1", true, model.SignalPricingPageVisit),
				outcome("a2", false, model.SignalCompetitorResearch),
				outcome("a3", false, model.SignalCompetitorResearch),
				outcome("a4", true, model.SignalPricingPageVisit),
				failed,
			)

			_, err := cal.Calibrate(ctx, []*model.CampaignResult{small}, current)

			Convey("Then they carry no conversion evidence", func() {
				So(err, ShouldWrap, calibrate.ErrSampleTooSmall)
			})
		})

		Convey("When a tighter max delta is configured", func() {
			cal := calibrate.NewCalibrator(calibrate.WithMaxDelta(0.02))

			candidate, err := cal.Calibrate(ctx, []*model.CampaignResult{cr}, current)
			So(err, ShouldBeNil)

			So(candidate.Signals[model.SignalPricingPageVisit], ShouldAlmostEqual, 0.92, 1e-9)
			So(candidate.Signals[model.SignalCompetitorResearch], ShouldAlmostEqual, 0.78, 1e-9)
		})
	})
}
