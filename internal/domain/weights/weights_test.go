package weights_test

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/cadence/internal/domain/model"
	"github.com/okian/cadence/internal/domain/weights"
)

func validFinancial() map[string]float64 {
	return map[string]float64{
		model.DimRevenueGrowth:  0.25,
		model.DimProfitability:  0.25,
		model.DimCashFlow:       0.20,
		model.DimDebtRatio:      0.15,
		model.DimPaymentHistory: 0.15,
	}
}

func validSignals() map[model.SignalType]float64 {
	return map[model.SignalType]float64{
		model.SignalPricingPageVisit:   0.9,
		model.SignalRateSheetDownload:  1.0,
		model.SignalCompetitorResearch: 0.8,
	}
}

func TestWeightSetValidation(t *testing.T) {
	Convey("Given financial dimension weights", t, func() {
		Convey("When they sum to 1.0", func() {
			ws, err := weights.New(validFinancial(), validSignals(), 0.05, 1.0)

			Convey("Then the set is accepted with a version id", func() {
				So(err, ShouldBeNil)
				So(ws.Version, ShouldNotBeEmpty)
			})
		})

		Convey("When they sum outside the tolerance", func() {
			fin := validFinancial()
			fin[model.DimCashFlow] = 0.30

			_, err := weights.New(fin, validSignals(), 0.05, 1.0)

			Convey("Then the set is rejected", func() {
				So(err, ShouldNotBeNil)
				So(err, ShouldWrap, weights.ErrInvalidWeightSet)
			})
		})

		Convey("When a dimension is missing", func() {
			fin := validFinancial()
			delete(fin, model.DimDebtRatio)
			fin[model.DimCashFlow] += 0.15

			_, err := weights.New(fin, validSignals(), 0.05, 1.0)
			So(err, ShouldWrap, weights.ErrInvalidWeightSet)
		})

		Convey("When the decay factor is not positive", func() {
			_, err := weights.New(validFinancial(), validSignals(), 0, 1.0)
			So(err, ShouldWrap, weights.ErrInvalidWeightSet)
		})

		Convey("When a signal weight is negative", func() {
			sigs := validSignals()
			sigs[model.SignalPricingPageVisit] = -0.1

			_, err := weights.New(validFinancial(), sigs, 0.05, 1.0)
			So(err, ShouldWrap, weights.ErrInvalidWeightSet)
		})
	})
}

func TestWeightSetImmutability(t *testing.T) {
	Convey("Given a weight set built from caller-owned maps", t, func() {
		fin := validFinancial()
		sigs := validSignals()
		ws, err := weights.New(fin, sigs, 0.05, 1.0)
		So(err, ShouldBeNil)

		Convey("When the caller mutates its maps afterwards", func() {
			fin[model.DimCashFlow] = 99
			sigs[model.SignalPricingPageVisit] = 99

			Convey("Then the set is unaffected", func() {
				So(ws.Financial[model.DimCashFlow], ShouldEqual, 0.20)
				So(ws.Signals[model.SignalPricingPageVisit], ShouldEqual, 0.9)
			})
		})
	})
}

func TestRegistryPublish(t *testing.T) {
	Convey("Given a registry with a current weight set", t, func() {
		ctx := context.Background()
		initial, err := weights.New(validFinancial(), validSignals(), 0.05, 1.0)
		So(err, ShouldBeNil)

		reg, err := weights.NewRegistry(initial)
		So(err, ShouldBeNil)

		Convey("When a valid candidate is published", func() {
			candidate := initial.Derive(validFinancial(), validSignals())
			So(reg.Publish(ctx, candidate), ShouldBeNil)

			Convey("Then it becomes current and links its parent", func() {
				current, err := reg.Current(ctx)
				So(err, ShouldBeNil)
				So(current.Version, ShouldEqual, candidate.Version)
				So(current.ParentVersion, ShouldEqual, initial.Version)
			})

			Convey("And the previous version stays resolvable", func() {
				old, ok := reg.Version(ctx, initial.Version)
				So(ok, ShouldBeTrue)
				So(old.Version, ShouldEqual, initial.Version)
			})
		})

		Convey("When an invalid candidate is published", func() {
			broken := validFinancial()
			broken[model.DimCashFlow] = 0.90
			candidate := initial.Derive(broken, validSignals())

			err := reg.Publish(ctx, candidate)

			Convey("Then publication fails and the current set is retained", func() {
				So(err, ShouldWrap, weights.ErrInvalidWeightSet)
				current, cerr := reg.Current(ctx)
				So(cerr, ShouldBeNil)
				So(current.Version, ShouldEqual, initial.Version)
			})
		})

		Convey("When a scoring pass captured the set before a publish", func() {
			captured, err := reg.Current(ctx)
			So(err, ShouldBeNil)

			candidate := initial.Derive(validFinancial(), validSignals())
			So(reg.Publish(ctx, candidate), ShouldBeNil)

			Convey("Then the captured version is unchanged", func() {
				So(captured.Version, ShouldEqual, initial.Version)
			})
		})
	})
}
