package service

import (
	"context"
	"testing"
	"time"

	analyticsdomain "github.com/smallbiznis/quotient/internal/analytics/domain"
	catalogdomain "github.com/smallbiznis/quotient/internal/catalog/domain"
	"github.com/smallbiznis/quotient/internal/clock"
	customerdomain "github.com/smallbiznis/quotient/internal/customer/domain"
	pricingdomain "github.com/smallbiznis/quotient/internal/pricing/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubAnalyzer struct {
	elasticity  map[string]analyticsdomain.ElasticityModel
	counts      map[string]int
	profiles    map[string]analyticsdomain.SegmentProfile
	seasonality analyticsdomain.SeasonalityProfile
	panicOn     bool
}

func (s *stubAnalyzer) SegmentProfiles() map[string]analyticsdomain.SegmentProfile {
	return s.profiles
}

func (s *stubAnalyzer) Elasticity(sku string) (analyticsdomain.ElasticityModel, bool) {
	m, ok := s.elasticity[sku]
	return m, ok
}

func (s *stubAnalyzer) Seasonality() analyticsdomain.SeasonalityProfile {
	if s.panicOn {
		panic("snapshot unavailable")
	}
	return s.seasonality
}

func (s *stubAnalyzer) PromotionalImpact() analyticsdomain.PromotionalImpact {
	return analyticsdomain.PromotionalImpact{}
}

func (s *stubAnalyzer) TransactionCount(sku string) int {
	return s.counts[sku]
}

func newTestService(analyzer analyticsdomain.Analyzer, now time.Time) *Service {
	return New(ServiceParam{
		Log:      zap.NewNop(),
		Analyzer: analyzer,
		Clock:    clock.NewFakeClock(now),
	}).(*Service)
}

// June is outside every peak set used in these tests.
var offSeason = time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)

func TestOptimizeRejectsMalformedRequests(t *testing.T) {
	svc := newTestService(&stubAnalyzer{}, offSeason)

	_, err := svc.Optimize(context.Background(), pricingdomain.OptimizeRequest{
		SKU: "REA-003", Quantity: 0, CurrentPrice: 100,
	})
	assert.ErrorIs(t, err, pricingdomain.ErrInvalidQuantity)

	_, err = svc.Optimize(context.Background(), pricingdomain.OptimizeRequest{
		SKU: "REA-003", Quantity: 1, CurrentPrice: 0,
	})
	assert.ErrorIs(t, err, pricingdomain.ErrInvalidPrice)
}

func TestOptimizeSegmentAndVolumeMultipliers(t *testing.T) {
	svc := newTestService(&stubAnalyzer{}, offSeason)

	res, err := svc.Optimize(context.Background(), pricingdomain.OptimizeRequest{
		SKU: "REA-003", Segment: "academic", Quantity: 1, CurrentPrice: 100,
	})
	require.NoError(t, err)
	assert.InDelta(t, 85.00, res.OptimizedPrice, 0.001)

	res, err = svc.Optimize(context.Background(), pricingdomain.OptimizeRequest{
		SKU: "REA-003", Segment: "academic", Quantity: 25, CurrentPrice: 100,
	})
	require.NoError(t, err)
	assert.InDelta(t, 74.80, res.OptimizedPrice, 0.001)
}

func TestOptimizeVolumeTiersAreMonotonic(t *testing.T) {
	svc := newTestService(&stubAnalyzer{}, offSeason)

	previous := 101.0
	for _, qty := range []int{1, 2, 5, 10, 25, 100} {
		res, err := svc.Optimize(context.Background(), pricingdomain.OptimizeRequest{
			SKU: "REA-003", Quantity: qty, CurrentPrice: 100,
		})
		require.NoError(t, err)
		assert.LessOrEqual(t, res.OptimizedPrice, previous, "qty %d", qty)
		previous = res.OptimizedPrice
	}
}

func TestOptimizeUnknownSegmentUsesNeutralMultiplier(t *testing.T) {
	svc := newTestService(&stubAnalyzer{}, offSeason)

	res, err := svc.Optimize(context.Background(), pricingdomain.OptimizeRequest{
		SKU: "REA-003", Segment: "wholesale", Quantity: 1, CurrentPrice: 100,
	})
	require.NoError(t, err)
	assert.InDelta(t, 100.00, res.OptimizedPrice, 0.001)
}

func TestOptimizeElasticDemandCutsPriceForRevenue(t *testing.T) {
	analyzer := &stubAnalyzer{
		elasticity: map[string]analyticsdomain.ElasticityModel{
			"REA-003": {Coefficient: -1.5, DemandSensitivity: "High", OptimalStrategy: "Aggressive pricing"},
		},
		counts: map[string]int{"REA-003": 60},
	}
	svc := newTestService(analyzer, offSeason)

	res, err := svc.Optimize(context.Background(), pricingdomain.OptimizeRequest{
		SKU: "REA-003", Quantity: 1, CurrentPrice: 100, TargetMetric: pricingdomain.TargetRevenue,
	})
	require.NoError(t, err)
	assert.InDelta(t, 95.00, res.OptimizedPrice, 0.001)
	assert.Equal(t, -1.5, res.PriceElasticity)
	// 85 base +10 deep history +5 modeled elasticity, clamped at 95.
	assert.InDelta(t, 95.0, res.Confidence, 0.001)
}

func TestOptimizeInelasticDemandRaisesPriceForMargin(t *testing.T) {
	analyzer := &stubAnalyzer{
		elasticity: map[string]analyticsdomain.ElasticityModel{
			"CON-005": {Coefficient: -0.5, DemandSensitivity: "Low", OptimalStrategy: "Premium pricing"},
		},
		counts: map[string]int{"CON-005": 20},
	}
	svc := newTestService(analyzer, offSeason)

	res, err := svc.Optimize(context.Background(), pricingdomain.OptimizeRequest{
		SKU: "CON-005", Quantity: 1, CurrentPrice: 100, TargetMetric: pricingdomain.TargetMargin,
	})
	require.NoError(t, err)
	assert.InDelta(t, 105.00, res.OptimizedPrice, 0.001)
}

func TestOptimizePeakMonthPremium(t *testing.T) {
	analyzer := &stubAnalyzer{
		seasonality: analyticsdomain.SeasonalityProfile{
			PeakMonths: []time.Month{time.March},
			Strength:   "High",
		},
	}
	march := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	svc := newTestService(analyzer, march)

	res, err := svc.Optimize(context.Background(), pricingdomain.OptimizeRequest{
		SKU: "REA-003", Quantity: 1, CurrentPrice: 100,
	})
	require.NoError(t, err)
	assert.InDelta(t, 103.00, res.OptimizedPrice, 0.001)
	assert.Contains(t, res.Recommendation, "seasonal")
}

func TestOptimizeSensitiveSegmentDiscount(t *testing.T) {
	analyzer := &stubAnalyzer{
		profiles: map[string]analyticsdomain.SegmentProfile{
			"Academic": {PriceSensitivity: 1.8, RecommendedDiscount: 15},
		},
	}
	svc := newTestService(analyzer, offSeason)

	res, err := svc.Optimize(context.Background(), pricingdomain.OptimizeRequest{
		SKU: "REA-003", Segment: "academic", Quantity: 1, CurrentPrice: 100,
	})
	require.NoError(t, err)
	// 100 * 0.85 segment * 0.97 sensitivity discount
	assert.InDelta(t, 82.45, res.OptimizedPrice, 0.001)
	require.NotNil(t, res.AdvancedInsights.CustomerSegment)
	assert.Equal(t, 1.8, res.AdvancedInsights.CustomerSegment.PriceSensitivity)
}

func TestOptimizeConfidencePenalizesThinHistory(t *testing.T) {
	svc := newTestService(&stubAnalyzer{counts: map[string]int{"INS-001": 3}}, offSeason)

	res, err := svc.Optimize(context.Background(), pricingdomain.OptimizeRequest{
		SKU: "INS-001", Quantity: 1, CurrentPrice: 8500,
	})
	require.NoError(t, err)
	assert.InDelta(t, 70.0, res.Confidence, 0.001)
}

func TestOptimizeFallsBackWhenAnalyzerFails(t *testing.T) {
	svc := newTestService(&stubAnalyzer{panicOn: true}, offSeason)

	res, err := svc.Optimize(context.Background(), pricingdomain.OptimizeRequest{
		SKU: "REA-003", Segment: "academic", Quantity: 1, CurrentPrice: 100,
	})
	require.NoError(t, err)
	assert.InDelta(t, 85.00, res.OptimizedPrice, 0.001)
	assert.InDelta(t, 75.0, res.Confidence, 0.001)
	assert.Equal(t, analyticsdomain.DefaultElasticity().Coefficient, res.PriceElasticity)
	assert.Contains(t, res.Recommendation, "recommend adjusting price")
}

func TestOptimizeProjectionBoundsDemandResponse(t *testing.T) {
	analyzer := &stubAnalyzer{
		elasticity: map[string]analyticsdomain.ElasticityModel{
			"CHE-001": {Coefficient: -4.0, DemandSensitivity: "High"},
		},
	}
	svc := newTestService(analyzer, offSeason)

	res, err := svc.Optimize(context.Background(), pricingdomain.OptimizeRequest{
		SKU: "CHE-001", Quantity: 10, CurrentPrice: 100, TargetMetric: pricingdomain.TargetRevenue,
	})
	require.NoError(t, err)
	// Demand response clamps at -0.2 even though the raw coefficient
	// implies -0.4.
	assert.InDelta(t, 1000.0, res.RevenueProjection.CurrentScenario, 0.001)
	expected := res.OptimizedPrice * 10 * 0.8
	assert.InDelta(t, expected, res.RevenueProjection.OptimizedScenario, 0.01)
}

func TestRecommendAppliesSegmentAndCategoryMultipliers(t *testing.T) {
	svc := newTestService(&stubAnalyzer{}, offSeason)
	customer := customerdomain.Customer{ID: "academic-01", Segment: customerdomain.SegmentAcademic}

	recs, err := svc.Recommend(context.Background(), customer, []catalogdomain.Product{
		{SKU: "REA-003", Category: catalogdomain.CategoryReagents, BasePrice: 320},
		{SKU: "INS-001", Category: catalogdomain.CategoryInstruments, BasePrice: 8500},
	})
	require.NoError(t, err)
	require.Len(t, recs, 2)

	// 320 * 0.85 * 1.05
	assert.InDelta(t, 285.60, recs[0].RecommendedPrice, 0.001)
	// 8500 * 0.85 * 1.20
	assert.InDelta(t, 8670.00, recs[1].RecommendedPrice, 0.001)
	assert.Contains(t, recs[0].Reasoning, "academic")
	assert.Contains(t, recs[0].Reasoning, "reagents")
}

func TestRecommendValidation(t *testing.T) {
	svc := newTestService(&stubAnalyzer{}, offSeason)

	_, err := svc.Recommend(context.Background(), customerdomain.Customer{Segment: "retail"}, []catalogdomain.Product{
		{SKU: "REA-003", Category: catalogdomain.CategoryReagents, BasePrice: 320},
	})
	assert.ErrorIs(t, err, customerdomain.ErrUnknownSegment)

	customer := customerdomain.Customer{Segment: customerdomain.SegmentAcademic}

	_, err = svc.Recommend(context.Background(), customer, nil)
	assert.ErrorIs(t, err, pricingdomain.ErrNoProducts)

	_, err = svc.Recommend(context.Background(), customer, []catalogdomain.Product{
		{SKU: "BAD-001", Category: "food", BasePrice: 10},
	})
	assert.ErrorIs(t, err, catalogdomain.ErrUnknownCategory)

	_, err = svc.Recommend(context.Background(), customer, []catalogdomain.Product{
		{SKU: "REA-003", Category: catalogdomain.CategoryReagents, BasePrice: 0},
	})
	assert.ErrorIs(t, err, pricingdomain.ErrInvalidPrice)
}

func TestRecommendConfidenceScale(t *testing.T) {
	analyzer := &stubAnalyzer{
		counts: map[string]int{"REA-003": 60, "INS-004": 2},
		elasticity: map[string]analyticsdomain.ElasticityModel{
			"REA-003": {Coefficient: -1.1},
		},
	}
	svc := newTestService(analyzer, offSeason)
	customer := customerdomain.Customer{Segment: customerdomain.SegmentBiotechStartup}

	recs, err := svc.Recommend(context.Background(), customer, []catalogdomain.Product{
		{SKU: "REA-003", Category: catalogdomain.CategoryReagents, BasePrice: 320},
		{SKU: "INS-004", Category: catalogdomain.CategoryInstruments, BasePrice: 24500},
	})
	require.NoError(t, err)
	// 0.85 +0.10 +0.05 clamps at 0.95; 0.85 -0.15 = 0.70.
	assert.InDelta(t, 0.95, recs[0].ConfidenceScore, 0.0001)
	assert.InDelta(t, 0.70, recs[1].ConfidenceScore, 0.0001)
}

func TestElasticityCurveOptimalPrice(t *testing.T) {
	analyzer := &stubAnalyzer{
		elasticity: map[string]analyticsdomain.ElasticityModel{
			"ELASTIC":   {Coefficient: -1.5},
			"INELASTIC": {Coefficient: -0.5},
		},
	}
	svc := newTestService(analyzer, offSeason)
	prices := []float64{110, 90, 100}

	curve, err := svc.ElasticityCurve(context.Background(), "ELASTIC", prices)
	require.NoError(t, err)
	require.Len(t, curve.Curve, 3)
	// Elastic demand: revenue falls as price rises.
	assert.Equal(t, 90.0, curve.OptimalPrice)
	assert.Equal(t, 90.0, curve.Curve[0].Price, "curve is sorted by price")

	curve, err = svc.ElasticityCurve(context.Background(), "INELASTIC", prices)
	require.NoError(t, err)
	assert.Equal(t, 110.0, curve.OptimalPrice)
}

func TestElasticityCurveRejectsBadRanges(t *testing.T) {
	svc := newTestService(&stubAnalyzer{}, offSeason)

	_, err := svc.ElasticityCurve(context.Background(), "REA-003", nil)
	assert.ErrorIs(t, err, pricingdomain.ErrInvalidPrice)

	_, err = svc.ElasticityCurve(context.Background(), "REA-003", []float64{100, -5})
	assert.ErrorIs(t, err, pricingdomain.ErrInvalidPrice)
}

func TestAnalyzeMargins(t *testing.T) {
	svc := newTestService(&stubAnalyzer{}, offSeason)
	customer := customerdomain.Customer{Segment: customerdomain.SegmentPharmaEnterprise}

	analysis, err := svc.AnalyzeMargins(context.Background(), customer, []catalogdomain.Product{
		{SKU: "REA-003", Category: catalogdomain.CategoryReagents, BasePrice: 100},
		{SKU: "INS-001", Category: catalogdomain.CategoryInstruments, BasePrice: 200},
	})
	require.NoError(t, err)

	// Recommended: 100*1.15*1.05 + 200*1.15*1.20 = 120.75 + 276 = 396.75
	assert.InDelta(t, 25.00, analysis.CurrentMarginPct, 0.001)
	assert.InDelta(t, 24.39, analysis.OptimizedMarginPct, 0.01)
	assert.InDelta(t, 21.75, analysis.RevenueUplift, 0.01)
	assert.Equal(t, "pharma_enterprise", analysis.CustomerSegment)
	assert.NotEmpty(t, analysis.Opportunities)
}
