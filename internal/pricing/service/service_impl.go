package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	analyticsdomain "github.com/smallbiznis/quotient/internal/analytics/domain"
	catalogdomain "github.com/smallbiznis/quotient/internal/catalog/domain"
	"github.com/smallbiznis/quotient/internal/clock"
	customerdomain "github.com/smallbiznis/quotient/internal/customer/domain"
	pricingdomain "github.com/smallbiznis/quotient/internal/pricing/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Pricing segment multipliers for optimize requests. Unknown segments take
// the neutral multiplier.
var segmentMultipliers = map[string]float64{
	"academic":       0.85,
	"enterprise":     1.15,
	"government":     0.90,
	"startup":        0.95,
	"pharmaceutical": 1.20,
}

// Volume tiers: the largest threshold not exceeding the quantity wins.
var volumeMultipliers = map[int]float64{
	1:  1.0,
	2:  0.98,
	5:  0.95,
	10: 0.92,
	25: 0.88,
}

// Catalog segment multipliers for per-product recommendations.
var recommendMultipliers = map[customerdomain.Segment]float64{
	customerdomain.SegmentAcademic:          0.85,
	customerdomain.SegmentBiotechStartup:    0.95,
	customerdomain.SegmentPharmaEnterprise:  1.15,
	customerdomain.SegmentResearchInstitute: 0.90,
}

var categoryAdjustments = map[catalogdomain.Category]float64{
	catalogdomain.CategoryReagents:     1.05,
	catalogdomain.CategoryLabEquipment: 1.10,
	catalogdomain.CategoryConsumables:  0.98,
	catalogdomain.CategoryInstruments:  1.20,
	catalogdomain.CategoryChemicals:    1.02,
}

const (
	baseMarginPct = 25.0
	costRatio     = 0.7

	baseConfidence     = 85.0
	fallbackConfidence = 75.0
	minConfidence      = 60.0
	maxConfidence      = 95.0

	peakSeasonPremium    = 1.03
	elasticCutMultiplier = 0.95
	inelasticRaise       = 1.05
	sensitiveDiscount    = 0.97
	sensitivityThreshold = 1.5

	demandResponseCap = 0.2
)

type ServiceParam struct {
	fx.In

	Log      *zap.Logger
	Analyzer analyticsdomain.Analyzer
	Clock    clock.Clock
}

type Service struct {
	log      *zap.Logger
	analyzer analyticsdomain.Analyzer
	clock    clock.Clock
}

func New(p ServiceParam) pricingdomain.Service {
	return &Service{
		log:      p.Log.Named("pricing.service"),
		analyzer: p.Analyzer,
		clock:    p.Clock,
	}
}

// Optimize produces exactly one optimized price. The advanced path layers
// analyzer signals on top of the deterministic base optimization; any
// failure there falls back silently to the base result so the caller
// always receives a price.
func (s *Service) Optimize(_ context.Context, req pricingdomain.OptimizeRequest) (pricingdomain.OptimizeResult, error) {
	if err := req.Validate(); err != nil {
		return pricingdomain.OptimizeResult{}, err
	}
	if req.TargetMetric == "" {
		req.TargetMetric = pricingdomain.TargetRevenue
	}

	result, err := s.optimizeAdvanced(req)
	if err != nil {
		s.log.Warn("advanced optimization failed, using base path",
			zap.String("sku", req.SKU), zap.Error(err))
		return s.optimizeFallback(req), nil
	}
	return result, nil
}

func (s *Service) optimizeAdvanced(req pricingdomain.OptimizeRequest) (result pricingdomain.OptimizeResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("advanced optimization panic: %v", r)
		}
	}()

	elasticity, hasElasticity := s.analyzer.Elasticity(req.SKU)
	if !hasElasticity {
		elasticity = analyticsdomain.DefaultElasticity()
	}
	seasonality := s.analyzer.Seasonality()
	segments := s.analyzer.SegmentProfiles()

	base := baseOptimization(req)
	price := base.price

	// Adjustment order matters: elasticity, then season, then segment
	// sensitivity, each multiplicative on the base result.
	if hasElasticity {
		if req.TargetMetric == pricingdomain.TargetRevenue && elasticity.Coefficient < -1 {
			price *= elasticCutMultiplier // elastic demand favors a cut for revenue
		} else if req.TargetMetric == pricingdomain.TargetMargin && elasticity.Coefficient > -1 {
			price *= inelasticRaise
		}
	}

	if seasonality.PeakMonth(s.clock.Now().Month()) {
		price *= peakSeasonPremium
	}

	profile, hasProfile := analyticsdomain.ProfileFor(segments, req.Segment)
	if hasProfile && profile.PriceSensitivity > sensitivityThreshold {
		price *= sensitiveDiscount
	}

	margin := (price - req.CurrentPrice*costRatio) / price * 100
	confidence := s.confidenceScore(req.SKU, hasElasticity)

	result = pricingdomain.OptimizeResult{
		OptimizedPrice:  round2(price),
		ExpectedMargin:  round1(margin),
		PriceElasticity: elasticity.Coefficient,
		Confidence:      round1(confidence),
		Recommendation:  recommendationText(req, price, elasticity, seasonality),
		AdvancedInsights: pricingdomain.Insights{
			SeasonalityFactor:  seasonality.Strength,
			ElasticityCategory: elasticity.DemandSensitivity,
			OptimalStrategy:    elasticity.OptimalStrategy,
		},
		RevenueProjection: projection(req, price, margin, base.margin, elasticity.Coefficient),
	}
	if hasProfile {
		result.AdvancedInsights.CustomerSegment = &profile
	}
	return result, nil
}

// optimizeFallback is the base path with documented defaults; it cannot fail.
func (s *Service) optimizeFallback(req pricingdomain.OptimizeRequest) pricingdomain.OptimizeResult {
	base := baseOptimization(req)
	fallback := analyticsdomain.DefaultElasticity()

	return pricingdomain.OptimizeResult{
		OptimizedPrice:  round2(base.price),
		ExpectedMargin:  round1(base.margin),
		PriceElasticity: fallback.Coefficient,
		Confidence:      fallbackConfidence,
		Recommendation: fmt.Sprintf(
			"Based on customer segment and volume, recommend adjusting price to $%.2f", base.price),
		AdvancedInsights: pricingdomain.Insights{
			SeasonalityFactor:  "Medium",
			ElasticityCategory: fallback.DemandSensitivity,
			OptimalStrategy:    fallback.OptimalStrategy,
		},
		RevenueProjection: projection(req, base.price, base.margin, base.margin, fallback.Coefficient),
	}
}

type baseResult struct {
	price  float64
	margin float64
}

func baseOptimization(req pricingdomain.OptimizeRequest) baseResult {
	segmentMult, ok := segmentMultipliers[strings.ToLower(req.Segment)]
	if !ok {
		segmentMult = 1.0
	}

	volumeMult := 1.0
	bestThreshold := 0
	for threshold, mult := range volumeMultipliers {
		if req.Quantity >= threshold && threshold > bestThreshold {
			bestThreshold, volumeMult = threshold, mult
		}
	}

	price := req.CurrentPrice * segmentMult * volumeMult
	// Margin moves twice as fast, in percentage points, as the relative
	// price change.
	margin := baseMarginPct + (price-req.CurrentPrice)/req.CurrentPrice*50
	return baseResult{price: price, margin: margin}
}

func (s *Service) confidenceScore(sku string, hasElasticity bool) float64 {
	confidence := baseConfidence
	if count := s.analyzer.TransactionCount(sku); count > 50 {
		confidence += 10
	} else if count < 10 {
		confidence -= 15
	}
	if hasElasticity {
		confidence += 5
	}
	return clampF(confidence, minConfidence, maxConfidence)
}

func projection(req pricingdomain.OptimizeRequest, price, margin, baseMargin, coefficient float64) pricingdomain.Projection {
	demandResponse := clampF(coefficient*0.1, -demandResponseCap, demandResponseCap)

	improvement := 0.0
	if baseMargin != 0 {
		improvement = (margin - baseMargin) / baseMargin * 100
	}

	return pricingdomain.Projection{
		CurrentScenario:      round2(req.CurrentPrice * float64(req.Quantity)),
		OptimizedScenario:    round2(price * float64(req.Quantity) * (1 + demandResponse)),
		MarginImprovementPct: round2(improvement),
	}
}

func recommendationText(req pricingdomain.OptimizeRequest, price float64, elasticity analyticsdomain.ElasticityModel, seasonality analyticsdomain.SeasonalityProfile) string {
	changePct := (price - req.CurrentPrice) / req.CurrentPrice * 100

	direction := "increasing"
	if changePct < 0 {
		direction = "decreasing"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Recommend %s price by %.1f%% to optimize %s. ", direction, math.Abs(changePct), req.TargetMetric)
	if elasticity.DemandSensitivity == "High" {
		b.WriteString("High price sensitivity detected - small changes will significantly impact demand. ")
	}
	if seasonality.Strength == "High" {
		b.WriteString("Strong seasonal patterns identified - consider dynamic pricing throughout the year. ")
	}
	return strings.TrimSpace(b.String())
}

// Recommend prices every product for a known customer using segment and
// category multipliers.
func (s *Service) Recommend(_ context.Context, customer customerdomain.Customer, products []catalogdomain.Product) ([]pricingdomain.Recommendation, error) {
	if !customer.Segment.Valid() {
		return nil, customerdomain.ErrUnknownSegment
	}
	if len(products) == 0 {
		return nil, pricingdomain.ErrNoProducts
	}

	recommendations := make([]pricingdomain.Recommendation, 0, len(products))
	for _, product := range products {
		if !product.Category.Valid() {
			return nil, catalogdomain.ErrUnknownCategory
		}
		if product.BasePrice <= 0 {
			return nil, pricingdomain.ErrInvalidPrice
		}

		multiplier := recommendMultipliers[customer.Segment]
		categoryAdj := categoryAdjustments[product.Category]
		price := product.BasePrice * multiplier * categoryAdj

		recommendations = append(recommendations, pricingdomain.Recommendation{
			SKU:               product.SKU,
			RecommendedPrice:  round2(price),
			ConfidenceScore:   round3(s.recommendConfidence(product.SKU)),
			MarginImprovement: round2((price - product.BasePrice) / product.BasePrice * 100),
			Reasoning: fmt.Sprintf("Optimized for %s segment with %s category adjustments",
				customer.Segment, product.Category),
		})
	}
	return recommendations, nil
}

// recommendConfidence scales with SKU history depth on the 0-1 scale used
// by recommendations.
func (s *Service) recommendConfidence(sku string) float64 {
	confidence := 0.85
	if count := s.analyzer.TransactionCount(sku); count > 50 {
		confidence += 0.10
	} else if count < 10 {
		confidence -= 0.15
	}
	if _, ok := s.analyzer.Elasticity(sku); ok {
		confidence += 0.05
	}
	return clampF(confidence, 0.60, 0.95)
}

// ElasticityCurve previews demand and revenue across candidate prices using
// the SKU's modeled coefficient.
func (s *Service) ElasticityCurve(_ context.Context, sku string, priceRange []float64) (pricingdomain.ElasticityCurve, error) {
	if len(priceRange) == 0 {
		return pricingdomain.ElasticityCurve{}, pricingdomain.ErrInvalidPrice
	}
	for _, p := range priceRange {
		if p <= 0 {
			return pricingdomain.ElasticityCurve{}, pricingdomain.ErrInvalidPrice
		}
	}

	sorted := append([]float64(nil), priceRange...)
	sort.Float64s(sorted)

	elasticity, _ := s.analyzer.Elasticity(sku)

	const baseDemand = 100.0
	reference := sorted[0]
	curve := make([]pricingdomain.PricePoint, 0, len(sorted))
	optimal, bestRevenue := sorted[0], 0.0
	for _, price := range sorted {
		demand := baseDemand * math.Pow(reference/price, math.Abs(elasticity.Coefficient))
		revenue := price * demand
		curve = append(curve, pricingdomain.PricePoint{
			Price:           price,
			ProjectedDemand: round2(demand),
			Revenue:         round2(revenue),
		})
		if revenue > bestRevenue {
			optimal, bestRevenue = price, revenue
		}
	}

	return pricingdomain.ElasticityCurve{
		SKU:          sku,
		Coefficient:  elasticity.Coefficient,
		Curve:        curve,
		OptimalPrice: optimal,
	}, nil
}

// AnalyzeMargins compares recommended pricing against the catalog baseline.
func (s *Service) AnalyzeMargins(ctx context.Context, customer customerdomain.Customer, products []catalogdomain.Product) (pricingdomain.MarginAnalysis, error) {
	recommendations, err := s.Recommend(ctx, customer, products)
	if err != nil {
		return pricingdomain.MarginAnalysis{}, err
	}

	var totalCost, optimizedRevenue float64
	for _, p := range products {
		totalCost += p.BasePrice
	}
	for _, r := range recommendations {
		optimizedRevenue += r.RecommendedPrice
	}

	const currentMargin = 0.25
	optimizedMargin := 0.0
	if optimizedRevenue > 0 {
		optimizedMargin = (optimizedRevenue - totalCost) / optimizedRevenue
	}

	return pricingdomain.MarginAnalysis{
		CurrentMarginPct:   round2(currentMargin * 100),
		OptimizedMarginPct: round2(optimizedMargin * 100),
		MarginImprovement:  round2((optimizedMargin - currentMargin) * 100),
		RevenueUplift:      round2(optimizedRevenue - totalCost*(1+currentMargin)),
		CustomerSegment:    string(customer.Segment),
		Opportunities: []string{
			"Price segmentation by customer type",
			"Category-specific markup optimization",
			"Volume-based pricing tiers",
		},
	}, nil
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
