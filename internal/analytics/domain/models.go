// Package domain defines the analyzer contract: behavioral segment profiles,
// per-SKU elasticity, seasonality and promotional-response signals derived
// from the historical transaction table.
package domain

import (
	"strings"
	"time"
)

// SegmentProfile summarizes one behavioral customer cluster.
type SegmentProfile struct {
	AvgRevenue          float64 `json:"avg_revenue"`
	AvgOrderValue       float64 `json:"avg_order_value"`
	PriceSensitivity    float64 `json:"price_sensitivity"`
	LoyaltyScore        float64 `json:"loyalty_score"`
	RecommendedDiscount float64 `json:"recommended_discount"`
}

// PriceRange is the observed price band for a SKU, with the price point
// that moved the most units.
type PriceRange struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Optimal float64 `json:"optimal"`
}

// ElasticityModel holds the elasticity signal for one SKU.
type ElasticityModel struct {
	Coefficient       float64    `json:"elasticity_coefficient"`
	DemandSensitivity string     `json:"demand_sensitivity"`
	OptimalStrategy   string     `json:"optimal_price_strategy"`
	PriceRange        PriceRange `json:"price_range"`
}

// Forecast is a 90-day revenue projection with a confidence interval.
type Forecast struct {
	ExpectedRevenue float64 `json:"expected_revenue"`
	Lower           float64 `json:"lower"`
	Upper           float64 `json:"upper"`
}

// SeasonalityProfile describes calendar effects on revenue.
type SeasonalityProfile struct {
	YearlyTrend   string             `json:"yearly_trend"`
	PeakMonths    []time.Month       `json:"peak_months"`
	WeeklyPattern map[string]float64 `json:"weekly_pattern"`
	Forecast90d   Forecast           `json:"forecast_3_months"`
	Strength      string             `json:"seasonality_strength"`
	Note          string             `json:"note,omitempty"`
}

// PeakMonth reports whether m is in the profile's peak set.
func (p SeasonalityProfile) PeakMonth(m time.Month) bool {
	for _, peak := range p.PeakMonths {
		if peak == m {
			return true
		}
	}
	return false
}

// DiscountRange bounds a recommended promotional discount in percent.
type DiscountRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// OverallPromoImpact aggregates promotional response across all segments.
type OverallPromoImpact struct {
	AvgOrderSizeWithDiscount    float64       `json:"avg_order_size_with_discount"`
	AvgOrderSizeWithoutDiscount float64       `json:"avg_order_size_without_discount"`
	RevenueLiftPct              float64       `json:"revenue_lift"`
	OptimalDiscountRange        DiscountRange `json:"optimal_discount_range"`
}

// SegmentPromoImpact describes one segment's promotional response.
type SegmentPromoImpact struct {
	ResponseRate        float64 `json:"response_rate"`
	QuantityLiftPct     float64 `json:"quantity_lift"`
	RecommendedDiscount float64 `json:"recommended_discount"`
}

// PromotionalImpact is the full promotional-response model. Lift values are
// non-negative magnitudes: the signal is "promotions help", not statistical
// significance.
type PromotionalImpact struct {
	Overall  OverallPromoImpact            `json:"overall_impact"`
	Segments map[string]SegmentPromoImpact `json:"segment_impact"`
}

// Analyzer exposes the derived profiles. Implementations are read-only after
// construction; the data-backed variant republishes a fully built snapshot
// on refresh. The static variant serves documented defaults so that pricing
// never blocks on missing market data.
type Analyzer interface {
	SegmentProfiles() map[string]SegmentProfile
	Elasticity(sku string) (ElasticityModel, bool)
	Seasonality() SeasonalityProfile
	PromotionalImpact() PromotionalImpact
	TransactionCount(sku string) int
}

// ProfileFor resolves a segment profile by name, ignoring case. Data-backed
// profiles are keyed by cluster names, fallback profiles by segment labels.
func ProfileFor(profiles map[string]SegmentProfile, name string) (SegmentProfile, bool) {
	for key, profile := range profiles {
		if strings.EqualFold(key, name) {
			return profile, true
		}
	}
	return SegmentProfile{}, false
}

// DefaultElasticity is the documented fallback used when a SKU has no
// elasticity model.
func DefaultElasticity() ElasticityModel {
	return ElasticityModel{
		Coefficient:       -0.8,
		DemandSensitivity: "Medium",
		OptimalStrategy:   "Moderate increase",
	}
}
