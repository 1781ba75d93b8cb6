// Package domain defines the pricing optimizer contract.
package domain

import (
	"context"
	"errors"

	analyticsdomain "github.com/smallbiznis/quotient/internal/analytics/domain"
	catalogdomain "github.com/smallbiznis/quotient/internal/catalog/domain"
	customerdomain "github.com/smallbiznis/quotient/internal/customer/domain"
)

var (
	ErrInvalidQuantity = errors.New("invalid_quantity")
	ErrInvalidPrice    = errors.New("invalid_price")
	ErrNoProducts      = errors.New("no_products")
)

// TargetMetric selects what the optimizer maximizes.
type TargetMetric string

const (
	TargetRevenue TargetMetric = "revenue"
	TargetMargin  TargetMetric = "margin"
)

// OptimizeRequest asks for one optimized price. Segment is a free-form
// pricing segment (academic, enterprise, government, startup,
// pharmaceutical); unknown segments price at the neutral multiplier rather
// than failing, since this is a rate-table lookup, not request validation.
type OptimizeRequest struct {
	SKU          string       `json:"sku"`
	Segment      string       `json:"segment"`
	Quantity     int          `json:"quantity"`
	CurrentPrice float64      `json:"current_price"`
	TargetMetric TargetMetric `json:"target_metric,omitempty"`
}

func (r OptimizeRequest) Validate() error {
	if r.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if r.CurrentPrice <= 0 {
		return ErrInvalidPrice
	}
	return nil
}

// Insights carries the analyzer signals behind an optimization.
type Insights struct {
	SeasonalityFactor  string                          `json:"seasonality_factor"`
	CustomerSegment    *analyticsdomain.SegmentProfile `json:"customer_segment_profile,omitempty"`
	ElasticityCategory string                          `json:"elasticity_category"`
	OptimalStrategy    string                          `json:"optimal_strategy"`
}

// Projection compares scenario revenue with demand response bounded to
// plus or minus twenty percent.
type Projection struct {
	CurrentScenario      float64 `json:"current_scenario"`
	OptimizedScenario    float64 `json:"optimized_scenario"`
	MarginImprovementPct float64 `json:"margin_improvement_pct"`
}

// OptimizeResult is the single optimized price with supporting metrics.
type OptimizeResult struct {
	OptimizedPrice    float64    `json:"optimized_price"`
	ExpectedMargin    float64    `json:"expected_margin"`
	PriceElasticity   float64    `json:"price_elasticity"`
	Confidence        float64    `json:"confidence"`
	Recommendation    string     `json:"recommendation"`
	AdvancedInsights  Insights   `json:"advanced_insights"`
	RevenueProjection Projection `json:"revenue_projection"`
}

// Recommendation is a per-product price suggestion for a known customer.
type Recommendation struct {
	SKU               string  `json:"sku"`
	RecommendedPrice  float64 `json:"recommended_price"`
	ConfidenceScore   float64 `json:"confidence_score"`
	MarginImprovement float64 `json:"margin_improvement"`
	Reasoning         string  `json:"reasoning"`
}

// PricePoint is one sample on a demand curve preview.
type PricePoint struct {
	Price           float64 `json:"price"`
	ProjectedDemand float64 `json:"projected_demand"`
	Revenue         float64 `json:"revenue"`
}

// ElasticityCurve previews demand across candidate price points.
type ElasticityCurve struct {
	SKU          string       `json:"sku"`
	Coefficient  float64      `json:"elasticity_coefficient"`
	Curve        []PricePoint `json:"price_demand_curve"`
	OptimalPrice float64      `json:"optimal_price"`
}

// MarginAnalysis summarizes the uplift of recommended prices over catalog
// base prices for a set of products.
type MarginAnalysis struct {
	CurrentMarginPct   float64  `json:"current_margin_pct"`
	OptimizedMarginPct float64  `json:"optimized_margin_pct"`
	MarginImprovement  float64  `json:"margin_improvement"`
	RevenueUplift      float64  `json:"revenue_uplift"`
	CustomerSegment    string   `json:"customer_segment"`
	Opportunities      []string `json:"optimization_opportunities"`
}

type Service interface {
	Optimize(ctx context.Context, req OptimizeRequest) (OptimizeResult, error)
	Recommend(ctx context.Context, customer customerdomain.Customer, products []catalogdomain.Product) ([]Recommendation, error)
	ElasticityCurve(ctx context.Context, sku string, priceRange []float64) (ElasticityCurve, error)
	AnalyzeMargins(ctx context.Context, customer customerdomain.Customer, products []catalogdomain.Product) (MarginAnalysis, error)
}
