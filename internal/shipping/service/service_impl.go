package service

import (
	"context"
	"math"
	"sort"
	"strings"

	basketdomain "github.com/smallbiznis/quotient/internal/basket/domain"
	catalogdomain "github.com/smallbiznis/quotient/internal/catalog/domain"
	"github.com/smallbiznis/quotient/internal/config"
	shippingdomain "github.com/smallbiznis/quotient/internal/shipping/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ServiceParam struct {
	fx.In

	Log   *zap.Logger
	Rates *config.RatesHolder
}

type Service struct {
	log   *zap.Logger
	rates *config.RatesHolder
}

func New(p ServiceParam) shippingdomain.Service {
	return &Service{
		log:   p.Log.Named("shipping.service"),
		rates: p.Rates,
	}
}

// Estimate computes the zone-based cost breakdown for a basket. zone
// overrides the auto-selected rate table; pass ZoneAuto for the default
// domestic/international selection.
func (s *Service) Estimate(_ context.Context, basket basketdomain.Basket, zone shippingdomain.Zone) (shippingdomain.Estimate, error) {
	if err := basket.Validate(); err != nil {
		return shippingdomain.Estimate{}, err
	}

	rates := s.rates.Get().Shipping

	totalWeight, inferredSKUs := s.resolveWeights(basket, rates)

	international := basket.International()
	if zone == shippingdomain.ZoneAuto {
		zone = shippingdomain.ZoneDomestic
		if international {
			zone = shippingdomain.ZoneInternational
		}
	}
	zoneRate, ok := rates.Zones[string(zone)]
	if !ok {
		return shippingdomain.Estimate{}, shippingdomain.ErrUnknownZone
	}

	itemValue := basket.ItemValue()

	breakdown := shippingdomain.Breakdown{
		BaseShipping:  round2(zoneRate.Base),
		WeightCharges: round2(totalWeight * zoneRate.PerKg),
	}
	breakdown.HandlingFee = rates.LightHandlingFee
	if totalWeight > rates.HeavyThresholdKg {
		breakdown.HandlingFee = rates.HeavyHandlingFee
	}
	breakdown.FuelSurcharge = round2((breakdown.BaseShipping + breakdown.WeightCharges) * rates.FuelSurchargePct)
	breakdown.Insurance = round2(itemValue * rates.InsurancePct)
	if international {
		breakdown.CustomsFee = rates.CustomsFee
		breakdown.TariffEstimate = round2(itemValue * rates.TariffEstimatePct)
	}

	total := breakdown.Total()

	options := make([]shippingdomain.CarrierOption, 0, len(rates.Carriers))
	for _, carrier := range rates.Carriers {
		options = append(options, shippingdomain.CarrierOption{
			Carrier:     carrier.Carrier,
			Service:     carrier.Service,
			Cost:        round2(total * carrier.Multiplier),
			TransitDays: carrier.TransitDays,
		})
	}

	return shippingdomain.Estimate{
		TotalCost:         round2(total),
		Breakdown:         breakdown,
		EstimatedWeightKg: round2(totalWeight),
		InferredSKUs:      inferredSKUs,
		Zone:              zone,
		CarrierOptions:    options,
	}, nil
}

// resolveWeights sums basket weight, falling back to the category table for
// products without a declared weight.
func (s *Service) resolveWeights(basket basketdomain.Basket, rates config.ShippingRates) (float64, []string) {
	var totalWeight float64
	var inferred []string
	for _, item := range basket.Items {
		unitWeight := rates.DefaultWeightKg
		if item.Product.WeightKg != nil {
			unitWeight = *item.Product.WeightKg
		} else {
			if w, ok := rates.CategoryWeights[string(item.Product.Category)]; ok {
				unitWeight = w
			}
			inferred = append(inferred, item.Product.SKU)
		}
		totalWeight += unitWeight * float64(item.Quantity)
	}
	return totalWeight, inferred
}

// Keyword fragments matched against lowercased SKUs, checked in order. The
// catalog SKU prefixes (REA, EQP, INS) are covered alongside the spelled
// out category terms.
var skuWeightHeuristics = []struct {
	keyword  string
	weightKg float64
}{
	{"reagent", 0.5},
	{"rea-", 0.5},
	{"consumable", 0.2},
	{"con-", 0.2},
	{"chemical", 1.2},
	{"che-", 1.2},
	{"equipment", 5.0},
	{"eqp-", 5.0},
	{"instrument", 15.0},
	{"ins-", 15.0},
}

const minInferredWeightKg = 0.1

// InferWeights estimates a plausible weight per SKU from string heuristics
// alone, for callers that have no catalog record.
func (s *Service) InferWeights(_ context.Context, skus []string) (map[string]float64, error) {
	if len(skus) == 0 {
		return nil, shippingdomain.ErrNoSKUs
	}

	weights := make(map[string]float64, len(skus))
	for _, sku := range skus {
		if strings.TrimSpace(sku) == "" {
			return nil, catalogdomain.ErrInvalidSKU
		}
		weights[sku] = inferWeight(sku)
	}
	return weights, nil
}

func inferWeight(sku string) float64 {
	lower := strings.ToLower(sku)
	weight := 1.0
	for _, h := range skuWeightHeuristics {
		if strings.Contains(lower, h.keyword) {
			weight = h.weightKg
			break
		}
	}
	return math.Max(minInferredWeightKg, round2(weight))
}

// OptimizeSourcing evaluates the standard estimate against each candidate
// sourcing location's distance multiplier and recommends the cheapest.
func (s *Service) OptimizeSourcing(ctx context.Context, basket basketdomain.Basket) (shippingdomain.SourcingRecommendation, error) {
	base, err := s.Estimate(ctx, basket, shippingdomain.ZoneAuto)
	if err != nil {
		return shippingdomain.SourcingRecommendation{}, err
	}

	regions := s.rates.Get().Shipping.SourcingRegions

	options := make(map[string]shippingdomain.SourcingOption, len(regions))
	names := make([]string, 0, len(regions))
	for _, region := range regions {
		options[region.Name] = shippingdomain.SourcingOption{
			TotalCost:      round2(base.TotalCost * region.DistanceMultiplier),
			DeliveryDays:   int(math.Round(2 + region.DistanceMultiplier)),
			AvailableItems: len(basket.Items),
		}
		names = append(names, region.Name)
	}
	sort.Strings(names)

	cheapest, minCost, maxCost := names[0], math.Inf(1), math.Inf(-1)
	for _, name := range names {
		cost := options[name].TotalCost
		if cost < minCost {
			cheapest, minCost = name, cost
		}
		if cost > maxCost {
			maxCost = cost
		}
	}

	s.log.Debug("sourcing optimized",
		zap.String("supplier", cheapest),
		zap.Float64("min_cost", minCost),
		zap.Float64("max_cost", maxCost))

	return shippingdomain.SourcingRecommendation{
		RecommendedSupplier: cheapest,
		CostSpread:          round2(maxCost - minCost),
		SupplierOptions:     options,
		OptimizationFactors: []string{
			"Shipping cost minimization",
			"Delivery time optimization",
			"Inventory availability",
		},
	}, nil
}

// Carriers lists the carrier directory.
func (s *Service) Carriers(_ context.Context) []shippingdomain.Carrier {
	directory := s.rates.Get().Shipping.CarrierDirectory
	carriers := make([]shippingdomain.Carrier, 0, len(directory))
	for _, info := range directory {
		carriers = append(carriers, shippingdomain.Carrier{
			Name:     info.Name,
			Services: append([]string(nil), info.Services...),
			Coverage: info.Coverage,
		})
	}
	return carriers
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
