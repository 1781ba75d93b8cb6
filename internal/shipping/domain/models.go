// Package domain defines the shipping estimator contract.
package domain

import (
	"context"
	"errors"

	basketdomain "github.com/smallbiznis/quotient/internal/basket/domain"
)

var (
	ErrUnknownZone = errors.New("unknown_zone")
	ErrNoSKUs      = errors.New("no_skus")
)

// Zone selects a shipping rate table. ZoneAuto picks domestic or
// international from the basket; express is only used when a caller asks
// for it.
type Zone string

const (
	ZoneAuto          Zone = ""
	ZoneDomestic      Zone = "domestic"
	ZoneInternational Zone = "international"
	ZoneExpress       Zone = "express"
)

// ParseZone validates a caller-supplied zone override.
func ParseZone(v string) (Zone, error) {
	z := Zone(v)
	switch z {
	case ZoneAuto, ZoneDomestic, ZoneInternational, ZoneExpress:
		return z, nil
	default:
		return "", ErrUnknownZone
	}
}

// Breakdown itemizes an estimate. Every charge lives here; the estimate
// total is exactly the sum of these components.
type Breakdown struct {
	BaseShipping   float64 `json:"base_shipping"`
	WeightCharges  float64 `json:"weight_charges"`
	HandlingFee    float64 `json:"handling_fee"`
	FuelSurcharge  float64 `json:"fuel_surcharge"`
	Insurance      float64 `json:"insurance"`
	CustomsFee     float64 `json:"customs_fee"`
	TariffEstimate float64 `json:"tariff_estimate"`
}

// Total sums the breakdown components.
func (b Breakdown) Total() float64 {
	return b.BaseShipping + b.WeightCharges + b.HandlingFee +
		b.FuelSurcharge + b.Insurance + b.CustomsFee + b.TariffEstimate
}

// CarrierOption is one ranked shipping alternative.
type CarrierOption struct {
	Carrier     string  `json:"carrier"`
	Service     string  `json:"service"`
	Cost        float64 `json:"cost"`
	TransitDays string  `json:"days"`
}

// Estimate is the full shipping quote for a basket.
type Estimate struct {
	TotalCost         float64         `json:"total_cost"`
	Breakdown         Breakdown       `json:"breakdown"`
	EstimatedWeightKg float64         `json:"estimated_weight"`
	InferredSKUs      []string        `json:"inferred_skus,omitempty"`
	Zone              Zone            `json:"zone"`
	CarrierOptions    []CarrierOption `json:"carrier_options"`
}

// Carrier describes one carrier in the directory listing.
type Carrier struct {
	Name     string   `json:"name"`
	Services []string `json:"services"`
	Coverage string   `json:"coverage"`
}

// SourcingOption is the evaluated cost of fulfilling from one location.
type SourcingOption struct {
	TotalCost      float64 `json:"total_cost"`
	DeliveryDays   int     `json:"delivery_days"`
	AvailableItems int     `json:"available_items"`
}

// SourcingRecommendation ranks candidate fulfillment locations.
type SourcingRecommendation struct {
	RecommendedSupplier string                    `json:"recommended_supplier"`
	CostSpread          float64                   `json:"cost_spread"`
	SupplierOptions     map[string]SourcingOption `json:"supplier_options"`
	OptimizationFactors []string                  `json:"optimization_factors"`
}

type Service interface {
	Estimate(ctx context.Context, basket basketdomain.Basket, zone Zone) (Estimate, error)
	InferWeights(ctx context.Context, skus []string) (map[string]float64, error)
	OptimizeSourcing(ctx context.Context, basket basketdomain.Basket) (SourcingRecommendation, error)
	Carriers(ctx context.Context) []Carrier
}
