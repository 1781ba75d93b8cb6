package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ZoneRate is the base plus per-kilogram rate for one shipping zone.
type ZoneRate struct {
	Base  float64 `mapstructure:"base"`
	PerKg float64 `mapstructure:"perKg"`
}

// CarrierVariant derives one carrier option from the computed standard cost.
type CarrierVariant struct {
	Carrier     string  `mapstructure:"carrier"`
	Service     string  `mapstructure:"service"`
	Multiplier  float64 `mapstructure:"multiplier"`
	TransitDays string  `mapstructure:"transitDays"`
}

// CarrierInfo describes a carrier in the static directory listing.
type CarrierInfo struct {
	Name     string   `mapstructure:"name"`
	Services []string `mapstructure:"services"`
	Coverage string   `mapstructure:"coverage"`
}

// SourcingRegion is a candidate fulfillment location with its distance
// multiplier on the standard shipping estimate.
type SourcingRegion struct {
	Name               string  `mapstructure:"name"`
	DistanceMultiplier float64 `mapstructure:"distanceMultiplier"`
}

// ShippingRates holds every table the shipping estimator reads.
type ShippingRates struct {
	Zones             map[string]ZoneRate `mapstructure:"zones"`
	CategoryWeights   map[string]float64  `mapstructure:"categoryWeights"`
	DefaultWeightKg   float64             `mapstructure:"defaultWeightKg"`
	HeavyThresholdKg  float64             `mapstructure:"heavyThresholdKg"`
	HeavyHandlingFee  float64             `mapstructure:"heavyHandlingFee"`
	LightHandlingFee  float64             `mapstructure:"lightHandlingFee"`
	FuelSurchargePct  float64             `mapstructure:"fuelSurchargePct"`
	InsurancePct      float64             `mapstructure:"insurancePct"`
	CustomsFee        float64             `mapstructure:"customsFee"`
	TariffEstimatePct float64             `mapstructure:"tariffEstimatePct"`
	Carriers          []CarrierVariant    `mapstructure:"carriers"`
	CarrierDirectory  []CarrierInfo       `mapstructure:"carrierDirectory"`
	SourcingRegions   []SourcingRegion    `mapstructure:"sourcingRegions"`
}

// TaxExemption marks one (category, country) pair as tax-free. It takes
// precedence over the country rate.
type TaxExemption struct {
	Category string `mapstructure:"category"`
	Country  string `mapstructure:"country"`
}

type TaxRates struct {
	ByCountry  map[string]float64 `mapstructure:"byCountry"`
	Default    float64            `mapstructure:"default"`
	Exemptions []TaxExemption     `mapstructure:"exemptions"`
}

type TariffRates struct {
	ByHSCode map[string]float64 `mapstructure:"byHsCode"`
	Default  float64            `mapstructure:"default"`
}

type ServiceFees struct {
	BySegment map[string]float64 `mapstructure:"bySegment"`
	Default   float64            `mapstructure:"default"`
}

// InvoiceFees are the flat dynamic-field amounts.
type InvoiceFees struct {
	FragileHandling         float64 `mapstructure:"fragileHandling"`
	InternationalProcessing float64 `mapstructure:"internationalProcessing"`
	RushProcessing          float64 `mapstructure:"rushProcessing"`
}

// PromotionRule is one eligibility rule. Segment empty means any segment.
// Eligible rules apply additively.
type PromotionRule struct {
	Code        string  `mapstructure:"code"`
	Description string  `mapstructure:"description"`
	Segment     string  `mapstructure:"segment"`
	MinSubtotal float64 `mapstructure:"minSubtotal"`
	DiscountPct float64 `mapstructure:"discountPct"`
}

// Rates bundles every pricing, shipping and invoicing rate table.
type Rates struct {
	Tax         TaxRates        `mapstructure:"tax"`
	Tariffs     TariffRates     `mapstructure:"tariffs"`
	ServiceFees ServiceFees     `mapstructure:"serviceFees"`
	Fees        InvoiceFees     `mapstructure:"fees"`
	Shipping    ShippingRates   `mapstructure:"shipping"`
	Promotions  []PromotionRule `mapstructure:"promotions"`
}

func DefaultRates() Rates {
	return Rates{
		Tax: TaxRates{
			ByCountry: map[string]float64{
				"US": 0.0875,
				"CA": 0.13,
				"GB": 0.20,
				"DE": 0.19,
			},
			Default: 0.10,
			Exemptions: []TaxExemption{
				{Category: "reagents", Country: "US"},
			},
		},
		Tariffs: TariffRates{
			ByHSCode: map[string]float64{
				"3822": 0.035, // reagents
				"9027": 0.025, // instruments
				"3926": 0.045, // plastic consumables
				"7020": 0.030, // glass equipment
			},
			Default: 0.05,
		},
		ServiceFees: ServiceFees{
			BySegment: map[string]float64{
				"academic":           0.02,
				"biotech_startup":    0.025,
				"pharma_enterprise":  0.015,
				"research_institute": 0.02,
			},
			Default: 0.025,
		},
		Fees: InvoiceFees{
			FragileHandling:         25.0,
			InternationalProcessing: 35.0,
			RushProcessing:          0.0,
		},
		Shipping: ShippingRates{
			Zones: map[string]ZoneRate{
				"domestic":      {Base: 8.50, PerKg: 2.20},
				"international": {Base: 25.00, PerKg: 4.50},
				"express":       {Base: 15.00, PerKg: 3.80},
			},
			CategoryWeights: map[string]float64{
				"reagents":      0.5,
				"consumables":   0.2,
				"chemicals":     1.2,
				"lab_equipment": 5.0,
				"instruments":   15.0,
			},
			DefaultWeightKg:   1.0,
			HeavyThresholdKg:  10.0,
			HeavyHandlingFee:  5.0,
			LightHandlingFee:  2.5,
			FuelSurchargePct:  0.08,
			InsurancePct:      0.01,
			CustomsFee:        15.0,
			TariffEstimatePct: 0.05,
			Carriers: []CarrierVariant{
				{Carrier: "FedEx Ground", Service: "Standard", Multiplier: 1.0, TransitDays: "3-5"},
				{Carrier: "FedEx Express", Service: "Overnight", Multiplier: 1.8, TransitDays: "1"},
				{Carrier: "UPS Ground", Service: "Standard", Multiplier: 0.95, TransitDays: "3-5"},
			},
			CarrierDirectory: []CarrierInfo{
				{Name: "FedEx", Services: []string{"Ground", "Express Overnight", "2Day", "International"}, Coverage: "Global"},
				{Name: "UPS", Services: []string{"Ground", "Next Day Air", "2nd Day Air", "Worldwide Express"}, Coverage: "Global"},
				{Name: "DHL", Services: []string{"Express", "Economy", "Parcel"}, Coverage: "International"},
			},
			SourcingRegions: []SourcingRegion{
				{Name: "US-East", DistanceMultiplier: 1.0},
				{Name: "US-West", DistanceMultiplier: 1.2},
				{Name: "EU-Germany", DistanceMultiplier: 2.5},
				{Name: "Asia-Singapore", DistanceMultiplier: 3.0},
			},
		},
		Promotions: []PromotionRule{
			{Code: "ACADEMIC10", Description: "Academic discount", Segment: "academic", MinSubtotal: 100, DiscountPct: 0.10},
			{Code: "BULK5", Description: "Bulk order discount", MinSubtotal: 1000, DiscountPct: 0.05},
		},
	}
}

// RatesHolder publishes the current rate tables and hot-reloads them when
// the backing file changes. Readers always see a complete, validated table.
type RatesHolder struct {
	current atomic.Value // holds Rates
}

func NewRatesHolder() (*RatesHolder, error) {
	v := viper.New()

	v.SetConfigName("rates")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/quotient/config") // Volume-mounted config
	v.AddConfigPath("/etc/quotient")            // System config
	v.AddConfigPath(".")                        // Current directory (dev mode)

	v.SetEnvPrefix("QUOTIENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := DefaultRates()
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// no rates file, run on the built-in tables
	} else {
		if err := v.UnmarshalKey("rates", &cfg); err != nil {
			return nil, err
		}
	}
	if err := validateRates(cfg); err != nil {
		return nil, err
	}

	holder := &RatesHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated := DefaultRates()
		if err := v.UnmarshalKey("rates", &updated); err != nil {
			log.Printf("[rates] reload failed: %v", err)
			return
		}
		if err := validateRates(updated); err != nil {
			log.Printf("[rates] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[rates] reloaded from %s", e.Name)
	})

	return holder, nil
}

// StaticRates wraps a fixed table, for tests.
func StaticRates(r Rates) *RatesHolder {
	holder := &RatesHolder{}
	holder.current.Store(r)
	return holder
}

func (h *RatesHolder) Get() Rates {
	return h.current.Load().(Rates)
}

func validateRates(r Rates) error {
	for _, zone := range []string{"domestic", "international", "express"} {
		if _, ok := r.Shipping.Zones[zone]; !ok {
			return errors.New("rates.shipping.zones missing zone: " + zone)
		}
	}
	if len(r.Shipping.Carriers) == 0 {
		return errors.New("rates.shipping.carriers cannot be empty")
	}
	if len(r.Shipping.SourcingRegions) == 0 {
		return errors.New("rates.shipping.sourcingRegions cannot be empty")
	}
	if r.Tax.Default <= 0 {
		return errors.New("rates.tax.default must be positive")
	}
	if r.Tariffs.Default <= 0 {
		return errors.New("rates.tariffs.default must be positive")
	}
	if r.ServiceFees.Default <= 0 {
		return errors.New("rates.serviceFees.default must be positive")
	}
	return nil
}
