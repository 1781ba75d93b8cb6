package service

import (
	"math"
	"strings"

	"github.com/smallbiznis/quotient/internal/config"
	customerdomain "github.com/smallbiznis/quotient/internal/customer/domain"
	invoicedomain "github.com/smallbiznis/quotient/internal/invoice/domain"
)

// taxRate resolves the rate for a (category, country) pair. Exemptions
// take precedence over the country rate.
func taxRate(rates config.TaxRates, category, country string) float64 {
	country = strings.ToUpper(strings.TrimSpace(country))
	for _, exemption := range rates.Exemptions {
		if strings.EqualFold(exemption.Category, category) && strings.EqualFold(exemption.Country, country) {
			return 0.0
		}
	}
	if rate, ok := rates.ByCountry[country]; ok {
		return rate
	}
	return rates.Default
}

// tariffRate resolves the rate for an HS code, defaulting when the code is
// absent or unmapped.
func tariffRate(rates config.TariffRates, hsCode string) float64 {
	if rate, ok := rates.ByHSCode[hsCode]; ok {
		return rate
	}
	return rates.Default
}

// evaluatePromotions returns every rule the basket is eligible for. Rules
// apply additively. A non-nil codes list restricts which rules are
// considered.
func evaluatePromotions(rules []config.PromotionRule, segment customerdomain.Segment, subtotal float64, codes []string) []invoicedomain.AppliedPromotion {
	requested := make(map[string]bool, len(codes))
	for _, code := range codes {
		requested[strings.ToUpper(strings.TrimSpace(code))] = true
	}

	applied := make([]invoicedomain.AppliedPromotion, 0, len(rules))
	for _, rule := range rules {
		if len(requested) > 0 && !requested[strings.ToUpper(rule.Code)] {
			continue
		}
		if rule.Segment != "" && !strings.EqualFold(rule.Segment, string(segment)) {
			continue
		}
		if subtotal < rule.MinSubtotal {
			continue
		}
		applied = append(applied, invoicedomain.AppliedPromotion{
			Code:           rule.Code,
			Description:    rule.Description,
			DiscountAmount: round2(subtotal * rule.DiscountPct),
		})
	}
	return applied
}

func totalDiscount(applied []invoicedomain.AppliedPromotion) float64 {
	var total float64
	for _, promo := range applied {
		total += promo.DiscountAmount
	}
	return round2(total)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
