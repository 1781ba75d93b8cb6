package service

import (
	"math"
	"sort"

	analyticsdomain "github.com/smallbiznis/quotient/internal/analytics/domain"
	historydomain "github.com/smallbiznis/quotient/internal/history/domain"
)

const (
	// minElasticityRows is the minimum history a SKU needs before an
	// elasticity coefficient is derived. Thinner SKUs are omitted, not
	// zero-filled.
	minElasticityRows = 10
	elasticityBins    = 5
	minUsableBins     = 3
)

type priceBin struct {
	meanPrice float64
	quantity  float64
}

// modelElasticity buckets each SKU's unit prices into quantile bins and
// averages the demand response across consecutive bins.
func modelElasticity(rows []historydomain.Transaction) map[string]analyticsdomain.ElasticityModel {
	bySKU := make(map[string][]historydomain.Transaction)
	for _, t := range rows {
		bySKU[t.SKU] = append(bySKU[t.SKU], t)
	}

	models := make(map[string]analyticsdomain.ElasticityModel)
	for sku, skuRows := range bySKU {
		if len(skuRows) < minElasticityRows {
			continue
		}
		if model, ok := elasticityForSKU(skuRows); ok {
			models[sku] = model
		}
	}
	return models
}

func elasticityForSKU(rows []historydomain.Transaction) (analyticsdomain.ElasticityModel, bool) {
	sorted := append([]historydomain.Transaction(nil), rows...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].UnitPrice < sorted[j].UnitPrice })

	bins := quantileBins(sorted, elasticityBins)
	if len(bins) < minUsableBins {
		return analyticsdomain.ElasticityModel{}, false
	}

	var sum float64
	var pairs int
	for i := 1; i < len(bins); i++ {
		prev, cur := bins[i-1], bins[i]
		if prev.meanPrice == 0 || prev.quantity == 0 {
			continue
		}
		priceChange := (cur.meanPrice - prev.meanPrice) / prev.meanPrice
		if priceChange == 0 {
			continue
		}
		demandChange := (cur.quantity - prev.quantity) / prev.quantity
		sum += demandChange / priceChange
		pairs++
	}
	if pairs == 0 {
		return analyticsdomain.ElasticityModel{}, false
	}

	coefficient := round3(sum / float64(pairs))

	sensitivity := "Low"
	if math.Abs(coefficient) > 1 {
		sensitivity = "High"
	}
	strategy := "Increase"
	if coefficient < -1 {
		strategy = "Decrease"
	}

	minPrice, maxPrice := bins[0].meanPrice, bins[0].meanPrice
	optimal, peak := bins[0].meanPrice, bins[0].quantity
	for _, b := range bins[1:] {
		if b.meanPrice < minPrice {
			minPrice = b.meanPrice
		}
		if b.meanPrice > maxPrice {
			maxPrice = b.meanPrice
		}
		if b.quantity > peak {
			optimal, peak = b.meanPrice, b.quantity
		}
	}

	return analyticsdomain.ElasticityModel{
		Coefficient:       coefficient,
		DemandSensitivity: sensitivity,
		OptimalStrategy:   strategy,
		PriceRange: analyticsdomain.PriceRange{
			Min:     round2(minPrice),
			Max:     round2(maxPrice),
			Optimal: round2(optimal),
		},
	}, true
}

// quantileBins splits price-sorted rows into equal-count bins, merging
// adjacent bins whose mean prices collapse to the same value.
func quantileBins(sorted []historydomain.Transaction, n int) []priceBin {
	if len(sorted) == 0 {
		return nil
	}
	if n > len(sorted) {
		n = len(sorted)
	}

	var bins []priceBin
	size := len(sorted) / n
	for i := 0; i < n; i++ {
		start := i * size
		end := start + size
		if i == n-1 {
			end = len(sorted)
		}
		var price, quantity float64
		for _, t := range sorted[start:end] {
			price += t.UnitPrice
			quantity += float64(t.Quantity)
		}
		mean := price / float64(end-start)
		if len(bins) > 0 && bins[len(bins)-1].meanPrice == mean {
			bins[len(bins)-1].quantity += quantity
			continue
		}
		bins = append(bins, priceBin{meanPrice: mean, quantity: quantity})
	}
	return bins
}
