package service

import (
	analyticsdomain "github.com/smallbiznis/quotient/internal/analytics/domain"
	historydomain "github.com/smallbiznis/quotient/internal/history/domain"
)

const (
	// syntheticMarkup is the assumed markup baseline: a sale counts as
	// discounted when the unit price sits more than discountThresholdPct
	// below 1.2x the catalog base price.
	syntheticMarkup      = 1.2
	discountThresholdPct = 5.0

	minDiscountPct = 5.0
	maxDiscountPct = 25.0

	minSegmentRows = 10
)

type promoRow struct {
	discountPct float64
	quantity    float64
	revenue     float64
	segment     string
}

// modelPromotionalImpact measures how discounted sales performed against
// full-price sales, overall and per segment. Lifts are clamped at zero
// before emission.
func modelPromotionalImpact(rows []historydomain.Transaction) analyticsdomain.PromotionalImpact {
	if len(rows) == 0 {
		return fallbackPromotionalImpact()
	}

	promoRows := make([]promoRow, 0, len(rows))
	for _, t := range rows {
		baseline := t.BasePrice * syntheticMarkup
		var discount float64
		if baseline > 0 {
			discount = max(0, (baseline-t.UnitPrice)/baseline*100)
		}
		promoRows = append(promoRows, promoRow{
			discountPct: discount,
			quantity:    float64(t.Quantity),
			revenue:     t.Revenue(),
			segment:     t.Segment,
		})
	}

	impact := analyticsdomain.PromotionalImpact{
		Overall:  overallImpact(promoRows),
		Segments: make(map[string]analyticsdomain.SegmentPromoImpact),
	}

	bySegment := make(map[string][]promoRow)
	for _, r := range promoRows {
		bySegment[r.segment] = append(bySegment[r.segment], r)
	}
	for segment, segmentRows := range bySegment {
		impact.Segments[segment] = segmentImpact(segmentRows)
	}
	return impact
}

func overallImpact(rows []promoRow) analyticsdomain.OverallPromoImpact {
	with, without := splitByDiscount(rows)
	if len(with) == 0 || len(without) == 0 {
		return fallbackPromotionalImpact().Overall
	}

	avgRevenueWith := meanRevenue(with)
	avgRevenueWithout := meanRevenue(without)
	var lift float64
	if avgRevenueWithout > 0 {
		lift = (avgRevenueWith - avgRevenueWithout) / avgRevenueWithout * 100
	}

	rng := optimalDiscountRange(rows)
	return analyticsdomain.OverallPromoImpact{
		AvgOrderSizeWithDiscount:    round2(meanQuantity(with)),
		AvgOrderSizeWithoutDiscount: round2(meanQuantity(without)),
		RevenueLiftPct:              round2(max(0, lift)),
		OptimalDiscountRange:        rng,
	}
}

func segmentImpact(rows []promoRow) analyticsdomain.SegmentPromoImpact {
	with, without := splitByDiscount(rows)
	if len(with) == 0 || len(without) == 0 || len(rows) < minSegmentRows {
		return fallbackSegmentPromoImpact()
	}

	var lift float64
	if q := meanQuantity(without); q > 0 {
		lift = (meanQuantity(with)/q - 1) * 100
	}

	return analyticsdomain.SegmentPromoImpact{
		ResponseRate:        round3(float64(len(with)) / float64(len(rows))),
		QuantityLiftPct:     round2(max(0, lift)),
		RecommendedDiscount: clamp(optimalDiscount(rows), minDiscountPct, 20),
	}
}

func splitByDiscount(rows []promoRow) (with, without []promoRow) {
	for _, r := range rows {
		if r.discountPct > discountThresholdPct {
			with = append(with, r)
		} else {
			without = append(without, r)
		}
	}
	return with, without
}

// optimalDiscountRange bins observed discounts and picks the revenue-
// maximizing bin, clamped to [5, 25] percent.
func optimalDiscountRange(rows []promoRow) analyticsdomain.DiscountRange {
	const bins = 10
	left, right := discountBinPeak(rows, bins, func(r promoRow) float64 { return r.revenue })
	if right == 0 {
		return analyticsdomain.DiscountRange{Min: minDiscountPct, Max: 15}
	}
	return analyticsdomain.DiscountRange{
		Min: max(minDiscountPct, round2(left)),
		Max: min(maxDiscountPct, round2(right)),
	}
}

// optimalDiscount picks the quantity-maximizing discount bin midpoint.
func optimalDiscount(rows []promoRow) float64 {
	const bins = 5
	left, right := discountBinPeak(rows, bins, func(r promoRow) float64 { return r.quantity })
	if right == 0 {
		return 10
	}
	return round2((left + right) / 2)
}

func discountBinPeak(rows []promoRow, bins int, value func(promoRow) float64) (left, right float64) {
	var maxDiscount float64
	for _, r := range rows {
		if r.discountPct > maxDiscount {
			maxDiscount = r.discountPct
		}
	}
	if maxDiscount == 0 {
		return 0, 0
	}

	width := maxDiscount / float64(bins)
	sums := make([]float64, bins)
	counts := make([]int, bins)
	for _, r := range rows {
		idx := int(r.discountPct / width)
		if idx >= bins {
			idx = bins - 1
		}
		sums[idx] += value(r)
		counts[idx]++
	}

	best, bestMean := -1, 0.0
	for i := range sums {
		if counts[i] == 0 {
			continue
		}
		mean := sums[i] / float64(counts[i])
		if best < 0 || mean > bestMean {
			best, bestMean = i, mean
		}
	}
	if best < 0 {
		return 0, 0
	}
	return float64(best) * width, float64(best+1) * width
}

func meanQuantity(rows []promoRow) float64 {
	var sum float64
	for _, r := range rows {
		sum += r.quantity
	}
	return sum / float64(len(rows))
}

func meanRevenue(rows []promoRow) float64 {
	var sum float64
	for _, r := range rows {
		sum += r.revenue
	}
	return sum / float64(len(rows))
}
