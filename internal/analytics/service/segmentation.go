package service

import (
	"sort"

	analyticsdomain "github.com/smallbiznis/quotient/internal/analytics/domain"
	historydomain "github.com/smallbiznis/quotient/internal/history/domain"
)

const (
	clusterCount = 5
	// marginTarget is the margin below which a retention discount is
	// recommended, proportional to the shortfall.
	marginTarget = 0.30
	// sensitivityOffset avoids a division blowup for near-zero margins.
	sensitivityOffset = 0.1
)

var clusterNames = []string{"Price Sensitive", "High Value", "Frequent Buyers", "Premium", "Bulk Purchasers"}

type customerMetrics struct {
	totalRevenue     float64
	avgOrderValue    float64
	orderFrequency   float64
	totalQuantity    float64
	avgQuantity      float64
	avgMargin        float64
	productDiversity float64
	lifetimeDays     float64
}

// segmentCustomers derives behavioral segment profiles by clustering
// per-customer aggregates. Empty input falls back to the canned profiles.
func segmentCustomers(rows []historydomain.Transaction) map[string]analyticsdomain.SegmentProfile {
	if len(rows) == 0 {
		return fallbackSegmentProfiles()
	}

	metrics := aggregateCustomers(rows)
	if len(metrics) == 0 {
		return fallbackSegmentProfiles()
	}

	ids := make([]string, 0, len(metrics))
	for id := range metrics {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	features := make([][]float64, len(ids))
	for i, id := range ids {
		m := metrics[id]
		features[i] = []float64{
			m.totalRevenue, m.avgOrderValue, m.orderFrequency, m.totalQuantity,
			m.avgQuantity, m.avgMargin, m.productDiversity, m.lifetimeDays,
		}
	}

	assignments := kMeans(normalize(features), clusterCount)

	profiles := make(map[string]analyticsdomain.SegmentProfile, clusterCount)
	for cluster, name := range clusterNames {
		var members []customerMetrics
		for i, assigned := range assignments {
			if assigned == cluster {
				members = append(members, metrics[ids[i]])
			}
		}
		if len(members) == 0 {
			continue
		}

		var revenue, orderValue, margin, frequency float64
		for _, m := range members {
			revenue += m.totalRevenue
			orderValue += m.avgOrderValue
			margin += m.avgMargin
			frequency += m.orderFrequency
		}
		n := float64(len(members))
		avgMargin := margin / n

		profiles[name] = analyticsdomain.SegmentProfile{
			AvgRevenue:          round2(revenue / n),
			AvgOrderValue:       round2(orderValue / n),
			PriceSensitivity:    round3(1 / (avgMargin + sensitivityOffset)),
			LoyaltyScore:        round2(frequency / n),
			RecommendedDiscount: round2(max(0, (marginTarget-avgMargin)*100)),
		}
	}

	if len(profiles) == 0 {
		return fallbackSegmentProfiles()
	}
	return profiles
}

func aggregateCustomers(rows []historydomain.Transaction) map[string]customerMetrics {
	type acc struct {
		revenue    float64
		quantity   float64
		margin     float64
		count      int
		categories map[string]struct{}
		first, last int64
	}

	accs := make(map[string]*acc)
	for _, t := range rows {
		a, ok := accs[t.CustomerID]
		if !ok {
			a = &acc{categories: make(map[string]struct{}), first: t.Date.Unix(), last: t.Date.Unix()}
			accs[t.CustomerID] = a
		}
		a.revenue += t.Revenue()
		a.quantity += float64(t.Quantity)
		a.margin += t.ProfitMargin()
		a.count++
		a.categories[t.Category] = struct{}{}
		if ts := t.Date.Unix(); ts < a.first {
			a.first = ts
		} else if ts > a.last {
			a.last = ts
		}
	}

	metrics := make(map[string]customerMetrics, len(accs))
	for id, a := range accs {
		n := float64(a.count)
		metrics[id] = customerMetrics{
			totalRevenue:     a.revenue,
			avgOrderValue:    a.revenue / n,
			orderFrequency:   n,
			totalQuantity:    a.quantity,
			avgQuantity:      a.quantity / n,
			avgMargin:        a.margin / n,
			productDiversity: float64(len(a.categories)),
			lifetimeDays:     float64(a.last-a.first) / 86400,
		}
	}
	return metrics
}
