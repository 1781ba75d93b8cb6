package service

import (
	"math"
	"sort"
	"time"

	analyticsdomain "github.com/smallbiznis/quotient/internal/analytics/domain"
	historydomain "github.com/smallbiznis/quotient/internal/history/domain"
)

const (
	// minSeasonalityMonths guards the decomposition: with fewer distinct
	// months the monthly statistics are meaningless and the fixed domain
	// profile is served instead.
	minSeasonalityMonths = 3
	forecastHorizonDays  = 90
	peakQuantile         = 0.75
)

// analyzeSeasonality decomposes daily revenue into trend, monthly and
// weekday components and projects the next quarter.
func analyzeSeasonality(rows []historydomain.Transaction) analyticsdomain.SeasonalityProfile {
	if len(rows) == 0 {
		return fallbackSeasonality()
	}

	daily := make(map[string]float64)
	monthly := make(map[string]float64)
	byMonth := make(map[time.Month]float64)
	weekday := make(map[string]struct {
		sum   float64
		count int
	})

	for _, t := range rows {
		day := t.Date.Format("2006-01-02")
		daily[day] += t.Revenue()
		monthly[t.Date.Format("2006-01")] += t.Revenue()
		byMonth[t.Date.Month()] += t.Revenue()
	}

	if len(monthly) < minSeasonalityMonths {
		return fallbackSeasonality()
	}

	days := make([]string, 0, len(daily))
	for day := range daily {
		days = append(days, day)
	}
	sort.Strings(days)

	series := make([]float64, len(days))
	for i, day := range days {
		series[i] = daily[day]
		date, _ := time.Parse("2006-01-02", day)
		w := weekday[date.Weekday().String()]
		w.sum += daily[day]
		w.count++
		weekday[date.Weekday().String()] = w
	}

	slope, intercept := linearTrend(series)
	trend := "Stable"
	switch {
	case slope > 0:
		trend = "Increasing"
	case slope < 0:
		trend = "Decreasing"
	}

	weeklyPattern := make(map[string]float64, len(weekday))
	for name, w := range weekday {
		weeklyPattern[name] = round2(w.sum / float64(w.count))
	}

	return analyticsdomain.SeasonalityProfile{
		YearlyTrend:   trend,
		PeakMonths:    peakMonths(byMonth),
		WeeklyPattern: weeklyPattern,
		Forecast90d:   forecast(series, slope, intercept),
		Strength:      seasonalityStrength(monthly),
	}
}

// peakMonths returns the months whose revenue reaches the top quartile.
func peakMonths(byMonth map[time.Month]float64) []time.Month {
	totals := make([]float64, 0, len(byMonth))
	for _, v := range byMonth {
		totals = append(totals, v)
	}
	sort.Float64s(totals)
	threshold := totals[int(float64(len(totals)-1)*peakQuantile)]

	var peaks []time.Month
	for m := time.January; m <= time.December; m++ {
		if v, ok := byMonth[m]; ok && v >= threshold {
			peaks = append(peaks, m)
		}
	}
	return peaks
}

// seasonalityStrength classifies the coefficient of variation of monthly
// revenue: >0.30 High, >0.15 Medium, else Low.
func seasonalityStrength(monthly map[string]float64) string {
	var sum float64
	for _, v := range monthly {
		sum += v
	}
	mean := sum / float64(len(monthly))
	if mean == 0 {
		return "Low"
	}

	var variance float64
	for _, v := range monthly {
		d := v - mean
		variance += d * d
	}
	cv := math.Sqrt(variance/float64(len(monthly))) / mean

	switch {
	case cv > 0.30:
		return "High"
	case cv > 0.15:
		return "Medium"
	default:
		return "Low"
	}
}

func linearTrend(series []float64) (slope, intercept float64) {
	n := float64(len(series))
	if n < 2 {
		if n == 1 {
			return 0, series[0]
		}
		return 0, 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range series {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, sumY / n
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}

// forecast extrapolates the fitted trend over the horizon with a normal
// confidence band derived from the residual spread.
func forecast(series []float64, slope, intercept float64) analyticsdomain.Forecast {
	n := len(series)

	var expected float64
	for d := 1; d <= forecastHorizonDays; d++ {
		predicted := intercept + slope*float64(n-1+d)
		if predicted < 0 {
			predicted = 0
		}
		expected += predicted
	}

	var residual float64
	for i, y := range series {
		d := y - (intercept + slope*float64(i))
		residual += d * d
	}
	sd := math.Sqrt(residual / float64(n))
	band := 1.96 * sd * math.Sqrt(forecastHorizonDays)

	return analyticsdomain.Forecast{
		ExpectedRevenue: round2(expected),
		Lower:           round2(max(0, expected-band)),
		Upper:           round2(expected + band),
	}
}
