// Package analyzer turns accumulated sale observations into price
// distribution statistics, a trend classification, and buy recommendations.
// Everything here is a pure function over its input slice.
package analyzer

import (
	"math"
	"sort"

	"github.com/guarzo/ebaytracker/internal/model"
)

// Trend classifications.
const (
	TrendRising  = "rising"
	TrendFalling = "falling"
	TrendStable  = "stable"
	TrendUnknown = "unknown"
)

// PriceStats summarizes the observed price distribution.
type PriceStats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	P20    float64 `json:"p20"`
	P50    float64 `json:"p50"`
	P80    float64 `json:"p80"`
}

// FrequencyStats summarizes how often sales occur. ListingsPerMonth is
// +Inf when the dated listings all fall on one day: sales happen
// same-day, so frequency is effectively unbounded.
type FrequencyStats struct {
	AvgDaysBetween   float64 `json:"avg_days_between"`
	ListingsPerMonth float64 `json:"listings_per_month"`
}

// Summary is the full analysis output. Price and Frequency are nil when
// there is not enough data to compute them.
type Summary struct {
	Count     int             `json:"count"`
	Price     *PriceStats     `json:"price"`
	Frequency *FrequencyStats `json:"frequency"`
	Trend     string          `json:"trend"`
}

// Analyze computes the summary for a listing collection. An empty
// collection yields count 0, nil sub-summaries, and an unknown trend.
func Analyze(listings []model.Listing) Summary {
	if len(listings) == 0 {
		return Summary{Count: 0, Trend: TrendUnknown}
	}

	prices := make([]float64, len(listings))
	for i, l := range listings {
		prices[i] = l.Price
	}
	sort.Float64s(prices)

	stats := &PriceStats{
		Min:    prices[0],
		Max:    prices[len(prices)-1],
		Median: quantile(prices, 0.50),
		Mean:   mean(prices),
		StdDev: sampleStdDev(prices),
		P20:    quantile(prices, 0.20),
		P50:    quantile(prices, 0.50),
		P80:    quantile(prices, 0.80),
	}

	return Summary{
		Count:     len(listings),
		Price:     stats,
		Frequency: calculateFrequency(listings),
		Trend:     calculateTrend(listings),
	}
}

// calculateFrequency needs at least two dated listings, otherwise nil.
func calculateFrequency(listings []model.Listing) *FrequencyStats {
	var dates []int64
	for _, l := range listings {
		if l.SoldDate != nil {
			dates = append(dates, l.SoldDate.Unix())
		}
	}
	if len(dates) < 2 {
		return nil
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i] < dates[j] })

	totalDays := float64(dates[len(dates)-1]-dates[0]) / (24 * 60 * 60)
	if totalDays == 0 {
		return &FrequencyStats{
			AvgDaysBetween:   0.0,
			ListingsPerMonth: math.Inf(1),
		}
	}

	avgDays := totalDays / float64(len(dates)-1)
	perMonth := math.Inf(1)
	if avgDays > 0 {
		perMonth = 30.0 / avgDays
	}

	return &FrequencyStats{
		AvgDaysBetween:   round1(avgDays),
		ListingsPerMonth: round1(perMonth),
	}
}

// calculateTrend fits an OLS line of price against sequence index over the
// dated listings sorted chronologically. Fewer than three dated points is
// insufficient evidence either way and reads as stable.
func calculateTrend(listings []model.Listing) string {
	type datedPrice struct {
		when  int64
		price float64
	}
	var dated []datedPrice
	for _, l := range listings {
		if l.SoldDate != nil {
			dated = append(dated, datedPrice{when: l.SoldDate.Unix(), price: l.Price})
		}
	}
	if len(listings) < 3 || len(dated) < 3 {
		return TrendStable
	}

	sort.Slice(dated, func(i, j int) bool { return dated[i].when < dated[j].when })

	prices := make([]float64, len(dated))
	for i, d := range dated {
		prices[i] = d.price
	}

	slope := olsSlope(prices)
	meanPrice := mean(prices)

	// The slope is significant when it exceeds 5% of the mean price spread
	// over the number of points. More points means a smaller absolute bar
	// per step; accumulating evidence lowers the per-step threshold.
	threshold := meanPrice * 0.05 / float64(len(prices))

	switch {
	case slope > threshold:
		return TrendRising
	case slope < -threshold:
		return TrendFalling
	default:
		return TrendStable
	}
}

// olsSlope is the least-squares slope of values against their indices.
func olsSlope(values []float64) float64 {
	n := float64(len(values))
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

// quantile computes the linearly interpolated quantile of a sorted slice.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	pos := q * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower]
	}
	frac := pos - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// sampleStdDev is 0.0 for a single value, sample standard deviation for
// two or more.
func sampleStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0.0
	}
	m := mean(values)
	var sumSq float64
	for _, v := range values {
		sumSq += (v - m) * (v - m)
	}
	return math.Sqrt(sumSq / float64(len(values)-1))
}

func round1(v float64) float64 {
	if math.IsInf(v, 0) {
		return v
	}
	return math.Round(v*10) / 10
}
