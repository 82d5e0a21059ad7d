package analyzer

import (
	"sort"

	"github.com/guarzo/ebaytracker/internal/model"
)

// Recommendation composes the analysis with a target price into a buying
// judgment.
type Recommendation struct {
	HasData           bool     `json:"has_data"`
	Message           string   `json:"message,omitempty"`
	GoodDealThreshold float64  `json:"good_deal_threshold,omitempty"`
	MedianPrice       float64  `json:"median_price,omitempty"`
	TargetPrice       *float64 `json:"target_price,omitempty"`
	TargetPercentile  *float64 `json:"target_percentile,omitempty"`
	ExpectedWaitDays  *float64 `json:"expected_wait_days,omitempty"`
}

// PricePercentile returns the fraction of listings priced strictly below
// the target.
func PricePercentile(listings []model.Listing, targetPrice float64) float64 {
	if len(listings) == 0 {
		return 0.0
	}

	prices := make([]float64, len(listings))
	for i, l := range listings {
		prices[i] = l.Price
	}
	sort.Float64s(prices)

	below := 0
	for _, p := range prices {
		if p < targetPrice {
			below++
		}
	}
	return float64(below) / float64(len(prices))
}

// PredictWaitTime estimates days until a listing at the target percentile
// appears: the average sale interval stretched by how rarely prices dip
// that low. Callers must not pass a zero percentile.
func PredictWaitTime(percentile, avgDaysBetween float64) float64 {
	return round1(avgDaysBetween / percentile)
}

// Recommend reports the good-deal threshold and median, plus a wait-time
// estimate when a target price is given. A target at or below the minimum
// observed price has percentile 0; the wait estimate is omitted there
// rather than reported as infinite.
func Recommend(listings []model.Listing, targetPrice *float64) Recommendation {
	stats := Analyze(listings)

	if stats.Count == 0 {
		return Recommendation{
			HasData: false,
			Message: "No data available. Run fetch to collect listings.",
		}
	}

	rec := Recommendation{
		HasData:           true,
		GoodDealThreshold: stats.Price.P20,
		MedianPrice:       stats.Price.Median,
	}

	if targetPrice != nil {
		percentile := PricePercentile(listings, *targetPrice)
		if stats.Frequency != nil && stats.Frequency.AvgDaysBetween > 0 && percentile > 0 {
			wait := PredictWaitTime(percentile, stats.Frequency.AvgDaysBetween)
			pctDisplay := round1(percentile * 100)
			rec.TargetPrice = targetPrice
			rec.TargetPercentile = &pctDisplay
			rec.ExpectedWaitDays = &wait
		}
	}

	return rec
}
