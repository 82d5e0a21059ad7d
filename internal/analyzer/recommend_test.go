package analyzer

import (
	"testing"

	"github.com/guarzo/ebaytracker/internal/testutil"
)

func TestPricePercentile(t *testing.T) {
	listings := testutil.Listings(30, 35, 40, 45, 50)

	tests := []struct {
		target   float64
		expected float64
	}{
		{25, 0.0},
		{30, 0.0},
		{35, 0.2},
		{42, 0.6},
		{50, 0.8},
		{100, 1.0},
	}

	for _, tt := range tests {
		if got := PricePercentile(listings, tt.target); got != tt.expected {
			t.Errorf("PricePercentile(%v): expected %v, got %v", tt.target, tt.expected, got)
		}
	}
}

func TestPricePercentile_Empty(t *testing.T) {
	if got := PricePercentile(nil, 40); got != 0.0 {
		t.Errorf("Expected 0.0 for no listings, got %v", got)
	}
}

func TestPredictWaitTime(t *testing.T) {
	if got := PredictWaitTime(0.20, 8.0); got != 40.0 {
		t.Errorf("Expected 40.0, got %v", got)
	}
	if got := PredictWaitTime(0.50, 8.0); got != 16.0 {
		t.Errorf("Expected 16.0, got %v", got)
	}
}

func TestRecommend_NoData(t *testing.T) {
	rec := Recommend(nil, nil)

	if rec.HasData {
		t.Error("Expected HasData false")
	}
	if rec.Message != "No data available. Run fetch to collect listings." {
		t.Errorf("Unexpected message: '%s'", rec.Message)
	}
}

func TestRecommend_NoTarget(t *testing.T) {
	rec := Recommend(testutil.Listings(30, 35, 40, 45, 50), nil)

	if !rec.HasData {
		t.Fatal("Expected HasData true")
	}
	if rec.GoodDealThreshold != 34.0 {
		t.Errorf("Expected threshold 34.0, got %v", rec.GoodDealThreshold)
	}
	if rec.MedianPrice != 40.0 {
		t.Errorf("Expected median 40.0, got %v", rec.MedianPrice)
	}
	if rec.TargetPrice != nil || rec.TargetPercentile != nil || rec.ExpectedWaitDays != nil {
		t.Errorf("Expected no target fields, got %+v", rec)
	}
}

func TestRecommend_WithTarget(t *testing.T) {
	listings := testutil.DatedListings(
		[]float64{30, 35, 40, 45, 50},
		[]string{"2025-01-01", "2025-01-09", "2025-01-17", "2025-01-25", "2025-02-02"},
	)
	target := 35.0

	rec := Recommend(listings, &target)

	if !rec.HasData {
		t.Fatal("Expected HasData true")
	}
	if rec.TargetPrice == nil || *rec.TargetPrice != 35.0 {
		t.Fatalf("Expected target price 35.0, got %v", rec.TargetPrice)
	}
	if rec.TargetPercentile == nil || *rec.TargetPercentile != 20.0 {
		t.Fatalf("Expected target percentile 20.0, got %v", rec.TargetPercentile)
	}
	// avg days between is 8.0, so waiting for the bottom 20% takes 40 days.
	if rec.ExpectedWaitDays == nil || *rec.ExpectedWaitDays != 40.0 {
		t.Fatalf("Expected 40.0 wait days, got %v", rec.ExpectedWaitDays)
	}
}

func TestRecommend_TargetBelowMinimum(t *testing.T) {
	listings := testutil.DatedListings(
		[]float64{30, 35, 40},
		[]string{"2025-01-01", "2025-01-09", "2025-01-17"},
	)
	target := 25.0

	rec := Recommend(listings, &target)

	if !rec.HasData {
		t.Fatal("Expected HasData true")
	}
	// Percentile zero: no meaningful wait estimate, so the target fields
	// stay unset instead of reporting infinity.
	if rec.TargetPrice != nil || rec.TargetPercentile != nil || rec.ExpectedWaitDays != nil {
		t.Errorf("Expected no target fields for zero percentile, got %+v", rec)
	}
}

func TestRecommend_TargetWithoutDates(t *testing.T) {
	target := 40.0

	rec := Recommend(testutil.Listings(30, 35, 40, 45, 50), &target)

	if !rec.HasData {
		t.Fatal("Expected HasData true")
	}
	if rec.ExpectedWaitDays != nil {
		t.Errorf("Expected no wait estimate without sold dates, got %v", *rec.ExpectedWaitDays)
	}
}
