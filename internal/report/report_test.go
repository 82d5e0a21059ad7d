package report

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/guarzo/ebaytracker/internal/analyzer"
	"github.com/guarzo/ebaytracker/internal/model"
	"github.com/guarzo/ebaytracker/internal/testutil"
)

func TestRender(t *testing.T) {
	search := model.Search{Name: "ltds", Query: "levis 501"}
	sum := analyzer.Summary{
		Count: 42,
		Price: &analyzer.PriceStats{Min: 30, Max: 50, Median: 40, Mean: 40.5, P20: 34},
		Frequency: &analyzer.FrequencyStats{
			AvgDaysBetween:   4.8,
			ListingsPerMonth: 6.3,
		},
		Trend: analyzer.TrendRising,
	}
	rec := analyzer.Recommendation{
		HasData:           true,
		GoodDealThreshold: 34,
		MedianPrice:       40,
	}

	var buf bytes.Buffer
	Render(&buf, search, sum, rec)
	out := buf.String()

	for _, want := range []string{
		"ltds (42 sales tracked)",
		"$40 median",
		"$30-50 range",
		"~1 listing every 5 days",
		"Trend:      Rising",
		"A price under $34 is a good deal",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain '%s', got:\n%s", want, out)
		}
	}
}

func TestRender_SameDayFrequency(t *testing.T) {
	sum := analyzer.Summary{
		Count:     3,
		Price:     &analyzer.PriceStats{Median: 40},
		Frequency: &analyzer.FrequencyStats{ListingsPerMonth: math.Inf(1)},
		Trend:     analyzer.TrendStable,
	}

	var buf bytes.Buffer
	Render(&buf, model.Search{Name: "hot"}, sum, analyzer.Recommendation{HasData: true})

	if !strings.Contains(buf.String(), "multiple sales per day") {
		t.Errorf("Expected same-day frequency phrasing, got:\n%s", buf.String())
	}
}

func TestRender_WithTarget(t *testing.T) {
	target, pct, wait := 35.0, 20.0, 40.0
	rec := analyzer.Recommendation{
		HasData:           true,
		GoodDealThreshold: 34,
		TargetPrice:       &target,
		TargetPercentile:  &pct,
		ExpectedWaitDays:  &wait,
	}

	var buf bytes.Buffer
	Render(&buf, model.Search{Name: "ltds"}, analyzer.Summary{Count: 5, Trend: analyzer.TrendStable}, rec)

	if !strings.Contains(buf.String(), "Target $35: ~20th percentile, expected wait ~40 days") {
		t.Errorf("Expected target line, got:\n%s", buf.String())
	}
}

func TestListingRows(t *testing.T) {
	shipping := 5.99
	condition := "Pre-owned"
	url := "https://www.ebay.com/itm/123456789012"
	full := testutil.Listing("123456789012", 42.50, "2025-01-15")
	full.Shipping = &shipping
	full.Condition = &condition
	full.URL = &url

	bare := model.Listing{EbayItemID: "123456789013", Title: "Bare", Price: 30}

	rows := ListingRows([]model.Listing{full, bare})

	if len(rows) != 3 {
		t.Fatalf("Expected header plus 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "item_id" || rows[0][4] != "total_price" {
		t.Errorf("Unexpected header: %v", rows[0])
	}

	got := rows[1]
	if got[0] != "123456789012" || got[2] != "42.50" || got[3] != "5.99" || got[4] != "48.49" {
		t.Errorf("Unexpected full row: %v", got)
	}
	if got[5] != "Pre-owned" || got[6] != "2025-01-15" || got[7] != url {
		t.Errorf("Unexpected full row tail: %v", got)
	}

	if bareRow := rows[2]; bareRow[3] != "" || bareRow[6] != "" || bareRow[7] != "" {
		t.Errorf("Expected empty optional cells, got %v", bareRow)
	}
}

func TestListingRows_FormulaInjection(t *testing.T) {
	l := model.Listing{EbayItemID: "1", Title: "=HYPERLINK(\"http://evil\")", Price: 1}

	rows := ListingRows([]model.Listing{l})

	if !strings.HasPrefix(rows[1][1], "'=") {
		t.Errorf("Expected formula-leading title escaped, got '%s'", rows[1][1])
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	rows := [][]string{
		{"a", "b"},
		{"1", "has,comma"},
	}

	if err := WriteCSV(&buf, rows); err != nil {
		t.Fatalf("WriteCSV() error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "\"has,comma\"") {
		t.Errorf("Expected quoted cell, got:\n%s", out)
	}
	if !strings.HasPrefix(out, "a,b\n") {
		t.Errorf("Expected header line first, got:\n%s", out)
	}
}
