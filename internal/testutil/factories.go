// Package testutil provides deterministic factories for test data.
package testutil

import (
	"fmt"
	"time"

	"github.com/guarzo/ebaytracker/internal/model"
)

// Listing builds a listing with the given price and a sold date, for
// analyzer and store tests.
func Listing(itemID string, price float64, soldDate string) model.Listing {
	l := model.Listing{
		SearchID:   1,
		EbayItemID: itemID,
		Title:      "Test Listing " + itemID,
		Price:      price,
	}
	if soldDate != "" {
		parsed, err := time.Parse("2006-01-02", soldDate)
		if err != nil {
			panic("testutil: bad date " + soldDate)
		}
		l.SoldDate = &parsed
	}
	return l
}

// Listings builds one listing per price, all undated.
func Listings(prices ...float64) []model.Listing {
	out := make([]model.Listing, 0, len(prices))
	for i, p := range prices {
		out = append(out, Listing(itemID(i), p, ""))
	}
	return out
}

// DatedListings pairs prices with ISO dates; the slices must be the same
// length.
func DatedListings(prices []float64, dates []string) []model.Listing {
	if len(prices) != len(dates) {
		panic("testutil: prices and dates length mismatch")
	}
	out := make([]model.Listing, 0, len(prices))
	for i := range prices {
		out = append(out, Listing(itemID(i), prices[i], dates[i]))
	}
	return out
}

func itemID(i int) string {
	return fmt.Sprintf("1000000%04d", i)
}
