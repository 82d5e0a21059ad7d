package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Search is a saved query tracked over time.
type Search struct {
	ID            int64
	Name          string
	Query         string
	Filters       Filters // may be nil
	CreatedAt     time.Time
	LastFetchedAt *time.Time
}

// Listing is one observed sold item. Immutable once parsed.
type Listing struct {
	ID         int64
	SearchID   int64
	EbayItemID string
	Title      string
	Price      float64
	Shipping   *float64 // nil means free/unknown
	Condition  *string
	SoldDate   *time.Time // date precision, nil if unparsable
	URL        *string
	CreatedAt  time.Time
}

// TotalPrice is the sale price plus shipping when known.
func (l Listing) TotalPrice() float64 {
	if l.Shipping != nil {
		return l.Price + *l.Shipping
	}
	return l.Price
}

// FetchLog records one fetch attempt against a search.
type FetchLog struct {
	ID            int64
	SearchID      int64
	FetchedAt     time.Time
	ListingsFound int
	Status        string
}

// Filters maps filter names to scalar or list values. Recognized keys:
// condition, min_price, max_price, category, color, size, inseam, size_type.
// Unknown keys pass through untouched and are ignored downstream.
type Filters map[string]interface{}

// Facet keys pass through to eBay as multi-select attribute filters.
var FacetKeys = []string{"color", "size", "inseam", "size_type"}

// String returns a scalar filter as text, or "" if absent.
func (f Filters) String(key string) string {
	if f == nil {
		return ""
	}
	v, ok := f[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// Values returns a filter as a list of strings, flattening scalars to a
// single-element list. Absent keys return nil.
func (f Filters) Values(key string) []string {
	if f == nil {
		return nil
	}
	v, ok := f[key]
	if !ok || v == nil {
		return nil
	}
	switch t := v.(type) {
	case []string:
		return t
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, e := range t {
			out = append(out, fmt.Sprintf("%v", e))
		}
		return out
	default:
		if s := f.String(key); s != "" {
			return []string{s}
		}
		return nil
	}
}

// HasFacets reports whether any marketplace facet filter is set.
func (f Filters) HasFacets() bool {
	for _, key := range FacetKeys {
		if len(f.Values(key)) > 0 {
			return true
		}
	}
	return false
}

// Describe renders filters compactly for CLI output, keys sorted by the
// order they matter to a reader.
func (f Filters) Describe() string {
	if len(f) == 0 {
		return ""
	}
	order := []string{"condition", "min_price", "max_price", "category", "color", "size", "inseam", "size_type"}
	var parts []string
	seen := make(map[string]bool)
	for _, key := range order {
		if vals := f.Values(key); len(vals) > 0 {
			parts = append(parts, fmt.Sprintf("%s=%s", key, strings.Join(vals, ",")))
			seen[key] = true
		}
	}
	for key := range f {
		if !seen[key] {
			if vals := f.Values(key); len(vals) > 0 {
				parts = append(parts, fmt.Sprintf("%s=%s", key, strings.Join(vals, ",")))
			}
		}
	}
	return strings.Join(parts, " ")
}
