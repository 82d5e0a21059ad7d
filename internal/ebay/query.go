package ebay

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/guarzo/ebaytracker/internal/model"
)

const (
	searchBaseURL  = "https://www.ebay.com/sch/i.html"
	resultsPerPage = 240
)

// facetParams maps filter keys to the marketplace facet parameter names.
var facetParams = map[string]string{
	"color":     "Color",
	"size":      "Size",
	"inseam":    "Inseam",
	"size_type": "Size Type",
}

// BuildSearchURL builds a sold-listings search URL for one result page.
// Filters are applied additively; unknown keys are ignored. Page 1 carries
// no page marker, later pages add _pgn.
func BuildSearchURL(query string, filters model.Filters, page int) string {
	params := url.Values{}
	params.Set("_nkw", query)
	params.Set("LH_Complete", "1")
	params.Set("LH_Sold", "1")
	params.Set("_ipg", strconv.Itoa(resultsPerPage))

	if page > 1 {
		params.Set("_pgn", strconv.Itoa(page))
	}

	if v := filters.String("max_price"); v != "" {
		params.Set("_udhi", v)
	}
	if v := filters.String("min_price"); v != "" {
		params.Set("_udlo", v)
	}

	switch strings.ToLower(filters.String("condition")) {
	case "new":
		params.Set("LH_ItemCondition", "1000")
	case "pre-owned", "used":
		params.Set("LH_ItemCondition", "3000")
	}

	if v := filters.String("category"); v != "" {
		params.Set("_sacat", v)
	}

	for key, param := range facetParams {
		for _, v := range filters.Values(key) {
			params.Add(param, v)
		}
	}
	// Facet params are only honored alongside the facet results page flag.
	if filters.HasFacets() {
		params.Set("_fsrp", "1")
	}

	return searchBaseURL + "?" + params.Encode()
}
