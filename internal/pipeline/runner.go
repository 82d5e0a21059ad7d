// Package pipeline orchestrates fetching listings for tracked searches:
// build the page URL, fetch, parse, upsert, and log, strictly
// sequentially with a human-cadence pause between requests.
package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/guarzo/ebaytracker/internal/ebay"
	"github.com/guarzo/ebaytracker/internal/model"
)

// A page yielding fewer cards than this is the last page; the ceiling is
// 240 per page but eBay pads short pages with noise, so the cutoff sits
// below the ceiling.
const lastPageThreshold = 200

// Fetcher retrieves a raw document for a URL. Delay enforces the pause
// policy between consecutive requests.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
	Delay()
}

// Storage is the slice of the store the runner needs.
type Storage interface {
	AllSearches() ([]model.Search, error)
	AddListing(model.Listing) (bool, error)
	TouchLastFetched(id int64) error
	AddFetchLog(entry model.FetchLog) error
}

// Result summarizes one search's fetch outcome.
type Result struct {
	Search model.Search
	Found  int
	New    int
	Err    error
}

type Runner struct {
	store    Storage
	fetcher  Fetcher
	maxPages int
	fetched  int
	debug    bool
}

func NewRunner(store Storage, fetcher Fetcher, maxPages int, debug bool) *Runner {
	if maxPages < 1 {
		maxPages = 1
	}
	return &Runner{
		store:    store,
		fetcher:  fetcher,
		maxPages: maxPages,
		debug:    debug,
	}
}

// FetchSearch fetches result pages for one search until the last page or
// the page cap. Fetch errors are recorded in the fetch log and returned in
// the result; parse-level problems never abort the batch.
func (r *Runner) FetchSearch(ctx context.Context, search model.Search) Result {
	result := Result{Search: search}

	for page := 1; page <= r.maxPages; page++ {
		if r.fetched > 0 {
			r.fetcher.Delay()
		}

		pageURL := ebay.BuildSearchURL(search.Query, search.Filters, page)
		html, err := r.fetcher.Fetch(ctx, pageURL)
		r.fetched++
		if err != nil {
			result.Err = err
			r.logFetch(search.ID, 0, fmt.Sprintf("error: %v", err))
			return result
		}

		listings, err := ebay.ParseListings(html, search.ID)
		if err != nil {
			result.Err = fmt.Errorf("parse page %d: %w", page, err)
			r.logFetch(search.ID, 0, fmt.Sprintf("error: %v", result.Err))
			return result
		}

		if r.debug {
			log.Printf("pipeline: %s page %d yielded %d listings", search.Name, page, len(listings))
		}

		result.Found += len(listings)
		for _, listing := range listings {
			inserted, err := r.store.AddListing(listing)
			if err != nil {
				result.Err = fmt.Errorf("store listing: %w", err)
				r.logFetch(search.ID, result.Found, fmt.Sprintf("error: %v", result.Err))
				return result
			}
			if inserted {
				result.New++
			}
		}

		if len(listings) < lastPageThreshold {
			break
		}
	}

	if err := r.store.TouchLastFetched(search.ID); err != nil {
		result.Err = err
		return result
	}
	r.logFetch(search.ID, result.Found, "success")

	return result
}

// FetchAll runs FetchSearch over every tracked search. A failing search is
// reported in its result and does not stop the remaining ones.
func (r *Runner) FetchAll(ctx context.Context) ([]Result, error) {
	searches, err := r.store.AllSearches()
	if err != nil {
		return nil, fmt.Errorf("load searches: %w", err)
	}

	results := make([]Result, 0, len(searches))
	for _, search := range searches {
		results = append(results, r.FetchSearch(ctx, search))
		if ctx.Err() != nil {
			break
		}
	}
	return results, nil
}

func (r *Runner) logFetch(searchID int64, found int, status string) {
	err := r.store.AddFetchLog(model.FetchLog{
		SearchID:      searchID,
		ListingsFound: found,
		Status:        status,
	})
	if err != nil {
		log.Printf("pipeline: record fetch log: %v", err)
	}
}
