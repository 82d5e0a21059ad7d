package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/guarzo/ebaytracker/internal/model"
)

// pageHTML builds a results page carrying count current-generation cards
// with item ids offset..offset+count-1.
func pageHTML(count, offset int) string {
	var b strings.Builder
	b.WriteString("<ul>")
	for i := 0; i < count; i++ {
		fmt.Fprintf(&b, `<li class="s-card" data-listingid="40000%07d">`, offset+i)
		b.WriteString(`<div class="s-card__title">Levis 501 Jeans 34x32</div>`)
		b.WriteString(`<span class="s-card__price">$42.50</span>`)
		b.WriteString(`</li>`)
	}
	b.WriteString("</ul>")
	return b.String()
}

type fakeFetcher struct {
	pages   []string
	err     error
	fetches []string
	delays  int
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.fetches = append(f.fetches, url)
	if f.err != nil {
		return "", f.err
	}
	idx := len(f.fetches) - 1
	if idx >= len(f.pages) {
		return pageHTML(0, 0), nil
	}
	return f.pages[idx], nil
}

func (f *fakeFetcher) Delay() { f.delays++ }

type fakeStorage struct {
	searches []model.Search
	seen     map[string]bool
	touched  []int64
	logs     []model.FetchLog
	addErr   error
}

func newFakeStorage(searches ...model.Search) *fakeStorage {
	return &fakeStorage{searches: searches, seen: map[string]bool{}}
}

func (s *fakeStorage) AllSearches() ([]model.Search, error) { return s.searches, nil }

func (s *fakeStorage) AddListing(l model.Listing) (bool, error) {
	if s.addErr != nil {
		return false, s.addErr
	}
	key := fmt.Sprintf("%d/%s", l.SearchID, l.EbayItemID)
	if s.seen[key] {
		return false, nil
	}
	s.seen[key] = true
	return true, nil
}

func (s *fakeStorage) TouchLastFetched(id int64) error {
	s.touched = append(s.touched, id)
	return nil
}

func (s *fakeStorage) AddFetchLog(entry model.FetchLog) error {
	s.logs = append(s.logs, entry)
	return nil
}

func TestFetchSearch_SinglePage(t *testing.T) {
	fetcher := &fakeFetcher{pages: []string{pageHTML(3, 0)}}
	storage := newFakeStorage()
	runner := NewRunner(storage, fetcher, 5, false)

	result := runner.FetchSearch(context.Background(), model.Search{ID: 7, Name: "ltds", Query: "levis 501"})

	if result.Err != nil {
		t.Fatalf("Unexpected error: %v", result.Err)
	}
	if result.Found != 3 || result.New != 3 {
		t.Errorf("Expected 3 found / 3 new, got %d / %d", result.Found, result.New)
	}
	// A short page is the last page: no second fetch.
	if len(fetcher.fetches) != 1 {
		t.Errorf("Expected 1 fetch, got %d", len(fetcher.fetches))
	}
	if fetcher.delays != 0 {
		t.Errorf("Expected no delay before the first request, got %d", fetcher.delays)
	}
	if len(storage.touched) != 1 || storage.touched[0] != 7 {
		t.Errorf("Expected last_fetched touch for search 7, got %v", storage.touched)
	}
	if len(storage.logs) != 1 || storage.logs[0].Status != "success" || storage.logs[0].ListingsFound != 3 {
		t.Errorf("Expected success log with 3 found, got %+v", storage.logs)
	}
}

func TestFetchSearch_Pagination(t *testing.T) {
	fetcher := &fakeFetcher{pages: []string{
		pageHTML(lastPageThreshold, 0),
		pageHTML(40, lastPageThreshold),
	}}
	storage := newFakeStorage()
	runner := NewRunner(storage, fetcher, 5, false)

	result := runner.FetchSearch(context.Background(), model.Search{ID: 1, Query: "levis 501"})

	if result.Err != nil {
		t.Fatalf("Unexpected error: %v", result.Err)
	}
	if len(fetcher.fetches) != 2 {
		t.Fatalf("Expected 2 fetches, got %d", len(fetcher.fetches))
	}
	if !strings.Contains(fetcher.fetches[1], "_pgn=2") {
		t.Errorf("Expected second fetch to request page 2, got %s", fetcher.fetches[1])
	}
	if result.Found != lastPageThreshold+40 {
		t.Errorf("Expected %d found, got %d", lastPageThreshold+40, result.Found)
	}
	// Every request after the very first is preceded by a delay.
	if fetcher.delays != 1 {
		t.Errorf("Expected 1 delay, got %d", fetcher.delays)
	}
}

func TestFetchSearch_MaxPagesCap(t *testing.T) {
	fetcher := &fakeFetcher{pages: []string{
		pageHTML(lastPageThreshold, 0),
		pageHTML(lastPageThreshold, 1000),
		pageHTML(lastPageThreshold, 2000),
	}}
	storage := newFakeStorage()
	runner := NewRunner(storage, fetcher, 2, false)

	result := runner.FetchSearch(context.Background(), model.Search{ID: 1, Query: "q"})

	if result.Err != nil {
		t.Fatalf("Unexpected error: %v", result.Err)
	}
	if len(fetcher.fetches) != 2 {
		t.Errorf("Expected fetches capped at 2 pages, got %d", len(fetcher.fetches))
	}
}

func TestFetchSearch_DuplicatesNotNew(t *testing.T) {
	// Both runs see the same 3 items; the second run inserts nothing new.
	same := pageHTML(3, 0)
	fetcher := &fakeFetcher{pages: []string{same, same}}
	storage := newFakeStorage()
	runner := NewRunner(storage, fetcher, 1, false)

	search := model.Search{ID: 1, Query: "q"}
	first := runner.FetchSearch(context.Background(), search)
	second := runner.FetchSearch(context.Background(), search)

	if first.New != 3 {
		t.Errorf("Expected 3 new on first run, got %d", first.New)
	}
	if second.Found != 3 || second.New != 0 {
		t.Errorf("Expected 3 found / 0 new on second run, got %d / %d", second.Found, second.New)
	}
}

func TestFetchSearch_FetchError(t *testing.T) {
	fetchErr := errors.New("HTTP 403")
	fetcher := &fakeFetcher{err: fetchErr}
	storage := newFakeStorage()
	runner := NewRunner(storage, fetcher, 5, false)

	result := runner.FetchSearch(context.Background(), model.Search{ID: 9, Query: "q"})

	if !errors.Is(result.Err, fetchErr) {
		t.Fatalf("Expected fetch error, got %v", result.Err)
	}
	if len(storage.touched) != 0 {
		t.Error("Expected no last_fetched touch on failure")
	}
	if len(storage.logs) != 1 || !strings.HasPrefix(storage.logs[0].Status, "error:") {
		t.Errorf("Expected error status in fetch log, got %+v", storage.logs)
	}
}

func TestFetchSearch_StoreError(t *testing.T) {
	fetcher := &fakeFetcher{pages: []string{pageHTML(3, 0)}}
	storage := newFakeStorage()
	storage.addErr = errors.New("database is locked")
	runner := NewRunner(storage, fetcher, 5, false)

	result := runner.FetchSearch(context.Background(), model.Search{ID: 1, Query: "q"})

	if result.Err == nil || !strings.Contains(result.Err.Error(), "database is locked") {
		t.Fatalf("Expected store error, got %v", result.Err)
	}
}

func TestFetchAll_ContinuesPastFailure(t *testing.T) {
	fetchErr := errors.New("connection reset")
	fetcher := &fakeFetcher{err: fetchErr}
	storage := newFakeStorage(
		model.Search{ID: 1, Name: "first", Query: "a"},
		model.Search{ID: 2, Name: "second", Query: "b"},
	)
	runner := NewRunner(storage, fetcher, 1, false)

	results, err := runner.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll() error: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	for _, r := range results {
		if r.Err == nil {
			t.Errorf("Expected error for search '%s'", r.Search.Name)
		}
	}
	if len(fetcher.fetches) != 2 {
		t.Errorf("Expected both searches fetched, got %d", len(fetcher.fetches))
	}
}

func TestFetchAll_StopsOnCancel(t *testing.T) {
	fetcher := &fakeFetcher{pages: []string{pageHTML(1, 0)}}
	storage := newFakeStorage(
		model.Search{ID: 1, Name: "first", Query: "a"},
		model.Search{ID: 2, Name: "second", Query: "b"},
	)
	runner := NewRunner(storage, fetcher, 1, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := runner.FetchAll(ctx)
	if err != nil {
		t.Fatalf("FetchAll() error: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("Expected 1 result before cancellation stop, got %d", len(results))
	}
}
