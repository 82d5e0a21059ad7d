package ebay

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/time/rate"

	"github.com/guarzo/ebaytracker/internal/cache"
)

const (
	requestTimeout = 30 * time.Second
	pageCacheTTL   = 15 * time.Minute
	maxRetries     = 2

	// Human-cadence pause bounds between consecutive fetches.
	minDelaySeconds = 2.0
	maxDelaySeconds = 5.0
)

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// Fetcher retrieves search result pages, optionally through a proxy, with
// browser-like headers and a short-TTL page cache.
type Fetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	rand      *rand.Rand
	pageCache *cache.PageCache
	sleep     func(time.Duration)
	debug     bool
}

// NewFetcher builds a fetcher. proxyURL may be empty for direct requests;
// pageCache may be nil to disable caching.
func NewFetcher(proxyURL string, pageCache *cache.PageCache, debug bool) (*Fetcher, error) {
	transport := &http.Transport{}
	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(parsed)
	}

	return &Fetcher{
		client: &http.Client{
			Timeout:   requestTimeout,
			Transport: transport,
		},
		limiter:   rate.NewLimiter(rate.Limit(0.5), 1),
		rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
		pageCache: pageCache,
		sleep:     time.Sleep,
		debug:     debug,
	}, nil
}

// SetRand replaces the jitter source so tests can pin delays.
func (f *Fetcher) SetRand(r *rand.Rand) {
	f.rand = r
}

// SetSleep replaces the sleep function so tests run without waiting.
func (f *Fetcher) SetSleep(sleep func(time.Duration)) {
	f.sleep = sleep
}

// Fetch retrieves the document at pageURL, decoding any gzip or brotli
// content encoding. Non-2xx responses are errors.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	if f.pageCache != nil {
		if body, ok := f.pageCache.Get(pageURL); ok {
			if f.debug {
				log.Printf("fetcher: cache hit for %s", pageURL)
			}
			return body, nil
		}
	}

	var body string
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			f.sleep(time.Duration(attempt*attempt) * time.Second)
		}

		body, lastErr = f.fetchOnce(ctx, pageURL)
		if lastErr == nil {
			break
		}
		if ctx.Err() != nil {
			return "", lastErr
		}
	}
	if lastErr != nil {
		return "", fmt.Errorf("fetch failed after %d attempts: %w", maxRetries+1, lastErr)
	}

	if f.pageCache != nil {
		if err := f.pageCache.Put(pageURL, body, pageCacheTTL); err != nil && f.debug {
			log.Printf("fetcher: cache write failed: %v", err)
		}
	}

	return body, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, pageURL string) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	f.setBrowserHeaders(req)

	if f.debug {
		log.Printf("fetcher: GET %s", pageURL)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	reader, err := decodeBody(resp)
	if err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	return string(data), nil
}

func (f *Fetcher) setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", userAgents[f.rand.Intn(len(userAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	req.Header.Set("DNT", "1")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
}

func decodeBody(resp *http.Response) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(resp.Body)
	case "br":
		return brotli.NewReader(resp.Body), nil
	default:
		return resp.Body, nil
	}
}

// Delay pauses for a random 2-5s interval to emulate human request
// cadence. The orchestrator calls this before every fetch after the first.
func (f *Fetcher) Delay() {
	f.sleep(f.jitter())
}

func (f *Fetcher) jitter() time.Duration {
	seconds := minDelaySeconds + f.rand.Float64()*(maxDelaySeconds-minDelaySeconds)
	return time.Duration(seconds * float64(time.Second))
}
