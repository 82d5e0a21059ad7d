// Package cache provides a small file-backed cache for fetched result pages
// so repeated runs inside the TTL window do not re-hit the marketplace.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type entry struct {
	Body      string        `json:"body"`
	Timestamp time.Time     `json:"timestamp"`
	TTL       time.Duration `json:"ttl"`
}

type PageCache struct {
	path    string
	entries map[string]entry
	mu      sync.RWMutex
}

func New(path string) (*PageCache, error) {
	c := &PageCache{
		path:    path,
		entries: make(map[string]entry),
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read cache: %w", err)
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &c.entries); err != nil {
				// Ignore corrupt cache, start fresh
				c.entries = make(map[string]entry)
			}
		}
	}

	return c, nil
}

// Get returns the cached page body for key, if present and unexpired.
func (c *PageCache) Get(key string) (string, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return "", false
	}

	if e.TTL > 0 && time.Since(e.Timestamp) > e.TTL {
		c.mu.Lock()
		if cur, exists := c.entries[key]; exists && cur.TTL > 0 && time.Since(cur.Timestamp) > cur.TTL {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return "", false
	}

	return e.Body, true
}

// Put stores a page body under key and persists the cache to disk.
func (c *PageCache) Put(key, body string, ttl time.Duration) error {
	c.mu.Lock()
	c.entries[key] = entry{
		Body:      body,
		Timestamp: time.Now(),
		TTL:       ttl,
	}
	c.mu.Unlock()

	return c.save()
}

func (c *PageCache) save() error {
	if dir := filepath.Dir(c.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create cache dir: %w", err)
		}
	}

	c.mu.RLock()
	data, err := json.Marshal(c.entries)
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}

	return os.WriteFile(c.path, data, 0644)
}
