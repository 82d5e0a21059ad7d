package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	defaultDBPath    = "data/ebay_tracker.db"
	defaultCachePath = "data/page_cache.json"
)

// Config holds everything read from the environment.
type Config struct {
	ProxyURL  string // optional outbound proxy, empty means direct
	DBPath    string
	CachePath string
	Debug     bool
}

// Load reads .env (if present) and the process environment.
func Load() Config {
	// Missing .env is fine, environment variables still apply.
	_ = godotenv.Load()

	cfg := Config{
		ProxyURL:  os.Getenv("DECODO_PROXY_URL"),
		DBPath:    getEnv("EBAY_TRACKER_DB_PATH", defaultDBPath),
		CachePath: getEnv("EBAY_TRACKER_CACHE_PATH", defaultCachePath),
	}

	if v := os.Getenv("EBAY_TRACKER_DEBUG"); v != "" {
		cfg.Debug, _ = strconv.ParseBool(v)
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
