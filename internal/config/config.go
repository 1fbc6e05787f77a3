package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseURL string
	Port        string
	Environment string

	// External market data source
	SourceBaseURL  string // names / model-info / price-history endpoints
	RequestTimeout time.Duration

	// Daily showcase
	ShowcaseMinPrice float64

	// Price fetch pipeline
	FetchConcurrency      int           // bulk refresh workers
	OwnedFetchConcurrency int           // owned-subset refresh workers
	SingleFetchDelay      time.Duration // inter-request delay of the sequential variant

	// Boost detection
	BoostLookback        time.Duration // history window for the baseline average
	BoostEntryPercent    float64       // growth needed to open a boost
	BoostExitPercent     float64       // growth below which a boost is dropped
	BoostMinHistory      int           // minimum samples for a baseline
	BoostMinPrice        float64
	BoostMaxPrice        float64
	BoostFreshnessWindow time.Duration // only recently refreshed items can open new boosts

	// Background scheduling
	UpdateInterval time.Duration
	StartupDelay   time.Duration

	// Data directories
	DataDir          string // boost cache and price-history file cache
	HistoryRetention time.Duration

	// Logging
	LogFile  string
	LogLevel string
}

func Load() *Config {
	defaultDSN := "tracker:tracker@tcp(127.0.0.1:3306)/standoff_tracker?charset=utf8mb4&parseTime=True&loc=Local"

	return &Config{
		DatabaseURL: getEnv("DATABASE_URL", defaultDSN),
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		SourceBaseURL:  getEnv("MARKET_SOURCE_URL", "https://standoff-2.com/skins-new.php"),
		RequestTimeout: getDuration("REQUEST_TIMEOUT", 30*time.Second),

		ShowcaseMinPrice: getFloat("SHOWCASE_MIN_PRICE", 1000),

		FetchConcurrency:      getInt("FETCH_CONCURRENCY", 10),
		OwnedFetchConcurrency: getInt("OWNED_FETCH_CONCURRENCY", 5),
		SingleFetchDelay:      getDuration("SINGLE_FETCH_DELAY", 500*time.Millisecond),

		BoostLookback:        getDuration("BOOST_LOOKBACK", 48*time.Hour),
		BoostEntryPercent:    getFloat("BOOST_ENTRY_PERCENT", 20),
		BoostExitPercent:     getFloat("BOOST_EXIT_PERCENT", 15),
		BoostMinHistory:      getInt("BOOST_MIN_HISTORY", 5),
		BoostMinPrice:        getFloat("BOOST_MIN_PRICE", 1),
		BoostMaxPrice:        getFloat("BOOST_MAX_PRICE", 50000),
		BoostFreshnessWindow: getDuration("BOOST_FRESHNESS_WINDOW", 30*time.Minute),

		UpdateInterval: getDuration("UPDATE_INTERVAL", 60*time.Minute),
		StartupDelay:   getDuration("STARTUP_DELAY", 15*time.Second),

		DataDir:          getEnv("DATA_DIR", "data"),
		HistoryRetention: getDuration("HISTORY_RETENTION", 180*24*time.Hour),

		LogFile:  getEnv("LOG_FILE", ""),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
