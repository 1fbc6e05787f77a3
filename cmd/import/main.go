package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"standoff-tracker/internal/config"
	"standoff-tracker/internal/database"
	"standoff-tracker/internal/logging"
	"standoff-tracker/internal/market"
	"standoff-tracker/internal/services/catalog"
	"standoff-tracker/internal/services/prices"

	"github.com/joho/godotenv"
)

// One-shot catalog import, optionally followed by a full price refresh.
// Meant for initial seeding and cron-driven re-imports.
func main() {
	withPrices := flag.Bool("prices", false, "refresh all prices after the import")
	timeout := flag.Duration("timeout", 30*time.Minute, "overall run timeout")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	logging.Setup(cfg.LogLevel, cfg.LogFile)
	log := logging.Component("import")

	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	source := market.NewClient(cfg.SourceBaseURL, cfg.RequestTimeout)
	reconciler := catalog.NewReconciler(db, source)

	report, err := reconciler.ImportFromSource(ctx)
	if err != nil {
		log.WithError(err).Error("Catalog import failed")
		os.Exit(1)
	}
	fmt.Println("catalog:", report.String())

	if !*withPrices {
		return
	}
	store := prices.NewDBStore(db)
	cache, err := prices.NewFileCache(cfg.DataDir)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize price cache")
	}
	fetcher := prices.NewFetcher(store, source, cache, cfg.SingleFetchDelay)
	fetchReport, err := fetcher.FetchAll(ctx, cfg.FetchConcurrency)
	if err != nil {
		log.WithError(err).Error("Price refresh failed")
		os.Exit(1)
	}
	fmt.Println("prices:", fetchReport.String())
}
