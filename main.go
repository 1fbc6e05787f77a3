package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"standoff-tracker/internal/api"
	"standoff-tracker/internal/config"
	"standoff-tracker/internal/database"
	"standoff-tracker/internal/logging"
	"standoff-tracker/internal/market"
	"standoff-tracker/internal/notify"
	"standoff-tracker/internal/scheduler"
	"standoff-tracker/internal/services/boost"
	"standoff-tracker/internal/services/catalog"
	"standoff-tracker/internal/services/prices"
	"standoff-tracker/internal/status"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

func main() {
	// A missing .env file means the environment is already set.
	_ = godotenv.Load()

	cfg := config.Load()
	logging.Setup(cfg.LogLevel, cfg.LogFile)
	log := logging.Component("main")

	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}

	source := market.NewClient(cfg.SourceBaseURL, cfg.RequestTimeout)
	store := prices.NewDBStore(db)
	cache, err := prices.NewFileCache(cfg.DataDir)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize price cache")
	}
	fetcher := prices.NewFetcher(store, source, cache, cfg.SingleFetchDelay)
	reconciler := catalog.NewReconciler(db, source)

	boostCache, err := boost.NewCache(cfg.DataDir)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize boost cache")
	}
	hub := notify.NewHub()
	detector := boost.NewDetector(store, boost.NewDBOwners(db), hub, boostCache, boost.Options{
		Lookback:     cfg.BoostLookback,
		EntryPercent: cfg.BoostEntryPercent,
		ExitPercent:  cfg.BoostExitPercent,
		MinHistory:   cfg.BoostMinHistory,
		MinPrice:     decimal.NewFromFloat(cfg.BoostMinPrice),
		MaxPrice:     decimal.NewFromFloat(cfg.BoostMaxPrice),
		Freshness:    cfg.BoostFreshnessWindow,
	})
	tracker := status.NewTracker()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	priceJob := scheduler.New("price-refresh", cfg.UpdateInterval, cfg.StartupDelay, func(ctx context.Context) error {
		tracker.SetPriceUpdateRunning(true)
		defer tracker.SetPriceUpdateRunning(false)
		report, err := fetcher.FetchAll(ctx, cfg.FetchConcurrency)
		if err != nil {
			tracker.RecordError(err)
			return err
		}
		log.WithField("report", report.String()).Info("Scheduled price refresh finished")
		if err := cache.Prune(cfg.HistoryRetention, time.Now()); err != nil {
			log.WithError(err).Warn("Cache prune failed")
		}
		return nil
	}).WithFreshness(store.LatestTimestamp)
	go priceJob.Run(ctx)

	boostJob := scheduler.New("boost-check", cfg.UpdateInterval, cfg.StartupDelay+time.Minute, func(ctx context.Context) error {
		items, err := store.AllItems(ctx)
		if err != nil {
			tracker.RecordError(err)
			return err
		}
		active, err := detector.Detect(ctx, items)
		if err != nil {
			tracker.RecordError(err)
			return err
		}
		tracker.MarkBoostCheck(len(active))
		return nil
	})
	go boostJob.Run(ctx)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	api.SetupRoutes(r.Group("/api"), db, cfg, store, cache, fetcher, reconciler, detector, boostCache, hub, tracker)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}
	go func() {
		log.WithField("port", cfg.Port).Info("Server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server shutdown failed")
	}
}
