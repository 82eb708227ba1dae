// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mounika-192643/InsightSphere-AI/internal/aggregate"
	"github.com/mounika-192643/InsightSphere-AI/internal/api"
	"github.com/mounika-192643/InsightSphere-AI/internal/cache"
	"github.com/mounika-192643/InsightSphere-AI/internal/calendar"
	"github.com/mounika-192643/InsightSphere-AI/internal/config"
	"github.com/mounika-192643/InsightSphere-AI/internal/engine"
	"github.com/mounika-192643/InsightSphere-AI/internal/forecast"
	"github.com/mounika-192643/InsightSphere-AI/internal/inventory"
	"github.com/mounika-192643/InsightSphere-AI/internal/pricing"
	"github.com/mounika-192643/InsightSphere-AI/internal/region"
	"github.com/mounika-192643/InsightSphere-AI/internal/repository/postgres"
	"github.com/mounika-192643/InsightSphere-AI/internal/service"
	"github.com/mounika-192643/InsightSphere-AI/internal/storage"
	"github.com/mounika-192643/InsightSphere-AI/pkg/logger"
)

func main() {
	cfg := config.Load()

	if cfg.Server.Mode == "debug" {
		logger.SetLevel("debug")
		gin.SetMode(gin.DebugMode)
	} else {
		logger.SetLevel("info")
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	catalogRepo := postgres.NewCatalogRepository(db)
	cycleRepo := postgres.NewCycleRepository(db)
	outcomeRepo := postgres.NewOutcomeRepository(db)
	accuracyRepo := postgres.NewAccuracyRepository(db)

	cycleCache, err := cache.NewCycleCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Cache unavailable, continuing without it")
		cycleCache = cache.NewNoopCycleCache()
	}

	var archive *storage.CycleArchive
	if cfg.Archive.Enabled {
		store, err := storage.NewMinioClient(storage.MinioConfig{
			Endpoint:  cfg.Archive.Endpoint,
			AccessKey: cfg.Archive.AccessKey,
			SecretKey: cfg.Archive.SecretKey,
			Bucket:    cfg.Archive.Bucket,
			Region:    cfg.Archive.Region,
			UseSSL:    cfg.Archive.UseSSL,
		})
		if err != nil {
			logger.Log.Warn().Err(err).Msg("Archive unavailable, continuing without it")
		} else {
			archive = storage.NewCycleArchive(store)
		}
	}

	events := calendar.NewRegistry(region.StateOf)
	regions := region.NewAdjuster()
	tracker := forecast.NewTracker(cfg.Forecast.AccuracyWindow)

	runner := engine.NewRunner(
		engine.Config{
			WorkerCount: cfg.Engine.WorkerCount,
			Horizons:    cfg.Forecast.Horizons,
			ColdStartK:  cfg.Forecast.ColdStartNeighbor,
			SlowMover: inventory.SlowMoverConfig{
				Percentile: cfg.Inventory.SlowMoverPercentile,
				WindowDays: cfg.Inventory.SlowMoverWindow,
			},
		},
		engine.Deps{
			Aggregator: aggregate.NewAggregator(cfg.Forecast.MinHistoryDays),
			Forecaster: forecast.New(forecast.Config{
				MinHistoryDays:   cfg.Forecast.MinHistoryDays,
				AccuracyFloor:    cfg.Forecast.AccuracyFloor,
				DegradedWidening: cfg.Forecast.DegradedWidening,
			}, tracker),
			Pricer: pricing.NewEngine(pricing.Config{
				MinimumMargin:     cfg.Pricing.MinimumMargin,
				CompetitorBand:    cfg.Pricing.CompetitorBand,
				MinPricePoints:    cfg.Pricing.MinPricePoints,
				MinPriceVariation: cfg.Pricing.MinPriceVariation,
				CostPlusMarkup:    cfg.Pricing.CostPlusMarkup,
			}),
			Optimizer: inventory.NewOptimizer(inventory.Config{
				ServiceLevelZ:   cfg.Inventory.ServiceLevelZ,
				TargetCoverDays: cfg.Inventory.TargetCoverDays,
			}),
			Events:   events,
			Regions:  regions,
			Source:   catalogRepo,
			Store:    cycleRepo,
			Composer: engine.NewComposer(cfg.Engine.MaxActionItems),
		},
	)

	cycleService := service.NewCycleService(
		runner, tracker, cycleRepo, accuracyRepo, cycleCache, archive, cfg.Engine.CycleRetention)
	insightService := service.NewInsightService(cycleRepo, outcomeRepo, accuracyRepo, cycleCache)

	warmSince := time.Now().UTC().AddDate(0, 0, -cfg.Forecast.AccuracyWindow)
	if err := cycleService.WarmTracker(context.Background(), warmSince); err != nil {
		logger.Log.Warn().Err(err).Msg("Accuracy tracker warm-up failed, starting with an empty window")
	}

	router := api.NewRouter(&api.Services{
		CycleService:   cycleService,
		InsightService: insightService,
		Events:         events,
		Regions:        regions,
	}, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
