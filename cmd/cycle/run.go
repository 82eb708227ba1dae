// cmd/cycle/run.go
package main

import (
	"fmt"
	"log"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mounika-192643/InsightSphere-AI/internal/aggregate"
	"github.com/mounika-192643/InsightSphere-AI/internal/calendar"
	"github.com/mounika-192643/InsightSphere-AI/internal/config"
	"github.com/mounika-192643/InsightSphere-AI/internal/domain"
	"github.com/mounika-192643/InsightSphere-AI/internal/engine"
	"github.com/mounika-192643/InsightSphere-AI/internal/forecast"
	"github.com/mounika-192643/InsightSphere-AI/internal/inventory"
	"github.com/mounika-192643/InsightSphere-AI/internal/pricing"
	"github.com/mounika-192643/InsightSphere-AI/internal/region"
	"github.com/mounika-192643/InsightSphere-AI/internal/repository/postgres"
)

func runCycle(c *cli.Context) error {
	businessID := c.String("business-id")

	reason := domain.CycleReason(c.String("reason"))
	switch reason {
	case domain.ReasonScheduled, domain.ReasonNewData, domain.ReasonPriceChange:
	default:
		return fmt.Errorf("unknown cycle reason: %s", reason)
	}

	cfg := config.Load()

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	events := calendar.NewRegistry(region.StateOf)
	if path := c.String("events-file"); path != "" {
		if err := loadEvents(events, path); err != nil {
			return err
		}
	}

	regions := region.NewAdjuster()
	if path := c.String("regions-file"); path != "" {
		if err := loadRegionalFactors(regions, path); err != nil {
			return err
		}
	}

	catalogRepo := postgres.NewCatalogRepository(db)
	cycleRepo := postgres.NewCycleRepository(db)
	accuracyRepo := postgres.NewAccuracyRepository(db)

	tracker := forecast.NewTracker(cfg.Forecast.AccuracyWindow)
	since := time.Now().UTC().AddDate(0, 0, -cfg.Forecast.AccuracyWindow)
	if obs, err := accuracyRepo.RecentObservations(c.Context, since); err != nil {
		log.Printf("Accuracy history unavailable, starting with an empty window: %v\n", err)
	} else {
		for _, o := range obs {
			tracker.Observe(o.ProductID, o.Date, o.Predicted, o.Actual)
		}
	}

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

	result, err := runner.RunCycle(c.Context, businessID, reason)
	if err != nil {
		return fmt.Errorf("cycle failed: %w", err)
	}

	log.Printf("Cycle %s published %d action items (%d issues)\n",
		result.CycleKey, len(result.Items), len(result.Issues))
	for _, item := range result.Items {
		log.Printf("  #%d %-12s %-20s impact=%.2f confidence=%.2f\n",
			item.Rank, item.Category, item.ProductID, item.Impact, item.Confidence)
	}
	for _, issue := range result.Issues {
		log.Printf("  issue %s: %s (%s)\n", issue.ProductID, issue.Message, issue.Code)
	}

	return nil
}

// loadEvents reads calendar events from a CSV. Fixed events set month/day;
// lunar events carry pipe-separated explicit start dates instead, keyed by
// each date's own year.
func loadEvents(registry *calendar.Registry, path string) error {
	count := 0
	err := forEachRecord(path, func(get func(string) string) error {
		event := calendar.Event{
			Name:           get("name"),
			Kind:           calendar.EventKind(get("kind")),
			BaseMultiplier: parseFloat(get("base_multiplier")),
			RampDays:       int(parseFloat(get("ramp_days"))),
			DecayDays:      int(parseFloat(get("decay_days"))),
			Confidence:     parseFloatDefault(get("confidence"), 1),
			Recurrence: calendar.Recurrence{
				Month:  time.Month(parseFloat(get("month"))),
				Day:    int(parseFloat(get("day"))),
				Length: int(parseFloat(get("length"))),
			},
		}

		if starts := get("starts"); starts != "" {
			event.Recurrence.Starts = make(map[int]time.Time)
			for _, raw := range splitList(starts) {
				start, err := time.Parse("2006-01-02", raw)
				if err != nil {
					return fmt.Errorf("invalid start date %q for event %s: %w", raw, event.Name, err)
				}
				event.Recurrence.Starts[start.Year()] = start.UTC()
			}
		}

		event.Categories = splitList(get("categories"))
		event.Locations = splitList(get("locations"))

		registry.Upsert(event)
		count++
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("Loaded %d calendar events from %s\n", count, path)
	return nil
}

func loadRegionalFactors(adjuster *region.Adjuster, path string) error {
	count := 0
	err := forEachRecord(path, func(get func(string) string) error {
		adjuster.Upsert(domain.RegionalFactor{
			Location:             get("location"),
			Category:             get("category"),
			GrowthRate:           parseFloat(get("growth_rate")),
			CompetitiveIntensity: parseFloat(get("competitive_intensity")),
			PolicyImpact:         parseFloat(get("policy_impact")),
		})
		count++
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("Loaded %d regional factors from %s\n", count, path)
	return nil
}
