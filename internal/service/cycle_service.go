package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mounika-192643/InsightSphere-AI/internal/cache"
	"github.com/mounika-192643/InsightSphere-AI/internal/domain"
	"github.com/mounika-192643/InsightSphere-AI/internal/engine"
	"github.com/mounika-192643/InsightSphere-AI/internal/forecast"
	"github.com/mounika-192643/InsightSphere-AI/internal/repository"
	"github.com/mounika-192643/InsightSphere-AI/internal/storage"
)

// CycleService triggers analytical cycles and keeps the cache and retention
// policy in step with what was published.
type CycleService struct {
	runner    *engine.Runner
	tracker   *forecast.Tracker
	cycles    repository.CycleRepository
	accuracy  repository.AccuracyRepository
	cache     cache.CycleCache
	archive   *storage.CycleArchive
	retention int
}

func NewCycleService(
	runner *engine.Runner,
	tracker *forecast.Tracker,
	cycles repository.CycleRepository,
	accuracy repository.AccuracyRepository,
	cacheImpl cache.CycleCache,
	archive *storage.CycleArchive,
	retention int,
) *CycleService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopCycleCache()
	}
	return &CycleService{
		runner:    runner,
		tracker:   tracker,
		cycles:    cycles,
		accuracy:  accuracy,
		cache:     cacheImpl,
		archive:   archive,
		retention: retention,
	}
}

// Trigger runs (or returns the already published) cycle for a business.
// Cache and pruning failures are logged, never surfaced: the published result
// is already the system of record.
func (s *CycleService) Trigger(ctx context.Context, businessID string, reason domain.CycleReason) (*domain.CycleResult, error) {
	result, err := s.runner.RunCycle(ctx, businessID, reason)
	if err != nil {
		return nil, err
	}

	s.refreshCache(ctx, result)

	s.archive.Archive(ctx, result)

	if s.retention > 0 {
		if err := s.cycles.PruneCycles(ctx, businessID, s.retention); err != nil {
			log.Warn().Err(err).Str("business_id", businessID).Msg("cycle: prune failed")
		}
	}

	return result, nil
}

// Forecast produces an on-demand forecast for one product at any configured
// horizon. A non-positive horizon selects the primary one.
func (s *CycleService) Forecast(ctx context.Context, businessID, productID string, horizonDays int) (*domain.ForecastResult, error) {
	return s.runner.ForecastProduct(ctx, businessID, productID, horizonDays)
}

// refreshCache replaces the cached latest cycle. When the write fails the
// stale entry is invalidated so readers fall through to the repository
// instead of serving the previous cycle from cache.
func (s *CycleService) refreshCache(ctx context.Context, result *domain.CycleResult) {
	err := s.cache.SetLatest(ctx, result)
	if err == nil {
		return
	}
	log.Warn().Err(err).Str("business_id", result.BusinessID).Msg("cycle: cache set failed")
	if err := s.cache.Invalidate(ctx, result.BusinessID); err != nil {
		log.Warn().Err(err).Str("business_id", result.BusinessID).Msg("cycle: cache invalidate failed")
	}
}

// WarmTracker rebuilds the in-memory rolling accuracy window from persisted
// observations, so the forecaster's degraded gate keeps its state across
// restarts.
func (s *CycleService) WarmTracker(ctx context.Context, since time.Time) error {
	obs, err := s.accuracy.RecentObservations(ctx, since)
	if err != nil {
		return fmt.Errorf("warm accuracy tracker: %w", err)
	}
	for _, o := range obs {
		s.tracker.Observe(o.ProductID, o.Date, o.Predicted, o.Actual)
	}
	log.Info().Int("observations", len(obs)).Msg("accuracy tracker warmed")
	return nil
}

// RecordActual matures a realized demand day against its prediction, both in
// the in-memory rolling window and in the persisted accuracy history.
func (s *CycleService) RecordActual(ctx context.Context, businessID, productID string, date time.Time, predicted, actual float64) error {
	s.tracker.RecordActual(productID, date, actual)

	if err := s.accuracy.SaveObservation(ctx, businessID, productID, date, predicted, actual); err != nil {
		return err
	}
	return nil
}
