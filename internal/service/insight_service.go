package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mounika-192643/InsightSphere-AI/internal/cache"
	"github.com/mounika-192643/InsightSphere-AI/internal/domain"
	"github.com/mounika-192643/InsightSphere-AI/internal/repository"
)

// InsightService is the read side: latest action items, cycle lookups,
// recommendation effectiveness and forecast accuracy history.
type InsightService struct {
	cycles   repository.CycleRepository
	outcomes repository.OutcomeRepository
	accuracy repository.AccuracyRepository
	cache    cache.CycleCache
}

func NewInsightService(
	cycles repository.CycleRepository,
	outcomes repository.OutcomeRepository,
	accuracy repository.AccuracyRepository,
	cacheImpl cache.CycleCache,
) *InsightService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopCycleCache()
	}
	return &InsightService{
		cycles:   cycles,
		outcomes: outcomes,
		accuracy: accuracy,
		cache:    cacheImpl,
	}
}

// LatestActions returns the newest published cycle's action items, at most
// limit of them (0 means all).
func (s *InsightService) LatestActions(ctx context.Context, businessID string, limit int) ([]domain.ActionItem, error) {
	result, err := s.latestCycle(ctx, businessID)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return []domain.ActionItem{}, nil
	}

	items := result.Items
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// LatestCycle returns the newest published cycle, nil when none exists.
func (s *InsightService) LatestCycle(ctx context.Context, businessID string) (*domain.CycleResult, error) {
	return s.latestCycle(ctx, businessID)
}

// GetCycle returns a specific published cycle, nil when none with that key
// exists.
func (s *InsightService) GetCycle(ctx context.Context, businessID, cycleKey string) (*domain.CycleResult, error) {
	return s.cycles.GetCycle(ctx, businessID, cycleKey)
}

// RecordOutcome stores the realized result of an issued action item.
func (s *InsightService) RecordOutcome(ctx context.Context, o domain.RecommendationOutcome) error {
	return s.outcomes.SaveOutcome(ctx, o)
}

// Effectiveness reports the realized-over-estimated ratio per action category.
func (s *InsightService) Effectiveness(ctx context.Context, businessID string) ([]domain.Effectiveness, error) {
	return s.outcomes.Effectiveness(ctx, businessID)
}

// AccuracyHistory returns realized-vs-predicted observations for a product
// since the given date.
func (s *InsightService) AccuracyHistory(ctx context.Context, businessID, productID string, since time.Time) ([]domain.AccuracyObservation, error) {
	return s.accuracy.Observations(ctx, businessID, productID, since)
}

func (s *InsightService) latestCycle(ctx context.Context, businessID string) (*domain.CycleResult, error) {
	if result, ok, err := s.cache.GetLatest(ctx, businessID); err == nil && ok {
		return result, nil
	} else if err != nil {
		log.Warn().Err(err).Str("business_id", businessID).Msg("insight: cache get failed")
	}

	result, err := s.cycles.LatestCycle(ctx, businessID)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	if err := s.cache.SetLatest(ctx, result); err != nil {
		log.Warn().Err(err).Str("business_id", businessID).Msg("insight: cache set failed")
	}

	return result, nil
}
