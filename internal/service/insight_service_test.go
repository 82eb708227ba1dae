package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mounika-192643/InsightSphere-AI/internal/domain"
)

type fakeCycleRepo struct {
	latest      *domain.CycleResult
	latestCalls int
}

func (r *fakeCycleRepo) GetCycle(ctx context.Context, businessID, cycleKey string) (*domain.CycleResult, error) {
	if r.latest != nil && r.latest.CycleKey == cycleKey {
		return r.latest, nil
	}
	return nil, nil
}

func (r *fakeCycleRepo) LatestCycle(ctx context.Context, businessID string) (*domain.CycleResult, error) {
	r.latestCalls++
	return r.latest, nil
}

func (r *fakeCycleRepo) PublishCycle(ctx context.Context, result *domain.CycleResult) error {
	r.latest = result
	return nil
}

func (r *fakeCycleRepo) PruneCycles(ctx context.Context, businessID string, keep int) error {
	return nil
}

type fakeOutcomeRepo struct {
	outcomes []domain.RecommendationOutcome
}

func (r *fakeOutcomeRepo) SaveOutcome(ctx context.Context, o domain.RecommendationOutcome) error {
	r.outcomes = append(r.outcomes, o)
	return nil
}

func (r *fakeOutcomeRepo) Effectiveness(ctx context.Context, businessID string) ([]domain.Effectiveness, error) {
	return []domain.Effectiveness{{Category: domain.ActionRestock, Count: len(r.outcomes), Ratio: 1}}, nil
}

type fakeAccuracyRepo struct {
	observations []domain.AccuracyObservation
}

func (r *fakeAccuracyRepo) SaveObservation(ctx context.Context, businessID, productID string, date time.Time, predicted, actual float64) error {
	r.observations = append(r.observations, domain.AccuracyObservation{
		BusinessID: businessID,
		ProductID:  productID,
		Date:       date,
		Predicted:  predicted,
		Actual:     actual,
	})
	return nil
}

func (r *fakeAccuracyRepo) Observations(ctx context.Context, businessID, productID string, since time.Time) ([]domain.AccuracyObservation, error) {
	var out []domain.AccuracyObservation
	for _, o := range r.observations {
		if o.ProductID == productID && !o.Date.Before(since) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *fakeAccuracyRepo) RecentObservations(ctx context.Context, since time.Time) ([]domain.AccuracyObservation, error) {
	var out []domain.AccuracyObservation
	for _, o := range r.observations {
		if !o.Date.Before(since) {
			out = append(out, o)
		}
	}
	return out, nil
}

type fakeCache struct {
	stored          map[string]*domain.CycleResult
	getErr          error
	setErr          error
	getCalls        int
	invalidateCalls int
}

func newFakeCache() *fakeCache {
	return &fakeCache{stored: make(map[string]*domain.CycleResult)}
}

func (c *fakeCache) GetLatest(ctx context.Context, businessID string) (*domain.CycleResult, bool, error) {
	c.getCalls++
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	result, ok := c.stored[businessID]
	return result, ok, nil
}

func (c *fakeCache) SetLatest(ctx context.Context, result *domain.CycleResult) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.stored[result.BusinessID] = result
	return nil
}

func (c *fakeCache) Invalidate(ctx context.Context, businessID string) error {
	c.invalidateCalls++
	delete(c.stored, businessID)
	return nil
}

func publishedCycle(n int) *domain.CycleResult {
	items := make([]domain.ActionItem, n)
	for i := range items {
		items[i] = domain.ActionItem{
			ID:         fmt.Sprintf("act-%d", i),
			BusinessID: "biz-1",
			CycleKey:   "2026-W10",
			ProductID:  fmt.Sprintf("sku-%d", i),
			Category:   domain.ActionRestock,
			Rank:       i + 1,
		}
	}
	return &domain.CycleResult{
		BusinessID:  "biz-1",
		CycleKey:    "2026-W10",
		Reason:      domain.ReasonScheduled,
		CompletedAt: time.Date(2026, time.March, 2, 6, 0, 0, 0, time.UTC),
		Items:       items,
	}
}

func TestLatestActions_CacheMissFillsCache(t *testing.T) {
	repo := &fakeCycleRepo{latest: publishedCycle(3)}
	cache := newFakeCache()
	svc := NewInsightService(repo, &fakeOutcomeRepo{}, &fakeAccuracyRepo{}, cache)

	items, err := svc.LatestActions(context.Background(), "biz-1", 0)
	require.NoError(t, err)
	assert.Len(t, items, 3)
	assert.Equal(t, 1, repo.latestCalls)

	// Second read is served from cache.
	_, err = svc.LatestActions(context.Background(), "biz-1", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.latestCalls)
	assert.Equal(t, 2, cache.getCalls)
}

func TestLatestActions_LimitTruncates(t *testing.T) {
	repo := &fakeCycleRepo{latest: publishedCycle(5)}
	svc := NewInsightService(repo, &fakeOutcomeRepo{}, &fakeAccuracyRepo{}, newFakeCache())

	items, err := svc.LatestActions(context.Background(), "biz-1", 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 1, items[0].Rank)
	assert.Equal(t, 2, items[1].Rank)
}

func TestLatestActions_CacheFailureFallsThrough(t *testing.T) {
	repo := &fakeCycleRepo{latest: publishedCycle(2)}
	cache := newFakeCache()
	cache.getErr = fmt.Errorf("redis down")
	cache.setErr = fmt.Errorf("redis down")
	svc := NewInsightService(repo, &fakeOutcomeRepo{}, &fakeAccuracyRepo{}, cache)

	items, err := svc.LatestActions(context.Background(), "biz-1", 0)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, 1, repo.latestCalls)
}

func TestLatestActions_NoCyclesYet(t *testing.T) {
	svc := NewInsightService(&fakeCycleRepo{}, &fakeOutcomeRepo{}, &fakeAccuracyRepo{}, newFakeCache())

	items, err := svc.LatestActions(context.Background(), "biz-1", 0)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestRecordOutcome_Persisted(t *testing.T) {
	outcomes := &fakeOutcomeRepo{}
	svc := NewInsightService(&fakeCycleRepo{}, outcomes, &fakeAccuracyRepo{}, nil)

	err := svc.RecordOutcome(context.Background(), domain.RecommendationOutcome{
		ActionID:      "act-1",
		BusinessID:    "biz-1",
		Category:      domain.ActionRestock,
		EstimatedGain: 200,
		RealizedGain:  140,
	})
	require.NoError(t, err)

	stats, err := svc.Effectiveness(context.Background(), "biz-1")
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 1, stats[0].Count)
}

func TestAccuracyHistory_SinceFilter(t *testing.T) {
	accuracy := &fakeAccuracyRepo{}
	svc := NewInsightService(&fakeCycleRepo{}, &fakeOutcomeRepo{}, accuracy, nil)

	base := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		err := accuracy.SaveObservation(context.Background(), "biz-1", "sku-1", base.AddDate(0, 0, i), 10, 9)
		require.NoError(t, err)
	}

	observations, err := svc.AccuracyHistory(context.Background(), "biz-1", "sku-1", base.AddDate(0, 0, 3))
	require.NoError(t, err)
	assert.Len(t, observations, 2)
}
