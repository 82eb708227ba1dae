package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mounika-192643/InsightSphere-AI/internal/domain"
	"github.com/mounika-192643/InsightSphere-AI/internal/forecast"
)

func TestWarmTracker_RestoresRollingWindow(t *testing.T) {
	asOf := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	accuracy := &fakeAccuracyRepo{}
	for i := 1; i <= 5; i++ {
		err := accuracy.SaveObservation(context.Background(),
			"biz-1", "sku-1", asOf.AddDate(0, 0, -i), 10, 8)
		require.NoError(t, err)
	}

	// A freshly built tracker has no matured window for the product.
	tracker := forecast.NewTracker(90)
	_, ok := tracker.RollingAccuracy("sku-1", asOf)
	require.False(t, ok)

	svc := NewCycleService(nil, tracker, &fakeCycleRepo{}, accuracy, newFakeCache(), nil, 0)
	require.NoError(t, svc.WarmTracker(context.Background(), asOf.AddDate(0, 0, -90)))

	acc, ok := tracker.RollingAccuracy("sku-1", asOf)
	require.True(t, ok)
	// |8 - 10| / 8 = 0.25 APE on every observation.
	assert.InDelta(t, 0.75, acc, 1e-9)
}

func TestWarmTracker_RepositoryFailureSurfaces(t *testing.T) {
	tracker := forecast.NewTracker(90)
	svc := NewCycleService(nil, tracker, &fakeCycleRepo{}, &failingAccuracyRepo{}, newFakeCache(), nil, 0)

	err := svc.WarmTracker(context.Background(), time.Now().AddDate(0, 0, -90))
	assert.Error(t, err)
}

func TestRefreshCache_InvalidatesStaleEntryOnSetFailure(t *testing.T) {
	cache := newFakeCache()
	prior := publishedCycle(2)
	require.NoError(t, cache.SetLatest(context.Background(), prior))

	cache.setErr = fmt.Errorf("redis down")
	svc := NewCycleService(nil, forecast.NewTracker(90), &fakeCycleRepo{}, &fakeAccuracyRepo{}, cache, nil, 0)

	next := publishedCycle(3)
	next.CycleKey = "2026-W11"
	svc.refreshCache(context.Background(), next)

	// The previous week's entry must not keep serving as "latest".
	assert.Equal(t, 1, cache.invalidateCalls)
	_, ok := cache.stored["biz-1"]
	assert.False(t, ok)
}

type failingAccuracyRepo struct{}

func (r *failingAccuracyRepo) SaveObservation(ctx context.Context, businessID, productID string, date time.Time, predicted, actual float64) error {
	return fmt.Errorf("connection reset")
}

func (r *failingAccuracyRepo) Observations(ctx context.Context, businessID, productID string, since time.Time) ([]domain.AccuracyObservation, error) {
	return nil, fmt.Errorf("connection reset")
}

func (r *failingAccuracyRepo) RecentObservations(ctx context.Context, since time.Time) ([]domain.AccuracyObservation, error) {
	return nil, fmt.Errorf("connection reset")
}
