package forecast

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mounika-192643/InsightSphere-AI/internal/calendar"
	"github.com/mounika-192643/InsightSphere-AI/internal/domain"
	"github.com/mounika-192643/InsightSphere-AI/internal/region"
)

var seriesStart = time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

func flatSeries(days int, level float64) *domain.DemandSeries {
	s := &domain.DemandSeries{
		BusinessID: "biz-1",
		ProductID:  "sku-1",
		Category:   "snacks",
		Location:   "Mumbai",
	}
	for i := 0; i < days; i++ {
		s.Points = append(s.Points, domain.DemandPoint{
			Date:     seriesStart.Add(time.Duration(i) * 24 * time.Hour),
			Quantity: level,
		})
	}
	return s
}

func weeklySeries(days int, base float64) *domain.DemandSeries {
	// Weekend demand is double the weekday level, no trend.
	s := flatSeries(days, base)
	for i := range s.Points {
		switch s.Points[i].Date.Weekday() {
		case time.Saturday, time.Sunday:
			s.Points[i].Quantity = 2 * base
		}
	}
	return s
}

func emptySnapshots() (*calendar.Snapshot, *region.Snapshot) {
	return calendar.NewRegistry(region.StateOf).Snapshot(), region.NewAdjuster().Snapshot()
}

func newForecaster(minDays int) *Forecaster {
	return New(Config{
		MinHistoryDays:   minDays,
		AccuracyFloor:    0.80,
		DegradedWidening: 1.5,
	}, NewTracker(90))
}

func TestForecast_FlatDemandWithFestivalWindow(t *testing.T) {
	f := newForecaster(30)
	series := flatSeries(120, 10)

	// Festival with multiplier 3.0 for 5 days starting day 40 of the horizon.
	festStart := series.End().Add(40 * 24 * time.Hour)
	reg := calendar.NewRegistry(region.StateOf)
	reg.Upsert(calendar.Event{
		Name: "festival",
		Kind: calendar.KindFestival,
		Recurrence: calendar.Recurrence{
			Length: 5,
			Starts: map[int]time.Time{festStart.Year(): festStart},
		},
		BaseMultiplier: 3.0,
	})
	_, regions := emptySnapshots()

	result, err := f.Forecast(series, reg.Snapshot(), regions, 90, series.End())
	require.NoError(t, err)
	require.Len(t, result.Predictions, 90)
	assert.Equal(t, domain.ForecastActive, result.State)

	for i, p := range result.Predictions {
		day := i + 1
		if day >= 40 && day <= 44 {
			assert.InDelta(t, 30.0, p.Point, 0.5, "festival day %d", day)
			assert.InDelta(t, 3.0, p.SeasonalFactor, 1e-9)
		} else {
			assert.InDelta(t, 10.0, p.Point, 0.5, "baseline day %d", day)
		}
	}
}

func TestForecast_AppliesRegionalGrowth(t *testing.T) {
	f := newForecaster(30)
	series := flatSeries(60, 10)

	events, _ := emptySnapshots()
	adj := region.NewAdjuster()
	adj.Upsert(domain.RegionalFactor{Location: "Maharashtra", Category: "snacks", GrowthRate: 0.10})

	result, err := f.Forecast(series, events, adj.Snapshot(), 30, series.End())
	require.NoError(t, err)
	// Mumbai falls back to the Maharashtra factor.
	assert.InDelta(t, 11.0, result.Predictions[0].Point, 0.1)
	assert.InDelta(t, 1.10, result.Predictions[0].RegionalFactor, 1e-9)
}

func TestForecast_HeldOutErrorWithinBound(t *testing.T) {
	// Stable weekly pattern over a year; fit on the first nine months and
	// score the rest. MAPE on held-out days must stay within 20%.
	f := newForecaster(30)
	full := weeklySeries(365, 10)
	train := &domain.DemandSeries{
		BusinessID: full.BusinessID,
		ProductID:  full.ProductID,
		Category:   full.Category,
		Location:   full.Location,
		Points:     full.Points[:270],
	}

	events, regions := emptySnapshots()
	result, err := f.Forecast(train, events, regions, 90, train.End())
	require.NoError(t, err)

	var sumAPE float64
	var n int
	for i, p := range result.Predictions {
		actual := full.Points[270+i].Quantity
		sumAPE += math.Abs(actual-p.Point) / actual
		n++
	}
	assert.LessOrEqual(t, sumAPE/float64(n), 0.20)
}

func TestForecast_BoundsWidenWithHorizon(t *testing.T) {
	f := newForecaster(30)
	series := weeklySeries(120, 10)
	events, regions := emptySnapshots()

	result, err := f.Forecast(series, events, regions, 90, series.End())
	require.NoError(t, err)

	first := result.Predictions[0]
	last := result.Predictions[89]
	assert.Greater(t, last.Upper-last.Lower, first.Upper-first.Lower)
	assert.GreaterOrEqual(t, first.Lower, 0.0)
}

func TestForecast_InsufficientHistory(t *testing.T) {
	f := newForecaster(30)
	events, regions := emptySnapshots()

	_, err := f.Forecast(flatSeries(10, 5), events, regions, 30, seriesStart)
	assert.ErrorIs(t, err, domain.ErrInsufficientHistory)
}

func TestForecast_DegradedWhenAccuracyBelowFloor(t *testing.T) {
	tracker := NewTracker(90)
	f := New(Config{MinHistoryDays: 30, AccuracyFloor: 0.80, DegradedWidening: 2.0}, tracker)

	series := flatSeries(60, 10)
	events, regions := emptySnapshots()

	baseline, err := f.Forecast(series, events, regions, 30, series.End())
	require.NoError(t, err)
	assert.Equal(t, domain.ForecastActive, baseline.State)

	// Actuals come in far from the predictions: rolling accuracy collapses.
	for _, p := range baseline.Predictions[:10] {
		tracker.RecordActual(series.ProductID, p.Date, p.Point*3)
	}

	asOf := baseline.Predictions[9].Date
	degraded, err := f.Forecast(series, events, regions, 30, asOf)
	require.NoError(t, err)

	assert.Equal(t, domain.ForecastDegraded, degraded.State)
	assert.Contains(t, degraded.Warnings, "model_degraded")
	require.NotNil(t, degraded.RollingAccuracy)
	assert.Less(t, *degraded.RollingAccuracy, 0.80)
}

func TestTracker_RollingAccuracy(t *testing.T) {
	tracker := NewTracker(90)
	result := &domain.ForecastResult{
		ProductID: "sku-1",
		Predictions: []domain.DailyPrediction{
			{Date: seriesStart, Point: 10},
			{Date: seriesStart.Add(24 * time.Hour), Point: 10},
		},
	}
	tracker.RecordForecast(result)

	_, known := tracker.RollingAccuracy("sku-1", seriesStart)
	assert.False(t, known, "no matured predictions yet")

	// One exact day, one 25% off.
	tracker.RecordActual("sku-1", seriesStart, 10)
	tracker.RecordActual("sku-1", seriesStart.Add(24*time.Hour), 8)

	acc, known := tracker.RollingAccuracy("sku-1", seriesStart.Add(48*time.Hour))
	require.True(t, known)
	assert.InDelta(t, 1-0.125, acc, 1e-9)
}

func TestTracker_ObserveMaturesWithoutPendingForecast(t *testing.T) {
	tracker := NewTracker(90)

	// No RecordForecast happened: the window is rebuilt from stored history.
	tracker.Observe("sku-1", seriesStart, 10, 10)
	tracker.Observe("sku-1", seriesStart.Add(24*time.Hour), 10, 8)
	tracker.Observe("sku-1", seriesStart.Add(48*time.Hour), 10, 0) // undefined APE, skipped

	acc, known := tracker.RollingAccuracy("sku-1", seriesStart.Add(72*time.Hour))
	require.True(t, known)
	assert.InDelta(t, 1-0.125, acc, 1e-9)
}

func TestColdStart_DemandWeightedBlend(t *testing.T) {
	f := newForecaster(30)
	events, regions := emptySnapshots()

	target := domain.Product{
		BusinessID: "biz-1",
		ProductID:  "sku-new",
		Category:   "snacks",
		Location:   "Mumbai",
	}

	donors := []Donor{
		{Product: domain.Product{ProductID: "sku-a", Category: "snacks"}, Series: flatSeries(60, 10)},
		{Product: domain.Product{ProductID: "sku-b", Category: "snacks"}, Series: flatSeries(60, 20)},
		{Product: domain.Product{ProductID: "sku-c", Category: "snacks"}, Series: flatSeries(60, 30)},
	}
	for i := range donors {
		donors[i].Series.ProductID = donors[i].Product.ProductID
	}

	result, err := f.ColdStart(target, donors, 3, events, regions, 30, seriesStart)
	require.NoError(t, err)

	assert.Equal(t, domain.ForecastColdStart, result.State)
	assert.True(t, result.LowConfidence)
	assert.Contains(t, result.Warnings, "low_confidence")

	// Demand-weighted blend of flat donors: (10*10 + 20*20 + 30*30) / 60.
	want := (10.0*10 + 20.0*20 + 30.0*30) / 60.0
	for _, p := range result.Predictions {
		assert.InDelta(t, want, p.Point, 0.01)
	}
}

func TestColdStart_NoSimilarProducts(t *testing.T) {
	f := newForecaster(30)
	events, regions := emptySnapshots()

	target := domain.Product{ProductID: "sku-new", Category: "electronics"}
	donors := []Donor{
		{Product: domain.Product{ProductID: "sku-a", Category: "snacks"}, Series: flatSeries(60, 10)},
	}

	_, err := f.ColdStart(target, donors, 3, events, regions, 30, seriesStart)
	assert.ErrorIs(t, err, domain.ErrInsufficientHistory)
}
