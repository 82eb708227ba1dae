// internal/forecast/accuracy.go
package forecast

import (
	"sync"
	"time"

	"github.com/mounika-192643/InsightSphere-AI/internal/domain"
)

// Accuracy metric: rolling MAPE over matured predictions from the most recent
// window of days, reported as accuracy = 1 - MAPE. Days whose realized demand
// is zero are excluded since the percentage error is undefined there.

type maturedError struct {
	date time.Time
	ape  float64
}

// Tracker persists realized-vs-predicted errors per product and serves the
// rolling accuracy metric the forecaster's DEGRADED gate reads.
type Tracker struct {
	mu         sync.Mutex
	windowDays int
	pending    map[string]map[time.Time]float64 // productID -> date -> predicted
	matured    map[string][]maturedError
}

// NewTracker creates a tracker with the given rolling window in days.
func NewTracker(windowDays int) *Tracker {
	if windowDays < 1 {
		windowDays = 90
	}
	return &Tracker{
		windowDays: windowDays,
		pending:    make(map[string]map[time.Time]float64),
		matured:    make(map[string][]maturedError),
	}
}

// RecordForecast stores a result's point predictions so later actuals can be
// scored against them. Re-recording a (product, date) overwrites the pending
// prediction: the newest forecast is the one scored.
func (t *Tracker) RecordForecast(result *domain.ForecastResult) {
	t.mu.Lock()
	defer t.mu.Unlock()

	byDate, ok := t.pending[result.ProductID]
	if !ok {
		byDate = make(map[time.Time]float64)
		t.pending[result.ProductID] = byDate
	}
	for _, p := range result.Predictions {
		byDate[p.Date.UTC().Truncate(24*time.Hour)] = p.Point
	}
}

// RecordActual matures the prediction for (product, date) against the
// realized quantity. Unpredicted days are ignored.
func (t *Tracker) RecordActual(productID string, date time.Time, actual float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	date = date.UTC().Truncate(24 * time.Hour)
	byDate, ok := t.pending[productID]
	if !ok {
		return
	}
	predicted, ok := byDate[date]
	if !ok {
		return
	}
	delete(byDate, date)

	if actual <= 0 {
		return
	}
	ape := (actual - predicted) / actual
	if ape < 0 {
		ape = -ape
	}
	t.matured[productID] = append(t.matured[productID], maturedError{date: date, ape: ape})
}

// Observe matures a (predicted, actual) pair directly, bypassing the pending
// map. Used to rebuild the rolling window from persisted history on startup.
func (t *Tracker) Observe(productID string, date time.Time, predicted, actual float64) {
	if actual <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	date = date.UTC().Truncate(24 * time.Hour)
	ape := (actual - predicted) / actual
	if ape < 0 {
		ape = -ape
	}
	t.matured[productID] = append(t.matured[productID], maturedError{date: date, ape: ape})
}

// RollingAccuracy returns 1 - MAPE over matured errors inside the window
// ending at asOf. ok is false when no matured prediction is in the window.
func (t *Tracker) RollingAccuracy(productID string, asOf time.Time) (float64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := asOf.UTC().Truncate(24 * time.Hour).Add(-time.Duration(t.windowDays) * 24 * time.Hour)
	var sum float64
	var n int
	for _, e := range t.matured[productID] {
		if e.date.Before(cutoff) || e.date.After(asOf) {
			continue
		}
		sum += e.ape
		n++
	}
	if n == 0 {
		return 0, false
	}
	mape := sum / float64(n)
	if mape > 1 {
		mape = 1
	}
	return 1 - mape, true
}
