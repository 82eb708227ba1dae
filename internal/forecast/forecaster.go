// internal/forecast/forecaster.go
package forecast

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mounika-192643/InsightSphere-AI/internal/calendar"
	"github.com/mounika-192643/InsightSphere-AI/internal/domain"
	"github.com/mounika-192643/InsightSphere-AI/internal/region"
)

// zBound is the z-score behind the reported confidence bounds (~90% interval).
const zBound = 1.64

// Config holds the forecaster's closed set of tunables.
type Config struct {
	MinHistoryDays   int
	AccuracyFloor    float64
	DegradedWidening float64
}

// Forecaster produces per-product forecasts from decomposed demand series and
// the cycle's adjuster snapshots. It is safe for concurrent use: per-product
// state lives in the arguments, shared state only in the tracker.
type Forecaster struct {
	cfg     Config
	tracker *Tracker
}

// New creates a Forecaster.
func New(cfg Config, tracker *Tracker) *Forecaster {
	if cfg.DegradedWidening < 1 {
		cfg.DegradedWidening = 1.5
	}
	return &Forecaster{cfg: cfg, tracker: tracker}
}

// Forecast extrapolates a series over horizonDays, applying the calendar and
// regional snapshot factors per day. Returns ErrInsufficientHistory (wrapped)
// when the series is shorter than the configured minimum; the caller routes
// those products to ColdStart.
func (f *Forecaster) Forecast(
	series *domain.DemandSeries,
	events *calendar.Snapshot,
	regions *region.Snapshot,
	horizonDays int,
	asOf time.Time,
) (*domain.ForecastResult, error) {
	if series == nil || len(series.Points) < f.cfg.MinHistoryDays {
		got := 0
		if series != nil {
			got = len(series.Points)
		}
		return nil, fmt.Errorf("forecast %s: %d observed days, need %d: %w",
			seriesID(series), got, f.cfg.MinHistoryDays, domain.ErrInsufficientHistory)
	}

	dec := Decompose(series.Points)

	regFactor, ok := regions.Resolve(series.Location, series.Category)
	if !ok {
		regFactor = region.Neutral(series.Location, series.Category)
	}
	regMult := regFactor.Multiplier()

	result := &domain.ForecastResult{
		BusinessID:  series.BusinessID,
		ProductID:   series.ProductID,
		HorizonDays: horizonDays,
		GeneratedAt: asOf,
		State:       domain.ForecastActive,
		Predictions: make([]domain.DailyPrediction, 0, horizonDays),
	}

	widen := 1.0
	if acc, known := f.tracker.RollingAccuracy(series.ProductID, asOf); known {
		result.RollingAccuracy = &acc
		if acc < f.cfg.AccuracyFloor {
			// Serve the forecast anyway, visibly degraded, never silently.
			result.State = domain.ForecastDegraded
			result.Warnings = append(result.Warnings, "model_degraded")
			widen = f.cfg.DegradedWidening
			log.Warn().Str("product", series.ProductID).Float64("accuracy", acc).
				Msg("forecast: rolling accuracy below floor, widening bounds")
		}
	}

	lastDate := series.End()
	n := len(series.Points)
	conflictSeen := false

	for h := 1; h <= horizonDays; h++ {
		date := lastDate.Add(time.Duration(h) * 24 * time.Hour)

		base := dec.TrendAt(n-1+h) * dec.DOWIndex[int(date.Weekday())]
		composite := events.FactorFor(series.Category, series.Location, date)
		if composite.Conflicting && !conflictSeen {
			result.Warnings = append(result.Warnings, "adjustment_conflict")
			conflictSeen = true
		}

		point := base * composite.Multiplier * regMult
		margin := zBound * dec.ResidualStd * math.Sqrt(1+float64(h)/float64(horizonDays)) * widen

		result.Predictions = append(result.Predictions, domain.DailyPrediction{
			Date:           date,
			Point:          point,
			Lower:          math.Max(0, point-margin),
			Upper:          point + margin,
			SeasonalFactor: composite.Multiplier,
			RegionalFactor: regMult,
		})
	}

	result.Confidence = confidence(dec, result.RollingAccuracy)
	f.tracker.RecordForecast(result)

	return result, nil
}

// confidence folds residual spread and (when known) rolling accuracy into a
// single figure in (0, 1).
func confidence(dec Decomposition, rolling *float64) float64 {
	cv := 0.0
	if dec.MeanDaily > 0 {
		cv = dec.ResidualStd / dec.MeanDaily
	}
	conf := 1 - cv
	if rolling != nil {
		conf = conf * *rolling
	}
	return clamp(conf, 0.05, 0.99)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func seriesID(s *domain.DemandSeries) string {
	if s == nil {
		return "<nil>"
	}
	return s.ProductID
}
