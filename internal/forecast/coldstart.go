// internal/forecast/coldstart.go
package forecast

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/mounika-192643/InsightSphere-AI/internal/calendar"
	"github.com/mounika-192643/InsightSphere-AI/internal/domain"
	"github.com/mounika-192643/InsightSphere-AI/internal/region"
)

// coldStartSpread is the relative half-width of cold-start bounds; without own
// history there is no residual to size them from.
const coldStartSpread = 0.5

// coldStartConfidence is the fixed confidence reported for seeded forecasts.
const coldStartConfidence = 0.30

// Donor pairs a candidate similar product with its demand series.
type Donor struct {
	Product domain.Product
	Series  *domain.DemandSeries
}

// ColdStart seeds a forecast for a product without sufficient own history.
//
// Donor selection: same category, enough history, ranked by price-tier
// closeness |log(targetPrice/donorPrice)| with ties broken by product id; the
// K closest are kept.
//
// Blend contract (tested): with donor weights w_d proportional to donor total
// demand, the seeded base level is M = Σ w_d · meanDaily_d and the per-day
// shape is Σ w_d · curve_d(h), where curve_d is the donor's extrapolated
// per-unit (mean-normalized) demand curve. For flat donors this reduces to
// the demand-weighted mean of their daily levels. Calendar and regional
// factors for the target's own scope apply on top.
func (f *Forecaster) ColdStart(
	target domain.Product,
	donors []Donor,
	k int,
	events *calendar.Snapshot,
	regions *region.Snapshot,
	horizonDays int,
	asOf time.Time,
) (*domain.ForecastResult, error) {
	if k < 1 {
		k = 1
	}

	type scored struct {
		donor Donor
		dec   Decomposition
		total float64
		dist  float64
	}

	targetPrice, _ := target.CurrentPrice.Float64()
	candidates := make([]scored, 0, len(donors))
	for _, d := range donors {
		if d.Product.Category != target.Category || d.Series == nil {
			continue
		}
		if len(d.Series.Points) < f.cfg.MinHistoryDays {
			continue
		}
		var total float64
		for _, p := range d.Series.Points {
			total += p.Quantity
		}
		if total <= 0 {
			continue
		}
		donorPrice, _ := d.Product.CurrentPrice.Float64()
		candidates = append(candidates, scored{
			donor: d,
			dec:   Decompose(d.Series.Points),
			total: total,
			dist:  priceTierDistance(targetPrice, donorPrice),
		})
	}

	if len(candidates) == 0 {
		return nil, fmt.Errorf("cold start %s: no similar products in category %q: %w",
			target.ProductID, target.Category, domain.ErrInsufficientHistory)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].dist != candidates[j].dist {
			return candidates[i].dist < candidates[j].dist
		}
		return candidates[i].donor.Product.ProductID < candidates[j].donor.Product.ProductID
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}

	var totalDemand float64
	for _, c := range candidates {
		totalDemand += c.total
	}

	// Demand-weighted base level across donors.
	var level float64
	for _, c := range candidates {
		level += (c.total / totalDemand) * c.dec.MeanDaily
	}

	regFactor, ok := regions.Resolve(target.Location, target.Category)
	if !ok {
		regFactor = region.Neutral(target.Location, target.Category)
	}
	regMult := regFactor.Multiplier()

	result := &domain.ForecastResult{
		BusinessID:    target.BusinessID,
		ProductID:     target.ProductID,
		HorizonDays:   horizonDays,
		GeneratedAt:   asOf,
		State:         domain.ForecastColdStart,
		Confidence:    coldStartConfidence,
		LowConfidence: true,
		Warnings:      []string{"low_confidence"},
		Predictions:   make([]domain.DailyPrediction, 0, horizonDays),
	}

	start := asOf.UTC().Truncate(24 * time.Hour)
	for h := 1; h <= horizonDays; h++ {
		date := start.Add(time.Duration(h) * 24 * time.Hour)

		var shape float64
		for _, c := range candidates {
			n := len(c.donor.Series.Points)
			unit := c.dec.TrendAt(n-1+h) * c.dec.DOWIndex[int(date.Weekday())] / c.dec.MeanDaily
			shape += (c.total / totalDemand) * unit
		}

		composite := events.FactorFor(target.Category, target.Location, date)
		point := level * shape * composite.Multiplier * regMult

		result.Predictions = append(result.Predictions, domain.DailyPrediction{
			Date:           date,
			Point:          point,
			Lower:          math.Max(0, point*(1-coldStartSpread)),
			Upper:          point * (1 + coldStartSpread),
			SeasonalFactor: composite.Multiplier,
			RegionalFactor: regMult,
		})
	}

	f.tracker.RecordForecast(result)

	return result, nil
}

// priceTierDistance measures how far apart two prices are in relative terms.
func priceTierDistance(a, b float64) float64 {
	if a <= 0 || b <= 0 {
		return 1
	}
	return math.Abs(math.Log(a / b))
}
