// internal/inventory/slowmover.go
package inventory

import (
	"math"
	"sort"

	"github.com/mounika-192643/InsightSphere-AI/internal/domain"
)

// trailingDays is the span of the velocity window used per day.
const trailingDays = 7

// SlowMoverConfig tunes slow-mover detection.
type SlowMoverConfig struct {
	Percentile float64 // category velocity percentile, e.g. 0.20
	WindowDays int     // sustained days required below the percentile
}

// DetectSlowMovers flags products whose trailing velocity stayed below the
// configured percentile of their category's velocity distribution for the
// whole sustained window. A single low day never flags; a flag only ever
// feeds a clearance recommendation, never an automatic price or stock change.
func DetectSlowMovers(series map[string]*domain.DemandSeries, cfg SlowMoverConfig) map[string]bool {
	if cfg.WindowDays < 1 {
		cfg.WindowDays = 14
	}

	// Category velocity distributions over the full window.
	velocities := make(map[string]float64, len(series))
	byCategory := make(map[string][]float64)
	for id, s := range series {
		v := trailingVelocity(s, 0)
		velocities[id] = v
		byCategory[s.Category] = append(byCategory[s.Category], v)
	}

	thresholds := make(map[string]float64, len(byCategory))
	for cat, vs := range byCategory {
		thresholds[cat] = percentile(vs, cfg.Percentile)
	}

	slow := make(map[string]bool)
	for id, s := range series {
		threshold := thresholds[s.Category]
		if threshold <= 0 {
			continue
		}
		sustained := true
		for back := 0; back < cfg.WindowDays; back++ {
			if trailingVelocity(s, back) >= threshold {
				sustained = false
				break
			}
		}
		if sustained {
			slow[id] = true
		}
	}
	return slow
}

// trailingVelocity is the mean daily quantity over the trailing window ending
// `back` days before the series end.
func trailingVelocity(s *domain.DemandSeries, back int) float64 {
	n := len(s.Points)
	end := n - back
	start := end - trailingDays
	if start < 0 {
		start = 0
	}
	if end <= start {
		return 0
	}
	var sum float64
	for _, p := range s.Points[start:end] {
		sum += p.Quantity
	}
	return sum / float64(end-start)
}

// percentile returns the p-th percentile (nearest-rank) of vs.
func percentile(vs []float64, p float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	sorted := make([]float64, len(vs))
	copy(sorted, vs)
	sort.Float64s(sorted)
	rank := int(math.Ceil(p*float64(len(sorted)))) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}
