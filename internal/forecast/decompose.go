// internal/forecast/decompose.go
package forecast

import (
	"math"

	"github.com/mounika-192643/InsightSphere-AI/internal/domain"
)

// Decomposition is the classical trend + weekday-seasonal + residual split of
// a daily demand series.
type Decomposition struct {
	Intercept   float64    // trend value at the first observed day
	Slope       float64    // trend change per day
	DOWIndex    [7]float64 // multiplicative day-of-week indices, mean 1
	ResidualStd float64
	MeanDaily   float64
	N           int
}

// TrendAt extrapolates the fitted trend to day index i (0 = first observed
// day), floored at zero since demand cannot go negative.
func (d Decomposition) TrendAt(i int) float64 {
	return math.Max(0, d.Intercept+d.Slope*float64(i))
}

// Decompose fits an OLS linear trend over the day index, derives weekday
// indices from the detrended ratios, and measures the residual spread left
// after both components.
func Decompose(points []domain.DemandPoint) Decomposition {
	d := Decomposition{N: len(points)}
	for i := range d.DOWIndex {
		d.DOWIndex[i] = 1
	}
	if len(points) == 0 {
		return d
	}

	n := float64(len(points))
	var sumX, sumY, sumXY, sumXX float64
	for i, p := range points {
		x := float64(i)
		sumX += x
		sumY += p.Quantity
		sumXY += x * p.Quantity
		sumXX += x * x
	}
	d.MeanDaily = sumY / n

	denom := n*sumXX - sumX*sumX
	if denom != 0 {
		d.Slope = (n*sumXY - sumX*sumY) / denom
	}
	d.Intercept = (sumY - d.Slope*sumX) / n

	// Weekday indices from detrended ratios. A weekday never observed keeps
	// the neutral index 1.
	var ratioSum [7]float64
	var ratioN [7]int
	for i, p := range points {
		trend := d.TrendAt(i)
		if trend <= 0 {
			continue
		}
		dow := int(p.Date.Weekday())
		ratioSum[dow] += p.Quantity / trend
		ratioN[dow]++
	}
	var idxSum float64
	var idxN int
	for dow := range d.DOWIndex {
		if ratioN[dow] > 0 {
			d.DOWIndex[dow] = ratioSum[dow] / float64(ratioN[dow])
		}
		idxSum += d.DOWIndex[dow]
		idxN++
	}
	// Normalize so the indices average to 1 and do not shift the trend level.
	if idxSum > 0 {
		scale := float64(idxN) / idxSum
		for dow := range d.DOWIndex {
			d.DOWIndex[dow] *= scale
		}
	}

	var ssRes float64
	for i, p := range points {
		fitted := d.TrendAt(i) * d.DOWIndex[int(p.Date.Weekday())]
		diff := p.Quantity - fitted
		ssRes += diff * diff
	}
	d.ResidualStd = math.Sqrt(ssRes / n)

	return d
}
