// internal/pricing/elasticity.go
package pricing

import (
	"math"
	"time"

	"github.com/mounika-192643/InsightSphere-AI/internal/domain"
)

// DeseasonFunc returns the composite seasonal/regional multiplier that applied
// on a date. Dividing observed quantities by it keeps festival spikes from
// being read as price response. A nil func means no adjustment.
type DeseasonFunc func(date time.Time) float64

// FitElasticity fits log(quantity) = a + slope*log(price) over a product's
// own (price, quantity) days. Days without sales or price carry no
// information and are skipped. The estimate is marked unreliable when fewer
// than minPoints distinct prices were observed or the price variation
// (coefficient of variation) is below minVariation; the engine then uses the
// cost-plus fallback instead of fabricating a precise slope.
func FitElasticity(series *domain.DemandSeries, deseason DeseasonFunc, minPoints int, minVariation float64) domain.ElasticityEstimate {
	est := domain.ElasticityEstimate{ProductID: series.ProductID}

	type obs struct{ logP, logQ float64 }
	var points []obs
	distinct := make(map[float64]bool)
	var priceSum, priceSq float64

	for _, p := range series.Points {
		if p.Quantity <= 0 || p.UnitPrice <= 0 {
			continue
		}
		qty := p.Quantity
		if deseason != nil {
			if m := deseason(p.Date); m > 0 {
				qty /= m
			}
		}
		points = append(points, obs{logP: math.Log(p.UnitPrice), logQ: math.Log(qty)})
		distinct[p.UnitPrice] = true
		priceSum += p.UnitPrice
		priceSq += p.UnitPrice * p.UnitPrice
		if est.PriceMin == 0 || p.UnitPrice < est.PriceMin {
			est.PriceMin = p.UnitPrice
		}
		if p.UnitPrice > est.PriceMax {
			est.PriceMax = p.UnitPrice
		}
	}

	n := float64(len(points))
	if len(distinct) < minPoints || n < 3 {
		return est
	}

	mean := priceSum / n
	variance := priceSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	if mean <= 0 || math.Sqrt(variance)/mean < minVariation {
		return est
	}

	var sumX, sumY, sumXY, sumXX float64
	for _, o := range points {
		sumX += o.logP
		sumY += o.logQ
		sumXY += o.logP * o.logQ
		sumXX += o.logP * o.logP
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return est
	}
	est.Slope = (n*sumXY - sumX*sumY) / denom
	intercept := (sumY - est.Slope*sumX) / n

	// Standard error of the fitted slope.
	var ssRes, ssX float64
	meanX := sumX / n
	for _, o := range points {
		diff := o.logQ - (intercept + est.Slope*o.logP)
		ssRes += diff * diff
		ssX += (o.logP - meanX) * (o.logP - meanX)
	}
	if n > 2 && ssX > 0 {
		est.StdErr = math.Sqrt(ssRes / (n - 2) / ssX)
	}
	est.Reliable = true

	return est
}
