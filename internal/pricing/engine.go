// internal/pricing/engine.go
package pricing

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/mounika-192643/InsightSphere-AI/internal/domain"
)

// Config holds the pricing engine's closed set of tunables.
type Config struct {
	MinimumMargin     float64 // hard floor: price >= cost * (1 + MinimumMargin)
	CompetitorBand    float64 // max relative distance from competitor price
	MinPricePoints    int
	MinPriceVariation float64
	CostPlusMarkup    float64 // fallback markup when elasticity cannot be fit
}

// Engine estimates demand elasticity per product and proposes a price.
type Engine struct {
	cfg Config
}

// NewEngine creates a pricing Engine.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Recommend proposes a price for one product.
//
// Numeric contract: the candidate price is the elasticity-optimal point (or
// cost-plus fallback), pulled inside the competitor band when competitor data
// exists, then raised to the margin floor. The floor is never relaxed: when
// it cannot be reconciled with the competitor band the recommendation fails
// with ErrConstraintViolation and is suppressed for this product. For cost
// 100, margin 20%, competitor 110 and a 10% band, a candidate below the
// floor is raised to exactly 120; a candidate above the band (the 130
// cost-plus fallback, say) is clamped to 121 and stays competitor-bound.
func (e *Engine) Recommend(product domain.Product, series *domain.DemandSeries, deseason DeseasonFunc) (*domain.PricingRecommendation, error) {
	cost, _ := product.CostPrice.Float64()
	current, _ := product.CurrentPrice.Float64()
	if cost <= 0 {
		return nil, fmt.Errorf("pricing %s: no cost price: %w",
			product.ProductID, domain.ErrConstraintViolation)
	}

	floor := cost * (1 + e.cfg.MinimumMargin)

	est := FitElasticity(series, deseason, e.cfg.MinPricePoints, e.cfg.MinPriceVariation)

	rec := &domain.PricingRecommendation{
		ProductID:    product.ProductID,
		CurrentPrice: product.CurrentPrice,
		Elasticity:   &est,
	}

	var candidate float64
	if est.Reliable {
		candidate = optimalPrice(cost, est)
		rec.Rationale = domain.RationaleElasticityOptimal
	} else {
		candidate = cost * (1 + e.cfg.CostPlusMarkup)
		rec.Rationale = domain.RationaleCostPlusFallback
		rec.LowConfidence = true
	}

	if product.CompetitorPrice != nil {
		comp, _ := product.CompetitorPrice.Float64()
		lo := comp * (1 - e.cfg.CompetitorBand)
		hi := comp * (1 + e.cfg.CompetitorBand)
		if floor > hi {
			return nil, fmt.Errorf("pricing %s: margin floor %.2f above competitor band [%.2f, %.2f]: %w",
				product.ProductID, floor, lo, hi, domain.ErrConstraintViolation)
		}
		if candidate < lo {
			candidate = lo
			rec.Rationale = domain.RationaleCompetitorBound
		} else if candidate > hi {
			candidate = hi
			rec.Rationale = domain.RationaleCompetitorBound
		}
	}

	if candidate < floor {
		candidate = floor
		rec.Rationale = domain.RationaleMarginFloor
	}

	// Round up so rounding can never dip below the floor.
	rec.RecommendedPrice = decimal.NewFromFloat(candidate).RoundCeil(2)
	rec.MarginSatisfied = true

	if est.Reliable && current > 0 {
		newPrice, _ := rec.RecommendedPrice.Float64()
		rec.ExpectedQtyDelta = math.Pow(newPrice/current, est.Slope) - 1
	}

	return rec, nil
}

// optimalPrice is the profit-maximizing price under constant elasticity:
// p* = cost * e / (1 + e) for elastic demand (e < -1). Inelastic estimates
// have no interior optimum, so the highest historically accepted price is
// used as the bounded candidate.
func optimalPrice(cost float64, est domain.ElasticityEstimate) float64 {
	if est.Slope < -1 {
		p := cost * est.Slope / (1 + est.Slope)
		// Stay within the historically validated range.
		return clampRange(p, est.PriceMin, est.PriceMax)
	}
	return est.PriceMax
}

func clampRange(v, lo, hi float64) float64 {
	if lo > 0 && v < lo {
		return lo
	}
	if hi > 0 && v > hi {
		return hi
	}
	return v
}
