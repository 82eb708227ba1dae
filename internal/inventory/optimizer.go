// internal/inventory/optimizer.go
package inventory

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/mounika-192643/InsightSphere-AI/internal/domain"
)

// zSpread converts forecast bound half-widths back to a standard deviation;
// the forecaster emits ~90% bounds.
const zSpread = 1.64

// Config holds the inventory optimizer's closed set of tunables.
type Config struct {
	ServiceLevelZ   float64 // z-score for safety stock (1.65 ~ 95% service level)
	TargetCoverDays int
}

// Optimizer turns a forecast distribution plus supplier lead time into
// safety stock, reorder point and reorder quantity per product.
type Optimizer struct {
	cfg Config
}

// NewOptimizer creates an inventory Optimizer.
func NewOptimizer(cfg Config) *Optimizer {
	if cfg.TargetCoverDays < 1 {
		cfg.TargetCoverDays = 30
	}
	return &Optimizer{cfg: cfg}
}

// DemandStats extracts the mean daily demand and implied daily standard
// deviation from a forecast's point estimates and bounds.
func DemandStats(fc *domain.ForecastResult) (mean, sigma float64) {
	if fc == nil || len(fc.Predictions) == 0 {
		return 0, 0
	}
	var halfWidth float64
	for _, p := range fc.Predictions {
		mean += p.Point
		halfWidth += (p.Upper - p.Lower) / 2
	}
	n := float64(len(fc.Predictions))
	mean /= n
	sigma = halfWidth / n / zSpread
	return mean, sigma
}

// Recommend computes the per-product stock recommendation:
//
//	safety stock  = z * sigma_daily * sqrt(lead time)
//	reorder point = mean demand over lead time + safety stock
//	reorder qty   = demand for target cover days + safety stock
//	                - on hand - on order, floored at the minimum order
func (o *Optimizer) Recommend(product domain.Product, fc *domain.ForecastResult) domain.StockRecommendation {
	mean, sigma := DemandStats(fc)

	lead := math.Max(0, product.LeadTimeDays)
	safety := o.cfg.ServiceLevelZ * sigma * math.Sqrt(lead)
	reorderPoint := mean*lead + safety
	optimal := mean*float64(o.cfg.TargetCoverDays) + safety

	qty := math.Ceil(math.Max(0, optimal-product.CurrentStock-product.OnOrder))
	if qty > 0 && qty < product.MinOrderQty {
		qty = product.MinOrderQty
	}

	cost, _ := product.CostPrice.Float64()
	price, _ := product.CurrentPrice.Float64()
	margin := math.Max(0, price-cost)

	return domain.StockRecommendation{
		ProductID:    product.ProductID,
		CurrentStock: product.CurrentStock,
		OptimalStock: optimal,
		SafetyStock:  safety,
		ReorderPoint: reorderPoint,
		ReorderQty:   qty,
		ReorderCost:  product.CostPrice.Mul(decimal.NewFromFloat(qty)),
		Constraint:   domain.ConstraintNone,
		Score:        mean * margin,
	}
}
