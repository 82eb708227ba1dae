// internal/engine/composer.go
package engine

import (
	"fmt"
	"hash/fnv"
	"sort"
	"time"

	"github.com/mounika-192643/InsightSphere-AI/internal/domain"
)

// Carrying cost of a month of dead stock, as a share of its cost value. Feeds
// the clearance impact estimate only.
const clearanceCarryRate = 0.02

// Confidence assigned to signals that carry no forecast confidence of their
// own.
const (
	clearanceConfidence = 0.60
	watchConfidence     = 0.25
	defaultConfidence   = 0.50
)

// ProductOutput gathers one product's per-cycle analytical results. Any field
// but Product may be nil when the corresponding stage was skipped or
// suppressed.
type ProductOutput struct {
	Product  domain.Product
	Forecast *domain.ForecastResult
	Pricing  *domain.PricingRecommendation
	Stock    *domain.StockRecommendation
}

// Composer merges forecast, pricing and inventory outputs into the ranked
// ActionItem set a cycle publishes.
type Composer struct {
	maxItems int
}

// NewComposer creates a Composer that publishes at most maxItems items per
// cycle.
func NewComposer(maxItems int) *Composer {
	if maxItems < 1 {
		maxItems = 20
	}
	return &Composer{maxItems: maxItems}
}

// Compose derives action items from the per-product outputs, ranks them by
// impact (estimate x confidence) descending with product id as the tie break,
// and returns the top N. Items are created fresh; ids are deterministic for a
// given (business, cycle key, product, category) so re-composing the same
// cycle yields byte-identical output.
func (c *Composer) Compose(businessID, cycleKey string, outputs []ProductOutput, now time.Time) []domain.ActionItem {
	var items []domain.ActionItem
	for _, out := range outputs {
		items = append(items, c.derive(businessID, cycleKey, out, now)...)
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Impact != items[j].Impact {
			return items[i].Impact > items[j].Impact
		}
		if items[i].ProductID != items[j].ProductID {
			return items[i].ProductID < items[j].ProductID
		}
		return items[i].Category < items[j].Category
	})

	if len(items) > c.maxItems {
		items = items[:c.maxItems]
	}
	for i := range items {
		items[i].Rank = i + 1
	}
	return items
}

// derive maps one product's outputs onto zero or more action items.
func (c *Composer) derive(businessID, cycleKey string, out ProductOutput, now time.Time) []domain.ActionItem {
	var items []domain.ActionItem

	confidence := defaultConfidence
	if out.Forecast != nil {
		confidence = out.Forecast.Confidence
	}

	cost, _ := out.Product.CostPrice.Float64()
	price, _ := out.Product.CurrentPrice.Float64()

	add := func(cat domain.ActionCategory, estimate, conf float64, sources ...string) {
		items = append(items, domain.ActionItem{
			ID:         actionID(businessID, cycleKey, out.Product.ProductID, cat),
			BusinessID: businessID,
			CycleKey:   cycleKey,
			ProductID:  out.Product.ProductID,
			Category:   cat,
			Impact:     estimate * conf,
			Confidence: conf,
			SourceIDs:  sources,
			CreatedAt:  now,
		})
	}

	if out.Stock != nil && out.Stock.ReorderQty > 0 {
		// Revenue protected by not stocking out the reordered units.
		margin := price - cost
		if margin < 0 {
			margin = 0
		}
		add(domain.ActionRestock, out.Stock.ReorderQty*margin, confidence,
			sourceID("stock", cycleKey, out.Product.ProductID))
	}

	if out.Pricing != nil && !out.Pricing.RecommendedPrice.Equal(out.Pricing.CurrentPrice) {
		conf := confidence
		if out.Pricing.LowConfidence {
			conf /= 2
		}
		newPrice, _ := out.Pricing.RecommendedPrice.Float64()
		var meanDaily float64
		if out.Forecast != nil {
			meanDaily = out.Forecast.MeanDaily()
		}
		// Monthly revenue delta at the forecast volume, demand response included.
		delta := meanDaily * 30 * (newPrice*(1+out.Pricing.ExpectedQtyDelta) - price)
		if delta < 0 {
			delta = -delta
		}
		add(domain.ActionPriceChange, delta, conf,
			sourceID("pricing", cycleKey, out.Product.ProductID))
	}

	if out.Stock != nil && out.Stock.SlowMover {
		// Carrying cost freed by clearing the dead stock.
		add(domain.ActionClearance, out.Product.CurrentStock*cost*clearanceCarryRate, clearanceConfidence,
			sourceID("stock", cycleKey, out.Product.ProductID))
	}

	if out.Forecast != nil && out.Forecast.State != domain.ForecastActive {
		// Revenue exposed to an unproven model over the next month.
		add(domain.ActionWatch, out.Forecast.MeanDaily()*30*price, watchConfidence,
			sourceID("forecast", cycleKey, out.Product.ProductID))
	}

	return items
}

func sourceID(kind, cycleKey, productID string) string {
	return fmt.Sprintf("%s/%s/%s", kind, cycleKey, productID)
}

func actionID(businessID, cycleKey, productID string, cat domain.ActionCategory) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%s|%s", businessID, cycleKey, productID, cat)
	return fmt.Sprintf("act-%016x", h.Sum64())
}
