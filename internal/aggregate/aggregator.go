// internal/aggregate/aggregator.go
package aggregate

import (
	"fmt"
	"sort"
	"time"

	"github.com/mounika-192643/InsightSphere-AI/internal/domain"
)

// Aggregator normalizes validated transactions into per-product daily demand
// series. Days inside the observed span with no transactions become explicit
// zero-quantity points so downstream confidence estimation can tell "no
// demand" apart from "no data".
type Aggregator struct {
	minHistoryDays int
}

// NewAggregator creates an Aggregator. minHistoryDays gates the forecaster's
// cold-start path: series with fewer observed days fail with
// ErrInsufficientHistory.
func NewAggregator(minHistoryDays int) *Aggregator {
	if minHistoryDays < 1 {
		minHistoryDays = 1
	}
	return &Aggregator{minHistoryDays: minHistoryDays}
}

type dayBucket struct {
	qty      float64
	priceQty float64 // sum of price*qty, for the weighted mean price
}

// BuildSeries aggregates one product's transactions to daily granularity.
// Transactions for other products are ignored. Returns ErrInsufficientHistory
// (wrapped) when the observed span is shorter than the configured minimum.
func (a *Aggregator) BuildSeries(product domain.Product, txs []domain.Transaction) (*domain.DemandSeries, error) {
	buckets := make(map[time.Time]*dayBucket)

	for _, tx := range txs {
		if tx.BusinessID != product.BusinessID || tx.ProductID != product.ProductID {
			continue
		}
		day := tx.Timestamp.UTC().Truncate(24 * time.Hour)
		b, ok := buckets[day]
		if !ok {
			b = &dayBucket{}
			buckets[day] = b
		}
		b.qty += tx.Quantity
		price, _ := tx.UnitPrice.Float64()
		b.priceQty += price * tx.Quantity
	}

	if len(buckets) == 0 {
		return nil, fmt.Errorf("product %s: no transactions: %w",
			product.ProductID, domain.ErrInsufficientHistory)
	}

	days := make([]time.Time, 0, len(buckets))
	for day := range buckets {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	first, last := days[0], days[len(days)-1]
	spanDays := int(last.Sub(first).Hours()/24) + 1

	series := &domain.DemandSeries{
		BusinessID: product.BusinessID,
		ProductID:  product.ProductID,
		Category:   product.Category,
		Location:   product.Location,
		Points:     make([]domain.DemandPoint, 0, spanDays),
	}

	// Walk the full span so interior gaps become explicit zeros.
	for day := first; !day.After(last); day = day.Add(24 * time.Hour) {
		point := domain.DemandPoint{Date: day}
		if b, ok := buckets[day]; ok {
			point.Quantity = b.qty
			if b.qty > 0 {
				point.UnitPrice = b.priceQty / b.qty
			}
		}
		series.Points = append(series.Points, point)
	}

	if spanDays < a.minHistoryDays {
		return series, fmt.Errorf("product %s: %d observed days, need %d: %w",
			product.ProductID, spanDays, a.minHistoryDays, domain.ErrInsufficientHistory)
	}

	return series, nil
}

// BuildAll aggregates every product of a business. Products with insufficient
// history still get their partial series back so the cold-start path can use
// whatever exists; the error is reported alongside.
func (a *Aggregator) BuildAll(products []domain.Product, txs []domain.Transaction) (map[string]*domain.DemandSeries, map[string]error) {
	series := make(map[string]*domain.DemandSeries, len(products))
	errs := make(map[string]error)

	for _, p := range products {
		s, err := a.BuildSeries(p, txs)
		if s != nil {
			series[p.ProductID] = s
		}
		if err != nil {
			errs[p.ProductID] = err
		}
	}

	return series, errs
}
