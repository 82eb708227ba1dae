package inventory

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mounika-192643/InsightSphere-AI/internal/domain"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// forecastWith emits a flat forecast of `mean` units/day whose bounds imply
// the given daily standard deviation.
func forecastWith(productID string, mean, sigma float64, days int) *domain.ForecastResult {
	start := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	fc := &domain.ForecastResult{ProductID: productID, HorizonDays: days}
	for i := 0; i < days; i++ {
		margin := zSpread * sigma
		fc.Predictions = append(fc.Predictions, domain.DailyPrediction{
			Date:  start.Add(time.Duration(i) * 24 * time.Hour),
			Point: mean,
			Lower: mean - margin,
			Upper: mean + margin,
		})
	}
	return fc
}

func TestRecommend_SafetyStockAndReorderPoint(t *testing.T) {
	o := NewOptimizer(Config{ServiceLevelZ: 1.65, TargetCoverDays: 30})

	product := domain.Product{
		ProductID:    "sku-1",
		CostPrice:    dec("50"),
		CurrentPrice: dec("80"),
		CurrentStock: 40,
		OnOrder:      10,
		LeadTimeDays: 4,
	}
	fc := forecastWith("sku-1", 10, 2, 30)

	rec := o.Recommend(product, fc)

	wantSafety := 1.65 * 2 * math.Sqrt(4)
	assert.InDelta(t, wantSafety, rec.SafetyStock, 1e-6)
	assert.InDelta(t, 10*4+wantSafety, rec.ReorderPoint, 1e-6)

	wantOptimal := 10*30 + wantSafety
	assert.InDelta(t, wantOptimal, rec.OptimalStock, 1e-6)
	assert.Equal(t, math.Ceil(wantOptimal-40-10), rec.ReorderQty)
	assert.InDelta(t, 10*(80-50), rec.Score, 1e-6)
}

func TestRecommend_MinOrderFloor(t *testing.T) {
	o := NewOptimizer(Config{ServiceLevelZ: 1.65, TargetCoverDays: 30})

	product := domain.Product{
		ProductID:    "sku-1",
		CostPrice:    dec("50"),
		CurrentPrice: dec("80"),
		CurrentStock: 299,
		MinOrderQty:  25,
		LeadTimeDays: 2,
	}
	rec := o.Recommend(product, forecastWith("sku-1", 10, 0, 30))

	// Raw need is 1 unit; the supplier minimum lifts it.
	assert.Equal(t, 25.0, rec.ReorderQty)
}

func TestRecommend_NoReorderWhenStocked(t *testing.T) {
	o := NewOptimizer(Config{ServiceLevelZ: 1.65, TargetCoverDays: 30})

	product := domain.Product{
		ProductID:    "sku-1",
		CostPrice:    dec("50"),
		CurrentPrice: dec("80"),
		CurrentStock: 1000,
		LeadTimeDays: 2,
	}
	rec := o.Recommend(product, forecastWith("sku-1", 10, 1, 30))

	assert.Zero(t, rec.ReorderQty)
	assert.True(t, rec.ReorderCost.IsZero())
}

func catalog() (recs []domain.StockRecommendation, products map[string]domain.Product) {
	products = map[string]domain.Product{
		"fast": {ProductID: "fast", CostPrice: dec("10"), CurrentPrice: dec("20"), UnitVolume: 1, LeadTimeVar: 1},
		"mid":  {ProductID: "mid", CostPrice: dec("10"), CurrentPrice: dec("15"), UnitVolume: 1, LeadTimeVar: 2},
		"slow": {ProductID: "slow", CostPrice: dec("10"), CurrentPrice: dec("12"), UnitVolume: 1, LeadTimeVar: 1},
	}
	recs = []domain.StockRecommendation{
		{ProductID: "fast", ReorderQty: 100, ReorderCost: dec("1000"), Score: 200},
		{ProductID: "mid", ReorderQty: 100, ReorderCost: dec("1000"), Score: 100},
		{ProductID: "slow", ReorderQty: 100, ReorderCost: dec("1000"), Score: 20},
	}
	return recs, products
}

func TestAllocateCapacity_RespectsCap(t *testing.T) {
	recs, products := catalog()

	out := AllocateCapacity(recs, products, 250)

	var used float64
	for _, r := range out {
		used += r.ReorderQty * products[r.ProductID].UnitVolume
	}
	assert.LessOrEqual(t, used, 250.0)

	// Highest score fully served, lowest truncated.
	byID := indexByID(out)
	assert.Equal(t, 100.0, byID["fast"].ReorderQty)
	assert.Equal(t, 100.0, byID["mid"].ReorderQty)
	assert.Equal(t, 50.0, byID["slow"].ReorderQty)
	assert.Equal(t, domain.ConstraintStorage, byID["slow"].Constraint)
}

func TestAllocateCapacity_TieBreakByLeadTimeVariance(t *testing.T) {
	products := map[string]domain.Product{
		"steady": {ProductID: "steady", UnitVolume: 1, LeadTimeVar: 1},
		"jumpy":  {ProductID: "jumpy", UnitVolume: 1, LeadTimeVar: 9},
	}
	recs := []domain.StockRecommendation{
		{ProductID: "jumpy", ReorderQty: 100, Score: 50},
		{ProductID: "steady", ReorderQty: 100, Score: 50},
	}

	out := AllocateCapacity(recs, products, 100)
	byID := indexByID(out)

	assert.Equal(t, 100.0, byID["steady"].ReorderQty)
	assert.Equal(t, 0.0, byID["jumpy"].ReorderQty)
}

func TestAllocateBudget_ExactWithinBudget(t *testing.T) {
	recs, products := catalog()

	out, err := AllocateBudget(recs, products, dec("2000"))
	require.NoError(t, err)

	assert.True(t, TotalReorderCost(out).LessThanOrEqual(dec("2000")))

	// DP picks the two highest-scoring items at this budget.
	byID := indexByID(out)
	assert.Equal(t, 100.0, byID["fast"].ReorderQty)
	assert.Equal(t, 100.0, byID["mid"].ReorderQty)
	assert.Equal(t, 0.0, byID["slow"].ReorderQty)
	assert.Equal(t, domain.ConstraintBudget, byID["slow"].Constraint)
}

func TestAllocateBudget_UncappedKeepsEverything(t *testing.T) {
	recs, products := catalog()

	capped, err := AllocateBudget(recs, products, dec("1000"))
	require.NoError(t, err)
	uncapped, err := AllocateBudget(recs, products, decimal.Zero)
	require.NoError(t, err)

	// Removing the cap never reduces the number of fully funded products.
	assert.GreaterOrEqual(t, fundedCount(uncapped), fundedCount(capped))
	assert.Equal(t, 3, fundedCount(uncapped))
}

func TestAllocateBudget_OversizedCatalogFallsBack(t *testing.T) {
	recs, products := catalog()

	_, err := AllocateBudget(recs, products, dec("99000000"))
	require.Error(t, err)

	out := AllocateBudgetGreedy(recs, products, dec("2000"))
	assert.True(t, TotalReorderCost(out).LessThanOrEqual(dec("2000")))
	byID := indexByID(out)
	assert.Equal(t, 100.0, byID["fast"].ReorderQty)
	assert.Equal(t, 100.0, byID["mid"].ReorderQty)
	assert.Equal(t, 0.0, byID["slow"].ReorderQty)
}

func TestDetectSlowMovers_SustainedWindowOnly(t *testing.T) {
	start := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	mkSeries := func(id string, level float64) *domain.DemandSeries {
		s := &domain.DemandSeries{ProductID: id, Category: "snacks"}
		for i := 0; i < 60; i++ {
			s.Points = append(s.Points, domain.DemandPoint{
				Date:     start.Add(time.Duration(i) * 24 * time.Hour),
				Quantity: level,
			})
		}
		return s
	}

	// Ten products so the 20th percentile sits at the second-lowest velocity.
	series := make(map[string]*domain.DemandSeries)
	for i, level := range []float64{50, 45, 40, 35, 30, 25, 20, 15, 10} {
		id := fmt.Sprintf("sku-%d", i)
		series[id] = mkSeries(id, level)
	}
	series["frozen"] = mkSeries("frozen", 0.5)

	// A single bad day must not flag an otherwise healthy product.
	dip := series["sku-4"]
	dip.Points[len(dip.Points)-1].Quantity = 0

	slow := DetectSlowMovers(series, SlowMoverConfig{Percentile: 0.20, WindowDays: 14})

	assert.True(t, slow["frozen"])
	assert.False(t, slow["sku-4"])
	assert.False(t, slow["sku-0"])
	assert.False(t, slow["sku-8"])
}

func indexByID(recs []domain.StockRecommendation) map[string]domain.StockRecommendation {
	out := make(map[string]domain.StockRecommendation, len(recs))
	for _, r := range recs {
		out[r.ProductID] = r
	}
	return out
}

func fundedCount(recs []domain.StockRecommendation) int {
	n := 0
	for _, r := range recs {
		if r.ReorderQty > 0 {
			n++
		}
	}
	return n
}
