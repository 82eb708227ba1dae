// internal/inventory/allocation.go
package inventory

import (
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mounika-192643/InsightSphere-AI/internal/domain"
)

// maxKnapsackCells caps the exact budget solver's DP table; beyond it the
// caller falls back to the greedy allocator.
const maxKnapsackCells = 4_000_000

// rankForAllocation orders recommendations for greedy allocation: score
// (velocity x margin) descending, ties by lower lead-time variance (more
// predictable items win), final tie by product id for reproducibility.
func rankForAllocation(recs []domain.StockRecommendation, products map[string]domain.Product) []domain.StockRecommendation {
	out := make([]domain.StockRecommendation, len(recs))
	copy(out, recs)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		vi := products[out[i].ProductID].LeadTimeVar
		vj := products[out[j].ProductID].LeadTimeVar
		if vi != vj {
			return vi < vj
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out
}

// AllocateCapacity truncates reorder quantities so the summed storage units
// never exceed capacityUnits. Highest-scoring products are served first; a
// product cut below its minimum order gets nothing rather than an unorderable
// sliver. A non-positive capacity means uncapped.
func AllocateCapacity(recs []domain.StockRecommendation, products map[string]domain.Product, capacityUnits float64) []domain.StockRecommendation {
	if capacityUnits <= 0 {
		return recs
	}

	ranked := rankForAllocation(recs, products)
	remaining := capacityUnits

	for i := range ranked {
		p := products[ranked[i].ProductID]
		unitVolume := p.UnitVolume
		if unitVolume <= 0 {
			unitVolume = 1
		}
		need := ranked[i].ReorderQty * unitVolume
		if need <= remaining {
			remaining -= need
			continue
		}

		fit := math.Floor(remaining / unitVolume)
		if fit < p.MinOrderQty {
			fit = 0
		}
		ranked[i].ReorderQty = fit
		ranked[i].ReorderCost = p.CostPrice.Mul(decimal.NewFromFloat(fit))
		ranked[i].Constraint = domain.ConstraintStorage
		remaining -= fit * unitVolume
	}

	return ranked
}

// AllocateBudget solves the reorder-spend allocation exactly: maximize the
// summed score of fully funded products subject to total reorder cost <=
// budget, via a 0/1 knapsack over whole-rupee costs. Catalogs too large for
// the DP table fail with an error; the cycle runner then retries with
// AllocateBudgetGreedy.
func AllocateBudget(recs []domain.StockRecommendation, products map[string]domain.Product, budget decimal.Decimal) ([]domain.StockRecommendation, error) {
	if budget.LessThanOrEqual(decimal.Zero) {
		return recs, nil
	}

	type item struct {
		idx  int
		cost int64
	}
	items := make([]item, 0, len(recs))
	for i, r := range recs {
		if r.ReorderQty <= 0 {
			continue
		}
		items = append(items, item{idx: i, cost: r.ReorderCost.RoundCeil(0).IntPart()})
	}

	cap64 := budget.RoundDown(0).IntPart()
	if cap64 <= 0 || int64(len(items))*(cap64+1) > maxKnapsackCells {
		return nil, fmt.Errorf("budget allocation: %d items x %d budget exceeds solver bound", len(items), cap64)
	}

	// Classic DP over budget; dp[b] is the best total score within spend b.
	dp := make([]float64, cap64+1)
	take := make([][]bool, len(items))
	for i, it := range items {
		take[i] = make([]bool, cap64+1)
		value := recs[it.idx].Score
		for b := cap64; b >= it.cost; b-- {
			if cand := dp[b-it.cost] + value; cand > dp[b] {
				dp[b] = cand
				take[i][b] = true
			}
		}
	}

	selected := make(map[int]bool)
	b := cap64
	for i := len(items) - 1; i >= 0; i-- {
		if take[i][b] {
			selected[items[i].idx] = true
			b -= items[i].cost
		}
	}

	out := make([]domain.StockRecommendation, len(recs))
	copy(out, recs)
	for _, it := range items {
		if !selected[it.idx] {
			out[it.idx].ReorderQty = 0
			out[it.idx].ReorderCost = decimal.Zero
			out[it.idx].Constraint = domain.ConstraintBudget
		}
	}
	return out, nil
}

// AllocateBudgetGreedy is the fallback allocator: fund whole recommendations
// in rank order while they fit the remaining budget. Greedy by score with the
// same deterministic tie-breaks as capacity allocation; its optimality gap is
// bounded by the largest single skipped score.
func AllocateBudgetGreedy(recs []domain.StockRecommendation, products map[string]domain.Product, budget decimal.Decimal) []domain.StockRecommendation {
	if budget.LessThanOrEqual(decimal.Zero) {
		return recs
	}

	ranked := rankForAllocation(recs, products)
	remaining := budget

	for i := range ranked {
		if ranked[i].ReorderQty <= 0 {
			continue
		}
		if ranked[i].ReorderCost.LessThanOrEqual(remaining) {
			remaining = remaining.Sub(ranked[i].ReorderCost)
			continue
		}
		ranked[i].ReorderQty = 0
		ranked[i].ReorderCost = decimal.Zero
		ranked[i].Constraint = domain.ConstraintBudget
	}

	return ranked
}

// TotalReorderCost sums the cost of all funded recommendations.
func TotalReorderCost(recs []domain.StockRecommendation) decimal.Decimal {
	total := decimal.Zero
	for _, r := range recs {
		if r.ReorderQty > 0 {
			total = total.Add(r.ReorderCost)
		}
	}
	return total
}
