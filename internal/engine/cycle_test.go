package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mounika-192643/InsightSphere-AI/internal/aggregate"
	"github.com/mounika-192643/InsightSphere-AI/internal/calendar"
	"github.com/mounika-192643/InsightSphere-AI/internal/domain"
	"github.com/mounika-192643/InsightSphere-AI/internal/forecast"
	"github.com/mounika-192643/InsightSphere-AI/internal/inventory"
	"github.com/mounika-192643/InsightSphere-AI/internal/pricing"
	"github.com/mounika-192643/InsightSphere-AI/internal/region"
)

type memSource struct {
	products    []domain.Product
	txs         []domain.Transaction
	constraints domain.BusinessConstraints
}

func (m *memSource) Products(ctx context.Context, businessID string) ([]domain.Product, error) {
	return m.products, nil
}

func (m *memSource) Transactions(ctx context.Context, businessID string) ([]domain.Transaction, error) {
	return m.txs, nil
}

func (m *memSource) Constraints(ctx context.Context, businessID string) (domain.BusinessConstraints, error) {
	return m.constraints, nil
}

type memStore struct {
	mu        sync.Mutex
	cycles    map[string]*domain.CycleResult
	published int
	failNext  bool
}

func newMemStore() *memStore {
	return &memStore{cycles: make(map[string]*domain.CycleResult)}
}

func (m *memStore) GetCycle(ctx context.Context, businessID, cycleKey string) (*domain.CycleResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cycles[businessID+"/"+cycleKey], nil
}

func (m *memStore) PublishCycle(ctx context.Context, result *domain.CycleResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext {
		m.failNext = false
		return errors.New("connection reset")
	}
	m.published++
	m.cycles[result.BusinessID+"/"+result.CycleKey] = result
	return nil
}

// fixtureSource builds a three-product catalog: two with 60 days of flat
// history and one nearly new product that must cold-start.
func fixtureSource() *memSource {
	start := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	products := []domain.Product{
		{BusinessID: "biz-1", ProductID: "chai-250g", Category: "beverages", Location: "Mumbai",
			CostPrice: dec("60"), CurrentPrice: dec("100"), CurrentStock: 50, LeadTimeDays: 3},
		{BusinessID: "biz-1", ProductID: "coffee-200g", Category: "beverages", Location: "Mumbai",
			CostPrice: dec("120"), CurrentPrice: dec("200"), CurrentStock: 40, LeadTimeDays: 3},
		{BusinessID: "biz-1", ProductID: "matcha-100g", Category: "beverages", Location: "Mumbai",
			CostPrice: dec("150"), CurrentPrice: dec("250"), CurrentStock: 10, LeadTimeDays: 5},
	}

	var txs []domain.Transaction
	for day := 0; day < 60; day++ {
		ts := start.Add(time.Duration(day) * 24 * time.Hour)
		txs = append(txs,
			domain.Transaction{BusinessID: "biz-1", ProductID: "chai-250g", Timestamp: ts,
				Quantity: 10, UnitPrice: dec("100"), Location: "Mumbai"},
			domain.Transaction{BusinessID: "biz-1", ProductID: "coffee-200g", Timestamp: ts,
				Quantity: 5, UnitPrice: dec("200"), Location: "Mumbai"},
		)
	}
	// The new product has five days of sales, below any reasonable minimum.
	for day := 55; day < 60; day++ {
		ts := start.Add(time.Duration(day) * 24 * time.Hour)
		txs = append(txs, domain.Transaction{BusinessID: "biz-1", ProductID: "matcha-100g",
			Timestamp: ts, Quantity: 2, UnitPrice: dec("250"), Location: "Mumbai"})
	}

	return &memSource{products: products, txs: txs}
}

func newTestRunner(source *memSource, store *memStore) *Runner {
	fcCfg := forecast.Config{MinHistoryDays: 30, AccuracyFloor: 0.80, DegradedWidening: 1.5}
	r := NewRunner(
		Config{
			WorkerCount: 4,
			Horizons:    []int{30, 60, 90},
			ColdStartK:  3,
			SlowMover:   inventory.SlowMoverConfig{Percentile: 0.20, WindowDays: 14},
		},
		Deps{
			Aggregator: aggregate.NewAggregator(30),
			Forecaster: forecast.New(fcCfg, forecast.NewTracker(90)),
			Pricer: pricing.NewEngine(pricing.Config{
				MinimumMargin:     0.20,
				CompetitorBand:    0.10,
				MinPricePoints:    3,
				MinPriceVariation: 0.02,
				CostPlusMarkup:    0.30,
			}),
			Optimizer: inventory.NewOptimizer(inventory.Config{ServiceLevelZ: 1.65, TargetCoverDays: 30}),
			Events:    calendar.NewRegistry(region.StateOf),
			Regions:   region.NewAdjuster(),
			Source:    source,
			Store:     store,
			Composer:  NewComposer(20),
		},
	)
	r.now = func() time.Time {
		return time.Date(2026, time.March, 2, 6, 0, 0, 0, time.UTC)
	}
	return r
}

func TestRunCycle_PublishesRankedItems(t *testing.T) {
	store := newMemStore()
	r := newTestRunner(fixtureSource(), store)

	result, err := r.RunCycle(context.Background(), "biz-1", domain.ReasonScheduled)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "biz-1", result.BusinessID)
	assert.Equal(t, CycleKeyFor(domain.ReasonScheduled, r.now()), result.CycleKey)
	require.NotEmpty(t, result.Items)
	for i, it := range result.Items {
		assert.Equal(t, i+1, it.Rank)
		assert.Equal(t, result.CycleKey, it.CycleKey)
	}

	// The near-new product cold-starts and surfaces a watch item.
	var hasWatch bool
	for _, it := range result.Items {
		if it.ProductID == "matcha-100g" && it.Category == domain.ActionWatch {
			hasWatch = true
		}
	}
	assert.True(t, hasWatch)
}

func TestRunCycle_IdempotentPerCycleKey(t *testing.T) {
	store := newMemStore()
	r := newTestRunner(fixtureSource(), store)

	first, err := r.RunCycle(context.Background(), "biz-1", domain.ReasonScheduled)
	require.NoError(t, err)

	second, err := r.RunCycle(context.Background(), "biz-1", domain.ReasonScheduled)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, store.published)
}

func TestRunCycle_PublishFailureAborts(t *testing.T) {
	store := newMemStore()
	store.failNext = true
	r := newTestRunner(fixtureSource(), store)

	_, err := r.RunCycle(context.Background(), "biz-1", domain.ReasonScheduled)
	require.ErrorIs(t, err, domain.ErrCycleAborted)

	// Nothing was published; a retry under the same key recomputes and succeeds.
	assert.Equal(t, 0, store.published)
	result, err := r.RunCycle(context.Background(), "biz-1", domain.ReasonScheduled)
	require.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, 1, store.published)
}

func TestRunCycle_PerProductFailureIsolated(t *testing.T) {
	source := fixtureSource()
	// A product with no cost price cannot be priced; everything else proceeds.
	source.products = append(source.products, domain.Product{
		BusinessID: "biz-1", ProductID: "broken-sku", Category: "beverages",
		Location: "Mumbai", CurrentPrice: dec("90"), LeadTimeDays: 2,
	})
	start := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	for day := 0; day < 60; day++ {
		source.txs = append(source.txs, domain.Transaction{
			BusinessID: "biz-1", ProductID: "broken-sku",
			Timestamp: start.Add(time.Duration(day) * 24 * time.Hour),
			Quantity:  3, UnitPrice: dec("90"), Location: "Mumbai",
		})
	}

	store := newMemStore()
	r := newTestRunner(source, store)

	result, err := r.RunCycle(context.Background(), "biz-1", domain.ReasonScheduled)
	require.NoError(t, err)

	var constraintIssue bool
	for _, issue := range result.Issues {
		if issue.ProductID == "broken-sku" && issue.Code == "constraint_violation" {
			constraintIssue = true
		}
	}
	assert.True(t, constraintIssue)

	var healthyItems int
	for _, it := range result.Items {
		if it.ProductID == "chai-250g" || it.ProductID == "coffee-200g" {
			healthyItems++
		}
	}
	assert.Positive(t, healthyItems)
}

func TestRunCycle_BudgetCapLimitsSpend(t *testing.T) {
	source := fixtureSource()
	source.constraints = domain.BusinessConstraints{
		BusinessID:    "biz-1",
		ReorderBudget: dec("20000"),
	}
	store := newMemStore()
	r := newTestRunner(source, store)

	result, err := r.RunCycle(context.Background(), "biz-1", domain.ReasonScheduled)
	require.NoError(t, err)
	require.NotNil(t, result)

	// Spend implied by the restock items never exceeds the budget. The exact
	// selection is the solver's business; the invariant is the cap.
	uncappedStore := newMemStore()
	uncapped, err := newTestRunner(fixtureSource(), uncappedStore).RunCycle(
		context.Background(), "biz-1", domain.ReasonScheduled)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, countRestocks(uncapped), countRestocks(result))
}

func countRestocks(result *domain.CycleResult) int {
	n := 0
	for _, it := range result.Items {
		if it.Category == domain.ActionRestock {
			n++
		}
	}
	return n
}

func TestForecastProduct_EveryConfiguredHorizon(t *testing.T) {
	r := newTestRunner(fixtureSource(), newMemStore())

	for _, horizon := range r.Horizons() {
		fc, err := r.ForecastProduct(context.Background(), "biz-1", "chai-250g", horizon)
		require.NoError(t, err, "horizon %d", horizon)
		assert.Equal(t, horizon, fc.HorizonDays)
		assert.Len(t, fc.Predictions, horizon)
	}
}

func TestForecastProduct_DefaultsToPrimaryHorizon(t *testing.T) {
	r := newTestRunner(fixtureSource(), newMemStore())

	fc, err := r.ForecastProduct(context.Background(), "biz-1", "chai-250g", 0)
	require.NoError(t, err)
	assert.Equal(t, 30, fc.HorizonDays)
}

func TestForecastProduct_UnconfiguredHorizonRejected(t *testing.T) {
	r := newTestRunner(fixtureSource(), newMemStore())

	_, err := r.ForecastProduct(context.Background(), "biz-1", "chai-250g", 45)
	assert.ErrorIs(t, err, domain.ErrConstraintViolation)
}

func TestForecastProduct_ColdStartsNewProduct(t *testing.T) {
	r := newTestRunner(fixtureSource(), newMemStore())

	fc, err := r.ForecastProduct(context.Background(), "biz-1", "matcha-100g", 60)
	require.NoError(t, err)
	assert.Equal(t, domain.ForecastColdStart, fc.State)
	assert.Len(t, fc.Predictions, 60)
}

func TestCycleKeyFor(t *testing.T) {
	at := time.Date(2026, time.March, 2, 6, 0, 0, 0, time.UTC) // ISO week 10

	assert.Equal(t, "2026-W10", CycleKeyFor(domain.ReasonScheduled, at))
	assert.Equal(t, "2026-03-02-new_data", CycleKeyFor(domain.ReasonNewData, at))
	assert.Equal(t, "2026-03-02-price_change", CycleKeyFor(domain.ReasonPriceChange, at))
}

func TestRunCycle_PublishedResultImmuneToRegistryUpdates(t *testing.T) {
	store := newMemStore()
	r := newTestRunner(fixtureSource(), store)

	// An event registered before the cycle applies to its forecasts; one
	// registered after publication must not retroactively change the result.
	r.deps.Events.Upsert(calendar.Event{
		Name:           "diwali",
		Kind:           calendar.KindFestival,
		BaseMultiplier: 2.0,
		Recurrence:     calendar.Recurrence{Month: time.March, Day: 10, Length: 5},
		Categories:     []string{"beverages"},
	})

	first, err := r.RunCycle(context.Background(), "biz-1", domain.ReasonScheduled)
	require.NoError(t, err)

	r.deps.Events.Upsert(calendar.Event{
		Name:           "diwali",
		Kind:           calendar.KindFestival,
		BaseMultiplier: 9.0,
		Recurrence:     calendar.Recurrence{Month: time.March, Day: 10, Length: 5},
		Categories:     []string{"beverages"},
	})

	second, err := r.RunCycle(context.Background(), "biz-1", domain.ReasonScheduled)
	require.NoError(t, err)
	assert.Same(t, first, second)
}
