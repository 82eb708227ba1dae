// internal/engine/cycle.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/mounika-192643/InsightSphere-AI/internal/aggregate"
	"github.com/mounika-192643/InsightSphere-AI/internal/calendar"
	"github.com/mounika-192643/InsightSphere-AI/internal/domain"
	"github.com/mounika-192643/InsightSphere-AI/internal/forecast"
	"github.com/mounika-192643/InsightSphere-AI/internal/inventory"
	"github.com/mounika-192643/InsightSphere-AI/internal/pricing"
	"github.com/mounika-192643/InsightSphere-AI/internal/region"
)

// DataSource supplies the catalog inputs a cycle reads. Implementations load
// from Postgres in production and from fixtures in tests.
type DataSource interface {
	Products(ctx context.Context, businessID string) ([]domain.Product, error)
	Transactions(ctx context.Context, businessID string) ([]domain.Transaction, error)
	Constraints(ctx context.Context, businessID string) (domain.BusinessConstraints, error)
}

// Store persists published cycles. GetCycle returns (nil, nil) when no cycle
// with that key exists; PublishCycle commits the whole result atomically.
type Store interface {
	GetCycle(ctx context.Context, businessID, cycleKey string) (*domain.CycleResult, error)
	PublishCycle(ctx context.Context, result *domain.CycleResult) error
}

// Config holds the cycle runner's tunables.
type Config struct {
	WorkerCount int   // concurrent per-product pipelines
	Horizons    []int // forecast horizons in days, primary first
	ColdStartK  int   // similar products blended for cold starts
	SlowMover   inventory.SlowMoverConfig
}

// Deps are the runner's collaborators.
type Deps struct {
	Aggregator *aggregate.Aggregator
	Forecaster *forecast.Forecaster
	Pricer     *pricing.Engine
	Optimizer  *inventory.Optimizer
	Events     *calendar.Registry
	Regions    *region.Adjuster
	Source     DataSource
	Store      Store
	Composer   *Composer
}

// Runner orchestrates one analytical cycle per business: aggregate, forecast,
// price and optimize per product on a bounded pool, then rank and allocate
// across the catalog and publish atomically.
type Runner struct {
	cfg  Config
	deps Deps
	now  func() time.Time
}

// NewRunner creates a cycle Runner.
func NewRunner(cfg Config, deps Deps) *Runner {
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}
	if len(cfg.Horizons) == 0 {
		cfg.Horizons = []int{30}
	}
	if cfg.ColdStartK < 1 {
		cfg.ColdStartK = 3
	}
	return &Runner{cfg: cfg, deps: deps, now: time.Now}
}

// CycleKeyFor derives the idempotence key for a trigger. Scheduled cycles are
// keyed by ISO week; data- and price-triggered cycles by calendar day and
// reason, so repeated triggers within the same logical period reuse the
// published result.
func CycleKeyFor(reason domain.CycleReason, t time.Time) string {
	t = t.UTC()
	if reason == domain.ReasonScheduled {
		year, week := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	}
	return fmt.Sprintf("%s-%s", t.Format("2006-01-02"), reason)
}

// RunCycle executes one cycle for a business. Re-running a completed logical
// cycle returns the stored result without recompute. Per-product failures are
// isolated into the result's Issues; only a publish failure aborts the cycle,
// leaving the previous cycle as system of record.
func (r *Runner) RunCycle(ctx context.Context, businessID string, reason domain.CycleReason) (*domain.CycleResult, error) {
	startedAt := r.now()
	cycleKey := CycleKeyFor(reason, startedAt)

	if prior, err := r.deps.Store.GetCycle(ctx, businessID, cycleKey); err != nil {
		return nil, fmt.Errorf("cycle %s/%s: lookup: %w", businessID, cycleKey, err)
	} else if prior != nil {
		log.Debug().Str("business_id", businessID).Str("cycle_key", cycleKey).
			Msg("cycle already published, returning stored result")
		return prior, nil
	}

	// Snapshots taken once; registry updates during the run never leak in.
	events := r.deps.Events.Snapshot()
	regions := r.deps.Regions.Snapshot()

	products, err := r.deps.Source.Products(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("cycle %s/%s: load products: %w", businessID, cycleKey, err)
	}
	txs, err := r.deps.Source.Transactions(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("cycle %s/%s: load transactions: %w", businessID, cycleKey, err)
	}
	constraints, err := r.deps.Source.Constraints(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("cycle %s/%s: load constraints: %w", businessID, cycleKey, err)
	}

	series, aggErrs := r.deps.Aggregator.BuildAll(products, txs)

	// Every product with any history is a cold-start donor candidate; the
	// forecaster filters by category and history length.
	donors := make([]forecast.Donor, 0, len(series))
	for _, p := range products {
		if s := series[p.ProductID]; s != nil {
			donors = append(donors, forecast.Donor{Product: p, Series: s})
		}
	}

	log.Info().Str("business_id", businessID).Str("cycle_key", cycleKey).
		Str("reason", string(reason)).Int("products", len(products)).
		Msg("starting cycle")

	outputs := make([]ProductOutput, len(products))
	issuesByIdx := make([][]domain.ProductIssue, len(products))

	sem := semaphore.NewWeighted(int64(r.cfg.WorkerCount))
	var wg sync.WaitGroup
	for i := range products {
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return nil, fmt.Errorf("cycle %s/%s: %v: %w", businessID, cycleKey, err, domain.ErrCycleAborted)
		}
		wg.Add(1)
		go func(idx int, p domain.Product) {
			defer sem.Release(1)
			defer wg.Done()
			outputs[idx], issuesByIdx[idx] = r.processProduct(p, series[p.ProductID], aggErrs[p.ProductID], donors, events, regions, startedAt)
		}(i, products[i])
	}
	wg.Wait()

	// Catalog-level work only after the barrier.
	slow := inventory.DetectSlowMovers(series, r.cfg.SlowMover)
	for i := range outputs {
		if outputs[i].Stock != nil && slow[outputs[i].Product.ProductID] {
			outputs[i].Stock.SlowMover = true
		}
	}

	if err := r.allocate(outputs, products, constraints); err != nil {
		return nil, fmt.Errorf("cycle %s/%s: %v: %w", businessID, cycleKey, err, domain.ErrCycleAborted)
	}

	items := r.deps.Composer.Compose(businessID, cycleKey, outputs, startedAt)

	var issues []domain.ProductIssue
	for _, perProduct := range issuesByIdx {
		issues = append(issues, perProduct...)
	}

	result := &domain.CycleResult{
		BusinessID:  businessID,
		CycleKey:    cycleKey,
		Reason:      reason,
		StartedAt:   startedAt,
		CompletedAt: r.now(),
		Items:       items,
		Issues:      issues,
	}

	if err := r.deps.Store.PublishCycle(ctx, result); err != nil {
		log.Error().Err(err).Str("business_id", businessID).Str("cycle_key", cycleKey).
			Msg("publish failed, previous cycle remains in effect")
		return nil, fmt.Errorf("cycle %s/%s: publish: %v: %w", businessID, cycleKey, err, domain.ErrCycleAborted)
	}

	log.Info().Str("business_id", businessID).Str("cycle_key", cycleKey).
		Int("items", len(items)).Int("issues", len(issues)).
		Msg("cycle published")

	return result, nil
}

// processProduct runs the per-product stages. Errors never escape; they are
// returned as issues and the remaining stages run with what they have.
func (r *Runner) processProduct(
	p domain.Product,
	series *domain.DemandSeries,
	aggErr error,
	donors []forecast.Donor,
	events *calendar.Snapshot,
	regions *region.Snapshot,
	asOf time.Time,
) (ProductOutput, []domain.ProductIssue) {
	out := ProductOutput{Product: p}
	var issues []domain.ProductIssue

	report := func(err error) {
		issues = append(issues, domain.ProductIssue{
			ProductID: p.ProductID,
			Code:      domain.IssueCode(err),
			Message:   err.Error(),
		})
	}

	fc, err := r.forecastOrColdStart(p, series, donors, events, regions, r.cfg.Horizons[0], asOf)
	if err != nil {
		report(err)
	} else {
		out.Forecast = fc
		if fc.State == domain.ForecastDegraded {
			report(fmt.Errorf("forecast %s: %w", p.ProductID, domain.ErrModelDegraded))
		}
	}
	if aggErr != nil && out.Forecast == nil {
		report(aggErr)
	}

	if series != nil {
		deseason := compositeFactor(p, events, regions)
		rec, err := r.deps.Pricer.Recommend(p, series, deseason)
		if err != nil {
			report(err)
		} else {
			out.Pricing = rec
		}
	}

	if out.Forecast != nil {
		rec := r.deps.Optimizer.Recommend(p, out.Forecast)
		out.Stock = &rec
	}

	return out, issues
}

// forecastOrColdStart forecasts from the product's own history, falling back
// to the similarity blend when history is insufficient.
func (r *Runner) forecastOrColdStart(
	p domain.Product,
	series *domain.DemandSeries,
	donors []forecast.Donor,
	events *calendar.Snapshot,
	regions *region.Snapshot,
	horizonDays int,
	asOf time.Time,
) (*domain.ForecastResult, error) {
	if series != nil {
		fc, err := r.deps.Forecaster.Forecast(series, events, regions, horizonDays, asOf)
		if err == nil {
			return fc, nil
		}
		if !errors.Is(err, domain.ErrInsufficientHistory) {
			return nil, err
		}
	}
	return r.deps.Forecaster.ColdStart(p, donors, r.cfg.ColdStartK, events, regions, horizonDays, asOf)
}

// Horizons returns the configured forecast horizons, primary first.
func (r *Runner) Horizons() []int {
	return r.cfg.Horizons
}

// ForecastProduct produces an on-demand forecast for one product at any
// configured horizon, through the same snapshot and cold-start path a cycle
// uses. A non-positive horizon selects the primary one.
func (r *Runner) ForecastProduct(ctx context.Context, businessID, productID string, horizonDays int) (*domain.ForecastResult, error) {
	if horizonDays <= 0 {
		horizonDays = r.cfg.Horizons[0]
	}
	configured := false
	for _, h := range r.cfg.Horizons {
		if h == horizonDays {
			configured = true
			break
		}
	}
	if !configured {
		return nil, fmt.Errorf("forecast %s/%s: horizon %d not in configured set %v: %w",
			businessID, productID, horizonDays, r.cfg.Horizons, domain.ErrConstraintViolation)
	}

	products, err := r.deps.Source.Products(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("forecast %s/%s: load products: %w", businessID, productID, err)
	}
	txs, err := r.deps.Source.Transactions(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("forecast %s/%s: load transactions: %w", businessID, productID, err)
	}

	var product *domain.Product
	for i := range products {
		if products[i].ProductID == productID {
			product = &products[i]
			break
		}
	}
	if product == nil {
		return nil, fmt.Errorf("forecast %s/%s: unknown product: %w",
			businessID, productID, domain.ErrConstraintViolation)
	}

	series, _ := r.deps.Aggregator.BuildAll(products, txs)
	donors := make([]forecast.Donor, 0, len(series))
	for _, p := range products {
		if s := series[p.ProductID]; s != nil {
			donors = append(donors, forecast.Donor{Product: p, Series: s})
		}
	}

	return r.forecastOrColdStart(*product, series[productID], donors,
		r.deps.Events.Snapshot(), r.deps.Regions.Snapshot(), horizonDays, r.now())
}

// allocate applies the storage and budget caps across the catalog and writes
// the allocated recommendations back into the outputs. The exact budget
// solver gets one shot; on failure the greedy fallback decides.
func (r *Runner) allocate(outputs []ProductOutput, products []domain.Product, constraints domain.BusinessConstraints) error {
	byID := make(map[string]domain.Product, len(products))
	for _, p := range products {
		byID[p.ProductID] = p
	}

	var recs []domain.StockRecommendation
	for _, out := range outputs {
		if out.Stock != nil {
			recs = append(recs, *out.Stock)
		}
	}
	if len(recs) == 0 {
		return nil
	}

	recs = inventory.AllocateCapacity(recs, byID, constraints.StorageCapacity)

	allocated, err := inventory.AllocateBudget(recs, byID, constraints.ReorderBudget)
	if err != nil {
		log.Warn().Err(err).Msg("exact budget allocation failed, using greedy fallback")
		allocated = inventory.AllocateBudgetGreedy(recs, byID, constraints.ReorderBudget)
	}

	recByID := make(map[string]domain.StockRecommendation, len(allocated))
	for _, rec := range allocated {
		recByID[rec.ProductID] = rec
	}
	for i := range outputs {
		if outputs[i].Stock == nil {
			continue
		}
		rec := recByID[outputs[i].Stock.ProductID]
		outputs[i].Stock = &rec
	}
	return nil
}

// compositeFactor builds the deseasonalization closure the pricing fit uses:
// the calendar composite times the regional multiplier for the product's own
// scope.
func compositeFactor(p domain.Product, events *calendar.Snapshot, regions *region.Snapshot) pricing.DeseasonFunc {
	regMult := 1.0
	if rf, ok := regions.Resolve(p.Location, p.Category); ok {
		regMult = rf.Multiplier()
	}
	return func(date time.Time) float64 {
		return events.FactorFor(p.Category, p.Location, date).Multiplier * regMult
	}
}
