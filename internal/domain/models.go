// internal/domain/models.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a validated sales record supplied by the ingestion collaborator.
type Transaction struct {
	BusinessID string          `json:"business_id" db:"business_id"`
	ProductID  string          `json:"product_id" db:"product_id"`
	Timestamp  time.Time       `json:"timestamp" db:"timestamp"`
	Quantity   float64         `json:"quantity" db:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price" db:"unit_price"`
	Location   string          `json:"location" db:"location"`
}

// Product carries the catalog attributes the pipeline needs per product.
type Product struct {
	BusinessID      string           `json:"business_id" db:"business_id"`
	ProductID       string           `json:"product_id" db:"product_id"`
	Name            string           `json:"name" db:"name"`
	Category        string           `json:"category" db:"category"`
	Location        string           `json:"location" db:"location"`
	CostPrice       decimal.Decimal  `json:"cost_price" db:"cost_price"`
	CurrentPrice    decimal.Decimal  `json:"current_price" db:"current_price"`
	CompetitorPrice *decimal.Decimal `json:"competitor_price,omitempty" db:"competitor_price"`
	CurrentStock    float64          `json:"current_stock" db:"current_stock"`
	OnOrder         float64          `json:"on_order" db:"on_order"`
	LeadTimeDays    float64          `json:"lead_time_days" db:"lead_time_days"`
	LeadTimeVar     float64          `json:"lead_time_var" db:"lead_time_var"`
	UnitVolume      float64          `json:"unit_volume" db:"unit_volume"` // storage units per item
	MinOrderQty     float64          `json:"min_order_qty" db:"min_order_qty"`
}

// BusinessConstraints are the catalog-level caps applied during allocation.
// Zero values mean unconstrained.
type BusinessConstraints struct {
	BusinessID      string          `json:"business_id" db:"business_id"`
	StorageCapacity float64         `json:"storage_capacity" db:"storage_capacity"` // storage units
	ReorderBudget   decimal.Decimal `json:"reorder_budget" db:"reorder_budget"`
}

// DemandPoint is one observed day of demand. UnitPrice is the quantity-weighted
// mean price of the day's transactions, zero on days with no sales.
type DemandPoint struct {
	Date      time.Time `json:"date"`
	Quantity  float64   `json:"quantity"`
	UnitPrice float64   `json:"unit_price"`
}

// DemandSeries is a per (business, product) daily demand series. Dates are
// strictly increasing with no gaps; an explicit zero point means an observed
// day with no sales, which is not the same as missing data.
type DemandSeries struct {
	BusinessID string        `json:"business_id"`
	ProductID  string        `json:"product_id"`
	Category   string        `json:"category"`
	Location   string        `json:"location"`
	Points     []DemandPoint `json:"points"`
}

// Start returns the first observed date, zero when the series is empty.
func (s *DemandSeries) Start() time.Time {
	if len(s.Points) == 0 {
		return time.Time{}
	}
	return s.Points[0].Date
}

// End returns the last observed date, zero when the series is empty.
func (s *DemandSeries) End() time.Time {
	if len(s.Points) == 0 {
		return time.Time{}
	}
	return s.Points[len(s.Points)-1].Date
}

// FactorContribution records a single event's share of a composite factor.
type FactorContribution struct {
	Event      string  `json:"event"`
	Multiplier float64 `json:"multiplier"`
}

// CompositeFactor is the product of all applicable calendar adjustments for one
// (category, location, date), with full provenance.
type CompositeFactor struct {
	Multiplier  float64              `json:"multiplier"`
	Provenance  []FactorContribution `json:"provenance,omitempty"`
	Conflicting bool                 `json:"conflicting,omitempty"`
}

// RegionalFactor is the active market adjustment for a (location, category)
// pair. Updates supersede rather than mutate; Version increases monotonically.
type RegionalFactor struct {
	Location             string    `json:"location" db:"location"`
	Category             string    `json:"category" db:"category"`
	GrowthRate           float64   `json:"growth_rate" db:"growth_rate"`
	CompetitiveIntensity float64   `json:"competitive_intensity" db:"competitive_intensity"`
	PolicyImpact         float64   `json:"policy_impact" db:"policy_impact"`
	Version              int       `json:"version" db:"version"`
	EffectiveAt          time.Time `json:"effective_at" db:"effective_at"`
}

// Multiplier folds the regional signals into a single demand multiplier.
func (f RegionalFactor) Multiplier() float64 {
	return (1 + f.GrowthRate) * (1 + f.PolicyImpact)
}

// ForecastState tracks which forecasting path produced a result.
type ForecastState string

const (
	ForecastColdStart ForecastState = "cold_start"
	ForecastActive    ForecastState = "active"
	ForecastDegraded  ForecastState = "degraded"
)

// DailyPrediction is one day of a forecast with its applied adjustments.
type DailyPrediction struct {
	Date           time.Time `json:"date"`
	Point          float64   `json:"point"`
	Lower          float64   `json:"lower"`
	Upper          float64   `json:"upper"`
	SeasonalFactor float64   `json:"seasonal_factor"`
	RegionalFactor float64   `json:"regional_factor"`
}

// ForecastResult is immutable once generated; the next cycle supersedes it.
type ForecastResult struct {
	BusinessID      string            `json:"business_id"`
	ProductID       string            `json:"product_id"`
	HorizonDays     int               `json:"horizon_days"`
	GeneratedAt     time.Time         `json:"generated_at"`
	State           ForecastState     `json:"state"`
	Confidence      float64           `json:"confidence"`
	RollingAccuracy *float64          `json:"rolling_accuracy,omitempty"`
	LowConfidence   bool              `json:"low_confidence"`
	Warnings        []string          `json:"warnings,omitempty"`
	Predictions     []DailyPrediction `json:"predictions"`
}

// MeanDaily returns the mean point forecast per day over the horizon.
func (f *ForecastResult) MeanDaily() float64 {
	if len(f.Predictions) == 0 {
		return 0
	}
	var sum float64
	for _, p := range f.Predictions {
		sum += p.Point
	}
	return sum / float64(len(f.Predictions))
}

// ElasticityEstimate is fitted per product from its own history, never shared.
type ElasticityEstimate struct {
	ProductID string  `json:"product_id"`
	Slope     float64 `json:"slope"` // d(log qty)/d(log price), expected negative
	PriceMin  float64 `json:"price_min"`
	PriceMax  float64 `json:"price_max"`
	StdErr    float64 `json:"std_err"`
	Reliable  bool    `json:"reliable"`
}

// RationaleTag drives downstream human-readable explanations; never free text.
type RationaleTag string

const (
	RationaleElasticityOptimal RationaleTag = "elasticity_optimal"
	RationaleCompetitorBound   RationaleTag = "competitor_bound"
	RationaleMarginFloor       RationaleTag = "margin_floor"
	RationaleCostPlusFallback  RationaleTag = "cost_plus_fallback"
)

// PricingRecommendation proposes a price satisfying the margin floor.
type PricingRecommendation struct {
	ProductID        string              `json:"product_id"`
	CurrentPrice     decimal.Decimal     `json:"current_price"`
	RecommendedPrice decimal.Decimal     `json:"recommended_price"`
	ExpectedQtyDelta float64             `json:"expected_qty_delta"`
	MarginSatisfied  bool                `json:"margin_satisfied"`
	Rationale        RationaleTag        `json:"rationale"`
	LowConfidence    bool                `json:"low_confidence"`
	Elasticity       *ElasticityEstimate `json:"elasticity,omitempty"`
}

// BindingConstraint names the constraint that capped a stock recommendation.
type BindingConstraint string

const (
	ConstraintNone    BindingConstraint = "none"
	ConstraintStorage BindingConstraint = "storage"
	ConstraintBudget  BindingConstraint = "budget"
)

// StockRecommendation is the inventory optimizer's per-product output.
type StockRecommendation struct {
	ProductID    string            `json:"product_id"`
	CurrentStock float64           `json:"current_stock"`
	OptimalStock float64           `json:"optimal_stock"`
	SafetyStock  float64           `json:"safety_stock"`
	ReorderPoint float64           `json:"reorder_point"`
	ReorderQty   float64           `json:"reorder_qty"`
	ReorderCost  decimal.Decimal   `json:"reorder_cost"`
	Constraint   BindingConstraint `json:"constraint"`
	SlowMover    bool              `json:"slow_mover"`
	Score        float64           `json:"score"` // velocity x margin, used for allocation
}

// ActionCategory tags an action item for rendering and outcome tracking.
type ActionCategory string

const (
	ActionRestock     ActionCategory = "restock"
	ActionPriceChange ActionCategory = "price_change"
	ActionClearance   ActionCategory = "clearance"
	ActionWatch       ActionCategory = "watch"
)

// ActionItem is the business-facing unit published per cycle. Items are
// created fresh each cycle and never mutated.
type ActionItem struct {
	ID         string         `json:"id" db:"id"`
	BusinessID string         `json:"business_id" db:"business_id"`
	CycleKey   string         `json:"cycle_key" db:"cycle_key"`
	ProductID  string         `json:"product_id" db:"product_id"`
	Category   ActionCategory `json:"category" db:"category"`
	Impact     float64        `json:"impact" db:"impact"`
	Confidence float64        `json:"confidence" db:"confidence"`
	Rank       int            `json:"rank" db:"rank"`
	SourceIDs  []string       `json:"source_ids" db:"-"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
}

// CycleReason is why a cycle was triggered.
type CycleReason string

const (
	ReasonScheduled   CycleReason = "scheduled"
	ReasonNewData     CycleReason = "new_data"
	ReasonPriceChange CycleReason = "price_change"
)

// ProductIssue is a per-product, non-fatal problem surfaced by a cycle.
type ProductIssue struct {
	ProductID string `json:"product_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// CycleResult is the full, atomically published output of one cycle.
type CycleResult struct {
	BusinessID  string         `json:"business_id"`
	CycleKey    string         `json:"cycle_key"`
	Reason      CycleReason    `json:"reason"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt time.Time      `json:"completed_at"`
	Items       []ActionItem   `json:"items"`
	Issues      []ProductIssue `json:"issues,omitempty"`
}

// AccuracyObservation is one persisted realized-vs-predicted day.
type AccuracyObservation struct {
	BusinessID string    `json:"business_id" db:"business_id"`
	ProductID  string    `json:"product_id" db:"product_id"`
	Date       time.Time `json:"date" db:"date"`
	Predicted  float64   `json:"predicted" db:"predicted"`
	Actual     float64   `json:"actual" db:"actual"`
}

// RecommendationOutcome records the realized result of an issued action item.
type RecommendationOutcome struct {
	ActionID      string         `json:"action_id" db:"action_id"`
	BusinessID    string         `json:"business_id" db:"business_id"`
	Category      ActionCategory `json:"category" db:"category"`
	EstimatedGain float64        `json:"estimated_gain" db:"estimated_gain"`
	RealizedGain  float64        `json:"realized_gain" db:"realized_gain"`
	RecordedAt    time.Time      `json:"recorded_at" db:"recorded_at"`
}

// Effectiveness is the realized-vs-estimated ratio per action category.
type Effectiveness struct {
	Category ActionCategory `json:"category" db:"category"`
	Count    int            `json:"count" db:"count"`
	Ratio    float64        `json:"ratio" db:"ratio"`
}
