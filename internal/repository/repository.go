// internal/repository/repository.go
package repository

import (
	"context"
	"time"

	"github.com/mounika-192643/InsightSphere-AI/internal/domain"
)

// CatalogRepository serves the catalog inputs a cycle reads and accepts
// validated transactions from the ingestion collaborator.
type CatalogRepository interface {
	Products(ctx context.Context, businessID string) ([]domain.Product, error)
	Transactions(ctx context.Context, businessID string) ([]domain.Transaction, error)
	Constraints(ctx context.Context, businessID string) (domain.BusinessConstraints, error)
	SaveTransactions(ctx context.Context, txs []domain.Transaction) error
}

// CycleRepository persists published cycles. PublishCycle commits the run,
// its action items and its issues in one transaction.
type CycleRepository interface {
	GetCycle(ctx context.Context, businessID, cycleKey string) (*domain.CycleResult, error)
	LatestCycle(ctx context.Context, businessID string) (*domain.CycleResult, error)
	PublishCycle(ctx context.Context, result *domain.CycleResult) error
	PruneCycles(ctx context.Context, businessID string, keep int) error
}

// OutcomeRepository records realized outcomes of issued action items and
// serves per-category effectiveness.
type OutcomeRepository interface {
	SaveOutcome(ctx context.Context, o domain.RecommendationOutcome) error
	Effectiveness(ctx context.Context, businessID string) ([]domain.Effectiveness, error)
}

// AccuracyRepository persists realized-vs-predicted observations so the
// rolling accuracy window survives restarts.
type AccuracyRepository interface {
	SaveObservation(ctx context.Context, businessID, productID string, date time.Time, predicted, actual float64) error
	Observations(ctx context.Context, businessID, productID string, since time.Time) ([]domain.AccuracyObservation, error)
	RecentObservations(ctx context.Context, since time.Time) ([]domain.AccuracyObservation, error)
}
