// internal/repository/postgres/outcome_repository.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mounika-192643/InsightSphere-AI/internal/domain"
)

type outcomeRepository struct {
	db *DB
}

func NewOutcomeRepository(db *DB) *outcomeRepository {
	return &outcomeRepository{db: db}
}

func (r *outcomeRepository) SaveOutcome(ctx context.Context, o domain.RecommendationOutcome) error {
	query := `
		INSERT INTO recommendation_outcomes (action_id, business_id, category,
			estimated_gain, realized_gain, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (action_id) DO UPDATE SET
			realized_gain = EXCLUDED.realized_gain,
			recorded_at = EXCLUDED.recorded_at
	`
	if _, err := r.db.ExecContext(ctx, query,
		o.ActionID, o.BusinessID, o.Category, o.EstimatedGain, o.RealizedGain, o.RecordedAt,
	); err != nil {
		return fmt.Errorf("failed to save outcome: %w", err)
	}

	return nil
}

func (r *outcomeRepository) Effectiveness(ctx context.Context, businessID string) ([]domain.Effectiveness, error) {
	query := `
		SELECT category, COUNT(*) AS count,
			CASE WHEN SUM(estimated_gain) = 0 THEN 0
				ELSE SUM(realized_gain) / SUM(estimated_gain) END AS ratio
		FROM recommendation_outcomes
		WHERE business_id = $1
		GROUP BY category
		ORDER BY category
	`

	var out []domain.Effectiveness
	if err := sqlx.SelectContext(ctx, r.db, &out, query, businessID); err != nil {
		return nil, fmt.Errorf("failed to get effectiveness: %w", err)
	}

	return out, nil
}

type accuracyRepository struct {
	db *DB
}

func NewAccuracyRepository(db *DB) *accuracyRepository {
	return &accuracyRepository{db: db}
}

func (r *accuracyRepository) SaveObservation(ctx context.Context, businessID, productID string, date time.Time, predicted, actual float64) error {
	query := `
		INSERT INTO forecast_accuracy (business_id, product_id, date, predicted, actual)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (business_id, product_id, date) DO UPDATE SET
			predicted = EXCLUDED.predicted,
			actual = EXCLUDED.actual
	`
	if _, err := r.db.ExecContext(ctx, query, businessID, productID, date, predicted, actual); err != nil {
		return fmt.Errorf("failed to save accuracy observation: %w", err)
	}

	return nil
}

func (r *accuracyRepository) Observations(ctx context.Context, businessID, productID string, since time.Time) ([]domain.AccuracyObservation, error) {
	query := `
		SELECT business_id, product_id, date, predicted, actual
		FROM forecast_accuracy
		WHERE business_id = $1 AND product_id = $2 AND date >= $3
		ORDER BY date
	`

	var obs []domain.AccuracyObservation
	if err := sqlx.SelectContext(ctx, r.db, &obs, query, businessID, productID, since); err != nil {
		return nil, fmt.Errorf("failed to list accuracy observations: %w", err)
	}

	return obs, nil
}

func (r *accuracyRepository) RecentObservations(ctx context.Context, since time.Time) ([]domain.AccuracyObservation, error) {
	query := `
		SELECT business_id, product_id, date, predicted, actual
		FROM forecast_accuracy
		WHERE date >= $1
		ORDER BY business_id, product_id, date
	`

	var obs []domain.AccuracyObservation
	if err := sqlx.SelectContext(ctx, r.db, &obs, query, since); err != nil {
		return nil, fmt.Errorf("failed to list recent accuracy observations: %w", err)
	}

	return obs, nil
}
