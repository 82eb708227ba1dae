// internal/repository/postgres/cycle_repository.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/mounika-192643/InsightSphere-AI/internal/domain"
)

type cycleRepository struct {
	db *DB
}

func NewCycleRepository(db *DB) *cycleRepository {
	return &cycleRepository{db: db}
}

// PublishCycle commits the run, its action items and its issues in a single
// transaction, so a published cycle is always whole.
func (r *cycleRepository) PublishCycle(ctx context.Context, result *domain.CycleResult) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var runID int64
		query := `
			INSERT INTO cycle_runs (business_id, cycle_key, reason, started_at, completed_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`
		if err := tx.QueryRowContext(ctx, query,
			result.BusinessID, result.CycleKey, result.Reason, result.StartedAt, result.CompletedAt,
		).Scan(&runID); err != nil {
			return fmt.Errorf("failed to insert cycle run: %w", err)
		}

		itemStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO action_items (id, cycle_run_id, business_id, cycle_key,
				product_id, category, impact, confidence, rank, source_ids, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare item insert: %w", err)
		}
		defer itemStmt.Close()

		for _, item := range result.Items {
			if _, err := itemStmt.ExecContext(ctx,
				item.ID, runID, item.BusinessID, item.CycleKey,
				item.ProductID, item.Category, item.Impact, item.Confidence,
				item.Rank, pq.Array(item.SourceIDs), item.CreatedAt,
			); err != nil {
				return fmt.Errorf("failed to insert action item: %w", err)
			}
		}

		issueStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO cycle_issues (cycle_run_id, product_id, code, message)
			VALUES ($1, $2, $3, $4)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare issue insert: %w", err)
		}
		defer issueStmt.Close()

		for _, issue := range result.Issues {
			if _, err := issueStmt.ExecContext(ctx,
				runID, issue.ProductID, issue.Code, issue.Message,
			); err != nil {
				return fmt.Errorf("failed to insert cycle issue: %w", err)
			}
		}

		return nil
	})
}

type cycleRunRow struct {
	ID          int64              `db:"id"`
	BusinessID  string             `db:"business_id"`
	CycleKey    string             `db:"cycle_key"`
	Reason      domain.CycleReason `db:"reason"`
	StartedAt   sql.NullTime       `db:"started_at"`
	CompletedAt sql.NullTime       `db:"completed_at"`
}

func (r *cycleRepository) GetCycle(ctx context.Context, businessID, cycleKey string) (*domain.CycleResult, error) {
	query := `
		SELECT id, business_id, cycle_key, reason, started_at, completed_at
		FROM cycle_runs
		WHERE business_id = $1 AND cycle_key = $2
	`

	var run cycleRunRow
	err := sqlx.GetContext(ctx, r.db, &run, query, businessID, cycleKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cycle run: %w", err)
	}

	return r.loadResult(ctx, run)
}

func (r *cycleRepository) LatestCycle(ctx context.Context, businessID string) (*domain.CycleResult, error) {
	query := `
		SELECT id, business_id, cycle_key, reason, started_at, completed_at
		FROM cycle_runs
		WHERE business_id = $1
		ORDER BY completed_at DESC
		LIMIT 1
	`

	var run cycleRunRow
	err := sqlx.GetContext(ctx, r.db, &run, query, businessID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest cycle: %w", err)
	}

	return r.loadResult(ctx, run)
}

func (r *cycleRepository) loadResult(ctx context.Context, run cycleRunRow) (*domain.CycleResult, error) {
	result := &domain.CycleResult{
		BusinessID:  run.BusinessID,
		CycleKey:    run.CycleKey,
		Reason:      run.Reason,
		StartedAt:   run.StartedAt.Time,
		CompletedAt: run.CompletedAt.Time,
	}

	itemQuery := `
		SELECT id, business_id, cycle_key, product_id, category,
			impact, confidence, rank, source_ids, created_at
		FROM action_items
		WHERE cycle_run_id = $1
		ORDER BY rank
	`
	rows, err := r.db.QueryxContext(ctx, itemQuery, run.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list action items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.ActionItem
		var sources pq.StringArray
		if err := rows.Scan(&item.ID, &item.BusinessID, &item.CycleKey,
			&item.ProductID, &item.Category, &item.Impact, &item.Confidence,
			&item.Rank, &sources, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan action item: %w", err)
		}
		item.SourceIDs = sources
		result.Items = append(result.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate action items: %w", err)
	}

	issueQuery := `
		SELECT product_id, code, message
		FROM cycle_issues
		WHERE cycle_run_id = $1
		ORDER BY product_id, code
	`
	if err := sqlx.SelectContext(ctx, r.db, &result.Issues, issueQuery, run.ID); err != nil {
		return nil, fmt.Errorf("failed to list cycle issues: %w", err)
	}

	return result, nil
}

// PruneCycles deletes all but the newest `keep` runs of a business; action
// items and issues go with their run via ON DELETE CASCADE.
func (r *cycleRepository) PruneCycles(ctx context.Context, businessID string, keep int) error {
	if keep < 1 {
		return nil
	}

	query := `
		DELETE FROM cycle_runs
		WHERE business_id = $1
		AND id NOT IN (
			SELECT id FROM cycle_runs
			WHERE business_id = $1
			ORDER BY completed_at DESC
			LIMIT $2
		)
	`
	if _, err := r.db.ExecContext(ctx, query, businessID, keep); err != nil {
		return fmt.Errorf("failed to prune cycles: %w", err)
	}

	return nil
}
