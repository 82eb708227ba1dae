// internal/repository/postgres/catalog_repository.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/mounika-192643/InsightSphere-AI/internal/domain"
)

type catalogRepository struct {
	db *DB
}

func NewCatalogRepository(db *DB) *catalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) Products(ctx context.Context, businessID string) ([]domain.Product, error) {
	query := `
		SELECT business_id, product_id, name, category, location,
			cost_price, current_price, competitor_price,
			current_stock, on_order, lead_time_days, lead_time_var,
			unit_volume, min_order_qty
		FROM products
		WHERE business_id = $1
		ORDER BY product_id
	`

	var products []domain.Product
	if err := sqlx.SelectContext(ctx, r.db, &products, query, businessID); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	return products, nil
}

func (r *catalogRepository) Transactions(ctx context.Context, businessID string) ([]domain.Transaction, error) {
	query := `
		SELECT business_id, product_id, timestamp, quantity, unit_price, location
		FROM transactions
		WHERE business_id = $1
		ORDER BY timestamp
	`

	var txs []domain.Transaction
	if err := sqlx.SelectContext(ctx, r.db, &txs, query, businessID); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	return txs, nil
}

func (r *catalogRepository) Constraints(ctx context.Context, businessID string) (domain.BusinessConstraints, error) {
	query := `
		SELECT business_id, storage_capacity, reorder_budget
		FROM business_constraints
		WHERE business_id = $1
	`

	var c domain.BusinessConstraints
	err := sqlx.GetContext(ctx, r.db, &c, query, businessID)
	if errors.Is(err, sql.ErrNoRows) {
		// No row means unconstrained.
		return domain.BusinessConstraints{BusinessID: businessID}, nil
	}
	if err != nil {
		return domain.BusinessConstraints{}, fmt.Errorf("failed to get constraints: %w", err)
	}

	return c, nil
}

func (r *catalogRepository) SaveTransactions(ctx context.Context, txs []domain.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO transactions (business_id, product_id, timestamp, quantity, unit_price, location)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (business_id, product_id, timestamp) DO NOTHING
		`

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, t := range txs {
			if _, err := stmt.ExecContext(ctx,
				t.BusinessID, t.ProductID, t.Timestamp, t.Quantity, t.UnitPrice, t.Location,
			); err != nil {
				return fmt.Errorf("failed to insert transaction: %w", err)
			}
		}

		return nil
	})
}
