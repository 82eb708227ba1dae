// cmd/cycle/main.go
package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

type ctxKey string

const dbKey ctxKey = "db"

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func newBusinessIDFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "business-id",
		Usage:    "Business the data belongs to",
		Required: true,
		EnvVars:  []string{"BUSINESS_ID"},
	}
}

func initDB(c *cli.Context) error {
	db, err := sql.Open("pgx", c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	c.Context = context.WithValue(c.Context, dbKey, db)
	return nil
}

func closeDB(c *cli.Context) error {
	if db, ok := c.Context.Value(dbKey).(*sql.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func dbFrom(c *cli.Context) *sql.DB {
	db, _ := c.Context.Value(dbKey).(*sql.DB)
	return db
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "cycle",
		Usage: "Seed catalog data and run analytical cycles",
		Commands: []*cli.Command{
			{
				Name:  "seed",
				Usage: "Seed catalog data from CSV files",
				Subcommands: []*cli.Command{
					{
						Name:  "products",
						Usage: "Seed the product catalog",
						Flags: []cli.Flag{
							newDBURLFlag(),
							newBusinessIDFlag(),
							&cli.StringFlag{
								Name:     "file",
								Usage:    "CSV file with product rows",
								Required: true,
							},
						},
						Before: initDB,
						After:  closeDB,
						Action: seedProducts,
					},
					{
						Name:  "transactions",
						Usage: "Seed historical transactions",
						Flags: []cli.Flag{
							newDBURLFlag(),
							newBusinessIDFlag(),
							&cli.StringFlag{
								Name:     "file",
								Usage:    "CSV file with transaction rows",
								Required: true,
							},
						},
						Before: initDB,
						After:  closeDB,
						Action: seedTransactions,
					},
					{
						Name:  "constraints",
						Usage: "Seed storage and budget constraints",
						Flags: []cli.Flag{
							newDBURLFlag(),
							newBusinessIDFlag(),
							&cli.Float64Flag{
								Name:  "storage-capacity",
								Usage: "Storage capacity in storage units, 0 for unconstrained",
							},
							&cli.Float64Flag{
								Name:  "reorder-budget",
								Usage: "Reorder budget, 0 for unconstrained",
							},
						},
						Before: initDB,
						After:  closeDB,
						Action: seedConstraints,
					},
				},
			},
			{
				Name:  "run",
				Usage: "Run one analytical cycle and print the published action items",
				Flags: []cli.Flag{
					newBusinessIDFlag(),
					&cli.StringFlag{
						Name:  "reason",
						Usage: "Cycle trigger reason: scheduled, new_data or price_change",
						Value: "scheduled",
					},
					&cli.StringFlag{
						Name:  "events-file",
						Usage: "Optional CSV of calendar events to load before the run",
					},
					&cli.StringFlag{
						Name:  "regions-file",
						Usage: "Optional CSV of regional factors to load before the run",
					},
				},
				Action: runCycle,
			},
			{
				Name:  "archive",
				Usage: "Inspect the cycle archive bucket",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List a business's archived cycles",
						Flags:  []cli.Flag{newBusinessIDFlag()},
						Action: listArchivedCycles,
					},
					{
						Name:  "pull",
						Usage: "Download one archived cycle's JSON",
						Flags: []cli.Flag{
							newBusinessIDFlag(),
							&cli.StringFlag{
								Name:     "cycle-key",
								Usage:    "Cycle key, e.g. 2026-W10",
								Required: true,
							},
							&cli.StringFlag{
								Name:  "out",
								Usage: "Destination file, defaults to <cycle-key>.json",
							},
						},
						Action: pullArchivedCycle,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func seedProducts(c *cli.Context) error {
	db := dbFrom(c)
	businessID := c.String("business-id")

	ctx := c.Context
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO products (
			business_id, product_id, name, category, location,
			cost_price, current_price, competitor_price, current_stock,
			on_order, lead_time_days, lead_time_var, unit_volume, min_order_qty
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (business_id, product_id) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			location = EXCLUDED.location,
			cost_price = EXCLUDED.cost_price,
			current_price = EXCLUDED.current_price,
			competitor_price = EXCLUDED.competitor_price,
			current_stock = EXCLUDED.current_stock,
			on_order = EXCLUDED.on_order,
			lead_time_days = EXCLUDED.lead_time_days,
			lead_time_var = EXCLUDED.lead_time_var,
			unit_volume = EXCLUDED.unit_volume,
			min_order_qty = EXCLUDED.min_order_qty`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare product statement: %w", err)
	}
	defer stmt.Close()

	count := 0
	err = forEachRecord(c.String("file"), func(get func(string) string) error {
		competitor := nullIfEmpty(get("competitor_price"))
		_, err := stmt.ExecContext(ctx,
			businessID,
			get("product_id"),
			get("name"),
			get("category"),
			get("location"),
			get("cost_price"),
			get("current_price"),
			competitor,
			parseFloat(get("current_stock")),
			parseFloat(get("on_order")),
			parseFloat(get("lead_time_days")),
			parseFloat(get("lead_time_var")),
			parseFloatDefault(get("unit_volume"), 1),
			parseFloat(get("min_order_qty")),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert product %s: %w", get("product_id"), err)
		}
		count++
		return nil
	})
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Printf("Seeded %d products for %s\n", count, businessID)
	return nil
}

func seedTransactions(c *cli.Context) error {
	db := dbFrom(c)
	businessID := c.String("business-id")

	ctx := c.Context
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO transactions (business_id, product_id, timestamp, quantity, unit_price, location)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (business_id, product_id, timestamp) DO NOTHING`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare transaction statement: %w", err)
	}
	defer stmt.Close()

	count := 0
	err = forEachRecord(c.String("file"), func(get func(string) string) error {
		_, err := stmt.ExecContext(ctx,
			businessID,
			get("product_id"),
			get("timestamp"),
			parseFloat(get("quantity")),
			get("unit_price"),
			get("location"),
		)
		if err != nil {
			return fmt.Errorf("failed to insert transaction for %s: %w", get("product_id"), err)
		}
		count++
		return nil
	})
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Printf("Seeded %d transactions for %s\n", count, businessID)
	return nil
}

func seedConstraints(c *cli.Context) error {
	db := dbFrom(c)
	businessID := c.String("business-id")

	const query = `
		INSERT INTO business_constraints (business_id, storage_capacity, reorder_budget)
		VALUES ($1, $2, $3)
		ON CONFLICT (business_id) DO UPDATE SET
			storage_capacity = EXCLUDED.storage_capacity,
			reorder_budget = EXCLUDED.reorder_budget`

	_, err := db.ExecContext(c.Context, query,
		businessID,
		c.Float64("storage-capacity"),
		c.Float64("reorder-budget"),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert constraints: %w", err)
	}

	log.Printf("Seeded constraints for %s\n", businessID)
	return nil
}

// forEachRecord streams a CSV file row by row, handing each callback a
// header-keyed accessor.
func forEachRecord(path string, fn func(get func(string) string) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}

	colMap := make(map[string]int, len(header))
	for i, col := range header {
		colMap[strings.TrimSpace(col)] = i
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read CSV record: %w", err)
		}

		get := func(col string) string {
			if idx, ok := colMap[col]; ok && idx < len(record) {
				return strings.TrimSpace(record[idx])
			}
			return ""
		}

		if err := fn(get); err != nil {
			return err
		}
	}

	return nil
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func parseFloatDefault(s string, def float64) float64 {
	if s == "" {
		return def
	}
	return parseFloat(s)
}

// splitList parses a pipe-separated CSV cell into its non-empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, "|") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
