// internal/ingest/ingest.go
package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/mounika-192643/InsightSphere-AI/internal/domain"
	"github.com/mounika-192643/InsightSphere-AI/internal/repository"
)

const saveBatchSize = 500

// Report summarizes one ingestion run.
type Report struct {
	FileID  string `json:"file_id"`
	Rows    int    `json:"rows"`
	Saved   int    `json:"saved"`
	Skipped int    `json:"skipped"`
}

// Service pulls transaction CSV exports from a file source, validates each
// row and stores the resulting transactions.
type Service struct {
	source  FileSource
	catalog repository.CatalogRepository
}

func NewService(source FileSource, catalog repository.CatalogRepository) *Service {
	return &Service{
		source:  source,
		catalog: catalog,
	}
}

// IngestFile downloads one export and stores its transactions. Rows that fail
// validation are skipped and counted; a malformed file fails the whole run so
// a partial file is never half-applied on retry.
func (s *Service) IngestFile(ctx context.Context, businessID, fileID string) (*Report, error) {
	pr, pw := io.Pipe()
	go func() {
		err := s.source.Download(fileID, pw)
		pw.CloseWithError(err)
	}()

	report, err := s.ingestCSV(ctx, businessID, pr, fileID)
	if err != nil {
		pr.CloseWithError(err)
		return nil, err
	}
	return report, nil
}

// IngestFolder resolves a folder path and ingests every CSV export in it.
func (s *Service) IngestFolder(ctx context.Context, businessID, folderPath string) ([]*Report, error) {
	folderID, err := s.source.FindFolderByPath(folderPath)
	if err != nil {
		return nil, err
	}

	files, err := s.source.ListFiles(folderID)
	if err != nil {
		return nil, err
	}

	var reports []*Report
	for _, f := range files {
		if !strings.HasSuffix(strings.ToLower(f.Name), ".csv") {
			continue
		}
		report, err := s.IngestFile(ctx, businessID, f.ID)
		if err != nil {
			return reports, fmt.Errorf("ingest %s: %w", f.Name, err)
		}
		reports = append(reports, report)
	}

	return reports, nil
}

// IngestLocalFiles ingests previously downloaded CSV files from local disk.
func (s *Service) IngestLocalFiles(ctx context.Context, businessID string, paths []string) ([]*Report, error) {
	var reports []*Report
	for _, path := range paths {
		file, err := os.Open(path)
		if err != nil {
			return reports, fmt.Errorf("open %s: %w", path, err)
		}

		report, err := s.ingestCSV(ctx, businessID, file, filepath.Base(path))
		file.Close()
		if err != nil {
			return reports, fmt.Errorf("ingest %s: %w", path, err)
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func (s *Service) ingestCSV(ctx context.Context, businessID string, r io.Reader, fileID string) (*Report, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	colMap := make(map[string]int)
	for i, col := range header {
		colMap[strings.TrimSpace(col)] = i
	}

	for _, col := range []string{"product_id", "timestamp", "quantity", "unit_price"} {
		if _, ok := colMap[col]; !ok {
			return nil, fmt.Errorf("missing required column: %s", col)
		}
	}

	report := &Report{FileID: fileID}
	batch := make([]domain.Transaction, 0, saveBatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.catalog.SaveTransactions(ctx, batch); err != nil {
			return fmt.Errorf("save transactions: %w", err)
		}
		report.Saved += len(batch)
		batch = batch[:0]
		return nil
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}
		report.Rows++

		tx, err := parseRow(businessID, record, colMap)
		if err != nil {
			report.Skipped++
			log.Warn().
				Err(err).
				Str("file_id", fileID).
				Int("row", report.Rows).
				Msg("Skipping invalid transaction row")
			continue
		}

		batch = append(batch, tx)
		if len(batch) >= saveBatchSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}

	if err := flush(); err != nil {
		return nil, err
	}
	return report, nil
}

func parseRow(businessID string, record []string, colMap map[string]int) (domain.Transaction, error) {
	getValue := func(colName string) string {
		if idx, ok := colMap[colName]; ok && idx < len(record) {
			return strings.TrimSpace(record[idx])
		}
		return ""
	}

	productID := getValue("product_id")
	if productID == "" {
		return domain.Transaction{}, fmt.Errorf("empty product_id")
	}

	ts, err := parseTimestamp(getValue("timestamp"))
	if err != nil {
		return domain.Transaction{}, err
	}

	qty, err := strconv.ParseFloat(getValue("quantity"), 64)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("invalid quantity: %v", err)
	}
	if qty <= 0 {
		return domain.Transaction{}, fmt.Errorf("non-positive quantity: %v", qty)
	}

	price, err := decimal.NewFromString(getValue("unit_price"))
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("invalid unit_price: %v", err)
	}
	if price.IsNegative() {
		return domain.Transaction{}, fmt.Errorf("negative unit_price: %s", price)
	}

	return domain.Transaction{
		BusinessID: businessID,
		ProductID:  productID,
		Timestamp:  ts,
		Quantity:   qty,
		UnitPrice:  price,
		Location:   getValue("location"),
	}, nil
}

func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp: %s", value)
}
