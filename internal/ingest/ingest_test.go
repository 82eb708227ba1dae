package ingest

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mounika-192643/InsightSphere-AI/internal/domain"
)

type memSource struct {
	files map[string]string // fileID -> CSV body
	list  []*RemoteFile
}

func (m *memSource) ListFiles(folderID string) ([]*RemoteFile, error) { return m.list, nil }

func (m *memSource) FindFolderByPath(path string) (string, error) { return "folder-1", nil }

func (m *memSource) Download(fileID string, w io.Writer) error {
	body, ok := m.files[fileID]
	if !ok {
		return fmt.Errorf("no such file: %s", fileID)
	}
	_, err := io.WriteString(w, body)
	return err
}

type memCatalog struct {
	saved    []domain.Transaction
	failSave bool
}

func (m *memCatalog) Products(ctx context.Context, businessID string) ([]domain.Product, error) {
	return nil, nil
}

func (m *memCatalog) Transactions(ctx context.Context, businessID string) ([]domain.Transaction, error) {
	return m.saved, nil
}

func (m *memCatalog) Constraints(ctx context.Context, businessID string) (domain.BusinessConstraints, error) {
	return domain.BusinessConstraints{BusinessID: businessID}, nil
}

func (m *memCatalog) SaveTransactions(ctx context.Context, txs []domain.Transaction) error {
	if m.failSave {
		return fmt.Errorf("save failed")
	}
	m.saved = append(m.saved, txs...)
	return nil
}

const sampleCSV = `product_id,timestamp,quantity,unit_price,location
chai-250g,2026-03-01T09:30:00Z,3,100.00,Mumbai
coffee-200g,2026-03-01 10:15:00,1,200.00,Mumbai
chai-250g,2026-03-02,2,100.00,Mumbai
`

func TestIngestFile_ParsesAndSavesRows(t *testing.T) {
	source := &memSource{files: map[string]string{"f1": sampleCSV}}
	catalog := &memCatalog{}
	svc := NewService(source, catalog)

	report, err := svc.IngestFile(context.Background(), "biz-1", "f1")
	require.NoError(t, err)

	assert.Equal(t, 3, report.Rows)
	assert.Equal(t, 3, report.Saved)
	assert.Equal(t, 0, report.Skipped)
	require.Len(t, catalog.saved, 3)

	first := catalog.saved[0]
	assert.Equal(t, "biz-1", first.BusinessID)
	assert.Equal(t, "chai-250g", first.ProductID)
	assert.Equal(t, float64(3), first.Quantity)
	assert.True(t, first.UnitPrice.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, "Mumbai", first.Location)
	assert.Equal(t, 9, first.Timestamp.UTC().Hour())
}

func TestIngestFile_SkipsInvalidRows(t *testing.T) {
	body := `product_id,timestamp,quantity,unit_price,location
chai-250g,2026-03-01,2,100.00,Mumbai
,2026-03-01,2,100.00,Mumbai
chai-250g,not-a-date,2,100.00,Mumbai
chai-250g,2026-03-01,0,100.00,Mumbai
chai-250g,2026-03-01,2,-5.00,Mumbai
`
	source := &memSource{files: map[string]string{"f1": body}}
	catalog := &memCatalog{}
	svc := NewService(source, catalog)

	report, err := svc.IngestFile(context.Background(), "biz-1", "f1")
	require.NoError(t, err)

	assert.Equal(t, 5, report.Rows)
	assert.Equal(t, 1, report.Saved)
	assert.Equal(t, 4, report.Skipped)
	require.Len(t, catalog.saved, 1)
}

func TestIngestFile_MissingColumnFails(t *testing.T) {
	body := `product_id,quantity,unit_price
chai-250g,2,100.00
`
	source := &memSource{files: map[string]string{"f1": body}}
	svc := NewService(source, &memCatalog{})

	_, err := svc.IngestFile(context.Background(), "biz-1", "f1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required column: timestamp")
}

func TestIngestFile_SaveFailureAborts(t *testing.T) {
	source := &memSource{files: map[string]string{"f1": sampleCSV}}
	svc := NewService(source, &memCatalog{failSave: true})

	_, err := svc.IngestFile(context.Background(), "biz-1", "f1")
	require.Error(t, err)
}

func TestIngestFolder_OnlyCSVFiles(t *testing.T) {
	source := &memSource{
		files: map[string]string{
			"f1": sampleCSV,
			"f2": sampleCSV,
		},
		list: []*RemoteFile{
			{ID: "f1", Name: "march-week1.csv"},
			{ID: "skip", Name: "notes.txt"},
			{ID: "f2", Name: "march-week2.CSV"},
		},
	}
	catalog := &memCatalog{}
	svc := NewService(source, catalog)

	reports, err := svc.IngestFolder(context.Background(), "biz-1", "exports/march")
	require.NoError(t, err)

	require.Len(t, reports, 2)
	assert.Len(t, catalog.saved, 6)
}
