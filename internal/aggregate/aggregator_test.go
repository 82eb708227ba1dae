package aggregate

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mounika-192643/InsightSphere-AI/internal/domain"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return d
}

func testProduct() domain.Product {
	return domain.Product{
		BusinessID: "biz-1",
		ProductID:  "sku-1",
		Category:   "beverages",
		Location:   "Mumbai",
	}
}

func tx(ts time.Time, qty float64, price string) domain.Transaction {
	return domain.Transaction{
		BusinessID: "biz-1",
		ProductID:  "sku-1",
		Timestamp:  ts,
		Quantity:   qty,
		UnitPrice:  decimal.RequireFromString(price),
		Location:   "Mumbai",
	}
}

func TestBuildSeries_FillsGapsWithExplicitZeros(t *testing.T) {
	agg := NewAggregator(1)

	txs := []domain.Transaction{
		tx(day(t, "2026-01-01").Add(9*time.Hour), 5, "100"),
		tx(day(t, "2026-01-01").Add(15*time.Hour), 3, "100"),
		// no sales on Jan 2 and 3
		tx(day(t, "2026-01-04"), 2, "110"),
	}

	series, err := agg.BuildSeries(testProduct(), txs)
	require.NoError(t, err)
	require.Len(t, series.Points, 4)

	assert.Equal(t, 8.0, series.Points[0].Quantity)
	assert.Equal(t, 0.0, series.Points[1].Quantity)
	assert.Equal(t, 0.0, series.Points[2].Quantity)
	assert.Equal(t, 2.0, series.Points[3].Quantity)

	// Dates strictly increasing, daily steps.
	for i := 1; i < len(series.Points); i++ {
		assert.Equal(t, 24*time.Hour, series.Points[i].Date.Sub(series.Points[i-1].Date))
	}
}

func TestBuildSeries_WeightedDailyPrice(t *testing.T) {
	agg := NewAggregator(1)

	txs := []domain.Transaction{
		tx(day(t, "2026-01-01"), 1, "100"),
		tx(day(t, "2026-01-01"), 3, "80"),
	}

	series, err := agg.BuildSeries(testProduct(), txs)
	require.NoError(t, err)
	require.Len(t, series.Points, 1)
	// (1*100 + 3*80) / 4
	assert.InDelta(t, 85.0, series.Points[0].UnitPrice, 1e-9)
}

func TestBuildSeries_InsufficientHistory(t *testing.T) {
	agg := NewAggregator(30)

	txs := []domain.Transaction{
		tx(day(t, "2026-01-01"), 1, "100"),
		tx(day(t, "2026-01-05"), 2, "100"),
	}

	series, err := agg.BuildSeries(testProduct(), txs)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientHistory)
	// Partial series is still returned for the cold-start path.
	require.NotNil(t, series)
	assert.Len(t, series.Points, 5)
}

func TestBuildSeries_NoTransactions(t *testing.T) {
	agg := NewAggregator(7)

	series, err := agg.BuildSeries(testProduct(), nil)
	assert.ErrorIs(t, err, domain.ErrInsufficientHistory)
	assert.Nil(t, series)
}

func TestBuildSeries_IgnoresOtherProducts(t *testing.T) {
	agg := NewAggregator(1)

	other := tx(day(t, "2026-01-01"), 10, "50")
	other.ProductID = "sku-2"

	txs := []domain.Transaction{
		tx(day(t, "2026-01-01"), 1, "100"),
		other,
	}

	series, err := agg.BuildSeries(testProduct(), txs)
	require.NoError(t, err)
	assert.Equal(t, 1.0, series.Points[0].Quantity)
}
