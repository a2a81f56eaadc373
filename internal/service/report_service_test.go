package service_test

import (
	"context"
	"testing"
	"time"

	"retailpos/internal/apierror"
	"retailpos/internal/dto"
	"retailpos/internal/model"
	"retailpos/internal/repository"
	"retailpos/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── ReportRepository stub with canned aggregation rows ───────────────────────

type stubReportRepo struct {
	daily     []repository.DailySalesRow
	top       []repository.TopProductRow
	summary   repository.SalesSummaryRow
	inventory []repository.CategoryInventoryRow
	snapshots []*model.Report
}

func (r *stubReportRepo) SalesDaily(_ context.Context, _ uuid.UUID, _ *uuid.UUID, _, _ time.Time) ([]repository.DailySalesRow, error) {
	return r.daily, nil
}

func (r *stubReportRepo) SalesTopProducts(_ context.Context, _ uuid.UUID, _ *uuid.UUID, _, _ time.Time, limit int) ([]repository.TopProductRow, error) {
	if len(r.top) > limit {
		return r.top[:limit], nil
	}
	return r.top, nil
}

func (r *stubReportRepo) SalesSummary(_ context.Context, _ uuid.UUID, _ *uuid.UUID, _, _ time.Time) (*repository.SalesSummaryRow, error) {
	s := r.summary
	return &s, nil
}

func (r *stubReportRepo) InventoryByCategory(_ context.Context, _ uuid.UUID, _ *uuid.UUID) ([]repository.CategoryInventoryRow, error) {
	return r.inventory, nil
}

func (r *stubReportRepo) SaveSnapshot(_ context.Context, report *model.Report) error {
	r.snapshots = append(r.snapshots, report)
	return nil
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestSalesReportZeroFillsDailySeries(t *testing.T) {
	repo := &stubReportRepo{
		daily: []repository.DailySalesRow{
			{
				Day:          day("2026-03-02"),
				Revenue:      decimal.RequireFromString("100.00"),
				Transactions: 4,
				ItemsSold:    10,
			},
		},
		summary: repository.SalesSummaryRow{
			TotalRevenue:      decimal.RequireFromString("100.00"),
			TotalTransactions: 4,
			TotalItemsSold:    10,
			DistinctCustomers: 3,
		},
	}
	svc := service.NewReportService(repo, nil, time.Minute)

	resp, err := svc.SalesReport(context.Background(), uuid.New(), dto.ReportQuery{
		Start: "2026-03-01",
		End:   "2026-03-03",
	})
	require.NoError(t, err)

	// One point per day in range, days without sales filled with zeros.
	require.Len(t, resp.Daily, 3)
	assert.Equal(t, "2026-03-01", resp.Daily[0].Date)
	assert.True(t, resp.Daily[0].Revenue.IsZero())
	assert.Zero(t, resp.Daily[0].Transactions)

	assert.Equal(t, "2026-03-02", resp.Daily[1].Date)
	assert.True(t, resp.Daily[1].Revenue.Equal(decimal.RequireFromString("100.00")))
	assert.Equal(t, int64(4), resp.Daily[1].Transactions)
	assert.True(t, resp.Daily[1].AvgTransaction.Equal(decimal.RequireFromString("25.00")), "avg: %s", resp.Daily[1].AvgTransaction)

	assert.Equal(t, "2026-03-03", resp.Daily[2].Date)
	assert.True(t, resp.Daily[2].Revenue.IsZero())

	assert.True(t, resp.Summary.AvgTransaction.Equal(decimal.RequireFromString("25.00")))
	assert.Equal(t, int64(3), resp.Summary.DistinctCustomers)
	assert.False(t, resp.Cached)

	// Generated reports are snapshotted for audit.
	require.Len(t, repo.snapshots, 1)
	assert.Equal(t, model.ReportSales, repo.snapshots[0].Kind)
}

func TestSalesReportEmptyRange(t *testing.T) {
	repo := &stubReportRepo{}
	svc := service.NewReportService(repo, nil, time.Minute)

	resp, err := svc.SalesReport(context.Background(), uuid.New(), dto.ReportQuery{
		Start: "2026-03-01",
		End:   "2026-03-01",
	})
	require.NoError(t, err)
	require.Len(t, resp.Daily, 1)
	assert.True(t, resp.Summary.TotalRevenue.IsZero())
	assert.True(t, resp.Summary.AvgTransaction.IsZero())
	assert.Empty(t, resp.TopProducts)
}

func TestSalesReportValidatesRange(t *testing.T) {
	svc := service.NewReportService(&stubReportRepo{}, nil, time.Minute)
	businessID := uuid.New()

	cases := []dto.ReportQuery{
		{Start: "not-a-date", End: "2026-03-03"},
		{Start: "2026-03-01", End: "03/03/2026"},
		{Start: "2026-03-03", End: "2026-03-01"},
		{Start: "2025-01-01", End: "2026-06-01"}, // > 366 days
		{Start: "2026-03-01", End: "2026-03-03", LocationID: "not-a-uuid"},
	}
	for _, q := range cases {
		_, err := svc.SalesReport(context.Background(), businessID, q)
		assert.ErrorIs(t, err, apierror.ErrValidation, "query %+v", q)
	}
}

func TestSalesReportTopProductsCapped(t *testing.T) {
	repo := &stubReportRepo{}
	for i := 0; i < 15; i++ {
		repo.top = append(repo.top, repository.TopProductRow{
			ProductID:    uuid.New(),
			ProductName:  "P",
			QuantitySold: int64(15 - i),
			Revenue:      decimal.NewFromInt(int64(150 - i*10)),
		})
	}
	svc := service.NewReportService(repo, nil, time.Minute)

	resp, err := svc.SalesReport(context.Background(), uuid.New(), dto.ReportQuery{
		Start: "2026-03-01",
		End:   "2026-03-01",
	})
	require.NoError(t, err)
	assert.Len(t, resp.TopProducts, 10)
}

func TestInventoryReport(t *testing.T) {
	catID := uuid.New()
	repo := &stubReportRepo{
		inventory: []repository.CategoryInventoryRow{
			{
				CategoryID:    catID,
				CategoryName:  "Bebidas",
				ProductCount:  12,
				TotalQuantity: 340,
				Valuation:     decimal.RequireFromString("5230.50"),
				LowStockCount: 2,
			},
		},
	}
	svc := service.NewReportService(repo, nil, time.Minute)

	locationID := uuid.New()
	resp, err := svc.InventoryReport(context.Background(), uuid.New(), &locationID, false)
	require.NoError(t, err)

	require.Len(t, resp.ByCategory, 1)
	got := resp.ByCategory[0]
	assert.Equal(t, catID.String(), got.CategoryID)
	assert.Equal(t, int64(12), got.ProductCount)
	assert.Equal(t, int64(2), got.LowStockCount)
	assert.True(t, got.Valuation.Equal(decimal.RequireFromString("5230.50")))
	require.NotNil(t, resp.LocationID)
	assert.Equal(t, locationID.String(), *resp.LocationID)

	require.Len(t, repo.snapshots, 1)
	assert.Equal(t, model.ReportInventory, repo.snapshots[0].Kind)
}
