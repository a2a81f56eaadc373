package repository

import (
	"context"
	"time"

	"retailpos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Row types returned by the aggregation queries. Decimal fields scan through
// shopspring's sql.Scanner.

type DailySalesRow struct {
	Day          time.Time
	Revenue      decimal.Decimal
	Transactions int64
	ItemsSold    int64
}

type TopProductRow struct {
	ProductID    uuid.UUID
	ProductName  string
	SKU          string
	QuantitySold int64
	Revenue      decimal.Decimal
}

type SalesSummaryRow struct {
	TotalRevenue      decimal.Decimal
	TotalTransactions int64
	TotalItemsSold    int64
	DistinctCustomers int64
}

type CategoryInventoryRow struct {
	CategoryID    uuid.UUID
	CategoryName  string
	ProductCount  int64
	TotalQuantity int64
	Valuation     decimal.Decimal
	LowStockCount int64
}

// ReportRepository runs the read-only aggregation queries and persists the
// derived report snapshots. Aggregation errors are returned, never replaced
// by empty results — zero values are only legitimate for empty ranges.
type ReportRepository interface {
	SalesDaily(ctx context.Context, businessID uuid.UUID, locationID *uuid.UUID, start, end time.Time) ([]DailySalesRow, error)
	SalesTopProducts(ctx context.Context, businessID uuid.UUID, locationID *uuid.UUID, start, end time.Time, limit int) ([]TopProductRow, error)
	SalesSummary(ctx context.Context, businessID uuid.UUID, locationID *uuid.UUID, start, end time.Time) (*SalesSummaryRow, error)
	InventoryByCategory(ctx context.Context, businessID uuid.UUID, locationID *uuid.UUID) ([]CategoryInventoryRow, error)
	SaveSnapshot(ctx context.Context, r *model.Report) error
}

type reportRepo struct{ db *gorm.DB }

func NewReportRepository(db *gorm.DB) ReportRepository { return &reportRepo{db: db} }

// reportStatuses are the sale statuses that count toward revenue.
var reportStatuses = []string{model.SaleCompleted, model.SalePartialRefund}

func (r *reportRepo) SalesDaily(ctx context.Context, businessID uuid.UUID, locationID *uuid.UUID, start, end time.Time) ([]DailySalesRow, error) {
	q := r.db.WithContext(ctx).
		Table("sales s").
		Select(`DATE(s.created_at) AS day,
			COALESCE(SUM(s.total), 0) AS revenue,
			COUNT(*) AS transactions,
			COALESCE(SUM(i.item_count), 0) AS items_sold`).
		Joins(`LEFT JOIN (SELECT sale_id, SUM(quantity) AS item_count
			FROM sale_items GROUP BY sale_id) i ON i.sale_id = s.id`).
		Where("s.business_id = ? AND s.status IN ?", businessID, reportStatuses).
		Where("s.created_at >= ? AND s.created_at < ?", start, end)
	if locationID != nil {
		q = q.Where("s.location_id = ?", *locationID)
	}

	var rows []DailySalesRow
	err := q.Group("DATE(s.created_at)").Order("day ASC").Scan(&rows).Error
	return rows, err
}

func (r *reportRepo) SalesTopProducts(ctx context.Context, businessID uuid.UUID, locationID *uuid.UUID, start, end time.Time, limit int) ([]TopProductRow, error) {
	q := r.db.WithContext(ctx).
		Table("sale_items i").
		Select(`i.product_id,
			i.product_name,
			i.sku,
			SUM(i.quantity) AS quantity_sold,
			COALESCE(SUM(i.total), 0) AS revenue`).
		Joins("JOIN sales s ON s.id = i.sale_id").
		Where("s.business_id = ? AND s.status IN ?", businessID, reportStatuses).
		Where("s.created_at >= ? AND s.created_at < ?", start, end)
	if locationID != nil {
		q = q.Where("s.location_id = ?", *locationID)
	}

	var rows []TopProductRow
	err := q.Group("i.product_id, i.product_name, i.sku").
		Order("revenue DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *reportRepo) SalesSummary(ctx context.Context, businessID uuid.UUID, locationID *uuid.UUID, start, end time.Time) (*SalesSummaryRow, error) {
	q := r.db.WithContext(ctx).
		Table("sales s").
		Select(`COALESCE(SUM(s.total), 0) AS total_revenue,
			COUNT(*) AS total_transactions,
			COALESCE(SUM(i.item_count), 0) AS total_items_sold,
			COUNT(DISTINCT s.customer_phone)
				FILTER (WHERE s.customer_phone IS NOT NULL AND s.customer_phone <> '') AS distinct_customers`).
		Joins(`LEFT JOIN (SELECT sale_id, SUM(quantity) AS item_count
			FROM sale_items GROUP BY sale_id) i ON i.sale_id = s.id`).
		Where("s.business_id = ? AND s.status IN ?", businessID, reportStatuses).
		Where("s.created_at >= ? AND s.created_at < ?", start, end)
	if locationID != nil {
		q = q.Where("s.location_id = ?", *locationID)
	}

	var row SalesSummaryRow
	if err := q.Scan(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *reportRepo) InventoryByCategory(ctx context.Context, businessID uuid.UUID, locationID *uuid.UUID) ([]CategoryInventoryRow, error) {
	join := "LEFT JOIN stock_levels l ON l.product_id = p.id"
	args := []interface{}{}
	if locationID != nil {
		join += " AND l.location_id = ?"
		args = append(args, *locationID)
	}

	q := r.db.WithContext(ctx).
		Table("products p").
		Select(`c.id AS category_id,
			c.name AS category_name,
			COUNT(DISTINCT p.id) AS product_count,
			COALESCE(SUM(l.quantity), 0) AS total_quantity,
			COALESCE(SUM(l.quantity * p.retail_price), 0) AS valuation,
			COUNT(l.id) FILTER (WHERE l.quantity <= l.min_stock) AS low_stock_count`).
		Joins("JOIN categories c ON c.id = p.category_id").
		Joins(join, args...).
		Where("p.business_id = ? AND p.active = true", businessID)

	var rows []CategoryInventoryRow
	err := q.Group("c.id, c.name").Order("c.name ASC").Scan(&rows).Error
	return rows, err
}

func (r *reportRepo) SaveSnapshot(ctx context.Context, report *model.Report) error {
	return r.db.WithContext(ctx).Create(report).Error
}
