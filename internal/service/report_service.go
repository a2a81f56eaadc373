package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"retailpos/internal/apierror"
	"retailpos/internal/dto"
	"retailpos/internal/model"
	"retailpos/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	salesCachePrefix     = "report:sales:"
	inventoryCachePrefix = "report:inventory:"
	topProductsLimit     = 10
	maxReportRangeDays   = 366
)

// ReportService generates sales and inventory aggregates. Reports are cached
// in Redis (TTL-bounded) and snapshotted to the reports table; both are
// derived artifacts, regenerable at any time. Aggregation failures propagate
// to the caller — a broken report is never served as zeros.
type ReportService interface {
	SalesReport(ctx context.Context, businessID uuid.UUID, q dto.ReportQuery) (*dto.SalesReportResponse, error)
	InventoryReport(ctx context.Context, businessID uuid.UUID, locationID *uuid.UUID, refresh bool) (*dto.InventoryReportResponse, error)
	// InvalidateSalesCache drops every cached sales report for a business.
	// Called when underlying sales change (new sale, refund, void).
	InvalidateSalesCache(ctx context.Context, businessID uuid.UUID)
}

type reportService struct {
	repo     repository.ReportRepository
	rdb      *redis.Client
	cacheTTL time.Duration
}

func NewReportService(repo repository.ReportRepository, rdb *redis.Client, cacheTTL time.Duration) ReportService {
	return &reportService{repo: repo, rdb: rdb, cacheTTL: cacheTTL}
}

func (s *reportService) SalesReport(ctx context.Context, businessID uuid.UUID, q dto.ReportQuery) (*dto.SalesReportResponse, error) {
	start, err := time.Parse("2006-01-02", q.Start)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid start date", apierror.ErrValidation)
	}
	end, err := time.Parse("2006-01-02", q.End)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid end date", apierror.ErrValidation)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end before start", apierror.ErrValidation)
	}
	if end.Sub(start) > maxReportRangeDays*24*time.Hour {
		return nil, fmt.Errorf("%w: range exceeds %d days", apierror.ErrValidation, maxReportRangeDays)
	}

	var locationID *uuid.UUID
	locKey := "all"
	if q.LocationID != "" {
		id, err := uuid.Parse(q.LocationID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid location_id", apierror.ErrValidation)
		}
		locationID = &id
		locKey = id.String()
	}

	cacheKey := fmt.Sprintf("%s%s:%s:%s:%s", salesCachePrefix, businessID, locKey, q.Start, q.End)
	if q.Refresh {
		s.cacheDel(ctx, cacheKey)
	} else if cached := s.cacheGet(ctx, cacheKey); cached != nil {
		var resp dto.SalesReportResponse
		if err := json.Unmarshal(cached, &resp); err == nil {
			resp.Cached = true
			return &resp, nil
		}
	}

	// The aggregation window is [start, end] inclusive on dates, so the
	// queries use [start, end+1d) on timestamps.
	endExcl := end.AddDate(0, 0, 1)

	daily, err := s.repo.SalesDaily(ctx, businessID, locationID, start, endExcl)
	if err != nil {
		return nil, storageErr(err)
	}
	top, err := s.repo.SalesTopProducts(ctx, businessID, locationID, start, endExcl, topProductsLimit)
	if err != nil {
		return nil, storageErr(err)
	}
	summary, err := s.repo.SalesSummary(ctx, businessID, locationID, start, endExcl)
	if err != nil {
		return nil, storageErr(err)
	}

	resp := buildSalesReport(q, locationID, start, end, daily, top, summary)

	payload, err := json.Marshal(resp)
	if err == nil {
		s.cacheSet(ctx, cacheKey, payload)
		s.snapshot(ctx, businessID, locationID, model.ReportSales, start, endExcl, payload)
	}
	return resp, nil
}

func buildSalesReport(q dto.ReportQuery, locationID *uuid.UUID, start, end time.Time, daily []repository.DailySalesRow, top []repository.TopProductRow, summary *repository.SalesSummaryRow) *dto.SalesReportResponse {
	byDay := make(map[string]repository.DailySalesRow, len(daily))
	for _, row := range daily {
		byDay[row.Day.Format("2006-01-02")] = row
	}

	// Zero-fill the series so charts get one point per day in range.
	var points []dto.DailySalesPoint
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		point := dto.DailySalesPoint{
			Date:           key,
			Revenue:        decimal.Zero,
			AvgTransaction: decimal.Zero,
		}
		if row, ok := byDay[key]; ok {
			point.Revenue = row.Revenue
			point.Transactions = row.Transactions
			point.ItemsSold = row.ItemsSold
			if row.Transactions > 0 {
				point.AvgTransaction = row.Revenue.Div(decimal.NewFromInt(row.Transactions)).Round(2)
			}
		}
		points = append(points, point)
	}

	var topEntries []dto.TopProductEntry
	for _, row := range top {
		topEntries = append(topEntries, dto.TopProductEntry{
			ProductID:    row.ProductID.String(),
			ProductName:  row.ProductName,
			SKU:          row.SKU,
			QuantitySold: row.QuantitySold,
			Revenue:      row.Revenue,
		})
	}

	sum := dto.SalesReportSummary{
		TotalRevenue:      summary.TotalRevenue,
		TotalTransactions: summary.TotalTransactions,
		TotalItemsSold:    summary.TotalItemsSold,
		AvgTransaction:    decimal.Zero,
		DistinctCustomers: summary.DistinctCustomers,
	}
	if summary.TotalTransactions > 0 {
		sum.AvgTransaction = summary.TotalRevenue.Div(decimal.NewFromInt(summary.TotalTransactions)).Round(2)
	}

	resp := &dto.SalesReportResponse{
		Start:       q.Start,
		End:         q.End,
		Daily:       points,
		TopProducts: topEntries,
		Summary:     sum,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if locationID != nil {
		loc := locationID.String()
		resp.LocationID = &loc
	}
	return resp
}

func (s *reportService) InventoryReport(ctx context.Context, businessID uuid.UUID, locationID *uuid.UUID, refresh bool) (*dto.InventoryReportResponse, error) {
	locKey := "all"
	if locationID != nil {
		locKey = locationID.String()
	}
	cacheKey := fmt.Sprintf("%s%s:%s", inventoryCachePrefix, businessID, locKey)
	if refresh {
		s.cacheDel(ctx, cacheKey)
	} else if cached := s.cacheGet(ctx, cacheKey); cached != nil {
		var resp dto.InventoryReportResponse
		if err := json.Unmarshal(cached, &resp); err == nil {
			resp.Cached = true
			return &resp, nil
		}
	}

	rows, err := s.repo.InventoryByCategory(ctx, businessID, locationID)
	if err != nil {
		return nil, storageErr(err)
	}

	resp := &dto.InventoryReportResponse{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if locationID != nil {
		loc := locationID.String()
		resp.LocationID = &loc
	}
	for _, row := range rows {
		resp.ByCategory = append(resp.ByCategory, dto.CategoryInventorySummary{
			CategoryID:    row.CategoryID.String(),
			CategoryName:  row.CategoryName,
			ProductCount:  row.ProductCount,
			TotalQuantity: row.TotalQuantity,
			Valuation:     row.Valuation,
			LowStockCount: row.LowStockCount,
		})
	}

	payload, err := json.Marshal(resp)
	if err == nil {
		s.cacheSet(ctx, cacheKey, payload)
		now := time.Now()
		s.snapshot(ctx, businessID, locationID, model.ReportInventory, now, now, payload)
	}
	return resp, nil
}

func (s *reportService) InvalidateSalesCache(ctx context.Context, businessID uuid.UUID) {
	if s.rdb == nil {
		return
	}
	pattern := salesCachePrefix + businessID.String() + ":*"
	iter := s.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := s.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			log.Warn().Err(err).Str("key", iter.Val()).Msg("report cache invalidation failed")
		}
	}
	if err := iter.Err(); err != nil {
		log.Warn().Err(err).Msg("report cache scan failed")
	}
}

// snapshot persists the generated payload to the reports table. Snapshot
// write failures are logged, not returned: the report itself succeeded.
func (s *reportService) snapshot(ctx context.Context, businessID uuid.UUID, locationID *uuid.UUID, kind string, start, end time.Time, payload []byte) {
	report := &model.Report{
		BusinessID:  businessID,
		LocationID:  locationID,
		Kind:        kind,
		PeriodStart: start,
		PeriodEnd:   end,
		Payload:     payload,
		GeneratedAt: time.Now().UTC(),
	}
	if err := s.repo.SaveSnapshot(ctx, report); err != nil {
		log.Error().Err(err).Str("kind", kind).Msg("failed to persist report snapshot")
	}
}

func (s *reportService) cacheGet(ctx context.Context, key string) []byte {
	if s.rdb == nil {
		return nil
	}
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil
	}
	return data
}

func (s *reportService) cacheSet(ctx context.Context, key string, payload []byte) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("report cache write failed")
	}
}

func (s *reportService) cacheDel(ctx context.Context, key string) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("report cache delete failed")
	}
}
