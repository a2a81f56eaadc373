package dto

import "github.com/shopspring/decimal"

// ReportQuery bounds a sales report. Start/End are inclusive dates (YYYY-MM-DD).
type ReportQuery struct {
	LocationID string `form:"location_id"`
	Start      string `form:"start" validate:"required"`
	End        string `form:"end" validate:"required"`
	// Refresh forces regeneration, invalidating any cached copy first.
	Refresh bool `form:"refresh"`
}

type DailySalesPoint struct {
	Date             string          `json:"date"` // YYYY-MM-DD
	Revenue          decimal.Decimal `json:"revenue"`
	Transactions     int64           `json:"transactions"`
	ItemsSold        int64           `json:"items_sold"`
	AvgTransaction   decimal.Decimal `json:"avg_transaction"`
}

type TopProductEntry struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	SKU         string          `json:"sku"`
	QuantitySold int64          `json:"quantity_sold"`
	Revenue     decimal.Decimal `json:"revenue"`
}

type SalesReportSummary struct {
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	TotalTransactions int64           `json:"total_transactions"`
	TotalItemsSold    int64           `json:"total_items_sold"`
	AvgTransaction    decimal.Decimal `json:"avg_transaction"`
	// DistinctCustomers counts unique non-empty customer phones. Sales
	// without a phone are excluded — a documented undercount.
	DistinctCustomers int64 `json:"distinct_customers"`
}

type SalesReportResponse struct {
	Start       string             `json:"start"`
	End         string             `json:"end"`
	LocationID  *string            `json:"location_id,omitempty"`
	Daily       []DailySalesPoint  `json:"daily"`
	TopProducts []TopProductEntry  `json:"top_products"`
	Summary     SalesReportSummary `json:"summary"`
	GeneratedAt string             `json:"generated_at"`
	Cached      bool               `json:"cached"`
}

type CategoryInventorySummary struct {
	CategoryID    string          `json:"category_id"`
	CategoryName  string          `json:"category_name"`
	ProductCount  int64           `json:"product_count"`
	TotalQuantity int64           `json:"total_quantity"`
	Valuation     decimal.Decimal `json:"valuation"` // sum(quantity * retail_price)
	LowStockCount int64           `json:"low_stock_count"`
}

type InventoryReportResponse struct {
	LocationID  *string                    `json:"location_id,omitempty"`
	ByCategory  []CategoryInventorySummary `json:"by_category"`
	GeneratedAt string                     `json:"generated_at"`
	Cached      bool                       `json:"cached"`
}
