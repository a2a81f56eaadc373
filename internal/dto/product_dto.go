package dto

import "github.com/shopspring/decimal"

type CreateProductRequest struct {
	SKU            string          `json:"sku" validate:"required"`
	Barcode        string          `json:"barcode" validate:"required"`
	Name           string          `json:"name" validate:"required"`
	Description    *string         `json:"description"`
	CategoryID     string          `json:"category_id" validate:"required,uuid"`
	RetailPrice    decimal.Decimal `json:"retail_price" validate:"min=0"`
	WholesalePrice decimal.Decimal `json:"wholesale_price" validate:"min=0"`
	CostPrice      decimal.Decimal `json:"cost_price" validate:"min=0"`
	Unit           string          `json:"unit"`
	// Optional opening stock per location — applied through the ledger as
	// adjustment movements, never written directly.
	OpeningStock []OpeningStockEntry `json:"opening_stock" validate:"dive"`
}

type OpeningStockEntry struct {
	LocationID string `json:"location_id" validate:"required,uuid"`
	Quantity   int    `json:"quantity" validate:"min=0"`
	MinStock   int    `json:"min_stock" validate:"min=0"`
	MaxStock   int    `json:"max_stock" validate:"min=0"`
}

type UpdateProductRequest struct {
	Name           *string          `json:"name"`
	Description    *string          `json:"description"`
	Barcode        *string          `json:"barcode"`
	CategoryID     *string          `json:"category_id" validate:"omitempty,uuid"`
	RetailPrice    *decimal.Decimal `json:"retail_price"`
	WholesalePrice *decimal.Decimal `json:"wholesale_price"`
	CostPrice      *decimal.Decimal `json:"cost_price"`
	Unit           *string          `json:"unit"`
}

type StockLevelResponse struct {
	LocationID string `json:"location_id"`
	Quantity   int    `json:"quantity"`
	MinStock   int    `json:"min_stock"`
	MaxStock   int    `json:"max_stock"`
}

type ProductResponse struct {
	ID             string               `json:"id"`
	SKU            string               `json:"sku"`
	Barcode        string               `json:"barcode"`
	Name           string               `json:"name"`
	Description    *string              `json:"description,omitempty"`
	CategoryID     string               `json:"category_id"`
	CategoryName   string               `json:"category_name,omitempty"`
	RetailPrice    decimal.Decimal      `json:"retail_price"`
	WholesalePrice decimal.Decimal      `json:"wholesale_price"`
	CostPrice      decimal.Decimal      `json:"cost_price"`
	Unit           string               `json:"unit"`
	Active         bool                 `json:"active"`
	Levels         []StockLevelResponse `json:"levels,omitempty"`
}

type ProductFilter struct {
	Name       string `form:"name"`
	Barcode    string `form:"barcode"`
	CategoryID string `form:"category_id"`
	Active     string `form:"active"` // "false" | "all" | default: active only
	Page       int    `form:"page"`
	Limit      int    `form:"limit"`
}

type ProductListResponse struct {
	Data  []ProductResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

// PriceCheckResponse is the redis-cached payload for the barcode price lookup.
type PriceCheckResponse struct {
	ProductID   string          `json:"product_id"`
	Name        string          `json:"name"`
	RetailPrice decimal.Decimal `json:"retail_price"`
	Unit        string          `json:"unit"`
}
