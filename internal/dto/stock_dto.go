package dto

type RecordMovementRequest struct {
	ProductID  string `json:"product_id" validate:"required,uuid"`
	LocationID string `json:"location_id" validate:"required,uuid"`
	Kind       string `json:"kind" validate:"required,oneof=purchase adjustment transfer return damage"`
	// Quantity is the magnitude; the ledger applies the sign per kind.
	Quantity      int     `json:"quantity" validate:"required,gt=0"`
	Note          string  `json:"note"`
	ReferenceKind *string `json:"reference_kind" validate:"omitempty,oneof=purchase_order manual transfer return"`
	ReferenceID   *string `json:"reference_id" validate:"omitempty,uuid"`
}

type MovementResponse struct {
	ID            string  `json:"id"`
	ProductID     string  `json:"product_id"`
	ProductName   string  `json:"product_name,omitempty"`
	LocationID    string  `json:"location_id"`
	Kind          string  `json:"kind"`
	Quantity      int     `json:"quantity"`
	PreviousStock int     `json:"previous_stock"`
	NewStock      int     `json:"new_stock"`
	ReferenceKind string  `json:"reference_kind"`
	ReferenceID   *string `json:"reference_id,omitempty"`
	Note          string  `json:"note,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

type MovementFilter struct {
	ProductID  string `form:"product_id"`
	LocationID string `form:"location_id"`
	Kind       string `form:"kind"`
	Page       int    `form:"page"`
	Limit      int    `form:"limit"`
}

type MovementListResponse struct {
	Data  []MovementResponse `json:"data"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}

// StockAlertResponse flags a product at or below its minimum stock.
type StockAlertResponse struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	SKU         string `json:"sku"`
	LocationID  string `json:"location_id"`
	Quantity    int    `json:"quantity"`
	MinStock    int    `json:"min_stock"`
}

type UpdateStockLevelRequest struct {
	MinStock *int `json:"min_stock" validate:"omitempty,min=0"`
	MaxStock *int `json:"max_stock" validate:"omitempty,min=0"`
}
