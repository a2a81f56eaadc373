package dto

import "github.com/shopspring/decimal"

type SaleItemRequest struct {
	ProductID string          `json:"product_id" validate:"required,uuid"`
	Quantity  int             `json:"quantity" validate:"required,gt=0"`
	Discount  decimal.Decimal `json:"discount" validate:"min=0"`
}

type PaymentRequest struct {
	Method string          `json:"method" validate:"required,oneof=cash card transfer mobile"`
	Amount decimal.Decimal `json:"amount" validate:"required"`
}

type RegisterSaleRequest struct {
	LocationID    string            `json:"location_id" validate:"required,uuid"`
	Items         []SaleItemRequest `json:"items" validate:"required,min=1,dive"`
	Payments      []PaymentRequest  `json:"payments" validate:"required,min=1,dive"`
	Discount      decimal.Decimal   `json:"discount" validate:"min=0"`
	Tax           decimal.Decimal   `json:"tax" validate:"min=0"`
	CustomerName  *string           `json:"customer_name"`
	CustomerPhone *string           `json:"customer_phone"`
	CustomerEmail *string           `json:"customer_email" validate:"omitempty,email"`
	Note          *string           `json:"note"`
}

type SaleItemResponse struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	SKU         string          `json:"sku"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
	RefundedQty int             `json:"refunded_qty,omitempty"`
}

type SaleResponse struct {
	ID            string             `json:"id"`
	Number        string             `json:"number"`
	LocationID    string             `json:"location_id"`
	Items         []SaleItemResponse `json:"items"`
	Payments      []PaymentRequest   `json:"payments"`
	Subtotal      decimal.Decimal    `json:"subtotal"`
	Tax           decimal.Decimal    `json:"tax"`
	Discount      decimal.Decimal    `json:"discount"`
	Total         decimal.Decimal    `json:"total"`
	Change        decimal.Decimal    `json:"change"`
	RefundedTotal decimal.Decimal    `json:"refunded_total"`
	CustomerName  *string            `json:"customer_name,omitempty"`
	CustomerPhone *string            `json:"customer_phone,omitempty"`
	PaymentStatus string             `json:"payment_status"`
	Status        string             `json:"status"`
	CashierName   string             `json:"cashier_name,omitempty"`
	CreatedAt     string             `json:"created_at"`
}

type SaleFilter struct {
	LocationID string `form:"location_id"`
	Status     string `form:"status"` // completed | partial_refund | refunded | voided | all
	Date       string `form:"date"`   // YYYY-MM-DD, default today
	Page       int    `form:"page"`
	Limit      int    `form:"limit"`
}

type SaleListResponse struct {
	Data  []SaleResponse `json:"data"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

type RefundItemRequest struct {
	SaleItemID string `json:"sale_item_id" validate:"required,uuid"`
	Quantity   int    `json:"quantity" validate:"required,gt=0"`
}

type RefundSaleRequest struct {
	Items  []RefundItemRequest `json:"items" validate:"required,min=1,dive"`
	Reason string              `json:"reason" validate:"required"`
}

type VoidSaleRequest struct {
	Reason string `json:"reason" validate:"required"`
}
