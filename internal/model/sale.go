package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sale statuses.
const (
	SaleCompleted     = "completed"
	SalePartialRefund = "partial_refund"
	SaleRefunded      = "refunded"
	SaleVoided        = "voided"
)

// Sale is a completed transaction. Number is the human-readable sequential
// identifier "YYYYMMDD-NNNN", unique per location and reset daily; the
// composite unique index is the guard behind the numbering retry loop.
// Invariant (enforced by the sale service): Total = Subtotal + Tax - Discount.
type Sale struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	BusinessID uuid.UUID `gorm:"type:uuid;not null;index"`
	LocationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_sales_location_number"`
	Number     string    `gorm:"not null;uniqueIndex:idx_sales_location_number"`
	UserID     uuid.UUID `gorm:"type:uuid;not null"`
	// Customer fields are denormalized; the distinct-customer report counts
	// non-empty phones.
	CustomerName  *string
	CustomerPhone *string         `gorm:"index"`
	Subtotal      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Tax           decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Discount      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Total         decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	RefundedTotal decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	PaymentStatus string          `gorm:"type:varchar(20);not null;default:'paid'"`
	Status        string          `gorm:"type:varchar(20);not null;default:'completed';index"`
	Note          *string
	CreatedAt     time.Time `gorm:"index"`
	UpdatedAt     time.Time

	Items    []SaleItem    `gorm:"foreignKey:SaleID"`
	Payments []SalePayment `gorm:"foreignKey:SaleID"`
	User     *User         `gorm:"foreignKey:UserID"`
}

// SaleItem is a line item with the product snapshot denormalized at sale
// time, so later catalog edits never alter historical receipts.
type SaleItem struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SaleID      uuid.UUID `gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID `gorm:"type:uuid;not null;index"`
	ProductName string    `gorm:"not null"`
	SKU         string    `gorm:"not null"`
	Quantity    int       `gorm:"not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Total       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	RefundedQty int             `gorm:"not null;default:0"`
}

// SalePayment records one payment leg (a sale may split across methods).
// Method: "cash" | "card" | "transfer" | "mobile"
type SalePayment struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SaleID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Method    string          `gorm:"type:varchar(20);not null"`
	Amount    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreatedAt time.Time
}
