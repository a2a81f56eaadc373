package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a catalog entry. Per-location quantities live in StockLevel rows
// and are mutated exclusively through the ledger service — the catalog update
// paths never touch them.
type Product struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	BusinessID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_products_business_sku"`
	CategoryID uuid.UUID `gorm:"type:uuid;not null;index"`
	SKU        string    `gorm:"not null;uniqueIndex:idx_products_business_sku"`
	Barcode    string    `gorm:"index;not null"`
	Name       string    `gorm:"index;not null"`
	Description    *string
	RetailPrice    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	WholesalePrice decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	CostPrice      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Unit           string          `gorm:"not null;default:'unit'"`
	Active         bool            `gorm:"not null;default:true"`
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Category *Category    `gorm:"foreignKey:CategoryID"`
	Levels   []StockLevel `gorm:"foreignKey:ProductID"`
}

// StockLevel is the current-quantity snapshot for one (product, location)
// pair. Derived state: it must always equal the sum of signed movement
// quantities for the pair, so it is reconstructible by replaying the ledger.
type StockLevel struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_stock_product_location"`
	LocationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_stock_product_location"`
	Quantity   int       `gorm:"not null;default:0"`
	MinStock   int       `gorm:"not null;default:0"`
	MaxStock   int       `gorm:"not null;default:0"`
	UpdatedAt  time.Time
}

func (StockLevel) TableName() string { return "stock_levels" }
