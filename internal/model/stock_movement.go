package model

import (
	"time"

	"github.com/google/uuid"
)

// Movement kinds. Outbound kinds store a negative quantity, inbound kinds a
// positive one — summing the signed quantities of a (product, location)
// history reconstructs the snapshot.
const (
	MovementSale       = "sale"
	MovementPurchase   = "purchase"
	MovementAdjustment = "adjustment"
	MovementTransfer   = "transfer"
	MovementReturn     = "return"
	MovementDamage     = "damage"
)

// Reference kinds for the entity that caused a movement.
const (
	RefSale          = "sale"
	RefPurchaseOrder = "purchase_order"
	RefManual        = "manual"
	RefTransfer      = "transfer"
	RefReturn        = "return"
)

// MovementDirection returns the sign (+1/-1) for a movement kind,
// or false for an unknown kind.
func MovementDirection(kind string) (int, bool) {
	switch kind {
	case MovementPurchase, MovementReturn, MovementAdjustment:
		return 1, true
	case MovementSale, MovementDamage, MovementTransfer:
		return -1, true
	default:
		return 0, false
	}
}

// StockMovement is one immutable entry in the append-only stock ledger.
// Rows are never updated or deleted — corrections create inverse entries.
// Invariant: NewStock = PreviousStock + Quantity and NewStock >= 0.
type StockMovement struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	BusinessID uuid.UUID `gorm:"type:uuid;not null;index"`
	ProductID  uuid.UUID `gorm:"type:uuid;not null;index:idx_movements_product_location"`
	LocationID uuid.UUID `gorm:"type:uuid;not null;index:idx_movements_product_location"`
	Kind       string    `gorm:"type:varchar(20);not null;index"`
	// Quantity is signed: negative for sale/damage/transfer, positive otherwise.
	Quantity      int `gorm:"not null"`
	PreviousStock int `gorm:"not null"`
	NewStock      int `gorm:"not null"`
	// ReferenceKind + ReferenceID form a tagged reference to the causing
	// entity (sale, purchase_order, manual, transfer, return).
	ReferenceKind string     `gorm:"type:varchar(20);not null;default:'manual'"`
	ReferenceID   *uuid.UUID `gorm:"type:uuid"`
	// DedupKey makes retried writes detectable: same key = already applied.
	DedupKey  *string   `gorm:"uniqueIndex"`
	UserID    uuid.UUID `gorm:"type:uuid;not null"`
	Note      string
	CreatedAt time.Time

	Product *Product `gorm:"foreignKey:ProductID"`
}

func (StockMovement) TableName() string { return "stock_movements" }
