package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Expense is an operating cost entry (rent, utilities, wages, supplies).
type Expense struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	BusinessID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	LocationID  *uuid.UUID `gorm:"type:uuid;index"`
	Category    string     `gorm:"not null;index"`
	Description string     `gorm:"not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	IncurredAt  time.Time       `gorm:"not null;index"`
	CreatedBy   uuid.UUID       `gorm:"type:uuid;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
