package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Report kinds.
const (
	ReportSales     = "sales"
	ReportInventory = "inventory"
)

// Report is a cached snapshot of aggregated data — never a source of truth,
// regenerable at any time from sales/products/movements.
type Report struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	BusinessID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	LocationID  *uuid.UUID `gorm:"type:uuid"`
	Kind        string     `gorm:"type:varchar(20);not null;index"`
	PeriodStart time.Time
	PeriodEnd   time.Time
	Payload     json.RawMessage `gorm:"type:jsonb;not null"`
	GeneratedAt time.Time       `gorm:"not null"`
}
