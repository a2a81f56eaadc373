package model

import (
	"time"

	"github.com/google/uuid"
)

// Business is the tenant root. Every catalog, sale, and ledger row is scoped
// to exactly one business.
type Business struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string    `gorm:"not null"`
	Phone     *string
	Email     *string
	Active    bool `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Locations []Location `gorm:"foreignKey:BusinessID"`
}

func (Business) TableName() string { return "businesses" }

// Location is a single physical sales point within a business (a "shop").
type Location struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	BusinessID uuid.UUID `gorm:"type:uuid;not null;index"`
	Name       string    `gorm:"not null"`
	Address    *string
	Active     bool `gorm:"not null;default:true"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
