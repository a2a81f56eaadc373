package model

import (
	"time"

	"github.com/google/uuid"
)

// Subscription plans and their resource limits. Billing against a payment
// provider happens elsewhere; this record only drives usage accounting.
const (
	PlanFree     = "free"
	PlanStandard = "standard"
	PlanPremium  = "premium"
)

// Subscription holds the plan and limits for one business.
// Status: "active" | "past_due" | "canceled"
type Subscription struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	BusinessID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	Plan         string    `gorm:"type:varchar(20);not null;default:'free'"`
	Status       string    `gorm:"type:varchar(20);not null;default:'active'"`
	MaxProducts  int       `gorm:"not null;default:50"`
	MaxLocations int       `gorm:"not null;default:1"`
	MaxStaff     int       `gorm:"not null;default:3"`
	PeriodEnd    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
