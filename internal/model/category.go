package model

import (
	"time"

	"github.com/google/uuid"
)

// Category classifies products. Names are unique within a business.
type Category struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	BusinessID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_categories_business_name"`
	Name        string    `gorm:"not null;uniqueIndex:idx_categories_business_name"`
	Description *string
	Active      bool `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Category) TableName() string { return "categories" }
