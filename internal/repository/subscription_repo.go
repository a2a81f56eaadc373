package repository

import (
	"context"

	"retailpos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SubscriptionRepository interface {
	CreateTx(tx *gorm.DB, s *model.Subscription) error
	FindByBusiness(ctx context.Context, businessID uuid.UUID) (*model.Subscription, error)
	Update(ctx context.Context, s *model.Subscription) error
}

type subscriptionRepo struct{ db *gorm.DB }

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepo{db: db}
}

func (r *subscriptionRepo) CreateTx(tx *gorm.DB, s *model.Subscription) error {
	return tx.Create(s).Error
}

func (r *subscriptionRepo) FindByBusiness(ctx context.Context, businessID uuid.UUID) (*model.Subscription, error) {
	var s model.Subscription
	err := r.db.WithContext(ctx).Where("business_id = ?", businessID).First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *subscriptionRepo) Update(ctx context.Context, s *model.Subscription) error {
	return r.db.WithContext(ctx).Save(s).Error
}
