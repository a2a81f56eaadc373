package repository

import (
	"context"

	"retailpos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BusinessRepository interface {
	CreateTx(tx *gorm.DB, b *model.Business) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Business, error)
	CreateLocationTx(tx *gorm.DB, l *model.Location) error
	CreateLocation(ctx context.Context, l *model.Location) error
	FindLocation(ctx context.Context, businessID, id uuid.UUID) (*model.Location, error)
	ListLocations(ctx context.Context, businessID uuid.UUID) ([]model.Location, error)
	UpdateLocation(ctx context.Context, l *model.Location) error
	CountLocations(ctx context.Context, businessID uuid.UUID) (int64, error)
	DB() *gorm.DB
}

type businessRepo struct{ db *gorm.DB }

func NewBusinessRepository(db *gorm.DB) BusinessRepository { return &businessRepo{db: db} }

func (r *businessRepo) DB() *gorm.DB { return r.db }

func (r *businessRepo) CreateTx(tx *gorm.DB, b *model.Business) error {
	return tx.Create(b).Error
}

func (r *businessRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Business, error) {
	var b model.Business
	err := r.db.WithContext(ctx).Preload("Locations").First(&b, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *businessRepo) CreateLocationTx(tx *gorm.DB, l *model.Location) error {
	return tx.Create(l).Error
}

func (r *businessRepo) CreateLocation(ctx context.Context, l *model.Location) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *businessRepo) FindLocation(ctx context.Context, businessID, id uuid.UUID) (*model.Location, error) {
	var l model.Location
	err := r.db.WithContext(ctx).
		Where("business_id = ?", businessID).
		First(&l, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *businessRepo) ListLocations(ctx context.Context, businessID uuid.UUID) ([]model.Location, error) {
	var locations []model.Location
	err := r.db.WithContext(ctx).
		Where("business_id = ?", businessID).
		Order("name ASC").
		Find(&locations).Error
	return locations, err
}

func (r *businessRepo) UpdateLocation(ctx context.Context, l *model.Location) error {
	return r.db.WithContext(ctx).Save(l).Error
}

func (r *businessRepo) CountLocations(ctx context.Context, businessID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Location{}).
		Where("business_id = ? AND active = true", businessID).
		Count(&n).Error
	return n, err
}
