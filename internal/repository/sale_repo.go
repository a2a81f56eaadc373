package repository

import (
	"context"

	"retailpos/internal/dto"
	"retailpos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SaleRepository interface {
	CreateTx(tx *gorm.DB, s *model.Sale) error
	UpdateTx(tx *gorm.DB, s *model.Sale) error
	FindByID(ctx context.Context, businessID, id uuid.UUID) (*model.Sale, error)
	// FindAny looks a sale up without tenant scoping. Worker-only: jobs carry
	// just the sale id.
	FindAny(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	UpdateItemTx(tx *gorm.DB, item *model.SaleItem) error
	// MaxNumberTx returns the lexicographically greatest sale number for the
	// location and day prefix, or "" when none exists yet.
	MaxNumberTx(tx *gorm.DB, locationID uuid.UUID, prefix string) (string, error)
	List(ctx context.Context, businessID uuid.UUID, filter dto.SaleFilter) ([]model.Sale, int64, error)
	DB() *gorm.DB // exposes the DB for transaction creation in the service layer
}

type saleRepo struct{ db *gorm.DB }

func NewSaleRepository(db *gorm.DB) SaleRepository { return &saleRepo{db: db} }

func (r *saleRepo) DB() *gorm.DB { return r.db }

func (r *saleRepo) CreateTx(tx *gorm.DB, s *model.Sale) error {
	return tx.Create(s).Error
}

func (r *saleRepo) UpdateTx(tx *gorm.DB, s *model.Sale) error {
	return tx.Omit("Items", "Payments", "User").Save(s).Error
}

func (r *saleRepo) UpdateItemTx(tx *gorm.DB, item *model.SaleItem) error {
	return tx.Save(item).Error
}

func (r *saleRepo) FindByID(ctx context.Context, businessID, id uuid.UUID) (*model.Sale, error) {
	var s model.Sale
	err := r.db.WithContext(ctx).
		Preload("Items").Preload("Payments").Preload("User").
		Where("business_id = ?", businessID).
		First(&s, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *saleRepo) FindAny(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	var s model.Sale
	err := r.db.WithContext(ctx).
		Preload("Items").Preload("Payments").
		First(&s, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *saleRepo) MaxNumberTx(tx *gorm.DB, locationID uuid.UUID, prefix string) (string, error) {
	var number string
	err := tx.Model(&model.Sale{}).
		Select("number").
		Where("location_id = ? AND number LIKE ?", locationID, prefix+"-%").
		Order("number DESC").
		Limit(1).
		Scan(&number).Error
	return number, err
}

func (r *saleRepo) List(ctx context.Context, businessID uuid.UUID, filter dto.SaleFilter) ([]model.Sale, int64, error) {
	var sales []model.Sale
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Sale{}).Where("business_id = ?", businessID)

	if filter.LocationID != "" {
		q = q.Where("location_id = ?", filter.LocationID)
	}
	if filter.Status != "" && filter.Status != "all" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Date != "" {
		q = q.Where("DATE(created_at) = ?", filter.Date)
	} else {
		// Default: today
		q = q.Where("DATE(created_at) = CURRENT_DATE")
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	err := q.Preload("Items").Preload("Payments").Preload("User").
		Order("created_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&sales).Error

	return sales, total, err
}
