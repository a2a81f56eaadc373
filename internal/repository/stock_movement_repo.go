package repository

import (
	"context"

	"retailpos/internal/dto"
	"retailpos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StockMovementRepository interface {
	CreateTx(tx *gorm.DB, m *model.StockMovement) error
	// FindByDedupKeyTx returns nil (no error) when the key has not been used.
	FindByDedupKeyTx(tx *gorm.DB, key string) (*model.StockMovement, error)
	List(ctx context.Context, businessID uuid.UUID, filter dto.MovementFilter) ([]model.StockMovement, int64, error)
	// SumQuantity returns the signed-quantity sum for a (product, location)
	// pair — the ledger-replay value the snapshot must equal.
	SumQuantity(ctx context.Context, productID, locationID uuid.UUID) (int, error)
}

type stockMovementRepo struct{ db *gorm.DB }

func NewStockMovementRepository(db *gorm.DB) StockMovementRepository {
	return &stockMovementRepo{db: db}
}

func (r *stockMovementRepo) CreateTx(tx *gorm.DB, m *model.StockMovement) error {
	return tx.Create(m).Error
}

func (r *stockMovementRepo) FindByDedupKeyTx(tx *gorm.DB, key string) (*model.StockMovement, error) {
	var m model.StockMovement
	err := tx.Where("dedup_key = ?", key).First(&m).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *stockMovementRepo) List(ctx context.Context, businessID uuid.UUID, filter dto.MovementFilter) ([]model.StockMovement, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.StockMovement{}).
		Preload("Product").
		Where("business_id = ?", businessID)
	if filter.ProductID != "" {
		q = q.Where("product_id = ?", filter.ProductID)
	}
	if filter.LocationID != "" {
		q = q.Where("location_id = ?", filter.LocationID)
	}
	if filter.Kind != "" {
		q = q.Where("kind = ?", filter.Kind)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	limit := filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 100
	}
	offset := (page - 1) * limit

	var movements []model.StockMovement
	err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&movements).Error
	return movements, total, err
}

func (r *stockMovementRepo) SumQuantity(ctx context.Context, productID, locationID uuid.UUID) (int, error) {
	var sum int
	err := r.db.WithContext(ctx).Model(&model.StockMovement{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("product_id = ? AND location_id = ?", productID, locationID).
		Scan(&sum).Error
	return sum, err
}
