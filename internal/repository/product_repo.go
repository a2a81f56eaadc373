package repository

import (
	"context"

	"retailpos/internal/dto"
	"retailpos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductRepository defines the data access contract for products and their
// per-location stock snapshots. Services depend on this interface, not on the
// concrete GORM implementation, enabling clean unit testing via stubs.
type ProductRepository interface {
	Create(ctx context.Context, p *model.Product) error
	FindByID(ctx context.Context, businessID, id uuid.UUID) (*model.Product, error)
	FindByBarcode(ctx context.Context, businessID uuid.UUID, barcode string) (*model.Product, error)
	List(ctx context.Context, businessID uuid.UUID, filter dto.ProductFilter) ([]model.Product, int64, error)
	Update(ctx context.Context, p *model.Product) error
	SoftDelete(ctx context.Context, businessID, id uuid.UUID) error
	Reactivate(ctx context.Context, businessID, id uuid.UUID) error
	CountActive(ctx context.Context, businessID uuid.UUID) (int64, error)

	// Ledger support — callers must pass the live tx instance.
	FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Product, error)
	// StockLevelForUpdateTx locks the snapshot row (SELECT … FOR UPDATE) so
	// concurrent movements on the same (product, location) serialize.
	// Returns nil (no error) when no snapshot exists yet.
	StockLevelForUpdateTx(tx *gorm.DB, productID, locationID uuid.UUID) (*model.StockLevel, error)
	SaveStockLevelTx(tx *gorm.DB, level *model.StockLevel) error

	LevelsByProduct(ctx context.Context, productID uuid.UUID) ([]model.StockLevel, error)
	LowStock(ctx context.Context, businessID uuid.UUID, locationID *uuid.UUID) ([]dto.StockAlertResponse, error)
	UpdateLevelThresholds(ctx context.Context, productID, locationID uuid.UUID, minStock, maxStock *int) error

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type productRepo struct{ db *gorm.DB }

func NewProductRepository(db *gorm.DB) ProductRepository { return &productRepo{db: db} }

func (r *productRepo) Create(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *productRepo) FindByID(ctx context.Context, businessID, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).
		Preload("Category").Preload("Levels").
		Where("business_id = ?", businessID).
		First(&p, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) FindByBarcode(ctx context.Context, businessID uuid.UUID, barcode string) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND barcode = ? AND active = true", businessID, barcode).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) List(ctx context.Context, businessID uuid.UUID, filter dto.ProductFilter) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Product{}).Where("business_id = ?", businessID)

	// Active filter: "false" = inactive, "all" = everything, default = active only
	switch filter.Active {
	case "false":
		q = q.Where("active = false")
	case "all":
		// no filter
	default:
		q = q.Where("active = true")
	}

	if filter.Barcode != "" {
		q = q.Where("barcode = ?", filter.Barcode)
	}
	if filter.Name != "" {
		q = q.Where("name ILIKE ?", "%"+filter.Name+"%")
	}
	if filter.CategoryID != "" {
		q = q.Where("category_id = ?", filter.CategoryID)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	err := q.Preload("Category").Preload("Levels").
		Order("name ASC").Limit(filter.Limit).Offset(offset).
		Find(&products).Error
	return products, total, err
}

func (r *productRepo) Update(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).Omit("Levels", "Category").Save(p).Error
}

func (r *productRepo) SoftDelete(ctx context.Context, businessID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Product{}).
		Where("business_id = ? AND id = ?", businessID, id).
		Update("active", false).Error
}

func (r *productRepo) Reactivate(ctx context.Context, businessID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Product{}).
		Where("business_id = ? AND id = ?", businessID, id).
		Update("active", true).Error
}

func (r *productRepo) CountActive(ctx context.Context, businessID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("business_id = ? AND active = true", businessID).
		Count(&n).Error
	return n, err
}

func (r *productRepo) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	if err := tx.First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) StockLevelForUpdateTx(tx *gorm.DB, productID, locationID uuid.UUID) (*model.StockLevel, error) {
	var level model.StockLevel
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ? AND location_id = ?", productID, locationID).
		First(&level).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &level, nil
}

func (r *productRepo) SaveStockLevelTx(tx *gorm.DB, level *model.StockLevel) error {
	return tx.Save(level).Error
}

func (r *productRepo) LevelsByProduct(ctx context.Context, productID uuid.UUID) ([]model.StockLevel, error) {
	var levels []model.StockLevel
	err := r.db.WithContext(ctx).Where("product_id = ?", productID).Find(&levels).Error
	return levels, err
}

// LowStock returns active products whose snapshot quantity is at or below the
// configured minimum (inclusive).
func (r *productRepo) LowStock(ctx context.Context, businessID uuid.UUID, locationID *uuid.UUID) ([]dto.StockAlertResponse, error) {
	q := r.db.WithContext(ctx).
		Table("stock_levels l").
		Select("p.id AS product_id, p.name AS product_name, p.sku, l.location_id, l.quantity, l.min_stock").
		Joins("JOIN products p ON p.id = l.product_id").
		Where("p.business_id = ? AND p.active = true AND l.quantity <= l.min_stock", businessID)
	if locationID != nil {
		q = q.Where("l.location_id = ?", *locationID)
	}

	var alerts []dto.StockAlertResponse
	err := q.Order("l.quantity ASC").Scan(&alerts).Error
	return alerts, err
}

func (r *productRepo) UpdateLevelThresholds(ctx context.Context, productID, locationID uuid.UUID, minStock, maxStock *int) error {
	updates := map[string]interface{}{}
	if minStock != nil {
		updates["min_stock"] = *minStock
	}
	if maxStock != nil {
		updates["max_stock"] = *maxStock
	}
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&model.StockLevel{}).
		Where("product_id = ? AND location_id = ?", productID, locationID).
		Updates(updates).Error
}

func (r *productRepo) DB() *gorm.DB { return r.db }
