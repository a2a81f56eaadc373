package repository

import (
	"context"
	"time"

	"retailpos/internal/dto"
	"retailpos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ExpenseCategoryRow struct {
	Category string
	Count    int64
	Total    decimal.Decimal
}

type ExpenseRepository interface {
	Create(ctx context.Context, e *model.Expense) error
	FindByID(ctx context.Context, businessID, id uuid.UUID) (*model.Expense, error)
	List(ctx context.Context, businessID uuid.UUID, filter dto.ExpenseFilter) ([]model.Expense, int64, error)
	Update(ctx context.Context, e *model.Expense) error
	Delete(ctx context.Context, businessID, id uuid.UUID) error
	SummaryByCategory(ctx context.Context, businessID uuid.UUID, locationID *uuid.UUID, start, end time.Time) ([]ExpenseCategoryRow, error)
}

type expenseRepo struct{ db *gorm.DB }

func NewExpenseRepository(db *gorm.DB) ExpenseRepository { return &expenseRepo{db: db} }

func (r *expenseRepo) Create(ctx context.Context, e *model.Expense) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *expenseRepo) FindByID(ctx context.Context, businessID, id uuid.UUID) (*model.Expense, error) {
	var e model.Expense
	err := r.db.WithContext(ctx).
		Where("business_id = ?", businessID).
		First(&e, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *expenseRepo) List(ctx context.Context, businessID uuid.UUID, filter dto.ExpenseFilter) ([]model.Expense, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Expense{}).Where("business_id = ?", businessID)

	if filter.LocationID != "" {
		q = q.Where("location_id = ?", filter.LocationID)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Start != "" {
		q = q.Where("incurred_at >= ?", filter.Start)
	}
	if filter.End != "" {
		q = q.Where("incurred_at <= ?", filter.End)
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
	if limit < 1 {
		limit = 50
	}
	offset := (page - 1) * limit

	var expenses []model.Expense
	err := q.Order("incurred_at DESC").Offset(offset).Limit(limit).Find(&expenses).Error
	return expenses, total, err
}

func (r *expenseRepo) Update(ctx context.Context, e *model.Expense) error {
	return r.db.WithContext(ctx).Save(e).Error
}

func (r *expenseRepo) Delete(ctx context.Context, businessID, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("business_id = ? AND id = ?", businessID, id).
		Delete(&model.Expense{}).Error
}

func (r *expenseRepo) SummaryByCategory(ctx context.Context, businessID uuid.UUID, locationID *uuid.UUID, start, end time.Time) ([]ExpenseCategoryRow, error) {
	q := r.db.WithContext(ctx).Model(&model.Expense{}).
		Select("category, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total").
		Where("business_id = ? AND incurred_at >= ? AND incurred_at < ?", businessID, start, end)
	if locationID != nil {
		q = q.Where("location_id = ?", *locationID)
	}

	var rows []ExpenseCategoryRow
	err := q.Group("category").Order("total DESC").Scan(&rows).Error
	return rows, err
}
