package service

import (
	"context"
	"fmt"
	"time"

	"retailpos/internal/apierror"
	"retailpos/internal/dto"
	"retailpos/internal/model"
	"retailpos/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ExpenseService interface {
	Create(ctx context.Context, userID uuid.UUID, businessID uuid.UUID, req dto.CreateExpenseRequest) (*dto.ExpenseResponse, error)
	List(ctx context.Context, businessID uuid.UUID, filter dto.ExpenseFilter) (*dto.ExpenseListResponse, error)
	Update(ctx context.Context, businessID, id uuid.UUID, req dto.UpdateExpenseRequest) (*dto.ExpenseResponse, error)
	Delete(ctx context.Context, businessID, id uuid.UUID) error
	Summary(ctx context.Context, businessID uuid.UUID, locationID *uuid.UUID, start, end string) (*dto.ExpenseSummaryResponse, error)
}

type expenseService struct {
	repo repository.ExpenseRepository
}

func NewExpenseService(repo repository.ExpenseRepository) ExpenseService {
	return &expenseService{repo: repo}
}

func (s *expenseService) Create(ctx context.Context, userID uuid.UUID, businessID uuid.UUID, req dto.CreateExpenseRequest) (*dto.ExpenseResponse, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: amount must be positive", apierror.ErrValidation)
	}
	incurredAt, err := time.Parse("2006-01-02", req.IncurredAt)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid incurred_at date", apierror.ErrValidation)
	}

	expense := &model.Expense{
		BusinessID:  businessID,
		Category:    req.Category,
		Description: req.Description,
		Amount:      req.Amount,
		IncurredAt:  incurredAt,
		CreatedBy:   userID,
	}
	if req.LocationID != nil {
		locationID, err := uuid.Parse(*req.LocationID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid location_id", apierror.ErrValidation)
		}
		expense.LocationID = &locationID
	}

	if err := s.repo.Create(ctx, expense); err != nil {
		return nil, storageErr(err)
	}
	return expenseToResponse(expense), nil
}

func (s *expenseService) List(ctx context.Context, businessID uuid.UUID, filter dto.ExpenseFilter) (*dto.ExpenseListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 200 {
		filter.Limit = 50
	}
	expenses, total, err := s.repo.List(ctx, businessID, filter)
	if err != nil {
		return nil, storageErr(err)
	}
	out := make([]dto.ExpenseResponse, 0, len(expenses))
	for i := range expenses {
		out = append(out, *expenseToResponse(&expenses[i]))
	}
	return &dto.ExpenseListResponse{Data: out, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func (s *expenseService) Update(ctx context.Context, businessID, id uuid.UUID, req dto.UpdateExpenseRequest) (*dto.ExpenseResponse, error) {
	expense, err := s.repo.FindByID(ctx, businessID, id)
	if err != nil {
		return nil, storageErr(err)
	}

	if req.Category != nil {
		expense.Category = *req.Category
	}
	if req.Description != nil {
		expense.Description = *req.Description
	}
	if req.Amount != nil {
		if req.Amount.LessThanOrEqual(decimal.Zero) {
			return nil, fmt.Errorf("%w: amount must be positive", apierror.ErrValidation)
		}
		expense.Amount = *req.Amount
	}
	if req.IncurredAt != nil {
		incurredAt, err := time.Parse("2006-01-02", *req.IncurredAt)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid incurred_at date", apierror.ErrValidation)
		}
		expense.IncurredAt = incurredAt
	}

	if err := s.repo.Update(ctx, expense); err != nil {
		return nil, storageErr(err)
	}
	return expenseToResponse(expense), nil
}

func (s *expenseService) Delete(ctx context.Context, businessID, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, businessID, id); err != nil {
		return storageErr(err)
	}
	return s.repo.Delete(ctx, businessID, id)
}

func (s *expenseService) Summary(ctx context.Context, businessID uuid.UUID, locationID *uuid.UUID, start, end string) (*dto.ExpenseSummaryResponse, error) {
	startT, err := time.Parse("2006-01-02", start)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid start date", apierror.ErrValidation)
	}
	endT, err := time.Parse("2006-01-02", end)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid end date", apierror.ErrValidation)
	}
	if endT.Before(startT) {
		return nil, fmt.Errorf("%w: end before start", apierror.ErrValidation)
	}

	rows, err := s.repo.SummaryByCategory(ctx, businessID, locationID, startT, endT.AddDate(0, 0, 1))
	if err != nil {
		return nil, storageErr(err)
	}

	resp := &dto.ExpenseSummaryResponse{Start: start, End: end, Total: decimal.Zero}
	for _, row := range rows {
		resp.Total = resp.Total.Add(row.Total)
		resp.ByCategory = append(resp.ByCategory, dto.ExpenseCategorySummary{
			Category: row.Category,
			Count:    row.Count,
			Total:    row.Total,
		})
	}
	return resp, nil
}

func expenseToResponse(e *model.Expense) *dto.ExpenseResponse {
	resp := &dto.ExpenseResponse{
		ID:          e.ID.String(),
		Category:    e.Category,
		Description: e.Description,
		Amount:      e.Amount,
		IncurredAt:  e.IncurredAt.Format("2006-01-02"),
		CreatedAt:   e.CreatedAt.Format(time.RFC3339),
	}
	if e.LocationID != nil {
		loc := e.LocationID.String()
		resp.LocationID = &loc
	}
	return resp
}
