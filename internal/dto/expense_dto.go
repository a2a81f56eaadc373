package dto

import "github.com/shopspring/decimal"

type CreateExpenseRequest struct {
	LocationID  *string         `json:"location_id" validate:"omitempty,uuid"`
	Category    string          `json:"category" validate:"required"`
	Description string          `json:"description" validate:"required"`
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	IncurredAt  string          `json:"incurred_at" validate:"required"` // YYYY-MM-DD
}

type UpdateExpenseRequest struct {
	Category    *string          `json:"category"`
	Description *string          `json:"description"`
	Amount      *decimal.Decimal `json:"amount"`
	IncurredAt  *string          `json:"incurred_at"`
}

type ExpenseResponse struct {
	ID          string          `json:"id"`
	LocationID  *string         `json:"location_id,omitempty"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	IncurredAt  string          `json:"incurred_at"`
	CreatedAt   string          `json:"created_at"`
}

type ExpenseFilter struct {
	LocationID string `form:"location_id"`
	Category   string `form:"category"`
	Start      string `form:"start"`
	End        string `form:"end"`
	Page       int    `form:"page"`
	Limit      int    `form:"limit"`
}

type ExpenseListResponse struct {
	Data  []ExpenseResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

type ExpenseCategorySummary struct {
	Category string          `json:"category"`
	Count    int64           `json:"count"`
	Total    decimal.Decimal `json:"total"`
}

type ExpenseSummaryResponse struct {
	Start      string                   `json:"start"`
	End        string                   `json:"end"`
	Total      decimal.Decimal          `json:"total"`
	ByCategory []ExpenseCategorySummary `json:"by_category"`
}
