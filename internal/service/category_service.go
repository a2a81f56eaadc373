package service

import (
	"context"
	"errors"
	"fmt"

	"retailpos/internal/apierror"
	"retailpos/internal/dto"
	"retailpos/internal/model"
	"retailpos/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CategoryService interface {
	Create(ctx context.Context, businessID uuid.UUID, req dto.CreateCategoryRequest) (*dto.CategoryResponse, error)
	List(ctx context.Context, businessID uuid.UUID) ([]dto.CategoryResponse, error)
	Update(ctx context.Context, businessID, id uuid.UUID, req dto.UpdateCategoryRequest) (*dto.CategoryResponse, error)
	Deactivate(ctx context.Context, businessID, id uuid.UUID) error
}

type categoryService struct {
	repo repository.CategoryRepository
}

func NewCategoryService(repo repository.CategoryRepository) CategoryService {
	return &categoryService{repo: repo}
}

func (s *categoryService) Create(ctx context.Context, businessID uuid.UUID, req dto.CreateCategoryRequest) (*dto.CategoryResponse, error) {
	category := &model.Category{
		BusinessID:  businessID,
		Name:        req.Name,
		Description: req.Description,
		Active:      true,
	}
	if err := s.repo.Create(ctx, category); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: category %q already exists", apierror.ErrConflict, req.Name)
		}
		return nil, storageErr(err)
	}
	return categoryToResponse(category), nil
}

func (s *categoryService) List(ctx context.Context, businessID uuid.UUID) ([]dto.CategoryResponse, error) {
	categories, err := s.repo.List(ctx, businessID)
	if err != nil {
		return nil, storageErr(err)
	}
	out := make([]dto.CategoryResponse, 0, len(categories))
	for i := range categories {
		out = append(out, *categoryToResponse(&categories[i]))
	}
	return out, nil
}

func (s *categoryService) Update(ctx context.Context, businessID, id uuid.UUID, req dto.UpdateCategoryRequest) (*dto.CategoryResponse, error) {
	category, err := s.repo.FindByID(ctx, businessID, id)
	if err != nil {
		return nil, storageErr(err)
	}
	if req.Name != nil {
		category.Name = *req.Name
	}
	if req.Description != nil {
		category.Description = req.Description
	}
	if err := s.repo.Update(ctx, category); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: category name already in use", apierror.ErrConflict)
		}
		return nil, storageErr(err)
	}
	return categoryToResponse(category), nil
}

func (s *categoryService) Deactivate(ctx context.Context, businessID, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, businessID, id); err != nil {
		return storageErr(err)
	}
	return s.repo.SoftDelete(ctx, businessID, id)
}

func categoryToResponse(c *model.Category) *dto.CategoryResponse {
	return &dto.CategoryResponse{
		ID:          c.ID.String(),
		Name:        c.Name,
		Description: c.Description,
		Active:      c.Active,
	}
}
