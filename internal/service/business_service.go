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
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type BusinessService interface {
	// Register bootstraps a tenant: business, first location, admin account,
	// and free-plan subscription, all in one transaction.
	Register(ctx context.Context, req dto.RegisterBusinessRequest) (*dto.BusinessResponse, error)
	Get(ctx context.Context, businessID uuid.UUID) (*dto.BusinessResponse, error)
	CreateLocation(ctx context.Context, businessID uuid.UUID, req dto.CreateLocationRequest) (*dto.LocationResponse, error)
	ListLocations(ctx context.Context, businessID uuid.UUID) ([]dto.LocationResponse, error)
	UpdateLocation(ctx context.Context, businessID, id uuid.UUID, req dto.UpdateLocationRequest) (*dto.LocationResponse, error)
}

type businessService struct {
	repo             repository.BusinessRepository
	userRepo         repository.UserRepository
	subscriptionRepo repository.SubscriptionRepository
	subscriptions    SubscriptionService
}

func NewBusinessService(
	repo repository.BusinessRepository,
	userRepo repository.UserRepository,
	subscriptionRepo repository.SubscriptionRepository,
	subscriptions SubscriptionService,
) BusinessService {
	return &businessService{
		repo:             repo,
		userRepo:         userRepo,
		subscriptionRepo: subscriptionRepo,
		subscriptions:    subscriptions,
	}
}

func (s *businessService) Register(ctx context.Context, req dto.RegisterBusinessRequest) (*dto.BusinessResponse, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.AdminPassword), bcryptCost)
	if err != nil {
		return nil, err
	}

	business := &model.Business{
		Name:   req.Name,
		Phone:  req.Phone,
		Email:  req.Email,
		Active: true,
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.CreateTx(tx, business); err != nil {
			return storageErr(err)
		}

		location := &model.Location{
			BusinessID: business.ID,
			Name:       req.LocationName,
			Active:     true,
		}
		if err := s.repo.CreateLocationTx(tx, location); err != nil {
			return storageErr(err)
		}

		admin := &model.User{
			BusinessID:   business.ID,
			Username:     req.AdminUsername,
			Name:         req.AdminName,
			PasswordHash: string(hash),
			Role:         "admin",
			Active:       true,
		}
		if err := s.userRepo.CreateTx(tx, admin); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: username %q already taken", apierror.ErrConflict, req.AdminUsername)
			}
			return storageErr(err)
		}

		limits := planLimits[model.PlanFree]
		sub := &model.Subscription{
			BusinessID:   business.ID,
			Plan:         model.PlanFree,
			Status:       "active",
			MaxProducts:  limits.Products,
			MaxLocations: limits.Locations,
			MaxStaff:     limits.Staff,
		}
		if err := s.subscriptionRepo.CreateTx(tx, sub); err != nil {
			return storageErr(err)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	log.Info().
		Str("business_id", business.ID.String()).
		Str("name", business.Name).
		Msg("business registered")

	return s.Get(ctx, business.ID)
}

func (s *businessService) Get(ctx context.Context, businessID uuid.UUID) (*dto.BusinessResponse, error) {
	business, err := s.repo.FindByID(ctx, businessID)
	if err != nil {
		return nil, storageErr(err)
	}
	return businessToResponse(business), nil
}

func (s *businessService) CreateLocation(ctx context.Context, businessID uuid.UUID, req dto.CreateLocationRequest) (*dto.LocationResponse, error) {
	if err := s.subscriptions.EnsureCanAddLocation(ctx, businessID); err != nil {
		return nil, err
	}

	location := &model.Location{
		BusinessID: businessID,
		Name:       req.Name,
		Address:    req.Address,
		Active:     true,
	}
	if err := s.repo.CreateLocation(ctx, location); err != nil {
		return nil, storageErr(err)
	}
	return locationToResponse(location), nil
}

func (s *businessService) ListLocations(ctx context.Context, businessID uuid.UUID) ([]dto.LocationResponse, error) {
	locations, err := s.repo.ListLocations(ctx, businessID)
	if err != nil {
		return nil, storageErr(err)
	}
	out := make([]dto.LocationResponse, len(locations))
	for i := range locations {
		out[i] = *locationToResponse(&locations[i])
	}
	return out, nil
}

func (s *businessService) UpdateLocation(ctx context.Context, businessID, id uuid.UUID, req dto.UpdateLocationRequest) (*dto.LocationResponse, error) {
	location, err := s.repo.FindLocation(ctx, businessID, id)
	if err != nil {
		return nil, storageErr(err)
	}
	if req.Name != nil {
		location.Name = *req.Name
	}
	if req.Address != nil {
		location.Address = req.Address
	}
	if err := s.repo.UpdateLocation(ctx, location); err != nil {
		return nil, storageErr(err)
	}
	return locationToResponse(location), nil
}

func businessToResponse(b *model.Business) *dto.BusinessResponse {
	resp := &dto.BusinessResponse{
		ID:     b.ID.String(),
		Name:   b.Name,
		Phone:  b.Phone,
		Email:  b.Email,
		Active: b.Active,
	}
	for i := range b.Locations {
		resp.Locations = append(resp.Locations, *locationToResponse(&b.Locations[i]))
	}
	return resp
}

func locationToResponse(l *model.Location) *dto.LocationResponse {
	return &dto.LocationResponse{
		ID:      l.ID.String(),
		Name:    l.Name,
		Address: l.Address,
		Active:  l.Active,
	}
}
