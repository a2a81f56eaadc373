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
	"github.com/rs/zerolog/log"
)

// planLimit is the resource ceiling for one plan. -1 means unlimited.
type planLimit struct {
	Products  int
	Locations int
	Staff     int
}

var planLimits = map[string]planLimit{
	model.PlanFree:     {Products: 50, Locations: 1, Staff: 3},
	model.PlanStandard: {Products: 500, Locations: 3, Staff: 10},
	model.PlanPremium:  {Products: -1, Locations: -1, Staff: -1},
}

// SubscriptionService tracks plan limits and current usage. Creation paths
// for products, locations, and staff call the Ensure* guards before writing.
type SubscriptionService interface {
	Get(ctx context.Context, businessID uuid.UUID) (*dto.SubscriptionResponse, error)
	Usage(ctx context.Context, businessID uuid.UUID) (*dto.UsageResponse, error)
	ChangePlan(ctx context.Context, businessID uuid.UUID, req dto.ChangePlanRequest) (*dto.SubscriptionResponse, error)
	EnsureCanAddProduct(ctx context.Context, businessID uuid.UUID) error
	EnsureCanAddLocation(ctx context.Context, businessID uuid.UUID) error
	EnsureCanAddStaff(ctx context.Context, businessID uuid.UUID) error
}

type subscriptionService struct {
	repo         repository.SubscriptionRepository
	productRepo  repository.ProductRepository
	businessRepo repository.BusinessRepository
	userRepo     repository.UserRepository
}

func NewSubscriptionService(
	repo repository.SubscriptionRepository,
	productRepo repository.ProductRepository,
	businessRepo repository.BusinessRepository,
	userRepo repository.UserRepository,
) SubscriptionService {
	return &subscriptionService{
		repo:         repo,
		productRepo:  productRepo,
		businessRepo: businessRepo,
		userRepo:     userRepo,
	}
}

func (s *subscriptionService) Get(ctx context.Context, businessID uuid.UUID) (*dto.SubscriptionResponse, error) {
	sub, err := s.repo.FindByBusiness(ctx, businessID)
	if err != nil {
		return nil, storageErr(err)
	}
	return subscriptionToResponse(sub), nil
}

func (s *subscriptionService) Usage(ctx context.Context, businessID uuid.UUID) (*dto.UsageResponse, error) {
	sub, err := s.repo.FindByBusiness(ctx, businessID)
	if err != nil {
		return nil, storageErr(err)
	}
	products, err := s.productRepo.CountActive(ctx, businessID)
	if err != nil {
		return nil, storageErr(err)
	}
	locations, err := s.businessRepo.CountLocations(ctx, businessID)
	if err != nil {
		return nil, storageErr(err)
	}
	staff, err := s.userRepo.CountActive(ctx, businessID)
	if err != nil {
		return nil, storageErr(err)
	}

	return &dto.UsageResponse{
		Plan:         sub.Plan,
		Products:     products,
		MaxProducts:  sub.MaxProducts,
		Locations:    locations,
		MaxLocations: sub.MaxLocations,
		Staff:        staff,
		MaxStaff:     sub.MaxStaff,
	}, nil
}

// ChangePlan switches the plan and applies its limits. Downgrading below
// current usage is allowed: existing resources stay, new creation is blocked
// until usage drops under the new ceiling.
func (s *subscriptionService) ChangePlan(ctx context.Context, businessID uuid.UUID, req dto.ChangePlanRequest) (*dto.SubscriptionResponse, error) {
	limits, ok := planLimits[req.Plan]
	if !ok {
		return nil, fmt.Errorf("%w: unknown plan %q", apierror.ErrValidation, req.Plan)
	}

	sub, err := s.repo.FindByBusiness(ctx, businessID)
	if err != nil {
		return nil, storageErr(err)
	}

	sub.Plan = req.Plan
	sub.MaxProducts = limits.Products
	sub.MaxLocations = limits.Locations
	sub.MaxStaff = limits.Staff
	if req.Plan == model.PlanFree {
		sub.PeriodEnd = nil
	} else {
		end := time.Now().AddDate(0, 1, 0)
		sub.PeriodEnd = &end
	}

	if err := s.repo.Update(ctx, sub); err != nil {
		return nil, storageErr(err)
	}

	log.Info().
		Str("business_id", businessID.String()).
		Str("plan", req.Plan).
		Msg("subscription plan changed")

	return subscriptionToResponse(sub), nil
}

func (s *subscriptionService) EnsureCanAddProduct(ctx context.Context, businessID uuid.UUID) error {
	sub, err := s.repo.FindByBusiness(ctx, businessID)
	if err != nil {
		return storageErr(err)
	}
	if sub.MaxProducts < 0 {
		return nil
	}
	count, err := s.productRepo.CountActive(ctx, businessID)
	if err != nil {
		return storageErr(err)
	}
	if count >= int64(sub.MaxProducts) {
		return fmt.Errorf("%w: plan %s allows %d products", apierror.ErrValidation, sub.Plan, sub.MaxProducts)
	}
	return nil
}

func (s *subscriptionService) EnsureCanAddLocation(ctx context.Context, businessID uuid.UUID) error {
	sub, err := s.repo.FindByBusiness(ctx, businessID)
	if err != nil {
		return storageErr(err)
	}
	if sub.MaxLocations < 0 {
		return nil
	}
	count, err := s.businessRepo.CountLocations(ctx, businessID)
	if err != nil {
		return storageErr(err)
	}
	if count >= int64(sub.MaxLocations) {
		return fmt.Errorf("%w: plan %s allows %d locations", apierror.ErrValidation, sub.Plan, sub.MaxLocations)
	}
	return nil
}

func (s *subscriptionService) EnsureCanAddStaff(ctx context.Context, businessID uuid.UUID) error {
	sub, err := s.repo.FindByBusiness(ctx, businessID)
	if err != nil {
		return storageErr(err)
	}
	if sub.MaxStaff < 0 {
		return nil
	}
	count, err := s.userRepo.CountActive(ctx, businessID)
	if err != nil {
		return storageErr(err)
	}
	if count >= int64(sub.MaxStaff) {
		return fmt.Errorf("%w: plan %s allows %d staff accounts", apierror.ErrValidation, sub.Plan, sub.MaxStaff)
	}
	return nil
}

func subscriptionToResponse(sub *model.Subscription) *dto.SubscriptionResponse {
	resp := &dto.SubscriptionResponse{
		Plan:         sub.Plan,
		Status:       sub.Status,
		MaxProducts:  sub.MaxProducts,
		MaxLocations: sub.MaxLocations,
		MaxStaff:     sub.MaxStaff,
	}
	if sub.PeriodEnd != nil {
		end := sub.PeriodEnd.Format(time.RFC3339)
		resp.PeriodEnd = &end
	}
	return resp
}
