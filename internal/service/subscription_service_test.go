package service_test

import (
	"context"
	"testing"

	"retailpos/internal/apierror"
	"retailpos/internal/dto"
	"retailpos/internal/model"
	"retailpos/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ── Stubs ────────────────────────────────────────────────────────────────────

type stubSubscriptionRepo struct {
	subs map[uuid.UUID]*model.Subscription
}

func newStubSubscriptionRepo() *stubSubscriptionRepo {
	return &stubSubscriptionRepo{subs: make(map[uuid.UUID]*model.Subscription)}
}

func (r *stubSubscriptionRepo) CreateTx(_ *gorm.DB, s *model.Subscription) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	r.subs[s.BusinessID] = s
	return nil
}

func (r *stubSubscriptionRepo) FindByBusiness(_ context.Context, businessID uuid.UUID) (*model.Subscription, error) {
	s, ok := r.subs[businessID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return s, nil
}

func (r *stubSubscriptionRepo) Update(_ context.Context, s *model.Subscription) error {
	r.subs[s.BusinessID] = s
	return nil
}

type stubUserRepo struct {
	users map[uuid.UUID]*model.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[uuid.UUID]*model.User)}
}

func (r *stubUserRepo) Create(_ context.Context, u *model.User) error {
	for _, existing := range r.users {
		if existing.Username == u.Username {
			return gorm.ErrDuplicatedKey
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	r.users[u.ID] = u
	return nil
}

func (r *stubUserRepo) CreateTx(tx *gorm.DB, u *model.User) error {
	return r.Create(context.Background(), u)
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range r.users {
		if u.Username == username && u.Active {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubUserRepo) FindByID(_ context.Context, businessID, id uuid.UUID) (*model.User, error) {
	u, ok := r.users[id]
	if !ok || u.BusinessID != businessID {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (r *stubUserRepo) List(_ context.Context, businessID uuid.UUID) ([]model.User, error) {
	var out []model.User
	for _, u := range r.users {
		if u.BusinessID == businessID {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *stubUserRepo) Update(_ context.Context, u *model.User) error {
	r.users[u.ID] = u
	return nil
}

func (r *stubUserRepo) SoftDelete(_ context.Context, businessID, id uuid.UUID) error {
	if u, ok := r.users[id]; ok && u.BusinessID == businessID {
		u.Active = false
	}
	return nil
}

func (r *stubUserRepo) Reactivate(_ context.Context, businessID, id uuid.UUID) error {
	if u, ok := r.users[id]; ok && u.BusinessID == businessID {
		u.Active = true
	}
	return nil
}

func (r *stubUserRepo) CountActive(_ context.Context, businessID uuid.UUID) (int64, error) {
	var n int64
	for _, u := range r.users {
		if u.BusinessID == businessID && u.Active {
			n++
		}
	}
	return n, nil
}

type stubBusinessRepo struct {
	businesses map[uuid.UUID]*model.Business
	locations  map[uuid.UUID]*model.Location
}

func newStubBusinessRepo() *stubBusinessRepo {
	return &stubBusinessRepo{
		businesses: make(map[uuid.UUID]*model.Business),
		locations:  make(map[uuid.UUID]*model.Location),
	}
}

func (r *stubBusinessRepo) CreateTx(_ *gorm.DB, b *model.Business) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	r.businesses[b.ID] = b
	return nil
}

func (r *stubBusinessRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Business, error) {
	b, ok := r.businesses[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *b
	cp.Locations = nil
	for _, l := range r.locations {
		if l.BusinessID == id {
			cp.Locations = append(cp.Locations, *l)
		}
	}
	return &cp, nil
}

func (r *stubBusinessRepo) CreateLocationTx(_ *gorm.DB, l *model.Location) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	r.locations[l.ID] = l
	return nil
}

func (r *stubBusinessRepo) CreateLocation(_ context.Context, l *model.Location) error {
	return r.CreateLocationTx(nil, l)
}

func (r *stubBusinessRepo) FindLocation(_ context.Context, businessID, id uuid.UUID) (*model.Location, error) {
	l, ok := r.locations[id]
	if !ok || l.BusinessID != businessID {
		return nil, gorm.ErrRecordNotFound
	}
	return l, nil
}

func (r *stubBusinessRepo) ListLocations(_ context.Context, businessID uuid.UUID) ([]model.Location, error) {
	var out []model.Location
	for _, l := range r.locations {
		if l.BusinessID == businessID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (r *stubBusinessRepo) UpdateLocation(_ context.Context, l *model.Location) error {
	r.locations[l.ID] = l
	return nil
}

func (r *stubBusinessRepo) CountLocations(_ context.Context, businessID uuid.UUID) (int64, error) {
	var n int64
	for _, l := range r.locations {
		if l.BusinessID == businessID && l.Active {
			n++
		}
	}
	return n, nil
}

func (r *stubBusinessRepo) DB() *gorm.DB { return nil }

// ── Fixture ──────────────────────────────────────────────────────────────────

type subscriptionFixture struct {
	svc          service.SubscriptionService
	subs         *stubSubscriptionRepo
	products     *stubProductRepo
	businessRepo *stubBusinessRepo
	users        *stubUserRepo
	businessID   uuid.UUID
}

func newSubscriptionFixture(plan string, maxProducts, maxLocations, maxStaff int) *subscriptionFixture {
	f := &subscriptionFixture{
		subs:         newStubSubscriptionRepo(),
		products:     newStubProductRepo(),
		businessRepo: newStubBusinessRepo(),
		users:        newStubUserRepo(),
		businessID:   uuid.New(),
	}
	f.svc = service.NewSubscriptionService(f.subs, f.products, f.businessRepo, f.users)
	f.subs.subs[f.businessID] = &model.Subscription{
		ID:           uuid.New(),
		BusinessID:   f.businessID,
		Plan:         plan,
		Status:       "active",
		MaxProducts:  maxProducts,
		MaxLocations: maxLocations,
		MaxStaff:     maxStaff,
	}
	return f
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestEnsureCanAddProductEnforcesLimit(t *testing.T) {
	f := newSubscriptionFixture(model.PlanFree, 2, 1, 3)

	require.NoError(t, f.svc.EnsureCanAddProduct(context.Background(), f.businessID))

	f.products.addProduct(f.businessID, "A", "1.00", true)
	require.NoError(t, f.svc.EnsureCanAddProduct(context.Background(), f.businessID))

	f.products.addProduct(f.businessID, "B", "1.00", true)
	err := f.svc.EnsureCanAddProduct(context.Background(), f.businessID)
	assert.ErrorIs(t, err, apierror.ErrValidation)

	// Inactive products don't count toward the ceiling.
	f.products.addProduct(f.businessID, "C", "1.00", false)
	err = f.svc.EnsureCanAddProduct(context.Background(), f.businessID)
	assert.ErrorIs(t, err, apierror.ErrValidation)
}

func TestEnsureCanAddUnlimitedPlan(t *testing.T) {
	f := newSubscriptionFixture(model.PlanPremium, -1, -1, -1)

	for i := 0; i < 100; i++ {
		f.products.addProduct(f.businessID, "P", "1.00", true)
	}
	assert.NoError(t, f.svc.EnsureCanAddProduct(context.Background(), f.businessID))
	assert.NoError(t, f.svc.EnsureCanAddLocation(context.Background(), f.businessID))
	assert.NoError(t, f.svc.EnsureCanAddStaff(context.Background(), f.businessID))
}

func TestEnsureCanAddLocationEnforcesLimit(t *testing.T) {
	f := newSubscriptionFixture(model.PlanFree, 50, 1, 3)

	require.NoError(t, f.svc.EnsureCanAddLocation(context.Background(), f.businessID))

	require.NoError(t, f.businessRepo.CreateLocation(context.Background(), &model.Location{
		BusinessID: f.businessID, Name: "Main", Active: true,
	}))
	err := f.svc.EnsureCanAddLocation(context.Background(), f.businessID)
	assert.ErrorIs(t, err, apierror.ErrValidation)
}

func TestEnsureCanAddStaffEnforcesLimit(t *testing.T) {
	f := newSubscriptionFixture(model.PlanFree, 50, 1, 1)

	require.NoError(t, f.svc.EnsureCanAddStaff(context.Background(), f.businessID))

	require.NoError(t, f.users.Create(context.Background(), &model.User{
		BusinessID: f.businessID, Username: "admin", Role: "admin", Active: true,
	}))
	err := f.svc.EnsureCanAddStaff(context.Background(), f.businessID)
	assert.ErrorIs(t, err, apierror.ErrValidation)
}

func TestChangePlanAppliesLimits(t *testing.T) {
	f := newSubscriptionFixture(model.PlanFree, 50, 1, 3)

	resp, err := f.svc.ChangePlan(context.Background(), f.businessID, dto.ChangePlanRequest{Plan: model.PlanStandard})
	require.NoError(t, err)
	assert.Equal(t, model.PlanStandard, resp.Plan)
	assert.Equal(t, 500, resp.MaxProducts)
	assert.Equal(t, 3, resp.MaxLocations)
	assert.Equal(t, 10, resp.MaxStaff)
	assert.NotNil(t, resp.PeriodEnd)

	// Back to free clears the billing period.
	resp, err = f.svc.ChangePlan(context.Background(), f.businessID, dto.ChangePlanRequest{Plan: model.PlanFree})
	require.NoError(t, err)
	assert.Nil(t, resp.PeriodEnd)

	_, err = f.svc.ChangePlan(context.Background(), f.businessID, dto.ChangePlanRequest{Plan: "platinum"})
	assert.ErrorIs(t, err, apierror.ErrValidation)
}

func TestChangePlanDowngradeKeepsExistingUsage(t *testing.T) {
	f := newSubscriptionFixture(model.PlanStandard, 500, 3, 10)
	for i := 0; i < 60; i++ {
		f.products.addProduct(f.businessID, "P", "1.00", true)
	}

	// Downgrade succeeds even though usage already exceeds the free ceiling.
	resp, err := f.svc.ChangePlan(context.Background(), f.businessID, dto.ChangePlanRequest{Plan: model.PlanFree})
	require.NoError(t, err)
	assert.Equal(t, 50, resp.MaxProducts)

	// New creation is blocked until usage drops under the new limit.
	err = f.svc.EnsureCanAddProduct(context.Background(), f.businessID)
	assert.ErrorIs(t, err, apierror.ErrValidation)
}

func TestUsageCountsResources(t *testing.T) {
	f := newSubscriptionFixture(model.PlanStandard, 500, 3, 10)
	f.products.addProduct(f.businessID, "A", "1.00", true)
	f.products.addProduct(f.businessID, "B", "1.00", true)
	require.NoError(t, f.businessRepo.CreateLocation(context.Background(), &model.Location{
		BusinessID: f.businessID, Name: "Main", Active: true,
	}))
	require.NoError(t, f.users.Create(context.Background(), &model.User{
		BusinessID: f.businessID, Username: "u1", Role: "admin", Active: true,
	}))

	usage, err := f.svc.Usage(context.Background(), f.businessID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), usage.Products)
	assert.Equal(t, int64(1), usage.Locations)
	assert.Equal(t, int64(1), usage.Staff)
	assert.Equal(t, 500, usage.MaxProducts)
}
