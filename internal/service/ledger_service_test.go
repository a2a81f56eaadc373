package service_test

import (
	"context"
	"sync"
	"testing"

	"retailpos/internal/apierror"
	"retailpos/internal/dto"
	"retailpos/internal/model"
	"retailpos/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ── In-memory ProductRepository stub ─────────────────────────────────────────

func levelKey(productID, locationID uuid.UUID) string {
	return productID.String() + "|" + locationID.String()
}

// stubProductRepo guards the levels map with a mutex so checkout tests can
// hit it from concurrent goroutines; StockLevelForUpdateTx hands out copies
// the way a row read would.
type stubProductRepo struct {
	mu       sync.Mutex
	products map[uuid.UUID]*model.Product
	levels   map[string]*model.StockLevel
	alerts   []dto.StockAlertResponse
}

func newStubProductRepo() *stubProductRepo {
	return &stubProductRepo{
		products: make(map[uuid.UUID]*model.Product),
		levels:   make(map[string]*model.StockLevel),
	}
}

func (r *stubProductRepo) addProduct(businessID uuid.UUID, name, price string, active bool) *model.Product {
	p := &model.Product{
		ID:          uuid.New(),
		BusinessID:  businessID,
		CategoryID:  uuid.New(),
		SKU:         "SKU-" + name,
		Barcode:     "779" + name,
		Name:        name,
		RetailPrice: decimal.RequireFromString(price),
		Active:      active,
	}
	r.products[p.ID] = p
	return p
}

func (r *stubProductRepo) setLevel(productID, locationID uuid.UUID, qty int) *model.StockLevel {
	r.mu.Lock()
	defer r.mu.Unlock()
	level := &model.StockLevel{
		ID:         uuid.New(),
		ProductID:  productID,
		LocationID: locationID,
		Quantity:   qty,
	}
	r.levels[levelKey(productID, locationID)] = level
	return level
}

func (r *stubProductRepo) quantity(productID, locationID uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.levels[levelKey(productID, locationID)]; ok {
		return l.Quantity
	}
	return 0
}

func (r *stubProductRepo) Create(_ context.Context, p *model.Product) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.products[p.ID] = p
	return nil
}

func (r *stubProductRepo) FindByID(_ context.Context, businessID, id uuid.UUID) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok || p.BusinessID != businessID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	cp.Levels = nil
	for _, l := range r.levels {
		if l.ProductID == id {
			cp.Levels = append(cp.Levels, *l)
		}
	}
	return &cp, nil
}

func (r *stubProductRepo) FindByBarcode(_ context.Context, businessID uuid.UUID, barcode string) (*model.Product, error) {
	for _, p := range r.products {
		if p.BusinessID == businessID && p.Barcode == barcode && p.Active {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubProductRepo) List(_ context.Context, businessID uuid.UUID, _ dto.ProductFilter) ([]model.Product, int64, error) {
	var out []model.Product
	for _, p := range r.products {
		if p.BusinessID == businessID && p.Active {
			out = append(out, *p)
		}
	}
	return out, int64(len(out)), nil
}

func (r *stubProductRepo) Update(_ context.Context, p *model.Product) error {
	r.products[p.ID] = p
	return nil
}

func (r *stubProductRepo) SoftDelete(_ context.Context, businessID, id uuid.UUID) error {
	if p, ok := r.products[id]; ok && p.BusinessID == businessID {
		p.Active = false
	}
	return nil
}

func (r *stubProductRepo) Reactivate(_ context.Context, businessID, id uuid.UUID) error {
	if p, ok := r.products[id]; ok && p.BusinessID == businessID {
		p.Active = true
	}
	return nil
}

func (r *stubProductRepo) CountActive(_ context.Context, businessID uuid.UUID) (int64, error) {
	var n int64
	for _, p := range r.products {
		if p.BusinessID == businessID && p.Active {
			n++
		}
	}
	return n, nil
}

func (r *stubProductRepo) FindByIDTx(_ *gorm.DB, id uuid.UUID) (*model.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (r *stubProductRepo) StockLevelForUpdateTx(_ *gorm.DB, productID, locationID uuid.UUID) (*model.StockLevel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.levels[levelKey(productID, locationID)]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (r *stubProductRepo) SaveStockLevelTx(_ *gorm.DB, level *model.StockLevel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.levels[levelKey(level.ProductID, level.LocationID)] = level
	return nil
}

func (r *stubProductRepo) LevelsByProduct(_ context.Context, productID uuid.UUID) ([]model.StockLevel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.StockLevel
	for _, l := range r.levels {
		if l.ProductID == productID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (r *stubProductRepo) LowStock(_ context.Context, _ uuid.UUID, _ *uuid.UUID) ([]dto.StockAlertResponse, error) {
	return r.alerts, nil
}

func (r *stubProductRepo) UpdateLevelThresholds(_ context.Context, productID, locationID uuid.UUID, minStock, maxStock *int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.levels[levelKey(productID, locationID)]
	if !ok {
		l = &model.StockLevel{ID: uuid.New(), ProductID: productID, LocationID: locationID}
		r.levels[levelKey(productID, locationID)] = l
	}
	if minStock != nil {
		l.MinStock = *minStock
	}
	if maxStock != nil {
		l.MaxStock = *maxStock
	}
	return nil
}

func (r *stubProductRepo) DB() *gorm.DB { return nil }

// ── In-memory StockMovementRepository stub ───────────────────────────────────

type stubMovementRepo struct {
	mu        sync.Mutex
	movements []*model.StockMovement
	byDedup   map[string]*model.StockMovement
	// dupOnCreate forces the next N CreateTx calls to fail with a unique
	// violation, simulating a dedup-key race lost to a concurrent writer.
	dupOnCreate int
}

func newStubMovementRepo() *stubMovementRepo {
	return &stubMovementRepo{byDedup: make(map[string]*model.StockMovement)}
}

func (r *stubMovementRepo) CreateTx(_ *gorm.DB, m *model.StockMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dupOnCreate > 0 {
		r.dupOnCreate--
		return gorm.ErrDuplicatedKey
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	r.movements = append(r.movements, m)
	if m.DedupKey != nil {
		r.byDedup[*m.DedupKey] = m
	}
	return nil
}

func (r *stubMovementRepo) FindByDedupKeyTx(_ *gorm.DB, key string) (*model.StockMovement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byDedup[key], nil
}

func (r *stubMovementRepo) List(_ context.Context, businessID uuid.UUID, _ dto.MovementFilter) ([]model.StockMovement, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.StockMovement
	for _, m := range r.movements {
		if m.BusinessID == businessID {
			out = append(out, *m)
		}
	}
	return out, int64(len(out)), nil
}

func (r *stubMovementRepo) SumQuantity(_ context.Context, productID, locationID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := 0
	for _, m := range r.movements {
		if m.ProductID == productID && m.LocationID == locationID {
			sum += m.Quantity
		}
	}
	return sum, nil
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestRecordMovementAppliesSignedQuantity(t *testing.T) {
	businessID := uuid.New()
	locationID := uuid.New()
	userID := uuid.New()

	cases := []struct {
		kind     string
		expected int // new stock starting from 10, magnitude 3
	}{
		{model.MovementPurchase, 13},
		{model.MovementReturn, 13},
		{model.MovementAdjustment, 13},
		{model.MovementSale, 7},
		{model.MovementDamage, 7},
		{model.MovementTransfer, 7},
	}

	for _, tc := range cases {
		t.Run(tc.kind, func(t *testing.T) {
			products := newStubProductRepo()
			movements := newStubMovementRepo()
			svc := service.NewLedgerService(products, movements)

			p := products.addProduct(businessID, "Yerba", "10.00", true)
			products.setLevel(p.ID, locationID, 10)

			m, err := svc.RecordMovementTx(nil, service.MovementInput{
				BusinessID: businessID,
				ProductID:  p.ID,
				LocationID: locationID,
				Kind:       tc.kind,
				Quantity:   3,
				Reference:  model.RefManual,
				UserID:     userID,
			})
			require.NoError(t, err)

			assert.Equal(t, 10, m.PreviousStock)
			assert.Equal(t, tc.expected, m.NewStock)
			assert.Equal(t, m.NewStock, m.PreviousStock+m.Quantity)
			assert.Equal(t, tc.expected, products.quantity(p.ID, locationID))
		})
	}
}

func TestRecordMovementRejectsBadInput(t *testing.T) {
	businessID := uuid.New()
	products := newStubProductRepo()
	movements := newStubMovementRepo()
	svc := service.NewLedgerService(products, movements)
	p := products.addProduct(businessID, "Azucar", "5.00", true)

	_, err := svc.RecordMovementTx(nil, service.MovementInput{
		BusinessID: businessID, ProductID: p.ID, LocationID: uuid.New(),
		Kind: "teleport", Quantity: 1, UserID: uuid.New(),
	})
	assert.ErrorIs(t, err, apierror.ErrValidation)

	_, err = svc.RecordMovementTx(nil, service.MovementInput{
		BusinessID: businessID, ProductID: p.ID, LocationID: uuid.New(),
		Kind: model.MovementPurchase, Quantity: 0, UserID: uuid.New(),
	})
	assert.ErrorIs(t, err, apierror.ErrValidation)

	assert.Empty(t, movements.movements)
}

func TestRecordMovementInsufficientStock(t *testing.T) {
	businessID := uuid.New()
	locationID := uuid.New()
	products := newStubProductRepo()
	movements := newStubMovementRepo()
	svc := service.NewLedgerService(products, movements)

	p := products.addProduct(businessID, "Cafe", "20.00", true)
	products.setLevel(p.ID, locationID, 2)

	_, err := svc.RecordMovementTx(nil, service.MovementInput{
		BusinessID: businessID, ProductID: p.ID, LocationID: locationID,
		Kind: model.MovementSale, Quantity: 5, UserID: uuid.New(),
	})
	require.ErrorIs(t, err, apierror.ErrInsufficientStock)

	// Snapshot untouched, ledger untouched.
	assert.Equal(t, 2, products.quantity(p.ID, locationID))
	assert.Empty(t, movements.movements)
}

func TestRecordMovementCreatesMissingLevel(t *testing.T) {
	businessID := uuid.New()
	locationID := uuid.New()
	products := newStubProductRepo()
	movements := newStubMovementRepo()
	svc := service.NewLedgerService(products, movements)

	p := products.addProduct(businessID, "Fideos", "3.50", true)

	m, err := svc.RecordMovementTx(nil, service.MovementInput{
		BusinessID: businessID, ProductID: p.ID, LocationID: locationID,
		Kind: model.MovementPurchase, Quantity: 4, UserID: uuid.New(),
	})
	require.NoError(t, err)

	assert.Equal(t, 0, m.PreviousStock)
	assert.Equal(t, 4, m.NewStock)
	assert.Equal(t, 4, products.quantity(p.ID, locationID))
}

func TestRecordMovementDedupReturnsExisting(t *testing.T) {
	businessID := uuid.New()
	locationID := uuid.New()
	products := newStubProductRepo()
	movements := newStubMovementRepo()
	svc := service.NewLedgerService(products, movements)

	p := products.addProduct(businessID, "Leche", "2.00", true)
	products.setLevel(p.ID, locationID, 10)

	key := "purchase:retry-test"
	in := service.MovementInput{
		BusinessID: businessID, ProductID: p.ID, LocationID: locationID,
		Kind: model.MovementPurchase, Quantity: 5,
		DedupKey: &key, UserID: uuid.New(),
	}

	first, err := svc.RecordMovementTx(nil, in)
	require.NoError(t, err)

	second, err := svc.RecordMovementTx(nil, in)
	require.NoError(t, err)

	// Same movement, applied exactly once.
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, movements.movements, 1)
	assert.Equal(t, 15, products.quantity(p.ID, locationID))
}

func TestRecordMovementDedupRaceMapsToConflict(t *testing.T) {
	businessID := uuid.New()
	locationID := uuid.New()
	products := newStubProductRepo()
	movements := newStubMovementRepo()
	movements.dupOnCreate = 1
	svc := service.NewLedgerService(products, movements)

	p := products.addProduct(businessID, "Pan", "1.50", true)
	products.setLevel(p.ID, locationID, 10)

	key := "purchase:raced"
	_, err := svc.RecordMovementTx(nil, service.MovementInput{
		BusinessID: businessID, ProductID: p.ID, LocationID: locationID,
		Kind: model.MovementPurchase, Quantity: 5,
		DedupKey: &key, UserID: uuid.New(),
	})
	assert.ErrorIs(t, err, apierror.ErrConflict)
}

func TestRecordMovementWrongBusiness(t *testing.T) {
	products := newStubProductRepo()
	movements := newStubMovementRepo()
	svc := service.NewLedgerService(products, movements)

	p := products.addProduct(uuid.New(), "Arroz", "4.00", true)

	_, err := svc.RecordMovementTx(nil, service.MovementInput{
		BusinessID: uuid.New(), // different tenant
		ProductID:  p.ID, LocationID: uuid.New(),
		Kind: model.MovementPurchase, Quantity: 1, UserID: uuid.New(),
	})
	assert.ErrorIs(t, err, apierror.ErrNotFound)
}

func TestRecordMovementFromRequest(t *testing.T) {
	businessID := uuid.New()
	locationID := uuid.New()
	products := newStubProductRepo()
	movements := newStubMovementRepo()
	svc := service.NewLedgerService(products, movements)

	p := products.addProduct(businessID, "Harina", "2.50", true)
	products.setLevel(p.ID, locationID, 1)

	resp, err := svc.RecordMovement(context.Background(), uuid.New(), businessID, dto.RecordMovementRequest{
		ProductID:  p.ID.String(),
		LocationID: locationID.String(),
		Kind:       model.MovementPurchase,
		Quantity:   9,
		Note:       "weekly restock",
	})
	require.NoError(t, err)
	assert.Equal(t, 10, resp.NewStock)
	assert.Equal(t, model.RefManual, resp.ReferenceKind)

	_, err = svc.RecordMovement(context.Background(), uuid.New(), businessID, dto.RecordMovementRequest{
		ProductID: "not-a-uuid", LocationID: locationID.String(),
		Kind: model.MovementPurchase, Quantity: 1,
	})
	assert.ErrorIs(t, err, apierror.ErrValidation)
}

func TestVerifySnapshot(t *testing.T) {
	businessID := uuid.New()
	locationID := uuid.New()
	products := newStubProductRepo()
	movements := newStubMovementRepo()
	svc := service.NewLedgerService(products, movements)

	p := products.addProduct(businessID, "Aceite", "8.00", true)

	for _, step := range []struct {
		kind string
		qty  int
	}{
		{model.MovementPurchase, 20},
		{model.MovementSale, 6},
		{model.MovementReturn, 1},
		{model.MovementDamage, 2},
	} {
		_, err := svc.RecordMovementTx(nil, service.MovementInput{
			BusinessID: businessID, ProductID: p.ID, LocationID: locationID,
			Kind: step.kind, Quantity: step.qty, UserID: uuid.New(),
		})
		require.NoError(t, err)
	}

	check, err := svc.VerifySnapshot(context.Background(), businessID, p.ID, locationID)
	require.NoError(t, err)
	assert.Equal(t, 13, check.Snapshot)
	assert.Equal(t, 13, check.Replayed)
	assert.True(t, check.Match)

	// Corrupt the snapshot out-of-band: replay must disagree.
	products.levels[levelKey(p.ID, locationID)].Quantity = 99
	check, err = svc.VerifySnapshot(context.Background(), businessID, p.ID, locationID)
	require.NoError(t, err)
	assert.False(t, check.Match)
	assert.Equal(t, 99, check.Snapshot)
	assert.Equal(t, 13, check.Replayed)
}

func TestLowStockAlerts(t *testing.T) {
	products := newStubProductRepo()
	products.alerts = []dto.StockAlertResponse{
		{ProductID: uuid.NewString(), ProductName: "Yerba", Quantity: 1, MinStock: 5},
	}
	svc := service.NewLedgerService(products, newStubMovementRepo())

	alerts, err := svc.LowStockAlerts(context.Background(), uuid.New(), nil)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "Yerba", alerts[0].ProductName)
}
