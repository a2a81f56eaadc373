package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"retailpos/internal/apierror"
	"retailpos/internal/dto"
	"retailpos/internal/model"
	"retailpos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// MovementInput is the internal request for one ledger entry. Quantity is the
// magnitude; the sign is derived from Kind.
type MovementInput struct {
	BusinessID uuid.UUID
	ProductID  uuid.UUID
	LocationID uuid.UUID
	Kind       string
	Quantity   int
	Reference  string
	RefID      *uuid.UUID
	// DedupKey, when set, makes the write idempotent: a second call with the
	// same key returns the already-applied movement instead of double-counting.
	DedupKey *string
	UserID   uuid.UUID
	Note     string
}

// LedgerService is the only writer of stock quantities. Every change to a
// (product, location) snapshot goes through RecordMovementTx: lock the
// snapshot row, compute the new quantity from the signed delta, append the
// immutable movement, update the snapshot. All in one transaction.
type LedgerService interface {
	RecordMovement(ctx context.Context, userID uuid.UUID, businessID uuid.UUID, req dto.RecordMovementRequest) (*dto.MovementResponse, error)
	// RecordMovementTx runs inside a caller-owned transaction, so a sale can
	// atomically pair its stock deductions with the sale row itself.
	RecordMovementTx(tx *gorm.DB, in MovementInput) (*model.StockMovement, error)
	ListMovements(ctx context.Context, businessID uuid.UUID, filter dto.MovementFilter) (*dto.MovementListResponse, error)
	LowStockAlerts(ctx context.Context, businessID uuid.UUID, locationID *uuid.UUID) ([]dto.StockAlertResponse, error)
	// VerifySnapshot replays the ledger for a pair and compares against the
	// snapshot. Used by the reconciliation endpoint and tests.
	VerifySnapshot(ctx context.Context, businessID, productID, locationID uuid.UUID) (*SnapshotCheck, error)
}

// SnapshotCheck is the result of replaying a pair's ledger history.
type SnapshotCheck struct {
	Snapshot int  `json:"snapshot"`
	Replayed int  `json:"replayed"`
	Match    bool `json:"match"`
}

type ledgerService struct {
	productRepo  repository.ProductRepository
	movementRepo repository.StockMovementRepository
}

func NewLedgerService(productRepo repository.ProductRepository, movementRepo repository.StockMovementRepository) LedgerService {
	return &ledgerService{productRepo: productRepo, movementRepo: movementRepo}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// storageErr classifies a repository error: record absence maps to not-found,
// anything else is a storage failure that must surface, never be swallowed.
func storageErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apierror.ErrNotFound
	}
	return fmt.Errorf("%w: %v", apierror.ErrStorageUnavailable, err)
}

func (s *ledgerService) RecordMovement(ctx context.Context, userID uuid.UUID, businessID uuid.UUID, req dto.RecordMovementRequest) (*dto.MovementResponse, error) {
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid product_id", apierror.ErrValidation)
	}
	locationID, err := uuid.Parse(req.LocationID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid location_id", apierror.ErrValidation)
	}

	in := MovementInput{
		BusinessID: businessID,
		ProductID:  productID,
		LocationID: locationID,
		Kind:       req.Kind,
		Quantity:   req.Quantity,
		Reference:  model.RefManual,
		UserID:     userID,
		Note:       req.Note,
	}
	if req.ReferenceKind != nil {
		in.Reference = *req.ReferenceKind
	}
	if req.ReferenceID != nil {
		refID, err := uuid.Parse(*req.ReferenceID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid reference_id", apierror.ErrValidation)
		}
		in.RefID = &refID
	}

	var movement *model.StockMovement
	txErr := runTx(ctx, s.productRepo.DB(), func(tx *gorm.DB) error {
		var err error
		movement, err = s.RecordMovementTx(tx, in)
		return err
	})
	if txErr != nil {
		return nil, txErr
	}

	log.Info().
		Str("product_id", productID.String()).
		Str("location_id", locationID.String()).
		Str("kind", req.Kind).
		Int("quantity", movement.Quantity).
		Int("new_stock", movement.NewStock).
		Msg("stock movement recorded")

	return movementToResponse(movement), nil
}

func (s *ledgerService) RecordMovementTx(tx *gorm.DB, in MovementInput) (*model.StockMovement, error) {
	if in.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", apierror.ErrValidation)
	}
	dir, ok := model.MovementDirection(in.Kind)
	if !ok {
		return nil, fmt.Errorf("%w: unknown movement kind %q", apierror.ErrValidation, in.Kind)
	}

	// Idempotency: a retried write with the same dedup key is a no-op that
	// returns the movement already applied.
	if in.DedupKey != nil {
		existing, err := s.movementRepo.FindByDedupKeyTx(tx, *in.DedupKey)
		if err != nil {
			return nil, storageErr(err)
		}
		if existing != nil {
			return existing, nil
		}
	}

	product, err := s.productRepo.FindByIDTx(tx, in.ProductID)
	if err != nil {
		return nil, storageErr(err)
	}
	if product.BusinessID != in.BusinessID {
		return nil, apierror.ErrNotFound
	}

	// Lock the snapshot row so concurrent movements on this pair serialize.
	level, err := s.productRepo.StockLevelForUpdateTx(tx, in.ProductID, in.LocationID)
	if err != nil {
		return nil, storageErr(err)
	}
	if level == nil {
		level = &model.StockLevel{
			ProductID:  in.ProductID,
			LocationID: in.LocationID,
			Quantity:   0,
		}
	}

	signed := dir * in.Quantity
	previous := level.Quantity
	next := previous + signed
	if next < 0 {
		return nil, fmt.Errorf("%w: product %s at location %s has %d, movement needs %d",
			apierror.ErrInsufficientStock, product.Name, in.LocationID, previous, in.Quantity)
	}

	movement := &model.StockMovement{
		BusinessID:    in.BusinessID,
		ProductID:     in.ProductID,
		LocationID:    in.LocationID,
		Kind:          in.Kind,
		Quantity:      signed,
		PreviousStock: previous,
		NewStock:      next,
		ReferenceKind: in.Reference,
		ReferenceID:   in.RefID,
		DedupKey:      in.DedupKey,
		UserID:        in.UserID,
		Note:          in.Note,
	}
	if err := s.movementRepo.CreateTx(tx, movement); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost a dedup-key race to a concurrent writer. The other write
			// already applied this movement.
			return nil, fmt.Errorf("%w: movement already recorded", apierror.ErrConflict)
		}
		return nil, storageErr(err)
	}

	level.Quantity = next
	if err := s.productRepo.SaveStockLevelTx(tx, level); err != nil {
		return nil, storageErr(err)
	}
	return movement, nil
}

func (s *ledgerService) ListMovements(ctx context.Context, businessID uuid.UUID, filter dto.MovementFilter) (*dto.MovementListResponse, error) {
	movements, total, err := s.movementRepo.List(ctx, businessID, filter)
	if err != nil {
		return nil, storageErr(err)
	}

	out := make([]dto.MovementResponse, 0, len(movements))
	for i := range movements {
		out = append(out, *movementToResponse(&movements[i]))
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 || limit > 500 {
		limit = 100
	}
	return &dto.MovementListResponse{Data: out, Total: total, Page: page, Limit: limit}, nil
}

func (s *ledgerService) LowStockAlerts(ctx context.Context, businessID uuid.UUID, locationID *uuid.UUID) ([]dto.StockAlertResponse, error) {
	alerts, err := s.productRepo.LowStock(ctx, businessID, locationID)
	if err != nil {
		return nil, storageErr(err)
	}
	return alerts, nil
}

func (s *ledgerService) VerifySnapshot(ctx context.Context, businessID, productID, locationID uuid.UUID) (*SnapshotCheck, error) {
	product, err := s.productRepo.FindByID(ctx, businessID, productID)
	if err != nil {
		return nil, storageErr(err)
	}

	snapshot := 0
	for _, level := range product.Levels {
		if level.LocationID == locationID {
			snapshot = level.Quantity
			break
		}
	}

	replayed, err := s.movementRepo.SumQuantity(ctx, productID, locationID)
	if err != nil {
		return nil, storageErr(err)
	}
	return &SnapshotCheck{Snapshot: snapshot, Replayed: replayed, Match: snapshot == replayed}, nil
}

func movementToResponse(m *model.StockMovement) *dto.MovementResponse {
	resp := &dto.MovementResponse{
		ID:            m.ID.String(),
		ProductID:     m.ProductID.String(),
		LocationID:    m.LocationID.String(),
		Kind:          m.Kind,
		Quantity:      m.Quantity,
		PreviousStock: m.PreviousStock,
		NewStock:      m.NewStock,
		ReferenceKind: m.ReferenceKind,
		Note:          m.Note,
		CreatedAt:     m.CreatedAt.Format(time.RFC3339),
	}
	if m.ReferenceID != nil {
		refID := m.ReferenceID.String()
		resp.ReferenceID = &refID
	}
	if m.Product != nil {
		resp.ProductName = m.Product.Name
	}
	return resp
}
