package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"retailpos/internal/apierror"
	"retailpos/internal/dto"
	"retailpos/internal/model"
	"retailpos/internal/repository"
	"retailpos/internal/jobs"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// numberRetryLimit bounds the sale-number collision retry loop. Two cashiers
// hitting the same location in the same instant collide on the composite
// unique index; the loser recomputes the next number and retries.
const numberRetryLimit = 5

// JobDispatcher is the async-job surface checkout needs; *worker.Dispatcher
// satisfies it.
type JobDispatcher interface {
	EnqueueReceipt(ctx context.Context, payload jobs.ReceiptJobPayload) error
	EnqueueReportRefresh(ctx context.Context, payload jobs.ReportRefreshPayload) error
}

type SaleService interface {
	RegisterSale(ctx context.Context, userID uuid.UUID, businessID uuid.UUID, req dto.RegisterSaleRequest) (*dto.SaleResponse, error)
	GetSale(ctx context.Context, businessID, id uuid.UUID) (*dto.SaleResponse, error)
	ListSales(ctx context.Context, businessID uuid.UUID, filter dto.SaleFilter) (*dto.SaleListResponse, error)
	RefundSale(ctx context.Context, userID uuid.UUID, businessID, id uuid.UUID, req dto.RefundSaleRequest) (*dto.SaleResponse, error)
	VoidSale(ctx context.Context, userID uuid.UUID, businessID, id uuid.UUID, req dto.VoidSaleRequest) (*dto.SaleResponse, error)
}

type saleService struct {
	repo        repository.SaleRepository
	productRepo repository.ProductRepository
	ledger      LedgerService
	dispatcher  JobDispatcher
}

func NewSaleService(
	repo repository.SaleRepository,
	productRepo repository.ProductRepository,
	ledger LedgerService,
	dispatcher JobDispatcher,
) SaleService {
	return &saleService{
		repo:        repo,
		productRepo: productRepo,
		ledger:      ledger,
		dispatcher:  dispatcher,
	}
}

// errNumberTaken signals a sale-number collision inside the transaction so
// the outer loop can retry with a freshly computed number.
var errNumberTaken = errors.New("sale number taken")

// RegisterSale executes the full checkout transaction:
//  1. Resolve products and compute line totals (pre-flight, outside TX)
//  2. Validate payment sufficiency
//  3. BEGIN TX: next sale number, create sale+items+payments, deduct stock
//     through the ledger (one movement per line, dedup-keyed by sale+product)
//  4. COMMIT — retry the whole TX on a number collision, up to 5 attempts
//  5. (async) dispatch receipt and report refresh jobs
func (s *saleService) RegisterSale(ctx context.Context, userID uuid.UUID, businessID uuid.UUID, req dto.RegisterSaleRequest) (*dto.SaleResponse, error) {
	locationID, err := uuid.Parse(req.LocationID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid location_id", apierror.ErrValidation)
	}

	type resolvedItem struct {
		productID uuid.UUID
		name      string
		sku       string
		unitPrice decimal.Decimal
		quantity  int
		total     decimal.Decimal
	}

	// 1. Resolve products and calculate totals. Stock is NOT checked here:
	// the ledger re-checks under the row lock, which is the only check that
	// can't race.
	var resolved []resolvedItem
	subtotal := decimal.Zero
	for _, item := range req.Items {
		pid, err := uuid.Parse(item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid product_id", apierror.ErrValidation)
		}
		p, err := s.productRepo.FindByID(ctx, businessID, pid)
		if err != nil {
			return nil, storageErr(err)
		}
		if !p.Active {
			return nil, fmt.Errorf("%w: product %q is inactive", apierror.ErrValidation, p.Name)
		}
		if item.Discount.IsNegative() {
			return nil, fmt.Errorf("%w: item discount cannot be negative", apierror.ErrValidation)
		}
		lineTotal := p.RetailPrice.Mul(decimal.NewFromInt(int64(item.Quantity))).Sub(item.Discount)
		if lineTotal.IsNegative() {
			return nil, fmt.Errorf("%w: discount exceeds line total for %q", apierror.ErrValidation, p.Name)
		}
		subtotal = subtotal.Add(lineTotal)
		resolved = append(resolved, resolvedItem{
			productID: pid,
			name:      p.Name,
			sku:       p.SKU,
			unitPrice: p.RetailPrice,
			quantity:  item.Quantity,
			total:     lineTotal,
		})
	}

	total := subtotal.Add(req.Tax).Sub(req.Discount)
	if total.IsNegative() {
		return nil, fmt.Errorf("%w: discount exceeds sale total", apierror.ErrValidation)
	}

	// 2. Payment sufficiency. Overpayment is change, underpayment is rejected.
	paid := decimal.Zero
	for _, p := range req.Payments {
		if p.Amount.IsNegative() {
			return nil, fmt.Errorf("%w: payment amount cannot be negative", apierror.ErrValidation)
		}
		paid = paid.Add(p.Amount)
	}
	if paid.LessThan(total) {
		return nil, fmt.Errorf("%w: payments %s do not cover total %s", apierror.ErrValidation, paid, total)
	}
	change := paid.Sub(total)

	// Fixed ID so dedup keys stay stable across number-collision retries.
	saleID := uuid.New()
	now := time.Now()

	var sale *model.Sale
	for attempt := 0; attempt < numberRetryLimit; attempt++ {
		sale = &model.Sale{
			ID:            saleID,
			BusinessID:    businessID,
			LocationID:    locationID,
			UserID:        userID,
			CustomerName:  req.CustomerName,
			CustomerPhone: req.CustomerPhone,
			Subtotal:      subtotal,
			Tax:           req.Tax,
			Discount:      req.Discount,
			Total:         total,
			RefundedTotal: decimal.Zero,
			PaymentStatus: "paid",
			Status:        model.SaleCompleted,
			Note:          req.Note,
		}
		for _, r := range resolved {
			sale.Items = append(sale.Items, model.SaleItem{
				ProductID:   r.productID,
				ProductName: r.name,
				SKU:         r.sku,
				Quantity:    r.quantity,
				UnitPrice:   r.unitPrice,
				Total:       r.total,
			})
		}
		for _, p := range req.Payments {
			sale.Payments = append(sale.Payments, model.SalePayment{
				Method: p.Method,
				Amount: p.Amount,
			})
		}

		txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
			number, err := s.nextSaleNumber(tx, locationID, now)
			if err != nil {
				return err
			}
			sale.Number = number

			if err := s.repo.CreateTx(tx, sale); err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return errNumberTaken
				}
				return storageErr(err)
			}

			// 3. Deduct stock through the ledger, atomically with the sale.
			for _, r := range resolved {
				key := fmt.Sprintf("sale:%s:%s", saleID, r.productID)
				_, err := s.ledger.RecordMovementTx(tx, MovementInput{
					BusinessID: businessID,
					ProductID:  r.productID,
					LocationID: locationID,
					Kind:       model.MovementSale,
					Quantity:   r.quantity,
					Reference:  model.RefSale,
					RefID:      &saleID,
					DedupKey:   &key,
					UserID:     userID,
				})
				if err != nil {
					return err
				}
			}
			return nil
		})

		if txErr == nil {
			break
		}
		if errors.Is(txErr, errNumberTaken) {
			log.Warn().
				Str("location_id", locationID.String()).
				Int("attempt", attempt+1).
				Msg("sale number collision, retrying")
			if attempt == numberRetryLimit-1 {
				return nil, fmt.Errorf("%w: could not allocate sale number after %d attempts", apierror.ErrConflict, numberRetryLimit)
			}
			continue
		}
		return nil, txErr
	}

	log.Info().
		Str("sale_id", sale.ID.String()).
		Str("number", sale.Number).
		Str("total", sale.Total.String()).
		Int("items", len(sale.Items)).
		Msg("sale registered")

	// 4. Async side effects — failures here never fail the sale.
	if s.dispatcher != nil {
		if err := s.dispatcher.EnqueueReceipt(ctx, jobs.ReceiptJobPayload{
			SaleID:        sale.ID.String(),
			CustomerEmail: req.CustomerEmail,
		}); err != nil {
			log.Error().Err(err).Str("sale_id", sale.ID.String()).Msg("failed to enqueue receipt job")
		}
	}
	s.refreshReports(ctx, businessID, locationID, now)

	resp := saleToResponse(sale)
	resp.Change = change
	return resp, nil
}

// refreshReports enqueues a regeneration of the cached sales report for one
// business day. Every mutation of sale data goes through here so cached
// revenue never outlives the sales backing it.
func (s *saleService) refreshReports(ctx context.Context, businessID, locationID uuid.UUID, day time.Time) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.EnqueueReportRefresh(ctx, jobs.ReportRefreshPayload{
		BusinessID: businessID.String(),
		LocationID: locationID.String(),
		Date:       day.Format("2006-01-02"),
	}); err != nil {
		log.Error().Err(err).Str("business_id", businessID.String()).Msg("failed to enqueue report refresh job")
	}
}

// nextSaleNumber computes "YYYYMMDD-NNNN" for the location: scan the max
// existing number for today's prefix, increment its sequence. The composite
// unique index catches the race between the scan and the insert.
func (s *saleService) nextSaleNumber(tx *gorm.DB, locationID uuid.UUID, now time.Time) (string, error) {
	prefix := now.Format("20060102")
	max, err := s.repo.MaxNumberTx(tx, locationID, prefix)
	if err != nil {
		return "", storageErr(err)
	}
	seq := 1
	if max != "" {
		parts := strings.SplitN(max, "-", 2)
		if len(parts) == 2 {
			if n, err := strconv.Atoi(parts[1]); err == nil {
				seq = n + 1
			}
		}
	}
	return fmt.Sprintf("%s-%04d", prefix, seq), nil
}

func (s *saleService) GetSale(ctx context.Context, businessID, id uuid.UUID) (*dto.SaleResponse, error) {
	sale, err := s.repo.FindByID(ctx, businessID, id)
	if err != nil {
		return nil, storageErr(err)
	}
	return saleToResponse(sale), nil
}

func (s *saleService) ListSales(ctx context.Context, businessID uuid.UUID, filter dto.SaleFilter) (*dto.SaleListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 200 {
		filter.Limit = 50
	}
	sales, total, err := s.repo.List(ctx, businessID, filter)
	if err != nil {
		return nil, storageErr(err)
	}
	out := make([]dto.SaleResponse, 0, len(sales))
	for i := range sales {
		out = append(out, *saleToResponse(&sales[i]))
	}
	return &dto.SaleListResponse{Data: out, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// RefundSale returns part or all of a sale's items to stock. Each refunded
// line produces a return movement; the dedup key encodes the item and its
// refunded count so a retried request can't double-restock.
func (s *saleService) RefundSale(ctx context.Context, userID uuid.UUID, businessID, id uuid.UUID, req dto.RefundSaleRequest) (*dto.SaleResponse, error) {
	sale, err := s.repo.FindByID(ctx, businessID, id)
	if err != nil {
		return nil, storageErr(err)
	}
	if sale.Status != model.SaleCompleted && sale.Status != model.SalePartialRefund {
		return nil, fmt.Errorf("%w: sale %s cannot be refunded", apierror.ErrValidation, sale.Status)
	}

	itemsByID := make(map[uuid.UUID]*model.SaleItem, len(sale.Items))
	for i := range sale.Items {
		itemsByID[sale.Items[i].ID] = &sale.Items[i]
	}

	type refundLine struct {
		item *model.SaleItem
		qty  int
	}
	var lines []refundLine
	for _, r := range req.Items {
		itemID, err := uuid.Parse(r.SaleItemID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid sale_item_id", apierror.ErrValidation)
		}
		item, ok := itemsByID[itemID]
		if !ok {
			return nil, fmt.Errorf("%w: sale item not found", apierror.ErrNotFound)
		}
		if r.Quantity > item.Quantity-item.RefundedQty {
			return nil, fmt.Errorf("%w: refund quantity %d exceeds remaining %d for %q",
				apierror.ErrValidation, r.Quantity, item.Quantity-item.RefundedQty, item.ProductName)
		}
		lines = append(lines, refundLine{item: item, qty: r.Quantity})
	}

	refundAmount := decimal.Zero
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		for _, l := range lines {
			key := fmt.Sprintf("refund:%s:%d", l.item.ID, l.item.RefundedQty)
			_, err := s.ledger.RecordMovementTx(tx, MovementInput{
				BusinessID: businessID,
				ProductID:  l.item.ProductID,
				LocationID: sale.LocationID,
				Kind:       model.MovementReturn,
				Quantity:   l.qty,
				Reference:  model.RefReturn,
				RefID:      &sale.ID,
				DedupKey:   &key,
				UserID:     userID,
				Note:       req.Reason,
			})
			if err != nil {
				return err
			}

			// Refund value is the line total prorated by quantity, so item
			// discounts are shared across refunded units.
			perUnit := l.item.Total.Div(decimal.NewFromInt(int64(l.item.Quantity)))
			refundAmount = refundAmount.Add(perUnit.Mul(decimal.NewFromInt(int64(l.qty))).Round(2))

			l.item.RefundedQty += l.qty
			if err := s.repo.UpdateItemTx(tx, l.item); err != nil {
				return storageErr(err)
			}
		}

		sale.RefundedTotal = sale.RefundedTotal.Add(refundAmount)
		sale.Status = model.SalePartialRefund
		if fullyRefunded(sale) {
			sale.Status = model.SaleRefunded
		}
		if err := s.repo.UpdateTx(tx, sale); err != nil {
			return storageErr(err)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	log.Info().
		Str("sale_id", sale.ID.String()).
		Str("refund_amount", refundAmount.String()).
		Str("status", sale.Status).
		Msg("sale refunded")

	// The refund changed the revenue of the day the sale was made.
	s.refreshReports(ctx, businessID, sale.LocationID, sale.CreatedAt)

	return saleToResponse(sale), nil
}

// VoidSale cancels a completed sale entirely, restoring all stock. Unlike a
// refund it marks the sale voided, which excludes it from revenue reports.
func (s *saleService) VoidSale(ctx context.Context, userID uuid.UUID, businessID, id uuid.UUID, req dto.VoidSaleRequest) (*dto.SaleResponse, error) {
	sale, err := s.repo.FindByID(ctx, businessID, id)
	if err != nil {
		return nil, storageErr(err)
	}
	if sale.Status != model.SaleCompleted {
		return nil, fmt.Errorf("%w: only completed sales can be voided, sale is %s", apierror.ErrValidation, sale.Status)
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		for i := range sale.Items {
			item := &sale.Items[i]
			remaining := item.Quantity - item.RefundedQty
			if remaining <= 0 {
				continue
			}
			key := fmt.Sprintf("void:%s", item.ID)
			_, err := s.ledger.RecordMovementTx(tx, MovementInput{
				BusinessID: businessID,
				ProductID:  item.ProductID,
				LocationID: sale.LocationID,
				Kind:       model.MovementReturn,
				Quantity:   remaining,
				Reference:  model.RefReturn,
				RefID:      &sale.ID,
				DedupKey:   &key,
				UserID:     userID,
				Note:       req.Reason,
			})
			if err != nil {
				return err
			}
		}

		sale.Status = model.SaleVoided
		note := req.Reason
		sale.Note = &note
		if err := s.repo.UpdateTx(tx, sale); err != nil {
			return storageErr(err)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	log.Info().Str("sale_id", sale.ID.String()).Str("number", sale.Number).Msg("sale voided")

	// Voiding drops the sale from revenue; the cached report for its day is stale.
	s.refreshReports(ctx, businessID, sale.LocationID, sale.CreatedAt)

	return saleToResponse(sale), nil
}

func fullyRefunded(sale *model.Sale) bool {
	for _, item := range sale.Items {
		if item.RefundedQty < item.Quantity {
			return false
		}
	}
	return true
}

func saleToResponse(sale *model.Sale) *dto.SaleResponse {
	resp := &dto.SaleResponse{
		ID:            sale.ID.String(),
		Number:        sale.Number,
		LocationID:    sale.LocationID.String(),
		Subtotal:      sale.Subtotal,
		Tax:           sale.Tax,
		Discount:      sale.Discount,
		Total:         sale.Total,
		Change:        decimal.Zero,
		RefundedTotal: sale.RefundedTotal,
		CustomerName:  sale.CustomerName,
		CustomerPhone: sale.CustomerPhone,
		PaymentStatus: sale.PaymentStatus,
		Status:        sale.Status,
		CreatedAt:     sale.CreatedAt.Format(time.RFC3339),
	}
	if sale.User != nil {
		resp.CashierName = sale.User.Name
	}
	for _, item := range sale.Items {
		resp.Items = append(resp.Items, dto.SaleItemResponse{
			ID:          item.ID.String(),
			ProductID:   item.ProductID.String(),
			ProductName: item.ProductName,
			SKU:         item.SKU,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Total:       item.Total,
			RefundedQty: item.RefundedQty,
		})
	}
	for _, p := range sale.Payments {
		resp.Payments = append(resp.Payments, dto.PaymentRequest{Method: p.Method, Amount: p.Amount})
	}
	return resp
}
