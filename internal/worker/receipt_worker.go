package worker

// receipt_worker.go
// Processes receipt jobs from QueueReceipt: renders the PDF receipt for a
// completed sale and, when the customer left an email, delivers it through
// the SMTP circuit breaker. Failed deliveries retry with backoff; exhausted
// jobs land in the DLQ.

import (
	"context"
	"encoding/json"
	"time"

	"retailpos/internal/infra"
	"retailpos/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const maxReceiptAttempts = 3

// ReceiptWorker renders and delivers PDF receipts.
type ReceiptWorker struct {
	saleRepo       repository.SaleRepository
	businessRepo   repository.BusinessRepository
	mailer         *infra.Mailer
	cb             *infra.CircuitBreaker
	rdb            *redis.Client
	pdfStoragePath string
}

func NewReceiptWorker(
	saleRepo repository.SaleRepository,
	businessRepo repository.BusinessRepository,
	mailer *infra.Mailer,
	cb *infra.CircuitBreaker,
	rdb *redis.Client,
	pdfStoragePath string,
) *ReceiptWorker {
	return &ReceiptWorker{
		saleRepo:       saleRepo,
		businessRepo:   businessRepo,
		mailer:         mailer,
		cb:             cb,
		rdb:            rdb,
		pdfStoragePath: pdfStoragePath,
	}
}

// Process handles a single receipt job:
//  1. Fetch the sale (with items and payments)
//  2. Render the PDF to disk
//  3. If a customer email is present, send through the circuit breaker
//     with up to 3 attempts and exponential backoff
//  4. Exhausted or fast-failed jobs go to the DLQ
func (w *ReceiptWorker) Process(ctx context.Context, raw json.RawMessage) {
	var payload ReceiptJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("receipt_worker: invalid payload")
		return
	}

	saleID, err := uuid.Parse(payload.SaleID)
	if err != nil {
		log.Error().Str("sale_id", payload.SaleID).Msg("receipt_worker: invalid sale_id")
		return
	}

	// Sale lookups are business-scoped everywhere else; workers use the
	// unscoped variant because the job only carries the sale id.
	sale, err := w.saleRepo.FindAny(ctx, saleID)
	if err != nil {
		log.Error().Err(err).Str("sale_id", payload.SaleID).Msg("receipt_worker: sale not found")
		return
	}

	businessName := "Receipt"
	if business, err := w.businessRepo.FindByID(ctx, sale.BusinessID); err == nil {
		businessName = business.Name
	}

	pdfPath, err := infra.GenerateReceiptPDF(sale, businessName, w.pdfStoragePath)
	if err != nil {
		log.Error().Err(err).Str("sale_id", payload.SaleID).Msg("receipt_worker: PDF generation failed")
		SendToDLQ(ctx, w.rdb, QueueReceipt, "receipt", raw, "pdf generation failed: "+err.Error(), 1)
		return
	}
	log.Info().Str("sale_id", payload.SaleID).Str("pdf", pdfPath).Msg("receipt_worker: PDF generated")

	if payload.CustomerEmail == nil || *payload.CustomerEmail == "" {
		return
	}

	subject := "Your receipt " + sale.Number + " from " + businessName
	body := "Thank you for your purchase. Your receipt is attached."

	var sendErr error
	for attempt := 1; attempt <= maxReceiptAttempts; attempt++ {
		sendErr = w.cb.Execute(func() error {
			return w.mailer.SendReceipt(*payload.CustomerEmail, subject, body, pdfPath)
		})
		if sendErr == nil {
			log.Info().Str("to", *payload.CustomerEmail).Str("sale_id", payload.SaleID).Msg("receipt_worker: receipt emailed")
			return
		}
		if sendErr == infra.ErrCircuitOpen {
			// No point hammering a tripped breaker
			break
		}
		log.Warn().Err(sendErr).Int("attempt", attempt).Msg("receipt_worker: send failed")
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}

	SendToDLQ(ctx, w.rdb, QueueReceipt, "receipt", raw, "email delivery failed: "+sendErr.Error(), maxReceiptAttempts)
}
