package worker

// report_worker.go
// Processes report refresh jobs from QueueReportRefresh. A new sale, refund,
// or void enqueues one of these so the cached report for the affected day is
// regenerated off the request path.

import (
	"context"
	"encoding/json"

	"retailpos/internal/dto"
	"retailpos/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ReportRefreshWorker regenerates cached sales reports after data changes.
type ReportRefreshWorker struct {
	reports service.ReportService
}

func NewReportRefreshWorker(reports service.ReportService) *ReportRefreshWorker {
	return &ReportRefreshWorker{reports: reports}
}

// Process drops the business's cached sales reports and regenerates the
// single-day report for the affected date so the common "today" query is
// warm again.
func (w *ReportRefreshWorker) Process(ctx context.Context, raw json.RawMessage) {
	var payload ReportRefreshPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("report_worker: invalid payload")
		return
	}

	businessID, err := uuid.Parse(payload.BusinessID)
	if err != nil {
		log.Error().Str("business_id", payload.BusinessID).Msg("report_worker: invalid business_id")
		return
	}

	w.reports.InvalidateSalesCache(ctx, businessID)

	q := dto.ReportQuery{
		Start:      payload.Date,
		End:        payload.Date,
		LocationID: payload.LocationID,
		Refresh:    true,
	}
	if _, err := w.reports.SalesReport(ctx, businessID, q); err != nil {
		log.Error().Err(err).
			Str("business_id", payload.BusinessID).
			Str("date", payload.Date).
			Msg("report_worker: refresh failed")
		return
	}
	log.Debug().
		Str("business_id", payload.BusinessID).
		Str("date", payload.Date).
		Msg("report_worker: report refreshed")
}
