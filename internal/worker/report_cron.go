package worker

// report_cron.go
// Background goroutine that periodically regenerates today's sales report for
// every active business, keeping dashboards warm even between sales.

import (
	"context"
	"time"

	"retailpos/internal/dto"
	"retailpos/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const reportTickInterval = 10 * time.Minute

// ReportCronConfig holds the dependencies for the refresh goroutine.
type ReportCronConfig struct {
	DB      *gorm.DB
	Reports service.ReportService
}

// StartReportCron launches a background goroutine that ticks every 10
// minutes and refreshes today's cached sales report per business. It
// respects the context for graceful shutdown.
func StartReportCron(ctx context.Context, cfg ReportCronConfig) {
	go func() {
		ticker := time.NewTicker(reportTickInterval)
		defer ticker.Stop()

		log.Info().Msg("report_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("report_cron: shutting down")
				return
			case <-ticker.C:
				refreshAll(ctx, cfg)
			}
		}
	}()
}

func refreshAll(ctx context.Context, cfg ReportCronConfig) {
	var businessIDs []string
	if err := cfg.DB.WithContext(ctx).
		Table("businesses").
		Where("active = true").
		Pluck("id", &businessIDs).Error; err != nil {
		log.Error().Err(err).Msg("report_cron: failed to list businesses")
		return
	}

	today := time.Now().Format("2006-01-02")
	for _, id := range businessIDs {
		businessID, err := uuid.Parse(id)
		if err != nil {
			continue
		}
		q := dto.ReportQuery{Start: today, End: today, Refresh: true}
		if _, err := cfg.Reports.SalesReport(ctx, businessID, q); err != nil {
			log.Warn().Err(err).Str("business_id", id).Msg("report_cron: refresh failed")
		}
	}
}
