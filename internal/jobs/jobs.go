// Package jobs holds the async job payload types shared by the service
// layer (which enqueues them) and the worker pool (which consumes them).
// Keeping them in a leaf package breaks the service <-> worker import cycle.
package jobs

// ReceiptJobPayload asks the receipt worker to render and deliver the PDF
// receipt for a completed sale.
type ReceiptJobPayload struct {
	SaleID        string  `json:"sale_id"`
	CustomerEmail *string `json:"customer_email,omitempty"`
}

// ReportRefreshPayload asks the report worker to regenerate a cached sales
// report after the underlying data changed.
type ReportRefreshPayload struct {
	BusinessID string `json:"business_id"`
	LocationID string `json:"location_id,omitempty"`
	Date       string `json:"date"` // YYYY-MM-DD
}
