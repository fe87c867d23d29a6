package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/salescost/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// SalesStats aggregates invoice counts and confirmed revenue,
// optionally restricted to an issue-date range
type SalesStats struct {
	DraftCount     int64           `json:"draft_count"`
	ConfirmedCount int64           `json:"confirmed_count"`
	VoidedCount    int64           `json:"voided_count"`
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
	AverageTicket  decimal.Decimal `json:"average_ticket"`
}

// StatsQuery bounds a statistics request by issue date
type StatsQuery struct {
	From *time.Time
	To   *time.Time
}

// InvoiceRepository defines the interface for invoice persistence
type InvoiceRepository interface {
	// FindByID finds an invoice by ID including its lines
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByIDForUpdate finds an invoice by ID with a row lock,
	// must be called inside a transaction
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByLineID finds the invoice that owns the given line
	FindByLineID(ctx context.Context, lineID uuid.UUID) (*Invoice, error)

	// FindByNumber finds an invoice by its business number
	FindByNumber(ctx context.Context, number string) (*Invoice, error)

	// FindAll finds invoices with filtering and pagination
	FindAll(ctx context.Context, filter shared.Filter) ([]Invoice, error)

	// Count counts invoices matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// Save creates or updates an invoice and its lines
	Save(ctx context.Context, invoice *Invoice) error

	// Delete removes an invoice and its lines
	Delete(ctx context.Context, id uuid.UUID) error

	// NextInvoiceNumber reserves the next sequential invoice number
	NextInvoiceNumber(ctx context.Context) (string, error)

	// Stats computes sales statistics over confirmed and other invoices
	Stats(ctx context.Context, query StatsQuery) (*SalesStats, error)
}
