package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/salescost/backend/internal/domain/billing"
	"github.com/shopspring/decimal"
)

// CreateInvoiceRequest represents a request to create a draft invoice
type CreateInvoiceRequest struct {
	ClientID uuid.UUID `json:"client_id" binding:"required"`
	Notes    string    `json:"notes" binding:"max=500"`
}

// AddLineRequest represents a request to add a product line to an invoice.
// UnitPrice is optional; when omitted the product's current sale price is used
type AddLineRequest struct {
	ProductID uuid.UUID        `json:"product_id" binding:"required"`
	Quantity  int64            `json:"quantity" binding:"required,min=1,max=999999"`
	UnitPrice *decimal.Decimal `json:"unit_price" binding:"omitempty"`
}

// UpdateLineRequest represents a request to change an existing line
type UpdateLineRequest struct {
	Quantity  int64           `json:"quantity" binding:"required,min=1,max=999999"`
	UnitPrice decimal.Decimal `json:"unit_price" binding:"required"`
}

// VoidInvoiceRequest represents a request to void an invoice
type VoidInvoiceRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// InvoiceListFilter represents filter options for the invoice list
type InvoiceListFilter struct {
	ClientID   *uuid.UUID             `form:"client_id"`
	Status     *billing.InvoiceStatus `form:"status"`
	Number     string                 `form:"number"`
	IssuedFrom *time.Time             `form:"issued_from"`
	IssuedTo   *time.Time             `form:"issued_to"`
	Page       int                    `form:"page" binding:"omitempty,min=1"`
	PageSize   int                    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy    string                 `form:"order_by"`
	OrderDir   string                 `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// StatsFilter bounds the statistics query by issue date
type StatsFilter struct {
	From *time.Time `form:"from"`
	To   *time.Time `form:"to"`
}

// InvoiceLineResponse represents an invoice line in API responses
type InvoiceLineResponse struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	ProductSKU  string          `json:"product_sku"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
}

// InvoiceResponse represents a full invoice in API responses
type InvoiceResponse struct {
	ID           uuid.UUID             `json:"id"`
	Number       string                `json:"number"`
	ClientID     uuid.UUID             `json:"client_id"`
	ClientName   string                `json:"client_name"`
	IssuedAt     time.Time             `json:"issued_at"`
	Lines        []InvoiceLineResponse `json:"lines"`
	Subtotal     decimal.Decimal       `json:"subtotal"`
	Tax          decimal.Decimal       `json:"tax"`
	Total        decimal.Decimal       `json:"total"`
	Status       string                `json:"status"`
	Notes        string                `json:"notes"`
	StockApplied bool                  `json:"stock_applied"`
	ConfirmedAt  *time.Time            `json:"confirmed_at,omitempty"`
	VoidedAt     *time.Time            `json:"voided_at,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// InvoiceListItemResponse represents an invoice in list responses
type InvoiceListItemResponse struct {
	ID         uuid.UUID       `json:"id"`
	Number     string          `json:"number"`
	ClientID   uuid.UUID       `json:"client_id"`
	ClientName string          `json:"client_name"`
	IssuedAt   time.Time       `json:"issued_at"`
	LineCount  int             `json:"line_count"`
	Total      decimal.Decimal `json:"total"`
	Status     string          `json:"status"`
}

// SalesStatsResponse represents sales statistics in API responses
type SalesStatsResponse struct {
	DraftCount     int64           `json:"draft_count"`
	ConfirmedCount int64           `json:"confirmed_count"`
	VoidedCount    int64           `json:"voided_count"`
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
	AverageTicket  decimal.Decimal `json:"average_ticket"`
}

// ToInvoiceLineResponse converts a domain line to its response form
func ToInvoiceLineResponse(line *billing.InvoiceLine) InvoiceLineResponse {
	return InvoiceLineResponse{
		ID:          line.ID,
		ProductID:   line.ProductID,
		ProductName: line.ProductName,
		ProductSKU:  line.ProductSKU,
		Quantity:    line.Quantity,
		UnitPrice:   line.UnitPrice,
		Amount:      line.Amount,
	}
}

// ToInvoiceResponse converts a domain invoice to its response form
func ToInvoiceResponse(invoice *billing.Invoice) InvoiceResponse {
	lines := make([]InvoiceLineResponse, 0, len(invoice.Lines))
	for idx := range invoice.Lines {
		lines = append(lines, ToInvoiceLineResponse(&invoice.Lines[idx]))
	}

	return InvoiceResponse{
		ID:           invoice.ID,
		Number:       invoice.Number,
		ClientID:     invoice.ClientID,
		ClientName:   invoice.ClientName,
		IssuedAt:     invoice.IssuedAt,
		Lines:        lines,
		Subtotal:     invoice.Subtotal,
		Tax:          invoice.Tax,
		Total:        invoice.Total,
		Status:       invoice.Status.String(),
		Notes:        invoice.Notes,
		StockApplied: invoice.StockApplied,
		ConfirmedAt:  invoice.ConfirmedAt,
		VoidedAt:     invoice.VoidedAt,
		CreatedAt:    invoice.CreatedAt,
		UpdatedAt:    invoice.UpdatedAt,
	}
}

// ToInvoiceListItemResponses converts domain invoices to list item responses
func ToInvoiceListItemResponses(invoices []billing.Invoice) []InvoiceListItemResponse {
	items := make([]InvoiceListItemResponse, 0, len(invoices))
	for idx := range invoices {
		inv := &invoices[idx]
		items = append(items, InvoiceListItemResponse{
			ID:         inv.ID,
			Number:     inv.Number,
			ClientID:   inv.ClientID,
			ClientName: inv.ClientName,
			IssuedAt:   inv.IssuedAt,
			LineCount:  inv.LineCount(),
			Total:      inv.Total,
			Status:     inv.Status.String(),
		})
	}
	return items
}

// ToSalesStatsResponse converts domain statistics to their response form
func ToSalesStatsResponse(stats *billing.SalesStats) SalesStatsResponse {
	return SalesStatsResponse{
		DraftCount:     stats.DraftCount,
		ConfirmedCount: stats.ConfirmedCount,
		VoidedCount:    stats.VoidedCount,
		TotalRevenue:   stats.TotalRevenue,
		AverageTicket:  stats.AverageTicket,
	}
}
