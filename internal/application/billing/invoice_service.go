package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/salescost/backend/internal/domain/billing"
	"github.com/salescost/backend/internal/domain/catalog"
	"github.com/salescost/backend/internal/domain/shared"
	"github.com/salescost/backend/internal/domain/shared/valueobject"
)

// InvoiceService handles invoice lifecycle operations
// Mutations run inside a TransactionScope so stock adjustments and invoice
// state changes commit or roll back together
type InvoiceService struct {
	invoiceRepo billing.InvoiceRepository
	scope       TransactionScope
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(invoiceRepo billing.InvoiceRepository, scope TransactionScope) *InvoiceService {
	return &InvoiceService{
		invoiceRepo: invoiceRepo,
		scope:       scope,
	}
}

// insufficientStock builds the stock error naming the product and amounts
func insufficientStock(product *catalog.Product, requested int64) error {
	return shared.NewDomainError(
		"INSUFFICIENT_STOCK",
		fmt.Sprintf("Insufficient stock for %s: available %d, requested %d", product.Name, product.StockQuantity, requested),
	).WithDetails(map[string]any{
		"product_id":   product.ID.String(),
		"product_name": product.Name,
		"available":    product.StockQuantity,
		"requested":    requested,
	})
}

// createAttempts bounds the retries when a reserved invoice number loses
// a concurrent race to the unique index
const createAttempts = 3

// Create creates a new draft invoice, reserving the next invoice number
// in the same transaction as the insert. Two concurrent creators can read
// the same maximum; the loser fails on the number's unique index and the
// whole transaction is retried with a fresh number
func (s *InvoiceService) Create(ctx context.Context, req CreateInvoiceRequest) (*InvoiceResponse, error) {
	var response InvoiceResponse

	var err error
	for attempt := 0; attempt < createAttempts; attempt++ {
		err = s.createOnce(ctx, req, &response)
		if !errors.Is(err, shared.ErrAlreadyExists) {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	return &response, nil
}

func (s *InvoiceService) createOnce(ctx context.Context, req CreateInvoiceRequest, response *InvoiceResponse) error {
	return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		client, err := repos.ClientRepo().FindByID(ctx, req.ClientID)
		if err != nil {
			return err
		}

		number, err := repos.InvoiceRepo().NextInvoiceNumber(ctx)
		if err != nil {
			return err
		}

		invoice, err := billing.NewInvoice(number, client.ID, client.Name, req.Notes)
		if err != nil {
			return err
		}

		if err := repos.InvoiceRepo().Save(ctx, invoice); err != nil {
			return err
		}

		*response = ToInvoiceResponse(invoice)
		return nil
	})
}

// AddLine adds a product line to a draft invoice
// The stock check here is best-effort over the added quantity only; no stock
// is reserved until Confirm, which re-validates under row locks
func (s *InvoiceService) AddLine(ctx context.Context, invoiceID uuid.UUID, req AddLineRequest) (*InvoiceResponse, error) {
	var response InvoiceResponse

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		invoice, err := repos.InvoiceRepo().FindByIDForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}

		product, err := repos.ProductRepo().FindByID(ctx, req.ProductID)
		if err != nil {
			return err
		}
		if !product.Active {
			return shared.ErrBusinessRule.WithDetails(map[string]any{
				"reason":     "product is inactive",
				"product_id": product.ID.String(),
			})
		}
		if !product.HasStock(req.Quantity) {
			return insufficientStock(product, req.Quantity)
		}

		// An omitted unit price falls back to the product's sale price
		unitPrice := valueobject.NewMoneyCOP(product.SalePrice)
		if req.UnitPrice != nil {
			unitPrice = valueobject.NewMoneyCOP(*req.UnitPrice)
		}
		if _, err := invoice.AddLine(product.ID, product.Name, product.SKU, req.Quantity, unitPrice); err != nil {
			return err
		}

		if err := repos.InvoiceRepo().Save(ctx, invoice); err != nil {
			return err
		}

		response = ToInvoiceResponse(invoice)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &response, nil
}

// UpdateLine replaces the quantity and unit price of an invoice line
func (s *InvoiceService) UpdateLine(ctx context.Context, lineID uuid.UUID, req UpdateLineRequest) (*InvoiceResponse, error) {
	var response InvoiceResponse

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		owner, err := repos.InvoiceRepo().FindByLineID(ctx, lineID)
		if err != nil {
			return err
		}
		invoice, err := repos.InvoiceRepo().FindByIDForUpdate(ctx, owner.ID)
		if err != nil {
			return err
		}

		unitPrice := valueobject.NewMoneyCOP(req.UnitPrice)
		if err := invoice.UpdateLine(lineID, req.Quantity, unitPrice); err != nil {
			return err
		}

		if err := repos.InvoiceRepo().Save(ctx, invoice); err != nil {
			return err
		}

		response = ToInvoiceResponse(invoice)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &response, nil
}

// RemoveLine removes a line from a draft invoice
func (s *InvoiceService) RemoveLine(ctx context.Context, lineID uuid.UUID) (*InvoiceResponse, error) {
	var response InvoiceResponse

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		owner, err := repos.InvoiceRepo().FindByLineID(ctx, lineID)
		if err != nil {
			return err
		}
		invoice, err := repos.InvoiceRepo().FindByIDForUpdate(ctx, owner.ID)
		if err != nil {
			return err
		}

		if err := invoice.RemoveLine(lineID); err != nil {
			return err
		}

		if err := repos.InvoiceRepo().Save(ctx, invoice); err != nil {
			return err
		}

		response = ToInvoiceResponse(invoice)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &response, nil
}

// Confirm transitions a draft invoice to confirmed and decrements stock
// for every line. Each product row is locked before validation, so a failed
// check rolls back the whole operation with stock untouched
func (s *InvoiceService) Confirm(ctx context.Context, invoiceID uuid.UUID) (*InvoiceResponse, error) {
	var response InvoiceResponse

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		invoice, err := repos.InvoiceRepo().FindByIDForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if !invoice.IsDraft() {
			return shared.ErrInvalidState.WithDetails(map[string]any{
				"status": invoice.Status.String(),
				"action": "confirm",
			})
		}

		for idx := range invoice.Lines {
			line := &invoice.Lines[idx]
			product, err := repos.ProductRepo().FindByIDForUpdate(ctx, line.ProductID)
			if err != nil {
				return err
			}
			if !product.HasStock(line.Quantity) {
				return insufficientStock(product, line.Quantity)
			}
			if err := repos.ProductRepo().AdjustStock(ctx, product.ID, -line.Quantity); err != nil {
				return err
			}
		}

		if err := invoice.Confirm(); err != nil {
			return err
		}

		if err := repos.InvoiceRepo().Save(ctx, invoice); err != nil {
			return err
		}

		response = ToInvoiceResponse(invoice)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &response, nil
}

// Void cancels a draft or confirmed invoice. Stock is restored only when
// confirmation had applied it
func (s *InvoiceService) Void(ctx context.Context, invoiceID uuid.UUID, req VoidInvoiceRequest) (*InvoiceResponse, error) {
	var response InvoiceResponse

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		invoice, err := repos.InvoiceRepo().FindByIDForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}

		restoreStock := invoice.StockApplied

		if err := invoice.Void(req.Reason); err != nil {
			return err
		}

		if restoreStock {
			for idx := range invoice.Lines {
				line := &invoice.Lines[idx]
				if _, err := repos.ProductRepo().FindByIDForUpdate(ctx, line.ProductID); err != nil {
					return err
				}
				if err := repos.ProductRepo().AdjustStock(ctx, line.ProductID, line.Quantity); err != nil {
					return err
				}
			}
		}

		if err := repos.InvoiceRepo().Save(ctx, invoice); err != nil {
			return err
		}

		response = ToInvoiceResponse(invoice)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &response, nil
}

// Delete removes a draft invoice and its lines
func (s *InvoiceService) Delete(ctx context.Context, invoiceID uuid.UUID) error {
	return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		invoice, err := repos.InvoiceRepo().FindByIDForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if !invoice.IsDraft() {
			return shared.ErrInvalidState.WithDetails(map[string]any{
				"status": invoice.Status.String(),
				"action": "delete",
			})
		}
		return repos.InvoiceRepo().Delete(ctx, invoice.ID)
	})
}

// GetByID retrieves an invoice by ID including its lines
func (s *InvoiceService) GetByID(ctx context.Context, invoiceID uuid.UUID) (*InvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	response := ToInvoiceResponse(invoice)
	return &response, nil
}

// GetByNumber retrieves an invoice by its assigned number
func (s *InvoiceService) GetByNumber(ctx context.Context, number string) (*InvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	response := ToInvoiceResponse(invoice)
	return &response, nil
}

// List retrieves invoices with filtering and pagination
func (s *InvoiceService) List(ctx context.Context, filter InvoiceListFilter) ([]InvoiceListItemResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "issued_at"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "desc"
	}

	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Filters:  make(map[string]interface{}),
	}

	if filter.ClientID != nil {
		domainFilter.Filters["client_id"] = *filter.ClientID
	}
	if filter.Status != nil {
		domainFilter.Filters["status"] = string(*filter.Status)
	}
	if filter.Number != "" {
		domainFilter.Filters["number"] = filter.Number
	}
	if filter.IssuedFrom != nil {
		domainFilter.Filters["issued_from"] = *filter.IssuedFrom
	}
	if filter.IssuedTo != nil {
		domainFilter.Filters["issued_to"] = *filter.IssuedTo
	}

	invoices, err := s.invoiceRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.invoiceRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	return ToInvoiceListItemResponses(invoices), total, nil
}

// Stats computes sales statistics, optionally bounded by issue date
func (s *InvoiceService) Stats(ctx context.Context, filter StatsFilter) (*SalesStatsResponse, error) {
	stats, err := s.invoiceRepo.Stats(ctx, billing.StatsQuery{
		From: filter.From,
		To:   filter.To,
	})
	if err != nil {
		return nil, err
	}
	response := ToSalesStatsResponse(stats)
	return &response, nil
}
