package persistence

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/salescost/backend/internal/domain/billing"
	"github.com/salescost/backend/internal/domain/shared"
	"github.com/salescost/backend/internal/infrastructure/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// invoiceNumberPrefix is the prefix of every sequential invoice number.
// Numbers take the form F000001, F000002, ...
const invoiceNumberPrefix = "F"

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice by its ID including its lines
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	var invoice billing.Invoice
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		First(&invoice, "id = ?", id).Error; err != nil {
		return nil, wrapDBError(err)
	}
	return &invoice, nil
}

// FindByIDForUpdate finds an invoice by ID holding a row lock.
// Must run inside a transaction; the lock is released on commit or rollback.
func (r *GormInvoiceRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	var invoice billing.Invoice
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&invoice, "id = ?", id).Error; err != nil {
		return nil, wrapDBError(err)
	}
	if err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoice.ID).
		Order("created_at ASC").
		Find(&invoice.Lines).Error; err != nil {
		return nil, wrapDBError(err)
	}
	return &invoice, nil
}

// FindByLineID finds the invoice that owns the given line
func (r *GormInvoiceRepository) FindByLineID(ctx context.Context, lineID uuid.UUID) (*billing.Invoice, error) {
	var line billing.InvoiceLine
	if err := r.db.WithContext(ctx).
		First(&line, "id = ?", lineID).Error; err != nil {
		return nil, wrapDBError(err)
	}
	return r.FindByID(ctx, line.InvoiceID)
}

// FindByNumber finds an invoice by its business number
func (r *GormInvoiceRepository) FindByNumber(ctx context.Context, number string) (*billing.Invoice, error) {
	var invoice billing.Invoice
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("number = ?", number).
		First(&invoice).Error; err != nil {
		return nil, wrapDBError(err)
	}
	return &invoice, nil
}

// FindAll finds invoices with filtering and pagination
func (r *GormInvoiceRepository) FindAll(ctx context.Context, filter shared.Filter) ([]billing.Invoice, error) {
	var invoices []billing.Invoice
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&billing.Invoice{}).Preload("Lines"),
		filter,
	)

	if err := query.Find(&invoices).Error; err != nil {
		return nil, wrapDBError(err)
	}
	return invoices, nil
}

// Count counts invoices matching the filter
func (r *GormInvoiceRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(
		r.db.WithContext(ctx).Model(&billing.Invoice{}),
		filter,
	)

	if err := query.Count(&count).Error; err != nil {
		return 0, wrapDBError(err)
	}
	return count, nil
}

// Save creates or updates an invoice and its lines
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Lines").Save(invoice).Error; err != nil {
			return err
		}

		// Delete lines no longer on the invoice, then upsert the rest
		currentLineIDs := make([]uuid.UUID, len(invoice.Lines))
		for i, line := range invoice.Lines {
			currentLineIDs[i] = line.ID
		}

		if len(currentLineIDs) > 0 {
			if err := tx.Where("invoice_id = ? AND id NOT IN ?", invoice.ID, currentLineIDs).
				Delete(&billing.InvoiceLine{}).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Where("invoice_id = ?", invoice.ID).
				Delete(&billing.InvoiceLine{}).Error; err != nil {
				return err
			}
		}

		for i := range invoice.Lines {
			invoice.Lines[i].InvoiceID = invoice.ID
			if err := tx.Save(&invoice.Lines[i]).Error; err != nil {
				return err
			}
		}

		return nil
	})
	return wrapDBError(err)
}

// Delete removes an invoice and its lines
func (r *GormInvoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", id).Delete(&billing.InvoiceLine{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&billing.Invoice{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
	return wrapDBError(err)
}

// NextInvoiceNumber reserves the next sequential invoice number.
// It scans existing numbers of the form F<digits> and returns max+1
// zero-padded to six digits. If the scan fails, a timestamp-based
// number is issued so invoicing keeps working.
func (r *GormInvoiceRepository) NextInvoiceNumber(ctx context.Context) (string, error) {
	var numbers []string
	if err := r.db.WithContext(ctx).
		Model(&billing.Invoice{}).
		Where("number LIKE ?", invoiceNumberPrefix+"%").
		Pluck("number", &numbers).Error; err != nil {
		fallback := fmt.Sprintf("%s%d", invoiceNumberPrefix, time.Now().Unix())
		logger.L(ctx).Warn("Invoice number scan failed, issuing timestamp-based number",
			zap.String("number", fallback),
			zap.Error(err),
		)
		return fallback, nil
	}

	var max int64
	for _, number := range numbers {
		digits := strings.TrimPrefix(number, invoiceNumberPrefix)
		n, err := strconv.ParseInt(digits, 10, 64)
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}

	return fmt.Sprintf("%s%06d", invoiceNumberPrefix, max+1), nil
}

// Stats computes invoice counts per status and confirmed revenue,
// optionally bounded by issue date
func (r *GormInvoiceRepository) Stats(ctx context.Context, query billing.StatsQuery) (*billing.SalesStats, error) {
	scope := func(tx *gorm.DB) *gorm.DB {
		if query.From != nil {
			tx = tx.Where("issued_at >= ?", *query.From)
		}
		if query.To != nil {
			tx = tx.Where("issued_at <= ?", *query.To)
		}
		return tx
	}

	var counts []struct {
		Status string
		Total  int64
	}
	if err := scope(r.db.WithContext(ctx).Model(&billing.Invoice{})).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&counts).Error; err != nil {
		return nil, wrapDBError(err)
	}

	stats := &billing.SalesStats{
		TotalRevenue:  decimal.Zero,
		AverageTicket: decimal.Zero,
	}
	for _, c := range counts {
		switch billing.InvoiceStatus(c.Status) {
		case billing.InvoiceStatusDraft:
			stats.DraftCount = c.Total
		case billing.InvoiceStatusConfirmed:
			stats.ConfirmedCount = c.Total
		case billing.InvoiceStatusVoided:
			stats.VoidedCount = c.Total
		}
	}

	var revenue struct {
		Revenue decimal.Decimal
	}
	if err := scope(r.db.WithContext(ctx).Model(&billing.Invoice{})).
		Select("COALESCE(SUM(total), 0) AS revenue").
		Where("status = ?", billing.InvoiceStatusConfirmed).
		Scan(&revenue).Error; err != nil {
		return nil, wrapDBError(err)
	}

	stats.TotalRevenue = revenue.Revenue
	if stats.ConfirmedCount > 0 {
		stats.AverageTicket = stats.TotalRevenue.
			Div(decimal.NewFromInt(stats.ConfirmedCount)).
			Round(2)
	}

	return stats, nil
}

// applyFilter applies filter options to the query
func (r *GormInvoiceRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	// Apply pagination
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	// Apply ordering
	if filter.OrderBy != "" {
		orderDir := "ASC"
		if strings.ToLower(filter.OrderDir) == "desc" {
			orderDir = "DESC"
		}
		query = query.Order(filter.OrderBy + " " + orderDir)
	} else {
		// Newest invoices first, id breaks issued_at ties
		query = query.Order("issued_at DESC, id DESC")
	}

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormInvoiceRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	// Apply search
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("number ILIKE ? OR client_name ILIKE ?",
			searchPattern, searchPattern)
	}

	// Apply additional filters
	for key, value := range filter.Filters {
		switch key {
		case "client_id":
			query = query.Where("client_id = ?", value)
		case "status":
			query = query.Where("status = ?", value)
		case "number":
			if number, ok := value.(string); ok && number != "" {
				query = query.Where("number LIKE ?", "%"+number+"%")
			}
		case "issued_from":
			if t, ok := value.(time.Time); ok {
				query = query.Where("issued_at >= ?", t)
			}
		case "issued_to":
			if t, ok := value.(time.Time); ok {
				query = query.Where("issued_at <= ?", t)
			}
		}
	}

	return query
}

// Ensure GormInvoiceRepository implements InvoiceRepository
var _ billing.InvoiceRepository = (*GormInvoiceRepository)(nil)
