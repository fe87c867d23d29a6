package billing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/salescost/backend/internal/domain/shared"
	"github.com/salescost/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "DRAFT"
	InvoiceStatusConfirmed InvoiceStatus = "CONFIRMED"
	InvoiceStatusVoided    InvoiceStatus = "VOIDED"
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusConfirmed, InvoiceStatusVoided:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s InvoiceStatus) CanTransitionTo(target InvoiceStatus) bool {
	switch s {
	case InvoiceStatusDraft:
		return target == InvoiceStatusConfirmed || target == InvoiceStatusVoided
	case InvoiceStatusConfirmed:
		return target == InvoiceStatusVoided
	case InvoiceStatusVoided:
		return false // Terminal state
	}
	return false
}

// Business limits for invoice lines and notes
const (
	MinLineQuantity = int64(1)
	MaxLineQuantity = int64(999999)
	MaxNotesLength  = 500
)

// TaxRate is the fixed IVA rate applied to every invoice subtotal
var TaxRate = decimal.NewFromFloat(0.19)

// MinUnitPrice and MaxUnitPrice bound the accepted unit price range
var (
	MinUnitPrice = decimal.NewFromFloat(0.01)
	MaxUnitPrice = decimal.NewFromFloat(999999.99)
)

// validateQuantity checks the line quantity against business limits
func validateQuantity(quantity int64) error {
	if quantity < MinLineQuantity || quantity > MaxLineQuantity {
		return shared.ErrInvalidInput.WithDetails(map[string]any{
			"field":    "quantity",
			"quantity": quantity,
			"min":      MinLineQuantity,
			"max":      MaxLineQuantity,
		})
	}
	return nil
}

// validateUnitPrice checks the unit price range and decimal precision
func validateUnitPrice(unitPrice decimal.Decimal) error {
	if unitPrice.LessThan(MinUnitPrice) || unitPrice.GreaterThan(MaxUnitPrice) {
		return shared.ErrInvalidInput.WithDetails(map[string]any{
			"field":      "unit_price",
			"unit_price": unitPrice.String(),
			"min":        MinUnitPrice.String(),
			"max":        MaxUnitPrice.String(),
		})
	}
	if !unitPrice.Round(2).Equal(unitPrice) {
		return shared.ErrInvalidInput.WithDetails(map[string]any{
			"field":      "unit_price",
			"unit_price": unitPrice.String(),
			"reason":     "at most two decimal places allowed",
		})
	}
	return nil
}

// validateNotes checks the notes length limit
func validateNotes(notes string) error {
	if len(notes) > MaxNotesLength {
		return shared.ErrInvalidInput.WithDetails(map[string]any{
			"field":  "notes",
			"length": len(notes),
			"max":    MaxNotesLength,
		})
	}
	return nil
}

// InvoiceLine represents a line item on an invoice
type InvoiceLine struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	InvoiceID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null"`
	ProductName string          `gorm:"type:varchar(200);not null"`
	ProductSKU  string          `gorm:"type:varchar(50);not null"`
	Quantity    int64           `gorm:"not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null"` // Quantity * UnitPrice
	CreatedAt   time.Time       `gorm:"not null"`
	UpdatedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InvoiceLine) TableName() string {
	return "invoice_lines"
}

// NewInvoiceLine creates a new invoice line
func NewInvoiceLine(invoiceID, productID uuid.UUID, productName, productSKU string, quantity int64, unitPrice valueobject.Money) (*InvoiceLine, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Product ID cannot be empty")
	}
	if productName == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Product name cannot be empty")
	}
	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}
	if err := validateUnitPrice(unitPrice.Amount()); err != nil {
		return nil, err
	}

	now := time.Now()
	price := unitPrice.Amount()
	return &InvoiceLine{
		ID:          uuid.New(),
		InvoiceID:   invoiceID,
		ProductID:   productID,
		ProductName: productName,
		ProductSKU:  productSKU,
		Quantity:    quantity,
		UnitPrice:   price,
		Amount:      price.Mul(decimal.NewFromInt(quantity)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// update replaces quantity and unit price and recomputes the amount
func (l *InvoiceLine) update(quantity int64, unitPrice decimal.Decimal) {
	l.Quantity = quantity
	l.UnitPrice = unitPrice
	l.Amount = unitPrice.Mul(decimal.NewFromInt(quantity))
	l.UpdatedAt = time.Now()
}

// Invoice represents a sales invoice aggregate root
// It manages the lifecycle from draft through confirmation to voiding,
// keeping subtotal, tax and total consistent with its lines at all times
type Invoice struct {
	shared.BaseAggregateRoot
	Number       string          `gorm:"type:varchar(20);not null;uniqueIndex"`
	ClientID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	ClientName   string          `gorm:"type:varchar(200);not null"`
	IssuedAt     time.Time       `gorm:"not null;index"`
	Lines        []InvoiceLine   `gorm:"foreignKey:InvoiceID"`
	Subtotal     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Tax          decimal.Decimal `gorm:"type:decimal(18,2);not null"` // round(Subtotal * TaxRate, 2)
	Total        decimal.Decimal `gorm:"type:decimal(18,2);not null"` // Subtotal + Tax
	Status       InvoiceStatus   `gorm:"type:varchar(20);not null;index"`
	Notes        string          `gorm:"type:text"`
	StockApplied bool            `gorm:"not null;default:false"` // set when confirmation decremented stock
	ConfirmedAt  *time.Time
	VoidedAt     *time.Time
	VoidReason   string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (Invoice) TableName() string {
	return "invoices"
}

// NewInvoice creates a new draft invoice
func NewInvoice(number string, clientID uuid.UUID, clientName, notes string) (*Invoice, error) {
	if number == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Invoice number cannot be empty")
	}
	if clientID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Client ID cannot be empty")
	}
	if err := validateNotes(notes); err != nil {
		return nil, err
	}

	return &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Number:            number,
		ClientID:          clientID,
		ClientName:        clientName,
		IssuedAt:          time.Now(),
		Lines:             make([]InvoiceLine, 0),
		Subtotal:          decimal.Zero,
		Tax:               decimal.Zero,
		Total:             decimal.Zero,
		Status:            InvoiceStatusDraft,
		Notes:             notes,
	}, nil
}

// AddLine adds a product to the invoice
// If the product already has a line, the quantities are merged and the
// latest unit price replaces the previous one
// Only allowed in DRAFT status
func (i *Invoice) AddLine(productID uuid.UUID, productName, productSKU string, quantity int64, unitPrice valueobject.Money) (*InvoiceLine, error) {
	if i.Status != InvoiceStatusDraft {
		return nil, shared.ErrInvalidState.WithDetails(map[string]any{
			"status": i.Status.String(),
			"action": "add_line",
		})
	}

	if existing := i.GetLineByProduct(productID); existing != nil {
		if err := validateQuantity(quantity); err != nil {
			return nil, err
		}
		if err := validateUnitPrice(unitPrice.Amount()); err != nil {
			return nil, err
		}
		merged := existing.Quantity + quantity
		if merged > MaxLineQuantity {
			return nil, shared.ErrInvalidInput.WithDetails(map[string]any{
				"field":    "quantity",
				"quantity": merged,
				"max":      MaxLineQuantity,
			})
		}
		existing.update(merged, unitPrice.Amount())
		i.recalculateTotals()
		i.UpdatedAt = time.Now()
		return existing, nil
	}

	line, err := NewInvoiceLine(i.ID, productID, productName, productSKU, quantity, unitPrice)
	if err != nil {
		return nil, err
	}

	i.Lines = append(i.Lines, *line)
	i.recalculateTotals()
	i.UpdatedAt = time.Now()

	return &i.Lines[len(i.Lines)-1], nil
}

// UpdateLine replaces the quantity and unit price of an existing line
// Only allowed in DRAFT status
func (i *Invoice) UpdateLine(lineID uuid.UUID, quantity int64, unitPrice valueobject.Money) error {
	if i.Status != InvoiceStatusDraft {
		return shared.ErrInvalidState.WithDetails(map[string]any{
			"status": i.Status.String(),
			"action": "update_line",
		})
	}
	if err := validateQuantity(quantity); err != nil {
		return err
	}
	if err := validateUnitPrice(unitPrice.Amount()); err != nil {
		return err
	}

	for idx := range i.Lines {
		if i.Lines[idx].ID == lineID {
			i.Lines[idx].update(quantity, unitPrice.Amount())
			i.recalculateTotals()
			i.UpdatedAt = time.Now()
			return nil
		}
	}

	return shared.ErrNotFound.WithDetails(map[string]any{
		"resource": "invoice_line",
		"line_id":  lineID.String(),
	})
}

// RemoveLine removes a line from the invoice
// Only allowed in DRAFT status
func (i *Invoice) RemoveLine(lineID uuid.UUID) error {
	if i.Status != InvoiceStatusDraft {
		return shared.ErrInvalidState.WithDetails(map[string]any{
			"status": i.Status.String(),
			"action": "remove_line",
		})
	}

	for idx, line := range i.Lines {
		if line.ID == lineID {
			i.Lines = append(i.Lines[:idx], i.Lines[idx+1:]...)
			i.recalculateTotals()
			i.UpdatedAt = time.Now()
			return nil
		}
	}

	return shared.ErrNotFound.WithDetails(map[string]any{
		"resource": "invoice_line",
		"line_id":  lineID.String(),
	})
}

// SetNotes replaces the invoice notes
// Only allowed in DRAFT status
func (i *Invoice) SetNotes(notes string) error {
	if i.Status != InvoiceStatusDraft {
		return shared.ErrInvalidState.WithDetails(map[string]any{
			"status": i.Status.String(),
			"action": "set_notes",
		})
	}
	if err := validateNotes(notes); err != nil {
		return err
	}
	i.Notes = notes
	i.UpdatedAt = time.Now()
	return nil
}

// Confirm transitions the invoice from DRAFT to CONFIRMED and records
// that stock has been applied. The caller must have decremented stock
// for every line before confirming
func (i *Invoice) Confirm() error {
	if !i.Status.CanTransitionTo(InvoiceStatusConfirmed) {
		return shared.ErrInvalidState.WithDetails(map[string]any{
			"status": i.Status.String(),
			"action": "confirm",
		})
	}
	if len(i.Lines) == 0 {
		return shared.ErrBusinessRule.WithDetails(map[string]any{
			"reason": "cannot confirm an invoice without lines",
		})
	}

	now := time.Now()
	i.Status = InvoiceStatusConfirmed
	i.StockApplied = true
	i.ConfirmedAt = &now
	i.UpdatedAt = now

	return nil
}

// Void cancels the invoice from DRAFT or CONFIRMED status and annotates
// the notes with the reason. Stock restoration is the caller's concern,
// driven by StockApplied
func (i *Invoice) Void(reason string) error {
	if !i.Status.CanTransitionTo(InvoiceStatusVoided) {
		return shared.ErrInvalidState.WithDetails(map[string]any{
			"status": i.Status.String(),
			"action": "void",
		})
	}

	now := time.Now()
	i.Status = InvoiceStatusVoided
	i.VoidedAt = &now
	i.VoidReason = reason
	if reason != "" {
		i.Notes += fmt.Sprintf("\n[VOIDED] %s", reason)
	} else {
		i.Notes += "\n[VOIDED]"
	}
	i.UpdatedAt = now

	return nil
}

// recalculateTotals recomputes subtotal, tax and total from the lines
func (i *Invoice) recalculateTotals() {
	subtotal := decimal.Zero
	for _, line := range i.Lines {
		subtotal = subtotal.Add(line.Amount)
	}
	i.Subtotal = subtotal
	i.Tax = subtotal.Mul(TaxRate).Round(2)
	i.Total = i.Subtotal.Add(i.Tax)
}

// LineCount returns the number of lines on the invoice
func (i *Invoice) LineCount() int {
	return len(i.Lines)
}

// IsDraft returns true if the invoice is in draft status
func (i *Invoice) IsDraft() bool {
	return i.Status == InvoiceStatusDraft
}

// IsConfirmed returns true if the invoice is confirmed
func (i *Invoice) IsConfirmed() bool {
	return i.Status == InvoiceStatusConfirmed
}

// IsVoided returns true if the invoice is voided
func (i *Invoice) IsVoided() bool {
	return i.Status == InvoiceStatusVoided
}

// CanModify returns true if lines and notes can still change
func (i *Invoice) CanModify() bool {
	return i.IsDraft()
}

// GetLine returns a line by its ID
func (i *Invoice) GetLine(lineID uuid.UUID) *InvoiceLine {
	for idx := range i.Lines {
		if i.Lines[idx].ID == lineID {
			return &i.Lines[idx]
		}
	}
	return nil
}

// GetLineByProduct returns a line by product ID
func (i *Invoice) GetLineByProduct(productID uuid.UUID) *InvoiceLine {
	for idx := range i.Lines {
		if i.Lines[idx].ProductID == productID {
			return &i.Lines[idx]
		}
	}
	return nil
}
