package catalog

import (
	"time"

	"github.com/salescost/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Product represents a sellable product with tracked stock
type Product struct {
	shared.BaseAggregateRoot
	SKU           string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name          string          `gorm:"type:varchar(200);not null"`
	Description   string          `gorm:"type:text"`
	SalePrice     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	CostPrice     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	StockQuantity int64           `gorm:"not null;default:0"`
	Active        bool            `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NewProduct creates a new product
func NewProduct(sku, name string, salePrice decimal.Decimal, stockQuantity int64) (*Product, error) {
	if sku == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Product SKU cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Product name cannot be empty")
	}
	if salePrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Sale price cannot be negative")
	}
	if stockQuantity < 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Stock quantity cannot be negative")
	}

	return &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SKU:               sku,
		Name:              name,
		SalePrice:         salePrice,
		CostPrice:         decimal.Zero,
		StockQuantity:     stockQuantity,
		Active:            true,
	}, nil
}

// HasStock returns true if at least the requested quantity is available
func (p *Product) HasStock(quantity int64) bool {
	return p.StockQuantity >= quantity
}

// Deactivate marks the product as no longer sellable
func (p *Product) Deactivate() {
	p.Active = false
	p.UpdatedAt = time.Now()
}
