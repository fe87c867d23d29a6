package partner

import (
	"github.com/salescost/backend/internal/domain/shared"
)

// Client represents a customer that invoices are issued to
type Client struct {
	shared.BaseAggregateRoot
	Name     string `gorm:"type:varchar(200);not null"`
	Document string `gorm:"type:varchar(50);index"`
	Email    string `gorm:"type:varchar(200)"`
	Phone    string `gorm:"type:varchar(50)"`
	Address  string `gorm:"type:varchar(500)"`
	Active   bool   `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (Client) TableName() string {
	return "clients"
}

// NewClient creates a new client
func NewClient(name, document string) (*Client, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Client name cannot be empty")
	}

	return &Client{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Document:          document,
		Active:            true,
	}, nil
}
