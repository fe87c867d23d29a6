package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/salescost/backend/internal/domain/shared"
)

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	// FindByID finds a product by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindByIDForUpdate finds a product by ID with a row lock,
	// must be called inside a transaction
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindAll finds products with filtering
	FindAll(ctx context.Context, filter shared.Filter) ([]Product, error)

	// Save creates or updates a product
	Save(ctx context.Context, product *Product) error

	// AdjustStock applies a relative stock delta (negative to decrement)
	AdjustStock(ctx context.Context, id uuid.UUID, delta int64) error
}
