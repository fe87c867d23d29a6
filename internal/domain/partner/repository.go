package partner

import (
	"context"

	"github.com/google/uuid"
	"github.com/salescost/backend/internal/domain/shared"
)

// ClientRepository defines the interface for client persistence
type ClientRepository interface {
	// FindByID finds a client by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Client, error)

	// Exists reports whether a client with the given ID exists
	Exists(ctx context.Context, id uuid.UUID) (bool, error)

	// FindAll finds clients with filtering
	FindAll(ctx context.Context, filter shared.Filter) ([]Client, error)

	// Save creates or updates a client
	Save(ctx context.Context, client *Client) error
}
