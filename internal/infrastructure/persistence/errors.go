package persistence

import (
	"errors"

	"github.com/salescost/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// wrapDBError maps persistence failures to domain errors so callers see a
// stable code instead of driver internals. Domain errors pass through
// untouched; failed SQL is already logged by the gorm logger adapter.
func wrapDBError(err error) error {
	if err == nil {
		return nil
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return err
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return shared.ErrAlreadyExists
	default:
		return shared.NewDatabaseError(err)
	}
}
