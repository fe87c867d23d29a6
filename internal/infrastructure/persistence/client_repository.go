package persistence

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/salescost/backend/internal/domain/partner"
	"github.com/salescost/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormClientRepository implements ClientRepository using GORM
type GormClientRepository struct {
	db *gorm.DB
}

// NewGormClientRepository creates a new GormClientRepository
func NewGormClientRepository(db *gorm.DB) *GormClientRepository {
	return &GormClientRepository{db: db}
}

// FindByID finds a client by its ID
func (r *GormClientRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.Client, error) {
	var client partner.Client
	if err := r.db.WithContext(ctx).
		First(&client, "id = ?", id).Error; err != nil {
		return nil, wrapDBError(err)
	}
	return &client, nil
}

// Exists reports whether a client with the given ID exists
func (r *GormClientRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&partner.Client{}).
		Where("id = ?", id).
		Count(&count).Error; err != nil {
		return false, wrapDBError(err)
	}
	return count > 0, nil
}

// FindAll finds clients with filtering
func (r *GormClientRepository) FindAll(ctx context.Context, filter shared.Filter) ([]partner.Client, error) {
	var clients []partner.Client
	query := r.db.WithContext(ctx).Model(&partner.Client{})

	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("name ILIKE ? OR document ILIKE ?", searchPattern, searchPattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "active":
			query = query.Where("active = ?", value)
		case "document":
			query = query.Where("document = ?", value)
		}
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		orderDir := "ASC"
		if strings.ToLower(filter.OrderDir) == "desc" {
			orderDir = "DESC"
		}
		query = query.Order(filter.OrderBy + " " + orderDir)
	} else {
		query = query.Order("name ASC")
	}

	if err := query.Find(&clients).Error; err != nil {
		return nil, wrapDBError(err)
	}
	return clients, nil
}

// Save creates or updates a client
func (r *GormClientRepository) Save(ctx context.Context, client *partner.Client) error {
	return wrapDBError(r.db.WithContext(ctx).Save(client).Error)
}

// Ensure GormClientRepository implements ClientRepository
var _ partner.ClientRepository = (*GormClientRepository)(nil)
