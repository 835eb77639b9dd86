// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/redline-telecom/redline/models"
	"gorm.io/gorm"
)

// AgencyRepositoryImpl implements AgencyRepository interface
type AgencyRepositoryImpl struct {
	*BaseRepository[models.Agency, models.AgencyFilter]
}

// NewAgencyRepository creates a new agency repository
func NewAgencyRepository(db *gorm.DB) AgencyRepository {
	return &AgencyRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Agency, models.AgencyFilter](db),
	}
}

// ByUUID retrieves an agency by UUID (string)
func (r *AgencyRepositoryImpl) ByUUID(ctx context.Context, uuidStr string) (*models.Agency, error) {
	parsed, err := uuid.Parse(uuidStr)
	if err != nil {
		return nil, err
	}

	filter := models.AgencyFilter{UUID: &parsed}
	items, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items[0], nil
}

// ByName retrieves an agency by its unique name
func (r *AgencyRepositoryImpl) ByName(ctx context.Context, name string) (*models.Agency, error) {
	filter := models.AgencyFilter{Name: &name}
	items, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items[0], nil
}

// applyFilter applies filter criteria to a GORM query
func (r *AgencyRepositoryImpl) applyFilter(query *gorm.DB, filter models.AgencyFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.Name != nil {
		query = query.Where("name = ?", *filter.Name)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

// ByFilter retrieves agencies based on filter criteria
func (r *AgencyRepositoryImpl) ByFilter(ctx context.Context, filter models.AgencyFilter, orderBy string, limit, offset int) ([]*models.Agency, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.Agency{})

	query = r.applyFilter(query, filter)

	if orderBy == "" {
		orderBy = "id DESC"
	}
	query = query.Order(orderBy)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var agencies []*models.Agency
	if err := query.Find(&agencies).Error; err != nil {
		return nil, err
	}
	return agencies, nil
}

// Count returns the number of agencies matching the filter
func (r *AgencyRepositoryImpl) Count(ctx context.Context, filter models.AgencyFilter) (int64, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.Agency{})
	query = r.applyFilter(query, filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any agency matching the filter exists
func (r *AgencyRepositoryImpl) Exists(ctx context.Context, filter models.AgencyFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
