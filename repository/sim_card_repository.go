// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"strconv"

	"github.com/redline-telecom/redline/models"
	"github.com/redline-telecom/redline/utils"
	"gorm.io/gorm"
)

// SIMCardRepositoryImpl implements SIMCardRepository interface
type SIMCardRepositoryImpl struct {
	*BaseRepository[models.SIMCard, models.SIMCardFilter]
}

// NewSIMCardRepository creates a new SIM card repository
func NewSIMCardRepository(db *gorm.DB) SIMCardRepository {
	return &SIMCardRepositoryImpl{
		BaseRepository: NewBaseRepository[models.SIMCard, models.SIMCardFilter](db),
	}
}

// ByICCID retrieves a SIM card by its ICCID
func (r *SIMCardRepositoryImpl) ByICCID(ctx context.Context, iccid string) (*models.SIMCard, error) {
	filter := models.SIMCardFilter{ICCID: &iccid}
	items, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items[0], nil
}

// ListInStockByAgency retrieves unconsumed SIM cards of an agency, newest first
func (r *SIMCardRepositoryImpl) ListInStockByAgency(ctx context.Context, agencyID uint) ([]*models.SIMCard, error) {
	inStock := models.SIMStatusInStock
	filter := models.SIMCardFilter{AgencyID: &agencyID, Status: &inStock}
	return r.ByFilter(ctx, filter, "created_at DESC", 0, 0)
}

// applyFilter applies filter criteria to a GORM query
func (r *SIMCardRepositoryImpl) applyFilter(query *gorm.DB, filter models.SIMCardFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.ICCID != nil {
		query = query.Where("iccid = ?", *filter.ICCID)
	}
	if filter.AgencyID != nil {
		query = query.Where("agency_id = ?", *filter.AgencyID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

// ByFilter retrieves SIM cards based on filter criteria
func (r *SIMCardRepositoryImpl) ByFilter(ctx context.Context, filter models.SIMCardFilter, orderBy string, limit, offset int) ([]*models.SIMCard, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.SIMCard{})

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

	var cards []*models.SIMCard
	if err := query.Find(&cards).Error; err != nil {
		return nil, err
	}
	return cards, nil
}

// Count returns the number of SIM cards matching the filter
func (r *SIMCardRepositoryImpl) Count(ctx context.Context, filter models.SIMCardFilter) (int64, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.SIMCard{})
	query = r.applyFilter(query, filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any SIM card matching the filter exists
func (r *SIMCardRepositoryImpl) Exists(ctx context.Context, filter models.SIMCardFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Update updates mutable fields for a SIM card by ID
func (r *SIMCardRepositoryImpl) Update(ctx context.Context, card *models.SIMCard) error {
	if card == nil {
		return errors.New("sim card payload is nil")
	}
	if card.ID == 0 {
		return errors.New("sim card ID is required for update")
	}

	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}
	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	updates := map[string]any{
		"updated_at": utils.UTCNow(),
	}
	if card.Status != "" {
		updates["status"] = card.Status
	}
	if card.AgencyID != 0 {
		updates["agency_id"] = card.AgencyID
	}

	result := db.Model(&models.SIMCard{}).
		Where("id = ?", card.ID).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("sim card not found with ID: " + strconv.Itoa(int(card.ID)))
	}
	return nil
}
