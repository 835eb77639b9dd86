// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/redline-telecom/redline/models"
	"github.com/redline-telecom/redline/utils"
	"gorm.io/gorm"
)

// LineRequestRepositoryImpl implements LineRequestRepository interface
type LineRequestRepositoryImpl struct {
	*BaseRepository[models.LineRequest, models.LineRequestFilter]
}

// NewLineRequestRepository creates a new line request repository
func NewLineRequestRepository(db *gorm.DB) LineRequestRepository {
	return &LineRequestRepositoryImpl{
		BaseRepository: NewBaseRepository[models.LineRequest, models.LineRequestFilter](db),
	}
}

// ByUUID retrieves a line request by UUID (string)
func (r *LineRequestRepositoryImpl) ByUUID(ctx context.Context, uuidStr string) (*models.LineRequest, error) {
	parsed, err := uuid.Parse(uuidStr)
	if err != nil {
		return nil, err
	}

	filter := models.LineRequestFilter{UUID: &parsed}
	items, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items[0], nil
}

// ListPending retrieves an agency's pending requests, oldest first. An
// agencyID of zero lists the backlog across all agencies.
func (r *LineRequestRepositoryImpl) ListPending(ctx context.Context, agencyID uint, limit, offset int) ([]*models.LineRequest, error) {
	pending := models.RequestStatusPending
	filter := models.LineRequestFilter{Status: &pending}
	if agencyID != 0 {
		filter.AgencyID = &agencyID
	}
	return r.ByFilter(ctx, filter, "created_at ASC", limit, offset)
}

// ListPendingByAccount retrieves pending requests queued against an account,
// highest priority first, creation time breaking ties
func (r *LineRequestRepositoryImpl) ListPendingByAccount(ctx context.Context, redAccountID uint) ([]*models.LineRequest, error) {
	pending := models.RequestStatusPending
	filter := models.LineRequestFilter{Status: &pending, RedAccountID: &redAccountID}
	return r.ByFilter(ctx, filter, "priority DESC, created_at ASC", 0, 0)
}

// ListByClient retrieves a client's requests, newest first
func (r *LineRequestRepositoryImpl) ListByClient(ctx context.Context, clientID uint, limit, offset int) ([]*models.LineRequest, error) {
	filter := models.LineRequestFilter{ClientID: &clientID}
	return r.ByFilter(ctx, filter, "created_at DESC", limit, offset)
}

// NextQueued returns the head of the quota queue for an account, or nil when
// nothing is waiting
func (r *LineRequestRepositoryImpl) NextQueued(ctx context.Context, redAccountID uint) (*models.LineRequest, error) {
	pending := models.RequestStatusPending
	filter := models.LineRequestFilter{Status: &pending, RedAccountID: &redAccountID}
	items, err := r.ByFilter(ctx, filter, "priority DESC, created_at ASC", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items[0], nil
}

// applyFilter applies filter criteria to a GORM query
func (r *LineRequestRepositoryImpl) applyFilter(query *gorm.DB, filter models.LineRequestFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.ClientID != nil {
		query = query.Where("client_id = ?", *filter.ClientID)
	}
	if filter.AgencyID != nil {
		query = query.Where("agency_id = ?", *filter.AgencyID)
	}
	if filter.RedAccountID != nil {
		query = query.Where("red_account_id = ?", *filter.RedAccountID)
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

// ByFilter retrieves line requests based on filter criteria
func (r *LineRequestRepositoryImpl) ByFilter(ctx context.Context, filter models.LineRequestFilter, orderBy string, limit, offset int) ([]*models.LineRequest, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.LineRequest{})

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

	var requests []*models.LineRequest
	if err := query.Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

// Count returns the number of line requests matching the filter
func (r *LineRequestRepositoryImpl) Count(ctx context.Context, filter models.LineRequestFilter) (int64, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.LineRequest{})
	query = r.applyFilter(query, filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any line request matching the filter exists
func (r *LineRequestRepositoryImpl) Exists(ctx context.Context, filter models.LineRequestFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Update updates mutable fields for a line request by ID
func (r *LineRequestRepositoryImpl) Update(ctx context.Context, request *models.LineRequest) error {
	if request == nil {
		return errors.New("line request payload is nil")
	}
	if request.ID == 0 {
		return errors.New("line request ID is required for update")
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
	if request.RedAccountID != nil {
		updates["red_account_id"] = *request.RedAccountID
	}
	if request.Status != "" {
		updates["status"] = request.Status
	}
	if request.Priority != 0 {
		updates["priority"] = request.Priority
	}
	if request.LineID != nil {
		updates["line_id"] = *request.LineID
	}
	if request.Notes != nil {
		updates["notes"] = *request.Notes
	}

	result := db.Model(&models.LineRequest{}).
		Where("id = ?", request.ID).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("line request not found with ID: " + strconv.Itoa(int(request.ID)))
	}
	return nil
}
