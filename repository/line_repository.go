// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redline-telecom/redline/models"
	"github.com/redline-telecom/redline/utils"
	"gorm.io/gorm"
)

// LineRepositoryImpl implements LineRepository interface
type LineRepositoryImpl struct {
	*BaseRepository[models.Line, models.LineFilter]
}

// NewLineRepository creates a new line repository
func NewLineRepository(db *gorm.DB) LineRepository {
	return &LineRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Line, models.LineFilter](db),
	}
}

// ByUUID retrieves a line by UUID (string)
func (r *LineRepositoryImpl) ByUUID(ctx context.Context, uuidStr string) (*models.Line, error) {
	parsed, err := uuid.Parse(uuidStr)
	if err != nil {
		return nil, err
	}

	filter := models.LineFilter{UUID: &parsed}
	items, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items[0], nil
}

// ByPhoneNumber retrieves a line by its phone number
func (r *LineRepositoryImpl) ByPhoneNumber(ctx context.Context, phoneNumber string) (*models.Line, error) {
	filter := models.LineFilter{PhoneNumber: &phoneNumber}
	items, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items[0], nil
}

// ByICCID retrieves a line by the ICCID of its attached SIM
func (r *LineRepositoryImpl) ByICCID(ctx context.Context, iccid string) (*models.Line, error) {
	filter := models.LineFilter{ICCID: &iccid}
	items, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items[0], nil
}

// ListByRedAccount retrieves all lines attached to a RED account
func (r *LineRepositoryImpl) ListByRedAccount(ctx context.Context, redAccountID uint) ([]*models.Line, error) {
	filter := models.LineFilter{RedAccountID: &redAccountID}
	return r.ByFilter(ctx, filter, "id ASC", 0, 0)
}

// ListByAgency retrieves lines scoped to an agency
func (r *LineRepositoryImpl) ListByAgency(ctx context.Context, agencyID uint, limit, offset int) ([]*models.Line, error) {
	filter := models.LineFilter{AgencyID: &agencyID}
	return r.ByFilter(ctx, filter, "created_at DESC", limit, offset)
}

// ListByClient retrieves all lines owned by a client
func (r *LineRepositoryImpl) ListByClient(ctx context.Context, clientID uint) ([]*models.Line, error) {
	filter := models.LineFilter{ClientID: &clientID}
	return r.ByFilter(ctx, filter, "id ASC", 0, 0)
}

// ListByStatus retrieves lines in a given lifecycle status
func (r *LineRepositoryImpl) ListByStatus(ctx context.Context, status models.PhoneStatus, limit, offset int) ([]*models.Line, error) {
	filter := models.LineFilter{PhoneStatus: &status}
	return r.ByFilter(ctx, filter, "created_at ASC", limit, offset)
}

// ListReusableTerminated retrieves terminated lines on an account whose holding
// period has elapsed (terminated on or before the boundary, boundary inclusive)
func (r *LineRepositoryImpl) ListReusableTerminated(ctx context.Context, redAccountID uint, terminatedBefore time.Time) ([]*models.Line, error) {
	db := r.getDB(ctx)

	var lines []*models.Line
	err := db.Model(&models.Line{}).
		Where("red_account_id = ?", redAccountID).
		Where("phone_status = ?", models.PhoneStatusTerminated).
		Where("terminated_at IS NOT NULL AND terminated_at <= ?", terminatedBefore).
		Order("terminated_at ASC").
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// CountOccupiedByAccount counts lines consuming a capacity slot on the account:
// active, reserved, or sitting unattributed
func (r *LineRepositoryImpl) CountOccupiedByAccount(ctx context.Context, redAccountID uint) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	err := db.Model(&models.Line{}).
		Where("red_account_id = ?", redAccountID).
		Where("phone_status IN ? OR has_active_reservation = ? OR payment_status = ?",
			[]models.PhoneStatus{
				models.PhoneStatusActive,
				models.PhoneStatusReservedNewLine,
				models.PhoneStatusReservedExistingLine,
			},
			true,
			models.PaymentStatusUnattributed).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter criteria to a GORM query
func (r *LineRepositoryImpl) applyFilter(query *gorm.DB, filter models.LineFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.PhoneNumber != nil {
		query = query.Where("phone_number = ?", *filter.PhoneNumber)
	}
	if filter.ICCID != nil {
		query = query.Where("iccid = ?", *filter.ICCID)
	}
	if filter.PhoneStatus != nil {
		query = query.Where("phone_status = ?", *filter.PhoneStatus)
	}
	if filter.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *filter.PaymentStatus)
	}
	if filter.HasActiveReservation != nil {
		query = query.Where("has_active_reservation = ?", *filter.HasActiveReservation)
	}
	if filter.RedAccountID != nil {
		query = query.Where("red_account_id = ?", *filter.RedAccountID)
	}
	if filter.AgencyID != nil {
		query = query.Where("agency_id = ?", *filter.AgencyID)
	}
	if filter.ClientID != nil {
		query = query.Where("client_id = ?", *filter.ClientID)
	}
	if filter.TerminatedBefore != nil {
		query = query.Where("terminated_at <= ?", *filter.TerminatedBefore)
	}
	if filter.OrderedAfter != nil {
		query = query.Where("order_date > ?", *filter.OrderedAfter)
	}
	if filter.OrderedBefore != nil {
		query = query.Where("order_date < ?", *filter.OrderedBefore)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

// ByFilter retrieves lines based on filter criteria
func (r *LineRepositoryImpl) ByFilter(ctx context.Context, filter models.LineFilter, orderBy string, limit, offset int) ([]*models.Line, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.Line{})

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

	var lines []*models.Line
	if err := query.Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

// Count returns the number of lines matching the filter
func (r *LineRepositoryImpl) Count(ctx context.Context, filter models.LineFilter) (int64, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.Line{})
	query = r.applyFilter(query, filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any line matching the filter exists
func (r *LineRepositoryImpl) Exists(ctx context.Context, filter models.LineFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Update updates mutable fields for a line by ID
func (r *LineRepositoryImpl) Update(ctx context.Context, line *models.Line) error {
	if line == nil {
		return errors.New("line payload is nil")
	}
	if line.ID == 0 {
		return errors.New("line ID is required for update")
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
	if line.PhoneNumber != nil {
		updates["phone_number"] = *line.PhoneNumber
	}
	if line.SIMCardID != nil {
		updates["sim_card_id"] = *line.SIMCardID
	}
	if line.ICCID != nil {
		updates["iccid"] = *line.ICCID
	}
	if line.PhoneStatus != "" {
		updates["phone_status"] = line.PhoneStatus
	}
	if line.PaymentStatus != "" {
		updates["payment_status"] = line.PaymentStatus
	}
	if line.HasActiveReservation != nil {
		updates["has_active_reservation"] = *line.HasActiveReservation
	}
	if line.ReservationStatus != nil {
		updates["reservation_status"] = *line.ReservationStatus
	}
	if line.ReservationDate != nil {
		updates["reservation_date"] = *line.ReservationDate
	}
	if line.ClientID != nil {
		updates["client_id"] = *line.ClientID
	}
	if line.UnpaidMonthsCount != 0 {
		updates["unpaid_months_count"] = line.UnpaidMonthsCount
	}
	if line.BlockReason != nil {
		updates["block_reason"] = *line.BlockReason
	}
	if line.PendingBlockReason != nil {
		updates["pending_block_reason"] = *line.PendingBlockReason
	}
	if line.TrackingNotes != nil {
		updates["tracking_notes"] = *line.TrackingNotes
	}
	if line.OrderDate != nil {
		updates["order_date"] = *line.OrderDate
	}
	if line.ActivatedAt != nil {
		updates["activated_at"] = *line.ActivatedAt
	}
	if line.TerminatedAt != nil {
		updates["terminated_at"] = *line.TerminatedAt
	}

	result := db.Model(&models.Line{}).
		Where("id = ?", line.ID).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("line not found with ID: " + strconv.Itoa(int(line.ID)))
	}
	return nil
}
