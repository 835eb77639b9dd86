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
	"gorm.io/gorm/clause"
)

// RedAccountRepositoryImpl implements RedAccountRepository interface
type RedAccountRepositoryImpl struct {
	*BaseRepository[models.RedAccount, models.RedAccountFilter]
}

// NewRedAccountRepository creates a new RED account repository
func NewRedAccountRepository(db *gorm.DB) RedAccountRepository {
	return &RedAccountRepositoryImpl{
		BaseRepository: NewBaseRepository[models.RedAccount, models.RedAccountFilter](db),
	}
}

// ByUUID retrieves a RED account by UUID (string)
func (r *RedAccountRepositoryImpl) ByUUID(ctx context.Context, uuidStr string) (*models.RedAccount, error) {
	parsed, err := uuid.Parse(uuidStr)
	if err != nil {
		return nil, err
	}

	filter := models.RedAccountFilter{UUID: &parsed}
	items, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items[0], nil
}

// ByLogin retrieves a RED account by its external portal login
func (r *RedAccountRepositoryImpl) ByLogin(ctx context.Context, redAccountID string) (*models.RedAccount, error) {
	filter := models.RedAccountFilter{RedAccountID: &redAccountID}
	items, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items[0], nil
}

// ByIDForUpdate retrieves a RED account with its lines under a row lock.
// Must run inside a transaction; the reservation coordinator uses it to
// re-validate capacity before committing a slot.
func (r *RedAccountRepositoryImpl) ByIDForUpdate(ctx context.Context, id uint) (*models.RedAccount, error) {
	db := r.getDB(ctx)

	var account models.RedAccount
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Lines").
		First(&account, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// ListByAgency retrieves all RED accounts of an agency
func (r *RedAccountRepositoryImpl) ListByAgency(ctx context.Context, agencyID uint) ([]*models.RedAccount, error) {
	filter := models.RedAccountFilter{AgencyID: &agencyID}
	return r.ByFilter(ctx, filter, "id ASC", 0, 0)
}

// ListActive retrieves active RED accounts ordered by ID
func (r *RedAccountRepositoryImpl) ListActive(ctx context.Context, limit, offset int) ([]*models.RedAccount, error) {
	active := true
	filter := models.RedAccountFilter{IsActive: &active}
	return r.ByFilter(ctx, filter, "id ASC", limit, offset)
}

// applyFilter applies filter criteria to a GORM query
func (r *RedAccountRepositoryImpl) applyFilter(query *gorm.DB, filter models.RedAccountFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.RedAccountID != nil {
		query = query.Where("red_account_id = ?", *filter.RedAccountID)
	}
	if filter.AgencyID != nil {
		query = query.Where("agency_id = ?", *filter.AgencyID)
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

// ByFilter retrieves RED accounts based on filter criteria
func (r *RedAccountRepositoryImpl) ByFilter(ctx context.Context, filter models.RedAccountFilter, orderBy string, limit, offset int) ([]*models.RedAccount, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.RedAccount{})

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

	var accounts []*models.RedAccount
	if err := query.Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// Count returns the number of RED accounts matching the filter
func (r *RedAccountRepositoryImpl) Count(ctx context.Context, filter models.RedAccountFilter) (int64, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.RedAccount{})
	query = r.applyFilter(query, filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any RED account matching the filter exists
func (r *RedAccountRepositoryImpl) Exists(ctx context.Context, filter models.RedAccountFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Update updates mutable fields for a RED account by ID
func (r *RedAccountRepositoryImpl) Update(ctx context.Context, account *models.RedAccount) error {
	if account == nil {
		return errors.New("red account payload is nil")
	}
	if account.ID == 0 {
		return errors.New("red account ID is required for update")
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
	if account.RedAccountID != "" {
		updates["red_account_id"] = account.RedAccountID
	}
	if account.PasswordEncrypted != "" {
		updates["password_encrypted"] = account.PasswordEncrypted
	}
	if account.MaxLines != 0 {
		updates["max_lines"] = account.MaxLines
	}
	if account.IsActive != nil {
		updates["is_active"] = *account.IsActive
	}

	result := db.Model(&models.RedAccount{}).
		Where("id = ?", account.ID).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("red account not found with ID: " + strconv.Itoa(int(account.ID)))
	}
	return nil
}

// AdjustCounters applies deltas to the active/reserved line counters atomically.
// Deltas run through SQL expressions so concurrent reservations never clobber
// each other's counts.
func (r *RedAccountRepositoryImpl) AdjustCounters(ctx context.Context, id uint, activeDelta, reservedDelta int) error {
	if activeDelta == 0 && reservedDelta == 0 {
		return nil
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
	if activeDelta != 0 {
		updates["active_lines"] = gorm.Expr("GREATEST(active_lines + ?, 0)", activeDelta)
	}
	if reservedDelta != 0 {
		updates["reserved_lines"] = gorm.Expr("GREATEST(reserved_lines + ?, 0)", reservedDelta)
	}

	result := db.Model(&models.RedAccount{}).
		Where("id = ?", id).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("red account not found with ID: " + strconv.Itoa(int(id)))
	}
	return nil
}
