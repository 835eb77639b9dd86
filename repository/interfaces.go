// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/redline-telecom/redline/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// LineRepository defines operations for phone lines
type LineRepository interface {
	Repository[models.Line, models.LineFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Line, error)
	ByPhoneNumber(ctx context.Context, phoneNumber string) (*models.Line, error)
	ByICCID(ctx context.Context, iccid string) (*models.Line, error)
	ListByRedAccount(ctx context.Context, redAccountID uint) ([]*models.Line, error)
	ListByAgency(ctx context.Context, agencyID uint, limit, offset int) ([]*models.Line, error)
	ListByClient(ctx context.Context, clientID uint) ([]*models.Line, error)
	ListByStatus(ctx context.Context, status models.PhoneStatus, limit, offset int) ([]*models.Line, error)
	ListReusableTerminated(ctx context.Context, redAccountID uint, terminatedBefore time.Time) ([]*models.Line, error)
	CountOccupiedByAccount(ctx context.Context, redAccountID uint) (int64, error)
	Update(ctx context.Context, line *models.Line) error
}

// RedAccountRepository defines operations for RED reseller accounts
type RedAccountRepository interface {
	Repository[models.RedAccount, models.RedAccountFilter]
	ByUUID(ctx context.Context, uuid string) (*models.RedAccount, error)
	ByLogin(ctx context.Context, redAccountID string) (*models.RedAccount, error)
	ByIDForUpdate(ctx context.Context, id uint) (*models.RedAccount, error)
	ListByAgency(ctx context.Context, agencyID uint) ([]*models.RedAccount, error)
	ListActive(ctx context.Context, limit, offset int) ([]*models.RedAccount, error)
	Update(ctx context.Context, account *models.RedAccount) error
	AdjustCounters(ctx context.Context, id uint, activeDelta, reservedDelta int) error
}

// LineRequestRepository defines operations for line requests
type LineRequestRepository interface {
	Repository[models.LineRequest, models.LineRequestFilter]
	ByUUID(ctx context.Context, uuid string) (*models.LineRequest, error)
	ListPending(ctx context.Context, agencyID uint, limit, offset int) ([]*models.LineRequest, error)
	ListPendingByAccount(ctx context.Context, redAccountID uint) ([]*models.LineRequest, error)
	ListByClient(ctx context.Context, clientID uint, limit, offset int) ([]*models.LineRequest, error)
	NextQueued(ctx context.Context, redAccountID uint) (*models.LineRequest, error)
	Update(ctx context.Context, request *models.LineRequest) error
}

// UserRepository defines operations for users
type UserRepository interface {
	Repository[models.User, models.UserFilter]
	ByUUID(ctx context.Context, uuid string) (*models.User, error)
	ByEmail(ctx context.Context, email string) (*models.User, error)
	ListByAgency(ctx context.Context, agencyID uint) ([]*models.User, error)
	UpdateLastLogin(ctx context.Context, userID uint, at time.Time) error
}

// AgencyRepository defines operations for agencies
type AgencyRepository interface {
	Repository[models.Agency, models.AgencyFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Agency, error)
	ByName(ctx context.Context, name string) (*models.Agency, error)
}

// SIMCardRepository defines operations for SIM card stock
type SIMCardRepository interface {
	Repository[models.SIMCard, models.SIMCardFilter]
	ByICCID(ctx context.Context, iccid string) (*models.SIMCard, error)
	ListInStockByAgency(ctx context.Context, agencyID uint) ([]*models.SIMCard, error)
	Update(ctx context.Context, card *models.SIMCard) error
}

// UserSessionRepository defines operations for user sessions
type UserSessionRepository interface {
	Repository[models.UserSession, models.UserSessionFilter]
	BySessionToken(ctx context.Context, token string) (*models.UserSession, error)
	ByRefreshToken(ctx context.Context, token string) (*models.UserSession, error)
	ListActiveSessionsByUser(ctx context.Context, userID uint) ([]*models.UserSession, error)
	ExpireSession(ctx context.Context, sessionID uint) error
	ExpireAllUserSessions(ctx context.Context, userID uint) error
	CleanupExpiredSessions(ctx context.Context) error
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.AuditLog, error)
	ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.AuditLog, error)
	ListFailedActions(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)
	LatestCapacityEventAt(ctx context.Context) (*time.Time, error)
}
