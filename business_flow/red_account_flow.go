// Package businessflow contains the core business logic for the line lifecycle and allocation workflows
package businessflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/redline-telecom/redline/app/dto"
	"github.com/redline-telecom/redline/app/services"
	"github.com/redline-telecom/redline/config"
	"github.com/redline-telecom/redline/models"
	"github.com/redline-telecom/redline/repository"
	"github.com/redline-telecom/redline/utils"
	"gorm.io/gorm"
)

// RedAccountFlow manages RED reseller accounts and the lines parked under
// them: creation, listing with nested lines, manual status transitions and
// the captcha-guarded password reveal.
type RedAccountFlow interface {
	CreateRedAccount(ctx context.Context, request *dto.CreateRedAccountRequest, initiatorID uint, metadata *ClientMetadata) (*dto.RedAccountDTO, error)
	ListRedAccounts(ctx context.Context, agencyID uint, includeLines bool) (*dto.ListRedAccountsResponse, error)
	GetRedAccount(ctx context.Context, accountID uint) (*dto.RedAccountDTO, error)
	ListAccountLines(ctx context.Context, accountID uint) (*dto.ListLinesResponse, error)
	CreateLine(ctx context.Context, accountID uint, request *dto.CreateLineRequest, metadata *ClientMetadata) (*dto.LineDTO, error)
	UpdateLineStatus(ctx context.Context, lineID uint, request *dto.UpdateLineStatusRequest, metadata *ClientMetadata) (*dto.LineDTO, error)
	RevealPassword(ctx context.Context, accountID uint, request *dto.RevealPasswordRequest, initiatorID uint, metadata *ClientMetadata) (*dto.RevealPasswordResponse, error)
}

// RedAccountFlowImpl implements the RED account management business flow
type RedAccountFlowImpl struct {
	accountRepo    repository.RedAccountRepository
	lineRepo       repository.LineRepository
	agencyRepo     repository.AgencyRepository
	userRepo       repository.UserRepository
	auditRepo      repository.AuditLogRepository
	captchaService services.CaptchaService
	secretKey      string
	rc             *redis.Client
	cacheConfig    *config.CacheConfig
	db             *gorm.DB
}

// NewRedAccountFlow creates a new RED account flow instance
func NewRedAccountFlow(
	accountRepo repository.RedAccountRepository,
	lineRepo repository.LineRepository,
	agencyRepo repository.AgencyRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditLogRepository,
	captchaService services.CaptchaService,
	secretKey string,
	rc *redis.Client,
	cacheConfig *config.CacheConfig,
	db *gorm.DB,
) RedAccountFlow {
	return &RedAccountFlowImpl{
		accountRepo:    accountRepo,
		lineRepo:       lineRepo,
		agencyRepo:     agencyRepo,
		userRepo:       userRepo,
		auditRepo:      auditRepo,
		captchaService: captchaService,
		secretKey:      secretKey,
		rc:             rc,
		cacheConfig:    cacheConfig,
		db:             db,
	}
}

// CreateRedAccount registers a new operator account under an agency. The
// portal password is stored encrypted because the reveal endpoint must be
// able to show it back to supervisors.
func (f *RedAccountFlowImpl) CreateRedAccount(ctx context.Context, request *dto.CreateRedAccountRequest, initiatorID uint, metadata *ClientMetadata) (*dto.RedAccountDTO, error) {
	initiator, err := f.userRepo.ByID(ctx, initiatorID)
	if err != nil {
		return nil, NewBusinessError("ACCOUNT_CREATION_FAILED", "Failed to load initiator", err)
	}
	if initiator == nil || !initiator.IsSupervisor() {
		return nil, NewBusinessError("FORBIDDEN", "Only supervisors may create RED accounts", ErrForbidden)
	}

	agency, err := f.agencyRepo.ByID(ctx, request.AgencyID)
	if err != nil {
		return nil, NewBusinessError("ACCOUNT_CREATION_FAILED", "Failed to load agency", err)
	}
	if agency == nil {
		return nil, NewBusinessError("AGENCY_NOT_FOUND", "Agency not found", ErrAgencyNotFound)
	}
	if !utils.IsTrue(agency.IsActive) {
		return nil, NewBusinessError("AGENCY_INACTIVE", "Agency is inactive", ErrAgencyInactive)
	}

	existing, err := f.accountRepo.ByLogin(ctx, request.RedAccountID)
	if err != nil {
		return nil, NewBusinessError("ACCOUNT_CREATION_FAILED", "Failed to check login uniqueness", err)
	}
	if existing != nil {
		return nil, NewBusinessError("RED_ACCOUNT_EXISTS", "RED account login already exists", ErrRedAccountExists)
	}

	if request.MaxLines <= 0 {
		return nil, NewBusinessError("MAX_LINES_REQUIRED", "Max lines must be positive", ErrMaxLinesRequired)
	}

	encrypted, err := utils.EncryptSecret(request.Password, f.secretKey)
	if err != nil {
		return nil, NewBusinessError("ACCOUNT_CREATION_FAILED", "Failed to encrypt password", err)
	}

	account := &models.RedAccount{
		RedAccountID:      request.RedAccountID,
		PasswordEncrypted: encrypted,
		AgencyID:          request.AgencyID,
		MaxLines:          request.MaxLines,
		IsActive:          utils.ToPtr(true),
	}

	if err := f.accountRepo.Save(ctx, account); err != nil {
		errMsg := fmt.Sprintf("RED account creation failed: %s", err.Error())
		_ = f.logAccountEvent(ctx, &initiator.ID, models.AuditActionAccountCreated, errMsg, false, &errMsg, metadata)
		return nil, NewBusinessError("ACCOUNT_CREATION_FAILED", "Failed to save RED account", err)
	}

	msg := fmt.Sprintf("RED account %s created for agency %d (%d slots)", account.RedAccountID, account.AgencyID, account.MaxLines)
	_ = f.logAccountEvent(ctx, &initiator.ID, models.AuditActionAccountCreated, msg, true, nil, metadata)

	d := ToRedAccountDTO(*account, false)
	return &d, nil
}

// ListRedAccounts returns the accounts of an agency, optionally with their
// lines nested so the board view needs a single call.
func (f *RedAccountFlowImpl) ListRedAccounts(ctx context.Context, agencyID uint, includeLines bool) (*dto.ListRedAccountsResponse, error) {
	accounts, err := f.accountRepo.ListByAgency(ctx, agencyID)
	if err != nil {
		return nil, NewBusinessError("ACCOUNT_LIST_FAILED", "Failed to list RED accounts", err)
	}

	resp := &dto.ListRedAccountsResponse{
		Items: make([]dto.RedAccountDTO, 0, len(accounts)),
		Total: int64(len(accounts)),
	}
	for _, account := range accounts {
		if includeLines {
			lines, err := f.lineRepo.ListByRedAccount(ctx, account.ID)
			if err != nil {
				return nil, NewBusinessError("ACCOUNT_LIST_FAILED", "Failed to load account lines", err)
			}
			account.Lines = make([]models.Line, 0, len(lines))
			for _, l := range lines {
				account.Lines = append(account.Lines, *l)
			}
		}
		resp.Items = append(resp.Items, ToRedAccountDTO(*account, includeLines))
	}
	return resp, nil
}

// GetRedAccount returns one account with its lines
func (f *RedAccountFlowImpl) GetRedAccount(ctx context.Context, accountID uint) (*dto.RedAccountDTO, error) {
	account, err := f.loadAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	lines, err := f.lineRepo.ListByRedAccount(ctx, account.ID)
	if err != nil {
		return nil, NewBusinessError("ACCOUNT_FETCH_FAILED", "Failed to load account lines", err)
	}
	account.Lines = make([]models.Line, 0, len(lines))
	for _, l := range lines {
		account.Lines = append(account.Lines, *l)
	}

	d := ToRedAccountDTO(*account, true)
	return &d, nil
}

// ListAccountLines returns the lines parked under one account
func (f *RedAccountFlowImpl) ListAccountLines(ctx context.Context, accountID uint) (*dto.ListLinesResponse, error) {
	if _, err := f.loadAccount(ctx, accountID); err != nil {
		return nil, err
	}

	lines, err := f.lineRepo.ListByRedAccount(ctx, accountID)
	if err != nil {
		return nil, NewBusinessError("LINE_LIST_FAILED", "Failed to list lines", err)
	}
	return &dto.ListLinesResponse{
		Items: ToLineDTOs(lines),
		Total: int64(len(lines)),
	}, nil
}

// CreateLine parks a new line under an account. With a phone number the line
// starts in NEEDS_TO_BE_ACTIVATED; without one it starts in
// NEEDS_TO_BE_ORDERED. Either way it occupies a slot as UNATTRIBUTED until
// activation assigns a billing owner.
func (f *RedAccountFlowImpl) CreateLine(ctx context.Context, accountID uint, request *dto.CreateLineRequest, metadata *ClientMetadata) (*dto.LineDTO, error) {
	var agencyID uint

	line, err := f.withLineTransaction(ctx, func(ctx context.Context) (*models.Line, error) {
		account, err := f.accountRepo.ByIDForUpdate(ctx, accountID)
		if err != nil {
			return nil, err
		}
		if account == nil {
			return nil, ErrRedAccountNotFound
		}
		if !utils.IsTrue(account.IsActive) {
			return nil, ErrRedAccountInactive
		}
		agencyID = account.AgencyID

		if account.AvailableSlots() <= 0 {
			return nil, ErrCapacityExceeded
		}

		status := models.PhoneStatusNeedsToBeOrdered
		if request.PhoneNumber != nil && *request.PhoneNumber != "" {
			status = models.PhoneStatusNeedsToBeActivated
		}

		line := &models.Line{
			PhoneNumber:   request.PhoneNumber,
			PhoneStatus:   status,
			PaymentStatus: models.PaymentStatusUnattributed,
			RedAccountID:  account.ID,
			AgencyID:      account.AgencyID,
			ClientID:      request.ClientID,
			TrackingNotes: request.Notes,
		}
		if err := f.lineRepo.Save(ctx, line); err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				return nil, ErrPhoneNumberExists
			}
			return nil, err
		}
		return line, nil
	})

	if err != nil {
		errMsg := fmt.Sprintf("Line creation failed: %s", err.Error())
		_ = f.logAccountEvent(ctx, nil, models.AuditActionLineStatusChanged, errMsg, false, &errMsg, metadata)
		return nil, NewBusinessError("LINE_CREATION_FAILED", "Failed to create line", err)
	}

	msg := fmt.Sprintf("Line %d created under account %d in status %s", line.ID, accountID, line.PhoneStatus)
	_ = f.logAccountEvent(ctx, nil, models.AuditActionLineStatusChanged, msg, true, nil, metadata)

	InvalidateSnapshot(ctx, f.rc, f.cacheConfig, agencyID)
	d := ToLineDTO(*line)
	return &d, nil
}

// UpdateLineStatus applies a manual status transition. The transition table
// is authoritative: anything it does not allow is rejected. Capacity counters
// follow the transition inside the same transaction.
func (f *RedAccountFlowImpl) UpdateLineStatus(ctx context.Context, lineID uint, request *dto.UpdateLineStatusRequest, metadata *ClientMetadata) (*dto.LineDTO, error) {
	target := models.PhoneStatus(request.Status)
	if !target.Valid() {
		return nil, NewBusinessError("INVALID_STATUS", "Unknown phone status", ErrInvalidTransition)
	}

	var agencyID uint

	line, err := f.withLineTransaction(ctx, func(ctx context.Context) (*models.Line, error) {
		line, err := f.lineRepo.ByID(ctx, lineID)
		if err != nil {
			return nil, err
		}
		if line == nil {
			return nil, ErrPhoneNotFound
		}
		agencyID = line.AgencyID

		previous := line.PhoneStatus
		if previous == target {
			return line, nil
		}
		if !line.CanTransitionTo(target) {
			return nil, ErrInvalidTransition
		}

		now := utils.UTCNow()
		line.PhoneStatus = target

		switch target {
		case models.PhoneStatusTerminated:
			line.TerminatedAt = &now
			line.HasActiveReservation = utils.ToPtr(false)
			line.ReservationStatus = utils.ToPtr(models.ReservationStatusAvailable)
		case models.PhoneStatusBlocked, models.PhoneStatusSuspended:
			if request.Reason != nil {
				line.BlockReason = request.Reason
			}
		case models.PhoneStatusActive:
			if line.ActivatedAt == nil {
				line.ActivatedAt = &now
			}
			line.BlockReason = nil
		}

		if err := f.lineRepo.Update(ctx, line); err != nil {
			return nil, err
		}

		activeDelta := 0
		if previous == models.PhoneStatusActive && target != models.PhoneStatusActive {
			activeDelta = -1
		}
		if previous != models.PhoneStatusActive && target == models.PhoneStatusActive {
			activeDelta = 1
		}
		if activeDelta != 0 {
			if err := f.accountRepo.AdjustCounters(ctx, line.RedAccountID, activeDelta, 0); err != nil {
				return nil, err
			}
		}
		return line, nil
	})

	if err != nil {
		errMsg := fmt.Sprintf("Status change failed: %s", err.Error())
		_ = f.logAccountEvent(ctx, nil, models.AuditActionLineStatusChanged, errMsg, false, &errMsg, metadata)
		return nil, NewBusinessError("STATUS_CHANGE_FAILED", "Failed to change line status", err)
	}

	msg := fmt.Sprintf("Line %d moved to %s", line.ID, line.PhoneStatus)
	_ = f.logAccountEvent(ctx, nil, models.AuditActionLineStatusChanged, msg, true, nil, metadata)

	InvalidateSnapshot(ctx, f.rc, f.cacheConfig, agencyID)
	d := ToLineDTO(*line)
	return &d, nil
}

// RevealPassword decrypts the portal password for a supervisor after a fresh
// captcha solve. The response carries a hard display deadline; every reveal
// is audited whether it succeeds or not.
func (f *RedAccountFlowImpl) RevealPassword(ctx context.Context, accountID uint, request *dto.RevealPasswordRequest, initiatorID uint, metadata *ClientMetadata) (*dto.RevealPasswordResponse, error) {
	initiator, err := f.userRepo.ByID(ctx, initiatorID)
	if err != nil {
		return nil, NewBusinessError("PASSWORD_REVEAL_FAILED", "Failed to load initiator", err)
	}
	if initiator == nil || !initiator.IsSupervisor() {
		errMsg := "password reveal denied: initiator is not a supervisor"
		_ = f.logAccountEvent(ctx, &initiatorID, models.AuditActionPasswordRevealed, errMsg, false, &errMsg, metadata)
		return nil, NewBusinessError("FORBIDDEN", "Only supervisors may reveal passwords", ErrForbidden)
	}

	if request.CaptchaID == "" {
		return nil, NewBusinessError("CAPTCHA_REQUIRED", "Captcha verification required", ErrCaptchaRequired)
	}
	if !f.captchaService.VerifyRotate(ctx, request.CaptchaID, float64(request.CaptchaAngle)) {
		errMsg := "password reveal denied: captcha verification failed"
		_ = f.logAccountEvent(ctx, &initiator.ID, models.AuditActionPasswordRevealed, errMsg, false, &errMsg, metadata)
		return nil, NewBusinessError("CAPTCHA_INVALID", "Captcha verification failed", ErrCaptchaInvalid)
	}

	account, err := f.loadAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	password, err := utils.DecryptSecret(account.PasswordEncrypted, f.secretKey)
	if err != nil {
		errMsg := fmt.Sprintf("password reveal failed: %s", err.Error())
		_ = f.logAccountEvent(ctx, &initiator.ID, models.AuditActionPasswordRevealed, errMsg, false, &errMsg, metadata)
		return nil, NewBusinessError("PASSWORD_REVEAL_FAILED", "Failed to decrypt password", err)
	}

	msg := fmt.Sprintf("Password revealed for account %s by user %d", account.RedAccountID, initiator.ID)
	_ = f.logAccountEvent(ctx, &initiator.ID, models.AuditActionPasswordRevealed, msg, true, nil, metadata)

	expiresAt := utils.UTCNow().Add(utils.PasswordRevealTTL)
	return &dto.RevealPasswordResponse{
		Password:  password,
		ExpiresIn: int(utils.PasswordRevealTTL.Seconds()),
		ExpiresAt: expiresAt.Format(time.RFC3339),
	}, nil
}

func (f *RedAccountFlowImpl) loadAccount(ctx context.Context, accountID uint) (*models.RedAccount, error) {
	account, err := f.accountRepo.ByID(ctx, accountID)
	if err != nil {
		return nil, NewBusinessError("ACCOUNT_FETCH_FAILED", "Failed to load RED account", err)
	}
	if account == nil {
		return nil, NewBusinessError("RED_ACCOUNT_NOT_FOUND", "RED account not found", ErrRedAccountNotFound)
	}
	return account, nil
}

func (f *RedAccountFlowImpl) logAccountEvent(ctx context.Context, userID *uint, action string, description string, success bool, errMsg *string, metadata *ClientMetadata) error {
	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		UserID:       userID,
		Action:       action,
		Description:  &description,
		Success:      utils.ToPtr(success),
		IPAddress:    &ipAddress,
		UserAgent:    &userAgent,
		ErrorMessage: errMsg,
	}

	requestID := ctx.Value(RequestIDKey)
	if requestID != nil {
		requestIDStr, ok := requestID.(string)
		if ok {
			audit.RequestID = &requestIDStr
		}
	}

	return f.auditRepo.Save(ctx, audit)
}

func (f *RedAccountFlowImpl) withLineTransaction(ctx context.Context, fn func(context.Context) (*models.Line, error)) (*models.Line, error) {
	var result *models.Line
	var fnErr error

	err := repository.WithTransaction(ctx, f.db, func(ctx context.Context) error {
		result, fnErr = fn(ctx)
		return fnErr
	})

	if err != nil {
		return nil, err
	}
	return result, fnErr
}
