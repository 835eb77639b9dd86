// Package businessflow contains the core business logic for the line lifecycle and allocation workflows
package businessflow

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/redline-telecom/redline/app/dto"
	"github.com/redline-telecom/redline/config"
	"github.com/redline-telecom/redline/models"
	"github.com/redline-telecom/redline/repository"
	"github.com/redline-telecom/redline/utils"
	"gorm.io/gorm"
)

// ReservationFlow commits demands against account capacity. Every write path
// re-validates capacity inside a transaction with the account row locked, so
// two agencies racing for the last slot cannot both win: the advisory
// availability view is never trusted for a write decision.
type ReservationFlow interface {
	ReserveLine(ctx context.Context, request *dto.ReserveLineRequest, metadata *ClientMetadata) (*dto.ReservationResponse, error)
	ReserveExistingLineRequest(ctx context.Context, request *dto.ReserveExistingRequest, metadata *ClientMetadata) (*dto.ReservationResponse, error)
	CancelReservation(ctx context.Context, phoneID uint, metadata *ClientMetadata) (*dto.CancelReservationResponse, error)
}

// ReservationFlowImpl implements the reservation coordinator business flow
type ReservationFlowImpl struct {
	accountRepo repository.RedAccountRepository
	lineRepo    repository.LineRepository
	requestRepo repository.LineRequestRepository
	userRepo    repository.UserRepository
	auditRepo   repository.AuditLogRepository
	rc          *redis.Client
	cacheConfig *config.CacheConfig
	db          *gorm.DB
}

// NewReservationFlow creates a new reservation flow instance
func NewReservationFlow(
	accountRepo repository.RedAccountRepository,
	lineRepo repository.LineRepository,
	requestRepo repository.LineRequestRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditLogRepository,
	rc *redis.Client,
	cacheConfig *config.CacheConfig,
	db *gorm.DB,
) ReservationFlow {
	return &ReservationFlowImpl{
		accountRepo: accountRepo,
		lineRepo:    lineRepo,
		requestRepo: requestRepo,
		userRepo:    userRepo,
		auditRepo:   auditRepo,
		rc:          rc,
		cacheConfig: cacheConfig,
		db:          db,
	}
}

// ReserveLine commits a direct reservation against an account. When the
// account is full, the oldest reusable terminated line is reclaimed instead;
// only when neither path exists does the call fail with CAPACITY_EXCEEDED.
func (f *ReservationFlowImpl) ReserveLine(ctx context.Context, request *dto.ReserveLineRequest, metadata *ClientMetadata) (*dto.ReservationResponse, error) {
	var account *models.RedAccount

	resp, err := f.withReservationTransaction(ctx, func(ctx context.Context) (*dto.ReservationResponse, error) {
		client, err := f.userRepo.ByID(ctx, request.ClientID)
		if err != nil {
			return nil, err
		}
		if client == nil {
			return nil, ErrClientNotFound
		}

		// Lock the account row: capacity is re-validated here, not from the
		// caller's (possibly stale) availability snapshot
		account, err = f.accountRepo.ByIDForUpdate(ctx, request.RedAccountID)
		if err != nil {
			return nil, err
		}
		if account == nil {
			return nil, ErrRedAccountNotFound
		}
		if !utils.IsTrue(account.IsActive) {
			return nil, ErrRedAccountInactive
		}

		line, err := f.reserveSlot(ctx, account, client, request.Notes)
		if err != nil {
			return nil, err
		}

		// Record the demand as already fulfilled by the new reservation
		lineRequest := &models.LineRequest{
			ClientID:     client.ID,
			AgencyID:     account.AgencyID,
			RedAccountID: &account.ID,
			Notes:        request.Notes,
			Status:       models.RequestStatusFulfilled,
			LineID:       &line.ID,
		}
		if err := f.requestRepo.Save(ctx, lineRequest); err != nil {
			return nil, err
		}

		refreshed, err := f.accountRepo.ByID(ctx, account.ID)
		if err != nil {
			return nil, err
		}

		requestDTO := ToLineRequestDTO(*lineRequest)
		return &dto.ReservationResponse{
			Line:        ToLineDTO(*line),
			LineRequest: &requestDTO,
			Account:     ToRedAccountDTO(*refreshed, false),
		}, nil
	})

	if err != nil {
		errMsg := fmt.Sprintf("Reservation failed: %s", err.Error())
		_ = f.logReservationEvent(ctx, models.AuditActionLineReserved, errMsg, false, &errMsg, metadata)
		return nil, NewBusinessError("RESERVATION_FAILED", "Reservation failed", err)
	}

	msg := fmt.Sprintf("Line %d reserved against account %d", resp.Line.ID, resp.Account.ID)
	_ = f.logReservationEvent(ctx, models.AuditActionLineReserved, msg, true, nil, metadata)

	if account != nil {
		InvalidateSnapshot(ctx, f.rc, f.cacheConfig, account.AgencyID)
	}
	return resp, nil
}

// ReserveExistingLineRequest promotes a pending, accountless demand into a
// reservation against a chosen account. Idempotence: once the request is no
// longer PENDING, the call fails with ALREADY_RESERVED.
func (f *ReservationFlowImpl) ReserveExistingLineRequest(ctx context.Context, request *dto.ReserveExistingRequest, metadata *ClientMetadata) (*dto.ReservationResponse, error) {
	var account *models.RedAccount

	resp, err := f.withReservationTransaction(ctx, func(ctx context.Context) (*dto.ReservationResponse, error) {
		lineRequest, err := f.requestRepo.ByID(ctx, request.LineRequestID)
		if err != nil {
			return nil, err
		}
		if lineRequest == nil {
			return nil, ErrLineRequestNotFound
		}
		if lineRequest.Status != models.RequestStatusPending {
			return nil, ErrAlreadyReserved
		}

		client, err := f.userRepo.ByID(ctx, lineRequest.ClientID)
		if err != nil {
			return nil, err
		}
		if client == nil {
			return nil, ErrClientNotFound
		}

		account, err = f.accountRepo.ByIDForUpdate(ctx, request.RedAccountID)
		if err != nil {
			return nil, err
		}
		if account == nil {
			return nil, ErrRedAccountNotFound
		}
		if !utils.IsTrue(account.IsActive) {
			return nil, ErrRedAccountInactive
		}

		line, err := f.reserveSlot(ctx, account, client, lineRequest.Notes)
		if err != nil {
			return nil, err
		}

		lineRequest.RedAccountID = &account.ID
		lineRequest.Status = models.RequestStatusFulfilled
		lineRequest.LineID = &line.ID
		if err := f.requestRepo.Update(ctx, lineRequest); err != nil {
			return nil, err
		}

		refreshed, err := f.accountRepo.ByID(ctx, account.ID)
		if err != nil {
			return nil, err
		}

		requestDTO := ToLineRequestDTO(*lineRequest)
		return &dto.ReservationResponse{
			Line:        ToLineDTO(*line),
			LineRequest: &requestDTO,
			Account:     ToRedAccountDTO(*refreshed, false),
		}, nil
	})

	if err != nil {
		errMsg := fmt.Sprintf("Request promotion failed: %s", err.Error())
		_ = f.logReservationEvent(ctx, models.AuditActionRequestPromoted, errMsg, false, &errMsg, metadata)
		return nil, NewBusinessError("RESERVE_EXISTING_FAILED", "Request promotion failed", err)
	}

	msg := fmt.Sprintf("Line request %d promoted into reservation on account %d", request.LineRequestID, resp.Account.ID)
	_ = f.logReservationEvent(ctx, models.AuditActionRequestPromoted, msg, true, nil, metadata)

	if account != nil {
		InvalidateSnapshot(ctx, f.rc, f.cacheConfig, account.AgencyID)
	}
	return resp, nil
}

// CancelReservation releases the slot back to the account and clears the
// reservation flags. A reused terminated line returns to TERMINATED; a fresh
// reservation returns to NEEDS_TO_BE_ORDERED.
func (f *ReservationFlowImpl) CancelReservation(ctx context.Context, phoneID uint, metadata *ClientMetadata) (*dto.CancelReservationResponse, error) {
	var agencyID uint

	resp, err := f.withCancelTransaction(ctx, func(ctx context.Context) (*dto.CancelReservationResponse, error) {
		line, err := f.lineRepo.ByID(ctx, phoneID)
		if err != nil {
			return nil, err
		}
		if line == nil {
			return nil, ErrPhoneNotFound
		}
		if !line.IsReserved() {
			return nil, ErrNoReservation
		}
		agencyID = line.AgencyID

		account, err := f.accountRepo.ByIDForUpdate(ctx, line.RedAccountID)
		if err != nil {
			return nil, err
		}
		if account == nil {
			return nil, ErrRedAccountNotFound
		}

		released := models.PhoneStatusNeedsToBeOrdered
		if line.PhoneStatus == models.PhoneStatusReservedExistingLine {
			released = models.PhoneStatusTerminated
		} else {
			// A released fresh ghost must stop occupying a slot: left
			// UNATTRIBUTED it would still count against capacity
			line.PaymentStatus = models.PaymentStatusCancelled
		}

		line.PhoneStatus = released
		line.HasActiveReservation = utils.ToPtr(false)
		line.ReservationStatus = utils.ToPtr(models.ReservationStatusAvailable)
		if err := f.lineRepo.Update(ctx, line); err != nil {
			return nil, err
		}

		if err := f.accountRepo.AdjustCounters(ctx, account.ID, 0, -1); err != nil {
			return nil, err
		}

		refreshed, err := f.accountRepo.ByID(ctx, account.ID)
		if err != nil {
			return nil, err
		}

		return &dto.CancelReservationResponse{
			Line:    ToLineDTO(*line),
			Account: ToRedAccountDTO(*refreshed, false),
		}, nil
	})

	if err != nil {
		errMsg := fmt.Sprintf("Reservation cancel failed: %s", err.Error())
		_ = f.logReservationEvent(ctx, models.AuditActionReservationCanceled, errMsg, false, &errMsg, metadata)
		return nil, NewBusinessError("CANCEL_RESERVATION_FAILED", "Reservation cancel failed", err)
	}

	msg := fmt.Sprintf("Reservation on line %d cancelled", phoneID)
	_ = f.logReservationEvent(ctx, models.AuditActionReservationCanceled, msg, true, nil, metadata)

	InvalidateSnapshot(ctx, f.rc, f.cacheConfig, agencyID)
	return resp, nil
}

// reserveSlot consumes one capacity slot on a locked account. Prefers a free
// slot (fresh ghost line); falls back to reclaiming the oldest reusable
// terminated line; fails with CAPACITY_EXCEEDED when neither exists.
func (f *ReservationFlowImpl) reserveSlot(ctx context.Context, account *models.RedAccount, client *models.User, notes *string) (*models.Line, error) {
	now := utils.UTCNow()

	if account.AvailableSlots() > 0 {
		line := &models.Line{
			PhoneStatus:          models.PhoneStatusReservedNewLine,
			PaymentStatus:        models.PaymentStatusUnattributed,
			HasActiveReservation: utils.ToPtr(true),
			ReservationStatus:    utils.ToPtr(models.ReservationStatusReserved),
			ReservationDate:      &now,
			RedAccountID:         account.ID,
			AgencyID:             account.AgencyID,
			ClientID:             &client.ID,
			TrackingNotes:        notes,
		}
		if err := f.lineRepo.Save(ctx, line); err != nil {
			return nil, err
		}
		if err := f.accountRepo.AdjustCounters(ctx, account.ID, 0, 1); err != nil {
			return nil, err
		}
		return line, nil
	}

	// Full account: look for a terminated line past its holding period
	boundary := now.Add(-utils.ReusableHoldingPeriod)
	reusable, err := f.lineRepo.ListReusableTerminated(ctx, account.ID, boundary)
	if err != nil {
		return nil, err
	}
	if len(reusable) == 0 {
		return nil, ErrCapacityExceeded
	}

	line := reusable[0]
	if !line.CanTransitionTo(models.PhoneStatusReservedExistingLine) {
		return nil, ErrInvalidTransition
	}
	line.PhoneStatus = models.PhoneStatusReservedExistingLine
	line.HasActiveReservation = utils.ToPtr(true)
	line.ReservationStatus = utils.ToPtr(models.ReservationStatusReserved)
	line.ReservationDate = &now
	line.ClientID = &client.ID
	if notes != nil {
		line.TrackingNotes = notes
	}
	if err := f.lineRepo.Update(ctx, line); err != nil {
		return nil, err
	}
	if err := f.accountRepo.AdjustCounters(ctx, account.ID, 0, 1); err != nil {
		return nil, err
	}
	return line, nil
}

func (f *ReservationFlowImpl) logReservationEvent(ctx context.Context, action string, description string, success bool, errMsg *string, metadata *ClientMetadata) error {
	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
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

func (f *ReservationFlowImpl) withReservationTransaction(ctx context.Context, fn func(context.Context) (*dto.ReservationResponse, error)) (*dto.ReservationResponse, error) {
	var result *dto.ReservationResponse
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

func (f *ReservationFlowImpl) withCancelTransaction(ctx context.Context, fn func(context.Context) (*dto.CancelReservationResponse, error)) (*dto.CancelReservationResponse, error) {
	var result *dto.CancelReservationResponse
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
