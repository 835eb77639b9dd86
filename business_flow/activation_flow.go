// Package businessflow contains the core business logic for the line lifecycle and allocation workflows
package businessflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/redline-telecom/redline/app/dto"
	"github.com/redline-telecom/redline/config"
	"github.com/redline-telecom/redline/models"
	"github.com/redline-telecom/redline/repository"
	"github.com/redline-telecom/redline/utils"
	"gorm.io/gorm"
)

// ActivationFlow binds a concrete ICCID to a reserved line and flips it to
// ACTIVE, consuming the matching SIM card from the agency stock when present.
type ActivationFlow interface {
	ActivateLine(ctx context.Context, request *dto.ActivateLineRequest, metadata *ClientMetadata) (*dto.ActivationResponse, error)
}

// ActivationFlowImpl implements the activation business flow
type ActivationFlowImpl struct {
	lineRepo    repository.LineRepository
	accountRepo repository.RedAccountRepository
	simRepo     repository.SIMCardRepository
	userRepo    repository.UserRepository
	auditRepo   repository.AuditLogRepository
	rc          *redis.Client
	cacheConfig *config.CacheConfig
	db          *gorm.DB
}

// NewActivationFlow creates a new activation flow instance
func NewActivationFlow(
	lineRepo repository.LineRepository,
	accountRepo repository.RedAccountRepository,
	simRepo repository.SIMCardRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditLogRepository,
	rc *redis.Client,
	cacheConfig *config.CacheConfig,
	db *gorm.DB,
) ActivationFlow {
	return &ActivationFlowImpl{
		lineRepo:    lineRepo,
		accountRepo: accountRepo,
		simRepo:     simRepo,
		userRepo:    userRepo,
		auditRepo:   auditRepo,
		rc:          rc,
		cacheConfig: cacheConfig,
		db:          db,
	}
}

// ActivateLine finalizes a reservation: ICCID bound, SIM consumed, status
// ACTIVE, activatedAt stamped. The activation kind (new vs reactivation) is
// classified from the line's history before any mutation.
func (f *ActivationFlowImpl) ActivateLine(ctx context.Context, request *dto.ActivateLineRequest, metadata *ClientMetadata) (*dto.ActivationResponse, error) {
	iccid := strings.ToUpper(strings.TrimSpace(request.ICCID))
	if err := ValidateICCID(iccid); err != nil {
		return nil, NewBusinessError("ICCID_INVALID", "ICCID validation failed", err)
	}

	var agencyID uint

	resp, err := f.withActivationTransaction(ctx, func(ctx context.Context) (*dto.ActivationResponse, error) {
		line, err := f.lineRepo.ByID(ctx, request.PhoneID)
		if err != nil {
			return nil, err
		}
		if line == nil {
			return nil, ErrPhoneNotFound
		}
		agencyID = line.AgencyID

		if line.PhoneStatus == models.PhoneStatusActive {
			return nil, ErrAlreadyActive
		}
		if request.ClientID == nil && line.ClientID == nil && !line.IsReserved() {
			return nil, ErrMissingTarget
		}
		if !line.CanTransitionTo(models.PhoneStatusActive) {
			return nil, ErrInvalidTransition
		}

		if request.ClientID != nil {
			client, err := f.userRepo.ByID(ctx, *request.ClientID)
			if err != nil {
				return nil, err
			}
			if client == nil {
				return nil, ErrClientNotFound
			}
			line.ClientID = &client.ID
		}

		// Classify before mutating: the history is about to be overwritten
		kind := ClassifyActivation(line)
		wasReserved := line.IsReserved()

		// Consume the SIM from the agency stock when it is registered there
		simConsumed := false
		sim, err := f.simRepo.ByICCID(ctx, iccid)
		if err != nil {
			return nil, err
		}
		if sim != nil {
			if sim.AgencyID != line.AgencyID {
				return nil, ErrSIMCardNotFound
			}
			if sim.Status != models.SIMStatusInStock {
				return nil, ErrSIMCardConsumed
			}
			sim.Status = models.SIMStatusInactive
			if err := f.simRepo.Update(ctx, sim); err != nil {
				return nil, err
			}
			line.SIMCardID = &sim.ID
			simConsumed = true
		}

		now := utils.UTCNow()
		line.ICCID = &iccid
		line.PhoneStatus = models.PhoneStatusActive
		line.ActivatedAt = &now
		line.HasActiveReservation = utils.ToPtr(false)
		line.ReservationStatus = utils.ToPtr(models.ReservationStatusAvailable)
		if line.PaymentStatus == models.PaymentStatusUnattributed {
			line.PaymentStatus = models.PaymentStatusUpToDate
		}
		if request.Notes != nil {
			line.TrackingNotes = request.Notes
		}
		if err := f.lineRepo.Update(ctx, line); err != nil {
			return nil, err
		}

		reservedDelta := 0
		if wasReserved {
			reservedDelta = -1
		}
		if err := f.accountRepo.AdjustCounters(ctx, line.RedAccountID, 1, reservedDelta); err != nil {
			return nil, err
		}

		return &dto.ActivationResponse{
			Line:           ToLineDTO(*line),
			ActivationKind: kind.String(),
			SIMConsumed:    simConsumed,
		}, nil
	})

	if err != nil {
		errMsg := fmt.Sprintf("Activation failed: %s", err.Error())
		_ = f.logActivationEvent(ctx, models.AuditActionLineActivated, errMsg, false, &errMsg, metadata)
		return nil, NewBusinessError("ACTIVATION_FAILED", "Activation failed", err)
	}

	msg := fmt.Sprintf("Line %d activated (%s)", resp.Line.ID, resp.ActivationKind)
	_ = f.logActivationEvent(ctx, models.AuditActionLineActivated, msg, true, nil, metadata)

	// The account's capacity view is now stale for the whole agency
	InvalidateSnapshot(ctx, f.rc, f.cacheConfig, agencyID)
	return resp, nil
}

// ValidateICCID checks the scanned ICCID shape: minimum length, maximum 22
// characters, digits only with an optional trailing F padding nibble.
func ValidateICCID(iccid string) error {
	if len(iccid) < utils.MinICCIDLength {
		return ErrICCIDTooShort
	}
	if len(iccid) > 22 {
		return ErrICCIDInvalid
	}
	for i := 0; i < len(iccid); i++ {
		c := iccid[i]
		if c >= '0' && c <= '9' {
			continue
		}
		if c == 'F' && i == len(iccid)-1 {
			continue
		}
		return ErrICCIDInvalid
	}
	return nil
}

func (f *ActivationFlowImpl) logActivationEvent(ctx context.Context, action string, description string, success bool, errMsg *string, metadata *ClientMetadata) error {
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

func (f *ActivationFlowImpl) withActivationTransaction(ctx context.Context, fn func(context.Context) (*dto.ActivationResponse, error)) (*dto.ActivationResponse, error) {
	var result *dto.ActivationResponse
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
