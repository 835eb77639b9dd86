// Package businessflow contains the core business logic for the line lifecycle and allocation workflows
package businessflow

import (
	"context"
	"fmt"

	"github.com/redline-telecom/redline/app/dto"
	"github.com/redline-telecom/redline/models"
	"github.com/redline-telecom/redline/repository"
	"github.com/redline-telecom/redline/utils"
	"gorm.io/gorm"
)

// LineRequestFlow manages the demand side: agency users file line requests,
// supervisors read the "clients to order" backlog and per-account quota
// queues. Fulfilment itself happens in the reservation flow.
type LineRequestFlow interface {
	CreateLineRequest(ctx context.Context, request *dto.CreateLineRequestRequest, metadata *ClientMetadata) (*dto.LineRequestDTO, error)
	ListClientsToOrder(ctx context.Context, agencyID uint) (*dto.ListLineRequestsResponse, error)
	QuotaQueue(ctx context.Context, redAccountID uint) (*dto.QuotaQueueResponse, error)
	CancelLineRequest(ctx context.Context, requestID uint, metadata *ClientMetadata) (*dto.LineRequestDTO, error)
}

// LineRequestFlowImpl implements the demand intake business flow
type LineRequestFlowImpl struct {
	requestRepo repository.LineRequestRepository
	accountRepo repository.RedAccountRepository
	userRepo    repository.UserRepository
	auditRepo   repository.AuditLogRepository
	db          *gorm.DB
}

// NewLineRequestFlow creates a new line request flow instance
func NewLineRequestFlow(
	requestRepo repository.LineRequestRepository,
	accountRepo repository.RedAccountRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditLogRepository,
	db *gorm.DB,
) LineRequestFlow {
	return &LineRequestFlowImpl{
		requestRepo: requestRepo,
		accountRepo: accountRepo,
		userRepo:    userRepo,
		auditRepo:   auditRepo,
		db:          db,
	}
}

// CreateLineRequest files a demand for a client. The agency is derived from
// the client, not from the payload, so a request can never land in another
// agency's backlog. Assigning an account up front is optional; a nil account
// leaves the demand in the agency-wide backlog.
func (f *LineRequestFlowImpl) CreateLineRequest(ctx context.Context, request *dto.CreateLineRequestRequest, metadata *ClientMetadata) (*dto.LineRequestDTO, error) {
	client, err := f.userRepo.ByID(ctx, request.ClientID)
	if err != nil {
		return nil, NewBusinessError("LINE_REQUEST_FAILED", "Failed to load client", err)
	}
	if client == nil {
		return nil, NewBusinessError("CLIENT_NOT_FOUND", "Client not found", ErrClientNotFound)
	}
	if client.AgencyID == nil {
		return nil, NewBusinessError("CLIENT_NOT_FOUND", "Client is not attached to an agency", ErrClientNotFound)
	}

	if request.RedAccountID != nil {
		account, err := f.accountRepo.ByID(ctx, *request.RedAccountID)
		if err != nil {
			return nil, NewBusinessError("LINE_REQUEST_FAILED", "Failed to load RED account", err)
		}
		if account == nil {
			return nil, NewBusinessError("RED_ACCOUNT_NOT_FOUND", "RED account not found", ErrRedAccountNotFound)
		}
		if account.AgencyID != *client.AgencyID {
			return nil, NewBusinessError("RED_ACCOUNT_NOT_FOUND", "RED account belongs to another agency", ErrRedAccountNotFound)
		}
	}

	priority := 0
	if request.Priority != nil {
		priority = *request.Priority
	}

	demand := &models.LineRequest{
		ClientID:     client.ID,
		AgencyID:     *client.AgencyID,
		RedAccountID: request.RedAccountID,
		PhoneType:    request.PhoneType,
		Notes:        request.Notes,
		Status:       models.RequestStatusPending,
		Priority:     priority,
	}

	if err := f.requestRepo.Save(ctx, demand); err != nil {
		errMsg := fmt.Sprintf("Line request creation failed: %s", err.Error())
		_ = f.logRequestEvent(ctx, models.AuditActionLineRequestCreated, errMsg, false, &errMsg, metadata)
		return nil, NewBusinessError("LINE_REQUEST_FAILED", "Failed to save line request", err)
	}

	msg := fmt.Sprintf("Line request %d filed for client %d (agency %d)", demand.ID, demand.ClientID, demand.AgencyID)
	_ = f.logRequestEvent(ctx, models.AuditActionLineRequestCreated, msg, true, nil, metadata)

	d := ToLineRequestDTO(*demand)
	return &d, nil
}

// ListClientsToOrder returns the pending backlog for an agency, oldest first.
// This is the supervisor's "clients to order" worklist.
func (f *LineRequestFlowImpl) ListClientsToOrder(ctx context.Context, agencyID uint) (*dto.ListLineRequestsResponse, error) {
	pending, err := f.requestRepo.ListPending(ctx, agencyID, 0, 0)
	if err != nil {
		return nil, NewBusinessError("LINE_REQUEST_LIST_FAILED", "Failed to list pending requests", err)
	}
	return &dto.ListLineRequestsResponse{
		Items: ToLineRequestDTOs(pending),
		Total: int64(len(pending)),
	}, nil
}

// QuotaQueue returns the queued demands pinned to one account, highest
// priority first, oldest breaking ties. These are the requests waiting for a
// slot to free up on a full account.
func (f *LineRequestFlowImpl) QuotaQueue(ctx context.Context, redAccountID uint) (*dto.QuotaQueueResponse, error) {
	account, err := f.accountRepo.ByID(ctx, redAccountID)
	if err != nil {
		return nil, NewBusinessError("QUOTA_QUEUE_FAILED", "Failed to load RED account", err)
	}
	if account == nil {
		return nil, NewBusinessError("RED_ACCOUNT_NOT_FOUND", "RED account not found", ErrRedAccountNotFound)
	}

	queued, err := f.requestRepo.ListPendingByAccount(ctx, redAccountID)
	if err != nil {
		return nil, NewBusinessError("QUOTA_QUEUE_FAILED", "Failed to list queued requests", err)
	}
	return &dto.QuotaQueueResponse{
		RedAccountID: redAccountID,
		Items:        ToLineRequestDTOs(queued),
		Total:        int64(len(queued)),
	}, nil
}

// CancelLineRequest withdraws a pending demand. Terminal requests stay as
// they are; cancelling a fulfilled request would orphan its line.
func (f *LineRequestFlowImpl) CancelLineRequest(ctx context.Context, requestID uint, metadata *ClientMetadata) (*dto.LineRequestDTO, error) {
	demand, err := f.requestRepo.ByID(ctx, requestID)
	if err != nil {
		return nil, NewBusinessError("LINE_REQUEST_CANCEL_FAILED", "Failed to load line request", err)
	}
	if demand == nil {
		return nil, NewBusinessError("LINE_REQUEST_NOT_FOUND", "Line request not found", ErrLineRequestNotFound)
	}
	if demand.Status.IsTerminal() {
		return nil, NewBusinessError("ALREADY_RESERVED", "Line request is no longer pending", ErrAlreadyReserved)
	}

	demand.Status = models.RequestStatusCancelled
	if err := f.requestRepo.Update(ctx, demand); err != nil {
		return nil, NewBusinessError("LINE_REQUEST_CANCEL_FAILED", "Failed to cancel line request", err)
	}

	msg := fmt.Sprintf("Line request %d cancelled", demand.ID)
	_ = f.logRequestEvent(ctx, models.AuditActionLineRequestCanceled, msg, true, nil, metadata)

	d := ToLineRequestDTO(*demand)
	return &d, nil
}

func (f *LineRequestFlowImpl) logRequestEvent(ctx context.Context, action string, description string, success bool, errMsg *string, metadata *ClientMetadata) error {
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
