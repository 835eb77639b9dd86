// Package businessflow contains the business logic for the application.
package businessflow

import (
	"time"

	"github.com/redline-telecom/redline/app/dto"
	"github.com/redline-telecom/redline/models"
	"github.com/redline-telecom/redline/utils"
)

// RequestIDKey is the context key the HTTP layer stores the request ID under
const RequestIDKey = utils.RequestIDKey

// ClientMetadata holds all client-related information for audit logging and session tracking
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	SessionID  string            `json:"session_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// SetSessionID sets the session ID
func (cm *ClientMetadata) SetSessionID(sessionID string) {
	cm.SessionID = sessionID
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

// ToUserDTO converts a user model to UserDTO for auth responses
func ToUserDTO(user models.User) dto.UserDTO {
	return dto.UserDTO{
		ID:          user.ID,
		UUID:        user.UUID.String(),
		Firstname:   user.Firstname,
		Lastname:    user.Lastname,
		Email:       user.Email,
		PhoneNumber: user.PhoneNumber,
		AgencyID:    user.AgencyID,
		Role:        user.Role,
		IsActive:    user.IsActive,
		CreatedAt:   user.CreatedAt.Format(time.RFC3339),
	}
}

// ToSessionDTO converts a session model to SessionDTO
func ToSessionDTO(session models.UserSession) dto.SessionDTO {
	return dto.SessionDTO{
		SessionToken: session.SessionToken,
		RefreshToken: session.RefreshToken,
		ExpiresIn:    int(time.Until(session.ExpiresAt).Seconds()),
		TokenType:    "Bearer",
		CreatedAt:    session.CreatedAt.Format(time.RFC3339),
	}
}

// ToLineDTO converts a line model to LineDTO
func ToLineDTO(line models.Line) dto.LineDTO {
	return dto.LineDTO{
		ID:                   line.ID,
		UUID:                 line.UUID.String(),
		PhoneNumber:          line.PhoneNumber,
		ICCID:                line.ICCID,
		SIMCardID:            line.SIMCardID,
		PhoneStatus:          line.PhoneStatus.String(),
		PaymentStatus:        line.PaymentStatus.String(),
		HasActiveReservation: line.HasActiveReservation,
		ReservationDate:      formatTimePtr(line.ReservationDate),
		RedAccountID:         line.RedAccountID,
		AgencyID:             line.AgencyID,
		ClientID:             line.ClientID,
		UnpaidMonthsCount:    line.UnpaidMonthsCount,
		BlockReason:          line.BlockReason,
		TrackingNotes:        line.TrackingNotes,
		OrderDate:            formatTimePtr(line.OrderDate),
		ActivatedAt:          formatTimePtr(line.ActivatedAt),
		TerminatedAt:         formatTimePtr(line.TerminatedAt),
		CreatedAt:            line.CreatedAt.Format(time.RFC3339),
	}
}

// ToLineDTOs converts a slice of line models
func ToLineDTOs(lines []*models.Line) []dto.LineDTO {
	out := make([]dto.LineDTO, 0, len(lines))
	for _, l := range lines {
		if l == nil {
			continue
		}
		out = append(out, ToLineDTO(*l))
	}
	return out
}

// ToRedAccountDTO converts a RED account model to RedAccountDTO.
// The password stays server-side; the reveal flow is the only reader.
func ToRedAccountDTO(account models.RedAccount, includeLines bool) dto.RedAccountDTO {
	d := dto.RedAccountDTO{
		ID:             account.ID,
		UUID:           account.UUID.String(),
		RedAccountID:   account.RedAccountID,
		AgencyID:       account.AgencyID,
		MaxLines:       account.MaxLines,
		ActiveLines:    account.ActiveLines,
		ReservedLines:  account.ReservedLines,
		AvailableSlots: account.AvailableSlots(),
		IsActive:       account.IsActive,
		CreatedAt:      account.CreatedAt.Format(time.RFC3339),
	}
	if includeLines {
		d.Lines = make([]dto.LineDTO, 0, len(account.Lines))
		for i := range account.Lines {
			d.Lines = append(d.Lines, ToLineDTO(account.Lines[i]))
		}
	}
	return d
}

// ToLineRequestDTO converts a line request model to LineRequestDTO
func ToLineRequestDTO(request models.LineRequest) dto.LineRequestDTO {
	return dto.LineRequestDTO{
		ID:           request.ID,
		UUID:         request.UUID.String(),
		ClientID:     request.ClientID,
		AgencyID:     request.AgencyID,
		RedAccountID: request.RedAccountID,
		PhoneType:    request.PhoneType,
		Notes:        request.Notes,
		Status:       request.Status.String(),
		Priority:     request.Priority,
		LineID:       request.LineID,
		CreatedAt:    request.CreatedAt.Format(time.RFC3339),
	}
}

// ToLineRequestDTOs converts a slice of line request models
func ToLineRequestDTOs(requests []*models.LineRequest) []dto.LineRequestDTO {
	out := make([]dto.LineRequestDTO, 0, len(requests))
	for _, r := range requests {
		if r == nil {
			continue
		}
		out = append(out, ToLineRequestDTO(*r))
	}
	return out
}
