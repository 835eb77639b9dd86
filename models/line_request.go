package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redline-telecom/redline/utils"
	"gorm.io/gorm"
)

// RequestStatus represents the status of a line request (demand)
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "PENDING"
	RequestStatusFulfilled RequestStatus = "FULFILLED"
	RequestStatusCancelled RequestStatus = "CANCELLED"
)

func (s RequestStatus) String() string {
	return string(s)
}

func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusPending, RequestStatusFulfilled, RequestStatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the request can no longer change
func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusFulfilled || s == RequestStatusCancelled
}

// Scan implements the sql.Scanner interface for RequestStatus
func (s *RequestStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = RequestStatus(v)
	case []byte:
		*s = RequestStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into RequestStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for RequestStatus
func (s RequestStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid RequestStatus: %s", s)
	}
	return string(s), nil
}

// LineRequest represents a demand for a new line, created by an agency user
// and resolved by a supervisor through the reservation coordinator.
// A request carries no physical line; fulfilment turns it into a Line.
// Table: line_requests
type LineRequest struct {
	ID   uint      `gorm:"primaryKey" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_line_requests_uuid;index:idx_line_requests_uuid" json:"uuid"`

	ClientID uint `gorm:"not null;index:idx_line_requests_client_id" json:"client_id"`
	AgencyID uint `gorm:"not null;index:idx_line_requests_agency_id" json:"agency_id"`

	// RedAccountID stays nil until a supervisor assigns the demand
	RedAccountID *uint `gorm:"index:idx_line_requests_red_account_id" json:"red_account_id,omitempty"`

	PhoneType *string       `gorm:"size:50" json:"phone_type,omitempty"`
	Notes     *string       `gorm:"type:text" json:"notes,omitempty"`
	Status    RequestStatus `gorm:"type:line_request_status;not null;default:'PENDING';index:idx_line_requests_status" json:"status"`

	// Priority orders queued quota reservations when an account is full
	Priority int `gorm:"not null;default:0;index:idx_line_requests_priority" json:"priority"`

	// LineID is set when the request is fulfilled
	LineID *uint `gorm:"index:idx_line_requests_line_id" json:"line_id,omitempty"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_line_requests_created_at" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`

	// Relations
	Client     *User       `gorm:"foreignKey:ClientID;references:ID" json:"client,omitempty"`
	Agency     *Agency     `gorm:"foreignKey:AgencyID;references:ID" json:"agency,omitempty"`
	RedAccount *RedAccount `gorm:"foreignKey:RedAccountID;references:ID" json:"red_account,omitempty"`
	Line       *Line       `gorm:"foreignKey:LineID;references:ID" json:"line,omitempty"`
}

func (LineRequest) TableName() string {
	return "line_requests"
}

// BeforeCreate is called before creating a new record
func (r *LineRequest) BeforeCreate(tx *gorm.DB) error {
	if r.UUID == uuid.Nil {
		r.UUID = uuid.New()
	}
	if r.Status == "" {
		r.Status = RequestStatusPending
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (r *LineRequest) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	r.UpdatedAt = &now
	return nil
}

// LineRequestFilter represents filter criteria for line request queries
type LineRequestFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	ClientID      *uint
	AgencyID      *uint
	RedAccountID  *uint
	Status        *RequestStatus
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
