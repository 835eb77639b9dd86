package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redline-telecom/redline/utils"
	"gorm.io/gorm"
)

// PhoneStatus represents the lifecycle status of a phone line
type PhoneStatus string

const (
	PhoneStatusNeedsToBeOrdered     PhoneStatus = "NEEDS_TO_BE_ORDERED"
	PhoneStatusNeedsToBeActivated   PhoneStatus = "NEEDS_TO_BE_ACTIVATED"
	PhoneStatusNeedsToBeDeactivated PhoneStatus = "NEEDS_TO_BE_DEACTIVATED"
	PhoneStatusNeedsToBeReplaced    PhoneStatus = "NEEDS_TO_BE_REPLACED"
	PhoneStatusNeedsToBeBlocked     PhoneStatus = "NEEDS_TO_BE_BLOCKED"
	PhoneStatusReservedExistingLine PhoneStatus = "RESERVED_EXISTING_LINE"
	PhoneStatusReservedNewLine      PhoneStatus = "RESERVED_NEW_LINE"
	PhoneStatusTemporarilyAssigned  PhoneStatus = "TEMPORARILY_ASSIGNED"
	PhoneStatusNeedsNewAccount      PhoneStatus = "NEEDS_NEW_ACCOUNT"
	PhoneStatusActive               PhoneStatus = "ACTIVE"
	PhoneStatusInactive             PhoneStatus = "INACTIVE"
	PhoneStatusSuspended            PhoneStatus = "SUSPENDED"
	PhoneStatusBlocked              PhoneStatus = "BLOCKED"
	PhoneStatusPaused               PhoneStatus = "PAUSED"
	PhoneStatusTerminated           PhoneStatus = "TERMINATED"
)

// String returns the string representation of the status
func (s PhoneStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s PhoneStatus) Valid() bool {
	switch s {
	case PhoneStatusNeedsToBeOrdered, PhoneStatusNeedsToBeActivated,
		PhoneStatusNeedsToBeDeactivated, PhoneStatusNeedsToBeReplaced,
		PhoneStatusNeedsToBeBlocked, PhoneStatusReservedExistingLine,
		PhoneStatusReservedNewLine, PhoneStatusTemporarilyAssigned,
		PhoneStatusNeedsNewAccount, PhoneStatusActive, PhoneStatusInactive,
		PhoneStatusSuspended, PhoneStatusBlocked, PhoneStatusPaused,
		PhoneStatusTerminated:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for PhoneStatus
func (s *PhoneStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = PhoneStatus(v)
	case []byte:
		*s = PhoneStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into PhoneStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for PhoneStatus
func (s PhoneStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid PhoneStatus: %s", s)
	}
	return string(s), nil
}

// PaymentStatus represents the billing standing of a line
type PaymentStatus string

const (
	PaymentStatusUpToDate          PaymentStatus = "UP_TO_DATE"
	PaymentStatusPaid              PaymentStatus = "PAID"
	PaymentStatusOverdue           PaymentStatus = "OVERDUE"
	PaymentStatusPastDue           PaymentStatus = "PAST_DUE"
	PaymentStatusToBlock           PaymentStatus = "TO_BLOCK"
	PaymentStatusBlockedNonpayment PaymentStatus = "BLOCKED_NONPAYMENT"
	PaymentStatusPendingPayment    PaymentStatus = "PENDING_PAYMENT"
	PaymentStatusUnattributed      PaymentStatus = "UNATTRIBUTED"
	PaymentStatusCancelled         PaymentStatus = "CANCELLED"
	PaymentStatusReimbursed        PaymentStatus = "REIMBURSED"
	PaymentStatusRefunded          PaymentStatus = "REFUNDED"
	PaymentStatusDisputed          PaymentStatus = "DISPUTED"
	PaymentStatusChargeback        PaymentStatus = "CHARGEBACK"
	PaymentStatusFraudulent        PaymentStatus = "FRAUDULENT"
)

func (s PaymentStatus) String() string {
	return string(s)
}

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusUpToDate, PaymentStatusPaid, PaymentStatusOverdue,
		PaymentStatusPastDue, PaymentStatusToBlock, PaymentStatusBlockedNonpayment,
		PaymentStatusPendingPayment, PaymentStatusUnattributed, PaymentStatusCancelled,
		PaymentStatusReimbursed, PaymentStatusRefunded, PaymentStatusDisputed,
		PaymentStatusChargeback, PaymentStatusFraudulent:
		return true
	default:
		return false
	}
}

// IsOverdue reports whether the line is behind on payment (OVERDUE and its
// legacy PAST_DUE alias are equivalent on the wire)
func (s PaymentStatus) IsOverdue() bool {
	return s == PaymentStatusOverdue || s == PaymentStatusPastDue
}

// Scan implements the sql.Scanner interface for PaymentStatus
func (s *PaymentStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = PaymentStatus(v)
	case []byte:
		*s = PaymentStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into PaymentStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for PaymentStatus
func (s PaymentStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid PaymentStatus: %s", s)
	}
	return string(s), nil
}

// ReservationStatus is a legacy compatibility field; the authoritative state
// lives in PhoneStatus. Predicates must still double-check HasActiveReservation
// because the status column is not eagerly rewritten on reservation.
type ReservationStatus string

const (
	ReservationStatusReserved  ReservationStatus = "RESERVED"
	ReservationStatusAvailable ReservationStatus = "AVAILABLE"
)

// Line represents a phone line under a RED account.
// A line starts as a "ghost" (no phone number, no SIM) and acquires identity
// through the reservation and activation workflows.
// Table: lines
type Line struct {
	ID   uint      `gorm:"primaryKey" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_lines_uuid;index:idx_lines_uuid" json:"uuid"`

	PhoneNumber *string `gorm:"size:20;uniqueIndex:uk_lines_phone_number" json:"phone_number,omitempty"`
	SIMCardID   *uint   `gorm:"index:idx_lines_sim_card_id" json:"sim_card_id,omitempty"`
	ICCID       *string `gorm:"size:22;index:idx_lines_iccid" json:"iccid,omitempty"`

	PhoneStatus   PhoneStatus   `gorm:"type:phone_status;not null;default:'NEEDS_TO_BE_ORDERED';index:idx_lines_phone_status" json:"phone_status"`
	PaymentStatus PaymentStatus `gorm:"type:payment_status;not null;default:'UNATTRIBUTED';index:idx_lines_payment_status" json:"payment_status"`

	// Reservation compatibility fields (see ReservationStatus)
	HasActiveReservation *bool              `gorm:"default:false;index:idx_lines_has_active_reservation" json:"has_active_reservation"`
	ReservationStatus    *ReservationStatus `gorm:"size:20" json:"reservation_status,omitempty"`
	ReservationDate      *time.Time         `json:"reservation_date,omitempty"`

	RedAccountID uint  `gorm:"not null;index:idx_lines_red_account_id" json:"red_account_id"`
	AgencyID     uint  `gorm:"not null;index:idx_lines_agency_id" json:"agency_id"`
	ClientID     *uint `gorm:"index:idx_lines_client_id" json:"client_id,omitempty"`

	UnpaidMonthsCount  int     `gorm:"not null;default:0" json:"unpaid_months_count"`
	BlockReason        *string `gorm:"type:text" json:"block_reason,omitempty"`
	PendingBlockReason *string `gorm:"type:text" json:"pending_block_reason,omitempty"`
	TrackingNotes      *string `gorm:"type:text" json:"tracking_notes,omitempty"`

	OrderDate    *time.Time `gorm:"index:idx_lines_order_date" json:"order_date,omitempty"`
	ActivatedAt  *time.Time `gorm:"index:idx_lines_activated_at" json:"activated_at,omitempty"`
	TerminatedAt *time.Time `gorm:"index:idx_lines_terminated_at" json:"terminated_at,omitempty"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_lines_created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`

	// Relations
	RedAccount *RedAccount `gorm:"foreignKey:RedAccountID;references:ID" json:"red_account,omitempty"`
	Agency     *Agency     `gorm:"foreignKey:AgencyID;references:ID" json:"agency,omitempty"`
	Client     *User       `gorm:"foreignKey:ClientID;references:ID" json:"client,omitempty"`
	SIMCard    *SIMCard    `gorm:"foreignKey:SIMCardID;references:ID" json:"sim_card,omitempty"`
}

func (Line) TableName() string {
	return "lines"
}

// BeforeCreate is called before creating a new record
func (l *Line) BeforeCreate(tx *gorm.DB) error {
	if l.UUID == uuid.Nil {
		l.UUID = uuid.New()
	}
	if l.PhoneStatus == "" {
		l.PhoneStatus = PhoneStatusNeedsToBeOrdered
	}
	if l.PaymentStatus == "" {
		l.PaymentStatus = PaymentStatusUnattributed
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (l *Line) BeforeUpdate(tx *gorm.DB) error {
	l.UpdatedAt = utils.UTCNow()
	return nil
}

// CanTransitionTo checks if the line can transition to the given status.
// This is the consolidated state machine; the legacy reservation flags are a
// compatibility shim maintained alongside it.
func (l *Line) CanTransitionTo(newStatus PhoneStatus) bool {
	switch l.PhoneStatus {
	case PhoneStatusNeedsToBeOrdered:
		return newStatus == PhoneStatusReservedNewLine ||
			newStatus == PhoneStatusReservedExistingLine ||
			newStatus == PhoneStatusNeedsToBeActivated ||
			newStatus == PhoneStatusNeedsNewAccount ||
			newStatus == PhoneStatusTerminated
	case PhoneStatusReservedNewLine, PhoneStatusReservedExistingLine:
		return newStatus == PhoneStatusNeedsToBeActivated ||
			newStatus == PhoneStatusActive ||
			newStatus == PhoneStatusNeedsToBeOrdered ||
			newStatus == PhoneStatusTerminated
	case PhoneStatusNeedsToBeActivated:
		return newStatus == PhoneStatusActive ||
			newStatus == PhoneStatusNeedsToBeOrdered ||
			newStatus == PhoneStatusTerminated
	case PhoneStatusTemporarilyAssigned:
		return newStatus == PhoneStatusActive ||
			newStatus == PhoneStatusTerminated
	case PhoneStatusNeedsNewAccount:
		return newStatus == PhoneStatusNeedsToBeOrdered ||
			newStatus == PhoneStatusReservedNewLine ||
			newStatus == PhoneStatusTerminated
	case PhoneStatusActive:
		return newStatus == PhoneStatusPaused ||
			newStatus == PhoneStatusSuspended ||
			newStatus == PhoneStatusNeedsToBeBlocked ||
			newStatus == PhoneStatusNeedsToBeDeactivated ||
			newStatus == PhoneStatusNeedsToBeReplaced ||
			newStatus == PhoneStatusTerminated
	case PhoneStatusNeedsToBeBlocked:
		return newStatus == PhoneStatusBlocked ||
			newStatus == PhoneStatusActive ||
			newStatus == PhoneStatusTerminated
	case PhoneStatusNeedsToBeDeactivated:
		return newStatus == PhoneStatusInactive ||
			newStatus == PhoneStatusActive ||
			newStatus == PhoneStatusTerminated
	case PhoneStatusNeedsToBeReplaced:
		return newStatus == PhoneStatusActive ||
			newStatus == PhoneStatusTerminated
	case PhoneStatusPaused:
		return newStatus == PhoneStatusActive ||
			newStatus == PhoneStatusTerminated
	case PhoneStatusSuspended:
		return newStatus == PhoneStatusActive ||
			newStatus == PhoneStatusBlocked ||
			newStatus == PhoneStatusTerminated
	case PhoneStatusBlocked:
		return newStatus == PhoneStatusActive ||
			newStatus == PhoneStatusTerminated
	case PhoneStatusInactive:
		return newStatus == PhoneStatusActive ||
			newStatus == PhoneStatusTerminated
	case PhoneStatusTerminated:
		// Reuse of a terminated line goes through the reservation flow,
		// which checks the one-year holding period first.
		return newStatus == PhoneStatusReservedExistingLine
	default:
		return false
	}
}

// IsReserved reports whether the line currently holds a slot reservation.
// The legacy flag wins over the raw status: a line may still read
// NEEDS_TO_BE_ORDERED while a reservation is already committed.
func (l *Line) IsReserved() bool {
	return utils.IsTrue(l.HasActiveReservation) ||
		l.PhoneStatus == PhoneStatusReservedNewLine ||
		l.PhoneStatus == PhoneStatusReservedExistingLine
}

// IsGhost reports whether the line has no assigned phone number yet
func (l *Line) IsGhost() bool {
	return l.PhoneNumber == nil || *l.PhoneNumber == ""
}

// LineFilter represents filter criteria for line queries
type LineFilter struct {
	ID                   *uint
	UUID                 *uuid.UUID
	PhoneNumber          *string
	ICCID                *string
	PhoneStatus          *PhoneStatus
	PaymentStatus        *PaymentStatus
	HasActiveReservation *bool
	RedAccountID         *uint
	AgencyID             *uint
	ClientID             *uint
	TerminatedBefore     *time.Time
	OrderedAfter         *time.Time
	OrderedBefore        *time.Time
	CreatedAfter         *time.Time
	CreatedBefore        *time.Time
}
