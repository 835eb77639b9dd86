// Package dto contains Data Transfer Objects for API request and response structures
package dto

// LineDTO represents a phone line for responses
type LineDTO struct {
	ID                   uint    `json:"id"`
	UUID                 string  `json:"uuid"`
	PhoneNumber          *string `json:"phone_number,omitempty"`
	ICCID                *string `json:"iccid,omitempty"`
	SIMCardID            *uint   `json:"sim_card_id,omitempty"`
	PhoneStatus          string  `json:"phone_status"`
	PaymentStatus        string  `json:"payment_status"`
	HasActiveReservation *bool   `json:"has_active_reservation"`
	ReservationDate      *string `json:"reservation_date,omitempty"`
	RedAccountID         uint    `json:"red_account_id"`
	AgencyID             uint    `json:"agency_id"`
	ClientID             *uint   `json:"client_id,omitempty"`
	UnpaidMonthsCount    int     `json:"unpaid_months_count"`
	BlockReason          *string `json:"block_reason,omitempty"`
	TrackingNotes        *string `json:"tracking_notes,omitempty"`
	OrderDate            *string `json:"order_date,omitempty"`
	ActivatedAt          *string `json:"activated_at,omitempty"`
	TerminatedAt         *string `json:"terminated_at,omitempty"`
	CreatedAt            string  `json:"created_at"`
}

// CreateLineRequest represents the payload to create a line under a RED account
type CreateLineRequest struct {
	PhoneNumber *string `json:"phone_number,omitempty" validate:"omitempty,min=10,max=20"`
	ClientID    *uint   `json:"client_id,omitempty" validate:"omitempty,gt=0"`
	Notes       *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// UpdateLineStatusRequest represents a lifecycle status transition request
type UpdateLineStatusRequest struct {
	Status string  `json:"status" validate:"required,max=50" example:"ACTIVE"`
	Reason *string `json:"reason,omitempty" validate:"omitempty,max=2000"`
}

// ListLinesResponse wraps a list of lines
type ListLinesResponse struct {
	Items []LineDTO `json:"items"`
	Total int64     `json:"total"`
}

// LineBucketsResponse groups an agency's lines into operational worklists
type LineBucketsResponse struct {
	AgencyID   uint      `json:"agency_id"`
	ToOrder    []LineDTO `json:"to_order"`
	ToActivate []LineDTO `json:"to_activate"`
	ToBlock    []LineDTO `json:"to_block"`
	ToUnblock  []LineDTO `json:"to_unblock"`
	Reusable   []LineDTO `json:"reusable"`
	SnapshotAt string    `json:"snapshot_at"`
}
