// Package dto contains Data Transfer Objects for API request and response structures
package dto

// ReserveLineRequest represents a direct reservation against an account
type ReserveLineRequest struct {
	RedAccountID uint    `json:"red_account_id" validate:"required,gt=0"`
	ClientID     uint    `json:"client_id" validate:"required,gt=0"`
	Notes        *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// ReserveExistingRequest promotes a pending demand into a reservation
type ReserveExistingRequest struct {
	LineRequestID uint `json:"line_request_id" validate:"required,gt=0"`
	RedAccountID  uint `json:"red_account_id" validate:"required,gt=0"`
}

// ReservationResponse represents the committed reservation
type ReservationResponse struct {
	Line        LineDTO         `json:"line"`
	LineRequest *LineRequestDTO `json:"line_request,omitempty"`
	Account     RedAccountDTO   `json:"account"`
}

// CancelReservationResponse confirms a released slot
type CancelReservationResponse struct {
	Line    LineDTO       `json:"line"`
	Account RedAccountDTO `json:"account"`
}
