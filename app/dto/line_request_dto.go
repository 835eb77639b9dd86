// Package dto contains Data Transfer Objects for API request and response structures
package dto

// CreateLineRequestRequest represents the payload to create a demand
type CreateLineRequestRequest struct {
	ClientID     uint    `json:"client_id" validate:"required,gt=0"`
	RedAccountID *uint   `json:"red_account_id,omitempty" validate:"omitempty,gt=0"`
	PhoneType    *string `json:"phone_type,omitempty" validate:"omitempty,max=50"`
	Notes        *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
	Priority     *int    `json:"priority,omitempty" validate:"omitempty,min=0,max=100"`
}

// LineRequestDTO represents a demand for responses
type LineRequestDTO struct {
	ID           uint    `json:"id"`
	UUID         string  `json:"uuid"`
	ClientID     uint    `json:"client_id"`
	AgencyID     uint    `json:"agency_id"`
	RedAccountID *uint   `json:"red_account_id,omitempty"`
	PhoneType    *string `json:"phone_type,omitempty"`
	Notes        *string `json:"notes,omitempty"`
	Status       string  `json:"status"`
	Priority     int     `json:"priority"`
	LineID       *uint   `json:"line_id,omitempty"`
	CreatedAt    string  `json:"created_at"`
}

// ListLineRequestsResponse wraps the demand backlog
type ListLineRequestsResponse struct {
	Items []LineRequestDTO `json:"items"`
	Total int64            `json:"total"`
}

// QuotaQueueResponse lists queued quota reservations for an account,
// priority-ordered (highest first, oldest breaking ties)
type QuotaQueueResponse struct {
	RedAccountID uint             `json:"red_account_id"`
	Items        []LineRequestDTO `json:"items"`
	Total        int64            `json:"total"`
}
