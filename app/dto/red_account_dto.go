// Package dto contains Data Transfer Objects for API request and response structures
package dto

// CreateRedAccountRequest represents the payload to create a RED account
// Supervisor-only endpoint
type CreateRedAccountRequest struct {
	RedAccountID string `json:"red_account_id" validate:"required,min=3,max=100"`
	Password     string `json:"password" validate:"required,min=8,max=100"`
	AgencyID     uint   `json:"agency_id" validate:"required,gt=0"`
	MaxLines     int    `json:"max_lines" validate:"required,gt=0,lte=100"`
}

// RedAccountDTO represents a RED account with capacity counters
type RedAccountDTO struct {
	ID             uint      `json:"id"`
	UUID           string    `json:"uuid"`
	RedAccountID   string    `json:"red_account_id"`
	AgencyID       uint      `json:"agency_id"`
	MaxLines       int       `json:"max_lines"`
	ActiveLines    int       `json:"active_lines"`
	ReservedLines  int       `json:"reserved_lines"`
	AvailableSlots int       `json:"available_slots"`
	IsActive       *bool     `json:"is_active"`
	CreatedAt      string    `json:"created_at"`
	Lines          []LineDTO `json:"lines,omitempty"`
}

// ListRedAccountsResponse wraps the accounts list with nested lines
type ListRedAccountsResponse struct {
	Items []RedAccountDTO `json:"items"`
	Total int64           `json:"total"`
}

// RevealPasswordRequest guards the time-limited password reveal
type RevealPasswordRequest struct {
	CaptchaID    string `json:"captcha_id" validate:"required,max=128"`
	CaptchaAngle int    `json:"captcha_angle" validate:"min=0,max=360"`
}

// RevealPasswordResponse carries the display-only secret with its deadline
type RevealPasswordResponse struct {
	Password  string `json:"password"`
	ExpiresIn int    `json:"expires_in" example:"30"`
	ExpiresAt string `json:"expires_at"`
}

// AccountAvailabilityDTO is one row of the allocation analyzer view
type AccountAvailabilityDTO struct {
	Account        RedAccountDTO `json:"account"`
	OccupiedSlots  int           `json:"occupied_slots"`
	AvailableSlots int           `json:"available_slots"`
	ReusableLines  []LineDTO     `json:"reusable_lines,omitempty"`
}

// AvailabilityResponse is the ranked capacity view for an agency.
// Accounts with free slots come first (descending availability); full
// accounts are listed separately; reusable lines are independent of slots.
type AvailabilityResponse struct {
	Available     []AccountAvailabilityDTO `json:"available"`
	Full          []AccountAvailabilityDTO `json:"full"`
	ReusableLines []LineDTO                `json:"reusable_lines"`
	NoCapacity    bool                     `json:"no_capacity"`
	SnapshotAt    string                   `json:"snapshot_at"`
}
