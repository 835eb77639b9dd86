// Package dto contains Data Transfer Objects for API request and response structures
package dto

// ActivateLineRequest binds an ICCID to a reserved line
type ActivateLineRequest struct {
	PhoneID  uint    `json:"phone_id" validate:"required,gt=0"`
	ICCID    string  `json:"iccid" validate:"required,iccid"`
	ClientID *uint   `json:"client_id,omitempty" validate:"omitempty,gt=0"`
	Notes    *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// ActivationResponse represents the activated line with its computed kind
type ActivationResponse struct {
	Line           LineDTO `json:"line"`
	ActivationKind string  `json:"activation_kind" example:"NEW_ACTIVATION"`
	SIMConsumed    bool    `json:"sim_consumed"`
}

// AnalyzeICCIDRequest asks the matcher to score candidate accounts
type AnalyzeICCIDRequest struct {
	ICCID    string `json:"iccid" validate:"required,min=8,max=22"`
	AgencyID uint   `json:"agency_id" validate:"required,gt=0"`
	ClientID *uint  `json:"client_id,omitempty" validate:"omitempty,gt=0"`
}

// ICCIDCandidateDTO is one scored account proposal
type ICCIDCandidateDTO struct {
	Account    RedAccountDTO `json:"account"`
	Score      int           `json:"score"`
	Reasons    []string      `json:"reasons"`
	Confidence string        `json:"confidence" example:"high"`
}

// AnalyzeICCIDResponse carries scored candidates. An empty list is not an
// error; it means manual number entry is required.
type AnalyzeICCIDResponse struct {
	ICCID         string              `json:"iccid"`
	OrderDateHint *string             `json:"order_date_hint,omitempty"`
	Candidates    []ICCIDCandidateDTO `json:"candidates"`
	ManualEntry   bool                `json:"manual_entry"`
}
