// Package dto contains Data Transfer Objects for API request and response structures
package dto

// LoginRequest represents the request payload for user login.
// Supervisor-level roles must solve a rotate captcha first.
type LoginRequest struct {
	Email        string `json:"email" validate:"required,email,max=255" example:"supervisor@redline.fr"`
	Password     string `json:"password" validate:"required,min=8,max=100" example:"SecurePass123!"`
	CaptchaID    string `json:"captcha_id,omitempty" validate:"omitempty,max=128"`
	CaptchaAngle int    `json:"captcha_angle,omitempty" validate:"omitempty,min=0,max=360"`
}

// UserDTO represents user information returned in auth responses
type UserDTO struct {
	ID          uint    `json:"id" example:"123"`
	UUID        string  `json:"uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	Firstname   string  `json:"firstname" example:"Marie"`
	Lastname    string  `json:"lastname" example:"Dupont"`
	Email       string  `json:"email" example:"supervisor@redline.fr"`
	PhoneNumber *string `json:"phone_number,omitempty" example:"+33612345678"`
	AgencyID    *uint   `json:"agency_id,omitempty" example:"2"`
	Role        string  `json:"role" example:"SUPERVISOR"`
	IsActive    *bool   `json:"is_active" example:"true"`
	CreatedAt   string  `json:"created_at" example:"2024-01-15T10:30:00Z"`
}

// SessionDTO represents the issued token pair
type SessionDTO struct {
	SessionToken string `json:"session_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type" example:"Bearer"`
	ExpiresIn    int    `json:"expires_in" example:"86400"`
	CreatedAt    string `json:"created_at" example:"2024-01-15T10:30:00Z"`
}

// LoginResponse represents the successful login response
type LoginResponse struct {
	User    UserDTO    `json:"user"`
	Session SessionDTO `json:"session"`
}

// CaptchaChallengeResponse carries a rotate captcha challenge to the client
type CaptchaChallengeResponse struct {
	CaptchaID   string `json:"captcha_id"`
	MasterImage string `json:"master_image"`
	ThumbImage  string `json:"thumb_image"`
	ExpiresIn   int    `json:"expires_in" example:"120"`
}
