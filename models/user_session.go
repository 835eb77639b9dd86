package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserSession represents an authenticated session backed by a JWT pair
type UserSession struct {
	ID   uint      `gorm:"primaryKey" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_user_sessions_uuid" json:"uuid"`

	UserID       uint   `gorm:"not null;index:idx_user_sessions_user_id" json:"user_id"`
	SessionToken string `gorm:"size:512;not null;uniqueIndex:uk_user_sessions_token" json:"session_token"`
	RefreshToken string `gorm:"size:512;not null" json:"refresh_token"`

	IPAddress *string `gorm:"type:inet" json:"ip_address,omitempty"`
	UserAgent *string `gorm:"type:text" json:"user_agent,omitempty"`

	IsActive  *bool     `gorm:"default:true;index:idx_user_sessions_is_active" json:"is_active"`
	ExpiresAt time.Time `gorm:"not null;index:idx_user_sessions_expires_at" json:"expires_at"`
	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`

	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`

	// Relations
	User *User `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
}

func (UserSession) TableName() string {
	return "user_sessions"
}

// BeforeCreate is called before creating a new record
func (s *UserSession) BeforeCreate(tx *gorm.DB) error {
	if s.UUID == uuid.Nil {
		s.UUID = uuid.New()
	}
	return nil
}

// UserSessionFilter represents filter criteria for session queries
type UserSessionFilter struct {
	ID           *uint
	UUID         *uuid.UUID
	UserID       *uint
	SessionToken *string
	IsActive     *bool
	ExpiresAfter *time.Time
	IsExpired    *bool
}
