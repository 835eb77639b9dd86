package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role constants for users
const (
	RoleAgency     = "AGENCY"
	RoleSupervisor = "SUPERVISOR"
	RoleAdmin      = "ADMIN"
	RoleSuperAdmin = "SUPER_ADMIN"
)

// User represents either a staff member (agency/supervisor/admin) or a client
// owning lines. Ownership is by foreign key on Line, not embedded here.
type User struct {
	ID   uint      `gorm:"primaryKey" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_users_uuid;index:idx_users_uuid" json:"uuid"`

	Firstname   string  `gorm:"size:255;not null" json:"firstname"`
	Lastname    string  `gorm:"size:255;not null" json:"lastname"`
	Email       string  `gorm:"size:255;not null;uniqueIndex:uk_users_email" json:"email"`
	PhoneNumber *string `gorm:"size:20;index:idx_users_phone_number" json:"phone_number,omitempty"`

	AgencyID *uint  `gorm:"index:idx_users_agency_id" json:"agency_id,omitempty"`
	Role     string `gorm:"size:20;not null;default:'AGENCY';index:idx_users_role" json:"role"`

	PasswordHash string `gorm:"size:255;not null" json:"-"` // Never serialize password hash

	IsActive  *bool      `gorm:"default:true;index:idx_users_is_active" json:"is_active"`
	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_users_created_at" json:"created_at"`
	UpdatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
	LastLogin *time.Time `gorm:"index:idx_users_last_login" json:"last_login,omitempty"`

	// Relations
	Agency   *Agency       `gorm:"foreignKey:AgencyID;references:ID" json:"agency,omitempty"`
	Lines    []Line        `gorm:"foreignKey:ClientID" json:"lines,omitempty"`
	Sessions []UserSession `gorm:"foreignKey:UserID" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// BeforeCreate is called before creating a new record
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.UUID == uuid.Nil {
		u.UUID = uuid.New()
	}
	return nil
}

// IsSupervisor reports whether the user has supervisor-level access or above
func (u *User) IsSupervisor() bool {
	return u.Role == RoleSupervisor || u.Role == RoleAdmin || u.Role == RoleSuperAdmin
}

// IsAgencyUser reports whether the user belongs to a single agency scope
func (u *User) IsAgencyUser() bool {
	return u.Role == RoleAgency
}

// UserFilter represents filter criteria for user queries
type UserFilter struct {
	ID              *uint
	UUID            *uuid.UUID
	Email           *string
	PhoneNumber     *string
	AgencyID        *uint
	Role            *string
	IsActive        *bool
	CreatedAfter    *time.Time
	CreatedBefore   *time.Time
	LastLoginAfter  *time.Time
	LastLoginBefore *time.Time
}
