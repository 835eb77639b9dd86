package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Agency represents a point-of-sale agency managing its own clients,
// RED accounts and SIM card stock
type Agency struct {
	ID   uint      `gorm:"primaryKey" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_agencies_uuid;index:idx_agencies_uuid" json:"uuid"`

	Name string `gorm:"size:255;not null;uniqueIndex:uk_agencies_name" json:"name"`

	IsActive  *bool     `gorm:"default:true;index:idx_agencies_is_active" json:"is_active"`
	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_agencies_created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`

	// Relations
	Users       []User       `gorm:"foreignKey:AgencyID" json:"users,omitempty"`
	RedAccounts []RedAccount `gorm:"foreignKey:AgencyID" json:"red_accounts,omitempty"`
	SIMCards    []SIMCard    `gorm:"foreignKey:AgencyID" json:"sim_cards,omitempty"`
}

func (Agency) TableName() string {
	return "agencies"
}

// BeforeCreate is called before creating a new record
func (a *Agency) BeforeCreate(tx *gorm.DB) error {
	if a.UUID == uuid.Nil {
		a.UUID = uuid.New()
	}
	return nil
}

// AgencyFilter represents filter criteria for agency queries
type AgencyFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	Name          *string
	IsActive      *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
