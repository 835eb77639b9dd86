// Package models contains domain entities and business models for the line lifecycle service
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RedAccount represents a RED reseller account with a fixed line capacity.
// The capacity counters (ActiveLines, ReservedLines) are maintained by the
// reservation and activation flows inside the same transaction that moves
// the line, so they never drift from the lines table.
// Invariant (soft, clamped by the allocation analyzer):
//
//	active + reserved + unattributed <= max_lines
type RedAccount struct {
	ID   uint      `gorm:"primaryKey" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_red_accounts_uuid;index:idx_red_accounts_uuid" json:"uuid"`

	// RedAccountID is the external login at the operator portal
	RedAccountID string `gorm:"size:100;not null;uniqueIndex:uk_red_accounts_login" json:"red_account_id"`

	// PasswordEncrypted is a display-only secret, revealed to supervisors
	// through a time-limited endpoint. Never serialized.
	PasswordEncrypted string `gorm:"size:255;not null" json:"-"`

	AgencyID uint `gorm:"not null;index:idx_red_accounts_agency_id" json:"agency_id"`

	MaxLines      int `gorm:"not null;default:5" json:"max_lines"`
	ActiveLines   int `gorm:"not null;default:0" json:"active_lines"`
	ReservedLines int `gorm:"not null;default:0" json:"reserved_lines"`

	IsActive  *bool     `gorm:"default:true;index:idx_red_accounts_is_active" json:"is_active"`
	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_red_accounts_created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`

	// Relations
	Agency *Agency `gorm:"foreignKey:AgencyID;references:ID" json:"agency,omitempty"`
	Lines  []Line  `gorm:"foreignKey:RedAccountID" json:"lines,omitempty"`
}

func (RedAccount) TableName() string {
	return "red_accounts"
}

// BeforeCreate is called before creating a new record
func (a *RedAccount) BeforeCreate(tx *gorm.DB) error {
	if a.UUID == uuid.Nil {
		a.UUID = uuid.New()
	}
	return nil
}

// UnattributedLines counts lines occupying a slot without a billing owner.
// Reserved lines carry UNATTRIBUTED payment until activation but their slot
// is already held by the ReservedLines counter, so they are skipped here.
func (a *RedAccount) UnattributedLines() int {
	count := 0
	for i := range a.Lines {
		line := &a.Lines[i]
		if line.IsReserved() {
			continue
		}
		if line.PaymentStatus == PaymentStatusUnattributed {
			count++
		}
	}
	return count
}

// OccupiedSlots returns the number of capacity slots currently consumed
func (a *RedAccount) OccupiedSlots() int {
	return a.ActiveLines + a.ReservedLines + a.UnattributedLines()
}

// AvailableSlots returns the remaining capacity, clamped to zero
func (a *RedAccount) AvailableSlots() int {
	if free := a.MaxLines - a.OccupiedSlots(); free > 0 {
		return free
	}
	return 0
}

// Utilization returns active lines over max lines, in [0, 1] for sane data
func (a *RedAccount) Utilization() float64 {
	if a.MaxLines <= 0 {
		return 1
	}
	return float64(a.ActiveLines) / float64(a.MaxLines)
}

// RedAccountFilter represents filter criteria for RED account queries
type RedAccountFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	RedAccountID  *string
	AgencyID      *uint
	IsActive      *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
