package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redline-telecom/redline/utils"
	"gorm.io/gorm"
)

// SIMStatus represents the stock status of a SIM card
type SIMStatus string

const (
	SIMStatusInStock  SIMStatus = "IN_STOCK"
	SIMStatusInactive SIMStatus = "INACTIVE"
)

func (s SIMStatus) String() string {
	return string(s)
}

func (s SIMStatus) Valid() bool {
	switch s {
	case SIMStatusInStock, SIMStatusInactive:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for SIMStatus
func (s *SIMStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = SIMStatus(v)
	case []byte:
		*s = SIMStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into SIMStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for SIMStatus
func (s SIMStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid SIMStatus: %s", s)
	}
	return string(s), nil
}

// SIMCard represents a physical SIM card in an agency's stock.
// Activation consumes a card: its status moves to INACTIVE and the line
// records the card's ID.
// Table: sim_cards
type SIMCard struct {
	ID   uint      `gorm:"primaryKey" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_sim_cards_uuid;index:idx_sim_cards_uuid" json:"uuid"`

	ICCID    string    `gorm:"size:22;not null;uniqueIndex:uk_sim_cards_iccid;index:idx_sim_cards_iccid" json:"iccid"`
	AgencyID uint      `gorm:"not null;index:idx_sim_cards_agency_id" json:"agency_id"`
	Status   SIMStatus `gorm:"type:sim_status;not null;default:'IN_STOCK';index:idx_sim_cards_status" json:"status"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_sim_cards_created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`

	// Relations
	Agency *Agency `gorm:"foreignKey:AgencyID;references:ID" json:"agency,omitempty"`
}

func (SIMCard) TableName() string {
	return "sim_cards"
}

// BeforeCreate is called before creating a new record
func (s *SIMCard) BeforeCreate(tx *gorm.DB) error {
	if s.UUID == uuid.Nil {
		s.UUID = uuid.New()
	}
	if s.Status == "" {
		s.Status = SIMStatusInStock
	}
	return nil
}

// IsRecentlyReceived reports whether the card entered stock within the
// given window ending at now (used for "recently received" detection)
func (s *SIMCard) IsRecentlyReceived(now time.Time, window time.Duration) bool {
	return now.Sub(utils.TimeToUTC(s.CreatedAt)) <= window
}

// SIMCardFilter represents filter criteria for SIM card queries
type SIMCardFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	ICCID         *string
	AgencyID      *uint
	Status        *SIMStatus
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
