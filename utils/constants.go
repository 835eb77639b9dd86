package utils

import (
	"time"
)

// Token and session time constants
const (
	// AccessTokenTTL is the time-to-live for access tokens (24 hours)
	AccessTokenTTL = 24 * time.Hour

	// RefreshTokenTTL is the time-to-live for refresh tokens (7 days)
	RefreshTokenTTL = 7 * 24 * time.Hour

	// SessionTimeout is the default session timeout (24 hours)
	SessionTimeout = 24 * time.Hour

	// SessionCleanupInterval is how often expired sessions are swept
	SessionCleanupInterval = 1 * time.Hour

	// PasswordRevealTTL is how long a revealed RED account password stays
	// readable before the client must request a new reveal
	PasswordRevealTTL = 30 * time.Second
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Line lifecycle constants
const (
	// ReusableHoldingPeriod is how long a terminated line must rest before
	// its slot can be reused; the boundary is inclusive
	ReusableHoldingPeriod = 365 * 24 * time.Hour

	// BlockingDayOfMonth is the first calendar day on which overdue lines
	// become eligible for blocking
	BlockingDayOfMonth = 27

	// UnblockDayOfMonth is the first calendar day on which suspended lines
	// with enough unpaid months become eligible for unblocking
	UnblockDayOfMonth = 30

	// MinUnpaidMonthsForUnblock is the unpaid month count required before a
	// suspended line can be unblocked
	MinUnpaidMonthsForUnblock = 2

	// MinICCIDLength is the minimum ICCID length that triggers analysis
	MinICCIDLength = 8

	// RecentSIMWindow marks agency SIM stock as "recently received"
	RecentSIMWindow = 7 * 24 * time.Hour
)
