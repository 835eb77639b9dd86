package models

import (
	"testing"

	"github.com/redline-telecom/redline/utils"
	"github.com/stretchr/testify/assert"
)

func TestPhoneStatusValid(t *testing.T) {
	valid := []PhoneStatus{
		PhoneStatusNeedsToBeOrdered, PhoneStatusNeedsToBeActivated,
		PhoneStatusNeedsToBeDeactivated, PhoneStatusNeedsToBeReplaced,
		PhoneStatusNeedsToBeBlocked, PhoneStatusReservedExistingLine,
		PhoneStatusReservedNewLine, PhoneStatusTemporarilyAssigned,
		PhoneStatusNeedsNewAccount, PhoneStatusActive, PhoneStatusInactive,
		PhoneStatusSuspended, PhoneStatusBlocked, PhoneStatusPaused,
		PhoneStatusTerminated,
	}
	for _, s := range valid {
		assert.True(t, s.Valid(), "expected %s to be valid", s)
	}

	assert.False(t, PhoneStatus("").Valid())
	assert.False(t, PhoneStatus("ORDERED").Valid())
	assert.False(t, PhoneStatus("active").Valid())
}

func TestCanTransitionTo(t *testing.T) {
	cases := []struct {
		name    string
		from    PhoneStatus
		to      PhoneStatus
		allowed bool
	}{
		{"ordered to reserved new", PhoneStatusNeedsToBeOrdered, PhoneStatusReservedNewLine, true},
		{"ordered to reserved existing", PhoneStatusNeedsToBeOrdered, PhoneStatusReservedExistingLine, true},
		{"ordered to needs activation", PhoneStatusNeedsToBeOrdered, PhoneStatusNeedsToBeActivated, true},
		{"ordered to active skips activation", PhoneStatusNeedsToBeOrdered, PhoneStatusActive, false},
		{"reserved new to active", PhoneStatusReservedNewLine, PhoneStatusActive, true},
		{"reserved new back to ordered", PhoneStatusReservedNewLine, PhoneStatusNeedsToBeOrdered, true},
		{"needs activation to active", PhoneStatusNeedsToBeActivated, PhoneStatusActive, true},
		{"active to paused", PhoneStatusActive, PhoneStatusPaused, true},
		{"active to suspended", PhoneStatusActive, PhoneStatusSuspended, true},
		{"active to terminated", PhoneStatusActive, PhoneStatusTerminated, true},
		{"active straight to blocked", PhoneStatusActive, PhoneStatusBlocked, false},
		{"needs blocking to blocked", PhoneStatusNeedsToBeBlocked, PhoneStatusBlocked, true},
		{"suspended to blocked", PhoneStatusSuspended, PhoneStatusBlocked, true},
		{"blocked to active", PhoneStatusBlocked, PhoneStatusActive, true},
		{"paused to active", PhoneStatusPaused, PhoneStatusActive, true},
		{"inactive to active", PhoneStatusInactive, PhoneStatusActive, true},
		{"terminated to reserved existing only", PhoneStatusTerminated, PhoneStatusReservedExistingLine, true},
		{"terminated to active", PhoneStatusTerminated, PhoneStatusActive, false},
		{"terminated to ordered", PhoneStatusTerminated, PhoneStatusNeedsToBeOrdered, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			line := &Line{PhoneStatus: tc.from}
			assert.Equal(t, tc.allowed, line.CanTransitionTo(tc.to))
		})
	}
}

func TestIsReserved(t *testing.T) {
	t.Run("flag wins over stale status", func(t *testing.T) {
		line := &Line{
			PhoneStatus:          PhoneStatusNeedsToBeOrdered,
			HasActiveReservation: utils.ToPtr(true),
		}
		assert.True(t, line.IsReserved())
	})

	t.Run("reserved status without flag", func(t *testing.T) {
		line := &Line{PhoneStatus: PhoneStatusReservedNewLine}
		assert.True(t, line.IsReserved())

		line.PhoneStatus = PhoneStatusReservedExistingLine
		assert.True(t, line.IsReserved())
	})

	t.Run("not reserved", func(t *testing.T) {
		line := &Line{
			PhoneStatus:          PhoneStatusNeedsToBeOrdered,
			HasActiveReservation: utils.ToPtr(false),
		}
		assert.False(t, line.IsReserved())
	})
}

func TestIsGhost(t *testing.T) {
	assert.True(t, (&Line{}).IsGhost())

	empty := ""
	assert.True(t, (&Line{PhoneNumber: &empty}).IsGhost())

	number := "+33712345678"
	assert.False(t, (&Line{PhoneNumber: &number}).IsGhost())
}

func TestPaymentStatusIsOverdue(t *testing.T) {
	assert.True(t, PaymentStatusOverdue.IsOverdue())
	assert.True(t, PaymentStatusPastDue.IsOverdue())
	assert.False(t, PaymentStatusUpToDate.IsOverdue())
	assert.False(t, PaymentStatusUnattributed.IsOverdue())
}

func TestRedAccountSlots(t *testing.T) {
	t.Run("occupied counts active reserved and unattributed", func(t *testing.T) {
		account := &RedAccount{
			MaxLines:      5,
			ActiveLines:   2,
			ReservedLines: 1,
			Lines: []Line{
				{PaymentStatus: PaymentStatusUnattributed},
				{PaymentStatus: PaymentStatusUpToDate},
			},
		}
		assert.Equal(t, 4, account.OccupiedSlots())
		assert.Equal(t, 1, account.AvailableSlots())
	})

	t.Run("a fresh reservation consumes exactly one slot", func(t *testing.T) {
		// State right after reserving on an account with 8 active lines:
		// the counter holds the slot, the ghost line must not hold a second one
		account := &RedAccount{
			MaxLines:      10,
			ActiveLines:   8,
			ReservedLines: 1,
			Lines: []Line{
				{
					PhoneStatus:          PhoneStatusReservedNewLine,
					PaymentStatus:        PaymentStatusUnattributed,
					HasActiveReservation: utils.ToPtr(true),
				},
			},
		}
		assert.Equal(t, 0, account.UnattributedLines())
		assert.Equal(t, 9, account.OccupiedSlots())
		assert.Equal(t, 1, account.AvailableSlots())
	})

	t.Run("available slots clamp to zero", func(t *testing.T) {
		account := &RedAccount{
			MaxLines:      2,
			ActiveLines:   2,
			ReservedLines: 1,
		}
		assert.Equal(t, 3, account.OccupiedSlots())
		assert.Equal(t, 0, account.AvailableSlots())
	})

	t.Run("utilization", func(t *testing.T) {
		account := &RedAccount{MaxLines: 5, ActiveLines: 4}
		assert.InDelta(t, 0.8, account.Utilization(), 0.0001)

		zero := &RedAccount{MaxLines: 0, ActiveLines: 0}
		assert.Equal(t, 1.0, zero.Utilization())
	})
}

func TestRequestStatusIsTerminal(t *testing.T) {
	assert.False(t, RequestStatusPending.IsTerminal())
	assert.True(t, RequestStatusFulfilled.IsTerminal())
	assert.True(t, RequestStatusCancelled.IsTerminal())
}
