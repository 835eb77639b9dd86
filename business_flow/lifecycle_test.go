package businessflow

import (
	"testing"
	"time"

	"github.com/redline-telecom/redline/models"
	"github.com/redline-telecom/redline/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNeedsToBeOrdered(t *testing.T) {
	t.Run("plain ordered line qualifies", func(t *testing.T) {
		line := &models.Line{PhoneStatus: models.PhoneStatusNeedsToBeOrdered}
		assert.True(t, NeedsToBeOrdered(line))
	})

	t.Run("reservation flag excludes the line even with stale status", func(t *testing.T) {
		line := &models.Line{
			PhoneStatus:          models.PhoneStatusNeedsToBeOrdered,
			HasActiveReservation: utils.ToPtr(true),
		}
		assert.False(t, NeedsToBeOrdered(line))
	})

	t.Run("other statuses do not qualify", func(t *testing.T) {
		line := &models.Line{PhoneStatus: models.PhoneStatusActive}
		assert.False(t, NeedsToBeOrdered(line))
	})

	t.Run("nil line", func(t *testing.T) {
		assert.False(t, NeedsToBeOrdered(nil))
	})
}

func TestNeedsToBeActivated(t *testing.T) {
	t.Run("explicit activation status", func(t *testing.T) {
		line := &models.Line{PhoneStatus: models.PhoneStatusNeedsToBeActivated}
		assert.True(t, NeedsToBeActivated(line))
	})

	t.Run("reserved but not active", func(t *testing.T) {
		line := &models.Line{
			PhoneStatus:          models.PhoneStatusReservedNewLine,
			HasActiveReservation: utils.ToPtr(true),
		}
		assert.True(t, NeedsToBeActivated(line))
	})

	t.Run("reserved flag on an active line does not qualify", func(t *testing.T) {
		line := &models.Line{
			PhoneStatus:          models.PhoneStatusActive,
			HasActiveReservation: utils.ToPtr(true),
		}
		assert.False(t, NeedsToBeActivated(line))
	})
}

func TestIsOverdueForBlocking(t *testing.T) {
	overdue := &models.Line{
		PhoneStatus:   models.PhoneStatusActive,
		PaymentStatus: models.PaymentStatusOverdue,
	}

	t.Run("day 26 is too early", func(t *testing.T) {
		now := time.Date(2025, 3, 26, 12, 0, 0, 0, time.UTC)
		assert.False(t, IsOverdueForBlocking(overdue, now))
	})

	t.Run("day 27 qualifies", func(t *testing.T) {
		now := time.Date(2025, 3, 27, 0, 0, 0, 0, time.UTC)
		assert.True(t, IsOverdueForBlocking(overdue, now))
	})

	t.Run("legacy past due alias qualifies", func(t *testing.T) {
		line := &models.Line{
			PhoneStatus:   models.PhoneStatusActive,
			PaymentStatus: models.PaymentStatusPastDue,
		}
		now := time.Date(2025, 3, 28, 0, 0, 0, 0, time.UTC)
		assert.True(t, IsOverdueForBlocking(line, now))
	})

	t.Run("already suspended lines are skipped", func(t *testing.T) {
		line := &models.Line{
			PhoneStatus:   models.PhoneStatusSuspended,
			PaymentStatus: models.PaymentStatusOverdue,
		}
		now := time.Date(2025, 3, 28, 0, 0, 0, 0, time.UTC)
		assert.False(t, IsOverdueForBlocking(line, now))
	})

	t.Run("up to date payment never blocks", func(t *testing.T) {
		line := &models.Line{
			PhoneStatus:   models.PhoneStatusActive,
			PaymentStatus: models.PaymentStatusUpToDate,
		}
		now := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
		assert.False(t, IsOverdueForBlocking(line, now))
	})
}

func TestIsEligibleForUnblock(t *testing.T) {
	suspended := func(unpaidMonths int) *models.Line {
		return &models.Line{
			PhoneStatus:       models.PhoneStatusSuspended,
			UnpaidMonthsCount: unpaidMonths,
		}
	}

	t.Run("day 30 with two unpaid months", func(t *testing.T) {
		now := time.Date(2025, 3, 30, 0, 0, 0, 0, time.UTC)
		assert.True(t, IsEligibleForUnblock(suspended(2), now))
	})

	t.Run("day 29 is too early", func(t *testing.T) {
		now := time.Date(2025, 3, 29, 23, 0, 0, 0, time.UTC)
		assert.False(t, IsEligibleForUnblock(suspended(2), now))
	})

	t.Run("one unpaid month is not enough", func(t *testing.T) {
		now := time.Date(2025, 3, 30, 0, 0, 0, 0, time.UTC)
		assert.False(t, IsEligibleForUnblock(suspended(1), now))
	})

	t.Run("february never reaches day 30", func(t *testing.T) {
		for day := 1; day <= 28; day++ {
			now := time.Date(2025, 2, day, 12, 0, 0, 0, time.UTC)
			assert.False(t, IsEligibleForUnblock(suspended(3), now), "day %d", day)
		}
	})

	t.Run("non-suspended lines never qualify", func(t *testing.T) {
		line := &models.Line{
			PhoneStatus:       models.PhoneStatusBlocked,
			UnpaidMonthsCount: 5,
		}
		now := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
		assert.False(t, IsEligibleForUnblock(line, now))
	})
}

func TestIsReusable(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	terminated := func(at time.Time) *models.Line {
		return &models.Line{
			PhoneStatus:  models.PhoneStatusTerminated,
			TerminatedAt: &at,
		}
	}

	t.Run("exactly 365 days is reusable", func(t *testing.T) {
		at := now.Add(-utils.ReusableHoldingPeriod)
		assert.True(t, IsReusable(terminated(at), now))
	})

	t.Run("one second short of 365 days is not", func(t *testing.T) {
		at := now.Add(-utils.ReusableHoldingPeriod + time.Second)
		assert.False(t, IsReusable(terminated(at), now))
	})

	t.Run("two years old is reusable", func(t *testing.T) {
		at := now.AddDate(-2, 0, 0)
		assert.True(t, IsReusable(terminated(at), now))
	})

	t.Run("missing termination date", func(t *testing.T) {
		line := &models.Line{PhoneStatus: models.PhoneStatusTerminated}
		assert.False(t, IsReusable(line, now))
	})

	t.Run("non-terminated status", func(t *testing.T) {
		at := now.AddDate(-2, 0, 0)
		line := &models.Line{
			PhoneStatus:  models.PhoneStatusBlocked,
			TerminatedAt: &at,
		}
		assert.False(t, IsReusable(line, now))
	})
}

func TestBucketLines(t *testing.T) {
	// Day 27, so the blocking window is open but the unblock window is not
	now := time.Date(2025, 3, 27, 12, 0, 0, 0, time.UTC)
	terminatedAt := now.AddDate(-2, 0, 0)

	toOrder := &models.Line{ID: 1, PhoneStatus: models.PhoneStatusNeedsToBeOrdered}
	toActivate := &models.Line{ID: 2, PhoneStatus: models.PhoneStatusNeedsToBeActivated}
	reservedPending := &models.Line{
		ID:                   3,
		PhoneStatus:          models.PhoneStatusReservedNewLine,
		HasActiveReservation: utils.ToPtr(true),
	}
	overdue := &models.Line{
		ID:            4,
		PhoneStatus:   models.PhoneStatusActive,
		PaymentStatus: models.PaymentStatusOverdue,
	}
	suspended := &models.Line{
		ID:                5,
		PhoneStatus:       models.PhoneStatusSuspended,
		UnpaidMonthsCount: 3,
	}
	reusable := &models.Line{
		ID:           6,
		PhoneStatus:  models.PhoneStatusTerminated,
		TerminatedAt: &terminatedAt,
	}
	active := &models.Line{ID: 7, PhoneStatus: models.PhoneStatusActive}

	buckets := BucketLines([]*models.Line{
		toOrder, toActivate, reservedPending, overdue, suspended, reusable, active, nil,
	}, now)

	require.Len(t, buckets.ToOrder, 1)
	assert.Equal(t, uint(1), buckets.ToOrder[0].ID)

	// Both the flagged line and the reserved-not-active line need activation
	require.Len(t, buckets.ToActivate, 2)
	assert.Equal(t, uint(2), buckets.ToActivate[0].ID)
	assert.Equal(t, uint(3), buckets.ToActivate[1].ID)

	require.Len(t, buckets.ToBlock, 1)
	assert.Equal(t, uint(4), buckets.ToBlock[0].ID)

	// Day 27 is before the unblock window opens on day 30
	assert.Empty(t, buckets.ToUnblock)

	require.Len(t, buckets.Reusable, 1)
	assert.Equal(t, uint(6), buckets.Reusable[0].ID)
}

func TestBucketLinesUnblockWindow(t *testing.T) {
	now := time.Date(2025, 3, 30, 12, 0, 0, 0, time.UTC)
	suspended := &models.Line{
		ID:                1,
		PhoneStatus:       models.PhoneStatusSuspended,
		UnpaidMonthsCount: 2,
	}

	buckets := BucketLines([]*models.Line{suspended}, now)
	require.Len(t, buckets.ToUnblock, 1)
	assert.Equal(t, uint(1), buckets.ToUnblock[0].ID)
}

func TestClassifyActivation(t *testing.T) {
	t.Run("fresh line is a new activation", func(t *testing.T) {
		line := &models.Line{PhoneStatus: models.PhoneStatusNeedsToBeActivated}
		assert.Equal(t, ActivationKindNew, ClassifyActivation(line))
	})

	t.Run("previously active line is a reactivation", func(t *testing.T) {
		at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		line := &models.Line{
			PhoneStatus: models.PhoneStatusNeedsToBeActivated,
			ActivatedAt: &at,
		}
		assert.Equal(t, ActivationKindReactivation, ClassifyActivation(line))
	})

	t.Run("blocked statuses are reactivations", func(t *testing.T) {
		for _, s := range []models.PhoneStatus{
			models.PhoneStatusBlocked,
			models.PhoneStatusSuspended,
			models.PhoneStatusPaused,
			models.PhoneStatusTerminated,
			models.PhoneStatusReservedExistingLine,
		} {
			line := &models.Line{PhoneStatus: s}
			assert.Equal(t, ActivationKindReactivation, ClassifyActivation(line), "status %s", s)
		}
	})

	t.Run("nonpayment block is a reactivation", func(t *testing.T) {
		line := &models.Line{
			PhoneStatus:   models.PhoneStatusNeedsToBeActivated,
			PaymentStatus: models.PaymentStatusBlockedNonpayment,
		}
		assert.Equal(t, ActivationKindReactivation, ClassifyActivation(line))
	})

	t.Run("block reason is a reactivation", func(t *testing.T) {
		reason := "unpaid invoices"
		line := &models.Line{
			PhoneStatus: models.PhoneStatusNeedsToBeActivated,
			BlockReason: &reason,
		}
		assert.Equal(t, ActivationKindReactivation, ClassifyActivation(line))
	})

	t.Run("whitespace block reason stays new", func(t *testing.T) {
		reason := "   "
		line := &models.Line{
			PhoneStatus: models.PhoneStatusNeedsToBeActivated,
			BlockReason: &reason,
		}
		assert.Equal(t, ActivationKindNew, ClassifyActivation(line))
	})

	t.Run("nil line defaults to new", func(t *testing.T) {
		assert.Equal(t, ActivationKindNew, ClassifyActivation(nil))
	})
}
