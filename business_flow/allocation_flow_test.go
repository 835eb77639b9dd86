package businessflow

import (
	"testing"
	"time"

	"github.com/redline-telecom/redline/models"
	"github.com/redline-telecom/redline/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	t.Run("accounts ranked by available slots descending", func(t *testing.T) {
		accounts := []*models.RedAccount{
			{ID: 1, MaxLines: 5, ActiveLines: 4},
			{ID: 2, MaxLines: 5, ActiveLines: 1},
			{ID: 3, MaxLines: 5, ActiveLines: 3},
		}

		report := Analyze(accounts, now)
		require.Len(t, report.Available, 3)
		assert.Equal(t, uint(2), report.Available[0].Account.ID)
		assert.Equal(t, uint(3), report.Available[1].Account.ID)
		assert.Equal(t, uint(1), report.Available[2].Account.ID)
		assert.Empty(t, report.Full)
		assert.False(t, report.NoCapacity)
	})

	t.Run("ranking is stable on equal slots", func(t *testing.T) {
		accounts := []*models.RedAccount{
			{ID: 7, MaxLines: 5, ActiveLines: 3},
			{ID: 4, MaxLines: 5, ActiveLines: 3},
		}

		report := Analyze(accounts, now)
		require.Len(t, report.Available, 2)
		assert.Equal(t, uint(7), report.Available[0].Account.ID)
		assert.Equal(t, uint(4), report.Available[1].Account.ID)
	})

	t.Run("full accounts are separated", func(t *testing.T) {
		accounts := []*models.RedAccount{
			{ID: 1, MaxLines: 2, ActiveLines: 2},
			{ID: 2, MaxLines: 5, ActiveLines: 1},
		}

		report := Analyze(accounts, now)
		require.Len(t, report.Available, 1)
		assert.Equal(t, uint(2), report.Available[0].Account.ID)
		require.Len(t, report.Full, 1)
		assert.Equal(t, uint(1), report.Full[0].Account.ID)
		assert.Equal(t, 0, report.Full[0].AvailableSlots)
	})

	t.Run("account with a fresh reservation keeps its last slot", func(t *testing.T) {
		accounts := []*models.RedAccount{
			{
				ID: 1, MaxLines: 10, ActiveLines: 8, ReservedLines: 1,
				Lines: []models.Line{
					{
						PhoneStatus:          models.PhoneStatusReservedNewLine,
						PaymentStatus:        models.PaymentStatusUnattributed,
						HasActiveReservation: utils.ToPtr(true),
					},
				},
			},
		}

		report := Analyze(accounts, now)
		require.Len(t, report.Available, 1)
		assert.Equal(t, 1, report.Available[0].AvailableSlots)
		assert.Empty(t, report.Full)
	})

	t.Run("overbooked occupancy clamps to zero slots", func(t *testing.T) {
		accounts := []*models.RedAccount{
			{ID: 1, MaxLines: 2, ActiveLines: 2, ReservedLines: 1},
		}

		report := Analyze(accounts, now)
		require.Len(t, report.Full, 1)
		assert.Equal(t, 3, report.Full[0].OccupiedSlots)
		assert.Equal(t, 0, report.Full[0].AvailableSlots)
	})

	t.Run("reusable lines surface even on full accounts", func(t *testing.T) {
		terminatedAt := now.AddDate(-2, 0, 0)
		accounts := []*models.RedAccount{
			{
				ID: 1, MaxLines: 1, ActiveLines: 1,
				Lines: []models.Line{
					{
						ID:           10,
						PhoneStatus:  models.PhoneStatusTerminated,
						TerminatedAt: &terminatedAt,
					},
				},
			},
		}

		report := Analyze(accounts, now)
		assert.Empty(t, report.Available)
		require.Len(t, report.Full, 1)
		require.Len(t, report.ReusableLines, 1)
		assert.Equal(t, uint(10), report.ReusableLines[0].ID)
		require.Len(t, report.Full[0].ReusableLines, 1)
		assert.False(t, report.NoCapacity)
	})

	t.Run("recently terminated lines are not reusable", func(t *testing.T) {
		terminatedAt := now.AddDate(0, -6, 0)
		accounts := []*models.RedAccount{
			{
				ID: 1, MaxLines: 1, ActiveLines: 1,
				Lines: []models.Line{
					{
						ID:           10,
						PhoneStatus:  models.PhoneStatusTerminated,
						TerminatedAt: &terminatedAt,
					},
				},
			},
		}

		report := Analyze(accounts, now)
		assert.Empty(t, report.ReusableLines)
		assert.True(t, report.NoCapacity)
	})

	t.Run("no capacity when everything is full and nothing is reusable", func(t *testing.T) {
		accounts := []*models.RedAccount{
			{ID: 1, MaxLines: 2, ActiveLines: 2},
			{ID: 2, MaxLines: 3, ActiveLines: 3},
		}

		report := Analyze(accounts, now)
		assert.True(t, report.NoCapacity)
	})

	t.Run("empty agency has no capacity", func(t *testing.T) {
		report := Analyze(nil, now)
		assert.Empty(t, report.Available)
		assert.Empty(t, report.Full)
		assert.True(t, report.NoCapacity)
	})

	t.Run("nil accounts are skipped", func(t *testing.T) {
		accounts := []*models.RedAccount{
			nil,
			{ID: 2, MaxLines: 5, ActiveLines: 1},
		}

		report := Analyze(accounts, now)
		require.Len(t, report.Available, 1)
		assert.Equal(t, uint(2), report.Available[0].Account.ID)
	})
}
