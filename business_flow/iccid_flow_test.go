package businessflow

import (
	"testing"
	"time"

	"github.com/redline-telecom/redline/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractOrderDateHint(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	t.Run("embedded recent date is found", func(t *testing.T) {
		// 250610 parses to 2025-06-10
		hint := ExtractOrderDateHint("8933250610123456", now)
		require.NotNil(t, hint)
		assert.Equal(t, time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC), *hint)
	})

	t.Run("future dates are skipped", func(t *testing.T) {
		// 260101 would be 2026-01-01, in the future relative to now
		hint := ExtractOrderDateHint("260101", now)
		assert.Nil(t, hint)
	})

	t.Run("dates older than ten years are skipped", func(t *testing.T) {
		// 100101 would be 2010-01-01
		hint := ExtractOrderDateHint("100101", now)
		assert.Nil(t, hint)
	})

	t.Run("non-digit characters are ignored", func(t *testing.T) {
		hint := ExtractOrderDateHint("25F0610F", now)
		require.NotNil(t, hint)
		assert.Equal(t, time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC), *hint)
	})

	t.Run("too few digits", func(t *testing.T) {
		assert.Nil(t, ExtractOrderDateHint("12345", now))
	})
}

func TestScoreAccount(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	t.Run("free slots and low utilization", func(t *testing.T) {
		account := &models.RedAccount{MaxLines: 5, ActiveLines: 1}
		score, reasons := ScoreAccount(account, nil, nil, now)
		assert.Equal(t, ScoreFreeSlots+ScoreLowUtilization, score)
		assert.Len(t, reasons, 2)
	})

	t.Run("full account at high utilization scores zero", func(t *testing.T) {
		account := &models.RedAccount{MaxLines: 2, ActiveLines: 2}
		score, reasons := ScoreAccount(account, nil, nil, now)
		assert.Zero(t, score)
		assert.Empty(t, reasons)
	})

	t.Run("all signals stack to 190", func(t *testing.T) {
		orderDate := now.AddDate(0, 0, -5)
		nearby := orderDate.AddDate(0, 0, 2)
		activated := now.Add(-48 * time.Hour)
		pendingNumber := "+33711112222"
		clientPhone := "+33799992222"

		account := &models.RedAccount{
			MaxLines:    5,
			ActiveLines: 1,
			Lines: []models.Line{
				{
					PhoneStatus: models.PhoneStatusNeedsToBeActivated,
					OrderDate:   &nearby,
					PhoneNumber: &pendingNumber,
				},
				{
					PhoneStatus: models.PhoneStatusActive,
					ActivatedAt: &activated,
				},
			},
		}

		score, reasons := ScoreAccount(account, &orderDate, &clientPhone, now)
		assert.Equal(t, ScoreFreeSlots+ScoreNearbyOrder+ScorePhoneSuffixMatch+ScoreRecentActivation+ScoreLowUtilization, score)
		assert.Len(t, reasons, 5)
	})

	t.Run("order four days apart misses the window", func(t *testing.T) {
		orderDate := now.AddDate(0, 0, -10)
		far := orderDate.AddDate(0, 0, 4)
		account := &models.RedAccount{
			MaxLines:    1,
			ActiveLines: 1,
			Lines: []models.Line{
				{
					PhoneStatus: models.PhoneStatusNeedsToBeActivated,
					OrderDate:   &far,
				},
			},
		}
		score, _ := ScoreAccount(account, &orderDate, nil, now)
		assert.Zero(t, score)
	})

	t.Run("suffix match requires four digits", func(t *testing.T) {
		number := "+33712345678"
		shortPhone := "567"
		account := &models.RedAccount{
			MaxLines:    1,
			ActiveLines: 1,
			Lines: []models.Line{
				{PhoneNumber: &number},
			},
		}
		score, _ := ScoreAccount(account, nil, &shortPhone, now)
		assert.Zero(t, score)
	})
}

func TestScoreCandidates(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	t.Run("sorted by score descending, ID ascending on ties", func(t *testing.T) {
		activated := now.Add(-24 * time.Hour)

		low1 := &models.RedAccount{ID: 3, MaxLines: 5, ActiveLines: 1}
		low2 := &models.RedAccount{ID: 1, MaxLines: 5, ActiveLines: 1}
		high := &models.RedAccount{
			ID: 2, MaxLines: 5, ActiveLines: 1,
			Lines: []models.Line{
				{PhoneStatus: models.PhoneStatusActive, ActivatedAt: &activated},
			},
		}

		candidates := ScoreCandidates([]*models.RedAccount{low1, high, low2}, nil, nil, now)
		require.Len(t, candidates, 3)
		assert.Equal(t, uint(2), candidates[0].Account.ID)
		assert.Equal(t, uint(1), candidates[1].Account.ID)
		assert.Equal(t, uint(3), candidates[2].Account.ID)
		assert.Equal(t, candidates[1].Score, candidates[2].Score)
	})

	t.Run("zero scores are dropped", func(t *testing.T) {
		full := &models.RedAccount{ID: 1, MaxLines: 2, ActiveLines: 2}
		candidates := ScoreCandidates([]*models.RedAccount{full}, nil, nil, now)
		assert.Empty(t, candidates)
	})

	t.Run("nil accounts are skipped", func(t *testing.T) {
		open := &models.RedAccount{ID: 1, MaxLines: 5, ActiveLines: 0}
		candidates := ScoreCandidates([]*models.RedAccount{nil, open}, nil, nil, now)
		require.Len(t, candidates, 1)
		assert.Equal(t, uint(1), candidates[0].Account.ID)
	})
}

func TestConfidenceBand(t *testing.T) {
	assert.Equal(t, ConfidenceLow, ConfidenceBand(10))
	assert.Equal(t, ConfidenceLow, ConfidenceBand(40))
	assert.Equal(t, ConfidenceMedium, ConfidenceBand(50))
	assert.Equal(t, ConfidenceMedium, ConfidenceBand(79))
	assert.Equal(t, ConfidenceHigh, ConfidenceBand(80))
	assert.Equal(t, ConfidenceHigh, ConfidenceBand(190))
}

func TestConfidenceBandOnCandidates(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	// Free slots (30) + recent activation (20) + low utilization (10) lands
	// at 60, the medium band
	activated := now.Add(-24 * time.Hour)
	account := &models.RedAccount{
		ID: 1, MaxLines: 5, ActiveLines: 1,
		Lines: []models.Line{
			{PhoneStatus: models.PhoneStatusActive, ActivatedAt: &activated},
		},
	}

	candidates := ScoreCandidates([]*models.RedAccount{account}, nil, nil, now)
	require.Len(t, candidates, 1)
	assert.Equal(t, 60, candidates[0].Score)
	assert.Equal(t, ConfidenceMedium, candidates[0].Confidence)
}

func TestLastDigitsHelper(t *testing.T) {
	assert.Equal(t, "5678", lastDigits("+33712345678", 4))
	assert.Equal(t, "", lastDigits("12", 4))
	assert.Equal(t, "3456", lastDigits("12-34-56", 4))
}
