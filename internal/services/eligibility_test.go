package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roktolink/roktolink-backend/internal/models"
)

// Fixed evaluation moment keeps the day arithmetic deterministic.
var evalNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func daysAgo(now time.Time, n int) *time.Time {
	t := now.Add(-time.Duration(n) * 24 * time.Hour)
	return &t
}

func TestEvaluateEligibility_UnwillingNeverEligible(t *testing.T) {
	now := evalNow

	for _, last := range []*time.Time{nil, daysAgo(now, 1), daysAgo(now, 90), daysAgo(now, 400)} {
		donor := &models.Donor{WillingToDonate: false, LastDonationDate: last}
		got := EvaluateEligibility(donor, now)
		assert.False(t, got.Eligible)
		assert.Nil(t, got.DaysUntilEligible, "unwilling donors have no countdown")
	}
}

func TestEvaluateEligibility_Cooldown(t *testing.T) {
	now := evalNow

	tests := []struct {
		name          string
		last          *time.Time
		wantEligible  bool
		wantRemaining int
	}{
		{"never donated", nil, true, 0},
		{"donated yesterday", daysAgo(now, 1), false, 89},
		{"89 days ago", daysAgo(now, 89), false, 1},
		{"exactly 90 days ago", daysAgo(now, 90), true, 0},
		{"91 days ago", daysAgo(now, 91), true, 0},
		{"a year ago", daysAgo(now, 365), true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			donor := &models.Donor{WillingToDonate: true, LastDonationDate: tt.last}
			got := EvaluateEligibility(donor, now)
			assert.Equal(t, tt.wantEligible, got.Eligible)
			require.NotNil(t, got.DaysUntilEligible)
			assert.Equal(t, tt.wantRemaining, *got.DaysUntilEligible)
		})
	}
}

func TestEvaluateEligibility_PartialDayDoesNotCount(t *testing.T) {
	now := evalNow

	// 89 days and 23 hours: still inside the cooldown with one whole day left.
	last := now.Add(-(89*24 + 23) * time.Hour)
	donor := &models.Donor{WillingToDonate: true, LastDonationDate: &last}
	got := EvaluateEligibility(donor, now)
	assert.False(t, got.Eligible)
	require.NotNil(t, got.DaysUntilEligible)
	assert.Equal(t, 1, *got.DaysUntilEligible)
}

func TestEvaluateEligibility_Deferral(t *testing.T) {
	now := evalNow

	t.Run("future deferral blocks even a fresh donor", func(t *testing.T) {
		until := now.Add(10 * 24 * time.Hour)
		donor := &models.Donor{WillingToDonate: true, DeferralUntil: &until}
		got := EvaluateEligibility(donor, now)
		assert.False(t, got.Eligible)
		require.NotNil(t, got.DaysUntilEligible)
		assert.Equal(t, 10, *got.DaysUntilEligible)
	})

	t.Run("partial deferral days round up", func(t *testing.T) {
		until := now.Add(36 * time.Hour)
		donor := &models.Donor{WillingToDonate: true, DeferralUntil: &until}
		got := EvaluateEligibility(donor, now)
		assert.False(t, got.Eligible)
		require.NotNil(t, got.DaysUntilEligible)
		assert.Equal(t, 2, *got.DaysUntilEligible, "36h is two calendar days of waiting, never zero")
	})

	t.Run("expired deferral is ignored", func(t *testing.T) {
		until := now.Add(-time.Hour)
		donor := &models.Donor{WillingToDonate: true, DeferralUntil: &until}
		got := EvaluateEligibility(donor, now)
		assert.True(t, got.Eligible)
	})

	t.Run("deferral outranks the cooldown countdown", func(t *testing.T) {
		until := now.Add(200 * 24 * time.Hour)
		donor := &models.Donor{
			WillingToDonate:  true,
			DeferralUntil:    &until,
			LastDonationDate: daysAgo(now, 89),
		}
		got := EvaluateEligibility(donor, now)
		assert.False(t, got.Eligible)
		require.NotNil(t, got.DaysUntilEligible)
		assert.Equal(t, 200, *got.DaysUntilEligible)
	})
}
