package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roktolink/roktolink-backend/internal/errs"
	"github.com/roktolink/roktolink-backend/internal/models"
)

func validRequest() *models.BloodRequest {
	return &models.BloodRequest{
		PatientName: "Rafiq Islam",
		BloodGroup:  "B+",
		UnitsNeeded: 2,
		City:        "Dhaka",
		Urgency:     models.UrgencyUrgent,
	}
}

func TestValidateNewRequest(t *testing.T) {
	t.Run("accepts a complete request", func(t *testing.T) {
		assert.NoError(t, ValidateNewRequest(validRequest()))
	})

	t.Run("empty urgency defaults to normal", func(t *testing.T) {
		r := validRequest()
		r.Urgency = ""
		require.NoError(t, ValidateNewRequest(r))
		assert.Equal(t, models.UrgencyNormal, r.Urgency)
	})

	tests := []struct {
		name   string
		mutate func(*models.BloodRequest)
	}{
		{"blank patient name", func(r *models.BloodRequest) { r.PatientName = "   " }},
		{"bad blood group", func(r *models.BloodRequest) { r.BloodGroup = "C+" }},
		{"zero units", func(r *models.BloodRequest) { r.UnitsNeeded = 0 }},
		{"negative units", func(r *models.BloodRequest) { r.UnitsNeeded = -3 }},
		{"unknown urgency", func(r *models.BloodRequest) { r.Urgency = "panic" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRequest()
			tt.mutate(r)
			err := ValidateNewRequest(r)
			require.Error(t, err)
			assert.ErrorIs(t, err, errs.ErrValidation)
		})
	}
}

func TestValidateStatusTransition(t *testing.T) {
	t.Run("open requests can close either way", func(t *testing.T) {
		assert.NoError(t, ValidateStatusTransition(models.RequestOpen, models.RequestFulfilled))
		assert.NoError(t, ValidateStatusTransition(models.RequestOpen, models.RequestCancelled))
	})

	tests := []struct {
		name    string
		current string
		next    string
	}{
		{"cannot reopen", models.RequestFulfilled, models.RequestOpen},
		{"open is never a target", models.RequestOpen, models.RequestOpen},
		{"unknown target", models.RequestOpen, "archived"},
		{"fulfilled is terminal", models.RequestFulfilled, models.RequestCancelled},
		{"cancelled is terminal", models.RequestCancelled, models.RequestFulfilled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStatusTransition(tt.current, tt.next)
			require.Error(t, err)
			assert.ErrorIs(t, err, errs.ErrValidation)
		})
	}
}
