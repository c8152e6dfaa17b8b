package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/roktolink/roktolink-backend/internal/models"
)

func TestDonorCSVRow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	last := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

	d := &models.Donor{
		ID:              primitive.NewObjectID(),
		CreatedAt:       time.Date(2024, 11, 20, 8, 0, 0, 0, time.UTC),
		FullName:        "Tahmina Akter",
		BloodGroup:      "AB-",
		WillingToDonate: true,
		Phone:           "+8801712345678",
		Email:           "tahmina@example.com",
		Address: models.Address{
			City:     "Rajshahi",
			Division: "Rajshahi",
			Country:  "Bangladesh",
		},
		TotalDonations:   3,
		LastDonationDate: &last,
		Notes:            "mild anemia history",
		EmergencyContact: models.EmergencyContact{Name: "Farid Akter", Phone: "+8801811111111"},
	}

	row := DonorCSVRow(d, now)
	require.Len(t, row, len(DonorCSVHeader))

	assert.Equal(t, d.ID.Hex(), row[0])
	assert.Equal(t, "Tahmina Akter", row[1])
	assert.Equal(t, "AB-", row[2])
	assert.Equal(t, "true", row[3])
	// 83 days since the last donation, 7 short of the 90-day window.
	assert.Equal(t, "false", row[4])
	assert.Equal(t, "7", row[5])
	assert.Equal(t, "+8801712345678", row[6])
	assert.Equal(t, "tahmina@example.com", row[7])
	assert.Equal(t, "Rajshahi", row[8])
	assert.Equal(t, "Rajshahi", row[9])
	assert.Equal(t, "Bangladesh", row[10])
	assert.Equal(t, "3", row[11])
	assert.Equal(t, "2025-03-10", row[12])
	assert.Equal(t, "", row[13])
	assert.Equal(t, "2024-11-20", row[14])

	for _, cell := range row {
		assert.NotContains(t, cell, "anemia", "medical notes must never reach the CSV")
		assert.NotContains(t, cell, "Farid", "emergency contacts must never reach the CSV")
	}
}

func TestDonorCSVRow_NeverDonated(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	d := &models.Donor{
		ID:              primitive.NewObjectID(),
		CreatedAt:       now,
		FullName:        "New Donor",
		BloodGroup:      "O+",
		WillingToDonate: true,
	}

	row := DonorCSVRow(d, now)
	require.Len(t, row, len(DonorCSVHeader))
	assert.Equal(t, "true", row[4])
	assert.Equal(t, "0", row[5], "eligible donors report zero days to wait")
	assert.Equal(t, "", row[12], "no last donation date renders empty")
}

func TestDonationCSVRow(t *testing.T) {
	inst := primitive.NewObjectID()
	d := &models.Donation{
		ID:            primitive.NewObjectID(),
		CreatedAt:     time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC),
		DonorID:       primitive.NewObjectID(),
		InstitutionID: &inst,
		RecordedBy:    primitive.NewObjectID(),
		DonationDate:  time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		Units:         2,
	}

	row := DonationCSVRow(d)
	require.Len(t, row, len(DonationCSVHeader))
	assert.Equal(t, d.ID.Hex(), row[0])
	assert.Equal(t, d.DonorID.Hex(), row[1])
	assert.Equal(t, inst.Hex(), row[2])
	assert.Equal(t, d.RecordedBy.Hex(), row[3])
	assert.Equal(t, "2025-04-01", row[4])
	assert.Equal(t, "2", row[5])
	assert.Equal(t, "2025-04-02", row[6])
}

func TestDonationCSVRow_NoInstitution(t *testing.T) {
	d := &models.Donation{
		ID:           primitive.NewObjectID(),
		CreatedAt:    time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC),
		DonorID:      primitive.NewObjectID(),
		RecordedBy:   primitive.NewObjectID(),
		DonationDate: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		Units:        1,
	}

	row := DonationCSVRow(d)
	assert.Equal(t, "", row[2], "donations outside an institution leave the column empty")
}
