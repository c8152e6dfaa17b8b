package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/roktolink/roktolink-backend/internal/models"
)

func sampleDonor() *models.Donor {
	owner := primitive.NewObjectID()
	dob := time.Date(1990, 3, 14, 0, 0, 0, 0, time.UTC)
	return &models.Donor{
		ID:              primitive.NewObjectID(),
		UserID:          owner,
		CreatedAt:       evalNow.Add(-time.Hour),
		UpdatedAt:       evalNow.Add(-time.Minute),
		FullName:        "Arif Hossain",
		Email:           "arif@example.com",
		Phone:           "+8801711000001",
		Gender:          "male",
		DateOfBirth:     &dob,
		BloodGroup:      "O-",
		WillingToDonate: true,
		Visibility:      models.VisibilityPublic,
		PhoneVisibility: models.VisibilityRegistered,
		Address:         models.Address{Country: "Bangladesh", City: "Dhaka"},
		EmergencyContact: models.EmergencyContact{
			Name:  "Salma Hossain",
			Phone: "+8801711000099",
		},
		Notes:          "allergic to penicillin",
		TotalDonations: 4,
	}
}

func TestProjectDonorView_RegisteredNonOwner(t *testing.T) {
	donor := sampleDonor()
	viewer := Viewer{Role: ViewerRegistered, UserID: primitive.NewObjectID()}

	view := ProjectDonorView(donor, viewer, evalNow)

	// Contact fields are open to any signed-in viewer.
	assert.Equal(t, donor.Phone, view.Phone)
	assert.Equal(t, donor.Email, view.Email)

	// The medical/personal block never leaves for non-owners.
	assert.Nil(t, view.EmergencyContact)
	assert.Empty(t, view.Notes)
	assert.Empty(t, view.Gender)
	assert.Nil(t, view.DateOfBirth)
	assert.Nil(t, view.DeferralUntil)
	assert.Empty(t, view.DeferralReason)
}

func TestProjectDonorView_Guest(t *testing.T) {
	t.Run("phone hidden unless marked public", func(t *testing.T) {
		donor := sampleDonor()
		donor.PhoneVisibility = models.VisibilityRegistered

		view := ProjectDonorView(donor, Viewer{Role: ViewerGuest}, evalNow)
		assert.Empty(t, view.Phone)
		assert.Empty(t, view.Email)
	})

	t.Run("public phone shows", func(t *testing.T) {
		donor := sampleDonor()
		donor.PhoneVisibility = models.VisibilityPublic

		view := ProjectDonorView(donor, Viewer{Role: ViewerGuest}, evalNow)
		assert.Equal(t, donor.Phone, view.Phone)
		assert.Empty(t, view.Email, "guests never see email, even with a public phone")
	})

	t.Run("never the personal block", func(t *testing.T) {
		donor := sampleDonor()
		view := ProjectDonorView(donor, Viewer{Role: ViewerGuest}, evalNow)
		assert.Nil(t, view.EmergencyContact)
		assert.Empty(t, view.Notes)
		assert.Empty(t, view.Gender)
		assert.Nil(t, view.DateOfBirth)
	})
}

func TestProjectDonorView_FullAccess(t *testing.T) {
	donor := sampleDonor()

	admin := Viewer{Role: ViewerAdmin, UserID: primitive.NewObjectID()}
	owner := Viewer{Role: ViewerRegistered, UserID: donor.UserID}

	for name, viewer := range map[string]Viewer{"admin": admin, "owner": owner} {
		t.Run(name, func(t *testing.T) {
			view := ProjectDonorView(donor, viewer, evalNow)
			assert.Equal(t, donor.Phone, view.Phone)
			assert.Equal(t, donor.Email, view.Email)
			assert.Equal(t, donor.Gender, view.Gender)
			assert.Equal(t, donor.DateOfBirth, view.DateOfBirth)
			require.NotNil(t, view.EmergencyContact)
			assert.Equal(t, donor.EmergencyContact.Phone, view.EmergencyContact.Phone)
			assert.Equal(t, donor.Notes, view.Notes)
		})
	}
}

func TestProjectDonorView_BaseFieldsAlwaysPresent(t *testing.T) {
	donor := sampleDonor()

	for name, viewer := range map[string]Viewer{
		"guest":      {Role: ViewerGuest},
		"registered": {Role: ViewerRegistered, UserID: primitive.NewObjectID()},
		"admin":      {Role: ViewerAdmin, UserID: primitive.NewObjectID()},
	} {
		t.Run(name, func(t *testing.T) {
			view := ProjectDonorView(donor, viewer, evalNow)
			assert.Equal(t, donor.ID.Hex(), view.ID)
			assert.Equal(t, donor.FullName, view.FullName)
			assert.Equal(t, donor.BloodGroup, view.BloodGroup)
			assert.Equal(t, donor.Address, view.Address)
			assert.Equal(t, donor.TotalDonations, view.TotalDonations)
			assert.True(t, view.Eligibility.Eligible, "never-donated willing donor is eligible")
		})
	}
}

func TestViewerOwns(t *testing.T) {
	donor := sampleDonor()

	assert.True(t, Viewer{Role: ViewerRegistered, UserID: donor.UserID}.Owns(donor))
	assert.False(t, Viewer{Role: ViewerRegistered, UserID: primitive.NewObjectID()}.Owns(donor))
	// Guests never own anything, whatever their UserID claims.
	assert.False(t, Viewer{Role: ViewerGuest, UserID: donor.UserID}.Owns(donor))
}

func TestAllowedTiers(t *testing.T) {
	assert.Equal(t, []string{models.VisibilityPublic}, Viewer{Role: ViewerGuest}.AllowedTiers())
	assert.Equal(t,
		[]string{models.VisibilityPublic, models.VisibilityRegistered},
		Viewer{Role: ViewerRegistered}.AllowedTiers())
	assert.Equal(t,
		[]string{models.VisibilityPublic, models.VisibilityRegistered, models.VisibilityAdmin},
		Viewer{Role: ViewerAdmin}.AllowedTiers())
}

func TestCanViewDonor(t *testing.T) {
	t.Run("soft-deleted resolves for nobody", func(t *testing.T) {
		donor := sampleDonor()
		donor.Deleted = true
		assert.False(t, CanViewDonor(donor, Viewer{Role: ViewerAdmin}))
		assert.False(t, CanViewDonor(donor, Viewer{Role: ViewerRegistered, UserID: donor.UserID}))
	})

	t.Run("tier gates non-owners", func(t *testing.T) {
		donor := sampleDonor()
		donor.Visibility = models.VisibilityRegistered

		assert.False(t, CanViewDonor(donor, Viewer{Role: ViewerGuest}))
		assert.True(t, CanViewDonor(donor, Viewer{Role: ViewerRegistered, UserID: primitive.NewObjectID()}))
		assert.True(t, CanViewDonor(donor, Viewer{Role: ViewerAdmin}))
	})

	t.Run("owner sees through the admin tier", func(t *testing.T) {
		donor := sampleDonor()
		donor.Visibility = models.VisibilityAdmin

		assert.True(t, CanViewDonor(donor, Viewer{Role: ViewerRegistered, UserID: donor.UserID}))
		assert.False(t, CanViewDonor(donor, Viewer{Role: ViewerRegistered, UserID: primitive.NewObjectID()}))
	})
}
