package services

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/roktolink/roktolink-backend/internal/models"
)

// ViewerRole is a closed set. The projector switches over it exhaustively
// and falls back to the guest projection for anything unknown, so a new
// role can never leak fields by accident.
type ViewerRole int

const (
	ViewerGuest ViewerRole = iota
	ViewerRegistered
	ViewerAdmin
)

// Viewer identifies who is looking at donor data. UserID is the zero
// ObjectID for guests.
type Viewer struct {
	Role   ViewerRole
	UserID primitive.ObjectID
}

// Owns reports whether the viewer is the authenticated owner of the donor
// profile.
func (v Viewer) Owns(donor *models.Donor) bool {
	return v.Role != ViewerGuest && !v.UserID.IsZero() && v.UserID == donor.UserID
}

// AllowedTiers returns the profile visibility tiers the viewer may see.
func (v Viewer) AllowedTiers() []string {
	switch v.Role {
	case ViewerAdmin:
		return []string{models.VisibilityPublic, models.VisibilityRegistered, models.VisibilityAdmin}
	case ViewerRegistered:
		return []string{models.VisibilityPublic, models.VisibilityRegistered}
	case ViewerGuest:
		return []string{models.VisibilityPublic}
	}
	return []string{models.VisibilityPublic}
}

// DonorView is the only donor shape that leaves the API for reads. Fields
// absent for a viewer are omitted entirely, never blanked in place.
type DonorView struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	FullName        string `json:"full_name"`
	BloodGroup      string `json:"blood_group"`
	WillingToDonate bool   `json:"willing_to_donate"`

	Visibility          string `json:"visibility"`
	PhoneVisibility     string `json:"phone_visibility"`
	ContactPreference   string `json:"contact_preference,omitempty"`
	AllowRequestContact bool   `json:"allow_request_contact"`

	Address models.Address `json:"address"`

	LastDonationDate *time.Time `json:"last_donation_date,omitempty"`
	TotalDonations   int        `json:"total_donations"`

	Eligibility Eligibility `json:"eligibility"`

	// Contact fields, present only when the viewer may see them.
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`

	// Admin/owner-only block.
	Gender           string                   `json:"gender,omitempty"`
	DateOfBirth      *time.Time               `json:"date_of_birth,omitempty"`
	EmergencyContact *models.EmergencyContact `json:"emergency_contact,omitempty"`
	Notes            string                   `json:"notes,omitempty"`
	DeferralUntil    *time.Time               `json:"deferral_until,omitempty"`
	DeferralReason   string                   `json:"deferral_reason,omitempty"`
}

// ProjectDonorView builds the viewer-scoped read model for a donor.
// Admins and the profile owner see everything. Other authenticated users
// see contact fields (phone and email) but never the medical block.
// Guests see the phone only when the donor marked it public, and nothing
// else beyond the base fields.
func ProjectDonorView(donor *models.Donor, viewer Viewer, now time.Time) DonorView {
	view := DonorView{
		ID:                  donor.ID.Hex(),
		UserID:              donor.UserID.Hex(),
		CreatedAt:           donor.CreatedAt,
		UpdatedAt:           donor.UpdatedAt,
		FullName:            donor.FullName,
		BloodGroup:          donor.BloodGroup,
		WillingToDonate:     donor.WillingToDonate,
		Visibility:          donor.Visibility,
		PhoneVisibility:     donor.PhoneVisibility,
		ContactPreference:   donor.ContactPreference,
		AllowRequestContact: donor.AllowRequestContact,
		Address:             donor.Address,
		LastDonationDate:    donor.LastDonationDate,
		TotalDonations:      donor.TotalDonations,
		Eligibility:         EvaluateEligibility(donor, now),
	}

	full := viewer.Role == ViewerAdmin || viewer.Owns(donor)

	switch {
	case full:
		view.Phone = donor.Phone
		view.Email = donor.Email
		view.Gender = donor.Gender
		view.DateOfBirth = donor.DateOfBirth
		if donor.EmergencyContact.Name != "" || donor.EmergencyContact.Phone != "" {
			ec := donor.EmergencyContact
			view.EmergencyContact = &ec
		}
		view.Notes = donor.Notes
		view.DeferralUntil = donor.DeferralUntil
		view.DeferralReason = donor.DeferralReason
	case viewer.Role == ViewerRegistered:
		// Registered users always get the phone; phone_visibility only
		// gates guests. Email rides along for contact preference "email".
		view.Phone = donor.Phone
		view.Email = donor.Email
	default:
		// Guest (and any future unknown role falls back here).
		if donor.PhoneVisibility == models.VisibilityPublic {
			view.Phone = donor.Phone
		}
	}

	return view
}

// CanViewDonor reports whether the donor profile resolves at all for the
// viewer. Soft-deleted donors resolve for nobody through read paths.
func CanViewDonor(donor *models.Donor, viewer Viewer) bool {
	if donor.Deleted {
		return false
	}
	if viewer.Role == ViewerAdmin || viewer.Owns(donor) {
		return true
	}
	for _, tier := range viewer.AllowedTiers() {
		if donor.Visibility == tier {
			return true
		}
	}
	return false
}
