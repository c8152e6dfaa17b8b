package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Visibility tiers for donor profiles and phone numbers.
const (
	VisibilityPublic     = "public"
	VisibilityRegistered = "registered"
	VisibilityAdmin      = "admin"
)

// Contact preferences for donors.
const (
	ContactByPhone = "phone"
	ContactByEmail = "email"
	ContactByChat  = "chat"
)

// BloodGroups is the closed set of accepted blood group labels.
var BloodGroups = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

// ValidBloodGroup reports whether s is one of the eight accepted groups.
func ValidBloodGroup(s string) bool {
	for _, g := range BloodGroups {
		if s == g {
			return true
		}
	}
	return false
}

// ValidVisibility reports whether s is a known visibility tier.
func ValidVisibility(s string) bool {
	return s == VisibilityPublic || s == VisibilityRegistered || s == VisibilityAdmin
}

// ValidContactPreference reports whether s is a known contact preference.
func ValidContactPreference(s string) bool {
	return s == ContactByPhone || s == ContactByEmail || s == ContactByChat
}

// Address is the structured location of a donor or institution.
type Address struct {
	Country    string  `bson:"country,omitempty" json:"country,omitempty"`
	Division   string  `bson:"division,omitempty" json:"division,omitempty"`
	City       string  `bson:"city,omitempty" json:"city,omitempty"`
	Area       string  `bson:"area,omitempty" json:"area,omitempty"`
	PostalCode string  `bson:"postal_code,omitempty" json:"postal_code,omitempty"`
	Lat        float64 `bson:"lat,omitempty" json:"lat,omitempty"`
	Lng        float64 `bson:"lng,omitempty" json:"lng,omitempty"`
}

// EmergencyContact is only ever shown to admins and the profile owner.
type EmergencyContact struct {
	Name  string `bson:"name,omitempty" json:"name,omitempty"`
	Phone string `bson:"phone,omitempty" json:"phone,omitempty"`
}

type Donor struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`

	// Owning account. One donor profile per user.
	UserID primitive.ObjectID `bson:"user_id" json:"user_id"`

	FullName    string     `bson:"full_name" json:"full_name"`
	Email       string     `bson:"email,omitempty" json:"email,omitempty"`
	Phone       string     `bson:"phone,omitempty" json:"phone,omitempty"`
	Gender      string     `bson:"gender,omitempty" json:"gender,omitempty"`
	DateOfBirth *time.Time `bson:"date_of_birth,omitempty" json:"date_of_birth,omitempty"`

	BloodGroup      string `bson:"blood_group" json:"blood_group"`
	WillingToDonate bool   `bson:"willing_to_donate" json:"willing_to_donate"`

	// Who may see the profile / the phone number: public, registered, admin.
	Visibility      string `bson:"visibility" json:"visibility"`
	PhoneVisibility string `bson:"phone_visibility" json:"phone_visibility"`

	ContactPreference   string `bson:"contact_preference,omitempty" json:"contact_preference,omitempty"`
	AllowRequestContact bool   `bson:"allow_request_contact" json:"allow_request_contact"`

	Address          Address          `bson:"address" json:"address"`
	EmergencyContact EmergencyContact `bson:"emergency_contact,omitempty" json:"emergency_contact,omitempty"`

	// Free-form medical notes. Encrypted at rest, admin/owner only.
	Notes string `bson:"notes,omitempty" json:"notes,omitempty"`

	LastDonationDate *time.Time `bson:"last_donation_date,omitempty" json:"last_donation_date,omitempty"`
	TotalDonations   int        `bson:"total_donations" json:"total_donations"`

	// A deferral blocks eligibility until the date passes.
	DeferralUntil  *time.Time `bson:"deferral_until,omitempty" json:"deferral_until,omitempty"`
	DeferralReason string     `bson:"deferral_reason,omitempty" json:"deferral_reason,omitempty"`

	// Soft delete. Deleted donors never match and never resolve.
	Deleted bool `bson:"deleted" json:"-"`
}
