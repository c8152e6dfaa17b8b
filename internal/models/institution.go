package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Institution types.
const (
	InstitutionHospital  = "hospital"
	InstitutionBloodBank = "blood_bank"
	InstitutionClinic    = "clinic"
	InstitutionNGO       = "ngo"
)

// ValidInstitutionType reports whether s is a known institution type.
func ValidInstitutionType(s string) bool {
	switch s {
	case InstitutionHospital, InstitutionBloodBank, InstitutionClinic, InstitutionNGO:
		return true
	}
	return false
}

type Institution struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`

	Name  string  `bson:"name" json:"name"`
	Type  string  `bson:"type" json:"type"`
	Phone string  `bson:"phone,omitempty" json:"phone,omitempty"`
	Email string  `bson:"email,omitempty" json:"email,omitempty"`

	Address Address `bson:"address" json:"address"`

	// Running count of donations recorded at this institution.
	TotalDonations int `bson:"total_donations" json:"total_donations"`

	Deleted bool `bson:"deleted" json:"-"`
}
