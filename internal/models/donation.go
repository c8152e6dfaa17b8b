package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Donation is an append-only record of a completed blood donation.
// Recording one is the only operation that moves donor and institution
// counters; records are never updated or deleted.
type Donation struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`

	DonorID       primitive.ObjectID  `bson:"donor_id" json:"donor_id"`
	InstitutionID *primitive.ObjectID `bson:"institution_id,omitempty" json:"institution_id,omitempty"`

	// Admin account that recorded the donation.
	RecordedBy primitive.ObjectID `bson:"recorded_by" json:"recorded_by"`

	DonationDate time.Time `bson:"donation_date" json:"donation_date"`
	Units        int       `bson:"units" json:"units"`
	Notes        string    `bson:"notes,omitempty" json:"notes,omitempty"`
}
