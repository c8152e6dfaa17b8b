package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Blood request urgency levels.
const (
	UrgencyNormal   = "normal"
	UrgencyUrgent   = "urgent"
	UrgencyCritical = "critical"
)

// Blood request statuses. Open is the only non-terminal state.
const (
	RequestOpen      = "open"
	RequestFulfilled = "fulfilled"
	RequestCancelled = "cancelled"
)

// ValidUrgency reports whether s is a known urgency level.
func ValidUrgency(s string) bool {
	return s == UrgencyNormal || s == UrgencyUrgent || s == UrgencyCritical
}

type BloodRequest struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`

	RequesterID primitive.ObjectID `bson:"requester_id" json:"requester_id"`

	PatientName  string     `bson:"patient_name" json:"patient_name"`
	BloodGroup   string     `bson:"blood_group" json:"blood_group"`
	UnitsNeeded  int        `bson:"units_needed" json:"units_needed"`
	City         string     `bson:"city,omitempty" json:"city,omitempty"`
	HospitalName string     `bson:"hospital_name,omitempty" json:"hospital_name,omitempty"`
	RequiredBy   *time.Time `bson:"required_by,omitempty" json:"required_by,omitempty"`
	Urgency      string     `bson:"urgency" json:"urgency"`
	Notes        string     `bson:"notes,omitempty" json:"notes,omitempty"`

	Status          string    `bson:"status" json:"status"`
	StatusChangedAt time.Time `bson:"status_changed_at" json:"status_changed_at"`
}
