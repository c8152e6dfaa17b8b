package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification types.
const (
	NotifyRequestMatch  = "request_match"
	NotifyMessage       = "message"
	NotifyContact       = "contact"
	NotifyRequestStatus = "request_status"
)

// Notification is delivered best-effort; emission never blocks or fails
// the operation that produced it.
type Notification struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`

	UserID primitive.ObjectID `bson:"user_id" json:"user_id"`

	Type  string `bson:"type" json:"type"`
	Title string `bson:"title" json:"title"`
	Body  string `bson:"body,omitempty" json:"body,omitempty"`

	// Id of the entity the notification points at (request, thread, ...).
	RelatedID string `bson:"related_id,omitempty" json:"related_id,omitempty"`

	Read bool `bson:"read" json:"read"`
}
