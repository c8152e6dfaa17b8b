package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Thread kinds. A request thread hangs off a blood request; a contact
// thread is a direct approach to a donor with no request attached.
const (
	ThreadKindRequest = "request"
	ThreadKindContact = "contact"
)

// MessageSnapshot is the denormalized last message stored on a thread so
// inbox listings never join against the messages collection.
type MessageSnapshot struct {
	SenderID primitive.ObjectID `bson:"sender_id" json:"sender_id"`
	Text     string             `bson:"text" json:"text"`
	SentAt   time.Time          `bson:"sent_at" json:"sent_at"`
}

// Thread is a two-party conversation between a requester and the user
// behind a donor profile.
type Thread struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`

	Kind string `bson:"kind" json:"kind"`

	// Set for request threads only.
	RequestID *primitive.ObjectID `bson:"request_id,omitempty" json:"request_id,omitempty"`

	DonorID primitive.ObjectID `bson:"donor_id" json:"donor_id"`

	// RequesterID is the user who opened the thread; DonorUserID owns the
	// donor profile. They are the only two participants.
	RequesterID primitive.ObjectID `bson:"requester_id" json:"requester_id"`
	DonorUserID primitive.ObjectID `bson:"donor_user_id" json:"donor_user_id"`

	// User ids (hex) that have paused the thread. Any entry blocks sends
	// in both directions; each participant can only remove themselves.
	PausedBy []string `bson:"paused_by,omitempty" json:"paused_by,omitempty"`

	LastMessage  *MessageSnapshot `bson:"last_message,omitempty" json:"last_message,omitempty"`
	MessageCount int              `bson:"message_count" json:"message_count"`
}

// Participant reports whether userID is one of the thread's two parties.
func (t *Thread) Participant(userID primitive.ObjectID) bool {
	return t.RequesterID == userID || t.DonorUserID == userID
}

// PausedByUser reports whether userID has paused the thread.
func (t *Thread) PausedByUser(userID primitive.ObjectID) bool {
	hex := userID.Hex()
	for _, p := range t.PausedBy {
		if p == hex {
			return true
		}
	}
	return false
}

// Paused reports whether any participant has paused the thread.
func (t *Thread) Paused() bool {
	return len(t.PausedBy) > 0
}

// Other returns the participant opposite to userID.
func (t *Thread) Other(userID primitive.ObjectID) primitive.ObjectID {
	if t.RequesterID == userID {
		return t.DonorUserID
	}
	return t.RequesterID
}

// Message is a single chat message inside a thread. Append-only.
type Message struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ThreadID primitive.ObjectID `bson:"thread_id" json:"thread_id"`
	SenderID primitive.ObjectID `bson:"sender_id" json:"sender_id"`
	Text     string             `bson:"text" json:"text"`
	SentAt   time.Time          `bson:"sent_at" json:"sent_at"`
}
