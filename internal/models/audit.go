package models

import "time"

// AuditLog rows live in PostgreSQL, not MongoDB. Append-only; written
// asynchronously after mutating operations.
type AuditLog struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	ActorID   string `json:"actor_id"`
	ActorRole string `json:"actor_role"`
	ActorIP   string `json:"actor_ip,omitempty"`

	// Action is a verb like "donor.create" or "request.status".
	Action   string `json:"action"`
	Entity   string `json:"entity"`
	EntityID string `json:"entity_id,omitempty"`
	Detail   string `json:"detail,omitempty"`
}
