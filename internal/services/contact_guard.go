package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/roktolink/roktolink-backend/internal/database"
)

const (
	// contactGuardKeyPrefix is the Redis key prefix for first-contact
	// throttling.
	contactGuardKeyPrefix = "contact_guard:"
	// contactGuardWindow is how long a sender must wait before opening
	// another conversation with the same donor.
	contactGuardWindow = 10 * time.Minute
)

func contactGuardKey(senderID, donorID primitive.ObjectID) string {
	return contactGuardKeyPrefix + senderID.Hex() + ":" + donorID.Hex()
}

// AllowNewContact reports whether the sender may open a fresh contact
// conversation with the donor. One new approach per pair per window;
// messages inside an existing conversation are never throttled here.
// Fails open when Redis is unavailable.
func AllowNewContact(ctx context.Context, senderID, donorID primitive.ObjectID) bool {
	if database.RedisClient == nil {
		return true
	}

	ok, err := database.RedisClient.SetNX(ctx, contactGuardKey(senderID, donorID), "1", contactGuardWindow).Result()
	if err != nil {
		return true
	}
	return ok
}
