package services

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/roktolink/roktolink-backend/internal/database"
)

// EnsureIndexes configures the indexes every collection relies on.
// Called on startup from main after Mongo has connected. Creation is
// idempotent.
func EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		"users": {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetName("idx_email_unique").SetUnique(true),
			},
		},
		"donors": {
			{
				// One live donor profile per user; soft-deleted tombstones
				// do not block re-registration.
				Keys: bson.D{{Key: "user_id", Value: 1}},
				Options: options.Index().SetName("idx_user_unique").SetUnique(true).
					SetPartialFilterExpression(bson.M{"deleted": false}),
			},
			{
				// Matcher: blood group + city.
				Keys: bson.D{
					{Key: "blood_group", Value: 1},
					{Key: "address.city", Value: 1},
				},
				Options: options.Index().SetName("idx_group_city"),
			},
			{
				Keys:    bson.D{{Key: "visibility", Value: 1}},
				Options: options.Index().SetName("idx_visibility"),
			},
		},
		"institutions": {
			{
				// Name uniqueness among live records only.
				Keys: bson.D{{Key: "name", Value: 1}},
				Options: options.Index().SetName("idx_name_unique").SetUnique(true).
					SetPartialFilterExpression(bson.M{"deleted": false}),
			},
		},
		"donations": {
			{
				Keys: bson.D{
					{Key: "donor_id", Value: 1},
					{Key: "donation_date", Value: -1},
				},
				Options: options.Index().SetName("idx_donor_date"),
			},
		},
		"blood_requests": {
			{
				Keys: bson.D{
					{Key: "status", Value: 1},
					{Key: "blood_group", Value: 1},
					{Key: "created_at", Value: -1},
				},
				Options: options.Index().SetName("idx_status_group"),
			},
			{
				Keys:    bson.D{{Key: "requester_id", Value: 1}},
				Options: options.Index().SetName("idx_requester"),
			},
		},
		"threads": {
			{
				// One thread per (kind, request, donor, requester).
				Keys: bson.D{
					{Key: "kind", Value: 1},
					{Key: "request_id", Value: 1},
					{Key: "donor_id", Value: 1},
					{Key: "requester_id", Value: 1},
				},
				Options: options.Index().SetName("idx_thread_identity").SetUnique(true),
			},
			{
				Keys: bson.D{
					{Key: "requester_id", Value: 1},
					{Key: "updated_at", Value: -1},
				},
				Options: options.Index().SetName("idx_requester_activity"),
			},
			{
				Keys: bson.D{
					{Key: "donor_user_id", Value: 1},
					{Key: "updated_at", Value: -1},
				},
				Options: options.Index().SetName("idx_donor_activity"),
			},
		},
		"messages": {
			{
				// Compound index on (thread_id, sent_at) for pagination.
				Keys: bson.D{
					{Key: "thread_id", Value: 1},
					{Key: "sent_at", Value: -1},
				},
				Options: options.Index().SetName("idx_thread_sent"),
			},
		},
		"notifications": {
			{
				Keys: bson.D{
					{Key: "user_id", Value: 1},
					{Key: "created_at", Value: -1},
				},
				Options: options.Index().SetName("idx_user_created"),
			},
			{
				Keys: bson.D{
					{Key: "user_id", Value: 1},
					{Key: "read", Value: 1},
				},
				Options: options.Index().SetName("idx_user_read"),
			},
		},
	}

	for collection, models := range indexes {
		col := database.DB.Collection(collection)
		for _, m := range models {
			if _, err := col.Indexes().CreateOne(ctx, m); err != nil {
				return err
			}
		}
	}
	return nil
}
