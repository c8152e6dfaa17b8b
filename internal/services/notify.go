package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/roktolink/roktolink-backend/internal/database"
	"github.com/roktolink/roktolink-backend/internal/models"
)

// CreateNotification inserts a single notification.
func CreateNotification(ctx context.Context, n *models.Notification) error {
	n.CreatedAt = time.Now()
	_, err := database.DB.Collection("notifications").InsertOne(ctx, n)
	return err
}

// NotifyAsync delivers a notification without blocking the caller.
// Failures are logged and swallowed; a lost notification never fails the
// operation that produced it.
func NotifyAsync(n models.Notification) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := CreateNotification(ctx, &n); err != nil {
			log.Warn().Err(err).Str("user_id", n.UserID.Hex()).Str("type", n.Type).
				Msg("notification insert failed")
		}
	}()
}

// EmitRequestMatchNotifications fans out "request_match" notifications to
// every matched donor that allows request contact and has an owning user.
// Runs in the background; each donor gets at most one notification per
// request creation, and any failure is logged, never surfaced.
func EmitRequestMatchNotifications(req models.BloodRequest, viewer Viewer) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		donors, err := ContactableMatches(ctx, &req, viewer)
		if err != nil {
			log.Warn().Err(err).Str("request_id", req.ID.Hex()).
				Msg("match fan-out query failed")
			return
		}
		if len(donors) == 0 {
			return
		}

		title := fmt.Sprintf("Blood request: %s needed", req.BloodGroup)
		body := fmt.Sprintf("%d unit(s) of %s needed", req.UnitsNeeded, req.BloodGroup)
		if req.City != "" {
			body += " in " + req.City
		}
		if req.Urgency != models.UrgencyNormal {
			body += " (" + req.Urgency + ")"
		}

		now := time.Now()
		docs := make([]interface{}, 0, len(donors))
		for _, d := range donors {
			// Never notify the requester about their own profile.
			if d.UserID == req.RequesterID {
				continue
			}
			docs = append(docs, models.Notification{
				CreatedAt: now,
				UserID:    d.UserID,
				Type:      models.NotifyRequestMatch,
				Title:     title,
				Body:      body,
				RelatedID: req.ID.Hex(),
			})
		}
		if len(docs) == 0 {
			return
		}

		_, err = database.DB.Collection("notifications").InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
		if err != nil {
			log.Warn().Err(err).Str("request_id", req.ID.Hex()).Int("count", len(docs)).
				Msg("match fan-out insert failed")
			return
		}
		log.Info().Str("request_id", req.ID.Hex()).Int("count", len(docs)).
			Msg("request match notifications sent")
	}()
}

// ListNotifications returns the newest notifications for a user.
func ListNotifications(ctx context.Context, userID primitive.ObjectID, unreadOnly bool, limit int64) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	filter := bson.M{"user_id": userID}
	if unreadOnly {
		filter["read"] = false
	}

	cursor, err := database.DB.Collection("notifications").Find(ctx, filter,
		options.Find().SetSort(bson.M{"created_at": -1}).SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	notifications := make([]models.Notification, 0)
	if err = cursor.All(ctx, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkNotificationsRead marks the given notifications read, scoped to the
// owner. Unknown ids are ignored. With no ids, everything unread is
// marked.
func MarkNotificationsRead(ctx context.Context, userID primitive.ObjectID, ids []primitive.ObjectID) (int64, error) {
	filter := bson.M{"user_id": userID, "read": false}
	if len(ids) > 0 {
		filter["_id"] = bson.M{"$in": ids}
	}
	res, err := database.DB.Collection("notifications").UpdateMany(ctx, filter,
		bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// CountUnreadNotifications returns the unread badge count for a user.
func CountUnreadNotifications(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return database.DB.Collection("notifications").CountDocuments(ctx, bson.M{"user_id": userID, "read": false})
}
