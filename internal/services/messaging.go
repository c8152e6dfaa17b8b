package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/roktolink/roktolink-backend/internal/database"
	"github.com/roktolink/roktolink-backend/internal/errs"
	"github.com/roktolink/roktolink-backend/internal/models"
)

// MaxMessageLength bounds a single chat message.
const MaxMessageLength = 2000

// ValidateMessageText checks the message body bounds.
func ValidateMessageText(text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return fmt.Errorf("%w: message text is required", errs.ErrValidation)
	}
	if len(trimmed) > MaxMessageLength {
		return fmt.Errorf("%w: message exceeds %d characters", errs.ErrValidation, MaxMessageLength)
	}
	return nil
}

// CanSendToThread applies the send gates in order: membership first, then
// the pause set. A paused thread blocks both participants, including the
// one who paused it.
func CanSendToThread(t *models.Thread, senderID primitive.ObjectID) error {
	if !t.Participant(senderID) {
		return fmt.Errorf("%w: not a participant in this conversation", errs.ErrForbidden)
	}
	if t.Paused() {
		return fmt.Errorf("%w: conversation is paused", errs.ErrForbidden)
	}
	return nil
}

// GetThread loads a thread by id.
func GetThread(ctx context.Context, id primitive.ObjectID) (*models.Thread, error) {
	var t models.Thread
	err := database.DB.Collection("threads").FindOne(ctx, bson.M{"_id": id}).Decode(&t)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("%w: thread %s", errs.ErrNotFound, id.Hex())
		}
		return nil, err
	}
	return &t, nil
}

// OpenRequestThread finds or creates the conversation between a blood
// request's owner and a donor. Either side may initiate: the requester
// reaching out to a match needs the donor's request-contact consent; a
// donor responding to a listed request consents implicitly.
func OpenRequestThread(ctx context.Context, requestID, donorID, callerID primitive.ObjectID) (*models.Thread, error) {
	req, err := GetBloodRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != models.RequestOpen {
		return nil, fmt.Errorf("%w: request is %s", errs.ErrValidation, req.Status)
	}

	donor, err := GetDonorByID(ctx, donorID)
	if err != nil {
		return nil, err
	}
	if donor.UserID == req.RequesterID {
		return nil, fmt.Errorf("%w: cannot open a conversation with yourself", errs.ErrValidation)
	}

	switch callerID {
	case req.RequesterID:
		if !donor.AllowRequestContact {
			return nil, fmt.Errorf("%w: donor does not accept request contact", errs.ErrForbidden)
		}
	case donor.UserID:
		// Donor reaching out about the request; no consent gate.
	default:
		return nil, fmt.Errorf("%w: not a party to this request", errs.ErrForbidden)
	}

	// Idempotent open: the unique thread index keys on
	// (kind, request_id, donor_id, requester_id).
	filter := bson.M{
		"kind":         models.ThreadKindRequest,
		"request_id":   requestID,
		"donor_id":     donorID,
		"requester_id": req.RequesterID,
	}

	var existing models.Thread
	err = database.DB.Collection("threads").FindOne(ctx, filter).Decode(&existing)
	if err == nil {
		return &existing, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, err
	}

	now := time.Now()
	thread := models.Thread{
		CreatedAt:   now,
		UpdatedAt:   now,
		Kind:        models.ThreadKindRequest,
		RequestID:   &requestID,
		DonorID:     donorID,
		RequesterID: req.RequesterID,
		DonorUserID: donor.UserID,
	}

	res, err := database.DB.Collection("threads").InsertOne(ctx, thread)
	if err != nil {
		// Lost a race with a concurrent open; reload the winner.
		if mongo.IsDuplicateKeyError(err) {
			if ferr := database.DB.Collection("threads").FindOne(ctx, filter).Decode(&existing); ferr == nil {
				return &existing, nil
			}
		}
		return nil, err
	}
	thread.ID = res.InsertedID.(primitive.ObjectID)
	return &thread, nil
}

// OpenContactThread finds or creates a direct contact conversation with a
// donor, outside any blood request. Requires the donor's consent flag.
func OpenContactThread(ctx context.Context, donorID, senderID primitive.ObjectID) (*models.Thread, error) {
	donor, err := GetDonorByID(ctx, donorID)
	if err != nil {
		return nil, err
	}
	if donor.UserID == senderID {
		return nil, fmt.Errorf("%w: cannot message your own donor profile", errs.ErrValidation)
	}
	if !donor.AllowRequestContact {
		return nil, fmt.Errorf("%w: donor does not accept contact", errs.ErrForbidden)
	}

	filter := bson.M{
		"kind":         models.ThreadKindContact,
		"donor_id":     donorID,
		"requester_id": senderID,
	}

	var existing models.Thread
	err = database.DB.Collection("threads").FindOne(ctx, filter).Decode(&existing)
	if err == nil {
		return &existing, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, err
	}

	// Throttle fresh approaches only; an existing conversation above is
	// returned without any guard.
	if !AllowNewContact(ctx, senderID, donorID) {
		return nil, fmt.Errorf("%w: too many contact attempts, try again later", errs.ErrRateLimited)
	}

	now := time.Now()
	thread := models.Thread{
		CreatedAt:   now,
		UpdatedAt:   now,
		Kind:        models.ThreadKindContact,
		DonorID:     donorID,
		RequesterID: senderID,
		DonorUserID: donor.UserID,
	}

	res, err := database.DB.Collection("threads").InsertOne(ctx, thread)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			if ferr := database.DB.Collection("threads").FindOne(ctx, filter).Decode(&existing); ferr == nil {
				return &existing, nil
			}
		}
		return nil, err
	}
	thread.ID = res.InsertedID.(primitive.ObjectID)
	return &thread, nil
}

// SendMessage appends a message to a thread as one logical unit: the
// message insert and the thread's last-message snapshot either both land
// or the message is rolled back. Exactly one notification goes to the
// recipient, best-effort.
func SendMessage(ctx context.Context, threadID, senderID primitive.ObjectID, text string) (*models.Message, error) {
	if err := ValidateMessageText(text); err != nil {
		return nil, err
	}

	thread, err := GetThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if err := CanSendToThread(thread, senderID); err != nil {
		return nil, err
	}

	now := time.Now()
	msg := models.Message{
		ThreadID: threadID,
		SenderID: senderID,
		Text:     strings.TrimSpace(text),
		SentAt:   now,
	}

	res, err := database.DB.Collection("messages").InsertOne(ctx, msg)
	if err != nil {
		return nil, err
	}
	msg.ID = res.InsertedID.(primitive.ObjectID)

	snapshot := models.MessageSnapshot{SenderID: senderID, Text: msg.Text, SentAt: now}
	_, err = database.DB.Collection("threads").UpdateOne(ctx,
		bson.M{"_id": threadID},
		bson.M{
			"$set": bson.M{"last_message": snapshot, "updated_at": now},
			"$inc": bson.M{"message_count": 1},
		})
	if err != nil {
		// Roll the message back so the thread never claims a last message
		// that readers cannot find, then fail the send.
		if _, derr := database.DB.Collection("messages").DeleteOne(ctx, bson.M{"_id": msg.ID}); derr != nil {
			log.Error().Err(derr).Str("message_id", msg.ID.Hex()).
				Msg("message rollback failed after snapshot update error")
		}
		return nil, err
	}

	PushMessageToRecentCache(msg)

	notifType := models.NotifyMessage
	if thread.Kind == models.ThreadKindContact && thread.MessageCount == 0 {
		notifType = models.NotifyContact
	}
	NotifyAsync(models.Notification{
		UserID:    thread.Other(senderID),
		Type:      notifType,
		Title:     "New message",
		Body:      truncate(msg.Text, 120),
		RelatedID: threadID.Hex(),
	})

	return &msg, nil
}

// PauseThread adds the caller to the thread's pause set. Idempotent.
func PauseThread(ctx context.Context, threadID, userID primitive.ObjectID) error {
	thread, err := GetThread(ctx, threadID)
	if err != nil {
		return err
	}
	if !thread.Participant(userID) {
		return fmt.Errorf("%w: not a participant in this conversation", errs.ErrForbidden)
	}

	_, err = database.DB.Collection("threads").UpdateOne(ctx,
		bson.M{"_id": threadID},
		bson.M{
			"$addToSet": bson.M{"paused_by": userID.Hex()},
			"$set":      bson.M{"updated_at": time.Now()},
		})
	return err
}

// ResumeThread removes the caller from the pause set. Each participant
// can only remove themselves; sends stay blocked until the set is empty.
func ResumeThread(ctx context.Context, threadID, userID primitive.ObjectID) error {
	thread, err := GetThread(ctx, threadID)
	if err != nil {
		return err
	}
	if !thread.Participant(userID) {
		return fmt.Errorf("%w: not a participant in this conversation", errs.ErrForbidden)
	}

	_, err = database.DB.Collection("threads").UpdateOne(ctx,
		bson.M{"_id": threadID},
		bson.M{
			"$pull": bson.M{"paused_by": userID.Hex()},
			"$set":  bson.M{"updated_at": time.Now()},
		})
	return err
}

// ListThreads returns the caller's inbox, most recently active first.
// Last-message snapshots make this a single query.
func ListThreads(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.Thread, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	filter := bson.M{"$or": []bson.M{
		{"requester_id": userID},
		{"donor_user_id": userID},
	}}

	cursor, err := database.DB.Collection("threads").Find(ctx, filter,
		options.Find().SetSort(bson.M{"updated_at": -1}).SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	threads := make([]models.Thread, 0)
	if err = cursor.All(ctx, &threads); err != nil {
		return nil, err
	}
	return threads, nil
}

// LoadThreadMessages returns paginated history for a thread the caller
// participates in. Pagination is timestamp-based (newest-first scrolling);
// the returned page is oldest-first for rendering.
func LoadThreadMessages(ctx context.Context, threadID, callerID primitive.ObjectID, before *time.Time, limit int64) ([]models.Message, bool, error) {
	thread, err := GetThread(ctx, threadID)
	if err != nil {
		return nil, false, err
	}
	if !thread.Participant(callerID) {
		return nil, false, fmt.Errorf("%w: not a participant in this conversation", errs.ErrForbidden)
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}

	// Initial page comes from the Redis recent cache when possible.
	if before == nil {
		if cached, ok := RecentThreadMessages(ctx, threadID); ok {
			out := cached
			if int64(len(cached)) > limit {
				out = cached[int64(len(cached))-limit:]
			}
			return out, int64(len(cached)) >= limit, nil
		}
	}

	filter := bson.M{"thread_id": threadID}
	if before != nil {
		filter["sent_at"] = bson.M{"$lt": before.UTC()}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "sent_at", Value: -1}}).
		SetLimit(limit + 1)

	cur, err := database.DB.Collection("messages").Find(ctx, filter, opts)
	if err != nil {
		return nil, false, err
	}
	defer cur.Close(ctx)

	var msgs []models.Message
	for cur.Next(ctx) {
		var m models.Message
		if err := cur.Decode(&m); err != nil {
			continue
		}
		msgs = append(msgs, m)
	}
	if err := cur.Err(); err != nil {
		return nil, false, err
	}

	hasMore := int64(len(msgs)) > limit
	if hasMore {
		msgs = msgs[:len(msgs)-1]
	}

	// Reverse to oldest-first for the UI.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	if before == nil && len(msgs) > 0 {
		WarmRecentThreadCache(ctx, threadID, msgs)
	}

	return msgs, hasMore, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
