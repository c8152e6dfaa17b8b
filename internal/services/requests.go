package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/roktolink/roktolink-backend/internal/database"
	"github.com/roktolink/roktolink-backend/internal/errs"
	"github.com/roktolink/roktolink-backend/internal/models"
)

// ValidateNewRequest checks a blood request before insert. Urgency
// defaults to normal when empty.
func ValidateNewRequest(r *models.BloodRequest) error {
	if strings.TrimSpace(r.PatientName) == "" {
		return fmt.Errorf("%w: patient_name is required", errs.ErrValidation)
	}
	if !models.ValidBloodGroup(r.BloodGroup) {
		return fmt.Errorf("%w: invalid blood_group %q", errs.ErrValidation, r.BloodGroup)
	}
	if r.UnitsNeeded < 1 {
		return fmt.Errorf("%w: units_needed must be at least 1", errs.ErrValidation)
	}
	if r.Urgency == "" {
		r.Urgency = models.UrgencyNormal
	}
	if !models.ValidUrgency(r.Urgency) {
		return fmt.Errorf("%w: invalid urgency %q", errs.ErrValidation, r.Urgency)
	}
	return nil
}

// CreateBloodRequest inserts a new open request.
func CreateBloodRequest(ctx context.Context, r *models.BloodRequest) error {
	if err := ValidateNewRequest(r); err != nil {
		return err
	}

	now := time.Now()
	r.CreatedAt = now
	r.UpdatedAt = now
	r.Status = models.RequestOpen
	r.StatusChangedAt = now

	res, err := database.DB.Collection("blood_requests").InsertOne(ctx, r)
	if err != nil {
		return err
	}
	r.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// GetBloodRequest loads a request by id.
func GetBloodRequest(ctx context.Context, id primitive.ObjectID) (*models.BloodRequest, error) {
	var r models.BloodRequest
	err := database.DB.Collection("blood_requests").FindOne(ctx, bson.M{"_id": id}).Decode(&r)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("%w: request %s", errs.ErrNotFound, id.Hex())
		}
		return nil, err
	}
	return &r, nil
}

// ListOpenRequests returns open requests, newest first, with optional
// blood group and city filters.
func ListOpenRequests(ctx context.Context, bloodGroup, city string, limit, skip int64) ([]models.BloodRequest, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	filter := bson.M{"status": models.RequestOpen}
	if bloodGroup != "" {
		filter["blood_group"] = bloodGroup
	}
	if strings.TrimSpace(city) != "" {
		filter["city"] = CityPattern(city)
	}

	cursor, err := database.DB.Collection("blood_requests").Find(ctx, filter,
		options.Find().SetSort(bson.M{"created_at": -1}).SetLimit(limit).SetSkip(skip))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	requests := make([]models.BloodRequest, 0)
	if err = cursor.All(ctx, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}

// ListRequestsByRequester returns all requests a user has created,
// regardless of status.
func ListRequestsByRequester(ctx context.Context, userID primitive.ObjectID) ([]models.BloodRequest, error) {
	cursor, err := database.DB.Collection("blood_requests").Find(ctx,
		bson.M{"requester_id": userID},
		options.Find().SetSort(bson.M{"created_at": -1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	requests := make([]models.BloodRequest, 0)
	if err = cursor.All(ctx, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}

// ValidateStatusTransition enforces the request lifecycle: open may move
// to fulfilled or cancelled, and both of those are terminal.
func ValidateStatusTransition(current, next string) error {
	if next != models.RequestFulfilled && next != models.RequestCancelled {
		return fmt.Errorf("%w: invalid target status %q", errs.ErrValidation, next)
	}
	if current != models.RequestOpen {
		return fmt.Errorf("%w: request is already %s", errs.ErrValidation, current)
	}
	return nil
}

// ChangeRequestStatus moves a request to a terminal state. Only the
// requester or an admin may do it. The update is a compare-and-set on the
// open status so two concurrent closers cannot both win.
func ChangeRequestStatus(ctx context.Context, id primitive.ObjectID, next string, actorID primitive.ObjectID, actorIsAdmin bool) (*models.BloodRequest, error) {
	req, err := GetBloodRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actorIsAdmin && req.RequesterID != actorID {
		return nil, fmt.Errorf("%w: only the requester may change this request", errs.ErrForbidden)
	}
	if err := ValidateStatusTransition(req.Status, next); err != nil {
		return nil, err
	}

	now := time.Now()
	res, err := database.DB.Collection("blood_requests").UpdateOne(ctx,
		bson.M{"_id": id, "status": models.RequestOpen},
		bson.M{"$set": bson.M{
			"status":            next,
			"status_changed_at": now,
			"updated_at":        now,
		}})
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		return nil, fmt.Errorf("%w: request is no longer open", errs.ErrValidation)
	}

	req.Status = next
	req.StatusChangedAt = now
	req.UpdatedAt = now

	// An admin closing someone else's request tells the requester.
	if actorIsAdmin && req.RequesterID != actorID {
		NotifyAsync(models.Notification{
			UserID:    req.RequesterID,
			Type:      models.NotifyRequestStatus,
			Title:     "Blood request " + next,
			Body:      fmt.Sprintf("Your request for %s was marked %s", req.BloodGroup, next),
			RelatedID: req.ID.Hex(),
		})
	}

	return req, nil
}

// DeleteBloodRequest removes a request. Only the requester or an admin
// may do it. Existing conversations about the request stay readable.
func DeleteBloodRequest(ctx context.Context, id primitive.ObjectID, actorID primitive.ObjectID, actorIsAdmin bool) error {
	req, err := GetBloodRequest(ctx, id)
	if err != nil {
		return err
	}
	if !actorIsAdmin && req.RequesterID != actorID {
		return fmt.Errorf("%w: only the requester may delete this request", errs.ErrForbidden)
	}

	_, err = database.DB.Collection("blood_requests").DeleteOne(ctx, bson.M{"_id": id})
	return err
}
