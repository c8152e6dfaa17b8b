package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/roktolink/roktolink-backend/internal/database"
	"github.com/roktolink/roktolink-backend/internal/errs"
	"github.com/roktolink/roktolink-backend/internal/models"
)

// RecordDonation appends a donation record and moves the derived
// counters. The donor update is a single atomic document: $inc on the
// donation count and $max on the last donation date, so concurrent
// recordings can never lose an increment or move the date backwards.
// Donation records themselves are immutable once written.
func RecordDonation(ctx context.Context, d *models.Donation) error {
	if d.Units < 1 {
		return fmt.Errorf("%w: units must be at least 1", errs.ErrValidation)
	}
	if d.DonationDate.IsZero() {
		d.DonationDate = time.Now()
	}
	if d.DonationDate.After(time.Now().Add(24 * time.Hour)) {
		return fmt.Errorf("%w: donation_date cannot be in the future", errs.ErrValidation)
	}

	// Donor must exist and be live; soft-deleted donors take no donations.
	if _, err := GetDonorByID(ctx, d.DonorID); err != nil {
		return err
	}

	if d.InstitutionID != nil {
		var inst models.Institution
		err := database.DB.Collection("institutions").FindOne(ctx,
			bson.M{"_id": *d.InstitutionID, "deleted": false}).Decode(&inst)
		if err != nil {
			if err == mongo.ErrNoDocuments {
				return fmt.Errorf("%w: institution %s", errs.ErrNotFound, d.InstitutionID.Hex())
			}
			return err
		}
	}

	d.CreatedAt = time.Now()
	res, err := database.DB.Collection("donations").InsertOne(ctx, d)
	if err != nil {
		return err
	}
	d.ID = res.InsertedID.(primitive.ObjectID)

	_, err = database.DB.Collection("donors").UpdateOne(ctx,
		bson.M{"_id": d.DonorID},
		bson.M{
			"$inc": bson.M{"total_donations": 1},
			"$max": bson.M{"last_donation_date": d.DonationDate},
			"$set": bson.M{"updated_at": time.Now()},
		})
	if err != nil {
		return fmt.Errorf("donation recorded but donor counters failed: %w", err)
	}

	if d.InstitutionID != nil {
		_, err = database.DB.Collection("institutions").UpdateOne(ctx,
			bson.M{"_id": *d.InstitutionID},
			bson.M{
				"$inc": bson.M{"total_donations": 1},
				"$set": bson.M{"updated_at": time.Now()},
			})
		if err != nil {
			return fmt.Errorf("donation recorded but institution counters failed: %w", err)
		}
	}

	return nil
}

// ListDonations returns donation history, newest first. Pass a zero
// donorID for all donors (admin listing).
func ListDonations(ctx context.Context, donorID primitive.ObjectID, limit, skip int64) ([]models.Donation, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}

	filter := bson.M{}
	if !donorID.IsZero() {
		filter["donor_id"] = donorID
	}

	cursor, err := database.DB.Collection("donations").Find(ctx, filter,
		options.Find().SetSort(bson.M{"donation_date": -1}).SetLimit(limit).SetSkip(skip))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	donations := make([]models.Donation, 0)
	if err = cursor.All(ctx, &donations); err != nil {
		return nil, err
	}
	return donations, nil
}
