package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/roktolink/roktolink-backend/internal/database"
	"github.com/roktolink/roktolink-backend/internal/errs"
	"github.com/roktolink/roktolink-backend/internal/models"
	"github.com/roktolink/roktolink-backend/pkg/utils"
)

// ValidateDonorInput checks the closed-set fields shared by donor create
// and update. Returns ErrValidation with the first offending field.
func ValidateDonorInput(d *models.Donor) error {
	if strings.TrimSpace(d.FullName) == "" {
		return fmt.Errorf("%w: full_name is required", errs.ErrValidation)
	}
	if !models.ValidBloodGroup(d.BloodGroup) {
		return fmt.Errorf("%w: invalid blood_group %q", errs.ErrValidation, d.BloodGroup)
	}
	if !models.ValidVisibility(d.Visibility) {
		return fmt.Errorf("%w: invalid visibility %q", errs.ErrValidation, d.Visibility)
	}
	if !models.ValidVisibility(d.PhoneVisibility) {
		return fmt.Errorf("%w: invalid phone_visibility %q", errs.ErrValidation, d.PhoneVisibility)
	}
	if d.ContactPreference != "" && !models.ValidContactPreference(d.ContactPreference) {
		return fmt.Errorf("%w: invalid contact_preference %q", errs.ErrValidation, d.ContactPreference)
	}
	return nil
}

// EncryptDonorSecrets encrypts the at-rest-sensitive fields in place.
// Requires ENCRYPTION_KEY when any of them is set.
func EncryptDonorSecrets(d *models.Donor) error {
	if d.Notes != "" {
		enc, err := utils.Encrypt(d.Notes)
		if err != nil {
			return err
		}
		d.Notes = enc
	}
	if d.EmergencyContact.Phone != "" {
		enc, err := utils.Encrypt(d.EmergencyContact.Phone)
		if err != nil {
			return err
		}
		d.EmergencyContact.Phone = enc
	}
	return nil
}

// DecryptDonorSecrets reverses EncryptDonorSecrets after a load. Fields
// that fail to decrypt are blanked rather than served as ciphertext.
func DecryptDonorSecrets(d *models.Donor) {
	if d.Notes != "" {
		if plain, err := utils.Decrypt(d.Notes); err == nil {
			d.Notes = plain
		} else {
			d.Notes = ""
		}
	}
	if d.EmergencyContact.Phone != "" {
		if plain, err := utils.Decrypt(d.EmergencyContact.Phone); err == nil {
			d.EmergencyContact.Phone = plain
		} else {
			d.EmergencyContact.Phone = ""
		}
	}
}

// GetDonorByID loads a donor that has not been soft-deleted.
func GetDonorByID(ctx context.Context, id primitive.ObjectID) (*models.Donor, error) {
	var donor models.Donor
	err := database.DB.Collection("donors").FindOne(ctx, bson.M{"_id": id, "deleted": false}).Decode(&donor)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("%w: donor %s", errs.ErrNotFound, id.Hex())
		}
		return nil, err
	}
	DecryptDonorSecrets(&donor)
	return &donor, nil
}

// GetDonorByUserID loads the donor profile owned by a user.
func GetDonorByUserID(ctx context.Context, userID primitive.ObjectID) (*models.Donor, error) {
	var donor models.Donor
	err := database.DB.Collection("donors").FindOne(ctx, bson.M{"user_id": userID, "deleted": false}).Decode(&donor)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("%w: no donor profile for user", errs.ErrNotFound)
		}
		return nil, err
	}
	DecryptDonorSecrets(&donor)
	return &donor, nil
}

// DonorSearchQuery carries the public directory filters.
type DonorSearchQuery struct {
	BloodGroup   string
	City         string
	EligibleOnly bool
	Limit        int64
	Skip         int64
}

// BuildDonorSearchFilter translates a directory query into a Mongo filter
// scoped to what the viewer may see. Soft-deleted donors are always
// excluded; profile visibility is enforced here, not post-hoc.
func BuildDonorSearchFilter(q DonorSearchQuery, viewer Viewer) bson.M {
	filter := bson.M{
		"deleted":    false,
		"visibility": bson.M{"$in": viewer.AllowedTiers()},
	}
	if q.BloodGroup != "" {
		filter["blood_group"] = q.BloodGroup
	}
	if city := strings.TrimSpace(q.City); city != "" {
		filter["address.city"] = CityPattern(city)
	}
	return filter
}

// CityPattern is a case-insensitive substring match with the needle
// quoted, so "Dhaka" finds "North Dhaka" and user input can never become
// a regex operator.
func CityPattern(city string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(strings.TrimSpace(city)), Options: "i"}
}

// FindDonors runs a directory search and projects every hit for the
// viewer. EligibleOnly filtering happens in process because eligibility
// depends on the evaluation moment, not on stored fields alone.
func FindDonors(ctx context.Context, q DonorSearchQuery, viewer Viewer) ([]DonorView, error) {
	filter := BuildDonorSearchFilter(q, viewer)

	limit := q.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetLimit(limit).
		SetSkip(q.Skip)

	cursor, err := database.DB.Collection("donors").Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var donors []models.Donor
	if err = cursor.All(ctx, &donors); err != nil {
		return nil, err
	}

	now := time.Now()
	views := make([]DonorView, 0, len(donors))
	for i := range donors {
		DecryptDonorSecrets(&donors[i])
		if q.EligibleOnly && !EvaluateEligibility(&donors[i], now).Eligible {
			continue
		}
		views = append(views, ProjectDonorView(&donors[i], viewer, now))
	}
	return views, nil
}
