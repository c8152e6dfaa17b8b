package services

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/roktolink/roktolink-backend/internal/database"
	"github.com/roktolink/roktolink-backend/internal/models"
)

// BuildMatchFilter translates a blood request into the donor match
// filter: willing, not deleted, exact blood group, optional city
// substring, and only donors whose profile visibility admits the viewer.
// Blood group compatibility is deliberately exact equality; cross-group
// substitution rules are a medical decision this registry does not make.
func BuildMatchFilter(req *models.BloodRequest, viewer Viewer) bson.M {
	filter := bson.M{
		"willing_to_donate": true,
		"deleted":           false,
		"blood_group":       req.BloodGroup,
		"visibility":        bson.M{"$in": viewer.AllowedTiers()},
	}
	if strings.TrimSpace(req.City) != "" {
		filter["address.city"] = CityPattern(req.City)
	}
	return filter
}

func matchRawDonors(ctx context.Context, req *models.BloodRequest, viewer Viewer) ([]models.Donor, error) {
	cursor, err := database.DB.Collection("donors").Find(ctx, BuildMatchFilter(req, viewer))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var donors []models.Donor
	if err = cursor.All(ctx, &donors); err != nil {
		return nil, err
	}

	// Eligibility depends on "now", so it is decided here rather than in
	// the query.
	now := time.Now()
	eligible := donors[:0]
	for i := range donors {
		if EvaluateEligibility(&donors[i], now).Eligible {
			eligible = append(eligible, donors[i])
		}
	}
	return eligible, nil
}

// MatchDonors returns the eligible donors for a request, each projected
// for the viewer.
func MatchDonors(ctx context.Context, req *models.BloodRequest, viewer Viewer) ([]DonorView, error) {
	donors, err := matchRawDonors(ctx, req, viewer)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	views := make([]DonorView, 0, len(donors))
	for i := range donors {
		DecryptDonorSecrets(&donors[i])
		views = append(views, ProjectDonorView(&donors[i], viewer, now))
	}
	return views, nil
}

// ContactableMatches returns the matched donors that may be notified
// about a new request: profile opted in to request contact and has an
// owning user account to deliver to.
func ContactableMatches(ctx context.Context, req *models.BloodRequest, viewer Viewer) ([]models.Donor, error) {
	donors, err := matchRawDonors(ctx, req, viewer)
	if err != nil {
		return nil, err
	}

	out := donors[:0]
	for _, d := range donors {
		if d.AllowRequestContact && !d.UserID.IsZero() {
			out = append(out, d)
		}
	}
	return out, nil
}
