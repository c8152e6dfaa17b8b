package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/roktolink/roktolink-backend/internal/database"
	"github.com/roktolink/roktolink-backend/internal/models"
)

const statsCacheKey = "stats:registry"

// RegistryStats is the admin dashboard summary.
type RegistryStats struct {
	GeneratedAt time.Time `json:"generated_at"`

	UsersTotal        int64 `json:"users_total"`
	DonorsTotal       int64 `json:"donors_total"`
	DonorsWilling     int64 `json:"donors_willing"`
	DonorsEligible    int64 `json:"donors_eligible"`
	InstitutionsTotal int64 `json:"institutions_total"`

	DonorsByBloodGroup map[string]int64 `json:"donors_by_blood_group"`

	RequestsOpen     int64            `json:"requests_open"`
	RequestsByStatus map[string]int64 `json:"requests_by_status"`

	DonationsTotal int64 `json:"donations_total"`
	UnitsTotal     int64 `json:"units_total"`
}

// GetRegistryStats returns the dashboard summary, cached for a few
// minutes because it walks every live donor to compute eligibility.
func GetRegistryStats(ctx context.Context, refresh bool) (*RegistryStats, error) {
	if !refresh {
		var cached RegistryStats
		if hit, err := Cache.Get(ctx, statsCacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	stats, err := computeRegistryStats(ctx)
	if err != nil {
		return nil, err
	}

	if err := Cache.Set(ctx, statsCacheKey, stats); err != nil {
		log.Warn().Err(err).Msg("stats cache write failed")
	}
	return stats, nil
}

func computeRegistryStats(ctx context.Context) (*RegistryStats, error) {
	stats := &RegistryStats{
		GeneratedAt:        time.Now(),
		DonorsByBloodGroup: make(map[string]int64),
		RequestsByStatus:   make(map[string]int64),
	}

	var err error
	if stats.UsersTotal, err = database.DB.Collection("users").CountDocuments(ctx, bson.M{}); err != nil {
		return nil, err
	}
	if stats.DonorsTotal, err = database.DB.Collection("donors").CountDocuments(ctx, bson.M{"deleted": false}); err != nil {
		return nil, err
	}
	if stats.InstitutionsTotal, err = database.DB.Collection("institutions").CountDocuments(ctx, bson.M{"deleted": false}); err != nil {
		return nil, err
	}

	// Donors per blood group.
	groupCursor, err := database.DB.Collection("donors").Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"deleted": false}}},
		{{Key: "$group", Value: bson.M{"_id": "$blood_group", "count": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, err
	}
	var groups []struct {
		ID    string `bson:"_id"`
		Count int64  `bson:"count"`
	}
	if err = groupCursor.All(ctx, &groups); err != nil {
		return nil, err
	}
	for _, g := range groups {
		stats.DonorsByBloodGroup[g.ID] = g.Count
	}

	// Eligibility needs the evaluation moment, so willing donors are
	// walked in process with a narrow projection.
	eligCursor, err := database.DB.Collection("donors").Find(ctx,
		bson.M{"deleted": false, "willing_to_donate": true},
		options.Find().SetProjection(bson.M{
			"willing_to_donate":  1,
			"last_donation_date": 1,
			"deferral_until":     1,
		}))
	if err != nil {
		return nil, err
	}
	var willing []models.Donor
	if err = eligCursor.All(ctx, &willing); err != nil {
		return nil, err
	}
	now := time.Now()
	stats.DonorsWilling = int64(len(willing))
	for i := range willing {
		if EvaluateEligibility(&willing[i], now).Eligible {
			stats.DonorsEligible++
		}
	}

	// Requests per status.
	reqCursor, err := database.DB.Collection("blood_requests").Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, err
	}
	var statuses []struct {
		ID    string `bson:"_id"`
		Count int64  `bson:"count"`
	}
	if err = reqCursor.All(ctx, &statuses); err != nil {
		return nil, err
	}
	for _, s := range statuses {
		stats.RequestsByStatus[s.ID] = s.Count
	}
	stats.RequestsOpen = stats.RequestsByStatus[models.RequestOpen]

	// Donation totals.
	donCursor, err := database.DB.Collection("donations").Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"count": bson.M{"$sum": 1},
			"units": bson.M{"$sum": "$units"},
		}}},
	})
	if err != nil {
		return nil, err
	}
	var totals []struct {
		Count int64 `bson:"count"`
		Units int64 `bson:"units"`
	}
	if err = donCursor.All(ctx, &totals); err != nil {
		return nil, err
	}
	if len(totals) > 0 {
		stats.DonationsTotal = totals[0].Count
		stats.UnitsTotal = totals[0].Units
	}

	return stats, nil
}
