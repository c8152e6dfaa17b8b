package services

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/roktolink/roktolink-backend/internal/models"
)

func TestBuildMatchFilter(t *testing.T) {
	req := &models.BloodRequest{BloodGroup: "O-", City: "Dhaka"}

	t.Run("guest sees public donors only", func(t *testing.T) {
		filter := BuildMatchFilter(req, Viewer{Role: ViewerGuest})

		assert.Equal(t, true, filter["willing_to_donate"])
		assert.Equal(t, false, filter["deleted"])
		assert.Equal(t, "O-", filter["blood_group"], "blood group is exact equality, city never substitutes for it")

		tiers, ok := filter["visibility"].(bson.M)
		require.True(t, ok)
		assert.Equal(t, []string{models.VisibilityPublic}, tiers["$in"])
	})

	t.Run("admin sees all tiers", func(t *testing.T) {
		filter := BuildMatchFilter(req, Viewer{Role: ViewerAdmin})
		tiers := filter["visibility"].(bson.M)
		assert.Len(t, tiers["$in"], 3)
	})

	t.Run("city filter is optional", func(t *testing.T) {
		noCity := &models.BloodRequest{BloodGroup: "A+"}
		filter := BuildMatchFilter(noCity, Viewer{Role: ViewerRegistered})
		_, present := filter["address.city"]
		assert.False(t, present)
	})

	t.Run("city matches as case-insensitive substring", func(t *testing.T) {
		filter := BuildMatchFilter(req, Viewer{Role: ViewerRegistered})
		pattern, ok := filter["address.city"].(primitive.Regex)
		require.True(t, ok)
		assert.Equal(t, "i", pattern.Options)
		assert.Equal(t, "Dhaka", pattern.Pattern)
	})
}

func TestCityPattern_QuotesUserInput(t *testing.T) {
	pattern := CityPattern("St. John's (West)")

	// The needle must land literally; no character may act as a regex
	// operator.
	re, err := regexp.Compile("(?i)" + pattern.Pattern)
	require.NoError(t, err)
	assert.True(t, re.MatchString("Greater St. John's (West) Area"))
	assert.False(t, re.MatchString("St# John's (West)"), "the dot must not match any character")
}

func TestCityPattern_TrimsWhitespace(t *testing.T) {
	assert.Equal(t, "Dhaka", CityPattern("  Dhaka  ").Pattern)
}

func TestBuildDonorSearchFilter(t *testing.T) {
	t.Run("always scopes deleted and visibility", func(t *testing.T) {
		filter := BuildDonorSearchFilter(DonorSearchQuery{}, Viewer{Role: ViewerGuest})

		assert.Equal(t, false, filter["deleted"])
		tiers := filter["visibility"].(bson.M)
		assert.Equal(t, []string{models.VisibilityPublic}, tiers["$in"])
		_, hasGroup := filter["blood_group"]
		assert.False(t, hasGroup)
	})

	t.Run("applies optional blood group and city", func(t *testing.T) {
		q := DonorSearchQuery{BloodGroup: "B+", City: "sylhet"}
		filter := BuildDonorSearchFilter(q, Viewer{Role: ViewerRegistered})

		assert.Equal(t, "B+", filter["blood_group"])
		pattern := filter["address.city"].(primitive.Regex)
		assert.Equal(t, "sylhet", pattern.Pattern)
	})
}
