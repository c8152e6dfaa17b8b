package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/roktolink/roktolink-backend/internal/errs"
	"github.com/roktolink/roktolink-backend/internal/models"
)

func TestValidateMessageText(t *testing.T) {
	assert.NoError(t, ValidateMessageText("hello"))
	assert.NoError(t, ValidateMessageText(strings.Repeat("x", MaxMessageLength)))

	for name, text := range map[string]string{
		"empty":      "",
		"whitespace": "   \n\t ",
		"too long":   strings.Repeat("x", MaxMessageLength+1),
	} {
		t.Run(name, func(t *testing.T) {
			err := ValidateMessageText(text)
			require.Error(t, err)
			assert.ErrorIs(t, err, errs.ErrValidation)
		})
	}
}

func testThread() *models.Thread {
	return &models.Thread{
		ID:          primitive.NewObjectID(),
		Kind:        models.ThreadKindRequest,
		RequesterID: primitive.NewObjectID(),
		DonorUserID: primitive.NewObjectID(),
	}
}

func TestCanSendToThread(t *testing.T) {
	t.Run("participants may send", func(t *testing.T) {
		th := testThread()
		assert.NoError(t, CanSendToThread(th, th.RequesterID))
		assert.NoError(t, CanSendToThread(th, th.DonorUserID))
	})

	t.Run("outsiders are forbidden", func(t *testing.T) {
		th := testThread()
		err := CanSendToThread(th, primitive.NewObjectID())
		assert.ErrorIs(t, err, errs.ErrForbidden)
	})

	t.Run("any pause blocks both sides", func(t *testing.T) {
		th := testThread()
		th.PausedBy = []string{th.DonorUserID.Hex()}

		for _, sender := range []primitive.ObjectID{th.RequesterID, th.DonorUserID} {
			err := CanSendToThread(th, sender)
			assert.ErrorIs(t, err, errs.ErrForbidden)
		}
	})

	t.Run("empty pause set sends again", func(t *testing.T) {
		th := testThread()
		th.PausedBy = []string{}
		assert.NoError(t, CanSendToThread(th, th.RequesterID))
	})

	t.Run("membership is checked before the pause gate", func(t *testing.T) {
		th := testThread()
		th.PausedBy = []string{th.RequesterID.Hex()}
		err := CanSendToThread(th, primitive.NewObjectID())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a participant")
	})
}

func TestThreadHelpers(t *testing.T) {
	th := testThread()

	t.Run("participant", func(t *testing.T) {
		assert.True(t, th.Participant(th.RequesterID))
		assert.True(t, th.Participant(th.DonorUserID))
		assert.False(t, th.Participant(primitive.NewObjectID()))
	})

	t.Run("other flips between the two parties", func(t *testing.T) {
		assert.Equal(t, th.DonorUserID, th.Other(th.RequesterID))
		assert.Equal(t, th.RequesterID, th.Other(th.DonorUserID))
	})

	t.Run("pause set membership", func(t *testing.T) {
		th := testThread()
		assert.False(t, th.Paused())

		th.PausedBy = []string{th.RequesterID.Hex()}
		assert.True(t, th.Paused())
		assert.True(t, th.PausedByUser(th.RequesterID))
		assert.False(t, th.PausedByUser(th.DonorUserID))

		// Both participants paused independently.
		th.PausedBy = append(th.PausedBy, th.DonorUserID.Hex())
		assert.True(t, th.PausedByUser(th.DonorUserID))
	})
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "abcde", truncate("abcdefgh", 5))
	assert.Equal(t, "", truncate("", 5))
}
