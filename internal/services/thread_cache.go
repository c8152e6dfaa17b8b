package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/roktolink/roktolink-backend/internal/database"
	"github.com/roktolink/roktolink-backend/internal/models"
)

const (
	threadRecentKeyPrefix = "chat:thread:"
	threadRecentKeySuffix = ":recent"
	threadRecentMaxLen    = 50
	threadRecentTTL       = 1 * time.Hour
)

func threadRecentKey(threadID primitive.ObjectID) string {
	return threadRecentKeyPrefix + threadID.Hex() + threadRecentKeySuffix
}

// PushMessageToRecentCache adds a message to the Redis recent cache
// (newest at head). Call after saving to Mongo. LPUSH + LTRIM keeps the
// last 50.
func PushMessageToRecentCache(msg models.Message) {
	if database.RedisClient == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	key := threadRecentKey(msg.ThreadID)
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	pipe := database.RedisClient.Pipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, threadRecentMaxLen-1)
	pipe.Expire(ctx, key, threadRecentTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Warn().Err(err).Str("thread_id", msg.ThreadID.Hex()).Msg("recent cache push failed")
	}
}

// RecentThreadMessages returns the most recent messages for a thread
// (oldest-first). Only valid for the initial page. Returns
// (messages, true) on hit, (nil, false) on miss.
func RecentThreadMessages(ctx context.Context, threadID primitive.ObjectID) ([]models.Message, bool) {
	if database.RedisClient == nil {
		return nil, false
	}

	key := threadRecentKey(threadID)
	raw, err := database.RedisClient.LRange(ctx, key, 0, -1).Result()
	if err != nil || len(raw) == 0 {
		return nil, false
	}

	var msgs []models.Message
	for i := len(raw) - 1; i >= 0; i-- {
		var m models.Message
		if json.Unmarshal([]byte(raw[i]), &m) != nil {
			continue
		}
		msgs = append(msgs, m)
	}
	return msgs, true
}

// WarmRecentThreadCache stores messages in Redis (oldest at tail). Call
// on a Mongo fetch for the initial page.
func WarmRecentThreadCache(ctx context.Context, threadID primitive.ObjectID, msgs []models.Message) {
	if database.RedisClient == nil || len(msgs) == 0 {
		return
	}

	key := threadRecentKey(threadID)
	pipe := database.RedisClient.Pipeline()
	for i := len(msgs) - 1; i >= 0; i-- {
		data, err := json.Marshal(msgs[i])
		if err != nil {
			continue
		}
		pipe.RPush(ctx, key, data)
	}
	pipe.LTrim(ctx, key, 0, threadRecentMaxLen-1)
	pipe.Expire(ctx, key, threadRecentTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Warn().Err(err).Str("thread_id", threadID.Hex()).Msg("recent cache warm failed")
	}
}
