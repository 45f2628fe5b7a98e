package notify

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/hearsay-labs/hearsay/internal/utils"
)

type RedisEmitter struct {
	rdb *redis.Client
}

func NewRedisEmitter(rdb *redis.Client) *RedisEmitter {
	return &RedisEmitter{rdb: rdb}
}

func (e *RedisEmitter) ChunkStored(ctx context.Context, sessionID string, ev EmbeddingEvent) error {
	ev.Type = "embedding"
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return e.rdb.Publish(ctx, SessionChannel(sessionID), payload).Err()
}

func (e *RedisEmitter) Error(ctx context.Context, sessionID string, code utils.Code, message string) error {
	payload, err := json.Marshal(ErrorEvent{Type: "error", Code: code, Message: message})
	if err != nil {
		return err
	}
	return e.rdb.Publish(ctx, SessionChannel(sessionID), payload).Err()
}
