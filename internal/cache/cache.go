package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"time"
)

type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (hit bool, err error)
	SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// QueryKey builds the cache key for one user's query. The question is hashed
// so keys stay bounded regardless of question length.
func QueryKey(userID, question string) string {
	sum := sha1.Sum([]byte(question))
	return "query:" + userID + ":" + hex.EncodeToString(sum[:])
}
