package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SegmentLog is the flush audit trail for one finalized segment. Documents
// expire via the TTL index on expires_at.
type SegmentLog struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SessionID string             `bson:"session_id" json:"session_id"`
	UserID    string             `bson:"user_id" json:"user_id"`

	Text        string `bson:"text" json:"text"`
	ChunkCount  int    `bson:"chunk_count" json:"chunk_count"`
	ChunkErrors int    `bson:"chunk_errors,omitempty" json:"chunk_errors,omitempty"`
	FlushReason string `bson:"flush_reason" json:"flush_reason"` // timer|gap|close

	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"` // for TTL index
}
