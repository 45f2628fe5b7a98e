package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hearsay-labs/hearsay/internal/models"
)

type SegmentRepository interface {
	Append(ctx context.Context, seg *models.SegmentLog) error
	ListBySession(ctx context.Context, sessionID string, limit int64) ([]models.SegmentLog, error)
}

type segmentRepo struct {
	col *mongo.Collection
	ttl time.Duration
}

func NewSegmentRepo(db *mongo.Database, ttl time.Duration) SegmentRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &segmentRepo{col: db.Collection("segment_log"), ttl: ttl}
}

func (r *segmentRepo) Append(ctx context.Context, seg *models.SegmentLog) error {
	if seg.Timestamp.IsZero() {
		seg.Timestamp = time.Now().UTC()
	}
	if seg.ExpiresAt.IsZero() {
		seg.ExpiresAt = seg.Timestamp.Add(r.ttl)
	}
	_, err := r.col.InsertOne(ctx, seg)
	return err
}

func (r *segmentRepo) ListBySession(ctx context.Context, sessionID string, limit int64) ([]models.SegmentLog, error) {
	if limit <= 0 {
		limit = 200
	}

	cur, err := r.col.Find(ctx,
		bson.M{"session_id": sessionID},
		options.Find().
			SetSort(bson.D{{Key: "timestamp", Value: 1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.SegmentLog
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
