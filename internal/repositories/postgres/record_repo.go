package postgres

import (
	"context"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hearsay-labs/hearsay/internal/models"
)

type RecordRepository interface {
	Upsert(ctx context.Context, rec *models.SpeechRecord) error
	Search(ctx context.Context, userID string, vec pgvector.Vector, topK int) ([]models.QueryMatch, error)
	DeleteAllByUser(ctx context.Context, userID string) (int64, error)
}

type recordRepo struct {
	db *gorm.DB
}

func NewRecordRepo(db *gorm.DB) RecordRepository {
	return &recordRepo{db: db}
}

func (r *recordRepo) Upsert(ctx context.Context, rec *models.SpeechRecord) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(rec).Error
}

// Search returns the topK records nearest to vec for one user, converting
// pgvector cosine distance into a similarity score (1 - distance).
func (r *recordRepo) Search(ctx context.Context, userID string, vec pgvector.Vector, topK int) ([]models.QueryMatch, error) {
	if topK <= 0 {
		topK = 10
	}

	var rows []models.QueryMatch
	err := r.db.WithContext(ctx).
		Raw(`SELECT transcript, 1 - (embedding <=> ?) AS score
		     FROM speech_records
		     WHERE user_id = ?
		     ORDER BY embedding <=> ?
		     LIMIT ?`, vec, userID, vec, topK).
		Scan(&rows).Error
	return rows, err
}

func (r *recordRepo) DeleteAllByUser(ctx context.Context, userID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.SpeechRecord{})
	return res.RowsAffected, res.Error
}
