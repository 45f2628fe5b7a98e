package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/hearsay-labs/hearsay/internal/models"
)

type InteractionRepository interface {
	Insert(ctx context.Context, row *models.ChatInteraction) error
	LatestN(ctx context.Context, userID string, n int) ([]models.ChatInteraction, error)
}

type interactionRepo struct {
	db *gorm.DB
}

func NewInteractionRepo(db *gorm.DB) InteractionRepository {
	return &interactionRepo{db: db}
}

func (r *interactionRepo) Insert(ctx context.Context, row *models.ChatInteraction) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *interactionRepo) LatestN(ctx context.Context, userID string, n int) ([]models.ChatInteraction, error) {
	if n <= 0 {
		n = 20
	}
	var rows []models.ChatInteraction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(n).
		Find(&rows).Error
	return rows, err
}
