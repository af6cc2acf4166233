package repository

import (
	"context"

	"github.com/tubtip/tubtip/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// tipRepository implements the TipRepository interface
type tipRepository struct {
	db *gorm.DB
}

// NewTipRepository creates a new tip repository instance
func NewTipRepository(db *gorm.DB) TipRepository {
	return &tipRepository{db: db}
}

// CreateIfNotExists relies on the unique index on checkout_session_id so that
// concurrent deliveries of the same checkout insert at most one row.
func (r *tipRepository) CreateIfNotExists(ctx context.Context, tip *models.Tip) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "checkout_session_id"}},
		DoNothing: true,
	}).Create(tip)
	if res.Error != nil {
		if isDuplicateKey(res.Error) {
			return false, nil
		}
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *tipRepository) GetBySessionID(ctx context.Context, sessionID string) (*models.Tip, error) {
	var tip models.Tip
	if err := r.db.WithContext(ctx).Where("checkout_session_id = ?", sessionID).First(&tip).Error; err != nil {
		return nil, translate(err)
	}
	return &tip, nil
}

// ListByProfile returns tips newest first. Private tips are only included
// when includePrivate is set.
func (r *tipRepository) ListByProfile(ctx context.Context, profileID uint, includePrivate bool, offset, limit int) ([]models.Tip, error) {
	var tips []models.Tip
	err := r.scope(ctx, profileID, includePrivate).
		Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&tips).Error
	return tips, err
}

func (r *tipRepository) CountByProfile(ctx context.Context, profileID uint, includePrivate bool) (int64, error) {
	var count int64
	err := r.scope(ctx, profileID, includePrivate).Count(&count).Error
	return count, err
}

func (r *tipRepository) scope(ctx context.Context, profileID uint, includePrivate bool) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Tip{}).Where("profile_id = ?", profileID)
	if !includePrivate {
		q = q.Where("is_private = ?", false)
	}
	return q
}
