package repository

import (
	"context"

	"github.com/tubtip/tubtip/app/models"
	"gorm.io/gorm"
)

type genreRepository struct {
	db *gorm.DB
}

func NewGenreRepository(db *gorm.DB) GenreRepository {
	return &genreRepository{db: db}
}

func (r *genreRepository) Create(ctx context.Context, genre *models.Genre) error {
	return translate(r.db.WithContext(ctx).Create(genre).Error)
}

func (r *genreRepository) GetByID(ctx context.Context, id uint) (*models.Genre, error) {
	var genre models.Genre
	if err := r.db.WithContext(ctx).First(&genre, id).Error; err != nil {
		return nil, translate(err)
	}
	return &genre, nil
}

func (r *genreRepository) List(ctx context.Context) ([]models.Genre, error) {
	var genres []models.Genre
	err := r.db.WithContext(ctx).Order("name ASC").Find(&genres).Error
	return genres, err
}

func (r *genreRepository) Update(ctx context.Context, genre *models.Genre) error {
	res := r.db.WithContext(ctx).Model(&models.Genre{ID: genre.ID}).Update("name", genre.Name)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		// MySQL reports 0 for an unchanged row, so confirm existence first.
		if _, err := r.GetByID(ctx, genre.ID); err != nil {
			return err
		}
	}
	return nil
}

func (r *genreRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Genre{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
