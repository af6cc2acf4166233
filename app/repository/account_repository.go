package repository

import (
	"context"

	"github.com/tubtip/tubtip/app/models"
	"gorm.io/gorm"
)

// accountRepository implements the AccountRepository interface
type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new account repository instance
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

// Create inserts the account. Unique violations on email or username
// surface as ErrConflict.
func (r *accountRepository) Create(ctx context.Context, account *models.Account) error {
	account.Email = models.NormalizeEmail(account.Email)
	account.Username = models.NormalizeUsername(account.Username)
	return translate(r.db.WithContext(ctx).Create(account).Error)
}

func (r *accountRepository) GetByID(ctx context.Context, id uint) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).Preload("Profile").First(&account, id).Error; err != nil {
		return nil, translate(err)
	}
	return &account, nil
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).Where("email = ?", models.NormalizeEmail(email)).First(&account).Error
	if err != nil {
		return nil, translate(err)
	}
	return &account, nil
}

func (r *accountRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).Where("username = ?", models.NormalizeUsername(username)).First(&account).Error
	if err != nil {
		return nil, translate(err)
	}
	return &account, nil
}

func (r *accountRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	var accounts []models.Account
	err := r.db.WithContext(ctx).Where("email = ?", models.NormalizeEmail(email)).Limit(1).Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, nil
	}
	return &accounts[0], nil
}

func (r *accountRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Account{}).Where("email = ?", models.NormalizeEmail(email)).Count(&count).Error
	return count > 0, err
}

func (r *accountRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Account{}).Where("username = ?", models.NormalizeUsername(username)).Count(&count).Error
	return count > 0, err
}

// Delete removes the account; the profile and its tips cascade.
func (r *accountRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Account{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
