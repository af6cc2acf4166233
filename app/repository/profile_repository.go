package repository

import (
	"context"

	"github.com/tubtip/tubtip/app/models"
	"gorm.io/gorm"
)

// ProfilePatch names the profile columns a partial update may touch. Nil
// fields are left unchanged.
type ProfilePatch struct {
	DisplayName        *string
	Bio                *string
	YoutubeChannelName *string
	ProfilePictureKey  *string
	ProfileBannerKey   *string
	PayoutAccountID    *string
	Country            *string
}

// Columns returns only the supplied columns keyed by column name.
func (p ProfilePatch) Columns() map[string]interface{} {
	cols := make(map[string]interface{})
	set := func(name string, v *string) {
		if v != nil {
			cols[name] = *v
		}
	}
	set("display_name", p.DisplayName)
	set("bio", p.Bio)
	set("youtube_channel_name", p.YoutubeChannelName)
	set("profile_picture_key", p.ProfilePictureKey)
	set("profile_banner_key", p.ProfileBannerKey)
	set("payout_account_id", p.PayoutAccountID)
	set("country", p.Country)
	return cols
}

func (p ProfilePatch) Empty() bool {
	return len(p.Columns()) == 0
}

// profileRepository implements the ProfileRepository interface
type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new profile repository instance
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

// Create inserts the profile. A second profile for the same account is an
// ErrConflict.
func (r *profileRepository) Create(ctx context.Context, profile *models.Profile) error {
	return translate(r.db.WithContext(ctx).Create(profile).Error)
}

func (r *profileRepository) GetByID(ctx context.Context, id uint) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).First(&profile, id).Error; err != nil {
		return nil, translate(err)
	}
	return &profile, nil
}

func (r *profileRepository) GetByAccountID(ctx context.Context, accountID uint) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).Where("account_id = ?", accountID).First(&profile).Error; err != nil {
		return nil, translate(err)
	}
	return &profile, nil
}

// GetByUsername resolves the profile through its owning account's username.
func (r *profileRepository) GetByUsername(ctx context.Context, username string) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.WithContext(ctx).
		Joins("JOIN accounts ON accounts.id = profiles.account_id").
		Where("accounts.username = ?", models.NormalizeUsername(username)).
		First(&profile).Error
	if err != nil {
		return nil, translate(err)
	}
	return &profile, nil
}

func (r *profileRepository) GetByPayoutAccountID(ctx context.Context, payoutAccountID string) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).Where("payout_account_id = ?", payoutAccountID).First(&profile).Error; err != nil {
		return nil, translate(err)
	}
	return &profile, nil
}

func (r *profileRepository) ExistsForAccount(ctx context.Context, accountID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Profile{}).Where("account_id = ?", accountID).Count(&count).Error
	return count > 0, err
}

// Update writes the patched columns and returns the stored row.
func (r *profileRepository) Update(ctx context.Context, profileID uint, patch ProfilePatch) (*models.Profile, error) {
	db := r.db.WithContext(ctx)
	if cols := patch.Columns(); len(cols) > 0 {
		res := db.Model(&models.Profile{ID: profileID}).Updates(cols)
		if res.Error != nil {
			return nil, translate(res.Error)
		}
	}
	return r.GetByID(ctx, profileID)
}

// MarkPayoutConnected sets the payout-connected flag. The flag is never
// cleared here or anywhere else.
func (r *profileRepository) MarkPayoutConnected(ctx context.Context, payoutAccountID string) (*models.Profile, error) {
	profile, err := r.GetByPayoutAccountID(ctx, payoutAccountID)
	if err != nil {
		return nil, err
	}
	if profile.PayoutConnected {
		return profile, nil
	}
	err = r.db.WithContext(ctx).Model(&models.Profile{}).
		Where("id = ?", profile.ID).
		Update("payout_connected", true).Error
	if err != nil {
		return nil, err
	}
	profile.PayoutConnected = true
	return profile, nil
}
