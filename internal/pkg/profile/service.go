package profile

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tubtip/tubtip/app/models"
	"github.com/tubtip/tubtip/app/repository"
	"github.com/tubtip/tubtip/internal/pkg/apperror"
	"github.com/tubtip/tubtip/internal/pkg/logger"
	"github.com/tubtip/tubtip/internal/pkg/storage"
	"github.com/tubtip/tubtip/internal/pkg/upload"
)

// CreateInput is the multipart profile creation form.
type CreateInput struct {
	DisplayName        string                `form:"display_name" validate:"required,min=1,max=100"`
	Bio                string                `form:"bio" validate:"max=1000"`
	YoutubeChannelName string                `form:"youtube_channel_name" validate:"max=100"`
	Picture            *multipart.FileHeader `form:"-" validate:"-"`
	Banner             *multipart.FileHeader `form:"-" validate:"-"`
}

// UpdateInput is a partial update. Nil fields are left unchanged.
type UpdateInput struct {
	DisplayName        *string               `form:"display_name" validate:"omitempty,min=1,max=100"`
	Bio                *string               `form:"bio" validate:"omitempty,max=1000"`
	YoutubeChannelName *string               `form:"youtube_channel_name" validate:"omitempty,max=100"`
	Picture            *multipart.FileHeader `form:"-" validate:"-"`
	Banner             *multipart.FileHeader `form:"-" validate:"-"`
}

type Service struct {
	profiles repository.ProfileRepository
	tips     repository.TipRepository
	store    storage.ObjectStore
	log      zerolog.Logger
}

func NewService(profiles repository.ProfileRepository, tips repository.TipRepository, store storage.ObjectStore) *Service {
	return &Service{
		profiles: profiles,
		tips:     tips,
		store:    store,
		log:      logger.WithComponent("profile"),
	}
}

// Store exposes the object store for URL derivation.
func (s *Service) Store() storage.ObjectStore { return s.store }

// Create builds the account's single profile, uploading any assets first.
// Uploaded objects are removed again if the insert fails.
func (s *Service) Create(ctx context.Context, accountID uint, in CreateInput) (*models.Profile, error) {
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	if err := models.Validate.Struct(in); err != nil {
		return nil, apperror.FromValidator(err)
	}
	exists, err := s.profiles.ExistsForAccount(ctx, accountID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if exists {
		return nil, apperror.Conflict("Creator profile already exists")
	}

	assets, err := validateAssets(in.Picture, in.Banner)
	if err != nil {
		return nil, err
	}

	tx := s.begin(ctx)
	defer tx.rollback()

	profile := &models.Profile{
		AccountID:          accountID,
		DisplayName:        in.DisplayName,
		Bio:                in.Bio,
		YoutubeChannelName: in.YoutubeChannelName,
	}
	if profile.ProfilePictureKey, err = tx.upload(accountID, upload.RoleProfilePicture, assets.picture); err != nil {
		return nil, err
	}
	if profile.ProfileBannerKey, err = tx.upload(accountID, upload.RoleProfileBanner, assets.banner); err != nil {
		return nil, err
	}

	if err := s.profiles.Create(ctx, profile); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, apperror.Conflict("Creator profile already exists")
		}
		return nil, apperror.Internal(err)
	}
	tx.commit()
	s.log.Info().Uint("account_id", accountID).Uint("profile_id", profile.ID).Msg("profile created")
	return profile, nil
}

// Update applies a partial update. New assets are uploaded before the row
// is written; the replaced objects are deleted only after the write
// succeeds, and the new ones are deleted if it fails.
func (s *Service) Update(ctx context.Context, accountID uint, in UpdateInput) (*models.Profile, error) {
	if in.DisplayName != nil {
		v := strings.TrimSpace(*in.DisplayName)
		in.DisplayName = &v
	}
	if err := models.Validate.Struct(in); err != nil {
		return nil, apperror.FromValidator(err)
	}
	current, err := s.profiles.GetByAccountID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("Creator profile not found")
		}
		return nil, apperror.Internal(err)
	}

	assets, err := validateAssets(in.Picture, in.Banner)
	if err != nil {
		return nil, err
	}

	tx := s.begin(ctx)
	defer tx.rollback()

	patch := repository.ProfilePatch{
		DisplayName:        in.DisplayName,
		Bio:                in.Bio,
		YoutubeChannelName: in.YoutubeChannelName,
	}
	if patch.ProfilePictureKey, err = tx.upload(accountID, upload.RoleProfilePicture, assets.picture); err != nil {
		return nil, err
	}
	if patch.ProfileBannerKey, err = tx.upload(accountID, upload.RoleProfileBanner, assets.banner); err != nil {
		return nil, err
	}

	updated, err := s.profiles.Update(ctx, current.ID, patch)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	tx.commit()

	if patch.ProfilePictureKey != nil {
		s.deleteQuietly(ctx, current.ProfilePictureKey)
	}
	if patch.ProfileBannerKey != nil {
		s.deleteQuietly(ctx, current.ProfileBannerKey)
	}
	return updated, nil
}

// deleteQuietly removes a replaced object. A failure leaves an orphan but
// never affects the committed row.
func (s *Service) deleteQuietly(ctx context.Context, key *string) {
	if key == nil || *key == "" {
		return
	}
	if err := s.store.Delete(ctx, *key); err != nil {
		s.log.Warn().Err(err).Str("key", *key).Msg("could not delete replaced asset")
	}
}

type assets struct {
	picture *upload.Image
	banner  *upload.Image
}

func validateAssets(picture, banner *multipart.FileHeader) (assets, error) {
	var (
		a      assets
		fields []apperror.FieldError
		failed error
	)
	check := func(field string, h *multipart.FileHeader) *upload.Image {
		if h == nil {
			return nil
		}
		img, err := upload.ValidateImage(field, h)
		if err != nil {
			appErr := apperror.From(err)
			if appErr.Kind != apperror.KindFieldValidation && failed == nil {
				failed = appErr
			}
			fields = append(fields, appErr.Fields...)
			return nil
		}
		return img
	}
	a.picture = check(upload.RoleProfilePicture, picture)
	a.banner = check(upload.RoleProfileBanner, banner)
	if failed != nil {
		return a, failed
	}
	if len(fields) > 0 {
		return a, apperror.Validation(fields)
	}
	return a, nil
}

// uploadTx tracks objects uploaded for one operation so they can be removed
// if the operation does not commit.
type uploadTx struct {
	ctx       context.Context
	s         *Service
	uploaded  []string
	committed bool
}

func (s *Service) begin(ctx context.Context) *uploadTx {
	return &uploadTx{ctx: ctx, s: s}
}

func (t *uploadTx) upload(accountID uint, role string, img *upload.Image) (*string, error) {
	if img == nil {
		return nil, nil
	}
	key := upload.ObjectKey(accountID, role, img.Ext)
	if err := t.s.store.Upload(t.ctx, key, img.Body, img.ContentType); err != nil {
		return nil, apperror.Internal(err)
	}
	t.uploaded = append(t.uploaded, key)
	return &key, nil
}

func (t *uploadTx) commit() { t.committed = true }

func (t *uploadTx) rollback() {
	if t.committed {
		return
	}
	// the request context may already be cancelled
	ctx := context.WithoutCancel(t.ctx)
	for _, key := range t.uploaded {
		if err := t.s.store.Delete(ctx, key); err != nil {
			t.s.log.Error().Err(err).Str("key", key).Msg("compensating delete failed")
			continue
		}
		t.s.log.Info().Str("key", key).Msg("removed orphaned upload")
	}
}
