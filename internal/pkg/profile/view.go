package profile

import (
	"context"
	"errors"

	"github.com/tubtip/tubtip/app/models"
	"github.com/tubtip/tubtip/app/repository"
	"github.com/tubtip/tubtip/internal/pkg/apperror"
	"github.com/tubtip/tubtip/internal/pkg/billing"
	"github.com/tubtip/tubtip/internal/pkg/storage"
)

const (
	DefaultTipLimit = 10
	MaxTipLimit     = 50
)

// PublicProfile is the creator page as served to supporters.
type PublicProfile struct {
	ID                 uint         `json:"id"`
	Username           string       `json:"username"`
	DisplayName        string       `json:"display_name"`
	Bio                string       `json:"bio"`
	YoutubeChannelName string       `json:"youtube_channel_name"`
	ProfilePictureURL  string       `json:"profile_picture_url"`
	ProfileBannerURL   string       `json:"profile_banner_url"`
	IsBankConnected    bool         `json:"is_bank_connected"`
	Country            string       `json:"country,omitempty"`
	Currency           string       `json:"currency,omitempty"`
	TubeTipValue       int64        `json:"tube_tip_value,omitempty"`
	NumberOfTips       int64        `json:"number_of_tips"`
	Tips               []models.Tip `json:"tips"`
}

// GetPublic loads a creator page by username. viewerID is the signed-in
// account or 0; only the owner sees private tips.
func (s *Service) GetPublic(ctx context.Context, username string, viewerID uint) (*PublicProfile, error) {
	p, err := s.profiles.GetByUsername(ctx, models.NormalizeUsername(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("Creator not found")
		}
		return nil, apperror.Internal(err)
	}
	includePrivate := viewerID != 0 && viewerID == p.AccountID

	count, err := s.tips.CountByProfile(ctx, p.ID, includePrivate)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	tips, err := s.tips.ListByProfile(ctx, p.ID, includePrivate, 0, DefaultTipLimit)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if tips == nil {
		tips = []models.Tip{}
	}

	view := &PublicProfile{
		ID:                 p.ID,
		Username:           models.NormalizeUsername(username),
		DisplayName:        p.DisplayName,
		Bio:                p.Bio,
		YoutubeChannelName: p.YoutubeChannelName,
		ProfilePictureURL:  storage.URLFor(s.store, p.ProfilePictureKey),
		ProfileBannerURL:   storage.URLFor(s.store, p.ProfileBannerKey),
		IsBankConnected:    p.PayoutConnected,
		Country:            p.CountryName(),
		NumberOfTips:       count,
		Tips:               tips,
	}
	if pricing, err := billing.ResolveCountryPricing(p.CountryName()); err == nil {
		view.Currency = pricing.Currency
		view.TubeTipValue = pricing.UnitTipValue
	}
	return view, nil
}

// ListTips pages through a profile's tips, newest first.
func (s *Service) ListTips(ctx context.Context, profileID, viewerID uint, limit, offset int) ([]models.Tip, error) {
	if limit < 1 || limit > MaxTipLimit {
		return nil, apperror.FieldValidation("limit", "limit must be between 1 and 50")
	}
	if offset < 0 {
		return nil, apperror.FieldValidation("offset", "offset must not be negative")
	}
	p, err := s.profiles.GetByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("Creator profile not found")
		}
		return nil, apperror.Internal(err)
	}
	tips, err := s.tips.ListByProfile(ctx, p.ID, viewerID != 0 && viewerID == p.AccountID, offset, limit)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if tips == nil {
		tips = []models.Tip{}
	}
	return tips, nil
}
