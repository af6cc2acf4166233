package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tubtip/tubtip/app/models"
	"github.com/tubtip/tubtip/internal/pkg/apperror"
	"github.com/tubtip/tubtip/internal/pkg/profile"
	"github.com/tubtip/tubtip/internal/pkg/storage"
	"github.com/tubtip/tubtip/internal/pkg/upload"
	"github.com/tubtip/tubtip/internal/pkg/usercontext"
)

// ownProfile is the owner's view of their profile, with asset URLs.
func (h *Controller) ownProfile(p *models.Profile) fiber.Map {
	return fiber.Map{
		"id":                   p.ID,
		"display_name":         p.DisplayName,
		"bio":                  p.Bio,
		"youtube_channel_name": p.YoutubeChannelName,
		"profile_picture_url":  storage.URLFor(h.Profiles.Store(), p.ProfilePictureKey),
		"profile_banner_url":   storage.URLFor(h.Profiles.Store(), p.ProfileBannerKey),
		"is_bank_connected":    p.PayoutConnected,
		"country":              p.CountryName(),
		"created_at":           p.CreatedAt,
	}
}

// HandleCreateProfile accepts the multipart profile form.
func (h *Controller) HandleCreateProfile(c *fiber.Ctx) error {
	in := profile.CreateInput{
		DisplayName:        c.FormValue("display_name"),
		Bio:                c.FormValue("bio"),
		YoutubeChannelName: c.FormValue("youtube_channel_name"),
	}
	var err error
	if in.Picture, err = optionalFile(c, upload.RoleProfilePicture); err != nil {
		return err
	}
	if in.Banner, err = optionalFile(c, upload.RoleProfileBanner); err != nil {
		return err
	}

	p, err := h.Profiles.Create(c.UserContext(), usercontext.GetAccountID(c), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(h.ownProfile(p))
}

// HandleUpdateProfile applies a partial multipart update. Fields that are
// not submitted stay unchanged.
func (h *Controller) HandleUpdateProfile(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return apperror.InvalidPayload("Expected a multipart form", err)
	}
	in := profile.UpdateInput{
		DisplayName:        formValue(form, "display_name"),
		Bio:                formValue(form, "bio"),
		YoutubeChannelName: formValue(form, "youtube_channel_name"),
	}
	if files := form.File[upload.RoleProfilePicture]; len(files) > 0 {
		in.Picture = files[0]
	}
	if files := form.File[upload.RoleProfileBanner]; len(files) > 0 {
		in.Banner = files[0]
	}

	p, err := h.Profiles.Update(c.UserContext(), usercontext.GetAccountID(c), in)
	if err != nil {
		return err
	}
	return c.JSON(h.ownProfile(p))
}

// HandleGetProfileByUsername serves the public creator page.
func (h *Controller) HandleGetProfileByUsername(c *fiber.Ctx) error {
	view, err := h.Profiles.GetPublic(c.UserContext(), c.Params("username"), usercontext.GetAccountID(c))
	if err != nil {
		return err
	}
	return c.JSON(view)
}

// HandleListTips pages through a profile's tips.
func (h *Controller) HandleListTips(c *fiber.Ctx) error {
	profileID, err := paramID(c, "profile_id")
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit", profile.DefaultTipLimit)
	if err != nil {
		return err
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		return err
	}
	tips, err := h.Profiles.ListTips(c.UserContext(), profileID, usercontext.GetAccountID(c), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(tips)
}
