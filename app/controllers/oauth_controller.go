package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/markbates/goth"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/tubtip/tubtip/app/models"
	"github.com/tubtip/tubtip/internal/pkg/account"
	"github.com/tubtip/tubtip/internal/pkg/apperror"
	"github.com/tubtip/tubtip/internal/pkg/oauth"
)

var providerKinds = map[string]models.AuthProvider{
	oauth.ProviderGoogle: models.AuthProviderGoogle,
}

func enabledProvider(c *fiber.Ctx) (models.AuthProvider, error) {
	name := c.Params("provider")
	kind, ok := providerKinds[name]
	if !ok || !oauth.Enabled(name) {
		return "", apperror.NotFound("Unknown login provider")
	}
	return kind, nil
}

// HandleOAuthBegin redirects to the identity provider.
func (h *Controller) HandleOAuthBegin(c *fiber.Ctx) error {
	if _, err := enabledProvider(c); err != nil {
		return err
	}
	return gothfiber.BeginAuthHandler(c)
}

// HandleOAuthCallback completes the provider flow, signs the user in and
// sends the browser back to the frontend.
func (h *Controller) HandleOAuthCallback(c *fiber.Ctx) error {
	kind, err := enabledProvider(c)
	if err != nil {
		return err
	}
	u, err := gothfiber.CompleteUserAuth(c)
	if err != nil {
		return apperror.Unauthorized("Login with provider failed")
	}
	return h.finishFederatedLogin(c, kind, u)
}

func (h *Controller) finishFederatedLogin(c *fiber.Ctx, kind models.AuthProvider, u goth.User) error {
	session, err := h.Accounts.LoginFederated(c.UserContext(), account.FederatedIdentity{
		Provider: kind,
		Email:    u.Email,
		Nickname: firstNonEmpty(u.NickName, u.Name),
	})
	if err != nil {
		return err
	}
	tokens := h.writeSession(c, session)
	h.log.Info().Uint("account_id", session.Account.ID).Str("provider", u.Provider).Msg("federated login")
	if h.FrontendURL == "" {
		return c.JSON(tokens)
	}
	return c.Redirect(h.FrontendURL, fiber.StatusSeeOther)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
