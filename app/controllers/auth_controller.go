package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tubtip/tubtip/internal/pkg/account"
	"github.com/tubtip/tubtip/internal/pkg/auth"
	"github.com/tubtip/tubtip/internal/pkg/storage"
	"github.com/tubtip/tubtip/internal/pkg/usercontext"
)

// LoginInput accepts "email" or, for OAuth2 password-form clients, "username".
type LoginInput struct {
	Email    string `json:"email" form:"email"`
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type RefreshInput struct {
	RefreshToken string `json:"refresh_token" form:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

func (h *Controller) writeSession(c *fiber.Ctx, s *account.Session) tokenResponse {
	h.Cookies.SetSession(c, s.AccessToken, s.RefreshToken)
	return tokenResponse{AccessToken: s.AccessToken, RefreshToken: s.RefreshToken, TokenType: "bearer"}
}

// HandleLogin verifies credentials and sets the session cookies.
func (h *Controller) HandleLogin(c *fiber.Ctx) error {
	var in LoginInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	email := in.Email
	if email == "" {
		email = in.Username
	}
	session, err := h.Accounts.Login(c.UserContext(), email, in.Password)
	if err != nil {
		return err
	}
	return c.JSON(h.writeSession(c, session))
}

// HandleRefresh takes the refresh token from the body or the cookie.
func (h *Controller) HandleRefresh(c *fiber.Ctx) error {
	var in RefreshInput
	if len(c.Body()) > 0 {
		if err := parseBody(c, &in); err != nil {
			return err
		}
	}
	if in.RefreshToken == "" {
		in.RefreshToken = c.Cookies(auth.RefreshCookieName)
	}
	session, err := h.Accounts.Refresh(c.UserContext(), in.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(h.writeSession(c, session))
}

func (h *Controller) HandleLogout(c *fiber.Ctx) error {
	h.Cookies.ClearSession(c)
	return c.JSON(fiber.Map{"status": "ok"})
}

// HandleRegister creates a password account and signs it in.
func (h *Controller) HandleRegister(c *fiber.Ctx) error {
	var in account.RegisterInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	session, err := h.Accounts.Register(c.UserContext(), in)
	if err != nil {
		return err
	}
	h.Cookies.SetSession(c, session.AccessToken, session.RefreshToken)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":       session.Account.ID,
		"email":    session.Account.Email,
		"username": session.Account.Username,
	})
}

// HandleMe describes the signed-in creator.
func (h *Controller) HandleMe(c *fiber.Ctx) error {
	acct, err := h.Accounts.Current(c.UserContext(), usercontext.GetAccountID(c))
	if err != nil {
		return err
	}
	resp := fiber.Map{
		"id":                  acct.ID,
		"email":               acct.Email,
		"username":            acct.Username,
		"auth_provider":       acct.AuthProvider,
		"has_profile":         acct.Profile != nil,
		"is_bank_connected":   false,
		"profile_picture_url": "",
		"avatar_url":          account.AvatarURL(acct.Email, 0),
	}
	if p := acct.Profile; p != nil {
		resp["is_bank_connected"] = p.PayoutConnected
		resp["profile_picture_url"] = storage.URLFor(h.Profiles.Store(), p.ProfilePictureKey)
		resp["display_name"] = p.DisplayName
	}
	return c.JSON(resp)
}
