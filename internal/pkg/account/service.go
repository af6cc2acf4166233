package account

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tubtip/tubtip/app/models"
	"github.com/tubtip/tubtip/app/repository"
	"github.com/tubtip/tubtip/internal/pkg/apperror"
	"github.com/tubtip/tubtip/internal/pkg/auth"
	"github.com/tubtip/tubtip/internal/pkg/logger"
	"github.com/tubtip/tubtip/internal/pkg/shortener"
)

const invalidCredentials = "Incorrect email or password"

// RegisterInput is the payload for password registration.
type RegisterInput struct {
	Email           string `json:"email" form:"email" validate:"required,email,max=200"`
	Username        string `json:"username" form:"username" validate:"required,min=3,max=50,username"`
	Password        string `json:"password" form:"password" validate:"required,min=8,max=128"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password" validate:"omitempty,eqfield=Password"`
}

// Session is an authenticated account with a fresh token pair.
type Session struct {
	Account      *models.Account
	AccessToken  string
	RefreshToken string
}

// FederatedIdentity is what an external identity provider tells us about a user.
type FederatedIdentity struct {
	Provider models.AuthProvider
	Email    string
	Nickname string
}

type Service struct {
	accounts repository.AccountRepository
	issuer   *auth.TokenIssuer
	log      zerolog.Logger
}

func NewService(accounts repository.AccountRepository, issuer *auth.TokenIssuer) *Service {
	return &Service{
		accounts: accounts,
		issuer:   issuer,
		log:      logger.WithComponent("account"),
	}
}

// Register creates a password account. Email and username must both be unused.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Email = models.NormalizeEmail(in.Email)
	in.Username = models.NormalizeUsername(in.Username)
	if err := models.Validate.Struct(in); err != nil {
		return nil, apperror.FromValidator(err)
	}

	if taken, err := s.accounts.EmailExists(ctx, in.Email); err != nil {
		return nil, apperror.Internal(err)
	} else if taken {
		return nil, apperror.ConflictField("email", "Email already registered")
	}
	if taken, err := s.accounts.UsernameExists(ctx, in.Username); err != nil {
		return nil, apperror.Internal(err)
	} else if taken {
		return nil, apperror.ConflictField("username", "Username already taken")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	account := &models.Account{
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: &hash,
		AuthProvider: models.AuthProviderPassword,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// lost a race with a concurrent registration
			return nil, apperror.Conflict("Email or username already registered")
		}
		return nil, apperror.Internal(err)
	}

	s.log.Info().Uint("account_id", account.ID).Msg("account registered")
	return s.newSession(account)
}

// Login verifies credentials. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if account == nil || !account.HasPassword() || !auth.CheckPassword(password, *account.PasswordHash) {
		return nil, apperror.Unauthorized(invalidCredentials)
	}
	return s.newSession(account)
}

// Refresh exchanges a valid refresh token for a new token pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	claims, err := s.issuer.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, apperror.Unauthorized("Invalid refresh token")
	}
	id, err := claims.AccountID()
	if err != nil {
		return nil, apperror.Unauthorized("Invalid refresh token")
	}
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.Unauthorized("Invalid refresh token")
		}
		return nil, apperror.Internal(err)
	}
	return s.newSession(account)
}

// Current loads the account behind an authenticated request, with its profile.
func (s *Service) Current(ctx context.Context, accountID uint) (*models.Account, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("User not found")
		}
		return nil, apperror.Internal(err)
	}
	return account, nil
}

// GetByUsername is the public account lookup.
func (s *Service) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("Creator not found")
		}
		return nil, apperror.Internal(err)
	}
	return account, nil
}

// LoginFederated signs in an externally authenticated user, creating a
// password-less account on first sight.
func (s *Service) LoginFederated(ctx context.Context, id FederatedIdentity) (*Session, error) {
	email := models.NormalizeEmail(id.Email)
	if email == "" {
		return nil, apperror.FieldValidation("email", "identity provider did not return an email address")
	}

	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if account != nil {
		return s.newSession(account)
	}

	username, err := s.availableUsername(ctx, firstNonEmpty(id.Nickname, strings.SplitN(email, "@", 2)[0]))
	if err != nil {
		return nil, apperror.Internal(err)
	}
	account = &models.Account{
		Email:        email,
		Username:     username,
		AuthProvider: id.Provider,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, apperror.Conflict("Email or username already registered")
		}
		return nil, apperror.Internal(err)
	}
	s.log.Info().Uint("account_id", account.ID).Str("provider", string(id.Provider)).Msg("federated account created")
	return s.newSession(account)
}

func (s *Service) newSession(account *models.Account) (*Session, error) {
	access, err := s.issuer.IssueAccessToken(account.ID)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("issue access token: %w", err))
	}
	refresh, err := s.issuer.IssueRefreshToken(account.ID)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("issue refresh token: %w", err))
	}
	return &Session{Account: account, AccessToken: access, RefreshToken: refresh}, nil
}

var usernameStrip = regexp.MustCompile(`[^a-z0-9_.-]+`)

// availableUsername derives a free username from a hint.
func (s *Service) availableUsername(ctx context.Context, hint string) (string, error) {
	base := usernameStrip.ReplaceAllString(models.NormalizeUsername(hint), "")
	if len(base) > 40 {
		base = base[:40]
	}
	for len(base) < 3 {
		base += "x"
	}
	candidate := base
	for i := 0; i < 5; i++ {
		taken, err := s.accounts.UsernameExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		suffix, err := shortener.Slug(6)
		if err != nil {
			return "", err
		}
		candidate = base + "-" + suffix
	}
	return "", fmt.Errorf("no free username for %q", base)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
