package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tubtip/tubtip/internal/pkg/config"
)

// ErrInvalidToken covers every verification failure: bad signature, wrong
// algorithm, malformed input and expiry.
var ErrInvalidToken = errors.New("invalid token")

type TokenKind string

const (
	AccessToken  TokenKind = "access"
	RefreshToken TokenKind = "refresh"
)

// Claims carries the account id in the subject.
type Claims struct {
	jwt.RegisteredClaims
	Kind TokenKind `json:"typ"`
}

// AccountID parses the subject back into an account id.
func (c *Claims) AccountID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return uint(id), nil
}

// TokenIssuer signs and verifies access and refresh tokens with separate secrets.
type TokenIssuer struct {
	method        jwt.SigningMethod
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewTokenIssuer(cfg config.JWTConfig) *TokenIssuer {
	method := jwt.GetSigningMethod(cfg.Algorithm)
	if method == nil {
		method = jwt.SigningMethodHS256
	}
	return &TokenIssuer{
		method:        method,
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		now:           time.Now,
	}
}

// WithClock replaces the time source; used by tests.
func (t *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	t.now = now
	return t
}

func (t *TokenIssuer) AccessTTL() time.Duration  { return t.accessTTL }
func (t *TokenIssuer) RefreshTTL() time.Duration { return t.refreshTTL }

func (t *TokenIssuer) IssueAccessToken(accountID uint) (string, error) {
	return t.issue(accountID, AccessToken, t.accessSecret, t.accessTTL)
}

func (t *TokenIssuer) IssueRefreshToken(accountID uint) (string, error) {
	return t.issue(accountID, RefreshToken, t.refreshSecret, t.refreshTTL)
}

func (t *TokenIssuer) VerifyAccessToken(token string) (*Claims, error) {
	return t.verify(token, AccessToken, t.accessSecret)
}

func (t *TokenIssuer) VerifyRefreshToken(token string) (*Claims, error) {
	return t.verify(token, RefreshToken, t.refreshSecret)
}

func (t *TokenIssuer) issue(accountID uint, kind TokenKind, secret []byte, ttl time.Duration) (string, error) {
	now := t.now()
	token := jwt.NewWithClaims(t.method, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(accountID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Kind: kind,
	})
	return token.SignedString(secret)
}

func (t *TokenIssuer) verify(raw string, kind TokenKind, secret []byte) (*Claims, error) {
	if raw == "" {
		return nil, ErrInvalidToken
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{t.method.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(0),
	)
	if err != nil || !token.Valid || claims.Kind != kind || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
