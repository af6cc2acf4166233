package repository

import (
	"context"

	"github.com/tubtip/tubtip/app/models"
	"gorm.io/gorm"
)

// AccountRepository defines the interface for account-related database operations
type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id uint) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByUsername(ctx context.Context, username string) (*models.Account, error)
	// FindByEmail is the optional lookup: (nil, nil) when absent.
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	Delete(ctx context.Context, id uint) error
}

// ProfileRepository defines the interface for creator profile operations
type ProfileRepository interface {
	Create(ctx context.Context, profile *models.Profile) error
	GetByID(ctx context.Context, id uint) (*models.Profile, error)
	GetByAccountID(ctx context.Context, accountID uint) (*models.Profile, error)
	GetByUsername(ctx context.Context, username string) (*models.Profile, error)
	GetByPayoutAccountID(ctx context.Context, payoutAccountID string) (*models.Profile, error)
	ExistsForAccount(ctx context.Context, accountID uint) (bool, error)
	Update(ctx context.Context, profileID uint, patch ProfilePatch) (*models.Profile, error)
	MarkPayoutConnected(ctx context.Context, payoutAccountID string) (*models.Profile, error)
}

// TipRepository defines the interface for tip operations
type TipRepository interface {
	// CreateIfNotExists inserts the tip unless one with the same checkout
	// session id exists. created is false for a duplicate.
	CreateIfNotExists(ctx context.Context, tip *models.Tip) (created bool, err error)
	GetBySessionID(ctx context.Context, sessionID string) (*models.Tip, error)
	ListByProfile(ctx context.Context, profileID uint, includePrivate bool, offset, limit int) ([]models.Tip, error)
	CountByProfile(ctx context.Context, profileID uint, includePrivate bool) (int64, error)
}

// GenreRepository defines the interface for genre lookups
type GenreRepository interface {
	Create(ctx context.Context, genre *models.Genre) error
	GetByID(ctx context.Context, id uint) (*models.Genre, error)
	List(ctx context.Context) ([]models.Genre, error)
	Update(ctx context.Context, genre *models.Genre) error
	Delete(ctx context.Context, id uint) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	Account AccountRepository
	Profile ProfileRepository
	Tip     TipRepository
	Genre   GenreRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Account: NewAccountRepository(db),
		Profile: NewProfileRepository(db),
		Tip:     NewTipRepository(db),
		Genre:   NewGenreRepository(db),
	}
}
