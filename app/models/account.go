package models

import (
	"strings"
	"time"
)

type AuthProvider string

const (
	AuthProviderPassword AuthProvider = "password"
	AuthProviderGoogle   AuthProvider = "google"
)

// Account is a creator's login identity. PasswordHash is nil for accounts
// created through a federated provider.
type Account struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	Email        string       `gorm:"uniqueIndex;type:varchar(200);not null" json:"email" validate:"required,email,max=200"`
	Username     string       `gorm:"uniqueIndex;type:varchar(50);not null" json:"username" validate:"required,min=3,max=50,username"`
	PasswordHash *string      `gorm:"type:varchar(255)" json:"-"`
	AuthProvider AuthProvider `gorm:"type:varchar(20);not null;default:'password'" json:"auth_provider" validate:"oneof=password google"`
	Profile      *Profile     `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE" json:"profile,omitempty"`
	CreatedAt    time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Account) TableName() string {
	return "accounts"
}

func (a *Account) Validate() error {
	return Validate.Struct(a)
}

// HasPassword reports whether password login is possible for the account.
func (a *Account) HasPassword() bool {
	return a.PasswordHash != nil && *a.PasswordHash != ""
}

// NormalizeEmail trims and lower-cases an email for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeUsername trims and lower-cases a username for storage and lookup.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
