package models

import "time"

// Tip is a completed one-off payment to a profile. CheckoutSessionID is the
// idempotency key for webhook reconciliation.
type Tip struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	ProfileID         uint      `gorm:"index:idx_tips_profile_created,priority:1;not null" json:"profile_id"`
	Amount            int64     `gorm:"not null" json:"amount"`
	Currency          string    `gorm:"type:varchar(3);not null" json:"currency"`
	Name              *string   `gorm:"type:varchar(100)" json:"name"`
	Message           *string   `gorm:"type:text" json:"message"`
	IsPrivate         bool      `gorm:"not null;default:false" json:"private"`
	CheckoutSessionID string    `gorm:"uniqueIndex;type:varchar(255);not null" json:"-"`
	CreatedAt         time.Time `gorm:"index:idx_tips_profile_created,priority:2;autoCreateTime" json:"created_at"`
}

func (Tip) TableName() string {
	return "tips"
}
