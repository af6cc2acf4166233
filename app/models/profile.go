package models

import "time"

// Profile is the public creator page. Currency, tip value and asset URLs are
// derived from the stored fields and never persisted.
type Profile struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	AccountID          uint      `gorm:"uniqueIndex;not null" json:"account_id"`
	DisplayName        string    `gorm:"type:varchar(100);not null" json:"display_name" validate:"required,min=1,max=100"`
	Bio                string    `gorm:"type:text" json:"bio" validate:"max=1000"`
	YoutubeChannelName string    `gorm:"type:varchar(100)" json:"youtube_channel_name" validate:"max=100"`
	ProfilePictureKey  *string   `gorm:"type:varchar(255)" json:"-"`
	ProfileBannerKey   *string   `gorm:"type:varchar(255)" json:"-"`
	PayoutAccountID    *string   `gorm:"type:varchar(255);index" json:"-"`
	PayoutConnected    bool      `gorm:"not null;default:false" json:"is_bank_connected"`
	Country            *string   `gorm:"type:varchar(50)" json:"country,omitempty"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	Tips               []Tip     `gorm:"foreignKey:ProfileID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Profile) TableName() string {
	return "profiles"
}

func (p *Profile) Validate() error {
	return Validate.Struct(p)
}

// CountryName returns the stored country or "" when unset.
func (p *Profile) CountryName() string {
	if p.Country == nil {
		return ""
	}
	return *p.Country
}

// YoutubeURL is the channel page used as the payout account business URL.
func (p *Profile) YoutubeURL() string {
	if p.YoutubeChannelName == "" {
		return ""
	}
	return "https://www.youtube.com/@" + p.YoutubeChannelName
}
