package models

// Genre is a content category lookup value.
type Genre struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;type:varchar(100);not null" json:"name" validate:"required,min=1,max=100"`
}

func (Genre) TableName() string {
	return "genres"
}
