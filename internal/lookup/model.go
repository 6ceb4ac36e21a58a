package lookup

import (
	"time"
)

type Country struct {
	ID        int       `gorm:"primaryKey;autoIncrement" json:"id"`
	Code      string    `gorm:"size:2;uniqueIndex;not null;column:code" json:"code"`
	Name      string    `gorm:"size:255;not null;column:name" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Country) TableName() string {
	return "countries"
}
