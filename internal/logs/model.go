package logs

import (
	"time"
)

type SystemLog struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Level     string    `gorm:"size:20;not null" json:"level"`
	Service   string    `gorm:"size:100;not null" json:"service"`
	Action    string    `gorm:"size:255;not null" json:"action"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	EventID   *int64    `gorm:"index" json:"event_id,omitempty"`
	FormID    *int64    `gorm:"index" json:"form_id,omitempty"`
	Metadata  *string   `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (SystemLog) TableName() string { return "logs" }

type LogFilterInput struct {
	Level   *string `json:"level"`
	Service *string `json:"service"`
	Action  *string `json:"action"`
	EventID *int64  `json:"event_id"`
	FormID  *int64  `json:"form_id"`

	StartDate *string `json:"start_date"` // "YYYY-MM-DD"
	EndDate   *string `json:"end_date"`   // "YYYY-MM-DD"

	Search   *string `json:"search"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
}

type AggItem struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

type LogAggregates struct {
	ByService []AggItem `json:"by_service"`
	ByAction  []AggItem `json:"by_action"`
}
