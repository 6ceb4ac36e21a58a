package regform

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// Position bands: enabled items are numbered from 1 upward, disabled items
// from 1000 upward. The two bands never collide, so reordering within one
// band cannot disturb the other. The band values are part of the wire
// contract with the clients and must not change.
const DisabledBandStart = 1000

type Form struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	EventID   int64     `json:"event_id" gorm:"index;not null"`
	Title     string    `json:"title" gorm:"type:text;not null"`
	IsOpen    bool      `json:"is_open" gorm:"not null;default:true"`
	Moderated bool      `json:"moderated" gorm:"not null;default:false"`
	Currency  string    `json:"currency" gorm:"size:3;not null;default:EUR"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Form) TableName() string { return "forms" }

type Section struct {
	ID             int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	FormID         int64     `json:"form_id" gorm:"index;not null"`
	Title          string    `json:"title" gorm:"type:text;not null"`
	Description    string    `json:"description" gorm:"type:text"`
	Position       int       `json:"position" gorm:"not null"`
	Enabled        bool      `json:"enabled" gorm:"not null;default:true"`
	IsPersonalData bool      `json:"is_personal_data" gorm:"not null;default:false"`
	IsManagerOnly  bool      `json:"is_manager_only" gorm:"not null;default:false"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Fields []Field `json:"fields,omitempty" gorm:"-"`
}

func (Section) TableName() string { return "form_sections" }

type Field struct {
	ID          int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	SectionID   int64  `json:"section_id" gorm:"index;not null"`
	InputType   string `json:"input_type" gorm:"size:50;not null"`
	Title       string `json:"title" gorm:"type:text;not null"`
	Description string `json:"description" gorm:"type:text"`
	// HTMLName keys the field's value in submissions; nil for label items.
	HTMLName       *string        `json:"html_name,omitempty" gorm:"size:255;index"`
	Position       int            `json:"position" gorm:"not null"`
	Enabled        bool           `json:"enabled" gorm:"not null;default:true"`
	IsRequired     bool           `json:"is_required" gorm:"not null;default:false"`
	Price          float64        `json:"price" gorm:"not null;default:0"`
	RetentionWeeks *int           `json:"retention_weeks,omitempty"`
	ShowIfFieldID  *int64         `json:"show_if_field_id,omitempty" gorm:"index"`
	ShowIfValues   pq.StringArray `json:"show_if_values,omitempty" gorm:"type:text[]"`
	Settings       datatypes.JSON `json:"settings" gorm:"type:jsonb"`
	CreatedAt      time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Field) TableName() string { return "form_fields" }

type SectionInput struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	IsManagerOnly  bool   `json:"is_manager_only"`
	IsPersonalData bool   `json:"is_personal_data"`
}

type FieldInput struct {
	InputType      string         `json:"input_type"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	IsRequired     bool           `json:"is_required"`
	Price          float64        `json:"price"`
	RetentionWeeks *int           `json:"retention_weeks"`
	ShowIfFieldID  *int64         `json:"show_if_field_id"`
	ShowIfValues   []string       `json:"show_if_values"`
	Settings       map[string]any `json:"settings"`
}

type MoveInput struct {
	EndPos int `json:"end_pos"`
}

type ToggleResult struct {
	ID        int64         `json:"id"`
	Enabled   bool          `json:"enabled"`
	Positions map[int64]int `json:"positions"`
}

// FormView is the full ordered structure handed to form renderers: enabled
// entities first by position, disabled trailing in their own band.
type FormView struct {
	Form     Form      `json:"form"`
	Sections []Section `json:"sections"`
}
