package invitation

import "time"

const (
	StatePending  = "pending"
	StateAccepted = "accepted"
	StateDeclined = "declined"
)

type Invitation struct {
	ID          int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	FormID      int64  `json:"form_id" gorm:"index;not null"`
	Email       string `json:"email" gorm:"size:255;not null;index"`
	FirstName   string `json:"first_name" gorm:"size:255"`
	LastName    string `json:"last_name" gorm:"size:255"`
	Affiliation string `json:"affiliation" gorm:"size:255"`
	State       string `json:"state" gorm:"size:20;not null;default:pending"`
	// Token is what an invitation link carries; accepting a submission with
	// it links the registration back here.
	Token          string    `json:"token" gorm:"size:36;uniqueIndex;not null"`
	SkipModeration bool      `json:"skip_moderation" gorm:"not null;default:false"`
	RegistrationID *int64    `json:"registration_id,omitempty" gorm:"index"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Invitation) TableName() string { return "invitations" }

type CreateInput struct {
	Email          string `json:"email"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Affiliation    string `json:"affiliation"`
	SkipModeration bool   `json:"skip_moderation"`
}

// SkippedRow reports one import row that was not turned into an invitation.
type SkippedRow struct {
	Row    int    `json:"row"`
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

type ImportResult struct {
	Created []Invitation `json:"created"`
	Skipped []SkippedRow `json:"skipped"`
}
