package registration

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// Registration lifecycle states.
const (
	StateComplete  = "complete"
	StatePending   = "pending"
	StateRejected  = "rejected"
	StateWithdrawn = "withdrawn"
	StateUnpaid    = "unpaid"
)

// Who a participant agreed to be listed for.
const (
	ConsentNobody       = "nobody"
	ConsentParticipants = "participants"
	ConsentEverybody    = "everybody"
)

type Registration struct {
	ID        int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	FormID    int64  `json:"form_id" gorm:"index;not null"`
	UserID    *int64 `json:"user_id,omitempty" gorm:"index"`
	Email     string `json:"email" gorm:"size:255;not null;index"`
	FirstName string `json:"first_name" gorm:"size:255"`
	LastName  string `json:"last_name" gorm:"size:255"`
	// FriendlyID is the human-facing sequential number, unique per form.
	FriendlyID       int            `json:"friendly_id" gorm:"not null;index"`
	State            string         `json:"state" gorm:"size:20;not null"`
	IsPaid           bool           `json:"is_paid" gorm:"not null;default:false"`
	Price            float64        `json:"price" gorm:"not null;default:0"`
	Currency         string         `json:"currency" gorm:"size:3;not null"`
	Tags             pq.StringArray `json:"tags" gorm:"type:text[]"`
	ConsentToPublish string         `json:"consent_to_publish" gorm:"size:20;not null;default:nobody"`
	InvitationToken  *string        `json:"invitation_token,omitempty" gorm:"size:36;index"`
	CreatedAt        time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time      `json:"updated_at" gorm:"autoUpdateTime"`

	Items []RegistrationItem `json:"items,omitempty" gorm:"-"`
}

func (Registration) TableName() string { return "registrations" }

// RegistrationItem stores one field's submitted value together with the price
// that value carried at submission time. Prices are snapshotted so later
// settings edits never change what a participant owes.
type RegistrationItem struct {
	ID             int64          `json:"id" gorm:"primaryKey;autoIncrement"`
	RegistrationID int64          `json:"registration_id" gorm:"index;not null"`
	FieldID        int64          `json:"field_id" gorm:"index;not null"`
	HTMLName       string         `json:"html_name" gorm:"size:255;not null"`
	Value          datatypes.JSON `json:"value" gorm:"type:jsonb"`
	Price          float64        `json:"price" gorm:"not null;default:0"`
	Purged         bool           `json:"purged" gorm:"not null;default:false"`
	CreatedAt      time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

func (RegistrationItem) TableName() string { return "registration_items" }

// Upload is a file or picture stored for a field answer. The blob itself
// lives in GCS; only the metadata and the gs:// URL are kept here.
type Upload struct {
	ID             int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	RegistrationID int64     `json:"registration_id" gorm:"index;not null"`
	FieldID        int64     `json:"field_id" gorm:"index;not null"`
	Filename       string    `json:"filename" gorm:"size:500;not null"`
	ContentType    string    `json:"content_type" gorm:"size:100"`
	SizeBytes      int64     `json:"size_bytes"`
	GCSURL         string    `json:"gcs_url" gorm:"size:1000;not null"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (Upload) TableName() string { return "registration_uploads" }

// User is the directory of known accounts the email check classifies against.
type User struct {
	ID         int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	Email      string `json:"email" gorm:"size:255;uniqueIndex;not null"`
	FirstName  string `json:"first_name" gorm:"size:255"`
	LastName   string `json:"last_name" gorm:"size:255"`
	Restricted bool   `json:"restricted" gorm:"not null;default:false"`
}

func (User) TableName() string { return "users" }

type SubmitInput struct {
	Email            string         `json:"email"`
	FirstName        string         `json:"first_name"`
	LastName         string         `json:"last_name"`
	UserID           *int64         `json:"user_id"`
	Values           map[string]any `json:"values"`
	ConsentToPublish string         `json:"consent_to_publish"`
	InvitationToken  *string        `json:"invitation_token"`
}

type UpdateInput struct {
	Values     map[string]any `json:"values"`
	NotifyUser bool           `json:"notify_user"`
}

type UploadInput struct {
	FieldID    int64  `json:"field_id"`
	Filename   string `json:"filename"`
	MimeType   string `json:"mime_type"`
	Base64Data string `json:"base64_data"`
}

type TagInput struct {
	Add    []string `json:"add"`
	Remove []string `json:"remove"`
}

type ListInput struct {
	State  *string `json:"state"`
	Search *string `json:"search"`
	Tag    *string `json:"tag"`
}

// Email validation classifications returned to the form client while the
// participant types.
const (
	EmailOK                  = "ok"
	EmailAlreadyRegistered   = "email-already-registered"
	UserAlreadyRegistered    = "user-already-registered"
	EmailNoUser              = "email-no-user"
	EmailOtherUser           = "email-other-user"
	EmailOtherUserRestricted = "email-other-user-restricted"
	EmailNoUserManagement    = "no-user"
	EmailInvalid             = "email-invalid"
)

// FieldErrors maps html names to their validation message. A non-empty map
// means the submission was rejected as a whole.
type FieldErrors map[string]string
