package regform

import "regform-api/internal/logs"

type RegFormServicePort interface {
	CreateForm(eventID int64, title string) (*Form, error)
	GetForm(formID int64) (*FormView, error)

	CreateSection(formID int64, input SectionInput) (*Section, error)
	UpdateSection(sectionID int64, input SectionInput) (*Section, error)
	DeleteSection(sectionID int64) error
	ToggleSection(sectionID int64, enable bool) (*ToggleResult, error)
	MoveSection(sectionID int64, endPos int) (map[int64]int, error)

	CreateField(sectionID int64, input FieldInput) (*Field, error)
	UpdateField(fieldID int64, input FieldInput) (*Field, error)
	DeleteField(fieldID int64) error
	ToggleField(fieldID int64, enable bool) (*ToggleResult, error)
	MoveField(fieldID int64, endPos int) (map[int64]int, error)

	ApplySectionPositions(positions map[int64]int) error
	ApplyFieldPositions(positions map[int64]int) error
}

type LogServicePort interface {
	Log(log logs.SystemLog, payload interface{}) error
}

var _ RegFormServicePort = (*RegFormService)(nil)
var _ LogServicePort = (*logs.LogService)(nil)
