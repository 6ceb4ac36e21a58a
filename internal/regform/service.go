package regform

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"regform-api/internal/fieldtypes"
	"regform-api/internal/logs"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

type RegFormService struct {
	DB   *gorm.DB
	Logs LogServicePort
}

var htmlNameRe = regexp.MustCompile(`[^a-z0-9]+`)

func (s *RegFormService) log(action, message string, formID int64, metadata any) {
	if s.Logs == nil {
		return
	}
	_ = s.Logs.Log(logs.SystemLog{
		Level:   "info",
		Service: "regform",
		Action:  action,
		Message: message,
		FormID:  &formID,
	}, metadata)
}

// ----------------------------------------------------------------------------
// Forms

func (s *RegFormService) CreateForm(eventID int64, title string) (*Form, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errors.New("title is required")
	}
	form := Form{EventID: eventID, Title: title, IsOpen: true, Currency: "EUR"}
	if err := s.DB.Create(&form).Error; err != nil {
		return nil, err
	}
	return &form, nil
}

// GetForm returns the full ordered structure: sections by position with their
// fields by position, disabled entities trailing in the 1000+ band.
func (s *RegFormService) GetForm(formID int64) (*FormView, error) {
	var form Form
	if err := s.DB.First(&form, formID).Error; err != nil {
		return nil, err
	}

	var sections []Section
	if err := s.DB.
		Where("form_id = ?", formID).
		Order("position asc").
		Find(&sections).Error; err != nil {
		return nil, err
	}

	sectionIDs := make([]int64, 0, len(sections))
	for _, sec := range sections {
		sectionIDs = append(sectionIDs, sec.ID)
	}

	var fields []Field
	if len(sectionIDs) > 0 {
		if err := s.DB.
			Where("section_id IN ?", sectionIDs).
			Order("position asc").
			Find(&fields).Error; err != nil {
			return nil, err
		}
	}

	bySection := map[int64][]Field{}
	for _, f := range fields {
		bySection[f.SectionID] = append(bySection[f.SectionID], f)
	}
	for i := range sections {
		sections[i].Fields = bySection[sections[i].ID]
		if sections[i].Fields == nil {
			sections[i].Fields = []Field{}
		}
	}

	return &FormView{Form: form, Sections: sections}, nil
}

// ----------------------------------------------------------------------------
// Sections

func (s *RegFormService) CreateSection(formID int64, input SectionInput) (*Section, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, errors.New("title is required")
	}
	if err := s.DB.First(&Form{}, formID).Error; err != nil {
		return nil, fmt.Errorf("form %d: %w", formID, err)
	}

	section := Section{
		FormID:         formID,
		Title:          strings.TrimSpace(input.Title),
		Description:    input.Description,
		Enabled:        true,
		IsManagerOnly:  input.IsManagerOnly,
		IsPersonalData: input.IsPersonalData,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var maxPos int
		row := tx.Model(&Section{}).
			Where("form_id = ? AND enabled = ?", formID, true).
			Select("COALESCE(MAX(position), 0)").
			Row()
		if err := row.Scan(&maxPos); err != nil {
			return err
		}
		section.Position = maxPos + 1
		return tx.Create(&section).Error
	})
	if err != nil {
		return nil, err
	}

	s.log("section.create", "section created", formID, section)
	section.Fields = []Field{}
	return &section, nil
}

func (s *RegFormService) UpdateSection(sectionID int64, input SectionInput) (*Section, error) {
	var section Section
	if err := s.DB.First(&section, sectionID).Error; err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, errors.New("title is required")
	}

	if err := s.DB.Model(&section).Updates(map[string]interface{}{
		"title":       strings.TrimSpace(input.Title),
		"description": input.Description,
	}).Error; err != nil {
		return nil, err
	}
	s.log("section.update", "section updated", section.FormID, section)
	return &section, nil
}

// DeleteSection removes the section and, as a cascading side effect, every
// field it contains. Conditions pointing at the deleted fields are cleared so
// dependents fail open.
func (s *RegFormService) DeleteSection(sectionID int64) error {
	var section Section
	if err := s.DB.First(&section, sectionID).Error; err != nil {
		return err
	}
	if section.IsPersonalData {
		return errors.New("the personal data section cannot be deleted")
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var fieldIDs []int64
		if err := tx.Model(&Field{}).
			Where("section_id = ?", sectionID).
			Pluck("id", &fieldIDs).Error; err != nil {
			return err
		}
		if len(fieldIDs) > 0 {
			if err := tx.Model(&Field{}).
				Where("show_if_field_id IN ?", fieldIDs).
				Updates(map[string]interface{}{
					"show_if_field_id": nil,
					"show_if_values":   nil,
				}).Error; err != nil {
				return err
			}
			if err := tx.Where("section_id = ?", sectionID).Delete(&Field{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Delete(&Section{}, sectionID).Error; err != nil {
			return err
		}
		return renumberSections(tx, section.FormID)
	})
	if err != nil {
		return err
	}
	s.log("section.delete", "section deleted", section.FormID, section)
	return nil
}

// ToggleSection flips enabled state. Band membership changes renumber every
// sibling, so the confirmed position map for the whole form is returned.
func (s *RegFormService) ToggleSection(sectionID int64, enable bool) (*ToggleResult, error) {
	var section Section
	if err := s.DB.First(&section, sectionID).Error; err != nil {
		return nil, err
	}
	if section.IsPersonalData && !enable {
		return nil, errors.New("the personal data section cannot be disabled")
	}

	var positions map[int64]int
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&section).Update("enabled", enable).Error; err != nil {
			return err
		}
		if err := renumberSections(tx, section.FormID); err != nil {
			return err
		}
		var err error
		positions, err = sectionPositions(tx, section.FormID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log("section.toggle", "section toggled", section.FormID, map[string]any{"id": sectionID, "enabled": enable})
	return &ToggleResult{ID: sectionID, Enabled: enable, Positions: positions}, nil
}

// MoveSection applies an optimistic reorder within the enabled band and
// persists the resulting positions. Callers roll back a rejected move by
// replaying it with the indices swapped.
func (s *RegFormService) MoveSection(sectionID int64, endPos int) (map[int64]int, error) {
	var section Section
	if err := s.DB.First(&section, sectionID).Error; err != nil {
		return nil, err
	}

	var positions map[int64]int
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var siblings []Section
		if err := tx.Where("form_id = ?", section.FormID).Find(&siblings).Error; err != nil {
			return err
		}
		entries := make([]bandEntry, len(siblings))
		for i, sec := range siblings {
			entries[i] = bandEntry{ID: sec.ID, Enabled: sec.Enabled, Position: sec.Position}
		}
		moved, err := moveEntry(entries, sectionID, endPos)
		if err != nil {
			return err
		}
		positions = moved
		return applyPositions(tx, &Section{}, moved)
	})
	if err != nil {
		return nil, err
	}
	s.log("section.move", "section moved", section.FormID, map[string]any{"id": sectionID, "end_pos": endPos})
	return positions, nil
}

// ----------------------------------------------------------------------------
// Fields

func (s *RegFormService) CreateField(sectionID int64, input FieldInput) (*Field, error) {
	var section Section
	if err := s.DB.First(&section, sectionID).Error; err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, errors.New("title is required")
	}
	if !fieldtypes.Known(input.InputType) {
		return nil, fmt.Errorf("unknown input type %q", input.InputType)
	}

	def := fieldtypes.Lookup(input.InputType)
	settings := normalizeChoiceIDs(input.Settings)
	if err := def.ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	if err := s.validateCondition(section.FormID, 0, input); err != nil {
		return nil, err
	}

	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return nil, err
	}

	field := Field{
		SectionID:      sectionID,
		InputType:      input.InputType,
		Title:          strings.TrimSpace(input.Title),
		Description:    input.Description,
		Enabled:        true,
		IsRequired:     input.IsRequired,
		Price:          input.Price,
		RetentionWeeks: input.RetentionWeeks,
		ShowIfFieldID:  input.ShowIfFieldID,
		ShowIfValues:   input.ShowIfValues,
		Settings:       settingsJSON,
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if !def.NoInput {
			name, err := s.uniqueHTMLName(tx, section.FormID, input.Title)
			if err != nil {
				return err
			}
			field.HTMLName = &name
		}
		var maxPos int
		row := tx.Model(&Field{}).
			Where("section_id = ? AND enabled = ?", sectionID, true).
			Select("COALESCE(MAX(position), 0)").
			Row()
		if err := row.Scan(&maxPos); err != nil {
			return err
		}
		field.Position = maxPos + 1
		return tx.Create(&field).Error
	})
	if err != nil {
		return nil, err
	}
	s.log("field.create", "field created", section.FormID, field)
	return &field, nil
}

func (s *RegFormService) UpdateField(fieldID int64, input FieldInput) (*Field, error) {
	var field Field
	if err := s.DB.First(&field, fieldID).Error; err != nil {
		return nil, err
	}
	if input.InputType != "" && input.InputType != field.InputType {
		return nil, errors.New("input type cannot be changed after creation")
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, errors.New("title is required")
	}

	var section Section
	if err := s.DB.First(&section, field.SectionID).Error; err != nil {
		return nil, err
	}

	def := fieldtypes.Lookup(field.InputType)
	settings := normalizeChoiceIDs(input.Settings)
	if err := def.ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	if err := s.validateCondition(section.FormID, fieldID, input); err != nil {
		return nil, err
	}

	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"title":           strings.TrimSpace(input.Title),
		"description":     input.Description,
		"is_required":     input.IsRequired,
		"price":           input.Price,
		"retention_weeks": input.RetentionWeeks,
		"settings":        settingsJSON,
	}
	if input.ShowIfFieldID != nil {
		updates["show_if_field_id"] = *input.ShowIfFieldID
		updates["show_if_values"] = pqArray(input.ShowIfValues)
	} else {
		updates["show_if_field_id"] = nil
		updates["show_if_values"] = nil
	}

	if err := s.DB.Model(&field).Updates(updates).Error; err != nil {
		return nil, err
	}
	if err := s.DB.First(&field, fieldID).Error; err != nil {
		return nil, err
	}
	s.log("field.update", "field updated", section.FormID, field)
	return &field, nil
}

// DeleteField clears show-if references pointing at the field before removing
// it, so dependents degrade to always-visible instead of dangling.
func (s *RegFormService) DeleteField(fieldID int64) error {
	var field Field
	if err := s.DB.First(&field, fieldID).Error; err != nil {
		return err
	}
	var section Section
	if err := s.DB.First(&section, field.SectionID).Error; err != nil {
		return err
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Field{}).
			Where("show_if_field_id = ?", fieldID).
			Updates(map[string]interface{}{
				"show_if_field_id": nil,
				"show_if_values":   nil,
			}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&Field{}, fieldID).Error; err != nil {
			return err
		}
		return renumberFields(tx, field.SectionID)
	})
	if err != nil {
		return err
	}
	s.log("field.delete", "field deleted", section.FormID, field)
	return nil
}

func (s *RegFormService) ToggleField(fieldID int64, enable bool) (*ToggleResult, error) {
	var field Field
	if err := s.DB.First(&field, fieldID).Error; err != nil {
		return nil, err
	}
	var section Section
	if err := s.DB.First(&section, field.SectionID).Error; err != nil {
		return nil, err
	}

	var positions map[int64]int
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&field).Update("enabled", enable).Error; err != nil {
			return err
		}
		if err := renumberFields(tx, field.SectionID); err != nil {
			return err
		}
		var err error
		positions, err = fieldPositions(tx, field.SectionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log("field.toggle", "field toggled", section.FormID, map[string]any{"id": fieldID, "enabled": enable})
	return &ToggleResult{ID: fieldID, Enabled: enable, Positions: positions}, nil
}

func (s *RegFormService) MoveField(fieldID int64, endPos int) (map[int64]int, error) {
	var field Field
	if err := s.DB.First(&field, fieldID).Error; err != nil {
		return nil, err
	}

	var positions map[int64]int
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var siblings []Field
		if err := tx.Where("section_id = ?", field.SectionID).Find(&siblings).Error; err != nil {
			return err
		}
		entries := make([]bandEntry, len(siblings))
		for i, f := range siblings {
			entries[i] = bandEntry{ID: f.ID, Enabled: f.Enabled, Position: f.Position}
		}
		moved, err := moveEntry(entries, fieldID, endPos)
		if err != nil {
			return err
		}
		positions = moved
		return applyPositions(tx, &Field{}, moved)
	})
	if err != nil {
		return nil, err
	}
	return positions, nil
}

// ApplySectionPositions merges a confirmed {id: position} map, the reconciling
// counterpart of the optimistic move.
func (s *RegFormService) ApplySectionPositions(positions map[int64]int) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		return applyPositions(tx, &Section{}, positions)
	})
}

func (s *RegFormService) ApplyFieldPositions(positions map[int64]int) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		return applyPositions(tx, &Field{}, positions)
	})
}

// ----------------------------------------------------------------------------
// helpers

func (s *RegFormService) validateCondition(formID, selfID int64, input FieldInput) error {
	if input.ShowIfFieldID == nil {
		return nil
	}
	if *input.ShowIfFieldID == selfID && selfID != 0 {
		return errors.New("a field cannot depend on itself")
	}
	if len(input.ShowIfValues) == 0 {
		return errors.New("show_if_values is required with show_if_field_id")
	}
	var controller Field
	if err := s.DB.First(&controller, *input.ShowIfFieldID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("condition field %d does not exist", *input.ShowIfFieldID)
		}
		return err
	}
	var section Section
	if err := s.DB.First(&section, controller.SectionID).Error; err != nil {
		return err
	}
	if section.FormID != formID {
		return errors.New("condition field belongs to another form")
	}
	return nil
}

func (s *RegFormService) uniqueHTMLName(tx *gorm.DB, formID int64, title string) (string, error) {
	base := htmlNameRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(title)), "_")
	base = strings.Trim(base, "_")
	if base == "" {
		base = "field"
	}

	name := base
	for i := 2; ; i++ {
		var count int64
		err := tx.Model(&Field{}).
			Joins("JOIN form_sections ON form_sections.id = form_fields.section_id").
			Where("form_sections.form_id = ? AND form_fields.html_name = ?", formID, name).
			Count(&count).Error
		if err != nil {
			return "", err
		}
		if count == 0 {
			return name, nil
		}
		name = fmt.Sprintf("%s_%d", base, i)
	}
}

// normalizeChoiceIDs assigns a uuid to every choice that has none yet,
// keeping existing ids (and with them stored selections) stable across
// settings updates.
func normalizeChoiceIDs(settings map[string]any) map[string]any {
	if settings == nil {
		return map[string]any{}
	}
	choices, ok := settings["choices"].([]any)
	if !ok {
		return settings
	}
	for _, raw := range choices {
		c, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if id, _ := c["id"].(string); id == "" {
			c["id"] = uuid.NewString()
		}
	}
	return settings
}

func renumberSections(tx *gorm.DB, formID int64) error {
	var sections []Section
	if err := tx.Where("form_id = ?", formID).Find(&sections).Error; err != nil {
		return err
	}
	entries := make([]bandEntry, len(sections))
	for i, sec := range sections {
		entries[i] = bandEntry{ID: sec.ID, Enabled: sec.Enabled, Position: sec.Position}
	}
	return applyPositions(tx, &Section{}, renumber(entries))
}

func renumberFields(tx *gorm.DB, sectionID int64) error {
	var fields []Field
	if err := tx.Where("section_id = ?", sectionID).Find(&fields).Error; err != nil {
		return err
	}
	entries := make([]bandEntry, len(fields))
	for i, f := range fields {
		entries[i] = bandEntry{ID: f.ID, Enabled: f.Enabled, Position: f.Position}
	}
	return applyPositions(tx, &Field{}, renumber(entries))
}

func applyPositions(tx *gorm.DB, model interface{}, positions map[int64]int) error {
	for id, pos := range positions {
		if err := tx.Model(model).
			Where("id = ?", id).
			UpdateColumn("position", pos).Error; err != nil {
			return err
		}
	}
	return nil
}

func sectionPositions(tx *gorm.DB, formID int64) (map[int64]int, error) {
	var sections []Section
	if err := tx.Where("form_id = ?", formID).Find(&sections).Error; err != nil {
		return nil, err
	}
	out := make(map[int64]int, len(sections))
	for _, sec := range sections {
		out[sec.ID] = sec.Position
	}
	return out, nil
}

func fieldPositions(tx *gorm.DB, sectionID int64) (map[int64]int, error) {
	var fields []Field
	if err := tx.Where("section_id = ?", sectionID).Find(&fields).Error; err != nil {
		return nil, err
	}
	out := make(map[int64]int, len(fields))
	for _, f := range fields {
		out[f.ID] = f.Position
	}
	return out, nil
}

func pqArray(values []string) interface{} {
	if len(values) == 0 {
		return nil
	}
	return pq.StringArray(values)
}
