package registration

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"regform-api/internal/engine"
	"regform-api/internal/fieldtypes"
	"regform-api/internal/logs"
	"regform-api/internal/regform"
	"regform-api/internal/util"

	"github.com/lib/pq"
	"github.com/xuri/excelize/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// html names that are accepted on submit but never stored as answers
var transientNames = []string{"agreement_accepted"}

// control flags forwarded even when unchanged
var alwaysIncluded = []string{"notify_user"}

// hooks for the blob store, swappable in tests
var (
	uploadObject = util.UploadBase64ToGCS
	deletePrefix = util.DeleteGCSPrefix
)

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

type LogServicePort interface {
	Log(log logs.SystemLog, payload interface{}) error
}

// InvitationAcceptor links a submitted token to its invitation. The
// invitation service implements it; nil means the form takes no invitations.
// Accept runs inside the submit transaction so a bad token rolls the whole
// registration back.
type InvitationAcceptor interface {
	Accept(tx *gorm.DB, token string, registrationID int64) (skipModeration bool, err error)
}

type RegistrationService struct {
	DB          *gorm.DB
	Logs        LogServicePort
	Invitations InvitationAcceptor
	Bucket      string
}

func (s *RegistrationService) log(action, message string, formID int64, metadata any) {
	if s.Logs == nil {
		return
	}
	_ = s.Logs.Log(logs.SystemLog{
		Level:   "info",
		Service: "registration",
		Action:  action,
		Message: message,
		FormID:  &formID,
	}, metadata)
}

// ----------------------------------------------------------------------------
// submit / update

// Submit runs the full intake pipeline: resolve the hidden-set, reset hidden
// values to their defaults, validate what remains, snapshot prices and
// persist. A non-empty FieldErrors map means the submission was rejected and
// nothing was written.
func (s *RegistrationService) Submit(formID int64, input SubmitInput) (*Registration, FieldErrors, error) {
	var form regform.Form
	if err := s.DB.First(&form, formID).Error; err != nil {
		return nil, nil, fmt.Errorf("form %d: %w", formID, err)
	}
	if !form.IsOpen {
		return nil, nil, errors.New("registration for this form is closed")
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if !emailRe.MatchString(email) {
		return nil, FieldErrors{"email": "a valid email address is required"}, nil
	}
	var dupes int64
	if err := s.DB.Model(&Registration{}).
		Where("form_id = ? AND email = ? AND state <> ?", formID, email, StateRejected).
		Count(&dupes).Error; err != nil {
		return nil, nil, err
	}
	if dupes > 0 {
		return nil, FieldErrors{"email": "this email address is already registered"}, nil
	}

	state, fields, err := s.formState(formID, input.Values)
	if err != nil {
		return nil, nil, err
	}
	hidden := engine.ResolveHidden(state)
	state.Values = engine.ResetHidden(state, hidden)

	if errs := engine.ValidateValues(state, hidden); len(errs) > 0 {
		return nil, FieldErrors(errs), nil
	}

	payload := engine.BuildPayload(state, hidden, transientNames)
	total := engine.TotalPrice(state, hidden)

	consent := input.ConsentToPublish
	if consent == "" {
		consent = ConsentNobody
	}
	if err := validConsent(consent); err != nil {
		return nil, nil, err
	}

	reg := Registration{
		FormID:           formID,
		UserID:           input.UserID,
		Email:            email,
		FirstName:        strings.TrimSpace(input.FirstName),
		LastName:         strings.TrimSpace(input.LastName),
		State:            initialState(form.Moderated, total),
		Price:            total,
		Currency:         form.Currency,
		ConsentToPublish: consent,
		InvitationToken:  input.InvitationToken,
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		var maxFriendly int
		row := tx.Model(&Registration{}).
			Where("form_id = ?", formID).
			Select("COALESCE(MAX(friendly_id), 0)").
			Row()
		if err := row.Scan(&maxFriendly); err != nil {
			return err
		}
		reg.FriendlyID = maxFriendly + 1
		if err := tx.Create(&reg).Error; err != nil {
			return err
		}
		items, err := buildItems(reg.ID, fields, state, payload)
		if err != nil {
			return err
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}
		reg.Items = items

		if input.InvitationToken != nil && s.Invitations != nil {
			skip, err := s.Invitations.Accept(tx, *input.InvitationToken, reg.ID)
			if err != nil {
				return fmt.Errorf("invitation: %w", err)
			}
			if skip && reg.State == StatePending {
				reg.State = initialState(false, total)
				if err := tx.Model(&reg).Update("state", reg.State).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.log("registration.submit", "registration created", formID, map[string]any{
		"registration_id": reg.ID, "friendly_id": reg.FriendlyID, "state": reg.State,
	})
	return &reg, nil, nil
}

// Update re-runs the pipeline against the stored answers and persists only
// the fields that actually changed. Payment-locked and purged fields silently
// keep their previous value.
func (s *RegistrationService) Update(registrationID int64, input UpdateInput) (*Registration, FieldErrors, error) {
	reg, _, err := s.Get(registrationID)
	if err != nil {
		return nil, nil, err
	}

	previous, err := itemValues(reg.Items)
	if err != nil {
		return nil, nil, err
	}

	merged := make(map[string]any, len(previous)+len(input.Values))
	for k, v := range previous {
		merged[k] = v
	}
	for k, v := range input.Values {
		merged[k] = v
	}

	state, fields, err := s.formState(reg.FormID, merged)
	if err != nil {
		return nil, nil, err
	}

	// locks are resolved against the stored values (what was paid for), and
	// locked values are restored before the hidden-set is resolved, so a
	// rejected edit of a locked controller cannot hide its dependents either
	purged := s.purgedFields(fields, reg)
	lockState := engine.FormState{Fields: state.Fields, Values: previous}
	locks := engine.ResolveLocks(lockState, reg.IsPaid, purged)
	for _, f := range state.Fields {
		lock := locks[f.ID]
		if f.HTMLName == "" || (!lock.PaymentLocked && !lock.Purged) {
			continue
		}
		if prev, had := previous[f.HTMLName]; had {
			state.Values[f.HTMLName] = prev
		} else {
			delete(state.Values, f.HTMLName)
		}
	}

	hidden := engine.ResolveHidden(state)
	state.Values = engine.ResetHidden(state, hidden)

	// locked and purged fields cannot be edited, so their state (including a
	// purged required answer that is now empty) must not fail the update
	if errs := engine.ValidateValues(state, hidden); len(errs) > 0 {
		for _, f := range state.Fields {
			lock := locks[f.ID]
			if lock.PaymentLocked || lock.Purged {
				delete(errs, f.HTMLName)
			}
		}
		if len(errs) > 0 {
			return nil, FieldErrors(errs), nil
		}
	}

	payload := engine.BuildPayload(state, hidden, transientNames)
	diff := engine.DiffPayload(payload, previous, alwaysIncluded)
	total := engine.TotalPrice(state, hidden)

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		byName := fieldsByHTMLName(fields)
		existing := map[string]RegistrationItem{}
		for _, item := range reg.Items {
			existing[item.HTMLName] = item
		}
		for name, value := range diff {
			field, ok := byName[name]
			if !ok {
				continue
			}
			raw, err := json.Marshal(value)
			if err != nil {
				return err
			}
			price := itemPrice(field, value)
			if item, ok := existing[name]; ok {
				updates := map[string]interface{}{"value": datatypes.JSON(raw), "price": price}
				if err := tx.Model(&RegistrationItem{}).Where("id = ?", item.ID).Updates(updates).Error; err != nil {
					return err
				}
			} else {
				item := RegistrationItem{
					RegistrationID: reg.ID,
					FieldID:        field.ID,
					HTMLName:       name,
					Value:          datatypes.JSON(raw),
					Price:          price,
				}
				if err := tx.Create(&item).Error; err != nil {
					return err
				}
			}
		}
		// answers for fields that became hidden are removed entirely
		for name, item := range existing {
			if _, kept := payload[name]; !kept && !item.Purged {
				if err := tx.Delete(&RegistrationItem{}, item.ID).Error; err != nil {
					return err
				}
			}
		}

		updates := map[string]interface{}{"price": total}
		if !reg.IsPaid {
			if total > 0 && reg.State == StateComplete {
				updates["state"] = StateUnpaid
			} else if total == 0 && reg.State == StateUnpaid {
				updates["state"] = StateComplete
			}
		}
		return tx.Model(&Registration{}).Where("id = ?", reg.ID).Updates(updates).Error
	})
	if err != nil {
		return nil, nil, err
	}

	s.log("registration.update", "registration updated", reg.FormID, map[string]any{
		"registration_id": reg.ID, "changed": keysOf(diff), "notify_user": input.NotifyUser,
	})
	return s.Get(registrationID)
}

// Get returns one registration with its stored answers. The second and third
// return values exist so Get can close an Update call chain.
func (s *RegistrationService) Get(registrationID int64) (*Registration, FieldErrors, error) {
	var reg Registration
	if err := s.DB.First(&reg, registrationID).Error; err != nil {
		return nil, nil, err
	}
	var items []RegistrationItem
	if err := s.DB.
		Where("registration_id = ?", registrationID).
		Order("html_name asc").
		Find(&items).Error; err != nil {
		return nil, nil, err
	}
	reg.Items = items
	return &reg, nil, nil
}

// ----------------------------------------------------------------------------
// email check

// ValidateEmail classifies an email address for the live check the form runs
// while the participant types. management toggles the wording used when a
// manager registers somebody else.
func (s *RegistrationService) ValidateEmail(formID int64, email string, currentUserID *int64, management bool) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailRe.MatchString(email) {
		return EmailInvalid, nil
	}

	var count int64
	if err := s.DB.Model(&Registration{}).
		Where("form_id = ? AND email = ? AND state <> ?", formID, email, StateRejected).
		Count(&count).Error; err != nil {
		return "", err
	}
	if count > 0 {
		return EmailAlreadyRegistered, nil
	}

	var owner User
	err := s.DB.Where("email = ?", email).First(&owner).Error
	ownerFound := err == nil
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	if currentUserID == nil {
		if management && !ownerFound {
			return EmailNoUserManagement, nil
		}
		if !ownerFound {
			return EmailNoUser, nil
		}
		return EmailOK, nil
	}

	if !ownerFound {
		return EmailNoUser, nil
	}
	if owner.ID != *currentUserID {
		if owner.Restricted {
			return EmailOtherUserRestricted, nil
		}
		return EmailOtherUser, nil
	}

	var byUser int64
	if err := s.DB.Model(&Registration{}).
		Where("form_id = ? AND user_id = ? AND state <> ?", formID, *currentUserID, StateRejected).
		Count(&byUser).Error; err != nil {
		return "", err
	}
	if byUser > 0 {
		return UserAlreadyRegistered, nil
	}
	return EmailOK, nil
}

// ----------------------------------------------------------------------------
// moderation, tags, consent, payment

func (s *RegistrationService) Approve(registrationID int64) (*Registration, error) {
	return s.setState(registrationID, StatePending, func(reg *Registration) string {
		return initialState(false, reg.Price)
	}, "registration.approve")
}

func (s *RegistrationService) Reject(registrationID int64) (*Registration, error) {
	return s.setState(registrationID, StatePending, func(*Registration) string {
		return StateRejected
	}, "registration.reject")
}

func (s *RegistrationService) Withdraw(registrationID int64) (*Registration, error) {
	var reg Registration
	if err := s.DB.First(&reg, registrationID).Error; err != nil {
		return nil, err
	}
	if reg.State == StateWithdrawn {
		return &reg, nil
	}
	if err := s.DB.Model(&reg).Update("state", StateWithdrawn).Error; err != nil {
		return nil, err
	}
	reg.State = StateWithdrawn
	s.log("registration.withdraw", "registration withdrawn", reg.FormID, map[string]any{"registration_id": reg.ID})
	return &reg, nil
}

func (s *RegistrationService) setState(registrationID int64, from string, to func(*Registration) string, action string) (*Registration, error) {
	var reg Registration
	if err := s.DB.First(&reg, registrationID).Error; err != nil {
		return nil, err
	}
	if reg.State != from {
		return nil, fmt.Errorf("registration is %s, not %s", reg.State, from)
	}
	next := to(&reg)
	if err := s.DB.Model(&reg).Update("state", next).Error; err != nil {
		return nil, err
	}
	reg.State = next
	s.log(action, "registration state changed", reg.FormID, map[string]any{
		"registration_id": reg.ID, "state": next,
	})
	return &reg, nil
}

func (s *RegistrationService) SetPaid(registrationID int64, paid bool) (*Registration, error) {
	var reg Registration
	if err := s.DB.First(&reg, registrationID).Error; err != nil {
		return nil, err
	}
	updates := map[string]interface{}{"is_paid": paid}
	if paid && reg.State == StateUnpaid {
		updates["state"] = StateComplete
	}
	if !paid && reg.State == StateComplete && reg.Price > 0 {
		updates["state"] = StateUnpaid
	}
	if err := s.DB.Model(&reg).Updates(updates).Error; err != nil {
		return nil, err
	}
	if err := s.DB.First(&reg, registrationID).Error; err != nil {
		return nil, err
	}
	s.log("registration.paid", "payment flag changed", reg.FormID, map[string]any{
		"registration_id": reg.ID, "is_paid": paid,
	})
	return &reg, nil
}

func (s *RegistrationService) AssignTags(registrationID int64, input TagInput) (*Registration, error) {
	var reg Registration
	if err := s.DB.First(&reg, registrationID).Error; err != nil {
		return nil, err
	}

	tags := map[string]bool{}
	for _, tag := range reg.Tags {
		tags[tag] = true
	}
	for _, tag := range input.Add {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags[tag] = true
		}
	}
	for _, tag := range input.Remove {
		delete(tags, strings.TrimSpace(tag))
	}

	out := make([]string, 0, len(tags))
	for tag := range tags {
		out = append(out, tag)
	}
	sort.Strings(out)

	if err := s.DB.Model(&reg).Update("tags", pqArray(out)).Error; err != nil {
		return nil, err
	}
	reg.Tags = pq.StringArray(out)
	return &reg, nil
}

func (s *RegistrationService) SetConsent(registrationID int64, consent string) (*Registration, error) {
	if err := validConsent(consent); err != nil {
		return nil, err
	}
	var reg Registration
	if err := s.DB.First(&reg, registrationID).Error; err != nil {
		return nil, err
	}
	if err := s.DB.Model(&reg).Update("consent_to_publish", consent).Error; err != nil {
		return nil, err
	}
	reg.ConsentToPublish = consent
	return &reg, nil
}

// ----------------------------------------------------------------------------
// uploads

func (s *RegistrationService) UploadFile(registrationID int64, input UploadInput) (*Upload, error) {
	var reg Registration
	if err := s.DB.First(&reg, registrationID).Error; err != nil {
		return nil, err
	}
	var field regform.Field
	if err := s.DB.First(&field, input.FieldID).Error; err != nil {
		return nil, err
	}
	if field.InputType != "file" && field.InputType != "picture" {
		return nil, fmt.Errorf("field %d does not take uploads", field.ID)
	}
	if input.Base64Data == "" {
		return nil, errors.New("no file data provided")
	}

	ext := util.ExtFromFilenameOrMime(input.Filename, input.MimeType)
	objectName := fmt.Sprintf("forms/%d/registrations/%d/field_%d/%s%s",
		reg.FormID, reg.ID, field.ID,
		util.SanitizePart(strings.TrimSuffix(input.Filename, ext)), ext)

	gsURL, size, err := uploadObject(input.Base64Data, s.Bucket, objectName, input.MimeType)
	if err != nil {
		return nil, err
	}

	upload := Upload{
		RegistrationID: reg.ID,
		FieldID:        field.ID,
		Filename:       input.Filename,
		ContentType:    input.MimeType,
		SizeBytes:      size,
		GCSURL:         gsURL,
	}
	if err := s.DB.Create(&upload).Error; err != nil {
		return nil, err
	}
	s.log("registration.upload", "file uploaded", reg.FormID, map[string]any{
		"registration_id": reg.ID, "field_id": field.ID, "size_bytes": size,
	})
	return &upload, nil
}

func (s *RegistrationService) GetUpload(uploadID int64) (*Upload, error) {
	var upload Upload
	if err := s.DB.First(&upload, uploadID).Error; err != nil {
		return nil, err
	}
	return &upload, nil
}

// ----------------------------------------------------------------------------
// retention purge

// PurgeExpired erases the stored answer of every field whose retention period
// has elapsed, drops the backing blobs and marks the items purged. Purged
// answers stay purged; re-running is a no-op for them.
func (s *RegistrationService) PurgeExpired(formID int64) (int, error) {
	fields, err := s.formFields(formID)
	if err != nil {
		return 0, err
	}

	var regs []Registration
	if err := s.DB.Where("form_id = ?", formID).Find(&regs).Error; err != nil {
		return 0, err
	}

	now := time.Now()
	purgedCount := 0
	for _, field := range fields {
		if field.RetentionWeeks == nil {
			continue
		}
		for _, reg := range regs {
			deadline := reg.CreatedAt.AddDate(0, 0, *field.RetentionWeeks*7)
			if now.Before(deadline) {
				continue
			}
			res := s.DB.Model(&RegistrationItem{}).
				Where("registration_id = ? AND field_id = ? AND purged = ?", reg.ID, field.ID, false).
				Updates(map[string]interface{}{"value": nil, "price": 0, "purged": true})
			if res.Error != nil {
				return purgedCount, res.Error
			}
			if res.RowsAffected == 0 {
				continue
			}
			purgedCount += int(res.RowsAffected)
			if s.Bucket != "" {
				prefix := fmt.Sprintf("forms/%d/registrations/%d/field_%d", formID, reg.ID, field.ID)
				if _, err := deletePrefix(s.Bucket, prefix); err != nil {
					return purgedCount, err
				}
			}
		}
	}
	if purgedCount > 0 {
		s.log("registration.purge", "expired answers purged", formID, map[string]any{"purged": purgedCount})
	}
	return purgedCount, nil
}

// ----------------------------------------------------------------------------
// listing and export

func (s *RegistrationService) List(formID int64, input ListInput) ([]Registration, error) {
	query := s.DB.Model(&Registration{}).Where("form_id = ?", formID)
	if input.State != nil && *input.State != "" {
		query = query.Where("state = ?", *input.State)
	}
	if input.Search != nil && *input.Search != "" {
		term := "%" + strings.ToLower(strings.TrimSpace(*input.Search)) + "%"
		query = query.Where(
			"LOWER(email) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?",
			term, term, term,
		)
	}

	var regs []Registration
	if err := query.Order("friendly_id asc").Find(&regs).Error; err != nil {
		return nil, err
	}

	if input.Tag != nil && *input.Tag != "" {
		filtered := regs[:0]
		for _, reg := range regs {
			for _, tag := range reg.Tags {
				if tag == *input.Tag {
					filtered = append(filtered, reg)
					break
				}
			}
		}
		regs = filtered
	}
	if regs == nil {
		regs = []Registration{}
	}
	return regs, nil
}

// exportRows flattens the form's registrations into a header row plus one row
// per registration, shared by the XLSX and CSV exports.
func (s *RegistrationService) exportRows(formID int64) ([][]string, error) {
	fields, err := s.formFields(formID)
	if err != nil {
		return nil, err
	}
	inputFields := make([]regform.Field, 0, len(fields))
	for _, f := range fields {
		if f.HTMLName != nil && f.Enabled {
			inputFields = append(inputFields, f)
		}
	}

	regs, err := s.List(formID, ListInput{})
	if err != nil {
		return nil, err
	}

	header := []string{"ID", "Email", "First Name", "Last Name", "State", "Paid", "Price", "Tags"}
	for _, f := range inputFields {
		header = append(header, f.Title)
	}
	rows := [][]string{header}

	for _, reg := range regs {
		var items []RegistrationItem
		if err := s.DB.Where("registration_id = ?", reg.ID).Find(&items).Error; err != nil {
			return nil, err
		}
		values, err := itemValues(items)
		if err != nil {
			return nil, err
		}

		row := []string{
			fmt.Sprintf("%d", reg.FriendlyID),
			reg.Email,
			reg.FirstName,
			reg.LastName,
			reg.State,
			fmt.Sprintf("%t", reg.IsPaid),
			fmt.Sprintf("%.2f %s", reg.Price, reg.Currency),
			strings.Join(reg.Tags, ", "),
		}
		for _, f := range inputFields {
			row = append(row, exportCell(f, values[*f.HTMLName]))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *RegistrationService) ExportXLSX(formID int64) ([]byte, error) {
	rows, err := s.exportRows(formID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Registrations"
	f.SetSheetName("Sheet1", sheet)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *RegistrationService) ExportCSV(formID int64) ([]byte, error) {
	rows, err := s.exportRows(formID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ----------------------------------------------------------------------------
// helpers

func (s *RegistrationService) formFields(formID int64) ([]regform.Field, error) {
	var sections []regform.Section
	if err := s.DB.
		Where("form_id = ? AND enabled = ?", formID, true).
		Order("position asc").
		Find(&sections).Error; err != nil {
		return nil, err
	}
	sectionIDs := make([]int64, 0, len(sections))
	for _, sec := range sections {
		sectionIDs = append(sectionIDs, sec.ID)
	}
	if len(sectionIDs) == 0 {
		return []regform.Field{}, nil
	}

	var fields []regform.Field
	if err := s.DB.
		Where("section_id IN ? AND enabled = ?", sectionIDs, true).
		Order("position asc").
		Find(&fields).Error; err != nil {
		return nil, err
	}
	return fields, nil
}

// formState snapshots the form's enabled fields plus the supplied values into
// the shape the resolvers evaluate.
func (s *RegistrationService) formState(formID int64, values map[string]any) (engine.FormState, []regform.Field, error) {
	fields, err := s.formFields(formID)
	if err != nil {
		return engine.FormState{}, nil, err
	}

	states := make([]engine.FieldState, 0, len(fields))
	for _, f := range fields {
		fs := engine.FieldState{
			ID:           f.ID,
			InputType:    f.InputType,
			IsRequired:   f.IsRequired,
			Price:        f.Price,
			ShowIfValues: f.ShowIfValues,
		}
		if f.HTMLName != nil {
			fs.HTMLName = *f.HTMLName
		}
		if f.ShowIfFieldID != nil {
			fs.ShowIfFieldID = *f.ShowIfFieldID
		}
		if len(f.Settings) > 0 {
			var settings map[string]any
			if err := json.Unmarshal(f.Settings, &settings); err != nil {
				return engine.FormState{}, nil, fmt.Errorf("field %d settings: %w", f.ID, err)
			}
			fs.Settings = settings
		}
		states = append(states, fs)
	}

	if values == nil {
		values = map[string]any{}
	}
	return engine.FormState{Fields: states, Values: values}, fields, nil
}

func (s *RegistrationService) purgedFields(fields []regform.Field, reg *Registration) map[int64]bool {
	purged := map[int64]bool{}
	var items []RegistrationItem
	if err := s.DB.
		Where("registration_id = ? AND purged = ?", reg.ID, true).
		Find(&items).Error; err == nil {
		for _, item := range items {
			purged[item.FieldID] = true
		}
	}
	now := time.Now()
	for _, f := range fields {
		if f.RetentionWeeks != nil && !now.Before(reg.CreatedAt.AddDate(0, 0, *f.RetentionWeeks*7)) {
			purged[f.ID] = true
		}
	}
	return purged
}

func buildItems(registrationID int64, fields []regform.Field, state engine.FormState, payload map[string]any) ([]RegistrationItem, error) {
	byName := fieldsByHTMLName(fields)
	names := keysOf(payload)
	sort.Strings(names)

	items := make([]RegistrationItem, 0, len(names))
	for _, name := range names {
		field, ok := byName[name]
		if !ok {
			continue
		}
		raw, err := json.Marshal(payload[name])
		if err != nil {
			return nil, err
		}
		items = append(items, RegistrationItem{
			RegistrationID: registrationID,
			FieldID:        field.ID,
			HTMLName:       name,
			Value:          datatypes.JSON(raw),
			Price:          itemPrice(field, payload[name]),
		})
	}
	return items, nil
}

func itemPrice(field regform.Field, value any) float64 {
	var settings map[string]any
	if len(field.Settings) > 0 {
		_ = json.Unmarshal(field.Settings, &settings)
	}
	return fieldtypes.Lookup(field.InputType).CalculatePrice(value, settings, field.Price)
}

func itemValues(items []RegistrationItem) (map[string]any, error) {
	out := make(map[string]any, len(items))
	for _, item := range items {
		if item.Purged || len(item.Value) == 0 {
			continue
		}
		var v any
		if err := json.Unmarshal(item.Value, &v); err != nil {
			return nil, fmt.Errorf("item %d: %w", item.ID, err)
		}
		out[item.HTMLName] = v
	}
	return out, nil
}

func fieldsByHTMLName(fields []regform.Field) map[string]regform.Field {
	out := make(map[string]regform.Field, len(fields))
	for _, f := range fields {
		if f.HTMLName != nil {
			out[*f.HTMLName] = f
		}
	}
	return out
}

// exportCell renders one stored answer for the spreadsheet exports: choice
// ids become captions, checkboxes become yes/no, everything else prints as
// stored.
func exportCell(field regform.Field, value any) string {
	if value == nil {
		return ""
	}
	var settings map[string]any
	if len(field.Settings) > 0 {
		_ = json.Unmarshal(field.Settings, &settings)
	}

	switch field.InputType {
	case "checkbox":
		if isTruthy(value) {
			return "yes"
		}
		return "no"
	case "single_choice", "multi_choice", "accommodation":
		ids := fieldtypes.Lookup(field.InputType).ExtractValues(value)
		captions := make([]string, 0, len(ids))
		for _, id := range ids {
			captions = append(captions, choiceCaption(settings, id))
		}
		return strings.Join(captions, "; ")
	case "number":
		if n, ok := value.(float64); ok && n == float64(int64(n)) {
			return fmt.Sprintf("%d", int64(n))
		}
	}
	return fmt.Sprintf("%v", value)
}

func choiceCaption(settings map[string]any, id string) string {
	choices, _ := settings["choices"].([]any)
	for _, raw := range choices {
		c, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if cid, _ := c["id"].(string); cid == id {
			if caption, _ := c["caption"].(string); caption != "" {
				return caption
			}
		}
	}
	return id
}

func isTruthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "1" || strings.EqualFold(t, "true") || strings.EqualFold(t, "yes")
	case float64:
		return t != 0
	}
	return false
}

func initialState(moderated bool, price float64) string {
	if moderated {
		return StatePending
	}
	if price > 0 {
		return StateUnpaid
	}
	return StateComplete
}

func validConsent(consent string) error {
	switch consent {
	case ConsentNobody, ConsentParticipants, ConsentEverybody:
		return nil
	}
	return fmt.Errorf("invalid consent value %q", consent)
}

func keysOf(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func pqArray(values []string) interface{} {
	if len(values) == 0 {
		return nil
	}
	return pq.StringArray(values)
}
