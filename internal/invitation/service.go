package invitation

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"net/smtp"
	"regexp"
	"strings"

	"regform-api/config"
	"regform-api/internal/logs"
	"regform-api/internal/registration"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

var sendMail = smtp.SendMail

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

type LogServicePort interface {
	Log(log logs.SystemLog, payload interface{}) error
}

type InvitationService struct {
	DB   *gorm.DB
	CFG  *config.Config
	Logs LogServicePort
}

var _ registration.InvitationAcceptor = (*InvitationService)(nil)

func (s *InvitationService) log(action, message string, formID int64, metadata any) {
	if s.Logs == nil {
		return
	}
	_ = s.Logs.Log(logs.SystemLog{
		Level:   "info",
		Service: "invitation",
		Action:  action,
		Message: message,
		FormID:  &formID,
	}, metadata)
}

// Create invites one person and sends them the invitation link.
func (s *InvitationService) Create(formID int64, input CreateInput) (*Invitation, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if !emailRe.MatchString(email) {
		return nil, fmt.Errorf("invalid email address %q", input.Email)
	}
	if reason, err := s.skipReason(formID, email); err != nil {
		return nil, err
	} else if reason != "" {
		return nil, errors.New(reason)
	}

	inv := Invitation{
		FormID:         formID,
		Email:          email,
		FirstName:      strings.TrimSpace(input.FirstName),
		LastName:       strings.TrimSpace(input.LastName),
		Affiliation:    strings.TrimSpace(input.Affiliation),
		State:          StatePending,
		Token:          uuid.NewString(),
		SkipModeration: input.SkipModeration,
	}
	if err := s.DB.Create(&inv).Error; err != nil {
		return nil, err
	}

	if err := s.sendInvitationEmail(&inv, false); err != nil {
		log.Printf("Error sending invitation email to %s: %v\n", inv.Email, err)
	}
	s.log("invitation.create", "invitation created", formID, map[string]any{
		"invitation_id": inv.ID, "email": inv.Email,
	})
	return &inv, nil
}

// ImportXLSX reads invitees from the first sheet of a workbook. Expected
// columns: first name, last name, affiliation, email.
func (s *InvitationService) ImportXLSX(formID int64, r io.Reader, skipModeration bool) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	return s.importRows(formID, rows, skipModeration)
}

// ImportCSV reads the same row shape from a csv file.
func (s *InvitationService) ImportCSV(formID int64, r io.Reader, skipModeration bool) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return s.importRows(formID, rows, skipModeration)
}

func (s *InvitationService) importRows(formID int64, rows [][]string, skipModeration bool) (*ImportResult, error) {
	result := &ImportResult{Created: []Invitation{}, Skipped: []SkippedRow{}}
	seen := map[string]bool{}

	for i, row := range rows {
		rowNum := i + 1
		if len(row) < 4 {
			if isHeaderOrBlank(row) {
				continue
			}
			result.Skipped = append(result.Skipped, SkippedRow{Row: rowNum, Reason: "row has fewer than 4 columns"})
			continue
		}

		first := strings.TrimSpace(row[0])
		last := strings.TrimSpace(row[1])
		affiliation := strings.TrimSpace(row[2])
		email := strings.ToLower(strings.TrimSpace(row[3]))

		if !emailRe.MatchString(email) {
			if isHeaderOrBlank(row) {
				continue
			}
			result.Skipped = append(result.Skipped, SkippedRow{Row: rowNum, Email: email, Reason: "invalid email address"})
			continue
		}
		if seen[email] {
			result.Skipped = append(result.Skipped, SkippedRow{Row: rowNum, Email: email, Reason: "duplicate row in file"})
			continue
		}
		seen[email] = true

		reason, err := s.skipReason(formID, email)
		if err != nil {
			return nil, err
		}
		if reason != "" {
			result.Skipped = append(result.Skipped, SkippedRow{Row: rowNum, Email: email, Reason: reason})
			continue
		}

		inv := Invitation{
			FormID:         formID,
			Email:          email,
			FirstName:      first,
			LastName:       last,
			Affiliation:    affiliation,
			State:          StatePending,
			Token:          uuid.NewString(),
			SkipModeration: skipModeration,
		}
		if err := s.DB.Create(&inv).Error; err != nil {
			return nil, err
		}
		if err := s.sendInvitationEmail(&inv, false); err != nil {
			log.Printf("Error sending invitation email to %s: %v\n", inv.Email, err)
		}
		result.Created = append(result.Created, inv)
	}

	s.log("invitation.import", "invitations imported", formID, map[string]any{
		"created": len(result.Created), "skipped": len(result.Skipped),
	})
	return result, nil
}

// skipReason returns the non-empty reason an email cannot be invited.
func (s *InvitationService) skipReason(formID int64, email string) (string, error) {
	var invited int64
	if err := s.DB.Model(&Invitation{}).
		Where("form_id = ? AND email = ? AND state <> ?", formID, email, StateDeclined).
		Count(&invited).Error; err != nil {
		return "", err
	}
	if invited > 0 {
		return "already invited", nil
	}

	var registered int64
	if err := s.DB.Model(&registration.Registration{}).
		Where("form_id = ? AND email = ? AND state <> ?", formID, email, registration.StateRejected).
		Count(&registered).Error; err != nil {
		return "", err
	}
	if registered > 0 {
		return "already registered", nil
	}
	return "", nil
}

func (s *InvitationService) List(formID int64) ([]Invitation, error) {
	var invitations []Invitation
	if err := s.DB.
		Where("form_id = ?", formID).
		Order("id asc").
		Find(&invitations).Error; err != nil {
		return nil, err
	}
	if invitations == nil {
		invitations = []Invitation{}
	}
	return invitations, nil
}

// RemindPending re-sends the invitation email to everyone still pending and
// returns how many reminders went out.
func (s *InvitationService) RemindPending(formID int64) (int, error) {
	var pending []Invitation
	if err := s.DB.
		Where("form_id = ? AND state = ?", formID, StatePending).
		Find(&pending).Error; err != nil {
		return 0, err
	}

	sent := 0
	for i := range pending {
		if err := s.sendInvitationEmail(&pending[i], true); err != nil {
			log.Printf("Error sending reminder to %s: %v\n", pending[i].Email, err)
			continue
		}
		sent++
	}
	s.log("invitation.remind", "reminders sent", formID, map[string]any{"sent": sent})
	return sent, nil
}

// Decline marks a pending invitation declined via its token link.
func (s *InvitationService) Decline(token string) (*Invitation, error) {
	var inv Invitation
	if err := s.DB.Where("token = ?", token).First(&inv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("invitation not found")
		}
		return nil, err
	}
	if inv.State != StatePending {
		return nil, fmt.Errorf("invitation is already %s", inv.State)
	}
	if err := s.DB.Model(&inv).Update("state", StateDeclined).Error; err != nil {
		return nil, err
	}
	inv.State = StateDeclined
	s.log("invitation.decline", "invitation declined", inv.FormID, map[string]any{"invitation_id": inv.ID})
	return &inv, nil
}

func (s *InvitationService) Delete(invitationID int64) error {
	var inv Invitation
	if err := s.DB.First(&inv, invitationID).Error; err != nil {
		return err
	}
	if err := s.DB.Delete(&Invitation{}, invitationID).Error; err != nil {
		return err
	}
	s.log("invitation.delete", "invitation deleted", inv.FormID, map[string]any{"invitation_id": inv.ID})
	return nil
}

// Accept links a submitted registration to its invitation and reports
// whether moderation is skipped for it. Called by the registration service
// inside its submit transaction, so a bad token rolls the registration back.
func (s *InvitationService) Accept(tx *gorm.DB, token string, registrationID int64) (bool, error) {
	if tx == nil {
		tx = s.DB
	}
	var inv Invitation
	if err := tx.Where("token = ?", token).First(&inv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, errors.New("invitation not found")
		}
		return false, err
	}
	if inv.State == StateAccepted {
		return false, errors.New("invitation was already used")
	}

	if err := tx.Model(&inv).Updates(map[string]interface{}{
		"state":           StateAccepted,
		"registration_id": registrationID,
	}).Error; err != nil {
		return false, err
	}
	s.log("invitation.accept", "invitation accepted", inv.FormID, map[string]any{
		"invitation_id": inv.ID, "registration_id": registrationID,
	})
	return inv.SkipModeration, nil
}

func (s *InvitationService) sendInvitationEmail(inv *Invitation, reminder bool) error {
	if s.CFG == nil || s.CFG.SMTPHost == "" {
		return nil
	}

	from := s.CFG.SMTPSender
	if from == "" {
		from = s.CFG.SMTPUser
	}
	to := []string{inv.Email}
	link := fmt.Sprintf("%s/forms/%d/register?invitation=%s", s.CFG.BaseURL, inv.FormID, inv.Token)

	subject := "You are invited to register"
	if reminder {
		subject = "Reminder: you are invited to register"
	}
	body := fmt.Sprintf(
		"Dear %s %s,\n\n"+
			"You have been invited to register. Use the link below:\n\n"+
			"%s\n\n"+
			"If you do not wish to attend you can decline from the same page.\n\n"+
			"Thank you.",
		inv.FirstName, inv.LastName, link,
	)

	message := []byte(fmt.Sprintf(
		"To: %s\r\n"+
			"Subject: %s\r\n"+
			"\r\n"+
			"%s",
		inv.Email,
		subject,
		body,
	))

	auth := smtp.PlainAuth("", s.CFG.SMTPUser, s.CFG.SMTPPass, s.CFG.SMTPHost)
	return sendMail(s.CFG.SMTPHost+":"+s.CFG.SMTPPort, auth, from, to, message)
}

func isHeaderOrBlank(row []string) bool {
	joined := strings.ToLower(strings.Join(row, " "))
	if strings.TrimSpace(joined) == "" {
		return true
	}
	return strings.Contains(joined, "email") && strings.Contains(joined, "name")
}
