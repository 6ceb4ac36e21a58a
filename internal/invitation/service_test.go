package invitation

import (
	"bytes"
	"fmt"
	"net/smtp"
	"strings"
	"sync/atomic"
	"testing"

	"regform-api/config"
	"regform-api/internal/registration"

	"github.com/glebarez/sqlite"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBSeq uint64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	id := atomic.AddUint64(&testDBSeq, 1)
	dsn := fmt.Sprintf("file:invitation_test_%d?mode=memory&cache=shared", id)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := db.AutoMigrate(&Invitation{}, &registration.Registration{}); err != nil {
		t.Fatalf("migrate db: %v", err)
	}

	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newTestService(t *testing.T) *InvitationService {
	t.Helper()
	return &InvitationService{
		DB: newTestDB(t),
		CFG: &config.Config{
			SMTPHost:   "smtp.test",
			SMTPPort:   "587",
			SMTPUser:   "from@test.com",
			SMTPPass:   "pass",
			SMTPSender: "from@test.com",
			BaseURL:    "https://events.test",
		},
	}
}

func captureMail(t *testing.T) *[][]byte {
	t.Helper()
	prev := sendMail
	t.Cleanup(func() { sendMail = prev })

	var sent [][]byte
	sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		sent = append(sent, msg)
		return nil
	}
	return &sent
}

func TestCreate_SendsInvitationEmail(t *testing.T) {
	svc := newTestService(t)
	sent := captureMail(t)

	inv, err := svc.Create(7, CreateInput{
		Email: "Ada@Example.com", FirstName: "Ada", LastName: "Lovelace",
		Affiliation: "Analytical Engines Ltd", SkipModeration: true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if inv.Email != "ada@example.com" {
		t.Fatalf("email not normalized: %s", inv.Email)
	}
	if inv.Token == "" || inv.State != StatePending {
		t.Fatalf("token = %q, state = %s", inv.Token, inv.State)
	}
	if !inv.SkipModeration {
		t.Fatalf("skip moderation lost")
	}

	if len(*sent) != 1 {
		t.Fatalf("emails sent = %d", len(*sent))
	}
	msg := string((*sent)[0])
	if !strings.Contains(msg, inv.Token) {
		t.Fatalf("invitation link missing from email:\n%s", msg)
	}
	if !strings.Contains(msg, "To: ada@example.com") {
		t.Fatalf("wrong recipient:\n%s", msg)
	}
}

func TestCreate_RejectsDuplicateAndRegistered(t *testing.T) {
	svc := newTestService(t)
	captureMail(t)

	if _, err := svc.Create(7, CreateInput{Email: "ada@example.com"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(7, CreateInput{Email: "ada@example.com"}); err == nil {
		t.Fatalf("duplicate invitation accepted")
	}

	if err := svc.DB.Create(&registration.Registration{
		FormID: 7, Email: "grace@example.com", FriendlyID: 1,
		State: registration.StateComplete, Currency: "EUR",
	}).Error; err != nil {
		t.Fatalf("seed registration: %v", err)
	}
	if _, err := svc.Create(7, CreateInput{Email: "grace@example.com"}); err == nil {
		t.Fatalf("invitation for a registered email accepted")
	}

	if _, err := svc.Create(7, CreateInput{Email: "broken"}); err == nil {
		t.Fatalf("invalid email accepted")
	}
}

func TestImportCSV_SkipRules(t *testing.T) {
	svc := newTestService(t)
	captureMail(t)

	if _, err := svc.Create(7, CreateInput{Email: "invited@example.com"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.DB.Create(&registration.Registration{
		FormID: 7, Email: "registered@example.com", FriendlyID: 1,
		State: registration.StateComplete, Currency: "EUR",
	}).Error; err != nil {
		t.Fatalf("seed registration: %v", err)
	}

	csvData := strings.Join([]string{
		"First Name,Last Name,Affiliation,Email",
		"Ada,Lovelace,AE Ltd,ada@example.com",
		"Ada,Again,AE Ltd,ada@example.com",
		"Already,Invited,X,invited@example.com",
		"Already,Registered,X,registered@example.com",
		"Bad,Row,nothere",
		"Grace,Hopper,Navy,grace@example.com",
	}, "\n")

	result, err := svc.ImportCSV(7, strings.NewReader(csvData), false)
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	if len(result.Created) != 2 {
		t.Fatalf("created = %d: %+v", len(result.Created), result.Created)
	}
	if result.Created[0].Email != "ada@example.com" || result.Created[1].Email != "grace@example.com" {
		t.Fatalf("created emails = %s, %s", result.Created[0].Email, result.Created[1].Email)
	}

	reasons := map[string]string{}
	for _, skipped := range result.Skipped {
		reasons[skipped.Email] = skipped.Reason
	}
	if reasons["ada@example.com"] != "duplicate row in file" {
		t.Fatalf("reasons = %v", reasons)
	}
	if reasons["invited@example.com"] != "already invited" {
		t.Fatalf("reasons = %v", reasons)
	}
	if reasons["registered@example.com"] != "already registered" {
		t.Fatalf("reasons = %v", reasons)
	}
	// the header row is not reported as skipped
	for _, skipped := range result.Skipped {
		if skipped.Row == 1 {
			t.Fatalf("header row reported: %+v", skipped)
		}
	}
}

func TestImportXLSX_ReadsFirstSheet(t *testing.T) {
	svc := newTestService(t)
	captureMail(t)

	f := excelize.NewFile()
	rows := [][]string{
		{"First Name", "Last Name", "Affiliation", "Email"},
		{"Ada", "Lovelace", "AE Ltd", "ada@example.com"},
		{"Grace", "Hopper", "Navy", "grace@example.com"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell: %v", err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	result, err := svc.ImportXLSX(7, &buf, true)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(result.Created) != 2 {
		t.Fatalf("created = %d", len(result.Created))
	}
	for _, inv := range result.Created {
		if !inv.SkipModeration {
			t.Fatalf("skip moderation not applied to %s", inv.Email)
		}
	}
}

func TestRemindPending_OnlyPending(t *testing.T) {
	svc := newTestService(t)
	sent := captureMail(t)

	ada, err := svc.Create(7, CreateInput{Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(7, CreateInput{Email: "grace@example.com"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Decline(ada.Token); err != nil {
		t.Fatalf("decline: %v", err)
	}
	*sent = nil

	count, err := svc.RemindPending(7)
	if err != nil {
		t.Fatalf("remind: %v", err)
	}
	if count != 1 {
		t.Fatalf("reminders = %d, want 1", count)
	}
	if len(*sent) != 1 || !strings.Contains(string((*sent)[0]), "Reminder") {
		t.Fatalf("reminder mail = %q", *sent)
	}
}

func TestDecline(t *testing.T) {
	svc := newTestService(t)
	captureMail(t)

	inv, err := svc.Create(7, CreateInput{Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	declined, err := svc.Decline(inv.Token)
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if declined.State != StateDeclined {
		t.Fatalf("state = %s", declined.State)
	}
	if _, err := svc.Decline(inv.Token); err == nil {
		t.Fatalf("double decline succeeded")
	}
	if _, err := svc.Decline("no-such-token"); err == nil {
		t.Fatalf("unknown token accepted")
	}
}

func TestAccept_LinksRegistrationAndReportsSkip(t *testing.T) {
	svc := newTestService(t)
	captureMail(t)

	inv, err := svc.Create(7, CreateInput{Email: "ada@example.com", SkipModeration: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	skip, err := svc.Accept(svc.DB, inv.Token, 42)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if !skip {
		t.Fatalf("skip moderation not reported")
	}

	var reloaded Invitation
	if err := svc.DB.First(&reloaded, inv.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.State != StateAccepted {
		t.Fatalf("state = %s", reloaded.State)
	}
	if reloaded.RegistrationID == nil || *reloaded.RegistrationID != 42 {
		t.Fatalf("registration id = %v", reloaded.RegistrationID)
	}

	if _, err := svc.Accept(svc.DB, inv.Token, 43); err == nil {
		t.Fatalf("token reuse succeeded")
	}
	if _, err := svc.Accept(nil, "no-such-token", 44); err == nil {
		t.Fatalf("unknown token accepted")
	}
}

func TestDelete(t *testing.T) {
	svc := newTestService(t)
	captureMail(t)

	inv, err := svc.Create(7, CreateInput{Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(inv.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(inv.ID); err == nil {
		t.Fatalf("deleting a missing invitation succeeded")
	}

	list, err := svc.List(7)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("list = %v", list)
	}
}
