package registration

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

type RegistrationController struct {
	RegistrationService *RegistrationService
}

func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param(name)), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// POST /api/forms/:id/registrations
func (rc *RegistrationController) Submit(c *gin.Context) {
	formID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var input SubmitInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reg, fieldErrs, err := rc.RegistrationService.Submit(formID, input)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(fieldErrs) > 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "the submitted form has errors",
			"fields": fieldErrs,
		})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"registration": reg,
		"redirect":     fmt.Sprintf("/forms/%d/registrations/%d", formID, reg.ID),
	})
}

// PATCH /api/registrations/:id
func (rc *RegistrationController) Update(c *gin.Context) {
	regID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var input UpdateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reg, fieldErrs, err := rc.RegistrationService.Update(regID, input)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(fieldErrs) > 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "the submitted form has errors",
			"fields": fieldErrs,
		})
		return
	}
	c.JSON(http.StatusOK, reg)
}

// GET /api/registrations/:id
func (rc *RegistrationController) Get(c *gin.Context) {
	regID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	reg, _, err := rc.RegistrationService.Get(regID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "registration not found"})
		return
	}
	c.JSON(http.StatusOK, reg)
}

// GET /api/forms/:id/registrations/check-email?email=...&user_id=...&management=1
func (rc *RegistrationController) CheckEmail(c *gin.Context) {
	formID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}

	var userIDPtr *int64
	if raw := strings.TrimSpace(c.Query("user_id")); raw != "" {
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || userID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
			return
		}
		userIDPtr = &userID
	}
	management := c.Query("management") == "1"

	status, err := rc.RegistrationService.ValidateEmail(formID, email, userIDPtr, management)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}

// GET /api/forms/:id/registrations
func (rc *RegistrationController) List(c *gin.Context) {
	formID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	input := ListInput{}
	if state := strings.TrimSpace(c.Query("state")); state != "" {
		input.State = &state
	}
	if search := strings.TrimSpace(c.Query("q")); search != "" {
		input.Search = &search
	}
	if tag := strings.TrimSpace(c.Query("tag")); tag != "" {
		input.Tag = &tag
	}

	regs, err := rc.RegistrationService.List(formID, input)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"registrations": regs, "count": len(regs)})
}

// GET /api/forms/:id/registrations/export?format=xlsx|csv
func (rc *RegistrationController) Export(c *gin.Context) {
	formID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	format := strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", "xlsx")))
	switch format {
	case "xlsx":
		data, err := rc.RegistrationService.ExportXLSX(formID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		filename := fmt.Sprintf("registrations_%d.xlsx", formID)
		c.Header("Content-Disposition", "attachment; filename="+filename)
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
	case "csv":
		data, err := rc.RegistrationService.ExportCSV(formID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		filename := fmt.Sprintf("registrations_%d.csv", formID)
		c.Header("Content-Disposition", "attachment; filename="+filename)
		c.Data(http.StatusOK, "text/csv", data)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be xlsx or csv"})
	}
}

// POST /api/registrations/:id/approve
func (rc *RegistrationController) Approve(c *gin.Context) {
	rc.transition(c, rc.RegistrationService.Approve)
}

// POST /api/registrations/:id/reject
func (rc *RegistrationController) Reject(c *gin.Context) {
	rc.transition(c, rc.RegistrationService.Reject)
}

// POST /api/registrations/:id/withdraw
func (rc *RegistrationController) Withdraw(c *gin.Context) {
	rc.transition(c, rc.RegistrationService.Withdraw)
}

func (rc *RegistrationController) transition(c *gin.Context, fn func(int64) (*Registration, error)) {
	regID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	reg, err := fn(regID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, reg)
}

// POST /api/registrations/:id/paid
func (rc *RegistrationController) SetPaid(c *gin.Context) {
	regID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Paid bool `json:"paid"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	reg, err := rc.RegistrationService.SetPaid(regID, req.Paid)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, reg)
}

// POST /api/registrations/:id/tags
func (rc *RegistrationController) AssignTags(c *gin.Context) {
	regID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var input TagInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	reg, err := rc.RegistrationService.AssignTags(regID, input)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, reg)
}

// POST /api/registrations/:id/consent
func (rc *RegistrationController) SetConsent(c *gin.Context) {
	regID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Consent string `json:"consent"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	reg, err := rc.RegistrationService.SetConsent(regID, req.Consent)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, reg)
}

// POST /api/registrations/:id/uploads
func (rc *RegistrationController) Upload(c *gin.Context) {
	regID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var input UploadInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	upload, err := rc.RegistrationService.UploadFile(regID, input)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, upload)
}

// GET /api/uploads/:id
func (rc *RegistrationController) GetUpload(c *gin.Context) {
	uploadID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	upload, err := rc.RegistrationService.GetUpload(uploadID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "upload not found"})
		return
	}

	disposition := "attachment"
	if c.Query("inline") == "1" {
		disposition = "inline"
	}
	c.Header("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, upload.Filename))
	c.JSON(http.StatusOK, upload)
}

// POST /api/forms/:id/registrations/purge
func (rc *RegistrationController) Purge(c *gin.Context) {
	formID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	purged, err := rc.RegistrationService.PurgeExpired(formID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"purged": purged})
}
