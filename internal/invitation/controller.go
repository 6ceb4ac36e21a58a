package invitation

import (
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

type InvitationController struct {
	InvitationService *InvitationService
}

func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param(name)), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// POST /api/forms/:id/invitations
func (ic *InvitationController) Create(c *gin.Context) {
	formID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var input CreateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	inv, err := ic.InvitationService.Create(formID, input)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, inv)
}

// POST /api/forms/:id/invitations/import (multipart, field "file")
func (ic *InvitationController) Import(c *gin.Context) {
	formID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	skipModeration := c.PostForm("skip_moderation") == "1"

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer file.Close()

	var result *ImportResult
	switch strings.ToLower(path.Ext(fileHeader.Filename)) {
	case ".xlsx":
		result, err = ic.InvitationService.ImportXLSX(formID, file, skipModeration)
	case ".csv":
		result, err = ic.InvitationService.ImportCSV(formID, file, skipModeration)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "file must be .xlsx or .csv"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// GET /api/forms/:id/invitations
func (ic *InvitationController) List(c *gin.Context) {
	formID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	invitations, err := ic.InvitationService.List(formID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"invitations": invitations, "count": len(invitations)})
}

// POST /api/forms/:id/invitations/remind
func (ic *InvitationController) Remind(c *gin.Context) {
	formID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	sent, err := ic.InvitationService.RemindPending(formID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": sent})
}

// POST /api/invitations/decline
func (ic *InvitationController) Decline(c *gin.Context) {
	var req struct {
		Token string `json:"token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Token) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}
	inv, err := ic.InvitationService.Decline(strings.TrimSpace(req.Token))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, inv)
}

// DELETE /api/invitations/:id
func (ic *InvitationController) Delete(c *gin.Context) {
	invitationID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := ic.InvitationService.Delete(invitationID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "invitation deleted"})
}
