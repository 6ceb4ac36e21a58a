package regform

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

type RegFormController struct {
	RegFormService RegFormServicePort
}

func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param(name)), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// POST /api/forms
func (rc *RegFormController) CreateForm(c *gin.Context) {
	var req struct {
		EventID int64  `json:"event_id"`
		Title   string `json:"title"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	form, err := rc.RegFormService.CreateForm(req.EventID, req.Title)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, form)
}

// GET /api/forms/:id
func (rc *RegFormController) GetForm(c *gin.Context) {
	formID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	view, err := rc.RegFormService.GetForm(formID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "form not found"})
		return
	}
	c.JSON(http.StatusOK, view)
}

// POST /api/forms/:id/sections
func (rc *RegFormController) CreateSection(c *gin.Context) {
	formID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var input SectionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	section, err := rc.RegFormService.CreateSection(formID, input)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, section)
}

// PATCH /api/sections/:id
func (rc *RegFormController) UpdateSection(c *gin.Context) {
	sectionID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var input SectionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	section, err := rc.RegFormService.UpdateSection(sectionID, input)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, section)
}

// DELETE /api/sections/:id
func (rc *RegFormController) DeleteSection(c *gin.Context) {
	sectionID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := rc.RegFormService.DeleteSection(sectionID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "section deleted"})
}

// POST /api/sections/:id/toggle
func (rc *RegFormController) ToggleSection(c *gin.Context) {
	sectionID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := rc.RegFormService.ToggleSection(sectionID, req.Enabled)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /api/sections/:id/move
func (rc *RegFormController) MoveSection(c *gin.Context) {
	sectionID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var input MoveInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	positions, err := rc.RegFormService.MoveSection(sectionID, input.EndPos)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"positions": positions})
}

// POST /api/sections/:id/fields
func (rc *RegFormController) CreateField(c *gin.Context) {
	sectionID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var input FieldInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	field, err := rc.RegFormService.CreateField(sectionID, input)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, field)
}

// PATCH /api/fields/:id
func (rc *RegFormController) UpdateField(c *gin.Context) {
	fieldID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var input FieldInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	field, err := rc.RegFormService.UpdateField(fieldID, input)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, field)
}

// DELETE /api/fields/:id
func (rc *RegFormController) DeleteField(c *gin.Context) {
	fieldID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := rc.RegFormService.DeleteField(fieldID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "field deleted"})
}

// POST /api/fields/:id/toggle
func (rc *RegFormController) ToggleField(c *gin.Context) {
	fieldID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := rc.RegFormService.ToggleField(fieldID, req.Enabled)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /api/fields/:id/move
func (rc *RegFormController) MoveField(c *gin.Context) {
	fieldID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var input MoveInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	positions, err := rc.RegFormService.MoveField(fieldID, input.EndPos)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"positions": positions})
}
