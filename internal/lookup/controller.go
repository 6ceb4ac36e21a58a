package lookup

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type LookupController struct {
	Service LookupServiceAPI
}

func (lc *LookupController) GetAllCountries(c *gin.Context) {
	countries, err := lc.Service.GetAllCountries()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Countries fetched successfully",
		"countries": countries,
	})
}

func (lc *LookupController) GetCountryByCode(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	if len(code) != 2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "valid country code is required"})
		return
	}

	country, err := lc.Service.GetCountryByCode(code)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "country not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Country fetched successfully",
		"country": country,
	})
}
