package lookup

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, lookupService LookupServiceAPI) {
	lookupController := &LookupController{Service: lookupService}

	lookupGroup := r.Group("/lookup")
	{
		lookupGroup.GET("/country", lookupController.GetAllCountries)
		lookupGroup.GET("/country/:code", lookupController.GetCountryByCode)
	}
}
