package regform

import (
	"regform-api/internal/middlewares"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, regFormService *RegFormService) {
	regFormController := &RegFormController{
		RegFormService: regFormService,
	}

	formGroup := r.Group("/api/forms")
	formGroup.Use(middlewares.AuthMiddleware())
	{
		formGroup.POST("", regFormController.CreateForm)
		formGroup.GET("/:id", regFormController.GetForm)
		formGroup.POST("/:id/sections", regFormController.CreateSection)
	}

	sectionGroup := r.Group("/api/sections")
	sectionGroup.Use(middlewares.AuthMiddleware())
	{
		sectionGroup.PATCH("/:id", regFormController.UpdateSection)
		sectionGroup.DELETE("/:id", regFormController.DeleteSection)
		sectionGroup.POST("/:id/toggle", regFormController.ToggleSection)
		sectionGroup.POST("/:id/move", regFormController.MoveSection)
		sectionGroup.POST("/:id/fields", regFormController.CreateField)
	}

	fieldGroup := r.Group("/api/fields")
	fieldGroup.Use(middlewares.AuthMiddleware())
	{
		fieldGroup.PATCH("/:id", regFormController.UpdateField)
		fieldGroup.DELETE("/:id", regFormController.DeleteField)
		fieldGroup.POST("/:id/toggle", regFormController.ToggleField)
		fieldGroup.POST("/:id/move", regFormController.MoveField)
	}
}
