package registration

import (
	"regform-api/internal/middlewares"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, registrationService *RegistrationService) {
	registrationController := &RegistrationController{
		RegistrationService: registrationService,
	}

	// participant-facing endpoints
	publicGroup := r.Group("/api/forms/:id/registrations")
	{
		publicGroup.POST("", registrationController.Submit)
		publicGroup.GET("/check-email", registrationController.CheckEmail)
	}

	// management endpoints
	manageGroup := r.Group("/api/forms/:id/registrations")
	manageGroup.Use(middlewares.AuthMiddleware())
	{
		manageGroup.GET("", registrationController.List)
		manageGroup.GET("/export", registrationController.Export)
		manageGroup.POST("/purge", registrationController.Purge)
	}

	regGroup := r.Group("/api/registrations")
	regGroup.Use(middlewares.AuthMiddleware())
	{
		regGroup.GET("/:id", registrationController.Get)
		regGroup.PATCH("/:id", registrationController.Update)
		regGroup.POST("/:id/approve", registrationController.Approve)
		regGroup.POST("/:id/reject", registrationController.Reject)
		regGroup.POST("/:id/withdraw", registrationController.Withdraw)
		regGroup.POST("/:id/paid", registrationController.SetPaid)
		regGroup.POST("/:id/tags", registrationController.AssignTags)
		regGroup.POST("/:id/consent", registrationController.SetConsent)
		regGroup.POST("/:id/uploads", registrationController.Upload)
	}

	uploadGroup := r.Group("/api/uploads")
	uploadGroup.Use(middlewares.AuthMiddleware())
	{
		uploadGroup.GET("/:id", registrationController.GetUpload)
	}
}
