package invitation

import (
	"regform-api/internal/middlewares"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, invitationService *InvitationService) {
	invitationController := &InvitationController{
		InvitationService: invitationService,
	}

	formGroup := r.Group("/api/forms/:id/invitations")
	formGroup.Use(middlewares.AuthMiddleware())
	{
		formGroup.POST("", invitationController.Create)
		formGroup.POST("/import", invitationController.Import)
		formGroup.GET("", invitationController.List)
		formGroup.POST("/remind", invitationController.Remind)
	}

	invitationGroup := r.Group("/api/invitations")
	{
		// declining happens from the emailed link, no session required
		invitationGroup.POST("/decline", invitationController.Decline)
	}

	manageGroup := r.Group("/api/invitations")
	manageGroup.Use(middlewares.AuthMiddleware())
	{
		manageGroup.DELETE("/:id", invitationController.Delete)
	}
}
