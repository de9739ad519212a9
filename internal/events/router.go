package events

import (
	"eventhub/internal/shared/middleware"
	"eventhub/internal/users"

	"github.com/gin-gonic/gin"
)

func SetupEventRoutes(router *gin.RouterGroup, controller Controller, jwtSecret string) {
	// Public routes - anyone can view events
	publicEvents := router.Group("/events")
	{
		publicEvents.GET("/:id", controller.GetEvent)                     // GET /api/v1/events/:id
		publicEvents.GET("/:id/availability", controller.GetAvailability) // GET /api/v1/events/:id/availability
	}

	// Organizer routes
	organizerEvents := router.Group("/events")
	organizerEvents.Use(middleware.JWTAuth(jwtSecret), middleware.RequireRoles(users.RoleOrganizer, users.RoleAdmin))
	{
		organizerEvents.POST("", controller.CreateEvent) // POST /api/v1/events
	}
}
