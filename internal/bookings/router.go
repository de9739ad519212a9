package bookings

import (
	"eventhub/internal/shared/middleware"
	"eventhub/internal/users"

	"github.com/gin-gonic/gin"
)

// SetupBookingRoutes configures all booking-related routes
func SetupBookingRoutes(rg *gin.RouterGroup, controller *Controller, jwtSecret string) {
	auth := middleware.JWTAuth(jwtSecret)
	anyRole := middleware.RequireRoles(users.RoleUser, users.RoleOrganizer, users.RoleAdmin)

	bookings := rg.Group("/bookings")
	bookings.Use(auth, anyRole)
	{
		bookings.POST("", controller.CreateBooking)       // POST /api/v1/bookings
		bookings.GET("/:id", controller.GetBooking)       // GET /api/v1/bookings/:id
		bookings.DELETE("/:id", controller.CancelBooking) // DELETE /api/v1/bookings/:id
	}

	me := rg.Group("/users/me")
	me.Use(auth, anyRole)
	{
		me.GET("/bookings", controller.GetUserBookings)              // GET /api/v1/users/me/bookings
		me.GET("/events", controller.GetUserEvents)                  // GET /api/v1/users/me/events
		me.POST("/events/reconcile", controller.ReconcileUserEvents) // POST /api/v1/users/me/events/reconcile
	}

	organizer := rg.Group("/events")
	organizer.Use(auth, middleware.RequireRoles(users.RoleOrganizer, users.RoleAdmin))
	{
		organizer.GET("/:id/bookings", controller.GetEventBookings) // GET /api/v1/events/:id/bookings
	}
}

// Route definitions for reference:
//
// POST   /api/v1/bookings                       - Book seats
// Request body: { "event_id": "uuid", "seats": 2 }
//
// DELETE /api/v1/bookings/:id                   - Cancel own booking, seats go back
// GET    /api/v1/bookings/:id                   - Get own booking
//
// GET    /api/v1/users/me/bookings              - Confirmed bookings, newest first
// GET    /api/v1/users/me/events                - Booked and attended event ids
// POST   /api/v1/users/me/events/reconcile      - Move concluded events to attended
//
// GET    /api/v1/events/:id/bookings            - Organizer view of an event's bookings
