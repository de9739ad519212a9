package bookings

import (
	"errors"
	"fmt"
	"net/http"

	"eventhub/internal/shared/apperrors"
	"eventhub/internal/shared/middleware"
	"eventhub/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// CreateBooking handles POST /api/v1/bookings
func (c *Controller) CreateBooking(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	var req CreateBookingRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondError(ctx, "Invalid booking request", validationError(err))
		return
	}

	booking, err := c.service.Book(ctx.Request.Context(), userID, uuid.MustParse(req.EventID), req.Seats)
	if err != nil {
		response.RespondError(ctx, "Failed to book seats", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Booking confirmed successfully", booking.ToResponse(), nil)
}

// CancelBooking handles DELETE /api/v1/bookings/:id
func (c *Controller) CancelBooking(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	bookingID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondError(ctx, "Invalid booking ID", fmt.Errorf("%s: %w", err.Error(), apperrors.ErrInvalidArgument))
		return
	}

	booking, err := c.service.Cancel(ctx.Request.Context(), bookingID, userID)
	if err != nil {
		response.RespondError(ctx, "Failed to cancel booking", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Booking cancelled successfully", booking.ToResponse(), nil)
}

// GetBooking handles GET /api/v1/bookings/:id
func (c *Controller) GetBooking(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	bookingID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondError(ctx, "Invalid booking ID", fmt.Errorf("%s: %w", err.Error(), apperrors.ErrInvalidArgument))
		return
	}

	booking, err := c.service.GetBooking(ctx.Request.Context(), bookingID, userID)
	if err != nil {
		response.RespondError(ctx, "Failed to get booking", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Booking retrieved successfully", booking.ToResponse(), nil)
}

// GetUserBookings handles GET /api/v1/users/me/bookings
func (c *Controller) GetUserBookings(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	list, err := c.service.ListUserBookings(ctx.Request.Context(), userID)
	if err != nil {
		response.RespondError(ctx, "Failed to list bookings", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Bookings retrieved successfully", ToResponses(list), nil)
}

// GetUserEvents handles GET /api/v1/users/me/events
func (c *Controller) GetUserEvents(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	projection, err := c.service.GetProjection(ctx.Request.Context(), userID)
	if err != nil {
		response.RespondError(ctx, "Failed to get booked events", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Booked events retrieved successfully", projection, nil)
}

// ReconcileUserEvents handles POST /api/v1/users/me/events/reconcile
func (c *Controller) ReconcileUserEvents(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	result, err := c.service.ReconcileAttended(ctx.Request.Context(), userID)
	if err != nil {
		response.RespondError(ctx, "Failed to reconcile attended events", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Attended events reconciled", result, nil)
}

// GetEventBookings handles GET /api/v1/events/:id/bookings
func (c *Controller) GetEventBookings(ctx *gin.Context) {
	requesterID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	eventID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondError(ctx, "Invalid event ID", fmt.Errorf("%s: %w", err.Error(), apperrors.ErrInvalidArgument))
		return
	}

	list, err := c.service.ListEventBookings(ctx.Request.Context(), eventID, requesterID, middleware.IsAdmin(ctx))
	if err != nil {
		response.RespondError(ctx, "Failed to list event bookings", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Event bookings retrieved successfully", ToResponses(list), nil)
}

// validationError turns binding output into an invalid-argument error
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%s: %w", err.Error(), apperrors.ErrInvalidArgument)
	}
	fe := verrs[0]
	return fmt.Errorf("field %s failed %q (value %v): %w", fe.Field(), fe.Tag(), fe.Value(), apperrors.ErrInvalidArgument)
}
