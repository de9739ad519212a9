package bookings

import (
	"fmt"
	"time"

	"eventhub/internal/shared/apperrors"

	"github.com/google/uuid"
)

// Booking is a seat reservation held by one user for one event
type Booking struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID      uuid.UUID  `gorm:"type:uuid;index;not null" json:"user_id"`
	EventID     uuid.UUID  `gorm:"type:uuid;index;not null" json:"event_id"`
	Seats       int        `gorm:"not null;check:seats > 0" json:"seats"`
	Status      Status     `gorm:"type:varchar(20);check:status IN ('CONFIRMED', 'CANCELLED');default:'CONFIRMED'" json:"status"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

// TableName sets the table name for Booking
func (Booking) TableName() string {
	return "bookings"
}

// NewBooking builds a confirmed booking record
func NewBooking(userID, eventID uuid.UUID, seats int, now time.Time) *Booking {
	return &Booking{
		ID:        uuid.New(),
		UserID:    userID,
		EventID:   eventID,
		Seats:     seats,
		Status:    StatusConfirmed,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (b *Booking) IsConfirmed() bool {
	return b.Status == StatusConfirmed
}

// CheckCancellable validates ownership and prior status for a cancel request
func (b *Booking) CheckCancellable(requestingUserID uuid.UUID) error {
	if b.UserID != requestingUserID {
		return fmt.Errorf("booking %s does not belong to user %s: %w", b.ID, requestingUserID, apperrors.ErrForbidden)
	}
	if !b.Status.CanTransitionTo(StatusCancelled) {
		return fmt.Errorf("booking %s: %w", b.ID, apperrors.ErrAlreadyCancelled)
	}
	return nil
}

// Cancel flips the booking to cancelled
func (b *Booking) Cancel(now time.Time) {
	b.Status = StatusCancelled
	b.CancelledAt = &now
	b.UpdatedAt = now
}

// BookingNotFound builds the error returned for a missing booking
func BookingNotFound(bookingID uuid.UUID) error {
	return fmt.Errorf("booking %s: %w", bookingID, apperrors.ErrNotFound)
}

// DuplicateActiveBooking builds the error returned when the user already
// holds a confirmed booking for the event
func DuplicateActiveBooking(userID, eventID uuid.UUID) error {
	return fmt.Errorf("user %s, event %s: %w", userID, eventID, apperrors.ErrAlreadyBooked)
}

type CreateBookingRequest struct {
	EventID string `json:"event_id" binding:"required,uuid"`
	Seats   int    `json:"seats" binding:"required,min=1"`
}

type BookingResponse struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	EventID     string     `json:"event_id"`
	Seats       int        `json:"seats"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

// ToResponse converts Booking to BookingResponse
func (b *Booking) ToResponse() BookingResponse {
	return BookingResponse{
		ID:          b.ID.String(),
		UserID:      b.UserID.String(),
		EventID:     b.EventID.String(),
		Seats:       b.Seats,
		Status:      b.Status,
		CreatedAt:   b.CreatedAt,
		CancelledAt: b.CancelledAt,
	}
}

// ToResponses converts a booking list
func ToResponses(list []Booking) []BookingResponse {
	out := make([]BookingResponse, len(list))
	for i := range list {
		out[i] = list[i].ToResponse()
	}
	return out
}
