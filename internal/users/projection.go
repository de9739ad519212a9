package users

import (
	"context"

	"github.com/google/uuid"
)

// Projection maintains the denormalized booked/attended lists. Only the
// booking coordinator and the reconciliation pass write through it.
type Projection interface {
	// AddBookedEvent adds eventID to the booked list as a set member,
	// creating the user record when missing.
	AddBookedEvent(ctx context.Context, userID, eventID uuid.UUID) error
	RemoveBookedEvent(ctx context.Context, userID, eventID uuid.UUID) error

	// GetBookingProjection returns an empty projection for unknown users.
	GetBookingProjection(ctx context.Context, userID uuid.UUID) (*BookingProjection, error)

	// MarkAttended adds eventIDs to attended and removes them from booked in
	// a single update.
	MarkAttended(ctx context.Context, userID uuid.UUID, eventIDs []uuid.UUID) error

	// ListUsersWithBookedEvents pages through users holding at least one
	// booked event, ordered by id and starting after the given id.
	ListUsersWithBookedEvents(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error)
}
