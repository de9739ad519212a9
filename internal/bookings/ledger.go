package bookings

import (
	"context"

	"eventhub/internal/events"
	"eventhub/internal/users"

	"github.com/google/uuid"
)

// Ledger stores booking records and enforces one confirmed booking per user
// and event.
type Ledger interface {
	HasActiveBooking(ctx context.Context, userID, eventID uuid.UUID) (bool, error)

	// CreateBooking inserts a confirmed booking. Callers check
	// HasActiveBooking and capacity in the same transaction first.
	CreateBooking(ctx context.Context, userID, eventID uuid.UUID, seats int) (*Booking, error)

	// CancelBooking flips a confirmed booking owned by requestingUserID to
	// cancelled and returns it with its seats and event.
	CancelBooking(ctx context.Context, bookingID, requestingUserID uuid.UUID) (*Booking, error)

	GetBooking(ctx context.Context, bookingID uuid.UUID) (*Booking, error)

	// ListActiveForUser and ListActiveForEvent return confirmed bookings,
	// newest first.
	ListActiveForUser(ctx context.Context, userID uuid.UUID) ([]Booking, error)
	ListActiveForEvent(ctx context.Context, eventID uuid.UUID) ([]Booking, error)
}

// Tx groups the collaborators bound to one transaction scope.
type Tx interface {
	Events() events.Catalog
	Bookings() Ledger
	Users() users.Projection
}

// Store opens transaction scopes over the catalog, ledger and projection.
type Store interface {
	// WithinTx runs fn in a transaction. The transaction commits when fn
	// returns nil and rolls back otherwise; nothing fn wrote is visible
	// outside the scope before commit.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// View returns collaborators that run each call on its own, outside any
	// transaction.
	View() Tx
}
