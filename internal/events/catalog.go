package events

import (
	"context"
	"fmt"

	"eventhub/internal/shared/apperrors"

	"github.com/google/uuid"
)

// Catalog exposes event reads and the atomic seat adjustments. A Catalog
// obtained from a transaction scope runs every call inside that scope.
type Catalog interface {
	CreateEvent(ctx context.Context, event *Event) error
	GetEvent(ctx context.Context, eventID uuid.UUID) (*Event, error)
	GetCapacitySnapshot(ctx context.Context, eventID uuid.UUID) (*CapacitySnapshot, error)

	// ReserveSeats decrements available seats by count as one conditional
	// step. Events without capacity always succeed and are left untouched.
	ReserveSeats(ctx context.Context, eventID uuid.UUID, count int) error

	// ReleaseSeats gives count seats back. Returning more seats than the
	// capacity allows fails with apperrors.ErrConsistency.
	ReleaseSeats(ctx context.Context, eventID uuid.UUID, count int) error
}

// ValidateSeatCount rejects non-positive seat adjustments
func ValidateSeatCount(count int) error {
	if count < 1 {
		return fmt.Errorf("seat count must be at least 1, got %d: %w", count, apperrors.ErrInvalidArgument)
	}
	return nil
}

// PrepareNew validates a new event and initializes its available seats
func PrepareNew(event *Event) error {
	if event.Name == "" {
		return fmt.Errorf("event name is required: %w", apperrors.ErrInvalidArgument)
	}
	if event.Capacity != nil && *event.Capacity < 1 {
		return fmt.Errorf("capacity must be at least 1 when set: %w", apperrors.ErrInvalidArgument)
	}
	if event.StartsAt != nil && event.EndsAt != nil && event.EndsAt.Before(*event.StartsAt) {
		return fmt.Errorf("event cannot end before it starts: %w", apperrors.ErrInvalidArgument)
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.AvailableSeats = 0
	if event.Capacity != nil {
		event.AvailableSeats = *event.Capacity
	}
	return nil
}

// InsufficientCapacity builds the error returned when a reservation does not fit
func InsufficientCapacity(eventID uuid.UUID, available, requested int) error {
	if available <= 0 {
		return fmt.Errorf("event %s is fully booked: %w", eventID, apperrors.ErrInsufficientCapacity)
	}
	return fmt.Errorf("only %d seats available for event %s, requested %d: %w",
		available, eventID, requested, apperrors.ErrInsufficientCapacity)
}

// ReleaseOverflow builds the error returned when a release would push
// available seats above capacity
func ReleaseOverflow(eventID uuid.UUID, snapshot CapacitySnapshot, count int) error {
	return fmt.Errorf("releasing %d seats on event %s would exceed capacity %d (available %d): %w",
		count, eventID, *snapshot.Capacity, snapshot.AvailableSeats, apperrors.ErrConsistency)
}

// NotFound builds the error returned for a missing event
func NotFound(eventID uuid.UUID) error {
	return fmt.Errorf("event %s: %w", eventID, apperrors.ErrNotFound)
}
