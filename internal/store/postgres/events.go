package postgres

import (
	"context"
	"errors"
	"time"

	"eventhub/internal/events"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type eventCatalog struct {
	*scope
}

func (c *eventCatalog) CreateEvent(ctx context.Context, event *events.Event) error {
	if err := events.PrepareNew(event); err != nil {
		return err
	}
	return storeError(c.conn(ctx).Create(event).Error)
}

// GetEvent reads the event; inside a transaction the row stays locked until
// commit so concurrent bookings for the same event queue up.
func (c *eventCatalog) GetEvent(ctx context.Context, eventID uuid.UUID) (*events.Event, error) {
	q := c.conn(ctx)
	if c.inTx {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var event events.Event
	if err := q.Where("id = ?", eventID).First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, events.NotFound(eventID)
		}
		return nil, storeError(err)
	}
	return &event, nil
}

func (c *eventCatalog) GetCapacitySnapshot(ctx context.Context, eventID uuid.UUID) (*events.CapacitySnapshot, error) {
	var snap events.CapacitySnapshot
	err := c.conn(ctx).Model(&events.Event{}).
		Select("id AS event_id, capacity, available_seats").
		Where("id = ?", eventID).
		Take(&snap).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, events.NotFound(eventID)
		}
		return nil, storeError(err)
	}
	return &snap, nil
}

// ReserveSeats decrements available_seats only while enough seats remain.
func (c *eventCatalog) ReserveSeats(ctx context.Context, eventID uuid.UUID, count int) error {
	if err := events.ValidateSeatCount(count); err != nil {
		return err
	}

	result := c.conn(ctx).Model(&events.Event{}).
		Where("id = ? AND capacity IS NOT NULL AND available_seats >= ?", eventID, count).
		UpdateColumns(map[string]interface{}{
			"available_seats": gorm.Expr("available_seats - ?", count),
			"updated_at":      time.Now().UTC(),
		})
	if result.Error != nil {
		return storeError(result.Error)
	}
	if result.RowsAffected == 1 {
		return nil
	}

	snap, err := c.GetCapacitySnapshot(ctx, eventID)
	if err != nil {
		return err
	}
	if snap.Unlimited() {
		return nil
	}
	return events.InsufficientCapacity(eventID, snap.AvailableSeats, count)
}

// ReleaseSeats increments available_seats without passing capacity.
func (c *eventCatalog) ReleaseSeats(ctx context.Context, eventID uuid.UUID, count int) error {
	if err := events.ValidateSeatCount(count); err != nil {
		return err
	}

	result := c.conn(ctx).Model(&events.Event{}).
		Where("id = ? AND capacity IS NOT NULL AND available_seats + ? <= capacity", eventID, count).
		UpdateColumns(map[string]interface{}{
			"available_seats": gorm.Expr("available_seats + ?", count),
			"updated_at":      time.Now().UTC(),
		})
	if result.Error != nil {
		return storeError(result.Error)
	}
	if result.RowsAffected == 1 {
		return nil
	}

	snap, err := c.GetCapacitySnapshot(ctx, eventID)
	if err != nil {
		return err
	}
	if snap.Unlimited() {
		return nil
	}
	return events.ReleaseOverflow(eventID, *snap, count)
}
