package postgres

import (
	"context"
	"errors"
	"time"

	"eventhub/internal/users"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type userProjection struct {
	*scope
}

// AddBookedEvent upserts the user row and appends eventID once.
func (p *userProjection) AddBookedEvent(ctx context.Context, userID, eventID uuid.UUID) error {
	now := time.Now().UTC()
	id := eventID.String()
	user := users.User{
		ID:             userID,
		BookedEvents:   pq.StringArray{id},
		AttendedEvents: pq.StringArray{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := p.conn(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"booked_events": gorm.Expr(
				"CASE WHEN ?::text = ANY(users.booked_events) THEN users.booked_events "+
					"ELSE array_append(users.booked_events, ?::text) END", id, id),
			"updated_at": now,
		}),
	}).Create(&user).Error
	return storeError(err)
}

func (p *userProjection) RemoveBookedEvent(ctx context.Context, userID, eventID uuid.UUID) error {
	err := p.conn(ctx).Model(&users.User{}).
		Where("id = ?", userID).
		UpdateColumns(map[string]interface{}{
			"booked_events": gorm.Expr("array_remove(booked_events, ?::text)", eventID.String()),
			"updated_at":    time.Now().UTC(),
		}).Error
	return storeError(err)
}

func (p *userProjection) GetBookingProjection(ctx context.Context, userID uuid.UUID) (*users.BookingProjection, error) {
	var user users.User
	if err := p.conn(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return users.EmptyProjection(userID), nil
		}
		return nil, storeError(err)
	}
	return user.Projection(), nil
}

// MarkAttended moves the given ids that are still booked to attended in one
// UPDATE. Both SET expressions read the row as it was before the update.
func (p *userProjection) MarkAttended(ctx context.Context, userID uuid.UUID, eventIDs []uuid.UUID) error {
	if len(eventIDs) == 0 {
		return nil
	}
	ids := pq.StringArray(users.FormatIDs(eventIDs))

	err := p.conn(ctx).Model(&users.User{}).
		Where("id = ?", userID).
		UpdateColumns(map[string]interface{}{
			"attended_events": gorm.Expr(
				"attended_events || ARRAY(SELECT x FROM unnest(?::text[]) AS x "+
					"WHERE x = ANY(booked_events) AND NOT x = ANY(attended_events))", ids),
			"booked_events": gorm.Expr(
				"ARRAY(SELECT x FROM unnest(booked_events) WITH ORDINALITY AS t(x, n) "+
					"WHERE NOT x = ANY(?::text[]) ORDER BY n)", ids),
			"updated_at": time.Now().UTC(),
		}).Error
	return storeError(err)
}

func (p *userProjection) ListUsersWithBookedEvents(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0)
	err := p.conn(ctx).Model(&users.User{}).
		Where("cardinality(booked_events) > 0 AND id > ?", after).
		Order("id").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, storeError(err)
	}
	return ids, nil
}
