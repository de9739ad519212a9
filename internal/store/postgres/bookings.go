package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eventhub/internal/bookings"
	"eventhub/internal/shared/apperrors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type bookingLedger struct {
	*scope
}

func (l *bookingLedger) HasActiveBooking(ctx context.Context, userID, eventID uuid.UUID) (bool, error) {
	var count int64
	err := l.conn(ctx).Model(&bookings.Booking{}).
		Where("user_id = ? AND event_id = ? AND status = ?", userID, eventID, bookings.StatusConfirmed).
		Count(&count).Error
	if err != nil {
		return false, storeError(err)
	}
	return count > 0, nil
}

func (l *bookingLedger) CreateBooking(ctx context.Context, userID, eventID uuid.UUID, seats int) (*bookings.Booking, error) {
	booking := bookings.NewBooking(userID, eventID, seats, time.Now().UTC())
	if err := l.conn(ctx).Create(booking).Error; err != nil {
		if isUniqueViolation(err, ActiveBookingIndex) {
			return nil, bookings.DuplicateActiveBooking(userID, eventID)
		}
		return nil, storeError(err)
	}
	return booking, nil
}

func (l *bookingLedger) CancelBooking(ctx context.Context, bookingID, requestingUserID uuid.UUID) (*bookings.Booking, error) {
	q := l.conn(ctx)
	if l.inTx {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var booking bookings.Booking
	if err := q.Where("id = ?", bookingID).First(&booking).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bookings.BookingNotFound(bookingID)
		}
		return nil, storeError(err)
	}
	if err := booking.CheckCancellable(requestingUserID); err != nil {
		return nil, err
	}

	booking.Cancel(time.Now().UTC())
	result := l.conn(ctx).Model(&bookings.Booking{}).
		Where("id = ? AND status = ?", bookingID, bookings.StatusConfirmed).
		UpdateColumns(map[string]interface{}{
			"status":       booking.Status,
			"cancelled_at": booking.CancelledAt,
			"updated_at":   booking.UpdatedAt,
		})
	if result.Error != nil {
		return nil, storeError(result.Error)
	}
	if result.RowsAffected == 0 {
		// lost a race with another cancel outside a transaction
		return nil, fmt.Errorf("booking %s: %w", bookingID, apperrors.ErrAlreadyCancelled)
	}
	return &booking, nil
}

func (l *bookingLedger) GetBooking(ctx context.Context, bookingID uuid.UUID) (*bookings.Booking, error) {
	var booking bookings.Booking
	if err := l.conn(ctx).Where("id = ?", bookingID).First(&booking).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bookings.BookingNotFound(bookingID)
		}
		return nil, storeError(err)
	}
	return &booking, nil
}

func (l *bookingLedger) ListActiveForUser(ctx context.Context, userID uuid.UUID) ([]bookings.Booking, error) {
	return l.listActive(ctx, "user_id = ?", userID)
}

func (l *bookingLedger) ListActiveForEvent(ctx context.Context, eventID uuid.UUID) ([]bookings.Booking, error) {
	return l.listActive(ctx, "event_id = ?", eventID)
}

func (l *bookingLedger) listActive(ctx context.Context, cond string, arg uuid.UUID) ([]bookings.Booking, error) {
	list := make([]bookings.Booking, 0)
	err := l.conn(ctx).
		Where(cond, arg).
		Where("status = ?", bookings.StatusConfirmed).
		Order("created_at DESC").
		Find(&list).Error
	if err != nil {
		return nil, storeError(err)
	}
	return list, nil
}
