package mongo

import (
	"context"
	"errors"
	"fmt"

	"eventhub/internal/bookings"
	"eventhub/internal/shared/apperrors"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type bookingLedger struct {
	col *mongo.Collection
}

func (l *bookingLedger) HasActiveBooking(ctx context.Context, userID, eventID uuid.UUID) (bool, error) {
	n, err := l.col.CountDocuments(ctx, bson.M{
		"userId":  userID.String(),
		"eventId": eventID.String(),
		"status":  bookings.StatusConfirmed.String(),
	}, options.Count().SetLimit(1))
	if err != nil {
		return false, storeError(err)
	}
	return n > 0, nil
}

func (l *bookingLedger) CreateBooking(ctx context.Context, userID, eventID uuid.UUID, seats int) (*bookings.Booking, error) {
	booking := bookings.NewBooking(userID, eventID, seats, now())
	if _, err := l.col.InsertOne(ctx, toBookingDoc(booking)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, bookings.DuplicateActiveBooking(userID, eventID)
		}
		return nil, storeError(err)
	}
	return booking, nil
}

func (l *bookingLedger) CancelBooking(ctx context.Context, bookingID, requestingUserID uuid.UUID) (*bookings.Booking, error) {
	booking, err := l.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := booking.CheckCancellable(requestingUserID); err != nil {
		return nil, err
	}

	booking.Cancel(now())
	res, err := l.col.UpdateOne(ctx,
		bson.M{"_id": bookingID.String(), "status": bookings.StatusConfirmed.String()},
		bson.M{"$set": bson.M{
			"status":      booking.Status.String(),
			"cancelledAt": booking.CancelledAt,
			"updatedAt":   booking.UpdatedAt,
		}},
	)
	if err != nil {
		return nil, storeError(err)
	}
	if res.MatchedCount == 0 {
		return nil, fmt.Errorf("booking %s: %w", bookingID, apperrors.ErrAlreadyCancelled)
	}
	return booking, nil
}

func (l *bookingLedger) GetBooking(ctx context.Context, bookingID uuid.UUID) (*bookings.Booking, error) {
	var doc bookingDoc
	if err := l.col.FindOne(ctx, bson.M{"_id": bookingID.String()}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookings.BookingNotFound(bookingID)
		}
		return nil, storeError(err)
	}
	return doc.toModel(), nil
}

func (l *bookingLedger) ListActiveForUser(ctx context.Context, userID uuid.UUID) ([]bookings.Booking, error) {
	return l.listActive(ctx, "userId", userID)
}

func (l *bookingLedger) ListActiveForEvent(ctx context.Context, eventID uuid.UUID) ([]bookings.Booking, error) {
	return l.listActive(ctx, "eventId", eventID)
}

func (l *bookingLedger) listActive(ctx context.Context, field string, id uuid.UUID) ([]bookings.Booking, error) {
	cur, err := l.col.Find(ctx,
		bson.M{field: id.String(), "status": bookings.StatusConfirmed.String()},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}),
	)
	if err != nil {
		return nil, storeError(err)
	}
	defer cur.Close(ctx)

	out := make([]bookings.Booking, 0)
	for cur.Next(ctx) {
		var doc bookingDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, storeError(err)
		}
		out = append(out, *doc.toModel())
	}
	return out, storeError(cur.Err())
}
