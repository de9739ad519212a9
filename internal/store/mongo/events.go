package mongo

import (
	"context"
	"errors"

	"eventhub/internal/events"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type eventCatalog struct {
	col *mongo.Collection
}

func (c *eventCatalog) CreateEvent(ctx context.Context, event *events.Event) error {
	if err := events.PrepareNew(event); err != nil {
		return err
	}
	ts := now()
	event.CreatedAt = ts
	event.UpdatedAt = ts
	_, err := c.col.InsertOne(ctx, toEventDoc(event))
	return storeError(err)
}

func (c *eventCatalog) GetEvent(ctx context.Context, eventID uuid.UUID) (*events.Event, error) {
	var doc eventDoc
	if err := c.col.FindOne(ctx, bson.M{"_id": eventID.String()}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, events.NotFound(eventID)
		}
		return nil, storeError(err)
	}
	return doc.toModel(), nil
}

func (c *eventCatalog) GetCapacitySnapshot(ctx context.Context, eventID uuid.UUID) (*events.CapacitySnapshot, error) {
	var doc eventDoc
	opts := options.FindOne().SetProjection(bson.M{"capacity": 1, "availableSeats": 1})
	if err := c.col.FindOne(ctx, bson.M{"_id": eventID.String()}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, events.NotFound(eventID)
		}
		return nil, storeError(err)
	}
	return &events.CapacitySnapshot{
		EventID:        eventID,
		Capacity:       doc.Capacity,
		AvailableSeats: doc.AvailableSeats,
	}, nil
}

// reserveFilter matches the event only while count seats remain
func reserveFilter(eventID uuid.UUID, count int) bson.M {
	return bson.M{
		"_id":            eventID.String(),
		"capacity":       bson.M{"$ne": nil},
		"availableSeats": bson.M{"$gte": count},
	}
}

// releaseFilter matches the event only while count seats fit under capacity
func releaseFilter(eventID uuid.UUID, count int) bson.M {
	return bson.M{
		"_id":      eventID.String(),
		"capacity": bson.M{"$ne": nil},
		"$expr": bson.M{"$lte": bson.A{
			bson.M{"$add": bson.A{"$availableSeats", count}},
			"$capacity",
		}},
	}
}

func (c *eventCatalog) ReserveSeats(ctx context.Context, eventID uuid.UUID, count int) error {
	if err := events.ValidateSeatCount(count); err != nil {
		return err
	}

	res, err := c.col.UpdateOne(ctx, reserveFilter(eventID, count), bson.M{
		"$inc": bson.M{"availableSeats": -count},
		"$set": bson.M{"updatedAt": now()},
	})
	if err != nil {
		return storeError(err)
	}
	if res.MatchedCount == 1 {
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

func (c *eventCatalog) ReleaseSeats(ctx context.Context, eventID uuid.UUID, count int) error {
	if err := events.ValidateSeatCount(count); err != nil {
		return err
	}

	res, err := c.col.UpdateOne(ctx, releaseFilter(eventID, count), bson.M{
		"$inc": bson.M{"availableSeats": count},
		"$set": bson.M{"updatedAt": now()},
	})
	if err != nil {
		return storeError(err)
	}
	if res.MatchedCount == 1 {
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
