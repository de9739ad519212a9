package mongo

import (
	"context"
	"errors"
	"time"

	"eventhub/internal/users"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type userProjection struct {
	col *mongo.Collection
}

func (p *userProjection) AddBookedEvent(ctx context.Context, userID, eventID uuid.UUID) error {
	ts := now()
	_, err := p.col.UpdateOne(ctx,
		bson.M{"_id": userID.String()},
		bson.M{
			"$addToSet":    bson.M{"bookedEvents": eventID.String()},
			"$set":         bson.M{"updatedAt": ts},
			"$setOnInsert": bson.M{"attendedEvents": bson.A{}, "createdAt": ts},
		},
		options.Update().SetUpsert(true),
	)
	return storeError(err)
}

func (p *userProjection) RemoveBookedEvent(ctx context.Context, userID, eventID uuid.UUID) error {
	_, err := p.col.UpdateOne(ctx,
		bson.M{"_id": userID.String()},
		bson.M{
			"$pull": bson.M{"bookedEvents": eventID.String()},
			"$set":  bson.M{"updatedAt": now()},
		},
	)
	return storeError(err)
}

func (p *userProjection) GetBookingProjection(ctx context.Context, userID uuid.UUID) (*users.BookingProjection, error) {
	var doc userDoc
	if err := p.col.FindOne(ctx, bson.M{"_id": userID.String()}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return users.EmptyProjection(userID), nil
		}
		return nil, storeError(err)
	}
	return doc.toProjection(), nil
}

// markAttendedPipeline moves ids still present in bookedEvents to
// attendedEvents. Every expression in the stage reads the original document.
func markAttendedPipeline(ids []string, ts time.Time) mongo.Pipeline {
	stillBooked := bson.M{"$filter": bson.M{
		"input": ids,
		"as":    "e",
		"cond": bson.M{"$and": bson.A{
			bson.M{"$in": bson.A{"$$e", bson.M{"$ifNull": bson.A{"$bookedEvents", bson.A{}}}}},
			bson.M{"$not": bson.A{bson.M{"$in": bson.A{"$$e", bson.M{"$ifNull": bson.A{"$attendedEvents", bson.A{}}}}}}},
		}},
	}}

	return mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "attendedEvents", Value: bson.M{"$concatArrays": bson.A{
				bson.M{"$ifNull": bson.A{"$attendedEvents", bson.A{}}},
				stillBooked,
			}}},
			{Key: "bookedEvents", Value: bson.M{"$filter": bson.M{
				"input": bson.M{"$ifNull": bson.A{"$bookedEvents", bson.A{}}},
				"as":    "e",
				"cond":  bson.M{"$not": bson.A{bson.M{"$in": bson.A{"$$e", ids}}}},
			}}},
			{Key: "updatedAt", Value: ts},
		}}},
	}
}

func (p *userProjection) MarkAttended(ctx context.Context, userID uuid.UUID, eventIDs []uuid.UUID) error {
	if len(eventIDs) == 0 {
		return nil
	}
	_, err := p.col.UpdateOne(ctx,
		bson.M{"_id": userID.String()},
		markAttendedPipeline(users.FormatIDs(eventIDs), now()),
	)
	return storeError(err)
}

func (p *userProjection) ListUsersWithBookedEvents(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetProjection(bson.M{"_id": 1})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := p.col.Find(ctx, bson.M{
		"_id":            bson.M{"$gt": after.String()},
		"bookedEvents.0": bson.M{"$exists": true},
	}, opts)
	if err != nil {
		return nil, storeError(err)
	}
	defer cur.Close(ctx)

	ids := make([]uuid.UUID, 0)
	for cur.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, storeError(err)
		}
		ids = append(ids, parseID(doc.ID))
	}
	return ids, storeError(cur.Err())
}
