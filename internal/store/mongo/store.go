// Package mongo stores events, bookings and user projections in MongoDB.
// Multi-document transactions need a replica set or sharded cluster.
package mongo

import (
	"context"
	"fmt"
	"time"

	"eventhub/internal/bookings"
	"eventhub/internal/events"
	"eventhub/internal/shared/apperrors"
	"eventhub/internal/users"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// ActiveBookingIndex is the partial unique index allowing one confirmed
// booking per user and event.
const ActiveBookingIndex = "uniq_active_user_event"

// Store implements bookings.Store on MongoDB
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// New creates a store over a connected client
func New(client *mongo.Client, database string) *Store {
	return &Store{client: client, db: client.Database(database)}
}

// EnsureIndexes creates the indexes the store relies on
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(BookingsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "eventId", Value: 1}},
			Options: options.Index().
				SetName(ActiveBookingIndex).
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": bookings.StatusConfirmed.String()}),
		},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "eventId", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create booking indexes: %w", err)
	}

	_, err = s.db.Collection(UsersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "bookedEvents", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}
	return nil
}

// WithinTx runs fn in a multi-document transaction. The driver reruns fn
// when the server labels an error as transient.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx bookings.Tx) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return storeError(err)
	}
	defer session.EndSession(context.WithoutCancel(ctx))

	txOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, &scope{db: s.db})
	}, txOpts)
	return storeError(err)
}

// View returns collaborators that run each call on its own
func (s *Store) View() bookings.Tx {
	return &scope{db: s.db}
}

type scope struct {
	db *mongo.Database
}

func (s *scope) Events() events.Catalog {
	return &eventCatalog{col: s.db.Collection(EventsCollection)}
}

func (s *scope) Bookings() bookings.Ledger {
	return &bookingLedger{col: s.db.Collection(BookingsCollection)}
}

func (s *scope) Users() users.Projection {
	return &userProjection{col: s.db.Collection(UsersCollection)}
}

func storeError(err error) error {
	if err == nil || apperrors.IsDomain(err) {
		return err
	}
	return apperrors.Transient(err)
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
