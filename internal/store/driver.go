// Package store selects the booking core backend named by configuration.
package store

import (
	"context"
	"fmt"

	"eventhub/internal/bookings"
	"eventhub/internal/shared/config"
	"eventhub/internal/shared/database"
	"eventhub/internal/store/memory"
	"eventhub/internal/store/mongo"
	"eventhub/internal/store/postgres"
)

// Open returns the store for cfg.StoreDriver over the connections in db.
func Open(ctx context.Context, cfg *config.Config, db *database.DB) (bookings.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		if db.PostgreSQL == nil {
			return nil, fmt.Errorf("store driver %q: no PostgreSQL connection", cfg.StoreDriver)
		}
		return postgres.New(db.PostgreSQL), nil
	case config.StoreDriverMongo:
		if db.Mongo == nil {
			return nil, fmt.Errorf("store driver %q: no MongoDB connection", cfg.StoreDriver)
		}
		s := mongo.New(db.Mongo, cfg.Mongo.Database)
		if err := s.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("failed to create MongoDB indexes: %w", err)
		}
		return s, nil
	case config.StoreDriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
