package bookings_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"eventhub/internal/bookings"
	"eventhub/internal/shared/database"
	"eventhub/internal/store/memory"
	mongostore "eventhub/internal/store/mongo"
	pgstore "eventhub/internal/store/postgres"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Database backends run only when a test server is configured, e.g.
//
//	EVENTHUB_TEST_POSTGRES_DSN="host=localhost user=postgres password=postgres dbname=eventhub_test sslmode=disable"
//	EVENTHUB_TEST_MONGO_URI="mongodb://localhost:27017/?replicaSet=rs0"
//
// Mongo needs a replica set for multi-document transactions.
const (
	postgresDSNEnv = "EVENTHUB_TEST_POSTGRES_DSN"
	mongoURIEnv    = "EVENTHUB_TEST_MONGO_URI"
)

type storeFactory struct {
	name string
	open func(t *testing.T) bookings.Store
	// optimistic stores abort conflicting transactions instead of queueing
	// them, so heavy contention can end in a transient failure
	optimistic bool
}

func storeFactories() []storeFactory {
	return []storeFactory{
		{name: "memory", open: func(*testing.T) bookings.Store { return memory.New() }},
		{name: "postgres", open: openPostgresStore},
		{name: "mongo", open: openMongoStore, optimistic: true},
	}
}

// forEachStore runs test once per backend as a subtest
func forEachStore(t *testing.T, test func(t *testing.T, sf storeFactory)) {
	for _, sf := range storeFactories() {
		t.Run(sf.name, func(t *testing.T) {
			test(t, sf)
		})
	}
}

func openPostgresStore(t *testing.T) bookings.Store {
	t.Helper()
	dsn := os.Getenv(postgresDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", postgresDSNEnv)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.MigrateConstraints(db))
	require.NoError(t, db.Exec("TRUNCATE TABLE bookings, events, users CASCADE").Error)

	return pgstore.New(db)
}

func openMongoStore(t *testing.T) bookings.Store {
	t.Helper()
	uri := os.Getenv(mongoURIEnv)
	if uri == "" {
		t.Skipf("%s not set", mongoURIEnv)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)

	name := "eventhub_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = client.Database(name).Drop(ctx)
		_ = client.Disconnect(ctx)
	})

	s := mongostore.New(client, name)
	require.NoError(t, s.EnsureIndexes(ctx))
	return s
}
