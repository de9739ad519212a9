package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"eventhub/internal/bookings"
	"eventhub/internal/events"
	"eventhub/internal/shared/config"
	"eventhub/internal/shared/database"
	"eventhub/internal/shared/middleware"
	"eventhub/internal/store"
	"eventhub/internal/store/mongo"
	"eventhub/internal/users"
	"eventhub/pkg/logger"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/bson"
)

type Seeder struct {
	cfg   *config.Config
	db    *database.DB
	store bookings.Store
}

// devAccount is a seeded identity with a ready-made bearer token
type devAccount struct {
	label string
	id    uuid.UUID
	role  users.Role
}

func main() {
	fmt.Println("🌱 Starting EventHub seeder...")
	_ = godotenv.Load()

	cfg := config.Load()
	ctx := context.Background()
	l := logger.Discard()

	db, err := database.InitDB(ctx, cfg, l)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	s, err := store.Open(ctx, cfg, db)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}

	seeder := &Seeder{cfg: cfg, db: db, store: s}

	fmt.Println("\n🧹 Cleaning database...")
	if err := seeder.CleanDatabase(ctx); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}
	fmt.Println("✅ Database cleaned successfully")

	fmt.Println("\n🌱 Seeding database...")
	accounts := []devAccount{
		{label: "organizer", id: uuid.New(), role: users.RoleOrganizer},
		{label: "admin", id: uuid.New(), role: users.RoleAdmin},
		{label: "alice", id: uuid.New(), role: users.RoleUser},
		{label: "bob", id: uuid.New(), role: users.RoleUser},
	}
	if err := seeder.SeedEvents(ctx, accounts[0].id); err != nil {
		log.Fatalf("Failed to seed events: %v", err)
	}
	fmt.Println("✅ Database seeded successfully")

	fmt.Println("\n🔑 Development tokens (valid 24h):")
	for _, a := range accounts {
		tok, err := middleware.IssueAccessToken(cfg.JWT.Secret, a.id, a.role, 24*time.Hour)
		if err != nil {
			log.Fatalf("Failed to issue token for %s: %v", a.label, err)
		}
		fmt.Printf("  %-10s %-10s %s\n    %s\n", a.label, a.role, a.id, tok)
	}

	fmt.Println("\n🎉 Seeding completed! Database is ready for testing.")
}

// CleanDatabase empties the booking core tables or collections
func (s *Seeder) CleanDatabase(ctx context.Context) error {
	switch {
	case s.db.PostgreSQL != nil:
		for _, table := range []string{"bookings", "events", "users"} {
			fmt.Printf("  Truncating table: %s\n", table)
			if err := s.db.PostgreSQL.WithContext(ctx).Exec("TRUNCATE TABLE " + table + " CASCADE").Error; err != nil {
				return fmt.Errorf("failed to truncate %s: %w", table, err)
			}
		}
	case s.db.Mongo != nil:
		database := s.db.Mongo.Database(s.cfg.Mongo.Database)
		for _, name := range []string{mongo.BookingsCollection, mongo.EventsCollection, mongo.UsersCollection} {
			fmt.Printf("  Clearing collection: %s\n", name)
			if _, err := database.Collection(name).DeleteMany(ctx, bson.M{}); err != nil {
				return fmt.Errorf("failed to clear %s: %w", name, err)
			}
		}
	}
	return nil
}

// SeedEvents creates a mix of limited, unlimited, concluded and undated events
func (s *Seeder) SeedEvents(ctx context.Context, organizerID uuid.UUID) error {
	now := time.Now().UTC()
	at := func(d time.Duration) *time.Time {
		t := now.Add(d)
		return &t
	}
	seats := func(n int) *int { return &n }

	catalog := []*events.Event{
		{
			Name:        "Go Meetup: Concurrency Patterns",
			Description: "Small room, first come first served.",
			Capacity:    seats(5),
			StartsAt:    at(72 * time.Hour),
			EndsAt:      at(75 * time.Hour),
		},
		{
			Name:        "Cloud Native Summit",
			Description: "Main hall keynote and breakout tracks.",
			Capacity:    seats(500),
			StartsAt:    at(30 * 24 * time.Hour),
			EndsAt:      at(32 * 24 * time.Hour),
		},
		{
			Name:        "Open Air Jazz",
			Description: "Park concert without a seat limit.",
			StartsAt:    at(14 * 24 * time.Hour),
		},
		{
			Name:        "Last Week's Workshop",
			Description: "Already concluded, useful for reconciliation.",
			Capacity:    seats(20),
			StartsAt:    at(-7 * 24 * time.Hour),
			EndsAt:      at(-7*24*time.Hour + 3*time.Hour),
		},
		{
			Name:        "Date To Be Announced",
			Description: "No schedule yet.",
			Capacity:    seats(50),
		},
	}

	return s.store.WithinTx(ctx, func(ctx context.Context, tx bookings.Tx) error {
		for _, e := range catalog {
			e.OrganizerID = organizerID
			if err := tx.Events().CreateEvent(ctx, e); err != nil {
				return fmt.Errorf("failed to create event %q: %w", e.Name, err)
			}
			capacity := "unlimited"
			if e.Capacity != nil {
				capacity = fmt.Sprintf("%d seats", *e.Capacity)
			}
			fmt.Printf("    ✅ Created event: %s (%s) %s\n", e.Name, capacity, e.ID)
		}
		return nil
	})
}
