package database

import (
	"eventhub/internal/bookings"
	"eventhub/internal/events"
	"eventhub/internal/users"

	"gorm.io/gorm"
)

// Migrate creates or updates the booking core tables
func Migrate(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		return err
	}
	return db.AutoMigrate(
		&users.User{},
		&events.Event{},
		&bookings.Booking{},
	)
}
