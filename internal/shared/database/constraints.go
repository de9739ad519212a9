package database

import (
	"fmt"

	"eventhub/internal/store/postgres"

	"gorm.io/gorm"
)

// constraintStatements returns the DDL that AutoMigrate cannot express.
func constraintStatements() []string {
	return []string{
		// one confirmed booking per user and event; cancelled rows do not count
		fmt.Sprintf(`
		CREATE UNIQUE INDEX IF NOT EXISTS %s
		ON bookings (user_id, event_id)
		WHERE status = 'CONFIRMED';`, postgres.ActiveBookingIndex),

		// seats never exceed a finite capacity
		`
		DO $$
		BEGIN
			IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_events_available_within_capacity') THEN
				ALTER TABLE events ADD CONSTRAINT chk_events_available_within_capacity
				CHECK (capacity IS NULL OR available_seats <= capacity);
			END IF;
		END $$;`,

		// reconciliation scans users that still hold booked events
		`
		CREATE INDEX IF NOT EXISTS idx_users_booked_events
		ON users USING GIN (booked_events);`,
	}
}

// MigrateConstraints adds the indexes and checks the booking core relies on
func MigrateConstraints(db *gorm.DB) error {
	for _, stmt := range constraintStatements() {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
