package database

import (
	"gorm.io/gorm"
)

// MigrateConstraints adds the constraints the finalizer relies on for
// concurrency control. The unique index over (event_id, seat_row,
// seat_column) is what makes a double sale impossible: two transactions
// inserting the same seat can never both commit.
func MigrateConstraints(db *gorm.DB) error {
	err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS uniq_sold_seat_per_event
		ON sold_seats (event_id, seat_row, seat_column);
	`).Error
	if err != nil {
		return err
	}

	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_sessions_owner_state
		ON sessions (owner_id, state);
	`).Error
	if err != nil {
		return err
	}

	// Sweeper scans by expiry
	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_sessions_expires_at
		ON sessions (expires_at);
	`).Error
	if err != nil {
		return err
	}

	return nil
}
