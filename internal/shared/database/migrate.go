package database

import (
	"boleto/internal/events"
	"boleto/internal/sales"
	"boleto/internal/seats"
	"boleto/internal/sessions"
	"boleto/internal/users"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&users.User{},
		&events.Event{},
		&sessions.Session{},
		&sessions.SessionSeat{},
		&sales.Sale{},
		&seats.SoldSeat{},
	); err != nil {
		return err
	}
	return MigrateConstraints(db)
}
