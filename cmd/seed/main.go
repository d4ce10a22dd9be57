package main

import (
	"fmt"
	"log"
	"time"

	"boleto/internal/events"
	"boleto/internal/shared/config"
	"boleto/internal/shared/database"
	"boleto/internal/users"

	"golang.org/x/crypto/bcrypt"
)

type Seeder struct {
	db *database.DB
}

func main() {
	fmt.Println("Starting Boleto database seeder...")

	cfg := config.Load()

	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	seeder := &Seeder{db: db}

	fmt.Println("Cleaning database...")
	if err := seeder.CleanDatabase(); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}

	fmt.Println("Seeding database...")
	if err := seeder.SeedAll(); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}

	fmt.Println("Seeding completed. Database is ready for testing.")
}

// CleanDatabase truncates all tables in reverse dependency order
func (s *Seeder) CleanDatabase() error {
	tables := []string{
		"sold_seats",
		"sales",
		"session_seats",
		"sessions",
		"events",
		"users",
	}

	tx := s.db.PostgreSQL.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Exec("SET CONSTRAINTS ALL DEFERRED").Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to defer constraints: %w", err)
	}

	for _, table := range tables {
		fmt.Printf("  Truncating table: %s\n", table)
		if err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return tx.Commit().Error
}

// SeedAll inserts the demo users and events
func (s *Seeder) SeedAll() error {
	admin, err := s.seedUser("Admin", "User", "admin@boleto.dev", "admin123", users.RoleAdmin)
	if err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}
	fmt.Printf("  Created admin user: %s\n", admin.Email)

	buyer, err := s.seedUser("Maria", "Gomez", "maria@boleto.dev", "maria123", users.RoleUser)
	if err != nil {
		return fmt.Errorf("failed to seed buyer: %w", err)
	}
	fmt.Printf("  Created buyer user: %s\n", buyer.Email)

	demoEvents := []events.Event{
		{
			Name:         "Orquesta Nacional en Vivo",
			Description:  "Symphonic night at the grand hall",
			Venue:        "Teatro Colon",
			DateTime:     time.Now().AddDate(0, 1, 0),
			TotalRows:    10,
			TotalColumns: 12,
			Price:        45.00,
			Status:       events.StatusPublished,
			CreatedBy:    admin.ID,
		},
		{
			Name:         "Indie Rock Festival",
			Description:  "Three bands, one stage",
			Venue:        "Estadio Abierto",
			DateTime:     time.Now().AddDate(0, 2, 0),
			TotalRows:    25,
			TotalColumns: 40,
			Price:        30.00,
			Status:       events.StatusPublished,
			CreatedBy:    admin.ID,
		},
		{
			Name:         "Stand-up Comedy Night",
			Description:  "Not announced yet",
			Venue:        "Club de la Comedia",
			DateTime:     time.Now().AddDate(0, 3, 0),
			TotalRows:    8,
			TotalColumns: 10,
			Price:        15.00,
			Status:       events.StatusDraft,
			CreatedBy:    admin.ID,
		},
	}

	for i := range demoEvents {
		if err := s.db.PostgreSQL.Create(&demoEvents[i]).Error; err != nil {
			return fmt.Errorf("failed to seed event %q: %w", demoEvents[i].Name, err)
		}
		fmt.Printf("  Created event: %s (%dx%d seats)\n",
			demoEvents[i].Name, demoEvents[i].TotalRows, demoEvents[i].TotalColumns)
	}

	return nil
}

func (s *Seeder) seedUser(firstName, lastName, email, password string, role users.Role) (*users.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &users.User{
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		Password:  string(hashed),
		Role:      role,
	}

	if err := s.db.PostgreSQL.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}
