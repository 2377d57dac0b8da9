package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"

	"ms-reservations/internal/config"
	"ms-reservations/internal/database"
	"ms-reservations/internal/database/migrations"
	"ms-reservations/internal/logger"
	"ms-reservations/internal/models"
)

func main() {
	reset := flag.Bool("reset", false, "drop every table before applying the schema")
	seed := flag.Bool("seed", false, "insert demo users, a location and a published event")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.NewLogger()
	defer log.Close()

	ctx := context.Background()
	bunDB, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()

	if err := applySchema(ctx, cfg, bunDB, *reset, log); err != nil {
		log.Fatal("MIGRATE", err.Error())
	}
	log.Info("MIGRATE", "✅ Schema is up to date")

	if *seed {
		if err := seedData(ctx, bunDB, log); err != nil {
			log.Fatal("SEED", err.Error())
		}
		log.Info("SEED", "✅ Demo data inserted")
	}
}

func applySchema(ctx context.Context, cfg *config.Config, bunDB *bun.DB, reset bool, log *logger.Logger) error {
	if cfg.Database.Driver != database.DriverPostgres {
		if reset {
			log.Warn("MIGRATE", "Dropping all tables")
			if err := database.DropSchema(ctx, bunDB); err != nil {
				return err
			}
		}
		return database.CreateSchema(ctx, bunDB)
	}

	// golang-migrate closes the connection it is handed.
	migDB, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer migDB.Close()

	runner := migrations.NewRunner(migDB, migrations.Options{MigrationsDir: cfg.Database.MigrationsDir}, log)
	defer runner.Close()

	if reset {
		log.Warn("MIGRATE", "Rolling back all migrations")
		if err := runner.MigrateDown(); err != nil {
			return err
		}
	}
	return runner.RunMigrations()
}

func seedData(ctx context.Context, bunDB *bun.DB, log *logger.Logger) error {
	now := time.Now().UTC()

	hash := func(password string) (string, error) {
		b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return "", fmt.Errorf("hash password: %w", err)
		}
		return string(b), nil
	}
	adminHash, err := hash("admin123")
	if err != nil {
		return err
	}
	participantHash, err := hash("participant123")
	if err != nil {
		return err
	}

	admin := &models.User{
		ID: uuid.NewString(), Email: "admin@example.com", PasswordHash: adminHash, FullName: "Platform Admin",
		Role: models.RoleAdmin, IsActive: true, CreatedAt: now, UpdatedAt: now,
	}
	participant := &models.User{
		ID: uuid.NewString(), Email: "participant@example.com", PasswordHash: participantHash, FullName: "Demo Participant",
		Role: models.RoleParticipant, IsActive: true, CreatedAt: now, UpdatedAt: now,
	}
	location := &models.Location{
		ID: uuid.NewString(), Name: "Main Conference Hall", AddressLine: "1 Avenue Mohammed V",
		City: "Rabat", Country: "Morocco", CreatedAt: now, UpdatedAt: now,
	}
	start := now.Add(14 * 24 * time.Hour).Truncate(time.Hour)
	end := start.Add(3 * time.Hour)
	event := &models.Event{
		ID: uuid.NewString(), Title: "Opening Keynote", Description: "Demo event created by the seeder",
		StartAt: start, EndAt: &end, Status: models.EventPublished, CapacityMax: 50,
		LocationID: location.ID, PublishedAt: &now, CreatedByID: admin.ID, CreatedAt: now, UpdatedAt: now,
	}

	return bunDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, u := range []*models.User{admin, participant} {
			exists, err := tx.NewSelect().Model((*models.User)(nil)).Where("email = ?", u.Email).Exists(ctx)
			if err != nil {
				return err
			}
			if exists {
				return fmt.Errorf("seed user %s already exists, run with -reset first", u.Email)
			}
			if _, err := tx.NewInsert().Model(u).Exec(ctx); err != nil {
				return fmt.Errorf("insert user %s: %w", u.Email, err)
			}
			log.LogDatabase("INSERT", "users", u.Email)
		}
		if _, err := tx.NewInsert().Model(location).Exec(ctx); err != nil {
			return fmt.Errorf("insert location: %w", err)
		}
		log.LogDatabase("INSERT", "locations", location.Name)
		if _, err := tx.NewInsert().Model(event).Exec(ctx); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
		log.LogDatabase("INSERT", "events", event.Title)
		return nil
	})
}
