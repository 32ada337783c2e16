package main

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func connectDBWithRetry(dsn string, attempts int, delay time.Duration, sugar *zap.SugaredLogger) (*sql.DB, error) {
	var db *sql.DB
	var err error

	for i := 0; i < attempts; i++ {
		db, err = sql.Open("postgres", dsn)
		if err == nil {
			if err = db.Ping(); err == nil {
				return db, nil
			}
			_ = db.Close()
		}
		sugar.Warnf("db ping error: %v (attempt %d/%d)", err, i+1, attempts)
		time.Sleep(delay)
	}
	return nil, fmt.Errorf("db connect failed: %w", err)
}

func newMigrator(dsn, migrationsDir string) (*migrate.Migrate, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("migration open db: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsDir, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("migration init: %w", err)
	}
	return m, nil
}

// runMigrations applies pending migrations, or with down set rolls back a
// single step.
func runMigrations(dsn, migrationsDir string, down bool, sugar *zap.SugaredLogger) error {
	sugar.Infof("running migrations from %s", migrationsDir)

	m, err := newMigrator(dsn, migrationsDir)
	if err != nil {
		return err
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			sugar.Warnf("closing migrator: %v %v", srcErr, dbErr)
		}
	}()

	if down {
		err = m.Steps(-1)
	} else {
		err = m.Up()
	}
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		sugar.Info("no migrations to apply")
		return nil
	case err != nil:
		return fmt.Errorf("migrate: %w", err)
	}

	if version, dirty, verr := m.Version(); verr == nil {
		sugar.Infow("migrations applied", "version", version, "dirty", dirty)
	}
	return nil
}
