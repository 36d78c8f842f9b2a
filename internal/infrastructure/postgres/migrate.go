package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"
)

func newMigrator(dsn, dir string) (*migrate.Migrate, func(), error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, nil, err
	}
	driver, err := pgmigrate.WithInstance(db, &pgmigrate.Config{})
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", dir), "postgres", driver)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return m, func() { _, _ = m.Close() }, nil
}

// MigrateUp applies every pending migration in dir. No pending change is not an error.
func MigrateUp(dsn, dir string, logger *logrus.Logger) error {
	m, done, err := newMigrator(dsn, dir)
	if err != nil {
		return err
	}
	defer done()

	logger.WithField("dir", dir).Info("running migrations")
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("no migrations to run")
			return nil
		}
		return err
	}
	return nil
}

// MigrateDown rolls back steps migrations.
func MigrateDown(dsn, dir string, steps int, logger *logrus.Logger) error {
	m, done, err := newMigrator(dsn, dir)
	if err != nil {
		return err
	}
	defer done()

	if steps < 1 {
		steps = 1
	}
	logger.WithFields(logrus.Fields{"dir": dir, "steps": steps}).Info("rolling back migrations")
	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
