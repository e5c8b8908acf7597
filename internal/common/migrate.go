package common

import (
	"errors"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// NewMigrator opens the migrations found at source, e.g. "file://migrations",
// against the database at dsn.
func NewMigrator(source, dsn string) (*migrate.Migrate, error) {
	return migrate.New(source, dsn)
}

// Migrate applies every pending up migration.
func Migrate(source, dsn string) (*migrate.Migrate, error) {
	m, err := NewMigrator(source, dsn)
	if err != nil {
		return nil, err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return nil, err
	}

	return m, nil
}
