package database

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/tubtip/tubtip/internal/pkg/logger"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// ErrMigrationsUnsupported is returned for SQLite URLs, which use AutoMigrate.
var ErrMigrationsUnsupported = errors.New("migrations require a MySQL database url")

// MigrationSource exposes the embedded migration files.
func MigrationSource() (source.Driver, error) {
	return iofs.New(migrationFiles, "migrations")
}

// Migrator applies the embedded schema migrations.
type Migrator struct {
	m *migrate.Migrate
}

func NewMigrator(databaseURL string) (*Migrator, error) {
	if strings.HasPrefix(databaseURL, sqlitePrefix) {
		return nil, ErrMigrationsUnsupported
	}
	src, err := MigrationSource()
	if err != nil {
		return nil, fmt.Errorf("load migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, migrateURL(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("init migrate: %w", err)
	}
	return &Migrator{m: m}, nil
}

// migrateURL turns a go-sql-driver DSN into the URL golang-migrate expects.
func migrateURL(dsn string) string {
	dsn = strings.TrimPrefix(dsn, "mysql://")
	if !strings.Contains(dsn, "multiStatements=") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "multiStatements=true"
	}
	return "mysql://" + dsn
}

// Up applies every pending migration. No pending migration is not an error.
func (m *Migrator) Up() error {
	err := m.m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		log := logger.WithComponent("migrate")
		log.Info().Msg("no change: database is up to date")
		return nil
	}
	return err
}

// Down rolls back the latest migration.
func (m *Migrator) Down() error {
	return m.m.Steps(-1)
}

func (m *Migrator) Goto(version uint) error {
	return m.m.Migrate(version)
}

// Status returns the current version and whether it is dirty.
func (m *Migrator) Status() (version uint, dirty bool, err error) {
	version, dirty, err = m.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	return errors.Join(srcErr, dbErr)
}
