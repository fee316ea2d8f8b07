package postgres

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // register postgres driver
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Migrations locates a set of migration files inside a filesystem, usually
// an embed.FS compiled into the binary.
type Migrations struct {
	FS  fs.FS
	Dir string
}

func (m Migrations) open(dsn string) (*migrate.Migrate, error) {
	src, err := iofs.New(m.FS, m.Dir)
	if err != nil {
		return nil, fmt.Errorf("postgres: open migration source: %w", err)
	}
	mg, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: create migrator: %w", err)
	}
	return mg, nil
}

// Up applies all pending migrations. No pending migrations is not an error.
func (m Migrations) Up(dsn string) error {
	mg, err := m.open(dsn)
	if err != nil {
		return err
	}
	defer mg.Close()

	if err := mg.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("postgres: run migrations up: %w", err)
	}
	return nil
}

// Down rolls back steps migrations, or all of them when steps <= 0.
func (m Migrations) Down(dsn string, steps int) error {
	mg, err := m.open(dsn)
	if err != nil {
		return err
	}
	defer mg.Close()

	if steps > 0 {
		err = mg.Steps(-steps)
	} else {
		err = mg.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("postgres: run migrations down: %w", err)
	}
	return nil
}

// Version reports the applied schema version and whether the last
// migration left the schema dirty. A fresh database reports version 0.
func (m Migrations) Version(dsn string) (uint, bool, error) {
	mg, err := m.open(dsn)
	if err != nil {
		return 0, false, err
	}
	defer mg.Close()

	v, dirty, err := mg.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("postgres: read migration version: %w", err)
	}
	return v, dirty, nil
}
