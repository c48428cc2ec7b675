package postgres

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/cory-johannsen/wordrace/migrations"
)

// Migrator applies schema migrations with golang-migrate.
type Migrator struct {
	m *migrate.Migrate
}

// NewMigrator opens the embedded migrations against dsn.
func NewMigrator(dsn string) (*Migrator, error) {
	return newMigratorFS(migrations.FS, dsn)
}

// NewMigratorFromURL opens migrations from a golang-migrate source URL such
// as "file://migrations".
func NewMigratorFromURL(sourceURL, dsn string) (*Migrator, error) {
	m, err := migrate.New(sourceURL, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating migrator for %s: %w", sourceURL, err)
	}
	return &Migrator{m: m}, nil
}

func newMigratorFS(fsys fs.FS, dsn string) (*Migrator, error) {
	src, err := iofs.New(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("opening embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating migrator: %w", err)
	}
	return &Migrator{m: m}, nil
}

// Up applies steps pending migrations, or all of them when steps is 0.
//
// Postcondition: changed is false when the schema was already current.
func (g *Migrator) Up(steps int) (changed bool, err error) {
	if steps > 0 {
		err = g.m.Steps(steps)
	} else {
		err = g.m.Up()
	}
	return result(err)
}

// Down reverts steps migrations, or all of them when steps is 0.
func (g *Migrator) Down(steps int) (changed bool, err error) {
	if steps > 0 {
		err = g.m.Steps(-steps)
	} else {
		err = g.m.Down()
	}
	return result(err)
}

func result(err error) (bool, error) {
	if errors.Is(err, migrate.ErrNoChange) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("migrating: %w", err)
	}
	return true, nil
}

// Version reports the applied schema version.
func (g *Migrator) Version() (version uint, dirty bool, err error) {
	version, dirty, err = g.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// Close releases the source and database handles.
func (g *Migrator) Close() error {
	srcErr, dbErr := g.m.Close()
	return errors.Join(srcErr, dbErr)
}
