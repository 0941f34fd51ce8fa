package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/vbonduro/photato/internal/config"
)

//go:embed migrations
var migrationsFS embed.FS

// Open connects to the configured database and applies any pending
// migrations before returning.
func Open(cfg config.DBConfig) (*sql.DB, error) {
	driver, dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := migrateUp(cfg.Dialect, driver, dsn); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("failed to run migrations: %w (also failed to close db: %v)", err, cerr)
		}
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// Migrate applies pending migrations without keeping a connection open.
func Migrate(cfg config.DBConfig) error {
	driver, dsn, err := cfg.DSN()
	if err != nil {
		return err
	}
	return migrateUp(cfg.Dialect, driver, dsn)
}

// OpenForTesting returns a private in-memory sqlite database with the schema
// applied. The pool is limited to one connection, which also keeps the
// in-memory database alive until Close.
func OpenForTesting() (*sql.DB, error) {
	dsn := fmt.Sprintf("file:photato-%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := migrateUp(config.DialectSQLite, "sqlite", dsn); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// migrateUp runs the embedded migrations for dialect on a dedicated pool.
// golang-migrate closes the *sql.DB it is handed, so the caller's pool is
// never passed in.
func migrateUp(dialect, driver, dsn string) (err error) {
	src, err := iofs.New(migrationsFS, "migrations/"+dialect)
	if err != nil {
		return fmt.Errorf("failed to read migrations for %s: %w", dialect, err)
	}

	mdb, err := sql.Open(driver, dsn)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}

	target, err := migrationDriver(dialect, mdb)
	if err != nil {
		_ = mdb.Close()
		return err
	}

	m, err := migrate.NewWithInstance("iofs", src, dialect, target)
	if err != nil {
		_ = mdb.Close()
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if cerr := errors.Join(srcErr, dbErr); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close migrations: %w", cerr)
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

func migrationDriver(dialect string, mdb *sql.DB) (database.Driver, error) {
	var (
		d   database.Driver
		err error
	)
	switch dialect {
	case config.DialectSQLite:
		d, err = migratesqlite.WithInstance(mdb, &migratesqlite.Config{})
	case config.DialectPostgres:
		d, err = migratepostgres.WithInstance(mdb, &migratepostgres.Config{})
	case config.DialectMySQL:
		d, err = migratemysql.WithInstance(mdb, &migratemysql.Config{})
	default:
		return nil, fmt.Errorf("unsupported database dialect %q", dialect)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s migration driver: %w", dialect, err)
	}
	return d, nil
}
