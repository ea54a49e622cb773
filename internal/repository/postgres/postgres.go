package postgres

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"math-chat/internal/config"
	"math-chat/internal/logger"
	"math-chat/internal/repository/db"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/lib/pq"
)

// Ensure PostgresStore implements db.Store interface
var _ db.Store = (*PostgresStore)(nil)

// PostgresStore implements the db.Store interface
type PostgresStore struct {
	conn *sql.DB
}

// NewPostgresStore creates a new PostgresStore with a new connection
// and runs pending migrations.
func NewPostgresStore(dbConfig config.DatabaseConfig) (*PostgresStore, error) {
	conn, err := sql.Open("postgres", dbConfig.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err = conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	logger.Log.Info("Successfully connected to PostgreSQL")

	store := &PostgresStore{conn: conn}

	if err = store.RunMigrations(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("error running migrations: %w", err)
	}

	return store, nil
}

// Close closes the database connection
func (p *PostgresStore) Close() error {
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// RunMigrations runs database migrations using golang-migrate
func (p *PostgresStore) RunMigrations() error {
	driver, err := migratepg.WithInstance(p.conn, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("error creating migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres", driver)
	if err != nil {
		return fmt.Errorf("error creating migration instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("error running migrations: %w", err)
	}

	logger.Log.Info("Database migrations applied successfully")
	return nil
}

// mapStoreError translates driver-level failures onto the db error
// taxonomy so callers never see pq internals.
func mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return db.ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Name() {
		case "unique_violation":
			return fmt.Errorf("%w: %s", db.ErrUniqueViolation, pqErr.Message)
		case "foreign_key_violation":
			return fmt.Errorf("%w: %s", db.ErrReferentialViolation, pqErr.Message)
		}
		// Class 08 covers connection exceptions.
		if pqErr.Code.Class() == "08" {
			return fmt.Errorf("%w: %s", db.ErrUnavailable, pqErr.Message)
		}
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, driver.ErrBadConn) {
		return fmt.Errorf("%w: %v", db.ErrUnavailable, err)
	}

	return err
}
