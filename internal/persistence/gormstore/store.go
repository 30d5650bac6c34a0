// Package gormstore implements the persistence repositories on top of gorm,
// backed by SQLite (modernc driver) or PostgreSQL.
package gormstore

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/council-portal/internal/persistence"
)

// Store implements every persistence repository over a single gorm handle.
type Store struct {
	db *gorm.DB
}

var (
	_ persistence.MemberRepository      = (*Store)(nil)
	_ persistence.SessionRepository     = (*Store)(nil)
	_ persistence.ConvocationRepository = (*Store)(nil)
	_ persistence.MinutesRepository     = (*Store)(nil)
)

// Options tunes Open.
type Options struct {
	// Debug logs every SQL statement through gorm's logger.
	Debug bool
}

// Open connects to the database named by dsn. Postgres URLs and keyword DSNs
// select the postgres dialect, anything else is treated as SQLite.
func Open(dsn string, opts Options) (*Store, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("database DSN is empty")
	}
	if IsPostgresDSN(dsn) {
		return openGorm(postgres.Open(dsn), opts)
	}
	return OpenSQLite(DefaultSQLiteConfig(dsn), opts)
}

// OpenSQLite opens a SQLite database with explicit connection settings.
func OpenSQLite(cfg SQLiteConfig, opts Options) (*Store, error) {
	conn, err := openSQLite(cfg)
	if err != nil {
		return nil, err
	}
	store, err := openGorm(&sqlite.Dialector{DriverName: "sqlite", Conn: conn}, opts)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return store, nil
}

// IsPostgresDSN reports whether dsn targets PostgreSQL.
func IsPostgresDSN(dsn string) bool {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	return strings.HasPrefix(lower, "postgres://") ||
		strings.HasPrefix(lower, "postgresql://") ||
		strings.HasPrefix(lower, "host=")
}

func openGorm(dialector gorm.Dialector, opts Options) (*Store, error) {
	level := logger.Silent
	if opts.Debug {
		level = logger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &Store{db: db}, nil
}

// Migrate creates or updates the schema for every model.
func (s *Store) Migrate(ctx context.Context) error {
	models := []any{
		&persistence.Member{},
		&persistence.Session{},
		&persistence.AgendaItem{},
		&persistence.Convocation{},
		&persistence.Minutes{},
	}
	for _, model := range models {
		if err := s.db.WithContext(ctx).AutoMigrate(model); err != nil {
			return fmt.Errorf("automigrate %T: %w", model, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// DB exposes the gorm handle for tests and tooling.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// withTransaction runs fn inside a transaction, rolling back when it fails.
func (s *Store) withTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}
