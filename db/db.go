// Package db holds the data model, migrations, and the Store used by every
// service. One relational store backs the whole system; Postgres and SQLite
// are both supported, selected by the DATABASE_URL scheme.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
	_ "modernc.org/sqlite"             // cgo-free sqlite driver

	"github.com/jesposito/walkabout/config"
)

// Dialect identifies the backing engine, for the few places DDL diverges.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// DB wraps the sql.DB handle with its dialect.
type DB struct {
	conn    *sql.DB
	dialect Dialect
}

// Open connects to the configured store. Postgres URLs go through pgx;
// anything else is treated as a SQLite file path (":memory:" included).
// SQLite connections get foreign keys enabled at open.
func Open(cfg config.DatabaseConfig) (*DB, error) {
	var (
		driver  string
		dsn     string
		dialect Dialect
	)

	if strings.HasPrefix(cfg.URL, "postgres://") || strings.HasPrefix(cfg.URL, "postgresql://") {
		driver, dsn, dialect = "pgx", cfg.URL, DialectPostgres
	} else {
		driver, dialect = "sqlite", DialectSQLite
		dsn = cfg.URL + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
		if strings.Contains(cfg.URL, "?") {
			dsn = cfg.URL + "&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
		}
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}

	if cfg.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if dialect == DialectSQLite {
		// Single writer keeps SQLite happy under the scheduler's workers.
		conn.SetMaxOpenConns(1)
	}
	conn.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}

	return &DB{conn: conn, dialect: dialect}, nil
}

// Dialect returns the backing engine.
func (d *DB) Dialect() Dialect { return d.dialect }

// Conn exposes the raw handle for migrations and the backup service.
func (d *DB) Conn() *sql.DB { return d.conn }

// Close closes the underlying pool.
func (d *DB) Close() error { return d.conn.Close() }
