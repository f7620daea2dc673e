package db

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
	_ "modernc.org/sqlite"

	"resume-assist/internal/config"
	"resume-assist/internal/models"
)

// NewDB wraps an open sql.DB with the dialect for driver.
func NewDB(sqldb *sql.DB, driver string, debug bool) *bun.DB {
	var db *bun.DB
	if driver == config.DriverSqlite {
		db = bun.NewDB(sqldb, sqlitedialect.New())
	} else {
		db = bun.NewDB(sqldb, pgdialect.New())
	}
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// ConnectDB opens the configured database. No connection is made until the
// first query.
func ConnectDB(cfg *config.DatabaseConfig) (*bun.DB, error) {
	var sqldb *sql.DB
	var err error
	switch cfg.Driver {
	case config.DriverPgdriver:
		sqldb = sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN)))
	case config.DriverPq:
		sqldb, err = sql.Open("postgres", cfg.DSN)
	case config.DriverSqlite:
		sqldb, err = sql.Open("sqlite", cfg.DSN)
		if err == nil {
			sqldb.SetMaxOpenConns(1)
		}
	default:
		return nil, fmt.Errorf("%w: unknown database driver %q", models.ErrInvalidConfig, cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	return NewDB(sqldb, cfg.Driver, cfg.Debug), nil
}
