package database

import (
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// New opens and pings the database. SQLite is limited to a single connection
// so that the process is the only writer and in-memory databases are shared.
func New(driver, dsn string, maxOpenConns int) (*sqlx.DB, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
		return db, nil
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// LikePattern turns text into a lower-cased substring pattern for
// `LOWER(col) LIKE ? ESCAPE '\'`, with LIKE wildcards in text matched literally.
func LikePattern(text string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(text)) + "%"
}
