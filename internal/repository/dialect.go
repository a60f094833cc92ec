package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect captures the few places where PostgreSQL and SQLite disagree.
// Queries are written with $n placeholders.
type Dialect struct {
	Name       string
	DriverName string
	// LockClause is appended to row reads that precede a balance update.
	LockClause string
}

var (
	Postgres = Dialect{Name: "postgres", DriverName: "postgres", LockClause: "FOR UPDATE"}
	// SQLite serialises writers at the database level, so row locks are not
	// needed.
	SQLite = Dialect{Name: "sqlite", DriverName: "sqlite"}
)

func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case Postgres.Name, "postgresql":
		return Postgres, nil
	case SQLite.Name, "sqlite3":
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported sql dialect %q", name)
	}
}

// rebind rewrites $n placeholders into SQLite's ?n form.
func (d Dialect) rebind(query string) string {
	if d.Name != SQLite.Name {
		return query
	}
	return strings.ReplaceAll(query, "$", "?")
}

func (d Dialect) forUpdate(query string) string {
	if d.LockClause == "" {
		return query
	}
	return query + " " + d.LockClause
}

// SQLiteDSN builds a modernc DSN for a database file with foreign keys
// enforced on every connection.
func SQLiteDSN(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Open connects to the database and applies pool settings suited to the
// dialect.
func Open(d Dialect, dsn string) (*sql.DB, error) {
	db, err := sql.Open(d.DriverName, dsn)
	if err != nil {
		return nil, err
	}

	if d.Name == SQLite.Name {
		// One connection keeps writers from tripping over SQLITE_BUSY.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
