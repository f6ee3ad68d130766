// Package sqlite implements the repository interfaces on top of SQLite.
//
// WHAT LIVES HERE?
// Only server-side state this process owns: sign-in sessions and the cached
// email → GitHub username mappings. Everything else (repositories, analyses,
// pull requests) belongs to the SonarHub backend and is fetched over GraphQL.
//
// WHY modernc.org/sqlite?
// It is a pure Go translation of SQLite, so the binary builds without a C
// toolchain and cross-compiles like any other Go program.
//
// The database/sql pattern is always the same:
//  1. sql.Open(driverName, dataSourceName) → creates a pool
//  2. db.QueryContext / db.ExecContext     → runs queries
//  3. rows.Scan(&field1, &field2)          → reads results into Go variables
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database. Used by tests.
const MemoryPath = ":memory:"

// DB wraps a sql.DB connection pool and implements both
// repository.SessionRepository and repository.IdentityRepository.
type DB struct {
	conn *sql.DB
}

// New opens the SQLite database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/sonarhub.db" → file-based database (sessions survive restarts)
//   - ":memory:"         → in-memory database (tests)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// IN-MEMORY POOLS:
	// Every connection to ":memory:" gets its own empty database. Pinning the
	// pool to one connection keeps all queries on the same data.
	if dbPath == MemoryPath {
		conn.SetMaxOpenConns(1)
	}

	// Ping forces a real connection so a bad path fails here, not on the
	// first sign-in.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL mode lets page loads read sessions while a sign-in is writing.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable. Used by /healthz.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// migrate creates the tables this process owns.
//
// CREATE TABLE IF NOT EXISTS is idempotent, and later columns are added with
// addColumnIfNotExists, so running migrate on every start is safe.
func (db *DB) migrate() error {
	// sessions: auth_token and user_email are the two persisted values of a
	// signed-in browser. They are NOT NULL because they are never stored apart.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id          TEXT PRIMARY KEY,
			auth_token  TEXT NOT NULL,
			user_email  TEXT NOT NULL,
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_sessions_created_at ON sessions(created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating sessions table: %w", err)
	}

	// identities: one row per email that resolved to a GitHub username.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS identities (
			email           TEXT PRIMARY KEY,
			github_username TEXT NOT NULL,
			updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating identities table: %w", err)
	}

	// The display name arrived after the first release of the identities table.
	if err := db.addColumnIfNotExists("identities", "name",
		"TEXT NOT NULL DEFAULT ''"); err != nil {
		return fmt.Errorf("adding name to identities: %w", err)
	}

	return nil
}

// addColumnIfNotExists adds a column to a table only if it doesn't already exist.
// Makes ALTER TABLE migrations idempotent.
func (db *DB) addColumnIfNotExists(table, column, definition string) error {
	var count int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
		table, column,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	if count > 0 {
		return nil // column already exists
	}
	_, err = db.conn.Exec(fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN %s %s`, table, column, definition,
	))
	return err
}
