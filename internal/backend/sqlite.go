package backend

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// sqliteEngine stores records in a single SQLite database.
// WAL mode allows concurrent readers while a write is in flight.
type sqliteEngine struct {
	db *sql.DB
}

// openSQLite creates or opens the database at path and applies the
// required pragmas and schema. Idempotent.
func openSQLite(path string) (*sqliteEngine, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY under concurrent workers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &sqliteEngine{db: db}, nil
}

func (e *sqliteEngine) load(ctx context.Context, ns string, digest []byte) ([]byte, error) {
	var payload []byte
	err := e.db.QueryRowContext(ctx,
		"SELECT payload FROM records WHERE ns = ? AND digest = ?", ns, digest,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errEngineNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select record: %w", err)
	}
	return payload, nil
}

func (e *sqliteEngine) save(ctx context.Context, ns string, digest []byte, data []byte) error {
	_, err := e.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO records (ns, digest, payload) VALUES (?, ?, ?)", ns, digest, data)
	if err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	return nil
}

func (e *sqliteEngine) remove(ctx context.Context, ns string, digest []byte) error {
	_, err := e.db.ExecContext(ctx,
		"DELETE FROM records WHERE ns = ? AND digest = ?", ns, digest)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}

func (e *sqliteEngine) close() error {
	if e.db == nil {
		return nil
	}
	return e.db.Close()
}
