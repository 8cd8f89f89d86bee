package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresStore persists rows as jsonb documents in a single relation keyed
// by (tbl, id). Every method issues exactly one statement and never opens a
// transaction, so the store behaves like the one-row-at-a-time backend the
// engine is specified against. The primary key on (tbl, id) is what turns a
// duplicate append into ErrConflict.
type PostgresStore struct {
	db      *sqlx.DB
	timeout time.Duration
}

// Schema is the DDL for the backing relation. Applied by the operator or the
// seed tool, not by the server.
const Schema = `
CREATE TABLE IF NOT EXISTS sheet_rows (
    tbl        TEXT        NOT NULL,
    id         TEXT        NOT NULL,
    doc        JSONB       NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (tbl, id)
);
`

// NewPostgresStore wraps an open connection. timeout bounds every store
// call; a deadline hit surfaces to callers as a plain error they report as
// store-unavailable.
func NewPostgresStore(db *sqlx.DB, timeout time.Duration) *PostgresStore {
	return &PostgresStore{db: db, timeout: timeout}
}

// Connect opens a Postgres connection with pool settings suitable for many
// short-lived requests.
func Connect(url string, maxConns, maxIdle int, connMaxLifetime time.Duration) (*sqlx.DB, error) {
	if url == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := sqlx.Connect("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(connMaxLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

func (s *PostgresStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// FindRows reads the whole table and filters in memory. Tables are small
// sheet-sized collections; scanning keeps the store contract down to a
// single read per call.
func (s *PostgresStore) FindRows(ctx context.Context, table string, pred Predicate) ([]Row, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `SELECT doc FROM sheet_rows WHERE tbl = $1 ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("failed to scan table %s: %w", table, err)
	}
	defer rows.Close()

	var result []Row
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to read row from %s: %w", table, err)
		}
		row := Row{}
		if err := json.Unmarshal(doc, &row); err != nil {
			return nil, fmt.Errorf("malformed row in %s: %w", table, err)
		}
		if pred == nil || pred(row) {
			result = append(result, row)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan table %s: %w", table, err)
	}
	return result, nil
}

// AppendRow inserts the row, translating a primary-key violation into
// ErrConflict.
func (s *PostgresStore) AppendRow(ctx context.Context, table string, row Row) error {
	id := row.ID()
	if id == "" {
		return fmt.Errorf("row for table %s has no id", table)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	doc, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to encode row %s/%s: %w", table, id, err)
	}

	query := `INSERT INTO sheet_rows (tbl, id, doc) VALUES ($1, $2, $3)`
	if _, err := s.db.ExecContext(ctx, query, table, id, doc); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("failed to append row %s/%s: %w", table, id, err)
	}
	return nil
}

// UpdateRow merges fields into the stored document with a single statement.
func (s *PostgresStore) UpdateRow(ctx context.Context, table string, id string, fields Row) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	patch, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode update for %s/%s: %w", table, id, err)
	}

	query := `UPDATE sheet_rows SET doc = doc || $3, updated_at = now() WHERE tbl = $1 AND id = $2`
	res, err := s.db.ExecContext(ctx, query, table, id, patch)
	if err != nil {
		return fmt.Errorf("failed to update row %s/%s: %w", table, id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update row %s/%s: %w", table, id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)
