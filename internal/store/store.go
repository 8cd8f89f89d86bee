package store

import (
	"context"
	"errors"
)

// Row is a single persisted record: column name to string value, mirroring
// the spreadsheet-style backing store the engine was designed against. Typed
// conversion is the job of the repositories layered on top.
type Row map[string]string

// ID returns the row's primary key.
func (r Row) ID() string {
	return r["id"]
}

// Clone returns a copy of the row that is safe to mutate.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

var (
	// ErrConflict is returned by AppendRow when a row with the same ID
	// already exists in the table.
	ErrConflict = errors.New("row already exists")

	// ErrNotFound is returned by UpdateRow when no row matches the ID.
	ErrNotFound = errors.New("row not found")
)

// Predicate filters rows during a scan.
type Predicate func(Row) bool

// Store is the row-oriented persistence collaborator. Every call is a single
// independent operation: there are no transactions, no locks, and no
// atomicity across calls. The engine is built around that constraint and
// re-validates state at each transition instead of relying on exclusion.
type Store interface {
	// FindRows scans a table and returns the rows matching pred.
	// A nil pred matches everything.
	FindRows(ctx context.Context, table string, pred Predicate) ([]Row, error)

	// AppendRow inserts a row. Returns ErrConflict if a row with the same
	// ID is already present; this conflict is the engine's only
	// collision-detection primitive for identifier allocation.
	AppendRow(ctx context.Context, table string, row Row) error

	// UpdateRow merges fields into the row identified by id.
	// Returns ErrNotFound if the row does not exist.
	UpdateRow(ctx context.Context, table string, id string, fields Row) error
}

// FindRowByID is a convenience scan for a single row.
func FindRowByID(ctx context.Context, s Store, table, id string) (Row, error) {
	rows, err := s.FindRows(ctx, table, func(r Row) bool { return r.ID() == id })
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0], nil
}
