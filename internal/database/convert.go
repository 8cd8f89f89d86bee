package database

import (
	"fmt"
	"strconv"
	"time"

	"github.com/skytrip/travel-booking-backend/internal/models"
	"github.com/skytrip/travel-booking-backend/internal/store"
)

// rowReader decodes string row fields into typed values, collecting the
// first error instead of forcing a check per field.
type rowReader struct {
	row store.Row
	err error
}

func newRowReader(row store.Row) *rowReader {
	return &rowReader{row: row}
}

func (r *rowReader) str(key string) string {
	return r.row[key]
}

func (r *rowReader) intval(key string) int {
	if r.err != nil || r.row[key] == "" {
		return 0
	}
	n, err := strconv.Atoi(r.row[key])
	if err != nil {
		r.err = fmt.Errorf("field %s: %w", key, err)
	}
	return n
}

func (r *rowReader) float(key string) float64 {
	if r.err != nil || r.row[key] == "" {
		return 0
	}
	f, err := strconv.ParseFloat(r.row[key], 64)
	if err != nil {
		r.err = fmt.Errorf("field %s: %w", key, err)
	}
	return f
}

func (r *rowReader) timestamp(key string) time.Time {
	if r.err != nil || r.row[key] == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, r.row[key])
	if err != nil {
		r.err = fmt.Errorf("field %s: %w", key, err)
	}
	return t
}

func (r *rowReader) date(key string) time.Time {
	if r.err != nil || r.row[key] == "" {
		return time.Time{}
	}
	t, err := time.Parse(models.DateLayout, r.row[key])
	if err != nil {
		r.err = fmt.Errorf("field %s: %w", key, err)
	}
	return t
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func formatInt(n int) string {
	return strconv.Itoa(n)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatDate(t time.Time) string {
	return t.Format(models.DateLayout)
}
