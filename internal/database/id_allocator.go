package database

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/skytrip/travel-booking-backend/internal/store"
)

// ErrAllocationExhausted is returned when an identifier could not be claimed
// within the retry budget. Callers should treat it as retryable at a higher
// level (back off and resubmit), not as fatal.
var ErrAllocationExhausted = errors.New("identifier allocation exhausted retries")

const allocatorMaxRetries = 5

// IDAllocator issues the next prefixed, zero-padded identifier for a table.
//
// The backing store has no atomic increment, so allocation is scan,
// compute max+1, then append. Two concurrent callers can compute the same
// candidate; the store's duplicate-key rejection on append is the collision
// detector, and the loser rescans with a short jittered backoff. The row is
// persisted inside Allocate so that the conflict check and the write are the
// same store call.
type IDAllocator struct {
	store store.Store
}

// NewIDAllocator creates an allocator over the given store.
func NewIDAllocator(s store.Store) *IDAllocator {
	return &IDAllocator{store: s}
}

// Allocate claims the next free identifier for table and persists the row
// produced by build. It returns the claimed identifier, or
// ErrAllocationExhausted after the retry budget is spent.
func (a *IDAllocator) Allocate(ctx context.Context, table, prefix string, width int, build func(id string) store.Row) (string, error) {
	for attempt := 0; attempt < allocatorMaxRetries; attempt++ {
		max, err := a.maxSequence(ctx, table, prefix)
		if err != nil {
			return "", err
		}

		id := fmt.Sprintf("%s%0*d", prefix, width, max+1)

		err = a.store.AppendRow(ctx, table, build(id))
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, store.ErrConflict) {
			return "", err
		}

		// Another writer claimed the same candidate. Back off briefly so
		// the rescans don't stay in lockstep.
		select {
		case <-time.After(time.Duration(10+rand.Intn(40)) * time.Millisecond):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", ErrAllocationExhausted
}

// allocatedBefore reports whether id a was allocated before id b. Once a
// sequence outgrows its zero-pad width the longer ID is the later one, so
// plain string comparison would rank FBK10000 ahead of FBK2000; compare by
// length first to keep ranking aligned with allocation order.
func allocatedBefore(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

// maxSequence scans the table for the highest numeric suffix under prefix.
// IDs that don't parse are ignored rather than treated as errors; the store
// may hold seeded rows with foreign prefixes in the same table.
func (a *IDAllocator) maxSequence(ctx context.Context, table, prefix string) (int, error) {
	rows, err := a.store.FindRows(ctx, table, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to scan %s for allocation: %w", table, err)
	}

	max := 0
	for _, row := range rows {
		id := strings.TrimSpace(row.ID())
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		n, err := strconv.Atoi(id[len(prefix):])
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max, nil
}
