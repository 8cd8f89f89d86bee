package database

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/skytrip/travel-booking-backend/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bookingRow(id string) store.Row {
	return store.Row{"id": id, "status": "pending"}
}

func TestIDAllocator_Sequential(t *testing.T) {
	s := store.NewMemoryStore()
	a := NewIDAllocator(s)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		id, err := a.Allocate(ctx, TableBooking, PrefixBooking, DefaultIDWidth, bookingRow)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("BK%04d", i), id)
	}
}

func TestIDAllocator_SkipsForeignAndMalformedIDs(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.AppendRow(ctx, TableBooking, store.Row{"id": "BK0007"}))
	require.NoError(t, s.AppendRow(ctx, TableBooking, store.Row{"id": "LEGACY-1"}))
	require.NoError(t, s.AppendRow(ctx, TableBooking, store.Row{"id": "BKXX"}))

	id, err := NewIDAllocator(s).Allocate(ctx, TableBooking, PrefixBooking, DefaultIDWidth, bookingRow)
	require.NoError(t, err)
	assert.Equal(t, "BK0008", id)
}

func TestIDAllocator_WidthOverflowKeepsOrdering(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.AppendRow(ctx, TableBooking, store.Row{"id": "BK9999"}))

	id, err := NewIDAllocator(s).Allocate(ctx, TableBooking, PrefixBooking, DefaultIDWidth, bookingRow)
	require.NoError(t, err)
	assert.Equal(t, "BK10000", id, "sequence keeps counting past the pad width")
}

// Concurrent allocators race on the same table; the duplicate-key rejection
// plus rescan must hand every goroutine a distinct identifier.
func TestIDAllocator_ConcurrentAllocationsAreDistinct(t *testing.T) {
	s := store.NewMemoryStore()
	a := NewIDAllocator(s)
	ctx := context.Background()

	const workers = 8
	ids := make(chan string, workers)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := a.Allocate(ctx, TablePassenger, PrefixPassenger, PassengerIDWidth, func(id string) store.Row {
				return store.Row{"id": id}
			})
			if assert.NoError(t, err) {
				ids <- id
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		assert.False(t, seen[id], "id %s allocated twice", id)
		seen[id] = true
	}
	assert.Len(t, seen, workers)
}

func TestIDAllocator_ExhaustsRetries(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	// A store whose appends always collide: every candidate the allocator
	// computes is inserted underneath it before the append lands.
	a := NewIDAllocator(conflictingStore{s})

	_, err := a.Allocate(ctx, TableBooking, PrefixBooking, DefaultIDWidth, bookingRow)
	assert.ErrorIs(t, err, ErrAllocationExhausted)
}

func TestIDAllocator_ContextCancelledDuringBackoff(t *testing.T) {
	s := store.NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := NewIDAllocator(conflictingStore{s})
	_, err := a.Allocate(ctx, TableBooking, PrefixBooking, DefaultIDWidth, bookingRow)
	assert.ErrorIs(t, err, context.Canceled)
}

// conflictingStore steals every candidate ID just before the wrapped append.
type conflictingStore struct {
	inner store.Store
}

func (c conflictingStore) FindRows(ctx context.Context, table string, pred store.Predicate) ([]store.Row, error) {
	return c.inner.FindRows(ctx, table, pred)
}

func (c conflictingStore) AppendRow(ctx context.Context, table string, row store.Row) error {
	_ = c.inner.AppendRow(ctx, table, store.Row{"id": row.ID()})
	return c.inner.AppendRow(ctx, table, row)
}

func (c conflictingStore) UpdateRow(ctx context.Context, table string, id string, fields store.Row) error {
	return c.inner.UpdateRow(ctx, table, id, fields)
}

func TestAllocatedBefore(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"FBK0001", "FBK0002", true},
		{"FBK0002", "FBK0001", false},
		{"FBK0001", "FBK0001", false},
		// Past the pad width the longer ID is the later allocation, even
		// though it sorts first lexicographically.
		{"FBK2000", "FBK10000", true},
		{"FBK10000", "FBK2000", false},
		{"FBK9999", "FBK10000", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, allocatedBefore(tt.a, tt.b), "%s before %s", tt.a, tt.b)
	}
}
