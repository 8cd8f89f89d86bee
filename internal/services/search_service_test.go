package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchFlights(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("filters by route and date", func(t *testing.T) {
		flights, err := env.search.SearchFlights(ctx, "jfk", "cdg", "2026-09-10", 1)
		require.NoError(t, err)
		require.Len(t, flights, 1)
		assert.Equal(t, "FL0001", flights[0].ID)
		assert.Equal(t, 3, flights[0].AvailableSeats)
	})

	t.Run("wrong date yields nothing", func(t *testing.T) {
		flights, err := env.search.SearchFlights(ctx, "JFK", "CDG", "2026-09-11", 1)
		require.NoError(t, err)
		assert.Empty(t, flights)
	})

	t.Run("malformed date is rejected", func(t *testing.T) {
		_, err := env.search.SearchFlights(ctx, "JFK", "CDG", "tomorrow", 1)
		assert.Equal(t, KindInvalidSelection, kindOf(t, err))
	})

	t.Run("party size filters out tight flights", func(t *testing.T) {
		userID, _ := env.registerUser(t, "searcher@example.com")
		view, err := env.orchestrator.CreateBooking(ctx, userID, flightRequest("FL0001", 2))
		require.NoError(t, err)
		env.payFor(t, userID, view)

		flights, err := env.search.SearchFlights(ctx, "JFK", "CDG", "", 2)
		require.NoError(t, err)
		assert.Empty(t, flights, "only one seat left")

		flights, err = env.search.SearchFlights(ctx, "JFK", "CDG", "", 1)
		require.NoError(t, err)
		require.Len(t, flights, 1)
		assert.Equal(t, 1, flights[0].AvailableSeats)
	})
}

func TestSearchRooms(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("capacity filter", func(t *testing.T) {
		rooms, err := env.search.SearchRooms(ctx, "CTY0001", "2026-09-11", "2026-09-13", 3)
		require.NoError(t, err)
		require.Len(t, rooms, 1, "only the suite sleeps three")
		assert.Equal(t, "RM0002", rooms[0].ID)
		assert.Equal(t, "Hotel Lumiere", rooms[0].HotelName)
		assert.True(t, rooms[0].Available)
	})

	t.Run("occupied room is flagged, not hidden", func(t *testing.T) {
		userID, _ := env.registerUser(t, "guest@example.com")
		view, err := env.orchestrator.CreateBooking(ctx, userID, hotelRequest("RM0001", "2026-09-11", "2026-09-13", 2))
		require.NoError(t, err)
		env.payFor(t, userID, view)

		rooms, err := env.search.SearchRooms(ctx, "CTY0001", "2026-09-12", "2026-09-14", 2)
		require.NoError(t, err)
		require.Len(t, rooms, 2)
		byID := map[string]bool{}
		for _, r := range rooms {
			byID[r.ID] = r.Available
		}
		assert.False(t, byID["RM0001"])
		assert.True(t, byID["RM0002"])
	})

	t.Run("invalid stay", func(t *testing.T) {
		_, err := env.search.SearchRooms(ctx, "CTY0001", "2026-09-13", "2026-09-11", 2)
		assert.Equal(t, KindInvalidSelection, kindOf(t, err))
	})
}

func TestSearchCars(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cars, err := env.search.SearchCars(ctx, "CTY0001", "2026-09-11T09:00:00Z", "2026-09-13T09:00:00Z")
	require.NoError(t, err)
	require.Len(t, cars, 1)
	assert.True(t, cars[0].Available)

	// A different city has no fleet.
	cars, err = env.search.SearchCars(ctx, "CTY0002", "2026-09-11T09:00:00Z", "2026-09-13T09:00:00Z")
	require.NoError(t, err)
	assert.Empty(t, cars)
}

func TestListCitiesAndAirports(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cities, err := env.search.ListCities(ctx)
	require.NoError(t, err)
	assert.Len(t, cities, 2)

	airports, err := env.search.ListAirports(ctx, "CTY0001")
	require.NoError(t, err)
	require.Len(t, airports, 1)
	assert.Equal(t, "CDG", airports[0].Code)
}
