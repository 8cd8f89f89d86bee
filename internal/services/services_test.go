package services

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/skytrip/travel-booking-backend/internal/database"
	"github.com/skytrip/travel-booking-backend/internal/models"
	"github.com/skytrip/travel-booking-backend/internal/store"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// testEnv wires the whole service stack over an in-memory store with a
// small seeded catalog: one 3-seat flight, one large flight, two rooms and
// one car.
type testEnv struct {
	store        store.Store
	catalogRepo  *database.CatalogRepository
	bookingRepo  *database.BookingRepository
	availability *AvailabilityService
	auth         *AuthService
	search       *SearchService
	orchestrator *BookingOrchestratorService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvOver(t, store.NewMemoryStore())
}

// newTestEnvOver wires the stack over a caller-supplied store, letting
// tests interpose on individual store calls.
func newTestEnvOver(t *testing.T, s store.Store) *testEnv {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	allocator := database.NewIDAllocator(s)
	userRepo := database.NewUserRepository(s, allocator)
	sessionRepo := database.NewSessionRepository(s, allocator)
	catalogRepo := database.NewCatalogRepository(s)
	bookingRepo := database.NewBookingRepository(s, allocator)

	availability := NewAvailabilityService(catalogRepo, bookingRepo, logger)
	auth := NewAuthService(userRepo, sessionRepo, bcrypt.MinCost, 7*24*time.Hour, logger)
	search := NewSearchService(catalogRepo, availability, nil, logger)
	orchestrator := NewBookingOrchestratorService(bookingRepo, catalogRepo, availability, nil, logger)

	env := &testEnv{
		store:        s,
		catalogRepo:  catalogRepo,
		bookingRepo:  bookingRepo,
		availability: availability,
		auth:         auth,
		search:       search,
		orchestrator: orchestrator,
	}
	env.seedCatalog(t)
	return env
}

func (e *testEnv) seedCatalog(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	seed := map[string][]store.Row{
		database.TableCity: {
			{"id": "CTY0001", "name": "Paris", "country": "France", "region": "Europe"},
			{"id": "CTY0002", "name": "New York", "country": "United States", "region": "North America"},
		},
		database.TableAirport: {
			{"id": "JFK", "name": "John F. Kennedy International Airport", "city_id": "CTY0002"},
			{"id": "CDG", "name": "Charles de Gaulle Airport", "city_id": "CTY0001"},
		},
		database.TableFlight: {
			{
				"id": "FL0001", "flight_number": "ST101", "airline_name": "SkyTrip Air",
				"aircraft_model": "A350-900", "origin_code": "JFK", "destination_code": "CDG",
				"departure_time": "2026-09-10T18:30:00Z", "arrival_time": "2026-09-11T07:45:00Z",
				"seat_capacity": "3", "base_price": "100.00",
			},
			{
				"id": "FL0002", "flight_number": "ST205", "airline_name": "SkyTrip Air",
				"aircraft_model": "787-9", "origin_code": "CDG", "destination_code": "JFK",
				"departure_time": "2026-09-12T11:00:00Z", "arrival_time": "2026-09-12T13:20:00Z",
				"seat_capacity": "200", "base_price": "250.00",
			},
		},
		database.TableHotel: {
			{
				"id": "HTL0001", "name": "Hotel Lumiere", "city_id": "CTY0001",
				"address": "12 Rue de Rivoli, Paris", "rating": "4.50",
				"contact_number": "+33-1-4000-2200", "description": "Boutique hotel near the Louvre",
			},
		},
		database.TableRoom: {
			{"id": "RM0001", "hotel_id": "HTL0001", "room_type": "double", "capacity": "2", "price_per_night": "100.00"},
			{"id": "RM0002", "hotel_id": "HTL0001", "room_type": "suite", "capacity": "4", "price_per_night": "250.00"},
		},
		database.TableCar: {
			{
				"id": "CAR0001", "city_id": "CTY0001", "brand": "Renault", "model": "Clio",
				"year": "2024", "seats": "5", "transmission": "manual", "fuel_type": "petrol",
				"price_per_day": "50.00",
			},
		},
	}
	for table, rows := range seed {
		for _, row := range rows {
			require.NoError(t, e.catalogRepo.SeedRow(ctx, table, row))
		}
	}
}

// registerUser creates an account and returns its user ID and auth token.
func (e *testEnv) registerUser(t *testing.T, email string) (string, string) {
	t.Helper()
	resp, err := e.auth.Register(context.Background(), &models.RegisterRequest{
		Email:     email,
		Password:  "sufficiently-long",
		FirstName: "Test",
		LastName:  "Traveller",
	}, ClientMeta{IP: "203.0.113.9"})
	require.NoError(t, err)
	return resp.UserID, resp.AuthToken
}

func passengers(n int) []models.PassengerInput {
	out := make([]models.PassengerInput, n)
	for i := range out {
		out[i] = models.PassengerInput{
			FirstName:   "Pax",
			LastName:    string(rune('A' + i)),
			Gender:      "female",
			DateOfBirth: "1990-04-01",
			PassportNo:  "N1230001",
		}
	}
	return out
}

func flightRequest(flightID string, pax int) *models.CreateBookingRequest {
	return &models.CreateBookingRequest{
		Flight:     &models.FlightSelection{FlightID: flightID, SeatClass: "economy"},
		Passengers: passengers(pax),
	}
}

func hotelRequest(roomID, checkIn, checkOut string, guests int) *models.CreateBookingRequest {
	return &models.CreateBookingRequest{
		Hotel: &models.HotelSelection{RoomID: roomID, CheckIn: checkIn, CheckOut: checkOut, Guests: guests},
	}
}

func carRequest(carID, pickup, dropoff string) *models.CreateBookingRequest {
	return &models.CreateBookingRequest{
		Car: &models.CarSelection{
			CarID:          carID,
			PickupTime:     pickup,
			DropoffTime:    dropoff,
			PickupLocation: "CDG Terminal 2",
		},
	}
}

// payFor pays the exact total, confirming the booking.
func (e *testEnv) payFor(t *testing.T, userID string, view *models.BookingView) *models.BookingView {
	t.Helper()
	paid, err := e.orchestrator.ProcessPayment(context.Background(), userID, view.ID, &models.ProcessPaymentRequest{
		Method: "card",
		Amount: view.TotalAmount,
	})
	require.NoError(t, err)
	return paid
}

// kindOf asserts err is an engine error and returns its kind.
func kindOf(t *testing.T, err error) ErrorKind {
	t.Helper()
	require.Error(t, err)
	return KindOf(err)
}
