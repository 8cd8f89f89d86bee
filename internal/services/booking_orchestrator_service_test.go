package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/skytrip/travel-booking-backend/internal/database"
	"github.com/skytrip/travel-booking-backend/internal/models"
	"github.com/skytrip/travel-booking-backend/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBooking_FullTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	userID, _ := env.registerUser(t, "trip@example.com")

	req := &models.CreateBookingRequest{
		Flight: &models.FlightSelection{FlightID: "FL0001", SeatClass: "economy"},
		Hotel:  &models.HotelSelection{RoomID: "RM0001", CheckIn: "2026-09-11", CheckOut: "2026-09-14", Guests: 2},
		Car: &models.CarSelection{
			CarID:       "CAR0001",
			PickupTime:  "2026-09-11T10:00:00Z",
			DropoffTime: "2026-09-13T10:00:00Z",
		},
		Passengers: passengers(2),
	}

	view, err := env.orchestrator.CreateBooking(ctx, userID, req)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(view.ID, "BK"))
	assert.Equal(t, models.BookingStatusPending, view.Status)
	require.NotNil(t, view.FlightBooking)
	require.NotNil(t, view.HotelBooking)
	require.NotNil(t, view.CarBooking)
	assert.Len(t, view.Passengers, 2)

	// 2 economy seats at 100, 3 nights at 100, 2 days at 50.
	assert.Equal(t, 200.0, view.FlightBooking.Price)
	assert.Equal(t, 300.0, view.HotelBooking.Price)
	assert.Equal(t, 100.0, view.CarBooking.Price)
	assert.Equal(t, 600.0, view.TotalAmount)
}

func TestCreateBooking_BusinessClassFare(t *testing.T) {
	env := newTestEnv(t)
	userID, _ := env.registerUser(t, "biz@example.com")

	req := &models.CreateBookingRequest{
		Flight:     &models.FlightSelection{FlightID: "FL0001", SeatClass: "business"},
		Passengers: passengers(2),
	}
	view, err := env.orchestrator.CreateBooking(context.Background(), userID, req)
	require.NoError(t, err)
	assert.Equal(t, 300.0, view.TotalAmount, "base 100 x 1.5 business x 2 passengers")
}

func TestCreateBooking_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	userID, _ := env.registerUser(t, "invalid@example.com")

	tests := []struct {
		name string
		req  *models.CreateBookingRequest
		kind ErrorKind
	}{
		{
			"empty selection",
			&models.CreateBookingRequest{},
			KindInvalidSelection,
		},
		{
			"flight without passengers",
			&models.CreateBookingRequest{Flight: &models.FlightSelection{FlightID: "FL0001"}},
			KindPassengerRequired,
		},
		{
			"incomplete passenger",
			&models.CreateBookingRequest{
				Flight:     &models.FlightSelection{FlightID: "FL0001"},
				Passengers: []models.PassengerInput{{FirstName: "Only"}},
			},
			KindPassengerRequired,
		},
		{
			"unknown seat class",
			&models.CreateBookingRequest{
				Flight:     &models.FlightSelection{FlightID: "FL0001", SeatClass: "first"},
				Passengers: passengers(1),
			},
			KindInvalidSelection,
		},
		{
			"unknown flight",
			flightRequest("FL9999", 1),
			KindResourceUnavailable,
		},
		{
			"checkout before checkin",
			hotelRequest("RM0001", "2026-09-14", "2026-09-11", 2),
			KindInvalidSelection,
		},
		{
			"zero night stay",
			hotelRequest("RM0001", "2026-09-11", "2026-09-11", 2),
			KindInvalidSelection,
		},
		{
			"party exceeds room capacity",
			hotelRequest("RM0001", "2026-09-11", "2026-09-13", 3),
			KindInvalidSelection,
		},
		{
			"malformed pickup time",
			carRequest("CAR0001", "next tuesday", "2026-09-13T10:00:00Z"),
			KindInvalidSelection,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.orchestrator.CreateBooking(ctx, userID, tt.req)
			assert.Equal(t, tt.kind, kindOf(t, err))
		})
	}
}

func TestCreateBooking_NoRowsWrittenOnValidationFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	userID, _ := env.registerUser(t, "clean@example.com")

	_, err := env.orchestrator.CreateBooking(ctx, userID, &models.CreateBookingRequest{})
	require.Error(t, err)

	views, err := env.orchestrator.ListBookings(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestCreateBooking_CapacityExhausted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	userID, _ := env.registerUser(t, "full@example.com")

	first, err := env.orchestrator.CreateBooking(ctx, userID, flightRequest("FL0001", 2))
	require.NoError(t, err)
	env.payFor(t, userID, first)

	// 1 of 3 seats left; a 2-passenger request must be refused.
	_, err = env.orchestrator.CreateBooking(ctx, userID, flightRequest("FL0001", 2))
	assert.Equal(t, KindResourceUnavailable, kindOf(t, err))

	// The last seat is still sellable.
	_, err = env.orchestrator.CreateBooking(ctx, userID, flightRequest("FL0001", 1))
	assert.NoError(t, err)
}

// Two concurrent creates race for the last seats. Whatever the
// interleaving — one side failing the advisory pre-check, or both writing
// claims and the later one losing the post-write confirmation — exactly one
// create succeeds and the other reports the resource unavailable.
func TestCreateBooking_ConcurrentLastSeats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice, _ := env.registerUser(t, "racer-a@example.com")
	bob, _ := env.registerUser(t, "racer-b@example.com")

	type outcome struct {
		view *models.BookingView
		err  error
	}
	results := make(chan outcome, 2)
	for _, userID := range []string{alice, bob} {
		go func(uid string) {
			view, err := env.orchestrator.CreateBooking(ctx, uid, flightRequest("FL0001", 2))
			results <- outcome{view, err}
		}(userID)
	}

	var wins, losses int
	for i := 0; i < 2; i++ {
		r := <-results
		if r.err == nil {
			wins++
			assert.Equal(t, models.BookingStatusPending, r.view.Status)
		} else {
			losses++
			assert.Equal(t, KindResourceUnavailable, KindOf(r.err))
		}
	}
	assert.Equal(t, 1, wins, "exactly one concurrent create wins the seats")
	assert.Equal(t, 1, losses)

	// The winner's claim survives at payment time.
	remaining, err := env.availability.FlightSeatsRemaining(ctx, "FL0001")
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)
}

// Two pending bookings hold overlapping claims on the last seats, the way a
// create race leaves the store. Payment is the authoritative gate: the
// earlier-allocated claim confirms, the later one is refused and its
// booking stays pending.
func TestProcessPayment_RecheckResolvesRace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice, _ := env.registerUser(t, "alice@example.com")
	bob, _ := env.registerUser(t, "bob@example.com")

	writePendingFlightClaim(t, env, alice, "FL0001", 2)
	writePendingFlightClaim(t, env, bob, "FL0001", 2)

	aliceViews, err := env.orchestrator.ListBookings(ctx, alice)
	require.NoError(t, err)
	require.Len(t, aliceViews, 1)
	bobViews, err := env.orchestrator.ListBookings(ctx, bob)
	require.NoError(t, err)
	require.Len(t, bobViews, 1)

	paid := env.payFor(t, alice, &aliceViews[0])
	assert.Equal(t, models.BookingStatusConfirmed, paid.Status)

	_, err = env.orchestrator.ProcessPayment(ctx, bob, bobViews[0].ID, &models.ProcessPaymentRequest{
		Method: "card",
		Amount: bobViews[0].TotalAmount,
	})
	assert.Equal(t, KindResourceUnavailable, kindOf(t, err))

	// The losing booking is still pending; the caller may cancel it.
	after, err := env.orchestrator.GetBooking(ctx, bob, bobViews[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusPending, after.Status)

	// Cancelling the loser leaves only the winner's seats claimed.
	_, err = env.orchestrator.CancelBooking(ctx, bob, bobViews[0].ID)
	require.NoError(t, err)
	remaining, err := env.availability.FlightSeatsRemaining(ctx, "FL0001")
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)
}

// paymentRaceStore fires a hook right before the first payment-row append,
// standing in for a rival payer who writes between this payer's read of the
// payment table and its own write.
type paymentRaceStore struct {
	store.Store
	beforeAppend func()
	fired        bool
}

func (s *paymentRaceStore) AppendRow(ctx context.Context, table string, row store.Row) error {
	if table == database.TablePayment && !s.fired {
		s.fired = true
		s.beforeAppend()
	}
	return s.Store.AppendRow(ctx, table, row)
}

func TestProcessPayment_ConcurrentPayersShareOnePayment(t *testing.T) {
	inner := store.NewMemoryStore()
	raced := &paymentRaceStore{Store: inner}
	env := newTestEnvOver(t, raced)
	ctx := context.Background()
	userID, _ := env.registerUser(t, "racer@example.com")

	view, err := env.orchestrator.CreateBooking(ctx, userID, flightRequest("FL0002", 1))
	require.NoError(t, err)

	// The rival writes straight to the inner store so its append cannot
	// re-trigger the hook.
	rivalRepo := database.NewBookingRepository(inner, database.NewIDAllocator(inner))
	raced.beforeAppend = func() {
		_, err := rivalRepo.CreatePayment(ctx, &models.Payment{
			BookingID:      view.ID,
			Method:         "card",
			Amount:         view.TotalAmount,
			PaidAt:         time.Now().UTC(),
			Status:         models.PaymentStatusCaptured,
			TransactionRef: "TXN-RIVAL001",
		})
		require.NoError(t, err)
	}

	paid, err := env.orchestrator.ProcessPayment(ctx, userID, view.ID, &models.ProcessPaymentRequest{
		Method: "card",
		Amount: view.TotalAmount,
	})
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, paid.Status)

	// The loser adopted the rival's payment instead of capturing a second one.
	require.NotNil(t, paid.Payment)
	assert.Equal(t, "TXN-RIVAL001", paid.Payment.TransactionRef)
	rows, err := inner.FindRows(ctx, database.TablePayment, func(row store.Row) bool {
		return row["booking_id"] == view.ID
	})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestCreateBooking_RoomOverlap(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	userID, _ := env.registerUser(t, "stays@example.com")

	first, err := env.orchestrator.CreateBooking(ctx, userID, hotelRequest("RM0001", "2026-06-01", "2026-06-03", 2))
	require.NoError(t, err)
	env.payFor(t, userID, first)

	// Checkout day hands the room over: a stay starting 2026-06-03 fits.
	_, err = env.orchestrator.CreateBooking(ctx, userID, hotelRequest("RM0001", "2026-06-03", "2026-06-05", 2))
	assert.NoError(t, err)

	// A stay overlapping the first booking's nights is refused.
	_, err = env.orchestrator.CreateBooking(ctx, userID, hotelRequest("RM0001", "2026-06-02", "2026-06-04", 2))
	assert.Equal(t, KindResourceUnavailable, kindOf(t, err))
}

func TestProcessPayment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	userID, _ := env.registerUser(t, "payer@example.com")

	view, err := env.orchestrator.CreateBooking(ctx, userID, flightRequest("FL0002", 1))
	require.NoError(t, err)

	t.Run("amount must match exactly", func(t *testing.T) {
		_, err := env.orchestrator.ProcessPayment(ctx, userID, view.ID, &models.ProcessPaymentRequest{
			Method: "card",
			Amount: view.TotalAmount - 0.01,
		})
		assert.Equal(t, KindAmountMismatch, kindOf(t, err))
	})

	t.Run("successful payment confirms", func(t *testing.T) {
		paid := env.payFor(t, userID, view)
		assert.Equal(t, models.BookingStatusConfirmed, paid.Status)
		require.NotNil(t, paid.Payment)
		assert.Equal(t, models.PaymentStatusCaptured, paid.Payment.Status)
		assert.Equal(t, view.TotalAmount, paid.Payment.Amount)
		assert.True(t, strings.HasPrefix(paid.Payment.TransactionRef, "TXN-"))
	})

	t.Run("second payment is rejected", func(t *testing.T) {
		_, err := env.orchestrator.ProcessPayment(ctx, userID, view.ID, &models.ProcessPaymentRequest{
			Method: "card",
			Amount: view.TotalAmount,
		})
		assert.Equal(t, KindInvalidState, kindOf(t, err))
	})

	t.Run("another user's booking reads as missing", func(t *testing.T) {
		stranger, _ := env.registerUser(t, "stranger@example.com")
		_, err := env.orchestrator.ProcessPayment(ctx, stranger, view.ID, &models.ProcessPaymentRequest{
			Method: "card",
			Amount: view.TotalAmount,
		})
		assert.Equal(t, KindNotFound, kindOf(t, err))
	})

	t.Run("unknown booking", func(t *testing.T) {
		_, err := env.orchestrator.ProcessPayment(ctx, userID, "BK9999", &models.ProcessPaymentRequest{
			Method: "card",
			Amount: 1,
		})
		assert.Equal(t, KindNotFound, kindOf(t, err))
	})
}

func TestCancelBooking(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	userID, _ := env.registerUser(t, "cancel@example.com")

	t.Run("pending booking cancels without a payment", func(t *testing.T) {
		view, err := env.orchestrator.CreateBooking(ctx, userID, flightRequest("FL0002", 1))
		require.NoError(t, err)

		cancelled, err := env.orchestrator.CancelBooking(ctx, userID, view.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusCancelled, cancelled.Status)
		assert.Nil(t, cancelled.Payment)
	})

	t.Run("confirmed booking refunds its payment", func(t *testing.T) {
		view, err := env.orchestrator.CreateBooking(ctx, userID, flightRequest("FL0002", 1))
		require.NoError(t, err)
		env.payFor(t, userID, view)

		cancelled, err := env.orchestrator.CancelBooking(ctx, userID, view.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusCancelled, cancelled.Status)
		require.NotNil(t, cancelled.Payment)
		assert.Equal(t, models.PaymentStatusRefunded, cancelled.Payment.Status)
	})

	t.Run("second cancel is rejected", func(t *testing.T) {
		view, err := env.orchestrator.CreateBooking(ctx, userID, flightRequest("FL0002", 1))
		require.NoError(t, err)
		_, err = env.orchestrator.CancelBooking(ctx, userID, view.ID)
		require.NoError(t, err)

		_, err = env.orchestrator.CancelBooking(ctx, userID, view.ID)
		assert.Equal(t, KindInvalidState, kindOf(t, err))
	})

	t.Run("cancel releases the claimed capacity", func(t *testing.T) {
		env := newTestEnv(t)
		userID, _ := env.registerUser(t, "release@example.com")

		view, err := env.orchestrator.CreateBooking(ctx, userID, flightRequest("FL0001", 3))
		require.NoError(t, err)
		env.payFor(t, userID, view)

		_, err = env.orchestrator.CreateBooking(ctx, userID, flightRequest("FL0001", 1))
		assert.Equal(t, KindResourceUnavailable, kindOf(t, err))

		_, err = env.orchestrator.CancelBooking(ctx, userID, view.ID)
		require.NoError(t, err)

		_, err = env.orchestrator.CreateBooking(ctx, userID, flightRequest("FL0001", 1))
		assert.NoError(t, err)
	})
}

func TestUpdatePassenger(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	userID, _ := env.registerUser(t, "pax@example.com")

	view, err := env.orchestrator.CreateBooking(ctx, userID, flightRequest("FL0002", 1))
	require.NoError(t, err)
	paxID := view.Passengers[0].ID

	t.Run("partial update", func(t *testing.T) {
		passport := "P9990001"
		updated, err := env.orchestrator.UpdatePassenger(ctx, userID, paxID, &models.UpdatePassengerRequest{
			PassportNo: &passport,
		})
		require.NoError(t, err)
		assert.Equal(t, passport, updated.PassportNo)
		assert.Equal(t, "Pax", updated.FirstName, "untouched fields survive")
	})

	t.Run("invalid date of birth", func(t *testing.T) {
		bad := "yesterday"
		_, err := env.orchestrator.UpdatePassenger(ctx, userID, paxID, &models.UpdatePassengerRequest{
			DateOfBirth: &bad,
		})
		assert.Equal(t, KindInvalidSelection, kindOf(t, err))
	})

	t.Run("unknown passenger", func(t *testing.T) {
		name := "Nobody"
		_, err := env.orchestrator.UpdatePassenger(ctx, userID, "PAX99999", &models.UpdatePassengerRequest{
			FirstName: &name,
		})
		assert.Equal(t, KindNotFound, kindOf(t, err))
	})

	t.Run("another user's passenger reads as missing", func(t *testing.T) {
		stranger, _ := env.registerUser(t, "other@example.com")
		name := "Taken"
		_, err := env.orchestrator.UpdatePassenger(ctx, stranger, paxID, &models.UpdatePassengerRequest{
			FirstName: &name,
		})
		assert.Equal(t, KindNotFound, kindOf(t, err))
	})
}

func TestListBookings_NewestFirstAndScoped(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice, _ := env.registerUser(t, "a@example.com")
	bob, _ := env.registerUser(t, "b@example.com")

	first, err := env.orchestrator.CreateBooking(ctx, alice, flightRequest("FL0002", 1))
	require.NoError(t, err)
	second, err := env.orchestrator.CreateBooking(ctx, alice, flightRequest("FL0002", 1))
	require.NoError(t, err)
	_, err = env.orchestrator.CreateBooking(ctx, bob, flightRequest("FL0002", 1))
	require.NoError(t, err)

	views, err := env.orchestrator.ListBookings(ctx, alice)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, second.ID, views[0].ID)
	assert.Equal(t, first.ID, views[1].ID)
}

func TestGetBooking_DoesNotRecheckAvailability(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	userID, _ := env.registerUser(t, "reader@example.com")

	view, err := env.orchestrator.CreateBooking(ctx, userID, flightRequest("FL0001", 2))
	require.NoError(t, err)
	env.payFor(t, userID, view)

	// Reading a confirmed booking is a pure row join even when the flight
	// is now fully claimed by others.
	writePendingFlightClaim(t, env, userID, "FL0001", 1)

	got, err := env.orchestrator.GetBooking(ctx, userID, view.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, got.Status)
}
