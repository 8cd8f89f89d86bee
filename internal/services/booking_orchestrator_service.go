package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/skytrip/travel-booking-backend/internal/database"
	"github.com/skytrip/travel-booking-backend/internal/events"
	"github.com/skytrip/travel-booking-backend/internal/models"
	"github.com/skytrip/travel-booking-backend/internal/store"
)

// businessClassMultiplier is applied to the flight base price per passenger
// when the business cabin is selected.
const businessClassMultiplier = 1.5

// EventPublisher publishes booking lifecycle events. Optional: a nil
// publisher disables events without changing engine behaviour.
type EventPublisher interface {
	Publish(ctx context.Context, event events.BookingEvent) error
}

// BookingOrchestratorService drives bookings through their
// pending → confirmed/cancelled lifecycle. The backing store has no
// transactions or locks, so correctness comes from re-validating
// availability at every state transition rather than from exclusion:
// claims are written optimistically and confirmed against allocation order
// afterwards.
type BookingOrchestratorService struct {
	bookingRepo  *database.BookingRepository
	catalogRepo  *database.CatalogRepository
	availability *AvailabilityService
	publisher    EventPublisher
	logger       *logrus.Logger
}

// NewBookingOrchestratorService creates a new orchestrator.
func NewBookingOrchestratorService(
	bookingRepo *database.BookingRepository,
	catalogRepo *database.CatalogRepository,
	availability *AvailabilityService,
	publisher EventPublisher,
	logger *logrus.Logger,
) *BookingOrchestratorService {
	return &BookingOrchestratorService{
		bookingRepo:  bookingRepo,
		catalogRepo:  catalogRepo,
		availability: availability,
		publisher:    publisher,
		logger:       logger,
	}
}

// pricedSelections is the validated, priced form of a create request.
type pricedSelections struct {
	flight      *models.Flight
	flightClass models.SeatClass
	room        *models.Room
	checkIn     time.Time
	checkOut    time.Time
	car         *models.Car
	pickup      time.Time
	dropoff     time.Time
	flightPrice float64
	hotelPrice  float64
	carPrice    float64
	total       float64
}

// ============================================================================
// CREATE
// ============================================================================

// CreateBooking validates the selections, checks availability, allocates
// identifiers, persists the rows and returns the booking in pending state.
//
// Write order is parent first: the Booking row goes in before its
// sub-bookings and passengers, so a crash mid-create leaves a pending
// booking whose missing children make the failure detectable, never
// children pointing at a parent that does not exist. After the claims are
// written, each one is confirmed against allocation order; a booking that
// lost the race cancels itself and reports the resource as unavailable.
func (s *BookingOrchestratorService) CreateBooking(ctx context.Context, userID string, req *models.CreateBookingRequest) (*models.BookingView, error) {
	priced, err := s.validateAndPrice(ctx, req)
	if err != nil {
		return nil, err
	}

	// First availability check. This is advisory: it rejects requests
	// that are already hopeless without writing anything.
	if err := s.checkAvailability(ctx, req, priced); err != nil {
		return nil, err
	}

	booking := &models.Booking{
		UserID:      userID,
		Status:      models.BookingStatusPending,
		TotalAmount: priced.total,
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := s.bookingRepo.CreateBooking(ctx, booking); err != nil {
		return nil, mapStoreError(err)
	}

	view, err := s.writeLineItems(ctx, booking, req, priced)
	if err != nil {
		// Leave the written rows in place and release the capacity by
		// cancelling the parent; nothing is ever deleted.
		s.abandonBooking(ctx, booking.ID)
		return nil, err
	}

	// Authoritative claim check: under a concurrent create racing for the
	// same capacity, the claim allocated later loses and withdraws.
	held, err := s.claimsHold(ctx, view)
	if err != nil {
		s.abandonBooking(ctx, booking.ID)
		return nil, mapStoreError(err)
	}
	if !held {
		s.abandonBooking(ctx, booking.ID)
		return nil, newError(KindResourceUnavailable, "selected resources were taken by a concurrent booking")
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":   booking.ID,
		"user_id":      userID,
		"total_amount": booking.TotalAmount,
	}).Info("Booking created")

	s.publish(ctx, events.TypeBookingCreated, &view.Booking)
	return view, nil
}

// validateAndPrice checks request shape, resolves the referenced resources
// and fixes the line-item prices. Prices are computed once here and stored;
// they are never re-derived later.
func (s *BookingOrchestratorService) validateAndPrice(ctx context.Context, req *models.CreateBookingRequest) (*pricedSelections, error) {
	if req.Flight == nil && req.Hotel == nil && req.Car == nil {
		return nil, newError(KindInvalidSelection, "at least one of flight, hotel or car must be selected")
	}

	priced := &pricedSelections{}

	if req.Flight != nil {
		if len(req.Passengers) == 0 {
			return nil, newError(KindPassengerRequired, "a flight booking requires at least one passenger")
		}
		for i, p := range req.Passengers {
			if !p.Complete() {
				return nil, newError(KindPassengerRequired, "passenger %d is missing required fields", i+1)
			}
			if _, err := time.Parse(models.DateLayout, p.DateOfBirth); err != nil {
				return nil, newError(KindPassengerRequired, "passenger %d has an invalid date of birth", i+1)
			}
		}

		class := models.SeatClass(req.Flight.SeatClass)
		if class == "" {
			class = models.SeatClassEconomy
		}
		if !class.Valid() {
			return nil, newError(KindInvalidSelection, "unknown seat class %q", req.Flight.SeatClass)
		}

		flight, err := s.catalogRepo.GetFlight(ctx, req.Flight.FlightID)
		if err != nil {
			return nil, mapStoreError(err)
		}
		if flight == nil {
			return nil, newError(KindResourceUnavailable, "flight %s does not exist", req.Flight.FlightID)
		}

		priced.flight = flight
		priced.flightClass = class
		priced.flightPrice = flightFare(flight.BasePrice, class, len(req.Passengers))
	}

	if req.Hotel != nil {
		checkIn, err := time.Parse(models.DateLayout, req.Hotel.CheckIn)
		if err != nil {
			return nil, newError(KindInvalidSelection, "invalid check-in date %q", req.Hotel.CheckIn)
		}
		checkOut, err := time.Parse(models.DateLayout, req.Hotel.CheckOut)
		if err != nil {
			return nil, newError(KindInvalidSelection, "invalid check-out date %q", req.Hotel.CheckOut)
		}
		if !checkIn.Before(checkOut) {
			return nil, newError(KindInvalidSelection, "check-out must be after check-in")
		}

		room, err := s.catalogRepo.GetRoom(ctx, req.Hotel.RoomID)
		if err != nil {
			return nil, mapStoreError(err)
		}
		if room == nil {
			return nil, newError(KindResourceUnavailable, "room %s does not exist", req.Hotel.RoomID)
		}
		if req.Hotel.Guests > room.Capacity {
			return nil, newError(KindInvalidSelection, "room %s sleeps %d guests, %d requested", room.ID, room.Capacity, req.Hotel.Guests)
		}

		priced.room = room
		priced.checkIn = checkIn
		priced.checkOut = checkOut
		nights := int(checkOut.Sub(checkIn).Hours() / 24)
		priced.hotelPrice = room.PricePerNight * float64(nights)
	}

	if req.Car != nil {
		pickup, err := time.Parse(time.RFC3339, req.Car.PickupTime)
		if err != nil {
			return nil, newError(KindInvalidSelection, "invalid pickup time %q", req.Car.PickupTime)
		}
		dropoff, err := time.Parse(time.RFC3339, req.Car.DropoffTime)
		if err != nil {
			return nil, newError(KindInvalidSelection, "invalid dropoff time %q", req.Car.DropoffTime)
		}
		if !pickup.Before(dropoff) {
			return nil, newError(KindInvalidSelection, "dropoff must be after pickup")
		}

		car, err := s.catalogRepo.GetCar(ctx, req.Car.CarID)
		if err != nil {
			return nil, mapStoreError(err)
		}
		if car == nil {
			return nil, newError(KindResourceUnavailable, "car %s does not exist", req.Car.CarID)
		}

		priced.car = car
		priced.pickup = pickup
		priced.dropoff = dropoff
		days := int(math.Ceil(dropoff.Sub(pickup).Hours() / 24))
		if days < 1 {
			days = 1
		}
		priced.carPrice = car.PricePerDay * float64(days)
	}

	priced.total = priced.flightPrice + priced.hotelPrice + priced.carPrice
	return priced, nil
}

func flightFare(basePrice float64, class models.SeatClass, passengers int) float64 {
	fare := basePrice
	if class == models.SeatClassBusiness {
		fare *= businessClassMultiplier
	}
	return fare * float64(passengers)
}

// checkAvailability runs the advisory pre-write availability check.
func (s *BookingOrchestratorService) checkAvailability(ctx context.Context, req *models.CreateBookingRequest, priced *pricedSelections) error {
	if priced.flight != nil {
		ok, err := s.availability.IsFlightAvailable(ctx, priced.flight.ID, len(req.Passengers))
		if err != nil {
			return mapStoreError(err)
		}
		if !ok {
			return newError(KindResourceUnavailable, "flight %s does not have %d seats left", priced.flight.ID, len(req.Passengers))
		}
	}
	if priced.room != nil {
		ok, err := s.availability.IsRoomAvailable(ctx, priced.room.ID, priced.checkIn, priced.checkOut)
		if err != nil {
			return mapStoreError(err)
		}
		if !ok {
			return newError(KindResourceUnavailable, "room %s is occupied over the requested dates", priced.room.ID)
		}
	}
	if priced.car != nil {
		ok, err := s.availability.IsCarAvailable(ctx, priced.car.ID, priced.pickup, priced.dropoff)
		if err != nil {
			return mapStoreError(err)
		}
		if !ok {
			return newError(KindResourceUnavailable, "car %s is rented over the requested span", priced.car.ID)
		}
	}
	return nil
}

// writeLineItems persists the sub-bookings and passengers for a freshly
// created parent booking and returns the assembled view.
func (s *BookingOrchestratorService) writeLineItems(ctx context.Context, booking *models.Booking, req *models.CreateBookingRequest, priced *pricedSelections) (*models.BookingView, error) {
	view := &models.BookingView{Booking: *booking, Passengers: []models.Passenger{}}

	if priced.flight != nil {
		fb := &models.FlightBooking{
			BookingID:  booking.ID,
			FlightID:   priced.flight.ID,
			SeatClass:  priced.flightClass,
			Passengers: len(req.Passengers),
			Price:      priced.flightPrice,
		}
		if _, err := s.bookingRepo.CreateFlightBooking(ctx, fb); err != nil {
			return nil, mapStoreError(err)
		}
		view.FlightBooking = fb
	}

	if priced.room != nil {
		hb := &models.HotelBooking{
			BookingID: booking.ID,
			RoomID:    priced.room.ID,
			CheckIn:   priced.checkIn,
			CheckOut:  priced.checkOut,
			Guests:    req.Hotel.Guests,
			Price:     priced.hotelPrice,
		}
		if _, err := s.bookingRepo.CreateHotelBooking(ctx, hb); err != nil {
			return nil, mapStoreError(err)
		}
		view.HotelBooking = hb
	}

	if priced.car != nil {
		cb := &models.CarBooking{
			BookingID:       booking.ID,
			CarID:           priced.car.ID,
			PickupTime:      priced.pickup,
			DropoffTime:     priced.dropoff,
			PickupLocation:  req.Car.PickupLocation,
			DropoffLocation: req.Car.DropoffLocation,
			Price:           priced.carPrice,
		}
		if _, err := s.bookingRepo.CreateCarBooking(ctx, cb); err != nil {
			return nil, mapStoreError(err)
		}
		view.CarBooking = cb
	}

	for _, input := range req.Passengers {
		dob, _ := time.Parse(models.DateLayout, input.DateOfBirth)
		p := &models.Passenger{
			BookingID:   booking.ID,
			FirstName:   input.FirstName,
			LastName:    input.LastName,
			Gender:      input.Gender,
			DateOfBirth: dob,
			PassportNo:  input.PassportNo,
		}
		if _, err := s.bookingRepo.CreatePassenger(ctx, p); err != nil {
			return nil, mapStoreError(err)
		}
		view.Passengers = append(view.Passengers, *p)
	}

	return view, nil
}

// claimsHold re-reads every claim the booking just wrote and confirms it
// against allocation order.
func (s *BookingOrchestratorService) claimsHold(ctx context.Context, view *models.BookingView) (bool, error) {
	if view.FlightBooking != nil {
		ok, err := s.availability.ConfirmFlightClaim(ctx, view.FlightBooking.FlightID, view.FlightBooking.ID)
		if err != nil || !ok {
			return false, err
		}
	}
	if view.HotelBooking != nil {
		ok, err := s.availability.ConfirmRoomClaim(ctx, view.HotelBooking.RoomID, view.HotelBooking.ID)
		if err != nil || !ok {
			return false, err
		}
	}
	if view.CarBooking != nil {
		ok, err := s.availability.ConfirmCarClaim(ctx, view.CarBooking.CarID, view.CarBooking.ID)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// abandonBooking cancels a half-created booking so its claims stop counting
// against capacity. Best effort: if the update itself fails the booking
// stays pending and childless, which the read path treats as recoverable.
func (s *BookingOrchestratorService) abandonBooking(ctx context.Context, bookingID string) {
	if err := s.bookingRepo.UpdateBookingStatus(ctx, bookingID, models.BookingStatusCancelled); err != nil {
		s.logger.WithError(err).WithField("booking_id", bookingID).Error("Failed to cancel abandoned booking")
	}
}

// ============================================================================
// PAYMENT
// ============================================================================

// ProcessPayment performs the pending → confirmed transition. The submitted
// amount must match the booking total exactly, and availability is
// re-checked here: this is the authoritative gate against a race where two
// pending bookings were created for the same last unit of capacity. On a
// failed re-check the booking stays pending and the caller decides whether
// to cancel or retry against different inventory.
func (s *BookingOrchestratorService) ProcessPayment(ctx context.Context, userID, bookingID string, req *models.ProcessPaymentRequest) (*models.BookingView, error) {
	booking, err := s.loadOwnedBooking(ctx, userID, bookingID)
	if err != nil {
		return nil, err
	}

	if !booking.CanBePaid() {
		return nil, newError(KindInvalidState, "booking %s is %s, not pending", booking.ID, booking.Status)
	}

	if models.AmountCents(req.Amount) != models.AmountCents(booking.TotalAmount) {
		return nil, newError(KindAmountMismatch, "payment of %.2f does not match booking total %.2f", req.Amount, booking.TotalAmount)
	}

	view, err := s.assembleView(ctx, booking)
	if err != nil {
		return nil, err
	}

	held, err := s.claimsHold(ctx, view)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if !held {
		return nil, newError(KindResourceUnavailable, "capacity was lost to a concurrent booking; booking remains pending")
	}

	// A captured payment may already exist if a previous attempt crashed
	// between writing the payment and updating the status; reuse it so the
	// retry converges instead of double-charging.
	payment, err := s.bookingRepo.GetPaymentByBooking(ctx, booking.ID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if payment == nil {
		payment = &models.Payment{
			BookingID:      booking.ID,
			Method:         req.Method,
			Amount:         req.Amount,
			PaidAt:         time.Now().UTC(),
			Status:         models.PaymentStatusCaptured,
			TransactionRef: newTransactionRef(),
		}
		if _, err := s.bookingRepo.CreatePayment(ctx, payment); err != nil {
			// The payment row is keyed on the booking, so a concurrent
			// payer landing here lost the append. Adopt the winner's
			// payment; the caller was charged once either way.
			if !errors.Is(err, store.ErrConflict) {
				return nil, mapStoreError(err)
			}
			payment, err = s.bookingRepo.GetPaymentByBooking(ctx, booking.ID)
			if err != nil {
				return nil, mapStoreError(err)
			}
			if payment == nil {
				return nil, newError(KindStoreUnavailable, "payment for booking %s vanished after write conflict", booking.ID)
			}
		}
	}

	if err := booking.Confirm(); err != nil {
		return nil, newError(KindInvalidState, "%v", err)
	}
	if err := s.bookingRepo.UpdateBookingStatus(ctx, booking.ID, models.BookingStatusConfirmed); err != nil {
		return nil, mapStoreError(err)
	}

	view.Booking = *booking
	view.Payment = payment

	s.logger.WithFields(logrus.Fields{
		"booking_id":      booking.ID,
		"payment_id":      payment.ID,
		"transaction_ref": payment.TransactionRef,
		"amount":          payment.Amount,
	}).Info("Booking confirmed")

	s.publish(ctx, events.TypeBookingConfirmed, booking)
	return view, nil
}

// newTransactionRef generates the reference recorded on a payment. No money
// moves; the reference only has to be unique enough to trace.
func newTransactionRef() string {
	return "TXN-" + strings.ToUpper(uuid.NewString()[:8])
}

// ============================================================================
// CANCEL
// ============================================================================

// CancelBooking performs the terminal transition to cancelled. A confirmed
// booking gets its payment flipped to refunded; a pending one is simply
// cancelled. Capacity is released implicitly because the availability
// calculator ignores cancelled bookings. A second cancel reports
// invalid-state rather than succeeding silently.
func (s *BookingOrchestratorService) CancelBooking(ctx context.Context, userID, bookingID string) (*models.BookingView, error) {
	booking, err := s.loadOwnedBooking(ctx, userID, bookingID)
	if err != nil {
		return nil, err
	}

	if !booking.CanBeCancelled() {
		return nil, newError(KindInvalidState, "booking %s is already cancelled", booking.ID)
	}

	// Refund before flipping the status: if the refund write fails the
	// booking is still confirmed and the whole cancel can be retried.
	var payment *models.Payment
	if booking.Status == models.BookingStatusConfirmed {
		payment, err = s.bookingRepo.GetPaymentByBooking(ctx, booking.ID)
		if err != nil {
			return nil, mapStoreError(err)
		}
		if payment != nil && payment.Status == models.PaymentStatusCaptured {
			if err := s.bookingRepo.UpdatePaymentStatus(ctx, payment.ID, models.PaymentStatusRefunded); err != nil {
				return nil, mapStoreError(err)
			}
			payment.Status = models.PaymentStatusRefunded
		}
	}

	if err := booking.Cancel(); err != nil {
		return nil, newError(KindInvalidState, "%v", err)
	}
	if err := s.bookingRepo.UpdateBookingStatus(ctx, booking.ID, models.BookingStatusCancelled); err != nil {
		return nil, mapStoreError(err)
	}

	view, err := s.assembleView(ctx, booking)
	if err != nil {
		return nil, err
	}
	view.Booking = *booking
	view.Payment = payment

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"refunded":   payment != nil,
	}).Info("Booking cancelled")

	s.publish(ctx, events.TypeBookingCancelled, booking)
	return view, nil
}

// ============================================================================
// PASSENGERS
// ============================================================================

// UpdatePassenger applies a partial field update to a passenger. It never
// touches booking state or price.
func (s *BookingOrchestratorService) UpdatePassenger(ctx context.Context, userID, passengerID string, req *models.UpdatePassengerRequest) (*models.Passenger, error) {
	passenger, err := s.bookingRepo.GetPassengerByID(ctx, passengerID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if passenger == nil {
		return nil, newError(KindNotFound, "passenger %s not found", passengerID)
	}

	// Ownership is checked through the parent booking.
	if _, err := s.loadOwnedBooking(ctx, userID, passenger.BookingID); err != nil {
		return nil, err
	}

	fields := store.Row{}
	if req.FirstName != nil {
		fields["first_name"] = *req.FirstName
		passenger.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		fields["last_name"] = *req.LastName
		passenger.LastName = *req.LastName
	}
	if req.Gender != nil {
		fields["gender"] = *req.Gender
		passenger.Gender = *req.Gender
	}
	if req.DateOfBirth != nil {
		dob, err := time.Parse(models.DateLayout, *req.DateOfBirth)
		if err != nil {
			return nil, newError(KindInvalidSelection, "invalid date of birth %q", *req.DateOfBirth)
		}
		fields["dob"] = *req.DateOfBirth
		passenger.DateOfBirth = dob
	}
	if req.PassportNo != nil {
		fields["passport_no"] = *req.PassportNo
		passenger.PassportNo = *req.PassportNo
	}

	if len(fields) == 0 {
		return passenger, nil
	}

	if err := s.bookingRepo.UpdatePassenger(ctx, passengerID, fields); err != nil {
		if err == store.ErrNotFound {
			return nil, newError(KindNotFound, "passenger %s not found", passengerID)
		}
		return nil, mapStoreError(err)
	}
	return passenger, nil
}

// ============================================================================
// READS
// ============================================================================

// GetBooking assembles the full booking view.
func (s *BookingOrchestratorService) GetBooking(ctx context.Context, userID, bookingID string) (*models.BookingView, error) {
	booking, err := s.loadOwnedBooking(ctx, userID, bookingID)
	if err != nil {
		return nil, err
	}
	view, err := s.assembleView(ctx, booking)
	if err != nil {
		return nil, err
	}
	payment, err := s.bookingRepo.GetPaymentByBooking(ctx, booking.ID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	view.Payment = payment
	return view, nil
}

// ListBookings returns the full views of every booking owned by the user,
// newest first.
func (s *BookingOrchestratorService) ListBookings(ctx context.Context, userID string) ([]models.BookingView, error) {
	bookings, err := s.bookingRepo.GetBookingsByUser(ctx, userID)
	if err != nil {
		return nil, mapStoreError(err)
	}

	views := make([]models.BookingView, 0, len(bookings))
	for i := range bookings {
		view, err := s.assembleView(ctx, &bookings[i])
		if err != nil {
			return nil, err
		}
		payment, err := s.bookingRepo.GetPaymentByBooking(ctx, bookings[i].ID)
		if err != nil {
			return nil, mapStoreError(err)
		}
		view.Payment = payment
		views = append(views, *view)
	}
	return views, nil
}

// loadOwnedBooking fetches a booking and verifies ownership. A booking
// owned by another user is reported as not found rather than leaking its
// existence.
func (s *BookingOrchestratorService) loadOwnedBooking(ctx context.Context, userID, bookingID string) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if booking == nil || booking.UserID != userID {
		return nil, newError(KindNotFound, "booking %s not found", bookingID)
	}
	return booking, nil
}

// assembleView joins the booking with its sub-bookings and passengers.
func (s *BookingOrchestratorService) assembleView(ctx context.Context, booking *models.Booking) (*models.BookingView, error) {
	view := &models.BookingView{Booking: *booking}

	fb, err := s.bookingRepo.GetFlightBookingByBooking(ctx, booking.ID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	view.FlightBooking = fb

	hb, err := s.bookingRepo.GetHotelBookingByBooking(ctx, booking.ID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	view.HotelBooking = hb

	cb, err := s.bookingRepo.GetCarBookingByBooking(ctx, booking.ID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	view.CarBooking = cb

	passengers, err := s.bookingRepo.GetPassengersByBooking(ctx, booking.ID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if passengers == nil {
		passengers = []models.Passenger{}
	}
	view.Passengers = passengers

	return view, nil
}

func (s *BookingOrchestratorService) publish(ctx context.Context, eventType string, booking *models.Booking) {
	if s.publisher == nil {
		return
	}
	event := events.BookingEvent{
		Type:        eventType,
		BookingID:   booking.ID,
		UserID:      booking.UserID,
		Status:      string(booking.Status),
		TotalAmount: booking.TotalAmount,
		OccurredAt:  time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"booking_id": booking.ID,
			"event_type": eventType,
		}).Warn("Failed to publish booking event")
	}
}
