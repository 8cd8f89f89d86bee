package database

import (
	"context"
	"fmt"
	"sort"

	"github.com/skytrip/travel-booking-backend/internal/models"
	"github.com/skytrip/travel-booking-backend/internal/store"
)

// BookingRepository handles Booking rows and everything owned by them:
// sub-bookings, passengers and payments. Identifiers are the only linkage
// between the tables; nothing here assumes cross-row atomicity.
type BookingRepository struct {
	store     store.Store
	allocator *IDAllocator
}

// NewBookingRepository creates a new BookingRepository.
func NewBookingRepository(s store.Store, allocator *IDAllocator) *BookingRepository {
	return &BookingRepository{store: s, allocator: allocator}
}

// ============================================================================
// Booking rows
// ============================================================================

// CreateBooking persists the parent booking row and returns its ID. The
// parent is written before any children so that a failure mid-create leaves
// a childless pending booking, detectable on read, rather than orphaned
// children with no parent.
func (r *BookingRepository) CreateBooking(ctx context.Context, booking *models.Booking) (string, error) {
	id, err := r.allocator.Allocate(ctx, TableBooking, PrefixBooking, DefaultIDWidth, func(id string) store.Row {
		booking.ID = id
		return bookingToRow(booking)
	})
	if err != nil {
		return "", err
	}
	booking.ID = id
	return id, nil
}

// GetBookingByID retrieves a booking by ID, or nil if absent.
func (r *BookingRepository) GetBookingByID(ctx context.Context, bookingID string) (*models.Booking, error) {
	row, err := store.FindRowByID(ctx, r.store, TableBooking, bookingID)
	if err == store.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up booking: %w", err)
	}
	return rowToBooking(row)
}

// GetBookingsByUser retrieves all bookings for a user, newest first.
func (r *BookingRepository) GetBookingsByUser(ctx context.Context, userID string) ([]models.Booking, error) {
	rows, err := r.store.FindRows(ctx, TableBooking, func(row store.Row) bool {
		return row["user_id"] == userID
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	bookings := make([]models.Booking, 0, len(rows))
	for _, row := range rows {
		b, err := rowToBooking(row)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	sort.Slice(bookings, func(i, j int) bool { return allocatedBefore(bookings[j].ID, bookings[i].ID) })
	return bookings, nil
}

// UpdateBookingStatus moves a booking to the given status.
func (r *BookingRepository) UpdateBookingStatus(ctx context.Context, bookingID string, status models.BookingStatus) error {
	err := r.store.UpdateRow(ctx, TableBooking, bookingID, store.Row{"status": string(status)})
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	return nil
}

// cancelledBookingIDs returns the set of booking IDs whose status is
// cancelled. Availability calculations exclude their claims.
func (r *BookingRepository) cancelledBookingIDs(ctx context.Context) (map[string]bool, error) {
	rows, err := r.store.FindRows(ctx, TableBooking, func(row store.Row) bool {
		return row["status"] == string(models.BookingStatusCancelled)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan bookings: %w", err)
	}
	cancelled := make(map[string]bool, len(rows))
	for _, row := range rows {
		cancelled[row.ID()] = true
	}
	return cancelled, nil
}

// ============================================================================
// Sub-booking rows
// ============================================================================

// CreateFlightBooking persists a flight line item.
func (r *BookingRepository) CreateFlightBooking(ctx context.Context, fb *models.FlightBooking) (string, error) {
	id, err := r.allocator.Allocate(ctx, TableFlightBooking, PrefixFlightBooking, DefaultIDWidth, func(id string) store.Row {
		fb.ID = id
		return flightBookingToRow(fb)
	})
	if err != nil {
		return "", err
	}
	fb.ID = id
	return id, nil
}

// CreateHotelBooking persists a hotel line item.
func (r *BookingRepository) CreateHotelBooking(ctx context.Context, hb *models.HotelBooking) (string, error) {
	id, err := r.allocator.Allocate(ctx, TableHotelBooking, PrefixHotelBooking, DefaultIDWidth, func(id string) store.Row {
		hb.ID = id
		return hotelBookingToRow(hb)
	})
	if err != nil {
		return "", err
	}
	hb.ID = id
	return id, nil
}

// CreateCarBooking persists a car line item.
func (r *BookingRepository) CreateCarBooking(ctx context.Context, cb *models.CarBooking) (string, error) {
	id, err := r.allocator.Allocate(ctx, TableCarBooking, PrefixCarBooking, DefaultIDWidth, func(id string) store.Row {
		cb.ID = id
		return carBookingToRow(cb)
	})
	if err != nil {
		return "", err
	}
	cb.ID = id
	return id, nil
}

// GetFlightBookingByBooking returns the flight line item of a booking, or
// nil if the booking has none.
func (r *BookingRepository) GetFlightBookingByBooking(ctx context.Context, bookingID string) (*models.FlightBooking, error) {
	rows, err := r.store.FindRows(ctx, TableFlightBooking, func(row store.Row) bool {
		return row["booking_id"] == bookingID
	})
	if err != nil {
		return nil, fmt.Errorf("failed to look up flight booking: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rowToFlightBooking(rows[0])
}

// GetHotelBookingByBooking returns the hotel line item of a booking, or nil.
func (r *BookingRepository) GetHotelBookingByBooking(ctx context.Context, bookingID string) (*models.HotelBooking, error) {
	rows, err := r.store.FindRows(ctx, TableHotelBooking, func(row store.Row) bool {
		return row["booking_id"] == bookingID
	})
	if err != nil {
		return nil, fmt.Errorf("failed to look up hotel booking: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rowToHotelBooking(rows[0])
}

// GetCarBookingByBooking returns the car line item of a booking, or nil.
func (r *BookingRepository) GetCarBookingByBooking(ctx context.Context, bookingID string) (*models.CarBooking, error) {
	rows, err := r.store.FindRows(ctx, TableCarBooking, func(row store.Row) bool {
		return row["booking_id"] == bookingID
	})
	if err != nil {
		return nil, fmt.Errorf("failed to look up car booking: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rowToCarBooking(rows[0])
}

// ActiveFlightClaims returns the flight line items referencing a flight
// whose parent booking is not cancelled, ordered by line-item ID. The ID
// order doubles as claim priority when concurrent pending bookings
// over-subscribe a resource.
func (r *BookingRepository) ActiveFlightClaims(ctx context.Context, flightID string) ([]models.FlightBooking, error) {
	cancelled, err := r.cancelledBookingIDs(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := r.store.FindRows(ctx, TableFlightBooking, func(row store.Row) bool {
		return row["flight_id"] == flightID && !cancelled[row["booking_id"]]
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan flight bookings: %w", err)
	}

	claims := make([]models.FlightBooking, 0, len(rows))
	for _, row := range rows {
		fb, err := rowToFlightBooking(row)
		if err != nil {
			return nil, err
		}
		claims = append(claims, *fb)
	}
	sort.Slice(claims, func(i, j int) bool { return allocatedBefore(claims[i].ID, claims[j].ID) })
	return claims, nil
}

// ActiveRoomClaims returns the hotel line items referencing a room whose
// parent booking is not cancelled, ordered by line-item ID.
func (r *BookingRepository) ActiveRoomClaims(ctx context.Context, roomID string) ([]models.HotelBooking, error) {
	cancelled, err := r.cancelledBookingIDs(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := r.store.FindRows(ctx, TableHotelBooking, func(row store.Row) bool {
		return row["room_id"] == roomID && !cancelled[row["booking_id"]]
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan hotel bookings: %w", err)
	}

	claims := make([]models.HotelBooking, 0, len(rows))
	for _, row := range rows {
		hb, err := rowToHotelBooking(row)
		if err != nil {
			return nil, err
		}
		claims = append(claims, *hb)
	}
	sort.Slice(claims, func(i, j int) bool { return allocatedBefore(claims[i].ID, claims[j].ID) })
	return claims, nil
}

// ActiveCarClaims returns the car line items referencing a car whose parent
// booking is not cancelled, ordered by line-item ID.
func (r *BookingRepository) ActiveCarClaims(ctx context.Context, carID string) ([]models.CarBooking, error) {
	cancelled, err := r.cancelledBookingIDs(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := r.store.FindRows(ctx, TableCarBooking, func(row store.Row) bool {
		return row["car_id"] == carID && !cancelled[row["booking_id"]]
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan car bookings: %w", err)
	}

	claims := make([]models.CarBooking, 0, len(rows))
	for _, row := range rows {
		cb, err := rowToCarBooking(row)
		if err != nil {
			return nil, err
		}
		claims = append(claims, *cb)
	}
	sort.Slice(claims, func(i, j int) bool { return allocatedBefore(claims[i].ID, claims[j].ID) })
	return claims, nil
}

// ============================================================================
// Passenger rows
// ============================================================================

// CreatePassenger persists a passenger attached to a booking.
func (r *BookingRepository) CreatePassenger(ctx context.Context, p *models.Passenger) (string, error) {
	id, err := r.allocator.Allocate(ctx, TablePassenger, PrefixPassenger, PassengerIDWidth, func(id string) store.Row {
		p.ID = id
		return passengerToRow(p)
	})
	if err != nil {
		return "", err
	}
	p.ID = id
	return id, nil
}

// GetPassengerByID retrieves a passenger, or nil if absent.
func (r *BookingRepository) GetPassengerByID(ctx context.Context, passengerID string) (*models.Passenger, error) {
	row, err := store.FindRowByID(ctx, r.store, TablePassenger, passengerID)
	if err == store.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up passenger: %w", err)
	}
	return rowToPassenger(row)
}

// GetPassengersByBooking retrieves all passengers of a booking ordered by ID.
func (r *BookingRepository) GetPassengersByBooking(ctx context.Context, bookingID string) ([]models.Passenger, error) {
	rows, err := r.store.FindRows(ctx, TablePassenger, func(row store.Row) bool {
		return row["booking_id"] == bookingID
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list passengers: %w", err)
	}

	passengers := make([]models.Passenger, 0, len(rows))
	for _, row := range rows {
		p, err := rowToPassenger(row)
		if err != nil {
			return nil, err
		}
		passengers = append(passengers, *p)
	}
	sort.Slice(passengers, func(i, j int) bool { return allocatedBefore(passengers[i].ID, passengers[j].ID) })
	return passengers, nil
}

// UpdatePassenger merges the given fields into a passenger row. Returns
// store.ErrNotFound if the passenger does not exist.
func (r *BookingRepository) UpdatePassenger(ctx context.Context, passengerID string, fields store.Row) error {
	return r.store.UpdateRow(ctx, TablePassenger, passengerID, fields)
}

// ============================================================================
// Payment rows
// ============================================================================

// CreatePayment persists a captured payment for a booking. The payment ID
// is derived from the booking ID rather than allocated, so a booking can
// only ever own one payment row: a concurrent second writer gets
// store.ErrConflict and must adopt the existing payment instead.
func (r *BookingRepository) CreatePayment(ctx context.Context, p *models.Payment) (string, error) {
	p.ID = PaymentID(p.BookingID)
	if err := r.store.AppendRow(ctx, TablePayment, paymentToRow(p)); err != nil {
		return "", err
	}
	return p.ID, nil
}

// PaymentID is the deterministic identifier of the single payment a
// booking may own.
func PaymentID(bookingID string) string {
	return PrefixPayment + "-" + bookingID
}

// GetPaymentByBooking returns the payment of a booking, or nil if none
// exists yet.
func (r *BookingRepository) GetPaymentByBooking(ctx context.Context, bookingID string) (*models.Payment, error) {
	rows, err := r.store.FindRows(ctx, TablePayment, func(row store.Row) bool {
		return row["booking_id"] == bookingID
	})
	if err != nil {
		return nil, fmt.Errorf("failed to look up payment: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rowToPayment(rows[0])
}

// UpdatePaymentStatus moves a payment to the given status.
func (r *BookingRepository) UpdatePaymentStatus(ctx context.Context, paymentID string, status models.PaymentStatus) error {
	err := r.store.UpdateRow(ctx, TablePayment, paymentID, store.Row{"status": string(status)})
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	return nil
}

// ============================================================================
// Row conversion
// ============================================================================

func bookingToRow(b *models.Booking) store.Row {
	return store.Row{
		"id":           b.ID,
		"user_id":      b.UserID,
		"status":       string(b.Status),
		"total_amount": formatFloat(b.TotalAmount),
		"booked_at":    formatTimestamp(b.CreatedAt),
	}
}

func rowToBooking(row store.Row) (*models.Booking, error) {
	rd := newRowReader(row)
	booking := &models.Booking{
		ID:          rd.str("id"),
		UserID:      rd.str("user_id"),
		Status:      models.BookingStatus(rd.str("status")),
		TotalAmount: rd.float("total_amount"),
		CreatedAt:   rd.timestamp("booked_at"),
	}
	if rd.err != nil {
		return nil, fmt.Errorf("malformed booking row %s: %w", row.ID(), rd.err)
	}
	return booking, nil
}

func flightBookingToRow(fb *models.FlightBooking) store.Row {
	return store.Row{
		"id":         fb.ID,
		"booking_id": fb.BookingID,
		"flight_id":  fb.FlightID,
		"seat_class": string(fb.SeatClass),
		"passengers": formatInt(fb.Passengers),
		"price":      formatFloat(fb.Price),
	}
}

func rowToFlightBooking(row store.Row) (*models.FlightBooking, error) {
	rd := newRowReader(row)
	fb := &models.FlightBooking{
		ID:         rd.str("id"),
		BookingID:  rd.str("booking_id"),
		FlightID:   rd.str("flight_id"),
		SeatClass:  models.SeatClass(rd.str("seat_class")),
		Passengers: rd.intval("passengers"),
		Price:      rd.float("price"),
	}
	if rd.err != nil {
		return nil, fmt.Errorf("malformed flight booking row %s: %w", row.ID(), rd.err)
	}
	return fb, nil
}

func hotelBookingToRow(hb *models.HotelBooking) store.Row {
	return store.Row{
		"id":         hb.ID,
		"booking_id": hb.BookingID,
		"room_id":    hb.RoomID,
		"check_in":   formatDate(hb.CheckIn),
		"check_out":  formatDate(hb.CheckOut),
		"guests":     formatInt(hb.Guests),
		"price":      formatFloat(hb.Price),
	}
}

func rowToHotelBooking(row store.Row) (*models.HotelBooking, error) {
	rd := newRowReader(row)
	hb := &models.HotelBooking{
		ID:        rd.str("id"),
		BookingID: rd.str("booking_id"),
		RoomID:    rd.str("room_id"),
		CheckIn:   rd.date("check_in"),
		CheckOut:  rd.date("check_out"),
		Guests:    rd.intval("guests"),
		Price:     rd.float("price"),
	}
	if rd.err != nil {
		return nil, fmt.Errorf("malformed hotel booking row %s: %w", row.ID(), rd.err)
	}
	return hb, nil
}

func carBookingToRow(cb *models.CarBooking) store.Row {
	return store.Row{
		"id":               cb.ID,
		"booking_id":       cb.BookingID,
		"car_id":           cb.CarID,
		"pickup_time":      formatTimestamp(cb.PickupTime),
		"dropoff_time":     formatTimestamp(cb.DropoffTime),
		"pickup_location":  cb.PickupLocation,
		"dropoff_location": cb.DropoffLocation,
		"price":            formatFloat(cb.Price),
	}
}

func rowToCarBooking(row store.Row) (*models.CarBooking, error) {
	rd := newRowReader(row)
	cb := &models.CarBooking{
		ID:              rd.str("id"),
		BookingID:       rd.str("booking_id"),
		CarID:           rd.str("car_id"),
		PickupTime:      rd.timestamp("pickup_time"),
		DropoffTime:     rd.timestamp("dropoff_time"),
		PickupLocation:  rd.str("pickup_location"),
		DropoffLocation: rd.str("dropoff_location"),
		Price:           rd.float("price"),
	}
	if rd.err != nil {
		return nil, fmt.Errorf("malformed car booking row %s: %w", row.ID(), rd.err)
	}
	return cb, nil
}

func passengerToRow(p *models.Passenger) store.Row {
	return store.Row{
		"id":          p.ID,
		"booking_id":  p.BookingID,
		"first_name":  p.FirstName,
		"last_name":   p.LastName,
		"gender":      p.Gender,
		"dob":         formatDate(p.DateOfBirth),
		"passport_no": p.PassportNo,
	}
}

func rowToPassenger(row store.Row) (*models.Passenger, error) {
	rd := newRowReader(row)
	p := &models.Passenger{
		ID:          rd.str("id"),
		BookingID:   rd.str("booking_id"),
		FirstName:   rd.str("first_name"),
		LastName:    rd.str("last_name"),
		Gender:      rd.str("gender"),
		DateOfBirth: rd.date("dob"),
		PassportNo:  rd.str("passport_no"),
	}
	if rd.err != nil {
		return nil, fmt.Errorf("malformed passenger row %s: %w", row.ID(), rd.err)
	}
	return p, nil
}

func paymentToRow(p *models.Payment) store.Row {
	return store.Row{
		"id":              p.ID,
		"booking_id":      p.BookingID,
		"method":          p.Method,
		"amount":          formatFloat(p.Amount),
		"paid_at":         formatTimestamp(p.PaidAt),
		"status":          string(p.Status),
		"transaction_ref": p.TransactionRef,
	}
}

func rowToPayment(row store.Row) (*models.Payment, error) {
	rd := newRowReader(row)
	p := &models.Payment{
		ID:             rd.str("id"),
		BookingID:      rd.str("booking_id"),
		Method:         rd.str("method"),
		Amount:         rd.float("amount"),
		PaidAt:         rd.timestamp("paid_at"),
		Status:         models.PaymentStatus(rd.str("status")),
		TransactionRef: rd.str("transaction_ref"),
	}
	if rd.err != nil {
		return nil, fmt.Errorf("malformed payment row %s: %w", row.ID(), rd.err)
	}
	return p, nil
}
