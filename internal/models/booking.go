package models

import (
	"errors"
	"math"
	"time"
)

// DateLayout is the wire format for date-only spans (hotel nights).
const DateLayout = "2006-01-02"

// BookingStatus represents the lifecycle state of a booking.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// PaymentStatus represents the state of a recorded payment.
type PaymentStatus string

const (
	PaymentStatusCaptured PaymentStatus = "captured"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Booking is the top-level reservation aggregating flight, hotel and car
// line items, its passengers and its payment. It owns the
// pending → confirmed/cancelled state machine; cancelled is terminal.
type Booking struct {
	ID          string        `json:"id"`
	UserID      string        `json:"user_id"`
	Status      BookingStatus `json:"status"`
	TotalAmount float64       `json:"total_amount"`
	CreatedAt   time.Time     `json:"created_at"`
}

// CanBePaid reports whether the booking may transition to confirmed.
func (b *Booking) CanBePaid() bool {
	return b.Status == BookingStatusPending
}

// CanBeCancelled reports whether the booking may transition to cancelled.
func (b *Booking) CanBeCancelled() bool {
	return b.Status == BookingStatusPending || b.Status == BookingStatusConfirmed
}

// Confirm moves the booking from pending to confirmed.
func (b *Booking) Confirm() error {
	if !b.CanBePaid() {
		return errors.New("booking is not pending")
	}
	b.Status = BookingStatusConfirmed
	return nil
}

// Cancel moves the booking to the terminal cancelled state.
func (b *Booking) Cancel() error {
	if !b.CanBeCancelled() {
		return errors.New("booking is already cancelled")
	}
	b.Status = BookingStatusCancelled
	return nil
}

// FlightBooking is a flight line item. The claim it makes on the flight's
// seat pool is its passenger count.
type FlightBooking struct {
	ID         string    `json:"id"`
	BookingID  string    `json:"booking_id"`
	FlightID   string    `json:"flight_id"`
	SeatClass  SeatClass `json:"seat_class"`
	Passengers int       `json:"passengers"`
	Price      float64   `json:"price"`
}

// HotelBooking is a hotel line item claiming a room over a half-open
// [check_in, check_out) span of nights.
type HotelBooking struct {
	ID        string    `json:"id"`
	BookingID string    `json:"booking_id"`
	RoomID    string    `json:"room_id"`
	CheckIn   time.Time `json:"check_in"`
	CheckOut  time.Time `json:"check_out"`
	Guests    int       `json:"guests"`
	Price     float64   `json:"price"`
}

// CarBooking is a car rental line item claiming a vehicle over a half-open
// [pickup, dropoff) span.
type CarBooking struct {
	ID              string    `json:"id"`
	BookingID       string    `json:"booking_id"`
	CarID           string    `json:"car_id"`
	PickupTime      time.Time `json:"pickup_time"`
	DropoffTime     time.Time `json:"dropoff_time"`
	PickupLocation  string    `json:"pickup_location"`
	DropoffLocation string    `json:"dropoff_location"`
	Price           float64   `json:"price"`
}

// Passenger is a traveller attached to a booking. Passengers are created
// with the booking and mutable afterwards, but never deleted on their own.
type Passenger struct {
	ID          string    `json:"id"`
	BookingID   string    `json:"booking_id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Gender      string    `json:"gender"`
	DateOfBirth time.Time `json:"date_of_birth"`
	PassportNo  string    `json:"passport_no"`
}

// Payment records a captured amount against a booking. Exactly one payment
// exists for a confirmed booking; cancelling a confirmed booking flips it to
// refunded rather than deleting it.
type Payment struct {
	ID             string        `json:"id"`
	BookingID      string        `json:"booking_id"`
	Method         string        `json:"method"`
	Amount         float64       `json:"amount"`
	PaidAt         time.Time     `json:"paid_at"`
	Status         PaymentStatus `json:"status"`
	TransactionRef string        `json:"transaction_ref"`
}

// AmountCents converts a currency amount to integer cents for exact
// comparison. Payment matching is exact; there is no partial payment.
func AmountCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// FlightSelection is the flight part of a create-booking request.
type FlightSelection struct {
	FlightID  string `json:"flight_id" binding:"required"`
	SeatClass string `json:"seat_class"`
}

// HotelSelection is the hotel part of a create-booking request.
type HotelSelection struct {
	RoomID   string `json:"room_id" binding:"required"`
	CheckIn  string `json:"check_in" binding:"required"`
	CheckOut string `json:"check_out" binding:"required"`
	Guests   int    `json:"guests"`
}

// CarSelection is the car part of a create-booking request.
type CarSelection struct {
	CarID           string `json:"car_id" binding:"required"`
	PickupTime      string `json:"pickup_time" binding:"required"`
	DropoffTime     string `json:"dropoff_time" binding:"required"`
	PickupLocation  string `json:"pickup_location"`
	DropoffLocation string `json:"dropoff_location"`
}

// PassengerInput carries passenger details on a create-booking request.
type PassengerInput struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Gender      string `json:"gender"`
	DateOfBirth string `json:"date_of_birth"`
	PassportNo  string `json:"passport_no"`
}

// Complete reports whether every required passenger field is present.
func (p *PassengerInput) Complete() bool {
	return p.FirstName != "" && p.LastName != "" && p.Gender != "" &&
		p.DateOfBirth != "" && p.PassportNo != ""
}

// CreateBookingRequest represents the request to create a booking. At least
// one of Flight, Hotel or Car must be present.
type CreateBookingRequest struct {
	Flight     *FlightSelection `json:"flight,omitempty"`
	Hotel      *HotelSelection  `json:"hotel,omitempty"`
	Car        *CarSelection    `json:"car,omitempty"`
	Passengers []PassengerInput `json:"passengers"`
}

// ProcessPaymentRequest represents the request to pay for a booking.
type ProcessPaymentRequest struct {
	Method string  `json:"method" binding:"required"`
	Amount float64 `json:"amount" binding:"required"`
}

// UpdatePassengerRequest carries the partial field set for a passenger
// update. Nil fields are left untouched.
type UpdatePassengerRequest struct {
	FirstName   *string `json:"first_name,omitempty"`
	LastName    *string `json:"last_name,omitempty"`
	Gender      *string `json:"gender,omitempty"`
	DateOfBirth *string `json:"date_of_birth,omitempty"`
	PassportNo  *string `json:"passport_no,omitempty"`
}

// Empty reports whether the update carries no fields at all.
func (r *UpdatePassengerRequest) Empty() bool {
	return r.FirstName == nil && r.LastName == nil && r.Gender == nil &&
		r.DateOfBirth == nil && r.PassportNo == nil
}

// BookingView is the fully assembled read model for a booking: the parent
// row joined with its sub-bookings, passengers and payment.
type BookingView struct {
	Booking
	FlightBooking *FlightBooking `json:"flight_booking,omitempty"`
	HotelBooking  *HotelBooking  `json:"hotel_booking,omitempty"`
	CarBooking    *CarBooking    `json:"car_booking,omitempty"`
	Passengers    []Passenger    `json:"passengers"`
	Payment       *Payment       `json:"payment,omitempty"`
}
