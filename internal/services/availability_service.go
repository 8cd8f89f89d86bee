package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/skytrip/travel-booking-backend/internal/database"
)

// AvailabilityService derives point-in-time capacity for flights, rooms and
// cars from the current booking rows. Nothing is locked: the calculation is
// read-then-decide, and the orchestrator re-runs it at each state
// transition.
type AvailabilityService struct {
	catalogRepo *database.CatalogRepository
	bookingRepo *database.BookingRepository
	logger      *logrus.Logger
}

// NewAvailabilityService creates a new AvailabilityService.
func NewAvailabilityService(
	catalogRepo *database.CatalogRepository,
	bookingRepo *database.BookingRepository,
	logger *logrus.Logger,
) *AvailabilityService {
	return &AvailabilityService{
		catalogRepo: catalogRepo,
		bookingRepo: bookingRepo,
		logger:      logger,
	}
}

// SpansOverlap reports whether two half-open spans [aStart, aEnd) and
// [bStart, bEnd) intersect. A checkout or dropoff at the same instant as a
// new check-in or pickup does not overlap, which is what allows
// back-to-back reservations.
func SpansOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// FlightSeatsRemaining computes the seats still free on a flight: fixed
// capacity minus the passenger counts of every non-cancelled flight
// booking.
func (s *AvailabilityService) FlightSeatsRemaining(ctx context.Context, flightID string) (int, error) {
	flight, err := s.catalogRepo.GetFlight(ctx, flightID)
	if err != nil {
		return 0, err
	}
	if flight == nil {
		return 0, newError(KindNotFound, "flight %s not found", flightID)
	}

	claims, err := s.bookingRepo.ActiveFlightClaims(ctx, flightID)
	if err != nil {
		return 0, err
	}

	claimed := 0
	for _, claim := range claims {
		claimed += claim.Passengers
	}
	return flight.SeatCapacity - claimed, nil
}

// IsFlightAvailable reports whether a flight can still seat the requested
// passenger count.
func (s *AvailabilityService) IsFlightAvailable(ctx context.Context, flightID string, passengers int) (bool, error) {
	remaining, err := s.FlightSeatsRemaining(ctx, flightID)
	if err != nil {
		return false, err
	}
	return remaining >= passengers, nil
}

// IsRoomAvailable reports whether a room is free over the half-open
// [checkIn, checkOut) span.
func (s *AvailabilityService) IsRoomAvailable(ctx context.Context, roomID string, checkIn, checkOut time.Time) (bool, error) {
	claims, err := s.bookingRepo.ActiveRoomClaims(ctx, roomID)
	if err != nil {
		return false, err
	}
	for _, claim := range claims {
		if SpansOverlap(claim.CheckIn, claim.CheckOut, checkIn, checkOut) {
			return false, nil
		}
	}
	return true, nil
}

// IsCarAvailable reports whether a car is free over the half-open
// [pickup, dropoff) span.
func (s *AvailabilityService) IsCarAvailable(ctx context.Context, carID string, pickup, dropoff time.Time) (bool, error) {
	claims, err := s.bookingRepo.ActiveCarClaims(ctx, carID)
	if err != nil {
		return false, err
	}
	for _, claim := range claims {
		if SpansOverlap(claim.PickupTime, claim.DropoffTime, pickup, dropoff) {
			return false, nil
		}
	}
	return true, nil
}

// ConfirmFlightClaim decides whether a specific flight line item still
// holds its seats. Claims are ranked by line-item ID (allocation order):
// walking claims oldest-first, the booking wins only if its own passengers
// still fit within capacity when it is reached. Under a race where two
// pending bookings over-subscribed the pool, exactly one side — the one
// allocated later — loses, deterministically on every node that runs this
// check.
func (s *AvailabilityService) ConfirmFlightClaim(ctx context.Context, flightID, flightBookingID string) (bool, error) {
	flight, err := s.catalogRepo.GetFlight(ctx, flightID)
	if err != nil {
		return false, err
	}
	if flight == nil {
		return false, newError(KindNotFound, "flight %s not found", flightID)
	}

	claims, err := s.bookingRepo.ActiveFlightClaims(ctx, flightID)
	if err != nil {
		return false, err
	}

	seats := 0
	for _, claim := range claims {
		seats += claim.Passengers
		if claim.ID == flightBookingID {
			return seats <= flight.SeatCapacity, nil
		}
	}

	// Own claim row is gone, which means the booking was cancelled
	// between load and check.
	s.logger.WithFields(logrus.Fields{
		"flight_id":         flightID,
		"flight_booking_id": flightBookingID,
	}).Warn("Flight claim disappeared during confirmation")
	return false, nil
}

// ConfirmRoomClaim decides whether a hotel line item still holds its room:
// it loses only to an overlapping claim with an earlier line-item ID.
func (s *AvailabilityService) ConfirmRoomClaim(ctx context.Context, roomID, hotelBookingID string) (bool, error) {
	claims, err := s.bookingRepo.ActiveRoomClaims(ctx, roomID)
	if err != nil {
		return false, err
	}
	for i, claim := range claims {
		if claim.ID != hotelBookingID {
			continue
		}
		for _, earlier := range claims[:i] {
			if SpansOverlap(earlier.CheckIn, earlier.CheckOut, claim.CheckIn, claim.CheckOut) {
				return false, nil
			}
		}
		return true, nil
	}
	return false, nil
}

// ConfirmCarClaim decides whether a car line item still holds its vehicle.
func (s *AvailabilityService) ConfirmCarClaim(ctx context.Context, carID, carBookingID string) (bool, error) {
	claims, err := s.bookingRepo.ActiveCarClaims(ctx, carID)
	if err != nil {
		return false, err
	}
	for i, claim := range claims {
		if claim.ID != carBookingID {
			continue
		}
		for _, earlier := range claims[:i] {
			if SpansOverlap(earlier.PickupTime, earlier.DropoffTime, claim.PickupTime, claim.DropoffTime) {
				return false, nil
			}
		}
		return true, nil
	}
	return false, nil
}
