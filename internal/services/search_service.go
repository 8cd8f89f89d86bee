package services

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/skytrip/travel-booking-backend/internal/cache"
	"github.com/skytrip/travel-booking-backend/internal/database"
	"github.com/skytrip/travel-booking-backend/internal/models"
)

// Cache keys for catalog reference data. Availability is never cached: it
// must be computed from live booking rows on every search.
const (
	cacheKeyCities   = "catalog:cities"
	cacheKeyAirports = "catalog:airports"
	cacheKeyFlights  = "catalog:flights"
	cacheKeyHotels   = "catalog:hotels"
	cacheKeyRooms    = "catalog:rooms"
	cacheKeyCars     = "catalog:cars"
)

// SearchService answers catalog and availability searches. Catalog reads go
// through the Redis cache when one is configured; the cache is optional and
// a nil one is a permanent miss.
type SearchService struct {
	catalogRepo  *database.CatalogRepository
	availability *AvailabilityService
	cache        *cache.Cache
	logger       *logrus.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(catalogRepo *database.CatalogRepository, availability *AvailabilityService, c *cache.Cache, logger *logrus.Logger) *SearchService {
	return &SearchService{
		catalogRepo:  catalogRepo,
		availability: availability,
		cache:        c,
		logger:       logger,
	}
}

// ListCities returns every bookable city.
func (s *SearchService) ListCities(ctx context.Context) ([]models.City, error) {
	var cities []models.City
	if s.cache.Get(ctx, cacheKeyCities, &cities) {
		return cities, nil
	}
	cities, err := s.catalogRepo.ListCities(ctx)
	if err != nil {
		return nil, mapStoreError(err)
	}
	s.cacheSet(ctx, cacheKeyCities, cities)
	return cities, nil
}

// ListAirports returns every airport, optionally filtered by city.
func (s *SearchService) ListAirports(ctx context.Context, cityID string) ([]models.Airport, error) {
	var airports []models.Airport
	if !s.cache.Get(ctx, cacheKeyAirports, &airports) {
		var err error
		airports, err = s.catalogRepo.ListAirports(ctx)
		if err != nil {
			return nil, mapStoreError(err)
		}
		s.cacheSet(ctx, cacheKeyAirports, airports)
	}
	if cityID == "" {
		return airports, nil
	}
	filtered := make([]models.Airport, 0, len(airports))
	for _, a := range airports {
		if a.CityID == cityID {
			filtered = append(filtered, a)
		}
	}
	return filtered, nil
}

// SearchFlights finds flights between two airports, optionally on a given
// departure date, and reports the live remaining seats on each. Flights
// without enough seats for the requested party are filtered out.
func (s *SearchService) SearchFlights(ctx context.Context, origin, destination, date string, passengers int) ([]models.FlightWithAvailability, error) {
	var departureDate time.Time
	if date != "" {
		var err error
		departureDate, err = time.Parse(models.DateLayout, date)
		if err != nil {
			return nil, newError(KindInvalidSelection, "invalid departure date %q", date)
		}
	}
	if passengers < 1 {
		passengers = 1
	}

	flights, err := s.listFlights(ctx)
	if err != nil {
		return nil, err
	}

	origin = strings.ToUpper(origin)
	destination = strings.ToUpper(destination)

	results := make([]models.FlightWithAvailability, 0)
	for _, f := range flights {
		if origin != "" && f.OriginCode != origin {
			continue
		}
		if destination != "" && f.DestinationCode != destination {
			continue
		}
		if date != "" && !sameDay(f.DepartureTime, departureDate) {
			continue
		}
		remaining, err := s.availability.FlightSeatsRemaining(ctx, f.ID)
		if err != nil {
			return nil, mapStoreError(err)
		}
		if remaining < passengers {
			continue
		}
		results = append(results, models.FlightWithAvailability{
			Flight:         f,
			AvailableSeats: remaining,
		})
	}
	return results, nil
}

// SearchRooms finds rooms in a city that sleep the party and reports
// whether each is free over the requested half-open stay.
func (s *SearchService) SearchRooms(ctx context.Context, cityID, checkIn, checkOut string, guests int) ([]models.RoomWithAvailability, error) {
	start, err := time.Parse(models.DateLayout, checkIn)
	if err != nil {
		return nil, newError(KindInvalidSelection, "invalid check-in date %q", checkIn)
	}
	end, err := time.Parse(models.DateLayout, checkOut)
	if err != nil {
		return nil, newError(KindInvalidSelection, "invalid check-out date %q", checkOut)
	}
	if !start.Before(end) {
		return nil, newError(KindInvalidSelection, "check-out must be after check-in")
	}
	if guests < 1 {
		guests = 1
	}

	hotels, err := s.listHotels(ctx)
	if err != nil {
		return nil, err
	}
	hotelsByID := make(map[string]models.Hotel, len(hotels))
	for _, h := range hotels {
		if cityID == "" || h.CityID == cityID {
			hotelsByID[h.ID] = h
		}
	}

	rooms, err := s.listRooms(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]models.RoomWithAvailability, 0)
	for _, room := range rooms {
		hotel, ok := hotelsByID[room.HotelID]
		if !ok || room.Capacity < guests {
			continue
		}
		free, err := s.availability.IsRoomAvailable(ctx, room.ID, start, end)
		if err != nil {
			return nil, mapStoreError(err)
		}
		results = append(results, models.RoomWithAvailability{
			Room:        room,
			HotelName:   hotel.Name,
			HotelRating: hotel.Rating,
			Available:   free,
		})
	}
	return results, nil
}

// SearchCars finds rental cars in a city and reports whether each is free
// over the requested half-open span.
func (s *SearchService) SearchCars(ctx context.Context, cityID, pickup, dropoff string) ([]models.CarWithAvailability, error) {
	start, err := time.Parse(time.RFC3339, pickup)
	if err != nil {
		return nil, newError(KindInvalidSelection, "invalid pickup time %q", pickup)
	}
	end, err := time.Parse(time.RFC3339, dropoff)
	if err != nil {
		return nil, newError(KindInvalidSelection, "invalid dropoff time %q", dropoff)
	}
	if !start.Before(end) {
		return nil, newError(KindInvalidSelection, "dropoff must be after pickup")
	}

	cars, err := s.listCars(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]models.CarWithAvailability, 0)
	for _, car := range cars {
		if cityID != "" && car.CityID != cityID {
			continue
		}
		free, err := s.availability.IsCarAvailable(ctx, car.ID, start, end)
		if err != nil {
			return nil, mapStoreError(err)
		}
		results = append(results, models.CarWithAvailability{
			Car:       car,
			Available: free,
		})
	}
	return results, nil
}

func (s *SearchService) listFlights(ctx context.Context) ([]models.Flight, error) {
	var flights []models.Flight
	if s.cache.Get(ctx, cacheKeyFlights, &flights) {
		return flights, nil
	}
	flights, err := s.catalogRepo.ListFlights(ctx)
	if err != nil {
		return nil, mapStoreError(err)
	}
	s.cacheSet(ctx, cacheKeyFlights, flights)
	return flights, nil
}

func (s *SearchService) listHotels(ctx context.Context) ([]models.Hotel, error) {
	var hotels []models.Hotel
	if s.cache.Get(ctx, cacheKeyHotels, &hotels) {
		return hotels, nil
	}
	hotels, err := s.catalogRepo.ListHotels(ctx)
	if err != nil {
		return nil, mapStoreError(err)
	}
	s.cacheSet(ctx, cacheKeyHotels, hotels)
	return hotels, nil
}

func (s *SearchService) listRooms(ctx context.Context) ([]models.Room, error) {
	var rooms []models.Room
	if s.cache.Get(ctx, cacheKeyRooms, &rooms) {
		return rooms, nil
	}
	rooms, err := s.catalogRepo.ListRooms(ctx)
	if err != nil {
		return nil, mapStoreError(err)
	}
	s.cacheSet(ctx, cacheKeyRooms, rooms)
	return rooms, nil
}

func (s *SearchService) listCars(ctx context.Context) ([]models.Car, error) {
	var cars []models.Car
	if s.cache.Get(ctx, cacheKeyCars, &cars) {
		return cars, nil
	}
	cars, err := s.catalogRepo.ListCars(ctx)
	if err != nil {
		return nil, mapStoreError(err)
	}
	s.cacheSet(ctx, cacheKeyCars, cars)
	return cars, nil
}

func (s *SearchService) cacheSet(ctx context.Context, key string, value interface{}) {
	if err := s.cache.Set(ctx, key, value); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Failed to populate cache")
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
