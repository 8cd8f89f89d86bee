package database

import (
	"context"
	"fmt"
	"sort"

	"github.com/skytrip/travel-booking-backend/internal/models"
	"github.com/skytrip/travel-booking-backend/internal/store"
)

// CatalogRepository reads the immutable reference data: cities, airports,
// flights, hotels, rooms and cars. The append methods exist for the seed
// tool only; the server never writes catalog rows.
type CatalogRepository struct {
	store store.Store
}

// NewCatalogRepository creates a new CatalogRepository.
func NewCatalogRepository(s store.Store) *CatalogRepository {
	return &CatalogRepository{store: s}
}

// ListCities returns all cities ordered by ID.
func (r *CatalogRepository) ListCities(ctx context.Context) ([]models.City, error) {
	rows, err := r.store.FindRows(ctx, TableCity, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list cities: %w", err)
	}
	cities := make([]models.City, 0, len(rows))
	for _, row := range rows {
		cities = append(cities, models.City{
			ID:      row["id"],
			Name:    row["name"],
			Country: row["country"],
			Region:  row["region"],
		})
	}
	sort.Slice(cities, func(i, j int) bool { return cities[i].ID < cities[j].ID })
	return cities, nil
}

// ListAirports returns all airports ordered by code.
func (r *CatalogRepository) ListAirports(ctx context.Context) ([]models.Airport, error) {
	rows, err := r.store.FindRows(ctx, TableAirport, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list airports: %w", err)
	}
	airports := make([]models.Airport, 0, len(rows))
	for _, row := range rows {
		airports = append(airports, models.Airport{
			Code:   row["id"],
			Name:   row["name"],
			CityID: row["city_id"],
		})
	}
	sort.Slice(airports, func(i, j int) bool { return airports[i].Code < airports[j].Code })
	return airports, nil
}

// ListFlights returns all flights.
func (r *CatalogRepository) ListFlights(ctx context.Context) ([]models.Flight, error) {
	rows, err := r.store.FindRows(ctx, TableFlight, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list flights: %w", err)
	}
	flights := make([]models.Flight, 0, len(rows))
	for _, row := range rows {
		f, err := rowToFlight(row)
		if err != nil {
			return nil, err
		}
		flights = append(flights, *f)
	}
	return flights, nil
}

// GetFlight retrieves a flight by ID, or nil if absent.
func (r *CatalogRepository) GetFlight(ctx context.Context, flightID string) (*models.Flight, error) {
	row, err := store.FindRowByID(ctx, r.store, TableFlight, flightID)
	if err == store.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up flight: %w", err)
	}
	return rowToFlight(row)
}

// ListHotels returns all hotels.
func (r *CatalogRepository) ListHotels(ctx context.Context) ([]models.Hotel, error) {
	rows, err := r.store.FindRows(ctx, TableHotel, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list hotels: %w", err)
	}
	hotels := make([]models.Hotel, 0, len(rows))
	for _, row := range rows {
		h, err := rowToHotel(row)
		if err != nil {
			return nil, err
		}
		hotels = append(hotels, *h)
	}
	return hotels, nil
}

// GetHotel retrieves a hotel by ID, or nil if absent.
func (r *CatalogRepository) GetHotel(ctx context.Context, hotelID string) (*models.Hotel, error) {
	row, err := store.FindRowByID(ctx, r.store, TableHotel, hotelID)
	if err == store.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up hotel: %w", err)
	}
	return rowToHotel(row)
}

// ListRooms returns all rooms.
func (r *CatalogRepository) ListRooms(ctx context.Context) ([]models.Room, error) {
	rows, err := r.store.FindRows(ctx, TableRoom, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	rooms := make([]models.Room, 0, len(rows))
	for _, row := range rows {
		rm, err := rowToRoom(row)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, *rm)
	}
	return rooms, nil
}

// GetRoom retrieves a room by ID, or nil if absent.
func (r *CatalogRepository) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	row, err := store.FindRowByID(ctx, r.store, TableRoom, roomID)
	if err == store.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up room: %w", err)
	}
	return rowToRoom(row)
}

// ListCars returns all cars.
func (r *CatalogRepository) ListCars(ctx context.Context) ([]models.Car, error) {
	rows, err := r.store.FindRows(ctx, TableCar, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list cars: %w", err)
	}
	cars := make([]models.Car, 0, len(rows))
	for _, row := range rows {
		c, err := rowToCar(row)
		if err != nil {
			return nil, err
		}
		cars = append(cars, *c)
	}
	return cars, nil
}

// GetCar retrieves a car by ID, or nil if absent.
func (r *CatalogRepository) GetCar(ctx context.Context, carID string) (*models.Car, error) {
	row, err := store.FindRowByID(ctx, r.store, TableCar, carID)
	if err == store.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up car: %w", err)
	}
	return rowToCar(row)
}

// Seeding writes. These append rows verbatim; catalog IDs come from the
// seed data, not the allocator.

// SeedRow appends one catalog row to the named table.
func (r *CatalogRepository) SeedRow(ctx context.Context, table string, row store.Row) error {
	err := r.store.AppendRow(ctx, table, row)
	if err == store.ErrConflict {
		// Seeding is re-runnable; an existing row is fine.
		return nil
	}
	return err
}

func rowToFlight(row store.Row) (*models.Flight, error) {
	rd := newRowReader(row)
	flight := &models.Flight{
		ID:              rd.str("id"),
		FlightNumber:    rd.str("flight_number"),
		AirlineName:     rd.str("airline_name"),
		AircraftModel:   rd.str("aircraft_model"),
		OriginCode:      rd.str("origin_code"),
		DestinationCode: rd.str("destination_code"),
		DepartureTime:   rd.timestamp("departure_time"),
		ArrivalTime:     rd.timestamp("arrival_time"),
		SeatCapacity:    rd.intval("seat_capacity"),
		BasePrice:       rd.float("base_price"),
	}
	if rd.err != nil {
		return nil, fmt.Errorf("malformed flight row %s: %w", row.ID(), rd.err)
	}
	return flight, nil
}

func rowToHotel(row store.Row) (*models.Hotel, error) {
	rd := newRowReader(row)
	hotel := &models.Hotel{
		ID:            rd.str("id"),
		Name:          rd.str("name"),
		CityID:        rd.str("city_id"),
		Address:       rd.str("address"),
		Rating:        rd.float("rating"),
		ContactNumber: rd.str("contact_number"),
		Description:   rd.str("description"),
	}
	if rd.err != nil {
		return nil, fmt.Errorf("malformed hotel row %s: %w", row.ID(), rd.err)
	}
	return hotel, nil
}

func rowToRoom(row store.Row) (*models.Room, error) {
	rd := newRowReader(row)
	room := &models.Room{
		ID:            rd.str("id"),
		HotelID:       rd.str("hotel_id"),
		RoomType:      models.RoomType(rd.str("room_type")),
		Capacity:      rd.intval("capacity"),
		PricePerNight: rd.float("price_per_night"),
	}
	if rd.err != nil {
		return nil, fmt.Errorf("malformed room row %s: %w", row.ID(), rd.err)
	}
	return room, nil
}

func rowToCar(row store.Row) (*models.Car, error) {
	rd := newRowReader(row)
	car := &models.Car{
		ID:           rd.str("id"),
		CityID:       rd.str("city_id"),
		Brand:        rd.str("brand"),
		Model:        rd.str("model"),
		Year:         rd.intval("year"),
		Seats:        rd.intval("seats"),
		Transmission: rd.str("transmission"),
		FuelType:     rd.str("fuel_type"),
		PricePerDay:  rd.float("price_per_day"),
	}
	if rd.err != nil {
		return nil, fmt.Errorf("malformed car row %s: %w", row.ID(), rd.err)
	}
	return car, nil
}
