package models

import "time"

// Catalog entities are immutable reference data created by the seed tool.
// The engine only ever reads them.

// City represents a bookable destination.
type City struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Country string `json:"country"`
	Region  string `json:"region"`
}

// Airport represents an airport, keyed by its IATA-style code.
type Airport struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	CityID string `json:"city_id"`
}

// SeatClass is the cabin class of a flight booking.
type SeatClass string

const (
	SeatClassEconomy  SeatClass = "economy"
	SeatClassBusiness SeatClass = "business"
)

// Valid reports whether the seat class is one the engine prices.
func (c SeatClass) Valid() bool {
	return c == SeatClassEconomy || c == SeatClassBusiness
}

// Flight represents a single scheduled flight with a fixed seat pool.
type Flight struct {
	ID              string    `json:"id"`
	FlightNumber    string    `json:"flight_number"`
	AirlineName     string    `json:"airline_name"`
	AircraftModel   string    `json:"aircraft_model"`
	OriginCode      string    `json:"origin_code"`
	DestinationCode string    `json:"destination_code"`
	DepartureTime   time.Time `json:"departure_time"`
	ArrivalTime     time.Time `json:"arrival_time"`
	SeatCapacity    int       `json:"seat_capacity"`
	BasePrice       float64   `json:"base_price"`
}

// RoomType is the category of a hotel room.
type RoomType string

const (
	RoomTypeSingle RoomType = "single"
	RoomTypeDouble RoomType = "double"
	RoomTypeSuite  RoomType = "suite"
)

// Hotel represents a property with bookable rooms.
type Hotel struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	CityID        string  `json:"city_id"`
	Address       string  `json:"address"`
	Rating        float64 `json:"rating"`
	ContactNumber string  `json:"contact_number"`
	Description   string  `json:"description"`
}

// Room represents a single physical room; at most one stay may occupy it on
// any given night.
type Room struct {
	ID            string   `json:"id"`
	HotelID       string   `json:"hotel_id"`
	RoomType      RoomType `json:"room_type"`
	Capacity      int      `json:"capacity"`
	PricePerNight float64  `json:"price_per_night"`
}

// Car represents a single rental vehicle; at most one rental may hold it
// over any given span.
type Car struct {
	ID           string  `json:"id"`
	CityID       string  `json:"city_id"`
	Brand        string  `json:"brand"`
	Model        string  `json:"model"`
	Year         int     `json:"year"`
	Seats        int     `json:"seats"`
	Transmission string  `json:"transmission"`
	FuelType     string  `json:"fuel_type"`
	PricePerDay  float64 `json:"price_per_day"`
}

// FlightWithAvailability is a search result row: a flight together with its
// computed remaining seats.
type FlightWithAvailability struct {
	Flight
	AvailableSeats int `json:"available_seats"`
}

// RoomWithAvailability is a hotel search result row.
type RoomWithAvailability struct {
	Room
	HotelName   string  `json:"hotel_name"`
	HotelRating float64 `json:"hotel_rating"`
	Available   bool    `json:"available"`
}

// CarWithAvailability is a car search result row.
type CarWithAvailability struct {
	Car
	Available bool `json:"available"`
}
