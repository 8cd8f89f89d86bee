// Command seed creates the row store schema and loads a small demo catalog
// of cities, airports, flights, hotels, rooms and cars. It is re-runnable:
// rows that already exist are left alone.
package main

import (
	"context"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/skytrip/travel-booking-backend/internal/config"
	"github.com/skytrip/travel-booking-backend/internal/database"
	"github.com/skytrip/travel-booking-backend/internal/store"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := store.Connect(
		cfg.Database.URL,
		cfg.Database.MaxConnections,
		cfg.Database.MaxIdleConnections,
		cfg.Database.ConnMaxLifetime,
	)
	if err != nil {
		logger.Fatalf("Failed to connect to row store: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(store.Schema); err != nil {
		logger.Fatalf("Failed to create schema: %v", err)
	}
	logger.Info("Schema ready")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	rowStore := store.NewPostgresStore(db, cfg.Database.StatementTimeout)
	catalog := database.NewCatalogRepository(rowStore)

	seeded := 0
	for table, rows := range seedData() {
		for _, row := range rows {
			if err := catalog.SeedRow(ctx, table, row); err != nil {
				logger.Fatalf("Failed to seed %s row %s: %v", table, row.ID(), err)
			}
			seeded++
		}
	}

	logger.WithField("rows", seeded).Info("Catalog seeded")
}

func seedData() map[string][]store.Row {
	return map[string][]store.Row{
		database.TableCity: {
			{"id": "CTY0001", "name": "Paris", "country": "France", "region": "Europe"},
			{"id": "CTY0002", "name": "Tokyo", "country": "Japan", "region": "Asia"},
			{"id": "CTY0003", "name": "New York", "country": "United States", "region": "North America"},
		},
		database.TableAirport: {
			{"id": "CDG", "name": "Charles de Gaulle Airport", "city_id": "CTY0001"},
			{"id": "HND", "name": "Haneda Airport", "city_id": "CTY0002"},
			{"id": "JFK", "name": "John F. Kennedy International Airport", "city_id": "CTY0003"},
		},
		database.TableFlight: {
			{
				"id":               "FL0001",
				"flight_number":    "ST101",
				"airline_name":     "SkyTrip Air",
				"aircraft_model":   "A350-900",
				"origin_code":      "JFK",
				"destination_code": "CDG",
				"departure_time":   "2026-09-10T18:30:00Z",
				"arrival_time":     "2026-09-11T07:45:00Z",
				"seat_capacity":    "200",
				"base_price":       "420.00",
			},
			{
				"id":               "FL0002",
				"flight_number":    "ST205",
				"airline_name":     "SkyTrip Air",
				"aircraft_model":   "787-9",
				"origin_code":      "CDG",
				"destination_code": "HND",
				"departure_time":   "2026-09-12T11:00:00Z",
				"arrival_time":     "2026-09-13T06:20:00Z",
				"seat_capacity":    "200",
				"base_price":       "610.00",
			},
		},
		database.TableHotel: {
			{
				"id":             "HTL0001",
				"name":           "Hotel Lumiere",
				"city_id":        "CTY0001",
				"address":        "12 Rue de Rivoli, Paris",
				"rating":         "4.60",
				"contact_number": "+33-1-4000-2200",
				"description":    "Boutique hotel near the Louvre",
			},
			{
				"id":             "HTL0002",
				"name":           "Shinjuku Garden Hotel",
				"city_id":        "CTY0002",
				"address":        "2-5-1 Nishi-Shinjuku, Tokyo",
				"rating":         "4.30",
				"contact_number": "+81-3-5300-1100",
				"description":    "High-rise hotel with skyline views",
			},
		},
		database.TableRoom: {
			{"id": "RM0001", "hotel_id": "HTL0001", "room_type": "double", "capacity": "2", "price_per_night": "180.00"},
			{"id": "RM0002", "hotel_id": "HTL0001", "room_type": "suite", "capacity": "4", "price_per_night": "360.00"},
			{"id": "RM0003", "hotel_id": "HTL0002", "room_type": "single", "capacity": "1", "price_per_night": "95.00"},
		},
		database.TableCar: {
			{
				"id":            "CAR0001",
				"city_id":       "CTY0001",
				"brand":         "Renault",
				"model":         "Clio",
				"year":          "2024",
				"seats":         "5",
				"transmission":  "manual",
				"fuel_type":     "petrol",
				"price_per_day": "45.00",
			},
			{
				"id":            "CAR0002",
				"city_id":       "CTY0003",
				"brand":         "Ford",
				"model":         "Explorer",
				"year":          "2025",
				"seats":         "7",
				"transmission":  "automatic",
				"fuel_type":     "hybrid",
				"price_per_day": "89.00",
			},
		},
	}
}
