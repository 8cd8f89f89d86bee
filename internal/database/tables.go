package database

// Table names match the sheet layout of the backing store.
const (
	TableUser          = "User"
	TableSession       = "Session"
	TableCity          = "City"
	TableAirport       = "Airport"
	TableFlight        = "Flight"
	TableHotel         = "Hotel"
	TableRoom          = "Room"
	TableCar           = "Car"
	TableBooking       = "Booking"
	TableFlightBooking = "FlightBooking"
	TableHotelBooking  = "HotelBooking"
	TableCarBooking    = "CarBooking"
	TablePassenger     = "Passenger"
	TablePayment       = "Payment"
)

// Identifier prefixes per entity type. IDs are prefix plus a zero-padded
// sequence number, e.g. BK0001, PAX00012.
const (
	PrefixUser          = "USR"
	PrefixSession       = "SES"
	PrefixBooking       = "BK"
	PrefixFlightBooking = "FBK"
	PrefixHotelBooking  = "HBK"
	PrefixCarBooking    = "CBK"
	PrefixPassenger     = "PAX"
	PrefixPayment       = "PMT"
)

// Zero-pad widths. Passengers use a wider counter because they accumulate
// faster than any other entity.
const (
	DefaultIDWidth   = 4
	PassengerIDWidth = 5
)
