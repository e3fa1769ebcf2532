// Package travel defines the flight and hotel search collaborator.
package travel

import "context"

// FlightQuery describes a flight search.
type FlightQuery struct {
	Origin        string
	Destination   string
	DepartureDate string
	ReturnDate    string
	Adults        int
}

// HotelQuery describes a hotel search.
type HotelQuery struct {
	Location     string
	CheckInDate  string
	CheckOutDate string
	Adults       int
}

// Searcher is the narrow interface the travel integration uses. Results
// are pre-rendered human-readable text; Valet performs no interpretation.
type Searcher interface {
	SearchFlights(ctx context.Context, q FlightQuery) (string, error)
	SearchHotels(ctx context.Context, q HotelQuery) (string, error)
}
