package integration

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/valethq/valet/internal/assistant"
	"github.com/valethq/valet/internal/travel"
)

// TravelExecutor serves the travel category: flight and hotel search.
type TravelExecutor struct {
	searcher travel.Searcher
	log      *slog.Logger
}

// NewTravelExecutor creates a travel executor.
func NewTravelExecutor(searcher travel.Searcher, log *slog.Logger) *TravelExecutor {
	return &TravelExecutor{searcher: searcher, log: log}
}

func (e *TravelExecutor) Instructions() string {
	return "You are a travel assistant. You search for flights and hotels on " +
		"the user's behalf. Airports are IATA codes and dates are YYYY-MM-DD. " +
		"Ask for missing details before searching, and summarize results " +
		"concisely with prices."
}

func (e *TravelExecutor) Tools() []assistant.ToolSpec {
	return []assistant.ToolSpec{
		{
			Name:        "search_flights",
			Description: "Search for flights between two airports.",
			Parameters: &assistant.ParamSchema{
				Type: "object",
				Properties: map[string]*assistant.ParamProp{
					"origin":         {Type: "string", Description: "Origin airport IATA code."},
					"destination":    {Type: "string", Description: "Destination airport IATA code."},
					"departure_date": {Type: "string", Description: "Departure date, YYYY-MM-DD."},
					"return_date":    {Type: "string", Description: "Return date for round trips, YYYY-MM-DD."},
					"adults":         {Type: "integer", Description: "Number of adult passengers. Defaults to 1."},
				},
				Required: []string{"origin", "destination", "departure_date"},
			},
		},
		{
			Name:        "search_hotels",
			Description: "Search for hotels in a location.",
			Parameters: &assistant.ParamSchema{
				Type: "object",
				Properties: map[string]*assistant.ParamProp{
					"location":       {Type: "string", Description: "City or area to search in."},
					"check_in_date":  {Type: "string", Description: "Check-in date, YYYY-MM-DD."},
					"check_out_date": {Type: "string", Description: "Check-out date, YYYY-MM-DD."},
					"adults":         {Type: "integer", Description: "Number of guests. Defaults to 1."},
				},
				Required: []string{"location", "check_in_date", "check_out_date"},
			},
		},
	}
}

func (e *TravelExecutor) Execute(ctx context.Context, fn string, args map[string]any) string {
	switch fn {
	case "search_flights":
		return e.searchFlights(ctx, args)
	case "search_hotels":
		return e.searchHotels(ctx, args)
	}
	return UnknownFunction(fn)
}

func (e *TravelExecutor) searchFlights(ctx context.Context, args map[string]any) string {
	if missing := missingParams(args, "origin", "destination", "departure_date"); len(missing) > 0 {
		return missingParamsMessage("search_flights", missing)
	}

	out, err := e.searcher.SearchFlights(ctx, travel.FlightQuery{
		Origin:        stringArg(args, "origin"),
		Destination:   stringArg(args, "destination"),
		DepartureDate: stringArg(args, "departure_date"),
		ReturnDate:    stringArg(args, "return_date"),
		Adults:        intArg(args, "adults", 1),
	})
	if err != nil {
		e.log.Error("flight search failed", "error", err)
		return fmt.Sprintf("Flight search failed: %v", err)
	}
	return out
}

func (e *TravelExecutor) searchHotels(ctx context.Context, args map[string]any) string {
	if missing := missingParams(args, "location", "check_in_date", "check_out_date"); len(missing) > 0 {
		return missingParamsMessage("search_hotels", missing)
	}

	out, err := e.searcher.SearchHotels(ctx, travel.HotelQuery{
		Location:     stringArg(args, "location"),
		CheckInDate:  stringArg(args, "check_in_date"),
		CheckOutDate: stringArg(args, "check_out_date"),
		Adults:       intArg(args, "adults", 1),
	})
	if err != nil {
		e.log.Error("hotel search failed", "error", err)
		return fmt.Sprintf("Hotel search failed: %v", err)
	}
	return out
}
