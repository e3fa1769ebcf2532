package travel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client implements Searcher against a SerpAPI-shaped search backend.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates a travel search client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 20 * time.Second},
	}
}

type flightResult struct {
	Airline   string `json:"airline"`
	Departure string `json:"departure"`
	Arrival   string `json:"arrival"`
	Duration  string `json:"duration"`
	Price     string `json:"price"`
	Stops     int    `json:"stops"`
}

type flightSearchResponse struct {
	Flights []flightResult `json:"flights"`
}

// SearchFlights searches flights and renders the results as text.
func (c *Client) SearchFlights(ctx context.Context, q FlightQuery) (string, error) {
	params := url.Values{}
	params.Set("engine", "google_flights")
	params.Set("departure_id", q.Origin)
	params.Set("arrival_id", q.Destination)
	params.Set("outbound_date", q.DepartureDate)
	if q.ReturnDate != "" {
		params.Set("return_date", q.ReturnDate)
	}
	if q.Adults > 0 {
		params.Set("adults", strconv.Itoa(q.Adults))
	}

	var resp flightSearchResponse
	if err := c.search(ctx, params, &resp); err != nil {
		return "", fmt.Errorf("flight search: %w", err)
	}

	if len(resp.Flights) == 0 {
		return fmt.Sprintf("No flights found from %s to %s on %s.", q.Origin, q.Destination, q.DepartureDate), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Flights from %s to %s on %s:\n", q.Origin, q.Destination, q.DepartureDate)
	for i, f := range resp.Flights {
		fmt.Fprintf(&sb, "%d. %s, departs %s, arrives %s (%s, %d stops) - %s\n",
			i+1, f.Airline, f.Departure, f.Arrival, f.Duration, f.Stops, f.Price)
	}
	return strings.TrimSpace(sb.String()), nil
}

type hotelResult struct {
	Name     string `json:"name"`
	Rating   string `json:"rating"`
	Price    string `json:"price"`
	Location string `json:"location"`
}

type hotelSearchResponse struct {
	Hotels []hotelResult `json:"hotels"`
}

// SearchHotels searches hotels and renders the results as text.
func (c *Client) SearchHotels(ctx context.Context, q HotelQuery) (string, error) {
	params := url.Values{}
	params.Set("engine", "google_hotels")
	params.Set("q", q.Location)
	params.Set("check_in_date", q.CheckInDate)
	params.Set("check_out_date", q.CheckOutDate)
	if q.Adults > 0 {
		params.Set("adults", strconv.Itoa(q.Adults))
	}

	var resp hotelSearchResponse
	if err := c.search(ctx, params, &resp); err != nil {
		return "", fmt.Errorf("hotel search: %w", err)
	}

	if len(resp.Hotels) == 0 {
		return fmt.Sprintf("No hotels found in %s for %s to %s.", q.Location, q.CheckInDate, q.CheckOutDate), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Hotels in %s (%s to %s):\n", q.Location, q.CheckInDate, q.CheckOutDate)
	for i, h := range resp.Hotels {
		fmt.Fprintf(&sb, "%d. %s (%s) - %s, %s\n", i+1, h.Name, h.Rating, h.Price, h.Location)
	}
	return strings.TrimSpace(sb.String()), nil
}

func (c *Client) search(ctx context.Context, params url.Values, out any) error {
	params.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("search backend error %d: %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
