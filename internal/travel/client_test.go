package travel

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSearchFlightsRendersResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("engine") != "google_flights" {
			t.Errorf("engine = %q", q.Get("engine"))
		}
		if q.Get("api_key") != "key123" {
			t.Errorf("api_key = %q", q.Get("api_key"))
		}
		fmt.Fprint(w, `{"flights":[
			{"airline":"United","departure":"08:00","arrival":"11:30","duration":"6h30m","price":"$420","stops":0},
			{"airline":"Delta","departure":"09:15","arrival":"13:05","duration":"6h50m","price":"$387","stops":1}
		]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key123")
	out, err := c.SearchFlights(context.Background(), FlightQuery{
		Origin: "JFK", Destination: "SFO", DepartureDate: "2024-12-01", Adults: 1,
	})
	if err != nil {
		t.Fatalf("SearchFlights() error = %v", err)
	}
	if !strings.Contains(out, "1. United") || !strings.Contains(out, "2. Delta") {
		t.Errorf("output missing numbered results:\n%s", out)
	}
	if !strings.Contains(out, "$387") {
		t.Errorf("output missing price:\n%s", out)
	}
}

func TestSearchFlightsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"flights":[]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key123")
	out, err := c.SearchFlights(context.Background(), FlightQuery{
		Origin: "JFK", Destination: "SFO", DepartureDate: "2024-12-01",
	})
	if err != nil {
		t.Fatalf("SearchFlights() error = %v", err)
	}
	want := "No flights found from JFK to SFO on 2024-12-01."
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestSearchHotelsRendersResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("engine") != "google_hotels" {
			t.Errorf("engine = %q", r.URL.Query().Get("engine"))
		}
		fmt.Fprint(w, `{"hotels":[{"name":"The Grand","rating":"4.5","price":"$210/night","location":"Downtown"}]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key123")
	out, err := c.SearchHotels(context.Background(), HotelQuery{
		Location: "Chicago", CheckInDate: "2024-12-01", CheckOutDate: "2024-12-03",
	})
	if err != nil {
		t.Fatalf("SearchHotels() error = %v", err)
	}
	if !strings.Contains(out, "The Grand") {
		t.Errorf("output = %q", out)
	}
}

func TestSearchBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key123")
	if _, err := c.SearchFlights(context.Background(), FlightQuery{Origin: "JFK", Destination: "SFO", DepartureDate: "2024-12-01"}); err == nil {
		t.Error("SearchFlights() with 429 backend returned no error")
	}
}
