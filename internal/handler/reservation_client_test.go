package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/octobees/tablemate/internal/service"
)

func TestReservationClient_Reserve(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/reservations" || r.Header.Get("X-Request-ID") != "req-1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var req service.ReservationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{
			"status":     "confirmed",
			"reference":  "ABC123",
			"venue_id":   req.VenueID,
			"party_size": req.PartySize,
		}})
	}))
	defer server.Close()

	client := NewReservationClient(server.Client(), server.URL+"/")
	res, err := client.Reserve(context.Background(), service.ReservationRequest{VenueID: "7", PartySize: 3}, "req-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != "confirmed" || res.Reference != "ABC123" || res.VenueID != "7" || res.PartySize != 3 {
		t.Fatalf("unexpected reservation: %+v", res)
	}
}

func TestReservationClient_BackendError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"fully booked"}`))
	}))
	defer server.Close()

	client := NewReservationClient(server.Client(), server.URL)
	_, err := client.Reserve(context.Background(), service.ReservationRequest{VenueID: "7"}, "")
	if err == nil || !strings.Contains(err.Error(), "fully booked") {
		t.Fatalf("expected backend error message, got %v", err)
	}
}

func TestExtractBackendError(t *testing.T) {
	if got := extractBackendError(strings.NewReader("")); got != "backend returned an error" {
		t.Fatalf("expected fallback message, got %q", got)
	}
	if got := extractBackendError(strings.NewReader("plain failure")); got != "plain failure" {
		t.Fatalf("expected raw body, got %q", got)
	}
}
