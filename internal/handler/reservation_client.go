package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/idtoken"

	"github.com/octobees/tablemate/internal/service"
)

// ReservationClient posts reservation requests to a restaurant backend.
type ReservationClient struct {
	client  *http.Client
	baseURL string
}

// NewReservationClient builds a client, auto-configuring an ID token client when needed.
func NewReservationClient(client *http.Client, baseURL string) *ReservationClient {
	if baseURL == "" {
		panic("baseURL must not be empty")
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if client == nil {
		idc, err := idtoken.NewClient(context.Background(), baseURL)
		if err != nil {
			client = &http.Client{Timeout: 10 * time.Second}
		} else {
			client = idc
		}
	}
	return &ReservationClient{client: client, baseURL: baseURL}
}

// Reserve posts the request to /reservations and decodes the "data" object.
func (c *ReservationClient) Reserve(ctx context.Context, reservation service.ReservationRequest, requestID string) (service.Reservation, error) {
	body, err := json.Marshal(reservation)
	if err != nil {
		return service.Reservation{}, fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/reservations", bytes.NewReader(body))
	if err != nil {
		return service.Reservation{}, fmt.Errorf("failed to create reservation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return service.Reservation{}, fmt.Errorf("reservation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return service.Reservation{}, fmt.Errorf("reservation backend error: %s", extractBackendError(resp.Body))
	}

	var backendResp struct {
		Data  service.Reservation `json:"data"`
		Error string              `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&backendResp); err != nil && err != io.EOF {
		return service.Reservation{}, fmt.Errorf("could not decode reservation response: %w", err)
	}
	if backendResp.Error != "" {
		return service.Reservation{}, fmt.Errorf("reservation backend error: %s", backendResp.Error)
	}
	if backendResp.Data.Status == "" {
		backendResp.Data.Status = "pending"
	}
	return backendResp.Data, nil
}

func extractBackendError(body io.Reader) string {
	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		return "backend returned an error"
	}

	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return string(data)
}

var _ service.Reserver = (*ReservationClient)(nil)
