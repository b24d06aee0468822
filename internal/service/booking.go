package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/octobees/tablemate/internal/dto"
	"github.com/octobees/tablemate/internal/entity"
	"github.com/octobees/tablemate/internal/session"
)

var (
	// ErrVenueNotOffered is returned when booking a venue the conversation never ranked.
	ErrVenueNotOffered = errors.New("venue was not offered in this conversation")
	// ErrBookingIncomplete is returned while party size or time are still open.
	ErrBookingIncomplete = errors.New("party size and time must be known before booking")
)

// ReservationRequest is what the reservation backend receives.
type ReservationRequest struct {
	VenueID   string  `json:"venue_id"`
	VenueName string  `json:"venue_name"`
	Time      string  `json:"time"`
	PartySize int     `json:"party_size"`
	Contact   Contact `json:"contact"`
}

// Reservation is the backend's answer.
type Reservation struct {
	Status    string `json:"status"`
	Reference string `json:"reference"`
	VenueID   string `json:"venue_id"`
	Time      string `json:"time"`
	PartySize int    `json:"party_size"`
}

// Reserver places reservations with a restaurant backend.
type Reserver interface {
	Reserve(ctx context.Context, req ReservationRequest, requestID string) (Reservation, error)
}

// MockReserver confirms every request without contacting anything.
type MockReserver struct{}

// Reserve returns a confirmed reservation with a random reference.
func (MockReserver) Reserve(_ context.Context, req ReservationRequest, _ string) (Reservation, error) {
	return Reservation{
		Status:    "confirmed",
		Reference: strings.ToUpper(uuid.New().String()[:8]),
		VenueID:   req.VenueID,
		Time:      req.Time,
		PartySize: req.PartySize,
	}, nil
}

// BookingService turns a finished conversation into a reservation.
type BookingService struct {
	sessions  *session.Manager
	catalogue *Catalogue
	validator *ContactValidator
	reserver  Reserver
	logger    zerolog.Logger
}

// NewBookingService wires the booking dependencies. A nil reserver uses MockReserver.
func NewBookingService(sessions *session.Manager, catalogue *Catalogue, validator *ContactValidator, reserver Reserver, logger zerolog.Logger) *BookingService {
	if reserver == nil {
		reserver = MockReserver{}
	}
	if validator == nil {
		validator = NewContactValidator(defaultPhoneRegion)
	}
	return &BookingService{sessions: sessions, catalogue: catalogue, validator: validator, reserver: reserver, logger: logger}
}

// Book reserves one of the venues the conversation offered.
func (s *BookingService) Book(ctx context.Context, conversationID string, req dto.BookingRequest, requestID string) (Reservation, error) {
	conv, err := s.sessions.Get(ctx, conversationID)
	if err != nil {
		return Reservation{}, err
	}
	st := conv.Snapshot().State

	venueID := strings.TrimSpace(req.VenueID)
	if venueID == "" || !slices.Contains(st.Offered, venueID) {
		return Reservation{}, ErrVenueNotOffered
	}
	venue, ok := s.findVenue(venueID)
	if !ok {
		return Reservation{}, ErrVenueNotOffered
	}
	if st.Prefs.Guests <= 0 || st.Prefs.Time == "" {
		return Reservation{}, ErrBookingIncomplete
	}

	contact, err := s.validator.Validate(ctx, req.Name, req.Phone, req.Email)
	if err != nil {
		return Reservation{}, err
	}

	reservation, err := s.reserver.Reserve(ctx, ReservationRequest{
		VenueID:   venue.ID,
		VenueName: venue.Name,
		Time:      st.Prefs.Time,
		PartySize: st.Prefs.Guests,
		Contact:   contact,
	}, requestID)
	if err != nil {
		return Reservation{}, fmt.Errorf("reserve table: %w", err)
	}

	s.logger.Info().
		Str("conversation_id", conversationID).
		Str("venue_id", venue.ID).
		Str("status", reservation.Status).
		Msg("booking placed")
	return reservation, nil
}

func (s *BookingService) findVenue(id string) (entity.Venue, bool) {
	for _, v := range s.catalogue.Venues() {
		if v.ID == id {
			return v, true
		}
	}
	return entity.Venue{}, false
}
