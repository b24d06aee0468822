package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/octobees/tablemate/internal/dto"
	middlewarepkg "github.com/octobees/tablemate/internal/middleware"
	"github.com/octobees/tablemate/internal/service"
	"github.com/octobees/tablemate/internal/session"
)

// BookingHandler places reservations for ranked venues.
type BookingHandler struct {
	service *service.BookingService
}

// NewBookingHandler creates a new handler instance.
func NewBookingHandler(service *service.BookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

// Book handles POST /conversations/:id/bookings requests.
func (h *BookingHandler) Book(c echo.Context) error {
	var req dto.BookingRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid payload")
	}

	reservation, err := h.service.Book(c.Request().Context(), c.Param("id"), req, middlewarepkg.RequestIDFromContext(c))
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNotFound):
			return Error(c, http.StatusNotFound, "conversation not found")
		case errors.Is(err, service.ErrInvalidContact):
			return Error(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrVenueNotOffered):
			return Error(c, http.StatusBadRequest, "venue was not offered in this conversation")
		case errors.Is(err, service.ErrBookingIncomplete):
			return Error(c, http.StatusConflict, "party size and time must be known before booking")
		default:
			return Error(c, http.StatusBadGateway, "reservation backend unavailable")
		}
	}

	return Success(c, http.StatusCreated, "booking placed", reservation)
}
