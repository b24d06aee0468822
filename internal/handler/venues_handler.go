package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/octobees/tablemate/internal/dto"
	"github.com/octobees/tablemate/internal/service"
)

// VenuesHandler exposes venue catalogue endpoints.
type VenuesHandler struct {
	service *service.VenuesService
}

// NewVenuesHandler creates a new handler instance.
func NewVenuesHandler(service *service.VenuesService) *VenuesHandler {
	return &VenuesHandler{service: service}
}

// List handles GET /venues requests.
func (h *VenuesHandler) List(c echo.Context) error {
	filter := dto.VenueFilter{
		City:    strings.TrimSpace(c.QueryParam("city")),
		Cuisine: strings.TrimSpace(c.QueryParam("cuisine")),
		Page:    parseIntDefault(c.QueryParam("page"), 1),
		PerPage: parseIntDefault(c.QueryParam("per_page"), 20),
	}

	if minRatingStr := strings.TrimSpace(c.QueryParam("min_rating")); minRatingStr != "" {
		minRating, err := strconv.ParseFloat(minRatingStr, 64)
		if err != nil {
			return Error(c, http.StatusBadRequest, "invalid min_rating")
		}
		filter.MinRating = &minRating
	}

	venues, err := h.service.List(c.Request().Context(), filter)
	if err != nil {
		return Error(c, http.StatusInternalServerError, "failed to list venues")
	}

	return Success(c, http.StatusOK, "venues retrieved", venues)
}

// Rank handles POST /venues/rank requests.
func (h *VenuesHandler) Rank(c echo.Context) error {
	var req dto.RankRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid payload")
	}
	if req.TopK < 0 {
		return Error(c, http.StatusBadRequest, "top_k must not be negative")
	}

	return Success(c, http.StatusOK, "venues ranked", h.service.Rank(req))
}

func parseIntDefault(input string, fallback int) int {
	if input == "" {
		return fallback
	}
	if value, err := strconv.Atoi(input); err == nil {
		return value
	}
	return fallback
}
