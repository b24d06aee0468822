package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/octobees/tablemate/internal/service"
)

// AdminUploadHandler handles CSV ingestion for administrators.
type AdminUploadHandler struct {
	venuesService *service.VenuesService
}

// NewAdminUploadHandler wires a handler backed by the venues service.
func NewAdminUploadHandler(venuesService *service.VenuesService) *AdminUploadHandler {
	return &AdminUploadHandler{venuesService: venuesService}
}

// UploadCSV handles POST /admin/upload-csv requests.
func (h *AdminUploadHandler) UploadCSV(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return Error(c, http.StatusBadRequest, "missing csv file")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return Error(c, http.StatusBadRequest, "unable to open file")
	}
	defer file.Close()

	summary, err := h.venuesService.ImportCSV(c.Request().Context(), file)
	if err != nil {
		var validationErr service.CSVValidationError
		if errors.As(err, &validationErr) {
			return Error(c, http.StatusBadRequest, validationErr.Error())
		}
		return Error(c, http.StatusInternalServerError, "failed to process csv")
	}

	return Success(c, http.StatusOK, "venues CSV processed", summary)
}
