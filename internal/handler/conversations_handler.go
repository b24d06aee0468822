package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/octobees/tablemate/internal/dto"
	middlewarepkg "github.com/octobees/tablemate/internal/middleware"
	"github.com/octobees/tablemate/internal/service"
	"github.com/octobees/tablemate/internal/session"
)

const maxUtteranceLength = 2000

// ConversationsHandler exposes the dialog over HTTP.
type ConversationsHandler struct {
	service *service.ConversationService
}

// NewConversationsHandler creates a new handler instance.
func NewConversationsHandler(service *service.ConversationService) *ConversationsHandler {
	return &ConversationsHandler{service: service}
}

// Start handles POST /conversations requests. Authenticated callers own the
// conversation under their subject so saved preferences follow them.
func (h *ConversationsHandler) Start(c echo.Context) error {
	owner := middlewarepkg.UserIDFromContext(c)

	snap, err := h.service.Start(c.Request().Context(), owner)
	if err != nil {
		return conversationError(c, err)
	}

	return Success(c, http.StatusCreated, "conversation started", dto.ConversationResponse{ID: snap.ID, Owner: snap.State.Owner})
}

// RequireOwner rejects callers that do not own the conversation in :id.
func (h *ConversationsHandler) RequireOwner(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := h.service.Authorize(c.Request().Context(), c.Param("id"), middlewarepkg.UserIDFromContext(c)); err != nil {
			return conversationError(c, err)
		}
		return next(c)
	}
}

// Turn handles POST /conversations/:id/turns requests.
func (h *ConversationsHandler) Turn(c echo.Context) error {
	var req dto.TurnRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid payload")
	}

	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		return Error(c, http.StatusBadRequest, "text is required")
	}
	if len(req.Text) > maxUtteranceLength {
		return Error(c, http.StatusBadRequest, "text is too long")
	}

	reply, err := h.service.Turn(c.Request().Context(), c.Param("id"), req.Text)
	if err != nil {
		return conversationError(c, err)
	}

	return Success(c, http.StatusOK, "turn handled", reply)
}

// Get handles GET /conversations/:id requests.
func (h *ConversationsHandler) Get(c echo.Context) error {
	snap, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return conversationError(c, err)
	}
	return Success(c, http.StatusOK, "conversation retrieved", snap)
}

// End handles DELETE /conversations/:id requests.
func (h *ConversationsHandler) End(c echo.Context) error {
	if err := h.service.End(c.Request().Context(), c.Param("id")); err != nil {
		return conversationError(c, err)
	}
	return Success(c, http.StatusOK, "conversation ended", nil)
}

func conversationError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return Error(c, http.StatusNotFound, "conversation not found")
	case errors.Is(err, session.ErrForbidden):
		return Error(c, http.StatusForbidden, "conversation belongs to another user")
	case errors.Is(err, session.ErrTooManySessions):
		return Error(c, http.StatusServiceUnavailable, "too many active conversations")
	default:
		return Error(c, http.StatusInternalServerError, "conversation failed")
	}
}
