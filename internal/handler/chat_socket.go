package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/octobees/tablemate/internal/dialog"
	"github.com/octobees/tablemate/internal/dto"
	"github.com/octobees/tablemate/internal/service"
	"github.com/octobees/tablemate/internal/session"
)

const (
	socketWriteWait = 10 * time.Second
	socketIdleWait  = 5 * time.Minute
)

// socketMessage is what the server writes for every inbound utterance.
type socketMessage struct {
	Reply *dialog.Reply `json:"reply,omitempty"`
	Error string        `json:"error,omitempty"`
}

// ChatSocketHandler streams turns of one conversation over a websocket.
type ChatSocketHandler struct {
	service  *service.ConversationService
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewChatSocketHandler creates a handler. An empty origin list accepts any origin.
func NewChatSocketHandler(service *service.ConversationService, allowedOrigins []string, logger zerolog.Logger) *ChatSocketHandler {
	return &ChatSocketHandler{
		service: service,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 4 * 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowedOrigins) == 0 {
					return true
				}
				origin := r.Header.Get("Origin")
				for _, allowed := range allowedOrigins {
					if allowed == "*" || allowed == origin {
						return true
					}
				}
				return false
			},
		},
	}
}

// Serve handles GET /conversations/:id/ws requests. Each text frame is one
// utterance, either raw text or {"text": "..."}.
func (h *ChatSocketHandler) Serve(c echo.Context) error {
	id := c.Param("id")
	ctx := c.Request().Context()
	if _, err := h.service.Get(ctx, id); err != nil {
		return conversationError(c, err)
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn().Err(err).Str("conversation_id", id).Msg("websocket upgrade failed")
		return nil
	}
	defer conn.Close()

	conn.SetReadLimit(maxUtteranceLength * 2)
	for {
		_ = conn.SetReadDeadline(time.Now().Add(socketIdleWait))
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug().Err(err).Str("conversation_id", id).Msg("websocket closed")
			}
			return nil
		}
		if msgType != websocket.TextMessage {
			continue
		}

		out := socketMessage{}
		text := decodeUtterance(data)
		if text == "" {
			out.Error = "text is required"
		} else if reply, err := h.service.Turn(ctx, id, text); err != nil {
			if errors.Is(err, session.ErrNotFound) {
				out.Error = "conversation not found"
			} else {
				out.Error = "conversation failed"
			}
		} else {
			out.Reply = &reply
		}

		_ = conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
		if err := conn.WriteJSON(out); err != nil {
			h.logger.Warn().Err(err).Str("conversation_id", id).Msg("websocket write failed")
			return nil
		}
		if out.Error == "conversation not found" {
			return nil
		}
	}
}

func decodeUtterance(data []byte) string {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		var req dto.TurnRequest
		if err := json.Unmarshal(data, &req); err == nil {
			return strings.TrimSpace(req.Text)
		}
	}
	return trimmed
}
