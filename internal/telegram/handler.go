// Package telegram relays Telegram messages into dialog conversations, one
// conversation per Telegram user.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"

	"github.com/octobees/tablemate/internal/service"
	"github.com/octobees/tablemate/internal/session"
)

const (
	startText = "Hey %s! I find restaurants for you and your group. Tell me the city, cuisine, party size and time, e.g. \"Italian in Berlin for 4 at 7pm\". Send /reset to start over."
	helpText  = `Commands:
/start – Start a new search.
/reset – Forget this search and start over.
/help – Show this message.

You can also say "start group", "add person" and "show results" to plan for a group, or "what do you store" to learn about your data.`
	errorText = "Sorry, something went wrong. Please try again."
)

// Handler maps Telegram users onto conversations.
type Handler struct {
	conversations *service.ConversationService
	logger        zerolog.Logger

	mu    sync.Mutex
	chats map[int64]string
}

// NewHandler creates a Telegram handler.
func NewHandler(conversations *service.ConversationService, logger zerolog.Logger) *Handler {
	return &Handler{conversations: conversations, logger: logger, chats: make(map[int64]string)}
}

// Handle is the bot's default update handler.
func (h *Handler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	name := update.Message.From.Username
	if name == "" {
		name = update.Message.From.FirstName
	}
	text := h.Respond(ctx, update.Message.From.ID, name, update.Message.Text)
	if text == "" {
		return
	}

	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   text,
	}); err != nil {
		h.logger.Warn().Err(err).Int64("chat_id", update.Message.Chat.ID).Msg("telegram send failed")
	}
}

// Respond runs one message for a user and returns the text to send back.
func (h *Handler) Respond(ctx context.Context, userID int64, name, text string) string {
	text = strings.TrimSpace(text)
	switch strings.ToLower(text) {
	case "":
		return ""
	case "/help":
		return helpText
	case "/start", "/reset":
		h.forget(ctx, userID)
		if _, err := h.conversationFor(ctx, userID); err != nil {
			h.logger.Error().Err(err).Int64("user_id", userID).Msg("start conversation failed")
			return errorText
		}
		if name == "" {
			name = "there"
		}
		return fmt.Sprintf(startText, name)
	}

	id, err := h.conversationFor(ctx, userID)
	if err != nil {
		h.logger.Error().Err(err).Int64("user_id", userID).Msg("start conversation failed")
		return errorText
	}
	reply, err := h.conversations.Turn(ctx, id, text)
	if errors.Is(err, session.ErrNotFound) {
		h.forget(ctx, userID)
		if id, err = h.conversationFor(ctx, userID); err == nil {
			reply, err = h.conversations.Turn(ctx, id, text)
		}
	}
	if err != nil {
		h.logger.Error().Err(err).Int64("user_id", userID).Msg("turn failed")
		return errorText
	}
	return reply.Text
}

func (h *Handler) conversationFor(ctx context.Context, userID int64) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if id, ok := h.chats[userID]; ok {
		return id, nil
	}
	snap, err := h.conversations.Start(ctx, ownerFor(userID))
	if err != nil {
		return "", err
	}
	h.chats[userID] = snap.ID
	return snap.ID, nil
}

func (h *Handler) forget(ctx context.Context, userID int64) {
	h.mu.Lock()
	id, ok := h.chats[userID]
	delete(h.chats, userID)
	h.mu.Unlock()
	if ok {
		_ = h.conversations.End(ctx, id)
	}
}

func ownerFor(userID int64) string {
	return "telegram:" + strconv.FormatInt(userID, 10)
}
