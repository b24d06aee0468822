package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/octobees/tablemate/internal/dialog"
	"github.com/octobees/tablemate/internal/session"
)

// ConversationService runs dialog turns against stored conversations.
type ConversationService struct {
	sessions  *session.Manager
	dialog    *dialog.Manager
	catalogue *Catalogue
	logger    zerolog.Logger
}

// NewConversationService wires the session store, dialog engine and catalogue.
func NewConversationService(sessions *session.Manager, dm *dialog.Manager, catalogue *Catalogue, logger zerolog.Logger) *ConversationService {
	return &ConversationService{sessions: sessions, dialog: dm, catalogue: catalogue, logger: logger}
}

// Start opens a conversation. An empty owner makes the conversation its own owner.
func (s *ConversationService) Start(ctx context.Context, owner string) (session.Snapshot, error) {
	conv, err := s.sessions.Create(ctx, owner)
	if err != nil {
		return session.Snapshot{}, err
	}
	snap := conv.Snapshot()
	s.logger.Info().Str("conversation_id", conv.ID).Str("owner", snap.State.Owner).Msg("conversation started")
	return snap, nil
}

// Turn feeds one utterance into the conversation.
func (s *ConversationService) Turn(ctx context.Context, id, text string) (dialog.Reply, error) {
	conv, err := s.sessions.Get(ctx, id)
	if err != nil {
		return dialog.Reply{}, err
	}

	start := time.Now()
	var reply dialog.Reply
	conv.WithState(func(st *dialog.State) {
		reply = s.dialog.HandleTurn(ctx, st, text, s.catalogue.Venues())
	})
	s.sessions.Persist(ctx, conv)

	s.logger.Info().
		Str("conversation_id", id).
		Str("step", string(reply.Step)).
		Int("results", len(reply.Results)).
		Float64("latency_ms", float64(time.Since(start).Microseconds())/1000).
		Msg("turn handled")
	return reply, nil
}

// Authorize checks that caller may use the conversation.
func (s *ConversationService) Authorize(ctx context.Context, id, caller string) error {
	conv, err := s.sessions.Get(ctx, id)
	if err != nil {
		return err
	}
	if !conv.OwnedBy(caller) {
		return session.ErrForbidden
	}
	return nil
}

// Get returns the current conversation snapshot.
func (s *ConversationService) Get(ctx context.Context, id string) (session.Snapshot, error) {
	conv, err := s.sessions.Get(ctx, id)
	if err != nil {
		return session.Snapshot{}, err
	}
	return conv.Snapshot(), nil
}

// End discards the conversation.
func (s *ConversationService) End(ctx context.Context, id string) error {
	if !s.sessions.Remove(ctx, id) {
		return session.ErrNotFound
	}
	s.logger.Info().Str("conversation_id", id).Msg("conversation ended")
	return nil
}
