package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/octobees/tablemate/internal/dialog"
	"github.com/octobees/tablemate/internal/entity"
	"github.com/octobees/tablemate/internal/extract"
	"github.com/octobees/tablemate/internal/session"
)

func testCatalogue() *Catalogue {
	return NewCatalogue([]entity.Venue{
		{ID: "1", Name: "Trattoria Roma", City: "Berlin", Cuisine: "italian", Price: "€€", Rating: 4.5, AccessWheelchair: true},
		{ID: "2", Name: "Pasta Nord", City: "Berlin", Cuisine: "italian", Price: "€", Rating: 4.0},
	})
}

func newTestConversationService(logger zerolog.Logger) (*ConversationService, *session.Manager) {
	sessions := session.NewManager(time.Minute, 0)
	dm := dialog.NewManager(extract.NewRules(extract.DefaultLexicon()))
	return NewConversationService(sessions, dm, testCatalogue(), logger), sessions
}

func TestConversationService_TurnFlow(t *testing.T) {
	var buf bytes.Buffer
	svc, _ := newTestConversationService(zerolog.New(&buf))
	ctx := context.Background()

	snap, err := svc.Start(ctx, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.State.Owner != snap.ID {
		t.Fatalf("expected anonymous owner to be the conversation id")
	}

	reply, err := svc.Turn(ctx, snap.ID, "book a table in Berlin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.Step != dialog.StepAskRequired {
		t.Fatalf("expected cuisine question, got %s (%q)", reply.Step, reply.Text)
	}

	current, err := svc.Get(ctx, snap.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if current.State.Prefs.City != "Berlin" || current.State.Prefs.PendingRequired != entity.SlotCuisine {
		t.Fatalf("expected state persisted between turns, got %+v", current.State.Prefs)
	}

	if !strings.Contains(buf.String(), `"latency_ms"`) || !strings.Contains(buf.String(), `"step":"ask_required"`) {
		t.Fatalf("expected turn log with latency and step, got %s", buf.String())
	}
}

func TestConversationService_UnknownConversation(t *testing.T) {
	svc, _ := newTestConversationService(zerolog.Nop())

	if _, err := svc.Turn(context.Background(), "missing", "hello"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := svc.End(context.Background(), "missing"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConversationService_End(t *testing.T) {
	svc, sessions := newTestConversationService(zerolog.Nop())
	snap, _ := svc.Start(context.Background(), "alice")

	if err := svc.End(context.Background(), snap.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sessions.Count() != 0 {
		t.Fatalf("expected conversation removed")
	}
}

func TestConversationService_Authorize(t *testing.T) {
	svc, _ := newTestConversationService(zerolog.Nop())
	ctx := context.Background()

	owned, _ := svc.Start(ctx, "user-1")
	if err := svc.Authorize(ctx, owned.ID, "user-1"); err != nil {
		t.Fatalf("expected owner allowed, got %v", err)
	}
	if err := svc.Authorize(ctx, owned.ID, "user-2"); !errors.Is(err, session.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := svc.Authorize(ctx, owned.ID, ""); !errors.Is(err, session.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for anonymous caller, got %v", err)
	}

	anon, _ := svc.Start(ctx, "")
	if err := svc.Authorize(ctx, anon.ID, "user-2"); err != nil {
		t.Fatalf("expected anonymous conversation open, got %v", err)
	}
	if err := svc.Authorize(ctx, "missing", "user-1"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
