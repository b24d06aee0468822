// Package dialog implements the turn-by-turn slot-filling conversation.
package dialog

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/octobees/tablemate/internal/entity"
	"github.com/octobees/tablemate/internal/extract"
	"github.com/octobees/tablemate/internal/service/ranking"
)

const (
	defaultTopK = 5
	shownLines  = 3
	maxMisses   = 2
)

// PreferenceStore persists a participant's stable preferences on request.
type PreferenceStore interface {
	Save(ctx context.Context, owner string, prefs entity.UserPreferences) error
	Load(ctx context.Context, owner string) (*entity.UserPreferences, error)
	Delete(ctx context.Context, owner string) (bool, error)
}

// State is everything one conversation owns between turns.
type State struct {
	Owner string                 `json:"owner"`
	Prefs entity.UserPreferences `json:"prefs"`
	Group entity.GroupState      `json:"group"`

	// Offered holds the ids of the venues last returned, best first.
	Offered []string `json:"offered,omitempty"`
}

// Step identifies the branch that produced a reply.
type Step string

const (
	StepPrivacy      Step = "privacy"
	StepGroupCommand Step = "group_command"
	StepGroupCapture Step = "group_capture"
	StepGroupResults Step = "group_results"
	StepReask        Step = "reask_required"
	StepAccessReask  Step = "reask_access"
	StepAskRequired  Step = "ask_required"
	StepAskAccess    Step = "ask_access"
	StepResults      Step = "results"
	StepNoResults    Step = "no_results"
)

// Reply is the outcome of one turn.
type Reply struct {
	Text    string           `json:"reply"`
	Results []ranking.Result `json:"results,omitempty"`
	Step    Step             `json:"step"`
}

// Manager runs turns against a conversation state.
type Manager struct {
	extract extract.Extractor
	store   PreferenceStore
	topK    int
	logger  zerolog.Logger
}

// Option configures optional Manager dependencies.
type Option func(*Manager)

// WithStore enables the save/load/delete preference commands.
func WithStore(store PreferenceStore) Option {
	return func(m *Manager) {
		m.store = store
	}
}

// WithTopK overrides how many ranked venues a turn returns.
func WithTopK(k int) Option {
	return func(m *Manager) {
		if k > 0 {
			m.topK = k
		}
	}
}

// WithLogger sets the logger used for per-turn diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager builds a dialog manager around an extractor.
func NewManager(ex extract.Extractor, opts ...Option) *Manager {
	m := &Manager{
		extract: ex,
		topK:    defaultTopK,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// turn carries per-utterance facts shared by the steps of HandleTurn.
type turn struct {
	text      string
	lower     string
	abandoned entity.Slot
	skipUsed  bool
}

// HandleTurn processes one utterance and always produces a reply. The venues
// slice is read, never modified.
func (m *Manager) HandleTurn(ctx context.Context, st *State, utterance string, venues []entity.Venue) Reply {
	reply := m.dispatch(ctx, st, utterance, venues)
	if len(reply.Results) > 0 {
		offered := make([]string, 0, len(reply.Results))
		for _, r := range reply.Results {
			offered = append(offered, r.ID)
		}
		st.Offered = offered
	}
	m.logger.Debug().
		Str("owner", st.Owner).
		Str("step", string(reply.Step)).
		Int("results", len(reply.Results)).
		Msg("dialog turn")
	return reply
}

func (m *Manager) dispatch(ctx context.Context, st *State, utterance string, venues []entity.Venue) Reply {
	t := &turn{
		text:  strings.TrimSpace(utterance),
		lower: normalizePhrase(utterance),
	}

	if text, ok := m.handlePrivacy(ctx, st, t.lower); ok {
		return Reply{Text: text, Step: StepPrivacy}
	}
	if text, ok := handleGroupCommand(&st.Group, t.text); ok {
		return Reply{Text: text, Step: StepGroupCommand}
	}
	if st.Group.Active {
		return Reply{Text: m.captureMember(&st.Group, t.text), Step: StepGroupCapture}
	}
	if isShowResults(t.lower) && len(st.Group.Members) > 0 {
		return m.groupResults(&st.Group, venues)
	}

	prefs := &st.Prefs
	if prefs.PendingRequired != entity.SlotNone {
		if reask, ok := m.resolvePendingSlot(prefs, t); ok {
			return Reply{Text: reask, Step: StepReask}
		}
	}

	m.fillOpportunistic(prefs, t.text)

	if reask, ok := m.resolveAccess(prefs, t.text); ok {
		return Reply{Text: reask, Step: StepAccessReask}
	}
	if prompt, ok := m.askRequired(prefs, t); ok {
		return Reply{Text: prompt, Step: StepAskRequired}
	}
	if question, ok := askAccess(prefs); ok {
		return Reply{Text: question, Step: StepAskAccess}
	}
	if prompt, ok := reopenRequired(prefs); ok {
		return Reply{Text: prompt, Step: StepAskRequired}
	}

	results := ranking.FilterAndRank(venues, *prefs, m.topK)
	if len(results) == 0 {
		return Reply{Text: noMatchesReply, Step: StepNoResults}
	}
	return Reply{Text: formatMatches(matchesHeader, results), Results: results, Step: StepResults}
}

// normalizePhrase lowercases and trims trailing punctuation so command
// phrases compare exactly.
func normalizePhrase(text string) string {
	return strings.TrimRight(strings.ToLower(strings.TrimSpace(text)), " .!?")
}
