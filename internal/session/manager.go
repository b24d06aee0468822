// Package session keeps live conversations and mirrors their snapshots to redis.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/octobees/tablemate/internal/dialog"
	"github.com/octobees/tablemate/internal/entity"
)

var (
	// ErrNotFound is returned when no conversation exists for the id.
	ErrNotFound = errors.New("conversation not found")
	// ErrTooManySessions is returned when the manager is at capacity.
	ErrTooManySessions = errors.New("maximum sessions reached")
	// ErrForbidden is returned when a caller does not own the conversation.
	ErrForbidden = errors.New("conversation belongs to another user")
)

// Conversation is one live dialog. Turns on the same conversation are serialized.
type Conversation struct {
	ID           string
	CreatedAt    time.Time
	LastActivity time.Time

	state dialog.State
	mu    sync.Mutex
}

// WithState runs fn while holding the conversation lock.
func (c *Conversation) WithState(fn func(st *dialog.State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.state)
}

// Snapshot returns a copy of the conversation state.
func (c *Conversation) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Conversation) snapshotLocked() Snapshot {
	st := c.state
	st.Group.Members = append([]entity.UserPreferences(nil), c.state.Group.Members...)
	return Snapshot{ID: c.ID, CreatedAt: c.CreatedAt, LastActivity: c.LastActivity, State: st}
}

// OwnedBy reports whether caller may use the conversation. Anonymous
// conversations own themselves and are open to whoever holds the id.
func (c *Conversation) OwnedBy(caller string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Owner == c.ID || c.state.Owner == caller
}

func (c *Conversation) touch(now time.Time) {
	c.mu.Lock()
	c.LastActivity = now
	c.mu.Unlock()
}

func (c *Conversation) lastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.LastActivity
}

// Snapshot is the serialized form of a conversation.
type Snapshot struct {
	ID           string       `json:"id"`
	CreatedAt    time.Time    `json:"created_at"`
	LastActivity time.Time    `json:"last_activity"`
	State        dialog.State `json:"state"`
}

// Mirror persists snapshots outside the process.
type Mirror interface {
	Save(ctx context.Context, id string, data []byte, ttl time.Duration) error
	Load(ctx context.Context, id string) ([]byte, error)
	Delete(ctx context.Context, id string) error
}

// Manager tracks all live conversations.
type Manager struct {
	sessions    map[string]*Conversation
	mu          sync.RWMutex
	mirror      Mirror
	ttl         time.Duration
	maxSessions int
	now         func() time.Time
	logger      zerolog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithMirror enables snapshot mirroring.
func WithMirror(mirror Mirror) Option {
	return func(m *Manager) {
		m.mirror = mirror
	}
}

// WithLogger sets the logger used for mirror failures.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager builds a manager. A non-positive maxSessions means unlimited.
func NewManager(ttl time.Duration, maxSessions int, opts ...Option) *Manager {
	m := &Manager{
		sessions:    make(map[string]*Conversation),
		ttl:         ttl,
		maxSessions: maxSessions,
		now:         time.Now,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create starts a conversation for owner. An empty owner becomes the conversation id.
func (m *Manager) Create(ctx context.Context, owner string) (*Conversation, error) {
	m.mu.Lock()
	if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		m.mu.Unlock()
		return nil, ErrTooManySessions
	}

	id := uuid.New().String()
	if owner == "" {
		owner = id
	}
	now := m.now()
	conv := &Conversation{ID: id, CreatedAt: now, LastActivity: now, state: dialog.State{Owner: owner}}
	m.sessions[id] = conv
	m.mu.Unlock()

	m.Persist(ctx, conv)
	return conv, nil
}

// Get returns a live conversation, restoring it from the mirror when it is
// not held in memory.
func (m *Manager) Get(ctx context.Context, id string) (*Conversation, error) {
	m.mu.RLock()
	conv, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		conv.touch(m.now())
		return conv, nil
	}

	if m.mirror == nil {
		return nil, ErrNotFound
	}
	data, err := m.mirror.Load(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.logger.Warn().Err(err).Str("conversation_id", id).Msg("load session snapshot failed")
		}
		return nil, ErrNotFound
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode session snapshot: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[id]; ok {
		return existing, nil
	}
	if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		return nil, ErrTooManySessions
	}
	conv = &Conversation{ID: snap.ID, CreatedAt: snap.CreatedAt, LastActivity: m.now(), state: snap.State}
	m.sessions[id] = conv
	return conv, nil
}

// Persist mirrors the conversation snapshot. Failures are logged only.
func (m *Manager) Persist(ctx context.Context, conv *Conversation) {
	if m.mirror == nil {
		return
	}
	data, err := json.Marshal(conv.Snapshot())
	if err != nil {
		m.logger.Warn().Err(err).Str("conversation_id", conv.ID).Msg("encode session snapshot failed")
		return
	}
	if err := m.mirror.Save(ctx, conv.ID, data, m.ttl); err != nil {
		m.logger.Warn().Err(err).Str("conversation_id", conv.ID).Msg("mirror session snapshot failed")
	}
}

// Remove ends a conversation and reports whether it existed in memory or in
// the mirror.
func (m *Manager) Remove(ctx context.Context, id string) bool {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if m.mirror != nil {
		if !ok {
			if _, err := m.mirror.Load(ctx, id); err == nil {
				ok = true
			}
		}
		if err := m.mirror.Delete(ctx, id); err != nil {
			m.logger.Warn().Err(err).Str("conversation_id", id).Msg("delete session snapshot failed")
		}
	}
	return ok
}

// Count returns the number of conversations held in memory.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CleanupInactive drops conversations idle for longer than the TTL and
// returns how many were removed. Mirrored snapshots expire on their own.
func (m *Manager) CleanupInactive() int {
	if m.ttl <= 0 {
		return 0
	}
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, conv := range m.sessions {
		if now.Sub(conv.lastActivity()) > m.ttl {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// StartCleanup runs CleanupInactive every interval until ctx is done.
func (m *Manager) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.CleanupInactive(); n > 0 {
				m.logger.Debug().Int("removed", n).Msg("cleaned up idle conversations")
			}
		}
	}
}
