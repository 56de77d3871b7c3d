package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/duttnikhil/voice-bot/internal/audio"
	"github.com/duttnikhil/voice-bot/internal/dialog"
)

// Registry errors. Events arriving for an unknown or already-removed id are
// expected during teardown races and map to ErrNotFound; callers ignore them
// rather than failing the process.
var (
	ErrNotFound    = errors.New("session not found")
	ErrDuplicateID = errors.New("session id already exists")
	ErrLimit       = errors.New("session limit reached")
)

// DefaultInactivityTimeout tears down sessions that stop producing inbound
// events. It is a coarse safety net behind the per-connection read deadline.
const DefaultInactivityTimeout = 120 * time.Second

// Session is the per-call unit of state: the interview machine, the inbound
// turn buffer, and activity bookkeeping. Exactly one Session exists per id,
// and all field-level mutation happens from the session's own connection
// handler, which processes events strictly sequentially. The registry only
// serializes map-level insert and remove.
type Session struct {
	ID        string
	Variant   dialog.Variant
	Machine   *dialog.Machine
	Turn      *audio.TurnBuffer
	CreatedAt time.Time

	lastActivity time.Time

	// Statistics
	turnsProcessed uint64
	turnsDropped   uint64

	mu sync.RWMutex
}

// Touch records inbound activity, deferring the inactivity teardown.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// LastActivity returns the time of the most recent inbound event.
func (s *Session) LastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActivity
}

// RecordTurn counts a fully processed turn for monitoring.
func (s *Session) RecordTurn() {
	s.mu.Lock()
	s.turnsProcessed++
	s.mu.Unlock()
}

// RecordDroppedChunk counts an inbound chunk dropped due to a decode error.
func (s *Session) RecordDroppedChunk() {
	s.mu.Lock()
	s.turnsDropped++
	s.mu.Unlock()
}

// Info is a monitoring snapshot of one session.
type Info struct {
	ID             string          `json:"session_id"`
	BotType        string          `json:"bot_type"`
	State          string          `json:"state"`
	Answers        map[string]bool `json:"answers"`
	CreatedAt      time.Time       `json:"created_at"`
	LastActivity   time.Time       `json:"last_activity"`
	Duration       time.Duration   `json:"duration"`
	PendingBytes   int             `json:"pending_audio_bytes"`
	TurnsProcessed uint64          `json:"turns_processed"`
	DroppedChunks  uint64          `json:"dropped_chunks"`
}

// Info returns a snapshot for the monitoring API.
func (s *Session) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Info{
		ID:             s.ID,
		BotType:        string(s.Variant),
		State:          s.Machine.State().String(),
		Answers:        s.Machine.Answers(),
		CreatedAt:      s.CreatedAt,
		LastActivity:   s.lastActivity,
		Duration:       time.Since(s.CreatedAt),
		PendingBytes:   s.Turn.Len(),
		TurnsProcessed: s.turnsProcessed,
		DroppedChunks:  s.turnsDropped,
	}
}

// Config tunes the registry.
type Config struct {
	// InactivityTimeout removes sessions with no inbound events for this
	// long. Zero selects DefaultInactivityTimeout.
	InactivityTimeout time.Duration

	// CleanupInterval is how often the expiry sweep runs. Zero selects
	// 30 seconds.
	CleanupInterval time.Duration

	// MaxSessions caps concurrent sessions; zero means unlimited.
	MaxSessions int

	// TurnThresholdBytes configures each session's turn buffer.
	TurnThresholdBytes int
}

// Registry is the single authoritative map of live sessions. Map-level
// insert and remove are safe under concurrent connection setup and teardown
// from many sessions at once.
type Registry struct {
	cfg      Config
	logger   *slog.Logger
	sessions map[string]*Session

	// Statistics
	created   uint64
	destroyed uint64
	expired   uint64

	ctx     context.Context
	cancel  context.CancelFunc
	cleanup chan struct{}

	mu sync.RWMutex
}

// NewRegistry creates a session registry and starts its expiry sweep.
func NewRegistry(logger *slog.Logger, cfg Config) *Registry {
	if cfg.InactivityTimeout <= 0 {
		cfg.InactivityTimeout = DefaultInactivityTimeout
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	r := &Registry{
		cfg:      cfg,
		logger:   logger,
		sessions: make(map[string]*Session),
		ctx:      ctx,
		cancel:   cancel,
		cleanup:  make(chan struct{}),
	}

	go r.cleanupRoutine()

	return r
}

// Create inserts a new session for id. It fails with ErrDuplicateID when the
// id is already live and ErrLimit when the session cap is reached.
func (r *Registry) Create(id string, variant dialog.Variant) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[id]; exists {
		return nil, ErrDuplicateID
	}

	if r.cfg.MaxSessions > 0 && len(r.sessions) >= r.cfg.MaxSessions {
		return nil, ErrLimit
	}

	now := time.Now()
	sess := &Session{
		ID:           id,
		Variant:      variant,
		Machine:      dialog.NewMachine(variant),
		Turn:         audio.NewTurnBuffer(r.cfg.TurnThresholdBytes),
		CreatedAt:    now,
		lastActivity: now,
	}

	r.sessions[id] = sess
	r.created++

	r.logger.Info("Session created",
		slog.String("session_id", id),
		slog.String("bot_type", string(variant)),
	)

	return sess, nil
}

// Get returns the session for id, or ErrNotFound.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, exists := r.sessions[id]
	if !exists {
		return nil, ErrNotFound
	}

	return sess, nil
}

// Remove deletes the session for id and reports whether it was present.
// Removal is idempotent; racing events for a removed id simply observe
// ErrNotFound from Get and are ignored.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, exists := r.sessions[id]
	if !exists {
		return false
	}

	delete(r.sessions, id)
	r.destroyed++

	r.logger.Info("Session removed",
		slog.String("session_id", id),
		slog.String("state", sess.Machine.State().String()),
		slog.Duration("duration", time.Since(sess.CreatedAt)),
		slog.Uint64("turns_processed", sess.turnsProcessed),
	)

	return true
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// All returns a snapshot of all live sessions for monitoring.
func (r *Registry) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		sessions = append(sessions, sess)
	}

	return sessions
}

// Stats is a registry-level monitoring snapshot.
type Stats struct {
	Active    int    `json:"active_sessions"`
	Created   uint64 `json:"sessions_created"`
	Destroyed uint64 `json:"sessions_destroyed"`
	Expired   uint64 `json:"sessions_expired"`
}

// Stats returns lifetime registry counters.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return Stats{
		Active:    len(r.sessions),
		Created:   r.created,
		Destroyed: r.destroyed,
		Expired:   r.expired,
	}
}

// Stop halts the expiry sweep. Live sessions are left for their connection
// handlers to tear down.
func (r *Registry) Stop() {
	r.cancel()
	<-r.cleanup
}

// cleanupRoutine periodically removes sessions whose inbound side has gone
// quiet past the inactivity timeout.
func (r *Registry) cleanupRoutine() {
	defer close(r.cleanup)

	ticker := time.NewTicker(r.cfg.CleanupInterval)
	defer ticker.Stop()

	r.logger.Info("Session cleanup routine started",
		slog.Duration("inactivity_timeout", r.cfg.InactivityTimeout),
		slog.Duration("check_interval", r.cfg.CleanupInterval),
	)

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Info("Session cleanup routine stopping")
			return

		case <-ticker.C:
			r.removeExpired()
		}
	}
}

func (r *Registry) removeExpired() {
	now := time.Now()
	expired := make([]string, 0)

	r.mu.RLock()
	for id, sess := range r.sessions {
		if now.Sub(sess.LastActivity()) > r.cfg.InactivityTimeout {
			expired = append(expired, id)
		}
	}
	r.mu.RUnlock()

	if len(expired) == 0 {
		return
	}

	r.logger.Info("Cleaning up expired sessions",
		slog.Int("expired_count", len(expired)),
	)

	for _, id := range expired {
		if r.Remove(id) {
			r.mu.Lock()
			r.expired++
			r.mu.Unlock()
		}
	}
}
