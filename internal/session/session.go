package session

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/cvtree/internal/editor"
)

// ErrNotFound is returned for unknown or expired session IDs.
var ErrNotFound = errors.New("session not found")

// Session is one open document being edited through the API.
type Session struct {
	mu sync.Mutex

	ID        string
	Filename  string
	Editor    *editor.Editor
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Info is a read-only, JSON-safe view of a session.
type Info struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename,omitempty"`
	Version     uint64    `json:"version"`
	ContentHash string    `json:"content_hash"`
	CanUndo     bool      `json:"can_undo"`
	CanRedo     bool      `json:"can_redo"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Touch marks the session as used now, postponing its expiry.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UpdatedAt = time.Now()
}

func (s *Session) lastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.UpdatedAt
}

// Info returns a snapshot of the session state.
func (s *Session) Info() Info {
	info, _ := s.Snapshot()
	return info
}

// Snapshot returns the session info together with the editor state it was
// derived from, both taken from one editor version.
func (s *Session) Snapshot() (Info, editor.State) {
	st := s.Editor.State()
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{
		ID:          s.ID,
		Filename:    s.Filename,
		Version:     st.Version,
		ContentHash: ContentHashHex([]byte(st.Text)),
		CanUndo:     st.CanUndo,
		CanRedo:     st.CanRedo,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}, st
}

// Store is a thread-safe in-memory session registry with TTL eviction.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	opts     editor.Options
	log      *slog.Logger
}

// NewStore creates a store whose sessions expire after ttl without use.
// Each session's editor is created with opts.
func NewStore(ttl time.Duration, opts editor.Options, log *slog.Logger) *Store {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		opts:     opts,
		log:      log,
	}
}

// Create opens a new session holding a parse of raw.
func (s *Store) Create(filename, raw string) *Session {
	now := time.Now()
	sess := &Session{
		ID:        NewID(),
		Filename:  filename,
		Editor:    editor.New(s.opts),
		CreatedAt: now,
		UpdatedAt: now,
	}
	sess.Editor.Load(raw)

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	s.log.Info("session created", "session_id", sess.ID, "filename", filename, "bytes", len(raw))
	return sess
}

// Get returns a live session and marks it used.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	sess.Touch()
	return sess, nil
}

func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}
	delete(s.sessions, id)
	return nil
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Cleanup removes expired sessions and returns how many were removed.
func (s *Store) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	removed := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.lastUsed()) > s.ttl {
			delete(s.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		s.log.Info("expired sessions removed", "count", removed, "remaining", len(s.sessions))
	}
	return removed
}

// Start runs Cleanup every interval until ctx is cancelled.
func (s *Store) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Cleanup()
			}
		}
	}()
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
