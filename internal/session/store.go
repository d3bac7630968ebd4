package session

import (
	"sync"
	"time"

	"era-photobooth/internal/compositor"
	"era-photobooth/internal/demographics"
)

type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseCapturing  Phase = "capturing"
	PhaseAttempting Phase = "attempting"
	PhaseComposited Phase = "composited"
)

// State is the one active guest session. Key grows on every reset so that
// work started for an older session can recognise itself as stale.
type State struct {
	Key          uint64
	Phase        Phase
	ThemeID      string
	Image        []byte
	Prompt       string
	Demographics *demographics.Result
	Artifact     *compositor.Artifact
	Attempt      int
	UpdatedAt    time.Time
}

type Store struct {
	mu    sync.Mutex
	state State
	now   func() time.Time
}

func NewStore() *Store {
	s := &Store{now: time.Now}
	s.state = State{Key: 1, Phase: PhaseIdle, UpdatedAt: s.now()}
	return s
}

func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Update applies fn when key still names the current session.
func (s *Store) Update(key uint64, fn func(*State)) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Key != key {
		return s.state, false
	}
	fn(&s.state)
	s.state.Key = key
	s.state.UpdatedAt = s.now()
	return s.state, true
}

// Reset clears everything and starts a new session.
func (s *Store) Reset() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resetLocked()
}

// ResetIf resets only when key still names the current session.
func (s *Store) ResetIf(key uint64) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Key != key {
		return s.state, false
	}
	return s.resetLocked(), true
}

func (s *Store) Current(key uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Key == key
}

func (s *Store) resetLocked() State {
	s.state = State{
		Key:       s.state.Key + 1,
		Phase:     PhaseIdle,
		UpdatedAt: s.now(),
	}
	return s.state
}
