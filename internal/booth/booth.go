// Package booth drives a guest session from theme selection through capture,
// generation and compositing, retrying transient failures.
package booth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"era-photobooth/internal/compositor"
	"era-photobooth/internal/demographics"
	"era-photobooth/internal/gemini"
	"era-photobooth/internal/session"
	"era-photobooth/internal/theme"
)

const (
	DefaultMaxAttempts = 3
	DefaultBackoff     = 500 * time.Millisecond
)

var (
	ErrBusy         = errors.New("a capture is already being processed")
	ErrNoTheme      = errors.New("no theme selected")
	ErrUnknownTheme = errors.New("unknown theme")
	ErrEmptyCapture = errors.New("captured image is empty")
	ErrStaleSession = errors.New("session was reset")
	ErrNoArtifact   = errors.New("session has no artifact")
)

type Detector interface {
	Detect(ctx context.Context, image []byte) demographics.Result
}

type SceneSelector interface {
	Select(ctx context.Context, t theme.Theme) (theme.SceneVariant, int, error)
}

type Composer interface {
	Compose(t theme.Theme, scene theme.SceneVariant, d demographics.Result) (string, error)
}

type Generator interface {
	Generate(ctx context.Context, image []byte, instruction string) (gemini.Image, error)
}

type Compositor interface {
	Composite(ctx context.Context, source []byte, t theme.Theme) (*compositor.Artifact, error)
}

// SleepFunc waits d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

type Options struct {
	Catalog    *theme.Catalog
	Detector   Detector
	Scenes     SceneSelector
	Composer   Composer
	Generator  Generator
	Compositor Compositor

	MaxAttempts int
	Backoff     time.Duration
	Sleep       SleepFunc

	Listener Listener
	Logger   *slog.Logger
}

type Booth struct {
	catalog    *theme.Catalog
	detector   Detector
	scenes     SceneSelector
	composer   Composer
	generator  Generator
	compositor Compositor

	maxAttempts int
	backoff     time.Duration
	sleep       SleepFunc

	listener Listener
	logger   *slog.Logger

	sessions *session.Store
	busy     atomic.Bool
}

func New(opts Options) *Booth {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	return &Booth{
		catalog:     opts.Catalog,
		detector:    opts.Detector,
		scenes:      opts.Scenes,
		composer:    opts.Composer,
		generator:   opts.Generator,
		compositor:  opts.Compositor,
		maxAttempts: maxAttempts,
		backoff:     backoff,
		sleep:       sleep,
		listener:    opts.Listener,
		logger:      logger,
		sessions:    session.NewStore(),
	}
}

func (b *Booth) Themes() []theme.Theme {
	return b.catalog.List()
}

func (b *Booth) Snapshot() session.State {
	return b.sessions.Snapshot()
}

// SelectTheme starts (or restarts) capture for the given theme.
func (b *Booth) SelectTheme(id string) (session.State, error) {
	t, ok := b.catalog.Get(id)
	if !ok {
		return session.State{}, ErrUnknownTheme
	}

	cur := b.sessions.Snapshot()
	if cur.Phase == session.PhaseAttempting {
		return cur, ErrBusy
	}

	st, ok := b.sessions.Update(cur.Key, func(s *session.State) {
		s.ThemeID = t.ID
		s.Phase = session.PhaseCapturing
		s.Image = nil
		s.Prompt = ""
		s.Demographics = nil
		s.Artifact = nil
		s.Attempt = 0
	})
	if !ok {
		return st, ErrStaleSession
	}

	b.logger.Info("theme selected", "theme", t.ID, "session_key", st.Key)
	b.emit(Event{Type: EventThemeSelected, State: st})
	return st, nil
}

// Restart abandons the current session. An attempt still in flight finishes
// on its own, but its result no longer matches the session key and is
// dropped.
func (b *Booth) Restart() session.State {
	st := b.sessions.Reset()
	b.logger.Info("session restarted", "session_key", st.Key)
	b.emit(Event{Type: EventRestarted, State: st})
	return st
}

// Retouch swaps the session's artifact for an edited one.
func (b *Booth) Retouch(key uint64, png []byte) (*compositor.Artifact, error) {
	cur := b.sessions.Snapshot()
	if cur.Key != key {
		return nil, ErrStaleSession
	}
	if cur.Phase != session.PhaseComposited || cur.Artifact == nil {
		return nil, ErrNoArtifact
	}

	art, err := compositor.FromPNG(png)
	if err != nil {
		return nil, err
	}

	st, ok := b.sessions.Update(key, func(s *session.State) {
		s.Artifact = art
	})
	if !ok {
		return nil, ErrStaleSession
	}
	b.emit(Event{Type: EventRetouched, State: st})
	return art, nil
}

func (b *Booth) emit(ev Event) {
	if b.listener != nil {
		b.listener(ev)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
