package booth

import (
	"context"
	"fmt"

	"era-photobooth/internal/apperr"
	"era-photobooth/internal/compositor"
	"era-photobooth/internal/demographics"
	"era-photobooth/internal/session"
	"era-photobooth/internal/theme"
)

type OutcomeStatus string

const (
	// OutcomeComposited: the artifact is ready and stored in the session.
	OutcomeComposited OutcomeStatus = "composited"
	// OutcomeReset: every attempt failed and the session was cleared.
	OutcomeReset OutcomeStatus = "reset"
	// OutcomeStale: the session was restarted while the capture ran; the
	// result was dropped.
	OutcomeStale OutcomeStatus = "stale"
)

type Outcome struct {
	Status       OutcomeStatus
	SessionKey   uint64
	Artifact     *compositor.Artifact
	Prompt       string
	Demographics *demographics.Result
	Attempts     int
	// Err is the exhaustion error for OutcomeReset.
	Err error
}

type attemptKind int

const (
	attemptSucceeded attemptKind = iota
	attemptRetryable
	attemptTerminal
)

type attemptResult struct {
	kind     attemptKind
	artifact *compositor.Artifact
	prompt   string
	err      error
}

func failed(err error) attemptResult {
	if apperr.Retryable(err) {
		return attemptResult{kind: attemptRetryable, err: err}
	}
	return attemptResult{kind: attemptTerminal, err: err}
}

// Capture runs the attempt sequence for a captured photo. known may carry a
// demographic read from the capture surface; otherwise the detector runs
// once and its result is reused by every retry.
//
// The returned error only reports a rejected capture. Pipeline failures are
// absorbed and show up as OutcomeReset.
func (b *Booth) Capture(ctx context.Context, image []byte, known *demographics.Result) (Outcome, error) {
	if len(image) == 0 {
		return Outcome{}, ErrEmptyCapture
	}
	if !b.busy.CompareAndSwap(false, true) {
		return Outcome{}, ErrBusy
	}
	defer b.busy.Store(false)

	cur := b.sessions.Snapshot()
	if cur.ThemeID == "" {
		return Outcome{}, ErrNoTheme
	}
	t, ok := b.catalog.Get(cur.ThemeID)
	if !ok {
		return Outcome{}, ErrUnknownTheme
	}
	key := cur.Key

	var demo *demographics.Result
	if known != nil {
		d := known.Normalize()
		demo = &d
	}

	st, ok := b.sessions.Update(key, func(s *session.State) {
		s.Phase = session.PhaseAttempting
		s.Image = image
		s.Demographics = demo
		s.Prompt = ""
		s.Artifact = nil
		s.Attempt = 0
	})
	if !ok {
		return Outcome{Status: OutcomeStale, SessionKey: key}, nil
	}
	b.logger.Info("capture accepted", "theme", t.ID, "session_key", key, "passthrough", t.Passthrough)

	for n := 1; ; n++ {
		st, ok = b.sessions.Update(key, func(s *session.State) { s.Attempt = n })
		if !ok {
			return b.stale(key, n-1), nil
		}
		b.emit(Event{Type: EventAttemptStarted, State: st, Attempt: n})

		res := b.attempt(ctx, key, t, image, &demo)
		if res.kind == attemptSucceeded {
			st, ok = b.sessions.Update(key, func(s *session.State) {
				s.Phase = session.PhaseComposited
				s.Artifact = res.artifact
				s.Prompt = res.prompt
				s.Demographics = demo
			})
			if !ok {
				return b.stale(key, n), nil
			}
			b.logger.Info("capture composited", "theme", t.ID, "session_key", key, "attempt", n, "artifact", res.artifact.ID)
			b.emit(Event{Type: EventComposited, State: st, Attempt: n})
			return Outcome{
				Status:       OutcomeComposited,
				SessionKey:   key,
				Artifact:     res.artifact,
				Prompt:       res.prompt,
				Demographics: demo,
				Attempts:     n,
			}, nil
		}

		b.logger.Warn("attempt failed",
			"theme", t.ID,
			"session_key", key,
			"attempt", n,
			"retryable", res.kind == attemptRetryable,
			"err", res.err,
		)
		if !b.sessions.Current(key) {
			return b.stale(key, n), nil
		}
		b.emit(Event{Type: EventAttemptFailed, State: b.sessions.Snapshot(), Attempt: n, Err: res.err.Error()})

		if res.kind == attemptTerminal || n >= b.maxAttempts {
			return b.exhaust(key, n, res.err), nil
		}
		if err := b.sleep(ctx, b.backoff); err != nil {
			return b.exhaust(key, n, err), nil
		}
	}
}

// attempt runs one pass of the pipeline. Panics are turned into retryable
// failures so a bad frame never takes the kiosk down.
func (b *Booth) attempt(ctx context.Context, key uint64, t theme.Theme, image []byte, demo **demographics.Result) (res attemptResult) {
	defer func() {
		if r := recover(); r != nil {
			res = attemptResult{kind: attemptRetryable, err: fmt.Errorf("attempt panicked: %v", r)}
		}
	}()

	source := image
	var instruction string

	if !t.Passthrough {
		if *demo == nil {
			d := b.detector.Detect(ctx, image).Normalize()
			*demo = &d
			b.sessions.Update(key, func(s *session.State) { s.Demographics = &d })
		}

		scene, idx, err := b.scenes.Select(ctx, t)
		if err != nil {
			return failed(err)
		}

		instruction, err = b.composer.Compose(t, scene, **demo)
		if err != nil {
			return failed(err)
		}
		b.sessions.Update(key, func(s *session.State) { s.Prompt = instruction })
		b.logger.Debug("prompt composed", "theme", t.ID, "scene", idx, "chars", len(instruction))

		generated, err := b.generator.Generate(ctx, image, instruction)
		if err != nil {
			return failed(err)
		}
		source = generated.Data
	}

	art, err := b.compositor.Composite(ctx, source, t)
	if err != nil {
		return failed(err)
	}
	return attemptResult{kind: attemptSucceeded, artifact: art, prompt: instruction}
}

func (b *Booth) exhaust(key uint64, attempts int, last error) Outcome {
	err := apperr.New(apperr.KindExhausted, "booth.Capture", fmt.Errorf("gave up after %d attempts: %w", attempts, last))

	st, ok := b.sessions.ResetIf(key)
	if !ok {
		return b.stale(key, attempts)
	}
	b.logger.Error("capture abandoned", "session_key", key, "next_session_key", st.Key, "err", err)
	b.emit(Event{Type: EventReset, State: st, Attempt: attempts, Err: err.Error()})
	return Outcome{Status: OutcomeReset, SessionKey: key, Attempts: attempts, Err: err}
}

func (b *Booth) stale(key uint64, attempts int) Outcome {
	b.logger.Info("dropping result of abandoned session", "session_key", key, "attempt", attempts)
	return Outcome{Status: OutcomeStale, SessionKey: key, Attempts: attempts}
}
