// Package scene picks a scene variant per theme while avoiding the variant
// the previous guest got.
package scene

import (
	"context"
	"io"
	"log/slog"
	"math/rand/v2"

	"era-photobooth/internal/apperr"
	"era-photobooth/internal/theme"
)

const DefaultMaxTries = 10

// Rand is the subset of *rand.Rand the selector needs.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// ChooseNonRepeating draws up to maxTries uniform indices in [0,n) and returns
// the first that differs from exclude. When every draw repeats, the last draw
// is accepted. Pass a negative exclude when there is nothing to avoid.
func ChooseNonRepeating(rng Rand, n, exclude, maxTries int) int {
	if n <= 1 {
		return 0
	}
	if maxTries < 1 {
		maxTries = 1
	}

	idx := rng.IntN(n)
	for try := 1; try < maxTries && idx == exclude; try++ {
		idx = rng.IntN(n)
	}
	return idx
}

type Options struct {
	Store    Store
	Rand     Rand
	MaxTries int
	Logger   *slog.Logger
}

type Selector struct {
	store    Store
	rng      Rand
	maxTries int
	logger   *slog.Logger
}

func NewSelector(opts Options) *Selector {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	store := opts.Store
	if store == nil {
		store = NewMemoryStore()
	}
	var rng Rand = globalRand{}
	if opts.Rand != nil {
		rng = opts.Rand
	}
	maxTries := opts.MaxTries
	if maxTries <= 0 {
		maxTries = DefaultMaxTries
	}

	return &Selector{
		store:    store,
		rng:      rng,
		maxTries: maxTries,
		logger:   logger,
	}
}

// Select returns the scene for t and records its index as last used. Store
// failures only cost the anti-repetition bias and are logged.
func (s *Selector) Select(ctx context.Context, t theme.Theme) (theme.SceneVariant, int, error) {
	if len(t.Scenes) == 0 {
		return theme.SceneVariant{}, 0, apperr.Configuration("scene.Select", "theme %q has no scenes", t.ID)
	}

	idx := 0
	if len(t.Scenes) > 1 {
		last, ok, err := s.store.LastIndex(ctx, t.ID)
		if err != nil {
			s.logger.Warn("read last scene failed", "theme", t.ID, "err", err)
		}
		if !ok || err != nil {
			last = -1
		}
		idx = ChooseNonRepeating(s.rng, len(t.Scenes), last, s.maxTries)
	}

	if err := s.store.SetLastIndex(ctx, t.ID, idx); err != nil {
		s.logger.Warn("persist last scene failed", "theme", t.ID, "err", err)
	}

	return t.Scenes[idx], idx, nil
}
