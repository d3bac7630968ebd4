package demographics

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Backend is a face detector that needs a one-time load before use.
type Backend interface {
	Load(ctx context.Context) error
	DetectFaces(ctx context.Context, image []byte) ([]Face, error)
}

type Options struct {
	Backend Backend
	Logger  *slog.Logger
}

type Classifier struct {
	backend Backend
	logger  *slog.Logger

	loads  singleflight.Group
	mu     sync.Mutex
	loaded bool
}

// NewClassifier accepts a nil backend; such a classifier always reports the
// default result.
func NewClassifier(opts Options) *Classifier {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Classifier{
		backend: opts.Backend,
		logger:  logger,
	}
}

// Detect never fails. Load errors, detector errors and empty detections all
// yield Default.
func (c *Classifier) Detect(ctx context.Context, image []byte) Result {
	if c.backend == nil {
		c.logger.Debug("detector not configured, using default demographics")
		return Default()
	}

	if err := c.ensureLoaded(ctx); err != nil {
		c.logger.Warn("detector load failed", "err", err)
		return Default()
	}

	faces, err := c.backend.DetectFaces(ctx, image)
	if err != nil {
		c.logger.Warn("face detection failed", "err", err)
		return Default()
	}

	res := Tally(faces)
	c.logger.Debug("faces detected",
		"male", res.Male,
		"female", res.Female,
		"child", res.Child,
		"total", res.Total,
	)
	return res
}

// ensureLoaded shares one in-flight load between concurrent callers. A
// failed load is not remembered, so the next call tries again.
func (c *Classifier) ensureLoaded(ctx context.Context) error {
	c.mu.Lock()
	loaded := c.loaded
	c.mu.Unlock()
	if loaded {
		return nil
	}

	_, err, _ := c.loads.Do("load", func() (any, error) {
		c.mu.Lock()
		if c.loaded {
			c.mu.Unlock()
			return nil, nil
		}
		c.mu.Unlock()

		if err := c.backend.Load(ctx); err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.loaded = true
		c.mu.Unlock()
		return nil, nil
	})
	return err
}
