// Package compositor lays the portrait, the theme background and the frame
// onto a fixed 1080x1920 canvas.
package compositor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"era-photobooth/internal/apperr"
	"era-photobooth/internal/theme"
)

const (
	CanvasWidth  = 1080
	CanvasHeight = 1920

	sourceFraction = 0.75
	frameFraction  = 0.92
)

// Artifact is a finished print. It is never modified after creation.
type Artifact struct {
	ID        string
	PNG       []byte
	Width     int
	Height    int
	CreatedAt time.Time
}

type Options struct {
	Assets AssetLoader
	Logger *slog.Logger
}

type Compositor struct {
	assets AssetLoader
	logger *slog.Logger
}

func New(opts Options) *Compositor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	assets := opts.Assets
	if assets == nil {
		assets = NewFSAssets(os.DirFS("."))
	}
	return &Compositor{assets: assets, logger: logger}
}

// Composite fails when the source or the background cannot be decoded. A
// missing frame is logged and left out.
func (c *Compositor) Composite(ctx context.Context, source []byte, t theme.Theme) (*Artifact, error) {
	const op = "compositor.Composite"

	var src, bg, frame image.Image

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		img, err := imaging.Decode(bytes.NewReader(source), imaging.AutoOrientation(true))
		if err != nil {
			return apperr.Composition(op, fmt.Errorf("decode source: %w", err))
		}
		src = img
		return nil
	})
	g.Go(func() error {
		img, err := c.assets.Load(gctx, t.Background())
		if err != nil {
			return apperr.Composition(op, fmt.Errorf("background: %w", err))
		}
		bg = img
		return nil
	})
	if ref, ok := t.Frame(); ok {
		g.Go(func() error {
			img, err := c.assets.Load(gctx, ref)
			if err != nil {
				c.logger.Warn("frame skipped", "theme", t.ID, "frame", ref, "err", err)
				return nil
			}
			frame = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	art, err := NewArtifact(Render(bg, src, frame))
	if err != nil {
		return nil, apperr.Composition(op, err)
	}
	return art, nil
}

// Render draws, back to front: bg stretched over the whole canvas, src fitted
// into 75% of it and frame fitted into 92%, both centered. frame may be nil.
func Render(bg, src, frame image.Image) *image.NRGBA {
	canvas := imaging.Resize(bg, CanvasWidth, CanvasHeight, imaging.Lanczos)
	canvas = overlayCentered(canvas, src, sourceFraction)
	if frame != nil {
		canvas = overlayCentered(canvas, frame, frameFraction)
	}
	return canvas
}

func overlayCentered(canvas *image.NRGBA, img image.Image, fraction float64) *image.NRGBA {
	b := img.Bounds()
	if b.Empty() {
		return canvas
	}

	w, h := fitWithin(b.Dx(), b.Dy(), float64(CanvasWidth)*fraction, float64(CanvasHeight)*fraction)
	scaled := imaging.Resize(img, w, h, imaging.Lanczos)
	pos := image.Pt((CanvasWidth-w)/2, (CanvasHeight-h)/2)
	return imaging.Overlay(canvas, scaled, pos, 1.0)
}

// fitWithin scales w x h uniformly, up or down, to the largest size inside
// maxW x maxH.
func fitWithin(w, h int, maxW, maxH float64) (int, int) {
	scale := math.Min(maxW/float64(w), maxH/float64(h))
	nw := int(math.Round(float64(w) * scale))
	nh := int(math.Round(float64(h) * scale))
	return max(nw, 1), max(nh, 1)
}

func NewArtifact(img image.Image) (*Artifact, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	b := img.Bounds()
	return &Artifact{
		ID:        uuid.NewString(),
		PNG:       buf.Bytes(),
		Width:     b.Dx(),
		Height:    b.Dy(),
		CreatedAt: time.Now(),
	}, nil
}

// FromPNG wraps an edited print. It must still be a canvas-sized image.
func FromPNG(data []byte) (*Artifact, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	if b := img.Bounds(); b.Dx() != CanvasWidth || b.Dy() != CanvasHeight {
		return nil, fmt.Errorf("artifact is %dx%d, want %dx%d", b.Dx(), b.Dy(), CanvasWidth, CanvasHeight)
	}
	return NewArtifact(img)
}
