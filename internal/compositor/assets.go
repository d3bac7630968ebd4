package compositor

import (
	"context"
	"fmt"
	"image"
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// AssetLoader resolves a catalog asset reference to a decoded image.
type AssetLoader interface {
	Load(ctx context.Context, ref string) (image.Image, error)
}

// FSAssets decodes JPEG, PNG and WebP assets from a file system and keeps
// them in memory after the first successful load.
type FSAssets struct {
	fsys fs.FS

	mu    sync.RWMutex
	cache map[string]image.Image
}

func NewFSAssets(fsys fs.FS) *FSAssets {
	return &FSAssets{fsys: fsys, cache: make(map[string]image.Image)}
}

func (a *FSAssets) Load(ctx context.Context, ref string) (image.Image, error) {
	name, err := cleanRef(ref)
	if err != nil {
		return nil, err
	}

	a.mu.RLock()
	img, ok := a.cache[name]
	a.mu.RUnlock()
	if ok {
		return img, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := a.fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open asset %s: %w", name, err)
	}
	defer f.Close()

	img, err = imaging.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode asset %s: %w", name, err)
	}

	a.mu.Lock()
	a.cache[name] = img
	a.mu.Unlock()
	return img, nil
}

func cleanRef(ref string) (string, error) {
	name := strings.TrimSpace(ref)
	name = strings.TrimPrefix(name, "./")
	name = strings.TrimLeft(name, "/")
	name = path.Clean(name)
	if name == "." || !fs.ValidPath(name) {
		return "", fmt.Errorf("invalid asset reference %q", ref)
	}
	return name, nil
}
