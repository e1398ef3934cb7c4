package engine

import (
	"context"
	"fmt"
	"image"
	"net/http"
	"os"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageLoader resolves a preview URL to the image's natural pixel
// dimensions. Loading is the engine's only asynchronous boundary; the engine
// guards completions with a generation counter so stale loads become no-ops.
type ImageLoader interface {
	Load(ctx context.Context, url string) (width, height int, err error)
}

// DefaultLoader decodes image headers from http(s) URLs or local file paths.
type DefaultLoader struct {
	Client *http.Client
}

// NewDefaultLoader returns a loader backed by http.DefaultClient.
func NewDefaultLoader() *DefaultLoader {
	return &DefaultLoader{Client: http.DefaultClient}
}

func (l *DefaultLoader) Load(ctx context.Context, url string) (int, int, error) {
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return l.loadHTTP(ctx, url)
	}
	return l.loadFile(url)
}

func (l *DefaultLoader) loadHTTP(ctx context.Context, url string) (int, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("build request: %w", err)
	}

	resp, err := l.Client.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}

	cfg, _, err := image.DecodeConfig(resp.Body)
	if err != nil {
		return 0, 0, fmt.Errorf("decode image: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

func (l *DefaultLoader) loadFile(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("decode image: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// StaticLoader returns fixed dimensions without touching the URL. Used by
// viewer sessions that already know image dimensions from the dataset
// registry, and by tests.
type StaticLoader struct {
	Width  int
	Height int
	Err    error
}

func (l StaticLoader) Load(_ context.Context, _ string) (int, int, error) {
	if l.Err != nil {
		return 0, 0, l.Err
	}
	return l.Width, l.Height, nil
}
