package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

type writerPublisher struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter publishes bodies to w, one after another.
func NewWriter(w io.Writer) Publisher {
	return &writerPublisher{w: w}
}

func (p *writerPublisher) Name() string { return "stdout" }

func (p *writerPublisher) Publish(ctx context.Context, key string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := p.w.Write(body)
	return err
}

type dirPublisher struct {
	dir string
}

// NewDir publishes each key as a file below dir. dir must exist.
func NewDir(dir string) (Publisher, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("file publisher: directory required")
	}
	if st, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("stat %q: %w", dir, err)
	} else if !st.IsDir() {
		return nil, fmt.Errorf("%q is not a directory", dir)
	}
	return &dirPublisher{dir: filepath.Clean(dir)}, nil
}

func (p *dirPublisher) Name() string { return "file" }

func (p *dirPublisher) Publish(ctx context.Context, key string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rel := filepath.Clean(filepath.FromSlash(normalizeKey(key)))
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("file publisher: invalid key %q", key)
	}
	target := filepath.Join(p.dir, rel)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	// Temp file + rename replaces the target atomically.
	tmp, err := os.CreateTemp(filepath.Dir(target), ".publish-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return err
	}

	log.Debug().Str("action", "file_publish").Str("path", target).Int("bytes", len(body)).Msg("published")
	return nil
}

func normalizeKey(k string) string {
	return strings.TrimPrefix(k, "/")
}
