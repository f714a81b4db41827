package digest

import (
	"context"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"

	"golang.org/x/sync/errgroup"
)

// File streams path into h and returns:
//   - the hex-encoded digest
//   - the file size in bytes
//
// h is reset first.
func File(h hash.Hash, path string) (sum string, size int64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer func() { _ = f.Close() }()

	h.Reset()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// Result is the checksum of one file.
type Result struct {
	Path string
	Sum  string
	Size int64
}

// Files checksums paths concurrently with at most workers goroutines
// (unbounded when workers <= 0). Each file gets its own hash from newHash.
// Results keep the order of paths.
func Files(ctx context.Context, newHash func() (hash.Hash, error), paths []string, workers int) ([]Result, error) {
	out := make([]Result, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			h, err := newHash()
			if err != nil {
				return err
			}
			sum, size, err := File(h, p)
			if err != nil {
				return fmt.Errorf("checksum %s: %w", p, err)
			}
			out[i] = Result{Path: p, Sum: sum, Size: size}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Manifest renders results in the "<sum>  <path>" layout of sha256sum(1).
func Manifest(results []Result) []byte {
	var b []byte
	for _, r := range results {
		b = append(b, r.Sum...)
		b = append(b, ' ', ' ')
		b = append(b, r.Path...)
		b = append(b, '\n')
	}
	return b
}
