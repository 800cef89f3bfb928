// Package artifact publishes pipeline outputs (detection exports, lake
// manifests) to a Sink: a local directory or an S3-compatible bucket.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrInvalidKey is returned for empty keys or keys that escape the sink.
var ErrInvalidKey = errors.New("invalid artifact key")

// Sink stores artifacts under slash-separated keys.
type Sink interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
}

// Dir is a Sink writing below a local directory.
type Dir struct {
	Root string
}

// Put writes r to Root/key, replacing any existing file atomically.
func (d Dir) Put(ctx context.Context, key string, r io.Reader, _ int64, _ string) error {
	clean, err := cleanKey(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	dst := filepath.Join(d.Root, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".artifact-*")
	if err != nil {
		return fmt.Errorf("create artifact: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return os.Rename(tmp.Name(), dst)
}

// cleanKey normalizes key and rejects keys leaving the sink root.
func cleanKey(key string) (string, error) {
	k := strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	if k == "" || strings.HasPrefix(k, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	k = path.Clean(k)
	if k == "." || k == ".." || strings.HasPrefix(k, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return k, nil
}

// DetectionsKey is where a detection export for date is stored.
func DetectionsKey(date, name string) string {
	return path.Join("detections", date, name)
}

// ManifestKey is where the lake manifest of date is stored.
func ManifestKey(date string) string {
	return path.Join("lake", date, "_manifest.json")
}
