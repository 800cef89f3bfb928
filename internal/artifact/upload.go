package artifact

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// File is a local file to publish under Key.
type File struct {
	Key  string
	Path string
}

// maxParallelUploads bounds concurrent Put calls.
const maxParallelUploads = 4

// UploadAll publishes files to sink concurrently. The first failure cancels
// the remaining uploads and is returned.
func UploadAll(ctx context.Context, sink Sink, files []File, log zerolog.Logger) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelUploads)
	for _, f := range files {
		g.Go(func() error {
			if err := upload(ctx, sink, f); err != nil {
				return err
			}
			log.Info().Str("key", f.Key).Str("path", f.Path).Msg("artifact uploaded")
			return nil
		})
	}
	return g.Wait()
}

func upload(ctx context.Context, sink Sink, f File) error {
	fh, err := os.Open(f.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", f.Path, err)
	}
	defer fh.Close()
	st, err := fh.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", f.Path, err)
	}
	if err := sink.Put(ctx, f.Key, fh, st.Size(), ContentType(f.Path)); err != nil {
		return fmt.Errorf("upload %s: %w", f.Key, err)
	}
	return nil
}

// ContentType guesses the MIME type of name from its extension.
func ContentType(name string) string {
	switch ext := filepath.Ext(name); ext {
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	default:
		if t := mime.TypeByExtension(ext); t != "" {
			return t
		}
		return "application/octet-stream"
	}
}
