package lake

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/tbourn/telegram-warehouse/internal/domain"
)

var imageExts = map[string]struct{}{".jpg": {}, ".jpeg": {}, ".png": {}}

// SaveImage writes one media binary to raw/images/<channel>/<message_id>.<ext>.
// An empty extension defaults to jpg.
func (s *Store) SaveImage(data []byte, channel string, messageID int64, ext string) (string, error) {
	if err := checkChannel(channel); err != nil {
		return "", err
	}
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if ext == "" {
		ext = "jpg"
	}
	if strings.ContainsAny(ext, `/\`) {
		return "", fmt.Errorf("%w: invalid extension %q", ErrValidation, ext)
	}
	path := filepath.Join(s.ImagesRoot(), channel, strconv.FormatInt(messageID, 10)+"."+ext)
	if err := writeFileAtomic(path, data); err != nil {
		return "", err
	}
	s.log.Debug().Str("path", s.rel(path)).Msg("saved image")
	return path, nil
}

// FindImages lists every jpg/jpeg/png under the images root, sorted by path.
// Channel and message id come from the layout SaveImage writes; files whose
// stem is not an integer are skipped.
func (s *Store) FindImages() ([]domain.ImageRef, error) {
	root := s.ImagesRoot()
	refs := []domain.ImageRef{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == root {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if _, ok := imageExts[ext]; !ok {
			return nil
		}
		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		id, perr := strconv.ParseInt(stem, 10, 64)
		if perr != nil {
			s.log.Debug().Str("path", s.rel(path)).Msg("skipping image with non-numeric name")
			return nil
		}
		refs = append(refs, domain.ImageRef{
			Path:        path,
			ChannelName: filepath.Base(filepath.Dir(path)),
			MessageID:   id,
		})
		return nil
	})
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("find images: %w", err)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Path < refs[j].Path })
	return refs, nil
}
