// Package lake implements the partitioned file-based landing zone that sits
// between the scraper and the warehouse loader.
//
// Layout under the root directory:
//
//	raw/messages/<YYYY-MM-DD>/<channel>.json
//	raw/messages/<YYYY-MM-DD>/_manifest.json
//	raw/images/<channel>/<message_id>.<ext>
//	processed/
//
// Directories are created lazily on first write. Every file is written
// atomically (temp file + rename), so readers never observe a partial batch.
package lake

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/telegram-warehouse/internal/domain"
)

// ManifestName is the fixed manifest file name inside a date partition.
// Entries starting with "_" are never treated as data.
const ManifestName = "_manifest.json"

const dateLayout = "2006-01-02"

var (
	// ErrValidation is returned when a write request is malformed.
	ErrValidation = errors.New("lake: validation failed")
	// ErrMissingDirectory is returned by ValidateStructure.
	ErrMissingDirectory = errors.New("lake: required directory missing")
	// ErrInvalidDate is returned for partition keys that are not YYYY-MM-DD.
	ErrInvalidDate = errors.New("lake: invalid partition date")
)

// Store is the lake rooted at one directory.
type Store struct {
	root string
	log  zerolog.Logger
	now  func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for write events.
func WithLogger(l zerolog.Logger) Option { return func(s *Store) { s.log = l } }

// WithClock overrides the clock used for default dates and manifest timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New returns a Store rooted at root. Nothing is created on disk until
// EnsureStructure or the first write.
func New(root string, opts ...Option) *Store {
	s := &Store{root: root, log: log.Logger, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) Root() string          { return s.root }
func (s *Store) MessagesRoot() string  { return filepath.Join(s.root, "raw", "messages") }
func (s *Store) ImagesRoot() string    { return filepath.Join(s.root, "raw", "images") }
func (s *Store) ProcessedRoot() string { return filepath.Join(s.root, "processed") }

// PartitionDir returns the directory of one date partition. The date is not
// validated here.
func (s *Store) PartitionDir(date string) string {
	return filepath.Join(s.MessagesRoot(), date)
}

// EnsureStructure creates the raw/processed skeleton. Existing directories are
// left untouched.
func (s *Store) EnsureStructure() error {
	for _, dir := range []string{s.MessagesRoot(), s.ImagesRoot(), s.ProcessedRoot()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure %s: %w", dir, err)
		}
	}
	s.log.Debug().Str("root", s.root).Msg("lake structure ensured")
	return nil
}

// ValidateStructure reports ErrMissingDirectory when either the messages root
// or the images root is absent. It is an operator precondition check; the
// loader does not call it.
func (s *Store) ValidateStructure() error {
	for _, dir := range []string{s.MessagesRoot(), s.ImagesRoot()} {
		fi, err := os.Stat(dir)
		if err != nil || !fi.IsDir() {
			return fmt.Errorf("%w: %s", ErrMissingDirectory, dir)
		}
	}
	return nil
}

// WriteBatch serializes records to raw/messages/<date>/<channel>.json,
// replacing any earlier file for the same channel and date. An empty date
// means today. Empty record lists are rejected with ErrValidation.
func (s *Store) WriteBatch(records []domain.RawRecord, channel, date string) (string, error) {
	if len(records) == 0 {
		return "", fmt.Errorf("%w: records list cannot be empty", ErrValidation)
	}
	if err := checkChannel(channel); err != nil {
		return "", err
	}
	date, err := s.resolveDate(date)
	if err != nil {
		return "", err
	}
	b, err := encodeJSON(records)
	if err != nil {
		return "", fmt.Errorf("encode batch: %w", err)
	}
	path := filepath.Join(s.PartitionDir(date), channel+".json")
	if err := writeFileAtomic(path, b); err != nil {
		return "", err
	}
	s.log.Info().Str("path", s.rel(path)).Int("records", len(records)).Msg("wrote batch")
	return path, nil
}

// WriteManifest writes the partition summary. A second call for the same
// date replaces the previous manifest; channel counts are never merged.
func (s *Store) WriteManifest(date string, channelCounts map[string]int, extra map[string]any) (string, error) {
	if _, err := parseDate(date); err != nil {
		return "", err
	}
	counts := make(map[string]int, len(channelCounts))
	total := 0
	for ch, n := range channelCounts {
		counts[ch] = n
		total += n
	}
	m := domain.Manifest{
		Date:          date,
		Timestamp:     s.now().UTC(),
		Channels:      counts,
		TotalMessages: total,
		Extra:         extra,
	}
	b, err := encodeJSON(m)
	if err != nil {
		return "", fmt.Errorf("encode manifest: %w", err)
	}
	path := filepath.Join(s.PartitionDir(date), ManifestName)
	if err := writeFileAtomic(path, b); err != nil {
		return "", err
	}
	s.log.Info().Str("path", s.rel(path)).Int("total_messages", total).Msg("wrote manifest")
	return path, nil
}

// ReadManifest loads the manifest of one partition. A missing manifest yields
// an error matching fs.ErrNotExist.
func (s *Store) ReadManifest(date string) (*domain.Manifest, error) {
	if _, err := parseDate(date); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(filepath.Join(s.PartitionDir(date), ManifestName))
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", date, err)
	}
	var m domain.Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", date, err)
	}
	return &m, nil
}

// ListPartitionDates returns the partition directory names in ascending
// order. Entries starting with "_" and plain files are skipped. A missing
// messages root yields an empty list.
func (s *Store) ListPartitionDates() ([]string, error) {
	entries, err := os.ReadDir(s.MessagesRoot())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("list partitions: %w", err)
	}
	dates := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), "_") {
			continue
		}
		dates = append(dates, e.Name())
	}
	sort.Strings(dates)
	return dates, nil
}

func (s *Store) resolveDate(date string) (string, error) {
	if date == "" {
		return s.now().Format(dateLayout), nil
	}
	if _, err := parseDate(date); err != nil {
		return "", err
	}
	return date, nil
}

func (s *Store) rel(path string) string {
	if r, err := filepath.Rel(s.root, path); err == nil {
		return r
	}
	return path
}

func parseDate(date string) (time.Time, error) {
	t, err := time.Parse(dateLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return t, nil
}

// checkChannel rejects names that would escape the partition directory or
// collide with the reserved "_" prefix.
func checkChannel(channel string) error {
	switch {
	case strings.TrimSpace(channel) == "":
		return fmt.Errorf("%w: channel name is required", ErrValidation)
	case channel == "." || channel == "..",
		strings.ContainsAny(channel, `/\`),
		strings.HasPrefix(channel, "_"):
		return fmt.Errorf("%w: invalid channel name %q", ErrValidation, channel)
	}
	return nil
}

func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeFileAtomic writes data next to path and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}
