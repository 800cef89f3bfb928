package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/telegram-warehouse/internal/domain"
	"github.com/tbourn/telegram-warehouse/internal/lake"
)

// DefaultBatchSize is used when a non-positive batch size is requested.
const DefaultBatchSize = 1000

var (
	// ErrNotFound is returned when the load path does not exist.
	ErrNotFound = errors.New("load path not found")
	// ErrInvalidPath is returned when the load path is neither a file nor a directory.
	ErrInvalidPath = errors.New("load path is neither a file nor a directory")
)

// Store is the persistence the loader needs. InsertMessages must ignore rows
// whose message_id already exists and report the rows actually written.
type Store interface {
	KeyLookup
	InsertMessages(ctx context.Context, msgs []domain.Message) (int64, error)
	MessageTableStats(ctx context.Context) (domain.TableStats, error)
}

// LoadResult is the accounting of one load. Received counts every array
// element read from a source, including elements that are not objects.
type LoadResult struct {
	Sources        int `json:"sources"`
	SkippedSources int `json:"skipped_sources"`
	Received       int `json:"received"`
	Invalid        int `json:"invalid"`
	Duplicates     int `json:"duplicates"`
	Inserted       int `json:"inserted"`
}

func (r *LoadResult) add(b LoadResult) {
	r.Received += b.Received
	r.Invalid += b.Invalid
	r.Duplicates += b.Duplicates
	r.Inserted += b.Inserted
}

// Loader ingests lake records into the store.
type Loader struct {
	store    Store
	resolver *Resolver
	log      zerolog.Logger
	now      func() time.Time
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLogger sets the loader's logger.
func WithLogger(l zerolog.Logger) LoaderOption { return func(ld *Loader) { ld.log = l } }

// WithClock sets the clock used to default scraped_at.
func WithClock(now func() time.Time) LoaderOption {
	return func(ld *Loader) {
		if now != nil {
			ld.now = now
		}
	}
}

// NewLoader returns a Loader writing to store. The store is owned by the
// caller; the loader keeps no other state between calls.
func NewLoader(store Store, opts ...LoaderOption) *Loader {
	ld := &Loader{store: store, resolver: NewResolver(store), log: log.Logger, now: time.Now}
	for _, o := range opts {
		o(ld)
	}
	return ld
}

// LoadBatch validates, deduplicates and inserts one batch, returning the
// number of records that were new. Invalid records are dropped and counted.
// A storage error fails the whole batch.
func (l *Loader) LoadBatch(ctx context.Context, records []Record) (int, error) {
	res, err := l.loadBatch(ctx, records)
	return res.Inserted, err
}

func (l *Loader) loadBatch(ctx context.Context, records []Record) (LoadResult, error) {
	res := LoadResult{Received: len(records)}
	now := l.now()

	// received -> validated
	valid := make([]domain.Message, 0, len(records))
	firstSeen := make(map[int64]struct{}, len(records))
	for _, rec := range records {
		m, err := toMessage(rec, now)
		if err != nil {
			res.Invalid++
			l.log.Warn().Err(err).Msg("skipping invalid record")
			continue
		}
		if _, dup := firstSeen[m.MessageID]; dup {
			res.Duplicates++
			continue
		}
		firstSeen[m.MessageID] = struct{}{}
		valid = append(valid, m)
	}
	recordsTotal.WithLabelValues("invalid").Add(float64(res.Invalid))
	if len(valid) == 0 {
		recordsTotal.WithLabelValues("duplicate").Add(float64(res.Duplicates))
		l.log.Warn().Int("received", res.Received).Msg("no valid records in batch")
		return res, nil
	}

	// validated -> deduplicated
	ids := make([]int64, len(valid))
	for i, m := range valid {
		ids[i] = m.MessageID
	}
	// A failed lookup degrades to an empty set; the insert ignores conflicts.
	existing, lookupErr := l.resolver.ExistingKeys(ctx, ids)
	if lookupErr != nil {
		l.log.Error().Err(lookupErr).Int("records", len(ids)).Msg("duplicate lookup failed; relying on insert conflict handling")
		existing = nil
	}
	exists := make(map[int64]struct{}, len(existing))
	for _, id := range existing {
		exists[id] = struct{}{}
	}
	fresh := valid[:0]
	for _, m := range valid {
		if _, ok := exists[m.MessageID]; ok {
			res.Duplicates++
			continue
		}
		fresh = append(fresh, m)
	}
	recordsTotal.WithLabelValues("duplicate").Add(float64(res.Duplicates))
	if len(fresh) == 0 {
		l.log.Info().Int("duplicates", res.Duplicates).Msg("all records already exist")
		return res, nil
	}

	// deduplicated -> persisted
	affected, err := l.store.InsertMessages(ctx, fresh)
	if err != nil {
		return res, fmt.Errorf("insert messages: %w", err)
	}
	res.Inserted = len(fresh)
	if affected != int64(len(fresh)) {
		l.log.Debug().Int64("rows_affected", affected).Int("new", len(fresh)).Msg("insert count differs from new records")
		if lookupErr != nil {
			// Without the lookup only the store knows which rows were new.
			res.Inserted = int(max(0, min(affected, int64(len(fresh)))))
			res.Duplicates += len(fresh) - res.Inserted
			recordsTotal.WithLabelValues("duplicate").Add(float64(len(fresh) - res.Inserted))
		}
	}

	// persisted -> reported
	recordsTotal.WithLabelValues("inserted").Add(float64(res.Inserted))
	l.log.Info().
		Int("inserted", res.Inserted).
		Int("duplicates", res.Duplicates).
		Int("invalid", res.Invalid).
		Msg("batch loaded")
	return res, nil
}

// LoadFromPath loads a file or a directory tree and returns the number of
// newly inserted records.
func (l *Loader) LoadFromPath(ctx context.Context, path string, batchSize int) (int, error) {
	res, err := l.LoadFromPathDetailed(ctx, path, batchSize)
	return res.Inserted, err
}

// LoadFromPathDetailed resolves path to its JSON sources, chunks the combined
// record stream into batches of batchSize and loads each batch.
//
// A file path is loaded whatever its extension. A directory is searched
// recursively for *.json files in lexical order; names starting with "_"
// (manifests) are skipped. Sources that cannot be parsed are logged and
// skipped. A storage error stops the load and is returned along with the
// accounting up to that point.
func (l *Loader) LoadFromPathDetailed(ctx context.Context, path string, batchSize int) (LoadResult, error) {
	var res LoadResult
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	sources, err := discover(path)
	if err != nil {
		return res, err
	}
	if len(sources) == 0 {
		l.log.Warn().Str("path", path).Msg("no JSON sources found")
		return res, nil
	}

	pending := make([]Record, 0, batchSize)
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		b, err := l.loadBatch(ctx, pending)
		res.add(b)
		pending = pending[:0]
		return err
	}

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		recs, invalid, err := readSource(src)
		if err != nil {
			res.SkippedSources++
			sourcesTotal.WithLabelValues("skipped").Inc()
			l.log.Error().Err(err).Str("source", src).Msg("skipping unreadable source")
			continue
		}
		res.Sources++
		sourcesTotal.WithLabelValues("loaded").Inc()
		res.Received += invalid
		res.Invalid += invalid
		recordsTotal.WithLabelValues("invalid").Add(float64(invalid))
		l.log.Debug().Str("source", src).Int("records", len(recs)).Msg("read source")

		for _, rec := range recs {
			pending = append(pending, rec)
			if len(pending) == batchSize {
				if err := flush(); err != nil {
					return res, err
				}
			}
		}
	}
	if err := flush(); err != nil {
		return res, err
	}

	l.log.Info().
		Str("path", path).
		Int("sources", res.Sources).
		Int("skipped_sources", res.SkippedSources).
		Int("inserted", res.Inserted).
		Msg("load finished")
	return res, nil
}

// LoadPartition loads one date partition of the lake.
func (l *Loader) LoadPartition(ctx context.Context, lk *lake.Store, date string, batchSize int) (LoadResult, error) {
	return l.LoadFromPathDetailed(ctx, lk.PartitionDir(date), batchSize)
}

// LoadAll loads every partition of the lake.
func (l *Loader) LoadAll(ctx context.Context, lk *lake.Store, batchSize int) (LoadResult, error) {
	return l.LoadFromPathDetailed(ctx, lk.MessagesRoot(), batchSize)
}

// TableStats returns summary figures of the message table. Storage errors are
// logged and yield a zero value; the result feeds reporting only.
func (l *Loader) TableStats(ctx context.Context) domain.TableStats {
	st, err := l.store.MessageTableStats(ctx)
	if err != nil {
		l.log.Error().Err(err).Msg("table stats unavailable")
		return domain.TableStats{}
	}
	return st
}

func discover(path string) ([]string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if fi.Mode().IsRegular() {
		return []string{path}, nil
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPath, path)
	}

	var out []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if p != path && strings.HasPrefix(name, "_") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, "_") || strings.ToLower(filepath.Ext(name)) != ".json" {
			return nil
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", path, err)
	}
	sort.Strings(out)
	return out, nil
}

// readSource decodes one JSON document holding a record object or an array of
// them. Array elements that are not objects are counted as invalid.
func readSource(path string) ([]Record, int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, 0, fmt.Errorf("parse %s: %w", path, err)
	}
	if dec.More() {
		return nil, 0, fmt.Errorf("parse %s: trailing data after JSON document", path)
	}
	switch v := doc.(type) {
	case map[string]any:
		return []Record{v}, 0, nil
	case []any:
		recs := make([]Record, 0, len(v))
		invalid := 0
		for _, el := range v {
			obj, ok := el.(map[string]any)
			if !ok {
				invalid++
				continue
			}
			recs = append(recs, obj)
		}
		return recs, invalid, nil
	default:
		return nil, 0, fmt.Errorf("parse %s: top-level value must be an object or an array", path)
	}
}
