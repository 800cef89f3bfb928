package lake

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// verifyWorkers bounds the number of channel files decoded at once.
const verifyWorkers = 4

// ChannelDrift is one channel whose manifest count differs from its file.
// Declared is -1 when the channel is absent from the manifest and Actual is
// -1 when the channel file is absent from the partition.
type ChannelDrift struct {
	Channel  string `json:"channel"`
	Declared int    `json:"declared"`
	Actual   int    `json:"actual"`
}

// ManifestReport compares a partition's manifest with the records on disk.
type ManifestReport struct {
	Date          string         `json:"date"`
	DeclaredTotal int            `json:"declared_total"`
	ActualTotal   int            `json:"actual_total"`
	Drift         []ChannelDrift `json:"drift"`
	Unreadable    []string       `json:"unreadable"`
}

// OK reports whether manifest and files agree.
func (r *ManifestReport) OK() bool {
	return len(r.Drift) == 0 && len(r.Unreadable) == 0 && r.DeclaredTotal == r.ActualTotal
}

// VerifyManifest recounts the records of every channel file in the partition
// and reports where the manifest diverges. Files that cannot be decoded are
// listed in Unreadable rather than failing the whole check.
func (s *Store) VerifyManifest(ctx context.Context, date string) (*ManifestReport, error) {
	m, err := s.ReadManifest(date)
	if err != nil {
		return nil, err
	}
	dir := s.PartitionDir(date)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read partition %s: %w", date, err)
	}

	var (
		mu         sync.Mutex
		actual     = map[string]int{}
		unreadable []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(verifyWorkers)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, "_") || filepath.Ext(name) != ".json" {
			continue
		}
		channel := strings.TrimSuffix(name, ".json")
		path := filepath.Join(dir, name)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			b, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			n, cerr := CountRecords(b)
			mu.Lock()
			defer mu.Unlock()
			if cerr != nil {
				s.log.Warn().Err(cerr).Str("path", s.rel(path)).Msg("unreadable channel file")
				unreadable = append(unreadable, name)
				return nil
			}
			actual[channel] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rep := &ManifestReport{Date: date, DeclaredTotal: m.TotalMessages, Drift: []ChannelDrift{}, Unreadable: unreadable}
	if rep.Unreadable == nil {
		rep.Unreadable = []string{}
	}
	sort.Strings(rep.Unreadable)

	seen := map[string]struct{}{}
	for ch, declared := range m.Channels {
		seen[ch] = struct{}{}
		got, ok := actual[ch]
		if !ok {
			rep.Drift = append(rep.Drift, ChannelDrift{Channel: ch, Declared: declared, Actual: -1})
			continue
		}
		if got != declared {
			rep.Drift = append(rep.Drift, ChannelDrift{Channel: ch, Declared: declared, Actual: got})
		}
	}
	for ch, got := range actual {
		rep.ActualTotal += got
		if _, ok := seen[ch]; !ok {
			rep.Drift = append(rep.Drift, ChannelDrift{Channel: ch, Declared: -1, Actual: got})
		}
	}
	sort.Slice(rep.Drift, func(i, j int) bool { return rep.Drift[i].Channel < rep.Drift[j].Channel })
	return rep, nil
}

// CountRecords returns 1 for a JSON object and the element count for a JSON
// array. Any other document is an error.
func CountRecords(b []byte) (int, error) {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 {
		return 0, fmt.Errorf("empty document")
	}
	switch trimmed[0] {
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return 0, err
		}
		return 1, nil
	case '[':
		var arr []json.RawMessage
		if err := json.Unmarshal(trimmed, &arr); err != nil {
			return 0, err
		}
		return len(arr), nil
	default:
		return 0, fmt.Errorf("unexpected top-level JSON value")
	}
}
