package ingest

import (
	"context"
	"fmt"
)

// KeyLookup reports which message ids already exist in the store.
type KeyLookup interface {
	ExistingMessageIDs(ctx context.Context, ids []int64) ([]int64, error)
}

// Resolver answers "which of these keys are already persisted" without
// mutating anything. Races with concurrent writers are closed by the
// conflict-ignoring insert, not here.
type Resolver struct {
	keys KeyLookup
}

// NewResolver returns a Resolver over the given store.
func NewResolver(keys KeyLookup) *Resolver { return &Resolver{keys: keys} }

// ExistingKeys returns the subset of candidates present in the store, in
// candidate order and without repeats. An empty input returns an empty
// result without touching the store. Storage errors are returned as is.
func (r *Resolver) ExistingKeys(ctx context.Context, candidates []int64) ([]int64, error) {
	if len(candidates) == 0 {
		return []int64{}, nil
	}
	uniq := make([]int64, 0, len(candidates))
	seen := make(map[int64]struct{}, len(candidates))
	for _, id := range candidates {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		uniq = append(uniq, id)
	}

	found, err := r.keys.ExistingMessageIDs(ctx, uniq)
	if err != nil {
		return nil, fmt.Errorf("lookup existing message ids: %w", err)
	}
	present := make(map[int64]struct{}, len(found))
	for _, id := range found {
		present[id] = struct{}{}
	}

	out := make([]int64, 0, len(found))
	for _, id := range uniq {
		if _, ok := present[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}
