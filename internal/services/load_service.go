// Package services – LoadService
//
// LoadService runs lake loads on behalf of the CLI, the HTTP API and the
// scheduler, and records each run in the load_runs table. A run requested
// with an idempotency key is executed at most once while the key is live;
// retries receive the recorded run instead of loading again.
package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/telegram-warehouse/internal/domain"
	"github.com/tbourn/telegram-warehouse/internal/ingest"
	"github.com/tbourn/telegram-warehouse/internal/lake"
	"github.com/tbourn/telegram-warehouse/internal/repo"
)

// LoadRequest names exactly one source: a path, a partition date, or the
// whole lake.
type LoadRequest struct {
	Path           string `json:"path,omitempty"`
	Date           string `json:"date,omitempty"`
	All            bool   `json:"all,omitempty"`
	BatchSize      int    `json:"batch_size,omitempty"`
	IdempotencyKey string `json:"-"`
}

// LoadService executes and records loads.
type LoadService struct {
	DB     *gorm.DB
	Loader *ingest.Loader
	Lake   *lake.Store

	// BatchSize applies when a request does not set one.
	BatchSize int
	// KeyTTL is how long an idempotency key replays its run.
	KeyTTL time.Duration
	// AllowExternalPaths lets Path point outside the lake root. The CLI
	// enables it; the HTTP API does not.
	AllowExternalPaths bool

	Log zerolog.Logger
	Now func() time.Time
}

// NewLoadService constructs a LoadService with a 24h key TTL.
func NewLoadService(db *gorm.DB, loader *ingest.Loader, lk *lake.Store) *LoadService {
	return &LoadService{
		DB:        db,
		Loader:    loader,
		Lake:      lk,
		BatchSize: ingest.DefaultBatchSize,
		KeyTTL:    24 * time.Hour,
		Log:       log.Logger,
		Now:       time.Now,
	}
}

func (s *LoadService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// Resolve maps a request to the filesystem path to load.
func (s *LoadService) Resolve(req LoadRequest) (string, error) {
	n := 0
	for _, set := range []bool{strings.TrimSpace(req.Path) != "", strings.TrimSpace(req.Date) != "", req.All} {
		if set {
			n++
		}
	}
	if n != 1 {
		return "", fmt.Errorf("%w: set exactly one of path, date or all", ErrInvalidLoadRequest)
	}

	switch {
	case req.All:
		return s.Lake.MessagesRoot(), nil
	case req.Date != "":
		d := strings.TrimSpace(req.Date)
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return "", fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidLoadRequest)
		}
		return s.Lake.PartitionDir(d), nil
	}

	p := filepath.Clean(strings.TrimSpace(req.Path))
	if s.AllowExternalPaths {
		return p, nil
	}
	if filepath.IsAbs(p) {
		return "", fmt.Errorf("%w: path must be relative to the lake", ErrInvalidLoadRequest)
	}
	root := s.Lake.Root()
	full := filepath.Join(root, p)
	rel, err := filepath.Rel(root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: path escapes the lake", ErrInvalidLoadRequest)
	}
	return full, nil
}

// Run executes req and returns its recorded run. replayed is true when the
// run was recorded earlier under the same idempotency key and nothing was
// loaded now. A failed load is recorded with status failed and its error is
// returned along with the run.
func (s *LoadService) Run(ctx context.Context, req LoadRequest) (run *domain.LoadRun, replayed bool, err error) {
	path, err := s.Resolve(req)
	if err != nil {
		return nil, false, err
	}
	now := s.now()
	key := strings.TrimSpace(req.IdempotencyKey)

	if key != "" {
		if err := repo.ReleaseExpiredKey(ctx, s.DB, key, now); err != nil {
			return nil, false, err
		}
		prev, err := repo.GetLoadRunByKey(ctx, s.DB, key, now)
		if err == nil {
			return prev, true, nil
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return nil, false, err
		}
	}

	run = &domain.LoadRun{
		ID:        uuid.NewString(),
		Path:      path,
		Status:    domain.LoadRunRunning,
		StartedAt: now,
		ExpiresAt: now.Add(s.KeyTTL),
	}
	if key != "" {
		run.IdempotencyKey = &key
	}
	if err := repo.CreateLoadRun(ctx, s.DB, run); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			// Another request with the same key got there first.
			prev, gerr := repo.GetLoadRunByKey(ctx, s.DB, key, now)
			if gerr == nil {
				return prev, true, nil
			}
		}
		return nil, false, err
	}

	batch := req.BatchSize
	if batch <= 0 {
		batch = s.BatchSize
	}
	logger := s.Log.With().Str("run_id", run.ID).Str("path", path).Logger()
	logger.Info().Int("batch_size", batch).Msg("load started")

	res, loadErr := s.Loader.LoadFromPathDetailed(ctx, path, batch)
	finished := s.now()
	run.Sources = res.Sources
	run.SkippedSources = res.SkippedSources
	run.Received = res.Received
	run.Invalid = res.Invalid
	run.Duplicates = res.Duplicates
	run.Inserted = res.Inserted
	run.FinishedAt = &finished
	run.Status = domain.LoadRunSucceeded
	if loadErr != nil {
		run.Status = domain.LoadRunFailed
		run.Error = loadErr.Error()
	}

	// Record the outcome even when the request context is already done.
	if err := repo.FinishLoadRun(context.WithoutCancel(ctx), s.DB, run); err != nil {
		logger.Error().Err(err).Msg("failed to record load run")
		if loadErr == nil {
			return run, false, err
		}
	}
	if loadErr != nil {
		logger.Error().Err(loadErr).Msg("load failed")
		return run, false, loadErr
	}
	logger.Info().Int("inserted", run.Inserted).Int("duplicates", run.Duplicates).Msg("load finished")
	return run, false, nil
}

// Get returns one recorded run.
func (s *LoadService) Get(ctx context.Context, id string) (*domain.LoadRun, error) {
	run, err := repo.GetLoadRun(ctx, s.DB, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrLoadRunNotFound
	}
	return run, err
}

// List returns the most recent runs first.
func (s *LoadService) List(ctx context.Context, limit int) ([]domain.LoadRun, error) {
	if limit <= 0 {
		limit = 20
	}
	return repo.ListLoadRuns(ctx, s.DB, limit)
}
