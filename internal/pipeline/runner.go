// Package pipeline runs the warehouse refresh as an ordered list of stages.
// Each stage has its own retry policy and per-attempt timeout; the first
// stage that exhausts its retries stops the run. Schedule drives a Runner
// from a cron spec.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrRunInProgress is returned by Run while another run of the same Runner
// has not finished.
var ErrRunInProgress = errors.New("pipeline run already in progress")

// RetryPolicy bounds how often a failed stage is attempted again.
type RetryPolicy struct {
	MaxRetries int
	Delay      time.Duration
}

// Stage is one named step of a run.
type Stage struct {
	Name  string
	Retry RetryPolicy
	// Timeout bounds a single attempt; zero means no limit.
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

// StageReport describes how a stage went.
type StageReport struct {
	Name     string        `json:"name"`
	Attempts int           `json:"attempts"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// Report describes a whole run. Stages after a failed one are absent.
type Report struct {
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Stages     []StageReport `json:"stages"`
}

// Runner executes its stages in order. A Runner never overlaps with itself.
type Runner struct {
	stages []Stage
	log    zerolog.Logger
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error

	mu sync.Mutex
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger used for stage progress.
func WithLogger(l zerolog.Logger) Option { return func(r *Runner) { r.log = l } }

// WithClock overrides the clock used for reports.
func WithClock(now func() time.Time) Option { return func(r *Runner) { r.now = now } }

// NewRunner builds a Runner over stages.
func NewRunner(stages []Stage, opts ...Option) *Runner {
	r := &Runner{
		stages: stages,
		log:    log.Logger,
		now:    time.Now,
		sleep:  sleepCtx,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run executes every stage in order and stops at the first stage that fails
// all its attempts. The returned error names that stage.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	if !r.mu.TryLock() {
		runsTotal.WithLabelValues("skipped").Inc()
		return Report{}, ErrRunInProgress
	}
	defer r.mu.Unlock()

	rep := Report{StartedAt: r.now().UTC()}
	r.log.Info().Int("stages", len(r.stages)).Msg("pipeline run started")

	var runErr error
	for _, st := range r.stages {
		sr := r.runStage(ctx, st)
		rep.Stages = append(rep.Stages, sr)
		if sr.Error != "" {
			runErr = fmt.Errorf("stage %s: %s", st.Name, sr.Error)
			break
		}
	}
	rep.FinishedAt = r.now().UTC()

	if runErr != nil {
		runsTotal.WithLabelValues("failed").Inc()
		r.log.Error().Err(runErr).Dur("elapsed", rep.FinishedAt.Sub(rep.StartedAt)).Msg("pipeline run failed")
		return rep, runErr
	}
	runsTotal.WithLabelValues("succeeded").Inc()
	r.log.Info().Dur("elapsed", rep.FinishedAt.Sub(rep.StartedAt)).Msg("pipeline run finished")
	return rep, nil
}

func (r *Runner) runStage(ctx context.Context, st Stage) StageReport {
	sr := StageReport{Name: st.Name}
	start := r.now()
	defer func() { sr.Duration = r.now().Sub(start) }()

	retries := max(st.Retry.MaxRetries, 0)
	var err error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			r.log.Warn().Str("stage", st.Name).Int("attempt", attempt+1).Dur("delay", st.Retry.Delay).Err(err).Msg("retrying stage")
			if serr := r.sleep(ctx, st.Retry.Delay); serr != nil {
				err = serr
				break
			}
		}
		sr.Attempts++
		err = r.attempt(ctx, st)
		if err == nil {
			stageAttempts.WithLabelValues(st.Name, "ok").Inc()
			r.log.Info().Str("stage", st.Name).Int("attempts", sr.Attempts).Msg("stage done")
			return sr
		}
		stageAttempts.WithLabelValues(st.Name, "error").Inc()
		if ctx.Err() != nil {
			break
		}
	}
	sr.Error = err.Error()
	return sr
}

// attempt runs st once under its timeout. A panicking stage fails the
// attempt instead of the process.
func (r *Runner) attempt(ctx context.Context, st Stage) (err error) {
	if st.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, st.Timeout)
		defer cancel()
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return st.Run(ctx)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
