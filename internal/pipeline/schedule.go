package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler triggers a Runner on a cron spec.
type Scheduler struct {
	cron *cron.Cron
	id   cron.EntryID
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct{ l zerolog.Logger }

func (c cronLogger) Info(msg string, kv ...any) {
	c.l.Debug().Fields(kv).Msg("cron: " + msg)
}

func (c cronLogger) Error(err error, msg string, kv ...any) {
	c.l.Error().Err(err).Fields(kv).Msg("cron: " + msg)
}

// Schedule starts running r on spec until ctx is done or Stop is called.
// Ticks that fire while a run is still going are skipped.
func Schedule(ctx context.Context, spec string, r *Runner, l zerolog.Logger) (*Scheduler, error) {
	cl := cronLogger{l}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	id, err := c.AddFunc(spec, func() {
		if _, err := r.Run(ctx); err != nil {
			l.Error().Err(err).Msg("scheduled pipeline run failed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule %q: %w", spec, err)
	}
	c.Start()
	l.Info().Str("spec", spec).Time("next", c.Entry(id).Next).Msg("pipeline scheduled")
	return &Scheduler{cron: c, id: id}, nil
}

// Next reports the next activation time.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.id).Next
}

// Stop stops the scheduler and returns a context done once the running job,
// if any, has completed.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
