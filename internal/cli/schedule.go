package cli

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/tbourn/telegram-warehouse/internal/artifact"
	"github.com/tbourn/telegram-warehouse/internal/lake"
	"github.com/tbourn/telegram-warehouse/internal/pipeline"
	"github.com/tbourn/telegram-warehouse/internal/services"
	"github.com/tbourn/telegram-warehouse/internal/sysutil"
)

func newScheduleCmd(a *app) *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the load and detection pipeline on a cron schedule",
		Long: "Each run loads the whole lake, then classifies and stores the detector output at\n" +
			"DETECTIONS_PATH when present, then publishes exports and today's manifest when an\n" +
			"artifact destination is configured. Failed stages are retried per SCHEDULE_*.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runner, err := a.pipeline()
			if err != nil {
				return err
			}
			if once {
				rep, err := runner.Run(cmd.Context())
				if perr := a.printJSON(rep); perr != nil {
					return perr
				}
				return err
			}

			ctx, stop := sysutil.SignalContext(cmd.Context())
			defer stop()
			s, err := pipeline.Schedule(ctx, a.cfg.Schedule.Cron, runner, a.log)
			if err != nil {
				return err
			}
			<-ctx.Done()
			a.log.Info().Msg("stopping scheduler")
			<-s.Stop().Done()
			return nil
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run the pipeline once and exit")
	return cmd
}

// pipeline assembles the scheduled stages: load, detections, publish.
func (a *app) pipeline() (*pipeline.Runner, error) {
	db, err := a.store()
	if err != nil {
		return nil, err
	}
	lk := a.lake()
	if err := lk.EnsureStructure(); err != nil {
		return nil, err
	}

	loads := services.NewLoadService(db, a.loader(db), lk)
	loads.Log = a.log
	loads.BatchSize = a.cfg.Load.BatchSize

	retry := pipeline.RetryPolicy{MaxRetries: a.cfg.Schedule.MaxRetries, Delay: a.cfg.Schedule.RetryDelay}
	timeout := a.cfg.Schedule.StageTimeout

	exports := func(date string) (csv, js string) {
		dir := filepath.Join(lk.ProcessedRoot(), "detections", date)
		return filepath.Join(dir, "detections.csv"), filepath.Join(dir, "detections.json")
	}

	stages := []pipeline.Stage{
		{
			Name: "load", Retry: retry, Timeout: timeout,
			Run: func(ctx context.Context) error {
				_, _, err := loads.Run(ctx, services.LoadRequest{All: true})
				return err
			},
		},
		{
			Name: "detections", Retry: retry, Timeout: timeout,
			Run: func(ctx context.Context) error {
				if _, err := os.Stat(a.cfg.Load.DetectionsPath); errors.Is(err, fs.ErrNotExist) {
					a.log.Info().Str("path", a.cfg.Load.DetectionsPath).Msg("no detector output; skipping")
					return nil
				}
				csv, js := exports(today())
				_, err := a.classify(ctx, classifyOptions{csvOut: csv, jsonOut: js, persist: true})
				return err
			},
		},
	}
	if a.cfg.Artifact.Enabled() {
		stages = append(stages, pipeline.Stage{
			Name: "publish", Retry: retry, Timeout: timeout,
			Run: func(ctx context.Context) error {
				sink, err := a.sink(ctx)
				if err != nil {
					return err
				}
				date := today()
				csv, js := exports(date)
				var files []artifact.File
				for _, f := range []artifact.File{
					{Key: artifact.DetectionsKey(date, filepath.Base(csv)), Path: csv},
					{Key: artifact.DetectionsKey(date, filepath.Base(js)), Path: js},
					{Key: artifact.ManifestKey(date), Path: filepath.Join(lk.PartitionDir(date), lake.ManifestName)},
				} {
					if _, err := os.Stat(f.Path); err == nil {
						files = append(files, f)
					}
				}
				return artifact.UploadAll(ctx, sink, files, a.log)
			},
		})
	}
	return pipeline.NewRunner(stages, pipeline.WithLogger(a.log)), nil
}

func today() string { return time.Now().UTC().Format("2006-01-02") }
