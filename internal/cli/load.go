package cli

import (
	"github.com/spf13/cobra"

	"github.com/tbourn/telegram-warehouse/internal/services"
)

func newLoadCmd(a *app) *cobra.Command {
	var (
		req       services.LoadRequest
		showStats bool
	)
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load lake files into the raw message table",
		Long: "Load one file or directory (--path), one partition (--date) or the whole lake (--all).\n" +
			"Invalid records are skipped and messages already in the warehouse are not inserted again.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.store()
			if err != nil {
				return err
			}
			svc := services.NewLoadService(db, a.loader(db), a.lake())
			svc.Log = a.log
			svc.BatchSize = a.cfg.Load.BatchSize
			svc.KeyTTL = a.cfg.IdempotencyTTL
			svc.AllowExternalPaths = true

			run, replayed, err := svc.Run(cmd.Context(), req)
			if run != nil {
				if perr := a.printJSON(run); perr != nil {
					return perr
				}
			}
			if err != nil {
				return err
			}
			if replayed {
				a.log.Info().Str("run_id", run.ID).Msg("idempotency key matched an earlier run; nothing loaded")
			}
			if showStats {
				st, err := services.NewReportService(db).MessageStats(cmd.Context())
				if err != nil {
					return err
				}
				return a.printJSON(st)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Path, "path", "", "file or directory to load")
	f.StringVar(&req.Date, "date", "", "partition date to load (YYYY-MM-DD)")
	f.BoolVar(&req.All, "all", false, "load every partition")
	f.IntVar(&req.BatchSize, "batch-size", 0, "records per insert batch (default LOAD_BATCH_SIZE)")
	f.StringVar(&req.IdempotencyKey, "idempotency-key", "", "replay the recorded run for this key instead of loading again")
	f.BoolVar(&showStats, "show-stats", false, "print table statistics after loading")
	cmd.MarkFlagsMutuallyExclusive("path", "date", "all")
	cmd.MarkFlagsOneRequired("path", "date", "all")
	return cmd
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print raw message table statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.store()
			if err != nil {
				return err
			}
			st, err := services.NewReportService(db).MessageStats(cmd.Context())
			if err != nil {
				return err
			}
			return a.printJSON(st)
		},
	}
}
