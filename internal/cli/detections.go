package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/tbourn/telegram-warehouse/internal/artifact"
	"github.com/tbourn/telegram-warehouse/internal/domain"
	"github.com/tbourn/telegram-warehouse/internal/services"
	"github.com/tbourn/telegram-warehouse/internal/vision"
)

type classifyOptions struct {
	input   string
	csvOut  string
	jsonOut string
	persist bool
	upload  bool
	date    string
}

func newDetectionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detections",
		Short: "Process object detector output",
	}

	var o classifyOptions
	classify := &cobra.Command{
		Use:   "classify",
		Short: "Classify detector results, export them and optionally store them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rep, err := a.classify(cmd.Context(), o)
			if err != nil {
				return err
			}
			return a.printJSON(rep)
		},
	}
	f := classify.Flags()
	f.StringVar(&o.input, "input", "", "detector output file (default DETECTIONS_PATH)")
	f.StringVar(&o.csvOut, "csv", "", "write the CSV export to this file")
	f.StringVar(&o.jsonOut, "json", "", "write the JSON export to this file")
	f.BoolVar(&o.persist, "persist", false, "replace the stored detections of every image in the input")
	f.BoolVar(&o.upload, "upload", false, "upload the exports to the artifact store")
	f.StringVar(&o.date, "date", "", "date used in artifact keys (default today, UTC)")

	cmd.AddCommand(classify)
	return cmd
}

// classify runs the detection workflow shared by the CLI and the scheduler.
func (a *app) classify(ctx context.Context, o classifyOptions) (*services.DetectionReport, error) {
	input := o.input
	if input == "" {
		input = a.cfg.Load.DetectionsPath
	}
	results, err := vision.ReadResultsFile(input)
	if err != nil {
		return nil, err
	}

	svc := services.NewDetectionService(nil)
	svc.Log = a.log
	if o.persist {
		if svc.DB, err = a.store(); err != nil {
			return nil, err
		}
	}
	rep, err := svc.Process(ctx, results, o.persist)
	if err != nil {
		return nil, err
	}

	var exported []artifact.File
	date := o.date
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}
	if o.csvOut != "" {
		if err := writeExport(o.csvOut, results, svc.ExportCSV); err != nil {
			return nil, err
		}
		exported = append(exported, artifact.File{Key: artifact.DetectionsKey(date, filepath.Base(o.csvOut)), Path: o.csvOut})
	}
	if o.jsonOut != "" {
		if err := writeExport(o.jsonOut, results, svc.ExportJSON); err != nil {
			return nil, err
		}
		exported = append(exported, artifact.File{Key: artifact.DetectionsKey(date, filepath.Base(o.jsonOut)), Path: o.jsonOut})
	}

	if o.upload {
		if len(exported) == 0 {
			return nil, fmt.Errorf("--upload needs --csv or --json")
		}
		sink, err := a.sink(ctx)
		if err != nil {
			return nil, err
		}
		if err := artifact.UploadAll(ctx, sink, exported, a.log); err != nil {
			return nil, err
		}
	}
	return rep, nil
}

func writeExport(path string, results []domain.ImageDetections, export func(io.Writer, []domain.ImageDetections) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export: %w", err)
	}
	if err := export(f, results); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
