package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var errManifestDrift = errors.New("manifest does not match partition contents")

func newLakeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lake",
		Short: "Inspect and maintain the data lake",
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create the lake directory layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lk := a.lake()
			if err := lk.EnsureStructure(); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "initialized data lake at %s\n", lk.Root())
			return nil
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Check that the lake directory layout exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.lake().ValidateStructure(); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "lake structure ok")
			return nil
		},
	}

	datesCmd := &cobra.Command{
		Use:   "dates",
		Short: "List partition dates, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dates, err := a.lake().ListPartitionDates()
			if err != nil {
				return err
			}
			for _, d := range dates {
				fmt.Fprintln(a.out, d)
			}
			return nil
		},
	}

	imagesCmd := &cobra.Command{
		Use:   "images",
		Short: "List downloaded images with their channel and message id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			refs, err := a.lake().FindImages()
			if err != nil {
				return err
			}
			return a.printJSON(refs)
		},
	}

	var (
		channels map[string]int
		extra    map[string]string
	)
	manifestCmd := &cobra.Command{
		Use:   "manifest <date>",
		Short: "Write the manifest of a partition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ext := make(map[string]any, len(extra))
			for k, v := range extra {
				ext[k] = v
			}
			path, err := a.lake().WriteManifest(args[0], channels, ext)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, path)
			return nil
		},
	}
	manifestCmd.Flags().StringToIntVar(&channels, "channel", nil, "per-channel message count, name=count (repeatable)")
	manifestCmd.Flags().StringToStringVar(&extra, "extra", nil, "additional manifest field, key=value (repeatable)")

	verifyCmd := &cobra.Command{
		Use:   "verify <date>",
		Short: "Compare a partition manifest with the files on disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := a.lake().VerifyManifest(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := a.printJSON(rep); err != nil {
				return err
			}
			if !rep.OK() {
				return errManifestDrift
			}
			return nil
		},
	}

	cmd.AddCommand(initCmd, validateCmd, datesCmd, imagesCmd, manifestCmd, verifyCmd)
	return cmd
}
