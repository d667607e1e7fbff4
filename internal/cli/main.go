package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/forPelevin/fadecut/internal/config"
)

func Main() {
	config.LoadDotenv() // best-effort: load .env if present

	if err := newRoot().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRoot() *cobra.Command {
	root := &cobra.Command{
		Use:          "fadecut",
		Short:        "Trim segments out of a video with fades and join them",
		SilenceUsage: true,
	}
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	root.PersistentFlags().BoolP("verbose", "v", false, "Verbose (development) logging")

	root.AddCommand(
		newExportCmd(),
		newFrameCmd(),
		newProbeCmd(),
		newPresetsCmd(),
	)
	return root
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <input>",
		Short: "Export one or more segments into a single file",
		Long: `Trim each --segment out of <input>, fade it in and out, and join the
results in the order given.

A segment is START-END[,FADE_IN[,FADE_OUT[,NAME]]], for example
  --segment 00:00:10-00:00:40,2,2,intro
Timecodes are HH:MM:SS, HH:MM:SS.mmm or MM:SS. Omitted fades come from
--fade-in/--fade-out, then --preset, then FADECUT_DEFAULT_FADE_IN/OUT.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, args[0])
		},
	}
	cmd.Flags().StringArrayP("segment", "s", nil, "Segment START-END[,FADE_IN[,FADE_OUT[,NAME]]] (repeatable)")
	cmd.Flags().StringP("out", "o", "", "Output file (default <input-dir>/<name>-trimmed.mp4)")
	cmd.Flags().Float64("fade-in", 0, "Default fade-in seconds")
	cmd.Flags().Float64("fade-out", 0, "Default fade-out seconds")
	cmd.Flags().String("preset", "", "Fade preset name (see: fadecut presets)")
	cmd.Flags().Bool("manifest", false, "Write a JSON manifest next to the output")
	_ = cmd.MarkFlagRequired("segment")
	return cmd
}

func newFrameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "frame <input>",
		Short: "Write the frame at a timecode as PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFrame(cmd, args[0])
		},
	}
	cmd.Flags().String("at", "", "Timecode HH:MM:SS")
	cmd.Flags().StringP("out", "o", "frame.png", "Output PNG")
	_ = cmd.MarkFlagRequired("at")
	return cmd
}

func newProbeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe <input>",
		Short: "Print container metadata as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProbe(cmd, args[0])
		},
	}
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List built-in fade presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPresets(cmd)
		},
	}
}

func newLogger(cmd *cobra.Command) (*zap.Logger, error) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
