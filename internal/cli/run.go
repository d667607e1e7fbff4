package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/fadecut/internal/config"
	"github.com/forPelevin/fadecut/internal/domain/fades"
	"github.com/forPelevin/fadecut/internal/pipeline"
)

const runTimeout = 3 * time.Hour

func runExport(cmd *cobra.Command, input string) error {
	specs, _ := cmd.Flags().GetStringArray("segment")
	outPath, _ := cmd.Flags().GetString("out")
	withManifest, _ := cmd.Flags().GetBool("manifest")

	settings, err := loadSettings()
	if err != nil {
		return err
	}
	fadeIn, fadeOut, err := defaultFades(cmd, settings)
	if err != nil {
		return err
	}
	segments, err := parseSegments(specs, fadeIn, fadeOut)
	if err != nil {
		return err
	}

	absIn, err := filepath.Abs(input)
	if err != nil {
		return err
	}
	if outPath != "" {
		if outPath, err = filepath.Abs(outPath); err != nil {
			return err
		}
	}

	log, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	cfg := pipeline.Config{
		Input:         absIn,
		Output:        outPath,
		Segments:      segments,
		WriteManifest: withManifest,
		Settings:      settings,
		Log:           log,
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, cancel := runContext()
	defer cancel()

	res, err := pipeline.Export(ctx, cfg)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.Output)
	return nil
}

func runFrame(cmd *cobra.Command, input string) error {
	at, _ := cmd.Flags().GetString("at")
	outPNG, _ := cmd.Flags().GetString("out")

	settings, err := loadSettings()
	if err != nil {
		return err
	}
	log, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := runContext()
	defer cancel()

	if err := pipeline.Frame(ctx, settings, log, input, at, outPNG); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), outPNG)
	return nil
}

func runProbe(cmd *cobra.Command, input string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	log, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := runContext()
	defer cancel()

	info, err := pipeline.Probe(ctx, settings, log, input)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(info)
}

func runPresets(cmd *cobra.Command) error {
	w := cmd.OutOrStdout()
	for _, p := range fades.Presets {
		fmt.Fprintf(w, "%-10s in=%-4g out=%g\n", p.Name, p.FadeIn, p.FadeOut)
	}
	return nil
}

func loadSettings() (config.Config, error) {
	s, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("config: %w", err)
	}
	return s, nil
}

// defaultFades resolves the fades applied to segments that do not set their
// own: explicit flags win over --preset, which wins over the environment.
func defaultFades(cmd *cobra.Command, s config.Config) (float64, float64, error) {
	fadeIn, fadeOut := s.DefaultFadeIn, s.DefaultFadeOut

	if name, _ := cmd.Flags().GetString("preset"); name != "" {
		p, ok := fades.LookupPreset(name)
		if !ok {
			return 0, 0, fmt.Errorf("unknown preset %q", name)
		}
		fadeIn, fadeOut = p.FadeIn, p.FadeOut
	}
	if cmd.Flags().Changed("fade-in") {
		fadeIn, _ = cmd.Flags().GetFloat64("fade-in")
	}
	if cmd.Flags().Changed("fade-out") {
		fadeOut, _ = cmd.Flags().GetFloat64("fade-out")
	}
	if fadeIn < 0 || fadeOut < 0 {
		return 0, 0, fmt.Errorf("fades must be >= 0")
	}
	return fadeIn, fadeOut, nil
}

func runContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	return ctx, func() {
		cancel()
		stop()
	}
}
