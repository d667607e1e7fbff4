package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/forPelevin/fadecut/internal/config"
	"github.com/forPelevin/fadecut/internal/ports"
	"github.com/forPelevin/fadecut/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/fadecut/internal/types"
	"github.com/forPelevin/fadecut/internal/usecase"
)

type Config struct {
	Input         string
	Output        string
	Segments      []types.VideoSegment
	WriteManifest bool

	Settings config.Config
	Log      *zap.Logger
}

func (c Config) Validate() error {
	if c.Input == "" {
		return errors.New("input is empty")
	}
	if _, err := os.Stat(c.Input); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ports.ErrNotFound, c.Input)
		}
		return fmt.Errorf("stat input: %w", err)
	}
	if len(c.Segments) == 0 {
		return errors.New("at least one segment is required")
	}
	if c.Output != "" {
		if fi, err := os.Stat(c.Output); err == nil && fi.IsDir() {
			return fmt.Errorf("output %s is a directory", c.Output)
		}
	}
	return c.Settings.Validate()
}

// Export trims cfg.Segments out of cfg.Input and writes the result (and,
// when requested, a JSON manifest beside it).
func Export(ctx context.Context, cfg Config) (types.ExportResult, error) {
	log := orNop(cfg.Log)

	out := cfg.Output
	if out == "" {
		out = DefaultOutputPath(cfg.Input)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return types.ExportResult{}, err
	}

	p, err := open(ctx, cfg.Settings, log, cfg.Input)
	if err != nil {
		return types.ExportResult{}, err
	}
	defer p.Close()

	log.Info("exporting", zap.String("input", cfg.Input), zap.String("output", out), zap.Int("segments", len(cfg.Segments)))
	res, err := p.Export(ctx, cfg.Segments, out)
	if err != nil {
		return types.ExportResult{}, err
	}

	if cfg.WriteManifest {
		m := types.Manifest{
			ID:       uuid.NewString(),
			Created:  time.Now().UTC(),
			Source:   p.Info(),
			Output:   res.Output,
			Segments: res.Segments,
		}
		b, err := json.MarshalIndent(m, "", "  ")
		if err != nil {
			return types.ExportResult{}, fmt.Errorf("marshal manifest: %w", err)
		}
		path := ManifestPath(res.Output)
		if err := os.WriteFile(path, b, 0o644); err != nil {
			return types.ExportResult{}, err
		}
		log.Info("manifest written", zap.String("path", path))
	}
	return res, nil
}

// Frame writes the preview frame at tc to outPNG.
func Frame(ctx context.Context, s config.Config, log *zap.Logger, input, tc, outPNG string) error {
	log = orNop(log)
	p, err := open(ctx, s, log, input)
	if err != nil {
		return err
	}
	defer p.Close()

	fr, ok := p.FrameAt(ctx, tc)
	if !ok {
		return fmt.Errorf("no frame at %s (duration %.3fs)", tc, p.Info().Duration)
	}
	f, err := os.Create(outPNG)
	if err != nil {
		return err
	}
	if err := png.Encode(f, toImage(fr)); err != nil {
		f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	return f.Close()
}

func Probe(ctx context.Context, s config.Config, log *zap.Logger, input string) (types.VideoInfo, error) {
	p, err := open(ctx, s, orNop(log), input)
	if err != nil {
		return types.VideoInfo{}, err
	}
	defer p.Close()
	return p.Info(), nil
}

func open(ctx context.Context, s config.Config, log *zap.Logger, input string) (*usecase.Processor, error) {
	v := ffmpeg.New(s.FFmpegPath, s.FFprobePath, ffmpeg.WithLogger(log))
	deps := usecase.Deps{
		Transcoder: v,
		Decoder:    v,
		Log:        log,
	}
	return usecase.Open(ctx, deps, input, usecase.Options{
		Encoding:      s.Encoding,
		FadeThreshold: s.FadeThreshold,
		CacheSize:     s.CacheSize,
	})
}

// DefaultOutputPath places "<name>-trimmed.mp4" next to the input.
func DefaultOutputPath(input string) string {
	name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	name = normalizePathSegment(name)
	if name == "" {
		name = "output"
	}
	return filepath.Join(filepath.Dir(input), name+"-trimmed.mp4")
}

func ManifestPath(output string) string {
	return strings.TrimSuffix(output, filepath.Ext(output)) + ".manifest.json"
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func toImage(fr types.Frame) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, fr.Width, fr.Height))
	for i, j := 0, 0; i+2 < len(fr.RGB) && j+3 < len(img.Pix); i, j = i+3, j+4 {
		img.Pix[j] = fr.RGB[i]
		img.Pix[j+1] = fr.RGB[i+1]
		img.Pix[j+2] = fr.RGB[i+2]
		img.Pix[j+3] = 0xff
	}
	return img
}

func orNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// ensure adapters implement ports
var _ ports.Transcoder = (*ffmpeg.Adapter)(nil)
var _ ports.Decoder = (*ffmpeg.Adapter)(nil)
