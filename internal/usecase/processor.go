package usecase

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/forPelevin/fadecut/internal/domain/fades"
	"github.com/forPelevin/fadecut/internal/domain/framecache"
	"github.com/forPelevin/fadecut/internal/domain/timecode"
	"github.com/forPelevin/fadecut/internal/ports"
	"github.com/forPelevin/fadecut/internal/types"
)

const (
	tempDirName  = "temp_segments"
	listFileName = "filelist.txt"
)

type Deps struct {
	Transcoder ports.Transcoder
	Decoder    ports.Decoder
	Log        *zap.Logger
}

type Options struct {
	Encoding types.Encoding
	// FadeThreshold is the share of a segment's duration above which fades
	// are dropped. Zero means fades.DefaultThreshold.
	FadeThreshold float64
	CacheSize     int
}

func DefaultEncoding() types.Encoding {
	return types.Encoding{
		VideoCodec:   "libx264",
		Preset:       "medium",
		CRF:          18,
		AudioCodec:   "aac",
		AudioBitrate: "192k",
	}
}

// Processor is a session over one source video. It holds the decoder handle
// until Close and is not safe for concurrent use.
type Processor struct {
	d      Deps
	opts   Options
	log    *zap.Logger
	path   string
	info   types.VideoInfo
	handle ports.VideoHandle
	cache  *framecache.Cache
}

func Open(ctx context.Context, d Deps, path string, opts Options) (*Processor, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ports.ErrNotFound, "%s", path)
		}
		return nil, errors.Wrapf(err, "stat %s", path)
	}

	h, err := d.Decoder.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ports.ErrOpenFailure, path, err)
	}

	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Encoding == (types.Encoding{}) {
		opts.Encoding = DefaultEncoding()
	}
	if opts.FadeThreshold <= 0 {
		opts.FadeThreshold = fades.DefaultThreshold
	}

	info := h.Info()
	info.Path = path
	info.Duration = 0
	if info.FPS > 0 {
		info.Duration = float64(info.FrameCount) / info.FPS
	}

	log.Info("opened video",
		zap.String("path", path),
		zap.Float64("fps", info.FPS),
		zap.Int("frames", info.FrameCount),
		zap.Int("width", info.Width),
		zap.Int("height", info.Height),
		zap.Float64("duration", info.Duration),
	)

	return &Processor{
		d:      d,
		opts:   opts,
		log:    log,
		path:   path,
		info:   info,
		handle: h,
		cache:  framecache.New(opts.CacheSize),
	}, nil
}

func (p *Processor) Info() types.VideoInfo { return p.info }

// Close releases the decoder. Calling it more than once is a no-op.
func (p *Processor) Close() error {
	if p.handle == nil {
		return nil
	}
	h := p.handle
	p.handle = nil
	return h.Close()
}

// ProcessSegments exports segments into outMP4 and returns its path.
func (p *Processor) ProcessSegments(ctx context.Context, segments []types.VideoSegment, outMP4 string) (string, error) {
	res, err := p.Export(ctx, segments, outMP4)
	if err != nil {
		return "", err
	}
	return res.Output, nil
}

// Export trims every segment into temp_segments next to outMP4, then copies
// (one segment) or concatenates (several) them into outMP4. The segment
// files are removed on every return path.
func (p *Processor) Export(ctx context.Context, segments []types.VideoSegment, outMP4 string) (types.ExportResult, error) {
	if len(segments) == 0 {
		return types.ExportResult{}, errors.Wrap(ports.ErrInvalidInput, "no segments provided")
	}
	bounds := make([]segmentBounds, len(segments))
	for i, s := range segments {
		b, err := resolveSegment(s)
		if err != nil {
			return types.ExportResult{}, errors.WithMessagef(err, "segment %d", i+1)
		}
		if p.info.Duration > 0 && b.end > p.info.Duration {
			p.log.Warn("segment ends after source duration",
				zap.Int("segment", i+1),
				zap.Float64("end", b.end),
				zap.Float64("duration", p.info.Duration),
			)
		}
		bounds[i] = b
	}

	tempDir := filepath.Join(filepath.Dir(outMP4), tempDirName)
	_, statErr := os.Stat(tempDir)
	createdDir := os.IsNotExist(statErr)
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return types.ExportResult{}, errors.Wrap(err, "create temp dir")
	}
	files := make([]string, 0, len(segments))
	defer p.cleanupTemp(tempDir, createdDir, &files)

	res := types.ExportResult{Output: outMP4}
	for i, s := range segments {
		segPath := filepath.Join(tempDir, fmt.Sprintf("segment_%d.mp4", i))
		files = append(files, segPath)
		sr, err := p.trimSegment(ctx, bounds[i], segPath)
		if err != nil {
			return types.ExportResult{}, errors.WithMessagef(err, "segment %d", i+1)
		}
		sr.Index = i
		sr.Name = s.Name
		res.Segments = append(res.Segments, sr)
	}

	if len(files) == 1 {
		if err := copyFile(files[0], outMP4); err != nil {
			return types.ExportResult{}, errors.Wrap(err, "copy segment to output")
		}
	} else if err := p.concatenate(ctx, files, tempDir, outMP4); err != nil {
		return types.ExportResult{}, err
	}

	p.log.Info("export finished", zap.String("output", outMP4), zap.Int("segments", len(files)))
	return res, nil
}

// cleanupTemp removes the segment files this run wrote. The directory itself
// is removed only when this run created it, so files already kept there
// survive.
func (p *Processor) cleanupTemp(tempDir string, createdDir bool, files *[]string) {
	for _, f := range *files {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			p.log.Debug("remove temp segment", zap.String("file", f), zap.Error(err))
		}
	}
	if !createdDir {
		return
	}
	if err := os.Remove(tempDir); err != nil {
		p.log.Debug("remove temp dir", zap.String("dir", tempDir), zap.Error(err))
	}
}

type segmentBounds struct {
	start, end float64
	fadeIn     float64
	fadeOut    float64
}

func resolveSegment(s types.VideoSegment) (segmentBounds, error) {
	start, err := timecode.ToSeconds(s.StartTime)
	if err != nil {
		return segmentBounds{}, errors.Wrapf(ports.ErrInvalidInput, "start time: %v", err)
	}
	end, err := timecode.ToSeconds(s.EndTime)
	if err != nil {
		return segmentBounds{}, errors.Wrapf(ports.ErrInvalidInput, "end time: %v", err)
	}
	if end <= start {
		return segmentBounds{}, errors.Wrapf(ports.ErrInvalidInput,
			"end time %s must be after start time %s", s.EndTime, s.StartTime)
	}
	if s.FadeIn < 0 || s.FadeOut < 0 {
		return segmentBounds{}, errors.Wrapf(ports.ErrInvalidInput,
			"fade durations must be >= 0, got in=%v out=%v", s.FadeIn, s.FadeOut)
	}
	return segmentBounds{start: start, end: end, fadeIn: s.FadeIn, fadeOut: s.FadeOut}, nil
}

// trimSegment encodes one segment with fades and falls back to a stream-copy
// trim without fades if that fails for any reason.
func (p *Processor) trimSegment(ctx context.Context, b segmentBounds, outMP4 string) (types.SegmentResult, error) {
	duration := b.end - b.start
	plan := fades.NewPlan(duration, b.fadeIn, b.fadeOut, p.opts.FadeThreshold)
	if plan.Disabled {
		p.log.Warn("fades too long for segment, disabling",
			zap.Float64("fade_in", b.fadeIn),
			zap.Float64("fade_out", b.fadeOut),
			zap.Float64("duration", duration),
		)
	}

	req := types.TrimRequest{
		Input:       p.path,
		Output:      outMP4,
		Start:       timecode.FromFloat(b.start),
		Duration:    timecode.FromFloat(duration),
		VideoFilter: plan.VideoFilter(),
		AudioFilter: plan.AudioFilter(),
		Encoding:    p.opts.Encoding,
	}
	sr := types.SegmentResult{
		StartSec:      b.start,
		EndSec:        b.end,
		FadeIn:        plan.FadeIn,
		FadeOut:       plan.FadeOut,
		FadesDisabled: plan.Disabled,
	}

	err := p.d.Transcoder.TrimWithFades(ctx, req)
	if err == nil {
		err = checkOutput(outMP4)
	}
	if err == nil {
		return sr, nil
	}
	if ctx.Err() != nil {
		return types.SegmentResult{}, errors.Wrap(ctx.Err(), "trim with fades")
	}

	p.log.Warn("trim with fades failed, falling back to stream copy", zap.Error(err))
	req.VideoFilter, req.AudioFilter = "", ""
	if err := p.d.Transcoder.CopyTrim(ctx, req); err != nil {
		return types.SegmentResult{}, errors.WithMessage(err, "fallback trim")
	}
	if err := checkOutput(outMP4); err != nil {
		return types.SegmentResult{}, errors.WithMessage(err, "fallback trim")
	}
	sr.FadeIn, sr.FadeOut = 0, 0
	sr.Fallback = true
	return sr, nil
}

func (p *Processor) concatenate(ctx context.Context, files []string, tempDir, outMP4 string) error {
	listFile := filepath.Join(tempDir, listFileName)
	defer os.Remove(listFile)

	var sb strings.Builder
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return errors.Wrapf(err, "abs path %s", f)
		}
		fmt.Fprintf(&sb, "file '%s'\n", escapeConcatPath(abs))
	}
	if err := os.WriteFile(listFile, []byte(sb.String()), 0o644); err != nil {
		return errors.Wrap(err, "write concat list")
	}

	if err := p.d.Transcoder.Concat(ctx, listFile, outMP4); err != nil {
		return errors.WithMessage(err, "concatenate segments")
	}
	return errors.WithMessage(checkOutput(outMP4), "concatenate segments")
}

// escapeConcatPath quotes a path for the concat demuxer's single-quoted form.
func escapeConcatPath(p string) string {
	return strings.ReplaceAll(p, "'", `'\''`)
}

func checkOutput(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return errors.Wrapf(ports.ErrProcessFailure, "output %s missing", path)
	}
	if fi.Size() == 0 {
		return errors.Wrapf(ports.ErrProcessFailure, "output %s is empty", path)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return err
	}
	return nil
}
