package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	ffmpeggo "github.com/u2takey/ffmpeg-go"
	"go.uber.org/zap"

	"github.com/forPelevin/fadecut/internal/ports"
	"github.com/forPelevin/fadecut/internal/types"
)

type runFunc func(ctx context.Context, bin string, args []string) (stdout, stderr []byte, err error)

type Adapter struct {
	ffmpeg  string
	ffprobe string
	log     *zap.Logger
	run     runFunc
}

type Option func(*Adapter)

func WithLogger(l *zap.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.log = l
		}
	}
}

func New(ffmpegPath, ffprobePath string, opts ...Option) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	a := &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath, log: zap.NewNop(), run: execRun}
	for _, o := range opts {
		o(a)
	}
	return a
}

func (a *Adapter) TrimWithFades(ctx context.Context, req types.TrimRequest) error {
	if err := a.ffmpegRun(ctx, trimArgs(req)); err != nil {
		return fmt.Errorf("ffmpeg trim with fades: %w", err)
	}
	return nil
}

func (a *Adapter) CopyTrim(ctx context.Context, req types.TrimRequest) error {
	if err := a.ffmpegRun(ctx, copyTrimArgs(req)); err != nil {
		return fmt.Errorf("ffmpeg copy trim: %w", err)
	}
	return nil
}

func (a *Adapter) Concat(ctx context.Context, listFile, outMP4 string) error {
	if err := a.ffmpegRun(ctx, concatArgs(listFile, outMP4)); err != nil {
		return fmt.Errorf("ffmpeg concat: %w", err)
	}
	return nil
}

func (a *Adapter) ffmpegRun(ctx context.Context, args []string) error {
	a.log.Debug("running ffmpeg", zap.String("bin", a.ffmpeg), zap.Strings("args", args))
	_, stderr, err := a.run(ctx, a.ffmpeg, args)
	if err != nil {
		return fmt.Errorf("%w: %w\n%s", ports.ErrProcessFailure, err, string(stderr))
	}
	return nil
}

// trimArgs seeks on the input side so the re-encoded segment starts at t=0,
// which is what the fade filters' start_time values assume.
func trimArgs(req types.TrimRequest) []string {
	out := ffmpeggo.KwArgs{
		"t":   fmtSeconds(req.Duration),
		"c:v": req.Encoding.VideoCodec,
		"crf": strconv.Itoa(req.Encoding.CRF),
		"c:a": req.Encoding.AudioCodec,
		"b:a": req.Encoding.AudioBitrate,
	}
	if req.Encoding.Preset != "" {
		out["preset"] = req.Encoding.Preset
	}
	if req.VideoFilter != "" {
		out["vf"] = req.VideoFilter
	}
	if req.AudioFilter != "" {
		out["af"] = req.AudioFilter
	}
	return ffmpeggo.Input(req.Input, ffmpeggo.KwArgs{"ss": fmtSeconds(req.Start)}).
		Output(req.Output, out).
		OverWriteOutput().
		GetArgs()
}

func copyTrimArgs(req types.TrimRequest) []string {
	return ffmpeggo.Input(req.Input).
		Output(req.Output, ffmpeggo.KwArgs{
			"ss": fmtSeconds(req.Start),
			"t":  fmtSeconds(req.Duration),
			"c":  "copy",
		}).
		OverWriteOutput().
		GetArgs()
}

func concatArgs(listFile, outMP4 string) []string {
	return ffmpeggo.Input(listFile, ffmpeggo.KwArgs{"f": "concat", "safe": "0"}).
		Output(outMP4, ffmpeggo.KwArgs{"c": "copy"}).
		OverWriteOutput().
		GetArgs()
}

func frameArgs(path string, at time.Duration, width, height int) []string {
	return ffmpeggo.Input(path, ffmpeggo.KwArgs{"ss": fmtSeconds(at)}).
		Output("pipe:", ffmpeggo.KwArgs{
			"frames:v": "1",
			"f":        "rawvideo",
			"pix_fmt":  "rgb24",
			"s":        fmt.Sprintf("%dx%d", width, height),
		}).
		GetArgs()
}

func execRun(ctx context.Context, bin string, args []string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

func fmtSeconds(d time.Duration) string {
	sec := float64(d) / float64(time.Second)
	return strconv.FormatFloat(sec, 'f', 3, 64)
}
