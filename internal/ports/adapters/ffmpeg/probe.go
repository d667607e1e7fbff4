package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/forPelevin/fadecut/internal/ports"
	"github.com/forPelevin/fadecut/internal/types"
)

type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

type probeStream struct {
	CodecType    string `json:"codec_type"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	AvgFrameRate string `json:"avg_frame_rate"`
	RFrameRate   string `json:"r_frame_rate"`
	NbFrames     string `json:"nb_frames"`
	Duration     string `json:"duration"`
}

// Open probes path with ffprobe. The returned handle decodes frames by running
// ffmpeg once per request.
func (a *Adapter) Open(ctx context.Context, path string) (ports.VideoHandle, error) {
	args := []string{
		"-v", "error",
		"-show_streams",
		"-show_format",
		"-of", "json",
		path,
	}
	a.log.Debug("running ffprobe", zap.String("bin", a.ffprobe), zap.Strings("args", args))
	out, stderr, err := a.run(ctx, a.ffprobe, args)
	if err != nil {
		return nil, fmt.Errorf("ffprobe: %w\n%s", err, string(stderr))
	}
	info, err := parseProbe(out)
	if err != nil {
		return nil, err
	}
	info.Path = path
	return &video{a: a, info: info}, nil
}

func parseProbe(b []byte) (types.VideoInfo, error) {
	var po probeOutput
	if err := json.Unmarshal(b, &po); err != nil {
		return types.VideoInfo{}, fmt.Errorf("parse ffprobe output: %w", err)
	}
	var vs *probeStream
	for i := range po.Streams {
		if po.Streams[i].CodecType == "video" {
			vs = &po.Streams[i]
			break
		}
	}
	if vs == nil {
		return types.VideoInfo{}, fmt.Errorf("no video stream found")
	}

	fps := parseRate(vs.AvgFrameRate)
	if fps == 0 {
		fps = parseRate(vs.RFrameRate)
	}

	frames, _ := strconv.Atoi(strings.TrimSpace(vs.NbFrames))
	if frames <= 0 && fps > 0 {
		dur := parseFloat(vs.Duration)
		if dur == 0 {
			dur = parseFloat(po.Format.Duration)
		}
		frames = int(math.Round(dur * fps))
	}

	info := types.VideoInfo{
		FPS:        fps,
		FrameCount: frames,
		Width:      vs.Width,
		Height:     vs.Height,
	}
	if fps > 0 {
		info.Duration = float64(frames) / fps
	}
	return info, nil
}

// parseRate handles ffprobe's "num/den" rates; "0/0" yields 0.
func parseRate(s string) float64 {
	num, den, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		return parseFloat(num)
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

type video struct {
	a      *Adapter
	info   types.VideoInfo
	closed bool
}

func (v *video) Info() types.VideoInfo { return v.info }

func (v *video) ReadFrame(ctx context.Context, at time.Duration) (types.Frame, error) {
	if v.closed {
		return types.Frame{}, fmt.Errorf("read frame: video is closed")
	}
	w, h := v.info.Width, v.info.Height
	if w <= 0 || h <= 0 {
		return types.Frame{}, fmt.Errorf("read frame: unknown frame size %dx%d", w, h)
	}
	args := frameArgs(v.info.Path, at, w, h)
	v.a.log.Debug("running ffmpeg", zap.String("bin", v.a.ffmpeg), zap.Strings("args", args))
	out, stderr, err := v.a.run(ctx, v.a.ffmpeg, args)
	if err != nil {
		return types.Frame{}, fmt.Errorf("ffmpeg read frame: %w\n%s", err, string(stderr))
	}
	if want := w * h * 3; len(out) != want {
		return types.Frame{}, fmt.Errorf("ffmpeg read frame: got %d bytes, want %d", len(out), want)
	}
	return types.Frame{Width: w, Height: h, RGB: out}, nil
}

func (v *video) Close() error {
	v.closed = true
	return nil
}
