package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/forPelevin/fadecut/internal/ports"
	"github.com/forPelevin/fadecut/internal/types"
)

type fakeTranscoder struct {
	fadeErr   error
	copyErr   error
	concatErr error
	// emptyFade makes TrimWithFades succeed but leave an empty file.
	emptyFade bool

	fadeReqs   []types.TrimRequest
	copyReqs   []types.TrimRequest
	concatList string
	concatOut  string
}

func (f *fakeTranscoder) TrimWithFades(_ context.Context, req types.TrimRequest) error {
	f.fadeReqs = append(f.fadeReqs, req)
	if f.fadeErr != nil {
		return f.fadeErr
	}
	if f.emptyFade {
		return os.WriteFile(req.Output, nil, 0o644)
	}
	return os.WriteFile(req.Output, []byte("fade:"+req.Output), 0o644)
}

func (f *fakeTranscoder) CopyTrim(_ context.Context, req types.TrimRequest) error {
	f.copyReqs = append(f.copyReqs, req)
	if f.copyErr != nil {
		return f.copyErr
	}
	return os.WriteFile(req.Output, []byte("copy:"+req.Output), 0o644)
}

func (f *fakeTranscoder) Concat(_ context.Context, listFile, out string) error {
	b, err := os.ReadFile(listFile)
	if err != nil {
		return err
	}
	f.concatList = string(b)
	f.concatOut = out
	if f.concatErr != nil {
		return f.concatErr
	}
	return os.WriteFile(out, []byte("concat"), 0o644)
}

type fakeDecoder struct {
	info    types.VideoInfo
	openErr error
	handle  *fakeHandle
}

func (f *fakeDecoder) Open(_ context.Context, _ string) (ports.VideoHandle, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.handle = &fakeHandle{info: f.info}
	return f.handle, nil
}

type fakeHandle struct {
	info    types.VideoInfo
	readErr error
	reads   []time.Duration
	closes  int
}

func (h *fakeHandle) Info() types.VideoInfo { return h.info }

func (h *fakeHandle) ReadFrame(_ context.Context, at time.Duration) (types.Frame, error) {
	h.reads = append(h.reads, at)
	if h.readErr != nil {
		return types.Frame{}, h.readErr
	}
	b := byte(len(h.reads))
	return types.Frame{Width: 1, Height: 1, RGB: []byte{b, b, b}}, nil
}

func (h *fakeHandle) Close() error {
	h.closes++
	return nil
}

func testInfo() types.VideoInfo {
	return types.VideoInfo{FPS: 30, FrameCount: 3600, Width: 1, Height: 1, Duration: 120}
}

func openTest(t *testing.T, tr *fakeTranscoder) (*Processor, *fakeDecoder, string) {
	t.Helper()
	tmp := t.TempDir()
	in := filepath.Join(tmp, "in.mp4")
	if err := os.WriteFile(in, []byte("video"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	dec := &fakeDecoder{info: testInfo()}
	p, err := Open(context.Background(), Deps{Transcoder: tr, Decoder: dec}, in, Options{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p, dec, tmp
}

func assertNoTempDir(t *testing.T, outDir string) {
	t.Helper()
	if _, err := os.Stat(filepath.Join(outDir, tempDirName)); !os.IsNotExist(err) {
		t.Fatalf("expected %s to be removed, stat err=%v", tempDirName, err)
	}
}

func TestOpen_Errors(t *testing.T) {
	tmp := t.TempDir()
	_, err := Open(context.Background(), Deps{Decoder: &fakeDecoder{}}, filepath.Join(tmp, "missing.mp4"), Options{})
	if !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	in := filepath.Join(tmp, "in.mp4")
	if err := os.WriteFile(in, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = Open(context.Background(), Deps{Decoder: &fakeDecoder{openErr: errors.New("moov atom not found")}}, in, Options{})
	if !errors.Is(err, ports.ErrOpenFailure) {
		t.Fatalf("expected ErrOpenFailure, got %v", err)
	}
}

func TestOpen_DefaultsAndClose(t *testing.T) {
	p, dec, _ := openTest(t, &fakeTranscoder{})
	if p.opts.Encoding != DefaultEncoding() {
		t.Fatalf("expected default encoding, got %+v", p.opts.Encoding)
	}
	if p.Info().Duration != 120 || p.Info().Path == "" {
		t.Fatalf("unexpected info: %+v", p.Info())
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if dec.handle.closes != 1 {
		t.Fatalf("expected decoder closed once, got %d", dec.handle.closes)
	}
}

func TestOpen_DerivesDurationFromFrames(t *testing.T) {
	tmp := t.TempDir()
	in := filepath.Join(tmp, "in.mp4")
	if err := os.WriteFile(in, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		info types.VideoInfo
		want float64
	}{
		{"inconsistent duration", types.VideoInfo{FPS: 25, FrameCount: 250, Duration: 999}, 10},
		{"zero fps", types.VideoInfo{FPS: 0, FrameCount: 250, Duration: 10}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Open(context.Background(), Deps{Decoder: &fakeDecoder{info: tt.info}}, in, Options{})
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			defer p.Close()
			if got := p.Info().Duration; got != tt.want {
				t.Fatalf("expected duration %v, got %v", tt.want, got)
			}
		})
	}
}

func TestExport_KeepsExistingTempDirContents(t *testing.T) {
	tr := &fakeTranscoder{}
	p, _, tmp := openTest(t, tr)
	tempDir := filepath.Join(tmp, tempDirName)
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		t.Fatal(err)
	}
	keep := filepath.Join(tempDir, "keep.txt")
	if err := os.WriteFile(keep, []byte("notes"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := p.Export(context.Background(), []types.VideoSegment{
		{StartTime: "00:00:00", EndTime: "00:00:10"},
		{StartTime: "00:00:20", EndTime: "00:00:30"},
	}, filepath.Join(tmp, "out.mp4"))
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	if b, err := os.ReadFile(keep); err != nil || string(b) != "notes" {
		t.Fatalf("expected keep.txt to survive, got %q err=%v", b, err)
	}
	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatalf("read temp dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "keep.txt" {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("expected only keep.txt left, got %v", names)
	}
}

func TestCopyFile_RemovesPartialOutput(t *testing.T) {
	tmp := t.TempDir()
	dst := filepath.Join(tmp, "out.mp4")
	// A directory opens fine but fails on read.
	if err := copyFile(tmp, dst); err == nil {
		t.Fatalf("expected copy error")
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Fatalf("expected partial output removed, stat err=%v", err)
	}
}

func TestProcessSegments_Empty(t *testing.T) {
	p, _, tmp := openTest(t, &fakeTranscoder{})
	_, err := p.ProcessSegments(context.Background(), nil, filepath.Join(tmp, "out.mp4"))
	if !errors.Is(err, ports.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestProcessSegments_InvalidSegment(t *testing.T) {
	cases := map[string]types.VideoSegment{
		"bad start":     {StartTime: "nope", EndTime: "00:00:10"},
		"end <= start":  {StartTime: "00:00:10", EndTime: "00:00:05"},
		"negative fade": {StartTime: "00:00:00", EndTime: "00:00:10", FadeIn: -1},
	}
	for name, seg := range cases {
		t.Run(name, func(t *testing.T) {
			tr := &fakeTranscoder{}
			p, _, tmp := openTest(t, tr)
			_, err := p.ProcessSegments(context.Background(), []types.VideoSegment{seg}, filepath.Join(tmp, "out.mp4"))
			if !errors.Is(err, ports.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
			if len(tr.fadeReqs) != 0 {
				t.Fatalf("expected no transcoder calls")
			}
			assertNoTempDir(t, tmp)
		})
	}
}

func TestProcessSegments_SingleSegmentCopiesWithoutConcat(t *testing.T) {
	tr := &fakeTranscoder{}
	p, _, tmp := openTest(t, tr)
	out := filepath.Join(tmp, "out.mp4")

	got, err := p.ProcessSegments(context.Background(), []types.VideoSegment{
		{StartTime: "00:00:10", EndTime: "00:00:40", FadeIn: 2, FadeOut: 2, Name: "clip1"},
	}, out)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if got != out {
		t.Fatalf("expected %s, got %s", out, got)
	}
	if tr.concatOut != "" {
		t.Fatalf("expected no concat for a single segment")
	}
	if len(tr.fadeReqs) != 1 {
		t.Fatalf("expected 1 trim, got %d", len(tr.fadeReqs))
	}

	req := tr.fadeReqs[0]
	if req.Start != 10*time.Second || req.Duration != 30*time.Second {
		t.Fatalf("unexpected start/duration: %s/%s", req.Start, req.Duration)
	}
	if req.VideoFilter != "fade=type=in:start_time=0:duration=2,fade=type=out:start_time=28:duration=2" {
		t.Fatalf("unexpected video filter: %q", req.VideoFilter)
	}
	if !strings.HasPrefix(req.AudioFilter, "afade=type=in") {
		t.Fatalf("unexpected audio filter: %q", req.AudioFilter)
	}
	if filepath.Base(req.Output) != "segment_0.mp4" || filepath.Base(filepath.Dir(req.Output)) != tempDirName {
		t.Fatalf("unexpected segment path: %s", req.Output)
	}

	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(b) != "fade:"+req.Output {
		t.Fatalf("expected output to be a copy of the segment, got %q", b)
	}
	assertNoTempDir(t, tmp)
}

func TestExport_ConcatenatesInOrder(t *testing.T) {
	tr := &fakeTranscoder{}
	p, _, tmp := openTest(t, tr)
	out := filepath.Join(tmp, "final.mp4")

	res, err := p.Export(context.Background(), []types.VideoSegment{
		{StartTime: "00:00:00", EndTime: "00:00:10", Name: "a"},
		{StartTime: "00:01:00", EndTime: "00:01:15", Name: "b"},
	}, out)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if tr.concatOut != out {
		t.Fatalf("expected concat into %s, got %q", out, tr.concatOut)
	}

	lines := strings.Split(strings.TrimSpace(tr.concatList), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 list entries, got %q", tr.concatList)
	}
	for i, l := range lines {
		want := filepath.Join(tmp, tempDirName, []string{"segment_0.mp4", "segment_1.mp4"}[i])
		if l != "file '"+want+"'" {
			t.Fatalf("list line %d = %q, want path %s", i, l, want)
		}
	}

	if len(res.Segments) != 2 || res.Segments[0].Name != "a" || res.Segments[1].Index != 1 {
		t.Fatalf("unexpected segment results: %+v", res.Segments)
	}
	if res.Segments[1].StartSec != 60 || res.Segments[1].EndSec != 75 {
		t.Fatalf("unexpected bounds: %+v", res.Segments[1])
	}
	if tr.fadeReqs[0].VideoFilter != "" || tr.fadeReqs[0].AudioFilter != "" {
		t.Fatalf("expected no filters without fades")
	}
	assertNoTempDir(t, tmp)
}

func TestExport_DisablesOverlappingFades(t *testing.T) {
	tr := &fakeTranscoder{}
	p, _, tmp := openTest(t, tr)

	res, err := p.Export(context.Background(), []types.VideoSegment{
		{StartTime: "00:00:00", EndTime: "00:00:04", FadeIn: 2, FadeOut: 2},
	}, filepath.Join(tmp, "out.mp4"))
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if tr.fadeReqs[0].VideoFilter != "" || tr.fadeReqs[0].AudioFilter != "" {
		t.Fatalf("expected filters dropped, got %q / %q", tr.fadeReqs[0].VideoFilter, tr.fadeReqs[0].AudioFilter)
	}
	sr := res.Segments[0]
	if !sr.FadesDisabled || sr.FadeIn != 0 || sr.FadeOut != 0 {
		t.Fatalf("unexpected segment result: %+v", sr)
	}
}

func TestExport_FallsBackToCopyTrim(t *testing.T) {
	cases := map[string]*fakeTranscoder{
		"fade error": {fadeErr: ports.ErrProcessFailure},
		"empty fade": {emptyFade: true},
	}
	for name, tr := range cases {
		t.Run(name, func(t *testing.T) {
			p, _, tmp := openTest(t, tr)
			res, err := p.Export(context.Background(), []types.VideoSegment{
				{StartTime: "00:00:05", EndTime: "00:00:15", FadeIn: 1, FadeOut: 1},
			}, filepath.Join(tmp, "out.mp4"))
			if err != nil {
				t.Fatalf("export: %v", err)
			}
			if len(tr.copyReqs) != 1 {
				t.Fatalf("expected 1 fallback trim, got %d", len(tr.copyReqs))
			}
			req := tr.copyReqs[0]
			if req.Start != 5*time.Second || req.Duration != 10*time.Second {
				t.Fatalf("unexpected fallback bounds: %s/%s", req.Start, req.Duration)
			}
			if req.VideoFilter != "" || req.AudioFilter != "" {
				t.Fatalf("fallback must not carry filters")
			}
			if !res.Segments[0].Fallback || res.Segments[0].FadeIn != 0 {
				t.Fatalf("unexpected segment result: %+v", res.Segments[0])
			}
			assertNoTempDir(t, tmp)
		})
	}
}

func TestExport_FallbackFailureAbortsBatch(t *testing.T) {
	tr := &fakeTranscoder{fadeErr: errors.New("boom"), copyErr: ports.ErrProcessFailure}
	p, _, tmp := openTest(t, tr)
	out := filepath.Join(tmp, "out.mp4")

	_, err := p.Export(context.Background(), []types.VideoSegment{
		{StartTime: "00:00:00", EndTime: "00:00:10"},
		{StartTime: "00:00:20", EndTime: "00:00:30"},
	}, out)
	if !errors.Is(err, ports.ErrProcessFailure) {
		t.Fatalf("expected ErrProcessFailure, got %v", err)
	}
	if len(tr.fadeReqs) != 1 {
		t.Fatalf("expected batch to stop after first segment, got %d trims", len(tr.fadeReqs))
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("expected no output, stat err=%v", err)
	}
	assertNoTempDir(t, tmp)
}

func TestExport_ConcatFailure(t *testing.T) {
	tr := &fakeTranscoder{concatErr: ports.ErrProcessFailure}
	p, _, tmp := openTest(t, tr)
	_, err := p.Export(context.Background(), []types.VideoSegment{
		{StartTime: "00:00:00", EndTime: "00:00:10"},
		{StartTime: "00:00:20", EndTime: "00:00:30"},
	}, filepath.Join(tmp, "out.mp4"))
	if !errors.Is(err, ports.ErrProcessFailure) {
		t.Fatalf("expected ErrProcessFailure, got %v", err)
	}
	assertNoTempDir(t, tmp)
}

func TestExport_CancelledContextSkipsFallback(t *testing.T) {
	tr := &fakeTranscoder{fadeErr: context.Canceled}
	p, _, tmp := openTest(t, tr)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Export(ctx, []types.VideoSegment{{StartTime: "00:00:00", EndTime: "00:00:10"}}, filepath.Join(tmp, "out.mp4"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(tr.copyReqs) != 0 {
		t.Fatalf("expected no fallback after cancellation")
	}
	assertNoTempDir(t, tmp)
}

func TestEscapeConcatPath(t *testing.T) {
	if got := escapeConcatPath("/tmp/it's.mp4"); got != `/tmp/it'\''s.mp4` {
		t.Fatalf("unexpected escape: %s", got)
	}
}
