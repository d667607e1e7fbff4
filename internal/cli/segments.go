package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/forPelevin/fadecut/internal/domain/timecode"
	"github.com/forPelevin/fadecut/internal/types"
)

func parseSegments(args []string, fadeIn, fadeOut float64) ([]types.VideoSegment, error) {
	out := make([]types.VideoSegment, 0, len(args))
	for i, s := range args {
		seg, err := parseSegment(s, fadeIn, fadeOut)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i+1, err)
		}
		out = append(out, seg)
	}
	return out, nil
}

// parseSegment reads START-END[,FADE_IN[,FADE_OUT[,NAME]]]. Empty fade fields
// keep the defaults.
func parseSegment(raw string, fadeIn, fadeOut float64) (types.VideoSegment, error) {
	fields := strings.SplitN(raw, ",", 4)
	rng := strings.TrimSpace(fields[0])
	if _, _, err := timecode.ParseRange(rng); err != nil {
		return types.VideoSegment{}, err
	}
	start, end, _ := strings.Cut(rng, "-")

	seg := types.VideoSegment{
		StartTime: strings.TrimSpace(start),
		EndTime:   strings.TrimSpace(end),
		FadeIn:    fadeIn,
		FadeOut:   fadeOut,
	}
	var err error
	if len(fields) > 1 {
		if seg.FadeIn, err = fadeField(fields[1], fadeIn); err != nil {
			return types.VideoSegment{}, fmt.Errorf("fade in: %w", err)
		}
	}
	if len(fields) > 2 {
		if seg.FadeOut, err = fadeField(fields[2], fadeOut); err != nil {
			return types.VideoSegment{}, fmt.Errorf("fade out: %w", err)
		}
	}
	if len(fields) > 3 {
		seg.Name = strings.TrimSpace(fields[3])
	}
	return seg, nil
}

func fadeField(s string, def float64) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("must be >= 0, got %v", v)
	}
	return v, nil
}
