package types

import "time"

// VideoSegment is one trim request against the source video.
type VideoSegment struct {
	StartTime string
	EndTime   string
	FadeIn    float64
	FadeOut   float64
	Name      string
}

type VideoInfo struct {
	Path       string  `json:"path"`
	FPS        float64 `json:"fps"`
	FrameCount int     `json:"frame_count"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Duration   float64 `json:"duration_sec"`
}

// Frame is a decoded picture in packed RGB24, row-major.
type Frame struct {
	Width  int
	Height int
	RGB    []byte
}

type Encoding struct {
	VideoCodec   string
	Preset       string
	CRF          int
	AudioCodec   string
	AudioBitrate string
}

type TrimRequest struct {
	Input    string
	Output   string
	Start    time.Duration
	Duration time.Duration

	VideoFilter string
	AudioFilter string
	Encoding    Encoding
}

type SegmentResult struct {
	Index         int     `json:"index"`
	Name          string  `json:"name,omitempty"`
	StartSec      float64 `json:"start_sec"`
	EndSec        float64 `json:"end_sec"`
	FadeIn        float64 `json:"fade_in"`
	FadeOut       float64 `json:"fade_out"`
	FadesDisabled bool    `json:"fades_disabled,omitempty"`
	Fallback      bool    `json:"fallback,omitempty"`
}

type ExportResult struct {
	Output   string
	Segments []SegmentResult
}

type Manifest struct {
	ID       string          `json:"id"`
	Created  time.Time       `json:"created"`
	Source   VideoInfo       `json:"source"`
	Output   string          `json:"output"`
	Segments []SegmentResult `json:"segments"`
}
