package config

import (
	"strings"
	"testing"

	"github.com/forPelevin/fadecut/internal/types"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{
		"FADECUT_FFMPEG", "FADECUT_FFPROBE", "FADECUT_VIDEO_CODEC", "FADECUT_PRESET",
		"FADECUT_CRF", "FADECUT_AUDIO_CODEC", "FADECUT_AUDIO_BITRATE",
		"FADECUT_FADE_THRESHOLD", "FADECUT_CACHE_SIZE",
		"FADECUT_DEFAULT_FADE_IN", "FADECUT_DEFAULT_FADE_OUT",
	} {
		t.Setenv(k, "")
	}
	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.FFmpegPath != "ffmpeg" || c.Encoding.CRF != 18 || c.Encoding.AudioBitrate != "192k" {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if c.FadeThreshold != 0.9 || c.CacheSize != 100 || c.DefaultFadeIn != 0.5 {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("FADECUT_FFMPEG", " /opt/bin/ffmpeg ")
	t.Setenv("FADECUT_CRF", "23")
	t.Setenv("FADECUT_FADE_THRESHOLD", "0.75")
	t.Setenv("FADECUT_CACHE_SIZE", "30")
	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.FFmpegPath != "/opt/bin/ffmpeg" || c.Encoding.CRF != 23 || c.FadeThreshold != 0.75 || c.CacheSize != 30 {
		t.Fatalf("unexpected config: %+v", c)
	}
}

func TestLoad_BadNumber(t *testing.T) {
	t.Setenv("FADECUT_CRF", "high")
	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "FADECUT_CRF") {
		t.Fatalf("expected FADECUT_CRF error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			FFmpegPath:  "ffmpeg",
			FFprobePath: "ffprobe",
			Encoding: types.Encoding{
				VideoCodec: "libx264", CRF: 18, AudioCodec: "aac", AudioBitrate: "192k",
			},
			FadeThreshold: 0.9,
			CacheSize:     100,
		}
	}
	if err := base().Validate(); err != nil {
		t.Fatalf("base config must validate: %v", err)
	}
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"crf too high", func(c *Config) { c.Encoding.CRF = 52 }, "crf"},
		{"threshold zero", func(c *Config) { c.FadeThreshold = 0 }, "fade threshold"},
		{"threshold above one", func(c *Config) { c.FadeThreshold = 1.5 }, "fade threshold"},
		{"cache size", func(c *Config) { c.CacheSize = 0 }, "cache size"},
		{"negative fade", func(c *Config) { c.DefaultFadeOut = -1 }, "default fades"},
		{"no codec", func(c *Config) { c.Encoding.VideoCodec = "" }, "codecs"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			err := c.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
