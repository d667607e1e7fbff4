package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/forPelevin/fadecut/internal/domain/fades"
	"github.com/forPelevin/fadecut/internal/domain/framecache"
	"github.com/forPelevin/fadecut/internal/types"
)

type Config struct {
	FFmpegPath  string
	FFprobePath string

	Encoding types.Encoding

	FadeThreshold  float64
	CacheSize      int
	DefaultFadeIn  float64
	DefaultFadeOut float64
}

// LoadDotenv loads .env from the working directory if present.
func LoadDotenv() {
	_ = godotenv.Load()
}

// Load reads FADECUT_* variables, falling back to defaults for unset ones.
func Load() (Config, error) {
	c := Config{
		FFmpegPath:  getenvDefault("FADECUT_FFMPEG", "ffmpeg"),
		FFprobePath: getenvDefault("FADECUT_FFPROBE", "ffprobe"),
		Encoding: types.Encoding{
			VideoCodec:   getenvDefault("FADECUT_VIDEO_CODEC", "libx264"),
			Preset:       getenvDefault("FADECUT_PRESET", "medium"),
			AudioCodec:   getenvDefault("FADECUT_AUDIO_CODEC", "aac"),
			AudioBitrate: getenvDefault("FADECUT_AUDIO_BITRATE", "192k"),
		},
	}

	var err error
	if c.Encoding.CRF, err = getenvInt("FADECUT_CRF", 18); err != nil {
		return Config{}, err
	}
	if c.CacheSize, err = getenvInt("FADECUT_CACHE_SIZE", framecache.DefaultCapacity); err != nil {
		return Config{}, err
	}
	if c.FadeThreshold, err = getenvFloat("FADECUT_FADE_THRESHOLD", fades.DefaultThreshold); err != nil {
		return Config{}, err
	}
	if c.DefaultFadeIn, err = getenvFloat("FADECUT_DEFAULT_FADE_IN", 0.5); err != nil {
		return Config{}, err
	}
	if c.DefaultFadeOut, err = getenvFloat("FADECUT_DEFAULT_FADE_OUT", 0.5); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	if c.FFmpegPath == "" || c.FFprobePath == "" {
		return fmt.Errorf("ffmpeg and ffprobe paths are required")
	}
	if c.Encoding.VideoCodec == "" || c.Encoding.AudioCodec == "" {
		return fmt.Errorf("video and audio codecs are required")
	}
	if c.Encoding.CRF < 0 || c.Encoding.CRF > 51 {
		return fmt.Errorf("crf must be in 0..51, got %d", c.Encoding.CRF)
	}
	if c.FadeThreshold <= 0 || c.FadeThreshold > 1 {
		return fmt.Errorf("fade threshold must be in (0, 1], got %v", c.FadeThreshold)
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("cache size must be > 0, got %d", c.CacheSize)
	}
	if c.DefaultFadeIn < 0 || c.DefaultFadeOut < 0 {
		return fmt.Errorf("default fades must be >= 0")
	}
	return nil
}

func getenvDefault(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}

func getenvInt(k string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return n, nil
}

func getenvFloat(k string, def float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return f, nil
}
