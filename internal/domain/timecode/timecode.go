package timecode

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidTimecode = errors.New("invalid timecode")

// ToSeconds parses HH:MM:SS, HH:MM:SS.mmm, HH:MM:SS:mmm and MM:SS(.mmm).
func ToSeconds(text string) (float64, error) {
	s := strings.TrimSpace(text)
	parts := strings.Split(s, ":")

	var h, m int
	var sec float64
	var err error
	switch len(parts) {
	case 2:
		if m, err = field(parts[0], 1, 0); err != nil {
			return 0, invalid(text)
		}
		if sec, err = secondsField(parts[1]); err != nil {
			return 0, invalid(text)
		}
	case 3, 4:
		if h, err = field(parts[0], 1, 0); err != nil {
			return 0, invalid(text)
		}
		if m, err = field(parts[1], 2, 59); err != nil {
			return 0, invalid(text)
		}
		if sec, err = secondsField(parts[2]); err != nil {
			return 0, invalid(text)
		}
		if len(parts) == 4 {
			if strings.Contains(parts[2], ".") {
				return 0, invalid(text)
			}
			ms, err := field(parts[3], 1, 999)
			if err != nil || len(parts[3]) > 3 {
				return 0, invalid(text)
			}
			sec += float64(ms) / 1000
		}
	default:
		return 0, invalid(text)
	}
	return float64(h)*3600 + float64(m)*60 + sec, nil
}

func Validate(text string) bool {
	_, err := ToSeconds(text)
	return err == nil
}

// Duration is ToSeconds as a time.Duration, rounded to the millisecond.
func Duration(text string) (time.Duration, error) {
	sec, err := ToSeconds(text)
	if err != nil {
		return 0, err
	}
	return FromFloat(sec), nil
}

func FromFloat(sec float64) time.Duration {
	return time.Duration(math.Round(sec*1000)) * time.Millisecond
}

// FromSeconds renders HH:MM:SS, or HH:MM:SS.mmm when there is a fractional part.
func FromSeconds(sec float64) (string, error) {
	if sec < 0 || math.IsNaN(sec) || math.IsInf(sec, 0) {
		return "", fmt.Errorf("%w: seconds must be >= 0, got %v", ErrInvalidTimecode, sec)
	}
	ms := int64(math.Round(sec * 1000))
	h := ms / 3_600_000
	m := ms % 3_600_000 / 60_000
	s := ms % 60_000 / 1000
	frac := ms % 1000
	if frac == 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s), nil
	}
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, frac), nil
}

// ParseRange parses "START-END" and requires END after START.
func ParseRange(text string) (float64, float64, error) {
	parts := strings.Split(text, "-")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: range %q, expected HH:MM:SS-HH:MM:SS", ErrInvalidTimecode, text)
	}
	start, err := ToSeconds(parts[0])
	if err != nil {
		return 0, 0, err
	}
	end, err := ToSeconds(parts[1])
	if err != nil {
		return 0, 0, err
	}
	if end <= start {
		return 0, 0, fmt.Errorf("%w: end must be after start, got %s to %s",
			ErrInvalidTimecode, strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]))
	}
	return start, end, nil
}

// field parses an unsigned integer of at least minDigits digits; limit 0 means unbounded.
func field(s string, minDigits, limit int) (int, error) {
	if len(s) < minDigits || !allDigits(s) {
		return 0, ErrInvalidTimecode
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if limit > 0 && v > limit {
		return 0, ErrInvalidTimecode
	}
	return v, nil
}

func secondsField(s string) (float64, error) {
	whole, frac, hasFrac := strings.Cut(s, ".")
	if len(whole) != 2 || !allDigits(whole) {
		return 0, ErrInvalidTimecode
	}
	if hasFrac && (len(frac) == 0 || len(frac) > 3 || !allDigits(frac)) {
		return 0, ErrInvalidTimecode
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if v >= 60 {
		return 0, ErrInvalidTimecode
	}
	return v, nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func invalid(text string) error {
	return fmt.Errorf("%w: %q, expected HH:MM:SS", ErrInvalidTimecode, text)
}
