package fades

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultThreshold is the share of a segment's duration that fade-in plus
// fade-out may reach before both are dropped.
const DefaultThreshold = 0.9

type Plan struct {
	Duration float64
	FadeIn   float64
	FadeOut  float64
	// Disabled is set when the requested fades were dropped for overlapping.
	Disabled bool
}

// NewPlan computes the effective fades for a segment of the given duration.
// Overlapping fades are not an error; both are zeroed instead.
func NewPlan(duration, fadeIn, fadeOut, threshold float64) Plan {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	p := Plan{Duration: duration, FadeIn: max(fadeIn, 0), FadeOut: max(fadeOut, 0)}
	if p.FadeIn+p.FadeOut > 0 && p.FadeIn+p.FadeOut >= duration*threshold {
		p.FadeIn, p.FadeOut, p.Disabled = 0, 0, true
	}
	return p
}

func (p Plan) HasFades() bool { return p.FadeIn > 0 || p.FadeOut > 0 }

// VideoFilter returns the -vf chain, or "" when there is nothing to apply.
func (p Plan) VideoFilter() string { return p.chain("fade") }

// AudioFilter mirrors VideoFilter with afade.
func (p Plan) AudioFilter() string { return p.chain("afade") }

func (p Plan) chain(filter string) string {
	var parts []string
	if p.FadeIn > 0 {
		parts = append(parts, fmt.Sprintf("%s=type=in:start_time=0:duration=%s", filter, num(p.FadeIn)))
	}
	if p.FadeOut > 0 {
		parts = append(parts, fmt.Sprintf("%s=type=out:start_time=%s:duration=%s",
			filter, num(p.Duration-p.FadeOut), num(p.FadeOut)))
	}
	return strings.Join(parts, ",")
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type Preset struct {
	Name    string  `json:"name"`
	FadeIn  float64 `json:"in"`
	FadeOut float64 `json:"out"`
}

var Presets = []Preset{
	{Name: "None", FadeIn: 0, FadeOut: 0},
	{Name: "Gentle", FadeIn: 0.5, FadeOut: 0.5},
	{Name: "Smooth", FadeIn: 1, FadeOut: 1},
	{Name: "Dramatic", FadeIn: 0, FadeOut: 2},
	{Name: "Intro", FadeIn: 2, FadeOut: 0},
}

// LookupPreset matches names case-insensitively.
func LookupPreset(name string) (Preset, bool) {
	for _, p := range Presets {
		if strings.EqualFold(p.Name, strings.TrimSpace(name)) {
			return p, true
		}
	}
	return Preset{}, false
}
