package models

import "fmt"

// Preset is one of the selectable timer lengths.
type Preset string

const (
	PresetTwentyFive Preset = "25"
	PresetFifty      Preset = "50"
	PresetCustom     Preset = "custom"
)

// DefaultCustomMinutes is used when a custom preset has no usable length yet.
const DefaultCustomMinutes = 30

// ParsePreset converts user input into a Preset.
func ParsePreset(s string) (Preset, error) {
	switch Preset(s) {
	case PresetTwentyFive, PresetFifty, PresetCustom:
		return Preset(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPreset, s)
	}
}

// Seconds returns the countdown length of the preset.
func (p Preset) Seconds(customMinutes int) int64 {
	switch p {
	case PresetTwentyFive:
		return 25 * 60
	case PresetFifty:
		return 50 * 60
	default:
		return int64(customMinutes) * 60
	}
}

// PresetForDuration infers the preset (and custom minutes) behind a stored duration.
func PresetForDuration(duration int64) (Preset, int) {
	switch duration {
	case 25 * 60:
		return PresetTwentyFive, DefaultCustomMinutes
	case 50 * 60:
		return PresetFifty, DefaultCustomMinutes
	}
	if minutes := int(duration / 60); minutes > 0 {
		return PresetCustom, minutes
	}
	return PresetCustom, DefaultCustomMinutes
}
