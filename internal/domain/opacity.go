package domain

import "math"

// Opacity bounds for the stepped overlay control.
const (
	MinOpacity     = 0.1
	MaxOpacity     = 0.9
	OpacityStep    = 0.1
	DefaultOpacity = 0.5
)

// StepOpacity snaps v to the nearest 0.1 and clamps it into [MinOpacity, MaxOpacity].
// Stored values outside the range are still displayed as-is; only edits go through here.
func StepOpacity(v float64) float64 {
	if math.IsNaN(v) {
		return DefaultOpacity
	}
	steps := math.Round(v / OpacityStep)
	stepped := steps / 10
	switch {
	case stepped < MinOpacity:
		return MinOpacity
	case stepped > MaxOpacity:
		return MaxOpacity
	default:
		return stepped
	}
}
