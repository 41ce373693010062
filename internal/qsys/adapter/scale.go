package adapter

import "math"

// MaxLevel is the top of the external gain range.
const MaxLevel = math.MaxUint16

// ScaleToPosition maps an external level (0..65535) linearly onto [0,1].
func ScaleToPosition(level uint16) float64 {
	return float64(level) / MaxLevel
}

// ScaleToLevel maps a position back onto 0..65535, rounding to the nearest
// level. Positions outside [0,1] are clamped. It inverts ScaleToPosition
// exactly for every level.
func ScaleToLevel(position float64) uint16 {
	switch {
	case math.IsNaN(position) || position <= 0:
		return 0
	case position >= 1:
		return MaxLevel
	}
	return uint16(math.Round(position * MaxLevel))
}

// BoolToUshort encodes a boolean the way external consumers expect: 1 or 0.
func BoolToUshort(v bool) uint16 {
	if v {
		return 1
	}
	return 0
}
