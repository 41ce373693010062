package adapter

import (
	"math"
	"testing"
)

func TestScaleRoundTrip(t *testing.T) {
	prev := -1.0
	for l := 0; l <= MaxLevel; l++ {
		level := uint16(l)
		pos := ScaleToPosition(level)
		if pos <= prev {
			t.Fatalf("ScaleToPosition not monotonic at %d", level)
		}
		prev = pos
		if got := ScaleToLevel(pos); got != level {
			t.Fatalf("ScaleToLevel(ScaleToPosition(%d)) = %d", level, got)
		}
	}
}

func TestScaleToLevelClamps(t *testing.T) {
	tests := []struct {
		name string
		pos  float64
		want uint16
	}{
		{"below range", -0.5, 0},
		{"above range", 1.5, MaxLevel},
		{"NaN", math.NaN(), 0},
		{"half", 0.5, 32768},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScaleToLevel(tt.pos); got != tt.want {
				t.Errorf("ScaleToLevel(%v) = %d, want %d", tt.pos, got, tt.want)
			}
		})
	}
}

func TestBoolToUshort(t *testing.T) {
	if BoolToUshort(true) != 1 || BoolToUshort(false) != 0 {
		t.Error("BoolToUshort encoding wrong")
	}
}
