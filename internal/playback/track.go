package playback

import (
	"fmt"
	"math"
	"time"
)

type Orientation int

const (
	Horizontal Orientation = iota
	// Vertical tracks grow upwards: an offset at the top maps to 1.
	Vertical
)

// Track maps a pointer offset along a linear control to a fraction in [0,1].
type Track struct {
	Length      float32
	Orientation Orientation
}

// Fraction converts an offset measured from the track's left (horizontal) or
// top (vertical) edge.
func (t Track) Fraction(offset float32) float64 {
	if t.Length <= 0 {
		return 0
	}
	f := float64(offset) / float64(t.Length)
	if t.Orientation == Vertical {
		f = 1 - f
	}
	return Clamp01(f)
}

func Clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// SeekPosition returns fraction of total, always within [0,total].
func SeekPosition(fraction float64, total time.Duration) time.Duration {
	if total <= 0 {
		return 0
	}
	return time.Duration(Clamp01(fraction) * float64(total))
}

// Progress is the inverse of SeekPosition.
func Progress(pos, total time.Duration) float64 {
	if total <= 0 {
		return 0
	}
	return Clamp01(float64(pos) / float64(total))
}

// FormatTime renders d as M:SS.
func FormatTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
