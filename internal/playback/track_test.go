package playback

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrack_Fraction(t *testing.T) {
	tests := []struct {
		name   string
		track  Track
		offset float32
		want   float64
	}{
		{"horizontal middle", Track{Length: 200}, 50, 0.25},
		{"horizontal before start", Track{Length: 200}, -30, 0},
		{"horizontal past end", Track{Length: 200}, 260, 1},
		{"vertical top is loud", Track{Length: 100, Orientation: Vertical}, 0, 1},
		{"vertical bottom is silent", Track{Length: 100, Orientation: Vertical}, 100, 0},
		{"vertical quarter", Track{Length: 100, Orientation: Vertical}, 25, 0.75},
		{"zero length", Track{}, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.track.Fraction(tt.offset), 1e-9)
		})
	}
}

func TestSeekPosition_AlwaysWithinTotal(t *testing.T) {
	total := 95 * time.Second
	for _, f := range []float64{-10, -0.01, 0, 0.3, 0.999, 1, 1.01, 50, math.NaN(), math.Inf(1)} {
		pos := SeekPosition(f, total)
		assert.GreaterOrEqual(t, pos, time.Duration(0), "fraction %v", f)
		assert.LessOrEqual(t, pos, total, "fraction %v", f)
	}
	assert.Equal(t, time.Duration(0), SeekPosition(0.5, 0))
}

func TestProgress(t *testing.T) {
	assert.InDelta(t, 0.5, Progress(30*time.Second, time.Minute), 1e-9)
	assert.Equal(t, 1.0, Progress(2*time.Minute, time.Minute))
	assert.Equal(t, 0.0, Progress(time.Second, 0))
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "0:00", FormatTime(0))
	assert.Equal(t, "0:09", FormatTime(9*time.Second))
	assert.Equal(t, "3:05", FormatTime(185*time.Second+400*time.Millisecond))
	assert.Equal(t, "0:00", FormatTime(-time.Second))
}
