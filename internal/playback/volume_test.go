package playback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"github.com/Alexander-D-Karpov/campanula/internal/handlers"
)

func TestVolumeControl_MuteRoundTrip(t *testing.T) {
	c := NewCoordinator(handlers.NewEventBus(), zaptest.NewLogger(t))
	vc := NewVolumeControl(c)
	h := newFakeHandle("x")
	c.Register("x", h)

	c.SetVolume(0.6)
	vc.ToggleMute()
	assert.True(t, vc.IsMuted())
	assert.Equal(t, 0.0, h.Volume())

	vc.ToggleMute()
	assert.False(t, vc.IsMuted())
	assert.Equal(t, 0.6, vc.Volume())
	assert.Equal(t, 0.6, h.Volume())
}

func TestVolumeControl_ExplicitValueWhileMutedWins(t *testing.T) {
	c := NewCoordinator(handlers.NewEventBus(), zaptest.NewLogger(t))
	vc := NewVolumeControl(c)

	c.SetVolume(0.6)
	vc.ToggleMute()
	vc.SetFromPointer(0.3)
	assert.Equal(t, 0.3, vc.Volume())

	// The button now mutes again rather than restoring a stale zero.
	vc.ToggleMute()
	assert.Equal(t, 0.0, vc.Volume())
	vc.ToggleMute()
	assert.Equal(t, 0.3, vc.Volume())
}

func TestVolumeControl_DragToZeroWhileMuted(t *testing.T) {
	c := NewCoordinator(handlers.NewEventBus(), zaptest.NewLogger(t))
	vc := NewVolumeControl(c)

	c.SetVolume(0.6)
	vc.ToggleMute()
	vc.SetFromPointer(0)

	assert.True(t, vc.IsMuted())
	assert.Equal(t, 0.6, vc.Previous())
}

func TestVolumeControl_StartsMuted(t *testing.T) {
	c := NewCoordinator(nil, nil, WithVolume(0))
	vc := NewVolumeControl(c)

	assert.Equal(t, DefaultVolume, vc.Previous())
	vc.ToggleMute()
	assert.Equal(t, DefaultVolume, vc.Volume())
}

func TestVolumeControl_Percent(t *testing.T) {
	c := NewCoordinator(nil, nil)
	vc := NewVolumeControl(c)

	assert.Equal(t, "70%", vc.Percent())
	vc.SetFromPointer(1.4)
	assert.Equal(t, "100%", vc.Percent())
}
