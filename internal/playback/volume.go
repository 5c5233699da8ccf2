package playback

import (
	"fmt"
	"sync"
)

// VolumeControl is the single volume slider and mute button of the gallery.
type VolumeControl struct {
	mu       sync.Mutex
	coord    *Coordinator
	previous float64
}

func NewVolumeControl(coord *Coordinator) *VolumeControl {
	prev := coord.Volume()
	if prev <= 0 {
		prev = DefaultVolume
	}
	return &VolumeControl{coord: coord, previous: prev}
}

func (vc *VolumeControl) Volume() float64 {
	return vc.coord.Volume()
}

func (vc *VolumeControl) IsMuted() bool {
	return vc.coord.Volume() == 0
}

// Previous returns the volume restored by the next unmute.
func (vc *VolumeControl) Previous() float64 {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	return vc.previous
}

func (vc *VolumeControl) ToggleMute() {
	vc.mu.Lock()
	target := 0.0
	if current := vc.coord.Volume(); current == 0 {
		target = vc.previous
	} else {
		vc.previous = current
	}
	vc.mu.Unlock()

	vc.coord.SetVolume(target)
}

// SetFromPointer applies a slider position. A positive value chosen while
// muted also becomes the value restored by unmute; zero leaves it untouched.
func (vc *VolumeControl) SetFromPointer(fraction float64) {
	fraction = Clamp01(fraction)

	vc.mu.Lock()
	if fraction > 0 && vc.coord.Volume() == 0 {
		vc.previous = fraction
	}
	vc.mu.Unlock()

	vc.coord.SetVolume(fraction)
}

// Percent renders the current volume for the slider label.
func (vc *VolumeControl) Percent() string {
	return fmt.Sprintf("%d%%", int(vc.Volume()*100+0.5))
}
