package components

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/Alexander-D-Karpov/campanula/internal/handlers"
	"github.com/Alexander-D-Karpov/campanula/internal/playback"
)

// VolumeSlider is the floating volume control shared by every card.
type VolumeSlider struct {
	control *playback.VolumeControl

	bar       *TrackBar
	muteBtn   *widget.Button
	label     *widget.Label
	container *fyne.Container
	sub       *handlers.Subscription
}

func NewVolumeSlider(control *playback.VolumeControl, bus *handlers.EventBus) *VolumeSlider {
	vs := &VolumeSlider{control: control}

	vs.bar = NewTrackBar(playback.Vertical)
	vs.bar.OnTapped = control.SetFromPointer
	vs.bar.OnDragStart = control.SetFromPointer
	vs.bar.OnDragged = control.SetFromPointer

	vs.muteBtn = widget.NewButtonWithIcon("", theme.VolumeUpIcon(), control.ToggleMute)
	vs.muteBtn.Importance = widget.LowImportance
	vs.label = widget.NewLabelWithStyle("", fyne.TextAlignCenter, fyne.TextStyle{Monospace: true})

	vs.container = container.NewBorder(vs.label, vs.muteBtn, nil, nil, container.NewCenter(vs.bar))

	if bus != nil {
		vs.sub = bus.Subscribe(handlers.EventVolumeChanged, func(interface{}) {
			fyne.Do(vs.sync)
		})
	}
	vs.sync()
	return vs
}

func (vs *VolumeSlider) Container() *fyne.Container {
	return vs.container
}

func (vs *VolumeSlider) Refresh() {
	vs.sync()
}

func (vs *VolumeSlider) sync() {
	vs.bar.SetValue(vs.control.Volume())
	vs.label.SetText(vs.control.Percent())
	if vs.control.IsMuted() {
		vs.muteBtn.SetIcon(theme.VolumeMuteIcon())
	} else {
		vs.muteBtn.SetIcon(theme.VolumeUpIcon())
	}
}

func (vs *VolumeSlider) Close() {
	vs.sub.Unsubscribe()
}
