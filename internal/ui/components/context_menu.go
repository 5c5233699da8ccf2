package components

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/Alexander-D-Karpov/campanula/internal/playback"
	"github.com/Alexander-D-Karpov/campanula/pkg/types"
)

// ContextMenu is the secondary-tap menu of a player card.
type ContextMenu struct {
	item types.WorkItem
	menu *widget.PopUpMenu

	onToggle func()
	onStop   func()
	onCopy   func(source string)
}

func NewContextMenu(item types.WorkItem) *ContextMenu {
	return &ContextMenu{item: item}
}

func (cm *ContextMenu) SetCallbacks(onToggle, onStop func(), onCopy func(string)) {
	cm.onToggle = onToggle
	cm.onStop = onStop
	cm.onCopy = onCopy
}

// Menu builds the entries for the given playback state.
func (cm *ContextMenu) Menu(snap playback.Snapshot) *fyne.Menu {
	toggle := fyne.NewMenuItem("Play", cm.run(cm.onToggle))
	toggle.Icon = theme.MediaPlayIcon()
	if snap.IsPlaying || snap.State == playback.StateLoading {
		toggle.Label = "Pause"
		toggle.Icon = theme.MediaPauseIcon()
	}
	if cm.item.Validate() != nil {
		toggle.Disabled = true
	}

	stop := fyne.NewMenuItem("Stop", cm.run(cm.onStop))
	stop.Icon = theme.MediaStopIcon()
	stop.Disabled = !snap.HasBeenPlayed && snap.State != playback.StatePaused

	copySource := fyne.NewMenuItem("Copy audio link", func() {
		if cm.onCopy != nil {
			cm.onCopy(cm.item.Source)
		}
		cm.Hide()
	})
	copySource.Icon = theme.ContentCopyIcon()
	copySource.Disabled = cm.item.Source == ""

	return fyne.NewMenu("", toggle, stop, fyne.NewMenuItemSeparator(), copySource)
}

func (cm *ContextMenu) run(fn func()) func() {
	return func() {
		if fn != nil {
			fn()
		}
		cm.Hide()
	}
}

func (cm *ContextMenu) ShowAt(c fyne.Canvas, pos fyne.Position, snap playback.Snapshot) {
	if c == nil {
		return
	}
	cm.menu = widget.NewPopUpMenu(cm.Menu(snap), c)
	cm.menu.ShowAtPosition(pos)
}

func (cm *ContextMenu) Hide() {
	if cm.menu != nil {
		cm.menu.Hide()
	}
}
