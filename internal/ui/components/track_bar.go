package components

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/Alexander-D-Karpov/campanula/internal/playback"
)

var (
	_ fyne.Tappable  = (*TrackBar)(nil)
	_ fyne.Draggable = (*TrackBar)(nil)
)

// TrackBar is a linear control that turns taps and drags into a fraction in
// [0,1]. Vertical bars fill from the bottom.
type TrackBar struct {
	widget.BaseWidget

	orientation playback.Orientation
	value       float64
	dragging    bool

	OnTapped    func(fraction float64)
	OnDragStart func(fraction float64)
	OnDragged   func(fraction float64)
	OnDragEnd   func()
}

func NewTrackBar(orientation playback.Orientation) *TrackBar {
	b := &TrackBar{orientation: orientation}
	b.ExtendBaseWidget(b)
	return b
}

func (b *TrackBar) Value() float64 { return b.value }

func (b *TrackBar) Dragging() bool { return b.dragging }

func (b *TrackBar) SetValue(v float64) {
	v = playback.Clamp01(v)
	if v == b.value {
		return
	}
	b.value = v
	b.Refresh()
}

func (b *TrackBar) fractionAt(pos fyne.Position) float64 {
	size := b.Size()
	t := playback.Track{Length: size.Width, Orientation: b.orientation}
	offset := pos.X
	if b.orientation == playback.Vertical {
		t.Length = size.Height
		offset = pos.Y
	}
	return t.Fraction(offset)
}

func (b *TrackBar) Tapped(ev *fyne.PointEvent) {
	f := b.fractionAt(ev.Position)
	b.SetValue(f)
	if b.OnTapped != nil {
		b.OnTapped(f)
	}
}

func (b *TrackBar) Dragged(ev *fyne.DragEvent) {
	f := b.fractionAt(ev.Position)
	b.SetValue(f)
	if !b.dragging {
		b.dragging = true
		if b.OnDragStart != nil {
			b.OnDragStart(f)
		}
		return
	}
	if b.OnDragged != nil {
		b.OnDragged(f)
	}
}

func (b *TrackBar) DragEnd() {
	if !b.dragging {
		return
	}
	b.dragging = false
	if b.OnDragEnd != nil {
		b.OnDragEnd()
	}
}

func (b *TrackBar) MinSize() fyne.Size {
	if b.orientation == playback.Vertical {
		return fyne.NewSize(12, 96)
	}
	return fyne.NewSize(48, 12)
}

type trackBarRenderer struct {
	bar     *TrackBar
	track   *canvas.Rectangle
	fill    *canvas.Rectangle
	thumb   *canvas.Circle
	objects []fyne.CanvasObject
}

func (b *TrackBar) CreateRenderer() fyne.WidgetRenderer {
	r := &trackBarRenderer{
		bar:   b,
		track: canvas.NewRectangle(theme.Color(theme.ColorNameShadow)),
		fill:  canvas.NewRectangle(theme.Color(theme.ColorNamePrimary)),
		thumb: canvas.NewCircle(theme.Color(theme.ColorNamePrimary)),
	}
	r.track.CornerRadius = 3
	r.fill.CornerRadius = 3
	r.objects = []fyne.CanvasObject{r.track, r.fill, r.thumb}
	return r
}

func (r *trackBarRenderer) Layout(size fyne.Size) {
	const thickness = 6
	const thumb = 12
	v := float32(r.bar.value)

	if r.bar.orientation == playback.Vertical {
		x := (size.Width - thickness) / 2
		r.track.Move(fyne.NewPos(x, 0))
		r.track.Resize(fyne.NewSize(thickness, size.Height))
		h := size.Height * v
		r.fill.Move(fyne.NewPos(x, size.Height-h))
		r.fill.Resize(fyne.NewSize(thickness, h))
		r.thumb.Move(fyne.NewPos((size.Width-thumb)/2, size.Height-h-thumb/2))
	} else {
		y := (size.Height - thickness) / 2
		r.track.Move(fyne.NewPos(0, y))
		r.track.Resize(fyne.NewSize(size.Width, thickness))
		w := size.Width * v
		r.fill.Move(fyne.NewPos(0, y))
		r.fill.Resize(fyne.NewSize(w, thickness))
		r.thumb.Move(fyne.NewPos(w-thumb/2, (size.Height-thumb)/2))
	}
	r.thumb.Resize(fyne.NewSize(thumb, thumb))
}

func (r *trackBarRenderer) MinSize() fyne.Size { return r.bar.MinSize() }

func (r *trackBarRenderer) Refresh() {
	r.track.FillColor = theme.Color(theme.ColorNameShadow)
	r.fill.FillColor = theme.Color(theme.ColorNamePrimary)
	r.thumb.FillColor = theme.Color(theme.ColorNamePrimary)
	r.Layout(r.bar.Size())
	canvas.Refresh(r.bar)
}

func (r *trackBarRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *trackBarRenderer) Destroy()                     {}
