package components

import (
	"sync/atomic"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"

	"github.com/Alexander-D-Karpov/campanula/internal/layout"
)

var _ fyne.Layout = (*MasonryLayout)(nil)

// MasonryLayout places objects in the columns chosen by a layout.Engine.
// Every object gets the column width and the engine's estimated height.
type MasonryLayout struct {
	engine   *layout.Engine
	opts     layout.Options
	primed   bool
	laying   atomic.Bool
	relayout atomic.Value
}

func NewMasonryLayout(engine *layout.Engine) *MasonryLayout {
	m := &MasonryLayout{engine: engine, opts: engine.Options()}
	engine.OnChange(func(int, []layout.Placement) {
		if m.laying.Load() {
			return
		}
		if fn, ok := m.relayout.Load().(func()); ok && fn != nil {
			fn()
		}
	})
	return m
}

// SetOnRelayout registers fn to run when a debounced resize changed the
// placements. fn may be called from a timer goroutine.
func (m *MasonryLayout) SetOnRelayout(fn func()) {
	m.relayout.Store(fn)
}

func (m *MasonryLayout) Layout(objects []fyne.CanvasObject, size fyne.Size) {
	m.laying.Store(true)
	m.engine.SetItemCount(len(objects))
	if size.Width > 0 {
		m.engine.Resize(size.Width)
		if !m.primed {
			m.primed = true
			m.engine.Flush()
		}
	}
	m.laying.Store(false)

	colWidth := m.columnWidth(size.Width, m.engine.Columns())
	for _, p := range m.engine.Placements() {
		if p.Index >= len(objects) {
			continue
		}
		obj := objects[p.Index]
		obj.Move(fyne.NewPos(float32(p.Column)*(colWidth+m.opts.Gap), p.Y))
		obj.Resize(fyne.NewSize(colWidth, m.opts.ItemHeight))
	}
}

func (m *MasonryLayout) MinSize(objects []fyne.CanvasObject) fyne.Size {
	var height float32
	for _, p := range m.engine.Placements() {
		if p.Index >= len(objects) {
			continue
		}
		if bottom := p.Y + m.opts.ItemHeight; bottom > height {
			height = bottom
		}
	}
	return fyne.NewSize(m.opts.MinColumnWidth, height)
}

func (m *MasonryLayout) columnWidth(width float32, columns int) float32 {
	if columns < 1 {
		columns = 1
	}
	w := (width - m.opts.Gap*float32(columns-1)) / float32(columns)
	if w < 0 {
		return 0
	}
	return w
}

// NewMasonryGrid returns a container laid out by engine that refreshes itself
// whenever a debounced resize lands.
func NewMasonryGrid(engine *layout.Engine, objects ...fyne.CanvasObject) *fyne.Container {
	l := NewMasonryLayout(engine)
	c := container.New(l, objects...)
	l.SetOnRelayout(func() {
		fyne.Do(c.Refresh)
	})
	return c
}
