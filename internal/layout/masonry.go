// Package layout arranges gallery cards into masonry columns of near equal
// estimated height.
package layout

import (
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Alexander-D-Karpov/campanula/internal/logger"
)

const (
	DefaultMinColumnWidth  float32 = 300
	DefaultGap             float32 = 24
	DefaultItemHeight      float32 = 400
	DefaultResizeThreshold float32 = 2
	DefaultDebounce                = 150 * time.Millisecond
)

// Placement puts one item into a column. Y is the estimated top offset of the
// item within its column.
type Placement struct {
	Index  int
	Column int
	Y      float32
}

// Columns returns how many columns of at least minWidth, separated by gap,
// fit into width. The result is never below 1.
func Columns(width, minWidth, gap float32) int {
	if minWidth <= 0 {
		minWidth = DefaultMinColumnWidth
	}
	if gap < 0 {
		gap = 0
	}
	if width <= 0 || math.IsNaN(float64(width)) {
		return 1
	}
	n := int(math.Floor(float64((width + gap) / (minWidth + gap))))
	if n < 1 {
		return 1
	}
	return n
}

// Assign packs n items into columns, always filling the column with the
// smallest running height. Ties go to the lowest column index.
func Assign(n, columns int, itemHeight, gap float32) []Placement {
	if n <= 0 {
		return nil
	}
	if columns < 1 {
		columns = 1
	}

	heights := make([]float32, columns)
	out := make([]Placement, 0, n)
	for i := 0; i < n; i++ {
		col := 0
		for c := 1; c < columns; c++ {
			if heights[c] < heights[col] {
				col = c
			}
		}
		out = append(out, Placement{Index: i, Column: col, Y: heights[col]})
		heights[col] += itemHeight + gap
	}
	return out
}

// ByColumn groups placements per column, keeping item order inside each.
func ByColumn(placements []Placement, columns int) [][]int {
	if columns < 1 {
		columns = 1
	}
	out := make([][]int, columns)
	for _, p := range placements {
		if p.Column >= 0 && p.Column < columns {
			out[p.Column] = append(out[p.Column], p.Index)
		}
	}
	return out
}

type Options struct {
	MinColumnWidth  float32
	Gap             float32
	ItemHeight      float32
	ResizeThreshold float32
	Debounce        time.Duration
}

func DefaultOptions() Options {
	return Options{
		MinColumnWidth:  DefaultMinColumnWidth,
		Gap:             DefaultGap,
		ItemHeight:      DefaultItemHeight,
		ResizeThreshold: DefaultResizeThreshold,
		Debounce:        DefaultDebounce,
	}
}

// Engine keeps the current column count and assignment for a container and
// recomputes them when its width or item count changes.
type Engine struct {
	mu   sync.Mutex
	opts Options
	log  *zap.Logger

	width      float32
	columns    int
	count      int
	placements []Placement

	pending  *time.Timer
	onChange func(columns int, placements []Placement)
}

func NewEngine(opts Options, log *zap.Logger) *Engine {
	if opts.MinColumnWidth <= 0 {
		opts.MinColumnWidth = DefaultMinColumnWidth
	}
	if opts.Gap < 0 {
		opts.Gap = 0
	}
	if opts.ItemHeight <= 0 {
		opts.ItemHeight = DefaultItemHeight
	}
	if opts.ResizeThreshold < 0 {
		opts.ResizeThreshold = 0
	}
	return &Engine{
		opts:    opts,
		log:     logger.OrNop(log).Named("masonry"),
		columns: 1,
	}
}

func (e *Engine) Options() Options {
	return e.opts
}

// OnChange registers fn to run after every recomputation. fn may be called
// from a timer goroutine.
func (e *Engine) OnChange(fn func(columns int, placements []Placement)) {
	e.mu.Lock()
	e.onChange = fn
	e.mu.Unlock()
}

func (e *Engine) Columns() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.columns
}

func (e *Engine) Placements() []Placement {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Placement, len(e.placements))
	copy(out, e.placements)
	return out
}

// SetItemCount recomputes the assignment immediately.
func (e *Engine) SetItemCount(n int) {
	if n < 0 {
		n = 0
	}
	e.mu.Lock()
	if n == e.count && e.placements != nil {
		e.mu.Unlock()
		return
	}
	e.count = n
	e.mu.Unlock()

	e.recompute()
}

// Resize reports a new container width. Changes smaller than the threshold
// are ignored; the rest are coalesced over the debounce interval. A
// non-positive width keeps the last known column count.
func (e *Engine) Resize(width float32) {
	if width <= 0 || math.IsNaN(float64(width)) {
		e.log.Debug("ignoring unusable container width", zap.Float32("width", width))
		return
	}

	e.mu.Lock()
	delta := width - e.width
	if delta < 0 {
		delta = -delta
	}
	if e.width > 0 && delta < e.opts.ResizeThreshold {
		e.mu.Unlock()
		return
	}
	e.width = width

	if e.opts.Debounce <= 0 {
		e.mu.Unlock()
		e.recompute()
		return
	}
	if e.pending != nil {
		e.pending.Stop()
	}
	e.pending = time.AfterFunc(e.opts.Debounce, e.recompute)
	e.mu.Unlock()
}

// Flush applies a pending resize right away.
func (e *Engine) Flush() {
	e.mu.Lock()
	pending := e.pending
	e.pending = nil
	e.mu.Unlock()

	if pending != nil && pending.Stop() {
		e.recompute()
	}
}

// Close cancels any pending recomputation.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pending != nil {
		e.pending.Stop()
		e.pending = nil
	}
}

func (e *Engine) recompute() {
	e.mu.Lock()
	columns := e.columns
	if e.width > 0 {
		columns = Columns(e.width, e.opts.MinColumnWidth, e.opts.Gap)
	}
	changed := columns != e.columns || e.placements == nil || len(e.placements) != e.count
	e.columns = columns
	if changed {
		e.placements = Assign(e.count, columns, e.opts.ItemHeight, e.opts.Gap)
		if e.placements == nil {
			e.placements = []Placement{}
		}
	}
	placements := make([]Placement, len(e.placements))
	copy(placements, e.placements)
	fn := e.onChange
	e.mu.Unlock()

	if !changed {
		return
	}
	e.log.Debug("layout recomputed",
		zap.Int("columns", columns),
		zap.Int("items", len(placements)))
	if fn != nil {
		fn(columns, placements)
	}
}
