// Package playbacktest provides an in-memory media handle for tests of code
// built on the playback package.
package playbacktest

import (
	"context"
	"sync"
	"time"

	"github.com/Alexander-D-Karpov/campanula/pkg/types"
)

// Handle is a types.MediaHandle that plays instantly and never makes a sound.
type Handle struct {
	mu       sync.Mutex
	source   string
	paused   bool
	position time.Duration
	volume   float64
	listener types.MediaListener
	released bool
	plays    int
	playErr  error
}

var _ types.MediaHandle = (*Handle)(nil)

func NewHandle(source string) *Handle {
	return &Handle{source: source, paused: true, volume: 1}
}

func (h *Handle) Source() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.source
}

func (h *Handle) SetSource(src string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.source = src
	return nil
}

func (h *Handle) Play(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.plays++
	if h.playErr != nil {
		return h.playErr
	}
	h.paused = false
	return nil
}

func (h *Handle) Pause() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.paused = true
}

func (h *Handle) Paused() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.paused
}

func (h *Handle) Position() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.position
}

func (h *Handle) SetPosition(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.position = d
}

func (h *Handle) Volume() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.volume
}

func (h *Handle) SetVolume(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.volume = v
}

func (h *Handle) SetListener(l types.MediaListener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listener = l
}

func (h *Handle) Release() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.released = true
	h.source = ""
}

// Emit delivers ev to the current listener.
func (h *Handle) Emit(ev types.MediaEvent) {
	h.mu.Lock()
	l := h.listener
	h.mu.Unlock()
	if l != nil {
		l(ev)
	}
}

// FailWith makes every later Play return err.
func (h *Handle) FailWith(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.playErr = err
}

func (h *Handle) Plays() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.plays
}

func (h *Handle) Released() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}

// Factory creates one Handle per work and keeps the latest per identity.
type Factory struct {
	mu      sync.Mutex
	handles map[types.ItemID]*Handle
}

func NewFactory() *Factory {
	return &Factory{handles: make(map[types.ItemID]*Handle)}
}

func (f *Factory) New(item types.WorkItem) (types.MediaHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := NewHandle(item.Source)
	f.handles[item.Key()] = h
	return h, nil
}

func (f *Factory) Get(id types.ItemID) *Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handles[id]
}

func (f *Factory) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handles)
}

// Work returns a playable work with a two minute duration.
func Work(title string) types.WorkItem {
	return types.WorkItem{
		Title:        title,
		Album:        types.Album{Name: "Test Album", Cover: "https://example.invalid/" + title + ".png"},
		Source:       "https://example.invalid/" + title + ".mp3",
		TotalSeconds: 120,
	}
}
