package playback

import (
	"context"
	"sync"
	"time"

	"github.com/Alexander-D-Karpov/campanula/pkg/types"
)

type fakeHandle struct {
	mu       sync.Mutex
	source   string
	paused   bool
	position time.Duration
	volume   float64
	listener types.MediaListener
	released bool
	plays    int

	// playErr is returned by the next Play calls.
	playErr error
	// gate, when set, blocks Play until it is closed.
	gate chan struct{}
	// hold, when set, blocks the next Play until Pause and then rejects it
	// with types.ErrAborted, the way a load interrupted by a pause ends.
	hold       chan struct{}
	holdClosed bool
}

func newFakeHandle(source string) *fakeHandle {
	return &fakeHandle{source: source, paused: true, volume: 1}
}

func (h *fakeHandle) Source() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.source
}

func (h *fakeHandle) SetSource(src string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.source = src
	return nil
}

func (h *fakeHandle) Play(ctx context.Context) error {
	h.mu.Lock()
	gate, hold := h.gate, h.hold
	h.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
			h.mu.Lock()
			h.hold, h.holdClosed = nil, false
			h.mu.Unlock()
			return types.ErrAborted
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
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

func (h *fakeHandle) Pause() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.paused = true
	if h.hold != nil && !h.holdClosed {
		close(h.hold)
		h.holdClosed = true
	}
}

func (h *fakeHandle) Paused() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.paused
}

func (h *fakeHandle) Position() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.position
}

func (h *fakeHandle) SetPosition(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.position = d
}

func (h *fakeHandle) Volume() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.volume
}

func (h *fakeHandle) SetVolume(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.volume = v
}

func (h *fakeHandle) SetListener(l types.MediaListener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listener = l
}

func (h *fakeHandle) Release() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.released = true
	h.source = ""
}

func (h *fakeHandle) emit(ev types.MediaEvent) {
	h.mu.Lock()
	l := h.listener
	h.mu.Unlock()
	if l != nil {
		l(ev)
	}
}

func (h *fakeHandle) holdUntilPause() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hold, h.holdClosed = make(chan struct{}), false
}

func (h *fakeHandle) setPlayErr(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.playErr = err
}

func (h *fakeHandle) playCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.plays
}

func (h *fakeHandle) isReleased() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}

func (h *fakeHandle) hasListener() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.listener != nil
}

// fakeFactory hands out one fakeHandle per item and remembers them.
type fakeFactory struct {
	mu      sync.Mutex
	handles map[types.ItemID]*fakeHandle
	created int
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{handles: make(map[types.ItemID]*fakeHandle)}
}

func (f *fakeFactory) New(item types.WorkItem) (types.MediaHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := newFakeHandle("")
	f.handles[item.Key()] = h
	f.created++
	return h, nil
}

func (f *fakeFactory) get(id types.ItemID) *fakeHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handles[id]
}

func testItem(title string) types.WorkItem {
	return types.WorkItem{
		Title:        title,
		Album:        types.Album{Name: "Test Album"},
		Source:       "https://example.invalid/" + title + ".mp3",
		TotalSeconds: 120,
	}
}
