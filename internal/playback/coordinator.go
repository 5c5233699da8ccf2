// Package playback coordinates audio playback across every player widget of
// the gallery: at most one work plays at a time, the volume is shared, and
// widgets are reset when another work takes over.
package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Alexander-D-Karpov/campanula/internal/handlers"
	"github.com/Alexander-D-Karpov/campanula/internal/logger"
	"github.com/Alexander-D-Karpov/campanula/pkg/types"
)

const DefaultVolume = 0.7

var (
	// ErrPlaybackFailed wraps the reason a media handle refused to play.
	ErrPlaybackFailed = errors.New("playback failed")
	// ErrSuperseded is returned when another work became active while the
	// play request was pending.
	ErrSuperseded = errors.New("play request superseded")
)

// Deactivation is the payload of handlers.EventDeactivated. Works sharing an
// ItemID are told apart by their handle.
type Deactivation struct {
	ID     types.ItemID
	Handle types.MediaHandle
}

type registration struct {
	id     types.ItemID
	resets []*handlers.Subscription
}

// Coordinator keeps its bookkeeping per handle so that works sharing an
// ItemID still exclude each other.
type Coordinator struct {
	mu  sync.Mutex
	bus *handlers.EventBus
	log *zap.Logger

	active   types.MediaHandle
	activeID types.ItemID
	volume   float64

	handles map[types.MediaHandle]*registration
	engaged map[types.MediaHandle]types.ItemID
	seq     map[types.MediaHandle]uint64
	nextSeq uint64
}

type Option func(*Coordinator)

func WithVolume(v float64) Option {
	return func(c *Coordinator) {
		c.volume = Clamp01(v)
	}
}

func NewCoordinator(bus *handlers.EventBus, log *zap.Logger, opts ...Option) *Coordinator {
	if bus == nil {
		bus = handlers.NewEventBus()
	}
	c := &Coordinator{
		bus:     bus,
		log:     logger.OrNop(log).Named("coordinator"),
		volume:  DefaultVolume,
		handles: make(map[types.MediaHandle]*registration),
		engaged: make(map[types.MediaHandle]types.ItemID),
		seq:     make(map[types.MediaHandle]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coordinator) Bus() *handlers.EventBus {
	return c.bus
}

// IsActive reports whether id owns the active handle and that handle is playing.
func (c *Coordinator) IsActive(id types.ItemID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil && c.activeID == id && !c.active.Paused()
}

// Owns reports whether handle is the active handle.
func (c *Coordinator) Owns(handle types.MediaHandle) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return handle != nil && c.active == handle
}

func (c *Coordinator) ActiveID() (types.ItemID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeID, c.active != nil
}

func (c *Coordinator) HasActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil
}

func (c *Coordinator) Volume() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.volume
}

// Play makes handle the single active handle for id and starts it. Every
// other engaged handle is stopped and reset first, including handles of
// works that share id. Play blocks until the handle reports that playback
// started or was rejected.
func (c *Coordinator) Play(ctx context.Context, handle types.MediaHandle, id types.ItemID) error {
	if handle == nil {
		return fmt.Errorf("%w: %s: nil handle", ErrPlaybackFailed, id)
	}

	c.mu.Lock()
	stopped := c.stopOthersLocked(handle)
	c.registerLocked(id, handle)
	c.engaged[handle] = id
	c.active, c.activeID = handle, id
	seq := c.bumpLocked(handle)
	c.mu.Unlock()

	c.publishDeactivated(stopped)
	c.bus.Publish(handlers.EventActiveChanged, id)

	c.log.Debug("play requested", zap.String("item", id.String()), zap.Uint64("seq", seq))

	err := handle.Play(ctx)

	c.mu.Lock()
	latest := c.seq[handle] == seq
	owned := c.active == handle
	if err != nil && latest && owned {
		c.active, c.activeID = nil, ""
	}
	c.mu.Unlock()

	if err != nil {
		if latest && owned {
			c.bus.Publish(handlers.EventActiveChanged, types.ItemID(""))
		}
		c.log.Debug("play rejected",
			zap.String("item", id.String()),
			zap.Bool("latest", latest),
			zap.Error(err))
		return fmt.Errorf("%w: %s: %w", ErrPlaybackFailed, id, err)
	}

	if !owned {
		// Another work took over while this one was starting.
		handle.Pause()
		c.log.Debug("play superseded", zap.String("item", id.String()))
		return fmt.Errorf("%w: %s", ErrSuperseded, id)
	}

	return nil
}

// Pause pauses id if it is the active work and releases its activeness.
func (c *Coordinator) Pause(id types.ItemID) {
	c.mu.Lock()
	if c.active == nil || c.activeID != id {
		c.mu.Unlock()
		return
	}
	c.active.Pause()
	c.bumpLocked(c.active)
	c.active, c.activeID = nil, ""
	c.mu.Unlock()

	c.log.Debug("paused", zap.String("item", id.String()))
	c.bus.Publish(handlers.EventActiveChanged, types.ItemID(""))
}

// Stop pauses and rewinds the active handle and resets its widget.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if c.active == nil {
		c.activeID = ""
		c.mu.Unlock()
		return
	}
	d := Deactivation{ID: c.activeID, Handle: c.active}
	c.active.Pause()
	c.active.SetPosition(0)
	delete(c.engaged, c.active)
	c.bumpLocked(c.active)
	c.active, c.activeID = nil, ""
	c.mu.Unlock()

	c.log.Debug("stopped", zap.String("item", d.ID.String()))
	c.publishDeactivated([]Deactivation{d})
	c.bus.Publish(handlers.EventActiveChanged, types.ItemID(""))
}

// Disengage forgets that handle was played without touching it.
func (c *Coordinator) Disengage(handle types.MediaHandle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.engaged, handle)
}

func (c *Coordinator) SetVolume(v float64) {
	v = Clamp01(v)

	c.mu.Lock()
	c.volume = v
	for h := range c.handles {
		h.SetVolume(v)
	}
	if c.active != nil {
		c.active.SetVolume(v)
	}
	c.mu.Unlock()

	c.bus.Publish(handlers.EventVolumeChanged, v)
}

// Register records handle as a live handle of id and applies the current volume.
func (c *Coordinator) Register(id types.ItemID, handle types.MediaHandle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registerLocked(id, handle)
}

func (c *Coordinator) registerLocked(id types.ItemID, handle types.MediaHandle) {
	if _, ok := c.handles[handle]; !ok {
		c.handles[handle] = &registration{id: id}
	}
	handle.SetVolume(c.volume)
}

// RegisterResetCallback arranges for cb to run whenever the coordinator
// deactivates handle. The subscription is dropped by Unregister.
func (c *Coordinator) RegisterResetCallback(id types.ItemID, handle types.MediaHandle, cb func()) *handlers.Subscription {
	sub := c.bus.Subscribe(handlers.EventDeactivated, func(data interface{}) {
		if d, ok := data.(Deactivation); ok && d.Handle == handle {
			cb()
		}
	})

	c.mu.Lock()
	c.registerLocked(id, handle)
	reg := c.handles[handle]
	reg.resets = append(reg.resets, sub)
	c.mu.Unlock()

	return sub
}

// Unregister drops every reference the coordinator holds for handle. Other
// handles of id are untouched. It is safe to call with a nil handle and to
// call repeatedly.
func (c *Coordinator) Unregister(id types.ItemID, handle types.MediaHandle) {
	if handle == nil {
		return
	}

	c.mu.Lock()
	var subs []*handlers.Subscription
	if reg, ok := c.handles[handle]; ok {
		subs = reg.resets
		delete(c.handles, handle)
	}
	delete(c.engaged, handle)
	delete(c.seq, handle)
	wasActive := c.active == handle
	if wasActive {
		c.active, c.activeID = nil, ""
	}
	c.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
	if wasActive {
		c.log.Debug("active work unregistered", zap.String("item", id.String()))
		c.bus.Publish(handlers.EventActiveChanged, types.ItemID(""))
	}
}

// Registered reports whether the coordinator holds a handle, reset callback or
// engagement for id.
func (c *Coordinator) Registered(id types.ItemID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, reg := range c.handles {
		if reg.id == id {
			return true
		}
	}
	for _, eid := range c.engaged {
		if eid == id {
			return true
		}
	}
	return false
}

// Engaged reports whether any handle of id has been played and not stopped.
func (c *Coordinator) Engaged(id types.ItemID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, eid := range c.engaged {
		if eid == id {
			return true
		}
	}
	return false
}

// stopOthersLocked pauses and rewinds every engaged handle except keep and
// returns them so the caller can publish deactivation after releasing the
// lock.
func (c *Coordinator) stopOthersLocked(keep types.MediaHandle) []Deactivation {
	var stopped []Deactivation
	for h, id := range c.engaged {
		if h == keep {
			continue
		}
		h.Pause()
		h.SetPosition(0)
		delete(c.engaged, h)
		c.bumpLocked(h)
		stopped = append(stopped, Deactivation{ID: id, Handle: h})
	}

	if c.active != nil && c.active != keep {
		if !containsHandle(stopped, c.active) {
			c.active.Pause()
			c.active.SetPosition(0)
			c.bumpLocked(c.active)
			stopped = append(stopped, Deactivation{ID: c.activeID, Handle: c.active})
		}
		c.active, c.activeID = nil, ""
	}
	return stopped
}

func (c *Coordinator) publishDeactivated(ds []Deactivation) {
	for _, d := range ds {
		c.log.Debug("deactivated", zap.String("item", d.ID.String()))
		c.bus.Publish(handlers.EventDeactivated, d)
	}
}

// bumpLocked invalidates any pending play request of handle.
func (c *Coordinator) bumpLocked(handle types.MediaHandle) uint64 {
	c.nextSeq++
	c.seq[handle] = c.nextSeq
	return c.nextSeq
}

func containsHandle(ds []Deactivation, h types.MediaHandle) bool {
	for _, d := range ds {
		if d.Handle == h {
			return true
		}
	}
	return false
}
