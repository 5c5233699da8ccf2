package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Alexander-D-Karpov/campanula/internal/logger"
	"github.com/Alexander-D-Karpov/campanula/pkg/types"
)

const DefaultRetryDelay = 300 * time.Millisecond

var ErrSessionClosed = errors.New("session closed")

type State int

const (
	StateIdle State = iota
	StateLoading
	StatePlaying
	StatePaused
	StateEnded
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateLoading:
		return "Loading"
	case StatePlaying:
		return "Playing"
	case StatePaused:
		return "Paused"
	case StateEnded:
		return "Ended"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// Snapshot is the read-only visual state of a player widget.
type Snapshot struct {
	State         State
	IsPlaying     bool
	IsLoading     bool
	CurrentTime   time.Duration
	Total         time.Duration
	HasBeenPlayed bool
	IsDragging    bool
	Err           error
}

// Session drives one work's media handle through its playback states. It
// owns the handle; every cross-widget effect goes through the Coordinator.
type Session struct {
	mu      sync.Mutex
	item    types.WorkItem
	id      types.ItemID
	coord   *Coordinator
	factory types.HandleFactory
	log     *zap.Logger

	handle        types.MediaHandle
	state         State
	currentTime   time.Duration
	isLoading     bool
	hasBeenPlayed bool
	isDragging    bool
	err           error

	// intent increments on every user or coordinator driven transition so a
	// stale play completion can tell it was overtaken.
	intent     uint64
	retryDelay time.Duration
	onChange   func(Snapshot)
	closed     bool
	closeOnce  sync.Once
}

type SessionOption func(*Session)

func WithRetryDelay(d time.Duration) SessionOption {
	return func(s *Session) {
		s.retryDelay = d
	}
}

func NewSession(item types.WorkItem, coord *Coordinator, factory types.HandleFactory, log *zap.Logger, opts ...SessionOption) *Session {
	s := &Session{
		item:       item,
		id:         item.Key(),
		coord:      coord,
		factory:    factory,
		retryDelay: DefaultRetryDelay,
		state:      StateIdle,
	}
	s.log = logger.OrNop(log).Named("session").With(
		zap.String("item", s.id.String()),
		zap.String("title", item.Title),
	)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) ID() types.ItemID {
	return s.id
}

func (s *Session) Item() types.WorkItem {
	return s.item
}

func (s *Session) Total() time.Duration {
	return time.Duration(s.item.TotalSeconds * float64(time.Second))
}

// OnChange registers the presentation callback. It is invoked without any
// session lock held, possibly from a media goroutine.
func (s *Session) OnChange(fn func(Snapshot)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		State:         s.state,
		IsPlaying:     s.state == StatePlaying,
		IsLoading:     s.isLoading,
		CurrentTime:   s.currentTime,
		Total:         s.Total(),
		HasBeenPlayed: s.hasBeenPlayed,
		IsDragging:    s.isDragging,
		Err:           s.err,
	}
}

func (s *Session) notify() {
	s.mu.Lock()
	fn := s.onChange
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if fn != nil {
		fn(snap)
	}
}

// Toggle plays the work, or pauses it when it is playing or still loading.
func (s *Session) Toggle(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	playing := s.state == StatePlaying || s.state == StateLoading
	s.mu.Unlock()

	if playing {
		s.Pause()
		return nil
	}
	return s.Play(ctx)
}

// Play starts the work. A rejected request is logged and leaves the widget
// idle. A request aborted by the media layer is retried once, unless the
// session moved on (pause, stop, reset or another play) in the meantime.
func (s *Session) Play(ctx context.Context) error {
	intent, err := s.play(ctx)
	if err == nil || !errors.Is(err, types.ErrAborted) || errors.Is(err, ErrSuperseded) {
		return err
	}
	if !s.retryable(intent) {
		return err
	}

	s.mu.Lock()
	delay := s.retryDelay
	s.mu.Unlock()

	s.log.Debug("play aborted, retrying", zap.Duration("delay", delay))
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return err
	case <-timer.C:
	}

	if !s.retryable(intent) {
		return err
	}
	_, err = s.play(ctx)
	return err
}

// retryable reports whether the failed request intent is still the latest
// transition of the session and no other work became active.
func (s *Session) retryable(intent uint64) bool {
	s.mu.Lock()
	ok := !s.closed && s.intent == intent && s.state == StateIdle
	s.mu.Unlock()
	return ok && !s.coord.HasActive()
}

// play issues one play request and returns its intent alongside the result.
func (s *Session) play(ctx context.Context) (uint64, error) {
	if err := s.item.Validate(); err != nil {
		s.log.Error("refusing to play work", zap.String("source", s.item.Source), zap.Error(err))
		s.mu.Lock()
		s.err = err
		s.isLoading = false
		s.state = StateIdle
		intent := s.intent
		s.mu.Unlock()
		s.notify()
		return intent, err
	}

	handle, err := s.ensureHandle()
	if err != nil {
		s.log.Error("failed to create media handle", zap.String("source", s.item.Source), zap.Error(err))
		s.mu.Lock()
		if !s.closed {
			s.err = err
			s.isLoading = false
			s.state = StateIdle
		}
		intent := s.intent
		s.mu.Unlock()
		s.notify()
		return intent, err
	}

	s.mu.Lock()
	s.intent++
	intent := s.intent
	s.state = StateLoading
	s.isLoading = true
	s.err = nil
	s.mu.Unlock()
	s.notify()

	err = s.coord.Play(ctx, handle, s.id)

	s.mu.Lock()
	if s.intent != intent || s.closed {
		// Paused, stopped or reset while the request was pending.
		s.mu.Unlock()
		if err != nil {
			s.log.Debug("stale play completion", zap.Error(err))
		}
		return intent, err
	}
	s.isLoading = false
	if err != nil {
		s.state = StateIdle
		s.err = err
	} else {
		s.state = StatePlaying
		s.hasBeenPlayed = true
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Error("playback start failed", zap.String("source", s.item.Source), zap.Error(err))
	}
	s.notify()
	return intent, err
}

func (s *Session) ensureHandle() (types.MediaHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}
	if s.handle != nil {
		return s.handle, nil
	}
	if s.factory == nil {
		return nil, errors.New("no media handle factory")
	}

	handle, err := s.factory(s.item)
	if err != nil {
		return nil, fmt.Errorf("create handle: %w", err)
	}
	if handle.Source() != s.item.Source {
		if err := handle.SetSource(s.item.Source); err != nil {
			handle.Release()
			return nil, fmt.Errorf("set source: %w", err)
		}
	}
	handle.SetListener(s.onMediaEvent)

	s.handle = handle
	s.coord.RegisterResetCallback(s.id, handle, s.onDeactivated)

	return handle, nil
}

// Pause pauses the work and releases its activeness.
func (s *Session) Pause() {
	s.mu.Lock()
	if s.state != StatePlaying && s.state != StateLoading {
		s.mu.Unlock()
		return
	}
	s.intent++
	s.state = StatePaused
	s.isLoading = false
	s.mu.Unlock()

	s.coord.Pause(s.id)
	s.notify()
}

// Stop rewinds the work, hides its progress and stops it in the coordinator.
func (s *Session) Stop() {
	s.mu.Lock()
	handle := s.handle
	s.mu.Unlock()

	if s.coord.Owns(handle) {
		s.coord.Stop()
	} else if handle != nil {
		s.coord.Disengage(handle)
	}
	s.reset(StateStopped)
}

func (s *Session) onDeactivated() {
	s.reset(StateIdle)
}

func (s *Session) reset(state State) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.intent++
	handle := s.handle
	s.state = state
	s.currentTime = 0
	s.hasBeenPlayed = false
	s.isLoading = false
	s.isDragging = false
	s.mu.Unlock()

	if handle != nil {
		handle.Pause()
		handle.SetPosition(0)
	}
	s.notify()
}

func (s *Session) onMediaEvent(ev types.MediaEvent) {
	switch ev.Type {
	case types.EventLoadStart:
		s.update(func() bool {
			if s.state != StateLoading && s.state != StatePlaying {
				return false
			}
			s.isLoading = true
			return true
		})

	case types.EventCanPlay, types.EventMetadataLoaded:
		s.update(func() bool {
			changed := s.isLoading
			s.isLoading = false
			return changed
		})

	case types.EventTimeUpdate:
		s.update(func() bool {
			if s.state != StatePlaying || s.isDragging {
				return false
			}
			s.currentTime = ev.Position
			return true
		})

	case types.EventEnded:
		s.mu.Lock()
		handle := s.handle
		s.mu.Unlock()
		if s.coord.Owns(handle) {
			s.log.Debug("playback ended")
			s.coord.Stop()
			s.reset(StateEnded)
		}

	case types.EventError:
		s.log.Error("media error", zap.String("source", s.item.Source), zap.Error(ev.Err))
		s.update(func() bool {
			s.isLoading = false
			s.err = ev.Err
			return true
		})
	}
}

func (s *Session) update(fn func() bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	changed := fn()
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

// SeekTo moves playback to fraction of the work's duration (click on the
// progress bar).
func (s *Session) SeekTo(fraction float64) {
	pos := SeekPosition(fraction, s.Total())

	s.mu.Lock()
	handle := s.handle
	if handle == nil || s.closed {
		s.mu.Unlock()
		return
	}
	s.currentTime = pos
	s.isDragging = false
	s.mu.Unlock()

	handle.SetPosition(pos)
	s.notify()
}

// BeginSeek starts a progress drag. Until EndSeek the handle position is left
// untouched.
func (s *Session) BeginSeek(fraction float64) {
	pos := SeekPosition(fraction, s.Total())
	s.update(func() bool {
		if s.handle == nil {
			return false
		}
		s.isDragging = true
		s.currentTime = pos
		return true
	})
}

func (s *Session) DragSeek(fraction float64) {
	pos := SeekPosition(fraction, s.Total())
	s.update(func() bool {
		if !s.isDragging {
			return false
		}
		s.currentTime = pos
		return true
	})
}

// EndSeek commits the dragged position to the handle.
func (s *Session) EndSeek() {
	s.mu.Lock()
	if !s.isDragging || s.closed {
		s.mu.Unlock()
		return
	}
	s.isDragging = false
	pos := s.currentTime
	handle := s.handle
	s.mu.Unlock()

	if handle != nil {
		handle.SetPosition(pos)
	}
	s.notify()
}

// Close tears the session down: the handle is paused, unwired and released,
// and the coordinator forgets the work. Only the first call has an effect.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.intent++
		handle := s.handle
		s.handle = nil
		s.onChange = nil
		s.mu.Unlock()

		if handle != nil {
			handle.Pause()
			handle.SetListener(nil)
			handle.Release()
		}
		s.coord.Unregister(s.id, handle)
		s.log.Debug("session closed")
	})
}
