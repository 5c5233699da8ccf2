package playback

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Alexander-D-Karpov/campanula/internal/handlers"
	"github.com/Alexander-D-Karpov/campanula/pkg/types"
)

type sessionFixture struct {
	coord   *Coordinator
	factory *fakeFactory
	logs    *observer.ObservedLogs
	log     *zap.Logger
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	log := zap.New(core)
	return &sessionFixture{
		coord:   NewCoordinator(handlers.NewEventBus(), log),
		factory: newFakeFactory(),
		logs:    logs,
		log:     log,
	}
}

func (f *sessionFixture) session(item types.WorkItem, opts ...SessionOption) *Session {
	return NewSession(item, f.coord, f.factory.New, f.log, opts...)
}

func TestSession_PlayPause(t *testing.T) {
	f := newSessionFixture(t)
	s := f.session(testItem("one"))
	ctx := context.Background()

	assert.Equal(t, StateIdle, s.Snapshot().State)

	require.NoError(t, s.Toggle(ctx))
	snap := s.Snapshot()
	assert.Equal(t, StatePlaying, snap.State)
	assert.True(t, snap.IsPlaying)
	assert.False(t, snap.IsLoading)
	assert.True(t, snap.HasBeenPlayed)
	assert.True(t, f.coord.IsActive(s.ID()))

	h := f.factory.get(s.ID())
	require.NotNil(t, h)
	assert.Equal(t, testItem("one").Source, h.Source())
	h.emit(types.MediaEvent{Type: types.EventTimeUpdate, Position: 30 * time.Second})

	require.NoError(t, s.Toggle(ctx))
	snap = s.Snapshot()
	assert.Equal(t, StatePaused, snap.State)
	assert.True(t, snap.HasBeenPlayed)
	assert.Equal(t, 30*time.Second, snap.CurrentTime)
	assert.False(t, f.coord.IsActive(s.ID()))

	require.NoError(t, s.Toggle(ctx))
	assert.Equal(t, StatePlaying, s.Snapshot().State)
	assert.Equal(t, 1, f.factory.created)
}

func TestSession_StopResetsStickyFlag(t *testing.T) {
	f := newSessionFixture(t)
	s := f.session(testItem("one"))

	require.NoError(t, s.Play(context.Background()))
	h := f.factory.get(s.ID())
	h.emit(types.MediaEvent{Type: types.EventTimeUpdate, Position: 12 * time.Second})
	require.Equal(t, 12*time.Second, s.Snapshot().CurrentTime)

	s.Stop()

	snap := s.Snapshot()
	assert.Equal(t, StateStopped, snap.State)
	assert.False(t, snap.HasBeenPlayed)
	assert.Equal(t, time.Duration(0), snap.CurrentTime)
	assert.Equal(t, time.Duration(0), h.Position())
	assert.True(t, h.Paused())
	assert.False(t, f.coord.HasActive())
	assert.False(t, f.coord.Engaged(s.ID()))
}

func TestSession_StopWhilePausedDisengages(t *testing.T) {
	f := newSessionFixture(t)
	s := f.session(testItem("one"))

	require.NoError(t, s.Play(context.Background()))
	s.Pause()
	require.True(t, f.coord.Engaged(s.ID()))

	s.Stop()

	assert.False(t, f.coord.Engaged(s.ID()))
	assert.False(t, s.Snapshot().HasBeenPlayed)
}

func TestSession_OtherPlayResetsWidget(t *testing.T) {
	f := newSessionFixture(t)
	a := f.session(testItem("a"))
	b := f.session(testItem("b"))
	ctx := context.Background()

	require.NoError(t, a.Play(ctx))
	f.factory.get(a.ID()).emit(types.MediaEvent{Type: types.EventTimeUpdate, Position: 5 * time.Second})

	require.NoError(t, b.Play(ctx))

	snapA := a.Snapshot()
	assert.Equal(t, StateIdle, snapA.State)
	assert.False(t, snapA.HasBeenPlayed)
	assert.Equal(t, time.Duration(0), snapA.CurrentTime)
	assert.True(t, f.factory.get(a.ID()).Paused())

	assert.False(t, f.coord.IsActive(a.ID()))
	assert.True(t, f.coord.IsActive(b.ID()))
}

func TestSession_EndedRunsStop(t *testing.T) {
	f := newSessionFixture(t)
	s := f.session(testItem("one"))
	require.NoError(t, s.Play(context.Background()))

	f.factory.get(s.ID()).emit(types.MediaEvent{Type: types.EventEnded})

	snap := s.Snapshot()
	assert.Equal(t, StateEnded, snap.State)
	assert.False(t, snap.HasBeenPlayed)
	assert.False(t, f.coord.HasActive())
}

func TestSession_EndedIgnoredWhenNotActive(t *testing.T) {
	f := newSessionFixture(t)
	s := f.session(testItem("one"))
	require.NoError(t, s.Play(context.Background()))
	s.Pause()

	f.factory.get(s.ID()).emit(types.MediaEvent{Type: types.EventEnded})

	assert.Equal(t, StatePaused, s.Snapshot().State)
	assert.True(t, s.Snapshot().HasBeenPlayed)
}

func TestSession_EmptySourceRefused(t *testing.T) {
	f := newSessionFixture(t)
	item := testItem("blank")
	item.Source = "   "
	s := f.session(item)

	err := s.Toggle(context.Background())

	assert.ErrorIs(t, err, types.ErrEmptySource)
	snap := s.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.False(t, snap.IsLoading)
	assert.Equal(t, 0, f.factory.created)
	assert.Equal(t, 1, f.logs.FilterMessage("refusing to play work").Len())
}

func TestSession_PlayFailureReturnsToIdle(t *testing.T) {
	f := newSessionFixture(t)
	s := f.session(testItem("broken"))
	decodeErr := errors.New("decode failed")

	_, err := s.ensureHandle()
	require.NoError(t, err)
	f.factory.get(s.ID()).setPlayErr(decodeErr)

	err = s.Play(context.Background())

	assert.ErrorIs(t, err, decodeErr)
	snap := s.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.False(t, snap.IsLoading)
	assert.False(t, snap.HasBeenPlayed)
	assert.False(t, f.coord.HasActive())

	entries := f.logs.FilterMessage("playback start failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, testItem("broken").Source, entries[0].ContextMap()["source"])
	assert.Equal(t, 1, f.factory.get(s.ID()).playCount())
}

func TestSession_AbortedPlayRetriesOnce(t *testing.T) {
	f := newSessionFixture(t)
	s := f.session(testItem("retry"), WithRetryDelay(time.Millisecond))

	_, err := s.ensureHandle()
	require.NoError(t, err)
	h := f.factory.get(s.ID())
	h.setPlayErr(types.ErrAborted)

	err = s.Play(context.Background())

	assert.ErrorIs(t, err, types.ErrAborted)
	assert.Equal(t, 2, h.playCount())
	assert.Equal(t, StateIdle, s.Snapshot().State)
}

func TestSession_RuntimeErrorLogged(t *testing.T) {
	f := newSessionFixture(t)
	s := f.session(testItem("net"))
	require.NoError(t, s.Play(context.Background()))

	netErr := errors.New("connection reset")
	f.factory.get(s.ID()).emit(types.MediaEvent{Type: types.EventError, Err: netErr})

	snap := s.Snapshot()
	assert.Equal(t, StatePlaying, snap.State)
	assert.False(t, snap.IsLoading)
	assert.ErrorIs(t, snap.Err, netErr)

	entries := f.logs.FilterMessage("media error").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "net", fields["title"])
	assert.Equal(t, testItem("net").Source, fields["source"])
}

func TestSession_LoadingSignals(t *testing.T) {
	f := newSessionFixture(t)
	s := f.session(testItem("one"))
	require.NoError(t, s.Play(context.Background()))
	h := f.factory.get(s.ID())

	h.emit(types.MediaEvent{Type: types.EventLoadStart})
	assert.True(t, s.Snapshot().IsLoading)

	h.emit(types.MediaEvent{Type: types.EventCanPlay})
	assert.False(t, s.Snapshot().IsLoading)
}

func TestSession_SeekDragDefersHandleUpdate(t *testing.T) {
	f := newSessionFixture(t)
	s := f.session(testItem("one"))
	require.NoError(t, s.Play(context.Background()))
	h := f.factory.get(s.ID())

	s.BeginSeek(0.25)
	s.DragSeek(0.5)
	h.emit(types.MediaEvent{Type: types.EventTimeUpdate, Position: 3 * time.Second})

	snap := s.Snapshot()
	assert.True(t, snap.IsDragging)
	assert.Equal(t, 60*time.Second, snap.CurrentTime)
	assert.Equal(t, time.Duration(0), h.Position())

	s.EndSeek()

	assert.False(t, s.Snapshot().IsDragging)
	assert.Equal(t, 60*time.Second, h.Position())
}

func TestSession_SeekClamps(t *testing.T) {
	f := newSessionFixture(t)
	s := f.session(testItem("one"))
	require.NoError(t, s.Play(context.Background()))
	h := f.factory.get(s.ID())

	tests := []struct {
		fraction float64
		want     time.Duration
	}{
		{-0.5, 0},
		{0.5, 60 * time.Second},
		{1.5, 120 * time.Second},
	}
	for _, tt := range tests {
		s.SeekTo(tt.fraction)
		assert.Equal(t, tt.want, h.Position())
		assert.Equal(t, tt.want, s.Snapshot().CurrentTime)
	}
}

func TestSession_CloseIdempotent(t *testing.T) {
	f := newSessionFixture(t)
	s := f.session(testItem("one"))
	require.NoError(t, s.Play(context.Background()))
	h := f.factory.get(s.ID())

	assert.NotPanics(t, func() {
		s.Close()
		s.Close()
	})

	assert.True(t, h.Paused())
	assert.True(t, h.isReleased())
	assert.False(t, h.hasListener())
	assert.False(t, f.coord.Registered(s.ID()))
	assert.False(t, f.coord.HasActive())
	assert.ErrorIs(t, s.Toggle(context.Background()), ErrSessionClosed)
}

func TestSession_CloseNeverPlayed(t *testing.T) {
	f := newSessionFixture(t)
	s := f.session(testItem("one"))

	assert.NotPanics(t, s.Close)
	assert.False(t, f.coord.Registered(s.ID()))
}

func TestSession_OnChange(t *testing.T) {
	f := newSessionFixture(t)
	s := f.session(testItem("one"))

	var states []State
	s.OnChange(func(snap Snapshot) { states = append(states, snap.State) })

	require.NoError(t, s.Play(context.Background()))

	require.NotEmpty(t, states)
	assert.Equal(t, StateLoading, states[0])
	assert.Equal(t, StatePlaying, states[len(states)-1])
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "Playing", StatePlaying.String())
	assert.Equal(t, "Unknown", State(42).String())
}

// startHeldPlay begins a play request that stays pending until the handle is
// paused.
func startHeldPlay(t *testing.T, f *sessionFixture, s *Session) (*fakeHandle, <-chan error) {
	t.Helper()
	_, err := s.ensureHandle()
	require.NoError(t, err)
	h := f.factory.get(s.ID())
	h.holdUntilPause()

	done := make(chan error, 1)
	go func() { done <- s.Play(context.Background()) }()

	require.Eventually(t, func() bool {
		return s.Snapshot().State == StateLoading && f.coord.Owns(h)
	}, time.Second, time.Millisecond)
	return h, done
}

func TestSession_StopDuringLoadIsNotRetried(t *testing.T) {
	f := newSessionFixture(t)
	s := f.session(testItem("slow"), WithRetryDelay(time.Millisecond))
	h, done := startHeldPlay(t, f, s)

	s.Stop()

	assert.ErrorIs(t, <-done, types.ErrAborted)
	snap := s.Snapshot()
	assert.Equal(t, StateStopped, snap.State)
	assert.False(t, snap.IsLoading)
	assert.True(t, h.Paused())
	assert.Equal(t, 0, h.playCount())
	assert.False(t, f.coord.HasActive())
	assert.Equal(t, 0, f.logs.FilterMessage("play aborted, retrying").Len())
}

func TestSession_PauseDuringLoadIsNotRetried(t *testing.T) {
	f := newSessionFixture(t)
	s := f.session(testItem("slow"), WithRetryDelay(time.Millisecond))
	h, done := startHeldPlay(t, f, s)

	s.Pause()

	assert.ErrorIs(t, <-done, types.ErrAborted)
	assert.Equal(t, StatePaused, s.Snapshot().State)
	assert.True(t, h.Paused())
	assert.Equal(t, 0, h.playCount())
	assert.False(t, f.coord.HasActive())
}

func TestSession_ToggleWhileLoadingPauses(t *testing.T) {
	f := newSessionFixture(t)
	s := f.session(testItem("slow"), WithRetryDelay(time.Millisecond))
	h, done := startHeldPlay(t, f, s)

	require.NoError(t, s.Toggle(context.Background()))

	assert.ErrorIs(t, <-done, types.ErrAborted)
	assert.Equal(t, StatePaused, s.Snapshot().State)
	assert.Equal(t, 0, h.playCount())
	assert.False(t, f.coord.HasActive())
}

func TestSession_AbortWithoutUserActionStillRetries(t *testing.T) {
	f := newSessionFixture(t)
	s := f.session(testItem("flaky"), WithRetryDelay(time.Millisecond))

	_, err := s.ensureHandle()
	require.NoError(t, err)
	h := f.factory.get(s.ID())
	h.holdUntilPause()
	// Release the hold without any session transition.
	h.Pause()

	require.NoError(t, s.Play(context.Background()))
	assert.Equal(t, StatePlaying, s.Snapshot().State)
	assert.Equal(t, 1, h.playCount())
	assert.Equal(t, 1, f.logs.FilterMessage("play aborted, retrying").Len())
}

// sharedIDSessions returns two sessions of one work, each with its own handle.
func sharedIDSessions(f *sessionFixture) (a, b *Session, handles func() []*fakeHandle) {
	var created []*fakeHandle
	factory := func(types.WorkItem) (types.MediaHandle, error) {
		h := newFakeHandle("")
		created = append(created, h)
		return h, nil
	}
	item := testItem("twin")
	a = NewSession(item, f.coord, factory, f.log)
	b = NewSession(item, f.coord, factory, f.log)
	return a, b, func() []*fakeHandle { return created }
}

func TestSession_SharedIDPlayResetsSibling(t *testing.T) {
	f := newSessionFixture(t)
	a, b, handles := sharedIDSessions(f)
	ctx := context.Background()

	require.NoError(t, a.Play(ctx))
	require.NoError(t, b.Play(ctx))

	hs := handles()
	require.Len(t, hs, 2)
	assert.True(t, hs[0].Paused())
	assert.False(t, hs[1].Paused())
	assert.Equal(t, StateIdle, a.Snapshot().State)
	assert.Equal(t, StatePlaying, b.Snapshot().State)
}

func TestSession_ClosingSharedIDSiblingKeepsExclusion(t *testing.T) {
	f := newSessionFixture(t)
	a, b, handles := sharedIDSessions(f)
	other := f.session(testItem("other"))
	ctx := context.Background()

	require.NoError(t, b.Play(ctx))
	a.Close()
	require.True(t, f.coord.IsActive(b.ID()))

	require.NoError(t, other.Play(ctx))

	hs := handles()
	require.Len(t, hs, 1)
	assert.True(t, hs[0].Paused())
	assert.Equal(t, StateIdle, b.Snapshot().State)
	assert.Equal(t, StatePlaying, other.Snapshot().State)
}

func TestSession_StopOnlyStopsOwnHandle(t *testing.T) {
	f := newSessionFixture(t)
	a, b, handles := sharedIDSessions(f)
	ctx := context.Background()

	require.NoError(t, a.Play(ctx))
	a.Pause()
	require.NoError(t, b.Play(ctx))

	a.Stop()

	hs := handles()
	assert.False(t, hs[1].Paused())
	assert.Equal(t, StatePlaying, b.Snapshot().State)
	assert.True(t, f.coord.HasActive())
}

func TestSession_FractionalDuration(t *testing.T) {
	f := newSessionFixture(t)
	item := testItem("short")
	item.TotalSeconds = 90.5
	s := f.session(item)

	assert.Equal(t, 90500*time.Millisecond, s.Total())
	require.NoError(t, s.Play(context.Background()))
	s.SeekTo(1)
	assert.Equal(t, 90500*time.Millisecond, f.factory.get(s.ID()).Position())
}
