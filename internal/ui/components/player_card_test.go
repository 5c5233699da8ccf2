package components

import (
	"context"
	"errors"
	"testing"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Alexander-D-Karpov/campanula/internal/playback"
	"github.com/Alexander-D-Karpov/campanula/internal/playback/playbacktest"
	"github.com/Alexander-D-Karpov/campanula/pkg/types"
)

// syncLoader resolves every cover immediately.
type syncLoader struct {
	requested []string
}

func (l *syncLoader) GetResourceAsync(url string, cb func(fyne.Resource, error)) {
	l.requested = append(l.requested, url)
	cb(fyne.NewStaticResource(url, []byte("png")), nil)
}

type cardFixture struct {
	coord   *playback.Coordinator
	factory *playbacktest.Factory
	loader  *syncLoader
}

func newCardFixture(t *testing.T) *cardFixture {
	t.Helper()
	a := test.NewApp()
	t.Cleanup(a.Quit)
	return &cardFixture{
		coord:   playback.NewCoordinator(nil, zaptest.NewLogger(t)),
		factory: playbacktest.NewFactory(),
		loader:  &syncLoader{},
	}
}

func (f *cardFixture) card(t *testing.T, item types.WorkItem) *PlayerCard {
	t.Helper()
	s := playback.NewSession(item, f.coord, f.factory.New, zaptest.NewLogger(t), playback.WithRetryDelay(0))
	c := NewPlayerCard(context.Background(), s, f.loader, zaptest.NewLogger(t))
	t.Cleanup(c.Close)
	return c
}

func TestPlayerCard_InitialState(t *testing.T) {
	f := newCardFixture(t)
	item := playbacktest.Work("Dusk")
	c := f.card(t, item)

	assert.Equal(t, []string{item.Album.Cover}, f.loader.requested)
	assert.Equal(t, item.Album.Cover, c.cover.Resource().Name())
	assert.Equal(t, "Dusk", c.title.Text)
	assert.Equal(t, "Test Album", c.album.Text)

	assert.False(t, c.progress.Visible())
	assert.False(t, c.timeLabel.Visible())
	assert.True(t, c.stopBtn.Disabled())
	assert.False(t, c.playBtn.Disabled())
	assert.False(t, c.loading.Visible())
	assert.False(t, c.errLabel.Visible())
}

func TestPlayerCard_PlayShowsProgress(t *testing.T) {
	f := newCardFixture(t)
	item := playbacktest.Work("Dusk")
	c := f.card(t, item)

	test.Tap(c.playBtn)

	require.Eventually(t, func() bool {
		return f.coord.IsActive(item.Key())
	}, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return c.Snapshot().IsPlaying
	}, time.Second, 5*time.Millisecond)

	assert.True(t, c.progress.Visible())
	assert.Equal(t, "0:00 / 2:00", c.timeLabel.Text)
	assert.False(t, c.stopBtn.Disabled())

	f.factory.Get(item.Key()).Emit(types.MediaEvent{Type: types.EventTimeUpdate, Position: 30 * time.Second})
	assert.Equal(t, "0:30 / 2:00", c.timeLabel.Text)
	assert.Equal(t, 0.25, c.progress.Value())
}

func TestPlayerCard_StopHidesProgress(t *testing.T) {
	f := newCardFixture(t)
	item := playbacktest.Work("Dusk")
	c := f.card(t, item)

	require.NoError(t, c.Session().Play(context.Background()))
	require.True(t, c.Snapshot().HasBeenPlayed)

	test.Tap(c.stopBtn)

	assert.Equal(t, playback.StateStopped, c.Snapshot().State)
	assert.False(t, c.progress.Visible())
	assert.False(t, f.coord.HasActive())
}

func TestPlayerCard_SeekByTapAndDrag(t *testing.T) {
	f := newCardFixture(t)
	item := playbacktest.Work("Dusk")
	c := f.card(t, item)
	require.NoError(t, c.Session().Play(context.Background()))

	c.progress.Resize(fyne.NewSize(200, 12))
	h := f.factory.Get(item.Key())

	c.progress.Tapped(&fyne.PointEvent{Position: fyne.NewPos(100, 6)})
	assert.Equal(t, time.Minute, h.Position())

	c.progress.Dragged(drag(50, 6))
	c.progress.Dragged(drag(150, 6))
	assert.Equal(t, time.Minute, h.Position(), "dragging must not seek the handle")
	assert.True(t, c.Snapshot().IsDragging)

	c.progress.DragEnd()
	assert.Equal(t, 90*time.Second, h.Position())
	assert.False(t, c.Snapshot().IsDragging)
}

func TestPlayerCard_PlayFailureShowsError(t *testing.T) {
	f := newCardFixture(t)
	item := playbacktest.Work("Dusk")
	h := playbacktest.NewHandle(item.Source)
	h.FailWith(errors.New("decode failed"))

	factory := func(types.WorkItem) (types.MediaHandle, error) { return h, nil }
	s := playback.NewSession(item, f.coord, factory, zaptest.NewLogger(t), playback.WithRetryDelay(0))
	c := NewPlayerCard(context.Background(), s, f.loader, nil)
	defer c.Close()

	assert.Error(t, s.Play(context.Background()))
	assert.True(t, c.errLabel.Visible())
	assert.Equal(t, playback.StateIdle, c.Snapshot().State)
	assert.False(t, c.progress.Visible())
}

func TestPlayerCard_EmptySourceDisablesPlay(t *testing.T) {
	f := newCardFixture(t)
	item := playbacktest.Work("Silent")
	item.Source = ""
	c := f.card(t, item)

	assert.True(t, c.playBtn.Disabled())
}

func TestPlayerCard_CloseReleasesHandle(t *testing.T) {
	f := newCardFixture(t)
	item := playbacktest.Work("Dusk")
	c := f.card(t, item)
	require.NoError(t, c.Session().Play(context.Background()))

	c.Close()
	c.Close()

	assert.True(t, f.factory.Get(item.Key()).Released())
	assert.False(t, f.coord.HasActive())
	assert.False(t, f.coord.Registered(item.Key()))

	test.Tap(c.playBtn)
	assert.Equal(t, 1, f.factory.Get(item.Key()).Plays())
}

func TestPlayerCard_OtherCardTakesOver(t *testing.T) {
	f := newCardFixture(t)
	first := f.card(t, playbacktest.Work("First"))
	second := f.card(t, playbacktest.Work("Second"))

	require.NoError(t, first.Session().Play(context.Background()))
	require.NoError(t, second.Session().Play(context.Background()))

	assert.Equal(t, playback.StateIdle, first.Snapshot().State)
	assert.False(t, first.progress.Visible())
	assert.True(t, second.progress.Visible())
}

func TestContextMenu_Entries(t *testing.T) {
	item := playbacktest.Work("Dusk")
	cm := NewContextMenu(item)

	var toggled, stopped int
	var copied string
	cm.SetCallbacks(func() { toggled++ }, func() { stopped++ }, func(s string) { copied = s })

	menu := cm.Menu(playback.Snapshot{State: playback.StateIdle})
	require.Len(t, menu.Items, 4)
	assert.Equal(t, "Play", menu.Items[0].Label)
	assert.True(t, menu.Items[1].Disabled)

	menu = cm.Menu(playback.Snapshot{State: playback.StatePlaying, IsPlaying: true, HasBeenPlayed: true})
	assert.Equal(t, "Pause", menu.Items[0].Label)
	assert.False(t, menu.Items[1].Disabled)

	menu.Items[0].Action()
	menu.Items[1].Action()
	menu.Items[3].Action()
	assert.Equal(t, 1, toggled)
	assert.Equal(t, 1, stopped)
	assert.Equal(t, item.Source, copied)
}
