package components

import (
	"context"
	"errors"
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"github.com/Alexander-D-Karpov/campanula/internal/logger"
	"github.com/Alexander-D-Karpov/campanula/internal/playback"
	"github.com/Alexander-D-Karpov/campanula/pkg/types"
)

var (
	_ fyne.SecondaryTappable = (*PlayerCard)(nil)
	_ types.View             = (*PlayerCard)(nil)
)

// PlayerCard renders one work and forwards user gestures to its session.
type PlayerCard struct {
	widget.BaseWidget

	ctx     context.Context
	session *playback.Session
	log     *zap.Logger

	cover     *CoverImage
	title     *widget.Label
	album     *widget.Label
	playBtn   *widget.Button
	stopBtn   *widget.Button
	progress  *TrackBar
	timeLabel *widget.Label
	loading   *widget.ProgressBarInfinite
	errLabel  *widget.Label
	menu      *ContextMenu
	content   *fyne.Container

	snap     playback.Snapshot
	onChange func(playback.Snapshot)
	closed   bool
}

func NewPlayerCard(ctx context.Context, session *playback.Session, covers CoverLoader, log *zap.Logger) *PlayerCard {
	item := session.Item()
	c := &PlayerCard{
		ctx:     ctx,
		session: session,
		log:     logger.OrNop(log).Named("card").With(zap.String("title", item.Title)),
	}
	c.ExtendBaseWidget(c)

	c.cover = NewCoverImage(covers, fyne.NewSize(220, 220))
	c.cover.SetURL(item.Album.Cover)

	c.title = widget.NewLabelWithStyle(item.Title, fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	c.title.Truncation = fyne.TextTruncateEllipsis
	c.album = widget.NewLabel(item.Album.Name)
	c.album.Importance = widget.LowImportance
	c.album.Truncation = fyne.TextTruncateEllipsis

	c.playBtn = widget.NewButtonWithIcon("", theme.MediaPlayIcon(), c.toggle)
	c.playBtn.Importance = widget.HighImportance
	c.stopBtn = widget.NewButtonWithIcon("", theme.MediaStopIcon(), c.stop)

	c.progress = NewTrackBar(playback.Horizontal)
	c.progress.OnTapped = session.SeekTo
	c.progress.OnDragStart = session.BeginSeek
	c.progress.OnDragged = session.DragSeek
	c.progress.OnDragEnd = session.EndSeek

	c.timeLabel = widget.NewLabel("")
	c.loading = widget.NewProgressBarInfinite()
	c.errLabel = widget.NewLabel("Playback unavailable")
	c.errLabel.Importance = widget.DangerImportance

	c.menu = NewContextMenu(item)
	c.menu.SetCallbacks(c.toggle, c.stop, c.copySource)

	controls := container.NewBorder(nil, nil,
		container.NewHBox(c.playBtn, c.stopBtn), c.timeLabel, c.progress)
	c.content = container.NewVBox(
		c.cover,
		c.title,
		c.album,
		controls,
		c.loading,
		c.errLabel,
	)

	session.OnChange(func(s playback.Snapshot) {
		fyne.Do(func() { c.apply(s) })
	})
	c.apply(session.Snapshot())

	return c
}

func (c *PlayerCard) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(c.content)
}

func (c *PlayerCard) Container() *fyne.Container {
	return c.content
}

func (c *PlayerCard) Session() *playback.Session {
	return c.session
}

func (c *PlayerCard) Snapshot() playback.Snapshot {
	return c.snap
}

// SetOnChange registers fn to run on the UI goroutine after the card shows a
// new session state.
func (c *PlayerCard) SetOnChange(fn func(playback.Snapshot)) {
	c.onChange = fn
}

func (c *PlayerCard) apply(s playback.Snapshot) {
	if c.closed {
		return
	}
	c.snap = s

	if s.IsPlaying || s.State == playback.StateLoading {
		c.playBtn.SetIcon(theme.MediaPauseIcon())
	} else {
		c.playBtn.SetIcon(theme.MediaPlayIcon())
	}
	if c.session.Item().Validate() != nil {
		c.playBtn.Disable()
	}

	if s.HasBeenPlayed || s.State == playback.StatePaused {
		c.stopBtn.Enable()
	} else {
		c.stopBtn.Disable()
	}

	if s.HasBeenPlayed {
		c.progress.Show()
		c.timeLabel.Show()
		c.progress.SetValue(playback.Progress(s.CurrentTime, s.Total))
		c.timeLabel.SetText(fmt.Sprintf("%s / %s",
			playback.FormatTime(s.CurrentTime), playback.FormatTime(s.Total)))
	} else {
		c.progress.Hide()
		c.timeLabel.Hide()
	}

	if s.IsLoading {
		c.loading.Show()
		c.loading.Start()
	} else {
		c.loading.Stop()
		c.loading.Hide()
	}

	if s.Err != nil {
		c.errLabel.Show()
	} else {
		c.errLabel.Hide()
	}

	if c.onChange != nil {
		c.onChange(s)
	}
}

func (c *PlayerCard) toggle() {
	if c.closed {
		return
	}
	go func() {
		err := c.session.Toggle(c.ctx)
		if err != nil && !errors.Is(err, playback.ErrSuperseded) {
			c.log.Debug("toggle did not start playback", zap.Error(err))
		}
	}()
}

func (c *PlayerCard) stop() {
	if c.closed {
		return
	}
	c.session.Stop()
}

func (c *PlayerCard) copySource(source string) {
	app := fyne.CurrentApp()
	if app == nil || source == "" {
		return
	}
	app.Clipboard().SetContent(source)
}

func (c *PlayerCard) TappedSecondary(ev *fyne.PointEvent) {
	if c.closed {
		return
	}
	cnv := fyne.CurrentApp().Driver().CanvasForObject(c)
	c.menu.ShowAt(cnv, ev.AbsolutePosition, c.snap)
}

// Close stops the work if it plays and releases its media handle. The card
// ignores input afterwards.
func (c *PlayerCard) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.menu.Hide()
	c.session.Close()
}
