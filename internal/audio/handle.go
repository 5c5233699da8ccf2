package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/wav"
	"go.uber.org/zap"

	"github.com/Alexander-D-Karpov/campanula/internal/logger"
	"github.com/Alexander-D-Karpov/campanula/pkg/types"
)

const (
	DefaultTick            = 250 * time.Millisecond
	DefaultResampleQuality = 4
)

// Source opens the bytes behind a source locator.
type Source interface {
	Open(ctx context.Context, source string) (ReadSeekCloser, error)
}

type HandleOptions struct {
	Tick            time.Duration
	ResampleQuality int
}

// Handle plays one work through the shared output. It implements
// types.MediaHandle.
type Handle struct {
	mu     sync.Mutex
	source Source
	out    Output
	opts   HandleOptions
	log    *zap.Logger

	src      string
	volume   float64
	listener types.MediaListener

	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	vol      *effects.Volume
	queued   bool
	running  bool
	ended    bool
	seekTo   time.Duration
	released bool
	// failed is set once a decode error of the current stream was reported.
	failed bool

	// gen changes whenever a pending load must be abandoned.
	gen      uint64
	stopTick chan struct{}
}

func NewHandle(source Source, out Output, opts HandleOptions, log *zap.Logger) *Handle {
	if opts.Tick <= 0 {
		opts.Tick = DefaultTick
	}
	if opts.ResampleQuality <= 0 {
		opts.ResampleQuality = DefaultResampleQuality
	}
	return &Handle{
		source: source,
		out:    out,
		opts:   opts,
		log:    logger.OrNop(log).Named("audio"),
		volume: 1,
	}
}

// NewFactory returns a handle factory for the playback sessions.
func NewFactory(source Source, out Output, opts HandleOptions, log *zap.Logger) types.HandleFactory {
	log = logger.OrNop(log)
	return func(item types.WorkItem) (types.MediaHandle, error) {
		if out == nil {
			return nil, errors.New("audio output unavailable")
		}
		h := NewHandle(source, out, opts, log.With(zap.String("title", item.Title)))
		if err := h.SetSource(item.Source); err != nil {
			return nil, err
		}
		return h, nil
	}
}

func (h *Handle) Source() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.src
}

func (h *Handle) SetSource(src string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.released {
		return errors.New("handle released")
	}
	if src == h.src {
		return nil
	}
	h.unloadLocked()
	h.src = src
	return nil
}

// Play loads the source on first use and starts it. It returns
// types.ErrAborted when Pause, Release or another Play overtook the load.
func (h *Handle) Play(ctx context.Context) error {
	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return fmt.Errorf("%w: handle released", types.ErrAborted)
	}
	h.gen++
	gen := h.gen
	if h.streamer != nil {
		h.startLocked()
		h.mu.Unlock()
		return nil
	}
	src := h.src
	h.mu.Unlock()

	if strings.TrimSpace(src) == "" {
		return types.ErrEmptySource
	}

	h.emit(types.MediaEvent{Type: types.EventLoadStart})

	streamer, format, err := h.load(ctx, src)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", types.ErrAborted, ctx.Err())
		}
		h.emit(types.MediaEvent{Type: types.EventError, Err: err})
		return err
	}

	h.mu.Lock()
	if h.released || h.gen != gen || h.src != src {
		h.mu.Unlock()
		_ = streamer.Close()
		h.log.Debug("load overtaken", zap.String("source", src))
		return types.ErrAborted
	}
	h.install(streamer, format)
	h.startLocked()
	h.mu.Unlock()

	h.log.Debug("loaded",
		zap.String("source", src),
		zap.Int("sample_rate", int(format.SampleRate)),
		zap.Duration("length", format.SampleRate.D(streamer.Len())))

	h.emit(types.MediaEvent{Type: types.EventMetadataLoaded})
	h.emit(types.MediaEvent{Type: types.EventCanPlay})
	return nil
}

func (h *Handle) load(ctx context.Context, src string) (beep.StreamSeekCloser, beep.Format, error) {
	rc, err := h.source.Open(ctx, src)
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("open source: %w", err)
	}

	streamer, format, err := decode(src, rc)
	if err != nil {
		_ = rc.Close()
		return nil, beep.Format{}, fmt.Errorf("decode %s: %w", path.Base(src), err)
	}
	return streamer, format, nil
}

func decode(src string, rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
	ext := strings.ToLower(path.Ext(strings.SplitN(src, "?", 2)[0]))
	switch ext {
	case ".wav", ".wave":
		return wav.Decode(rc)
	default:
		return mp3.Decode(rc)
	}
}

// install wires a decoded stream into the volume and pause controls. The
// caller holds h.mu.
func (h *Handle) install(streamer beep.StreamSeekCloser, format beep.Format) {
	h.streamer = streamer
	h.format = format
	h.ended = false
	h.failed = false

	var s beep.Streamer = streamer
	if rate := h.out.SampleRate(); rate != 0 && rate != format.SampleRate {
		s = beep.Resample(h.opts.ResampleQuality, format.SampleRate, rate, streamer)
	}
	h.ctrl = &beep.Ctrl{Streamer: s, Paused: true}
	h.vol = &effects.Volume{Streamer: h.ctrl, Base: 2}
	applyVolume(h.vol, h.volume)

	if h.seekTo > 0 {
		h.seekLocked(h.seekTo)
		h.seekTo = 0
	}
}

func (h *Handle) startLocked() {
	if h.ended {
		h.seekLocked(0)
		h.ended = false
	}

	h.out.Lock()
	h.ctrl.Paused = false
	h.out.Unlock()

	if !h.queued {
		gen := h.gen
		ctrl := h.ctrl
		h.queued = true
		h.out.Play(beep.Seq(h.vol, beep.Callback(func() {
			// Runs inside the output lock.
			go h.finished(ctrl, gen)
		})))
	}

	h.running = true
	h.startTickerLocked()
}

func (h *Handle) finished(ctrl *beep.Ctrl, gen uint64) {
	h.mu.Lock()
	if h.ctrl != ctrl {
		h.mu.Unlock()
		return
	}
	h.queued = false
	h.running = false
	h.ended = true
	h.stopTickerLocked()
	streamErr := h.takeStreamErrLocked()
	src := h.src
	h.mu.Unlock()

	if streamErr != nil {
		h.reportStreamErr(src, streamErr)
		return
	}
	h.log.Debug("ended", zap.Uint64("gen", gen))
	h.emit(types.MediaEvent{Type: types.EventEnded})
}

func (h *Handle) Pause() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.gen++
	h.running = false
	h.stopTickerLocked()
	if h.ctrl != nil {
		h.out.Lock()
		h.ctrl.Paused = true
		h.out.Unlock()
	}
}

func (h *Handle) Paused() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.running
}

func (h *Handle) Position() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.positionLocked()
}

func (h *Handle) positionLocked() time.Duration {
	if h.streamer == nil {
		return h.seekTo
	}
	h.out.Lock()
	n := h.streamer.Position()
	h.out.Unlock()
	return h.format.SampleRate.D(n)
}

// SetPosition seeks; before the source is loaded the position is applied on load.
func (h *Handle) SetPosition(d time.Duration) {
	if d < 0 {
		d = 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.streamer == nil {
		h.seekTo = d
		return
	}
	h.seekLocked(d)
	if h.ended && h.format.SampleRate.N(d) < h.streamer.Len() {
		h.ended = false
	}
}

func (h *Handle) seekLocked(d time.Duration) {
	n := h.format.SampleRate.N(d)
	if n > h.streamer.Len() {
		n = h.streamer.Len()
	}
	if n < 0 {
		n = 0
	}
	h.out.Lock()
	err := h.streamer.Seek(n)
	h.out.Unlock()
	if err != nil {
		h.log.Warn("seek failed", zap.Duration("position", d), zap.Error(err))
	}
}

func (h *Handle) Volume() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.volume
}

func (h *Handle) SetVolume(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	h.volume = v
	if h.vol != nil {
		h.out.Lock()
		applyVolume(h.vol, v)
		h.out.Unlock()
	}
}

// applyVolume maps a linear [0,1] level onto beep's exponential volume.
func applyVolume(vol *effects.Volume, v float64) {
	vol.Volume = (v - 1) * 5
	vol.Silent = v == 0
}

func (h *Handle) SetListener(l types.MediaListener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listener = l
}

// Release stops the handle for good and closes the decoder.
func (h *Handle) Release() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.released {
		return
	}
	h.released = true
	h.unloadLocked()
	h.src = ""
	h.listener = nil
}

func (h *Handle) unloadLocked() {
	h.gen++
	h.running = false
	h.stopTickerLocked()

	if h.ctrl != nil {
		h.out.Lock()
		h.ctrl.Paused = true
		h.ctrl.Streamer = nil
		h.out.Unlock()
	}
	if h.streamer != nil {
		if err := h.streamer.Close(); err != nil {
			h.log.Debug("error closing streamer", zap.Error(err))
		}
	}
	h.streamer = nil
	h.ctrl = nil
	h.vol = nil
	h.queued = false
	h.ended = false
	h.failed = false
	h.seekTo = 0
}

func (h *Handle) startTickerLocked() {
	if h.stopTick != nil {
		return
	}
	stop := make(chan struct{})
	h.stopTick = stop

	go func() {
		ticker := time.NewTicker(h.opts.Tick)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				h.mu.Lock()
				if h.stopTick != stop {
					h.mu.Unlock()
					return
				}
				pos := h.positionLocked()
				streamErr := h.takeStreamErrLocked()
				if streamErr != nil {
					h.stopTickerLocked()
				}
				src := h.src
				h.mu.Unlock()

				if streamErr != nil {
					h.reportStreamErr(src, streamErr)
					return
				}
				h.emit(types.MediaEvent{Type: types.EventTimeUpdate, Position: pos})
			}
		}
	}()
}

// takeStreamErrLocked returns the decoder error of the current stream the
// first time it is seen.
func (h *Handle) takeStreamErrLocked() error {
	if h.streamer == nil || h.failed {
		return nil
	}
	h.out.Lock()
	err := h.streamer.Err()
	h.out.Unlock()
	if err != nil {
		h.failed = true
	}
	return err
}

func (h *Handle) reportStreamErr(src string, err error) {
	h.log.Warn("stream failed", zap.String("source", src), zap.Error(err))
	h.emit(types.MediaEvent{Type: types.EventError, Err: err})
}

func (h *Handle) stopTickerLocked() {
	if h.stopTick != nil {
		close(h.stopTick)
		h.stopTick = nil
	}
}

func (h *Handle) emit(ev types.MediaEvent) {
	h.mu.Lock()
	l := h.listener
	h.mu.Unlock()
	if l != nil {
		l(ev)
	}
}
