package types

import (
	"context"
	"errors"
	"time"

	"fyne.io/fyne/v2"
)

// ErrAborted is returned by MediaHandle.Play when the request was interrupted
// by a pause, a release or a newer play request before playback started.
var ErrAborted = errors.New("play request aborted")

// MediaEventType enumerates the signals a media handle emits.
type MediaEventType int

const (
	EventLoadStart MediaEventType = iota
	EventCanPlay
	EventMetadataLoaded
	EventTimeUpdate
	EventEnded
	EventError
)

func (t MediaEventType) String() string {
	switch t {
	case EventLoadStart:
		return "load-start"
	case EventCanPlay:
		return "can-play"
	case EventMetadataLoaded:
		return "metadata-loaded"
	case EventTimeUpdate:
		return "time-update"
	case EventEnded:
		return "ended"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

type MediaEvent struct {
	Type     MediaEventType
	Position time.Duration
	Err      error
}

// MediaListener receives media events. Listeners may be called from any goroutine.
type MediaListener func(MediaEvent)

// MediaHandle is the audio playback capability a player widget owns.
type MediaHandle interface {
	Source() string
	SetSource(src string) error
	// Play starts playback and blocks until it has started or was rejected.
	Play(ctx context.Context) error
	Pause()
	Paused() bool
	Position() time.Duration
	SetPosition(pos time.Duration)
	Volume() float64
	SetVolume(v float64)
	SetListener(l MediaListener)
	// Release clears the source and drops any buffered data.
	Release()
}

// HandleFactory creates the media handle for a work.
type HandleFactory func(item WorkItem) (MediaHandle, error)

// View defines the interface for UI components
type View interface {
	Container() *fyne.Container
	Refresh()
}
