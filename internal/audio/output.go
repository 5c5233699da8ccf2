package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
	"go.uber.org/zap"
)

// Output mixes the streamers of every handle. Lock guards any change to a
// streamer that is already playing.
type Output interface {
	Play(s beep.Streamer)
	Lock()
	Unlock()
	SampleRate() beep.SampleRate
}

var (
	speakerMu  sync.Mutex
	speakerOut *speakerOutput
)

type speakerOutput struct {
	rate beep.SampleRate
}

// Speaker initialises the system speaker once and returns it as an Output.
// Later calls return the same output regardless of their arguments.
func Speaker(sampleRate int, buffer time.Duration, log *zap.Logger) (Output, error) {
	speakerMu.Lock()
	defer speakerMu.Unlock()

	if speakerOut != nil {
		return speakerOut, nil
	}

	rate := beep.SampleRate(sampleRate)
	if buffer <= 0 {
		buffer = 100 * time.Millisecond
	}
	if err := speaker.Init(rate, rate.N(buffer)); err != nil {
		return nil, fmt.Errorf("speaker initialization failed: %w", err)
	}

	speakerOut = &speakerOutput{rate: rate}
	if log != nil {
		log.Info("speaker initialised",
			zap.Int("sample_rate", sampleRate),
			zap.Duration("buffer", buffer))
	}
	return speakerOut, nil
}

func (s *speakerOutput) Play(st beep.Streamer)       { speaker.Play(st) }
func (s *speakerOutput) Lock()                       { speaker.Lock() }
func (s *speakerOutput) Unlock()                     { speaker.Unlock() }
func (s *speakerOutput) SampleRate() beep.SampleRate { return s.rate }

// CloseSpeaker stops every sound and shuts the speaker down.
func CloseSpeaker() {
	speakerMu.Lock()
	defer speakerMu.Unlock()

	if speakerOut == nil {
		return
	}
	speaker.Clear()
	speaker.Close()
	speakerOut = nil
}
