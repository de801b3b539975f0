package session

import (
	"time"

	"github.com/voicedesk/voicedesk/pkg/core/audio"
)

// accumulator buffers inbound μ-law frames into caller utterances. An
// utterance is cut either when enough audio has piled up (MinFlushDuration)
// or when the caller goes quiet (MaxSilenceGap) with at least MinAudioFloor
// buffered. Shorter tails are noise and get dropped on the silence path.
// While busy reports true the flush decision is deferred and audio keeps
// buffering, so speech during an in-flight cycle is answered next, not lost.
type accumulator struct {
	minFlush   time.Duration
	silenceGap time.Duration
	floor      time.Duration
	sampleRate int
	now        func() time.Time
	busy       func() bool

	buf         []byte
	lastFrameAt time.Time
}

func newAccumulator(cfg Config, now func() time.Time) *accumulator {
	if now == nil {
		now = time.Now
	}
	return &accumulator{
		minFlush:   cfg.MinFlushDuration,
		silenceGap: cfg.MaxSilenceGap,
		floor:      cfg.MinAudioFloor,
		sampleRate: cfg.SampleRate,
		now:        now,
	}
}

func (a *accumulator) buffered() time.Duration {
	return audio.MulawDuration(len(a.buf), a.sampleRate)
}

// add appends one frame and returns a flushed utterance when the buffer
// crosses the flush threshold, nil otherwise.
func (a *accumulator) add(frame []byte) []byte {
	a.lastFrameAt = a.now()
	a.buf = append(a.buf, frame...)
	if a.isBusy() {
		return nil
	}
	if a.buffered() >= a.minFlush {
		return a.take()
	}
	return nil
}

// idle is polled between frames. When the silence gap lapses it returns the
// buffered utterance if it clears the floor, and discards it otherwise.
// Audio held back during a busy cycle flushes here as soon as the cycle
// clears.
func (a *accumulator) idle() []byte {
	if len(a.buf) == 0 || a.lastFrameAt.IsZero() {
		return nil
	}
	if a.isBusy() {
		return nil
	}
	if a.buffered() >= a.minFlush {
		return a.take()
	}
	if a.now().Sub(a.lastFrameAt) < a.silenceGap {
		return nil
	}
	if a.buffered() < a.floor {
		a.buf = nil
		return nil
	}
	return a.take()
}

func (a *accumulator) isBusy() bool {
	return a.busy != nil && a.busy()
}

// hold puts a flushed utterance back at the front of the buffer so a later
// flush re-delivers it.
func (a *accumulator) hold(b []byte) {
	if len(b) == 0 {
		return
	}
	a.buf = append(b, a.buf...)
	if a.lastFrameAt.IsZero() {
		a.lastFrameAt = a.now()
	}
}

// take flushes whatever is buffered regardless of thresholds.
func (a *accumulator) take() []byte {
	if len(a.buf) == 0 {
		return nil
	}
	out := a.buf
	a.buf = nil
	return out
}
