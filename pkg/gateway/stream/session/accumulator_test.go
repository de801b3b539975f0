package session

import (
	"bytes"
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func accTestConfig() Config {
	cfg := DefaultConfig()
	cfg.MinFlushDuration = 800 * time.Millisecond
	cfg.MaxSilenceGap = 2 * time.Second
	cfg.MinAudioFloor = 500 * time.Millisecond
	cfg.SampleRate = 8000
	return cfg
}

// frame20ms is 20ms of audio at 8kHz, one byte per sample.
func frame20ms() []byte { return bytes.Repeat([]byte{0xFF}, 160) }

func TestAccumulatorFlushesAtMinDuration(t *testing.T) {
	clock := newFakeClock()
	a := newAccumulator(accTestConfig(), clock.now)

	// 39 frames = 780ms, still under the threshold
	for i := 0; i < 39; i++ {
		if got := a.add(frame20ms()); got != nil {
			t.Fatalf("flushed early at frame %d (%d bytes)", i, len(got))
		}
		clock.advance(20 * time.Millisecond)
	}
	got := a.add(frame20ms())
	if got == nil {
		t.Fatal("no flush at 800ms")
	}
	if len(got) != 40*160 {
		t.Fatalf("utterance = %d bytes, want %d", len(got), 40*160)
	}
	if a.buffered() != 0 {
		t.Fatalf("buffer not reset, %v left", a.buffered())
	}
}

func TestAccumulatorSilenceGapFlush(t *testing.T) {
	clock := newFakeClock()
	a := newAccumulator(accTestConfig(), clock.now)

	// 600ms of audio: above the floor, below min flush
	for i := 0; i < 30; i++ {
		if got := a.add(frame20ms()); got != nil {
			t.Fatal("flushed before any silence")
		}
		clock.advance(20 * time.Millisecond)
	}

	clock.advance(1900 * time.Millisecond)
	if got := a.idle(); got != nil {
		t.Fatal("flushed before the silence gap lapsed")
	}
	clock.advance(200 * time.Millisecond)
	got := a.idle()
	if got == nil {
		t.Fatal("no flush after the silence gap")
	}
	if len(got) != 30*160 {
		t.Fatalf("utterance = %d bytes, want %d", len(got), 30*160)
	}
}

func TestAccumulatorDropsBelowFloor(t *testing.T) {
	clock := newFakeClock()
	a := newAccumulator(accTestConfig(), clock.now)

	// 200ms of audio, under the floor
	for i := 0; i < 10; i++ {
		a.add(frame20ms())
		clock.advance(20 * time.Millisecond)
	}
	clock.advance(3 * time.Second)
	if got := a.idle(); got != nil {
		t.Fatalf("sub-floor tail flushed: %d bytes", len(got))
	}
	if a.buffered() != 0 {
		t.Fatal("sub-floor tail not discarded")
	}
}

func TestAccumulatorIdleEmptyBuffer(t *testing.T) {
	clock := newFakeClock()
	a := newAccumulator(accTestConfig(), clock.now)
	if got := a.idle(); got != nil {
		t.Fatal("idle on empty buffer flushed")
	}
}

func TestAccumulatorTake(t *testing.T) {
	clock := newFakeClock()
	a := newAccumulator(accTestConfig(), clock.now)
	a.add(frame20ms())
	if got := a.take(); len(got) != 160 {
		t.Fatalf("take = %d bytes, want 160", len(got))
	}
	if got := a.take(); got != nil {
		t.Fatal("second take returned data")
	}
}

func TestAccumulatorDefersFlushWhileBusy(t *testing.T) {
	clock := newFakeClock()
	a := newAccumulator(accTestConfig(), clock.now)
	busy := true
	a.busy = func() bool { return busy }

	// a full second of audio, well past the flush threshold
	for i := 0; i < 50; i++ {
		if got := a.add(frame20ms()); got != nil {
			t.Fatalf("flushed %d bytes while busy", len(got))
		}
		clock.advance(20 * time.Millisecond)
	}
	if got := a.idle(); got != nil {
		t.Fatal("idle flushed while busy")
	}

	busy = false
	got := a.idle()
	if len(got) != 50*160 {
		t.Fatalf("flush after busy = %d bytes, want %d", len(got), 50*160)
	}
}

func TestAccumulatorHoldRestoresAudio(t *testing.T) {
	clock := newFakeClock()
	a := newAccumulator(accTestConfig(), clock.now)

	held := bytes.Repeat([]byte{0x01}, 8000)
	a.hold(held)
	got := a.add(frame20ms())
	if len(got) != 8000+160 {
		t.Fatalf("flush = %d bytes, want %d", len(got), 8000+160)
	}
	if got[0] != 0x01 || got[8000] != 0xFF {
		t.Fatal("held audio not at the front of the buffer")
	}
}
