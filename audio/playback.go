package audio

import (
	"log"
	"sync"
	"time"
)

// Clock abstracts wall time so scheduling is testable
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer matches the subset of time.Timer the scheduler needs
type Timer interface {
	Stop() bool
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// NewRealClock returns a Clock backed by the system clock
func NewRealClock() Clock { return realClock{} }

// Sink starts immediate playback of a decoded chunk and returns a stoppable handle
type Sink interface {
	Play(samples []float32) (PlayerHandle, error)
}

// PlayerHandle stops an in-flight chunk and releases its resources
type PlayerHandle interface {
	Stop()
}

// Scheduler queues decoded playback chunks back-to-back with no gaps and no
// overlap. A cursor tracks the next free playback slot; Interrupt cuts every
// outstanding chunk instantly for barge-in.
type Scheduler struct {
	mu          sync.Mutex
	clock       Clock
	sink        Sink
	sampleRate  int
	cursor      time.Time
	outstanding map[*chunk]struct{}
	playing     *chunk
	onIdle      func()
}

type chunk struct {
	samples    []float32
	start      time.Time
	duration   time.Duration
	startTimer Timer
	doneTimer  Timer
	handle     PlayerHandle
}

// NewScheduler creates a playback scheduler. onIdle fires whenever the
// outstanding set drains back to empty; it may be nil.
func NewScheduler(clock Clock, sink Sink, sampleRate int, onIdle func()) *Scheduler {
	return &Scheduler{
		clock:       clock,
		sink:        sink,
		sampleRate:  sampleRate,
		outstanding: make(map[*chunk]struct{}),
		onIdle:      onIdle,
	}
}

// Enqueue schedules a decoded chunk at the cursor. The cursor never points
// into the past: a chunk arriving after silence starts now, a chunk arriving
// mid-stream starts exactly when the previous one ends.
func (s *Scheduler) Enqueue(samples []float32) {
	if len(samples) == 0 {
		return
	}
	dur := time.Duration(len(samples)) * time.Second / time.Duration(s.sampleRate)

	s.mu.Lock()
	now := s.clock.Now()
	if s.cursor.Before(now) {
		s.cursor = now
	}
	c := &chunk{samples: samples, start: s.cursor, duration: dur}
	s.cursor = s.cursor.Add(dur)
	s.outstanding[c] = struct{}{}
	c.startTimer = s.clock.AfterFunc(c.start.Sub(now), func() { s.startChunk(c) })
	c.doneTimer = s.clock.AfterFunc(c.start.Add(dur).Sub(now), func() { s.finishChunk(c) })
	s.mu.Unlock()
}

func (s *Scheduler) startChunk(c *chunk) {
	s.mu.Lock()
	if _, ok := s.outstanding[c]; !ok {
		s.mu.Unlock()
		return
	}
	handle, err := s.sink.Play(c.samples)
	if err != nil {
		log.Printf("⚠️ playback sink error: %v", err)
		delete(s.outstanding, c)
		idle := len(s.outstanding) == 0
		s.mu.Unlock()
		if idle {
			s.signalIdle()
		}
		return
	}
	c.handle = handle
	s.playing = c
	s.mu.Unlock()
}

func (s *Scheduler) finishChunk(c *chunk) {
	s.mu.Lock()
	if _, ok := s.outstanding[c]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.outstanding, c)
	if c.handle != nil {
		c.handle.Stop()
	}
	if s.playing == c {
		s.playing = nil
	}
	idle := len(s.outstanding) == 0
	s.mu.Unlock()
	if idle {
		s.signalIdle()
	}
}

// Interrupt stops every outstanding chunk immediately and resets the cursor
// to the current clock time. Safe to call with nothing outstanding.
func (s *Scheduler) Interrupt() {
	s.mu.Lock()
	hadChunks := len(s.outstanding) > 0
	for c := range s.outstanding {
		c.startTimer.Stop()
		c.doneTimer.Stop()
		if c.handle != nil {
			c.handle.Stop()
		}
		delete(s.outstanding, c)
	}
	s.playing = nil
	s.cursor = s.clock.Now()
	s.mu.Unlock()
	if hadChunks {
		s.signalIdle()
	}
}

func (s *Scheduler) signalIdle() {
	if s.onIdle != nil {
		s.onIdle()
	}
}

// Speaking reports whether any chunk is scheduled or playing
func (s *Scheduler) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.outstanding) > 0
}

// Snapshot returns n amplitude bars sampled around the current playhead, for
// the visualizer. All zeros when nothing is playing.
func (s *Scheduler) Snapshot(n int) []float32 {
	bars := make([]float32, n)

	s.mu.Lock()
	c := s.playing
	var offset int
	if c != nil {
		elapsed := s.clock.Now().Sub(c.start)
		offset = int(elapsed.Seconds() * float64(s.sampleRate))
	}
	s.mu.Unlock()

	if c == nil || offset < 0 || offset >= len(c.samples) {
		return bars
	}

	// peak-per-segment over a ~40ms window ending at the playhead
	window := s.sampleRate / 25
	lo := offset - window
	if lo < 0 {
		lo = 0
	}
	seg := (offset - lo) / n
	if seg == 0 {
		return bars
	}
	for i := 0; i < n; i++ {
		var peak float32
		for j := lo + i*seg; j < lo+(i+1)*seg && j < len(c.samples); j++ {
			v := c.samples[j]
			if v < 0 {
				v = -v
			}
			if v > peak {
				peak = v
			}
		}
		bars[i] = peak
	}
	return bars
}
