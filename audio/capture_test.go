package audio

import (
	"encoding/binary"
	"math"
	"sync"
	"testing"
	"time"
)

// primeCapture puts a capture into the running state without a hardware
// device so the data callback path can be exercised directly.
func primeCapture(c *Capture, sink FrameSink) {
	c.mu.Lock()
	c.running = true
	c.sink = sink
	c.mu.Unlock()
}

func rawF32Input(samples []float32) []byte {
	out := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(s))
	}
	return out
}

func TestCaptureFraming(t *testing.T) {
	t.Run("reblocks into fixed frames", func(t *testing.T) {
		c := NewCapture(16000, 4)
		var frames [][]float32
		primeCapture(c, func(samples []float32) {
			frames = append(frames, samples)
		})

		c.onSamples(nil, rawF32Input([]float32{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}), 6)
		if len(frames) != 1 {
			t.Fatalf("got %d frames, want 1", len(frames))
		}
		if frames[0][3] != 0.4 {
			t.Errorf("frame sample 3 is %v, want 0.4", frames[0][3])
		}

		// leftover two samples complete a frame with the next delivery
		c.onSamples(nil, rawF32Input([]float32{0.7, 0.8}), 2)
		if len(frames) != 2 {
			t.Fatalf("got %d frames, want 2", len(frames))
		}
		if frames[1][0] != 0.5 || frames[1][3] != 0.8 {
			t.Errorf("second frame %v did not continue from leftover", frames[1])
		}
	})

	t.Run("nil input ignored", func(t *testing.T) {
		c := NewCapture(16000, 4)
		primeCapture(c, func([]float32) { t.Error("sink invoked for nil input") })
		c.onSamples(nil, nil, 0)
	})
}

func TestCaptureStop(t *testing.T) {
	t.Run("returns promptly with callbacks in flight", func(t *testing.T) {
		c := NewCapture(16000, 8)
		primeCapture(c, func([]float32) {})

		input := rawF32Input(make([]float32, 8))
		stop := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					c.onSamples(nil, input, 8)
				}
			}
		}()

		done := make(chan struct{})
		go func() {
			c.Stop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("Stop blocked while the data callback was running")
		}
		if c.Running() {
			t.Error("still running after Stop")
		}
		close(stop)
		wg.Wait()
	})

	t.Run("late callback after stop delivers nothing", func(t *testing.T) {
		c := NewCapture(16000, 4)
		var delivered int
		primeCapture(c, func([]float32) { delivered++ })

		c.onSamples(nil, rawF32Input(make([]float32, 4)), 4)
		if delivered != 1 {
			t.Fatalf("%d frames before stop, want 1", delivered)
		}

		c.Stop()
		c.onSamples(nil, rawF32Input(make([]float32, 4)), 4)
		if delivered != 1 {
			t.Errorf("%d frames after stop, want 1", delivered)
		}
	})

	t.Run("idempotent without a device", func(t *testing.T) {
		c := NewCapture(16000, 4)
		c.Stop()
		c.Stop()
		if c.Running() {
			t.Error("running after stop on fresh capture")
		}
	})
}
