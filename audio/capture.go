package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/gen2brain/malgo"
)

// Capture error reasons, each user-displayable on its own
var (
	ErrCaptureUnsupported = errors.New("audio capture is not supported in this environment")
	ErrNoInputDevice      = errors.New("no compatible input device found")
	ErrPermissionDenied   = errors.New("microphone permission denied")
)

// FrameSink receives one fixed-size block of mono float samples per encoding
// cycle. It runs on the device callback and must not block.
type FrameSink func(samples []float32)

// Capture pulls audio from the default input device and delivers fixed-size
// frames to a sink for as long as it runs.
type Capture struct {
	mu         sync.Mutex
	sampleRate int
	frameSize  int
	ctx        *malgo.AllocatedContext
	device     *malgo.Device
	pending    []float32
	sink       FrameSink
	running    bool
}

// NewCapture creates a capture graph for mono input at the given rate,
// delivering frameSize-sample blocks.
func NewCapture(sampleRate, frameSize int) *Capture {
	return &Capture{sampleRate: sampleRate, frameSize: frameSize}
}

// Start opens the input device and begins delivering frames. A failure at any
// step releases everything acquired so far; no dangling device handle remains.
func (c *Capture) Start(sink FrameSink) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCaptureUnsupported, err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(c.sampleRate)
	deviceConfig.Alsa.NoMMap = 1 // Better compatibility on some systems

	device, err := malgo.InitDevice(mctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: c.onSamples,
	})
	if err != nil {
		_ = mctx.Uninit()
		return fmt.Errorf("%w: %v", ErrNoInputDevice, err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		_ = mctx.Uninit()
		if strings.Contains(strings.ToLower(err.Error()), "denied") {
			return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
		return fmt.Errorf("%w: %v", ErrNoInputDevice, err)
	}

	c.ctx = mctx
	c.device = device
	c.sink = sink
	c.pending = c.pending[:0]
	c.running = true
	return nil
}

// Stop disconnects input and releases the device. Idempotent, and safe even
// if Start never completed.
func (c *Capture) Stop() {
	c.mu.Lock()
	device := c.device
	mctx := c.ctx
	c.device = nil
	c.ctx = nil
	c.sink = nil
	c.pending = nil
	c.running = false
	c.mu.Unlock()

	// Uninit waits for an in-flight data callback to return, and the callback
	// takes c.mu — so the handles must be released outside the lock. A
	// callback arriving now sees running false and exits.
	if device != nil {
		device.Uninit()
	}
	if mctx != nil {
		_ = mctx.Uninit()
	}
}

// Running reports whether the device is capturing
func (c *Capture) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *Capture) onSamples(_, input []byte, frameCount uint32) {
	if input == nil {
		return
	}

	c.mu.Lock()
	sink := c.sink
	if !c.running || sink == nil {
		c.mu.Unlock()
		return
	}
	for i := 0; i+3 < len(input); i += 4 {
		c.pending = append(c.pending, math.Float32frombits(binary.LittleEndian.Uint32(input[i:])))
	}
	var frames [][]float32
	for len(c.pending) >= c.frameSize {
		frame := make([]float32, c.frameSize)
		copy(frame, c.pending[:c.frameSize])
		c.pending = c.pending[c.frameSize:]
		frames = append(frames, frame)
	}
	c.mu.Unlock()

	// deliver outside the lock; the sink hands frames off without blocking
	for _, frame := range frames {
		sink(frame)
	}
}
