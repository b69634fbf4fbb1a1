package audio

import (
	"bytes"
	"fmt"

	"github.com/ebitengine/oto/v3"
)

// OtoSink plays decoded chunks through the default output device
type OtoSink struct {
	ctx *oto.Context
}

// NewOtoSink initializes the output device for mono s16le at the given rate.
// oto allows a single context per process; create one sink and share it.
func NewOtoSink(sampleRate int) (*OtoSink, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create audio output context: %w", err)
	}
	<-ready
	return &OtoSink{ctx: ctx}, nil
}

// Play starts immediate playback of a chunk
func (o *OtoSink) Play(samples []float32) (PlayerHandle, error) {
	player := o.ctx.NewPlayer(bytes.NewReader(FloatsToPCM(samples)))
	player.Play()
	return &otoHandle{player: player}, nil
}

// Suspend pauses the output device; playback cannot resume on a suspended sink
func (o *OtoSink) Suspend() {
	_ = o.ctx.Suspend()
}

type otoHandle struct {
	player *oto.Player
}

func (h *otoHandle) Stop() {
	_ = h.player.Close()
}

// DiscardSink swallows chunks without playing them; used when no output
// device is available so scheduling and the visualizer keep working.
type DiscardSink struct{}

// Play accepts the chunk and does nothing
func (DiscardSink) Play(samples []float32) (PlayerHandle, error) {
	return discardHandle{}, nil
}

type discardHandle struct{}

func (discardHandle) Stop() {}
