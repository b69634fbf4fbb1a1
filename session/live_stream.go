package session

import (
	"context"

	"google.golang.org/genai"

	"github.com/sentient-partners/sentient-agent/functions"
	"github.com/sentient-partners/sentient-agent/gemini"
)

// liveStream adapts the Gemini live proxy to the Stream interface
type liveStream struct {
	proxy *gemini.LiveProxy
}

// NewLiveStreamFactory returns a factory producing one fresh proxy per
// session attempt on the shared client.
func NewLiveStreamFactory(client *genai.Client) StreamFactory {
	return func() Stream {
		return &liveStream{proxy: gemini.NewLiveProxy(client)}
	}
}

func (l *liveStream) Open(ctx context.Context, ev Events) error {
	l.proxy.OnAudio = ev.Audio
	l.proxy.OnInputTranscription = ev.InputTranscription
	l.proxy.OnOutputTranscription = ev.OutputTranscription
	l.proxy.OnTurnComplete = ev.TurnComplete
	l.proxy.OnInterrupted = ev.Interrupted
	l.proxy.OnToolCall = ev.ToolCall
	l.proxy.OnError = ev.Err

	if err := l.proxy.Connect(ctx); err != nil {
		return err
	}
	l.proxy.StartReceiving(ctx)
	return nil
}

func (l *liveStream) SendAudio(media *genai.Blob) error {
	return l.proxy.SendAudio(media)
}

func (l *liveStream) SendToolResponses(results []functions.Result) error {
	return l.proxy.SendToolResponses(results)
}

func (l *liveStream) Close() error {
	return l.proxy.Close()
}
