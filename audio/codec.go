package audio

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"google.golang.org/genai"
)

// EncodeFloats converts float samples in [-1,1] to base64 little-endian PCM16.
// Negative samples scale by 32768 and positive by 32767; the live service
// expects this exact quantization, so keep the asymmetry.
func EncodeFloats(samples []float32) string {
	return base64.StdEncoding.EncodeToString(FloatsToPCM(samples))
}

// FloatsToPCM converts float samples in [-1,1] to little-endian PCM16 bytes
func FloatsToPCM(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		}
		if s < -1 {
			s = -1
		}
		var v int16
		if s < 0 {
			v = int16(s * 32768)
		} else {
			v = int16(s * 32767)
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

// PCMBlob wraps encoded capture samples into the realtime input media format
func PCMBlob(samples []float32, sampleRate int) *genai.Blob {
	return &genai.Blob{
		MIMEType: fmt.Sprintf("audio/pcm;rate=%d", sampleRate),
		Data:     FloatsToPCM(samples),
	}
}

// PCMToFloats converts interleaved little-endian PCM16 bytes to float samples
// normalized by 32768. numChannels deinterleaves multi-channel payloads;
// channel 0 is returned. A truncated payload is a decode error, never a panic.
func PCMToFloats(data []byte, numChannels int) ([]float32, error) {
	if numChannels < 1 {
		return nil, fmt.Errorf("invalid channel count %d", numChannels)
	}
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("truncated pcm payload: %d bytes", len(data))
	}
	total := len(data) / 2
	if total%numChannels != 0 {
		return nil, fmt.Errorf("pcm payload not aligned to %d channels", numChannels)
	}
	frames := total / numChannels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		v := int16(binary.LittleEndian.Uint16(data[i*numChannels*2:]))
		out[i] = float32(v) / 32768.0
	}
	return out, nil
}

// DecodeBase64PCM decodes a base64 payload straight to float samples
func DecodeBase64PCM(payload string, numChannels int) ([]float32, error) {
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("invalid base64: %w", err)
	}
	return PCMToFloats(data, numChannels)
}
