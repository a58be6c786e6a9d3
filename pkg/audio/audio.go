// Package audio provides the realtime audio path for voicebridge: PCM16
// chunk handling, capture sources, playback sinks, and the continuous
// playback engine that keeps the output device warm by writing silence
// whenever no real audio is queued.
package audio

import "time"

// Fixed audio format shared with the upstream realtime API.
// PCM16, mono, little-endian. Not runtime-negotiated.
const (
	SampleRate     = 24000
	Channels       = 1
	BytesPerSample = 2

	// FrameDuration is the length of one playback frame.
	FrameDuration = 20 * time.Millisecond

	// FrameBytes is the size of one playback frame in bytes.
	FrameBytes = SampleRate * Channels * BytesPerSample / int(time.Second/FrameDuration)
)

// Chunk is an immutable buffer of PCM16 audio. A chunk enqueued on the
// playback engine is owned by the engine and consumed exactly once.
type Chunk []byte

// Duration returns the playback duration of the chunk at the fixed format.
func (c Chunk) Duration() time.Duration {
	if len(c) == 0 {
		return 0
	}
	samples := len(c) / (Channels * BytesPerSample)
	return time.Duration(samples) * time.Second / SampleRate
}

// Silence returns a zero-valued frame of n bytes.
func Silence(n int) Chunk {
	return make(Chunk, n)
}

// ToSamples converts raw PCM16 bytes to int16 samples.
func ToSamples(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
	return samples
}

// FromSamples converts int16 samples to raw PCM16 bytes.
func FromSamples(samples []int16) []byte {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		data[i*2] = byte(s)
		data[i*2+1] = byte(s >> 8)
	}
	return data
}
