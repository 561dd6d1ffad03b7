package audio

import "time"

// Format constants shared by the transports, the converter and the encoders.
const (
	// WebRTC / Opus input.
	WebRTCSampleRate = 48_000 // Hz
	WebRTCChannels   = 1
	WebRTCFrameSize  = 960 // samples per channel (20 ms)

	// Speech-to-text input.
	TranscriptionSampleRate = 16_000 // Hz

	// Range of frame rates accepted from transports.
	MinSampleRate = 8_000   // Hz
	MaxSampleRate = 192_000 // Hz

	BitsPerSample  = 16
	BytesPerSample = BitsPerSample / 8

	// FrameDuration is the packetisation interval used on every wire path.
	FrameDuration = 20 * time.Millisecond
)

// Frame is one unit of audio delivered by a transport. Samples are
// channel-interleaved signed 16-bit PCM. A Frame is not modified after it is
// handed to the pipeline.
type Frame struct {
	Samples    []int16
	Channels   int
	SampleRate int
	// Sequence increases monotonically per session and is only used in logs.
	Sequence  uint64
	Timestamp time.Time
}

// SamplesPerChannel returns the number of sample instants carried by the frame.
func (f Frame) SamplesPerChannel() int {
	if f.Channels <= 0 {
		return 0
	}
	return len(f.Samples) / f.Channels
}

// Duration returns the playback length of the frame.
func (f Frame) Duration() time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(f.SamplesPerChannel()) * time.Second / time.Duration(f.SampleRate)
}

// Speech is mono PCM produced by a synthesis provider.
type Speech struct {
	Samples    []int16
	SampleRate int
}

// Duration returns the playback length of the speech.
func (s Speech) Duration() time.Duration {
	if s.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(s.Samples)) * time.Second / time.Duration(s.SampleRate)
}
