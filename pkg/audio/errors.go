package audio

import "fmt"

// InvalidRateError is returned when a conversion is requested with a
// non-positive sample rate, or a frame arrives at a rate outside
// [MinSampleRate, MaxSampleRate].
type InvalidRateError struct {
	SourceRate int
	TargetRate int
}

func (e *InvalidRateError) Error() string {
	return fmt.Sprintf("audio: invalid sample rate conversion %d Hz -> %d Hz", e.SourceRate, e.TargetRate)
}

// EncodingError is returned when PCM input cannot be wrapped in a container.
type EncodingError struct {
	Format string
	Reason string
	Err    error
}

func (e *EncodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("audio: encode %s: %s: %v", e.Format, e.Reason, e.Err)
	}
	return fmt.Sprintf("audio: encode %s: %s", e.Format, e.Reason)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}
