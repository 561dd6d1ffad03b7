package audio

import (
	"encoding/binary"
	"math"
)

// PCMInt16ToLE converts int16 samples to raw little-endian bytes.
func PCMInt16ToLE(samples []int16) []byte {
	out := make([]byte, len(samples)*BytesPerSample)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*BytesPerSample:], uint16(s))
	}
	return out
}

// LEToPCMInt16 converts raw little-endian bytes back to int16 samples.
// A trailing odd byte is ignored.
func LEToPCMInt16(b []byte) []int16 {
	out := make([]int16, len(b)/BytesPerSample)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[i*BytesPerSample:]))
	}
	return out
}

// Downmix averages channel-interleaved samples into a mono signal. Mono input
// is returned as a copy.
func Downmix(samples []int16, channels int) []int16 {
	if channels <= 1 {
		out := make([]int16, len(samples))
		copy(out, samples)
		return out
	}

	n := len(samples) / channels
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		var sum int32
		for c := 0; c < channels; c++ {
			sum += int32(samples[i*channels+c])
		}
		out[i] = int16(sum / int32(channels))
	}
	return out
}

// Deinterleave splits interleaved samples into one slice per channel.
func Deinterleave(samples []int16, channels int) [][]int16 {
	n := len(samples) / channels
	out := make([][]int16, channels)
	for c := range out {
		out[c] = make([]int16, n)
		for i := 0; i < n; i++ {
			out[c][i] = samples[i*channels+c]
		}
	}
	return out
}

// Interleave is the inverse of Deinterleave. All channels must have the same length.
func Interleave(channels [][]int16) []int16 {
	if len(channels) == 0 {
		return nil
	}
	n := len(channels[0])
	out := make([]int16, n*len(channels))
	for c, ch := range channels {
		for i := 0; i < n; i++ {
			out[i*len(channels)+c] = ch[i]
		}
	}
	return out
}

// ClampInt16 rounds v to the nearest integer and saturates it to the int16 range.
func ClampInt16(v float64) int16 {
	v = math.Round(v)
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	default:
		return int16(v)
	}
}
