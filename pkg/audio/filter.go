package audio

import "math"

// Q factors of the two second-order sections of a 4th order Butterworth.
var butterworth4Q = [2]float64{0.54119610, 1.30656296}

type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
	z1, z2     float64
}

func (s *biquad) process(x float64) float64 {
	y := s.b0*x + s.z1
	s.z1 = s.b1*x - s.a1*y + s.z2
	s.z2 = s.b2*x - s.a2*y
	return y
}

// HighPassFilter is a 4th order Butterworth high-pass built from two cascaded
// biquads. It keeps state between calls and is owned by one stream.
type HighPassFilter struct {
	sections [2]biquad
}

// NewHighPassFilter returns a filter with its -3 dB point at cutoffHz.
func NewHighPassFilter(cutoffHz float64, sampleRate int) (*HighPassFilter, error) {
	if sampleRate <= 0 {
		return nil, &InvalidRateError{SourceRate: sampleRate, TargetRate: sampleRate}
	}

	w0 := 2 * math.Pi * cutoffHz / float64(sampleRate)
	cosW, sinW := math.Cos(w0), math.Sin(w0)

	f := &HighPassFilter{}
	for i, q := range butterworth4Q {
		alpha := sinW / (2 * q)
		a0 := 1 + alpha
		f.sections[i] = biquad{
			b0: (1 + cosW) / 2 / a0,
			b1: -(1 + cosW) / a0,
			b2: (1 + cosW) / 2 / a0,
			a1: -2 * cosW / a0,
			a2: (1 - alpha) / a0,
		}
	}
	return f, nil
}

// Process filters mono samples and returns a new slice.
func (f *HighPassFilter) Process(samples []int16) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		v := float64(s)
		for j := range f.sections {
			v = f.sections[j].process(v)
		}
		out[i] = ClampInt16(v)
	}
	return out
}

// Reset clears the filter state.
func (f *HighPassFilter) Reset() {
	for i := range f.sections {
		f.sections[i].z1, f.sections[i].z2 = 0, 0
	}
}
