package audio

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// Spectrum returns the single-sided magnitude spectrum of Hann-windowed
// samples along with the width of one bin in Hz.
func Spectrum(samples []int16, sampleRate int) ([]float64, float64) {
	if len(samples) < 2 || sampleRate <= 0 {
		return nil, 0
	}

	x := make([]float64, len(samples))
	for i, s := range samples {
		x[i] = float64(s)
	}
	window.Apply(x, window.Hann)

	bins := fft.FFTReal(x)
	mags := make([]float64, len(bins)/2+1)
	for i := range mags {
		mags[i] = cmplx.Abs(bins[i])
	}
	return mags, float64(sampleRate) / float64(len(samples))
}

// DominantFrequency returns the frequency of the strongest non-DC spectral
// peak, refined by parabolic interpolation between neighbouring bins.
func DominantFrequency(samples []int16, sampleRate int) float64 {
	mags, binHz := Spectrum(samples, sampleRate)
	if len(mags) < 3 {
		return 0
	}

	peak := 1
	for i := 2; i < len(mags); i++ {
		if mags[i] > mags[peak] {
			peak = i
		}
	}

	offset := 0.0
	if peak > 0 && peak < len(mags)-1 {
		l, c, r := mags[peak-1], mags[peak], mags[peak+1]
		if d := l - 2*c + r; d != 0 {
			offset = 0.5 * (l - r) / d
		}
	}
	return (float64(peak) + offset) * binHz
}
