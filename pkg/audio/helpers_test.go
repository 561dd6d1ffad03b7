package audio_test

import (
	"math"
	"time"
)

func generateSine(frequency, amplitude float64, sampleRate int, duration time.Duration) []int16 {
	n := int(float64(sampleRate) * duration.Seconds())
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(math.Round(amplitude * math.Sin(2*math.Pi*frequency*float64(i)/float64(sampleRate))))
	}
	return out
}

func generateSquare(frequency, amplitude float64, sampleRate int, duration time.Duration) []int16 {
	n := int(float64(sampleRate) * duration.Seconds())
	period := float64(sampleRate) / frequency
	out := make([]int16, n)
	for i := range out {
		if math.Mod(float64(i), period) < period/2 {
			out[i] = int16(amplitude)
		} else {
			out[i] = int16(-amplitude)
		}
	}
	return out
}

// naiveDecimate keeps every factor-th sample without filtering.
func naiveDecimate(samples []int16, factor int) []int16 {
	out := make([]int16, 0, len(samples)/factor+1)
	for i := 0; i < len(samples); i += factor {
		out = append(out, samples[i])
	}
	return out
}

func meanSquare(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return sum / float64(len(samples))
}
