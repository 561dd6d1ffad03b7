package audio_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Raikerian/go-voice-ingest/pkg/audio"
)

func TestHighPassFilter(t *testing.T) {
	const rate = 48000

	tests := map[string]struct {
		input   []int16
		minGain float64
		maxGain float64
	}{
		"removes_30hz_hum": {input: generateSine(30, 10000, rate, time.Second), minGain: 0, maxGain: 0.03},
		"passes_440hz":     {input: generateSine(440, 10000, rate, time.Second), minGain: 0.98, maxGain: 1.02},
		"passes_2khz":      {input: generateSine(2000, 10000, rate, time.Second), minGain: 0.99, maxGain: 1.01},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			f, err := audio.NewHighPassFilter(80, rate)
			require.NoError(t, err)

			out := f.Process(tt.input)
			require.Len(t, out, len(tt.input))

			// skip the settling transient
			settle := rate / 4
			gain := math.Sqrt(meanSquare(out[settle:]) / meanSquare(tt.input[settle:]))
			assert.GreaterOrEqual(t, gain, tt.minGain)
			assert.LessOrEqual(t, gain, tt.maxGain)
		})
	}
}

func TestHighPassFilter_RemovesDC(t *testing.T) {
	f, err := audio.NewHighPassFilter(80, 16000)
	require.NoError(t, err)

	dc := make([]int16, 16000)
	for i := range dc {
		dc[i] = 4000
	}
	out := f.Process(dc)
	for _, s := range out[8000:] {
		assert.InDelta(t, 0, s, 1)
	}

	f.Reset()
	again := f.Process(dc)
	assert.Equal(t, out, again)
}

func TestHighPassFilter_InvalidRate(t *testing.T) {
	_, err := audio.NewHighPassFilter(80, 0)
	assert.Error(t, err)
}
