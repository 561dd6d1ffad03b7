package audio_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Raikerian/go-voice-ingest/pkg/audio"
)

func TestDominantFrequency(t *testing.T) {
	tests := map[string]struct {
		frequency float64
		rate      int
	}{
		"1khz_at_16k":   {1000, 16000},
		"440hz_at_48k":  {440, 48000},
		"3333hz_at_16k": {3333, 16000},
		"60hz_at_8k":    {60, 8000},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			tone := generateSine(tt.frequency, 5000, tt.rate, 500*time.Millisecond)
			assert.InDelta(t, tt.frequency, audio.DominantFrequency(tone, tt.rate), 1.0)
		})
	}
}

func TestDominantFrequency_Degenerate(t *testing.T) {
	assert.Zero(t, audio.DominantFrequency(nil, 16000))
	assert.Zero(t, audio.DominantFrequency([]int16{1, 2, 3}, 0))

	mags, bin := audio.Spectrum(make([]int16, 100), 16000)
	assert.Len(t, mags, 51)
	assert.Equal(t, 160.0, bin)
}
