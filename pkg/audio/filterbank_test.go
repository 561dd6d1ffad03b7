package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFilterBank_PhaseCount(t *testing.T) {
	tests := map[string]struct {
		source, target int
		wantUp         int
		wantPhases     int
	}{
		"48k_to_16k":     {48000, 16000, 1, 1},
		"44k1_to_16k":    {44100, 16000, 160, 160},
		"11025_to_16k":   {11025, 16000, 640, maxPhases},
		"48001_to_16k":   {48001, 16000, 16000, maxPhases},
		"1000003_to_16k": {1000003, 16000, 16000, maxPhases},
		"16k_to_44k1":    {16000, 44100, 441, 441},
		"16k_to_48k":     {16000, 48000, 3, 3},
		"prime_to_prime": {7919, 7907, 7907, maxPhases},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			b := newFilterBank(tt.source, tt.target)
			assert.Equal(t, tt.wantUp, b.up)
			assert.Len(t, b.phases, tt.wantPhases)
			assert.Len(t, b.phases[0], 2*b.half+1)
		})
	}
}

func TestFilterBank_At(t *testing.T) {
	exact := newFilterBank(44100, 16000)
	for n := int64(0); n < 2*int64(exact.up); n++ {
		q, h := exact.at(n)
		pos := n * int64(exact.down)
		assert.Equal(t, pos/int64(exact.up), q)
		assert.Equal(t, exact.phases[pos%int64(exact.up)], h)
	}

	approx := newFilterBank(48001, 16000)
	for n := int64(0); n < 5000; n++ {
		q, _ := approx.at(n)
		ideal := float64(n) * float64(approx.down) / float64(approx.up)
		// rounding to the nearest phase moves the position by at most half a step
		assert.InDelta(t, ideal, float64(q), 1, "n=%d", n)
	}

	// a fraction just below one rounds up to phase 0 of the next sample
	q, h := approx.at(int64(approx.up - 1))
	pos := int64(approx.up-1) * int64(approx.down)
	assert.Equal(t, pos/int64(approx.up)+1, q)
	assert.Equal(t, approx.phases[0], h)
}

func TestBankFor_CacheIsBounded(t *testing.T) {
	filterBanks.Purge()
	t.Cleanup(filterBanks.Purge)

	for rate := 48001; rate < 48001+3*filterBankCacheSize; rate++ {
		out, err := Convert(make([]int16, 960), rate, TranscriptionSampleRate)
		require.NoError(t, err)
		require.Len(t, out, OutputLength(960, rate, TranscriptionSampleRate))
	}
	assert.Equal(t, filterBankCacheSize, filterBanks.Len())

	b1 := bankFor(44100, 16000)
	b2 := bankFor(44100, 16000)
	assert.Same(t, b1, b2)
}
