package audio_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Raikerian/go-voice-ingest/pkg/audio"
)

func TestOpusCodec_RoundTrip(t *testing.T) {
	codec, err := audio.NewOpusCodec()
	require.NoError(t, err)
	defer codec.Close()

	in := generateSine(440, 8000, audio.WebRTCSampleRate, 200*time.Millisecond)
	framer := audio.NewFramer(audio.WebRTCFrameSize)

	var out []int16
	for _, frame := range framer.Push(in) {
		packet, err := codec.Encode(frame)
		require.NoError(t, err)
		require.NotEmpty(t, packet)

		pcm, err := codec.Decode(packet)
		require.NoError(t, err)
		require.Len(t, pcm, audio.WebRTCFrameSize)
		out = append(out, pcm...)
	}

	require.Len(t, out, len(in))
	// the codec's lookahead makes the first frames quieter
	tail := out[len(out)/2:]
	assert.InEpsilon(t, 440, audio.DominantFrequency(tail, audio.WebRTCSampleRate), 0.02)
	assert.Greater(t, meanSquare(tail), meanSquare(in)/4)
}

func TestOpusCodec_Errors(t *testing.T) {
	codec, err := audio.NewOpusCodec()
	require.NoError(t, err)

	_, err = codec.Decode(nil)
	assert.Error(t, err)

	_, err = codec.Encode(make([]int16, 100))
	assert.Error(t, err)

	codec.Close()
	_, err = codec.Encode(make([]int16, audio.WebRTCFrameSize))
	assert.Error(t, err)
	_, err = codec.Decode([]byte{0xf8, 0xff, 0xfe})
	assert.Error(t, err)
}

func TestFramer(t *testing.T) {
	f := audio.NewFramer(4)

	assert.Empty(t, f.Push([]int16{1, 2, 3}))

	frames := f.Push([]int16{4, 5, 6, 7, 8, 9})
	assert.Equal(t, [][]int16{{1, 2, 3, 4}, {5, 6, 7, 8}}, frames)

	assert.Equal(t, []int16{9, 0, 0, 0}, f.Flush())
	assert.Nil(t, f.Flush())
}
