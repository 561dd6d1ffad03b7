package audio_test

import (
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Raikerian/go-voice-ingest/pkg/audio"
)

func TestWAVEncoder_HeaderFields(t *testing.T) {
	tests := map[string]struct {
		samples  []int16
		rate     int
		channels int
	}{
		"mono_16k":   {samples: generateSine(440, 8000, 16000, 250*time.Millisecond), rate: 16000, channels: 1},
		"stereo_48k": {samples: make([]int16, 960*2), rate: 48000, channels: 2},
		"mono_8k":    {samples: []int16{1}, rate: 8000, channels: 1},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			enc, err := audio.WAVEncoder{}.Encode(tt.samples, tt.rate, tt.channels)
			require.NoError(t, err)
			assert.Equal(t, audio.MIMETypeWAV, enc.MIMEType)
			assert.Equal(t, tt.rate, enc.SampleRate)
			assert.Equal(t, tt.channels, enc.Channels)
			assert.False(t, enc.RateChanged)
			assert.Equal(t, "chunk.wav", enc.Filename())

			p := enc.Payload
			dataLen := len(tt.samples) * 2
			require.Len(t, p, 44+dataLen)

			assert.Equal(t, "RIFF", string(p[0:4]))
			assert.Equal(t, uint32(36+dataLen), binary.LittleEndian.Uint32(p[4:8]))
			assert.Equal(t, "WAVE", string(p[8:12]))
			assert.Equal(t, "fmt ", string(p[12:16]))
			assert.Equal(t, uint32(16), binary.LittleEndian.Uint32(p[16:20]))
			assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(p[20:22]))
			assert.Equal(t, uint16(tt.channels), binary.LittleEndian.Uint16(p[22:24]))
			assert.Equal(t, uint32(tt.rate), binary.LittleEndian.Uint32(p[24:28]))
			assert.Equal(t, uint32(tt.rate*tt.channels*2), binary.LittleEndian.Uint32(p[28:32]))
			assert.Equal(t, uint16(tt.channels*2), binary.LittleEndian.Uint16(p[32:34]))
			assert.Equal(t, uint16(16), binary.LittleEndian.Uint16(p[34:36]))
			assert.Equal(t, "data", string(p[36:40]))
			assert.Equal(t, uint32(dataLen), binary.LittleEndian.Uint32(p[40:44]))
		})
	}
}

func TestWAV_RoundTrip(t *testing.T) {
	tests := map[string]struct {
		samples  []int16
		rate     int
		channels int
	}{
		"tone":       {samples: generateSine(1000, 12000, 16000, 100*time.Millisecond), rate: 16000, channels: 1},
		"extremes":   {samples: []int16{-32768, 32767, 0, -1, 1}, rate: 22050, channels: 1},
		"stereo":     {samples: []int16{1, -1, 2, -2, 3, -3}, rate: 44100, channels: 2},
		"six_chan":   {samples: sequence(0, 60), rate: 48000, channels: 6},
		"odd_rate":   {samples: sequence(100, 11), rate: 11025, channels: 1},
		"long_chunk": {samples: sequence(0, 80000), rate: 16000, channels: 1},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			enc, err := audio.WAVEncoder{}.Encode(tt.samples, tt.rate, tt.channels)
			require.NoError(t, err)

			decoded, header, err := audio.DecodeWAV(enc.Payload)
			require.NoError(t, err)
			assert.Equal(t, tt.samples, decoded)
			assert.Equal(t, uint32(tt.rate), header.SampleRate)
			assert.Equal(t, uint16(tt.channels), header.Channels)
			assert.Equal(t, uint16(16), header.BitsPerSample)
			assert.Equal(t, uint32(len(tt.samples)*2), header.DataSize)
			assert.Equal(t, header.DataSize+36, header.RIFFSize)
		})
	}
}

func TestWAVEncoder_Errors(t *testing.T) {
	tests := map[string]struct {
		samples  []int16
		rate     int
		channels int
	}{
		"empty":             {samples: nil, rate: 16000, channels: 1},
		"zero_channels":     {samples: []int16{1, 2}, rate: 16000, channels: 0},
		"channel_mismatch":  {samples: []int16{1, 2, 3}, rate: 16000, channels: 2},
		"invalid_rate":      {samples: []int16{1, 2}, rate: 0, channels: 1},
		"negative_channels": {samples: []int16{1, 2}, rate: 16000, channels: -2},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := audio.WAVEncoder{}.Encode(tt.samples, tt.rate, tt.channels)
			var encErr *audio.EncodingError
			require.True(t, errors.As(err, &encErr), "got %v", err)
			assert.Equal(t, "wav", encErr.Format)
		})
	}
}

func TestParseWAVHeader_SkipsUnknownChunks(t *testing.T) {
	enc, err := audio.WAVEncoder{}.Encode([]int16{5, 6, 7}, 16000, 1)
	require.NoError(t, err)

	// splice a LIST chunk with an odd size between fmt and data
	list := []byte{'L', 'I', 'S', 'T', 3, 0, 0, 0, 'a', 'b', 'c', 0}
	payload := append([]byte{}, enc.Payload[:36]...)
	payload = append(payload, list...)
	payload = append(payload, enc.Payload[36:]...)

	samples, header, err := audio.DecodeWAV(payload)
	require.NoError(t, err)
	assert.Equal(t, []int16{5, 6, 7}, samples)
	assert.Equal(t, uint32(16000), header.SampleRate)
}

func TestParseWAVHeader_Rejects(t *testing.T) {
	enc, err := audio.WAVEncoder{}.Encode([]int16{5, 6, 7}, 16000, 1)
	require.NoError(t, err)

	tests := map[string][]byte{
		"empty":          nil,
		"not_riff":       []byte("RIFX0000WAVEfmt "),
		"truncated_data": enc.Payload[:len(enc.Payload)-2],
		"no_data_chunk":  enc.Payload[:36],
	}

	for name, payload := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := audio.DecodeWAV(payload)
			assert.Error(t, err)
		})
	}
}
