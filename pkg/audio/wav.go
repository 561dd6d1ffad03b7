package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	MIMETypeWAV = "audio/wav"

	wavHeaderSize  = 44
	wavFmtSize     = 16
	wavFormatPCM   = 1
	riffHeaderSize = 36 // RIFF size field excluding the data payload
)

// Encoded is a container payload ready to be sent to a transcription provider.
type Encoded struct {
	Payload  []byte
	MIMEType string
	// SampleRate and Channels describe the audio inside the payload. They
	// differ from the encoder input only when RateChanged is set.
	SampleRate  int
	Channels    int
	RateChanged bool
}

// Filename returns a file name with an extension matching the container.
func (e Encoded) Filename() string {
	switch e.MIMEType {
	case MIMETypeOggOpus:
		return "chunk.ogg"
	default:
		return "chunk.wav"
	}
}

// Encoder wraps PCM samples in a container.
type Encoder interface {
	Encode(samples []int16, sampleRate, channels int) (Encoded, error)
}

// WAVHeader mirrors the fields of a canonical 44-byte PCM WAV header.
type WAVHeader struct {
	RIFFSize      uint32
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	DataSize      uint32
}

// WAVEncoder produces uncompressed 16-bit little-endian PCM WAV payloads.
type WAVEncoder struct{}

func validatePCM(format string, samples []int16, sampleRate, channels int) error {
	switch {
	case len(samples) == 0:
		return &EncodingError{Format: format, Reason: "no samples"}
	case channels < 1:
		return &EncodingError{Format: format, Reason: fmt.Sprintf("invalid channel count %d", channels)}
	case len(samples)%channels != 0:
		return &EncodingError{Format: format, Reason: fmt.Sprintf("%d samples do not divide into %d channels", len(samples), channels)}
	case sampleRate <= 0:
		return &EncodingError{Format: format, Reason: "invalid sample rate", Err: &InvalidRateError{SourceRate: sampleRate, TargetRate: sampleRate}}
	}
	return nil
}

// Encode implements Encoder.
func (WAVEncoder) Encode(samples []int16, sampleRate, channels int) (Encoded, error) {
	if err := validatePCM("wav", samples, sampleRate, channels); err != nil {
		return Encoded{}, err
	}

	data := PCMInt16ToLE(samples)
	blockAlign := channels * BytesPerSample

	var buf bytes.Buffer
	buf.Grow(wavHeaderSize + len(data))
	write := func(v any) {
		_ = binary.Write(&buf, binary.LittleEndian, v)
	}

	buf.WriteString("RIFF")
	write(uint32(riffHeaderSize + len(data)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	write(uint32(wavFmtSize))
	write(uint16(wavFormatPCM))
	write(uint16(channels))
	write(uint32(sampleRate))
	write(uint32(sampleRate * blockAlign))
	write(uint16(blockAlign))
	write(uint16(BitsPerSample))

	buf.WriteString("data")
	write(uint32(len(data)))
	buf.Write(data)

	return Encoded{
		Payload:    buf.Bytes(),
		MIMEType:   MIMETypeWAV,
		SampleRate: sampleRate,
		Channels:   channels,
	}, nil
}

var errNotWAV = errors.New("audio: payload is not a RIFF/WAVE container")

// ParseWAVHeader reads the fmt and data chunk descriptors of a WAV payload.
// Chunks other than fmt and data are skipped.
func ParseWAVHeader(payload []byte) (WAVHeader, int, error) {
	var h WAVHeader
	if len(payload) < 12 || string(payload[0:4]) != "RIFF" || string(payload[8:12]) != "WAVE" {
		return h, 0, errNotWAV
	}
	h.RIFFSize = binary.LittleEndian.Uint32(payload[4:8])

	seenFmt := false
	off := 12
	for off+8 <= len(payload) {
		id := string(payload[off : off+4])
		size := int(binary.LittleEndian.Uint32(payload[off+4 : off+8]))
		body := off + 8

		switch id {
		case "fmt ":
			if size < wavFmtSize || body+size > len(payload) {
				return h, 0, fmt.Errorf("audio: truncated fmt chunk")
			}
			f := payload[body:]
			h.AudioFormat = binary.LittleEndian.Uint16(f[0:2])
			h.Channels = binary.LittleEndian.Uint16(f[2:4])
			h.SampleRate = binary.LittleEndian.Uint32(f[4:8])
			h.ByteRate = binary.LittleEndian.Uint32(f[8:12])
			h.BlockAlign = binary.LittleEndian.Uint16(f[12:14])
			h.BitsPerSample = binary.LittleEndian.Uint16(f[14:16])
			seenFmt = true
		case "data":
			if !seenFmt {
				return h, 0, fmt.Errorf("audio: data chunk before fmt chunk")
			}
			if body+size > len(payload) {
				return h, 0, fmt.Errorf("audio: data chunk declares %d bytes, %d available", size, len(payload)-body)
			}
			h.DataSize = uint32(size)
			return h, body, nil
		}

		// chunks are word aligned
		off = body + size + size%2
	}

	return h, 0, fmt.Errorf("audio: no data chunk")
}

// DecodeWAV parses a 16-bit PCM WAV payload and returns its interleaved samples.
func DecodeWAV(payload []byte) ([]int16, WAVHeader, error) {
	h, dataOffset, err := ParseWAVHeader(payload)
	if err != nil {
		return nil, h, err
	}
	if h.AudioFormat != wavFormatPCM || h.BitsPerSample != BitsPerSample {
		return nil, h, fmt.Errorf("audio: unsupported wav format %d with %d bits per sample", h.AudioFormat, h.BitsPerSample)
	}
	data := payload[dataOffset : dataOffset+int(h.DataSize)]
	return LEToPCMInt16(data), h, nil
}
