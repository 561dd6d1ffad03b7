package audio

import (
	"bytes"
	"fmt"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"
	"layeh.com/gopus"
)

const (
	MIMETypeOggOpus = "audio/ogg; codecs=opus"

	DefaultOpusBitrate = 32_000

	// Ogg Opus granule positions always run at 48 kHz.
	opusGranuleRate   = 48_000
	opusMaxPacketSize = 4000
	opusPayloadType   = 111
)

// opusRates lists the input rates libopus accepts, ascending.
var opusRates = []int{8_000, 12_000, 16_000, 24_000, 48_000}

// OpusRate returns the Opus input rate used for audio at sampleRate: the rate
// itself when supported, otherwise the smallest supported rate above it, or
// 48 kHz.
func OpusRate(sampleRate int) int {
	for _, r := range opusRates {
		if r >= sampleRate {
			return r
		}
	}
	return opusRates[len(opusRates)-1]
}

// OpusEncoder produces Ogg Opus payloads. Audio at a rate Opus cannot take is
// resampled first and the returned Encoded reports the rate actually encoded.
type OpusEncoder struct {
	Bitrate int
}

// Encode implements Encoder.
func (e OpusEncoder) Encode(samples []int16, sampleRate, channels int) (Encoded, error) {
	if err := validatePCM("opus", samples, sampleRate, channels); err != nil {
		return Encoded{}, err
	}
	if channels > 2 {
		return Encoded{}, &EncodingError{Format: "opus", Reason: fmt.Sprintf("%d channels not supported", channels)}
	}

	rate := OpusRate(sampleRate)
	pcm := samples
	if rate != sampleRate {
		converted, err := ConvertInterleaved(samples, channels, sampleRate, rate)
		if err != nil {
			return Encoded{}, &EncodingError{Format: "opus", Reason: "resample to supported rate", Err: err}
		}
		pcm = converted
	}

	enc, err := gopus.NewEncoder(rate, channels, gopus.Voip)
	if err != nil {
		return Encoded{}, &EncodingError{Format: "opus", Reason: "create encoder", Err: err}
	}
	bitrate := e.Bitrate
	if bitrate <= 0 {
		bitrate = DefaultOpusBitrate
	}
	enc.SetBitrate(bitrate)

	var buf bytes.Buffer
	ogg, err := oggwriter.NewWith(&buf, uint32(rate), uint16(channels))
	if err != nil {
		return Encoded{}, &EncodingError{Format: "opus", Reason: "create ogg writer", Err: err}
	}

	frameSize := rate * int(FrameDuration.Milliseconds()) / 1000
	step := frameSize * channels
	granuleStep := uint32(opusGranuleRate * FrameDuration.Milliseconds() / 1000)

	var (
		seq uint16
		ts  uint32
	)
	frame := make([]int16, step)
	for off := 0; off < len(pcm); off += step {
		n := copy(frame, pcm[off:min(off+step, len(pcm))])
		clear(frame[n:])

		packet, err := enc.Encode(frame, frameSize, opusMaxPacketSize)
		if err != nil {
			return Encoded{}, &EncodingError{Format: "opus", Reason: "encode frame", Err: err}
		}
		err = ogg.WriteRTP(&rtp.Packet{
			Header: rtp.Header{
				Version:        2,
				PayloadType:    opusPayloadType,
				SequenceNumber: seq,
				Timestamp:      ts,
			},
			Payload: packet,
		})
		if err != nil {
			return Encoded{}, &EncodingError{Format: "opus", Reason: "write ogg page", Err: err}
		}
		seq++
		ts += granuleStep
	}
	if err := ogg.Close(); err != nil {
		return Encoded{}, &EncodingError{Format: "opus", Reason: "close ogg writer", Err: err}
	}

	return Encoded{
		Payload:     buf.Bytes(),
		MIMEType:    MIMETypeOggOpus,
		SampleRate:  rate,
		Channels:    channels,
		RateChanged: rate != sampleRate,
	}, nil
}
