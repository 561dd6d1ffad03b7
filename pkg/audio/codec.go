package audio

import (
	"errors"
	"fmt"
	"sync"

	"layeh.com/gopus"
)

// OpusCodec converts between WebRTC Opus packets and 48 kHz mono PCM.
//
//	RTP payload ──▶ Decode() ──▶ Frame ──▶ pipeline
//	                                         │
//	Opus packet ◀── Encode() ◀── Framer ◀────┘ (synthesized reply)
//
// Decode and Encode may be called from different goroutines.
type OpusCodec struct {
	mu      sync.Mutex
	closed  bool
	decoder *gopus.Decoder
	encoder *gopus.Encoder
}

// NewOpusCodec creates a codec for the WebRTC audio format.
func NewOpusCodec() (*OpusCodec, error) {
	decoder, err := gopus.NewDecoder(WebRTCSampleRate, WebRTCChannels)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus decoder: %w", err)
	}

	encoder, err := gopus.NewEncoder(WebRTCSampleRate, WebRTCChannels, gopus.Voip)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}
	encoder.SetBitrate(DefaultOpusBitrate)

	return &OpusCodec{decoder: decoder, encoder: encoder}, nil
}

var errCodecClosed = errors.New("audio: opus codec closed")

// Decode turns one Opus packet into mono PCM at 48 kHz.
func (c *OpusCodec) Decode(packet []byte) ([]int16, error) {
	if len(packet) == 0 {
		return nil, errors.New("audio: empty opus packet")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, errCodecClosed
	}

	pcm, err := c.decoder.Decode(packet, WebRTCFrameSize, false)
	if err != nil {
		return nil, fmt.Errorf("opus decode: %w", err)
	}
	return pcm, nil
}

// Encode turns one 20 ms frame of 48 kHz mono PCM into an Opus packet.
func (c *OpusCodec) Encode(pcm []int16) ([]byte, error) {
	if len(pcm) != WebRTCFrameSize {
		return nil, fmt.Errorf("audio: need %d samples, got %d", WebRTCFrameSize, len(pcm))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, errCodecClosed
	}
	return c.encoder.Encode(pcm, WebRTCFrameSize, opusMaxPacketSize)
}

// Close releases the codec. Later calls fail.
func (c *OpusCodec) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// Framer splits PCM of arbitrary length into fixed-size frames, carrying the
// remainder into the next call.
type Framer struct {
	size    int
	pending []int16
}

// NewFramer returns a Framer producing frames of size samples.
func NewFramer(size int) *Framer {
	return &Framer{size: max(1, size)}
}

// Push appends samples and returns every complete frame.
func (f *Framer) Push(samples []int16) [][]int16 {
	f.pending = append(f.pending, samples...)
	var frames [][]int16
	for len(f.pending) >= f.size {
		frame := make([]int16, f.size)
		copy(frame, f.pending[:f.size])
		frames = append(frames, frame)
		f.pending = f.pending[f.size:]
	}
	return frames
}

// Flush returns the remainder padded with silence to a full frame, or nil
// when nothing is pending.
func (f *Framer) Flush() []int16 {
	if len(f.pending) == 0 {
		return nil
	}
	frame := make([]int16, f.size)
	copy(frame, f.pending)
	f.pending = nil
	return frame
}
