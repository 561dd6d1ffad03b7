package audio

import (
	"fmt"
	"math"

	"github.com/smallnest/ringbuffer"
)

// RingBuffer accumulates mono PCM until a fixed duration is reached and then
// hands out exactly that many samples. The byte ring holds one chunk; it is
// drained the moment it fills, so fewer than Target samples are ever pending.
//
// RingBuffer is not safe for concurrent use.
type RingBuffer struct {
	target     int
	sampleRate int
	store      *ringbuffer.RingBuffer
	ready      [][]int16
}

// NewRingBuffer creates a buffer that flushes every round(duration*sampleRate) samples.
func NewRingBuffer(durationSeconds float64, sampleRate int) (*RingBuffer, error) {
	if sampleRate <= 0 {
		return nil, &InvalidRateError{SourceRate: sampleRate, TargetRate: sampleRate}
	}
	target := int(math.Round(durationSeconds * float64(sampleRate)))
	if target < 1 {
		return nil, fmt.Errorf("audio: buffer duration %.3fs at %d Hz holds no samples", durationSeconds, sampleRate)
	}

	return &RingBuffer{
		target:     target,
		sampleRate: sampleRate,
		store:      ringbuffer.New(target * BytesPerSample).SetBlocking(false),
	}, nil
}

// Target returns the number of samples in every emitted chunk.
func (b *RingBuffer) Target() int { return b.target }

// SampleRate returns the rate the buffer was sized for.
func (b *RingBuffer) SampleRate() int { return b.sampleRate }

// Pending returns the number of samples accumulated towards the next chunk.
func (b *RingBuffer) Pending() int { return b.store.Length() / BytesPerSample }

// Ready returns the number of complete chunks not yet returned.
func (b *RingBuffer) Ready() int { return len(b.ready) }

// Push appends samples. If a chunk is complete the oldest one is returned.
// When a single push completes more than one chunk the rest are available
// through Next.
func (b *RingBuffer) Push(samples []int16) ([]int16, bool) {
	raw := PCMInt16ToLE(samples)
	for len(raw) > 0 {
		n := min(b.store.Free(), len(raw))
		written, _ := b.store.Write(raw[:n])
		raw = raw[written:]
		if b.store.IsFull() {
			b.flush()
		}
	}
	return b.Next()
}

// Next returns the next complete chunk, if any.
func (b *RingBuffer) Next() ([]int16, bool) {
	if len(b.ready) == 0 {
		return nil, false
	}
	chunk := b.ready[0]
	b.ready[0] = nil
	b.ready = b.ready[1:]
	return chunk, true
}

func (b *RingBuffer) flush() {
	raw := make([]byte, b.target*BytesPerSample)
	n, _ := b.store.Read(raw)
	b.ready = append(b.ready, LEToPCMInt16(raw[:n]))
}

// Reset drops pending samples and unreturned chunks.
func (b *RingBuffer) Reset() {
	b.store.Reset()
	b.ready = nil
}
