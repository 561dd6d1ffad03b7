package audio

import (
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mjibson/go-dsp/window"
)

const (
	// Half-width of the interpolation kernel, counted in sinc zero crossings of
	// the lower of the two rates.
	sincZeroCrossings = 32

	// Passband edge as a fraction of the lower Nyquist frequency. With a
	// Blackman window and 32 zero crossings the transition band closes just
	// below Nyquist.
	filterRolloff = 0.90

	// maxPhases caps the polyphase table. Ratios needing more phases round
	// the output position to the nearest of maxPhases sub-sample offsets.
	maxPhases = 512

	filterBankCacheSize = 16
)

// filterBank is the polyphase decomposition of a Blackman-windowed sinc
// low-pass prototype designed at source*len(phases) Hz.
//
// Output sample n sits at input position n*down/up. Its integer part q and
// fractional part select the taps: the output is the dot product of
// x[q-half : q+half] with the phase nearest the fraction.
type filterBank struct {
	up, down int
	half     int
	phases   [][]float64
}

type ratio struct{ source, target int }

var filterBanks, _ = lru.New[ratio, *filterBank](filterBankCacheSize)

func bankFor(sourceRate, targetRate int) *filterBank {
	key := ratio{sourceRate, targetRate}
	if b, ok := filterBanks.Get(key); ok {
		return b
	}
	b := newFilterBank(sourceRate, targetRate)
	filterBanks.Add(key, b)
	return b
}

func newFilterBank(sourceRate, targetRate int) *filterBank {
	g := gcd(sourceRate, targetRate)
	up, down := targetRate/g, sourceRate/g
	count := min(up, maxPhases)

	lower := min(sourceRate, targetRate)
	// cycles per input sample
	cutoff := filterRolloff * float64(lower) / (2 * float64(sourceRate))
	half := int(math.Ceil(sincZeroCrossings * float64(sourceRate) / float64(lower)))
	taps := 2*half + 1

	proto := window.Blackman(2*half*count + 1)

	phases := make([][]float64, count)
	for p := 0; p < count; p++ {
		h := make([]float64, taps)
		var sum float64
		for i := 0; i < taps; i++ {
			k := i - half
			m := p - k*count + half*count
			if m < 0 || m >= len(proto) {
				continue
			}
			tau := float64(p)/float64(count) - float64(k)
			h[i] = 2 * cutoff * sinc(2*cutoff*tau) * proto[m]
			sum += h[i]
		}
		// unity DC gain on every phase
		if sum != 0 {
			for i := range h {
				h[i] /= sum
			}
		}
		phases[p] = h
	}

	return &filterBank{up: up, down: down, half: half, phases: phases}
}

// at returns the input index and the taps for output sample n.
func (b *filterBank) at(n int64) (int64, []float64) {
	pos := n * int64(b.down)
	up := int64(b.up)
	q, frac := pos/up, pos%up

	count := int64(len(b.phases))
	if count == up {
		return q, b.phases[frac]
	}
	p := (frac*count + up/2) / up
	if p == count {
		return q + 1, b.phases[0]
	}
	return q, b.phases[p]
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// OutputLength returns round(n * targetRate / sourceRate).
func OutputLength(n, sourceRate, targetRate int) int {
	num := 2*int64(n)*int64(targetRate) + int64(sourceRate)
	return int(num / (2 * int64(sourceRate)))
}

// Convert resamples mono samples from sourceRate to targetRate with a
// band-limited polyphase filter. Samples outside the block are treated as
// silence. The result has OutputLength(len(samples), sourceRate, targetRate)
// samples.
func Convert(samples []int16, sourceRate, targetRate int) ([]int16, error) {
	if sourceRate <= 0 || targetRate <= 0 {
		return nil, &InvalidRateError{SourceRate: sourceRate, TargetRate: targetRate}
	}
	if sourceRate == targetRate {
		out := make([]int16, len(samples))
		copy(out, samples)
		return out, nil
	}

	bank := bankFor(sourceRate, targetRate)
	outLen := OutputLength(len(samples), sourceRate, targetRate)
	out := make([]int16, outLen)

	for n := 0; n < outLen; n++ {
		at, h := bank.at(int64(n))
		q := int(at)

		lo := max(0, q-bank.half)
		hi := min(len(samples)-1, q+bank.half)
		var acc float64
		for j := lo; j <= hi; j++ {
			acc += float64(samples[j]) * h[j-q+bank.half]
		}
		out[n] = ClampInt16(acc)
	}

	return out, nil
}

// ConvertInterleaved resamples each channel of interleaved samples independently.
func ConvertInterleaved(samples []int16, channels, sourceRate, targetRate int) ([]int16, error) {
	if channels <= 1 {
		return Convert(samples, sourceRate, targetRate)
	}
	split := Deinterleave(samples, channels)
	for c := range split {
		converted, err := Convert(split[c], sourceRate, targetRate)
		if err != nil {
			return nil, err
		}
		split[c] = converted
	}
	return Interleave(split), nil
}

// StreamConverter resamples a continuous mono stream delivered in pieces. It
// keeps enough input history for the filter to span piece boundaries, so the
// concatenated output equals a single Convert of the whole stream apart from
// the tail still held back for look-ahead.
//
// A StreamConverter is owned by a single goroutine.
type StreamConverter struct {
	sourceRate int
	targetRate int
	bank       *filterBank

	history []float64
	base    int64 // absolute input index of history[0]
	next    int64 // absolute index of the next output sample
}

// NewStreamConverter returns a converter from sourceRate to targetRate.
func NewStreamConverter(sourceRate, targetRate int) (*StreamConverter, error) {
	if sourceRate <= 0 || targetRate <= 0 {
		return nil, &InvalidRateError{SourceRate: sourceRate, TargetRate: targetRate}
	}
	c := &StreamConverter{sourceRate: sourceRate, targetRate: targetRate}
	if sourceRate != targetRate {
		c.bank = bankFor(sourceRate, targetRate)
	}
	return c, nil
}

// SourceRate returns the input rate the converter was built for.
func (c *StreamConverter) SourceRate() int { return c.sourceRate }

// TargetRate returns the output rate.
func (c *StreamConverter) TargetRate() int { return c.targetRate }

// Process consumes samples and returns every output sample whose filter
// window is now fully available.
func (c *StreamConverter) Process(samples []int16) []int16 {
	if c.bank == nil {
		out := make([]int16, len(samples))
		copy(out, samples)
		return out
	}

	for _, s := range samples {
		c.history = append(c.history, float64(s))
	}
	end := c.base + int64(len(c.history))

	up, down, half := int64(c.bank.up), int64(c.bank.down), int64(c.bank.half)
	var out []int16
	for {
		q, h := c.bank.at(c.next)
		if q+half >= end {
			break
		}

		var acc float64
		for j := max(0, q-half); j <= q+half; j++ {
			acc += c.history[j-c.base] * h[j-q+half]
		}
		out = append(out, ClampInt16(acc))
		c.next++
	}

	// drop input no future output can reach
	keep := c.next*down/up - half
	if drop := keep - c.base; drop > 0 {
		c.history = append(c.history[:0], c.history[drop:]...)
		c.base = keep
	}

	return out
}

// Reset discards the buffered history and restarts the stream.
func (c *StreamConverter) Reset() {
	c.history = c.history[:0]
	c.base = 0
	c.next = 0
}
