package audio

// DefaultEnergyThreshold is the mean-square level, on raw int16 samples, above
// which a chunk is treated as speech.
const DefaultEnergyThreshold = 500.0

// EnergyGate classifies chunks as speech or silence by mean squared amplitude.
type EnergyGate struct {
	threshold float64
}

// NewEnergyGate returns a gate with the given mean-square threshold.
func NewEnergyGate(threshold float64) EnergyGate {
	return EnergyGate{threshold: threshold}
}

// Threshold returns the configured threshold.
func (g EnergyGate) Threshold() float64 { return g.threshold }

// Classify returns whether samples are likely speech together with their energy.
func (g EnergyGate) Classify(samples []int16) (bool, float64) {
	energy := MeanSquare(samples)
	return energy > g.threshold, energy
}

// MeanSquare returns mean(s²) over samples, or 0 for an empty slice.
func MeanSquare(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return sum / float64(len(samples))
}
