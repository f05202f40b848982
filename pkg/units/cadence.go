// Package units holds pure presentation-boundary conversions.
package units

// cadenceDoubleBelow is the cutoff under which a cadence value is assumed
// to be strides/min rather than steps/min.
const cadenceDoubleBelow = 130.0

// NormalizeCadence doubles a cadence value strictly below 130, converting
// provider strides/min to steps/min. Applied only at presentation
// boundaries; stored values are never mutated.
func NormalizeCadence(v float64) float64 {
	if v > 0 && v < cadenceDoubleBelow {
		return v * 2
	}
	return v
}

// NormalizeCadencePtr normalizes an optional cadence value.
func NormalizeCadencePtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	n := NormalizeCadence(*v)
	return &n
}

// NormalizeCadenceStream returns a normalized copy of a cadence stream.
// The whole stream is doubled when its average over positive samples is
// below the cutoff, so mixed charts stay on one scale.
func NormalizeCadenceStream(stream []float64) []float64 {
	if len(stream) == 0 {
		return nil
	}

	var sum float64
	var n int
	for _, v := range stream {
		if v > 0 {
			sum += v
			n++
		}
	}

	out := make([]float64, len(stream))
	copy(out, stream)
	if n == 0 || sum/float64(n) >= cadenceDoubleBelow {
		return out
	}
	for i := range out {
		out[i] *= 2
	}
	return out
}
