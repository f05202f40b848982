package processing

import "sort"

const (
	cadenceMedianWindow = 7
	cadenceMaxGapS      = 10.0
	cadenceSpikeCeiling = 250.0
)

// SmoothCadence cleans a raw cadence stream for presentation: dropouts and
// sensor spikes are removed, gaps of at most 10 s are linearly
// interpolated, and a rolling median flattens residual jitter. The stored
// stream is never mutated; callers get a copy.
func SmoothCadence(cadence, timeStream []float64) []float64 {
	if len(cadence) == 0 {
		return nil
	}

	cleaned := make([]float64, len(cadence))
	valid := make([]bool, len(cadence))
	for i, c := range cadence {
		if c > 0 && c <= cadenceSpikeCeiling {
			cleaned[i] = c
			valid[i] = true
		}
	}

	interpolateGaps(cleaned, valid, timeStream)
	return rollingMedian(cleaned, valid, cadenceMedianWindow)
}

// interpolateGaps fills invalid runs bounded by valid samples when the
// elapsed time across the run is within the gap limit.
func interpolateGaps(values []float64, valid []bool, timeStream []float64) {
	n := len(values)
	i := 0
	for i < n {
		if valid[i] {
			i++
			continue
		}
		start := i
		for i < n && !valid[i] {
			i++
		}
		end := i // first valid index after the gap, or n

		if start == 0 || end >= n {
			continue
		}

		gap := float64(end - start + 1)
		if start-1 < len(timeStream) && end < len(timeStream) {
			gap = timeStream[end] - timeStream[start-1]
		}
		if gap > cadenceMaxGapS {
			continue
		}

		lo, hi := values[start-1], values[end]
		span := float64(end - (start - 1))
		for j := start; j < end; j++ {
			frac := float64(j-(start-1)) / span
			values[j] = lo + (hi-lo)*frac
			valid[j] = true
		}
	}
}

func rollingMedian(values []float64, valid []bool, window int) []float64 {
	n := len(values)
	out := make([]float64, n)
	half := window / 2
	buf := make([]float64, 0, window)

	for i := 0; i < n; i++ {
		if !valid[i] {
			out[i] = 0
			continue
		}
		buf = buf[:0]
		for j := i - half; j <= i+half; j++ {
			if j >= 0 && j < n && valid[j] {
				buf = append(buf, values[j])
			}
		}
		if len(buf) == 0 {
			out[i] = values[i]
			continue
		}
		sort.Float64s(buf)
		mid := len(buf) / 2
		if len(buf)%2 == 0 {
			out[i] = (buf[mid-1] + buf[mid]) / 2
		} else {
			out[i] = buf[mid]
		}
	}
	return out
}
