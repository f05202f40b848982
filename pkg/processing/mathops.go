package processing

import "math"

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stdPop is the population standard deviation (divisor n).
func stdPop(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	var sum float64
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)))
}

// stdSample is the sample standard deviation (divisor n-1).
func stdSample(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var sum float64
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)-1))
}

func roundTo(x float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(x*scale) / scale
}

// smoothBoxcar applies a centered moving average of the given window,
// zero-padding past the edges so the output has the input's length.
func smoothBoxcar(xs []float64, window int) []float64 {
	n := len(xs)
	out := make([]float64, n)
	offset := (window - 1) / 2
	for i := range out {
		hi := i + offset
		var sum float64
		for k := 0; k < window; k++ {
			idx := hi - k
			if idx >= 0 && idx < n {
				sum += xs[idx]
			}
		}
		out[i] = sum / float64(window)
	}
	return out
}

// maxRollingMean returns the maximum mean over every full window of the
// given size. Returns 0 when the series is shorter than the window.
func maxRollingMean(xs []float64, window int) float64 {
	if len(xs) < window || window <= 0 {
		return 0
	}
	var sum float64
	for i := 0; i < window; i++ {
		sum += xs[i]
	}
	best := sum
	for i := window; i < len(xs); i++ {
		sum += xs[i] - xs[i-window]
		if sum > best {
			best = sum
		}
	}
	return best / float64(window)
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// ratioMinMax returns min(a,b)/max(a,b), or 0 when either side is zero.
func ratioMinMax(a, b float64) float64 {
	if a <= 0 || b <= 0 {
		return 0
	}
	return minFloat(a, b) / maxFloat(a, b)
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j] < sorted[j-1]; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func ptr[T any](v T) *T { return &v }
