package processing

import "github.com/philippe-ths/ai-running-coach/pkg/types"

const (
	splitDistanceM     = 1000.0
	splitTimeS         = 300.0
	minPartialDistance = 100.0 // tail shorter than this is noise
	minPartialTimeS    = 30.0
)

// ComputeSplits slices the activity into 1 km distance splits, falling
// back to 5-minute time splits when no distance stream exists. A partial
// tail split is kept when it is long enough to mean something.
func ComputeSplits(s *types.Streams) []types.Split {
	if s == nil {
		return nil
	}
	if len(s.Distance) > 0 && len(s.Time) > 0 {
		return distanceSplits(s)
	}
	if len(s.Time) > 0 {
		return timeSplits(s)
	}
	return nil
}

func distanceSplits(s *types.Streams) []types.Split {
	n := len(s.Distance)
	if len(s.Time) < n {
		n = len(s.Time)
	}
	if n < 2 {
		return nil
	}

	var splits []types.Split
	start := 0
	base := s.Distance[0]
	for i := 1; i < n; i++ {
		if s.Distance[i]-base >= splitDistanceM {
			splits = append(splits, buildSplit(s, len(splits)+1, start, i, false))
			start = i
			base = s.Distance[i]
		}
	}
	if tail := s.Distance[n-1] - base; tail > minPartialDistance && start < n-1 {
		splits = append(splits, buildSplit(s, len(splits)+1, start, n-1, true))
	}
	return splits
}

func timeSplits(s *types.Streams) []types.Split {
	n := len(s.Time)
	if n < 2 {
		return nil
	}

	var splits []types.Split
	start := 0
	base := s.Time[0]
	for i := 1; i < n; i++ {
		if s.Time[i]-base >= splitTimeS {
			splits = append(splits, buildSplit(s, len(splits)+1, start, i, false))
			start = i
			base = s.Time[i]
		}
	}
	if tail := s.Time[n-1] - base; tail > minPartialTimeS && start < n-1 {
		splits = append(splits, buildSplit(s, len(splits)+1, start, n-1, true))
	}
	return splits
}

func buildSplit(s *types.Streams, number, start, end int, partial bool) types.Split {
	split := types.Split{
		Split:     number,
		DurationS: s.Time[end] - s.Time[start],
		Partial:   partial,
	}
	if end < len(s.Distance) {
		split.DistanceM = s.Distance[end] - s.Distance[start]
	}

	if split.DurationS > 0 && split.DistanceM > 0 {
		split.AvgSpeedMS = ptr(roundTo(split.DistanceM/split.DurationS, 3))
		split.PaceSPerKM = ptr(roundTo(split.DurationS/(split.DistanceM/1000), 1))
	}
	if avg := channelMean(s.Heartrate, start, end); avg != nil {
		split.AvgHR = ptr(roundTo(*avg, 1))
	}
	if avg := channelMean(s.Cadence, start, end); avg != nil {
		split.AvgCadence = ptr(roundTo(*avg, 1))
	}
	if avg := channelMean(s.Watts, start, end); avg != nil {
		split.AvgWatts = ptr(roundTo(*avg, 1))
	}
	if avg := channelMean(s.Grade, start, end); avg != nil {
		split.AvgGrade = ptr(roundTo(*avg, 2))
	}
	if end < len(s.Altitude) {
		var gain float64
		for i := start + 1; i <= end; i++ {
			if d := s.Altitude[i] - s.Altitude[i-1]; d > 0 {
				gain += d
			}
		}
		split.ElevationGainM = ptr(roundTo(gain, 1))
	}
	return split
}

func channelMean(channel []float64, start, end int) *float64 {
	if end >= len(channel) || start > end {
		return nil
	}
	m := mean(channel[start : end+1])
	return &m
}
