package processing

import "github.com/philippe-ths/ai-running-coach/pkg/types"

// AnalyzeStops groups contiguous not-moving regions of the activity.
// Requires aligned moving and time streams; when the moving channel is
// absent continuous motion is assumed and no analysis is produced. A
// stop's duration spans its not-moving samples only, so single-sample
// blips carry no duration and are dropped.
func AnalyzeStops(s *types.Streams) *types.StopsAnalysis {
	if s == nil || len(s.Moving) == 0 || len(s.Time) != len(s.Moving) {
		return nil
	}

	analysis := &types.StopsAnalysis{Stops: []types.Stop{}}

	n := len(s.Moving)
	for i := 0; i < n; {
		if s.Moving[i] {
			i++
			continue
		}

		start := i
		for i < n && !s.Moving[i] {
			i++
		}
		end := i - 1

		duration := s.Time[end] - s.Time[start]
		if duration <= 0 {
			continue
		}

		stop := types.Stop{
			StartTimeS: s.Time[start],
			DurationS:  duration,
		}
		if start < len(s.LatLng) {
			ll := s.LatLng[start]
			stop.LatLng = &ll
		}
		if start < len(s.Distance) {
			d := s.Distance[start]
			stop.DistanceM = &d
		}

		analysis.Stops = append(analysis.Stops, stop)
		analysis.TotalStoppedTimeS += duration
		if duration > analysis.LongestStopS {
			analysis.LongestStopS = duration
		}
	}

	analysis.StopCount = len(analysis.Stops)
	return analysis
}
