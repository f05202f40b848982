package processing

import "github.com/philippe-ths/ai-running-coach/pkg/types"

const (
	intervalSmoothingWindow = 30
	activeSpeedFloor        = 0.5
	minActiveSamples        = 60
	bimodalMaxIterations    = 20
	bimodalConvergence      = 0.01
	bimodalSeparation       = 1.3 // high cluster must exceed 1.3x low cluster
	workLabelFactor         = 1.05
	restLabelFactor         = 0.95
	minWorkDurationS        = 30.0
	minRestDurationS        = 15.0
	minBookendDurationS     = 120.0 // warmup / cooldown
)

// segment is a contiguous same-label run over the smoothed velocity.
type segment struct {
	label      int // +1 work, -1 rest, 0 transition
	startIdx   int
	endIdx     int // inclusive
	startTimeS float64
	durationS  float64
}

// DetectIntervals segments an interval session into work and rest reps via
// bimodal thresholding of smoothed velocity. Returns nil whenever the
// session does not present a clean two-speed structure.
func DetectIntervals(s *types.Streams) *types.IntervalStructure {
	if s == nil || len(s.Velocity) < minActiveSamples {
		return nil
	}

	smoothed := smoothBoxcar(s.Velocity, intervalSmoothingWindow)

	var active []float64
	for _, v := range smoothed {
		if v > activeSpeedFloor {
			active = append(active, v)
		}
	}
	if len(active) < minActiveSamples {
		return nil
	}

	threshold, ok := bimodalThreshold(active)
	if !ok {
		return nil
	}

	segments := labelSegments(smoothed, s.Time, threshold)

	var work, rest []segment
	for _, seg := range segments {
		switch {
		case seg.label == 1 && seg.durationS >= minWorkDurationS:
			work = append(work, seg)
		case seg.label == -1 && seg.durationS >= minRestDurationS:
			rest = append(rest, seg)
		}
	}
	if len(work) < 2 {
		return nil
	}

	structure := &types.IntervalStructure{
		WorkSegments: buildWorkSegments(work, s),
		RestSegments: []types.RestSegment{},
	}

	// Warmup is the lead-in before the first work rep, cooldown the tail
	// after the last; both only count when long enough to be deliberate.
	if lead := work[0].startTimeS - timeAt(s, 0); lead >= minBookendDurationS {
		structure.WarmupDurationS = lead
	}
	if len(s.Velocity) > 0 {
		lastIdx := len(s.Velocity) - 1
		last := work[len(work)-1]
		if tail := timeAt(s, lastIdx) - (last.startTimeS + last.durationS); tail >= minBookendDurationS {
			structure.CooldownDurationS = tail
		}
	}

	structure.RestSegments = buildRestSegments(work, rest, s, structure.WorkSegments)
	structure.Summary = summarize(structure)
	return structure
}

// bimodalThreshold finds the speed separating work from rest by iterating
// the two-cluster mean split. Fails when the clusters are not separated
// enough to call the session bimodal.
func bimodalThreshold(active []float64) (float64, bool) {
	threshold := mean(active)
	var low, high float64
	for i := 0; i < bimodalMaxIterations; i++ {
		var lows, highs []float64
		for _, v := range active {
			if v <= threshold {
				lows = append(lows, v)
			} else {
				highs = append(highs, v)
			}
		}
		if len(lows) == 0 || len(highs) == 0 {
			return 0, false
		}
		low, high = mean(lows), mean(highs)
		next := (low + high) / 2
		if diff := next - threshold; diff < bimodalConvergence && diff > -bimodalConvergence {
			threshold = next
			break
		}
		threshold = next
	}
	if high < bimodalSeparation*low {
		return 0, false
	}
	return threshold, true
}

func labelSegments(smoothed, timeStream []float64, threshold float64) []segment {
	labelOf := func(v float64) int {
		switch {
		case v >= workLabelFactor*threshold:
			return 1
		case v <= restLabelFactor*threshold:
			return -1
		default:
			return 0
		}
	}

	var segments []segment
	start := 0
	current := labelOf(smoothed[0])
	for i := 1; i <= len(smoothed); i++ {
		if i < len(smoothed) && labelOf(smoothed[i]) == current {
			continue
		}
		end := i - 1
		segments = append(segments, segment{
			label:      current,
			startIdx:   start,
			endIdx:     end,
			startTimeS: timeAtIdx(timeStream, start),
			durationS:  timeAtIdx(timeStream, end) - timeAtIdx(timeStream, start),
		})
		if i < len(smoothed) {
			start = i
			current = labelOf(smoothed[i])
		}
	}
	return segments
}

func buildWorkSegments(work []segment, s *types.Streams) []types.WorkSegment {
	out := make([]types.WorkSegment, 0, len(work))
	for i, seg := range work {
		ws := types.WorkSegment{
			Segment:    i + 1,
			StartTimeS: seg.startTimeS,
			DurationS:  seg.durationS,
			AvgSpeedMS: mean(s.Velocity[seg.startIdx : seg.endIdx+1]),
		}
		if len(s.Distance) > seg.endIdx {
			d := s.Distance[seg.endIdx] - s.Distance[seg.startIdx]
			ws.DistanceM = &d
		}
		if len(s.Heartrate) > seg.endIdx {
			hrs := s.Heartrate[seg.startIdx : seg.endIdx+1]
			avg := mean(hrs)
			peak := hrs[0]
			for _, hr := range hrs {
				if hr > peak {
					peak = hr
				}
			}
			ws.AvgHR = &avg
			ws.PeakHR = &peak
		}
		out = append(out, ws)
	}
	return out
}

// buildRestSegments keeps the rest intervals lying between work reps and
// attributes each to the preceding rep for HR-recovery computation.
func buildRestSegments(work, rest []segment, s *types.Streams, workSegments []types.WorkSegment) []types.RestSegment {
	out := []types.RestSegment{}
	firstWorkStart := work[0].startIdx
	lastWorkEnd := work[len(work)-1].endIdx

	for _, seg := range rest {
		if seg.startIdx <= firstWorkStart || seg.endIdx >= lastWorkEnd {
			continue
		}

		rs := types.RestSegment{DurationS: seg.durationS}
		if len(s.Heartrate) > seg.endIdx {
			avg := mean(s.Heartrate[seg.startIdx : seg.endIdx+1])
			rs.AvgHR = &avg
		}

		// Previous work rep is the last one ending before this rest.
		prev := -1
		for i, w := range work {
			if w.endIdx < seg.startIdx {
				prev = i
			}
		}
		if prev >= 0 && rs.AvgHR != nil && workSegments[prev].PeakHR != nil {
			recovery := *workSegments[prev].PeakHR - *rs.AvgHR
			rs.HRRecoveryBPM = &recovery
		}

		out = append(out, rs)
	}
	return out
}

func summarize(structure *types.IntervalStructure) types.IntervalSummary {
	var workDurations, workSpeeds, restDurations, recoveries []float64
	var totalWork, totalRest float64
	for _, w := range structure.WorkSegments {
		workDurations = append(workDurations, w.DurationS)
		workSpeeds = append(workSpeeds, w.AvgSpeedMS)
		totalWork += w.DurationS
	}
	for _, r := range structure.RestSegments {
		restDurations = append(restDurations, r.DurationS)
		totalRest += r.DurationS
		if r.HRRecoveryBPM != nil {
			recoveries = append(recoveries, *r.HRRecoveryBPM)
		}
	}

	summary := types.IntervalSummary{
		RepCount:         len(structure.WorkSegments),
		TotalWorkTimeS:   roundTo(totalWork, 1),
		TotalRestTimeS:   roundTo(totalRest, 1),
		AvgWorkDurationS: roundTo(mean(workDurations), 1),
		WorkDurationCV:   cvSample(workDurations),
		AvgWorkSpeedMS:   roundTo(mean(workSpeeds), 2),
		WorkSpeedCV:      cvSample(workSpeeds),
		AvgRestDurationS: roundTo(mean(restDurations), 1),
	}
	if totalRest > 0 {
		ratio := roundTo(totalWork/totalRest, 2)
		summary.WorkToRestRatio = &ratio
	}
	if len(recoveries) > 0 {
		avg := roundTo(mean(recoveries), 1)
		summary.AvgHRRecoveryBPM = &avg
	}

	maxCV := maxFloat(summary.WorkDurationCV, summary.WorkSpeedCV)
	switch {
	case maxCV < 10:
		summary.ConsistencyScore = types.ConfidenceHigh
	case maxCV < 20:
		summary.ConsistencyScore = types.ConfidenceMedium
	default:
		summary.ConsistencyScore = types.ConfidenceLow
	}
	return summary
}

// cvSample is the sample coefficient of variation in percent.
func cvSample(xs []float64) float64 {
	m := mean(xs)
	if m == 0 {
		return 0
	}
	return roundTo(stdSample(xs)/m*100, 2)
}

// timeAt reads the time stream at idx, falling back to the index itself
// for 1 Hz streams without a time channel.
func timeAt(s *types.Streams, idx int) float64 {
	return timeAtIdx(s.Time, idx)
}

func timeAtIdx(timeStream []float64, idx int) float64 {
	if idx < len(timeStream) {
		return timeStream[idx]
	}
	return float64(idx)
}
