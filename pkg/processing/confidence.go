package processing

import (
	"github.com/philippe-ths/ai-running-coach/pkg/store"
	"github.com/philippe-ths/ai-running-coach/pkg/types"
)

// Confidence reason codes.
const (
	ReasonNoHeartRateData           = "no_heart_rate_data"
	ReasonNoStreamData              = "no_stream_data"
	ReasonNoGPSData                 = "no_gps_data"
	ReasonNoUserCheckIn             = "no_user_checkin"
	ReasonIntervalStructureMismatch = "interval_structure_mismatch"
	ReasonWorkTimeImplausiblyHigh   = "work_time_implausibly_high"
	ReasonNoWarmupDetected          = "no_warmup_detected"
)

// maxPlausibleWorkTimeS caps believable total work time in one session.
const maxPlausibleWorkTimeS = 2700

// criticalReasons are the codes that alone degrade confidence a level.
var criticalReasons = map[string]bool{
	ReasonNoHeartRateData:           true,
	ReasonNoStreamData:              true,
	ReasonIntervalStructureMismatch: true,
	ReasonWorkTimeImplausiblyHigh:   true,
	"high_rep_distance_variability": true,
}

// ConfidenceInputs feed the confidence computation.
type ConfidenceInputs struct {
	Activity  *store.Activity
	Streams   *types.Streams
	CheckIn   *store.CheckIn
	Class     string
	Structure *types.IntervalStructure
	Match     *types.WorkoutMatch
}

// ComputeConfidence accumulates data-presence and interval sanity reasons
// and maps them onto low/medium/high. Interval-derived reasons only apply
// when detection was actually attempted (class Intervals).
func ComputeConfidence(in ConfidenceInputs) (string, []string) {
	reasons := []string{}

	if in.Streams.IsEmpty() {
		reasons = append(reasons, ReasonNoStreamData)
	} else if !in.Streams.HasGPS() {
		reasons = append(reasons, ReasonNoGPSData)
	}

	// A missing summary average HR degrades the effort math no matter what
	// the streams carry, mirroring the data_low_confidence_hr flag.
	if in.Activity.AverageHR == nil {
		reasons = append(reasons, ReasonNoHeartRateData)
	}

	if in.CheckIn == nil {
		reasons = append(reasons, ReasonNoUserCheckIn)
	}

	if in.Class == types.ClassIntervals {
		if in.Match != nil {
			if in.Match.MatchScore != nil && *in.Match.MatchScore < 0.7 {
				reasons = append(reasons, ReasonIntervalStructureMismatch)
			}
			for _, r := range in.Match.Reasons {
				if r != ReasonNoPlannedWorkout {
					reasons = append(reasons, r)
				}
			}
		}
		if in.Structure != nil {
			if in.Structure.Summary.TotalWorkTimeS > maxPlausibleWorkTimeS {
				reasons = append(reasons, ReasonWorkTimeImplausiblyHigh)
			}
			if in.Structure.WarmupDurationS == 0 {
				reasons = append(reasons, ReasonNoWarmupDetected)
			}
		}
	}

	critical := 0
	for _, r := range reasons {
		if criticalReasons[r] {
			critical++
		}
	}

	switch {
	case critical >= 2:
		return types.ConfidenceLow, reasons
	case critical == 1 || len(reasons) >= 3:
		return types.ConfidenceMedium, reasons
	case len(reasons) == 0:
		return types.ConfidenceHigh, reasons
	default:
		return types.ConfidenceMedium, reasons
	}
}
