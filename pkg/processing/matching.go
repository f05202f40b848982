package processing

import (
	"fmt"

	"github.com/philippe-ths/ai-running-coach/pkg/types"
)

const (
	// Assumed work speed for the plan-plausibility sanity check.
	plausibilitySpeedMS = 4.0
	// A work-time ratio this far off drags the score down; closer misses
	// are already covered by the per-criterion ratios.
	workTimeRatioFloor = 0.4

	// Per-criterion mismatch thresholds. Any rep-count shortfall is named;
	// distance and rest tolerate wider misses before joining the reasons.
	repDistanceMismatchRatio  = 0.7
	restDurationMismatchRatio = 0.5

	distanceOutlierFraction = 0.5
	variabilityCVThreshold  = 30.0
)

// ReasonNoPlannedWorkout marks a match computed without a declared plan.
const ReasonNoPlannedWorkout = "no_planned_workout"

// MatchWorkout compares a detected interval structure to an optional plan
// and produces a match score plus a detection-confidence label gating what
// downstream consumers may assert.
func MatchWorkout(structure *types.IntervalStructure, plan *types.PlannedWorkout) *types.WorkoutMatch {
	if structure == nil {
		return &types.WorkoutMatch{
			DetectionConfidence: types.ConfidenceLow,
			Reasons:             []string{"no_intervals_detected"},
		}
	}

	reasons := []string{}
	distances := repDistances(structure)
	outliers := distanceOutliers(distances)
	if outliers > 0 {
		reasons = append(reasons, fmt.Sprintf("distance_outliers_%d_of_%d", outliers, len(distances)))
	}
	if len(distances) >= 2 && cvSample(distances) > variabilityCVThreshold {
		reasons = append(reasons, "high_rep_distance_variability")
	}
	if structure.Summary.WorkDurationCV > variabilityCVThreshold {
		reasons = append(reasons, "high_rep_duration_variability")
	}

	if plan == nil {
		reasons = append(reasons, ReasonNoPlannedWorkout)
		confidence := types.ConfidenceLow
		if structure.Summary.ConsistencyScore == types.ConfidenceHigh && outliers == 0 {
			confidence = types.ConfidenceMedium
		}
		return &types.WorkoutMatch{
			DetectionConfidence: confidence,
			Reasons:             reasons,
		}
	}

	var scores []float64

	detected := structure.Summary.RepCount
	countRatio := ratioMinMax(float64(detected), float64(plan.RepsPlanned))
	scores = append(scores, countRatio)
	if detected != plan.RepsPlanned {
		reasons = append(reasons, fmt.Sprintf("rep_count_mismatch_planned_%d_detected_%d", plan.RepsPlanned, detected))
	}

	if plan.RepDistanceM > 0 && len(distances) > 0 {
		distRatio := ratioMinMax(mean(distances), plan.RepDistanceM)
		scores = append(scores, distRatio)
		if distRatio < repDistanceMismatchRatio {
			reasons = append(reasons, "rep_distance_mismatch")
		}
	}

	if plan.RestS > 0 && structure.Summary.AvgRestDurationS > 0 {
		restRatio := ratioMinMax(structure.Summary.AvgRestDurationS, plan.RestS)
		scores = append(scores, restRatio)
		if restRatio < restDurationMismatchRatio {
			reasons = append(reasons, "rest_duration_mismatch")
		}
	}

	if plan.RepDistanceM > 0 && plan.RepsPlanned > 0 {
		expectedWorkS := float64(plan.RepsPlanned) * plan.RepDistanceM / plausibilitySpeedMS
		workRatio := ratioMinMax(structure.Summary.TotalWorkTimeS, expectedWorkS)
		if workRatio < workTimeRatioFloor {
			scores = append(scores, workRatio)
			reasons = append(reasons, "work_time_implausible_for_plan")
		}
	}

	score := 0.0
	if len(scores) > 0 {
		score = roundTo(mean(scores), 2)
	}

	critical := 0
	for _, r := range reasons {
		if r != ReasonNoPlannedWorkout {
			critical++
		}
	}

	var confidence string
	switch {
	case score >= 0.8 && critical <= 1:
		confidence = types.ConfidenceHigh
	case score >= 0.5:
		confidence = types.ConfidenceMedium
	default:
		confidence = types.ConfidenceLow
	}

	return &types.WorkoutMatch{
		MatchScore:          &score,
		DetectionConfidence: confidence,
		Reasons:             reasons,
	}
}

// BuildIntervalKPIs derives headline rep numbers from a detected
// structure. Zone-derived time only counts when zones are calibrated.
func BuildIntervalKPIs(structure *types.IntervalStructure, zones map[string]int, zonesCalibrated bool) *types.IntervalKPIs {
	if structure == nil {
		return nil
	}

	kpis := &types.IntervalKPIs{
		RepPaceConsistencyCV: ptr(structure.Summary.WorkSpeedCV),
	}

	works := structure.WorkSegments
	if len(works) >= 2 {
		first := works[0].AvgSpeedMS
		last := works[len(works)-1].AvgSpeedMS
		if first > 0 {
			kpis.FirstVsLastFade = ptr(roundTo(last/first, 2))
		}
	}

	var recoveryRates []float64
	for _, r := range structure.RestSegments {
		if r.HRRecoveryBPM != nil && r.DurationS > 0 {
			recoveryRates = append(recoveryRates, *r.HRRecoveryBPM/r.DurationS*60)
		}
	}
	if len(recoveryRates) > 0 {
		kpis.RecoveryQualityPer60s = ptr(roundTo(mean(recoveryRates), 1))
	}

	kpis.WorkRestRatio = structure.Summary.WorkToRestRatio

	if zonesCalibrated && zones != nil {
		total := zones["Z4"] + zones["Z5"]
		kpis.TotalZ4PlusS = &total
	}

	return kpis
}

func repDistances(structure *types.IntervalStructure) []float64 {
	var out []float64
	for _, w := range structure.WorkSegments {
		if w.DistanceM != nil {
			out = append(out, *w.DistanceM)
		}
	}
	return out
}

// distanceOutliers counts reps whose distance deviates more than 50% from
// the median rep distance.
func distanceOutliers(distances []float64) int {
	if len(distances) < 2 {
		return 0
	}
	med := median(distances)
	if med == 0 {
		return 0
	}
	outliers := 0
	for _, d := range distances {
		dev := (d - med) / med
		if dev < 0 {
			dev = -dev
		}
		if dev > distanceOutlierFraction {
			outliers++
		}
	}
	return outliers
}
