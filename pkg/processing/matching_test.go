package processing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philippe-ths/ai-running-coach/pkg/types"
)

// consistentStructure builds a detected structure with identical reps.
func consistentStructure(reps int, repDistance, repDuration, restDuration float64) *types.IntervalStructure {
	structure := &types.IntervalStructure{}
	var totalWork, totalRest float64
	for i := 0; i < reps; i++ {
		d := repDistance
		structure.WorkSegments = append(structure.WorkSegments, types.WorkSegment{
			Segment:    i + 1,
			DurationS:  repDuration,
			DistanceM:  &d,
			AvgSpeedMS: repDistance / repDuration,
		})
		totalWork += repDuration
	}
	for i := 0; i < reps-1; i++ {
		structure.RestSegments = append(structure.RestSegments, types.RestSegment{DurationS: restDuration})
		totalRest += restDuration
	}
	ratio := totalWork / totalRest
	structure.Summary = types.IntervalSummary{
		RepCount:         reps,
		TotalWorkTimeS:   totalWork,
		TotalRestTimeS:   totalRest,
		WorkToRestRatio:  &ratio,
		AvgWorkDurationS: repDuration,
		AvgWorkSpeedMS:   repDistance / repDuration,
		AvgRestDurationS: restDuration,
		ConsistencyScore: types.ConfidenceHigh,
	}
	return structure
}

func TestMatchWorkoutNoDetection(t *testing.T) {
	match := MatchWorkout(nil, &types.PlannedWorkout{RepsPlanned: 8})
	require.NotNil(t, match)
	assert.Nil(t, match.MatchScore)
	assert.Equal(t, types.ConfidenceLow, match.DetectionConfidence)
	assert.Equal(t, []string{"no_intervals_detected"}, match.Reasons)
}

func TestMatchWorkoutNoPlan(t *testing.T) {
	structure := consistentStructure(5, 400, 100, 60)

	match := MatchWorkout(structure, nil)
	require.NotNil(t, match)
	assert.Nil(t, match.MatchScore)
	assert.Contains(t, match.Reasons, ReasonNoPlannedWorkout)
	// Consistent reps without a plan still rate medium.
	assert.Equal(t, types.ConfidenceMedium, match.DetectionConfidence)
}

func TestMatchWorkoutRepCountShortfall(t *testing.T) {
	// Planned 8x400 with 60s rest; only 5 clean reps detected.
	structure := consistentStructure(5, 400, 100, 60)
	plan := &types.PlannedWorkout{RepsPlanned: 8, RepDistanceM: 400, RestS: 60}

	match := MatchWorkout(structure, plan)
	require.NotNil(t, match)
	require.NotNil(t, match.MatchScore)

	// Criteria: count 5/8 = 0.625, distance 1.0, rest 1.0. The work-time
	// ratio (500/800 = 0.625) is above the implausibility floor and does
	// not join the score.
	assert.Equal(t, 0.88, *match.MatchScore)
	assert.Contains(t, match.Reasons, "rep_count_mismatch_planned_8_detected_5")
	assert.Equal(t, types.ConfidenceHigh, match.DetectionConfidence)
}

func TestMatchWorkoutNearMissRepCountStillReported(t *testing.T) {
	// 7 of 8 planned reps barely dents the score, but the shortfall is
	// still named for the confidence layer.
	structure := consistentStructure(7, 400, 100, 60)
	plan := &types.PlannedWorkout{RepsPlanned: 8, RepDistanceM: 400, RestS: 60}

	match := MatchWorkout(structure, plan)
	require.NotNil(t, match)
	require.NotNil(t, match.MatchScore)
	assert.Equal(t, 0.96, *match.MatchScore)
	assert.Contains(t, match.Reasons, "rep_count_mismatch_planned_8_detected_7")
}

func TestMatchWorkoutCriterionThresholds(t *testing.T) {
	// 300m reps against a 400m plan (0.75) and 45s rest against 60s (0.75)
	// stay under their per-criterion reporting bars.
	structure := consistentStructure(8, 300, 100, 45)
	plan := &types.PlannedWorkout{RepsPlanned: 8, RepDistanceM: 400, RestS: 60}

	match := MatchWorkout(structure, plan)
	require.NotNil(t, match)
	assert.NotContains(t, match.Reasons, "rep_distance_mismatch")
	assert.NotContains(t, match.Reasons, "rest_duration_mismatch")

	// 260m reps (0.65) and 25s rests (0.42) cross them.
	structure = consistentStructure(8, 260, 100, 25)
	match = MatchWorkout(structure, plan)
	require.NotNil(t, match)
	assert.Contains(t, match.Reasons, "rep_distance_mismatch")
	assert.Contains(t, match.Reasons, "rest_duration_mismatch")
}

func TestMatchWorkoutDistanceOutliers(t *testing.T) {
	structure := consistentStructure(4, 400, 100, 60)
	// Rewrite one rep to a wild distance.
	far := 900.0
	structure.WorkSegments[3].DistanceM = &far

	match := MatchWorkout(structure, nil)
	require.NotNil(t, match)
	assert.Contains(t, match.Reasons, "distance_outliers_1_of_4")
	assert.Contains(t, match.Reasons, "high_rep_distance_variability")
	// Outliers forfeit the medium grade for plan-less sessions.
	assert.Equal(t, types.ConfidenceLow, match.DetectionConfidence)
}

func TestMatchWorkoutImplausibleWorkTime(t *testing.T) {
	// Planned 10x400 but the detected work time is a fraction of what the
	// plan requires at any plausible speed.
	structure := consistentStructure(10, 400, 30, 60)
	structure.Summary.TotalWorkTimeS = 300
	plan := &types.PlannedWorkout{RepsPlanned: 10, RepDistanceM: 400}

	match := MatchWorkout(structure, plan)
	require.NotNil(t, match)
	assert.Contains(t, match.Reasons, "work_time_implausible_for_plan")
}

func TestBuildIntervalKPIs(t *testing.T) {
	structure := consistentStructure(2, 400, 100, 60)
	structure.WorkSegments[0].AvgSpeedMS = 4.0
	structure.WorkSegments[1].AvgSpeedMS = 3.6
	recovery := 30.0
	structure.RestSegments[0].HRRecoveryBPM = &recovery

	zones := map[string]int{"Z4": 100, "Z5": 50}

	kpis := BuildIntervalKPIs(structure, zones, true)
	require.NotNil(t, kpis)
	require.NotNil(t, kpis.FirstVsLastFade)
	assert.Equal(t, 0.9, *kpis.FirstVsLastFade)
	require.NotNil(t, kpis.RecoveryQualityPer60s)
	assert.Equal(t, 30.0, *kpis.RecoveryQualityPer60s)
	require.NotNil(t, kpis.TotalZ4PlusS)
	assert.Equal(t, 150, *kpis.TotalZ4PlusS)

	// Uncalibrated zones withhold the zone-derived KPI.
	kpis = BuildIntervalKPIs(structure, zones, false)
	require.NotNil(t, kpis)
	assert.Nil(t, kpis.TotalZ4PlusS)

	assert.Nil(t, BuildIntervalKPIs(nil, zones, true))
}
