// Package types holds the domain records shared between ingest, processing,
// persistence and the API surface.
package types

// Activity classes assigned by the classifier.
const (
	ClassEasyRun     = "Easy Run"
	ClassLongRun     = "Long Run"
	ClassTempo       = "Tempo"
	ClassIntervals   = "Intervals"
	ClassHills       = "Hills"
	ClassRecovery    = "Recovery"
	ClassRace        = "Race"
	ClassIndoorRide  = "Indoor Ride"
	ClassEasyRide    = "Easy Ride"
	ClassTreadmill   = "Treadmill"
	ClassLeisureWalk = "Leisure Walk"
	ClassEndurance   = "Endurance"
	ClassStrength    = "Strength"
)

// Risk levels.
const (
	RiskGreen = "green"
	RiskAmber = "amber"
	RiskRed   = "red"
)

// Confidence levels, shared by detection confidence and overall confidence.
const (
	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)

// Stop is one contiguous not-moving region of an activity.
type Stop struct {
	StartTimeS float64     `json:"start_time_s"`
	DurationS  float64     `json:"duration_s"`
	LatLng     *[2]float64 `json:"latlng,omitempty"`
	DistanceM  *float64    `json:"distance_m,omitempty"`
}

// StopsAnalysis summarizes the not-moving regions of an activity.
type StopsAnalysis struct {
	TotalStoppedTimeS float64 `json:"total_stopped_time_s"`
	StopCount         int     `json:"stop_count"`
	LongestStopS      float64 `json:"longest_stop_s"`
	Stops             []Stop  `json:"stops"`
}

// EfficiencyAnalysis reports speed-per-heartbeat efficiency in m/min/bpm.
type EfficiencyAnalysis struct {
	AverageEfficiency       float64   `json:"average_efficiency"`
	BestSustainedEfficiency float64   `json:"best_sustained_efficiency"`
	EfficiencyCurve         []float64 `json:"efficiency_curve"`
	Unit                    string    `json:"unit"`
}

// WorkSegment is one detected work rep of an interval session.
type WorkSegment struct {
	Segment    int      `json:"segment"`
	StartTimeS float64  `json:"start_time_s"`
	DurationS  float64  `json:"duration_s"`
	DistanceM  *float64 `json:"distance_m"`
	AvgSpeedMS float64  `json:"avg_speed_ms"`
	AvgHR      *float64 `json:"avg_hr"`
	PeakHR     *float64 `json:"peak_hr"`
}

// RestSegment is a recovery interval between two work reps.
type RestSegment struct {
	DurationS     float64  `json:"duration_s"`
	AvgHR         *float64 `json:"avg_hr"`
	HRRecoveryBPM *float64 `json:"hr_recovery_bpm"`
}

// IntervalSummary aggregates the detected work and rest segments.
type IntervalSummary struct {
	RepCount         int      `json:"rep_count"`
	TotalWorkTimeS   float64  `json:"total_work_time_s"`
	TotalRestTimeS   float64  `json:"total_rest_time_s"`
	WorkToRestRatio  *float64 `json:"work_to_rest_ratio"`
	AvgWorkDurationS float64  `json:"avg_work_duration_s"`
	WorkDurationCV   float64  `json:"work_duration_cv"`
	AvgWorkSpeedMS   float64  `json:"avg_work_speed_ms"`
	WorkSpeedCV      float64  `json:"work_speed_cv"`
	AvgRestDurationS float64  `json:"avg_rest_duration_s"`
	AvgHRRecoveryBPM *float64 `json:"avg_hr_recovery_bpm"`
	ConsistencyScore string   `json:"consistency_score"`
}

// IntervalStructure is the full detected shape of an interval session.
type IntervalStructure struct {
	WarmupDurationS   float64         `json:"warmup_duration_s"`
	CooldownDurationS float64         `json:"cooldown_duration_s"`
	WorkSegments      []WorkSegment   `json:"work_segments"`
	RestSegments      []RestSegment   `json:"rest_segments"`
	Summary           IntervalSummary `json:"summary"`
}

// PlannedWorkout is a declared interval plan to match a detection against.
type PlannedWorkout struct {
	RepsPlanned  int     `json:"reps_planned"`
	RepDistanceM float64 `json:"rep_distance_m"`
	RestS        float64 `json:"rest_s"`
}

// WorkoutMatch compares a detected interval structure to a plan.
type WorkoutMatch struct {
	MatchScore          *float64 `json:"match_score"`
	DetectionConfidence string   `json:"detection_confidence"`
	Reasons             []string `json:"reasons"`
}

// IntervalKPIs are headline numbers derived from a detected structure.
type IntervalKPIs struct {
	RepPaceConsistencyCV  *float64 `json:"rep_pace_consistency_cv"`
	FirstVsLastFade       *float64 `json:"first_vs_last_fade"`
	RecoveryQualityPer60s *float64 `json:"recovery_quality_per_60s"`
	WorkRestRatio         *float64 `json:"work_rest_ratio"`
	TotalZ4PlusS          *int     `json:"total_z4_plus_s"`
}

// TrainingContext describes the 7 days of training before an activity.
type TrainingContext struct {
	IntensityDistribution7d map[string]int `json:"intensity_distribution_7d"`
	HardSessionsThisWeek    int            `json:"hard_sessions_this_week"`
	DaysSinceLastHard       *int           `json:"days_since_last_hard"`
}

// Split is one distance (or time) slice of an activity.
type Split struct {
	Split          int      `json:"split"`
	DistanceM      float64  `json:"distance_m"`
	DurationS      float64  `json:"duration_s"`
	PaceSPerKM     *float64 `json:"pace_s_per_km"`
	AvgSpeedMS     *float64 `json:"avg_speed_ms"`
	AvgHR          *float64 `json:"avg_hr"`
	AvgCadence     *float64 `json:"avg_cadence"`
	AvgWatts       *float64 `json:"avg_watts"`
	AvgGrade       *float64 `json:"avg_grade"`
	ElevationGainM *float64 `json:"elevation_gain_m"`
	Partial        bool     `json:"partial"`
}
