// Package contextpack shapes everything the coaching layer consumes into
// a deterministic, hash-addressable document. Values are copied in, never
// referenced, so the document is stable and the consumer stateless.
package contextpack

import (
	"time"

	"github.com/philippe-ths/ai-running-coach/pkg/store"
	"github.com/philippe-ths/ai-running-coach/pkg/types"
	"github.com/philippe-ths/ai-running-coach/pkg/units"
)

// PainSevereThreshold is surfaced in safety rules; the coaching layer
// must treat pain at or above it as out of its lane.
const PainSevereThreshold = 7

// Builder assembles context packs from stored state.
type Builder struct {
	store *store.Store
}

// NewBuilder builds a context pack builder over the store.
func NewBuilder(st *store.Store) *Builder {
	return &Builder{store: st}
}

// Build assembles the pack for one activity and returns the document plus
// its input hash. All top-level keys are present even when nested values
// are null.
func (b *Builder) Build(activity *store.Activity, metric *store.DerivedMetric, checkIn *store.CheckIn,
	profile *store.UserProfile, trainingContext *types.TrainingContext, streams *types.Streams) (map[string]any, string, error) {

	doc := map[string]any{
		"activity":         activitySection(activity),
		"metrics":          metricsSection(metric, profile),
		"check_in":         checkInSection(checkIn),
		"profile":          profileSection(profile),
		"training_context": trainingContextSection(trainingContext),
		"safety_rules": map[string]any{
			"never_diagnose":        true,
			"pain_severe_threshold": PainSevereThreshold,
			"no_invented_facts":     true,
		},
	}

	summaries, err := b.rollingSummaries(activity)
	if err != nil {
		return nil, "", err
	}
	doc["recent_training_summary"] = summaries

	available, missing := SignalAvailability(activity, streams)
	doc["available_signals"] = available
	doc["missing_signals"] = missing

	hash, err := HashDocument(doc)
	if err != nil {
		return nil, "", err
	}
	return doc, hash, nil
}

func activitySection(a *store.Activity) map[string]any {
	if a == nil {
		return nil
	}
	return map[string]any{
		"type":             a.EffectiveType(),
		"name":             a.Name,
		"start_date":       a.StartDate.UTC().Format(time.RFC3339),
		"distance_m":       a.DistanceM,
		"moving_time_s":    a.MovingTimeS,
		"elapsed_time_s":   a.ElapsedTimeS,
		"elevation_gain_m": round1(a.ElevationGainM),
		"average_hr":       roundPtr(a.AverageHR, 1),
		"max_hr":           roundPtr(a.MaxHR, 1),
		"average_cadence":  roundPtr(units.NormalizeCadencePtr(a.AverageCadence), 1),
		"average_speed":    roundPtr(a.AverageSpeed, 3),
	}
}

func metricsSection(m *store.DerivedMetric, profile *store.UserProfile) map[string]any {
	if m == nil {
		return nil
	}

	zonesBasis := "uncalibrated"
	if profile.ZonesCalibrated() {
		zonesBasis = "user_" + *profile.MaxHRSource
	}

	section := map[string]any{
		"activity_class":     m.ActivityClass,
		"effort_score":       m.EffortScore,
		"pace_variability":   roundPtr(m.PaceVariability, 2),
		"hr_drift":           roundPtr(m.HRDrift, 2),
		"time_in_zones":      zonesMap(m.TimeInZones),
		"zones_calibrated":   profile.ZonesCalibrated(),
		"zones_basis":        zonesBasis,
		"flags":              stringsOrEmpty(m.Flags),
		"risk_level":         m.RiskLevel,
		"risk_score":         m.RiskScore,
		"risk_reasons":       stringsOrEmpty(m.RiskReasons),
		"confidence":         m.Confidence,
		"confidence_reasons": stringsOrEmpty(m.ConfidenceReasons),
	}

	section["efficiency"] = efficiencyMap(m.EfficiencyAnalysis)
	section["stops"] = stopsMap(m.StopsAnalysis)
	section["interval_structure"] = structureMap(m.IntervalStructure)
	section["workout_match"] = matchMap(m.WorkoutMatch)
	section["interval_kpis"] = kpisMap(m.IntervalKPIs)
	return section
}

func checkInSection(c *store.CheckIn) map[string]any {
	if c == nil {
		return nil
	}
	return map[string]any{
		"rpe":           intPtrValue(c.RPE),
		"pain_score":    intPtrValue(c.PainScore),
		"pain_location": strPtrValue(c.PainLocation),
		"sleep_quality": intPtrValue(c.SleepQuality),
		"notes":         strPtrValue(c.Notes),
	}
}

func profileSection(p *store.UserProfile) map[string]any {
	if p == nil {
		return nil
	}
	return map[string]any{
		"goal_type":         p.GoalType,
		"target_date":       strPtrValue(p.TargetDate),
		"experience_level":  p.ExperienceLevel,
		"days_per_week":     p.DaysPerWeek,
		"current_weekly_km": floatPtrValue(p.CurrentWeeklyKM),
		"max_hr":            intPtrValue(p.MaxHR),
		"max_hr_source":     strPtrValue(p.MaxHRSource),
		"injury_notes":      strPtrValue(p.InjuryNotes),
	}
}

func trainingContextSection(tc *types.TrainingContext) map[string]any {
	if tc == nil {
		return nil
	}
	return map[string]any{
		"intensity_distribution_7d": tc.IntensityDistribution7d,
		"hard_sessions_this_week":   tc.HardSessionsThisWeek,
		"days_since_last_hard":      intPtrValue(tc.DaysSinceLastHard),
	}
}

// rollingSummaries aggregates the 7, 28 and previous-28 day windows
// preceding the activity.
func (b *Builder) rollingSummaries(activity *store.Activity) (map[string]any, error) {
	end := activity.StartDate

	last7, err := b.windowSummary(activity.UserID, end.Add(-7*24*time.Hour), end)
	if err != nil {
		return nil, err
	}
	last28, err := b.windowSummary(activity.UserID, end.Add(-28*24*time.Hour), end)
	if err != nil {
		return nil, err
	}
	prev28, err := b.windowSummary(activity.UserID, end.Add(-56*24*time.Hour), end.Add(-28*24*time.Hour))
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"last_7d":      last7,
		"last_28d":     last28,
		"previous_28d": prev28,
	}, nil
}

func (b *Builder) windowSummary(userID string, from, to time.Time) (map[string]any, error) {
	rows, err := b.store.ListWithMetricsBetween(userID, from, to)
	if err != nil {
		return nil, err
	}

	var distanceM, movingS, effort float64
	for i := range rows {
		distanceM += float64(rows[i].Activity.DistanceM)
		movingS += float64(rows[i].Activity.MovingTimeS)
		if m := rows[i].Metric; m != nil {
			effort += m.EffortScore
		}
	}
	return map[string]any{
		"activity_count":      len(rows),
		"total_distance_km":   round1(distanceM / 1000),
		"total_moving_time_h": roundN(movingS/3600, 2),
		"total_effort":        round1(effort),
	}, nil
}

func efficiencyMap(e *types.EfficiencyAnalysis) map[string]any {
	if e == nil {
		return nil
	}
	return map[string]any{
		"average_efficiency":        e.AverageEfficiency,
		"best_sustained_efficiency": e.BestSustainedEfficiency,
		"unit":                      e.Unit,
	}
}

func stopsMap(s *types.StopsAnalysis) map[string]any {
	if s == nil {
		return nil
	}
	return map[string]any{
		"total_stopped_time_s": s.TotalStoppedTimeS,
		"stop_count":           s.StopCount,
		"longest_stop_s":       s.LongestStopS,
	}
}

func structureMap(st *types.IntervalStructure) map[string]any {
	if st == nil {
		return nil
	}
	return map[string]any{
		"warmup_duration_s":   st.WarmupDurationS,
		"cooldown_duration_s": st.CooldownDurationS,
		"rep_count":           st.Summary.RepCount,
		"total_work_time_s":   st.Summary.TotalWorkTimeS,
		"total_rest_time_s":   st.Summary.TotalRestTimeS,
		"work_to_rest_ratio":  floatPtrValue(st.Summary.WorkToRestRatio),
		"avg_work_duration_s": st.Summary.AvgWorkDurationS,
		"avg_work_speed_ms":   st.Summary.AvgWorkSpeedMS,
		"consistency_score":   st.Summary.ConsistencyScore,
	}
}

func matchMap(m *types.WorkoutMatch) map[string]any {
	if m == nil {
		return nil
	}
	return map[string]any{
		"match_score":          floatPtrValue(m.MatchScore),
		"detection_confidence": m.DetectionConfidence,
		"reasons":              stringsOrEmpty(m.Reasons),
	}
}

func kpisMap(k *types.IntervalKPIs) map[string]any {
	if k == nil {
		return nil
	}
	return map[string]any{
		"rep_pace_consistency_cv":  floatPtrValue(k.RepPaceConsistencyCV),
		"first_vs_last_fade":       floatPtrValue(k.FirstVsLastFade),
		"recovery_quality_per_60s": floatPtrValue(k.RecoveryQualityPer60s),
		"work_rest_ratio":          floatPtrValue(k.WorkRestRatio),
		"total_z4_plus_s":          intPtrValue(k.TotalZ4PlusS),
	}
}

func zonesMap(zones map[string]int) map[string]any {
	if zones == nil {
		return nil
	}
	out := make(map[string]any, len(zones))
	for k, v := range zones {
		out[k] = v
	}
	return out
}

func stringsOrEmpty(xs []string) []any {
	out := make([]any, 0, len(xs))
	for _, x := range xs {
		out = append(out, x)
	}
	return out
}

func round1(v float64) float64 { return roundN(v, 1) }

func roundN(v float64, places int) float64 {
	scale := 1.0
	for i := 0; i < places; i++ {
		scale *= 10
	}
	if v >= 0 {
		return float64(int64(v*scale+0.5)) / scale
	}
	return float64(int64(v*scale-0.5)) / scale
}

func roundPtr(v *float64, places int) any {
	if v == nil {
		return nil
	}
	return roundN(*v, places)
}

func floatPtrValue(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func intPtrValue(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func strPtrValue(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}
