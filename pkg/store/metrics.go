package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// UpsertDerivedMetric writes the full metric row for an activity, replacing
// any previous run's output wholesale.
func (s *Store) UpsertDerivedMetric(m *DerivedMetric) error {
	cols := map[string]any{
		"time_in_zones":       marshalNullable(m.TimeInZones != nil, m.TimeInZones),
		"stops_analysis":      marshalNullable(m.StopsAnalysis != nil, m.StopsAnalysis),
		"efficiency_analysis": marshalNullable(m.EfficiencyAnalysis != nil, m.EfficiencyAnalysis),
		"interval_structure":  marshalNullable(m.IntervalStructure != nil, m.IntervalStructure),
		"workout_match":       marshalNullable(m.WorkoutMatch != nil, m.WorkoutMatch),
		"interval_kpis":       marshalNullable(m.IntervalKPIs != nil, m.IntervalKPIs),
		"flags":               marshalNullable(m.Flags != nil, m.Flags),
		"risk_reasons":        marshalNullable(m.RiskReasons != nil, m.RiskReasons),
		"confidence_reasons":  marshalNullable(m.ConfidenceReasons != nil, m.ConfidenceReasons),
	}

	_, err := s.db.Exec(
		`INSERT INTO derived_metrics (activity_id, activity_class, effort_score, pace_variability,
		   hr_drift, time_in_zones, stops_analysis, efficiency_analysis, interval_structure,
		   workout_match, interval_kpis, flags, risk_level, risk_score, risk_reasons,
		   confidence, confidence_reasons, computed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(activity_id) DO UPDATE SET
		   activity_class = excluded.activity_class,
		   effort_score = excluded.effort_score,
		   pace_variability = excluded.pace_variability,
		   hr_drift = excluded.hr_drift,
		   time_in_zones = excluded.time_in_zones,
		   stops_analysis = excluded.stops_analysis,
		   efficiency_analysis = excluded.efficiency_analysis,
		   interval_structure = excluded.interval_structure,
		   workout_match = excluded.workout_match,
		   interval_kpis = excluded.interval_kpis,
		   flags = excluded.flags,
		   risk_level = excluded.risk_level,
		   risk_score = excluded.risk_score,
		   risk_reasons = excluded.risk_reasons,
		   confidence = excluded.confidence,
		   confidence_reasons = excluded.confidence_reasons,
		   computed_at = CURRENT_TIMESTAMP`,
		m.ActivityID, m.ActivityClass, m.EffortScore, m.PaceVariability,
		m.HRDrift, cols["time_in_zones"], cols["stops_analysis"], cols["efficiency_analysis"],
		cols["interval_structure"], cols["workout_match"], cols["interval_kpis"], cols["flags"],
		m.RiskLevel, m.RiskScore, cols["risk_reasons"], m.Confidence, cols["confidence_reasons"])
	if err != nil {
		return fmt.Errorf("upserting derived metric: %w", err)
	}
	return nil
}

// GetDerivedMetric returns the metric row for an activity, or ErrNotFound.
func (s *Store) GetDerivedMetric(activityID int64) (*DerivedMetric, error) {
	row := s.db.QueryRow(
		`SELECT activity_id, activity_class, effort_score, pace_variability, hr_drift,
		        time_in_zones, stops_analysis, efficiency_analysis, interval_structure,
		        workout_match, interval_kpis, flags, risk_level, risk_score, risk_reasons,
		        confidence, confidence_reasons, computed_at
		 FROM derived_metrics WHERE activity_id = ?`, activityID)
	m, err := scanMetric(row)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// RecentEffortScores returns the effort scores of the user's latest
// processed activities that started strictly before the given time,
// newest first, capped at limit.
func (s *Store) RecentEffortScores(userID string, before time.Time, limit int) ([]float64, error) {
	rows, err := s.db.Query(
		`SELECT dm.effort_score
		 FROM derived_metrics dm
		 JOIN activities a ON a.id = dm.activity_id
		 WHERE a.user_id = ? AND a.is_deleted = 0 AND a.start_date < ?
		 ORDER BY a.start_date DESC, a.id DESC
		 LIMIT ?`, userID, before.Format(time.RFC3339), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var score float64
		if err := rows.Scan(&score); err != nil {
			return nil, err
		}
		out = append(out, score)
	}
	return out, rows.Err()
}

// ListWithMetrics returns the user's non-deleted activities starting at or
// after since (all of them when since is nil), oldest first, with derived
// metrics eagerly joined.
func (s *Store) ListWithMetrics(userID string, since *time.Time) ([]ActivityWithMetric, error) {
	query := `SELECT ` + prefixedActivityColumns("a") + `,
	       dm.activity_id, dm.activity_class, dm.effort_score, dm.pace_variability, dm.hr_drift,
	       dm.time_in_zones, dm.stops_analysis, dm.efficiency_analysis, dm.interval_structure,
	       dm.workout_match, dm.interval_kpis, dm.flags, dm.risk_level, dm.risk_score,
	       dm.risk_reasons, dm.confidence, dm.confidence_reasons, dm.computed_at
	 FROM activities a
	 LEFT JOIN derived_metrics dm ON dm.activity_id = a.id
	 WHERE a.user_id = ? AND a.is_deleted = 0`
	args := []any{userID}
	if since != nil {
		query += ` AND a.start_date >= ?`
		args = append(args, since.Format(time.RFC3339))
	}
	query += ` ORDER BY a.start_date, a.id`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ActivityWithMetric
	for rows.Next() {
		pair, err := scanActivityWithMetric(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *pair)
	}
	return out, rows.Err()
}

// ListWithMetricsBetween returns non-deleted activities with start_date in
// [from, to), oldest first, with metrics eagerly joined. Used by the
// training-context window and period summaries.
func (s *Store) ListWithMetricsBetween(userID string, from, to time.Time) ([]ActivityWithMetric, error) {
	rows, err := s.db.Query(
		`SELECT `+prefixedActivityColumns("a")+`,
		        dm.activity_id, dm.activity_class, dm.effort_score, dm.pace_variability, dm.hr_drift,
		        dm.time_in_zones, dm.stops_analysis, dm.efficiency_analysis, dm.interval_structure,
		        dm.workout_match, dm.interval_kpis, dm.flags, dm.risk_level, dm.risk_score,
		        dm.risk_reasons, dm.confidence, dm.confidence_reasons, dm.computed_at
		 FROM activities a
		 LEFT JOIN derived_metrics dm ON dm.activity_id = a.id
		 WHERE a.user_id = ? AND a.is_deleted = 0 AND a.start_date >= ? AND a.start_date < ?
		 ORDER BY a.start_date, a.id`,
		userID, from.Format(time.RFC3339), to.Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ActivityWithMetric
	for rows.Next() {
		pair, err := scanActivityWithMetric(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *pair)
	}
	return out, rows.Err()
}

func prefixedActivityColumns(alias string) string {
	return alias + `.id, ` + alias + `.user_id, ` + alias + `.strava_id, ` + alias + `.start_date, ` +
		alias + `.type, ` + alias + `.name, ` + alias + `.distance_m, ` + alias + `.moving_time_s, ` +
		alias + `.elapsed_time_s, ` + alias + `.elevation_gain_m, ` + alias + `.average_hr, ` +
		alias + `.max_hr, ` + alias + `.average_cadence, ` + alias + `.average_speed, ` +
		alias + `.suffer_score, ` + alias + `.user_intent, ` + alias + `.raw_data, ` +
		alias + `.is_deleted, ` + alias + `.created_at, ` + alias + `.updated_at`
}

func scanActivityWithMetric(rows *sql.Rows) (*ActivityWithMetric, error) {
	var a Activity
	var startDate, createdAt, updatedAt string
	var raw sql.NullString
	var isDeleted int64

	var mActivityID sql.NullInt64
	var mClass, mRiskLevel, mConfidence sql.NullString
	var mEffort, mPaceVar, mDrift sql.NullFloat64
	var mZones, mStops, mEff, mStructure, mMatch, mKPIs, mFlags, mRiskReasons, mConfReasons sql.NullString
	var mRiskScore sql.NullInt64
	var mComputedAt sql.NullString

	err := rows.Scan(&a.ID, &a.UserID, &a.StravaID, &startDate, &a.Type, &a.Name, &a.DistanceM,
		&a.MovingTimeS, &a.ElapsedTimeS, &a.ElevationGainM, &a.AverageHR, &a.MaxHR,
		&a.AverageCadence, &a.AverageSpeed, &a.SufferScore, &a.UserIntent, &raw,
		&isDeleted, &createdAt, &updatedAt,
		&mActivityID, &mClass, &mEffort, &mPaceVar, &mDrift,
		&mZones, &mStops, &mEff, &mStructure,
		&mMatch, &mKPIs, &mFlags, &mRiskLevel, &mRiskScore,
		&mRiskReasons, &mConfidence, &mConfReasons, &mComputedAt)
	if err != nil {
		return nil, err
	}

	a.StartDate = parseTime(startDate)
	a.CreatedAt = parseTime(createdAt)
	a.UpdatedAt = parseTime(updatedAt)
	if raw.Valid {
		a.RawData = []byte(raw.String)
	}
	a.IsDeleted = isDeleted == 1

	pair := &ActivityWithMetric{Activity: a}
	if mActivityID.Valid {
		m := &DerivedMetric{
			ActivityID:    mActivityID.Int64,
			ActivityClass: mClass.String,
			EffortScore:   mEffort.Float64,
			RiskLevel:     mRiskLevel.String,
			RiskScore:     int(mRiskScore.Int64),
			Confidence:    mConfidence.String,
		}
		if mPaceVar.Valid {
			m.PaceVariability = &mPaceVar.Float64
		}
		if mDrift.Valid {
			m.HRDrift = &mDrift.Float64
		}
		unmarshalNullable(mZones, &m.TimeInZones)
		unmarshalNullable(mStops, &m.StopsAnalysis)
		unmarshalNullable(mEff, &m.EfficiencyAnalysis)
		unmarshalNullable(mStructure, &m.IntervalStructure)
		unmarshalNullable(mMatch, &m.WorkoutMatch)
		unmarshalNullable(mKPIs, &m.IntervalKPIs)
		unmarshalNullable(mFlags, &m.Flags)
		unmarshalNullable(mRiskReasons, &m.RiskReasons)
		unmarshalNullable(mConfReasons, &m.ConfidenceReasons)
		if mComputedAt.Valid {
			m.ComputedAt = parseTime(mComputedAt.String)
		}
		pair.Metric = m
	}
	return pair, nil
}

func scanMetric(row *sql.Row) (*DerivedMetric, error) {
	var m DerivedMetric
	var class, riskLevel, confidence sql.NullString
	var zones, stops, eff, structure, match, kpis, flags, riskReasons, confReasons sql.NullString
	var riskScore sql.NullInt64
	var computedAt string

	err := row.Scan(&m.ActivityID, &class, &m.EffortScore, &m.PaceVariability, &m.HRDrift,
		&zones, &stops, &eff, &structure, &match, &kpis, &flags,
		&riskLevel, &riskScore, &riskReasons, &confidence, &confReasons, &computedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	m.ActivityClass = class.String
	m.RiskLevel = riskLevel.String
	m.RiskScore = int(riskScore.Int64)
	m.Confidence = confidence.String
	m.ComputedAt = parseTime(computedAt)
	unmarshalNullable(zones, &m.TimeInZones)
	unmarshalNullable(stops, &m.StopsAnalysis)
	unmarshalNullable(eff, &m.EfficiencyAnalysis)
	unmarshalNullable(structure, &m.IntervalStructure)
	unmarshalNullable(match, &m.WorkoutMatch)
	unmarshalNullable(kpis, &m.IntervalKPIs)
	unmarshalNullable(flags, &m.Flags)
	unmarshalNullable(riskReasons, &m.RiskReasons)
	unmarshalNullable(confReasons, &m.ConfidenceReasons)
	return &m, nil
}

func marshalNullable(present bool, v any) any {
	if !present {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return string(b)
}

func unmarshalNullable(src sql.NullString, dst any) {
	if !src.Valid || src.String == "" {
		return
	}
	_ = json.Unmarshal([]byte(src.String), dst)
}
