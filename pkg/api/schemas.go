package api

import (
	"encoding/json"
	"time"

	"github.com/philippe-ths/ai-running-coach/pkg/processing"
	"github.com/philippe-ths/ai-running-coach/pkg/store"
	"github.com/philippe-ths/ai-running-coach/pkg/types"
	"github.com/philippe-ths/ai-running-coach/pkg/units"
)

// ActivityRead is the list-level activity representation.
type ActivityRead struct {
	ID             int64     `json:"id"`
	StravaID       int64     `json:"strava_id"`
	StartDate      time.Time `json:"start_date"`
	Type           string    `json:"type"`
	EffectiveType  string    `json:"effective_type"`
	UserIntent     *string   `json:"user_intent"`
	Name           string    `json:"name"`
	DistanceM      int64     `json:"distance_m"`
	MovingTimeS    int64     `json:"moving_time_s"`
	ElapsedTimeS   int64     `json:"elapsed_time_s"`
	ElevationGainM float64   `json:"elevation_gain_m"`
	AverageHR      *float64  `json:"average_hr"`
	MaxHR          *float64  `json:"max_hr"`
	AverageCadence *float64  `json:"average_cadence"`
	AverageSpeed   *float64  `json:"average_speed"`
	SufferScore    *float64  `json:"suffer_score"`

	Metric *DerivedMetricRead `json:"metric,omitempty"`
}

// ActivityDetailRead adds streams, splits, check-in and the full metric
// record to the list representation.
type ActivityDetailRead struct {
	ActivityRead
	Streams map[string]any `json:"streams"`
	Splits  []types.Split  `json:"splits"`
	CheckIn *CheckInRead   `json:"check_in"`
}

// DerivedMetricRead is the analysis output for one activity.
type DerivedMetricRead struct {
	ActivityClass      string                    `json:"activity_class"`
	EffortScore        float64                   `json:"effort_score"`
	PaceVariability    *float64                  `json:"pace_variability"`
	HRDrift            *float64                  `json:"hr_drift"`
	TimeInZones        map[string]int            `json:"time_in_zones"`
	StopsAnalysis      *types.StopsAnalysis      `json:"stops_analysis"`
	EfficiencyAnalysis *types.EfficiencyAnalysis `json:"efficiency_analysis"`
	IntervalStructure  *types.IntervalStructure  `json:"interval_structure"`
	WorkoutMatch       *types.WorkoutMatch       `json:"workout_match"`
	IntervalKPIs       *types.IntervalKPIs       `json:"interval_kpis"`
	Flags              []string                  `json:"flags"`
	RiskLevel          string                    `json:"risk_level"`
	RiskScore          int                       `json:"risk_score"`
	RiskReasons        []string                  `json:"risk_reasons"`
	Confidence         string                    `json:"confidence"`
	ConfidenceReasons  []string                  `json:"confidence_reasons"`
	ComputedAt         time.Time                 `json:"computed_at"`
}

// CheckInRead is the subjective post-activity report.
type CheckInRead struct {
	ActivityID   int64   `json:"activity_id"`
	RPE          *int    `json:"rpe"`
	PainScore    *int    `json:"pain_score"`
	PainLocation *string `json:"pain_location"`
	SleepQuality *int    `json:"sleep_quality"`
	Notes        *string `json:"notes"`
}

// CheckInWrite is the upsert body for a check-in.
type CheckInWrite struct {
	RPE          *int    `json:"rpe"`
	PainScore    *int    `json:"pain_score"`
	PainLocation *string `json:"pain_location"`
	SleepQuality *int    `json:"sleep_quality"`
	Notes        *string `json:"notes"`
}

// IntentWrite is the body of the intent override endpoint.
type IntentWrite struct {
	UserIntent *string `json:"user_intent"`
}

// ContextPackRead wraps the coaching context document with its input hash.
type ContextPackRead struct {
	Hash    string         `json:"hash"`
	Context map[string]any `json:"context"`
}

// UserProfileRead is the athlete-declared training context.
type UserProfileRead struct {
	GoalType        string          `json:"goal_type"`
	TargetDate      *string         `json:"target_date"`
	ExperienceLevel string          `json:"experience_level"`
	DaysPerWeek     int             `json:"days_per_week"`
	CurrentWeeklyKM *float64        `json:"current_weekly_km"`
	MaxHR           *int            `json:"max_hr"`
	MaxHRSource     *string         `json:"max_hr_source"`
	InjuryNotes     *string         `json:"injury_notes"`
	UpcomingRaces   json.RawMessage `json:"upcoming_races"`
}

func activityRead(a *store.Activity, metric *store.DerivedMetric) *ActivityRead {
	out := &ActivityRead{
		ID:             a.ID,
		StravaID:       a.StravaID,
		StartDate:      a.StartDate,
		Type:           a.Type,
		EffectiveType:  a.EffectiveType(),
		UserIntent:     a.UserIntent,
		Name:           a.Name,
		DistanceM:      a.DistanceM,
		MovingTimeS:    a.MovingTimeS,
		ElapsedTimeS:   a.ElapsedTimeS,
		ElevationGainM: a.ElevationGainM,
		AverageHR:      a.AverageHR,
		MaxHR:          a.MaxHR,
		AverageCadence: units.NormalizeCadencePtr(a.AverageCadence),
		AverageSpeed:   a.AverageSpeed,
		SufferScore:    a.SufferScore,
	}
	if metric != nil {
		out.Metric = metricRead(metric)
	}
	return out
}

func metricRead(m *store.DerivedMetric) *DerivedMetricRead {
	return &DerivedMetricRead{
		ActivityClass:      m.ActivityClass,
		EffortScore:        m.EffortScore,
		PaceVariability:    m.PaceVariability,
		HRDrift:            m.HRDrift,
		TimeInZones:        m.TimeInZones,
		StopsAnalysis:      m.StopsAnalysis,
		EfficiencyAnalysis: m.EfficiencyAnalysis,
		IntervalStructure:  m.IntervalStructure,
		WorkoutMatch:       m.WorkoutMatch,
		IntervalKPIs:       m.IntervalKPIs,
		Flags:              m.Flags,
		RiskLevel:          m.RiskLevel,
		RiskScore:          m.RiskScore,
		RiskReasons:        m.RiskReasons,
		Confidence:         m.Confidence,
		ConfidenceReasons:  m.ConfidenceReasons,
		ComputedAt:         m.ComputedAt,
	}
}

func checkInRead(c *store.CheckIn) *CheckInRead {
	if c == nil {
		return nil
	}
	return &CheckInRead{
		ActivityID:   c.ActivityID,
		RPE:          c.RPE,
		PainScore:    c.PainScore,
		PainLocation: c.PainLocation,
		SleepQuality: c.SleepQuality,
		Notes:        c.Notes,
	}
}

func profileRead(p *store.UserProfile) *UserProfileRead {
	return &UserProfileRead{
		GoalType:        p.GoalType,
		TargetDate:      p.TargetDate,
		ExperienceLevel: p.ExperienceLevel,
		DaysPerWeek:     p.DaysPerWeek,
		CurrentWeeklyKM: p.CurrentWeeklyKM,
		MaxHR:           p.MaxHR,
		MaxHRSource:     p.MaxHRSource,
		InjuryNotes:     p.InjuryNotes,
		UpcomingRaces:   p.UpcomingRaces,
	}
}

// streamsPayload shapes decoded streams for the detail read. The cadence
// channel is smoothed and normalized here; the stored stream is never
// mutated.
func streamsPayload(s *types.Streams) map[string]any {
	out := map[string]any{}
	if s == nil {
		return out
	}
	put := func(channel string, vals []float64) {
		if len(vals) > 0 {
			out[channel] = vals
		}
	}
	put(types.ChannelTime, s.Time)
	put(types.ChannelDistance, s.Distance)
	put(types.ChannelVelocitySmooth, s.Velocity)
	put(types.ChannelHeartrate, s.Heartrate)
	put(types.ChannelWatts, s.Watts)
	put(types.ChannelAltitude, s.Altitude)
	put(types.ChannelGradeSmooth, s.Grade)
	put(types.ChannelTemp, s.Temp)
	if len(s.Cadence) > 0 {
		cadence := processing.SmoothCadence(s.Cadence, s.Time)
		out[types.ChannelCadence] = units.NormalizeCadenceStream(cadence)
	}
	if len(s.Moving) > 0 {
		out[types.ChannelMoving] = s.Moving
	}
	if len(s.LatLng) > 0 {
		out[types.ChannelLatLng] = s.LatLng
	}
	return out
}
