package store

import (
	"encoding/json"
	"time"

	"github.com/philippe-ths/ai-running-coach/pkg/types"
)

// User owns all other per-user rows. Created implicitly on first account
// linkage.
type User struct {
	ID        string
	Email     *string
	CreatedAt time.Time
}

// StravaAccount holds the OAuth credentials for a linked provider account.
// Mutated only during linkage and token refresh.
type StravaAccount struct {
	ID           int64
	UserID       string
	AthleteID    int64
	AccessToken  string
	RefreshToken string
	ExpiresAt    int64 // unix seconds
	Scope        string
}

// UserProfile carries the athlete-declared training context.
type UserProfile struct {
	UserID          string
	GoalType        string
	TargetDate      *string
	ExperienceLevel string
	DaysPerWeek     int
	CurrentWeeklyKM *float64
	MaxHR           *int
	MaxHRSource     *string
	InjuryNotes     *string
	UpcomingRaces   json.RawMessage
}

// EffectiveMaxHR returns the max HR the metrics engine should use: the
// profile value when plausible, otherwise the 190 default.
func (p *UserProfile) EffectiveMaxHR() int {
	if p != nil && p.MaxHR != nil && *p.MaxHR > 100 {
		return *p.MaxHR
	}
	return 190
}

// ZonesCalibrated reports whether HR zones rest on an explicit, sourced
// max HR rather than the default.
func (p *UserProfile) ZonesCalibrated() bool {
	return p != nil && p.MaxHR != nil && *p.MaxHR > 100 &&
		p.MaxHRSource != nil && *p.MaxHRSource != ""
}

// Activity is the canonical per-activity record, keyed internally by ID and
// externally by the provider-assigned StravaID.
type Activity struct {
	ID             int64
	UserID         string
	StravaID       int64
	StartDate      time.Time
	Type           string
	Name           string
	DistanceM      int64
	MovingTimeS    int64
	ElapsedTimeS   int64
	ElevationGainM float64
	AverageHR      *float64
	MaxHR          *float64
	AverageCadence *float64
	AverageSpeed   *float64
	SufferScore    *float64
	UserIntent     *string
	RawData        json.RawMessage
	IsDeleted      bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// EffectiveType returns the user intent override when set, else the
// provider-reported type.
func (a *Activity) EffectiveType() string {
	if a.UserIntent != nil && *a.UserIntent != "" {
		return *a.UserIntent
	}
	return a.Type
}

// DerivedMetric is the per-activity analysis output, rewritten in place by
// each processing run. EffortScore is never null; every other analytic
// field is nullable when its input preconditions were unmet.
type DerivedMetric struct {
	ActivityID         int64
	ActivityClass      string
	EffortScore        float64
	PaceVariability    *float64
	HRDrift            *float64
	TimeInZones        map[string]int
	StopsAnalysis      *types.StopsAnalysis
	EfficiencyAnalysis *types.EfficiencyAnalysis
	IntervalStructure  *types.IntervalStructure
	WorkoutMatch       *types.WorkoutMatch
	IntervalKPIs       *types.IntervalKPIs
	Flags              []string
	RiskLevel          string
	RiskScore          int
	RiskReasons        []string
	Confidence         string
	ConfidenceReasons  []string
	ComputedAt         time.Time
}

// CheckIn is the athlete's subjective report for one activity.
type CheckIn struct {
	ActivityID   int64
	RPE          *int
	PainScore    *int
	PainLocation *string
	SleepQuality *int
	Notes        *string
}

// ActivityWithMetric pairs an activity with its eagerly-loaded derived
// metric (nil when not yet processed). Used by trends and history queries
// to avoid per-row round-trips.
type ActivityWithMetric struct {
	Activity Activity
	Metric   *DerivedMetric
}
