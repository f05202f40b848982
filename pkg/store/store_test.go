package store

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptrStr(s string) *string { return &s }

func seedUser(t *testing.T, s *Store) *User {
	t.Helper()
	u, err := s.CreateUser(nil)
	require.NoError(t, err)
	return u
}

func TestUserAndAccountLifecycle(t *testing.T) {
	s := NewTestStore(t)

	_, err := s.FirstUser()
	assert.ErrorIs(t, err, ErrNotFound)

	// First linkage creates the user implicitly.
	account, err := s.LinkAccount(42, "access-1", "refresh-1", 1000, "read,activity:read_all")
	require.NoError(t, err)
	assert.Equal(t, int64(42), account.AthleteID)
	assert.Equal(t, "access-1", account.AccessToken)

	user, err := s.FirstUser()
	require.NoError(t, err)
	assert.Equal(t, account.UserID, user.ID)

	// Re-linking the same athlete overwrites tokens, not the user.
	relinked, err := s.LinkAccount(42, "access-2", "refresh-2", 2000, "read")
	require.NoError(t, err)
	assert.Equal(t, account.UserID, relinked.UserID)
	assert.Equal(t, "access-2", relinked.AccessToken)
	assert.Equal(t, int64(2000), relinked.ExpiresAt)

	byUser, err := s.GetAccountByUserID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, relinked.ID, byUser.ID)

	_, err = s.GetAccountByAthleteID(999)
	assert.ErrorIs(t, err, ErrNoAccount)
}

func TestUpdateAccountTokens(t *testing.T) {
	s := NewTestStore(t)
	account, err := s.LinkAccount(7, "old-access", "old-refresh", 100, "")
	require.NoError(t, err)

	require.NoError(t, s.UpdateAccountTokens(account.ID, "new-access", "new-refresh", 9999))

	got, err := s.GetAccountByAthleteID(7)
	require.NoError(t, err)
	assert.Equal(t, "new-access", got.AccessToken)
	assert.Equal(t, "new-refresh", got.RefreshToken)
	assert.Equal(t, int64(9999), got.ExpiresAt)

	assert.ErrorIs(t, s.UpdateAccountTokens(12345, "x", "y", 1), ErrNoAccount)
}

func TestProfileDefaultsAndUpsert(t *testing.T) {
	s := NewTestStore(t)
	user := seedUser(t, s)

	_, err := s.GetProfile(user.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	p, err := s.EnsureProfile(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "general", p.GoalType)
	assert.Equal(t, "intermediate", p.ExperienceLevel)
	assert.Equal(t, 4, p.DaysPerWeek)
	require.NotNil(t, p.MaxHR)
	assert.Equal(t, 190, *p.MaxHR)
	assert.False(t, p.ZonesCalibrated(), "default max HR has no source")

	p.MaxHR = ptrInt(185)
	p.MaxHRSource = ptrStr("field_test")
	p.UpcomingRaces = json.RawMessage(`[{"name":"City 10k","date":"2026-09-01"}]`)
	require.NoError(t, s.UpsertProfile(p))

	got, err := s.GetProfile(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 185, *got.MaxHR)
	assert.True(t, got.ZonesCalibrated())
	assert.JSONEq(t, `[{"name":"City 10k","date":"2026-09-01"}]`, string(got.UpcomingRaces))
}

func TestEffectiveMaxHR(t *testing.T) {
	var p *UserProfile
	assert.Equal(t, 190, p.EffectiveMaxHR(), "nil profile falls back")

	low := 90
	p = &UserProfile{MaxHR: &low}
	assert.Equal(t, 190, p.EffectiveMaxHR(), "implausible max HR falls back")

	good := 185
	p = &UserProfile{MaxHR: &good}
	assert.Equal(t, 185, p.EffectiveMaxHR())
}

func TestUpsertActivityIdempotent(t *testing.T) {
	s := NewTestStore(t)
	user := seedUser(t, s)

	a := &Activity{
		UserID:      user.ID,
		StravaID:    555,
		StartDate:   time.Date(2026, 6, 1, 7, 0, 0, 0, time.UTC),
		Type:        "Run",
		Name:        "Morning Run",
		DistanceM:   8000,
		MovingTimeS: 2400,
		RawData:     json.RawMessage(`{"sport_type":"Run"}`),
	}

	first, created, err := s.UpsertActivity(a)
	require.NoError(t, err)
	assert.True(t, created)

	a.Name = "Morning Run (renamed)"
	second, created, err := s.UpsertActivity(a)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Morning Run (renamed)", second.Name)
	assert.JSONEq(t, `{"sport_type":"Run"}`, string(second.RawData))
}

func TestUpsertActivityRevivesSoftDeleted(t *testing.T) {
	s := NewTestStore(t)
	user := seedUser(t, s)

	a := &Activity{
		UserID:    user.ID,
		StravaID:  556,
		StartDate: time.Now().UTC(),
		Type:      "Run",
	}
	stored, _, err := s.UpsertActivity(a)
	require.NoError(t, err)

	require.NoError(t, s.SoftDeleteByStravaID(556))
	got, err := s.GetActivity(stored.ID)
	require.NoError(t, err)
	assert.True(t, got.IsDeleted)

	// A provider re-send brings the row back.
	revived, _, err := s.UpsertActivity(a)
	require.NoError(t, err)
	assert.False(t, revived.IsDeleted)
}

func TestListAndHistoryQueries(t *testing.T) {
	s := NewTestStore(t)
	user := seedUser(t, s)

	base := time.Date(2026, 6, 1, 7, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, _, err := s.UpsertActivity(&Activity{
			UserID:      user.ID,
			StravaID:    int64(100 + i),
			StartDate:   base.AddDate(0, 0, i),
			Type:        "Run",
			MovingTimeS: int64(1000 + i),
		})
		require.NoError(t, err)
	}
	require.NoError(t, s.SoftDeleteByStravaID(102))

	list, err := s.ListActivities(user.ID, 0, 50)
	require.NoError(t, err)
	require.Len(t, list, 4, "soft-deleted rows are excluded")
	assert.Equal(t, int64(104), list[0].StravaID, "newest first")

	page, err := s.ListActivities(user.ID, 1, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, int64(103), page[0].StravaID)

	history, err := s.RecentActivitiesBefore(user.ID, base.AddDate(0, 0, 3), 10)
	require.NoError(t, err)
	require.Len(t, history, 2, "strictly before, deleted excluded")
	assert.Equal(t, int64(101), history[0].StravaID)

	intent := "Tempo"
	require.NoError(t, s.SetUserIntent(list[0].ID, &intent))
	got, err := s.GetActivity(list[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Tempo", got.EffectiveType())

	require.NoError(t, s.SetUserIntent(list[0].ID, nil))
	got, err = s.GetActivity(list[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Run", got.EffectiveType())

	assert.ErrorIs(t, s.SetUserIntent(99999, &intent), ErrNotFound)
	assert.ErrorIs(t, s.SoftDeleteByStravaID(99999), ErrNotFound)
}

func TestStreamsRoundTrip(t *testing.T) {
	s := NewTestStore(t)
	user := seedUser(t, s)
	activity, _, err := s.UpsertActivity(&Activity{
		UserID:    user.ID,
		StravaID:  700,
		StartDate: time.Now().UTC(),
		Type:      "Run",
	})
	require.NoError(t, err)

	has, err := s.HasStreams(activity.ID)
	require.NoError(t, err)
	assert.False(t, has)

	channels := map[string]json.RawMessage{
		"time":       json.RawMessage(`[0,1,2,3]`),
		"heartrate":  json.RawMessage(`[120,125,130,128]`),
		"moving":     json.RawMessage(`[true,true,false,true]`),
		"latlng":     json.RawMessage(`[[52.5,13.4],[52.5,13.4],[52.5,13.4],[52.5,13.4]]`),
		"unexpected": json.RawMessage(`[1,2,3,4]`),
	}
	require.NoError(t, s.ReplaceStreams(activity.ID, channels))

	decoded, err := s.GetStreams(activity.ID)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2, 3}, decoded.Time)
	assert.Equal(t, []float64{120, 125, 130, 128}, decoded.Heartrate)
	assert.Equal(t, []bool{true, true, false, true}, decoded.Moving)
	assert.True(t, decoded.HasGPS())

	// Replace drops channels absent from the new set.
	require.NoError(t, s.ReplaceStreams(activity.ID, map[string]json.RawMessage{
		"time": json.RawMessage(`[0,1]`),
	}))
	decoded, err = s.GetStreams(activity.ID)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, decoded.Time)
	assert.Empty(t, decoded.Heartrate)

	has, err = s.HasStreams(activity.ID)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestDerivedMetricRoundTrip(t *testing.T) {
	s := NewTestStore(t)
	user := seedUser(t, s)
	activity, _, err := s.UpsertActivity(&Activity{
		UserID:    user.ID,
		StravaID:  800,
		StartDate: time.Now().UTC(),
		Type:      "Run",
	})
	require.NoError(t, err)

	_, err = s.GetDerivedMetric(activity.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	drift := 4.2
	metric := &DerivedMetric{
		ActivityID:        activity.ID,
		ActivityClass:     "Easy Run",
		EffortScore:       105.5,
		HRDrift:           &drift,
		TimeInZones:       map[string]int{"Z1": 10, "Z2": 600, "Z3": 900, "Z4": 0, "Z5": 0},
		Flags:             []string{"fatigue_possible"},
		RiskLevel:         "green",
		RiskReasons:       []string{"fatigue_possible (+1)"},
		Confidence:        "medium",
		ConfidenceReasons: []string{"no_user_checkin"},
	}
	require.NoError(t, s.UpsertDerivedMetric(metric))

	got, err := s.GetDerivedMetric(activity.ID)
	require.NoError(t, err)
	assert.Equal(t, 105.5, got.EffortScore)
	assert.Equal(t, "Easy Run", got.ActivityClass)
	require.NotNil(t, got.HRDrift)
	assert.Equal(t, 4.2, *got.HRDrift)
	assert.Equal(t, 600, got.TimeInZones["Z2"])
	assert.Equal(t, []string{"fatigue_possible"}, got.Flags)
	assert.Nil(t, got.IntervalStructure)

	// Upsert overwrites in place.
	metric.EffortScore = 99.9
	metric.Confidence = "high"
	require.NoError(t, s.UpsertDerivedMetric(metric))
	got, err = s.GetDerivedMetric(activity.ID)
	require.NoError(t, err)
	assert.Equal(t, 99.9, got.EffortScore)
	assert.Equal(t, "high", got.Confidence)
}

func TestRecentEffortScores(t *testing.T) {
	s := NewTestStore(t)
	user := seedUser(t, s)

	base := time.Date(2026, 6, 1, 7, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		a, _, err := s.UpsertActivity(&Activity{
			UserID:    user.ID,
			StravaID:  int64(900 + i),
			StartDate: base.AddDate(0, 0, i),
			Type:      "Run",
		})
		require.NoError(t, err)
		require.NoError(t, s.UpsertDerivedMetric(&DerivedMetric{
			ActivityID:  a.ID,
			EffortScore: float64(10 * (i + 1)),
		}))
	}

	scores, err := s.RecentEffortScores(user.ID, base.AddDate(0, 0, 3), 7)
	require.NoError(t, err)
	assert.Equal(t, []float64{30, 20, 10}, scores, "newest first, strictly before cutoff")
}

func TestCheckInRoundTrip(t *testing.T) {
	s := NewTestStore(t)
	user := seedUser(t, s)
	activity, _, err := s.UpsertActivity(&Activity{
		UserID:    user.ID,
		StravaID:  850,
		StartDate: time.Now().UTC(),
		Type:      "Run",
	})
	require.NoError(t, err)

	_, err = s.GetCheckIn(activity.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.UpsertCheckIn(&CheckIn{
		ActivityID:   activity.ID,
		RPE:          ptrInt(6),
		PainScore:    ptrInt(2),
		PainLocation: ptrStr("left calf"),
	}))

	got, err := s.GetCheckIn(activity.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, *got.RPE)
	assert.Equal(t, "left calf", *got.PainLocation)

	// Second write replaces the first.
	require.NoError(t, s.UpsertCheckIn(&CheckIn{
		ActivityID: activity.ID,
		RPE:        ptrInt(8),
	}))
	got, err = s.GetCheckIn(activity.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, *got.RPE)
	assert.Nil(t, got.PainScore)
}
