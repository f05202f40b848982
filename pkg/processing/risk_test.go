package processing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/philippe-ths/ai-running-coach/pkg/store"
	"github.com/philippe-ths/ai-running-coach/pkg/types"
)

func TestScoreRisk(t *testing.T) {
	t.Run("no signals is green", func(t *testing.T) {
		score, level, reasons := ScoreRisk(nil, nil, nil)
		assert.Equal(t, 0, score)
		assert.Equal(t, types.RiskGreen, level)
		assert.Empty(t, reasons)
	})

	t.Run("reported pain alone is amber", func(t *testing.T) {
		score, level, reasons := ScoreRisk([]string{FlagPainReported}, nil, nil)
		assert.Equal(t, 2, score)
		assert.Equal(t, types.RiskAmber, level)
		assert.Equal(t, []string{"pain_reported (+2)"}, reasons)
	})

	t.Run("severe pain is red", func(t *testing.T) {
		score, level, reasons := ScoreRisk(
			[]string{FlagPainReported, FlagPainSevere}, nil, nil)
		assert.Equal(t, 6, score)
		assert.Equal(t, types.RiskRed, level)
		assert.Equal(t, []string{"pain_reported (+2)", "pain_severe (+4)"}, reasons)
	})

	t.Run("poor sleep with high rpe adds points", func(t *testing.T) {
		checkIn := &store.CheckIn{SleepQuality: intPtr(1), RPE: intPtr(9)}
		score, level, reasons := ScoreRisk(nil, checkIn, nil)
		assert.Equal(t, 2, score)
		assert.Equal(t, types.RiskAmber, level)
		assert.Equal(t, []string{"poor_sleep_high_rpe (+2)"}, reasons)
	})

	t.Run("consecutive hard sessions add a point", func(t *testing.T) {
		days := 2
		tc := &types.TrainingContext{HardSessionsThisWeek: 3, DaysSinceLastHard: &days}
		score, level, reasons := ScoreRisk([]string{FlagFatiguePossible}, nil, tc)
		assert.Equal(t, 2, score)
		assert.Equal(t, types.RiskAmber, level)
		assert.Equal(t, []string{"fatigue_possible (+1)", "consecutive_hard_sessions (+1)"}, reasons)
	})

	t.Run("points accumulate across sources", func(t *testing.T) {
		days := 1
		checkIn := &store.CheckIn{SleepQuality: intPtr(2), RPE: intPtr(8)}
		tc := &types.TrainingContext{HardSessionsThisWeek: 2, DaysSinceLastHard: &days}
		score, level, _ := ScoreRisk([]string{FlagFatiguePossible}, checkIn, tc)
		assert.Equal(t, 4, score)
		assert.Equal(t, types.RiskRed, level)
	})

	t.Run("unknown flags carry no points", func(t *testing.T) {
		score, level, reasons := ScoreRisk([]string{FlagDataLowConfidenceHR, FlagIntensityMismatch}, nil, nil)
		assert.Equal(t, 0, score)
		assert.Equal(t, types.RiskGreen, level)
		assert.Empty(t, reasons)
	})
}

func TestBuildTrainingContext(t *testing.T) {
	start := time.Date(2026, 6, 10, 7, 0, 0, 0, time.UTC)
	window := []store.ActivityWithMetric{
		{
			Activity: store.Activity{Type: "Run", StartDate: start.Add(-36 * time.Hour)},
			Metric:   &store.DerivedMetric{ActivityClass: types.ClassIntervals},
		},
		{
			Activity: store.Activity{Type: "Run", StartDate: start.Add(-3 * 24 * time.Hour)},
			Metric:   &store.DerivedMetric{ActivityClass: types.ClassLongRun},
		},
		{
			Activity: store.Activity{Type: "Run", StartDate: start.Add(-5 * 24 * time.Hour)},
			Metric:   &store.DerivedMetric{ActivityClass: types.ClassEasyRun},
		},
		{
			// Unprocessed rows fall back to the activity type.
			Activity: store.Activity{Type: "Walk", StartDate: start.Add(-6 * 24 * time.Hour)},
		},
	}

	tc := BuildTrainingContext(start, window)
	assert.Equal(t, 1, tc.HardSessionsThisWeek)
	assert.Equal(t, map[string]int{"easy": 2, "moderate": 1, "hard": 1}, tc.IntensityDistribution7d)
	// The intervals session was 36 clock-hours ago, two calendar days back.
	if assert.NotNil(t, tc.DaysSinceLastHard) {
		assert.Equal(t, 2, *tc.DaysSinceLastHard)
	}
}

func TestDaysSinceLastHardCountsCalendarDays(t *testing.T) {
	start := time.Date(2026, 6, 10, 6, 0, 0, 0, time.UTC)
	window := []store.ActivityWithMetric{{
		Activity: store.Activity{Type: "Run", StartDate: time.Date(2026, 6, 9, 21, 0, 0, 0, time.UTC)},
		Metric:   &store.DerivedMetric{ActivityClass: types.ClassTempo},
	}}

	tc := BuildTrainingContext(start, window)
	// Nine clock-hours apart, but across a date boundary: yesterday.
	if assert.NotNil(t, tc.DaysSinceLastHard) {
		assert.Equal(t, 1, *tc.DaysSinceLastHard)
	}

	sameDay := []store.ActivityWithMetric{{
		Activity: store.Activity{Type: "Run", StartDate: time.Date(2026, 6, 10, 1, 0, 0, 0, time.UTC)},
		Metric:   &store.DerivedMetric{ActivityClass: types.ClassTempo},
	}}
	tc = BuildTrainingContext(start, sameDay)
	if assert.NotNil(t, tc.DaysSinceLastHard) {
		assert.Equal(t, 0, *tc.DaysSinceLastHard)
	}
}

func TestBuildTrainingContextEmptyWindow(t *testing.T) {
	tc := BuildTrainingContext(time.Now(), nil)
	assert.Equal(t, 0, tc.HardSessionsThisWeek)
	assert.Nil(t, tc.DaysSinceLastHard)
	assert.Equal(t, map[string]int{"easy": 0, "moderate": 0, "hard": 0}, tc.IntensityDistribution7d)
}
