package processing

import (
	"time"

	"github.com/philippe-ths/ai-running-coach/pkg/store"
	"github.com/philippe-ths/ai-running-coach/pkg/types"
)

// hardClasses are the activity classes counted as hard sessions.
var hardClasses = map[string]bool{
	types.ClassIntervals: true,
	types.ClassTempo:     true,
	types.ClassRace:      true,
	types.ClassHills:     true,
}

// BuildTrainingContext summarizes the 7 days of training before the
// activity's start. Each prior activity is categorized by its stored
// classification, falling back to its effective type when unprocessed.
func BuildTrainingContext(start time.Time, window []store.ActivityWithMetric) *types.TrainingContext {
	dist := map[string]int{"easy": 0, "moderate": 0, "hard": 0}
	hard := 0
	var lastHard *time.Time

	for i := range window {
		entry := &window[i]
		class := entry.Activity.EffectiveType()
		if entry.Metric != nil && entry.Metric.ActivityClass != "" {
			class = entry.Metric.ActivityClass
		}

		switch {
		case hardClasses[class]:
			dist["hard"]++
			hard++
			t := entry.Activity.StartDate
			if lastHard == nil || t.After(*lastHard) {
				lastHard = &t
			}
		case class == types.ClassLongRun:
			dist["moderate"]++
		default:
			dist["easy"]++
		}
	}

	tc := &types.TrainingContext{
		IntensityDistribution7d: dist,
		HardSessionsThisWeek:    hard,
	}
	if lastHard != nil {
		days := calendarDaysBetween(*lastHard, start)
		tc.DaysSinceLastHard = &days
	}
	return tc
}

// calendarDaysBetween counts date boundaries crossed between two instants:
// a hard session late yesterday evening is one day ago regardless of the
// clock distance.
func calendarDaysBetween(from, to time.Time) int {
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	f := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	tt := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(tt.Sub(f).Hours() / 24)
}
