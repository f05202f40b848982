package processing

import (
	"encoding/json"
	"strings"

	"github.com/philippe-ths/ai-running-coach/pkg/store"
	"github.com/philippe-ths/ai-running-coach/pkg/types"
)

// rawActivityHints are the payload fields the classifier consults. The raw
// payload is duck-typed; absent fields default rather than fail.
type rawActivityHints struct {
	SportType string `json:"sport_type"`
	Trainer   bool   `json:"trainer"`
}

// Classify assigns the activity class. Rules run in a fixed order; the
// first match wins and the user's intent override always takes precedence.
func Classify(a *store.Activity, history []store.Activity) string {
	if a.UserIntent != nil && *a.UserIntent != "" {
		return *a.UserIntent
	}

	var hints rawActivityHints
	if len(a.RawData) > 0 {
		_ = json.Unmarshal(a.RawData, &hints)
	}
	sportType := hints.SportType
	if sportType == "" {
		sportType = a.Type
	}

	if hints.Trainer {
		switch sportType {
		case "Ride":
			return types.ClassIndoorRide
		case "Run":
			return types.ClassTreadmill
		}
	}

	if sportType == "Ride" && a.DistanceM == 0 && a.MovingTimeS > 60 {
		return types.ClassIndoorRide
	}

	name := strings.ToLower(a.Name)
	switch {
	case strings.Contains(name, "race"):
		return types.ClassRace
	case strings.Contains(name, "workout"), strings.Contains(name, "interval"):
		return types.ClassIntervals
	case strings.Contains(name, "hill"):
		return types.ClassHills
	case strings.Contains(name, "recovery"):
		return types.ClassRecovery
	}

	longThreshold := 4500.0
	var times []float64
	for _, h := range history {
		// Rows without a recorded duration would drag the baseline down.
		if h.MovingTimeS > 0 {
			times = append(times, float64(h.MovingTimeS))
		}
	}
	if len(times) > 0 {
		longThreshold = maxFloat(longThreshold, 1.3*mean(times))
	}
	if float64(a.MovingTimeS) > longThreshold {
		return types.ClassLongRun
	}

	if a.DistanceM > 0 {
		gainPerKM := a.ElevationGainM / (float64(a.DistanceM) / 1000)
		if gainPerKM > 20 {
			return types.ClassHills
		}
		if gainPerKM > 15 && a.AverageHR != nil && *a.AverageHR > 150 {
			return types.ClassHills
		}
	}

	switch sportType {
	case "Ride":
		return types.ClassEasyRide
	case "Walk":
		return types.ClassLeisureWalk
	case "Swim":
		return types.ClassEndurance
	case "Workout", "WeightTraining":
		return types.ClassStrength
	}

	return types.ClassEasyRun
}
