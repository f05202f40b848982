package contextpack

import (
	"github.com/philippe-ths/ai-running-coach/pkg/store"
	"github.com/philippe-ths/ai-running-coach/pkg/types"
)

// The closed signal vocabulary.
var signalOrder = []string{
	"heart_rate", "cadence", "power", "gps", "splits", "elevation", "weather",
}

// SignalAvailability infers which input signals the coaching layer may
// rely on for this activity, and which are absent.
func SignalAvailability(activity *store.Activity, streams *types.Streams) (available, missing []string) {
	has := map[string]bool{}
	if streams != nil {
		has["heart_rate"] = len(streams.Heartrate) > 0
		has["cadence"] = len(streams.Cadence) > 0
		has["power"] = len(streams.Watts) > 0
		has["gps"] = len(streams.LatLng) > 0
		has["splits"] = len(streams.Distance) > 0 || len(streams.Time) > 0
		has["elevation"] = len(streams.Altitude) > 0
	}
	if activity != nil {
		has["heart_rate"] = has["heart_rate"] || activity.AverageHR != nil
		has["cadence"] = has["cadence"] || activity.AverageCadence != nil
	}
	// Weather never reaches the core; it stays a named absence.

	available, missing = []string{}, []string{}
	for _, signal := range signalOrder {
		if has[signal] {
			available = append(available, signal)
		} else {
			missing = append(missing, signal)
		}
	}
	return available, missing
}
