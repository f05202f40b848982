package strava

import (
	"encoding/json"
	"time"
)

// Activity is a provider activity summary or detail. Raw carries the
// payload verbatim for forensic and late-arriving-field purposes.
type Activity struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Type               string    `json:"type"`
	SportType          string    `json:"sport_type"`
	StartDate          time.Time `json:"start_date"`
	Distance           float64   `json:"distance"`             // meters
	MovingTime         int64     `json:"moving_time"`          // seconds
	ElapsedTime        int64     `json:"elapsed_time"`         // seconds
	TotalElevationGain float64   `json:"total_elevation_gain"` // meters
	AverageSpeed       *float64  `json:"average_speed"`        // m/s
	AverageHeartrate   *float64  `json:"average_heartrate"`    // bpm
	MaxHeartrate       *float64  `json:"max_heartrate"`        // bpm
	AverageCadence     *float64  `json:"average_cadence"`
	SufferScore        *float64  `json:"suffer_score"`
	Trainer            bool      `json:"trainer"`

	Raw json.RawMessage `json:"-"`
}

// TokenBundle is the result of an OAuth code exchange or refresh.
type TokenBundle struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    int64 // unix seconds
	AthleteID    int64 // zero on refresh responses
}

// streamEnvelope is one channel of a key_by_type=true streams response.
type streamEnvelope struct {
	Data         json.RawMessage `json:"data"`
	SeriesType   string          `json:"series_type"`
	OriginalSize int             `json:"original_size"`
	Resolution   string          `json:"resolution"`
}
