package types

import "encoding/json"

// Stream channel names as stored and as returned by the provider.
const (
	ChannelTime           = "time"
	ChannelDistance       = "distance"
	ChannelLatLng         = "latlng"
	ChannelAltitude       = "altitude"
	ChannelVelocitySmooth = "velocity_smooth"
	ChannelHeartrate      = "heartrate"
	ChannelCadence        = "cadence"
	ChannelWatts          = "watts"
	ChannelTemp           = "temp"
	ChannelMoving         = "moving"
	ChannelGradeSmooth    = "grade_smooth"
)

// KnownChannels lists every channel the stream store recognizes.
var KnownChannels = []string{
	ChannelTime, ChannelDistance, ChannelLatLng, ChannelAltitude,
	ChannelVelocitySmooth, ChannelHeartrate, ChannelCadence, ChannelWatts,
	ChannelTemp, ChannelMoving, ChannelGradeSmooth,
}

// Streams holds the decoded per-channel sample arrays for one activity.
// Channels the provider did not return are nil. All non-nil channels are
// expected to be time-aligned and, at 1 Hz resolution, one sample per second.
type Streams struct {
	Time      []float64
	Distance  []float64
	Velocity  []float64
	Heartrate []float64
	Cadence   []float64
	Watts     []float64
	Altitude  []float64
	Grade     []float64
	Temp      []float64
	Moving    []bool
	LatLng    [][2]float64
}

// DecodeStreams decodes raw per-channel JSON documents into typed arrays.
// Channels that fail to decode are skipped rather than failing the whole set.
func DecodeStreams(raw map[string]json.RawMessage) *Streams {
	s := &Streams{}
	for channel, data := range raw {
		switch channel {
		case ChannelTime:
			s.Time = decodeFloats(data)
		case ChannelDistance:
			s.Distance = decodeFloats(data)
		case ChannelVelocitySmooth:
			s.Velocity = decodeFloats(data)
		case ChannelHeartrate:
			s.Heartrate = decodeFloats(data)
		case ChannelCadence:
			s.Cadence = decodeFloats(data)
		case ChannelWatts:
			s.Watts = decodeFloats(data)
		case ChannelAltitude:
			s.Altitude = decodeFloats(data)
		case ChannelGradeSmooth:
			s.Grade = decodeFloats(data)
		case ChannelTemp:
			s.Temp = decodeFloats(data)
		case ChannelMoving:
			var vals []bool
			if err := json.Unmarshal(data, &vals); err == nil {
				s.Moving = vals
			}
		case ChannelLatLng:
			var vals [][2]float64
			if err := json.Unmarshal(data, &vals); err == nil {
				s.LatLng = vals
			}
		}
	}
	return s
}

func decodeFloats(data json.RawMessage) []float64 {
	var vals []float64
	if err := json.Unmarshal(data, &vals); err != nil {
		return nil
	}
	return vals
}

// IsEmpty reports whether no channel carries any samples.
func (s *Streams) IsEmpty() bool {
	if s == nil {
		return true
	}
	return len(s.Time) == 0 && len(s.Distance) == 0 && len(s.Velocity) == 0 &&
		len(s.Heartrate) == 0 && len(s.Cadence) == 0 && len(s.Watts) == 0 &&
		len(s.Altitude) == 0 && len(s.Grade) == 0 && len(s.Moving) == 0 &&
		len(s.LatLng) == 0
}

// HasGPS reports whether a latlng channel with samples is present.
func (s *Streams) HasGPS() bool {
	return s != nil && len(s.LatLng) > 0
}
