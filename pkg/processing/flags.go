package processing

import (
	"github.com/philippe-ths/ai-running-coach/pkg/store"
	"github.com/philippe-ths/ai-running-coach/pkg/types"
)

// The closed flag taxonomy. GenerateFlags never emits anything else.
const (
	FlagDataLowConfidenceHR     = "data_low_confidence_hr"
	FlagIntensityMismatch       = "intensity_mismatch"
	FlagFatiguePossible         = "fatigue_possible"
	FlagPaceUnstable            = "pace_unstable"
	FlagLoadSpike               = "load_spike"
	FlagIllnessOrExtremeFatigue = "illness_or_extreme_fatigue"
	FlagPainReported            = "pain_reported"
	FlagPainSevere              = "pain_severe"
)

// FlagTaxonomy lists every flag code that can be emitted.
var FlagTaxonomy = []string{
	FlagDataLowConfidenceHR, FlagIntensityMismatch, FlagFatiguePossible,
	FlagPaceUnstable, FlagLoadSpike, FlagIllnessOrExtremeFatigue,
	FlagPainReported, FlagPainSevere,
}

// FlagInputs are the signals the flag rules consult.
type FlagInputs struct {
	Activity      *store.Activity
	Class         string
	MaxHR         *float64 // the session's recorded max HR
	HRDrift       *float64
	PaceVariation *float64
	EffortScore   float64
	RecentEfforts []float64 // latest 7 effort scores before this activity
	CheckIn       *store.CheckIn
}

// GenerateFlags evaluates the fixed rule set and returns the matching flag
// codes. The result is a set; ordering carries no meaning.
func GenerateFlags(in FlagInputs) []string {
	flags := []string{}

	if in.Activity.AverageHR == nil {
		flags = append(flags, FlagDataLowConfidenceHR)
	}

	if in.Class == types.ClassEasyRun && in.Activity.AverageHR != nil &&
		in.MaxHR != nil && *in.MaxHR > 0 {
		if *in.Activity.AverageHR / *in.MaxHR > 0.8 {
			flags = append(flags, FlagIntensityMismatch)
		}
	}

	if in.HRDrift != nil && *in.HRDrift > 5.0 {
		flags = append(flags, FlagFatiguePossible)
	}

	if in.Class == types.ClassTempo && in.PaceVariation != nil && *in.PaceVariation > 15.0 {
		flags = append(flags, FlagPaceUnstable)
	}

	if len(in.RecentEfforts) > 0 {
		if m := mean(in.RecentEfforts); m > 0 && in.EffortScore > 1.8*m {
			flags = append(flags, FlagLoadSpike)
		}
	}

	if c := in.CheckIn; c != nil {
		if c.RPE != nil && *c.RPE >= 8 &&
			c.SleepQuality != nil && *c.SleepQuality <= 2 &&
			c.PainScore != nil && *c.PainScore >= 5 {
			flags = append(flags, FlagIllnessOrExtremeFatigue)
		}
		if c.PainScore != nil && *c.PainScore >= 4 {
			flags = append(flags, FlagPainReported)
			if *c.PainScore >= 7 {
				flags = append(flags, FlagPainSevere)
			}
		}
	}

	return flags
}
