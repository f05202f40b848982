package processing

import (
	"fmt"

	"github.com/philippe-ths/ai-running-coach/pkg/store"
	"github.com/philippe-ths/ai-running-coach/pkg/types"
)

// riskPoints is the additive score table for flags that carry risk.
var riskPoints = map[string]int{
	FlagFatiguePossible:         1,
	FlagPainReported:            2,
	FlagLoadSpike:               3,
	FlagPainSevere:              4,
	FlagIllnessOrExtremeFatigue: 4,
}

// riskFlagOrder fixes the reason ordering for flag-driven points.
var riskFlagOrder = []string{
	FlagFatiguePossible, FlagPainReported, FlagLoadSpike,
	FlagPainSevere, FlagIllnessOrExtremeFatigue,
}

// ScoreRisk sums the fixed point table over flags, check-in state and
// training context, and maps the total onto green/amber/red.
func ScoreRisk(flags []string, checkIn *store.CheckIn, tc *types.TrainingContext) (score int, level string, reasons []string) {
	reasons = []string{}

	present := make(map[string]bool, len(flags))
	for _, f := range flags {
		present[f] = true
	}
	for _, f := range riskFlagOrder {
		if present[f] {
			pts := riskPoints[f]
			score += pts
			reasons = append(reasons, fmt.Sprintf("%s (+%d)", f, pts))
		}
	}

	if checkIn != nil &&
		checkIn.SleepQuality != nil && *checkIn.SleepQuality <= 2 &&
		checkIn.RPE != nil && *checkIn.RPE >= 8 {
		score += 2
		reasons = append(reasons, "poor_sleep_high_rpe (+2)")
	}

	if tc != nil && tc.HardSessionsThisWeek >= 2 &&
		tc.DaysSinceLastHard != nil && *tc.DaysSinceLastHard <= 3 {
		score++
		reasons = append(reasons, "consecutive_hard_sessions (+1)")
	}

	switch {
	case score >= 4:
		level = types.RiskRed
	case score >= 2:
		level = types.RiskAmber
	default:
		level = types.RiskGreen
	}
	return score, level, reasons
}
