// Package processing derives per-activity analysis: metrics, class,
// interval structure, workout match, flags, risk and confidence. All
// computations here are pure functions over the loaded inputs; samples
// below filter thresholds are excluded rather than imputed.
package processing

import (
	"math"

	"github.com/philippe-ths/ai-running-coach/pkg/types"
)

// EfficiencyUnit is the unit of every efficiency figure.
const EfficiencyUnit = "m/min/bpm"

// EffortScore is the dimensionless training-load proxy. With both the
// session's average and max HR it scales minutes by relative intensity
// cubed; missing either side degrades it to plain minutes. Never null.
func EffortScore(movingTimeS int64, avgHR, maxHR *float64) float64 {
	minutes := float64(movingTimeS) / 60
	if avgHR != nil && *avgHR > 0 && maxHR != nil && *maxHR > 0 {
		rel := *avgHR / *maxHR
		return roundTo(minutes*rel*rel*rel*10, 1)
	}
	return roundTo(minutes, 1)
}

// TimeInZones buckets each HR sample into Z1..Z5 by percentage of max HR.
// Sample counts are treated as seconds (1 Hz stream resolution). Samples
// at or below 30 bpm are sensor noise and dropped, as are samples below
// 50% of max.
func TimeInZones(heartrate []float64, maxHR int) map[string]int {
	if len(heartrate) == 0 || maxHR <= 0 {
		return nil
	}

	zones := map[string]int{"Z1": 0, "Z2": 0, "Z3": 0, "Z4": 0, "Z5": 0}
	for _, hr := range heartrate {
		if hr <= 30 {
			continue
		}
		pct := hr / float64(maxHR)
		switch {
		case pct < 0.5:
			// below zones
		case pct < 0.6:
			zones["Z1"]++
		case pct < 0.7:
			zones["Z2"]++
		case pct < 0.8:
			zones["Z3"]++
		case pct < 0.9:
			zones["Z4"]++
		default:
			zones["Z5"]++
		}
	}
	return zones
}

// PaceVariability is the coefficient of variation of moving speed, in
// percent. Requires at least 60 velocity samples; samples at or below
// 0.5 m/s are treated as stopped and excluded.
func PaceVariability(velocity []float64) *float64 {
	if len(velocity) < 60 {
		return nil
	}

	var moving []float64
	for _, v := range velocity {
		if v > 0.5 {
			moving = append(moving, v)
		}
	}
	m := mean(moving)
	if m == 0 {
		return nil
	}
	cv := roundTo(stdPop(moving)/m*100, 2)
	return &cv
}

// HRDrift is cardiac decoupling: the percent drop in speed-per-heartbeat
// efficiency between the first and second half of a run. Requires aligned
// HR and velocity of at least 600 samples, with at least 600 surviving the
// stopped/noise mask.
func HRDrift(heartrate, velocity []float64) *float64 {
	if len(heartrate) != len(velocity) || len(heartrate) < 600 {
		return nil
	}

	var efficiencies []float64
	for i := range heartrate {
		if velocity[i] > 0.5 && heartrate[i] > 60 {
			efficiencies = append(efficiencies, velocity[i]/heartrate[i])
		}
	}
	if len(efficiencies) < 600 {
		return nil
	}

	mid := len(efficiencies) / 2
	first := mean(efficiencies[:mid])
	second := mean(efficiencies[mid:])
	if first == 0 {
		return nil
	}
	drift := roundTo((1-second/first)*100, 2)
	return &drift
}

// AnalyzeEfficiency reports speed-per-heartbeat efficiency in m/min/bpm:
// the average over valid samples, the best 3-minute sustained value, and a
// smoothed, downsampled curve for charting.
func AnalyzeEfficiency(heartrate, velocity []float64) *types.EfficiencyAnalysis {
	n := len(heartrate)
	if len(velocity) < n {
		n = len(velocity)
	}
	if n < 180 {
		return nil
	}

	// Per-sample efficiency; invalid samples are zeroed so sustained
	// windows spanning them are penalized, not skipped.
	perSample := make([]float64, n)
	var valid []float64
	for i := 0; i < n; i++ {
		if velocity[i] > 0.8 && heartrate[i] > 40 {
			eff := (velocity[i] * 60) / heartrate[i]
			perSample[i] = eff
			valid = append(valid, eff)
		}
	}
	if len(valid) < 60 {
		return nil
	}

	smoothed := smoothBoxcar(perSample, 60)
	curve := make([]float64, 0, n/10+1)
	for i := 0; i < n; i += 10 {
		curve = append(curve, roundTo(smoothed[i], 3))
	}

	return &types.EfficiencyAnalysis{
		AverageEfficiency:       roundTo(mean(valid), 2),
		BestSustainedEfficiency: roundTo(maxRollingMean(perSample, 180), 2),
		EfficiencyCurve:         curve,
		Unit:                    EfficiencyUnit,
	}
}

// EffectiveMaxHRPercent returns avg/max as a fraction, or NaN when either
// side is missing.
func EffectiveMaxHRPercent(avgHR, maxHR *float64) float64 {
	if avgHR == nil || maxHR == nil || *maxHR <= 0 {
		return math.NaN()
	}
	return *avgHR / *maxHR
}
