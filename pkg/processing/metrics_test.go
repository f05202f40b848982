package processing

import (
	"math"
	"testing"
)

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

func TestEffortScore(t *testing.T) {
	tests := []struct {
		name        string
		movingTimeS int64
		avgHR       *float64
		maxHR       *float64
		want        float64
	}{
		{"with hr at 75 percent", 1500, floatPtr(142.5), floatPtr(190), 105.5},
		{"session max of 200", 1500, floatPtr(150), floatPtr(200), 105.5},
		{"without hr degrades to minutes", 3600, nil, floatPtr(190), 60.0},
		{"missing max hr degrades to minutes", 1800, floatPtr(150), nil, 30.0},
		{"zero max hr degrades to minutes", 1800, floatPtr(150), floatPtr(0), 30.0},
		{"zero moving time", 0, floatPtr(150), floatPtr(190), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EffortScore(tt.movingTimeS, tt.avgHR, tt.maxHR)
			if got != tt.want {
				t.Errorf("EffortScore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTimeInZones(t *testing.T) {
	// maxHR 200: boundaries at 100/120/140/160/180.
	hr := []float64{25, 90, 100, 110, 130, 150, 170, 180, 195}
	zones := TimeInZones(hr, 200)
	if zones == nil {
		t.Fatal("expected zones, got nil")
	}

	want := map[string]int{"Z1": 2, "Z2": 1, "Z3": 1, "Z4": 1, "Z5": 2}
	for z, n := range want {
		if zones[z] != n {
			t.Errorf("zone %s = %d, want %d", z, zones[z], n)
		}
	}

	if TimeInZones(nil, 200) != nil {
		t.Error("expected nil for empty stream")
	}
	if TimeInZones(hr, 0) != nil {
		t.Error("expected nil for missing max HR")
	}
}

func TestPaceVariability(t *testing.T) {
	short := make([]float64, 59)
	if PaceVariability(short) != nil {
		t.Error("expected nil below sample minimum")
	}

	velocity := make([]float64, 100)
	for i := range velocity {
		if i < 50 {
			velocity[i] = 2.0
		} else {
			velocity[i] = 4.0
		}
	}
	got := PaceVariability(velocity)
	if got == nil {
		t.Fatal("expected a value")
	}
	// mean 3.0, population std 1.0
	if *got != 33.33 {
		t.Errorf("PaceVariability() = %v, want 33.33", *got)
	}

	constant := make([]float64, 60)
	for i := range constant {
		constant[i] = 3.0
	}
	if got := PaceVariability(constant); got == nil || *got != 0 {
		t.Errorf("constant pace should have zero variability, got %v", got)
	}
}

func TestHRDrift(t *testing.T) {
	if HRDrift(make([]float64, 599), make([]float64, 599)) != nil {
		t.Error("expected nil below sample minimum")
	}

	hr := make([]float64, 1200)
	velocity := make([]float64, 1200)
	for i := range hr {
		velocity[i] = 3.0
		if i < 600 {
			hr[i] = 150
		} else {
			hr[i] = 160
		}
	}
	got := HRDrift(hr, velocity)
	if got == nil {
		t.Fatal("expected a value")
	}
	// First-half efficiency 0.02, second-half 0.01875: 6.25% decay.
	if *got != 6.25 {
		t.Errorf("HRDrift() = %v, want 6.25", *got)
	}

	// Stopped samples are masked; too few survivors means no drift.
	stopped := make([]float64, 1200)
	if HRDrift(hr, stopped) != nil {
		t.Error("expected nil when the mask leaves too few samples")
	}
}

func TestAnalyzeEfficiency(t *testing.T) {
	if AnalyzeEfficiency(make([]float64, 100), make([]float64, 100)) != nil {
		t.Error("expected nil below sample minimum")
	}

	hr := make([]float64, 300)
	velocity := make([]float64, 300)
	for i := range hr {
		hr[i] = 150
		velocity[i] = 3.0
	}
	got := AnalyzeEfficiency(hr, velocity)
	if got == nil {
		t.Fatal("expected analysis")
	}
	// (3.0 * 60) / 150 = 1.2 everywhere.
	if got.AverageEfficiency != 1.2 {
		t.Errorf("AverageEfficiency = %v, want 1.2", got.AverageEfficiency)
	}
	if got.BestSustainedEfficiency != 1.2 {
		t.Errorf("BestSustainedEfficiency = %v, want 1.2", got.BestSustainedEfficiency)
	}
	if got.Unit != EfficiencyUnit {
		t.Errorf("Unit = %q, want %q", got.Unit, EfficiencyUnit)
	}
	if len(got.EfficiencyCurve) != 30 {
		t.Errorf("curve length = %d, want 30", len(got.EfficiencyCurve))
	}
	// Interior of the curve sees the full smoothing window.
	if got.EfficiencyCurve[15] != 1.2 {
		t.Errorf("curve midpoint = %v, want 1.2", got.EfficiencyCurve[15])
	}

	// Headline figures round to two decimals: (3.0 * 60) / 151 = 1.1921.
	for i := range hr {
		hr[i] = 151
	}
	got = AnalyzeEfficiency(hr, velocity)
	if got == nil {
		t.Fatal("expected analysis")
	}
	if got.AverageEfficiency != 1.19 {
		t.Errorf("AverageEfficiency = %v, want 1.19", got.AverageEfficiency)
	}
	if got.BestSustainedEfficiency != 1.19 {
		t.Errorf("BestSustainedEfficiency = %v, want 1.19", got.BestSustainedEfficiency)
	}
}

func TestEffectiveMaxHRPercent(t *testing.T) {
	if got := EffectiveMaxHRPercent(floatPtr(150), floatPtr(200)); got != 0.75 {
		t.Errorf("got %v, want 0.75", got)
	}
	if !math.IsNaN(EffectiveMaxHRPercent(nil, floatPtr(200))) {
		t.Error("expected NaN for missing avg HR")
	}
	if !math.IsNaN(EffectiveMaxHRPercent(floatPtr(150), nil)) {
		t.Error("expected NaN for missing max HR")
	}
}
