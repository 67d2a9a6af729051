package ridestats

import (
	"errors"
	"math"
	"testing"
)

func TestComputePowerNoMovingSamples(t *testing.T) {
	s := newTestStream(t, map[Field][]float64{
		FieldTime:  seq(60),
		FieldPower: repeat(250, 60),
	})

	pm, err := ComputePower(s, make(MovingMask, 60), 250)
	if err != nil {
		t.Fatalf("ComputePower() error: %v", err)
	}
	if pm.AvgPowerW != nil || pm.NormalizedPower != nil || pm.IntensityFactor != nil || pm.TrainingStress != nil {
		t.Fatalf("expected all power metrics absent, got %+v", pm)
	}
}

func TestComputePowerNoPowerColumn(t *testing.T) {
	s := newTestStream(t, map[Field][]float64{FieldTime: seq(40), FieldMoving: repeat(1, 40)})

	pm, err := ComputePower(s, ClassifyMovement(s), 250)
	if err != nil {
		t.Fatalf("ComputePower() error: %v", err)
	}
	if pm.AvgPowerW != nil || pm.NormalizedPower != nil {
		t.Fatalf("expected absent power metrics, got %+v", pm)
	}
	if pm.MovingSamples != 40 {
		t.Fatalf("MovingSamples = %d, want 40", pm.MovingSamples)
	}
}

func TestComputePowerUniformPower(t *testing.T) {
	for _, watts := range []float64{95, 200, 333} {
		s := newTestStream(t, map[Field][]float64{
			FieldTime:   seq(45),
			FieldPower:  repeat(watts, 45),
			FieldMoving: repeat(1, 45),
		})
		pm, err := ComputePower(s, ClassifyMovement(s), 250)
		if err != nil {
			t.Fatalf("ComputePower() error: %v", err)
		}
		if pm.NormalizedPower == nil || *pm.NormalizedPower != watts {
			t.Fatalf("NP at constant %v W = %v", watts, pm.NormalizedPower)
		}
		wantIF := math.Round(watts/250*1000) / 1000
		if *pm.IntensityFactor != wantIF {
			t.Fatalf("IF = %v, want %v", *pm.IntensityFactor, wantIF)
		}
	}
}

func TestComputePowerShortSeries(t *testing.T) {
	s := newTestStream(t, map[Field][]float64{
		FieldTime:   seq(29),
		FieldPower:  repeat(180, 29),
		FieldMoving: repeat(1, 29),
	})

	pm, err := ComputePower(s, ClassifyMovement(s), 250)
	if err != nil {
		t.Fatalf("ComputePower() error: %v", err)
	}
	if pm.AvgPowerW == nil || *pm.AvgPowerW != 180 {
		t.Fatalf("avg power = %v, want 180", pm.AvgPowerW)
	}
	if pm.NormalizedPower != nil || pm.IntensityFactor != nil || pm.TrainingStress != nil {
		t.Fatalf("NP/IF/TSS need a full 30 sample window, got %+v", pm)
	}
	if len(pm.Rolling) != 0 {
		t.Fatalf("expected no rolling values, got %d", len(pm.Rolling))
	}
}

func TestComputePowerSkipsStoppedAndMissingSamples(t *testing.T) {
	nan := math.NaN()
	n := 40
	power := repeat(200, n)
	moving := repeat(1, n)
	// Samples 5..9 are stopped at 500 W, sample 12 has no reading.
	for i := 5; i < 10; i++ {
		power[i] = 500
		moving[i] = 0
	}
	power[12] = nan

	s := newTestStream(t, map[Field][]float64{FieldTime: seq(n), FieldPower: power, FieldMoving: moving})
	pm, err := ComputePower(s, ClassifyMovement(s), 200)
	if err != nil {
		t.Fatalf("ComputePower() error: %v", err)
	}

	// 34 usable readings give 5 full windows.
	if len(pm.Rolling) != 5 || len(pm.RollingIndex) != 5 {
		t.Fatalf("rolling length = %d/%d, want 5", len(pm.Rolling), len(pm.RollingIndex))
	}
	if pm.RollingIndex[0] != 35 {
		t.Fatalf("first rolling sample = %d, want 35", pm.RollingIndex[0])
	}
	if *pm.NormalizedPower != 200 || *pm.AvgPowerW != 200 {
		t.Fatalf("stopped samples leaked into power: NP %v avg %v", *pm.NormalizedPower, *pm.AvgPowerW)
	}
	if *pm.IntensityFactor != 1 {
		t.Fatalf("IF = %v, want 1", *pm.IntensityFactor)
	}
	// 35 moving samples at IF 1.0.
	if want := math.Round(35.0/3600*100*10) / 10; *pm.TrainingStress != want {
		t.Fatalf("TSS = %v, want %v", *pm.TrainingStress, want)
	}
}

func TestComputePowerRejectsInvalidThreshold(t *testing.T) {
	s := newTestStream(t, map[Field][]float64{FieldTime: seq(3)})

	for _, ftp := range []float64{0, -200, math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := ComputePower(s, make(MovingMask, 3), ftp)
		var cfgErr *ConfigurationError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("ftp %v: expected ConfigurationError, got %v", ftp, err)
		}
		if !errors.Is(err, ErrInvalidThreshold) {
			t.Fatalf("ftp %v: error should match ErrInvalidThreshold", ftp)
		}
	}
}

func TestRollingMean(t *testing.T) {
	values := seq(32)
	got := RollingMean(values, 30)
	want := []float64{14.5, 15.5, 16.5}
	if len(got) != len(want) {
		t.Fatalf("RollingMean() len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("RollingMean()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if RollingMean(values[:29], 30) != nil {
		t.Fatalf("short series should have no full window")
	}
}

func TestNormalizedPowerWeightsSurges(t *testing.T) {
	rolling := append(repeat(100, 50), repeat(300, 50)...)
	np := NormalizedPower(rolling)
	if np <= 200 {
		t.Fatalf("NP %v should exceed the 200 W average for a variable ride", np)
	}
	if NormalizedPower(nil) != 0 {
		t.Fatalf("NP of empty series should be 0")
	}
}
