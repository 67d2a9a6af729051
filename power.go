package ridestats

import (
	"math"
)

const (
	secondsPerHour = 3600.0
	// npWindow is the rolling window, in samples, used for normalized power.
	npWindow = 30
)

// PowerMetrics holds the power-derived values of one stream. Every pointer is
// nil when the stream has no moving power samples.
type PowerMetrics struct {
	ThresholdW      float64
	MovingSamples   int
	MeanPowerW      float64 // unrounded mean of the moving power readings
	AvgPowerW       *float64
	NormalizedPower *float64
	IntensityFactor *float64
	TrainingStress  *float64

	// Rolling is the 30-sample rolling mean over the moving power series and
	// RollingIndex maps each entry back to its sample index in the stream.
	Rolling      []float64
	RollingIndex []int
}

// ValidateThreshold returns a ConfigurationError unless ftp is a finite
// positive wattage.
func ValidateThreshold(ftp float64) error {
	if !isFinite(ftp) || ftp <= 0 {
		return &ConfigurationError{
			Field:  "threshold power",
			Value:  ftp,
			Reason: "intensity factor and training stress score need a positive FTP",
		}
	}
	return nil
}

// ComputePower derives average power, normalized power, intensity factor and
// training stress score from the moving samples of s.
func ComputePower(s *Stream, mask MovingMask, ftp float64) (PowerMetrics, error) {
	if err := ValidateThreshold(ftp); err != nil {
		return PowerMetrics{}, err
	}

	pm := PowerMetrics{
		ThresholdW:    ftp,
		MovingSamples: mask.Count(),
	}

	series, index := movingPower(s.Column(FieldPower), mask)
	if len(series) == 0 {
		return pm, nil
	}
	if mean := reduce(series, AggMean); mean != nil {
		pm.MeanPowerW = *mean
		pm.AvgPowerW = floatPtr(round(*mean, 1))
	}

	rolling := RollingMean(series, npWindow)
	if len(rolling) == 0 {
		return pm, nil
	}
	pm.Rolling = rolling
	pm.RollingIndex = index[npWindow-1:]

	np := round(NormalizedPower(rolling), 1)
	ifv := round(np/ftp, 3)
	tss := round(float64(pm.MovingSamples)*np*ifv/(ftp*secondsPerHour)*100.0, 1)

	pm.NormalizedPower = &np
	pm.IntensityFactor = &ifv
	pm.TrainingStress = &tss
	return pm, nil
}

// movingPower returns the present power readings of moving samples in stream
// order, together with their sample indices. Missing cells are skipped rather
// than breaking the sequence, so a rolling window may span them.
func movingPower(power *Series, mask MovingMask) ([]float64, []int) {
	if power == nil {
		return nil, nil
	}
	values := make([]float64, 0, len(mask))
	index := make([]int, 0, len(mask))
	for i, moving := range mask {
		if !moving {
			continue
		}
		if v, ok := power.At(i); ok {
			values = append(values, v)
			index = append(index, i)
		}
	}
	return values, index
}

// RollingMean returns the trailing mean of every full window. The first
// window-1 positions have no defined value and are omitted, so the result
// has len(values)-window+1 entries, or none for a short series. values must
// hold no gaps; see movingPower for how missing readings are dropped.
func RollingMean(values []float64, window int) []float64 {
	if window <= 0 || len(values) < window {
		return nil
	}

	sum := 0.0
	for i := 0; i < window; i++ {
		sum += values[i]
	}

	out := make([]float64, 0, len(values)-window+1)
	for i := window - 1; i < len(values); i++ {
		if i >= window {
			sum += values[i] - values[i-window]
		}
		out = append(out, sum/float64(window))
	}
	return out
}

// NormalizedPower is the fourth root of the mean fourth power of a rolling
// power series. It returns 0 for an empty series.
func NormalizedPower(rolling []float64) float64 {
	if len(rolling) == 0 {
		return 0
	}
	fourthPowerTotal := 0.0
	for _, p := range rolling {
		fourthPowerTotal += math.Pow(p, 4)
	}
	return math.Pow(fourthPowerTotal/float64(len(rolling)), 0.25)
}
