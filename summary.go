package ridestats

import (
	"encoding/json"
	"math"
	"time"
)

// WorkoutSummary is the immutable result of one analyzed activity stream.
// Optional metrics are nil when the source carried no data for them.
type WorkoutSummary struct {
	SampleCount     int           `json:"sample_count"`
	Duration        time.Duration `json:"-"`
	MovingTime      time.Duration `json:"-"`
	DistanceKm      float64       `json:"distance_km"`
	TraveledKm      float64       `json:"distance_traveled_km"`
	ThresholdPowerW float64       `json:"ftp_w"`

	AvgPowerW           *float64 `json:"avg_power_w,omitempty"`
	NormalizedPowerW    *float64 `json:"normalized_power_w,omitempty"`
	IntensityFactor     *float64 `json:"intensity_factor,omitempty"`
	TrainingStressScore *float64 `json:"training_stress_score,omitempty"`
	AvgCadenceRPM       *float64 `json:"avg_cadence_rpm,omitempty"`
	AvgHeartRateBPM     *float64 `json:"avg_heart_rate_bpm,omitempty"`
	MaxHeartRateBPM     *float64 `json:"max_heart_rate_bpm,omitempty"`
	AvgSpeedKmh         *float64 `json:"avg_speed_kmh,omitempty"`
	AvgMovingSpeedKmh   *float64 `json:"avg_moving_speed_kmh,omitempty"`
	// Calories is mechanical work in kJ used as a kcal estimate. It is an
	// approximation, not a physiological model.
	Calories *int `json:"calories,omitempty"`
}

type summaryJSON WorkoutSummary

// MarshalJSON encodes durations as whole seconds.
func (w WorkoutSummary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		DurationS   float64 `json:"duration_s"`
		MovingTimeS float64 `json:"moving_time_s"`
		summaryJSON
	}{
		DurationS:   w.Duration.Seconds(),
		MovingTimeS: w.MovingTime.Seconds(),
		summaryJSON: summaryJSON(w),
	})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (w *WorkoutSummary) UnmarshalJSON(data []byte) error {
	var aux struct {
		DurationS   float64 `json:"duration_s"`
		MovingTimeS float64 `json:"moving_time_s"`
		summaryJSON
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*w = WorkoutSummary(aux.summaryJSON)
	w.Duration = secondsToDuration(aux.DurationS)
	w.MovingTime = secondsToDuration(aux.MovingTimeS)
	return nil
}

// Aggregate computes the non-power summaries of s and assembles them with the
// already computed power metrics into a WorkoutSummary.
func Aggregate(s *Stream, mask MovingMask, power PowerMetrics) WorkoutSummary {
	movingSeconds := mask.Count()

	summary := WorkoutSummary{
		SampleCount:     s.Len(),
		MovingTime:      time.Duration(movingSeconds) * time.Second,
		ThresholdPowerW: power.ThresholdW,

		AvgPowerW:           power.AvgPowerW,
		NormalizedPowerW:    power.NormalizedPower,
		IntensityFactor:     power.IntensityFactor,
		TrainingStressScore: power.TrainingStress,
	}

	if maxTime := s.Aggregate(FieldTime, AggMax); maxTime != nil {
		summary.Duration = secondsToDuration(*maxTime)
	}
	if maxDistance := s.Aggregate(FieldDistance, AggMax); maxDistance != nil {
		summary.DistanceKm = round(*maxDistance/1000.0, 2)
	}
	summary.TraveledKm = round(traveledMeters(s.Column(FieldDistance))/1000.0, 2)

	summary.AvgCadenceRPM = roundPtr(s.AggregateWhere(FieldCadence, AggMean, nil, positive), 1)
	summary.AvgHeartRateBPM = roundPtr(s.Aggregate(FieldHR, AggMean), 1)
	summary.MaxHeartRateBPM = s.Aggregate(FieldHR, AggMax)

	summary.AvgSpeedKmh = kmh(s.Aggregate(FieldVelocity, AggMean))
	summary.AvgMovingSpeedKmh = kmh(s.AggregateWhere(FieldVelocity, AggMean, nil, func(v float64) bool {
		return v > riddenVelocityMPS
	}))

	if power.AvgPowerW != nil {
		calories := int(power.MeanPowerW * (float64(movingSeconds) / secondsPerHour) * 3.6)
		summary.Calories = &calories
	}
	return summary
}

// traveledMeters sums positive distance deltas, so a counter reset mid-ride
// does not lose the distance covered before it.
func traveledMeters(distance *Series) float64 {
	if distance == nil {
		return 0
	}
	total := 0.0
	last, haveLast := 0.0, false
	for i := range distance.Values {
		v, ok := distance.At(i)
		if !ok {
			continue
		}
		if haveLast && v > last {
			total += v - last
		}
		last, haveLast = v, true
	}
	return total
}

func kmh(mps *float64) *float64 {
	if mps == nil {
		return nil
	}
	return floatPtr(round(*mps*3.6, 1))
}

func positive(v float64) bool { return v > 0 }

func secondsToDuration(seconds float64) time.Duration {
	if seconds <= 0 {
		return 0
	}
	return time.Duration(math.Round(seconds * float64(time.Second)))
}
