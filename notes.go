package ridestats

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// BuildTrainingNotes turns a workout summary into a short plain-text report.
// Metrics the stream did not carry are shown as "n/a".
func BuildTrainingNotes(w WorkoutSummary) string {
	var b strings.Builder

	fmt.Fprintf(
		&b,
		"Duration %s | Moving %s | Distance %.2f km\n",
		FormatClock(w.Duration),
		FormatClock(w.MovingTime),
		w.DistanceKm,
	)
	fmt.Fprintf(
		&b,
		"Power %s avg / %s NP W\n",
		formatOptional(w.AvgPowerW, "%.0f"),
		formatOptional(w.NormalizedPowerW, "%.1f"),
	)
	fmt.Fprintf(
		&b,
		"HR %s avg / %s max bpm | Cadence %s avg rpm\n",
		formatOptional(w.AvgHeartRateBPM, "%.0f"),
		formatOptional(w.MaxHeartRateBPM, "%.0f"),
		formatOptional(w.AvgCadenceRPM, "%.0f"),
	)
	fmt.Fprintf(
		&b,
		"Speed %s avg / %s riding km/h\n",
		formatOptional(w.AvgSpeedKmh, "%.1f"),
		formatOptional(w.AvgMovingSpeedKmh, "%.1f"),
	)

	if w.IntensityFactor != nil && w.TrainingStressScore != nil {
		fmt.Fprintf(
			&b,
			"Load IF %.3f | TSS %.1f | FTP %.0f W\n",
			*w.IntensityFactor,
			*w.TrainingStressScore,
			w.ThresholdPowerW,
		)
	} else {
		b.WriteString("Load IF/TSS unavailable (no moving power data)\n")
	}
	if w.Calories != nil {
		fmt.Fprintf(&b, "Energy ~%d kcal (estimated from mechanical work)\n", *w.Calories)
	}

	b.WriteString("\nCoaching Notes\n- ")
	b.WriteString(coachingAssessment(w))
	b.WriteByte('\n')

	return strings.TrimSpace(b.String())
}

func coachingAssessment(w WorkoutSummary) string {
	if w.IntensityFactor == nil {
		return "No power data; load could not be assessed."
	}
	switch ifv := *w.IntensityFactor; {
	case ifv >= 1.0:
		return "Threshold-or-harder session; follow with an easier endurance day (Z1-Z2) to consolidate adaptations."
	case ifv >= 0.9:
		return "High-intensity load for this duration; prioritize sleep and fueling to absorb the session."
	case ifv >= 0.75:
		return "Tempo-range load; sustainable as a regular quality session."
	default:
		return "Aerobic load appears manageable and supports base development."
	}
}

// FormatClock renders a duration as H:MM:SS.
func FormatClock(d time.Duration) string {
	if d <= 0 {
		return "0:00:00"
	}
	s := int(math.Round(d.Seconds()))
	return fmt.Sprintf("%d:%02d:%02d", s/3600, (s%3600)/60, s%60)
}

func formatOptional(v *float64, format string) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf(format, *v)
}
