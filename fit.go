package ridestats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"github.com/tormoder/fit"
)

// ReadFIT decodes a FIT activity file into a Stream. Records are ordered by
// timestamp and time is measured from the first timestamped record. FIT
// files carry no moving flag, so movement is classified from speed.
func ReadFIT(r io.Reader) (*Stream, error) {
	decoded, err := fit.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode FIT file: %w", err)
	}
	activity, err := decoded.Activity()
	if err != nil {
		return nil, fmt.Errorf("activity FIT expected: %w", err)
	}
	return streamFromRecords(activity.Records), nil
}

func streamFromRecords(records []*fit.RecordMsg) *Stream {
	rows := make([]*fit.RecordMsg, 0, len(records))
	for _, rec := range records {
		if rec == nil || validTimeOrZero(rec.Timestamp).IsZero() {
			continue
		}
		rows = append(rows, rec)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Timestamp.Before(rows[j].Timestamp)
	})

	s := NewStream(len(rows))
	if len(rows) == 0 {
		return s
	}

	elapsed := s.Ensure(FieldTime)
	distance := s.Ensure(FieldDistance)
	power := s.Ensure(FieldPower)
	cadence := s.Ensure(FieldCadence)
	hr := s.Ensure(FieldHR)
	speed := s.Ensure(FieldVelocity)

	start := rows[0].Timestamp
	for i, rec := range rows {
		elapsed.Set(i, rec.Timestamp.Sub(start).Seconds())
		if d := rec.GetDistanceScaled(); isFinite(d) && d >= 0 {
			distance.Set(i, d)
		}
		if v, ok := extractPower(rec); ok {
			power.Set(i, v)
		}
		if v, ok := extractCadence(rec); ok {
			cadence.Set(i, v)
		}
		if v, ok := extractHeartRate(rec); ok {
			hr.Set(i, v)
		}
		if v, ok := extractSpeed(rec); ok {
			speed.Set(i, v)
		}
	}

	dropEmpty(s)
	return s
}

// dropEmpty removes columns the device never recorded, so they read as absent
// rather than as a column of missing cells.
func dropEmpty(s *Stream) {
	for f, col := range s.columns {
		empty := true
		for _, ok := range col.Valid {
			if ok {
				empty = false
				break
			}
		}
		if empty {
			delete(s.columns, f)
		}
	}
}

func extractPower(rec *fit.RecordMsg) (float64, bool) {
	if rec.Power == math.MaxUint16 {
		return 0, false
	}
	return float64(rec.Power), true
}

func extractHeartRate(rec *fit.RecordMsg) (float64, bool) {
	if rec.HeartRate == math.MaxUint8 || rec.HeartRate == 0 {
		return 0, false
	}
	return float64(rec.HeartRate), true
}

func extractCadence(rec *fit.RecordMsg) (float64, bool) {
	if rec.Cadence == math.MaxUint8 {
		return 0, false
	}
	return float64(rec.Cadence), true
}

func extractSpeed(rec *fit.RecordMsg) (float64, bool) {
	speed := rec.GetEnhancedSpeedScaled()
	if isFinite(speed) && speed >= 0 {
		return speed, true
	}
	speed = rec.GetSpeedScaled()
	if isFinite(speed) && speed >= 0 {
		return speed, true
	}
	return 0, false
}

func validTimeOrZero(t time.Time) time.Time {
	if t.IsZero() || fit.IsBaseTime(t) {
		return time.Time{}
	}
	return t
}
