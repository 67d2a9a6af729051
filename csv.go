package ridestats

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// columnAliases maps accepted header names onto recognized fields. It covers
// the stream export names as well as the derived-sample columns written by the
// pipeline package, so exported samples can be analyzed again.
var columnAliases = map[string]Field{
	"time":                 FieldTime,
	"elapsed_s":            FieldTime,
	"elapsed-time-seconds": FieldTime,
	"distance":             FieldDistance,
	"distance_m":           FieldDistance,
	"watts":                FieldPower,
	"power":                FieldPower,
	"power_w":              FieldPower,
	"cadence":              FieldCadence,
	"cadence_rpm":          FieldCadence,
	"heartrate":            FieldHR,
	"heart_rate":           FieldHR,
	"hr_bpm":               FieldHR,
	"velocity_smooth":      FieldVelocity,
	"speed_mps":            FieldVelocity,
	"speed":                FieldVelocity,
	"moving":               FieldMoving,
}

// ReadCSV parses a header-first CSV table into a Stream. Unknown columns are
// ignored, empty and NaN cells are missing, and any other non-numeric cell is
// an error.
func ReadCSV(r io.Reader) (*Stream, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = false

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read csv header: %w", ErrEmptyStream)
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	fieldAt := make(map[int]Field, len(header))
	seen := make(map[Field]bool, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		f, ok := columnAliases[key]
		if !ok || seen[f] {
			continue
		}
		fieldAt[i] = f
		seen[f] = true
	}

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv rows: %w", err)
	}

	s := NewStream(len(rows))
	for _, f := range fieldAt {
		s.Ensure(f)
	}
	for r, row := range rows {
		for i, f := range fieldAt {
			if i >= len(row) {
				continue
			}
			raw := strings.TrimSpace(row[i])
			v, ok, err := parseCell(f, raw)
			if err != nil {
				return nil, &cellError{Row: r + 2, Column: header[i], Value: raw}
			}
			if ok {
				s.Column(f).Set(r, v)
			}
		}
	}
	return s, nil
}

func parseCell(f Field, raw string) (float64, bool, error) {
	if raw == "" {
		return 0, false, nil
	}
	if f == FieldMoving {
		switch strings.ToLower(raw) {
		case "true", "t", "yes", "y", "1", "1.0":
			return 1, true, nil
		case "false", "f", "no", "n", "0", "0.0":
			return 0, true, nil
		case "nan", "null", "none":
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("invalid boolean %q", raw)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, err
	}
	if math.IsNaN(v) {
		return 0, false, nil
	}
	if math.IsInf(v, 0) {
		return 0, false, fmt.Errorf("infinite value %q", raw)
	}
	return v, true, nil
}
