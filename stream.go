package ridestats

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Field names a recognized column of an activity stream.
type Field string

const (
	FieldTime     Field = "time"
	FieldDistance Field = "distance"
	FieldPower    Field = "watts"
	FieldCadence  Field = "cadence"
	FieldHR       Field = "heartrate"
	FieldVelocity Field = "velocity_smooth"
	FieldMoving   Field = "moving"
)

// Aggregation selects how Aggregate reduces a column.
type Aggregation int

const (
	AggMean Aggregation = iota
	AggMax
	AggSum
	AggCount
)

// Series is one column of a stream. Valid[i] is false for missing cells.
type Series struct {
	Values []float64
	Valid  []bool
}

// NewSeries returns a series of n missing cells.
func NewSeries(n int) *Series {
	return &Series{
		Values: make([]float64, n),
		Valid:  make([]bool, n),
	}
}

// Set stores v at i. Non-finite values are stored as missing.
func (s *Series) Set(i int, v float64) {
	if !isFinite(v) {
		s.Values[i] = 0
		s.Valid[i] = false
		return
	}
	s.Values[i] = v
	s.Valid[i] = true
}

// At returns the value at i and whether it is present.
func (s *Series) At(i int) (float64, bool) {
	if s == nil || i < 0 || i >= len(s.Values) || !s.Valid[i] {
		return 0, false
	}
	return s.Values[i], true
}

// Present returns the non-missing values, optionally restricted to mask and keep.
// A nil mask selects every sample; a nil keep accepts every value.
func (s *Series) Present(mask []bool, keep func(float64) bool) []float64 {
	if s == nil {
		return nil
	}
	out := make([]float64, 0, len(s.Values))
	for i, v := range s.Values {
		if !s.Valid[i] {
			continue
		}
		if mask != nil && (i >= len(mask) || !mask[i]) {
			continue
		}
		if keep != nil && !keep(v) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Stream is a column-oriented per-second activity table.
type Stream struct {
	n       int
	columns map[Field]*Series
}

// NewStream returns an empty stream of n samples with no columns.
func NewStream(n int) *Stream {
	return &Stream{n: n, columns: make(map[Field]*Series)}
}

// Len is the number of samples.
func (s *Stream) Len() int {
	if s == nil {
		return 0
	}
	return s.n
}

// Column returns the named column, or nil when the stream does not carry it.
func (s *Stream) Column(f Field) *Series {
	if s == nil {
		return nil
	}
	return s.columns[f]
}

// HasColumn reports whether the stream carries the named column.
func (s *Stream) HasColumn(f Field) bool {
	return s.Column(f) != nil
}

// Ensure returns the named column, creating an all-missing one when absent.
func (s *Stream) Ensure(f Field) *Series {
	if col, ok := s.columns[f]; ok {
		return col
	}
	col := NewSeries(s.n)
	s.columns[f] = col
	return col
}

// Aggregate reduces the present values of a column. It returns nil when the
// column is absent or holds no present values, so "no data" stays distinct
// from a computed zero.
func (s *Stream) Aggregate(f Field, agg Aggregation) *float64 {
	return s.AggregateWhere(f, agg, nil, nil)
}

// AggregateWhere is Aggregate restricted to samples selected by mask and
// values accepted by keep.
func (s *Stream) AggregateWhere(f Field, agg Aggregation, mask []bool, keep func(float64) bool) *float64 {
	col := s.Column(f)
	if col == nil {
		return nil
	}
	return reduce(col.Present(mask, keep), agg)
}

func reduce(values []float64, agg Aggregation) *float64 {
	if len(values) == 0 {
		return nil
	}
	var out float64
	switch agg {
	case AggMean:
		out = stat.Mean(values, nil)
	case AggMax:
		out = floats.Max(values)
	case AggSum:
		out = floats.Sum(values)
	case AggCount:
		out = float64(len(values))
	default:
		return nil
	}
	return &out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func round(v float64, digits int) float64 {
	scale := math.Pow(10, float64(digits))
	return math.Round(v*scale) / scale
}

func floatPtr(v float64) *float64 {
	return &v
}

func roundPtr(v *float64, digits int) *float64 {
	if v == nil {
		return nil
	}
	return floatPtr(round(*v, digits))
}
