package ridestats

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrMissingTimeColumn is reported when a stream has no usable elapsed-time column.
	ErrMissingTimeColumn = errors.New("time column is missing")
	// ErrEmptyStream is reported when a stream has no sample rows.
	ErrEmptyStream = errors.New("stream has no samples")
	// ErrInvalidThreshold is reported when threshold power is missing or not positive.
	ErrInvalidThreshold = errors.New("threshold power must be a positive number of watts")
)

// ParseError reports an input that could not be turned into a workout summary.
type ParseError struct {
	Source string
	Stage  Stage
	Err    error
}

func (e *ParseError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("parse stream (%s): %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("parse %s (%s): %v", e.Source, e.Stage, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ConfigurationError reports an athlete setting that makes intensity metrics undefined.
type ConfigurationError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s %s: %s", e.Field, strconv.FormatFloat(e.Value, 'g', -1, 64), e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrInvalidThreshold }

// cellError points at the offending row/column of a tabular input.
type cellError struct {
	Row    int
	Column string
	Value  string
}

func (e *cellError) Error() string {
	return fmt.Sprintf("row %d column %q: non-numeric value %q", e.Row, e.Column, e.Value)
}
