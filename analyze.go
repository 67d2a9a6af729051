// Package ridestats derives training metrics from per-second cycling activity
// streams: moving time, normalized power, intensity factor, training stress
// score and the usual averages.
package ridestats

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Stage is a step of the analysis pipeline. Errors carry the stage they
// occurred in.
type Stage int

const (
	StageLoaded Stage = iota
	StageClassified
	StageComputed
	StageAssembled
)

func (s Stage) String() string {
	switch s {
	case StageLoaded:
		return "loaded"
	case StageClassified:
		return "classified"
	case StageComputed:
		return "computed"
	case StageAssembled:
		return "assembled"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Format is the encoding of an input activity file.
type Format string

const (
	FormatCSV Format = "csv"
	FormatFIT Format = "fit"
)

// FormatFromName picks the input format from a file name extension.
func FormatFromName(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV, nil
	case ".fit":
		return FormatFIT, nil
	default:
		return "", fmt.Errorf("unsupported activity file %q (expected .csv or .fit)", filepath.Base(name))
	}
}

// Analysis is a workout summary together with the derived series it was
// computed from.
type Analysis struct {
	Summary WorkoutSummary
	Stream  *Stream
	Moving  MovingMask
	Power   PowerMetrics
}

// RollingPower returns the rolling power aligned to stream samples. Entry i is
// nil unless sample i closed a full window of moving power readings.
func (a *Analysis) RollingPower() []*float64 {
	out := make([]*float64, a.Stream.Len())
	for k, idx := range a.Power.RollingIndex {
		out[idx] = floatPtr(a.Power.Rolling[k])
	}
	return out
}

// AnalyzeFile reads a CSV or FIT activity file and analyzes it.
func AnalyzeFile(path string, ftp float64) (*Analysis, error) {
	format, err := FormatFromName(path)
	if err != nil {
		return nil, &ParseError{Source: path, Stage: StageLoaded, Err: err}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Source: path, Stage: StageLoaded, Err: err}
	}
	return analyze(path, format, bytes.NewReader(data), ftp)
}

// AnalyzeBytes analyzes an in-memory activity file; name selects the format.
func AnalyzeBytes(name string, data []byte, ftp float64) (*Analysis, error) {
	format, err := FormatFromName(name)
	if err != nil {
		return nil, &ParseError{Source: name, Stage: StageLoaded, Err: err}
	}
	return analyze(name, format, bytes.NewReader(data), ftp)
}

// Analyze reads a CSV stream from r and analyzes it.
func Analyze(r io.Reader, ftp float64) (*Analysis, error) {
	return analyze("", FormatCSV, r, ftp)
}

// AnalyzeStream runs classification, computation and assembly over an
// already loaded stream. The stream is not modified.
func AnalyzeStream(s *Stream, ftp float64) (*Analysis, error) {
	return run("", s, ftp)
}

func analyze(source string, format Format, r io.Reader, ftp float64) (*Analysis, error) {
	var (
		s   *Stream
		err error
	)
	switch format {
	case FormatFIT:
		s, err = ReadFIT(r)
	default:
		s, err = ReadCSV(r)
	}
	if err != nil {
		return nil, &ParseError{Source: source, Stage: StageLoaded, Err: err}
	}
	return run(source, s, ftp)
}

func run(source string, s *Stream, ftp float64) (a *Analysis, err error) {
	stage := StageLoaded
	defer func() {
		if r := recover(); r != nil {
			a = nil
			err = &ParseError{Source: source, Stage: stage, Err: fmt.Errorf("unexpected failure: %v", r)}
		}
	}()

	if err := checkLoaded(s); err != nil {
		return nil, &ParseError{Source: source, Stage: stage, Err: err}
	}

	stage = StageClassified
	mask := ClassifyMovement(s)

	stage = StageComputed
	power, err := ComputePower(s, mask, ftp)
	if err != nil {
		var cfgErr *ConfigurationError
		if errors.As(err, &cfgErr) {
			return nil, err
		}
		return nil, &ParseError{Source: source, Stage: stage, Err: err}
	}

	stage = StageAssembled
	summary := Aggregate(s, mask, power)

	return &Analysis{
		Summary: summary,
		Stream:  s,
		Moving:  mask,
		Power:   power,
	}, nil
}

func checkLoaded(s *Stream) error {
	if s.Len() == 0 {
		return ErrEmptyStream
	}
	if s.Aggregate(FieldTime, AggCount) == nil {
		return ErrMissingTimeColumn
	}
	return nil
}
