package pipeline

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	ridestats "github.com/lucasjlepore/ridestats"
)

// Run analyzes one activity file and writes the derived samples, the summary
// JSON, the training notes and optionally a power chart into OutDir.
func Run(opts Options) (*Result, error) {
	if strings.TrimSpace(opts.InputPath) == "" {
		return nil, fmt.Errorf("input path is required")
	}
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("output directory is required")
	}

	data, err := os.ReadFile(opts.InputPath)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	res, err := RunBytes(BytesOptions{
		SourceFileName: opts.InputPath,
		Data:           data,
		FTP:            opts.FTP,
		Format:         opts.Format,
		Chart:          opts.Chart,
	})
	if err != nil {
		return nil, err
	}

	if err := ensureOutputDir(opts.OutDir, opts.Overwrite); err != nil {
		return nil, err
	}
	for name, content := range res.Files {
		if err := os.WriteFile(filepath.Join(opts.OutDir, name), content, 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
	}

	out := &Result{
		OutputDir:   opts.OutDir,
		SummaryPath: filepath.Join(opts.OutDir, SummaryFileName),
		NotesPath:   filepath.Join(opts.OutDir, NotesFileName),
		Summary:     res.Summary,
		Warnings:    res.Warnings,
	}
	for name := range res.Files {
		if strings.HasPrefix(name, samplesBaseName+".") {
			out.SamplesPath = filepath.Join(opts.OutDir, name)
		}
	}
	if _, ok := res.Files[ChartFileName]; ok {
		out.ChartPath = filepath.Join(opts.OutDir, ChartFileName)
	}
	return out, nil
}

// RunBytes is Run without touching the file system.
func RunBytes(opts BytesOptions) (*BytesResult, error) {
	if len(opts.Data) == 0 {
		return nil, fmt.Errorf("activity data is required")
	}
	format, err := normalizeFormat(opts.Format)
	if err != nil {
		return nil, err
	}

	name := opts.SourceFileName
	if strings.TrimSpace(name) == "" {
		name = "input.csv"
	}
	analysis, err := ridestats.AnalyzeBytes(name, opts.Data, opts.FTP)
	if err != nil {
		return nil, err
	}

	samples := buildDerivedSamples(analysis)
	files := make(map[string][]byte, 4)

	samplesName := samplesBaseName + "." + format
	switch format {
	case "csv":
		files[samplesName], err = marshalDerivedCSV(samples)
	case "parquet":
		files[samplesName], err = marshalDerivedParquet(samples)
	}
	if err != nil {
		return nil, fmt.Errorf("write %s: %w", samplesName, err)
	}

	if files[SummaryFileName], err = marshalJSON(analysis.Summary); err != nil {
		return nil, fmt.Errorf("write %s: %w", SummaryFileName, err)
	}
	files[NotesFileName] = []byte(ridestats.BuildTrainingNotes(analysis.Summary) + "\n")

	var warnings []string
	if opts.Chart {
		png, err := renderPowerChart(analysis)
		switch {
		case errors.Is(err, errNoRollingPower):
			warnings = append(warnings, "power chart skipped: no rolling power data")
		case err != nil:
			return nil, fmt.Errorf("render %s: %w", ChartFileName, err)
		default:
			files[ChartFileName] = png
		}
	}
	if analysis.Summary.NormalizedPowerW == nil {
		warnings = append(warnings, "normalized power unavailable: fewer than 30 moving power samples")
	}

	return &BytesResult{
		Files:    files,
		Summary:  analysis.Summary,
		Warnings: warnings,
	}, nil
}

func normalizeFormat(format string) (string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "parquet"
	}
	if format != "parquet" && format != "csv" {
		return "", fmt.Errorf("unsupported format %q (expected parquet|csv)", format)
	}
	return format, nil
}

func buildDerivedSamples(a *ridestats.Analysis) []DerivedSample {
	s := a.Stream
	rolling := a.RollingPower()
	out := make([]DerivedSample, s.Len())
	for i := range out {
		elapsed, _ := s.Column(ridestats.FieldTime).At(i)
		out[i] = DerivedSample{
			ElapsedS:      elapsed,
			DistanceM:     cell(s, ridestats.FieldDistance, i),
			PowerW:        cell(s, ridestats.FieldPower, i),
			CadenceRPM:    cell(s, ridestats.FieldCadence, i),
			HRBPM:         cell(s, ridestats.FieldHR, i),
			SpeedMPS:      cell(s, ridestats.FieldVelocity, i),
			Moving:        a.Moving[i],
			RollingPowerW: rolling[i],
		}
	}
	return out
}

func cell(s *ridestats.Stream, f ridestats.Field, i int) *float64 {
	v, ok := s.Column(f).At(i)
	if !ok {
		return nil
	}
	return &v
}

var derivedHeader = []string{
	"elapsed_s", "distance_m", "power_w", "cadence_rpm", "hr_bpm", "speed_mps", "moving", "rolling_power_30s_w",
}

func marshalDerivedCSV(samples []DerivedSample) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(derivedHeader); err != nil {
		return nil, err
	}
	for _, s := range samples {
		row := []string{
			formatFloat(s.ElapsedS),
			formatFloatPtr(s.DistanceM),
			formatFloatPtr(s.PowerW),
			formatFloatPtr(s.CadenceRPM),
			formatFloatPtr(s.HRBPM),
			formatFloatPtr(s.SpeedMPS),
			strconv.FormatBool(s.Moving),
			formatFloatPtr(s.RollingPowerW),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func ensureOutputDir(path string, overwrite bool) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("read output directory: %w", err)
	}
	if len(entries) > 0 && !overwrite {
		return fmt.Errorf("output directory is not empty: %s (set overwrite=true to allow)", path)
	}
	return nil
}

func marshalJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
