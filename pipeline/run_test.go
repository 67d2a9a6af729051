package pipeline

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	ridestats "github.com/lucasjlepore/ridestats"
)

// buildRideCSV returns a ride of n one-second samples at the given power with
// a 10 second stop in the middle.
func buildRideCSV(n int, watts float64) []byte {
	var b strings.Builder
	b.WriteString("time,distance,watts,cadence,heartrate,velocity_smooth,moving\n")
	dist := 0.0
	for i := 0; i < n; i++ {
		stopped := i >= n/2 && i < n/2+10
		if stopped {
			fmt.Fprintf(&b, "%d,%.1f,0,0,120,0,false\n", i, dist)
			continue
		}
		dist += 8
		fmt.Fprintf(&b, "%d,%.1f,%g,90,150,8,true\n", i, dist, watts)
	}
	return []byte(b.String())
}

func TestRunBytesCSVArtifacts(t *testing.T) {
	res, err := RunBytes(BytesOptions{
		SourceFileName: "ride.csv",
		Data:           buildRideCSV(120, 220),
		FTP:            250,
		Format:         "csv",
	})
	if err != nil {
		t.Fatalf("RunBytes() error: %v", err)
	}

	for _, name := range []string{"derived_samples.csv", SummaryFileName, NotesFileName} {
		if len(res.Files[name]) == 0 {
			t.Fatalf("expected artifact %s", name)
		}
	}
	if _, ok := res.Files[ChartFileName]; ok {
		t.Fatalf("chart should only be rendered on request")
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", res.Warnings)
	}

	rows, err := csv.NewReader(bytes.NewReader(res.Files["derived_samples.csv"])).ReadAll()
	if err != nil {
		t.Fatalf("read derived samples: %v", err)
	}
	if len(rows) != 121 {
		t.Fatalf("expected 120 samples plus header, got %d rows", len(rows))
	}
	for i, col := range derivedHeader {
		if rows[0][i] != col {
			t.Fatalf("header column %d: got %q want %q", i, rows[0][i], col)
		}
	}

	// 110 moving samples give 81 full windows; the first ends at the 30th
	// moving sample, which is sample index 29.
	rolling := 0
	for i, row := range rows[1:] {
		if row[7] == "" {
			continue
		}
		rolling++
		if rolling == 1 && i != 29 {
			t.Fatalf("first rolling value at sample %d, want 29", i)
		}
		if row[7] != "220" {
			t.Fatalf("sample %d rolling power = %q, want 220", i, row[7])
		}
	}
	if rolling != 81 {
		t.Fatalf("expected 81 rolling values, got %d", rolling)
	}
	if rows[65][6] != "false" || rows[65][2] != "0" {
		t.Fatalf("expected stopped sample at row 65, got %v", rows[65])
	}

	var summary ridestats.WorkoutSummary
	if err := json.Unmarshal(res.Files[SummaryFileName], &summary); err != nil {
		t.Fatalf("unmarshal summary: %v", err)
	}
	if summary.SampleCount != 120 {
		t.Fatalf("sample_count = %d, want 120", summary.SampleCount)
	}
	if summary.MovingTime.Seconds() != 110 {
		t.Fatalf("moving time = %v, want 110s", summary.MovingTime)
	}
	if summary.NormalizedPowerW == nil || *summary.NormalizedPowerW != 220 {
		t.Fatalf("normalized power = %v, want 220", summary.NormalizedPowerW)
	}
	if summary.IntensityFactor == nil || *summary.IntensityFactor != 0.88 {
		t.Fatalf("intensity factor = %v, want 0.88", summary.IntensityFactor)
	}

	notes := string(res.Files[NotesFileName])
	if !strings.Contains(notes, "Load IF 0.880") {
		t.Fatalf("notes missing load line:\n%s", notes)
	}
}

func TestRunBytesWarnsWithoutNormalizedPower(t *testing.T) {
	res, err := RunBytes(BytesOptions{
		SourceFileName: "short.csv",
		Data:           buildRideCSV(20, 200),
		FTP:            250,
		Format:         "csv",
		Chart:          true,
	})
	if err != nil {
		t.Fatalf("RunBytes() error: %v", err)
	}
	if _, ok := res.Files[ChartFileName]; ok {
		t.Fatalf("chart rendered without rolling power")
	}
	if len(res.Warnings) != 2 {
		t.Fatalf("expected chart and NP warnings, got %v", res.Warnings)
	}
	if res.Summary.NormalizedPowerW != nil || res.Summary.TrainingStressScore != nil {
		t.Fatalf("NP/TSS should be absent for a short ride")
	}
	if res.Summary.AvgPowerW == nil || *res.Summary.AvgPowerW != 200 {
		t.Fatalf("avg power = %v, want 200", res.Summary.AvgPowerW)
	}
}

func TestRunBytesRejectsBadInput(t *testing.T) {
	if _, err := RunBytes(BytesOptions{SourceFileName: "ride.csv", Data: buildRideCSV(40, 200), FTP: 250, Format: "xlsx"}); err == nil {
		t.Fatalf("expected unsupported format error")
	}

	_, err := RunBytes(BytesOptions{SourceFileName: "ride.csv", Data: buildRideCSV(40, 200), FTP: 0, Format: "csv"})
	var cfgErr *ridestats.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}

	_, err = RunBytes(BytesOptions{SourceFileName: "ride.csv", Data: []byte("time,watts\n0,abc\n"), FTP: 250, Format: "csv"})
	var parseErr *ridestats.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestRunWritesOutputDir(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "ride.csv")
	if err := os.WriteFile(input, buildRideCSV(90, 180), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	outDir := filepath.Join(dir, "out")
	res, err := Run(Options{
		InputPath: input,
		OutDir:    outDir,
		FTP:       240,
		Format:    "csv",
		Chart:     true,
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	for _, path := range []string{res.SamplesPath, res.SummaryPath, res.NotesPath, res.ChartPath} {
		if path == "" {
			t.Fatalf("missing artifact path in %+v", res)
		}
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("artifact %s: %v", path, err)
		}
	}
	png, err := os.ReadFile(res.ChartPath)
	if err != nil {
		t.Fatalf("read chart: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Fatalf("chart is not a PNG")
	}

	if _, err := Run(Options{InputPath: input, OutDir: outDir, FTP: 240, Format: "csv"}); err == nil {
		t.Fatalf("expected error writing into a non-empty directory")
	}
	if _, err := Run(Options{InputPath: input, OutDir: outDir, FTP: 240, Format: "csv", Overwrite: true}); err != nil {
		t.Fatalf("Run() with overwrite: %v", err)
	}
}
