package pipeline

import ridestats "github.com/lucasjlepore/ridestats"

// Artifact file names written by Run and returned by RunBytes.
const (
	SummaryFileName = "workout_summary.json"
	NotesFileName   = "training_summary.md"
	ChartFileName   = "power_chart.png"
	samplesBaseName = "derived_samples"
)

// Options configures the analyze pipeline.
type Options struct {
	InputPath string
	OutDir    string
	FTP       float64
	Format    string // parquet|csv
	Overwrite bool
	Chart     bool
}

// BytesOptions configures an in-memory pipeline run.
type BytesOptions struct {
	SourceFileName string
	Data           []byte
	FTP            float64
	Format         string // parquet|csv
	Chart          bool
}

// Result returns generated output paths.
type Result struct {
	OutputDir   string                   `json:"output_dir"`
	SamplesPath string                   `json:"samples_path"`
	SummaryPath string                   `json:"summary_path"`
	NotesPath   string                   `json:"notes_path"`
	ChartPath   string                   `json:"chart_path,omitempty"`
	Summary     ridestats.WorkoutSummary `json:"summary"`
	Warnings    []string                 `json:"warnings,omitempty"`
}

// BytesResult holds the artifacts of an in-memory run keyed by file name.
type BytesResult struct {
	Files    map[string][]byte
	Summary  ridestats.WorkoutSummary
	Warnings []string
}

// DerivedSample is one stream sample with its movement flag and rolling power.
type DerivedSample struct {
	ElapsedS      float64  `json:"elapsed_s"`
	DistanceM     *float64 `json:"distance_m,omitempty"`
	PowerW        *float64 `json:"power_w,omitempty"`
	CadenceRPM    *float64 `json:"cadence_rpm,omitempty"`
	HRBPM         *float64 `json:"hr_bpm,omitempty"`
	SpeedMPS      *float64 `json:"speed_mps,omitempty"`
	Moving        bool     `json:"moving"`
	RollingPowerW *float64 `json:"rolling_power_30s_w,omitempty"`
}
