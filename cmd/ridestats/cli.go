package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	ridestats "github.com/lucasjlepore/ridestats"
	"github.com/lucasjlepore/ridestats/config"
	"github.com/lucasjlepore/ridestats/ingest"
	"github.com/lucasjlepore/ridestats/pipeline"
	"github.com/lucasjlepore/ridestats/store"
)

var errUsage = errors.New("invalid usage")

// CLI dispatches ridestats subcommands.
type CLI struct {
	writer io.Writer
	logger *slog.Logger
	cfg    config.Config
}

func NewCLI(w io.Writer, logger *slog.Logger, cfg config.Config) *CLI {
	return &CLI{writer: w, logger: logger, cfg: cfg}
}

func (c *CLI) Run(args []string) error {
	if len(args) == 0 {
		c.Usage()
		return nil
	}

	ctx := context.Background()
	switch args[0] {
	case "analyze":
		return c.Analyze(ctx, args[1:])
	case "summary":
		return c.Summary(ctx, args[1:])
	case "profile":
		return c.Profile(ctx, args[1:])
	case "import":
		return c.Import(ctx, args[1:])
	case "workouts":
		return c.Workouts(ctx, args[1:])
	case "help", "-h", "--help":
		c.Usage()
		return nil
	default:
		c.Usage()
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
}

func (c *CLI) Usage() {
	fmt.Fprint(c.writer, `Usage: ridestats <command> [flags]

	analyze  --in ride.csv|ride.fit --out dir [--ftp 250 | --athlete 1] [--format parquet|csv] [--chart]
	summary  [--ftp 250 | --athlete 1] [--json] ride.csv|ride.fit
	profile  set --athlete 1 --ftp 250 | show --athlete 1
	import   --file ride.csv --athlete 1 [--metrics-file ridestats.prom]
	workouts --athlete 1 [--limit 20]

--athlete defaults to RIDESTATS_ATHLETE_ID.
`)
}

func (c *CLI) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("ridestats "+name, flag.ContinueOnError)
	fs.SetOutput(c.writer)
	return fs
}

// requireAthlete rejects a missing athlete id: there is no default athlete.
func requireAthlete(athleteID int64) error {
	if athleteID <= 0 {
		return fmt.Errorf("%w: pass --athlete or set RIDESTATS_ATHLETE_ID", errUsage)
	}
	return nil
}

func (c *CLI) openStore() (*store.Store, error) {
	if dir := filepath.Dir(c.cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	return store.Open(c.cfg.DBPath)
}

// thresholdPower returns the --ftp flag when set, otherwise the FTP stored on
// the athlete profile.
func (c *CLI) thresholdPower(ctx context.Context, flagValue float64, athleteID int64) (float64, error) {
	if flagValue != 0 {
		return flagValue, nil
	}
	if err := requireAthlete(athleteID); err != nil {
		return 0, err
	}
	st, err := c.openStore()
	if err != nil {
		return 0, err
	}
	defer st.Close()

	ftp, err := st.ThresholdPower(ctx, athleteID)
	if errors.Is(err, store.ErrNotFound) {
		return 0, &ridestats.ConfigurationError{
			Field:  "threshold power",
			Reason: fmt.Sprintf("no FTP for athlete %d; pass --ftp or run `ridestats profile set --athlete %d --ftp <watts>`", athleteID, athleteID),
		}
	}
	return ftp, err
}

func (c *CLI) Analyze(ctx context.Context, args []string) error {
	fs := c.newFlagSet("analyze")
	var (
		in        = fs.String("in", "", "path to a .csv or .fit activity file")
		outDir    = fs.String("out", "", "output directory")
		ftp       = fs.Float64("ftp", 0, "FTP in watts (defaults to the athlete profile)")
		athlete   = fs.Int64("athlete", c.cfg.AthleteID, "athlete whose profile FTP is used when --ftp is absent")
		format    = fs.String("format", c.cfg.OutputFormat, "derived sample format: parquet|csv")
		chart     = fs.Bool("chart", false, "render a rolling power chart")
		overwrite = fs.Bool("overwrite", false, "allow writing into a non-empty output directory")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*in) == "" || strings.TrimSpace(*outDir) == "" {
		fs.Usage()
		return fmt.Errorf("%w: --in and --out are required", errUsage)
	}

	threshold, err := c.thresholdPower(ctx, *ftp, *athlete)
	if err != nil {
		return err
	}

	result, err := pipeline.Run(pipeline.Options{
		InputPath: *in,
		OutDir:    *outDir,
		FTP:       threshold,
		Format:    *format,
		Overwrite: *overwrite,
		Chart:     *chart,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(c.writer, "Output dir:        %s\n", result.OutputDir)
	fmt.Fprintf(c.writer, "derived samples:   %s\n", result.SamplesPath)
	fmt.Fprintf(c.writer, "workout summary:   %s\n", result.SummaryPath)
	fmt.Fprintf(c.writer, "training notes:    %s\n", result.NotesPath)
	if result.ChartPath != "" {
		fmt.Fprintf(c.writer, "power chart:       %s\n", result.ChartPath)
	}
	for _, w := range result.Warnings {
		c.logger.Warn(w)
	}
	return nil
}

func (c *CLI) Summary(ctx context.Context, args []string) error {
	fs := c.newFlagSet("summary")
	var (
		ftp     = fs.Float64("ftp", 0, "FTP in watts (defaults to the athlete profile)")
		athlete = fs.Int64("athlete", c.cfg.AthleteID, "athlete whose profile FTP is used when --ftp is absent")
		jsonOut = fs.Bool("json", false, "emit the summary as JSON")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return fmt.Errorf("%w: activity file is required", errUsage)
	}

	threshold, err := c.thresholdPower(ctx, *ftp, *athlete)
	if err != nil {
		return err
	}
	analysis, err := ridestats.AnalyzeFile(fs.Arg(0), threshold)
	if err != nil {
		return err
	}

	if *jsonOut {
		enc := json.NewEncoder(c.writer)
		enc.SetIndent("", "  ")
		return enc.Encode(analysis.Summary)
	}
	fmt.Fprintln(c.writer, ridestats.BuildTrainingNotes(analysis.Summary))
	return nil
}

func (c *CLI) Profile(ctx context.Context, args []string) error {
	if len(args) == 0 {
		c.Usage()
		return fmt.Errorf("%w: profile needs set or show", errUsage)
	}

	fs := c.newFlagSet("profile " + args[0])
	var (
		athlete = fs.Int64("athlete", c.cfg.AthleteID, "athlete id")
		ftp     = fs.Float64("ftp", 0, "FTP in watts")
	)
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if err := requireAthlete(*athlete); err != nil {
		return err
	}

	st, err := c.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	switch args[0] {
	case "set":
		if err := st.SetThresholdPower(ctx, *athlete, *ftp); err != nil {
			return err
		}
		c.logger.Info("updated athlete profile", slog.Int64("athlete_id", *athlete), slog.Float64("ftp_w", *ftp))
		fmt.Fprintf(c.writer, "FTP for athlete %d set to %.0f W\n", *athlete, *ftp)
	case "show":
		value, err := st.ThresholdPower(ctx, *athlete)
		if errors.Is(err, store.ErrNotFound) {
			fmt.Fprintf(c.writer, "athlete %d has no FTP set\n", *athlete)
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(c.writer, "FTP for athlete %d: %.0f W\n", *athlete, value)
	default:
		return fmt.Errorf("%w: unknown profile command %q", errUsage, args[0])
	}
	return nil
}

func (c *CLI) Import(ctx context.Context, args []string) error {
	fs := c.newFlagSet("import")
	var (
		file        = fs.String("file", "", "path to a .csv or .fit activity file")
		athlete     = fs.Int64("athlete", c.cfg.AthleteID, "athlete id")
		metricsFile = fs.String("metrics-file", "", "write import metrics to this node exporter textfile")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*file) == "" {
		fs.Usage()
		return fmt.Errorf("%w: --file is required", errUsage)
	}
	if err := requireAthlete(*athlete); err != nil {
		return err
	}

	content, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("read activity file: %w", err)
	}

	st, err := c.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	svc := ingest.NewService(st, c.cfg.DataDir, c.logger, ingest.NewMetrics())
	res, importErr := svc.Import(ctx, ingest.ImportInput{
		AthleteID: *athlete,
		FileName:  filepath.Base(*file),
		Content:   content,
	})
	if *metricsFile != "" {
		if err := svc.Metrics().WriteTextfile(*metricsFile); err != nil {
			c.logger.Error("failed to write metrics", slog.String("path", *metricsFile), slog.Any("error", err))
		}
	}
	if importErr != nil {
		return importErr
	}

	fmt.Fprintf(c.writer, "Imported workout %s (upload %s)\n\n", res.WorkoutID, res.UploadID)
	fmt.Fprintln(c.writer, ridestats.BuildTrainingNotes(res.Summary))
	return nil
}

func (c *CLI) Workouts(ctx context.Context, args []string) error {
	fs := c.newFlagSet("workouts")
	var (
		athlete = fs.Int64("athlete", c.cfg.AthleteID, "athlete id")
		limit   = fs.Int("limit", 20, "maximum number of workouts to list")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireAthlete(*athlete); err != nil {
		return err
	}

	st, err := c.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	workouts, err := st.ListWorkouts(ctx, *athlete, *limit)
	if err != nil {
		return err
	}
	if len(workouts) == 0 {
		fmt.Fprintln(c.writer, "no workouts imported yet")
		return nil
	}

	tw := tabwriter.NewWriter(c.writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tMOVING\tKM\tNP\tIF\tTSS")
	for _, w := range workouts {
		s := w.Summary
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\t%s\t%s\n",
			w.Date.Format("2006-01-02"),
			ridestats.FormatClock(s.MovingTime),
			s.DistanceKm,
			optional(s.NormalizedPowerW, "%.0f"),
			optional(s.IntensityFactor, "%.2f"),
			optional(s.TrainingStressScore, "%.1f"),
		)
	}
	return tw.Flush()
}

func optional(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}
