// Package ingest stores uploaded activity files, analyzes them and persists
// the resulting workout summaries.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	ridestats "github.com/lucasjlepore/ridestats"
	"github.com/lucasjlepore/ridestats/store"
)

var (
	// ErrInvalidFileType is returned for uploads that are neither CSV nor FIT.
	ErrInvalidFileType = errors.New("only .csv and .fit activity files can be imported")
	// ErrDuplicateUpload is returned when a file with the same content was already imported.
	ErrDuplicateUpload = errors.New("a file with the same content was already imported")
)

var allowedContentTypes = map[string]map[string]bool{
	".csv": {"": true, "text/csv": true, "application/csv": true},
	".fit": {"": true, "application/octet-stream": true, "application/vnd.ant.fit": true},
}

// Repository is the persistence the import flow needs.
type Repository interface {
	ThresholdPower(ctx context.Context, athleteID int64) (float64, error)
	UploadByHash(ctx context.Context, sha256 string) (*store.Upload, error)
	SaveImport(ctx context.Context, up store.Upload, w store.Workout) error
}

// ImportInput is one uploaded activity file.
type ImportInput struct {
	AthleteID   int64
	FileName    string
	ContentType string
	Content     []byte
	// Date of the workout; the upload day (UTC) when zero.
	Date time.Time
}

// ImportResult describes a stored import.
type ImportResult struct {
	UploadID   string
	WorkoutID  string
	SHA256     string
	StoredPath string
	Summary    ridestats.WorkoutSummary
}

// Service runs the import flow.
type Service struct {
	repo    Repository
	dataDir string
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time
}

// NewService builds a Service storing files under <dataDir>/uploads.
func NewService(repo Repository, dataDir string, logger *slog.Logger, metrics *Metrics) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Service{
		repo:    repo,
		dataDir: dataDir,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// Metrics returns the service metrics.
func (s *Service) Metrics() *Metrics {
	return s.metrics
}

// ValidateFileType accepts .csv and .fit files with a matching (or empty)
// content type.
func ValidateFileType(fileName, contentType string) error {
	ext := strings.ToLower(filepath.Ext(fileName))
	allowed, ok := allowedContentTypes[ext]
	if !ok {
		return ErrInvalidFileType
	}
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if !allowed[ct] {
		return ErrInvalidFileType
	}
	return nil
}

// Import validates, stores, analyzes and persists one activity file. Nothing
// is persisted and the stored file is removed when any step fails.
func (s *Service) Import(ctx context.Context, in ImportInput) (res *ImportResult, err error) {
	started := s.now()
	result := resultFailed
	defer func() {
		s.metrics.record(result, started)
	}()

	logger := s.logger.With(slog.String("file", in.FileName), slog.Int64("athlete_id", in.AthleteID))

	if err := ValidateFileType(in.FileName, in.ContentType); err != nil {
		result = resultRejected
		logger.Warn("rejected upload", slog.String("content_type", in.ContentType))
		return nil, err
	}
	if len(in.Content) == 0 {
		result = resultRejected
		return nil, fmt.Errorf("%s: empty file", in.FileName)
	}

	sum := sha256.Sum256(in.Content)
	hash := hex.EncodeToString(sum[:])

	switch _, err := s.repo.UploadByHash(ctx, hash); {
	case err == nil:
		result = resultDuplicate
		logger.Info("duplicate upload", slog.String("sha256", hash))
		return nil, ErrDuplicateUpload
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("look up upload: %w", err)
	}

	uploadedAt := s.now().UTC()
	path, err := s.saveFile(hash, filepath.Ext(in.FileName), in.Content, uploadedAt)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				logger.Error("failed to remove stored file", slog.String("path", path), slog.Any("error", rmErr))
			}
		}
	}()

	ftp, err := s.repo.ThresholdPower(ctx, in.AthleteID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &ridestats.ConfigurationError{Field: "threshold power", Reason: "no threshold power on the athlete profile"}
	}
	if err != nil {
		return nil, fmt.Errorf("load threshold power: %w", err)
	}

	analysis, err := ridestats.AnalyzeBytes(in.FileName, in.Content, ftp)
	if err != nil {
		logger.Warn("analysis failed", slog.Any("error", err))
		return nil, err
	}

	date := in.Date
	if date.IsZero() {
		date = uploadedAt
	}
	up := store.Upload{
		ID:           uuid.NewString(),
		OriginalName: in.FileName,
		SHA256:       hash,
		StoredPath:   path,
		UploadedAt:   uploadedAt,
	}
	w := store.Workout{
		ID:        uuid.NewString(),
		UploadID:  up.ID,
		AthleteID: in.AthleteID,
		Date:      date.UTC(),
		Sport:     "cycling",
		Summary:   analysis.Summary,
		CreatedAt: uploadedAt,
	}
	if err = s.repo.SaveImport(ctx, up, w); err != nil {
		return nil, fmt.Errorf("save import: %w", err)
	}

	result = resultImported
	logger.Info("imported workout",
		slog.String("workout_id", w.ID),
		slog.Int("samples", analysis.Summary.SampleCount),
		slog.Duration("moving_time", analysis.Summary.MovingTime),
	)
	return &ImportResult{
		UploadID:   up.ID,
		WorkoutID:  w.ID,
		SHA256:     hash,
		StoredPath: path,
		Summary:    analysis.Summary,
	}, nil
}

func (s *Service) saveFile(hash, ext string, content []byte, at time.Time) (string, error) {
	dir := filepath.Join(s.dataDir, "uploads")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}

	name := fmt.Sprintf("%s_%s%s", hash, at.Format("20060102T150405Z"), strings.ToLower(ext))
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		return "", ErrDuplicateUpload
	}
	if err != nil {
		return "", fmt.Errorf("store upload: %w", err)
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("store upload: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("store upload: %w", err)
	}
	return path, nil
}
