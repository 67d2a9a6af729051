package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	ridestats "github.com/lucasjlepore/ridestats"
)

const dateLayout = "2006-01-02"

// Upload is one stored activity file.
type Upload struct {
	ID           string
	OriginalName string
	SHA256       string
	StoredPath   string
	UploadedAt   time.Time
}

// Workout is a persisted workout summary keyed to the upload it came from.
type Workout struct {
	ID        string
	UploadID  string
	AthleteID int64
	Date      time.Time
	Sport     string
	Summary   ridestats.WorkoutSummary
	CreatedAt time.Time
}

// UploadByHash returns the upload with the given content hash, or ErrNotFound.
func (s *Store) UploadByHash(ctx context.Context, sha256 string) (*Upload, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, original_name, sha256, stored_path, uploaded_at
		FROM uploaded_files WHERE sha256 = ?`, sha256)
	up, err := scanUpload(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return up, err
}

// RecentUploads returns the most recent uploads, newest first.
func (s *Store) RecentUploads(ctx context.Context, limit int) ([]Upload, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, original_name, sha256, stored_path, uploaded_at
		FROM uploaded_files ORDER BY uploaded_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Upload
	for rows.Next() {
		up, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *up)
	}
	return out, rows.Err()
}

// SaveImport stores an upload and its workout in one transaction. Either both
// rows are written or neither is.
func (s *Store) SaveImport(ctx context.Context, up Upload, w Workout) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO uploaded_files (id, original_name, sha256, stored_path, uploaded_at)
		VALUES (?, ?, ?, ?, ?)`,
		up.ID, up.OriginalName, up.SHA256, up.StoredPath, formatTime(up.UploadedAt),
	); err != nil {
		return fmt.Errorf("insert upload: %w", err)
	}

	sum := w.Summary
	sport := w.Sport
	if sport == "" {
		sport = "cycling"
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO workouts (
			id, upload_id, athlete_id, workout_date, sport, sample_count,
			duration_s, moving_time_s, distance_km, distance_traveled_km, ftp_w,
			avg_power_w, normalized_power_w, intensity_factor, training_stress_score,
			avg_cadence_rpm, avg_heart_rate_bpm, max_heart_rate_bpm,
			avg_speed_kmh, avg_moving_speed_kmh, calories, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, up.ID, w.AthleteID, w.Date.Format(dateLayout), sport, sum.SampleCount,
		sum.Duration.Seconds(), sum.MovingTime.Seconds(), sum.DistanceKm, sum.TraveledKm, sum.ThresholdPowerW,
		nullFloat(sum.AvgPowerW), nullFloat(sum.NormalizedPowerW), nullFloat(sum.IntensityFactor), nullFloat(sum.TrainingStressScore),
		nullFloat(sum.AvgCadenceRPM), nullFloat(sum.AvgHeartRateBPM), nullFloat(sum.MaxHeartRateBPM),
		nullFloat(sum.AvgSpeedKmh), nullFloat(sum.AvgMovingSpeedKmh), nullInt(sum.Calories), formatTime(w.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert workout: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected != 1 {
		return fmt.Errorf("expected 1 row to be affected, got %d", affected)
	}

	return tx.Commit()
}

// ListWorkouts returns an athlete's workouts, most recent first.
func (s *Store) ListWorkouts(ctx context.Context, athleteID int64, limit int) ([]Workout, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, upload_id, athlete_id, workout_date, sport, sample_count,
			duration_s, moving_time_s, distance_km, distance_traveled_km, ftp_w,
			avg_power_w, normalized_power_w, intensity_factor, training_stress_score,
			avg_cadence_rpm, avg_heart_rate_bpm, max_heart_rate_bpm,
			avg_speed_kmh, avg_moving_speed_kmh, calories, created_at
		FROM workouts
		WHERE athlete_id = ?
		ORDER BY workout_date DESC, created_at DESC
		LIMIT ?`, athleteID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Workout
	for rows.Next() {
		w, err := scanWorkout(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUpload(row scanner) (*Upload, error) {
	var (
		up         Upload
		uploadedAt string
	)
	if err := row.Scan(&up.ID, &up.OriginalName, &up.SHA256, &up.StoredPath, &uploadedAt); err != nil {
		return nil, err
	}
	t, err := parseTime(uploadedAt)
	if err != nil {
		return nil, fmt.Errorf("parse uploaded_at: %w", err)
	}
	up.UploadedAt = t
	return &up, nil
}

func scanWorkout(row scanner) (Workout, error) {
	var (
		w                      Workout
		date, createdAt        string
		durationS, movingS     float64
		avgPower, np, ifv, tss sql.NullFloat64
		cadence, avgHR, maxHR  sql.NullFloat64
		avgSpeed, movingSpeed  sql.NullFloat64
		calories               sql.NullInt64
	)
	err := row.Scan(
		&w.ID, &w.UploadID, &w.AthleteID, &date, &w.Sport, &w.Summary.SampleCount,
		&durationS, &movingS, &w.Summary.DistanceKm, &w.Summary.TraveledKm, &w.Summary.ThresholdPowerW,
		&avgPower, &np, &ifv, &tss,
		&cadence, &avgHR, &maxHR,
		&avgSpeed, &movingSpeed, &calories, &createdAt,
	)
	if err != nil {
		return Workout{}, err
	}

	if w.Date, err = time.Parse(dateLayout, date); err != nil {
		return Workout{}, fmt.Errorf("parse workout_date: %w", err)
	}
	if w.CreatedAt, err = parseTime(createdAt); err != nil {
		return Workout{}, fmt.Errorf("parse created_at: %w", err)
	}

	w.Summary.Duration = time.Duration(durationS * float64(time.Second))
	w.Summary.MovingTime = time.Duration(movingS * float64(time.Second))
	w.Summary.AvgPowerW = floatOrNil(avgPower)
	w.Summary.NormalizedPowerW = floatOrNil(np)
	w.Summary.IntensityFactor = floatOrNil(ifv)
	w.Summary.TrainingStressScore = floatOrNil(tss)
	w.Summary.AvgCadenceRPM = floatOrNil(cadence)
	w.Summary.AvgHeartRateBPM = floatOrNil(avgHR)
	w.Summary.MaxHeartRateBPM = floatOrNil(maxHR)
	w.Summary.AvgSpeedKmh = floatOrNil(avgSpeed)
	w.Summary.AvgMovingSpeedKmh = floatOrNil(movingSpeed)
	if calories.Valid {
		c := int(calories.Int64)
		w.Summary.Calories = &c
	}
	return w, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func floatOrNil(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	out := v.Float64
	return &out
}
