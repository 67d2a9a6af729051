package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	ridestats "github.com/lucasjlepore/ridestats"
)

// SetThresholdPower stores the FTP of an athlete, replacing any earlier value.
func (s *Store) SetThresholdPower(ctx context.Context, athleteID int64, ftp float64) error {
	if err := ridestats.ValidateThreshold(ftp); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO athlete_profiles (id, ftp_w, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET ftp_w = excluded.ftp_w, updated_at = excluded.updated_at`,
		athleteID, ftp, formatTime(time.Now()),
	)
	return err
}

// ThresholdPower returns the FTP of an athlete, or ErrNotFound when the
// athlete has no profile.
func (s *Store) ThresholdPower(ctx context.Context, athleteID int64) (float64, error) {
	var ftp float64
	err := s.db.QueryRowContext(ctx, "SELECT ftp_w FROM athlete_profiles WHERE id = ?", athleteID).Scan(&ftp)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return ftp, nil
}
