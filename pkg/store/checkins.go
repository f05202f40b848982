package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// UpsertCheckIn inserts or replaces the subjective report for an activity.
func (s *Store) UpsertCheckIn(c *CheckIn) error {
	_, err := s.db.Exec(
		`INSERT INTO check_ins (activity_id, rpe, pain_score, pain_location, sleep_quality, notes, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(activity_id) DO UPDATE SET
		   rpe = excluded.rpe,
		   pain_score = excluded.pain_score,
		   pain_location = excluded.pain_location,
		   sleep_quality = excluded.sleep_quality,
		   notes = excluded.notes,
		   updated_at = CURRENT_TIMESTAMP`,
		c.ActivityID, c.RPE, c.PainScore, c.PainLocation, c.SleepQuality, c.Notes)
	if err != nil {
		return fmt.Errorf("upserting check-in: %w", err)
	}
	return nil
}

// GetCheckIn returns the check-in for an activity, or ErrNotFound.
func (s *Store) GetCheckIn(activityID int64) (*CheckIn, error) {
	row := s.db.QueryRow(
		`SELECT activity_id, rpe, pain_score, pain_location, sleep_quality, notes
		 FROM check_ins WHERE activity_id = ?`, activityID)

	var c CheckIn
	err := row.Scan(&c.ActivityID, &c.RPE, &c.PainScore, &c.PainLocation, &c.SleepQuality, &c.Notes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}
