package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const activityColumns = `id, user_id, strava_id, start_date, type, name, distance_m,
	moving_time_s, elapsed_time_s, elevation_gain_m, average_hr, max_hr,
	average_cadence, average_speed, suffer_score, user_intent, raw_data,
	is_deleted, created_at, updated_at`

// UpsertActivity inserts the activity or, when a row with the same provider
// id exists, overwrites the canonical fields and re-attaches the raw
// payload. Returns the stored row and whether it was newly created.
// Idempotent: the same payload twice yields the same row.
func (s *Store) UpsertActivity(a *Activity) (*Activity, bool, error) {
	existing, err := s.GetActivityByStravaID(a.StravaID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	var raw any
	if len(a.RawData) > 0 {
		raw = string(a.RawData)
	}

	if existing != nil {
		_, err := s.db.Exec(
			`UPDATE activities SET
			   start_date = ?, type = ?, name = ?, distance_m = ?, moving_time_s = ?,
			   elapsed_time_s = ?, elevation_gain_m = ?, average_hr = ?, max_hr = ?,
			   average_cadence = ?, average_speed = ?, suffer_score = ?, raw_data = ?,
			   is_deleted = 0, updated_at = CURRENT_TIMESTAMP
			 WHERE id = ?`,
			a.StartDate.Format(time.RFC3339), a.Type, a.Name, a.DistanceM, a.MovingTimeS,
			a.ElapsedTimeS, a.ElevationGainM, a.AverageHR, a.MaxHR,
			a.AverageCadence, a.AverageSpeed, a.SufferScore, raw,
			existing.ID)
		if err != nil {
			return nil, false, fmt.Errorf("updating activity: %w", err)
		}
		updated, err := s.GetActivity(existing.ID)
		return updated, false, err
	}

	res, err := s.db.Exec(
		`INSERT INTO activities (user_id, strava_id, start_date, type, name, distance_m,
		   moving_time_s, elapsed_time_s, elevation_gain_m, average_hr, max_hr,
		   average_cadence, average_speed, suffer_score, raw_data)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.UserID, a.StravaID, a.StartDate.Format(time.RFC3339), a.Type, a.Name, a.DistanceM,
		a.MovingTimeS, a.ElapsedTimeS, a.ElevationGainM, a.AverageHR, a.MaxHR,
		a.AverageCadence, a.AverageSpeed, a.SufferScore, raw)
	if err != nil {
		return nil, false, fmt.Errorf("inserting activity: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, false, err
	}
	inserted, err := s.GetActivity(id)
	return inserted, true, err
}

// GetActivity returns an activity by internal id.
func (s *Store) GetActivity(id int64) (*Activity, error) {
	row := s.db.QueryRow(`SELECT `+activityColumns+` FROM activities WHERE id = ?`, id)
	return scanActivity(row)
}

// GetActivityByStravaID returns an activity by its provider id.
func (s *Store) GetActivityByStravaID(stravaID int64) (*Activity, error) {
	row := s.db.QueryRow(`SELECT `+activityColumns+` FROM activities WHERE strava_id = ?`, stravaID)
	return scanActivity(row)
}

// ListActivities returns a page of the user's non-deleted activities,
// newest first.
func (s *Store) ListActivities(userID string, skip, limit int) ([]Activity, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT `+activityColumns+` FROM activities
		 WHERE user_id = ? AND is_deleted = 0
		 ORDER BY start_date DESC, id DESC
		 LIMIT ? OFFSET ?`, userID, limit, skip)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectActivities(rows)
}

// RecentActivitiesBefore returns up to limit non-deleted activities that
// started strictly before the given time, newest first. Used for the
// classifier and load-spike history windows.
func (s *Store) RecentActivitiesBefore(userID string, before time.Time, limit int) ([]Activity, error) {
	rows, err := s.db.Query(
		`SELECT `+activityColumns+` FROM activities
		 WHERE user_id = ? AND is_deleted = 0 AND start_date < ?
		 ORDER BY start_date DESC, id DESC
		 LIMIT ?`, userID, before.Format(time.RFC3339), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectActivities(rows)
}

// SetUserIntent records or clears the intent override for an activity.
func (s *Store) SetUserIntent(activityID int64, intent *string) error {
	res, err := s.db.Exec(
		`UPDATE activities SET user_intent = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		intent, activityID)
	if err != nil {
		return fmt.Errorf("setting user intent: %w", err)
	}
	return requireRow(res)
}

// SoftDeleteByStravaID marks the activity deleted; the row and its
// dependents stay for processing but disappear from lists and trends.
func (s *Store) SoftDeleteByStravaID(stravaID int64) error {
	res, err := s.db.Exec(
		`UPDATE activities SET is_deleted = 1, updated_at = CURRENT_TIMESTAMP WHERE strava_id = ?`,
		stravaID)
	if err != nil {
		return fmt.Errorf("soft-deleting activity: %w", err)
	}
	return requireRow(res)
}

// UpdateActivityType overwrites the stored provider type. Used by the
// lazy-repair path when a stale label is detected on read.
func (s *Store) UpdateActivityType(activityID int64, activityType string) error {
	res, err := s.db.Exec(
		`UPDATE activities SET type = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		activityType, activityID)
	if err != nil {
		return fmt.Errorf("updating activity type: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanActivity(row rowScanner) (*Activity, error) {
	var a Activity
	var startDate, createdAt, updatedAt string
	var raw sql.NullString
	var isDeleted int64
	err := row.Scan(&a.ID, &a.UserID, &a.StravaID, &startDate, &a.Type, &a.Name, &a.DistanceM,
		&a.MovingTimeS, &a.ElapsedTimeS, &a.ElevationGainM, &a.AverageHR, &a.MaxHR,
		&a.AverageCadence, &a.AverageSpeed, &a.SufferScore, &a.UserIntent, &raw,
		&isDeleted, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	a.StartDate = parseTime(startDate)
	a.CreatedAt = parseTime(createdAt)
	a.UpdatedAt = parseTime(updatedAt)
	if raw.Valid {
		a.RawData = []byte(raw.String)
	}
	a.IsDeleted = isDeleted == 1
	return &a, nil
}

func collectActivities(rows *sql.Rows) ([]Activity, error) {
	var out []Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}
