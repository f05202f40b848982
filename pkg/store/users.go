package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FirstUser returns the earliest-created user, or ErrNotFound when the
// database is empty. The MVP is single-user; web reads resolve to this row.
func (s *Store) FirstUser() (*User, error) {
	row := s.db.QueryRow(`SELECT id, email, created_at FROM users ORDER BY created_at, id LIMIT 1`)
	return scanUser(row)
}

// GetUser returns the user with the given id.
func (s *Store) GetUser(id string) (*User, error) {
	row := s.db.QueryRow(`SELECT id, email, created_at FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// CreateUser inserts a new user with a fresh UUID.
func (s *Store) CreateUser(email *string) (*User, error) {
	u := &User{ID: uuid.NewString(), Email: email, CreatedAt: time.Now().UTC()}
	_, err := s.db.Exec(
		`INSERT INTO users (id, email, created_at) VALUES (?, ?, ?)`,
		u.ID, u.Email, u.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting user: %w", err)
	}
	return u, nil
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	var createdAt string
	if err := row.Scan(&u.ID, &u.Email, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.CreatedAt = parseTime(createdAt)
	return &u, nil
}

// GetAccountByAthleteID returns the linked account for a provider athlete.
func (s *Store) GetAccountByAthleteID(athleteID int64) (*StravaAccount, error) {
	row := s.db.QueryRow(
		`SELECT id, user_id, athlete_id, access_token, refresh_token, expires_at, COALESCE(scope, '')
		 FROM strava_accounts WHERE athlete_id = ?`, athleteID)
	return scanAccount(row)
}

// GetAccountByUserID returns the linked account owned by a user.
func (s *Store) GetAccountByUserID(userID string) (*StravaAccount, error) {
	row := s.db.QueryRow(
		`SELECT id, user_id, athlete_id, access_token, refresh_token, expires_at, COALESCE(scope, '')
		 FROM strava_accounts WHERE user_id = ?`, userID)
	return scanAccount(row)
}

func scanAccount(row *sql.Row) (*StravaAccount, error) {
	var a StravaAccount
	if err := row.Scan(&a.ID, &a.UserID, &a.AthleteID, &a.AccessToken, &a.RefreshToken, &a.ExpiresAt, &a.Scope); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoAccount
		}
		return nil, err
	}
	return &a, nil
}

// LinkAccount creates or re-links the provider account identified by
// athleteID, creating the owning user implicitly on first linkage.
func (s *Store) LinkAccount(athleteID int64, accessToken, refreshToken string, expiresAt int64, scope string) (*StravaAccount, error) {
	existing, err := s.GetAccountByAthleteID(athleteID)
	if err != nil && !errors.Is(err, ErrNoAccount) {
		return nil, err
	}

	if existing != nil {
		_, err := s.db.Exec(
			`UPDATE strava_accounts
			 SET access_token = ?, refresh_token = ?, expires_at = ?, scope = ?, updated_at = CURRENT_TIMESTAMP
			 WHERE id = ?`,
			accessToken, refreshToken, expiresAt, scope, existing.ID)
		if err != nil {
			return nil, fmt.Errorf("relinking account: %w", err)
		}
		return s.GetAccountByAthleteID(athleteID)
	}

	user, err := s.CreateUser(nil)
	if err != nil {
		return nil, err
	}
	_, err = s.db.Exec(
		`INSERT INTO strava_accounts (user_id, athlete_id, access_token, refresh_token, expires_at, scope)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID, athleteID, accessToken, refreshToken, expiresAt, scope)
	if err != nil {
		return nil, fmt.Errorf("linking account: %w", err)
	}
	return s.GetAccountByAthleteID(athleteID)
}

// UpdateAccountTokens atomically overwrites the credential triple for one
// account. Runs in a transaction so two workers refreshing the same stale
// token serialize; the second one observes the updated row.
func (s *Store) UpdateAccountTokens(accountID int64, accessToken, refreshToken string, expiresAt int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`UPDATE strava_accounts
		 SET access_token = ?, refresh_token = ?, expires_at = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		accessToken, refreshToken, expiresAt, accountID)
	if err != nil {
		return fmt.Errorf("updating tokens: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoAccount
	}
	return tx.Commit()
}

// GetProfile returns the user's profile, or ErrNotFound.
func (s *Store) GetProfile(userID string) (*UserProfile, error) {
	row := s.db.QueryRow(
		`SELECT user_id, goal_type, target_date, experience_level, days_per_week,
		        current_weekly_km, max_hr, max_hr_source, injury_notes, upcoming_races
		 FROM user_profiles WHERE user_id = ?`, userID)

	var p UserProfile
	var races sql.NullString
	err := row.Scan(&p.UserID, &p.GoalType, &p.TargetDate, &p.ExperienceLevel, &p.DaysPerWeek,
		&p.CurrentWeeklyKM, &p.MaxHR, &p.MaxHRSource, &p.InjuryNotes, &races)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if races.Valid {
		p.UpcomingRaces = []byte(races.String)
	}
	return &p, nil
}

// EnsureProfile returns the user's profile, creating the default one on
// first read.
func (s *Store) EnsureProfile(userID string) (*UserProfile, error) {
	p, err := s.GetProfile(userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	def := &UserProfile{
		UserID:          userID,
		GoalType:        "general",
		ExperienceLevel: "intermediate",
		DaysPerWeek:     4,
		CurrentWeeklyKM: ptrFloat(20),
		MaxHR:           ptrInt(190),
	}
	if err := s.UpsertProfile(def); err != nil {
		return nil, err
	}
	return def, nil
}

// UpsertProfile inserts or replaces the user's profile.
func (s *Store) UpsertProfile(p *UserProfile) error {
	var races any
	if len(p.UpcomingRaces) > 0 {
		races = string(p.UpcomingRaces)
	}
	_, err := s.db.Exec(
		`INSERT INTO user_profiles (user_id, goal_type, target_date, experience_level, days_per_week,
		                            current_weekly_km, max_hr, max_hr_source, injury_notes, upcoming_races, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(user_id) DO UPDATE SET
		   goal_type = excluded.goal_type,
		   target_date = excluded.target_date,
		   experience_level = excluded.experience_level,
		   days_per_week = excluded.days_per_week,
		   current_weekly_km = excluded.current_weekly_km,
		   max_hr = excluded.max_hr,
		   max_hr_source = excluded.max_hr_source,
		   injury_notes = excluded.injury_notes,
		   upcoming_races = excluded.upcoming_races,
		   updated_at = CURRENT_TIMESTAMP`,
		p.UserID, p.GoalType, p.TargetDate, p.ExperienceLevel, p.DaysPerWeek,
		p.CurrentWeeklyKM, p.MaxHR, p.MaxHRSource, p.InjuryNotes, races)
	if err != nil {
		return fmt.Errorf("upserting profile: %w", err)
	}
	return nil
}

func parseTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func ptrFloat(f float64) *float64 { return &f }
func ptrInt(i int) *int           { return &i }
