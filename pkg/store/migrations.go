package store

import "database/sql"

// migrate runs all schema migrations
func migrate(db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		// One linked provider account per user in the MVP
		`CREATE TABLE IF NOT EXISTS strava_accounts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			athlete_id INTEGER NOT NULL UNIQUE,
			access_token TEXT NOT NULL,
			refresh_token TEXT NOT NULL,
			expires_at INTEGER NOT NULL,
			scope TEXT,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS user_profiles (
			user_id TEXT PRIMARY KEY,
			goal_type TEXT NOT NULL,
			target_date TEXT,
			experience_level TEXT NOT NULL,
			days_per_week INTEGER NOT NULL,
			current_weekly_km REAL,
			max_hr INTEGER,
			max_hr_source TEXT,
			injury_notes TEXT,
			upcoming_races TEXT,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS activities (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			strava_id INTEGER NOT NULL UNIQUE,
			start_date TEXT NOT NULL,
			type TEXT NOT NULL,
			name TEXT NOT NULL,
			distance_m INTEGER NOT NULL DEFAULT 0,
			moving_time_s INTEGER NOT NULL DEFAULT 0,
			elapsed_time_s INTEGER NOT NULL DEFAULT 0,
			elevation_gain_m REAL NOT NULL DEFAULT 0,
			average_hr REAL,
			max_hr REAL,
			average_cadence REAL,
			average_speed REAL,
			suffer_score REAL,
			user_intent TEXT,
			raw_data TEXT,
			is_deleted INTEGER NOT NULL DEFAULT 0,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,

		`CREATE INDEX IF NOT EXISTS idx_activities_user_start ON activities(user_id, start_date)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_strava_id ON activities(strava_id)`,

		// One row per channel; data is the raw JSON sample array.
		// Replaced wholesale on refetch, never partially mutated.
		`CREATE TABLE IF NOT EXISTS activity_streams (
			activity_id INTEGER NOT NULL,
			channel TEXT NOT NULL,
			data TEXT NOT NULL,
			PRIMARY KEY (activity_id, channel),
			FOREIGN KEY (activity_id) REFERENCES activities(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS derived_metrics (
			activity_id INTEGER PRIMARY KEY,
			activity_class TEXT,
			effort_score REAL NOT NULL,
			pace_variability REAL,
			hr_drift REAL,
			time_in_zones TEXT,
			stops_analysis TEXT,
			efficiency_analysis TEXT,
			interval_structure TEXT,
			workout_match TEXT,
			interval_kpis TEXT,
			flags TEXT,
			risk_level TEXT,
			risk_score INTEGER,
			risk_reasons TEXT,
			confidence TEXT,
			confidence_reasons TEXT,
			computed_at TEXT DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (activity_id) REFERENCES activities(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS check_ins (
			activity_id INTEGER PRIMARY KEY,
			rpe INTEGER,
			pain_score INTEGER,
			pain_location TEXT,
			sleep_quality INTEGER,
			notes TEXT,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (activity_id) REFERENCES activities(id) ON DELETE CASCADE
		)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}

	return nil
}
