package store

import (
	"encoding/json"
	"fmt"

	"github.com/philippe-ths/ai-running-coach/pkg/types"
)

// ReplaceStreams deletes every stored channel for the activity and inserts
// the given set inside one transaction. Streams are never partially
// mutated; a refetch replaces them wholesale.
func (s *Store) ReplaceStreams(activityID int64, channels map[string]json.RawMessage) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM activity_streams WHERE activity_id = ?`, activityID); err != nil {
		return fmt.Errorf("deleting existing streams: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO activity_streams (activity_id, channel, data) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for channel, data := range channels {
		if len(data) == 0 {
			continue
		}
		if _, err := stmt.Exec(activityID, channel, string(data)); err != nil {
			return fmt.Errorf("inserting %s stream: %w", channel, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetRawStreams returns the stored channel documents for an activity.
// Missing channels are simply absent from the map.
func (s *Store) GetRawStreams(activityID int64) (map[string]json.RawMessage, error) {
	rows, err := s.db.Query(
		`SELECT channel, data FROM activity_streams WHERE activity_id = ?`, activityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]json.RawMessage)
	for rows.Next() {
		var channel, data string
		if err := rows.Scan(&channel, &data); err != nil {
			return nil, err
		}
		out[channel] = json.RawMessage(data)
	}
	return out, rows.Err()
}

// GetStreams returns the decoded sample arrays for an activity.
func (s *Store) GetStreams(activityID int64) (*types.Streams, error) {
	raw, err := s.GetRawStreams(activityID)
	if err != nil {
		return nil, err
	}
	return types.DecodeStreams(raw), nil
}

// HasStreams reports whether any channel is stored for the activity.
func (s *Store) HasStreams(activityID int64) (bool, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM activity_streams WHERE activity_id = ?`, activityID).Scan(&n)
	return n > 0, err
}
