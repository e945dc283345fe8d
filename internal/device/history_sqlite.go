package device

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// SQLiteStateHistory implements StateHistory using the state_history table.
type SQLiteStateHistory struct {
	db *sql.DB
}

// NewSQLiteStateHistory creates a transition repository on an open
// SQLite connection. The schema is owned by the migrations package.
func NewSQLiteStateHistory(db *sql.DB) *SQLiteStateHistory {
	return &SQLiteStateHistory{db: db}
}

// Record inserts one transition.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - tr: Transition to persist; ID and RecordedAt must be set
//
// Returns:
//   - error: nil on success, otherwise the underlying database error
func (r *SQLiteStateHistory) Record(ctx context.Context, tr Transition) error {
	if tr.ID == "" {
		return fmt.Errorf("transition id is required")
	}
	if _, ok := channelTable[tr.Channel]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownChannel, tr.Channel)
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO state_history (id, channel, value, source, recorded_at) VALUES (?, ?, ?, ?, ?)",
		tr.ID,
		string(tr.Channel),
		tr.Value,
		tr.Source,
		tr.RecordedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting transition: %w", err)
	}
	return nil
}

// List returns recent transitions, newest first.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - ch: Channel filter; empty returns all channels
//   - limit: Maximum entries (default 50, max 200)
//
// Returns:
//   - []Transition: Ordered by recorded_at DESC
//   - error: nil on success, otherwise the underlying query error
func (r *SQLiteStateHistory) List(ctx context.Context, ch Channel, limit int) ([]Transition, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	query := `SELECT id, channel, value, source, recorded_at
		 FROM state_history`
	args := []any{}
	if ch != "" {
		if _, ok := channelTable[ch]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, ch)
		}
		query += " WHERE channel = ?"
		args = append(args, string(ch))
	}
	query += " ORDER BY recorded_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying transitions: %w", err)
	}
	defer rows.Close()

	transitions := make([]Transition, 0, limit)
	for rows.Next() {
		var tr Transition
		var channel, recordedAt string
		if err := rows.Scan(&tr.ID, &channel, &tr.Value, &tr.Source, &recordedAt); err != nil {
			return nil, fmt.Errorf("scanning transition: %w", err)
		}
		tr.Channel = Channel(channel)
		tr.RecordedAt, _ = time.Parse(time.RFC3339Nano, recordedAt)
		transitions = append(transitions, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transitions: %w", err)
	}
	return transitions, nil
}
