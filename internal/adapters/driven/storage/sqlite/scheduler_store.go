package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/custodia-labs/hrwatch/internal/core/domain"
	"github.com/custodia-labs/hrwatch/internal/core/ports/driven"
)

// pollStateStore implements driven.PollStateStore.
type pollStateStore struct {
	store *Store
}

var _ driven.PollStateStore = (*pollStateStore)(nil)

const pollStateColumns = `user_id, last_fetch_at, last_status, consecutive_failures, last_error, suspension, suspended_at`

// GetPollState retrieves a user's poll state.
// Returns nil and no error if the user has never been polled.
func (s *pollStateStore) GetPollState(ctx context.Context, userID string) (*domain.PollState, error) {
	row := s.store.db.QueryRowContext(ctx,
		`SELECT `+pollStateColumns+` FROM poll_states WHERE user_id = ?`, userID)

	state, err := scanPollState(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return state, nil
}

// ListPollStates returns all poll states.
func (s *pollStateStore) ListPollStates(ctx context.Context) ([]domain.PollState, error) {
	rows, err := s.store.db.QueryContext(ctx,
		`SELECT `+pollStateColumns+` FROM poll_states ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("querying poll states: %w", err)
	}
	defer rows.Close()

	var states []domain.PollState //nolint:prealloc // size unknown from query
	for rows.Next() {
		state, err := scanPollState(rows.Scan)
		if err != nil {
			return nil, err
		}
		states = append(states, *state)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating poll states: %w", err)
	}

	return states, nil
}

// SavePollState persists a user's poll state.
func (s *pollStateStore) SavePollState(ctx context.Context, state *domain.PollState) error {
	if state == nil || state.UserID == "" {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO poll_states (`+pollStateColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			last_fetch_at = excluded.last_fetch_at,
			last_status = excluded.last_status,
			consecutive_failures = excluded.consecutive_failures,
			last_error = excluded.last_error,
			suspension = excluded.suspension,
			suspended_at = excluded.suspended_at
	`, state.UserID,
		formatNullableTime(state.LastFetchAt),
		nullString(string(state.LastStatus)),
		state.ConsecutiveFailures,
		nullString(state.LastError),
		nullString(string(state.Suspension)),
		formatNullableTime(state.SuspendedAt))

	if err != nil {
		return fmt.Errorf("saving poll state: %w", err)
	}
	return nil
}

// DeletePollState removes a user's poll state and history.
func (s *pollStateStore) DeletePollState(ctx context.Context, userID string) error {
	return withTx(ctx, s.store.db, func(ctx context.Context, tx dbtx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM poll_states WHERE user_id = ?", userID); err != nil {
			return fmt.Errorf("deleting poll state: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM poll_history WHERE user_id = ?", userID); err != nil {
			return fmt.Errorf("deleting poll history: %w", err)
		}
		return nil
	})
}

// RecordPoll logs a completed cycle.
func (s *pollStateStore) RecordPoll(ctx context.Context, rec *domain.PollRecord) error {
	if rec == nil || rec.UserID == "" {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO poll_history (user_id, started_at, ended_at, status, error, samples_stored, anomalies)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.UserID,
		formatTime(rec.StartedAt),
		formatTime(rec.EndedAt),
		string(rec.Status),
		nullString(rec.Error),
		rec.SamplesStored,
		rec.Anomalies)

	if err != nil {
		return fmt.Errorf("recording poll: %w", err)
	}
	return nil
}

// GetPollHistory returns recent cycles for a user, most recent first.
func (s *pollStateStore) GetPollHistory(ctx context.Context, userID string, limit int) ([]domain.PollRecord, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT user_id, started_at, ended_at, status, error, samples_stored, anomalies
		FROM poll_history
		WHERE user_id = ?
		ORDER BY id DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying poll history: %w", err)
	}
	defer rows.Close()

	var records []domain.PollRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		var rec domain.PollRecord
		var startedAt, endedAt, status string
		var errMsg sql.NullString

		if err := rows.Scan(&rec.UserID, &startedAt, &endedAt, &status,
			&errMsg, &rec.SamplesStored, &rec.Anomalies); err != nil {
			return nil, fmt.Errorf("scanning poll record: %w", err)
		}
		rec.StartedAt = parseTime(startedAt)
		rec.EndedAt = parseTime(endedAt)
		rec.Status = domain.PollStatus(status)
		rec.Error = errMsg.String
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating poll history: %w", err)
	}

	return records, nil
}

// PruneHistory keeps the most recent 'keep' records per user.
func (s *pollStateStore) PruneHistory(ctx context.Context, keep int) error {
	_, err := s.store.db.ExecContext(ctx, `
		DELETE FROM poll_history
		WHERE id NOT IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (PARTITION BY user_id ORDER BY id DESC) AS rn
				FROM poll_history
			) WHERE rn <= ?
		)
	`, keep)
	if err != nil {
		return fmt.Errorf("pruning poll history: %w", err)
	}
	return nil
}

func scanPollState(scan func(dest ...any) error) (*domain.PollState, error) {
	var state domain.PollState
	var lastFetch, lastStatus, lastError, suspension, suspendedAt sql.NullString

	if err := scan(&state.UserID, &lastFetch, &lastStatus, &state.ConsecutiveFailures,
		&lastError, &suspension, &suspendedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning poll state: %w", err)
	}

	state.LastFetchAt = parseNullableTime(lastFetch)
	state.LastStatus = domain.PollStatus(lastStatus.String)
	state.LastError = lastError.String
	state.Suspension = domain.Suspension(suspension.String)
	state.SuspendedAt = parseNullableTime(suspendedAt)
	return &state, nil
}
