package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/custodia-labs/hrwatch/internal/core/domain"
	"github.com/custodia-labs/hrwatch/internal/core/ports/driven"
)

// defaultPageSize is the number of rows Range reads per query.
const defaultPageSize = 500

// sampleStore implements driven.SampleStore and driven.BaselineStore.
type sampleStore struct {
	store    *Store
	pageSize int
}

var (
	_ driven.SampleStore   = (*sampleStore)(nil)
	_ driven.BaselineStore = (*sampleStore)(nil)
)

const sampleColumns = `user_id, observed_at, bpm, source, fetched_at, baseline_bpm, anomalous`

const insertSample = `
	INSERT INTO samples (` + sampleColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id, observed_at) DO NOTHING`

const upsertBaseline = `
	INSERT INTO baselines (user_id, bpm, samples, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		bpm = excluded.bpm,
		samples = excluded.samples,
		updated_at = excluded.updated_at`

// Append stores a sample, ignoring duplicates.
func (s *sampleStore) Append(ctx context.Context, sample domain.Sample) (bool, error) {
	return appendSample(ctx, s.store.db, sample)
}

// AppendEvaluated stores a sample and its resulting baseline atomically.
func (s *sampleStore) AppendEvaluated(ctx context.Context, sample domain.Sample, next domain.Baseline) (bool, error) {
	var inserted bool
	err := withTx(ctx, s.store.db, func(ctx context.Context, tx dbtx) error {
		ok, err := appendSample(ctx, tx, sample)
		if err != nil || !ok {
			return err
		}
		if err := putBaseline(ctx, tx, next); err != nil {
			return err
		}
		inserted = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return inserted, nil
}

func appendSample(ctx context.Context, db dbtx, sample domain.Sample) (bool, error) {
	if err := sample.Validate(); err != nil {
		return false, err
	}

	res, err := db.ExecContext(ctx, insertSample,
		sample.UserID,
		unixNano(sample.ObservedAt),
		sample.BPM,
		nullString(sample.Source),
		unixNano(sample.FetchedAt),
		nullFloat(sample.BaselineBPM),
		boolToInt(sample.Anomalous))
	if err != nil {
		return false, fmt.Errorf("inserting sample: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("inserting sample: %w", err)
	}
	return n > 0, nil
}

// Last returns the newest sample for a user, or nil.
func (s *sampleStore) Last(ctx context.Context, userID string) (*domain.Sample, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+sampleColumns+` FROM samples
		WHERE user_id = ?
		ORDER BY observed_at DESC
		LIMIT 1
	`, userID)

	sample, err := scanSample(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sample, nil
}

// Range yields samples in [from, to) in ascending order, one page at a time.
func (s *sampleStore) Range(ctx context.Context, userID string, from, to time.Time) iter.Seq2[domain.Sample, error] {
	return func(yield func(domain.Sample, error) bool) {
		cursor := unixNano(from)
		end := unixNano(to)
		inclusive := true

		for {
			page, err := s.page(ctx, userID, cursor, inclusive, end)
			if err != nil {
				yield(domain.Sample{}, err)
				return
			}
			for _, sample := range page {
				if !yield(sample, nil) {
					return
				}
			}
			if len(page) < s.pageSize {
				return
			}
			cursor = unixNano(page[len(page)-1].ObservedAt)
			inclusive = false
		}
	}
}

func (s *sampleStore) page(ctx context.Context, userID string, cursor int64, inclusive bool, end int64) ([]domain.Sample, error) {
	op := ">"
	if inclusive {
		op = ">="
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+sampleColumns+` FROM samples
		WHERE user_id = ? AND observed_at `+op+` ? AND observed_at < ?
		ORDER BY observed_at ASC
		LIMIT ?
	`, userID, cursor, end, s.pageSize)
	if err != nil {
		return nil, fmt.Errorf("querying samples: %w", err)
	}
	defer rows.Close()

	page := make([]domain.Sample, 0, s.pageSize)
	for rows.Next() {
		sample, err := scanSample(rows.Scan)
		if err != nil {
			return nil, err
		}
		page = append(page, *sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating samples: %w", err)
	}
	return page, nil
}

// Prune deletes samples observed before the cutoff.
func (s *sampleStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.store.db.ExecContext(ctx,
		"DELETE FROM samples WHERE observed_at < ?", unixNano(before))
	if err != nil {
		return 0, fmt.Errorf("pruning samples: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pruning samples: %w", err)
	}
	return n, nil
}

// GetBaseline returns a user's baseline, or nil.
func (s *sampleStore) GetBaseline(ctx context.Context, userID string) (*domain.Baseline, error) {
	var b domain.Baseline
	var updatedAt string

	err := s.store.db.QueryRowContext(ctx,
		"SELECT user_id, bpm, samples, updated_at FROM baselines WHERE user_id = ?", userID).
		Scan(&b.UserID, &b.BPM, &b.Samples, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying baseline: %w", err)
	}
	b.UpdatedAt = parseTime(updatedAt)
	return &b, nil
}

// PutBaseline creates or replaces a baseline.
func (s *sampleStore) PutBaseline(ctx context.Context, b domain.Baseline) error {
	return putBaseline(ctx, s.store.db, b)
}

func putBaseline(ctx context.Context, db dbtx, b domain.Baseline) error {
	if b.UserID == "" {
		return fmt.Errorf("%w: empty user id", domain.ErrInvalidInput)
	}
	if _, err := db.ExecContext(ctx, upsertBaseline,
		b.UserID, b.BPM, b.Samples, formatTime(b.UpdatedAt)); err != nil {
		return fmt.Errorf("saving baseline: %w", err)
	}
	return nil
}

func scanSample(scan func(dest ...any) error) (*domain.Sample, error) {
	var sample domain.Sample
	var observedAt, fetchedAt int64
	var source sql.NullString
	var baseline sql.NullFloat64
	var anomalous int

	if err := scan(&sample.UserID, &observedAt, &sample.BPM, &source,
		&fetchedAt, &baseline, &anomalous); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning sample: %w", err)
	}

	sample.ObservedAt = fromUnixNano(observedAt)
	sample.FetchedAt = fromUnixNano(fetchedAt)
	sample.Source = source.String
	sample.BaselineBPM = baseline.Float64
	sample.Anomalous = anomalous == 1
	return &sample, nil
}
