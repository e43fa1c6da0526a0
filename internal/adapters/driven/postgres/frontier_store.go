package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/tidewater-labs/harvest-core/internal/core/domain"
	"github.com/tidewater-labs/harvest-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.FrontierStore = (*FrontierStore)(nil)

// FrontierStore implements driven.FrontierStore using PostgreSQL with
// SELECT FOR UPDATE SKIP LOCKED, so overlapping workers never claim the
// same entry.
type FrontierStore struct {
	db *DB
}

// NewFrontierStore creates a new FrontierStore
func NewFrontierStore(db *DB) *FrontierStore {
	return &FrontierStore{db: db}
}

const queueColumns = `id, url, platform, item_type, priority, status, retry_count, max_retries, first_seen, last_checked, last_error`

// Insert adds a frontier entry. ON CONFLICT DO NOTHING makes the
// duplicate-URL no-op race-safe across workers.
func (s *FrontierStore) Insert(ctx context.Context, item *domain.QueueItem) (bool, error) {
	query := `
		INSERT INTO queue_items (` + queueColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (url) DO NOTHING
	`

	result, err := s.db.ExecContext(ctx, query,
		item.ID,
		item.URL,
		item.Platform,
		item.ItemType,
		item.Priority,
		item.Status,
		item.RetryCount,
		item.MaxRetries,
		item.FirstSeen,
		item.LastChecked,
		item.LastError,
	)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// Claim atomically selects and marks up to limit entries as
// processing. Selection covers pending entries and failed entries
// under their retry cap, ordered by priority descending then
// first_seen ascending. The status update happens inside the same
// transaction, before any work on the entry begins.
func (s *FrontierStore) Claim(ctx context.Context, limit int) ([]*domain.QueueItem, error) {
	var claimed []*domain.QueueItem

	err := s.db.Transaction(ctx, func(tx *sql.Tx) error {
		selectQuery := `
			SELECT ` + queueColumns + `
			FROM queue_items
			WHERE status = $1
			   OR (status = $2 AND retry_count < max_retries)
			ORDER BY priority DESC, first_seen ASC
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		`

		rows, err := tx.QueryContext(ctx, selectQuery,
			domain.QueueStatusPending,
			domain.QueueStatusFailed,
			limit,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			item, err := scanQueueItem(rows)
			if err != nil {
				return err
			}
			claimed = append(claimed, item)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		if len(claimed) == 0 {
			return nil
		}

		now := time.Now()
		updateQuery := `
			UPDATE queue_items
			SET status = $1, last_checked = $2
			WHERE id = $3
		`
		for _, item := range claimed {
			if _, err := tx.ExecContext(ctx, updateQuery,
				domain.QueueStatusProcessing, now, item.ID,
			); err != nil {
				return err
			}
			item.Status = domain.QueueStatusProcessing
			item.LastChecked = now
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return claimed, nil
}

// MarkCompleted moves a claimed entry to its terminal success state
func (s *FrontierStore) MarkCompleted(ctx context.Context, id string) error {
	query := `
		UPDATE queue_items
		SET status = $1, last_checked = $2, last_error = ''
		WHERE id = $3
	`
	return s.exec(ctx, query, domain.QueueStatusCompleted, time.Now(), id)
}

// MarkFailed records a failed attempt and increments the retry counter
func (s *FrontierStore) MarkFailed(ctx context.Context, id string, reason string) error {
	query := `
		UPDATE queue_items
		SET status = $1, retry_count = retry_count + 1, last_checked = $2, last_error = $3
		WHERE id = $4
	`
	return s.exec(ctx, query, domain.QueueStatusFailed, time.Now(), reason, id)
}

func (s *FrontierStore) exec(ctx context.Context, query string, args ...any) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByURL retrieves an entry by its unique URL
func (s *FrontierStore) GetByURL(ctx context.Context, url string) (*domain.QueueItem, error) {
	query := `SELECT ` + queueColumns + ` FROM queue_items WHERE url = $1`

	row := s.db.QueryRowContext(ctx, query, url)
	item, err := scanQueueItem(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// ReclaimStale returns processing entries older than the cutoff to
// pending without touching their retry counters.
func (s *FrontierStore) ReclaimStale(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	query := `
		UPDATE queue_items
		SET status = $1, last_checked = $2
		WHERE status = $3 AND last_checked < $4
	`

	result, err := s.db.ExecContext(ctx, query,
		domain.QueueStatusPending,
		time.Now(),
		domain.QueueStatusProcessing,
		cutoff,
	)
	if err != nil {
		return 0, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(rows), nil
}

// Purge removes completed entries and failed entries older than the
// retention window.
func (s *FrontierStore) Purge(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := time.Now().Add(-retention)
	query := `
		DELETE FROM queue_items
		WHERE status = $1
		   OR (status = $2 AND last_checked < $3)
	`

	result, err := s.db.ExecContext(ctx, query,
		domain.QueueStatusCompleted,
		domain.QueueStatusFailed,
		cutoff,
	)
	if err != nil {
		return 0, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(rows), nil
}

// Stats returns frontier counters
func (s *FrontierStore) Stats(ctx context.Context) (*domain.FrontierStats, error) {
	stats := &domain.FrontierStats{}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM queue_items GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		switch domain.QueueStatus(status) {
		case domain.QueueStatusPending:
			stats.PendingCount = count
		case domain.QueueStatusProcessing:
			stats.ProcessingCount = count
		case domain.QueueStatusCompleted:
			stats.CompletedCount = count
		case domain.QueueStatusFailed:
			stats.FailedCount = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ageQuery := `
		SELECT EXTRACT(EPOCH FROM (NOW() - MIN(first_seen)))::bigint
		FROM queue_items
		WHERE status = $1
	`
	var age sql.NullInt64
	err = s.db.QueryRowContext(ctx, ageQuery, domain.QueueStatusPending).Scan(&age)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if age.Valid {
		stats.OldestPendingAge = age.Int64
	}

	return stats, nil
}

// Ping checks database connectivity
func (s *FrontierStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQueueItem(row rowScanner) (*domain.QueueItem, error) {
	var item domain.QueueItem
	err := row.Scan(
		&item.ID,
		&item.URL,
		&item.Platform,
		&item.ItemType,
		&item.Priority,
		&item.Status,
		&item.RetryCount,
		&item.MaxRetries,
		&item.FirstSeen,
		&item.LastChecked,
		&item.LastError,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}
