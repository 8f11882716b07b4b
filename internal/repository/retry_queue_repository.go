package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/ghst/internal/models"
)

type RetryQueueRepository interface {
	Enqueue(ctx context.Context, entry *models.RetryQueueEntry) error
	ListDue(ctx context.Context, now time.Time, limit int) ([]*models.RetryQueueEntry, error)
	RecordFailure(ctx context.Context, entry *models.RetryQueueEntry) error
	Remove(ctx context.Context, id int64) error
	RemoveByPostID(ctx context.Context, postID int64) error
	CountByPostID(ctx context.Context, postID int64) (int, error)
	ListByClientID(ctx context.Context, clientID int64, status models.RetryStatus) ([]*models.RetryQueueEntry, error)
}

type retryQueueRepository struct {
	db *sql.DB
}

func NewRetryQueueRepository(db *sql.DB) RetryQueueRepository {
	return &retryQueueRepository{db: db}
}

const retryColumns = `rq.id, rq.post_id, rq.platform, rq.attempts, rq.max_attempts, rq.retry_after,
	rq.last_error, rq.status, rq.created_at, rq.updated_at`

func scanRetryEntry(row rowScanner) (*models.RetryQueueEntry, error) {
	var e models.RetryQueueEntry
	err := row.Scan(&e.ID, &e.PostID, &e.Platform, &e.Attempts, &e.MaxAttempts, &e.RetryAfter,
		&e.LastError, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Enqueue inserts a pending entry for (post, platform). A later failure of a
// fresh publish cycle for the same pair restarts the attempt count.
func (r *retryQueueRepository) Enqueue(ctx context.Context, entry *models.RetryQueueEntry) error {
	query := `
		INSERT INTO retry_queue (post_id, platform, attempts, max_attempts, retry_after, last_error, status)
		VALUES ($1, $2, 0, $3, $4, $5, $6)
		ON CONFLICT (post_id, platform) DO UPDATE
		SET attempts = 0,
			max_attempts = EXCLUDED.max_attempts,
			retry_after = EXCLUDED.retry_after,
			last_error = EXCLUDED.last_error,
			status = EXCLUDED.status,
			updated_at = now()
	`
	_, err := r.db.ExecContext(ctx, query, entry.PostID, entry.Platform, entry.MaxAttempts, entry.RetryAfter,
		entry.LastError, models.RetryStatusPending)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// ListDue never returns abandoned entries or entries past their attempt
// ceiling; those rows stay in the table untouched.
func (r *retryQueueRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.RetryQueueEntry, error) {
	query := `SELECT ` + retryColumns + ` FROM retry_queue rq
		WHERE rq.status = $1 AND rq.retry_after <= $2 AND rq.attempts < rq.max_attempts
		ORDER BY rq.retry_after
		LIMIT $3`
	return r.queryMany(ctx, query, models.RetryStatusPending, now, limit)
}

func (r *retryQueueRepository) RecordFailure(ctx context.Context, entry *models.RetryQueueEntry) error {
	query := `
		UPDATE retry_queue
		SET attempts = $1,
			retry_after = $2,
			last_error = $3,
			status = $4,
			updated_at = now()
		WHERE id = $5
	`
	_, err := r.db.ExecContext(ctx, query, entry.Attempts, entry.RetryAfter, entry.LastError, entry.Status, entry.ID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *retryQueueRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM retry_queue WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *retryQueueRepository) RemoveByPostID(ctx context.Context, postID int64) error {
	query := `DELETE FROM retry_queue WHERE post_id = $1`
	_, err := r.db.ExecContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *retryQueueRepository) CountByPostID(ctx context.Context, postID int64) (int, error) {
	query := `SELECT COUNT(*) FROM retry_queue WHERE post_id = $1`
	var count int
	if err := r.db.QueryRowContext(ctx, query, postID).Scan(&count); err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return count, nil
}

func (r *retryQueueRepository) ListByClientID(ctx context.Context, clientID int64, status models.RetryStatus) ([]*models.RetryQueueEntry, error) {
	query := `SELECT ` + retryColumns + ` FROM retry_queue rq
		JOIN posts p ON p.id = rq.post_id
		WHERE p.client_id = $1 AND ($2 = '' OR rq.status = $2)
		ORDER BY rq.updated_at DESC`
	return r.queryMany(ctx, query, clientID, string(status))
}

func (r *retryQueueRepository) queryMany(ctx context.Context, query string, args ...interface{}) ([]*models.RetryQueueEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var entries []*models.RetryQueueEntry
	for rows.Next() {
		e, err := scanRetryEntry(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return entries, nil
}
