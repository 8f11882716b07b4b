package models

import "time"

type RetryStatus string

const (
	RetryStatusPending RetryStatus = "pending"
	// RetryStatusAbandoned marks an entry that ran out of attempts or hit a
	// terminal error. The row is kept for operators.
	RetryStatusAbandoned RetryStatus = "abandoned"
)

type RetryQueueEntry struct {
	ID          int64       `db:"id" json:"id"`
	PostID      int64       `db:"post_id" json:"post_id"`
	Platform    Platform    `db:"platform" json:"platform"`
	Attempts    int         `db:"attempts" json:"attempts"`
	MaxAttempts int         `db:"max_attempts" json:"max_attempts"`
	RetryAfter  time.Time   `db:"retry_after" json:"retry_after"`
	LastError   string      `db:"last_error" json:"last_error"`
	Status      RetryStatus `db:"status" json:"status"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

func (e *RetryQueueEntry) Exhausted() bool {
	return e.Attempts >= e.MaxAttempts
}
