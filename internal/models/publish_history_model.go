package models

import "time"

type PublishHistory struct {
	ID             int64     `db:"id" json:"id"`
	PostID         int64     `db:"post_id" json:"post_id"`
	AccountID      int64     `db:"account_id" json:"account_id"`
	Platform       Platform  `db:"platform" json:"platform"`
	PlatformPostID string    `db:"platform_post_id" json:"platform_post_id,omitempty"`
	ErrorMessage   string    `db:"error_message" json:"error_message"`
	Retryable      bool      `db:"retryable" json:"retryable"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
