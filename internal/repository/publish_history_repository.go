package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/ghst/internal/models"
)

type PublishHistoryRepository interface {
	Create(ctx context.Context, ph *models.PublishHistory) (int64, error)
	GetByPostID(ctx context.Context, postID int64) ([]*models.PublishHistory, error)
}

type publishHistoryRepository struct {
	db *sql.DB
}

func NewPublishHistoryRepository(db *sql.DB) PublishHistoryRepository {
	return &publishHistoryRepository{db: db}
}

func (r *publishHistoryRepository) Create(ctx context.Context, ph *models.PublishHistory) (int64, error) {
	query := `
		INSERT INTO publish_history (post_id, account_id, platform, platform_post_id, error_message, retryable)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query, ph.PostID, ph.AccountID, ph.Platform, ph.PlatformPostID,
		ph.ErrorMessage, ph.Retryable).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *publishHistoryRepository) GetByPostID(ctx context.Context, postID int64) ([]*models.PublishHistory, error) {
	query := `
		SELECT id, post_id, account_id, platform, platform_post_id, error_message, retryable, created_at
		FROM publish_history
		WHERE post_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var history []*models.PublishHistory
	for rows.Next() {
		var ph models.PublishHistory
		err := rows.Scan(&ph.ID, &ph.PostID, &ph.AccountID, &ph.Platform, &ph.PlatformPostID,
			&ph.ErrorMessage, &ph.Retryable, &ph.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		history = append(history, &ph)
	}
	return history, rows.Err()
}
