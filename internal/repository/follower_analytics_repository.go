package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/maheshrc27/ghst/internal/models"
)

type FollowerAnalyticsRepository interface {
	LatestBefore(ctx context.Context, accountID int64, date time.Time) (*models.FollowerAnalytics, error)
	Upsert(ctx context.Context, fa *models.FollowerAnalytics) error
	ListSince(ctx context.Context, accountID int64, since time.Time) ([]*models.FollowerAnalytics, error)
}

type followerAnalyticsRepository struct {
	db *sql.DB
}

func NewFollowerAnalyticsRepository(db *sql.DB) FollowerAnalyticsRepository {
	return &followerAnalyticsRepository{db: db}
}

// LatestBefore returns the most recent snapshot strictly before date, or nil.
func (r *followerAnalyticsRepository) LatestBefore(ctx context.Context, accountID int64, date time.Time) (*models.FollowerAnalytics, error) {
	query := `
		SELECT account_id, date, follower_count, following_count, daily_growth, updated_at
		FROM follower_analytics
		WHERE account_id = $1 AND date < $2
		ORDER BY date DESC
		LIMIT 1
	`
	var fa models.FollowerAnalytics
	err := r.db.QueryRowContext(ctx, query, accountID, date).Scan(
		&fa.AccountID, &fa.Date, &fa.FollowerCount, &fa.FollowingCount, &fa.DailyGrowth, &fa.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &fa, nil
}

func (r *followerAnalyticsRepository) Upsert(ctx context.Context, fa *models.FollowerAnalytics) error {
	query := `
		INSERT INTO follower_analytics (account_id, date, follower_count, following_count, daily_growth, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (account_id, date) DO UPDATE
		SET follower_count = EXCLUDED.follower_count,
			following_count = EXCLUDED.following_count,
			daily_growth = EXCLUDED.daily_growth,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query, fa.AccountID, fa.Date, fa.FollowerCount, fa.FollowingCount,
		fa.DailyGrowth, fa.UpdatedAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *followerAnalyticsRepository) ListSince(ctx context.Context, accountID int64, since time.Time) ([]*models.FollowerAnalytics, error) {
	query := `
		SELECT account_id, date, follower_count, following_count, daily_growth, updated_at
		FROM follower_analytics
		WHERE account_id = $1 AND date >= $2
		ORDER BY date
	`
	rows, err := r.db.QueryContext(ctx, query, accountID, since)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var history []*models.FollowerAnalytics
	for rows.Next() {
		var fa models.FollowerAnalytics
		if err := rows.Scan(&fa.AccountID, &fa.Date, &fa.FollowerCount, &fa.FollowingCount, &fa.DailyGrowth, &fa.UpdatedAt); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		history = append(history, &fa)
	}
	return history, rows.Err()
}
