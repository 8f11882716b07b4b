package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/maheshrc27/ghst/internal/models"
)

type PostAnalyticsRepository interface {
	Upsert(ctx context.Context, a *models.PostAnalytics) error
	Get(ctx context.Context, postID, accountID int64) (*models.PostAnalytics, error)
	GetByPostID(ctx context.Context, postID int64) ([]*models.PostAnalytics, error)
	SetEngagementRate(ctx context.Context, postID, accountID int64, rate float64) error
}

type postAnalyticsRepository struct {
	db *sql.DB
}

func NewPostAnalyticsRepository(db *sql.DB) PostAnalyticsRepository {
	return &postAnalyticsRepository{db: db}
}

const postAnalyticsColumns = `post_id, account_id, platform_post_id, impressions, reach, engagement_rate,
	clicks, shares, saves, comments, likes, reactions, video_views, story_exits, story_taps_forward,
	story_taps_back, profile_visits, website_clicks, last_updated`

func scanPostAnalytics(row rowScanner) (*models.PostAnalytics, error) {
	var a models.PostAnalytics
	err := row.Scan(&a.PostID, &a.AccountID, &a.PlatformPostID, &a.Impressions, &a.Reach, &a.EngagementRate,
		&a.Clicks, &a.Shares, &a.Saves, &a.Comments, &a.Likes, &a.Reactions, &a.VideoViews, &a.StoryExits,
		&a.StoryTapsForward, &a.StoryTapsBack, &a.ProfileVisits, &a.WebsiteClicks, &a.LastUpdated)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Upsert writes one delivery. Counters never decrease: a late or partial
// payload can only raise a stored value. Engagement rate and reactions are
// replaced by the latest delivery.
func (r *postAnalyticsRepository) Upsert(ctx context.Context, a *models.PostAnalytics) error {
	query := `
		INSERT INTO post_analytics (` + postAnalyticsColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (post_id, account_id, platform_post_id) DO UPDATE
		SET impressions = GREATEST(post_analytics.impressions, EXCLUDED.impressions),
			reach = GREATEST(post_analytics.reach, EXCLUDED.reach),
			engagement_rate = EXCLUDED.engagement_rate,
			clicks = GREATEST(post_analytics.clicks, EXCLUDED.clicks),
			shares = GREATEST(post_analytics.shares, EXCLUDED.shares),
			saves = GREATEST(post_analytics.saves, EXCLUDED.saves),
			comments = GREATEST(post_analytics.comments, EXCLUDED.comments),
			likes = GREATEST(post_analytics.likes, EXCLUDED.likes),
			reactions = EXCLUDED.reactions,
			video_views = GREATEST(post_analytics.video_views, EXCLUDED.video_views),
			story_exits = GREATEST(post_analytics.story_exits, EXCLUDED.story_exits),
			story_taps_forward = GREATEST(post_analytics.story_taps_forward, EXCLUDED.story_taps_forward),
			story_taps_back = GREATEST(post_analytics.story_taps_back, EXCLUDED.story_taps_back),
			profile_visits = GREATEST(post_analytics.profile_visits, EXCLUDED.profile_visits),
			website_clicks = GREATEST(post_analytics.website_clicks, EXCLUDED.website_clicks),
			last_updated = EXCLUDED.last_updated
	`
	_, err := r.db.ExecContext(ctx, query, a.PostID, a.AccountID, a.PlatformPostID, a.Impressions, a.Reach,
		a.EngagementRate, a.Clicks, a.Shares, a.Saves, a.Comments, a.Likes, a.Reactions, a.VideoViews,
		a.StoryExits, a.StoryTapsForward, a.StoryTapsBack, a.ProfileVisits, a.WebsiteClicks, a.LastUpdated)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postAnalyticsRepository) Get(ctx context.Context, postID, accountID int64) (*models.PostAnalytics, error) {
	query := `SELECT ` + postAnalyticsColumns + ` FROM post_analytics
		WHERE post_id = $1 AND account_id = $2
		ORDER BY last_updated DESC
		LIMIT 1`
	a, err := scanPostAnalytics(r.db.QueryRowContext(ctx, query, postID, accountID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return a, nil
}

func (r *postAnalyticsRepository) GetByPostID(ctx context.Context, postID int64) ([]*models.PostAnalytics, error) {
	query := `SELECT ` + postAnalyticsColumns + ` FROM post_analytics WHERE post_id = $1 ORDER BY account_id`
	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var result []*models.PostAnalytics
	for rows.Next() {
		a, err := scanPostAnalytics(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (r *postAnalyticsRepository) SetEngagementRate(ctx context.Context, postID, accountID int64, rate float64) error {
	query := `UPDATE post_analytics SET engagement_rate = $1 WHERE post_id = $2 AND account_id = $3`
	_, err := r.db.ExecContext(ctx, query, rate, postID, accountID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
