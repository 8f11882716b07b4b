package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/maheshrc27/ghst/internal/models"
)

type PostRepository interface {
	Create(ctx context.Context, post *models.Post) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	GetByClientID(ctx context.Context, clientID int64) ([]*models.Post, error)
	ListByCampaignID(ctx context.Context, clientID, campaignID int64) ([]*models.Post, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Post, error)
	FindByPlatformPostID(ctx context.Context, clientID int64, platform models.Platform, platformPostID string) (*models.Post, error)
	CheckByClientID(ctx context.Context, postID, clientID int64) (bool, error)
	Claim(ctx context.Context, postID int64) (bool, error)
	Schedule(ctx context.Context, postID int64, at time.Time) error
	UpdatePostStatus(ctx context.Context, postID int64, status models.PostStatus, lastError string) error
	SetPlatformPostID(ctx context.Context, postID int64, platform models.Platform, platformPostID string) error
	Remove(ctx context.Context, id int64) error
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, client_id, campaign_id, content, platforms, platform_posts, media_ids,
	scheduled_at, status, last_error, created_at, updated_at`

func scanPost(row rowScanner) (*models.Post, error) {
	var post models.Post
	var campaignID sql.NullInt64
	var scheduledAt sql.NullTime
	err := row.Scan(&post.ID, &post.ClientID, &campaignID, &post.Content, &post.Platforms, &post.PlatformPosts,
		&post.MediaIDs, &scheduledAt, &post.Status, &post.LastError, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if campaignID.Valid {
		post.CampaignID = &campaignID.Int64
	}
	if scheduledAt.Valid {
		post.ScheduledAt = &scheduledAt.Time
	}
	if post.PlatformPosts == nil {
		post.PlatformPosts = models.PlatformPostIDs{}
	}
	return &post, nil
}

func (r *postRepository) queryMany(ctx context.Context, query string, args ...interface{}) ([]*models.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) (int64, error) {
	query := `
		INSERT INTO posts (client_id, campaign_id, content, platforms, platform_posts, media_ids, scheduled_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, post.ClientID, post.CampaignID, post.Content, post.Platforms,
		post.PlatformPosts, post.MediaIDs, post.ScheduledAt, post.Status).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return post, nil
}

func (r *postRepository) GetByClientID(ctx context.Context, clientID int64) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE client_id = $1 ORDER BY created_at DESC`
	return r.queryMany(ctx, query, clientID)
}

func (r *postRepository) ListByCampaignID(ctx context.Context, clientID, campaignID int64) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE client_id = $1 AND campaign_id = $2 ORDER BY scheduled_at`
	return r.queryMany(ctx, query, clientID, campaignID)
}

func (r *postRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts
		WHERE status = $1 AND scheduled_at <= $2
		ORDER BY scheduled_at
		LIMIT $3`
	return r.queryMany(ctx, query, models.PostStatusScheduled, now, limit)
}

// FindByPlatformPostID resolves a vendor-native post id back to the post that
// published it, scoped to the owning client.
func (r *postRepository) FindByPlatformPostID(ctx context.Context, clientID int64, platform models.Platform, platformPostID string) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts
		WHERE client_id = $1 AND platform_posts ->> $2 = $3
		LIMIT 1`
	post, err := scanPost(r.db.QueryRowContext(ctx, query, clientID, string(platform), platformPostID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return post, nil
}

func (r *postRepository) CheckByClientID(ctx context.Context, postID, clientID int64) (bool, error) {
	query := "SELECT 1 FROM posts WHERE id = $1 AND client_id = $2"

	var result int
	err := r.db.QueryRowContext(ctx, query, postID, clientID).Scan(&result)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

// Claim moves a scheduled post to publishing. Only one caller wins, so the
// cron sweep and the delayed task never publish the same post twice.
func (r *postRepository) Claim(ctx context.Context, postID int64) (bool, error) {
	query := `
		UPDATE posts
		SET status = $1,
			updated_at = $2
		WHERE id = $3 AND status = $4
	`
	result, err := r.db.ExecContext(ctx, query, models.PostStatusPublishing, time.Now(), postID, models.PostStatusScheduled)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected == 1, nil
}

func (r *postRepository) Schedule(ctx context.Context, postID int64, at time.Time) error {
	query := `
		UPDATE posts
		SET status = $1,
			scheduled_at = $2,
			last_error = '',
			updated_at = $3
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, models.PostStatusScheduled, at, time.Now(), postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) UpdatePostStatus(ctx context.Context, postID int64, status models.PostStatus, lastError string) error {
	query := `
		UPDATE posts
		SET status = $1,
			last_error = $2,
			updated_at = $3
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, status, lastError, time.Now(), postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) SetPlatformPostID(ctx context.Context, postID int64, platform models.Platform, platformPostID string) error {
	query := `
		UPDATE posts
		SET platform_posts = jsonb_set(platform_posts, ARRAY[$1::text], to_jsonb($2::text), true),
			updated_at = $3
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, string(platform), platformPostID, time.Now(), postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM posts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
