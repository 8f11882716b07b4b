package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/maheshrc27/ghst/internal/models"
)

type ShareLinkRepository interface {
	Create(ctx context.Context, s *models.ShareLink) (int64, error)
	GetByToken(ctx context.Context, token string, kind models.ShareKind) (*models.ShareLink, error)
	GetByID(ctx context.Context, id int64) (*models.ShareLink, error)
	GetByClientID(ctx context.Context, clientID int64) ([]*models.ShareLink, error)
	CheckByClientID(ctx context.Context, shareID, clientID int64) (bool, error)
	Revoke(ctx context.Context, id int64) error
	IncrementViews(ctx context.Context, id int64) (bool, error)
	IncrementDownloads(ctx context.Context, id int64) (bool, error)
	CreateAccessLog(ctx context.Context, l *models.ShareAccessLog) error
	GetAccessLogs(ctx context.Context, shareID int64) ([]*models.ShareAccessLog, error)
}

type shareLinkRepository struct {
	db *sql.DB
}

func NewShareLinkRepository(db *sql.DB) ShareLinkRepository {
	return &shareLinkRepository{db: db}
}

const shareColumns = `id, client_id, kind, resource_id, token, password_hash, expires_at, allowed_ips,
	max_views, max_downloads, view_count, download_count, permissions, is_active, created_by, created_at`

func scanShareLink(row rowScanner) (*models.ShareLink, error) {
	var s models.ShareLink
	var expiresAt sql.NullTime
	err := row.Scan(&s.ID, &s.ClientID, &s.Kind, &s.ResourceID, &s.Token, &s.PasswordHash, &expiresAt,
		&s.AllowedIPs, &s.MaxViews, &s.MaxDownloads, &s.ViewCount, &s.DownloadCount, &s.Permissions,
		&s.IsActive, &s.CreatedBy, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	if expiresAt.Valid {
		s.ExpiresAt = &expiresAt.Time
	}
	return &s, nil
}

func (r *shareLinkRepository) queryOne(ctx context.Context, query string, args ...interface{}) (*models.ShareLink, error) {
	s, err := scanShareLink(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return s, nil
}

func (r *shareLinkRepository) Create(ctx context.Context, s *models.ShareLink) (int64, error) {
	query := `
		INSERT INTO share_links (client_id, kind, resource_id, token, password_hash, expires_at, allowed_ips,
			max_views, max_downloads, permissions, is_active, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE, $11)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query, s.ClientID, s.Kind, s.ResourceID, s.Token, s.PasswordHash,
		s.ExpiresAt, s.AllowedIPs, s.MaxViews, s.MaxDownloads, s.Permissions, s.CreatedBy).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

// GetByToken only returns active links of the given kind.
func (r *shareLinkRepository) GetByToken(ctx context.Context, token string, kind models.ShareKind) (*models.ShareLink, error) {
	query := `SELECT ` + shareColumns + ` FROM share_links WHERE token = $1 AND kind = $2 AND is_active = TRUE`
	return r.queryOne(ctx, query, token, kind)
}

func (r *shareLinkRepository) GetByID(ctx context.Context, id int64) (*models.ShareLink, error) {
	query := `SELECT ` + shareColumns + ` FROM share_links WHERE id = $1`
	return r.queryOne(ctx, query, id)
}

func (r *shareLinkRepository) GetByClientID(ctx context.Context, clientID int64) ([]*models.ShareLink, error) {
	query := `SELECT ` + shareColumns + ` FROM share_links WHERE client_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, clientID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var links []*models.ShareLink
	for rows.Next() {
		s, err := scanShareLink(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		links = append(links, s)
	}
	return links, rows.Err()
}

func (r *shareLinkRepository) CheckByClientID(ctx context.Context, shareID, clientID int64) (bool, error) {
	query := "SELECT 1 FROM share_links WHERE id = $1 AND client_id = $2"

	var result int
	err := r.db.QueryRowContext(ctx, query, shareID, clientID).Scan(&result)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

func (r *shareLinkRepository) Revoke(ctx context.Context, id int64) error {
	query := `UPDATE share_links SET is_active = FALSE WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// IncrementViews bumps the view counter only while it is below the limit, so
// concurrent requests cannot overshoot max_views. It reports whether the
// increment happened.
func (r *shareLinkRepository) IncrementViews(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE share_links
		SET view_count = view_count + 1
		WHERE id = $1 AND (max_views = 0 OR view_count < max_views)
	`
	return r.execOne(ctx, query, id)
}

func (r *shareLinkRepository) IncrementDownloads(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE share_links
		SET download_count = download_count + 1
		WHERE id = $1 AND (max_downloads = 0 OR download_count < max_downloads)
	`
	return r.execOne(ctx, query, id)
}

func (r *shareLinkRepository) execOne(ctx context.Context, query string, args ...interface{}) (bool, error) {
	result, err := r.db.ExecContext(ctx, query, args...)
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

func (r *shareLinkRepository) CreateAccessLog(ctx context.Context, l *models.ShareAccessLog) error {
	query := `INSERT INTO share_access_logs (share_id, action, ip, user_agent) VALUES ($1, $2, $3, $4)`
	_, err := r.db.ExecContext(ctx, query, l.ShareID, l.Action, l.IP, l.UserAgent)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *shareLinkRepository) GetAccessLogs(ctx context.Context, shareID int64) ([]*models.ShareAccessLog, error) {
	query := `
		SELECT id, share_id, action, ip, user_agent, created_at
		FROM share_access_logs
		WHERE share_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, shareID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var logs []*models.ShareAccessLog
	for rows.Next() {
		var l models.ShareAccessLog
		if err := rows.Scan(&l.ID, &l.ShareID, &l.Action, &l.IP, &l.UserAgent, &l.CreatedAt); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}
