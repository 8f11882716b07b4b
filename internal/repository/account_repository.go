package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/maheshrc27/ghst/internal/models"
)

type AccountRepository interface {
	Create(ctx context.Context, acc *models.Account) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Account, error)
	GetActiveByPlatformUser(ctx context.Context, platform models.Platform, platformUserID string) (*models.Account, error)
	GetActiveByClientPlatform(ctx context.Context, clientID int64, platform models.Platform) (*models.Account, error)
	ListByClientID(ctx context.Context, clientID int64) ([]*models.Account, error)
	ListExpiring(ctx context.Context, before time.Time) ([]*models.Account, error)
	CheckByClientID(ctx context.Context, accountID, clientID int64) (bool, error)
	SetToken(ctx context.Context, id int64, oldAccessToken string, acc *models.Account) error
	Deactivate(ctx context.Context, id int64) error
}

type accountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) AccountRepository {
	return &accountRepository{db: db}
}

const accountColumns = `id, client_id, platform, platform_user_id, account_name, access_token,
	refresh_token, token_expires_at, account_data, is_active, created_at, updated_at`

func scanAccount(row rowScanner) (*models.Account, error) {
	var acc models.Account
	var expiresAt sql.NullTime
	var data []byte
	err := row.Scan(&acc.ID, &acc.ClientID, &acc.Platform, &acc.PlatformUserID, &acc.AccountName,
		&acc.AccessToken, &acc.RefreshToken, &expiresAt, &data, &acc.IsActive, &acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if expiresAt.Valid {
		acc.TokenExpiresAt = &expiresAt.Time
	}
	acc.AccountData = data
	return &acc, nil
}

func (r *accountRepository) queryOne(ctx context.Context, query string, args ...interface{}) (*models.Account, error) {
	acc, err := scanAccount(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return acc, nil
}

func (r *accountRepository) queryMany(ctx context.Context, query string, args ...interface{}) ([]*models.Account, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		accounts = append(accounts, acc)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return accounts, nil
}

// Create inserts the account, or refreshes the tokens and reactivates it when
// the client already connected the same platform identity.
func (r *accountRepository) Create(ctx context.Context, acc *models.Account) (int64, error) {
	query := `
		INSERT INTO accounts (client_id, platform, platform_user_id, account_name, access_token,
			refresh_token, token_expires_at, account_data, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (client_id, platform, platform_user_id) DO UPDATE SET
			account_name = EXCLUDED.account_name,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expires_at = EXCLUDED.token_expires_at,
			account_data = EXCLUDED.account_data,
			is_active = EXCLUDED.is_active,
			updated_at = now()
		RETURNING id
	`
	data := acc.AccountData
	if len(data) == 0 {
		data = []byte("{}")
	}

	var id int64
	err := r.db.QueryRowContext(ctx, query, acc.ClientID, acc.Platform, acc.PlatformUserID, acc.AccountName,
		acc.AccessToken, acc.RefreshToken, acc.TokenExpiresAt, string(data), acc.IsActive).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *accountRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.queryOne(ctx, query, id)
}

func (r *accountRepository) GetActiveByPlatformUser(ctx context.Context, platform models.Platform, platformUserID string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts
		WHERE platform = $1 AND platform_user_id = $2 AND is_active = TRUE
		ORDER BY id LIMIT 1`
	return r.queryOne(ctx, query, platform, platformUserID)
}

// GetActiveByClientPlatform returns the canonical account the publisher uses
// for a client on a platform: the first active match.
func (r *accountRepository) GetActiveByClientPlatform(ctx context.Context, clientID int64, platform models.Platform) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts
		WHERE client_id = $1 AND platform = $2 AND is_active = TRUE
		ORDER BY id LIMIT 1`
	return r.queryOne(ctx, query, clientID, platform)
}

func (r *accountRepository) ListByClientID(ctx context.Context, clientID int64) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE client_id = $1 ORDER BY id`
	return r.queryMany(ctx, query, clientID)
}

func (r *accountRepository) ListExpiring(ctx context.Context, before time.Time) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts
		WHERE is_active = TRUE AND refresh_token <> '' AND token_expires_at < $1`
	return r.queryMany(ctx, query, before)
}

func (r *accountRepository) CheckByClientID(ctx context.Context, accountID, clientID int64) (bool, error) {
	query := "SELECT 1 FROM accounts WHERE id = $1 AND client_id = $2"

	var result int
	err := r.db.QueryRowContext(ctx, query, accountID, clientID).Scan(&result)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

func (r *accountRepository) SetToken(ctx context.Context, id int64, oldAccessToken string, acc *models.Account) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer tx.Rollback()

	query := `
		UPDATE accounts
		SET
			access_token = COALESCE(NULLIF($3, ''), access_token),
			refresh_token = COALESCE(NULLIF($4, ''), refresh_token),
			token_expires_at = COALESCE($5, token_expires_at),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND access_token = $2
	`
	result, err := tx.ExecContext(ctx, query, id, oldAccessToken, acc.AccessToken, acc.RefreshToken, acc.TokenExpiresAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if affected != 1 {
		err = errors.New("no rows affected; token was rotated concurrently")
		slog.Info(err.Error())
		return err
	}

	if err = tx.Commit(); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *accountRepository) Deactivate(ctx context.Context, id int64) error {
	query := `UPDATE accounts SET is_active = FALSE, updated_at = $2 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
