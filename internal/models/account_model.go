package models

import (
	"time"

	"github.com/goccy/go-json"
)

// Account is one connected social identity (page, profile or organization)
// owned by a client.
type Account struct {
	ID             int64           `db:"id" json:"id"`
	ClientID       int64           `db:"client_id" json:"client_id"`
	Platform       Platform        `db:"platform" json:"platform"`
	PlatformUserID string          `db:"platform_user_id" json:"platform_user_id"`
	AccountName    string          `db:"account_name" json:"account_name"`
	AccessToken    string          `db:"access_token" json:"-"`
	RefreshToken   string          `db:"refresh_token" json:"-"`
	TokenExpiresAt *time.Time      `db:"token_expires_at" json:"token_expires_at,omitempty"`
	AccountData    json.RawMessage `db:"account_data" json:"account_data,omitempty"`
	IsActive       bool            `db:"is_active" json:"is_active"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}
