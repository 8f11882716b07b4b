package transfer

import "time"

type AccountConnection struct {
	Platform       string     `json:"platform" validate:"required,oneof=facebook instagram twitter linkedin x"`
	PlatformUserID string     `json:"platform_user_id" validate:"required"`
	AccountName    string     `json:"account_name"`
	AccessToken    string     `json:"access_token" validate:"required"`
	RefreshToken   string     `json:"refresh_token"`
	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty"`
}
