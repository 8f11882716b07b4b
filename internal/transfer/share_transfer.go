package transfer

import "time"

type ShareCreation struct {
	Kind         string     `json:"kind" validate:"required,oneof=report campaign"`
	ResourceID   int64      `json:"resource_id" validate:"required,gt=0"`
	Password     string     `json:"password,omitempty" validate:"omitempty,min=6,max=72"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	AllowedIPs   []string   `json:"allowed_ips,omitempty" validate:"omitempty,dive,ip|cidr"`
	MaxViews     int        `json:"max_views" validate:"gte=0"`
	MaxDownloads int        `json:"max_downloads" validate:"gte=0"`
	Permissions  []string   `json:"permissions,omitempty" validate:"omitempty,dive,oneof=view download analytics"`
}

type ShareCreated struct {
	ID    int64  `json:"id"`
	Token string `json:"token"`
	URL   string `json:"url"`
}

type ShareUnlock struct {
	Password string `form:"password" validate:"required"`
}
