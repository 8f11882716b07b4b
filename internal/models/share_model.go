package models

import (
	"database/sql/driver"
	"slices"
	"time"
)

type ShareKind string

const (
	ShareKindReport   ShareKind = "report"
	ShareKindCampaign ShareKind = "campaign"
)

type Permission string

const (
	PermissionView      Permission = "view"
	PermissionDownload  Permission = "download"
	PermissionAnalytics Permission = "analytics"
)

type PermissionSet []Permission

func (p PermissionSet) Has(perm Permission) bool {
	return slices.Contains(p, perm)
}

func (p PermissionSet) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	return jsonValue(p)
}

func (p *PermissionSet) Scan(src interface{}) error {
	return scanJSON(src, p)
}

type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return jsonValue(l)
}

func (l *StringList) Scan(src interface{}) error {
	return scanJSON(src, l)
}

// ShareLink grants unauthenticated, bounded access to a report or campaign.
// MaxViews and MaxDownloads of zero mean unlimited.
type ShareLink struct {
	ID            int64         `db:"id" json:"id"`
	ClientID      int64         `db:"client_id" json:"client_id"`
	Kind          ShareKind     `db:"kind" json:"kind"`
	ResourceID    int64         `db:"resource_id" json:"resource_id"`
	Token         string        `db:"token" json:"token"`
	PasswordHash  string        `db:"password_hash" json:"-"`
	ExpiresAt     *time.Time    `db:"expires_at" json:"expires_at,omitempty"`
	AllowedIPs    StringList    `db:"allowed_ips" json:"allowed_ips"`
	MaxViews      int           `db:"max_views" json:"max_views"`
	MaxDownloads  int           `db:"max_downloads" json:"max_downloads"`
	ViewCount     int           `db:"view_count" json:"view_count"`
	DownloadCount int           `db:"download_count" json:"download_count"`
	Permissions   PermissionSet `db:"permissions" json:"permissions"`
	IsActive      bool          `db:"is_active" json:"is_active"`
	CreatedBy     int64         `db:"created_by" json:"created_by"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
}

func (s *ShareLink) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && !now.Before(*s.ExpiresAt)
}

func (s *ShareLink) HasPassword() bool {
	return s.PasswordHash != ""
}

type ShareAction string

const (
	ShareActionView     ShareAction = "view"
	ShareActionDownload ShareAction = "download"
)

type ShareAccessLog struct {
	ID        int64       `db:"id" json:"id"`
	ShareID   int64       `db:"share_id" json:"share_id"`
	Action    ShareAction `db:"action" json:"action"`
	IP        string      `db:"ip" json:"ip"`
	UserAgent string      `db:"user_agent" json:"user_agent"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
}

type Report struct {
	ID        int64     `db:"id" json:"id"`
	ClientID  int64     `db:"client_id" json:"client_id"`
	Title     string    `db:"title" json:"title"`
	FileKey   string    `db:"file_key" json:"file_key"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Campaign struct {
	ID        int64     `db:"id" json:"id"`
	ClientID  int64     `db:"client_id" json:"client_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
