package models

import (
	"database/sql/driver"
	"errors"
	"time"

	"github.com/goccy/go-json"
)

type PostStatus string

const (
	PostStatusDraft      PostStatus = "draft"
	PostStatusScheduled  PostStatus = "scheduled"
	PostStatusPublishing PostStatus = "publishing"
	PostStatusPublished  PostStatus = "published"
	PostStatusFailed     PostStatus = "failed"
)

type Post struct {
	ID            int64           `db:"id" json:"id"`
	ClientID      int64           `db:"client_id" json:"client_id"`
	CampaignID    *int64          `db:"campaign_id" json:"campaign_id,omitempty"`
	Content       string          `db:"content" json:"content"`
	Platforms     PlatformList    `db:"platforms" json:"platforms"`
	PlatformPosts PlatformPostIDs `db:"platform_posts" json:"platform_posts"`
	MediaIDs      MediaIDList     `db:"media_ids" json:"media_ids"`
	ScheduledAt   *time.Time      `db:"scheduled_at" json:"scheduled_at,omitempty"`
	Status        PostStatus      `db:"status" json:"status"`
	LastError     string          `db:"last_error" json:"last_error,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

type MediaAsset struct {
	ID        int64     `db:"id" json:"id"`
	ClientID  int64     `db:"client_id" json:"client_id"`
	FileName  string    `db:"file_name" json:"file_name"`
	FileType  string    `db:"file_type" json:"file_type"`
	FileSize  int64     `db:"file_size" json:"file_size"`
	FileURL   string    `db:"file_url" json:"file_url"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// PlatformList is the jsonb array of target platforms on a post.
type PlatformList []Platform

func (l PlatformList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return jsonValue(l)
}

func (l *PlatformList) Scan(src interface{}) error {
	return scanJSON(src, l)
}

// PlatformPostIDs maps a platform to the id the platform assigned to the
// published post.
type PlatformPostIDs map[Platform]string

func (m PlatformPostIDs) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	return jsonValue(m)
}

func (m *PlatformPostIDs) Scan(src interface{}) error {
	return scanJSON(src, m)
}

type MediaIDList []int64

func (l MediaIDList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return jsonValue(l)
}

func (l *MediaIDList) Scan(src interface{}) error {
	return scanJSON(src, l)
}

func scanJSON(src interface{}, dst interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dst)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dst)
	default:
		return errors.New("unsupported json column type")
	}
}

// jsonValue renders v as text so lib/pq sends it as jsonb rather than bytea.
func jsonValue(v interface{}) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
