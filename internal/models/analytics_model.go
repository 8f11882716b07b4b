package models

import (
	"database/sql/driver"
	"time"

	"github.com/goccy/go-json"
)

// Reactions maps a reaction kind (like, love, wow, ...) to its count.
type Reactions map[string]int64

func (r Reactions) Value() (driver.Value, error) {
	if r == nil {
		return "{}", nil
	}
	return jsonValue(r)
}

func (r *Reactions) Scan(src interface{}) error {
	return scanJSON(src, r)
}

func (r Reactions) Total() int64 {
	var total int64
	for _, n := range r {
		total += n
	}
	return total
}

// PostAnalytics is the normalized analytics snapshot for one published post
// on one account. Counter fields only ever grow on upsert; EngagementRate and
// Reactions are overwritten by every delivery.
type PostAnalytics struct {
	PostID           int64     `db:"post_id" json:"post_id"`
	AccountID        int64     `db:"account_id" json:"account_id"`
	PlatformPostID   string    `db:"platform_post_id" json:"platform_post_id"`
	Impressions      int64     `db:"impressions" json:"impressions"`
	Reach            int64     `db:"reach" json:"reach"`
	EngagementRate   float64   `db:"engagement_rate" json:"engagement_rate"`
	Clicks           int64     `db:"clicks" json:"clicks"`
	Shares           int64     `db:"shares" json:"shares"`
	Saves            int64     `db:"saves" json:"saves"`
	Comments         int64     `db:"comments" json:"comments"`
	Likes            int64     `db:"likes" json:"likes"`
	Reactions        Reactions `db:"reactions" json:"reactions,omitempty"`
	VideoViews       int64     `db:"video_views" json:"video_views"`
	StoryExits       int64     `db:"story_exits" json:"story_exits"`
	StoryTapsForward int64     `db:"story_taps_forward" json:"story_taps_forward"`
	StoryTapsBack    int64     `db:"story_taps_back" json:"story_taps_back"`
	ProfileVisits    int64     `db:"profile_visits" json:"profile_visits"`
	WebsiteClicks    int64     `db:"website_clicks" json:"website_clicks"`
	LastUpdated      time.Time `db:"last_updated" json:"last_updated"`
}

// Interactions is the numerator of the engagement rate.
func (a *PostAnalytics) Interactions() int64 {
	return a.Likes + a.Comments + a.Shares + a.Saves + a.Clicks
}

// ComputeEngagementRate returns interactions as a percentage of impressions,
// falling back to reach when impressions are zero.
func (a *PostAnalytics) ComputeEngagementRate() float64 {
	denominator := a.Impressions
	if denominator == 0 {
		denominator = a.Reach
	}
	if denominator == 0 {
		return 0
	}
	return float64(a.Interactions()) / float64(denominator) * 100
}

// MergeCounters applies the monotonic merge used by the analytics upsert:
// every counter keeps the larger of the stored and incoming value, while
// engagement rate and reactions take the incoming value as-is.
func (a *PostAnalytics) MergeCounters(incoming *PostAnalytics) {
	a.Impressions = max(a.Impressions, incoming.Impressions)
	a.Reach = max(a.Reach, incoming.Reach)
	a.Clicks = max(a.Clicks, incoming.Clicks)
	a.Shares = max(a.Shares, incoming.Shares)
	a.Saves = max(a.Saves, incoming.Saves)
	a.Comments = max(a.Comments, incoming.Comments)
	a.Likes = max(a.Likes, incoming.Likes)
	a.VideoViews = max(a.VideoViews, incoming.VideoViews)
	a.StoryExits = max(a.StoryExits, incoming.StoryExits)
	a.StoryTapsForward = max(a.StoryTapsForward, incoming.StoryTapsForward)
	a.StoryTapsBack = max(a.StoryTapsBack, incoming.StoryTapsBack)
	a.ProfileVisits = max(a.ProfileVisits, incoming.ProfileVisits)
	a.WebsiteClicks = max(a.WebsiteClicks, incoming.WebsiteClicks)
	a.EngagementRate = incoming.EngagementRate
	a.Reactions = incoming.Reactions
	a.LastUpdated = incoming.LastUpdated
}

type FollowerAnalytics struct {
	AccountID      int64     `db:"account_id" json:"account_id"`
	Date           time.Time `db:"date" json:"date"`
	FollowerCount  int64     `db:"follower_count" json:"follower_count"`
	FollowingCount int64     `db:"following_count" json:"following_count"`
	DailyGrowth    int64     `db:"daily_growth" json:"daily_growth"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

type WebhookLog struct {
	ID        int64           `db:"id" json:"id"`
	Platform  Platform        `db:"platform" json:"platform"`
	EventType string          `db:"event_type" json:"event_type"`
	Payload   json.RawMessage `db:"payload" json:"payload"`
	RequestID string          `db:"request_id" json:"request_id"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// FollowerSnapshot is one follower count reading delivered by a platform.
type FollowerSnapshot struct {
	Date           time.Time
	FollowerCount  int64
	FollowingCount int64
}
