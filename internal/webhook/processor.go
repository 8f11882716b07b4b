package webhook

import (
	"context"
	"errors"
	"time"

	"github.com/maheshrc27/ghst/internal/models"
	"github.com/maheshrc27/ghst/internal/repository"
	"github.com/tidwall/gjson"
)

var ErrInvalidPayload = errors.New("payload is not valid JSON")

// Processor turns one verified delivery into analytics writes.
type Processor interface {
	Platform() models.Platform
	EventType(body []byte) string
	Process(ctx context.Context, body []byte) *Result
}

// AnalyticsSink receives normalized analytics.
type AnalyticsSink interface {
	StorePostAnalytics(ctx context.Context, postID, accountID int64, platformPostID string, a *models.PostAnalytics) error
	StoreFollowerAnalytics(ctx context.Context, accountID int64, snap models.FollowerSnapshot) error
}

// Deps is shared by every processor.
type Deps struct {
	Accounts repository.AccountRepository
	Posts    repository.PostRepository
	Sink     AnalyticsSink
	Now      func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// storePost resolves a vendor post id to an internal post owned by acc's
// client and stores the analytics. Unknown posts are skipped.
func (d Deps) storePost(ctx context.Context, acc *models.Account, platform models.Platform, vendorID string, a *models.PostAnalytics) (string, error) {
	if vendorID == "" {
		return "missing post id", nil
	}
	post, err := d.Posts.FindByPlatformPostID(ctx, acc.ClientID, platform, vendorID)
	if err != nil {
		return "", err
	}
	if post == nil {
		return "unknown post", nil
	}
	if err := d.Sink.StorePostAnalytics(ctx, post.ID, acc.ID, vendorID, a); err != nil {
		return "", err
	}
	return "", nil
}

func (d Deps) storeFollowers(ctx context.Context, acc *models.Account, followers, following int64) (string, error) {
	snap := models.FollowerSnapshot{
		Date:           d.now(),
		FollowerCount:  followers,
		FollowingCount: following,
	}
	if err := d.Sink.StoreFollowerAnalytics(ctx, acc.ID, snap); err != nil {
		return "", err
	}
	return "", nil
}

// metricSet flattens the shapes platforms use to report named metrics: a
// plain object, or a "data"/"insights"/"metrics"/"values" member holding
// either an object or an array of {name, value} / {name, values:[{value}]}.
func metricSet(v gjson.Result) map[string]gjson.Result {
	out := make(map[string]gjson.Result)
	if v.IsObject() {
		v.ForEach(func(k, val gjson.Result) bool {
			out[k.String()] = val
			return true
		})
	}
	for _, key := range []string{"data", "insights", "metrics", "values"} {
		l := v.Get(key)
		switch {
		case l.IsArray():
			for _, item := range l.Array() {
				name := item.Get("name").String()
				if name == "" {
					continue
				}
				val := item.Get("value")
				if !val.Exists() {
					val = item.Get("values.0.value")
				}
				out[name] = val
			}
		case l.IsObject():
			l.ForEach(func(k, val gjson.Result) bool {
				out[k.String()] = val
				return true
			})
		}
	}
	return out
}

// counterField names the PostAnalytics counter a vendor metric feeds.
type counterField int

const (
	fieldImpressions counterField = iota
	fieldReach
	fieldClicks
	fieldShares
	fieldSaves
	fieldComments
	fieldLikes
	fieldVideoViews
	fieldStoryExits
	fieldStoryTapsForward
	fieldStoryTapsBack
	fieldProfileVisits
	fieldWebsiteClicks
)

// add accumulates n into the field, so several vendor metrics can feed one
// counter (retweets and quotes both count as shares).
func add(a *models.PostAnalytics, f counterField, n int64) {
	switch f {
	case fieldImpressions:
		a.Impressions += n
	case fieldReach:
		a.Reach += n
	case fieldClicks:
		a.Clicks += n
	case fieldShares:
		a.Shares += n
	case fieldSaves:
		a.Saves += n
	case fieldComments:
		a.Comments += n
	case fieldLikes:
		a.Likes += n
	case fieldVideoViews:
		a.VideoViews += n
	case fieldStoryExits:
		a.StoryExits += n
	case fieldStoryTapsForward:
		a.StoryTapsForward += n
	case fieldStoryTapsBack:
		a.StoryTapsBack += n
	case fieldProfileVisits:
		a.ProfileVisits += n
	case fieldWebsiteClicks:
		a.WebsiteClicks += n
	}
}

// normalize maps a metric set onto a fresh analytics record using names.
// When several aliases exist for one counter only the first present one is
// used unless the mapping marks them additive.
func normalize(metrics map[string]gjson.Result, names []metricName) *models.PostAnalytics {
	a := &models.PostAnalytics{}
	used := make(map[counterField]bool)
	for _, m := range names {
		val, ok := metrics[m.name]
		if !ok {
			continue
		}
		if used[m.field] && !m.additive {
			continue
		}
		add(a, m.field, val.Int())
		used[m.field] = true
	}
	return a
}

type metricName struct {
	name     string
	field    counterField
	additive bool
}

// reactionsFrom reads a {kind: count} object.
func reactionsFrom(v gjson.Result) models.Reactions {
	if !v.IsObject() {
		return nil
	}
	r := models.Reactions{}
	v.ForEach(func(k, val gjson.Result) bool {
		r[k.String()] = val.Int()
		return true
	})
	return r
}
