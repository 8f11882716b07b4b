package webhook

import (
	"context"
	"fmt"

	"github.com/maheshrc27/ghst/internal/models"
	"github.com/tidwall/gjson"
)

var facebookPostMetrics = []metricName{
	{name: "post_impressions", field: fieldImpressions},
	{name: "impressions", field: fieldImpressions},
	{name: "post_impressions_unique", field: fieldReach},
	{name: "reach", field: fieldReach},
	{name: "post_clicks", field: fieldClicks},
	{name: "clicks", field: fieldClicks},
	{name: "post_shares", field: fieldShares},
	{name: "shares", field: fieldShares},
	{name: "post_comments", field: fieldComments},
	{name: "comments", field: fieldComments},
	{name: "post_video_views", field: fieldVideoViews},
	{name: "video_views", field: fieldVideoViews},
}

var instagramMediaMetrics = []metricName{
	{name: "impressions", field: fieldImpressions},
	{name: "views", field: fieldImpressions},
	{name: "reach", field: fieldReach},
	{name: "likes", field: fieldLikes},
	{name: "comments", field: fieldComments},
	{name: "shares", field: fieldShares},
	{name: "saved", field: fieldSaves},
	{name: "saves", field: fieldSaves},
	{name: "plays", field: fieldVideoViews},
	{name: "video_views", field: fieldVideoViews},
	{name: "profile_visits", field: fieldProfileVisits},
	{name: "website_clicks", field: fieldWebsiteClicks},
}

var instagramStoryMetrics = []metricName{
	{name: "impressions", field: fieldImpressions},
	{name: "reach", field: fieldReach},
	{name: "exits", field: fieldStoryExits},
	{name: "taps_forward", field: fieldStoryTapsForward},
	{name: "taps_back", field: fieldStoryTapsBack},
	{name: "replies", field: fieldComments},
}

// FacebookProcessor handles deliveries for both Facebook pages and Instagram
// business accounts, which share the Graph API webhook endpoint.
type FacebookProcessor struct {
	Deps
}

func NewFacebookProcessor(d Deps) *FacebookProcessor {
	return &FacebookProcessor{Deps: d}
}

func (p *FacebookProcessor) Platform() models.Platform {
	return models.PlatformFacebook
}

func (p *FacebookProcessor) EventType(body []byte) string {
	root := gjson.ParseBytes(body)
	object := root.Get("object").String()
	if object == "" {
		return "unknown"
	}
	if field := root.Get("entry.0.changes.0.field").String(); field != "" {
		return object + "." + field
	}
	return object
}

func (p *FacebookProcessor) Process(ctx context.Context, body []byte) *Result {
	res := newResult(models.PlatformFacebook)
	if !gjson.ValidBytes(body) {
		res.fail("payload", "", ErrInvalidPayload)
		return res
	}
	root := gjson.ParseBytes(body)

	var platform models.Platform
	switch object := root.Get("object").String(); object {
	case "instagram":
		platform = models.PlatformInstagram
		res.Platform = platform
	case "page":
		platform = models.PlatformFacebook
	default:
		res.skip("object", object, "unsupported object")
		return res
	}

	for _, entry := range root.Get("entry").Array() {
		entryID := entry.Get("id").String()
		changes := entry.Get("changes").Array()
		if len(changes) == 0 {
			res.skip("entry", entryID, "no changes")
			continue
		}

		acc, err := p.Accounts.GetActiveByPlatformUser(ctx, platform, entryID)
		if err != nil {
			res.fail("entry", entryID, err)
			continue
		}
		if acc == nil {
			res.skip("entry", entryID, "unknown account")
			continue
		}

		for _, change := range changes {
			field := change.Get("field").String()
			value := change.Get("value")
			res.run(field, entryID, func() (string, error) {
				if platform == models.PlatformInstagram {
					return p.instagramChange(ctx, acc, field, value)
				}
				return p.pageChange(ctx, acc, field, value)
			})
		}
	}
	return res
}

func (p *FacebookProcessor) instagramChange(ctx context.Context, acc *models.Account, field string, value gjson.Result) (string, error) {
	switch field {
	case "media_insights":
		a := normalize(metricSet(value), instagramMediaMetrics)
		return p.storePost(ctx, acc, models.PlatformInstagram, value.Get("media_id").String(), a)
	case "story_insights":
		a := normalize(metricSet(value), instagramStoryMetrics)
		return p.storePost(ctx, acc, models.PlatformInstagram, value.Get("media_id").String(), a)
	case "followers":
		count := firstInt(value, "follower_count", "followers_count", "value")
		return p.storeFollowers(ctx, acc, count, firstInt(value, "follows_count", "following_count"))
	case "comments", "mentions":
		return "not an analytics event", nil
	default:
		return fmt.Sprintf("unhandled field %q", field), nil
	}
}

func (p *FacebookProcessor) pageChange(ctx context.Context, acc *models.Account, field string, value gjson.Result) (string, error) {
	switch field {
	case "post_insights":
		set := metricSet(value)
		a := normalize(set, facebookPostMetrics)
		if r, ok := set["post_reactions_by_type_total"]; ok {
			a.Reactions = reactionsFrom(r)
			a.Likes = a.Reactions.Total()
		}
		return p.storePost(ctx, acc, models.PlatformFacebook, value.Get("post_id").String(), a)
	case "feed":
		postID := value.Get("post_id").String()
		if postID == "" {
			return "feed event without post", nil
		}
		a := &models.PostAnalytics{
			Shares:   firstInt(value, "shares.count", "share_count"),
			Comments: firstInt(value, "comments.summary.total_count", "comment_count"),
			Likes:    firstInt(value, "reactions.summary.total_count", "reaction_count", "like_count"),
		}
		return p.storePost(ctx, acc, models.PlatformFacebook, postID, a)
	case "followers", "page_fans":
		count := firstInt(value, "page_fans", "follower_count", "value")
		return p.storeFollowers(ctx, acc, count, 0)
	default:
		return fmt.Sprintf("unhandled field %q", field), nil
	}
}

// firstInt returns the first present path as an integer, zero when none is.
func firstInt(v gjson.Result, paths ...string) int64 {
	for _, path := range paths {
		if r := v.Get(path); r.Exists() {
			return r.Int()
		}
	}
	return 0
}
