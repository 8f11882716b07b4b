package webhook

import (
	"context"

	"github.com/maheshrc27/ghst/internal/models"
	"github.com/tidwall/gjson"
)

var tweetMetrics = []metricName{
	{name: "impressions", field: fieldImpressions},
	{name: "impression_count", field: fieldImpressions},
	{name: "likes", field: fieldLikes},
	{name: "like_count", field: fieldLikes},
	{name: "retweets", field: fieldShares, additive: true},
	{name: "retweet_count", field: fieldShares, additive: true},
	{name: "quote_tweets", field: fieldShares, additive: true},
	{name: "quote_count", field: fieldShares, additive: true},
	{name: "replies", field: fieldComments},
	{name: "reply_count", field: fieldComments},
	{name: "url_clicks", field: fieldClicks},
	{name: "url_link_clicks", field: fieldClicks},
	{name: "user_profile_clicks", field: fieldProfileVisits},
	{name: "bookmark_count", field: fieldSaves},
	{name: "video_views", field: fieldVideoViews},
}

// TwitterProcessor handles Account Activity API deliveries.
type TwitterProcessor struct {
	Deps
}

func NewTwitterProcessor(d Deps) *TwitterProcessor {
	return &TwitterProcessor{Deps: d}
}

func (p *TwitterProcessor) Platform() models.Platform {
	return models.PlatformTwitter
}

var twitterEvents = []string{"tweet_insights", "user_insights", "favorite_events", "tweet_create_events", "follow_events"}

func (p *TwitterProcessor) EventType(body []byte) string {
	root := gjson.ParseBytes(body)
	for _, key := range twitterEvents {
		if root.Get(key).Exists() {
			return key
		}
	}
	return "unknown"
}

func (p *TwitterProcessor) Process(ctx context.Context, body []byte) *Result {
	res := newResult(models.PlatformTwitter)
	if !gjson.ValidBytes(body) {
		res.fail("payload", "", ErrInvalidPayload)
		return res
	}
	root := gjson.ParseBytes(body)

	userID := root.Get("for_user_id").String()
	if userID == "" {
		res.skip("payload", "", "missing for_user_id")
		return res
	}
	acc, err := p.Accounts.GetActiveByPlatformUser(ctx, models.PlatformTwitter, userID)
	if err != nil {
		res.fail("account", userID, err)
		return res
	}
	if acc == nil {
		res.skip("account", userID, "unknown account")
		return res
	}

	handled := false
	for _, insight := range root.Get("tweet_insights").Array() {
		handled = true
		tweetID := insight.Get("tweet_id").String()
		res.run("tweet_insights", tweetID, func() (string, error) {
			a := normalize(metricSet(insight), tweetMetrics)
			return p.storePost(ctx, acc, models.PlatformTwitter, tweetID, a)
		})
	}

	if ui := root.Get("user_insights"); ui.Exists() {
		handled = true
		res.run("user_insights", userID, func() (string, error) {
			followers := firstInt(ui, "followers_count", "public_metrics.followers_count")
			following := firstInt(ui, "following_count", "friends_count", "public_metrics.following_count")
			return p.storeFollowers(ctx, acc, followers, following)
		})
	}

	for _, ev := range root.Get("favorite_events").Array() {
		handled = true
		tweet := ev.Get("favorited_status")
		res.run("favorite_events", tweet.Get("id_str").String(), func() (string, error) {
			return p.storeTweet(ctx, acc, tweet)
		})
	}

	for _, tweet := range root.Get("tweet_create_events").Array() {
		handled = true
		target := tweet
		if rt := tweet.Get("retweeted_status"); rt.Exists() {
			target = rt
		} else if q := tweet.Get("quoted_status"); q.Exists() {
			target = q
		}
		res.run("tweet_create_events", target.Get("id_str").String(), func() (string, error) {
			return p.storeTweet(ctx, acc, target)
		})
	}

	for _, ev := range root.Get("follow_events").Array() {
		handled = true
		target := ev.Get("target")
		res.run("follow_events", target.Get("id").String(), func() (string, error) {
			if target.Get("id").String() != userID {
				return "follow event for another user", nil
			}
			return p.storeFollowers(ctx, acc, target.Get("followers_count").Int(), target.Get("friends_count").Int())
		})
	}

	if !handled {
		res.skip("payload", userID, "no analytics events")
	}
	return res
}

// storeTweet records the engagement counts embedded in a tweet object.
func (p *TwitterProcessor) storeTweet(ctx context.Context, acc *models.Account, tweet gjson.Result) (string, error) {
	a := &models.PostAnalytics{
		Likes:    tweet.Get("favorite_count").Int(),
		Shares:   tweet.Get("retweet_count").Int() + tweet.Get("quote_count").Int(),
		Comments: tweet.Get("reply_count").Int(),
	}
	return p.storePost(ctx, acc, models.PlatformTwitter, tweet.Get("id_str").String(), a)
}
