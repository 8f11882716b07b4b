package webhook

import (
	"context"
	"strings"

	"github.com/maheshrc27/ghst/internal/models"
	"github.com/tidwall/gjson"
)

var linkedinShareMetrics = []metricName{
	{name: "impressionCount", field: fieldImpressions},
	{name: "uniqueImpressionsCount", field: fieldReach},
	{name: "clickCount", field: fieldClicks},
	{name: "likeCount", field: fieldLikes},
	{name: "commentCount", field: fieldComments},
	{name: "shareCount", field: fieldShares},
	{name: "videoViews", field: fieldVideoViews},
}

type LinkedInProcessor struct {
	Deps
}

func NewLinkedInProcessor(d Deps) *LinkedInProcessor {
	return &LinkedInProcessor{Deps: d}
}

func (p *LinkedInProcessor) Platform() models.Platform {
	return models.PlatformLinkedIn
}

func (p *LinkedInProcessor) EventType(body []byte) string {
	root := gjson.ParseBytes(body)
	for _, key := range []string{"shareStatistics", "socialActions", "followerStatistics"} {
		if root.Get(key).Exists() {
			return key
		}
	}
	if root.Get("elements.0.totalShareStatistics").Exists() {
		return "shareStatistics"
	}
	return "unknown"
}

func (p *LinkedInProcessor) Process(ctx context.Context, body []byte) *Result {
	res := newResult(models.PlatformLinkedIn)
	if !gjson.ValidBytes(body) {
		res.fail("payload", "", ErrInvalidPayload)
		return res
	}
	root := gjson.ParseBytes(body)

	owner := firstString(root, "organizationalEntity", "organization", "owner",
		"elements.0.organizationalEntity", "shareStatistics.organizationalEntity")
	acc, err := p.account(ctx, owner)
	if err != nil {
		res.fail("account", owner, err)
		return res
	}
	if acc == nil {
		res.skip("account", owner, "unknown account")
		return res
	}

	handled := false

	var shares []gjson.Result
	if ss := root.Get("shareStatistics"); ss.IsArray() {
		shares = ss.Array()
	} else if ss.Exists() {
		shares = []gjson.Result{ss}
	}
	for _, el := range root.Get("elements").Array() {
		if el.Get("totalShareStatistics").Exists() {
			shares = append(shares, el)
		}
	}
	for _, stat := range shares {
		handled = true
		shareID := firstString(stat, "share", "ugcPost", "shareUrn")
		res.run("shareStatistics", shareID, func() (string, error) {
			a := normalize(metricSet(stat.Get("totalShareStatistics")), linkedinShareMetrics)
			return p.storePost(ctx, acc, models.PlatformLinkedIn, shareID, a)
		})
	}

	if sa := root.Get("socialActions"); sa.Exists() {
		handled = true
		items := sa.Array()
		if !sa.IsArray() {
			items = []gjson.Result{sa}
		}
		for _, item := range items {
			target := firstString(item, "target", "object", "share")
			res.run("socialActions", target, func() (string, error) {
				a := &models.PostAnalytics{
					Likes:    firstInt(item, "likesSummary.totalLikes", "likeCount"),
					Comments: firstInt(item, "commentsSummary.aggregatedTotalComments", "commentsSummary.totalFirstLevelComments", "commentCount"),
				}
				return p.storePost(ctx, acc, models.PlatformLinkedIn, target, a)
			})
		}
	}

	if fs := root.Get("followerStatistics"); fs.Exists() {
		handled = true
		res.run("followerStatistics", owner, func() (string, error) {
			count := firstInt(fs, "followerCount", "firstDegreeSize")
			if count == 0 {
				count = fs.Get("followerCounts.organicFollowerCount").Int() + fs.Get("followerCounts.paidFollowerCount").Int()
			}
			return p.storeFollowers(ctx, acc, count, 0)
		})
	}

	if !handled {
		res.skip("payload", owner, "no analytics events")
	}
	return res
}

// account looks the owner up by its full URN first, then by the bare id.
func (p *LinkedInProcessor) account(ctx context.Context, owner string) (*models.Account, error) {
	if owner == "" {
		return nil, nil
	}
	acc, err := p.Accounts.GetActiveByPlatformUser(ctx, models.PlatformLinkedIn, owner)
	if err != nil || acc != nil {
		return acc, err
	}
	if i := strings.LastIndex(owner, ":"); i >= 0 && i < len(owner)-1 {
		return p.Accounts.GetActiveByPlatformUser(ctx, models.PlatformLinkedIn, owner[i+1:])
	}
	return nil, nil
}

func firstString(v gjson.Result, paths ...string) string {
	for _, path := range paths {
		if s := v.Get(path).String(); s != "" {
			return s
		}
	}
	return ""
}
