package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/maheshrc27/ghst/internal/models"
	"github.com/maheshrc27/ghst/internal/repository"
	"github.com/maheshrc27/ghst/internal/repository/memory"
	"github.com/maheshrc27/ghst/internal/service"
)

func TestVerifyFacebook(t *testing.T) {
	body := []byte(`{"object":"page","entry":[]}`)
	mac := hmac.New(sha256.New, []byte("app-secret"))
	mac.Write(body)
	header := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	if !VerifyFacebook(body, header, "app-secret") {
		t.Fatal("valid signature rejected")
	}

	mutated := append([]byte{}, body...)
	mutated[len(mutated)-2] = '0'
	if VerifyFacebook(mutated, header, "app-secret") {
		t.Error("signature accepted for mutated body")
	}
	if VerifyFacebook(body, header, "other-secret") {
		t.Error("signature accepted with wrong secret")
	}
	if VerifyFacebook(body, "", "app-secret") {
		t.Error("missing header accepted")
	}
	if VerifyFacebook(body, header, "") {
		t.Error("empty secret accepted")
	}
}

func TestVerifyTwitterAndCRC(t *testing.T) {
	body := []byte(`{"for_user_id":"42"}`)
	mac := hmac.New(sha256.New, []byte("consumer"))
	mac.Write(body)
	header := "sha256=" + base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if !VerifyTwitter(body, header, "consumer") {
		t.Fatal("valid signature rejected")
	}
	if VerifyTwitter([]byte(`{"for_user_id":"43"}`), header, "consumer") {
		t.Error("signature accepted for mutated body")
	}

	crc := hmac.New(sha256.New, []byte("consumer"))
	crc.Write([]byte("challenge-token"))
	want := "sha256=" + base64.StdEncoding.EncodeToString(crc.Sum(nil))
	if got := TwitterCRCResponse("challenge-token", "consumer"); got != want {
		t.Errorf("crc response = %q, want %q", got, want)
	}
}

func TestVerifyLinkedIn(t *testing.T) {
	body := []byte(`{"followerStatistics":{}}`)
	mac := hmac.New(sha256.New, []byte("li"))
	mac.Write(body)
	sum := hex.EncodeToString(mac.Sum(nil))

	tests := []struct {
		name   string
		header string
		want   bool
	}{
		{"bare hex", sum, true},
		{"prefixed", "sha256=" + sum, true},
		{"wrong", "sha256=" + sum[:len(sum)-1] + "x", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifyLinkedIn(body, tt.header, "li"); got != tt.want {
				t.Errorf("VerifyLinkedIn() = %v, want %v", got, tt.want)
			}
		})
	}
}

type storedPost struct {
	postID, accountID int64
	vendorID          string
	analytics         models.PostAnalytics
}

type recordingSink struct {
	posts     []storedPost
	followers []models.FollowerSnapshot
	panicOn   string
	failOn    string
}

func (s *recordingSink) StorePostAnalytics(_ context.Context, postID, accountID int64, vendorID string, a *models.PostAnalytics) error {
	if vendorID == s.panicOn {
		panic("boom")
	}
	if vendorID == s.failOn {
		return errors.New("database unavailable")
	}
	s.posts = append(s.posts, storedPost{postID: postID, accountID: accountID, vendorID: vendorID, analytics: *a})
	return nil
}

func (s *recordingSink) StoreFollowerAnalytics(_ context.Context, _ int64, snap models.FollowerSnapshot) error {
	s.followers = append(s.followers, snap)
	return nil
}

type fixture struct {
	repos   *repository.Repositories
	sink    *recordingSink
	account *models.Account
	postID  int64
}

func newFixture(t *testing.T, platform models.Platform, platformUserID string, vendorPosts ...string) *fixture {
	t.Helper()
	ctx := context.Background()
	repos := memory.NewRepositories()

	acc := &models.Account{ClientID: 7, Platform: platform, PlatformUserID: platformUserID, IsActive: true}
	id, err := repos.Accounts.Create(ctx, acc)
	if err != nil {
		t.Fatal(err)
	}
	acc.ID = id

	var postID int64
	for _, v := range vendorPosts {
		postID, err = repos.Posts.Create(ctx, &models.Post{
			ClientID:      7,
			Content:       "hello",
			Platforms:     models.PlatformList{platform},
			PlatformPosts: models.PlatformPostIDs{platform: v},
			Status:        models.PostStatusPublished,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	return &fixture{repos: repos, sink: &recordingSink{}, account: acc, postID: postID}
}

func (f *fixture) deps() Deps {
	return Deps{
		Accounts: f.repos.Accounts,
		Posts:    f.repos.Posts,
		Sink:     f.sink,
		Now:      func() time.Time { return time.Date(2026, 3, 4, 15, 0, 0, 0, time.UTC) },
	}
}

func TestFacebookProcessorInstagramMediaInsights(t *testing.T) {
	f := newFixture(t, models.PlatformInstagram, "1784", "m1")
	p := NewFacebookProcessor(f.deps())

	body := []byte(`{"object":"instagram","entry":[{"id":"1784","time":1,"changes":[
		{"field":"media_insights","value":{"media_id":"m1","impressions":120,"reach":90,"saved":4,"likes":10,"plays":33}},
		{"field":"media_insights","value":{"media_id":"unknown","impressions":5}}
	]}]}`)

	if got := p.EventType(body); got != "instagram.media_insights" {
		t.Errorf("event type = %q", got)
	}

	res := p.Process(context.Background(), body)
	if res.Platform != models.PlatformInstagram {
		t.Errorf("result platform = %s, want instagram", res.Platform)
	}
	if res.Count(OutcomeOK) != 1 || res.Count(OutcomeSkipped) != 1 {
		t.Fatalf("entries = %+v", res.Entries)
	}
	if len(f.sink.posts) != 1 {
		t.Fatalf("stored %d posts, want 1", len(f.sink.posts))
	}
	got := f.sink.posts[0]
	if got.postID != f.postID || got.accountID != f.account.ID || got.vendorID != "m1" {
		t.Errorf("stored keys = %+v", got)
	}
	a := got.analytics
	if a.Impressions != 120 || a.Reach != 90 || a.Saves != 4 || a.Likes != 10 || a.VideoViews != 33 {
		t.Errorf("normalized = %+v", a)
	}
	if a.Comments != 0 {
		t.Errorf("missing metric should default to zero, got %d", a.Comments)
	}
}

func TestFacebookProcessorPageInsightsArrayShape(t *testing.T) {
	f := newFixture(t, models.PlatformFacebook, "page-1", "page-1_99")
	p := NewFacebookProcessor(f.deps())

	body := []byte(`{"object":"page","entry":[{"id":"page-1","changes":[{"field":"post_insights","value":{
		"post_id":"page-1_99",
		"insights":[
			{"name":"post_impressions","values":[{"value":400}]},
			{"name":"post_impressions_unique","value":250},
			{"name":"post_clicks","value":12},
			{"name":"post_reactions_by_type_total","value":{"like":5,"love":2}}
		]}}]}]}`)

	res := p.Process(context.Background(), body)
	if res.Count(OutcomeOK) != 1 {
		t.Fatalf("entries = %+v", res.Entries)
	}
	a := f.sink.posts[0].analytics
	if a.Impressions != 400 || a.Reach != 250 || a.Clicks != 12 {
		t.Errorf("normalized = %+v", a)
	}
	if a.Likes != 7 || a.Reactions["love"] != 2 {
		t.Errorf("reactions = %v likes = %d", a.Reactions, a.Likes)
	}
}

func TestFacebookProcessorKeepsGoingAfterBadEntries(t *testing.T) {
	f := newFixture(t, models.PlatformInstagram, "1784", "m1")
	f.sink.panicOn = "m1"
	p := NewFacebookProcessor(f.deps())

	body := []byte(`{"object":"instagram","entry":[
		{"changes":[{"field":"media_insights","value":{"media_id":"m1"}}]},
		{"id":"1784","changes":[
			{"field":"media_insights","value":{"media_id":"m1","impressions":1}},
			{"field":"followers","value":{"follower_count":310}}
		]}
	]}`)

	res := p.Process(context.Background(), body)
	if res.Count(OutcomeError) != 1 {
		t.Errorf("errors = %d, want 1 (recovered panic)", res.Count(OutcomeError))
	}
	if res.Count(OutcomeSkipped) != 1 {
		t.Errorf("skipped = %d, want 1 (entry without id)", res.Count(OutcomeSkipped))
	}
	if len(f.sink.followers) != 1 || f.sink.followers[0].FollowerCount != 310 {
		t.Errorf("followers = %+v", f.sink.followers)
	}
}

func TestFacebookProcessorRejectsInvalidJSON(t *testing.T) {
	f := newFixture(t, models.PlatformFacebook, "page-1")
	res := NewFacebookProcessor(f.deps()).Process(context.Background(), []byte(`{not json`))
	if res.Count(OutcomeError) != 1 || !errors.Is(res.Entries[0].Err, ErrInvalidPayload) {
		t.Errorf("entries = %+v", res.Entries)
	}
}

func TestTwitterProcessor(t *testing.T) {
	f := newFixture(t, models.PlatformTwitter, "42", "1001", "1002")
	f.sink.failOn = "1002"
	p := NewTwitterProcessor(f.deps())

	body := []byte(`{"for_user_id":"42",
		"tweet_insights":[
			{"tweet_id":"1001","impressions":900,"likes":30,"retweets":4,"quote_tweets":2,"replies":6,"url_clicks":8},
			{"tweet_id":"555","impressions":1},
			{"tweet_id":"1002","impressions":3}
		],
		"user_insights":{"followers_count":1500,"following_count":80}}`)

	res := p.Process(context.Background(), body)
	if res.Count(OutcomeOK) != 2 {
		t.Errorf("ok = %d, want 2; entries = %+v", res.Count(OutcomeOK), res.Entries)
	}
	if res.Count(OutcomeSkipped) != 1 || res.Count(OutcomeError) != 1 {
		t.Errorf("entries = %+v", res.Entries)
	}

	a := f.sink.posts[0].analytics
	if a.Impressions != 900 || a.Likes != 30 || a.Shares != 6 || a.Comments != 6 || a.Clicks != 8 {
		t.Errorf("normalized = %+v", a)
	}
	if len(f.sink.followers) != 1 || f.sink.followers[0].FollowerCount != 1500 || f.sink.followers[0].FollowingCount != 80 {
		t.Errorf("followers = %+v", f.sink.followers)
	}
}

func TestTwitterProcessorRetweetTargetsOriginal(t *testing.T) {
	f := newFixture(t, models.PlatformTwitter, "42", "1001")
	p := NewTwitterProcessor(f.deps())

	body := []byte(`{"for_user_id":"42","tweet_create_events":[
		{"id_str":"2002","retweeted_status":{"id_str":"1001","favorite_count":11,"retweet_count":3,"quote_count":1,"reply_count":2}}
	]}`)
	p.Process(context.Background(), body)

	if len(f.sink.posts) != 1 {
		t.Fatalf("stored %d posts, want 1", len(f.sink.posts))
	}
	a := f.sink.posts[0].analytics
	if f.sink.posts[0].vendorID != "1001" || a.Likes != 11 || a.Shares != 4 || a.Comments != 2 {
		t.Errorf("stored = %+v", f.sink.posts[0])
	}
}

func TestTwitterProcessorUnknownAccount(t *testing.T) {
	f := newFixture(t, models.PlatformTwitter, "42")
	res := NewTwitterProcessor(f.deps()).Process(context.Background(), []byte(`{"for_user_id":"99","user_insights":{"followers_count":1}}`))
	if res.Count(OutcomeSkipped) != 1 || len(f.sink.followers) != 0 {
		t.Errorf("entries = %+v", res.Entries)
	}
}

func TestLinkedInProcessorResolvesBareOrganizationID(t *testing.T) {
	f := newFixture(t, models.PlatformLinkedIn, "12345", "urn:li:share:77")
	p := NewLinkedInProcessor(f.deps())

	body := []byte(`{"organizationalEntity":"urn:li:organization:12345",
		"shareStatistics":{"share":"urn:li:share:77","totalShareStatistics":{
			"impressionCount":500,"uniqueImpressionsCount":320,"clickCount":14,"likeCount":21,"commentCount":3,"shareCount":2}},
		"followerStatistics":{"followerCounts":{"organicFollowerCount":70,"paidFollowerCount":5}}}`)

	if got := p.EventType(body); got != "shareStatistics" {
		t.Errorf("event type = %q", got)
	}
	res := p.Process(context.Background(), body)
	if res.Count(OutcomeOK) != 2 {
		t.Fatalf("entries = %+v", res.Entries)
	}
	a := f.sink.posts[0].analytics
	if a.Impressions != 500 || a.Reach != 320 || a.Clicks != 14 || a.Likes != 21 || a.Comments != 3 || a.Shares != 2 {
		t.Errorf("normalized = %+v", a)
	}
	if f.sink.followers[0].FollowerCount != 75 {
		t.Errorf("follower count = %d, want 75", f.sink.followers[0].FollowerCount)
	}
}

func TestLinkedInProcessorNoEvents(t *testing.T) {
	f := newFixture(t, models.PlatformLinkedIn, "12345")
	res := NewLinkedInProcessor(f.deps()).Process(context.Background(), []byte(`{"organization":"12345"}`))
	if res.Count(OutcomeSkipped) != 1 || res.Entries[0].Reason != "no analytics events" {
		t.Errorf("entries = %+v", res.Entries)
	}
}

func TestFacebookPartialDeliveryKeepsEngagementRate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, models.PlatformFacebook, "page-1", "page-1_99")
	deps := f.deps()
	deps.Sink = service.NewAnalyticsService(f.repos.PostAnalytics, f.repos.Followers, f.repos.Posts, f.repos.Accounts)
	p := NewFacebookProcessor(deps)

	deliveries := []struct {
		body string
		rate float64
	}{
		{`{"object":"page","entry":[{"id":"page-1","changes":[{"field":"post_insights","value":{
			"post_id":"page-1_99","post_impressions":1000,"post_clicks":50}}]}]}`, 5},
		{`{"object":"page","entry":[{"id":"page-1","changes":[{"field":"feed","value":{
			"post_id":"page-1_99","comment_count":20}}]}]}`, 7},
	}
	for i, d := range deliveries {
		res := p.Process(ctx, []byte(d.body))
		if res.Count(OutcomeOK) != 1 {
			t.Fatalf("delivery %d entries = %+v", i, res.Entries)
		}
		got, err := f.repos.PostAnalytics.Get(ctx, f.postID, f.account.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got == nil {
			t.Fatalf("delivery %d stored nothing", i)
		}
		if math.Abs(got.EngagementRate-d.rate) > 1e-9 {
			t.Errorf("delivery %d: rate = %v, want %v (row %+v)", i, got.EngagementRate, d.rate, got)
		}
	}

	got, _ := f.repos.PostAnalytics.Get(ctx, f.postID, f.account.ID)
	if got.Impressions != 1000 || got.Clicks != 50 || got.Comments != 20 {
		t.Errorf("counters = %+v", got)
	}
}
