package service

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/maheshrc27/ghst/internal/models"
	"github.com/maheshrc27/ghst/internal/repository"
	"github.com/maheshrc27/ghst/internal/repository/memory"
	"github.com/maheshrc27/ghst/internal/storage"
	"github.com/maheshrc27/ghst/internal/transfer"
	"github.com/maheshrc27/ghst/pkg/utils"
)

var (
	pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), bytes.Repeat([]byte{0}, 32)...)
	pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n%%EOF\n")
)

func TestStoreFollowerAnalyticsGrowth(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewRepositories()
	svc := NewAnalyticsService(repos.PostAnalytics, repos.Followers, repos.Posts, repos.Accounts)

	day1 := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	day2 := day1.Add(26 * time.Hour)

	steps := []struct {
		at         time.Time
		count      int64
		wantGrowth int64
	}{
		{day1, 100, 100},
		{day2, 130, 30},
		{day2.Add(time.Hour), 125, 25},
	}
	for _, st := range steps {
		if err := svc.StoreFollowerAnalytics(ctx, 4, models.FollowerSnapshot{Date: st.at, FollowerCount: st.count}); err != nil {
			t.Fatal(err)
		}
		row, err := repos.Followers.LatestBefore(ctx, 4, truncateDay(st.at).Add(24*time.Hour))
		if err != nil {
			t.Fatal(err)
		}
		if row.FollowerCount != st.count || row.DailyGrowth != st.wantGrowth {
			t.Errorf("at %s: row = %+v, want count %d growth %d", st.at, row, st.count, st.wantGrowth)
		}
	}
}

func TestStorePostAnalyticsComputesRate(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewRepositories()
	svc := NewAnalyticsService(repos.PostAnalytics, repos.Followers, repos.Posts, repos.Accounts)

	if err := svc.StorePostAnalytics(ctx, 1, 2, "v", &models.PostAnalytics{Impressions: 200, Likes: 10, Comments: 10}); err != nil {
		t.Fatal(err)
	}
	// a stale delivery cannot lower counters, but the rate follows it
	if err := svc.StorePostAnalytics(ctx, 1, 2, "v", &models.PostAnalytics{Impressions: 100, Likes: 5}); err != nil {
		t.Fatal(err)
	}
	got, _ := repos.PostAnalytics.Get(ctx, 1, 2)
	if got.Impressions != 200 || got.Likes != 10 {
		t.Errorf("counters regressed: %+v", got)
	}
	if got.EngagementRate != 5 {
		t.Errorf("engagement rate = %v, want 5 from latest delivery", got.EngagementRate)
	}

	if err := svc.UpdateEngagementRate(ctx, 1, 2); err != nil {
		t.Fatal(err)
	}
	got, _ = repos.PostAnalytics.Get(ctx, 1, 2)
	if got.EngagementRate != 10 {
		t.Errorf("recomputed rate = %v, want 10", got.EngagementRate)
	}

	if err := svc.UpdateEngagementRate(ctx, 9, 9); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestFollowerHistoryScopedToClient(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewRepositories()
	svc := NewAnalyticsService(repos.PostAnalytics, repos.Followers, repos.Posts, repos.Accounts)

	accID, _ := repos.Accounts.Create(ctx, &models.Account{ClientID: 1, Platform: models.PlatformTwitter, PlatformUserID: "u", IsActive: true})
	_ = svc.StoreFollowerAnalytics(ctx, accID, models.FollowerSnapshot{Date: time.Now(), FollowerCount: 3})

	rows, err := svc.FollowerHistory(ctx, 1, accID, 7)
	if err != nil || len(rows) != 1 {
		t.Fatalf("rows = %v, err = %v", rows, err)
	}
	if _, err := svc.FollowerHistory(ctx, 2, accID, 7); !errors.Is(err, ErrNotFound) {
		t.Errorf("other client err = %v, want ErrNotFound", err)
	}
}

func TestApiKeyLimit(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewRepositories()
	svc := NewApiKeyService(repos.ApiKeys)

	var first *models.ApiKey
	for i := 0; i < maxApiKeys; i++ {
		k, err := svc.Create(ctx, 3)
		if err != nil {
			t.Fatal(err)
		}
		if first == nil {
			first = k
		}
	}
	if _, err := svc.Create(ctx, 3); !errors.Is(err, ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}

	clientID, err := svc.GetClientID(ctx, first.ApiKey)
	if err != nil || clientID != 3 {
		t.Errorf("GetClientID() = %d, %v", clientID, err)
	}
	if err := svc.RemoveAPIKey(ctx, 4, first.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("remove by other client err = %v", err)
	}
	if err := svc.RemoveAPIKey(ctx, 3, first.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.GetClientID(ctx, first.ApiKey); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("removed key err = %v", err)
	}
}

func newPostService(repos *repository.Repositories) PostService {
	return NewPostService(repos, storage.NewMemoryStore("https://media.test"))
}

func TestCreatePost(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewRepositories()
	svc := newPostService(repos)

	draft, delay, err := svc.CreatePost(ctx, 1, &transfer.PostCreation{Content: " hello ", Platforms: []string{"x", "twitter", "linkedin"}})
	if err != nil {
		t.Fatal(err)
	}
	if draft.Status != models.PostStatusDraft || delay != 0 {
		t.Errorf("status = %s delay = %v", draft.Status, delay)
	}
	if len(draft.Platforms) != 2 || draft.Content != "hello" {
		t.Errorf("post = %+v", draft)
	}

	at := time.Now().Add(time.Hour)
	scheduled, delay, err := svc.CreatePost(ctx, 1, &transfer.PostCreation{Content: "later", Platforms: []string{"facebook"}, ScheduledAt: &at})
	if err != nil {
		t.Fatal(err)
	}
	if scheduled.Status != models.PostStatusScheduled || delay <= 50*time.Minute {
		t.Errorf("status = %s delay = %v", scheduled.Status, delay)
	}

	if _, _, err := svc.CreatePost(ctx, 1, &transfer.PostCreation{Platforms: []string{"facebook"}}); !errors.Is(err, ErrValidation) {
		t.Errorf("empty content err = %v", err)
	}

	other, err := svc.UploadMedia(ctx, 2, "a.png", pngBytes)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.CreatePost(ctx, 1, &transfer.PostCreation{Content: "x", Platforms: []string{"facebook"}, MediaIDs: []int64{other.ID}}); !errors.Is(err, ErrValidation) {
		t.Errorf("foreign media err = %v", err)
	}
}

func TestUploadMedia(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewRepositories()
	svc := newPostService(repos)

	asset, err := svc.UploadMedia(ctx, 1, "../../photo.png", pngBytes)
	if err != nil {
		t.Fatal(err)
	}
	if asset.FileType != "image/png" || asset.FileName != "photo.png" || asset.FileSize != int64(len(pngBytes)) {
		t.Errorf("asset = %+v", asset)
	}

	if _, err := svc.UploadMedia(ctx, 1, "doc.pdf", pdfBytes); !errors.Is(err, ErrValidation) {
		t.Errorf("pdf upload err = %v, want ErrValidation", err)
	}
}

func TestSchedulePostStates(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewRepositories()
	svc := newPostService(repos)

	post, _, _ := svc.CreatePost(ctx, 1, &transfer.PostCreation{Content: "x", Platforms: []string{"facebook"}})
	if _, err := svc.Schedule(ctx, 2, post.ID, time.Now()); !errors.Is(err, ErrNotFound) {
		t.Errorf("other client err = %v", err)
	}
	if _, err := svc.Schedule(ctx, 1, post.ID, time.Now().Add(time.Minute)); err != nil {
		t.Fatal(err)
	}

	_ = repos.Posts.UpdatePostStatus(ctx, post.ID, models.PostStatusPublished, "")
	if _, err := svc.Schedule(ctx, 1, post.ID, time.Now()); !errors.Is(err, ErrValidation) {
		t.Errorf("published post err = %v", err)
	}
}

func TestRescheduleClearsRetryQueue(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewRepositories()
	svc := newPostService(repos)

	post, _, _ := svc.CreatePost(ctx, 1, &transfer.PostCreation{Content: "x", Platforms: []string{"twitter"}})
	_ = repos.Posts.UpdatePostStatus(ctx, post.ID, models.PostStatusFailed, "twitter: timeout")
	_ = repos.RetryQueue.Enqueue(ctx, &models.RetryQueueEntry{
		PostID: post.ID, Platform: models.PlatformTwitter, MaxAttempts: 3, RetryAfter: time.Now(),
	})

	if _, err := svc.Schedule(ctx, 1, post.ID, time.Now()); err != nil {
		t.Fatal(err)
	}
	if n, _ := repos.RetryQueue.CountByPostID(ctx, post.ID); n != 0 {
		t.Errorf("retry entries after reschedule = %d, want 0", n)
	}
	got, _ := repos.Posts.GetByID(ctx, post.ID)
	if got.Status != models.PostStatusScheduled || got.LastError != "" {
		t.Errorf("post = %s %q", got.Status, got.LastError)
	}
}

const testToken = "abcdefghijklmnopqrstuvwxyz012345"

type shareFixture struct {
	repos    *repository.Repositories
	svc      ShareService
	store    *storage.MemoryStore
	reportID int64
}

func newShareFixture(t *testing.T) *shareFixture {
	t.Helper()
	ctx := context.Background()
	repos := memory.NewRepositories()
	store := storage.NewMemoryStore("https://media.test")

	report, err := NewReportService(repos, store).CreateReport(ctx, 1, "Q1 report", pdfBytes)
	if err != nil {
		t.Fatal(err)
	}
	return &shareFixture{repos: repos, svc: NewShareService(repos, store, "https://app.test/"), store: store, reportID: report.ID}
}

func (f *shareFixture) link(t *testing.T, mutate func(*models.ShareLink)) *models.ShareLink {
	t.Helper()
	link := &models.ShareLink{
		ClientID:    1,
		Kind:        models.ShareKindReport,
		ResourceID:  f.reportID,
		Token:       testToken,
		Permissions: models.PermissionSet{models.PermissionView},
	}
	if mutate != nil {
		mutate(link)
	}
	id, err := f.repos.Shares.Create(context.Background(), link)
	if err != nil {
		t.Fatal(err)
	}
	link.ID = id
	return link
}

func (f *shareFixture) counts(t *testing.T, id int64) (int, int) {
	t.Helper()
	l, err := f.repos.Shares.GetByID(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	return l.ViewCount, l.DownloadCount
}

func denialStatusOf(err error) int {
	var d *Denial
	if errors.As(err, &d) {
		return d.Status
	}
	return 0
}

func TestShareGateDenials(t *testing.T) {
	past := time.Now().Add(-time.Hour)

	tests := []struct {
		name   string
		mutate func(*models.ShareLink)
		req    AccessRequest
		status int
	}{
		{"bad token format", nil, AccessRequest{Token: "short"}, http.StatusNotFound},
		{"unknown token", nil, AccessRequest{Token: "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz"}, http.StatusNotFound},
		{"expired", func(l *models.ShareLink) { l.ExpiresAt = &past }, AccessRequest{Token: testToken}, http.StatusGone},
		{"ip not allowed", func(l *models.ShareLink) { l.AllowedIPs = models.StringList{"10.0.0.0/8"} }, AccessRequest{Token: testToken, IP: "192.168.1.1"}, http.StatusForbidden},
		{"download without permission", nil, AccessRequest{Token: testToken, Action: models.ShareActionDownload}, http.StatusForbidden},
		{"view limit", func(l *models.ShareLink) { l.MaxViews = 1 }, AccessRequest{Token: testToken}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newShareFixture(t)
			link := f.link(t, tt.mutate)
			if tt.name == "view limit" {
				if _, err := f.svc.OpenReport(context.Background(), tt.req); err != nil {
					t.Fatal(err)
				}
			}

			_, err := f.svc.OpenReport(context.Background(), tt.req)
			if got := denialStatusOf(err); got != tt.status {
				t.Fatalf("status = %d (err %v), want %d", got, err, tt.status)
			}

			views, downloads := f.counts(t, link.ID)
			wantViews := 0
			if tt.name == "view limit" {
				wantViews = 1
			}
			if views != wantViews || downloads != 0 {
				t.Errorf("counters = %d/%d after denial", views, downloads)
			}
		})
	}
}

func TestShareGateAllowsCIDRAndLogsAccess(t *testing.T) {
	ctx := context.Background()
	f := newShareFixture(t)
	link := f.link(t, func(l *models.ShareLink) {
		l.AllowedIPs = models.StringList{"203.0.113.7", "10.0.0.0/8"}
		l.Permissions = models.PermissionSet{models.PermissionView, models.PermissionDownload}
	})

	rep, err := f.svc.OpenReport(ctx, AccessRequest{Token: testToken, IP: "10.1.2.3", UserAgent: "test"})
	if err != nil {
		t.Fatal(err)
	}
	if rep.Report.Title != "Q1 report" || !rep.CanDownload || rep.PDF != nil {
		t.Errorf("report = %+v", rep)
	}

	dl, err := f.svc.OpenReport(ctx, AccessRequest{Token: testToken, IP: "::ffff:203.0.113.7", Action: models.ShareActionDownload})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dl.PDF, pdfBytes) {
		t.Error("pdf body mismatch")
	}

	views, downloads := f.counts(t, link.ID)
	if views != 1 || downloads != 1 {
		t.Errorf("counters = %d/%d, want 1/1", views, downloads)
	}
	logs, _ := f.svc.AccessLogs(ctx, 1, link.ID)
	if len(logs) != 2 || logs[0].Action != models.ShareActionDownload {
		t.Errorf("logs = %+v", logs)
	}
	if _, err := f.svc.AccessLogs(ctx, 2, link.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("other client err = %v", err)
	}
}

func TestSharePasswordFlow(t *testing.T) {
	ctx := context.Background()
	f := newShareFixture(t)

	created, err := f.svc.Create(ctx, 1, 10, &transfer.ShareCreation{Kind: "report", ResourceID: f.reportID, Password: "hunter22"})
	if err != nil {
		t.Fatal(err)
	}
	if created.URL != "https://app.test/shared/report?token="+created.Token {
		t.Errorf("url = %q", created.URL)
	}

	_, err = f.svc.OpenReport(ctx, AccessRequest{Token: created.Token})
	if !errors.Is(err, ErrPasswordRequired) {
		t.Fatalf("err = %v, want ErrPasswordRequired", err)
	}
	if views, _ := f.counts(t, created.ID); views != 0 {
		t.Errorf("password prompt counted a view")
	}

	if _, err := f.svc.Unlock(ctx, models.ShareKindReport, created.Token, "", "wrong"); !errors.Is(err, ErrWrongPassword) {
		t.Errorf("wrong password err = %v", err)
	}
	link, err := f.svc.Unlock(ctx, models.ShareKindReport, created.Token, "", "hunter22")
	if err != nil {
		t.Fatal(err)
	}

	unlocked := func(id int64) bool { return id == link.ID }
	if _, err := f.svc.OpenReport(ctx, AccessRequest{Token: created.Token, Unlocked: unlocked}); err != nil {
		t.Fatalf("unlocked open err = %v", err)
	}
}

func TestShareCreateAndRevoke(t *testing.T) {
	ctx := context.Background()
	f := newShareFixture(t)

	if _, err := f.svc.Create(ctx, 2, 10, &transfer.ShareCreation{Kind: "report", ResourceID: f.reportID}); !errors.Is(err, ErrValidation) {
		t.Errorf("foreign report err = %v", err)
	}
	past := time.Now().Add(-time.Minute)
	if _, err := f.svc.Create(ctx, 1, 10, &transfer.ShareCreation{Kind: "report", ResourceID: f.reportID, ExpiresAt: &past}); !errors.Is(err, ErrValidation) {
		t.Errorf("past expiry err = %v", err)
	}

	created, err := f.svc.Create(ctx, 1, 10, &transfer.ShareCreation{Kind: "report", ResourceID: f.reportID})
	if err != nil {
		t.Fatal(err)
	}
	link, _ := f.repos.Shares.GetByID(ctx, created.ID)
	if len(link.Permissions) != 1 || !link.Permissions.Has(models.PermissionView) {
		t.Errorf("default permissions = %v", link.Permissions)
	}

	if err := f.svc.Revoke(ctx, 1, created.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.OpenReport(ctx, AccessRequest{Token: created.Token}); denialStatusOf(err) != http.StatusNotFound {
		t.Errorf("revoked share err = %v", err)
	}
}

func TestSharedCampaignAnalyticsPermission(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewRepositories()
	svc := NewShareService(repos, storage.NewMemoryStore(""), "")

	campaign, _ := NewReportService(repos, nil).CreateCampaign(ctx, 1, "Launch")
	postID, _ := repos.Posts.Create(ctx, &models.Post{ClientID: 1, CampaignID: &campaign.ID, Content: "x", Status: models.PostStatusPublished})
	_ = repos.PostAnalytics.Upsert(ctx, &models.PostAnalytics{PostID: postID, AccountID: 1, PlatformPostID: "p", Impressions: 10})

	for _, withAnalytics := range []bool{false, true} {
		perms := []string{"view"}
		if withAnalytics {
			perms = append(perms, "analytics")
		}
		created, err := svc.Create(ctx, 1, 1, &transfer.ShareCreation{Kind: "campaign", ResourceID: campaign.ID, Permissions: perms})
		if err != nil {
			t.Fatal(err)
		}
		got, err := svc.OpenCampaign(ctx, AccessRequest{Token: created.Token})
		if err != nil {
			t.Fatal(err)
		}
		if len(got.Posts) != 1 {
			t.Errorf("posts = %d", len(got.Posts))
		}
		if got.ShowAnalytics != withAnalytics || (len(got.Analytics[postID]) == 1) != withAnalytics {
			t.Errorf("analytics permission %v: show=%v rows=%v", withAnalytics, got.ShowAnalytics, got.Analytics)
		}
	}
}

func TestAccountConnectEncryptsTokens(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewRepositories()
	cipher, _ := utils.NewTokenCipher(bytes.Repeat([]byte{1}, 32))
	svc := NewAccountService(repos.Accounts, cipher)

	acc, err := svc.Connect(ctx, 1, &transfer.AccountConnection{Platform: "linkedin", PlatformUserID: "123", AccessToken: "tok"})
	if err != nil {
		t.Fatal(err)
	}
	stored, _ := repos.Accounts.GetByID(ctx, acc.ID)
	if stored.AccessToken == "tok" {
		t.Fatal("token stored in clear")
	}
	if plain, _ := cipher.Decrypt(stored.AccessToken); plain != "tok" {
		t.Errorf("decrypted = %q", plain)
	}

	if err := svc.Deactivate(ctx, 2, acc.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("other client deactivate err = %v", err)
	}
	if err := svc.Deactivate(ctx, 1, acc.ID); err != nil {
		t.Fatal(err)
	}
}

func TestIPAllowed(t *testing.T) {
	tests := []struct {
		allowed []string
		ip      string
		want    bool
	}{
		{nil, "1.2.3.4", true},
		{[]string{"1.2.3.4"}, "1.2.3.4", true},
		{[]string{"1.2.3.4"}, "1.2.3.5", false},
		{[]string{"2001:db8::/32"}, "2001:db8::1", true},
		{[]string{"10.0.0.0/8"}, "garbage", false},
		{[]string{"bad-entry", "10.0.0.0/8"}, "10.9.9.9", true},
	}
	for _, tt := range tests {
		if got := ipAllowed(tt.allowed, tt.ip); got != tt.want {
			t.Errorf("ipAllowed(%v, %q) = %v, want %v", tt.allowed, tt.ip, got, tt.want)
		}
	}
}
