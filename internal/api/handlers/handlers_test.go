package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	config "github.com/maheshrc27/ghst/configs"
	"github.com/maheshrc27/ghst/internal/models"
	"github.com/maheshrc27/ghst/internal/repository/memory"
	"github.com/maheshrc27/ghst/internal/service"
	"github.com/maheshrc27/ghst/internal/storage"
	"github.com/maheshrc27/ghst/internal/transfer"
	"github.com/maheshrc27/ghst/internal/webhook"
)

var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n%%EOF\n")

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func facebookSignature(payload, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

type webhookFixture struct {
	app   *fiber.App
	store *memory.Store
}

func newWebhookFixture(t *testing.T, secrets config.Webhooks) *webhookFixture {
	t.Helper()
	store := memory.NewStore()
	repos := store.Repositories()
	sink := service.NewAnalyticsService(repos.PostAnalytics, repos.Followers, repos.Posts, repos.Accounts)
	deps := webhook.Deps{Accounts: repos.Accounts, Posts: repos.Posts, Sink: sink}

	h := NewWebhookHandler(repos.WebhookLogs, secrets,
		webhook.NewFacebookProcessor(deps),
		webhook.NewTwitterProcessor(deps),
		webhook.NewLinkedInProcessor(deps),
	)
	app := fiber.New()
	app.Get("/api/webhooks/analytics/:platform", h.Verify)
	app.Post("/api/webhooks/analytics/:platform", h.Receive)
	app.All("/api/webhooks/analytics/:platform", h.MethodNotAllowed)
	return &webhookFixture{app: app, store: store}
}

func (f *webhookFixture) post(t *testing.T, platform, payload string, headers map[string]string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/analytics/"+platform, strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := f.app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	f := newWebhookFixture(t, config.Webhooks{FacebookAppSecret: "app-secret"})
	payload := `{"object":"page","entry":[]}`

	resp := f.post(t, "facebook", payload, map[string]string{
		webhook.FacebookSignatureHeader: facebookSignature(payload+" ", "app-secret"),
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
	if n := len(f.store.WebhookLogs()); n != 0 {
		t.Errorf("rejected delivery logged %d rows", n)
	}
}

func TestWebhookAlwaysAcknowledgesVerifiedDeliveries(t *testing.T) {
	f := newWebhookFixture(t, config.Webhooks{FacebookAppSecret: "app-secret"})

	payloads := []string{
		`{"object":"page","entry":[{"id":"99","changes":[{"field":"post_insights","value":"not an object"}]}]}`,
		`{"object":"instagram","entry":[{"changes":[{"field":"media_insights"}]}]}`,
		`not json at all`,
	}
	for _, payload := range payloads {
		resp := f.post(t, "facebook", payload, map[string]string{
			webhook.FacebookSignatureHeader: facebookSignature(payload, "app-secret"),
		})
		if resp.StatusCode != http.StatusOK {
			t.Errorf("payload %q: status = %d, want 200", payload, resp.StatusCode)
		}
		if got := body(t, resp); got != "EVENT_RECEIVED" {
			t.Errorf("payload %q: body = %q", payload, got)
		}
	}

	logs := f.store.WebhookLogs()
	if len(logs) != len(payloads) {
		t.Fatalf("logged %d rows, want %d", len(logs), len(payloads))
	}
	if logs[0].EventType != "page.post_insights" || logs[0].RequestID == "" {
		t.Errorf("first log = %+v", logs[0])
	}
	if string(logs[2].Payload) != `"not json at all"` {
		t.Errorf("invalid body stored as %s", logs[2].Payload)
	}
}

func TestWebhookLinkedInWithoutSecret(t *testing.T) {
	f := newWebhookFixture(t, config.Webhooks{})
	resp := f.post(t, "linkedin", `{"followerStatistics":{"followerCount":5}}`, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestWebhookHandshakes(t *testing.T) {
	f := newWebhookFixture(t, config.Webhooks{
		FacebookVerifyToken:   "verify-me",
		TwitterConsumerSecret: "consumer-secret",
	})

	tests := []struct {
		name       string
		method     string
		url        string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "facebook subscribe",
			method:     http.MethodGet,
			url:        "/api/webhooks/analytics/facebook?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=1158201444",
			wantStatus: http.StatusOK,
			wantBody:   "1158201444",
		},
		{
			name:       "facebook wrong token",
			method:     http.MethodGet,
			url:        "/api/webhooks/analytics/facebook?hub_mode=subscribe&hub_verify_token=nope&hub_challenge=1",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "twitter crc",
			method:     http.MethodGet,
			url:        "/api/webhooks/analytics/twitter?crc_token=abc123",
			wantStatus: http.StatusOK,
			wantBody:   `{"response_token":"` + webhook.TwitterCRCResponse("abc123", "consumer-secret") + `"}`,
		},
		{
			name:       "linkedin challenge",
			method:     http.MethodGet,
			url:        "/api/webhooks/analytics/linkedin?challenge=xyz",
			wantStatus: http.StatusOK,
			wantBody:   "xyz",
		},
		{
			name:       "unknown platform",
			method:     http.MethodGet,
			url:        "/api/webhooks/analytics/myspace",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "method not allowed",
			method:     http.MethodPut,
			url:        "/api/webhooks/analytics/facebook",
			wantStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := f.app.Test(httptest.NewRequest(tt.method, tt.url, nil))
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if tt.wantBody != "" {
				if got := body(t, resp); got != tt.wantBody {
					t.Errorf("body = %q, want %q", got, tt.wantBody)
				}
			}
		})
	}
}

type shareFixture struct {
	app      *fiber.App
	svc      service.ShareService
	reportID int64
	shares   func(id int64) *models.ShareLink
}

func newShareFixture(t *testing.T) *shareFixture {
	t.Helper()
	ctx := context.Background()
	repos := memory.NewRepositories()
	store := storage.NewMemoryStore("https://cdn.test")

	if _, err := store.Put(ctx, "reports/1/q3.pdf", pdfBytes, "application/pdf"); err != nil {
		t.Fatal(err)
	}
	reportID, err := repos.Reports.Create(ctx, &models.Report{ClientID: 1, Title: "Q3 results", FileKey: "reports/1/q3.pdf"})
	if err != nil {
		t.Fatal(err)
	}

	svc := service.NewShareService(repos, store, "https://app.test")
	h := NewShareHandler(svc, session.New())
	app := fiber.New()
	app.Get("/shared/report", h.SharedReport)
	app.Post("/shared/report", h.UnlockReport)

	return &shareFixture{
		app:      app,
		svc:      svc,
		reportID: reportID,
		shares: func(id int64) *models.ShareLink {
			l, err := repos.Shares.GetByID(ctx, id)
			if err != nil {
				t.Fatal(err)
			}
			return l
		},
	}
}

func (f *shareFixture) do(t *testing.T, req *http.Request, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := f.app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestSharedReportPasswordFlow(t *testing.T) {
	f := newShareFixture(t)
	created, err := f.svc.Create(context.Background(), 1, 10, &transfer.ShareCreation{
		Kind:        "report",
		ResourceID:  f.reportID,
		Password:    "hunter22",
		Permissions: []string{"view", "download"},
	})
	if err != nil {
		t.Fatal(err)
	}
	page := "/shared/report?token=" + created.Token

	resp := f.do(t, httptest.NewRequest(http.MethodGet, page, nil))
	if resp.StatusCode != http.StatusOK || !strings.Contains(body(t, resp), "password protected") {
		t.Fatalf("expected password form, got %d", resp.StatusCode)
	}

	unlock := func(password string) *http.Response {
		form := url.Values{"password": {password}}.Encode()
		req := httptest.NewRequest(http.MethodPost, page, strings.NewReader(form))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return f.do(t, req)
	}

	if resp := unlock("wrong-password"); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong password status = %d, want 401", resp.StatusCode)
	}

	resp = unlock("hunter22")
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("unlock status = %d, want 303", resp.StatusCode)
	}
	cookies := resp.Cookies()
	if len(cookies) == 0 {
		t.Fatal("unlock did not set a session cookie")
	}

	resp = f.do(t, httptest.NewRequest(http.MethodGet, page, nil), cookies...)
	html := body(t, resp)
	if resp.StatusCode != http.StatusOK || !strings.Contains(html, "Q3 results") || !strings.Contains(html, "Download PDF") {
		t.Fatalf("report page status %d: %s", resp.StatusCode, html)
	}

	resp = f.do(t, httptest.NewRequest(http.MethodGet, page+"&download=1", nil), cookies...)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("download status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("content type = %q", ct)
	}
	if got := body(t, resp); got != string(pdfBytes) {
		t.Errorf("downloaded %d bytes, want the stored PDF", len(got))
	}

	link := f.shares(created.ID)
	if link.ViewCount != 1 || link.DownloadCount != 1 {
		t.Errorf("counters = %d views, %d downloads, want 1 and 1", link.ViewCount, link.DownloadCount)
	}
}

func TestSharedReportDenials(t *testing.T) {
	f := newShareFixture(t)
	created, err := f.svc.Create(context.Background(), 1, 10, &transfer.ShareCreation{
		Kind:       "report",
		ResourceID: f.reportID,
		AllowedIPs: []string{"10.0.0.0/8"},
	})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		url  string
		want int
	}{
		{"malformed token", "/shared/report?token=short", http.StatusNotFound},
		{"unknown token", "/shared/report?token=" + strings.Repeat("a", 32), http.StatusNotFound},
		{"ip not allowed", "/shared/report?token=" + created.Token, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.do(t, httptest.NewRequest(http.MethodGet, tt.url, nil))
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
			if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
				t.Errorf("content type = %q, want an HTML page", ct)
			}
		})
	}

	if link := f.shares(created.ID); link.ViewCount != 0 {
		t.Errorf("denied access counted %d views", link.ViewCount)
	}
}

type recordingScheduler struct {
	ids []int64
	err error
}

func (s *recordingScheduler) SchedulePost(_ context.Context, postID int64, _ time.Duration) error {
	s.ids = append(s.ids, postID)
	return s.err
}

func withClient(clientID int64) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("client_id", clientID)
		c.Locals("user_id", int64(1))
		return c.Next()
	}
}

func TestCreatePost(t *testing.T) {
	repos := memory.NewRepositories()
	sched := &recordingScheduler{err: errors.New("redis down")}
	h := NewPostHandler(service.NewPostService(repos, storage.NewMemoryStore("https://cdn.test")), sched)

	app := fiber.New()
	app.Post("/api/posts", withClient(5), h.CreatePost)

	send := func(payload string) *http.Response {
		req := httptest.NewRequest(http.MethodPost, "/api/posts", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		if err != nil {
			t.Fatal(err)
		}
		return resp
	}

	at := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	resp := send(`{"content":"launch day","platforms":["x","linkedin"],"scheduled_at":"` + at + `"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d: %s", resp.StatusCode, body(t, resp))
	}
	if len(sched.ids) != 1 {
		t.Fatalf("scheduled %v, want one task", sched.ids)
	}

	// the enqueue failure is not surfaced; the cron sweep covers it
	post, err := repos.Posts.GetByID(context.Background(), sched.ids[0])
	if err != nil || post == nil {
		t.Fatalf("post not stored: %v", err)
	}
	if post.ClientID != 5 || post.Status != models.PostStatusScheduled {
		t.Errorf("post = %+v", post)
	}

	if resp := send(`{"content":"no targets","platforms":[]}`); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid post status = %d, want 400", resp.StatusCode)
	}
}

type countingTicker struct{ n int }

func (c *countingTicker) Tick(context.Context) error {
	c.n++
	return nil
}

func TestCronTrigger(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		url    string
		want   int
		ticks  int
	}{
		{"correct secret", "s3cret", "/cron?secret=s3cret", http.StatusOK, 1},
		{"wrong secret", "s3cret", "/cron?secret=guess", http.StatusForbidden, 0},
		{"disabled", "", "/cron?secret=", http.StatusForbidden, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticker := &countingTicker{}
			app := fiber.New()
			app.Get("/cron", NewCronHandler(ticker, tt.secret).Run)

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.url, nil))
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tt.want || ticker.n != tt.ticks {
				t.Errorf("status = %d ticks = %d, want %d and %d", resp.StatusCode, ticker.n, tt.want, tt.ticks)
			}
		})
	}
}
