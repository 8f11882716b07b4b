package memory

import (
	"context"
	"testing"
	"time"

	"github.com/maheshrc27/ghst/internal/models"
)

func TestPostAnalyticsUpsertKeepsLargerCounters(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories()

	first := &models.PostAnalytics{PostID: 1, AccountID: 2, PlatformPostID: "p", Impressions: 100, Likes: 10,
		Reactions: models.Reactions{"like": 10}, EngagementRate: 10}
	late := &models.PostAnalytics{PostID: 1, AccountID: 2, PlatformPostID: "p", Impressions: 50, Likes: 12,
		Reactions: models.Reactions{"love": 1}, EngagementRate: 24}

	if err := repos.PostAnalytics.Upsert(ctx, first); err != nil {
		t.Fatal(err)
	}
	if err := repos.PostAnalytics.Upsert(ctx, late); err != nil {
		t.Fatal(err)
	}

	got, err := repos.PostAnalytics.Get(ctx, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if got.Impressions != 100 {
		t.Errorf("impressions = %d, want 100", got.Impressions)
	}
	if got.Likes != 12 {
		t.Errorf("likes = %d, want 12", got.Likes)
	}
	if got.EngagementRate != 24 {
		t.Errorf("engagement rate = %v, want overwritten 24", got.EngagementRate)
	}
	if _, ok := got.Reactions["like"]; ok {
		t.Errorf("reactions should be replaced, got %v", got.Reactions)
	}
}

func TestRetryEnqueueRestartsCycle(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories()
	now := time.Now()

	entry := &models.RetryQueueEntry{PostID: 5, Platform: models.PlatformFacebook, MaxAttempts: 3, RetryAfter: now}
	if err := repos.RetryQueue.Enqueue(ctx, entry); err != nil {
		t.Fatal(err)
	}
	due, _ := repos.RetryQueue.ListDue(ctx, now, 5)
	if len(due) != 1 {
		t.Fatalf("due = %d, want 1", len(due))
	}

	due[0].Attempts = 3
	due[0].Status = models.RetryStatusAbandoned
	if err := repos.RetryQueue.RecordFailure(ctx, due[0]); err != nil {
		t.Fatal(err)
	}
	if due, _ := repos.RetryQueue.ListDue(ctx, now, 5); len(due) != 0 {
		t.Fatalf("abandoned entry must not be due, got %d", len(due))
	}

	if err := repos.RetryQueue.Enqueue(ctx, entry); err != nil {
		t.Fatal(err)
	}
	due, _ = repos.RetryQueue.ListDue(ctx, now, 5)
	if len(due) != 1 || due[0].Attempts != 0 || due[0].Status != models.RetryStatusPending {
		t.Fatalf("expected a fresh pending entry, got %+v", due)
	}
	if n, _ := repos.RetryQueue.CountByPostID(ctx, 5); n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestShareCountersStopAtLimit(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories()

	id, err := repos.Shares.Create(ctx, &models.ShareLink{Token: "t", Kind: models.ShareKindReport, MaxViews: 2})
	if err != nil {
		t.Fatal(err)
	}
	for i, want := range []bool{true, true, false} {
		ok, err := repos.Shares.IncrementViews(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if ok != want {
			t.Errorf("increment %d = %v, want %v", i, ok, want)
		}
	}
	link, _ := repos.Shares.GetByID(ctx, id)
	if link.ViewCount != 2 {
		t.Errorf("view count = %d, want 2", link.ViewCount)
	}
}

func TestAccountReconnectReusesRow(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories()

	first, err := repos.Accounts.Create(ctx, &models.Account{ClientID: 1, Platform: models.PlatformTwitter,
		PlatformUserID: "42", AccessToken: "old", IsActive: true})
	if err != nil {
		t.Fatal(err)
	}
	if err := repos.Accounts.Deactivate(ctx, first); err != nil {
		t.Fatal(err)
	}

	second, err := repos.Accounts.Create(ctx, &models.Account{ClientID: 1, Platform: models.PlatformTwitter,
		PlatformUserID: "42", AccessToken: "new", IsActive: true})
	if err != nil {
		t.Fatal(err)
	}
	if second != first {
		t.Fatalf("reconnect id = %d, want %d", second, first)
	}

	acc, err := repos.Accounts.GetActiveByPlatformUser(ctx, models.PlatformTwitter, "42")
	if err != nil {
		t.Fatal(err)
	}
	if acc == nil || acc.AccessToken != "new" {
		t.Fatalf("expected the reactivated account with the new token, got %+v", acc)
	}

	other, _ := repos.Accounts.Create(ctx, &models.Account{ClientID: 2, Platform: models.PlatformTwitter,
		PlatformUserID: "42", AccessToken: "x", IsActive: true})
	if other == first {
		t.Error("another client must get its own row")
	}
}
