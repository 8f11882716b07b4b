package memory

import (
	"context"
	"maps"
	"sort"
	"time"

	"github.com/maheshrc27/ghst/internal/models"
)

const dateLayout = "2006-01-02"

func cloneAnalytics(a *models.PostAnalytics) *models.PostAnalytics {
	c := *a
	c.Reactions = maps.Clone(a.Reactions)
	return &c
}

type postAnalyticsRepository struct{ s *Store }

func (r *postAnalyticsRepository) Upsert(_ context.Context, a *models.PostAnalytics) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := analyticsKey{a.PostID, a.AccountID, a.PlatformPostID}
	incoming := cloneAnalytics(a)
	if existing, ok := r.s.postAnalytics[key]; ok {
		existing.MergeCounters(incoming)
		return nil
	}
	r.s.postAnalytics[key] = incoming
	return nil
}

func (r *postAnalyticsRepository) Get(_ context.Context, postID, accountID int64) (*models.PostAnalytics, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var latest *models.PostAnalytics
	for k, a := range r.s.postAnalytics {
		if k.postID != postID || k.accountID != accountID {
			continue
		}
		if latest == nil || a.LastUpdated.After(latest.LastUpdated) {
			latest = a
		}
	}
	if latest == nil {
		return nil, nil
	}
	return cloneAnalytics(latest), nil
}

func (r *postAnalyticsRepository) GetByPostID(_ context.Context, postID int64) ([]*models.PostAnalytics, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*models.PostAnalytics
	for k, a := range r.s.postAnalytics {
		if k.postID == postID {
			out = append(out, cloneAnalytics(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out, nil
}

func (r *postAnalyticsRepository) SetEngagementRate(_ context.Context, postID, accountID int64, rate float64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for k, a := range r.s.postAnalytics {
		if k.postID == postID && k.accountID == accountID {
			a.EngagementRate = rate
		}
	}
	return nil
}

type followerAnalyticsRepository struct{ s *Store }

func (r *followerAnalyticsRepository) LatestBefore(_ context.Context, accountID int64, date time.Time) (*models.FollowerAnalytics, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	day := date.Format(dateLayout)
	var latest *models.FollowerAnalytics
	for k, fa := range r.s.followers {
		if k.accountID != accountID || k.date >= day {
			continue
		}
		if latest == nil || fa.Date.After(latest.Date) {
			latest = fa
		}
	}
	if latest == nil {
		return nil, nil
	}
	c := *latest
	return &c, nil
}

func (r *followerAnalyticsRepository) Upsert(_ context.Context, fa *models.FollowerAnalytics) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *fa
	r.s.followers[followerKey{fa.AccountID, fa.Date.Format(dateLayout)}] = &c
	return nil
}

func (r *followerAnalyticsRepository) ListSince(_ context.Context, accountID int64, since time.Time) ([]*models.FollowerAnalytics, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	day := since.Format(dateLayout)
	var out []*models.FollowerAnalytics
	for k, fa := range r.s.followers {
		if k.accountID == accountID && k.date >= day {
			c := *fa
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

type webhookLogRepository struct{ s *Store }

func (r *webhookLogRepository) Create(_ context.Context, wl *models.WebhookLog) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *wl
	c.ID = r.s.id()
	c.CreatedAt = time.Now()
	r.s.webhookLogs = append(r.s.webhookLogs, &c)
	return c.ID, nil
}
