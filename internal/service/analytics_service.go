package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/ghst/internal/models"
	"github.com/maheshrc27/ghst/internal/repository"
)

const (
	defaultHistoryDays = 30
	maxHistoryDays     = 365
)

type AnalyticsService interface {
	StorePostAnalytics(ctx context.Context, postID, accountID int64, platformPostID string, a *models.PostAnalytics) error
	StoreFollowerAnalytics(ctx context.Context, accountID int64, snap models.FollowerSnapshot) error
	UpdateEngagementRate(ctx context.Context, postID, accountID int64) error
	PostAnalytics(ctx context.Context, clientID, postID int64) ([]*models.PostAnalytics, error)
	FollowerHistory(ctx context.Context, clientID, accountID int64, days int) ([]*models.FollowerAnalytics, error)
}

type analyticsService struct {
	pa  repository.PostAnalyticsRepository
	fa  repository.FollowerAnalyticsRepository
	pr  repository.PostRepository
	ac  repository.AccountRepository
	now func() time.Time
}

func NewAnalyticsService(
	pa repository.PostAnalyticsRepository,
	fa repository.FollowerAnalyticsRepository,
	pr repository.PostRepository,
	ac repository.AccountRepository) AnalyticsService {
	return &analyticsService{
		pa:  pa,
		fa:  fa,
		pr:  pr,
		ac:  ac,
		now: time.Now,
	}
}

// StorePostAnalytics upserts one snapshot. Counters merge with GREATEST in
// the repository; the engagement rate computed here replaces the stored one.
// Deliveries without impressions or reach have no denominator, so the rate
// is recomputed from the merged row instead.
func (s *analyticsService) StorePostAnalytics(ctx context.Context, postID, accountID int64, platformPostID string, a *models.PostAnalytics) error {
	row := *a
	row.PostID = postID
	row.AccountID = accountID
	row.PlatformPostID = platformPostID
	row.EngagementRate = row.ComputeEngagementRate()
	row.LastUpdated = s.now().UTC()

	if err := s.pa.Upsert(ctx, &row); err != nil {
		return fmt.Errorf("store post analytics: %w", err)
	}
	if row.Impressions == 0 && row.Reach == 0 {
		if err := s.UpdateEngagementRate(ctx, postID, accountID); err != nil {
			return fmt.Errorf("update engagement rate: %w", err)
		}
	}
	return nil
}

// StoreFollowerAnalytics records the day's follower count. Growth is measured
// against the latest earlier day, or against zero for the first reading.
func (s *analyticsService) StoreFollowerAnalytics(ctx context.Context, accountID int64, snap models.FollowerSnapshot) error {
	date := snap.Date
	if date.IsZero() {
		date = s.now()
	}
	day := truncateDay(date)

	prev, err := s.fa.LatestBefore(ctx, accountID, day)
	if err != nil {
		return fmt.Errorf("load previous follower count: %w", err)
	}
	var previous int64
	if prev != nil {
		previous = prev.FollowerCount
	}

	row := &models.FollowerAnalytics{
		AccountID:      accountID,
		Date:           day,
		FollowerCount:  snap.FollowerCount,
		FollowingCount: snap.FollowingCount,
		DailyGrowth:    snap.FollowerCount - previous,
		UpdatedAt:      s.now().UTC(),
	}
	if err := s.fa.Upsert(ctx, row); err != nil {
		return fmt.Errorf("store follower analytics: %w", err)
	}
	return nil
}

func (s *analyticsService) UpdateEngagementRate(ctx context.Context, postID, accountID int64) error {
	row, err := s.pa.Get(ctx, postID, accountID)
	if err != nil {
		return err
	}
	if row == nil {
		return ErrNotFound
	}
	return s.pa.SetEngagementRate(ctx, postID, accountID, row.ComputeEngagementRate())
}

func (s *analyticsService) PostAnalytics(ctx context.Context, clientID, postID int64) ([]*models.PostAnalytics, error) {
	ok, err := s.pr.CheckByClientID(ctx, postID, clientID)
	if err != nil {
		return nil, err
	}
	if !ok {
		slog.Info("post analytics requested for unknown post", "post_id", postID, "client_id", clientID)
		return nil, ErrNotFound
	}
	return s.pa.GetByPostID(ctx, postID)
}

func (s *analyticsService) FollowerHistory(ctx context.Context, clientID, accountID int64, days int) ([]*models.FollowerAnalytics, error) {
	ok, err := s.ac.CheckByClientID(ctx, accountID, clientID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}

	switch {
	case days <= 0:
		days = defaultHistoryDays
	case days > maxHistoryDays:
		days = maxHistoryDays
	}
	since := truncateDay(s.now()).AddDate(0, 0, -days)
	return s.fa.ListSince(ctx, accountID, since)
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
