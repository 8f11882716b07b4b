// Package memory is the in-process backend used when no Postgres URI is
// configured. It mirrors the conflict and ordering rules of the SQL
// repositories so services behave the same on either backend.
package memory

import (
	"sync"

	"github.com/maheshrc27/ghst/internal/models"
	"github.com/maheshrc27/ghst/internal/repository"
)

type Store struct {
	mu     sync.RWMutex
	nextID int64

	accounts      map[int64]*models.Account
	posts         map[int64]*models.Post
	media         map[int64]*models.MediaAsset
	retries       map[int64]*models.RetryQueueEntry
	history       []*models.PublishHistory
	postAnalytics map[analyticsKey]*models.PostAnalytics
	followers     map[followerKey]*models.FollowerAnalytics
	webhookLogs   []*models.WebhookLog
	shares        map[int64]*models.ShareLink
	shareAccess   []*models.ShareAccessLog
	reports       map[int64]*models.Report
	campaigns     map[int64]*models.Campaign
	apiKeys       map[int64]*models.ApiKey
}

type analyticsKey struct {
	postID         int64
	accountID      int64
	platformPostID string
}

type followerKey struct {
	accountID int64
	date      string
}

func NewStore() *Store {
	return &Store{
		accounts:      make(map[int64]*models.Account),
		posts:         make(map[int64]*models.Post),
		media:         make(map[int64]*models.MediaAsset),
		retries:       make(map[int64]*models.RetryQueueEntry),
		postAnalytics: make(map[analyticsKey]*models.PostAnalytics),
		followers:     make(map[followerKey]*models.FollowerAnalytics),
		shares:        make(map[int64]*models.ShareLink),
		reports:       make(map[int64]*models.Report),
		campaigns:     make(map[int64]*models.Campaign),
		apiKeys:       make(map[int64]*models.ApiKey),
	}
}

// WebhookLogs returns a copy of every stored webhook log row.
func (s *Store) WebhookLogs() []models.WebhookLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	logs := make([]models.WebhookLog, 0, len(s.webhookLogs))
	for _, l := range s.webhookLogs {
		logs = append(logs, *l)
	}
	return logs
}

// id must be called with mu held.
func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// NewRepositories returns a repository bundle backed by a fresh store.
func NewRepositories() *repository.Repositories {
	return NewStore().Repositories()
}

func (s *Store) Repositories() *repository.Repositories {
	return &repository.Repositories{
		Accounts:       &accountRepository{s},
		Posts:          &postRepository{s},
		Media:          &mediaAssetRepository{s},
		RetryQueue:     &retryQueueRepository{s},
		PublishHistory: &publishHistoryRepository{s},
		PostAnalytics:  &postAnalyticsRepository{s},
		Followers:      &followerAnalyticsRepository{s},
		WebhookLogs:    &webhookLogRepository{s},
		Shares:         &shareLinkRepository{s},
		Reports:        &reportRepository{s},
		Campaigns:      &campaignRepository{s},
		ApiKeys:        &apiKeyRepository{s},
	}
}
