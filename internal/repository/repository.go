package repository

import "database/sql"

// Repositories bundles every store the services depend on so the Postgres and
// in-memory backends can be swapped in main.
type Repositories struct {
	Accounts       AccountRepository
	Posts          PostRepository
	Media          MediaAssetRepository
	RetryQueue     RetryQueueRepository
	PublishHistory PublishHistoryRepository
	PostAnalytics  PostAnalyticsRepository
	Followers      FollowerAnalyticsRepository
	WebhookLogs    WebhookLogRepository
	Shares         ShareLinkRepository
	Reports        ReportRepository
	Campaigns      CampaignRepository
	ApiKeys        ApiKeyRepository
}

func NewPostgresRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Accounts:       NewAccountRepository(db),
		Posts:          NewPostRepository(db),
		Media:          NewMediaAssetRepository(db),
		RetryQueue:     NewRetryQueueRepository(db),
		PublishHistory: NewPublishHistoryRepository(db),
		PostAnalytics:  NewPostAnalyticsRepository(db),
		Followers:      NewFollowerAnalyticsRepository(db),
		WebhookLogs:    NewWebhookLogRepository(db),
		Shares:         NewShareLinkRepository(db),
		Reports:        NewReportRepository(db),
		Campaigns:      NewCampaignRepository(db),
		ApiKeys:        NewApiKeyRepository(db),
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}
