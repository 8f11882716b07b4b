package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/maheshrc27/ghst/internal/metrics"
	"github.com/maheshrc27/ghst/internal/models"
	"github.com/maheshrc27/ghst/internal/platform"
	"github.com/maheshrc27/ghst/internal/repository"
	"github.com/maheshrc27/ghst/pkg/utils"
)

type PublisherConfig struct {
	PostBatchSize  int
	RetryBatchSize int
	RetryDelay     time.Duration
	MaxAttempts    int
}

// PublisherJob publishes due posts and drains the retry queue.
type PublisherJob struct {
	pr       repository.PostRepository
	ac       repository.AccountRepository
	ma       repository.MediaAssetRepository
	rq       repository.RetryQueueRepository
	ph       repository.PublishHistoryRepository
	registry *platform.Registry
	cipher   *utils.TokenCipher
	cfg      PublisherConfig
	now      func() time.Time
}

func NewPublisherJob(repos *repository.Repositories, registry *platform.Registry, cipher *utils.TokenCipher, cfg PublisherConfig) *PublisherJob {
	if cfg.PostBatchSize <= 0 {
		cfg.PostBatchSize = 10
	}
	if cfg.RetryBatchSize <= 0 {
		cfg.RetryBatchSize = 5
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &PublisherJob{
		pr:       repos.Posts,
		ac:       repos.Accounts,
		ma:       repos.Media,
		rq:       repos.RetryQueue,
		ph:       repos.PublishHistory,
		registry: registry,
		cipher:   cipher,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Tick runs one publisher cycle: due posts first, then retries.
func (j *PublisherJob) Tick(ctx context.Context) error {
	return errors.Join(j.RunDuePosts(ctx), j.ProcessRetryQueue(ctx))
}

func (j *PublisherJob) RunDuePosts(ctx context.Context) error {
	posts, err := j.pr.ListDue(ctx, j.now(), j.cfg.PostBatchSize)
	if err != nil {
		return fmt.Errorf("list due posts: %w", err)
	}
	for _, post := range posts {
		if err := ctx.Err(); err != nil {
			return err
		}
		claimed, err := j.pr.Claim(ctx, post.ID)
		if err != nil {
			slog.Error("claim post failed", "post_id", post.ID, "error", err.Error())
			continue
		}
		if !claimed {
			continue
		}
		j.publishPost(ctx, post)
	}
	return nil
}

// PublishPost publishes a single post when its scheduled time has come. It is
// a no-op for posts that were rescheduled, removed or already claimed.
func (j *PublisherJob) PublishPost(ctx context.Context, postID int64) error {
	post, err := j.pr.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post == nil || post.Status != models.PostStatusScheduled {
		slog.Info("skip publish", "post_id", postID, "reason", "not scheduled")
		return nil
	}
	if post.ScheduledAt != nil && post.ScheduledAt.After(j.now().Add(time.Minute)) {
		slog.Info("skip publish", "post_id", postID, "reason", "rescheduled")
		return nil
	}

	claimed, err := j.pr.Claim(ctx, postID)
	if err != nil || !claimed {
		return err
	}
	j.publishPost(ctx, post)
	return nil
}

func (j *PublisherJob) publishPost(ctx context.Context, post *models.Post) {
	media, err := j.loadMedia(ctx, post.MediaIDs)
	if err != nil {
		j.setStatus(ctx, post.ID, models.PostStatusFailed, "load media: "+err.Error())
		return
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []string
	)
	semaphore := make(chan struct{}, 4)

	for _, p := range post.Platforms {
		if post.PlatformPosts[p] != "" {
			continue
		}
		wg.Add(1)
		semaphore <- struct{}{}
		go func(p models.Platform) {
			defer wg.Done()
			defer func() { <-semaphore }()

			vendorID, err := j.publishOne(ctx, post, p, media)
			if err == nil {
				if err := j.pr.SetPlatformPostID(ctx, post.ID, p, vendorID); err != nil {
					slog.Error("store platform post id failed", "post_id", post.ID, "platform", p, "error", err.Error())
				}
				return
			}

			mu.Lock()
			errs = append(errs, fmt.Sprintf("%s: %s", p, err.Error()))
			mu.Unlock()

			if platform.IsRetryable(err) {
				j.enqueueRetry(ctx, post.ID, p, err)
			}
		}(p)
	}
	wg.Wait()

	if len(errs) == 0 {
		j.setStatus(ctx, post.ID, models.PostStatusPublished, "")
		return
	}
	j.setStatus(ctx, post.ID, models.PostStatusFailed, strings.Join(errs, "; "))
}

func (j *PublisherJob) enqueueRetry(ctx context.Context, postID int64, p models.Platform, cause error) {
	entry := &models.RetryQueueEntry{
		PostID:      postID,
		Platform:    p,
		MaxAttempts: j.cfg.MaxAttempts,
		RetryAfter:  j.now().Add(max(j.cfg.RetryDelay, platform.RetryAfterHint(cause))),
		LastError:   cause.Error(),
		Status:      models.RetryStatusPending,
	}
	if err := j.rq.Enqueue(ctx, entry); err != nil {
		slog.Error("enqueue retry failed", "post_id", postID, "platform", p, "error", err.Error())
	}
}

// ProcessRetryQueue retries due entries. Exhausted entries and terminal
// failures are marked abandoned and kept.
func (j *PublisherJob) ProcessRetryQueue(ctx context.Context) error {
	entries, err := j.rq.ListDue(ctx, j.now(), j.cfg.RetryBatchSize)
	if err != nil {
		return fmt.Errorf("list due retries: %w", err)
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		post, err := j.pr.GetByID(ctx, entry.PostID)
		if err != nil {
			slog.Error("load post for retry failed", "post_id", entry.PostID, "error", err.Error())
			continue
		}
		if post == nil {
			j.removeEntry(ctx, entry)
			continue
		}
		if post.Status != models.PostStatusFailed || post.PlatformPosts[entry.Platform] != "" {
			slog.Info("drop stale retry entry", "post_id", post.ID, "platform", entry.Platform, "status", post.Status)
			j.removeEntry(ctx, entry)
			if post.Status == models.PostStatusFailed {
				j.publishIfDrained(ctx, post)
			}
			continue
		}

		media, err := j.loadMedia(ctx, post.MediaIDs)
		if err != nil {
			slog.Error("load media for retry failed", "post_id", post.ID, "error", err.Error())
			j.recordRetryFailure(ctx, entry, &platform.Error{
				Kind: platform.KindNetwork, Platform: string(entry.Platform), Message: "load media", Err: err,
			})
			continue
		}

		vendorID, err := j.publishOne(ctx, post, entry.Platform, media)
		if err != nil {
			j.recordRetryFailure(ctx, entry, err)
			continue
		}
		j.retrySucceeded(ctx, post, entry, vendorID)
	}
	return nil
}

func (j *PublisherJob) removeEntry(ctx context.Context, entry *models.RetryQueueEntry) {
	if err := j.rq.Remove(ctx, entry.ID); err != nil {
		slog.Error("remove retry entry failed", "id", entry.ID, "error", err.Error())
	}
}

func (j *PublisherJob) retrySucceeded(ctx context.Context, post *models.Post, entry *models.RetryQueueEntry, vendorID string) {
	j.removeEntry(ctx, entry)
	if err := j.pr.SetPlatformPostID(ctx, post.ID, entry.Platform, vendorID); err != nil {
		slog.Error("store platform post id failed", "post_id", post.ID, "platform", entry.Platform, "error", err.Error())
		return
	}
	if post.PlatformPosts == nil {
		post.PlatformPosts = models.PlatformPostIDs{}
	}
	post.PlatformPosts[entry.Platform] = vendorID
	j.publishIfDrained(ctx, post)
}

// publishIfDrained marks the post published once no retry entries remain and
// every platform has a vendor id.
func (j *PublisherJob) publishIfDrained(ctx context.Context, post *models.Post) {
	remaining, err := j.rq.CountByPostID(ctx, post.ID)
	if err != nil {
		slog.Error("count retry entries failed", "post_id", post.ID, "error", err.Error())
		return
	}
	if remaining > 0 {
		return
	}
	for _, p := range post.Platforms {
		if post.PlatformPosts[p] == "" {
			return
		}
	}
	j.setStatus(ctx, post.ID, models.PostStatusPublished, "")
}

func (j *PublisherJob) recordRetryFailure(ctx context.Context, entry *models.RetryQueueEntry, cause error) {
	entry.Attempts++
	entry.LastError = cause.Error()

	if !platform.IsRetryable(cause) || entry.Exhausted() {
		entry.Status = models.RetryStatusAbandoned
		slog.Warn("retry entry abandoned",
			"post_id", entry.PostID,
			"platform", entry.Platform,
			"attempts", entry.Attempts,
			"last_error", entry.LastError,
		)
		metrics.RetryEntriesAbandoned.WithLabelValues(string(entry.Platform)).Inc()
	} else {
		backoff := j.cfg.RetryDelay * time.Duration(entry.Attempts+1)
		entry.RetryAfter = j.now().Add(max(backoff, platform.RetryAfterHint(cause)))
	}

	if err := j.rq.RecordFailure(ctx, entry); err != nil {
		slog.Error("record retry failure failed", "id", entry.ID, "error", err.Error())
	}
}

// publishOne publishes the post to one platform through the client's first
// active account there and writes a history row for the attempt.
func (j *PublisherJob) publishOne(ctx context.Context, post *models.Post, p models.Platform, media []platform.Media) (string, error) {
	var (
		accountID int64
		vendorID  string
	)
	err := func() error {
		pub, ok := j.registry.Get(p)
		if !ok {
			return fmt.Errorf("no publisher for %s", p)
		}
		acc, err := j.ac.GetActiveByClientPlatform(ctx, post.ClientID, p)
		if err != nil {
			return &platform.Error{Kind: platform.KindNetwork, Platform: string(p), Message: "load account", Err: err}
		}
		if acc == nil {
			return fmt.Errorf("no active %s account", p)
		}
		accountID = acc.ID

		token, err := j.cipher.Decrypt(acc.AccessToken)
		if err != nil {
			return fmt.Errorf("decrypt access token: %w", err)
		}
		vendorID, err = pub.Publish(ctx, platform.PublishRequest{
			PlatformUserID: acc.PlatformUserID,
			AccessToken:    token,
			Content:        post.Content,
			Media:          media,
		})
		return err
	}()

	history := &models.PublishHistory{
		PostID:         post.ID,
		AccountID:      accountID,
		Platform:       p,
		PlatformPostID: vendorID,
	}
	outcome := "success"
	if err != nil {
		history.ErrorMessage = err.Error()
		history.Retryable = platform.IsRetryable(err)
		outcome = "terminal"
		if history.Retryable {
			outcome = "retryable"
		}
		slog.Info("publish failed", "post_id", post.ID, "platform", p, "retryable", history.Retryable, "error", err.Error())
	}
	metrics.PublishAttempts.WithLabelValues(string(p), outcome).Inc()
	if _, herr := j.ph.Create(ctx, history); herr != nil {
		slog.Error("save publish history failed", "post_id", post.ID, "error", herr.Error())
	}
	return vendorID, err
}

func (j *PublisherJob) loadMedia(ctx context.Context, ids []int64) ([]platform.Media, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	assets, err := j.ma.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	media := make([]platform.Media, 0, len(assets))
	for _, a := range assets {
		media = append(media, platform.Media{URL: a.FileURL, MimeType: a.FileType})
	}
	return media, nil
}

func (j *PublisherJob) setStatus(ctx context.Context, postID int64, status models.PostStatus, lastError string) {
	if err := j.pr.UpdatePostStatus(ctx, postID, status, lastError); err != nil {
		slog.Error("update post status failed", "post_id", postID, "status", status, "error", err.Error())
	}
}
