package service

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	"github.com/maheshrc27/ghst/internal/models"
	"github.com/maheshrc27/ghst/internal/repository"
	"github.com/maheshrc27/ghst/internal/storage"
	"github.com/maheshrc27/ghst/internal/transfer"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const maxMediaSize = 100 << 20

var allowedMedia = map[string]struct{}{
	"jpg": {}, "png": {}, "gif": {}, "webp": {}, "mp4": {}, "mov": {},
}

type PostService interface {
	CreatePost(ctx context.Context, clientID int64, pc *transfer.PostCreation) (*models.Post, time.Duration, error)
	List(ctx context.Context, clientID int64) ([]*models.Post, error)
	PostInfo(ctx context.Context, postID, clientID int64) (*models.Post, error)
	Schedule(ctx context.Context, clientID, postID int64, at time.Time) (time.Duration, error)
	History(ctx context.Context, clientID, postID int64) ([]*models.PublishHistory, error)
	RetryQueue(ctx context.Context, clientID int64, status models.RetryStatus) ([]*models.RetryQueueEntry, error)
	Remove(ctx context.Context, clientID, postID int64) error
	UploadMedia(ctx context.Context, clientID int64, fileName string, data []byte) (*models.MediaAsset, error)
}

type postService struct {
	pr    repository.PostRepository
	ma    repository.MediaAssetRepository
	cp    repository.CampaignRepository
	ph    repository.PublishHistoryRepository
	rq    repository.RetryQueueRepository
	store storage.ObjectStore
}

func NewPostService(repos *repository.Repositories, store storage.ObjectStore) PostService {
	return &postService{
		pr:    repos.Posts,
		ma:    repos.Media,
		cp:    repos.Campaigns,
		ph:    repos.PublishHistory,
		rq:    repos.RetryQueue,
		store: store,
	}
}

// CreatePost stores a draft, or a scheduled post when a time is given. The
// returned delay is how long until the post is due.
func (s *postService) CreatePost(ctx context.Context, clientID int64, pc *transfer.PostCreation) (*models.Post, time.Duration, error) {
	if pc == nil {
		return nil, 0, invalid("post creation data is nil")
	}
	if err := transfer.Validate(pc); err != nil {
		return nil, 0, invalidErr(err)
	}

	platforms, err := parsePlatforms(pc.Platforms)
	if err != nil {
		return nil, 0, err
	}
	if err := s.checkMedia(ctx, clientID, pc.MediaIDs); err != nil {
		return nil, 0, err
	}
	if pc.CampaignID != nil {
		campaign, err := s.cp.GetByID(ctx, *pc.CampaignID)
		if err != nil {
			return nil, 0, err
		}
		if campaign == nil || campaign.ClientID != clientID {
			return nil, 0, invalid("campaign does not exist")
		}
	}

	post := &models.Post{
		ClientID:      clientID,
		CampaignID:    pc.CampaignID,
		Content:       strings.TrimSpace(pc.Content),
		Platforms:     platforms,
		PlatformPosts: models.PlatformPostIDs{},
		MediaIDs:      pc.MediaIDs,
		Status:        models.PostStatusDraft,
	}
	var delay time.Duration
	if pc.ScheduledAt != nil {
		at := pc.ScheduledAt.UTC()
		post.ScheduledAt = &at
		post.Status = models.PostStatusScheduled
		delay = max(time.Until(at), 0)
	}

	id, err := s.pr.Create(ctx, post)
	if err != nil {
		return nil, 0, fmt.Errorf("error creating post: %w", err)
	}
	post.ID = id
	return post, delay, nil
}

func parsePlatforms(names []string) (models.PlatformList, error) {
	seen := make(map[models.Platform]bool)
	var out models.PlatformList
	for _, name := range names {
		p, err := models.ParsePlatform(name)
		if err != nil {
			return nil, invalidErr(err)
		}
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *postService) checkMedia(ctx context.Context, clientID int64, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	assets, err := s.ma.ListByIDs(ctx, ids)
	if err != nil {
		return err
	}
	owned := make(map[int64]bool, len(assets))
	for _, a := range assets {
		if a.ClientID == clientID {
			owned[a.ID] = true
		}
	}
	for _, id := range ids {
		if !owned[id] {
			return invalid(fmt.Sprintf("media %d does not exist", id))
		}
	}
	return nil
}

func (s *postService) owned(ctx context.Context, clientID, postID int64) error {
	if postID == 0 {
		return invalid("post id is not valid")
	}
	ok, err := s.pr.CheckByClientID(ctx, postID, clientID)
	if err != nil {
		return err
	}
	if !ok {
		slog.Info("post doesn't exist", "post_id", postID, "client_id", clientID)
		return ErrNotFound
	}
	return nil
}

func (s *postService) PostInfo(ctx context.Context, postID, clientID int64) (*models.Post, error) {
	if err := s.owned(ctx, clientID, postID); err != nil {
		return nil, err
	}
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("error getting post info: %w", err)
	}
	if post == nil {
		return nil, ErrNotFound
	}
	return post, nil
}

func (s *postService) List(ctx context.Context, clientID int64) ([]*models.Post, error) {
	posts, err := s.pr.GetByClientID(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("error getting posts: %w", err)
	}
	return posts, nil
}

// Schedule (re)schedules a draft, scheduled or failed post and clears its
// retry queue.
func (s *postService) Schedule(ctx context.Context, clientID, postID int64, at time.Time) (time.Duration, error) {
	post, err := s.PostInfo(ctx, postID, clientID)
	if err != nil {
		return 0, err
	}
	switch post.Status {
	case models.PostStatusDraft, models.PostStatusScheduled, models.PostStatusFailed:
	default:
		return 0, invalid(fmt.Sprintf("post is %s", post.Status))
	}
	if at.IsZero() {
		return 0, invalid("scheduled_at is required")
	}

	if err := s.pr.Schedule(ctx, postID, at.UTC()); err != nil {
		return 0, err
	}
	// the new run publishes every platform still missing an id, so entries
	// left over from the previous run must not fire on their own
	if err := s.rq.RemoveByPostID(ctx, postID); err != nil {
		return 0, fmt.Errorf("clear retry queue: %w", err)
	}
	return max(time.Until(at), 0), nil
}

func (s *postService) History(ctx context.Context, clientID, postID int64) ([]*models.PublishHistory, error) {
	if err := s.owned(ctx, clientID, postID); err != nil {
		return nil, err
	}
	return s.ph.GetByPostID(ctx, postID)
}

func (s *postService) RetryQueue(ctx context.Context, clientID int64, status models.RetryStatus) ([]*models.RetryQueueEntry, error) {
	switch status {
	case "", models.RetryStatusPending, models.RetryStatusAbandoned:
	default:
		return nil, invalid(fmt.Sprintf("unknown retry status %q", status))
	}
	return s.rq.ListByClientID(ctx, clientID, status)
}

func (s *postService) Remove(ctx context.Context, clientID, postID int64) error {
	if err := s.owned(ctx, clientID, postID); err != nil {
		return err
	}
	if err := s.pr.Remove(ctx, postID); err != nil {
		return fmt.Errorf("error removing post: %w", err)
	}
	return nil
}

// UploadMedia sniffs the file type, stores the object under a random key and
// records the asset.
func (s *postService) UploadMedia(ctx context.Context, clientID int64, fileName string, data []byte) (*models.MediaAsset, error) {
	if len(data) == 0 {
		return nil, invalid("empty file")
	}
	if len(data) > maxMediaSize {
		return nil, invalid("file too large")
	}

	kind, err := filetype.Match(data)
	if err != nil || kind == types.Unknown {
		return nil, invalid("unsupported file type")
	}
	if _, ok := allowedMedia[kind.Extension]; !ok {
		return nil, invalid(fmt.Sprintf("file type %s is not allowed", kind.Extension))
	}

	id, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	key := fmt.Sprintf("media/%d/%s.%s", clientID, id, kind.Extension)
	url, err := s.store.Put(ctx, key, data, kind.MIME.Value)
	if err != nil {
		return nil, fmt.Errorf("error uploading file: %w", err)
	}

	asset := &models.MediaAsset{
		ClientID: clientID,
		FileName: path.Base(fileName),
		FileType: kind.MIME.Value,
		FileSize: int64(len(data)),
		FileURL:  url,
	}
	assetID, err := s.ma.Create(ctx, asset)
	if err != nil {
		return nil, err
	}
	asset.ID = assetID
	return asset, nil
}
