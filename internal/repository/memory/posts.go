package memory

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sort"
	"time"

	"github.com/maheshrc27/ghst/internal/models"
)

func clonePost(p *models.Post) *models.Post {
	c := *p
	c.Platforms = slices.Clone(p.Platforms)
	c.MediaIDs = slices.Clone(p.MediaIDs)
	c.PlatformPosts = maps.Clone(p.PlatformPosts)
	if c.PlatformPosts == nil {
		c.PlatformPosts = models.PlatformPostIDs{}
	}
	return &c
}

type postRepository struct{ s *Store }

func (r *postRepository) Create(_ context.Context, post *models.Post) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := clonePost(post)
	c.ID = r.s.id()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	r.s.posts[c.ID] = c
	return c.ID, nil
}

func (r *postRepository) GetByID(_ context.Context, id int64) (*models.Post, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.posts[id]
	if !ok {
		return nil, nil
	}
	return clonePost(p), nil
}

func (r *postRepository) filter(keep func(*models.Post) bool) []*models.Post {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*models.Post
	for _, p := range r.s.posts {
		if keep(p) {
			out = append(out, clonePost(p))
		}
	}
	return out
}

func (r *postRepository) GetByClientID(_ context.Context, clientID int64) ([]*models.Post, error) {
	posts := r.filter(func(p *models.Post) bool { return p.ClientID == clientID })
	sort.Slice(posts, func(i, j int) bool { return posts[i].ID > posts[j].ID })
	return posts, nil
}

func (r *postRepository) ListByCampaignID(_ context.Context, clientID, campaignID int64) ([]*models.Post, error) {
	posts := r.filter(func(p *models.Post) bool {
		return p.ClientID == clientID && p.CampaignID != nil && *p.CampaignID == campaignID
	})
	sort.Slice(posts, func(i, j int) bool { return posts[i].ID < posts[j].ID })
	return posts, nil
}

func (r *postRepository) ListDue(_ context.Context, now time.Time, limit int) ([]*models.Post, error) {
	posts := r.filter(func(p *models.Post) bool {
		return p.Status == models.PostStatusScheduled && p.ScheduledAt != nil && !p.ScheduledAt.After(now)
	})
	sort.Slice(posts, func(i, j int) bool { return posts[i].ScheduledAt.Before(*posts[j].ScheduledAt) })
	if limit > 0 && len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

func (r *postRepository) FindByPlatformPostID(_ context.Context, clientID int64, platform models.Platform, platformPostID string) (*models.Post, error) {
	posts := r.filter(func(p *models.Post) bool {
		return p.ClientID == clientID && p.PlatformPosts[platform] == platformPostID && platformPostID != ""
	})
	if len(posts) == 0 {
		return nil, nil
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].ID < posts[j].ID })
	return posts[0], nil
}

func (r *postRepository) CheckByClientID(_ context.Context, postID, clientID int64) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.posts[postID]
	return ok && p.ClientID == clientID, nil
}

func (r *postRepository) Claim(_ context.Context, postID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.posts[postID]
	if !ok || p.Status != models.PostStatusScheduled {
		return false, nil
	}
	p.Status = models.PostStatusPublishing
	p.UpdatedAt = time.Now()
	return true, nil
}

func (r *postRepository) update(postID int64, fn func(*models.Post)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.posts[postID]
	if !ok {
		return errors.New("post not found")
	}
	fn(p)
	p.UpdatedAt = time.Now()
	return nil
}

func (r *postRepository) Schedule(_ context.Context, postID int64, at time.Time) error {
	return r.update(postID, func(p *models.Post) {
		p.Status = models.PostStatusScheduled
		p.ScheduledAt = &at
		p.LastError = ""
	})
}

func (r *postRepository) UpdatePostStatus(_ context.Context, postID int64, status models.PostStatus, lastError string) error {
	return r.update(postID, func(p *models.Post) {
		p.Status = status
		p.LastError = lastError
	})
}

func (r *postRepository) SetPlatformPostID(_ context.Context, postID int64, platform models.Platform, platformPostID string) error {
	return r.update(postID, func(p *models.Post) {
		if p.PlatformPosts == nil {
			p.PlatformPosts = models.PlatformPostIDs{}
		}
		p.PlatformPosts[platform] = platformPostID
	})
}

func (r *postRepository) Remove(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.posts, id)
	for rid, e := range r.s.retries {
		if e.PostID == id {
			delete(r.s.retries, rid)
		}
	}
	return nil
}

type mediaAssetRepository struct{ s *Store }

func (r *mediaAssetRepository) Create(_ context.Context, ma *models.MediaAsset) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *ma
	c.ID = r.s.id()
	c.CreatedAt = time.Now()
	r.s.media[c.ID] = &c
	return c.ID, nil
}

func (r *mediaAssetRepository) GetByID(_ context.Context, id int64) (*models.MediaAsset, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ma, ok := r.s.media[id]
	if !ok {
		return nil, nil
	}
	c := *ma
	return &c, nil
}

func (r *mediaAssetRepository) ListByIDs(_ context.Context, ids []int64) ([]*models.MediaAsset, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var assets []*models.MediaAsset
	for _, id := range ids {
		if ma, ok := r.s.media[id]; ok {
			c := *ma
			assets = append(assets, &c)
		}
	}
	return assets, nil
}
