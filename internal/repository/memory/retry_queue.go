package memory

import (
	"context"
	"sort"
	"time"

	"github.com/maheshrc27/ghst/internal/models"
)

type retryQueueRepository struct{ s *Store }

func (r *retryQueueRepository) Enqueue(_ context.Context, entry *models.RetryQueueEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now()
	for _, e := range r.s.retries {
		if e.PostID == entry.PostID && e.Platform == entry.Platform {
			e.Attempts = 0
			e.MaxAttempts = entry.MaxAttempts
			e.RetryAfter = entry.RetryAfter
			e.LastError = entry.LastError
			e.Status = models.RetryStatusPending
			e.UpdatedAt = now
			return nil
		}
	}
	c := *entry
	c.ID = r.s.id()
	c.Attempts = 0
	c.Status = models.RetryStatusPending
	c.CreatedAt = now
	c.UpdatedAt = now
	r.s.retries[c.ID] = &c
	return nil
}

func (r *retryQueueRepository) ListDue(_ context.Context, now time.Time, limit int) ([]*models.RetryQueueEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var due []*models.RetryQueueEntry
	for _, e := range r.s.retries {
		if e.Status == models.RetryStatusPending && !e.RetryAfter.After(now) && e.Attempts < e.MaxAttempts {
			c := *e
			due = append(due, &c)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].RetryAfter.Before(due[j].RetryAfter) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (r *retryQueueRepository) RecordFailure(_ context.Context, entry *models.RetryQueueEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.retries[entry.ID]
	if !ok {
		return nil
	}
	e.Attempts = entry.Attempts
	e.RetryAfter = entry.RetryAfter
	e.LastError = entry.LastError
	e.Status = entry.Status
	e.UpdatedAt = time.Now()
	return nil
}

func (r *retryQueueRepository) Remove(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.retries, id)
	return nil
}

func (r *retryQueueRepository) RemoveByPostID(_ context.Context, postID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, e := range r.s.retries {
		if e.PostID == postID {
			delete(r.s.retries, id)
		}
	}
	return nil
}

func (r *retryQueueRepository) CountByPostID(_ context.Context, postID int64) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	count := 0
	for _, e := range r.s.retries {
		if e.PostID == postID {
			count++
		}
	}
	return count, nil
}

func (r *retryQueueRepository) ListByClientID(_ context.Context, clientID int64, status models.RetryStatus) ([]*models.RetryQueueEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var entries []*models.RetryQueueEntry
	for _, e := range r.s.retries {
		p, ok := r.s.posts[e.PostID]
		if !ok || p.ClientID != clientID {
			continue
		}
		if status != "" && e.Status != status {
			continue
		}
		c := *e
		entries = append(entries, &c)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}

type publishHistoryRepository struct{ s *Store }

func (r *publishHistoryRepository) Create(_ context.Context, ph *models.PublishHistory) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *ph
	c.ID = r.s.id()
	c.CreatedAt = time.Now()
	r.s.history = append(r.s.history, &c)
	return c.ID, nil
}

func (r *publishHistoryRepository) GetByPostID(_ context.Context, postID int64) ([]*models.PublishHistory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*models.PublishHistory
	for i := len(r.s.history) - 1; i >= 0; i-- {
		if h := r.s.history[i]; h.PostID == postID {
			c := *h
			out = append(out, &c)
		}
	}
	return out, nil
}
