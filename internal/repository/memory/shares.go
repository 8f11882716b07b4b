package memory

import (
	"context"
	"errors"
	"slices"
	"sort"
	"time"

	"github.com/maheshrc27/ghst/internal/models"
)

func cloneShare(s *models.ShareLink) *models.ShareLink {
	c := *s
	c.AllowedIPs = slices.Clone(s.AllowedIPs)
	c.Permissions = slices.Clone(s.Permissions)
	return &c
}

type shareLinkRepository struct{ s *Store }

func (r *shareLinkRepository) Create(_ context.Context, link *models.ShareLink) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.shares {
		if existing.Token == link.Token {
			return 0, errors.New("duplicate share token")
		}
	}
	c := cloneShare(link)
	c.ID = r.s.id()
	c.IsActive = true
	c.ViewCount = 0
	c.DownloadCount = 0
	c.CreatedAt = time.Now()
	r.s.shares[c.ID] = c
	return c.ID, nil
}

func (r *shareLinkRepository) GetByToken(_ context.Context, token string, kind models.ShareKind) (*models.ShareLink, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, link := range r.s.shares {
		if link.Token == token && link.Kind == kind && link.IsActive {
			return cloneShare(link), nil
		}
	}
	return nil, nil
}

func (r *shareLinkRepository) GetByID(_ context.Context, id int64) (*models.ShareLink, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	link, ok := r.s.shares[id]
	if !ok {
		return nil, nil
	}
	return cloneShare(link), nil
}

func (r *shareLinkRepository) GetByClientID(_ context.Context, clientID int64) ([]*models.ShareLink, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var links []*models.ShareLink
	for _, link := range r.s.shares {
		if link.ClientID == clientID {
			links = append(links, cloneShare(link))
		}
	}
	sort.Slice(links, func(i, j int) bool { return links[i].ID > links[j].ID })
	return links, nil
}

func (r *shareLinkRepository) CheckByClientID(_ context.Context, shareID, clientID int64) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	link, ok := r.s.shares[shareID]
	return ok && link.ClientID == clientID, nil
}

func (r *shareLinkRepository) Revoke(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if link, ok := r.s.shares[id]; ok {
		link.IsActive = false
	}
	return nil
}

func (r *shareLinkRepository) IncrementViews(_ context.Context, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	link, ok := r.s.shares[id]
	if !ok || (link.MaxViews > 0 && link.ViewCount >= link.MaxViews) {
		return false, nil
	}
	link.ViewCount++
	return true, nil
}

func (r *shareLinkRepository) IncrementDownloads(_ context.Context, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	link, ok := r.s.shares[id]
	if !ok || (link.MaxDownloads > 0 && link.DownloadCount >= link.MaxDownloads) {
		return false, nil
	}
	link.DownloadCount++
	return true, nil
}

func (r *shareLinkRepository) CreateAccessLog(_ context.Context, l *models.ShareAccessLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *l
	c.ID = r.s.id()
	c.CreatedAt = time.Now()
	r.s.shareAccess = append(r.s.shareAccess, &c)
	return nil
}

func (r *shareLinkRepository) GetAccessLogs(_ context.Context, shareID int64) ([]*models.ShareAccessLog, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var logs []*models.ShareAccessLog
	for i := len(r.s.shareAccess) - 1; i >= 0; i-- {
		if l := r.s.shareAccess[i]; l.ShareID == shareID {
			c := *l
			logs = append(logs, &c)
		}
	}
	return logs, nil
}

type reportRepository struct{ s *Store }

func (r *reportRepository) Create(_ context.Context, report *models.Report) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *report
	c.ID = r.s.id()
	c.CreatedAt = time.Now()
	r.s.reports[c.ID] = &c
	return c.ID, nil
}

func (r *reportRepository) GetByID(_ context.Context, id int64) (*models.Report, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	report, ok := r.s.reports[id]
	if !ok {
		return nil, nil
	}
	c := *report
	return &c, nil
}

type campaignRepository struct{ s *Store }

func (r *campaignRepository) Create(_ context.Context, campaign *models.Campaign) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *campaign
	c.ID = r.s.id()
	c.CreatedAt = time.Now()
	r.s.campaigns[c.ID] = &c
	return c.ID, nil
}

func (r *campaignRepository) GetByID(_ context.Context, id int64) (*models.Campaign, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	campaign, ok := r.s.campaigns[id]
	if !ok {
		return nil, nil
	}
	c := *campaign
	return &c, nil
}
