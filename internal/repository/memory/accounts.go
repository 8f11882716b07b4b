package memory

import (
	"context"
	"errors"
	"slices"
	"sort"
	"time"

	"github.com/maheshrc27/ghst/internal/models"
)

func cloneAccount(a *models.Account) *models.Account {
	c := *a
	c.AccountData = slices.Clone(a.AccountData)
	return &c
}

type accountRepository struct{ s *Store }

func (r *accountRepository) Create(_ context.Context, acc *models.Account) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := cloneAccount(acc)
	c.UpdatedAt = time.Now()
	for _, existing := range r.s.accounts {
		if existing.ClientID == c.ClientID && existing.Platform == c.Platform && existing.PlatformUserID == c.PlatformUserID {
			c.ID = existing.ID
			c.CreatedAt = existing.CreatedAt
			r.s.accounts[c.ID] = c
			return c.ID, nil
		}
	}
	c.ID = r.s.id()
	c.CreatedAt = c.UpdatedAt
	r.s.accounts[c.ID] = c
	return c.ID, nil
}

func (r *accountRepository) GetByID(_ context.Context, id int64) (*models.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.accounts[id]
	if !ok {
		return nil, nil
	}
	return cloneAccount(a), nil
}

// list returns matching accounts ordered by id.
func (r *accountRepository) list(keep func(*models.Account) bool) []*models.Account {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*models.Account
	for _, a := range r.s.accounts {
		if keep(a) {
			out = append(out, cloneAccount(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *accountRepository) GetActiveByPlatformUser(_ context.Context, platform models.Platform, platformUserID string) (*models.Account, error) {
	accounts := r.list(func(a *models.Account) bool {
		return a.IsActive && a.Platform == platform && a.PlatformUserID == platformUserID
	})
	if len(accounts) == 0 {
		return nil, nil
	}
	return accounts[0], nil
}

func (r *accountRepository) GetActiveByClientPlatform(_ context.Context, clientID int64, platform models.Platform) (*models.Account, error) {
	accounts := r.list(func(a *models.Account) bool {
		return a.IsActive && a.ClientID == clientID && a.Platform == platform
	})
	if len(accounts) == 0 {
		return nil, nil
	}
	return accounts[0], nil
}

func (r *accountRepository) ListByClientID(_ context.Context, clientID int64) ([]*models.Account, error) {
	return r.list(func(a *models.Account) bool { return a.ClientID == clientID }), nil
}

func (r *accountRepository) ListExpiring(_ context.Context, before time.Time) ([]*models.Account, error) {
	return r.list(func(a *models.Account) bool {
		return a.IsActive && a.RefreshToken != "" && a.TokenExpiresAt != nil && a.TokenExpiresAt.Before(before)
	}), nil
}

func (r *accountRepository) CheckByClientID(_ context.Context, accountID, clientID int64) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.accounts[accountID]
	return ok && a.ClientID == clientID, nil
}

func (r *accountRepository) SetToken(_ context.Context, id int64, oldAccessToken string, acc *models.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[id]
	if !ok || a.AccessToken != oldAccessToken {
		return errors.New("no rows affected; token was rotated concurrently")
	}
	if acc.AccessToken != "" {
		a.AccessToken = acc.AccessToken
	}
	if acc.RefreshToken != "" {
		a.RefreshToken = acc.RefreshToken
	}
	if acc.TokenExpiresAt != nil {
		t := *acc.TokenExpiresAt
		a.TokenExpiresAt = &t
	}
	a.UpdatedAt = time.Now()
	return nil
}

func (r *accountRepository) Deactivate(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if a, ok := r.s.accounts[id]; ok {
		a.IsActive = false
		a.UpdatedAt = time.Now()
	}
	return nil
}

type apiKeyRepository struct{ s *Store }

func (r *apiKeyRepository) GetClientIDByKey(_ context.Context, apiKey string) (int64, bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, k := range r.s.apiKeys {
		if k.ApiKey == apiKey {
			return k.ClientID, true, nil
		}
	}
	return 0, false, nil
}

func (r *apiKeyRepository) GetByClientID(_ context.Context, clientID int64) ([]*models.ApiKey, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var keys []*models.ApiKey
	for _, k := range r.s.apiKeys {
		if k.ClientID == clientID {
			c := *k
			keys = append(keys, &c)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].ID < keys[j].ID })
	return keys, nil
}

func (r *apiKeyRepository) Create(_ context.Context, apiKey *models.ApiKey) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, k := range r.s.apiKeys {
		if k.ApiKey == apiKey.ApiKey {
			return 0, errors.New("duplicate api key")
		}
	}
	c := *apiKey
	c.ID = r.s.id()
	c.CreatedAt = time.Now()
	r.s.apiKeys[c.ID] = &c
	return c.ID, nil
}

func (r *apiKeyRepository) CheckByClientID(_ context.Context, keyID, clientID int64) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	k, ok := r.s.apiKeys[keyID]
	return ok && k.ClientID == clientID, nil
}

func (r *apiKeyRepository) Remove(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.apiKeys, id)
	return nil
}
