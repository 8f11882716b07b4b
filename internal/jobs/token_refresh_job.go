package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/maheshrc27/ghst/internal/models"
	"github.com/maheshrc27/ghst/internal/repository"
	"github.com/maheshrc27/ghst/pkg/utils"
	"golang.org/x/oauth2"
)

const refreshWindow = 30 * time.Minute

type TokenRefreshJob struct {
	ac      repository.AccountRepository
	cipher  *utils.TokenCipher
	configs map[models.Platform]*oauth2.Config
	now     func() time.Time
}

func NewTokenRefreshJob(ac repository.AccountRepository, cipher *utils.TokenCipher, configs map[models.Platform]*oauth2.Config) *TokenRefreshJob {
	return &TokenRefreshJob{
		ac:      ac,
		cipher:  cipher,
		configs: configs,
		now:     time.Now,
	}
}

// RefreshTokens renews every token that expires within the next 30 minutes.
func (j *TokenRefreshJob) RefreshTokens(ctx context.Context) error {
	accounts, err := j.ac.ListExpiring(ctx, j.now().Add(refreshWindow))
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed []error
	)
	semaphore := make(chan struct{}, 10)

	for _, acc := range accounts {
		conf, ok := j.configs[acc.Platform]
		if !ok {
			continue
		}

		wg.Add(1)
		semaphore <- struct{}{}
		go func(acc *models.Account) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if err := j.refresh(ctx, acc, conf); err != nil {
				slog.Info("unable to refresh token", "account_id", acc.ID, "platform", acc.Platform, "error", err.Error())
				mu.Lock()
				failed = append(failed, fmt.Errorf("account %d: %w", acc.ID, err))
				mu.Unlock()
			}
		}(acc)
	}
	wg.Wait()

	return errors.Join(failed...)
}

func (j *TokenRefreshJob) refresh(ctx context.Context, acc *models.Account, conf *oauth2.Config) error {
	refreshToken, err := j.cipher.Decrypt(acc.RefreshToken)
	if err != nil {
		return err
	}
	if refreshToken == "" {
		return errors.New("no refresh token")
	}

	// An expired token forces the source to hit the token endpoint.
	stale := &oauth2.Token{RefreshToken: refreshToken, Expiry: j.now().Add(-time.Minute)}
	tok, err := conf.TokenSource(ctx, stale).Token()
	if err != nil {
		return err
	}

	access, err := j.cipher.Encrypt(tok.AccessToken)
	if err != nil {
		return err
	}
	var refresh string
	if tok.RefreshToken != "" && tok.RefreshToken != refreshToken {
		if refresh, err = j.cipher.Encrypt(tok.RefreshToken); err != nil {
			return err
		}
	}

	update := &models.Account{AccessToken: access, RefreshToken: refresh}
	if !tok.Expiry.IsZero() {
		expiry := tok.Expiry.UTC()
		update.TokenExpiresAt = &expiry
	}
	return j.ac.SetToken(ctx, acc.ID, acc.AccessToken, update)
}
