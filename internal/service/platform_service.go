package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/ghst/internal/models"
	"github.com/maheshrc27/ghst/internal/platform"
	"github.com/maheshrc27/ghst/internal/transfer"
	"github.com/maheshrc27/ghst/pkg/utils"
	"golang.org/x/oauth2"
)

const oauthStateTTL = 10 * time.Minute

// PlatformService runs the OAuth connect flow for platforms that hand out
// refreshable tokens.
type PlatformService interface {
	GetAuthURL(platform string, clientID, userID int64) (string, error)
	Callback(ctx context.Context, platform, code, state string) (*models.Account, error)
}

type platformService struct {
	secret       string
	configs      map[models.Platform]*oauth2.Config
	identityURLs map[models.Platform]string
	accounts     AccountService
}

func NewPlatformService(secret string, configs map[models.Platform]*oauth2.Config, accounts AccountService) PlatformService {
	return &platformService{
		secret:       secret,
		configs:      configs,
		identityURLs: platform.IdentityURLs,
		accounts:     accounts,
	}
}

func (s *platformService) config(name string) (models.Platform, *oauth2.Config, error) {
	p, err := models.ParsePlatform(name)
	if err != nil {
		return "", nil, invalidErr(err)
	}
	conf, ok := s.configs[p]
	if !ok {
		return "", nil, invalid(fmt.Sprintf("%s connections are not configured", p))
	}
	return p, conf, nil
}

// stateKey keeps state tokens from being accepted as dashboard sessions.
func (s *platformService) stateKey() string {
	return s.secret + ":oauth_state"
}

// verifier derives the PKCE verifier from the state so nothing has to be
// stored between the redirect and the callback.
func (s *platformService) verifier(state string) string {
	mac := hmac.New(sha256.New, []byte(s.secret))
	mac.Write([]byte("pkce:" + state))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (s *platformService) GetAuthURL(name string, clientID, userID int64) (string, error) {
	p, conf, err := s.config(name)
	if err != nil {
		return "", err
	}

	state, err := utils.GenerateToken(s.stateKey(), userID, clientID, oauthStateTTL)
	if err != nil {
		return "", err
	}

	opts := []oauth2.AuthCodeOption{oauth2.AccessTypeOffline}
	if p == models.PlatformTwitter {
		opts = append(opts, oauth2.S256ChallengeOption(s.verifier(state)))
	}
	return conf.AuthCodeURL(state, opts...), nil
}

func (s *platformService) Callback(ctx context.Context, name, code, state string) (*models.Account, error) {
	p, conf, err := s.config(name)
	if err != nil {
		return nil, err
	}
	if code == "" {
		return nil, invalid("code is empty")
	}

	claims, err := utils.ValidateToken(s.stateKey(), state)
	if err != nil {
		slog.Info("oauth state rejected", "platform", p, "error", err.Error())
		return nil, ErrForbidden
	}

	var opts []oauth2.AuthCodeOption
	if p == models.PlatformTwitter {
		opts = append(opts, oauth2.VerifierOption(s.verifier(state)))
	}
	tok, err := conf.Exchange(ctx, code, opts...)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("exchange %s code: %w", p, err)
	}

	identity, err := platform.FetchIdentity(ctx, p, conf.Client(ctx, tok), s.identityURLs[p])
	if err != nil {
		return nil, err
	}

	conn := &transfer.AccountConnection{
		Platform:       string(p),
		PlatformUserID: identity.PlatformUserID,
		AccountName:    identity.Name,
		AccessToken:    tok.AccessToken,
		RefreshToken:   tok.RefreshToken,
	}
	if !tok.Expiry.IsZero() {
		expiry := tok.Expiry.UTC()
		conn.TokenExpiresAt = &expiry
	}
	return s.accounts.Connect(ctx, claims.ClientID, conn)
}
