package platform

import (
	"context"
	"fmt"
	"io"
	"net/http"

	config "github.com/maheshrc27/ghst/configs"
	"github.com/maheshrc27/ghst/internal/models"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/linkedin"
)

var TwitterEndpoint = oauth2.Endpoint{
	AuthURL:   "https://twitter.com/i/oauth2/authorize",
	TokenURL:  "https://api.twitter.com/2/oauth2/token",
	AuthStyle: oauth2.AuthStyleInHeader,
}

var oauthScopes = map[models.Platform][]string{
	models.PlatformLinkedIn: {"openid", "profile", "w_member_social"},
	models.PlatformTwitter:  {"tweet.read", "tweet.write", "users.read", "offline.access"},
}

// IdentityURLs answer "who owns this token" for each OAuth platform.
var IdentityURLs = map[models.Platform]string{
	models.PlatformLinkedIn: "https://api.linkedin.com/v2/userinfo",
	models.PlatformTwitter:  "https://api.twitter.com/2/users/me",
}

// OAuthConfigs returns the OAuth2 configurations for platforms that issue
// short-lived tokens. Platforms without client credentials are left out.
func OAuthConfigs(c *config.Config) map[models.Platform]*oauth2.Config {
	out := make(map[models.Platform]*oauth2.Config)
	add := func(p models.Platform, client config.OAuthClient, endpoint oauth2.Endpoint) {
		if client.ClientID == "" {
			return
		}
		out[p] = &oauth2.Config{
			ClientID:     client.ClientID,
			ClientSecret: client.ClientSecret,
			Endpoint:     endpoint,
			RedirectURL:  fmt.Sprintf("%s/auth/%s/callback", c.BaseURL, p),
			Scopes:       oauthScopes[p],
		}
	}
	add(models.PlatformLinkedIn, c.LinkedIn, linkedin.Endpoint)
	add(models.PlatformTwitter, c.Twitter, TwitterEndpoint)
	return out
}

type Identity struct {
	PlatformUserID string
	Name           string
}

// FetchIdentity reads the token owner from an identity endpoint. client must
// already carry the token.
func FetchIdentity(ctx context.Context, p models.Platform, client *http.Client, url string) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Platform: string(p), Message: "identity request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, &Error{Kind: classifyStatus(resp.StatusCode), Platform: string(p), StatusCode: resp.StatusCode, Message: truncate(string(body), 200)}
	}

	root := gjson.ParseBytes(body)
	id := &Identity{}
	switch p {
	case models.PlatformLinkedIn:
		id.PlatformUserID = root.Get("sub").String()
		id.Name = root.Get("name").String()
	case models.PlatformTwitter:
		id.PlatformUserID = root.Get("data.id").String()
		id.Name = root.Get("data.username").String()
	}
	if id.PlatformUserID == "" {
		return nil, &Error{Kind: KindValidation, Platform: string(p), Message: "identity response has no user id"}
	}
	return id, nil
}
