package service

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/maheshrc27/ghst/internal/models"
	"github.com/maheshrc27/ghst/internal/repository/memory"
	"github.com/maheshrc27/ghst/pkg/utils"
	"golang.org/x/oauth2"
)

func TestPlatformConnectFlow(t *testing.T) {
	ctx := context.Background()
	var gotVerifier string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			gotVerifier = r.FormValue("code_verifier")
			if r.FormValue("code") != "auth-code" {
				http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"access-1","refresh_token":"refresh-1","token_type":"bearer","expires_in":7200}`))
		case "/me":
			if r.Header.Get("Authorization") != "Bearer access-1" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte(`{"data":{"id":"2244994945","username":"ghst_app"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	repos := memory.NewRepositories()
	cipher, _ := utils.NewTokenCipher(bytes.Repeat([]byte{2}, 32))
	configs := map[models.Platform]*oauth2.Config{
		models.PlatformTwitter: {
			ClientID:    "client",
			Endpoint:    oauth2.Endpoint{AuthURL: srv.URL + "/authorize", TokenURL: srv.URL + "/token", AuthStyle: oauth2.AuthStyleInParams},
			RedirectURL: "https://app.test/auth/twitter/callback",
		},
	}
	svc := NewPlatformService("secret", configs, NewAccountService(repos.Accounts, cipher)).(*platformService)
	svc.identityURLs = map[models.Platform]string{models.PlatformTwitter: srv.URL + "/me"}

	authURL, err := svc.GetAuthURL("x", 7, 3)
	if err != nil {
		t.Fatal(err)
	}
	u, err := url.Parse(authURL)
	if err != nil {
		t.Fatal(err)
	}
	state := u.Query().Get("state")
	if state == "" || u.Query().Get("code_challenge_method") != "S256" {
		t.Fatalf("auth url missing state or PKCE: %s", authURL)
	}
	if _, err := utils.ValidateToken("secret", state); err == nil {
		t.Error("oauth state accepted as a dashboard session token")
	}

	if _, err := svc.Callback(ctx, "twitter", "auth-code", "forged"); !errors.Is(err, ErrForbidden) {
		t.Errorf("forged state: err = %v, want ErrForbidden", err)
	}

	acc, err := svc.Callback(ctx, "twitter", "auth-code", state)
	if err != nil {
		t.Fatal(err)
	}
	if gotVerifier != svc.verifier(state) {
		t.Errorf("code_verifier = %q, want the derived verifier", gotVerifier)
	}
	if acc.ClientID != 7 || acc.PlatformUserID != "2244994945" || acc.AccountName != "ghst_app" {
		t.Errorf("account = %+v", acc)
	}
	if acc.TokenExpiresAt == nil {
		t.Error("token expiry not stored")
	}

	stored, err := repos.Accounts.GetActiveByPlatformUser(ctx, models.PlatformTwitter, "2244994945")
	if err != nil || stored == nil {
		t.Fatalf("account not stored: %v", err)
	}
	if plain, _ := cipher.Decrypt(stored.RefreshToken); plain != "refresh-1" {
		t.Errorf("refresh token = %q", plain)
	}
}

func TestPlatformNotConfigured(t *testing.T) {
	svc := NewPlatformService("secret", nil, nil)
	if _, err := svc.GetAuthURL("linkedin", 1, 1); !errors.Is(err, ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}
