package twitter

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/goliatone/go-connections/core"
	"github.com/goliatone/go-connections/providers"
)

func TestNewUsesPKCEAndHeaderCredentials(t *testing.T) {
	provider, err := New(Config{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURI:  "https://app.example.com/oauth/twitter/callback",
	})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	platform := provider.Config()
	if !platform.UsePKCE || platform.SecretMode != core.SecretModeHeader {
		t.Fatalf("unexpected platform %+v", platform.View())
	}

	raw, err := provider.AuthorizeURL("state", "challenge")
	if err != nil {
		t.Fatalf("authorize url: %v", err)
	}
	parsed, _ := url.Parse(raw)
	if parsed.Query().Get("scope") != "tweet.read tweet.write users.read offline.access" {
		t.Fatalf("unexpected scope %q", parsed.Query().Get("scope"))
	}
	if parsed.Query().Get("code_challenge_method") != "S256" {
		t.Fatalf("expected S256 challenge")
	}
}

func TestFetchProfileReadsNestedUser(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"data":{"id":"2244994945","name":"X Dev","username":"XDevelopers"}}`)
	}))
	defer server.Close()

	platform := DefaultPlatform()
	platform.ProfileURL = server.URL + "/2/users/me"
	cfg := Config{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURI:  "https://app.example.com/oauth/twitter/callback",
		HTTPClient:   server.Client(),
	}

	provider, err := providers.NewOAuth2Provider(cfg.OAuth2Config(platform))
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	profile, err := provider.FetchProfile(context.Background(), core.TokenResult{AccessToken: "tok"})
	if err != nil {
		t.Fatalf("fetch profile: %v", err)
	}
	if profile.ID != "2244994945" || profile.DisplayName != "XDevelopers" {
		t.Fatalf("unexpected profile %+v", profile)
	}
}
