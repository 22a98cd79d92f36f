package common

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/goliatone/go-connections/core"
)

func newGraphProvider(t *testing.T, server *httptest.Server) *Provider {
	t.Helper()
	platform := Platform("facebook", "Facebook", []string{"pages_show_list", "pages_manage_posts"})
	platform.TokenURL = server.URL + "/oauth/access_token"
	platform.ProfileURL = server.URL + "/me?fields=id,name"
	provider, err := New(platform, AuthConfig{
		ClientID:     "app-id",
		ClientSecret: "app-secret",
		RedirectURI:  "https://app.example.com/oauth/facebook/callback",
		HTTPClient:   server.Client(),
	})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	return provider.WithPermissionsURL(server.URL + "/me/permissions")
}

func TestPlatformUsesCommaJoinedScopes(t *testing.T) {
	provider, err := New(Platform("facebook", "Facebook", []string{"a", "b"}), AuthConfig{
		ClientID:     "app-id",
		ClientSecret: "app-secret",
		RedirectURI:  "https://app.example.com/oauth/facebook/callback",
	})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	raw, err := provider.AuthorizeURL("state", "")
	if err != nil {
		t.Fatalf("authorize url: %v", err)
	}
	parsed, _ := url.Parse(raw)
	if parsed.Scheme+"://"+parsed.Host+parsed.Path != MetaOAuthAuthURL {
		t.Fatalf("unexpected dialog endpoint %q", raw)
	}
	if got := parsed.Query().Get("scope"); got != "a,b" {
		t.Fatalf("expected comma joined scopes, got %q", got)
	}
	if provider.Config().Placeholder() != "Facebook User" {
		t.Fatalf("unexpected placeholder %q", provider.Config().Placeholder())
	}
}

func TestProviderExchangeUnderstandsGraphErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"message":"Error validating client secret.","type":"OAuthException","code":1}}`)
	}))
	defer server.Close()

	provider := newGraphProvider(t, server)
	_, err := provider.Exchange(context.Background(), "code", "")
	if !core.IsErrorCode(err, core.ErrorConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestProviderFetchProfileAndRevoke(t *testing.T) {
	var revokedMethod, revokedAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/me":
			if r.URL.Query().Get("fields") != "id,name" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"id":"1017","name":"Grace Hopper"}`)
		case "/me/permissions":
			revokedMethod = r.Method
			revokedAuth = r.Header.Get("Authorization")
			_, _ = io.WriteString(w, `{"success":true}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	provider := newGraphProvider(t, server)
	profile, err := provider.FetchProfile(context.Background(), core.TokenResult{AccessToken: "tok"})
	if err != nil {
		t.Fatalf("fetch profile: %v", err)
	}
	if profile.ID != "1017" || profile.DisplayName != "Grace Hopper" {
		t.Fatalf("unexpected profile %+v", profile)
	}

	if err := provider.Revoke(context.Background(), "tok"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if revokedMethod != http.MethodDelete || revokedAuth != "Bearer tok" {
		t.Fatalf("unexpected revoke request %s %q", revokedMethod, revokedAuth)
	}
}
