package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"github.com/goliatone/go-connections/core"
)

func TestResolverFetchMapsNestedFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer token-1" {
			t.Errorf("unexpected authorization header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"id":"42","username":"alice"}}`))
	}))
	defer server.Close()

	profile, err := DefaultResolver().Fetch(context.Background(), Request{
		Provider:    "twitter",
		URL:         server.URL,
		AccessToken: "token-1",
		Mapping:     core.ProfileMapping{IDField: "data.id", NameFields: []string{"data.username"}},
	})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if profile.ID != "42" || profile.DisplayName != "alice" {
		t.Fatalf("unexpected profile %#v", profile)
	}
}

func TestResolverFetchKeepsLargeNumericIDs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"user_id": 9007199254740993, "name": "big"}`))
	}))
	defer server.Close()

	profile, err := DefaultResolver().Fetch(context.Background(), Request{
		Provider:    "mailchimp",
		URL:         server.URL,
		AccessToken: "token-1",
		Mapping:     core.ProfileMapping{IDField: "user_id", NameFields: []string{"name"}},
	})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if profile.ID != "9007199254740993" {
		t.Fatalf("expected exact numeric id, got %q", profile.ID)
	}
}

func TestResolverFetchUsesCustomScheme(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "OAuth mc-token" {
			t.Errorf("unexpected authorization header %q", got)
		}
		_, _ = w.Write([]byte(`{"user_id":7,"accountname":"","login":{"login_name":"shop@example.com"}}`))
	}))
	defer server.Close()

	profile, err := NewResolver(Config{HTTPClient: server.Client()}).Fetch(context.Background(), Request{
		Provider:    "mailchimp",
		URL:         server.URL,
		AuthScheme:  "OAuth",
		AccessToken: "mc-token",
		Mapping: core.ProfileMapping{
			IDField:            "user_id",
			NameFields:         []string{"accountname"},
			FallbackNameFields: []string{"login.login_name"},
		},
	})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if profile.ID != "7" || profile.DisplayName != "shop@example.com" {
		t.Fatalf("unexpected profile %#v", profile)
	}
}

func TestResolverFetchFailuresAreProfileFetchFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"forbidden"}`))
	}))
	defer server.Close()

	_, err := DefaultResolver().Fetch(context.Background(), Request{
		Provider:    "twitter",
		URL:         server.URL,
		AccessToken: "token-1",
		Mapping:     core.ProfileMapping{IDField: "data.id"},
	})
	if !core.IsErrorCode(err, core.ErrorProfileFetchFailed) {
		t.Fatalf("expected profile fetch failure, got %v", err)
	}
	if status := core.MapError(err).Metadata["status_code"]; status != http.StatusForbidden {
		t.Fatalf("expected upstream status in metadata, got %#v", status)
	}

	_, err = DefaultResolver().Fetch(context.Background(), Request{Provider: "twitter", AccessToken: "x"})
	if !core.IsErrorCode(err, core.ErrorProfileFetchFailed) {
		t.Fatalf("expected missing endpoint to fail, got %v", err)
	}
}

func TestExtractProfileRequiresID(t *testing.T) {
	if _, err := ExtractProfile(map[string]any{"name": "x"}, core.ProfileMapping{}); err == nil {
		t.Fatalf("expected missing id to fail")
	}
	profile, err := ExtractProfile(map[string]any{
		"id":                 "abc",
		"localizedFirstName": "Ada",
		"localizedLastName":  "Lovelace",
	}, core.ProfileMapping{NameFields: []string{"localizedFirstName", "localizedLastName"}})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if profile.DisplayName != "Ada Lovelace" {
		t.Fatalf("unexpected display name %q", profile.DisplayName)
	}
}

func TestProfileFromIDToken(t *testing.T) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":         "li-123",
		"given_name":  "Grace",
		"family_name": "Hopper",
		"name":        "Rear Admiral",
	}).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	profile, err := ProfileFromIDToken(signed)
	if err != nil {
		t.Fatalf("profile from id token: %v", err)
	}
	if profile.ID != "li-123" || profile.DisplayName != "Grace Hopper" {
		t.Fatalf("unexpected profile %#v", profile)
	}

	nameOnly, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "li-456",
		"name": "Single Name",
	}).SignedString([]byte("test-key"))
	profile, err = ProfileFromIDToken(nameOnly)
	if err != nil {
		t.Fatalf("profile from id token: %v", err)
	}
	if profile.DisplayName != "Single Name" {
		t.Fatalf("expected name claim fallback, got %q", profile.DisplayName)
	}

	if _, err := ProfileFromIDToken("not-a-jwt"); err == nil {
		t.Fatalf("expected malformed token to fail")
	}
}
