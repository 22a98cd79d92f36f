package core

import (
	"context"
	"testing"
	"time"
)

func TestNewServiceRequiresRegistry(t *testing.T) {
	if _, err := NewService(Config{}); err == nil {
		t.Fatalf("expected missing registry to fail")
	}
}

func TestGoOptionsResolverLayersRuntimeOverDefaults(t *testing.T) {
	defaults := DefaultConfig()
	runtime := Config{OAuth: OAuthConfig{StateTTL: 5 * time.Minute}}
	resolved, err := GoOptionsResolver{}.Resolve(defaults, Config{}, runtime)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.OAuth.StateTTL != 5*time.Minute {
		t.Fatalf("expected runtime ttl, got %s", resolved.OAuth.StateTTL)
	}
	if resolved.OAuth.FrontendRedirectURL != defaults.OAuth.FrontendRedirectURL {
		t.Fatalf("expected default frontend url, got %q", resolved.OAuth.FrontendRedirectURL)
	}
	if resolved.ServiceName != "connections" {
		t.Fatalf("expected default service name, got %q", resolved.ServiceName)
	}
}

func TestCfgxConfigProviderLoadsRawValues(t *testing.T) {
	provider := NewCfgxConfigProvider(StaticRawConfigLoader{Values: map[string]any{
		"oauth": map[string]any{
			"frontend_redirect_url":  "https://app.example/settings",
			"profile_failure_policy": "reject",
		},
	}})
	cfg, err := provider.Load(context.Background(), DefaultConfig())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.OAuth.FrontendRedirectURL != "https://app.example/settings" {
		t.Fatalf("unexpected frontend url %q", cfg.OAuth.FrontendRedirectURL)
	}
	if cfg.OAuth.ProfileFailurePolicy != ProfileFailureReject {
		t.Fatalf("unexpected policy %q", cfg.OAuth.ProfileFailurePolicy)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OAuth.FrontendRedirectURL = "/relative"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected relative frontend url to fail")
	}
	cfg = DefaultConfig()
	cfg.OAuth.ProfileFailurePolicy = "ignore"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected unknown policy to fail")
	}
}

func TestNewServiceUsesFrontendRedirect(t *testing.T) {
	registry, err := NewRegistry(newFakeStrategy("twitter"))
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	svc, err := NewService(Config{OAuth: OAuthConfig{FrontendRedirectURL: "https://app.example/profile?tab=links"}},
		WithRegistry(registry),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	result, _ := svc.HandleCallback(context.Background(), CallbackRequest{Provider: "twitter"})
	query := redirectQuery(t, result.RedirectURL)
	if query.Get("tab") != "links" || query.Get("error") != "malformed_callback" {
		t.Fatalf("expected existing query to be kept, got %v", query)
	}
}
