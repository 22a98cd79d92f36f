package providers

import (
	"strings"
	"time"

	"github.com/goliatone/go-connections/core"
)

// AppCredentials are the per-deployment values a provider package needs on
// top of its built-in endpoint table.
type AppCredentials struct {
	ClientID            string
	ClientSecret        string
	RedirectURI         string
	Scopes              []string
	HTTPClient          HTTPDoer
	TokenRequestTimeout time.Duration
	Now                 func() time.Time
}

func (c AppCredentials) Configured() bool {
	return strings.TrimSpace(c.ClientID) != "" && strings.TrimSpace(c.ClientSecret) != ""
}

// ResolveScopes returns the configured scopes, or fallback when none are set.
func (c AppCredentials) ResolveScopes(fallback []string) []string {
	scopes := NormalizeScopes(c.Scopes)
	if len(scopes) == 0 {
		return NormalizeScopes(fallback)
	}
	return scopes
}

// OAuth2Config merges the credentials into a provider platform definition.
func (c AppCredentials) OAuth2Config(platform core.PlatformConfig) OAuth2Config {
	platform.ClientID = strings.TrimSpace(c.ClientID)
	platform.ClientSecret = strings.TrimSpace(c.ClientSecret)
	platform.RedirectURI = strings.TrimSpace(c.RedirectURI)
	platform.Scopes = c.ResolveScopes(platform.Scopes)
	return OAuth2Config{
		Platform:            platform,
		TokenRequestTimeout: c.TokenRequestTimeout,
		Now:                 c.Now,
		HTTPClient:          c.HTTPClient,
	}
}

// NormalizeScopes trims, dedupes and drops empty scopes, keeping order.
func NormalizeScopes(scopes []string) []string {
	if len(scopes) == 0 {
		return nil
	}
	seen := map[string]struct{}{}
	out := make([]string, 0, len(scopes))
	for _, scope := range scopes {
		trimmed := strings.TrimSpace(scope)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}
