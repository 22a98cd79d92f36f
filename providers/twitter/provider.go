package twitter

import (
	"github.com/goliatone/go-connections/core"
	"github.com/goliatone/go-connections/providers"
)

const ProviderKey = "twitter"

const (
	AuthorizeURL = "https://twitter.com/i/oauth2/authorize"
	TokenURL     = "https://api.twitter.com/2/oauth2/token"
	ProfileURL   = "https://api.twitter.com/2/users/me"
	RevokeURL    = "https://api.twitter.com/2/oauth2/revoke"
)

const (
	ScopeTweetRead     = "tweet.read"
	ScopeTweetWrite    = "tweet.write"
	ScopeUsersRead     = "users.read"
	ScopeOfflineAccess = "offline.access"
)

type Config = providers.AppCredentials

func DefaultScopes() []string {
	return []string{ScopeTweetRead, ScopeTweetWrite, ScopeUsersRead, ScopeOfflineAccess}
}

// DefaultPlatform describes the X (Twitter) OAuth 2.0 flow: confidential
// client credentials in a Basic header and mandatory S256 PKCE.
func DefaultPlatform() core.PlatformConfig {
	return core.PlatformConfig{
		Key:          ProviderKey,
		DisplayName:  "Twitter",
		AuthorizeURL: AuthorizeURL,
		TokenURL:     TokenURL,
		ProfileURL:   ProfileURL,
		RevokeURL:    RevokeURL,
		Scopes:       DefaultScopes(),
		SecretMode:   core.SecretModeHeader,
		UsePKCE:      true,
		ProfileMapping: core.ProfileMapping{
			IDField:            "data.id",
			NameFields:         []string{"data.username"},
			FallbackNameFields: []string{"data.name"},
		},
		PlaceholderName: "Twitter User",
	}
}

func New(cfg Config) (*providers.OAuth2Provider, error) {
	return providers.NewOAuth2Provider(cfg.OAuth2Config(DefaultPlatform()))
}
