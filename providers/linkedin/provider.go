package linkedin

import (
	"context"
	"strings"

	"github.com/goliatone/go-connections/core"
	"github.com/goliatone/go-connections/identity"
	"github.com/goliatone/go-connections/providers"
)

const ProviderKey = "linkedin"

const (
	AuthorizeURL = "https://www.linkedin.com/oauth/v2/authorization"
	TokenURL     = "https://www.linkedin.com/oauth/v2/accessToken"
	ProfileURL   = "https://api.linkedin.com/v2/me?projection=(id,localizedFirstName,localizedLastName)"
	RevokeURL    = "https://www.linkedin.com/oauth/v2/revoke"
)

const (
	ScopeOpenID      = "openid"
	ScopeProfile     = "profile"
	ScopeEmail       = "email"
	ScopeMemberShare = "w_member_social"
)

type Config = providers.AppCredentials

// Provider prefers the OIDC id_token for the member identity and only calls
// the profile API when the token response carried none.
type Provider struct {
	*providers.OAuth2Provider
}

func DefaultScopes() []string {
	return []string{ScopeOpenID, ScopeProfile, ScopeEmail, ScopeMemberShare}
}

func DefaultPlatform() core.PlatformConfig {
	return core.PlatformConfig{
		Key:          ProviderKey,
		DisplayName:  "LinkedIn",
		AuthorizeURL: AuthorizeURL,
		TokenURL:     TokenURL,
		ProfileURL:   ProfileURL,
		RevokeURL:    RevokeURL,
		Scopes:       DefaultScopes(),
		SecretMode:   core.SecretModeBody,
		ProfileMapping: core.ProfileMapping{
			IDField:    "id",
			NameFields: []string{"localizedFirstName", "localizedLastName"},
		},
		PlaceholderName: "LinkedIn User",
	}
}

func New(cfg Config) (*Provider, error) {
	return NewWithPlatform(DefaultPlatform(), cfg)
}

func NewWithPlatform(platform core.PlatformConfig, cfg Config) (*Provider, error) {
	oauthProvider, err := providers.NewOAuth2Provider(cfg.OAuth2Config(platform))
	if err != nil {
		return nil, err
	}
	return &Provider{OAuth2Provider: oauthProvider}, nil
}

func (p *Provider) FetchProfile(ctx context.Context, token core.TokenResult) (core.Profile, error) {
	if strings.TrimSpace(token.IDToken) != "" {
		if profile, err := identity.ProfileFromIDToken(token.IDToken); err == nil {
			return profile, nil
		}
	}
	return p.OAuth2Provider.FetchProfile(ctx, token)
}

var _ core.Strategy = (*Provider)(nil)
var _ core.Revoker = (*Provider)(nil)
