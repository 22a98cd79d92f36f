package common

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/goliatone/go-connections/core"
	"github.com/goliatone/go-connections/providers"
)

const (
	GraphVersion      = "v18.0"
	GraphBaseURL      = "https://graph.facebook.com/" + GraphVersion
	MetaOAuthAuthURL  = "https://www.facebook.com/" + GraphVersion + "/dialog/oauth"
	MetaOAuthTokenURL = GraphBaseURL + "/oauth/access_token"
	MetaProfileURL    = GraphBaseURL + "/me?fields=id,name"
	MetaPermissionURL = GraphBaseURL + "/me/permissions"
)

type AuthConfig = providers.AppCredentials

// Platform returns the Graph API platform definition shared by the Meta
// products. Scopes are joined by commas as the dialog expects.
func Platform(key string, displayName string, scopes []string) core.PlatformConfig {
	return core.PlatformConfig{
		Key:          strings.TrimSpace(strings.ToLower(key)),
		DisplayName:  displayName,
		AuthorizeURL: MetaOAuthAuthURL,
		TokenURL:     MetaOAuthTokenURL,
		ProfileURL:   MetaProfileURL,
		Scopes:       append([]string(nil), scopes...),
		ScopeJoiner:  ",",
		SecretMode:   core.SecretModeBody,
		ProfileMapping: core.ProfileMapping{
			IDField:    "id",
			NameFields: []string{"name"},
		},
		PlaceholderName: displayName + " User",
	}
}

// Provider is a Graph API strategy. Revocation removes every permission the
// user granted the app.
type Provider struct {
	*providers.OAuth2Provider
	permissionsURL string
}

func New(platform core.PlatformConfig, cfg AuthConfig) (*Provider, error) {
	if strings.TrimSpace(platform.Key) == "" {
		return nil, fmt.Errorf("providers/meta/common: provider key is required")
	}
	oauthProvider, err := providers.NewOAuth2Provider(cfg.OAuth2Config(platform))
	if err != nil {
		return nil, err
	}
	return &Provider{OAuth2Provider: oauthProvider, permissionsURL: MetaPermissionURL}, nil
}

// WithPermissionsURL points revocation at a different Graph host.
func (p *Provider) WithPermissionsURL(endpoint string) *Provider {
	if p != nil && strings.TrimSpace(endpoint) != "" {
		p.permissionsURL = strings.TrimSpace(endpoint)
	}
	return p
}

func (p *Provider) Revoke(ctx context.Context, accessToken string) error {
	if p == nil || p.OAuth2Provider == nil {
		return fmt.Errorf("providers/meta/common: provider is nil")
	}
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return nil
	}
	return p.SendRevocation(ctx, http.MethodDelete, p.permissionsURL, nil, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	})
}

var _ core.Strategy = (*Provider)(nil)
var _ core.Revoker = (*Provider)(nil)
