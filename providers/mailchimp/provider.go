// Package mailchimp wires the Mailchimp email delivery provider. Mailchimp
// tokens do not expire and there is no revocation endpoint.
package mailchimp

import (
	"github.com/goliatone/go-connections/core"
	"github.com/goliatone/go-connections/providers"
)

const ProviderKey = "mailchimp"

const (
	AuthorizeURL = "https://login.mailchimp.com/oauth2/authorize"
	TokenURL     = "https://login.mailchimp.com/oauth2/token"
	ProfileURL   = "https://login.mailchimp.com/oauth2/metadata"
)

type Config = providers.AppCredentials

func DefaultPlatform() core.PlatformConfig {
	return core.PlatformConfig{
		Key:               ProviderKey,
		DisplayName:       "Mailchimp",
		AuthorizeURL:      AuthorizeURL,
		TokenURL:          TokenURL,
		ProfileURL:        ProfileURL,
		SecretMode:        core.SecretModeBody,
		ProfileAuthScheme: "OAuth",
		ProfileMapping: core.ProfileMapping{
			IDField:            "user_id",
			NameFields:         []string{"accountname"},
			FallbackNameFields: []string{"login.login_name"},
		},
		PlaceholderName: "Mailchimp Account",
	}
}

func New(cfg Config) (*providers.OAuth2Provider, error) {
	return providers.NewOAuth2Provider(cfg.OAuth2Config(DefaultPlatform()))
}
