package instagram

import (
	"github.com/goliatone/go-connections/core"
	meta "github.com/goliatone/go-connections/providers/meta/common"
)

const ProviderKey = "instagram"

const (
	ScopeInstagramBasic          = "instagram_basic"
	ScopeInstagramContentPublish = "instagram_content_publish"
	ScopePagesShowList           = "pages_show_list"
)

type Config = meta.AuthConfig

type Provider = meta.Provider

func DefaultScopes() []string {
	return []string{ScopeInstagramBasic, ScopeInstagramContentPublish, ScopePagesShowList}
}

// DefaultPlatform uses the Facebook dialog; Instagram business accounts are
// reached through the linked Facebook login.
func DefaultPlatform() core.PlatformConfig {
	return meta.Platform(ProviderKey, "Instagram", DefaultScopes())
}

func New(cfg Config) (*Provider, error) {
	return meta.New(DefaultPlatform(), cfg)
}
