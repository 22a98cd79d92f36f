package facebook

import (
	"github.com/goliatone/go-connections/core"
	meta "github.com/goliatone/go-connections/providers/meta/common"
)

const ProviderKey = "facebook"

const (
	ScopePagesManagePosts    = "pages_manage_posts"
	ScopePagesReadEngagement = "pages_read_engagement"
	ScopePagesShowList       = "pages_show_list"
)

type Config = meta.AuthConfig

type Provider = meta.Provider

func DefaultScopes() []string {
	return []string{ScopePagesManagePosts, ScopePagesReadEngagement, ScopePagesShowList}
}

func DefaultPlatform() core.PlatformConfig {
	return meta.Platform(ProviderKey, "Facebook", DefaultScopes())
}

func New(cfg Config) (*Provider, error) {
	return meta.New(DefaultPlatform(), cfg)
}
