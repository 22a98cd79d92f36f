package connections

import (
	"fmt"
	"sort"

	"github.com/goliatone/go-connections/core"
	"github.com/goliatone/go-connections/providers"
	"github.com/goliatone/go-connections/providers/linkedin"
	"github.com/goliatone/go-connections/providers/mailchimp"
	"github.com/goliatone/go-connections/providers/meta/facebook"
	"github.com/goliatone/go-connections/providers/meta/instagram"
	"github.com/goliatone/go-connections/providers/twitter"
	glog "github.com/goliatone/go-logger/glog"
)

// ProviderFactory builds a provider strategy from deployment credentials.
type ProviderFactory func(cfg providers.AppCredentials) (core.Strategy, error)

func TwitterProvider(cfg twitter.Config) (core.Strategy, error) {
	return twitter.New(cfg)
}

func LinkedInProvider(cfg linkedin.Config) (core.Strategy, error) {
	return linkedin.New(cfg)
}

func FacebookProvider(cfg facebook.Config) (core.Strategy, error) {
	return facebook.New(cfg)
}

func InstagramProvider(cfg instagram.Config) (core.Strategy, error) {
	return instagram.New(cfg)
}

func MailchimpProvider(cfg mailchimp.Config) (core.Strategy, error) {
	return mailchimp.New(cfg)
}

// DefaultProviderFactories returns the built-in providers keyed by provider
// key.
func DefaultProviderFactories() map[string]ProviderFactory {
	return map[string]ProviderFactory{
		twitter.ProviderKey:   TwitterProvider,
		linkedin.ProviderKey:  LinkedInProvider,
		facebook.ProviderKey:  FacebookProvider,
		instagram.ProviderKey: InstagramProvider,
		mailchimp.ProviderKey: MailchimpProvider,
	}
}

// BuildRegistry builds the registry from the credentials map. Providers
// without client credentials are skipped and logged, so requests for them
// report an unknown provider. Credentials for keys without a factory are an
// error.
func BuildRegistry(
	credentials map[string]providers.AppCredentials,
	factories map[string]ProviderFactory,
	logger core.Logger,
) (*core.Registry, error) {
	if factories == nil {
		factories = DefaultProviderFactories()
	}
	logger = glog.Ensure(logger)

	keys := make([]string, 0, len(credentials))
	for key := range credentials {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	strategies := make([]core.Strategy, 0, len(keys))
	for _, key := range keys {
		normalized := core.NormalizeProviderKey(key)
		factory, ok := factories[normalized]
		if !ok {
			return nil, fmt.Errorf("connections: no provider factory for %q", normalized)
		}
		cfg := credentials[key]
		if !cfg.Configured() {
			logger.Info("provider not configured; skipping", "provider", normalized)
			continue
		}
		strategy, err := factory(cfg)
		if err != nil {
			return nil, fmt.Errorf("connections: build provider %q: %w", normalized, err)
		}
		strategies = append(strategies, strategy)
		logger.Info("provider registered", "provider", normalized, "redirect_uri", cfg.RedirectURI)
	}
	return core.NewRegistry(strategies...)
}
