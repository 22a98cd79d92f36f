package core

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

type ProfileFailurePolicy string

const (
	// ProfileFailureStore keeps the connection with placeholder identity and
	// flags it for reconciliation.
	ProfileFailureStore ProfileFailurePolicy = "store"
	// ProfileFailureReject ends the flow with ProfileFetchFailed and writes
	// nothing.
	ProfileFailureReject ProfileFailurePolicy = "reject"
)

type OAuthConfig struct {
	StateTTL             time.Duration        `koanf:"state_ttl" mapstructure:"state_ttl"`
	FrontendRedirectURL  string               `koanf:"frontend_redirect_url" mapstructure:"frontend_redirect_url"`
	ProfileFailurePolicy ProfileFailurePolicy `koanf:"profile_failure_policy" mapstructure:"profile_failure_policy"`
	RevocationTimeout    time.Duration        `koanf:"revocation_timeout" mapstructure:"revocation_timeout"`
}

type Config struct {
	ServiceName string      `koanf:"service_name" mapstructure:"service_name"`
	OAuth       OAuthConfig `koanf:"oauth" mapstructure:"oauth"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "connections",
		OAuth: OAuthConfig{
			StateTTL:             DefaultStateTTL,
			FrontendRedirectURL:  "http://localhost:3000/profile",
			ProfileFailurePolicy: ProfileFailureStore,
			RevocationTimeout:    5 * time.Second,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.OAuth.StateTTL <= 0 {
		return fmt.Errorf("core: oauth.state_ttl must be positive")
	}
	if c.OAuth.RevocationTimeout <= 0 {
		return fmt.Errorf("core: oauth.revocation_timeout must be positive")
	}
	parsed, err := url.Parse(strings.TrimSpace(c.OAuth.FrontendRedirectURL))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("core: oauth.frontend_redirect_url must be an absolute url")
	}
	switch c.OAuth.ProfileFailurePolicy {
	case ProfileFailureStore, ProfileFailureReject:
	default:
		return fmt.Errorf("core: oauth.profile_failure_policy %q is invalid", c.OAuth.ProfileFailurePolicy)
	}
	return nil
}
