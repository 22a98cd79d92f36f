package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-connections/core"
	"github.com/goliatone/go-connections/providers"
	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Revocation modes. Inline revokes during the disconnect request; queue
// hands the revocation to the go-job queue stored next to the connections.
const (
	RevocationModeInline = "inline"
	RevocationModeQueue  = "queue"
)

// ProviderEnv holds the deployment credentials for one provider. Meta
// providers also accept the APP_ID / APP_SECRET spelling.
type ProviderEnv struct {
	ClientID     string   `env:"CLIENT_ID"`
	AppID        string   `env:"APP_ID"`
	ClientSecret string   `env:"CLIENT_SECRET"`
	AppSecret    string   `env:"APP_SECRET"`
	RedirectURI  string   `env:"REDIRECT_URI"`
	Scopes       []string `env:"SCOPES" envSeparator:","`
}

func (p ProviderEnv) clientID() string {
	if id := strings.TrimSpace(p.ClientID); id != "" {
		return id
	}
	return strings.TrimSpace(p.AppID)
}

func (p ProviderEnv) clientSecret() string {
	if secret := strings.TrimSpace(p.ClientSecret); secret != "" {
		return secret
	}
	return strings.TrimSpace(p.AppSecret)
}

// Env is the process configuration. It is loaded once at startup and
// nothing else reads the environment.
type Env struct {
	HTTPAddr             string        `env:"CONNECT_HTTP_ADDR" envDefault:":8080"`
	DBDriver             string        `env:"CONNECT_DB_DRIVER" envDefault:"sqlite3"`
	DatabaseURL          string        `env:"CONNECT_DATABASE_URL" envDefault:"file:connections.db?cache=shared&_fk=1"`
	FrontendRedirectURL  string        `env:"CONNECT_FRONTEND_REDIRECT_URL" envDefault:"http://localhost:3000/profile"`
	PublicBaseURL        string        `env:"CONNECT_PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`
	StateTTL             time.Duration `env:"CONNECT_STATE_TTL" envDefault:"10m"`
	StateSweepSchedule   string        `env:"CONNECT_STATE_SWEEP_SCHEDULE" envDefault:"@every 1m"`
	ProviderTimeout      time.Duration `env:"CONNECT_PROVIDER_TIMEOUT" envDefault:"15s"`
	RevocationTimeout    time.Duration `env:"CONNECT_REVOCATION_TIMEOUT" envDefault:"5s"`
	RevocationMode       string        `env:"CONNECT_REVOCATION_MODE" envDefault:"inline"`
	RevocationPoll       time.Duration `env:"CONNECT_REVOCATION_POLL_INTERVAL" envDefault:"5s"`
	ProfileFailurePolicy string        `env:"CONNECT_PROFILE_FAILURE_POLICY" envDefault:"store"`
	TokenKey             string        `env:"CONNECT_TOKEN_KEY"`
	IdentityHeader       string        `env:"CONNECT_IDENTITY_HEADER" envDefault:"X-User-ID"`
	DebugEndpoints       bool          `env:"CONNECT_DEBUG_ENDPOINTS" envDefault:"false"`
	CacheConnections     bool          `env:"CONNECT_CACHE_CONNECTIONS" envDefault:"false"`
	LogLevel             string        `env:"CONNECT_LOG_LEVEL" envDefault:"info"`

	Twitter   ProviderEnv `envPrefix:"TWITTER_"`
	LinkedIn  ProviderEnv `envPrefix:"LINKEDIN_"`
	Facebook  ProviderEnv `envPrefix:"FACEBOOK_"`
	Instagram ProviderEnv `envPrefix:"INSTAGRAM_"`
	Mailchimp ProviderEnv `envPrefix:"MAILCHIMP_"`
}

// Load reads the optional dotenv files, then parses the environment. Missing
// dotenv files are ignored; values already set in the environment win.
func Load(dotenvFiles ...string) (Env, error) {
	if err := godotenv.Load(dotenvFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Env{}, fmt.Errorf("config: load dotenv: %w", err)
	}
	return Parse()
}

func Parse() (Env, error) {
	var out Env
	if err := env.Parse(&out); err != nil {
		return Env{}, fmt.Errorf("config: parse env: %w", err)
	}
	if err := out.Validate(); err != nil {
		return Env{}, err
	}
	return out, nil
}

func (e Env) Validate() error {
	err := validation.ValidateStruct(&e,
		validation.Field(&e.HTTPAddr, validation.Required),
		validation.Field(&e.DBDriver, validation.Required, validation.In(DriverSQLite, DriverPostgres)),
		validation.Field(&e.DatabaseURL, validation.Required),
		validation.Field(&e.PublicBaseURL, validation.Required),
		validation.Field(&e.StateTTL, validation.Min(time.Second)),
		validation.Field(&e.ProviderTimeout, validation.Min(time.Second)),
		validation.Field(&e.RevocationMode, validation.In(RevocationModeInline, RevocationModeQueue)),
		validation.Field(&e.RevocationPoll, validation.Min(100*time.Millisecond)),
		validation.Field(&e.LogLevel, validation.In("trace", "debug", "info", "warn", "error")),
		validation.Field(&e.ProfileFailurePolicy, validation.In(
			string(core.ProfileFailureStore),
			string(core.ProfileFailureReject),
		)),
	)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// CoreConfig projects the environment onto the service configuration.
func (e Env) CoreConfig() core.Config {
	cfg := core.DefaultConfig()
	cfg.OAuth.FrontendRedirectURL = strings.TrimSpace(e.FrontendRedirectURL)
	if e.StateTTL > 0 {
		cfg.OAuth.StateTTL = e.StateTTL
	}
	if e.RevocationTimeout > 0 {
		cfg.OAuth.RevocationTimeout = e.RevocationTimeout
	}
	if policy := strings.TrimSpace(e.ProfileFailurePolicy); policy != "" {
		cfg.OAuth.ProfileFailurePolicy = core.ProfileFailurePolicy(policy)
	}
	return cfg
}

// ProviderCredentials returns the credentials for every supported provider,
// keyed by provider key. Entries without credentials are still returned;
// callers decide whether to register them.
func (e Env) ProviderCredentials() map[string]providers.AppCredentials {
	raw := map[string]ProviderEnv{
		"twitter":   e.Twitter,
		"linkedin":  e.LinkedIn,
		"facebook":  e.Facebook,
		"instagram": e.Instagram,
		"mailchimp": e.Mailchimp,
	}
	out := make(map[string]providers.AppCredentials, len(raw))
	for key, provider := range raw {
		out[key] = providers.AppCredentials{
			ClientID:            provider.clientID(),
			ClientSecret:        provider.clientSecret(),
			RedirectURI:         e.redirectURI(key, provider),
			Scopes:              providers.NormalizeScopes(provider.Scopes),
			TokenRequestTimeout: e.ProviderTimeout,
		}
	}
	return out
}

// redirectURI is used verbatim when configured; it must match the value
// registered with the provider byte for byte.
func (e Env) redirectURI(key string, provider ProviderEnv) string {
	if provider.RedirectURI != "" {
		return provider.RedirectURI
	}
	return strings.TrimRight(strings.TrimSpace(e.PublicBaseURL), "/") + "/oauth/" + key + "/callback"
}
