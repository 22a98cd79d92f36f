package core

import (
	"context"
	"strings"
	"time"
)

type SecretMode string

const (
	SecretModeBody   SecretMode = "body"
	SecretModeHeader SecretMode = "header"
)

const (
	DefaultScopeJoiner       = " "
	DefaultProfileAuthScheme = "Bearer"
	DefaultPlaceholderName   = "unknown"
)

// ProfileMapping describes where the provider profile payload keeps the
// account id and display name. Paths are dotted, e.g. "data.username".
type ProfileMapping struct {
	IDField            string
	NameFields         []string
	FallbackNameFields []string
}

type PlatformConfig struct {
	Key                  string
	DisplayName          string
	AuthorizeURL         string
	TokenURL             string
	ProfileURL           string
	RevokeURL            string
	ClientID             string
	ClientSecret         string
	RedirectURI          string
	Scopes               []string
	ScopeJoiner          string
	SecretMode           SecretMode
	UsePKCE              bool
	ProfileAuthScheme    string
	ProfileMapping       ProfileMapping
	PlaceholderName      string
	ExtraAuthorizeParams map[string]string
}

func (c PlatformConfig) JoinedScopes() string {
	joiner := c.ScopeJoiner
	if joiner == "" {
		joiner = DefaultScopeJoiner
	}
	scopes := make([]string, 0, len(c.Scopes))
	for _, scope := range c.Scopes {
		if trimmed := strings.TrimSpace(scope); trimmed != "" {
			scopes = append(scopes, trimmed)
		}
	}
	return strings.Join(scopes, joiner)
}

func (c PlatformConfig) Placeholder() string {
	if name := strings.TrimSpace(c.PlaceholderName); name != "" {
		return name
	}
	return DefaultPlaceholderName
}

// PlatformView is the masked projection of a PlatformConfig used by
// diagnostics; it never carries the client secret.
type PlatformView struct {
	Key            string   `json:"key"`
	DisplayName    string   `json:"displayName"`
	ClientID       string   `json:"clientId"`
	ClientSecret   string   `json:"clientSecret"`
	HasCredentials bool     `json:"hasCredentials"`
	AuthorizeURL   string   `json:"authorizeUrl"`
	TokenURL       string   `json:"tokenUrl"`
	RedirectURI    string   `json:"redirectUri"`
	Scopes         []string `json:"scopes"`
	SecretMode     string   `json:"secretMode"`
	UsePKCE        bool     `json:"usePkce"`
}

func (c PlatformConfig) View() PlatformView {
	masked := ""
	if c.ClientSecret != "" {
		masked = "***"
	}
	return PlatformView{
		Key:            c.Key,
		DisplayName:    c.DisplayName,
		ClientID:       c.ClientID,
		ClientSecret:   masked,
		HasCredentials: c.ClientID != "" && c.ClientSecret != "",
		AuthorizeURL:   c.AuthorizeURL,
		TokenURL:       c.TokenURL,
		RedirectURI:    c.RedirectURI,
		Scopes:         append([]string(nil), c.Scopes...),
		SecretMode:     string(c.SecretMode),
		UsePKCE:        c.UsePKCE,
	}
}

type TokenResult struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Scope        string
	IDToken      string
	ExpiresAt    *time.Time
}

type Profile struct {
	ID          string
	DisplayName string
}

type PlatformConnection struct {
	ID             string
	UserID         string
	Provider       string
	AccessToken    string
	RefreshToken   string
	TokenType      string
	Scope          string
	ExpiresAt      *time.Time
	ProviderUserID string
	DisplayName    string
	Active         bool
	ProfilePending bool
	ConnectedAt    time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Current reports whether the connection is active and its recorded expiry,
// if any, is still in the future.
func (c PlatformConnection) Current(now time.Time) bool {
	if !c.Active {
		return false
	}
	return c.ExpiresAt == nil || c.ExpiresAt.After(now)
}

// ConnectionDebugView is the token-free projection of a PlatformConnection
// used by the debug endpoint. It reports whether tokens exist, never their
// values.
type ConnectionDebugView struct {
	ID              string     `json:"id"`
	Provider        string     `json:"provider"`
	ProviderUserID  string     `json:"providerUserId"`
	DisplayName     string     `json:"displayName"`
	Active          bool       `json:"active"`
	ProfilePending  bool       `json:"profilePending"`
	HasAccessToken  bool       `json:"hasAccessToken"`
	HasRefreshToken bool       `json:"hasRefreshToken"`
	TokenType       string     `json:"tokenType,omitempty"`
	Scope           string     `json:"scope,omitempty"`
	ExpiresAt       *time.Time `json:"expiresAt,omitempty"`
	ConnectedAt     time.Time  `json:"connectedAt"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

func (c PlatformConnection) DebugView() ConnectionDebugView {
	view := ConnectionDebugView{
		ID:              c.ID,
		Provider:        c.Provider,
		ProviderUserID:  c.ProviderUserID,
		DisplayName:     c.DisplayName,
		Active:          c.Active,
		ProfilePending:  c.ProfilePending,
		HasAccessToken:  c.AccessToken != "",
		HasRefreshToken: c.RefreshToken != "",
		TokenType:       c.TokenType,
		Scope:           c.Scope,
		ConnectedAt:     c.ConnectedAt,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
	if c.ExpiresAt != nil {
		expiresAt := *c.ExpiresAt
		view.ExpiresAt = &expiresAt
	}
	return view
}

type UpsertConnectionInput struct {
	UserID         string
	Provider       string
	Token          TokenResult
	ProviderUserID string
	DisplayName    string
	ProfilePending bool
	ConnectedAt    time.Time
}

type ConnectionSummary struct {
	Provider    string    `json:"provider"`
	DisplayName string    `json:"displayName"`
	ConnectedAt time.Time `json:"connectedAt"`
}

type InitiateRequest struct {
	UserID   string
	Provider string
}

type InitiateResult struct {
	AuthorizationURL string
	State            string
	AlreadyConnected bool
}

type CallbackParams struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

type CallbackRequest struct {
	Provider string
	Params   CallbackParams
}

type CallbackStatus string

const (
	CallbackStatusSuccess CallbackStatus = "success"
	CallbackStatusError   CallbackStatus = "error"
)

type CallbackResult struct {
	Status      CallbackStatus
	Provider    string
	Username    string
	ErrorCode   string
	Warning     string
	RedirectURL string
	Connection  *PlatformConnection
}

type DisconnectRequest struct {
	UserID   string
	Provider string
}

type RevocationRequest struct {
	ConnectionID string
	UserID       string
	Provider     string
	AccessToken  string
	// RequestedAt is the deactivation time; it tells repeated disconnects of
	// the same connection apart.
	RequestedAt time.Time
}

// Strategy is the per-provider behavior selected once through the registry.
type Strategy interface {
	Key() string
	Config() PlatformConfig
	AuthorizeURL(state string, codeChallenge string) (string, error)
	Exchange(ctx context.Context, code string, codeVerifier string) (TokenResult, error)
	FetchProfile(ctx context.Context, token TokenResult) (Profile, error)
}

// Revoker is implemented by strategies whose provider exposes token
// revocation.
type Revoker interface {
	Revoke(ctx context.Context, accessToken string) error
}

type StateStore interface {
	// Issue persists a new state and discards outstanding states for the same
	// user and provider.
	Issue(ctx context.Context, state OAuthState) error
	// Consume atomically reads and deletes a state. Missing and expired
	// states both return ErrStateNotFound.
	Consume(ctx context.Context, token string) (OAuthState, error)
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}

type ConnectionStore interface {
	Upsert(ctx context.Context, in UpsertConnectionInput) (PlatformConnection, error)
	Get(ctx context.Context, userID string, provider string) (PlatformConnection, error)
	List(ctx context.Context, userID string) ([]PlatformConnection, error)
	// Deactivate returns the previously active connection and true when a row
	// changed; a missing or already inactive pair returns false and no error.
	Deactivate(ctx context.Context, userID string, provider string) (PlatformConnection, bool, error)
	FindByID(ctx context.Context, id string) (PlatformConnection, error)
}

// ConnectionHistoryLister is implemented by stores that can also list a
// user's inactive connections.
type ConnectionHistoryLister interface {
	ListAll(ctx context.Context, userID string) ([]PlatformConnection, error)
}

type RevocationDispatcher interface {
	DispatchRevocation(ctx context.Context, req RevocationRequest) error
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}
