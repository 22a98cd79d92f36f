package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-connections/core"
	"github.com/goliatone/go-connections/identity"
)

const (
	defaultTokenRequestTimeout = 15 * time.Second
	maxTokenResponseBodyBytes  = 1 << 20 // 1 MiB
)

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ProfileFetcher resolves the account behind an access token.
type ProfileFetcher interface {
	Fetch(ctx context.Context, req identity.Request) (core.Profile, error)
}

type OAuth2Config struct {
	Platform            core.PlatformConfig
	TokenRequestTimeout time.Duration
	Now                 func() time.Time
	HTTPClient          HTTPDoer
	Profiles            ProfileFetcher
}

// OAuth2Provider is the table-driven strategy: every provider difference it
// handles is data on core.PlatformConfig.
type OAuth2Provider struct {
	cfg        OAuth2Config
	httpClient HTTPDoer
	profiles   ProfileFetcher
	payloads   *identity.Resolver
}

type tokenEndpointPayload struct {
	AccessToken      string
	TokenType        string
	RefreshToken     string
	Scope            string
	IDToken          string
	ExpiresIn        int64
	ErrorCode        string
	ErrorDescription string
}

func NewOAuth2Provider(cfg OAuth2Config) (*OAuth2Provider, error) {
	platform := cfg.Platform
	platform.Key = strings.TrimSpace(strings.ToLower(platform.Key))
	if platform.Key == "" {
		return nil, fmt.Errorf("providers: provider key is required")
	}
	platform.AuthorizeURL = strings.TrimSpace(platform.AuthorizeURL)
	platform.TokenURL = strings.TrimSpace(platform.TokenURL)
	platform.ProfileURL = strings.TrimSpace(platform.ProfileURL)
	platform.RevokeURL = strings.TrimSpace(platform.RevokeURL)
	platform.ClientID = strings.TrimSpace(platform.ClientID)
	platform.ClientSecret = strings.TrimSpace(platform.ClientSecret)
	platform.Scopes = append([]string(nil), platform.Scopes...)
	if platform.ScopeJoiner == "" {
		platform.ScopeJoiner = core.DefaultScopeJoiner
	}
	if platform.SecretMode == "" {
		platform.SecretMode = core.SecretModeBody
	}
	if strings.TrimSpace(platform.ProfileAuthScheme) == "" {
		platform.ProfileAuthScheme = core.DefaultProfileAuthScheme
	}
	if strings.TrimSpace(platform.DisplayName) == "" {
		platform.DisplayName = platform.Key
	}
	if err := platform.Validate(); err != nil {
		return nil, fmt.Errorf("providers: %s: %w", platform.Key, err)
	}
	cfg.Platform = platform

	if cfg.TokenRequestTimeout <= 0 {
		cfg.TokenRequestTimeout = defaultTokenRequestTimeout
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time {
			return time.Now().UTC()
		}
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.TokenRequestTimeout}
	}
	payloads := identity.NewResolver(identity.Config{
		HTTPClient:     httpClient,
		RequestTimeout: cfg.TokenRequestTimeout,
	})
	var profiles ProfileFetcher = payloads
	if cfg.Profiles != nil {
		profiles = cfg.Profiles
	}

	return &OAuth2Provider{
		cfg:        cfg,
		httpClient: httpClient,
		profiles:   profiles,
		payloads:   payloads,
	}, nil
}

func (p *OAuth2Provider) Key() string {
	if p == nil {
		return ""
	}
	return p.cfg.Platform.Key
}

func (p *OAuth2Provider) Config() core.PlatformConfig {
	if p == nil {
		return core.PlatformConfig{}
	}
	return p.cfg.Platform
}

func (p *OAuth2Provider) HTTPClient() HTTPDoer {
	if p == nil {
		return nil
	}
	return p.httpClient
}

// AuthorizeURL assembles the provider authorization URL. Parameters are
// encoded in a stable order so the same inputs always give the same URL.
func (p *OAuth2Provider) AuthorizeURL(state string, codeChallenge string) (string, error) {
	if p == nil {
		return "", fmt.Errorf("providers: oauth2 provider is nil")
	}
	state = strings.TrimSpace(state)
	if state == "" {
		return "", fmt.Errorf("providers: state is required")
	}
	platform := p.cfg.Platform

	values := url.Values{}
	values.Set("response_type", "code")
	values.Set("client_id", platform.ClientID)
	values.Set("redirect_uri", platform.RedirectURI)
	if scope := platform.JoinedScopes(); scope != "" {
		values.Set("scope", scope)
	}
	values.Set("state", state)
	if challenge := strings.TrimSpace(codeChallenge); challenge != "" {
		values.Set("code_challenge", challenge)
		values.Set("code_challenge_method", "S256")
	}
	for key, value := range platform.ExtraAuthorizeParams {
		if strings.TrimSpace(key) == "" || values.Has(key) {
			continue
		}
		values.Set(key, value)
	}

	authURL := platform.AuthorizeURL
	if strings.Contains(authURL, "?") {
		authURL += "&" + values.Encode()
	} else {
		authURL += "?" + values.Encode()
	}
	return authURL, nil
}

// Exchange trades an authorization code for tokens in a single attempt.
// Failures are classified into the connection error taxonomy.
func (p *OAuth2Provider) Exchange(ctx context.Context, code string, codeVerifier string) (core.TokenResult, error) {
	if p == nil {
		return core.TokenResult{}, fmt.Errorf("providers: oauth2 provider is nil")
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return core.TokenResult{}, core.NewError(core.ErrorMalformedCallback, "providers: auth code is required", nil)
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", p.cfg.Platform.RedirectURI)
	if verifier := strings.TrimSpace(codeVerifier); verifier != "" {
		form.Set("code_verifier", verifier)
	}

	token, err := p.fetchToken(ctx, form)
	if err != nil {
		return core.TokenResult{}, err
	}

	return core.TokenResult{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    normalizeTokenType(token.TokenType),
		Scope:        token.Scope,
		IDToken:      token.IDToken,
		ExpiresAt:    resolveExpiresAt(p.cfg.Now().UTC(), token.ExpiresIn),
	}, nil
}

func (p *OAuth2Provider) FetchProfile(ctx context.Context, token core.TokenResult) (core.Profile, error) {
	if p == nil {
		return core.Profile{}, fmt.Errorf("providers: oauth2 provider is nil")
	}
	platform := p.cfg.Platform
	return p.profiles.Fetch(ctx, identity.Request{
		Provider:    platform.Key,
		URL:         platform.ProfileURL,
		AuthScheme:  platform.ProfileAuthScheme,
		AccessToken: token.AccessToken,
		Mapping:     platform.ProfileMapping,
	})
}

// FetchProfilePayload returns the raw profile document for strategies that
// need more than the configured mapping.
func (p *OAuth2Provider) FetchProfilePayload(ctx context.Context, endpoint string, accessToken string) (map[string]any, error) {
	if p == nil {
		return nil, fmt.Errorf("providers: oauth2 provider is nil")
	}
	return p.payloads.FetchPayload(ctx, identity.Request{
		Provider:    p.cfg.Platform.Key,
		URL:         endpoint,
		AuthScheme:  p.cfg.Platform.ProfileAuthScheme,
		AccessToken: accessToken,
	})
}

func (p *OAuth2Provider) fetchToken(ctx context.Context, form url.Values) (tokenEndpointPayload, error) {
	if p.httpClient == nil {
		return tokenEndpointPayload{}, fmt.Errorf("providers: oauth2 http client is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	platform := p.cfg.Platform

	values := url.Values{}
	for key, items := range form {
		for _, item := range items {
			values.Add(key, item)
		}
	}
	values.Set("client_id", platform.ClientID)
	if platform.SecretMode == core.SecretModeBody {
		values.Set("client_secret", platform.ClientSecret)
	}

	requestCtx, cancel := context.WithTimeout(ctx, p.cfg.TokenRequestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(
		requestCtx,
		http.MethodPost,
		platform.TokenURL,
		strings.NewReader(values.Encode()),
	)
	if err != nil {
		return tokenEndpointPayload{}, core.WrapError(err, core.ErrorConfiguration, "providers: build token request", map[string]any{
			"provider": platform.Key,
		})
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")
	if platform.SecretMode == core.SecretModeHeader {
		httpReq.SetBasicAuth(platform.ClientID, platform.ClientSecret)
	}

	response, err := p.httpClient.Do(httpReq)
	if err != nil {
		return tokenEndpointPayload{}, classifyTransportError(platform.Key, err)
	}
	defer response.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(response.Body, maxTokenResponseBodyBytes+1))
	if readErr != nil {
		return tokenEndpointPayload{}, classifyTransportError(platform.Key, readErr)
	}
	if int64(len(body)) > maxTokenResponseBodyBytes {
		return tokenEndpointPayload{}, core.NewError(core.ErrorNetworkOrTransient,
			fmt.Sprintf("providers: token response exceeds %d bytes", maxTokenResponseBodyBytes),
			map[string]any{"provider": platform.Key, "status_code": response.StatusCode})
	}

	payload, parseErr := parseTokenPayload(body, response.Header.Get("Content-Type"))
	success := response.StatusCode >= http.StatusOK && response.StatusCode < http.StatusMultipleChoices
	if parseErr != nil && success {
		return tokenEndpointPayload{}, core.WrapError(parseErr, core.ErrorNetworkOrTransient, "providers: decode token response", map[string]any{
			"provider":    platform.Key,
			"status_code": response.StatusCode,
		})
	}
	if !success || payload.ErrorCode != "" {
		return tokenEndpointPayload{}, classifyTokenError(platform.Key, response.StatusCode, payload)
	}
	if payload.AccessToken == "" {
		return tokenEndpointPayload{}, core.NewError(core.ErrorNetworkOrTransient, "providers: token endpoint response missing access token", map[string]any{
			"provider":    platform.Key,
			"status_code": response.StatusCode,
		})
	}
	return payload, nil
}

func parseTokenPayload(body []byte, contentType string) (tokenEndpointPayload, error) {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if strings.Contains(contentType, "json") {
		return parseTokenPayloadJSON(body)
	}
	if strings.Contains(contentType, "x-www-form-urlencoded") || strings.Contains(contentType, "text/plain") {
		return parseTokenPayloadForm(body)
	}
	if payload, err := parseTokenPayloadJSON(body); err == nil {
		return payload, nil
	}
	return parseTokenPayloadForm(body)
}

func parseTokenPayloadJSON(body []byte) (tokenEndpointPayload, error) {
	if strings.TrimSpace(string(body)) == "" {
		return tokenEndpointPayload{}, fmt.Errorf("empty payload")
	}
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return tokenEndpointPayload{}, err
	}
	payload := tokenEndpointPayload{
		AccessToken:      readAnyString(decoded["access_token"]),
		TokenType:        readAnyString(decoded["token_type"]),
		RefreshToken:     readAnyString(decoded["refresh_token"]),
		Scope:            readAnyString(decoded["scope"]),
		IDToken:          readAnyString(decoded["id_token"]),
		ExpiresIn:        readAnyInt64(decoded["expires_in"]),
		ErrorDescription: readAnyString(decoded["error_description"]),
	}
	// Graph API errors nest as {"error":{"message","type","code"}}.
	switch typed := decoded["error"].(type) {
	case map[string]any:
		payload.ErrorCode = firstNonEmpty(readAnyString(typed["type"]), "provider_error")
		payload.ErrorDescription = firstNonEmpty(readAnyString(typed["message"]), payload.ErrorDescription)
	default:
		payload.ErrorCode = readAnyString(typed)
	}
	return payload, nil
}

func parseTokenPayloadForm(body []byte) (tokenEndpointPayload, error) {
	if strings.TrimSpace(string(body)) == "" {
		return tokenEndpointPayload{}, fmt.Errorf("empty payload")
	}
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return tokenEndpointPayload{}, err
	}
	expiresIn, _ := strconv.ParseInt(strings.TrimSpace(values.Get("expires_in")), 10, 64)
	return tokenEndpointPayload{
		AccessToken:      strings.TrimSpace(values.Get("access_token")),
		TokenType:        strings.TrimSpace(values.Get("token_type")),
		RefreshToken:     strings.TrimSpace(values.Get("refresh_token")),
		Scope:            strings.TrimSpace(values.Get("scope")),
		IDToken:          strings.TrimSpace(values.Get("id_token")),
		ExpiresIn:        expiresIn,
		ErrorCode:        strings.TrimSpace(values.Get("error")),
		ErrorDescription: strings.TrimSpace(values.Get("error_description")),
	}, nil
}

// resolveExpiresAt returns nil when the provider reports no lifetime.
func resolveExpiresAt(now time.Time, expiresIn int64) *time.Time {
	if expiresIn <= 0 {
		return nil
	}
	expiresAt := now.Add(time.Duration(expiresIn) * time.Second)
	return &expiresAt
}

func normalizeTokenType(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "bearer"
	}
	return normalized
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func readAnyString(value any) string {
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case json.Number:
		return strings.TrimSpace(typed.String())
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	default:
		if value == nil {
			return ""
		}
		return strings.TrimSpace(fmt.Sprint(value))
	}
}

func readAnyInt64(value any) int64 {
	switch typed := value.(type) {
	case int:
		return int64(typed)
	case int64:
		return typed
	case float64:
		return int64(typed)
	case json.Number:
		parsed, err := typed.Int64()
		if err == nil {
			return parsed
		}
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(typed), 10, 64)
		if err == nil {
			return parsed
		}
	}
	return 0
}
