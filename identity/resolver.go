package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-connections/core"
	goerrors "github.com/goliatone/go-errors"
)

const (
	defaultRequestTimeout   = 10 * time.Second
	maxProfileResponseBytes = 1 << 20 // 1 MiB
)

var ErrProfileNotFound = errors.New("identity: profile not found")

// ProfileFetchError reports a failed profile lookup. It maps to the
// ProfileFetchFailed class and keeps the upstream status for logging.
type ProfileFetchError struct {
	Provider   string
	StatusCode int
	Cause      error
}

func (e *ProfileFetchError) Error() string {
	if e == nil || e.Cause == nil {
		return ErrProfileNotFound.Error()
	}
	return ErrProfileNotFound.Error() + ": " + e.Cause.Error()
}

func (e *ProfileFetchError) Unwrap() error {
	if e == nil {
		return nil
	}
	if e.Cause == nil {
		return ErrProfileNotFound
	}
	return errors.Join(ErrProfileNotFound, e.Cause)
}

func (e *ProfileFetchError) ToServiceError() *goerrors.Error {
	metadata := map[string]any{}
	if e != nil {
		metadata["provider"] = e.Provider
		if e.StatusCode > 0 {
			metadata["status_code"] = e.StatusCode
		}
	}
	return core.NewError(core.ErrorProfileFetchFailed, e.Error(), metadata)
}

func profileFetchFailed(provider string, status int, cause error) error {
	return (&ProfileFetchError{Provider: provider, StatusCode: status, Cause: cause}).ToServiceError()
}

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Request describes a single profile lookup against a provider endpoint.
type Request struct {
	Provider    string
	URL         string
	AuthScheme  string
	AccessToken string
	Mapping     core.ProfileMapping
}

type Config struct {
	HTTPClient     HTTPDoer
	RequestTimeout time.Duration
}

type Resolver struct {
	httpClient     HTTPDoer
	requestTimeout time.Duration
}

func NewResolver(cfg Config) *Resolver {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	return &Resolver{
		httpClient:     httpClient,
		requestTimeout: requestTimeout,
	}
}

func DefaultResolver() *Resolver {
	return NewResolver(Config{})
}

// Fetch loads the profile endpoint with the access token and maps the payload
// through req.Mapping.
func (r *Resolver) Fetch(ctx context.Context, req Request) (core.Profile, error) {
	payload, err := r.FetchPayload(ctx, req)
	if err != nil {
		return core.Profile{}, err
	}
	profile, err := ExtractProfile(payload, req.Mapping)
	if err != nil {
		return core.Profile{}, profileFetchFailed(req.Provider, 0, err)
	}
	return profile, nil
}

func (r *Resolver) FetchPayload(ctx context.Context, req Request) (map[string]any, error) {
	if r == nil {
		return nil, profileFetchFailed(req.Provider, 0, fmt.Errorf("resolver is not configured"))
	}
	if ctx == nil {
		ctx = context.Background()
	}
	endpoint := strings.TrimSpace(req.URL)
	if endpoint == "" {
		return nil, profileFetchFailed(req.Provider, 0, fmt.Errorf("profile endpoint is not configured"))
	}
	accessToken := strings.TrimSpace(req.AccessToken)
	if accessToken == "" {
		return nil, profileFetchFailed(req.Provider, 0, fmt.Errorf("access token is required"))
	}
	scheme := strings.TrimSpace(req.AuthScheme)
	if scheme == "" {
		scheme = core.DefaultProfileAuthScheme
	}

	requestCtx, cancel := context.WithTimeout(ctx, r.requestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(requestCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, profileFetchFailed(req.Provider, 0, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", scheme+" "+accessToken)

	response, err := r.httpClient.Do(httpReq)
	if err != nil {
		return nil, profileFetchFailed(req.Provider, 0, fmt.Errorf("profile request failed: %w", err))
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxProfileResponseBytes+1))
	if err != nil {
		return nil, profileFetchFailed(req.Provider, response.StatusCode, fmt.Errorf("read profile response: %w", err))
	}
	if int64(len(body)) > maxProfileResponseBytes {
		return nil, profileFetchFailed(req.Provider, response.StatusCode, fmt.Errorf("profile response exceeds %d bytes", maxProfileResponseBytes))
	}
	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return nil, profileFetchFailed(req.Provider, response.StatusCode, fmt.Errorf("profile endpoint returned status %d", response.StatusCode))
	}

	// Numeric ids above 2^53 lose precision as float64.
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	var payload map[string]any
	if err := decoder.Decode(&payload); err != nil {
		return nil, profileFetchFailed(req.Provider, response.StatusCode, fmt.Errorf("decode profile response: %w", err))
	}
	return payload, nil
}
