package providers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/goliatone/go-connections/core"
)

// Revoke calls the RFC 7009 revocation endpoint when one is configured.
// Providers without an endpoint treat revocation as a no-op.
func (p *OAuth2Provider) Revoke(ctx context.Context, accessToken string) error {
	if p == nil {
		return fmt.Errorf("providers: oauth2 provider is nil")
	}
	platform := p.cfg.Platform
	if strings.TrimSpace(platform.RevokeURL) == "" {
		return nil
	}
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return nil
	}

	form := url.Values{}
	form.Set("token", accessToken)
	form.Set("token_type_hint", "access_token")
	form.Set("client_id", platform.ClientID)
	if platform.SecretMode == core.SecretModeBody {
		form.Set("client_secret", platform.ClientSecret)
	}

	return p.SendRevocation(ctx, http.MethodPost, platform.RevokeURL, strings.NewReader(form.Encode()), func(req *http.Request) {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		if platform.SecretMode == core.SecretModeHeader {
			req.SetBasicAuth(platform.ClientID, platform.ClientSecret)
		}
	})
}

// SendRevocation issues a revocation request and treats any 2xx as success.
// Provider packages with non-standard revocation reuse it.
func (p *OAuth2Provider) SendRevocation(
	ctx context.Context,
	method string,
	endpoint string,
	body io.Reader,
	decorate func(*http.Request),
) error {
	if ctx == nil {
		ctx = context.Background()
	}
	requestCtx, cancel := context.WithTimeout(ctx, p.cfg.TokenRequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("providers: build revoke request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if decorate != nil {
		decorate(req)
	}

	response, err := p.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(p.cfg.Platform.Key, err)
	}
	defer response.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(response.Body, maxTokenResponseBodyBytes))

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return core.NewError(core.ErrorNetworkOrTransient,
			fmt.Sprintf("providers: revoke endpoint returned status %d", response.StatusCode),
			map[string]any{"provider": p.cfg.Platform.Key, "status_code": response.StatusCode})
	}
	return nil
}
