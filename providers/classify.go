package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/goliatone/go-connections/core"
)

var (
	configurationErrorCodes = map[string]struct{}{
		"invalid_client":        {},
		"unauthorized_client":   {},
		"redirect_uri_mismatch": {},
		"invalid_redirect_uri":  {},
		"invalid_scope":         {},
	}
	codeErrorCodes = map[string]struct{}{
		"invalid_grant": {},
		"invalid_code":  {},
		"expired_code":  {},
	}
)

func classifyTransportError(provider string, err error) error {
	metadata := map[string]any{"provider": provider}
	if errors.Is(err, context.DeadlineExceeded) {
		metadata["timeout"] = true
	}
	return core.WrapError(err, core.ErrorNetworkOrTransient, "providers: token request failed", metadata)
}

// classifyTokenError maps a non-success token endpoint response onto the
// connection error classes. Ordering matters: status-level transient
// failures win over body hints.
func classifyTokenError(provider string, status int, payload tokenEndpointPayload) error {
	code := strings.ToLower(strings.TrimSpace(payload.ErrorCode))
	description := strings.TrimSpace(payload.ErrorDescription)
	metadata := map[string]any{
		"provider":    provider,
		"status_code": status,
	}
	if code != "" {
		metadata["provider_error"] = code
	}
	if description != "" {
		metadata["description"] = description
	}
	message := describeTokenError(status, code, description)

	switch {
	case status >= http.StatusInternalServerError, status == http.StatusTooManyRequests:
		return core.NewError(core.ErrorNetworkOrTransient, message, metadata)
	case status == http.StatusUnauthorized, isConfigurationError(code, description):
		return core.NewError(core.ErrorConfiguration, message, metadata)
	case isCodeError(code, description):
		return core.NewError(core.ErrorCodeExpiredOrReused, message, metadata)
	case status >= http.StatusBadRequest && status < http.StatusInternalServerError:
		return core.NewError(core.ErrorConfiguration, message, metadata)
	default:
		// 2xx carrying an error field.
		return core.NewError(core.ErrorConfiguration, message, metadata)
	}
}

func isConfigurationError(code string, description string) bool {
	if _, ok := configurationErrorCodes[code]; ok {
		return true
	}
	lowered := strings.ToLower(description)
	switch {
	case strings.Contains(lowered, "redirect_uri"), strings.Contains(lowered, "redirect uri"):
		return true
	case strings.Contains(lowered, "client secret"), strings.Contains(lowered, "client_secret"):
		return true
	case strings.Contains(lowered, "client id"), strings.Contains(lowered, "client_id"):
		return true
	}
	return false
}

func isCodeError(code string, description string) bool {
	if _, ok := codeErrorCodes[code]; ok {
		return true
	}
	lowered := strings.ToLower(description)
	if !strings.Contains(lowered, "code") {
		return false
	}
	for _, hint := range []string{"invalid", "expired", "used", "been redeemed", "not found", "does not match"} {
		if strings.Contains(lowered, hint) {
			return true
		}
	}
	return false
}

func describeTokenError(status int, code string, description string) string {
	message := fmt.Sprintf("providers: token endpoint returned status %d", status)
	if code != "" {
		message += ": " + code
	}
	if description != "" {
		message += " (" + description + ")"
	}
	return message
}
