package core

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

var deniedErrorCodes = map[string]struct{}{
	"access_denied":            {},
	"user_denied":              {},
	"user_cancelled_login":     {},
	"user_cancelled_authorize": {},
}

var transientErrorCodes = map[string]struct{}{
	"server_error":            {},
	"temporarily_unavailable": {},
}

// HandleCallback runs the callback state machine. It always returns a result
// carrying the front-end redirect; the error, when set, is the classified
// failure that produced an error redirect.
func (s *Service) HandleCallback(ctx context.Context, req CallbackRequest) (result CallbackResult, err error) {
	startedAt := time.Now()
	provider := NormalizeProviderKey(req.Provider)
	fields := map[string]any{"provider": provider}
	defer func() {
		fields["outcome"] = string(result.Status)
		if result.Warning != "" {
			fields["warning"] = result.Warning
		}
		s.observeOperation(ctx, startedAt, "callback", err, fields)
	}()

	strategy, err := s.registry.Lookup(provider)
	if err != nil {
		return s.errorResult(provider, err), err
	}
	params := req.Params

	if providerErr := strings.TrimSpace(params.Error); providerErr != "" {
		if token := strings.TrimSpace(params.State); token != "" {
			// The provider already ended this flow; make its state unusable.
			_, _ = s.stateStore.Consume(ctx, token)
		}
		err = classifyProviderError(provider, providerErr, params.ErrorDescription)
		return s.errorResult(provider, err), err
	}

	code := strings.TrimSpace(params.Code)
	token := strings.TrimSpace(params.State)
	if code == "" || token == "" {
		err = NewError(ErrorMalformedCallback, "core: callback requires code and state", map[string]any{
			"provider":      provider,
			"code_present":  code != "",
			"state_present": token != "",
		})
		return s.errorResult(provider, err), err
	}

	state, consumeErr := s.stateStore.Consume(ctx, token)
	if consumeErr != nil && !errors.Is(consumeErr, ErrStateNotFound) {
		err = WrapError(consumeErr, ErrorInternal, "core: consume oauth state failed", map[string]any{"provider": provider})
		return s.errorResult(provider, err), err
	}
	if consumeErr != nil {
		err = WrapError(consumeErr, ErrorCSRFMismatch, "core: oauth state is unknown, expired, or already used", map[string]any{
			"provider": provider,
		})
		return s.errorResult(provider, err), err
	}
	fields["user_id"] = state.UserID
	if state.Provider != strategy.Key() {
		err = NewError(ErrorCSRFMismatch, "core: oauth state was issued for a different provider", map[string]any{
			"provider":       provider,
			"state_provider": state.Provider,
		})
		return s.errorResult(provider, err), err
	}

	tokenResult, err := strategy.Exchange(ctx, code, state.CodeVerifier)
	if err != nil {
		err = s.mapError(err)
		return s.errorResult(provider, err), err
	}

	input := UpsertConnectionInput{
		UserID:      state.UserID,
		Provider:    strategy.Key(),
		Token:       tokenResult,
		ConnectedAt: s.now().UTC(),
	}
	warning := ""
	profile, profileErr := strategy.FetchProfile(ctx, tokenResult)
	if profileErr != nil {
		profileErr = WrapError(profileErr, ErrorProfileFetchFailed, "core: provider profile fetch failed", map[string]any{
			"provider": provider,
		})
		if s.config.OAuth.ProfileFailurePolicy == ProfileFailureReject {
			err = profileErr
			return s.errorResult(provider, err), err
		}
		s.logWarn(ctx, "profile fetch failed; storing placeholder identity", map[string]any{
			"provider": provider,
			"user_id":  state.UserID,
			"error":    profileErr.Error(),
		})
		input.DisplayName = strategy.Config().Placeholder()
		input.ProfilePending = true
		warning = RedirectErrorCode(profileErr)
	} else {
		input.ProviderUserID = profile.ID
		input.DisplayName = profile.DisplayName
		if strings.TrimSpace(input.DisplayName) == "" {
			input.DisplayName = strategy.Config().Placeholder()
		}
	}

	connection, err := s.connectionStore.Upsert(ctx, input)
	if err != nil {
		err = WrapError(err, ErrorInternal, "core: store connection failed", map[string]any{"provider": provider})
		return s.errorResult(provider, err), err
	}
	fields["connection_id"] = connection.ID

	result = CallbackResult{
		Status:     CallbackStatusSuccess,
		Provider:   provider,
		Username:   connection.DisplayName,
		Warning:    warning,
		Connection: &connection,
	}
	result.RedirectURL = s.redirectURL(result)
	return result, nil
}

func (s *Service) errorResult(provider string, err error) CallbackResult {
	result := CallbackResult{
		Status:    CallbackStatusError,
		Provider:  provider,
		ErrorCode: RedirectErrorCode(err),
	}
	result.RedirectURL = s.redirectURL(result)
	return result
}

// redirectURL appends the outcome to the configured front-end URL. Only the
// coarse outcome is included.
func (s *Service) redirectURL(result CallbackResult) string {
	base := s.config.OAuth.FrontendRedirectURL
	parsed, err := url.Parse(base)
	if err != nil {
		return base
	}
	query := parsed.Query()
	query.Set("connection", string(result.Status))
	if result.Provider != "" {
		query.Set("provider", result.Provider)
	}
	switch result.Status {
	case CallbackStatusSuccess:
		query.Set("username", result.Username)
		if result.Warning != "" {
			query.Set("warning", result.Warning)
		}
	default:
		query.Set("error", result.ErrorCode)
	}
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

func classifyProviderError(provider string, code string, description string) error {
	normalized := strings.ToLower(strings.TrimSpace(code))
	metadata := map[string]any{
		"provider":       provider,
		"provider_error": normalized,
	}
	if trimmed := strings.TrimSpace(description); trimmed != "" {
		metadata["description"] = trimmed
	}
	if _, ok := deniedErrorCodes[normalized]; ok {
		return NewError(ErrorProviderDenied, "core: provider denied authorization", metadata)
	}
	if _, ok := transientErrorCodes[normalized]; ok {
		return NewError(ErrorNetworkOrTransient, "core: provider reported a transient failure", metadata)
	}
	return NewError(ErrorConfiguration, fmt.Sprintf("core: provider rejected authorization request: %s", normalized), metadata)
}
