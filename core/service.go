package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Service struct {
	config          Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorMapper     ErrorMapper
	registry        *Registry
	stateStore      StateStore
	connectionStore ConnectionStore
	revocations     RevocationDispatcher
	now             func() time.Time
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("connections", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("connections"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.now == nil {
		builder.now = time.Now
	}
	if builder.registry == nil {
		return nil, mapBuildError(builder.errorMapper, fmt.Errorf("core: registry is required"))
	}
	if builder.stateStore == nil {
		builder.stateStore = NewMemoryStateStore(WithMemoryStateClock(builder.now))
	}
	if builder.connectionStore == nil {
		builder.connectionStore = NewMemoryConnectionStore()
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	svc := &Service{
		config:          finalConfig,
		logger:          logger,
		loggerProvider:  provider,
		metricsRecorder: builder.metricsRecorder,
		errorMapper:     builder.errorMapper,
		registry:        builder.registry,
		stateStore:      builder.stateStore,
		connectionStore: builder.connectionStore,
		revocations:     builder.revocations,
		now:             builder.now,
	}
	if svc.revocations == nil {
		svc.revocations = NewInlineRevoker(builder.registry, builder.connectionStore, finalConfig.OAuth.RevocationTimeout)
	}
	return svc, nil
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	if mapped := mapper(err); mapped != nil {
		return mapped
	}
	return err
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Registry() *Registry {
	if s == nil {
		return nil
	}
	return s.registry
}

func (s *Service) Logger() Logger {
	if s == nil {
		return glog.Nop()
	}
	return s.logger
}

// Initiate starts an authorization flow for the caller, or reports that an
// unexpired active connection already exists.
func (s *Service) Initiate(ctx context.Context, req InitiateRequest) (result InitiateResult, err error) {
	startedAt := time.Now()
	fields := map[string]any{"provider": req.Provider, "user_id": req.UserID}
	defer func() {
		fields["already_connected"] = result.AlreadyConnected
		s.observeOperation(ctx, startedAt, "initiate", err, fields)
	}()

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return InitiateResult{}, NewError(ErrorUnauthorized, "core: caller identity is required", nil)
	}
	strategy, err := s.registry.Lookup(req.Provider)
	if err != nil {
		return InitiateResult{}, err
	}
	key := strategy.Key()

	existing, getErr := s.connectionStore.Get(ctx, userID, key)
	switch {
	case getErr == nil && existing.Current(s.now().UTC()):
		return InitiateResult{AlreadyConnected: true}, nil
	case getErr != nil && !errors.Is(getErr, ErrConnectionNotFound):
		return InitiateResult{}, s.mapError(getErr)
	}

	token, err := generateStateToken()
	if err != nil {
		return InitiateResult{}, s.mapError(err)
	}
	var verifier, challenge string
	if strategy.Config().UsePKCE {
		verifier, challenge, err = generatePKCE()
		if err != nil {
			return InitiateResult{}, s.mapError(err)
		}
	}

	now := s.now().UTC()
	if err := s.stateStore.Issue(ctx, OAuthState{
		Token:        token,
		UserID:       userID,
		Provider:     key,
		CodeVerifier: verifier,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.config.OAuth.StateTTL),
	}); err != nil {
		return InitiateResult{}, s.mapError(err)
	}

	authURL, err := strategy.AuthorizeURL(token, challenge)
	if err != nil {
		return InitiateResult{}, s.mapError(err)
	}
	return InitiateResult{AuthorizationURL: authURL, State: token}, nil
}

func (s *Service) GetConnection(ctx context.Context, userID string, provider string) (PlatformConnection, error) {
	strategy, err := s.registry.Lookup(provider)
	if err != nil {
		return PlatformConnection{}, err
	}
	connection, err := s.connectionStore.Get(ctx, strings.TrimSpace(userID), strategy.Key())
	if err != nil {
		return PlatformConnection{}, s.mapError(err)
	}
	return connection, nil
}

func (s *Service) ListConnections(ctx context.Context, userID string) (summaries []ConnectionSummary, err error) {
	startedAt := time.Now()
	fields := map[string]any{"user_id": userID}
	defer func() {
		fields["count"] = len(summaries)
		s.observeOperation(ctx, startedAt, "list_connections", err, fields)
	}()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, NewError(ErrorUnauthorized, "core: caller identity is required", nil)
	}
	connections, err := s.connectionStore.List(ctx, userID)
	if err != nil {
		return nil, s.mapError(err)
	}
	summaries = make([]ConnectionSummary, 0, len(connections))
	for _, connection := range connections {
		summaries = append(summaries, ConnectionSummary{
			Provider:    connection.Provider,
			DisplayName: connection.DisplayName,
			ConnectedAt: connection.ConnectedAt,
		})
	}
	return summaries, nil
}

// DebugConnections lists the caller's connections without token values.
// Inactive rows are included when the store keeps history.
func (s *Service) DebugConnections(ctx context.Context, userID string) (views []ConnectionDebugView, err error) {
	startedAt := time.Now()
	fields := map[string]any{"user_id": userID}
	defer func() {
		fields["count"] = len(views)
		s.observeOperation(ctx, startedAt, "debug_connections", err, fields)
	}()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, NewError(ErrorUnauthorized, "core: caller identity is required", nil)
	}
	var connections []PlatformConnection
	if lister, ok := s.connectionStore.(ConnectionHistoryLister); ok {
		connections, err = lister.ListAll(ctx, userID)
	} else {
		connections, err = s.connectionStore.List(ctx, userID)
	}
	if err != nil {
		return nil, s.mapError(err)
	}
	views = make([]ConnectionDebugView, 0, len(connections))
	for _, connection := range connections {
		views = append(views, connection.DebugView())
	}
	return views, nil
}

// Disconnect deactivates the caller's connection for provider. It succeeds
// when nothing is connected. Revocation at the provider is best-effort and
// never fails the call.
func (s *Service) Disconnect(ctx context.Context, req DisconnectRequest) (err error) {
	startedAt := time.Now()
	fields := map[string]any{"provider": req.Provider, "user_id": req.UserID}
	defer func() {
		s.observeOperation(ctx, startedAt, "disconnect", err, fields)
	}()

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return NewError(ErrorUnauthorized, "core: caller identity is required", nil)
	}
	strategy, err := s.registry.Lookup(req.Provider)
	if err != nil {
		return err
	}
	previous, changed, err := s.connectionStore.Deactivate(ctx, userID, strategy.Key())
	if err != nil {
		return s.mapError(err)
	}
	fields["changed"] = changed
	if !changed {
		return nil
	}
	fields["connection_id"] = previous.ID

	if s.revocations != nil {
		revokeErr := s.revocations.DispatchRevocation(ctx, RevocationRequest{
			ConnectionID: previous.ID,
			UserID:       previous.UserID,
			Provider:     previous.Provider,
			AccessToken:  previous.AccessToken,
			RequestedAt:  s.now().UTC(),
		})
		if revokeErr != nil {
			s.logWarn(ctx, "provider revocation failed", map[string]any{
				"provider":      previous.Provider,
				"connection_id": previous.ID,
				"error":         revokeErr.Error(),
			})
		}
	}
	return nil
}

func (s *Service) PlatformViews() []PlatformView {
	if s == nil {
		return nil
	}
	return s.registry.Views()
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	if mapped := s.errorMapper(err); mapped != nil {
		return mapped
	}
	return err
}
