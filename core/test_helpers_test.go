package core

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"
)

type capturedCounter struct {
	name  string
	value int64
	tags  map[string]string
}

type capturedHistogram struct {
	name  string
	value float64
	tags  map[string]string
}

type captureMetricsRecorder struct {
	mu         sync.Mutex
	counters   []capturedCounter
	histograms []capturedHistogram
}

func (m *captureMetricsRecorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = append(m.counters, capturedCounter{name: name, value: value, tags: cloneTags(tags)})
}

func (m *captureMetricsRecorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histograms = append(m.histograms, capturedHistogram{name: name, value: value, tags: cloneTags(tags)})
}

type capturedLog struct {
	level  string
	msg    string
	fields map[string]any
}

type captureLogger struct {
	mu       *sync.Mutex
	records  *[]capturedLog
	defaults map[string]any
}

func newCaptureLogger() *captureLogger {
	records := []capturedLog{}
	return &captureLogger{mu: &sync.Mutex{}, records: &records, defaults: map[string]any{}}
}

func (l *captureLogger) WithFields(fields map[string]any) Logger {
	merged := cloneFields(l.defaults)
	for key, value := range fields {
		merged[key] = value
	}
	return &captureLogger{mu: l.mu, records: l.records, defaults: merged}
}

func (l *captureLogger) Trace(msg string, args ...any) { l.record("trace", msg, args...) }
func (l *captureLogger) Debug(msg string, args ...any) { l.record("debug", msg, args...) }
func (l *captureLogger) Info(msg string, args ...any)  { l.record("info", msg, args...) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args...) }
func (l *captureLogger) Error(msg string, args ...any) { l.record("error", msg, args...) }
func (l *captureLogger) Fatal(msg string, args ...any) { l.record("fatal", msg, args...) }

func (l *captureLogger) WithContext(context.Context) Logger {
	return &captureLogger{mu: l.mu, records: l.records, defaults: cloneFields(l.defaults)}
}

func (l *captureLogger) record(level string, msg string, args ...any) {
	fields := cloneFields(l.defaults)
	for index := 0; index+1 < len(args); index += 2 {
		key, ok := args[index].(string)
		if !ok {
			continue
		}
		fields[key] = args[index+1]
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.records = append(*l.records, capturedLog{level: level, msg: msg, fields: fields})
}

func (l *captureLogger) snapshot() []capturedLog {
	l.mu.Lock()
	defer l.mu.Unlock()
	items := *l.records
	out := make([]capturedLog, len(items))
	copy(out, items)
	return out
}

type stubLoggerProvider struct {
	logger Logger
}

func (s stubLoggerProvider) GetLogger(string) Logger {
	return s.logger
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeStrategy struct {
	mu           sync.Mutex
	config       PlatformConfig
	token        TokenResult
	profile      Profile
	exchangeErr  error
	profileErr   error
	revokeErr    error
	exchanges    []string
	verifiers    []string
	revoked      []string
	profileCalls int
}

func newFakeStrategy(key string) *fakeStrategy {
	return &fakeStrategy{
		config: PlatformConfig{
			Key:          key,
			DisplayName:  key,
			AuthorizeURL: "https://" + key + ".example/oauth/authorize",
			TokenURL:     "https://" + key + ".example/oauth/token",
			ClientID:     key + "-client",
			ClientSecret: key + "-secret",
			RedirectURI:  "http://localhost:8000/oauth/" + key + "/callback",
			Scopes:       []string{"read", "write"},
			SecretMode:   SecretModeBody,
		},
		token:   TokenResult{AccessToken: key + "-access", TokenType: "bearer"},
		profile: Profile{ID: key + "-id", DisplayName: key + "-user"},
	}
}

func (f *fakeStrategy) Key() string { return f.config.Key }

func (f *fakeStrategy) Config() PlatformConfig { return f.config }

func (f *fakeStrategy) AuthorizeURL(state string, challenge string) (string, error) {
	values := url.Values{}
	values.Set("client_id", f.config.ClientID)
	values.Set("redirect_uri", f.config.RedirectURI)
	values.Set("scope", f.config.JoinedScopes())
	values.Set("state", state)
	if challenge != "" {
		values.Set("code_challenge", challenge)
	}
	return f.config.AuthorizeURL + "?" + values.Encode(), nil
}

func (f *fakeStrategy) Exchange(_ context.Context, code string, verifier string) (TokenResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchanges = append(f.exchanges, code)
	f.verifiers = append(f.verifiers, verifier)
	if f.exchangeErr != nil {
		return TokenResult{}, f.exchangeErr
	}
	return f.token, nil
}

func (f *fakeStrategy) FetchProfile(context.Context, TokenResult) (Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profileCalls++
	if f.profileErr != nil {
		return Profile{}, f.profileErr
	}
	return f.profile, nil
}

func (f *fakeStrategy) Revoke(_ context.Context, accessToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, accessToken)
	return f.revokeErr
}

func (f *fakeStrategy) exchangeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.exchanges)
}

type serviceFixture struct {
	service     *Service
	clock       *testClock
	states      *MemoryStateStore
	connections *MemoryConnectionStore
	strategies  map[string]*fakeStrategy
	logger      *captureLogger
	metrics     *captureMetricsRecorder
}

func newServiceFixture(keys ...string) (*serviceFixture, error) {
	if len(keys) == 0 {
		keys = []string{"twitter"}
	}
	clock := newTestClock()
	strategies := map[string]*fakeStrategy{}
	registered := make([]Strategy, 0, len(keys))
	for _, key := range keys {
		strategy := newFakeStrategy(key)
		strategies[key] = strategy
		registered = append(registered, strategy)
	}
	registry, err := NewRegistry(registered...)
	if err != nil {
		return nil, fmt.Errorf("new registry: %w", err)
	}
	states := NewMemoryStateStore(WithMemoryStateClock(clock.Now))
	connections := NewMemoryConnectionStore()
	connections.now = clock.Now
	logger := newCaptureLogger()
	metrics := &captureMetricsRecorder{}
	svc, err := NewService(Config{},
		WithRegistry(registry),
		WithStateStore(states),
		WithConnectionStore(connections),
		WithClock(clock.Now),
		WithLogger(logger),
		WithLoggerProvider(stubLoggerProvider{logger: logger}),
		WithMetricsRecorder(metrics),
	)
	if err != nil {
		return nil, err
	}
	return &serviceFixture{
		service:     svc,
		clock:       clock,
		states:      states,
		connections: connections,
		strategies:  strategies,
		logger:      logger,
		metrics:     metrics,
	}, nil
}
