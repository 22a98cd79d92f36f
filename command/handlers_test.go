package command

import (
	"context"
	"errors"
	"testing"
	"time"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-connections/core"
)

type stubService struct {
	initiateFn   func(context.Context, core.InitiateRequest) (core.InitiateResult, error)
	callbackFn   func(context.Context, core.CallbackRequest) (core.CallbackResult, error)
	disconnectFn func(context.Context, core.DisconnectRequest) error
}

func (s stubService) Initiate(ctx context.Context, req core.InitiateRequest) (core.InitiateResult, error) {
	return s.initiateFn(ctx, req)
}

func (s stubService) HandleCallback(ctx context.Context, req core.CallbackRequest) (core.CallbackResult, error) {
	return s.callbackFn(ctx, req)
}

func (s stubService) Disconnect(ctx context.Context, req core.DisconnectRequest) error {
	return s.disconnectFn(ctx, req)
}

type stubDispatcher struct {
	requests []core.RevocationRequest
	err      error
}

func (d *stubDispatcher) DispatchRevocation(_ context.Context, req core.RevocationRequest) error {
	d.requests = append(d.requests, req)
	return d.err
}

type stubPurger struct {
	purged int
	at     time.Time
}

func (p *stubPurger) PurgeExpired(_ context.Context, now time.Time) (int, error) {
	p.at = now
	return p.purged, nil
}

func TestConnectCommandStoresResult(t *testing.T) {
	svc := stubService{
		initiateFn: func(_ context.Context, req core.InitiateRequest) (core.InitiateResult, error) {
			if req.Provider != "twitter" || req.UserID != "user-1" {
				t.Fatalf("unexpected request %#v", req)
			}
			return core.InitiateResult{AuthorizationURL: "https://twitter.com/i/oauth2/authorize?state=s1", State: "s1"}, nil
		},
	}
	collector := gocmd.NewResult[core.InitiateResult]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	err := NewConnectCommand(svc).Execute(ctx, ConnectMessage{Request: core.InitiateRequest{UserID: "user-1", Provider: "twitter"}})
	if err != nil {
		t.Fatalf("execute connect: %v", err)
	}
	out, ok := collector.Load()
	if !ok {
		t.Fatalf("expected stored result")
	}
	if out.State != "s1" {
		t.Fatalf("expected state s1, got %q", out.State)
	}
}

func TestCompleteCallbackCommandStoresResultOnError(t *testing.T) {
	failure := errors.New("exchange failed")
	svc := stubService{
		callbackFn: func(context.Context, core.CallbackRequest) (core.CallbackResult, error) {
			return core.CallbackResult{
				Status:      core.CallbackStatusError,
				Provider:    "linkedin",
				ErrorCode:   "network_error",
				RedirectURL: "http://localhost:3000/profile?status=error&platform=linkedin&error=network_error",
			}, failure
		},
	}
	collector := gocmd.NewResult[core.CallbackResult]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	err := NewCompleteCallbackCommand(svc).Execute(ctx, CompleteCallbackMessage{Request: core.CallbackRequest{Provider: "linkedin"}})
	if !errors.Is(err, failure) {
		t.Fatalf("expected callback failure, got %v", err)
	}
	out, ok := collector.Load()
	if !ok {
		t.Fatalf("expected stored result on failure")
	}
	if out.ErrorCode != "network_error" || out.RedirectURL == "" {
		t.Fatalf("unexpected stored result %#v", out)
	}
}

func TestDisconnectCommandDelegates(t *testing.T) {
	called := false
	svc := stubService{
		disconnectFn: func(_ context.Context, req core.DisconnectRequest) error {
			called = req.Provider == "facebook" && req.UserID == "user-2"
			return nil
		},
	}
	if err := NewDisconnectCommand(svc).Execute(context.Background(), DisconnectMessage{
		Request: core.DisconnectRequest{UserID: "user-2", Provider: "facebook"},
	}); err != nil {
		t.Fatalf("execute disconnect: %v", err)
	}
	if !called {
		t.Fatalf("expected disconnect to reach service")
	}
}

func TestRevokeConnectionCommandDispatches(t *testing.T) {
	dispatcher := &stubDispatcher{}
	req := core.RevocationRequest{ConnectionID: "conn-1", UserID: "user-1", Provider: "twitter"}
	if err := NewRevokeConnectionCommand(dispatcher).Execute(context.Background(), RevokeConnectionMessage{Request: req}); err != nil {
		t.Fatalf("execute revoke: %v", err)
	}
	if len(dispatcher.requests) != 1 || dispatcher.requests[0].ConnectionID != "conn-1" {
		t.Fatalf("unexpected dispatched requests %#v", dispatcher.requests)
	}
}

func TestPurgeExpiredStatesCommandStoresCount(t *testing.T) {
	purger := &stubPurger{purged: 3}
	cmd := NewPurgeExpiredStatesCommand(purger)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cmd.now = func() time.Time { return fixed }

	collector := gocmd.NewResult[int]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)
	if err := cmd.Execute(ctx, PurgeExpiredStatesMessage{}); err != nil {
		t.Fatalf("execute purge: %v", err)
	}
	count, ok := collector.Load()
	if !ok || count != 3 {
		t.Fatalf("expected purge count 3, got %d (%v)", count, ok)
	}
	if !purger.at.Equal(fixed) {
		t.Fatalf("expected purge at %v, got %v", fixed, purger.at)
	}
}

func TestMessagesValidate(t *testing.T) {
	cases := []struct {
		name    string
		msg     interface{ Validate() error }
		wantErr bool
	}{
		{name: "connect ok", msg: ConnectMessage{Request: core.InitiateRequest{UserID: "u", Provider: "twitter"}}},
		{name: "connect missing user", msg: ConnectMessage{Request: core.InitiateRequest{Provider: "twitter"}}, wantErr: true},
		{name: "connect missing provider", msg: ConnectMessage{Request: core.InitiateRequest{UserID: "u"}}, wantErr: true},
		{name: "callback without code is valid", msg: CompleteCallbackMessage{Request: core.CallbackRequest{Provider: "twitter"}}},
		{name: "callback missing provider", msg: CompleteCallbackMessage{}, wantErr: true},
		{name: "disconnect missing user", msg: DisconnectMessage{Request: core.DisconnectRequest{Provider: "twitter"}}, wantErr: true},
		{name: "revoke missing target", msg: RevokeConnectionMessage{Request: core.RevocationRequest{Provider: "twitter"}}, wantErr: true},
		{name: "revoke by token", msg: RevokeConnectionMessage{Request: core.RevocationRequest{Provider: "twitter", AccessToken: "tok"}}},
		{name: "purge", msg: PurgeExpiredStatesMessage{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.msg.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}
