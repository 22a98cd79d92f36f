package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-connections/core"
)

type stubReader struct {
	getFn  func(context.Context, string, string) (core.PlatformConnection, error)
	listFn func(context.Context, string) ([]core.ConnectionSummary, error)
	views  []core.PlatformView
}

func (s stubReader) GetConnection(ctx context.Context, userID string, provider string) (core.PlatformConnection, error) {
	return s.getFn(ctx, userID, provider)
}

func (s stubReader) ListConnections(ctx context.Context, userID string) ([]core.ConnectionSummary, error) {
	return s.listFn(ctx, userID)
}

func (s stubReader) PlatformViews() []core.PlatformView {
	return s.views
}

func TestListConnectionsQueryDelegates(t *testing.T) {
	connectedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reader := stubReader{
		listFn: func(_ context.Context, userID string) ([]core.ConnectionSummary, error) {
			if userID != "user-1" {
				t.Fatalf("unexpected user %q", userID)
			}
			return []core.ConnectionSummary{{Provider: "twitter", DisplayName: "jane", ConnectedAt: connectedAt}}, nil
		},
	}
	out, err := NewListConnectionsQuery(reader).Query(context.Background(), ListConnectionsMessage{UserID: "user-1"})
	if err != nil {
		t.Fatalf("list connections: %v", err)
	}
	if len(out) != 1 || out[0].Provider != "twitter" || !out[0].ConnectedAt.Equal(connectedAt) {
		t.Fatalf("unexpected summaries %#v", out)
	}
}

func TestGetConnectionQueryPropagatesNotFound(t *testing.T) {
	reader := stubReader{
		getFn: func(context.Context, string, string) (core.PlatformConnection, error) {
			return core.PlatformConnection{}, core.ErrConnectionNotFound
		},
	}
	_, err := NewGetConnectionQuery(reader).Query(context.Background(), GetConnectionMessage{UserID: "u", Provider: "facebook"})
	if !errors.Is(err, core.ErrConnectionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListPlatformsQueryReturnsViews(t *testing.T) {
	reader := stubReader{views: []core.PlatformView{{Key: "linkedin", ClientSecret: "***"}}}
	out, err := NewListPlatformsQuery(reader).Query(context.Background(), ListPlatformsMessage{})
	if err != nil {
		t.Fatalf("list platforms: %v", err)
	}
	if len(out) != 1 || out[0].ClientSecret != "***" {
		t.Fatalf("unexpected views %#v", out)
	}
}

func TestQueryMessagesValidate(t *testing.T) {
	if err := (ListConnectionsMessage{}).Validate(); err == nil {
		t.Fatalf("expected missing user validation error")
	}
	if err := (GetConnectionMessage{UserID: "u"}).Validate(); err == nil {
		t.Fatalf("expected missing provider validation error")
	}
	if err := (GetConnectionMessage{UserID: "u", Provider: "twitter"}).Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}
