package sqlstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-connections/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

type countingConnectionStore struct {
	mu        sync.Mutex
	inner     *core.MemoryConnectionStore
	getCalls  int
	listCalls int
}

func newCountingConnectionStore() *countingConnectionStore {
	return &countingConnectionStore{inner: core.NewMemoryConnectionStore()}
}

func (s *countingConnectionStore) Upsert(ctx context.Context, in core.UpsertConnectionInput) (core.PlatformConnection, error) {
	return s.inner.Upsert(ctx, in)
}

func (s *countingConnectionStore) Get(ctx context.Context, userID string, provider string) (core.PlatformConnection, error) {
	s.mu.Lock()
	s.getCalls++
	s.mu.Unlock()
	return s.inner.Get(ctx, userID, provider)
}

func (s *countingConnectionStore) List(ctx context.Context, userID string) ([]core.PlatformConnection, error) {
	s.mu.Lock()
	s.listCalls++
	s.mu.Unlock()
	return s.inner.List(ctx, userID)
}

func (s *countingConnectionStore) Deactivate(ctx context.Context, userID string, provider string) (core.PlatformConnection, bool, error) {
	return s.inner.Deactivate(ctx, userID, provider)
}

func (s *countingConnectionStore) FindByID(ctx context.Context, id string) (core.PlatformConnection, error) {
	return s.inner.FindByID(ctx, id)
}

func newTestConnectionCacheService(t *testing.T) repositorycache.CacheService {
	t.Helper()
	config := repositorycache.DefaultConfig()
	config.TTL = time.Minute
	service, err := repositorycache.NewCacheService(config)
	if err != nil {
		t.Fatalf("new cache service: %v", err)
	}
	return service
}

func TestCachedConnectionStore_Get_MissFetchThenHit(t *testing.T) {
	ctx := context.Background()
	base := newCountingConnectionStore()
	if _, err := base.Upsert(ctx, core.UpsertConnectionInput{
		UserID:   "cache-user-1",
		Provider: "twitter",
		Token:    core.TokenResult{AccessToken: "tok"},
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	store, err := NewCachedConnectionStore(base, newTestConnectionCacheService(t))
	if err != nil {
		t.Fatalf("new cached store: %v", err)
	}
	for i := 0; i < 2; i++ {
		connection, err := store.Get(ctx, "cache-user-1", "twitter")
		if err != nil {
			t.Fatalf("get %d: %v", i, err)
		}
		if connection.AccessToken != "tok" {
			t.Fatalf("unexpected connection %+v", connection)
		}
	}
	if base.getCalls != 1 {
		t.Fatalf("expected a single base read, got %d", base.getCalls)
	}
}

func TestCachedConnectionStore_WritesInvalidate(t *testing.T) {
	ctx := context.Background()
	base := newCountingConnectionStore()
	store, err := NewCachedConnectionStore(base, newTestConnectionCacheService(t))
	if err != nil {
		t.Fatalf("new cached store: %v", err)
	}

	if _, err := store.Upsert(ctx, core.UpsertConnectionInput{
		UserID:   "cache-user-2",
		Provider: "linkedin",
		Token:    core.TokenResult{AccessToken: "first"},
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	listed, err := store.List(ctx, "cache-user-2")
	if err != nil || len(listed) != 1 {
		t.Fatalf("expected one listed connection, got %d (%v)", len(listed), err)
	}

	if _, err := store.Upsert(ctx, core.UpsertConnectionInput{
		UserID:   "cache-user-2",
		Provider: "facebook",
		Token:    core.TokenResult{AccessToken: "second"},
	}); err != nil {
		t.Fatalf("upsert second: %v", err)
	}
	listed, err = store.List(ctx, "cache-user-2")
	if err != nil || len(listed) != 2 {
		t.Fatalf("expected list refreshed after write, got %d (%v)", len(listed), err)
	}
	if base.listCalls != 2 {
		t.Fatalf("expected two base list reads, got %d", base.listCalls)
	}

	if _, changed, err := store.Deactivate(ctx, "cache-user-2", "linkedin"); err != nil || !changed {
		t.Fatalf("deactivate: changed=%v err=%v", changed, err)
	}
	_, err = store.Get(ctx, "cache-user-2", "linkedin")
	if !errors.Is(err, core.ErrConnectionNotFound) {
		t.Fatalf("expected not found after deactivate, got %v", err)
	}
}

func TestConnectionCacheKeyEscapesSegments(t *testing.T) {
	key := ConnectionCacheKey("user/1", " Twitter ")
	if key != "go-connections::connection::v1::user%2F1::twitter" {
		t.Fatalf("unexpected key %q", key)
	}
	if ConnectionListCacheKey("u") != "go-connections::connection::v1::list::u" {
		t.Fatalf("unexpected list key %q", ConnectionListCacheKey("u"))
	}
}
