package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-connections/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const connectionCacheKeyPrefix = "go-connections::connection::v1"

// CachedConnectionStore serves Get and List from go-repository-cache and
// drops the affected keys whenever a write goes through it.
type CachedConnectionStore struct {
	base  core.ConnectionStore
	cache repositorycache.CacheService
}

func NewCachedConnectionStore(
	base core.ConnectionStore,
	cacheService repositorycache.CacheService,
) (*CachedConnectionStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base connection store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: connection cache service is required")
	}
	return &CachedConnectionStore{base: base, cache: cacheService}, nil
}

// ConnectionCacheKey returns go-connections::connection::v1::<user>::<provider>
// with each segment URL-path escaped.
func ConnectionCacheKey(userID string, provider string) string {
	return strings.Join([]string{
		connectionCacheKeyPrefix,
		url.PathEscape(strings.TrimSpace(userID)),
		url.PathEscape(core.NormalizeProviderKey(provider)),
	}, "::")
}

// ConnectionListCacheKey returns go-connections::connection::v1::list::<user>.
func ConnectionListCacheKey(userID string) string {
	return strings.Join([]string{
		connectionCacheKeyPrefix,
		"list",
		url.PathEscape(strings.TrimSpace(userID)),
	}, "::")
}

func (s *CachedConnectionStore) Upsert(ctx context.Context, in core.UpsertConnectionInput) (core.PlatformConnection, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.PlatformConnection{}, fmt.Errorf("sqlstore: cached connection store is not configured")
	}
	connection, err := s.base.Upsert(ctx, in)
	if err != nil {
		return core.PlatformConnection{}, err
	}
	if err := s.invalidate(ctx, connection.UserID, connection.Provider); err != nil {
		return core.PlatformConnection{}, err
	}
	return connection, nil
}

func (s *CachedConnectionStore) Get(ctx context.Context, userID string, provider string) (core.PlatformConnection, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.PlatformConnection{}, fmt.Errorf("sqlstore: cached connection store is not configured")
	}
	return repositorycache.GetOrFetch(ctx, s.cache, ConnectionCacheKey(userID, provider), func(ctx context.Context) (core.PlatformConnection, error) {
		return s.base.Get(ctx, userID, provider)
	})
}

func (s *CachedConnectionStore) List(ctx context.Context, userID string) ([]core.PlatformConnection, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return nil, fmt.Errorf("sqlstore: cached connection store is not configured")
	}
	connections, err := repositorycache.GetOrFetch(ctx, s.cache, ConnectionListCacheKey(userID), func(ctx context.Context) ([]core.PlatformConnection, error) {
		return s.base.List(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return append([]core.PlatformConnection(nil), connections...), nil
}

// ListAll reads through to the base store; history listings are not cached.
func (s *CachedConnectionStore) ListAll(ctx context.Context, userID string) ([]core.PlatformConnection, error) {
	if s == nil || s.base == nil {
		return nil, fmt.Errorf("sqlstore: cached connection store is not configured")
	}
	if lister, ok := s.base.(core.ConnectionHistoryLister); ok {
		return lister.ListAll(ctx, userID)
	}
	return s.base.List(ctx, userID)
}

func (s *CachedConnectionStore) Deactivate(ctx context.Context, userID string, provider string) (core.PlatformConnection, bool, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.PlatformConnection{}, false, fmt.Errorf("sqlstore: cached connection store is not configured")
	}
	previous, changed, err := s.base.Deactivate(ctx, userID, provider)
	if err != nil {
		return core.PlatformConnection{}, false, err
	}
	if changed {
		if err := s.invalidate(ctx, userID, provider); err != nil {
			return core.PlatformConnection{}, false, err
		}
	}
	return previous, changed, nil
}

// FindByID is used by queued revocation and always reads the base store.
func (s *CachedConnectionStore) FindByID(ctx context.Context, id string) (core.PlatformConnection, error) {
	if s == nil || s.base == nil {
		return core.PlatformConnection{}, fmt.Errorf("sqlstore: cached connection store is not configured")
	}
	return s.base.FindByID(ctx, id)
}

func (s *CachedConnectionStore) invalidate(ctx context.Context, userID string, provider string) error {
	if err := s.cache.Delete(ctx, ConnectionCacheKey(userID, provider)); err != nil {
		return err
	}
	return s.cache.Delete(ctx, ConnectionListCacheKey(userID))
}
