package core

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// InlineRevoker revokes provider tokens synchronously with a bounded timeout.
// Strategies that do not implement Revoker are skipped.
type InlineRevoker struct {
	registry    *Registry
	connections ConnectionStore
	timeout     time.Duration
}

func NewInlineRevoker(registry *Registry, connections ConnectionStore, timeout time.Duration) *InlineRevoker {
	if timeout <= 0 {
		timeout = DefaultConfig().OAuth.RevocationTimeout
	}
	return &InlineRevoker{registry: registry, connections: connections, timeout: timeout}
}

func (r *InlineRevoker) DispatchRevocation(ctx context.Context, req RevocationRequest) error {
	if r == nil || r.registry == nil {
		return fmt.Errorf("core: revoker is not configured")
	}
	strategy, err := r.registry.Lookup(req.Provider)
	if err != nil {
		return err
	}
	revoker, ok := strategy.(Revoker)
	if !ok {
		return nil
	}

	accessToken := req.AccessToken
	if strings.TrimSpace(accessToken) == "" {
		if r.connections == nil || strings.TrimSpace(req.ConnectionID) == "" {
			return fmt.Errorf("core: revocation requires an access token or connection id")
		}
		connection, findErr := r.connections.FindByID(ctx, req.ConnectionID)
		if findErr != nil {
			return findErr
		}
		if connection.Active {
			// Reconnected since the disconnect was queued; the token is live again.
			return nil
		}
		accessToken = connection.AccessToken
	}

	revokeCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return revoker.Revoke(revokeCtx, accessToken)
}
