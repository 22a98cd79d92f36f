package query

import (
	"context"

	"github.com/goliatone/go-connections/core"
)

type ConnectionReader interface {
	GetConnection(ctx context.Context, userID string, provider string) (core.PlatformConnection, error)
	ListConnections(ctx context.Context, userID string) ([]core.ConnectionSummary, error)
}

type PlatformReader interface {
	PlatformViews() []core.PlatformView
}

type ListConnectionsQuery struct {
	reader ConnectionReader
}

func NewListConnectionsQuery(reader ConnectionReader) *ListConnectionsQuery {
	return &ListConnectionsQuery{reader: reader}
}

func (q *ListConnectionsQuery) Query(ctx context.Context, msg ListConnectionsMessage) ([]core.ConnectionSummary, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: connection reader is required")
	}
	return q.reader.ListConnections(ctx, msg.UserID)
}

type GetConnectionQuery struct {
	reader ConnectionReader
}

func NewGetConnectionQuery(reader ConnectionReader) *GetConnectionQuery {
	return &GetConnectionQuery{reader: reader}
}

func (q *GetConnectionQuery) Query(ctx context.Context, msg GetConnectionMessage) (core.PlatformConnection, error) {
	if q == nil || q.reader == nil {
		return core.PlatformConnection{}, queryDependencyError("query: connection reader is required")
	}
	return q.reader.GetConnection(ctx, msg.UserID, msg.Provider)
}

type ListPlatformsQuery struct {
	reader PlatformReader
}

func NewListPlatformsQuery(reader PlatformReader) *ListPlatformsQuery {
	return &ListPlatformsQuery{reader: reader}
}

func (q *ListPlatformsQuery) Query(_ context.Context, _ ListPlatformsMessage) ([]core.PlatformView, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: platform reader is required")
	}
	return q.reader.PlatformViews(), nil
}
