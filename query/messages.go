package query

import "strings"

const (
	TypeListConnections = "connections.query.connections.list"
	TypeGetConnection   = "connections.query.connection.get"
	TypeListPlatforms   = "connections.query.platforms.list"
)

type ListConnectionsMessage struct {
	UserID string
}

func (ListConnectionsMessage) Type() string { return TypeListConnections }

func (m ListConnectionsMessage) Validate() error {
	if strings.TrimSpace(m.UserID) == "" {
		return queryValidationError("user_id", "user id is required")
	}
	return nil
}

type GetConnectionMessage struct {
	UserID   string
	Provider string
}

func (GetConnectionMessage) Type() string { return TypeGetConnection }

func (m GetConnectionMessage) Validate() error {
	if strings.TrimSpace(m.UserID) == "" {
		return queryValidationError("user_id", "user id is required")
	}
	if strings.TrimSpace(m.Provider) == "" {
		return queryValidationError("provider", "provider is required")
	}
	return nil
}

// ListPlatformsMessage requests the masked view of every registered platform.
type ListPlatformsMessage struct{}

func (ListPlatformsMessage) Type() string { return TypeListPlatforms }

func (ListPlatformsMessage) Validate() error { return nil }
