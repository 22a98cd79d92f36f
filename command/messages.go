package command

import (
	"strings"

	"github.com/goliatone/go-connections/core"
)

const (
	TypeConnect           = "connections.command.connect"
	TypeCompleteCallback  = "connections.command.callback.complete"
	TypeDisconnect        = "connections.command.disconnect"
	TypeRevokeConnection  = "connections.command.revoke"
	TypePurgeExpiredState = "connections.command.state.purge_expired"
)

type ConnectMessage struct {
	Request core.InitiateRequest
}

func (ConnectMessage) Type() string { return TypeConnect }

func (m ConnectMessage) Validate() error {
	if strings.TrimSpace(m.Request.Provider) == "" {
		return commandValidationError("provider", "provider is required")
	}
	if strings.TrimSpace(m.Request.UserID) == "" {
		return commandValidationError("user_id", "user id is required")
	}
	return nil
}

// CompleteCallbackMessage carries the raw callback parameters. Missing code
// or state is not a validation failure here; the service turns it into a
// malformed-callback redirect.
type CompleteCallbackMessage struct {
	Request core.CallbackRequest
}

func (CompleteCallbackMessage) Type() string { return TypeCompleteCallback }

func (m CompleteCallbackMessage) Validate() error {
	if strings.TrimSpace(m.Request.Provider) == "" {
		return commandValidationError("provider", "provider is required")
	}
	return nil
}

type DisconnectMessage struct {
	Request core.DisconnectRequest
}

func (DisconnectMessage) Type() string { return TypeDisconnect }

func (m DisconnectMessage) Validate() error {
	if strings.TrimSpace(m.Request.Provider) == "" {
		return commandValidationError("provider", "provider is required")
	}
	if strings.TrimSpace(m.Request.UserID) == "" {
		return commandValidationError("user_id", "user id is required")
	}
	return nil
}

type RevokeConnectionMessage struct {
	Request core.RevocationRequest
}

func (RevokeConnectionMessage) Type() string { return TypeRevokeConnection }

func (m RevokeConnectionMessage) Validate() error {
	if strings.TrimSpace(m.Request.Provider) == "" {
		return commandValidationError("provider", "provider is required")
	}
	if strings.TrimSpace(m.Request.ConnectionID) == "" && strings.TrimSpace(m.Request.AccessToken) == "" {
		return commandValidationError("connection_id", "connection id or access token is required")
	}
	return nil
}

type PurgeExpiredStatesMessage struct{}

func (PurgeExpiredStatesMessage) Type() string { return TypePurgeExpiredState }

func (PurgeExpiredStatesMessage) Validate() error { return nil }
