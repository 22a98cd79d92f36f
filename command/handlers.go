package command

import (
	"context"
	"time"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-connections/core"
)

type MutatingService interface {
	Initiate(ctx context.Context, req core.InitiateRequest) (core.InitiateResult, error)
	HandleCallback(ctx context.Context, req core.CallbackRequest) (core.CallbackResult, error)
	Disconnect(ctx context.Context, req core.DisconnectRequest) error
}

type ConnectCommand struct {
	service MutatingService
}

func NewConnectCommand(service MutatingService) *ConnectCommand {
	return &ConnectCommand{service: service}
}

func (c *ConnectCommand) Execute(ctx context.Context, msg ConnectMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: connect service is required")
	}
	out, err := c.service.Initiate(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type CompleteCallbackCommand struct {
	service MutatingService
}

func NewCompleteCallbackCommand(service MutatingService) *CompleteCallbackCommand {
	return &CompleteCallbackCommand{service: service}
}

// Execute stores the callback result even when the callback failed, since
// the result carries the error redirect the caller must follow.
func (c *CompleteCallbackCommand) Execute(ctx context.Context, msg CompleteCallbackMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: callback service is required")
	}
	out, err := c.service.HandleCallback(ctx, msg.Request)
	storeResult(ctx, out)
	return err
}

type DisconnectCommand struct {
	service MutatingService
}

func NewDisconnectCommand(service MutatingService) *DisconnectCommand {
	return &DisconnectCommand{service: service}
}

func (c *DisconnectCommand) Execute(ctx context.Context, msg DisconnectMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: disconnect service is required")
	}
	return c.service.Disconnect(ctx, msg.Request)
}

type RevokeConnectionCommand struct {
	dispatcher core.RevocationDispatcher
}

func NewRevokeConnectionCommand(dispatcher core.RevocationDispatcher) *RevokeConnectionCommand {
	return &RevokeConnectionCommand{dispatcher: dispatcher}
}

func (c *RevokeConnectionCommand) Execute(ctx context.Context, msg RevokeConnectionMessage) error {
	if c == nil || c.dispatcher == nil {
		return commandDependencyError("command: revocation dispatcher is required")
	}
	return c.dispatcher.DispatchRevocation(ctx, msg.Request)
}

type PurgeExpiredStatesCommand struct {
	purger core.ExpiredStatePurger
	now    func() time.Time
}

func NewPurgeExpiredStatesCommand(purger core.ExpiredStatePurger) *PurgeExpiredStatesCommand {
	return &PurgeExpiredStatesCommand{
		purger: purger,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Execute stores the number of purged states.
func (c *PurgeExpiredStatesCommand) Execute(ctx context.Context, _ PurgeExpiredStatesMessage) error {
	if c == nil || c.purger == nil {
		return commandDependencyError("command: state purger is required")
	}
	purged, err := c.purger.PurgeExpired(ctx, c.now())
	if err != nil {
		return err
	}
	storeResult(ctx, purged)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
