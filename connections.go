package connections

import "github.com/goliatone/go-connections/core"

type Config = core.Config

type Option = core.Option

type Service = core.Service

type Strategy = core.Strategy
type Registry = core.Registry
type StateStore = core.StateStore
type ConnectionStore = core.ConnectionStore
type RevocationDispatcher = core.RevocationDispatcher

type PlatformConfig = core.PlatformConfig
type PlatformConnection = core.PlatformConnection
type ConnectionSummary = core.ConnectionSummary

type InitiateRequest = core.InitiateRequest
type InitiateResult = core.InitiateResult
type CallbackRequest = core.CallbackRequest
type CallbackResult = core.CallbackResult
type DisconnectRequest = core.DisconnectRequest

var (
	WithLogger               = core.WithLogger
	WithLoggerProvider       = core.WithLoggerProvider
	WithMetricsRecorder      = core.WithMetricsRecorder
	WithErrorMapper          = core.WithErrorMapper
	WithConfigProvider       = core.WithConfigProvider
	WithOptionsResolver      = core.WithOptionsResolver
	WithRegistry             = core.WithRegistry
	WithStateStore           = core.WithStateStore
	WithConnectionStore      = core.WithConnectionStore
	WithRevocationDispatcher = core.WithRevocationDispatcher
	WithClock                = core.WithClock
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}
