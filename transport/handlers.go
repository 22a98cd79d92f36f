package transport

import (
	"context"
	"net/http"

	"github.com/goliatone/go-connections/core"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/labstack/echo/v4"
)

type ConnectionService interface {
	Initiate(ctx context.Context, req core.InitiateRequest) (core.InitiateResult, error)
	HandleCallback(ctx context.Context, req core.CallbackRequest) (core.CallbackResult, error)
	ListConnections(ctx context.Context, userID string) ([]core.ConnectionSummary, error)
	DebugConnections(ctx context.Context, userID string) ([]core.ConnectionDebugView, error)
	Disconnect(ctx context.Context, req core.DisconnectRequest) error
	PlatformViews() []core.PlatformView
}

type Handler struct {
	service  ConnectionService
	identity IdentityResolver
	logger   glog.Logger
	debug    bool
}

type Option func(*Handler)

func WithIdentityResolver(resolver IdentityResolver) Option {
	return func(h *Handler) {
		if resolver != nil {
			h.identity = resolver
		}
	}
}

func WithLogger(logger glog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithDebugEndpoints exposes GET /oauth/debug with masked platform config and
// GET /oauth/debug/connections with the caller's token-free connection rows.
func WithDebugEndpoints(enabled bool) Option {
	return func(h *Handler) {
		h.debug = enabled
	}
}

func NewHandler(service ConnectionService, opts ...Option) *Handler {
	h := &Handler{
		service:  service,
		identity: HeaderIdentity(DefaultIdentityHeader),
		logger:   glog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Register mounts the connection routes on e and installs the JSON error
// handler.
func (h *Handler) Register(e *echo.Echo) {
	e.HTTPErrorHandler = h.ErrorHandler
	e.GET("/healthz", h.health)

	g := e.Group("/oauth")
	g.GET("/connections", h.listConnections)
	g.DELETE("/connections/:provider", h.disconnect)
	g.GET("/:provider/connect", h.connect)
	g.GET("/:provider/callback", h.callback)
	if h.debug {
		g.GET("/debug", h.platforms)
		g.GET("/debug/connections", h.debugConnections)
	}
}

func (h *Handler) connect(c echo.Context) error {
	userID, err := h.caller(c)
	if err != nil {
		return err
	}
	out, err := h.service.Initiate(c.Request().Context(), core.InitiateRequest{
		UserID:   userID,
		Provider: c.Param("provider"),
	})
	if err != nil {
		return err
	}
	if out.AlreadyConnected {
		return c.JSON(http.StatusOK, map[string]string{"status": "connected"})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"authorizationUrl": out.AuthorizationURL,
		"state":            out.State,
	})
}

// callback always redirects; failures are reported through the redirect
// query and the service log.
func (h *Handler) callback(c echo.Context) error {
	query := c.QueryParams()
	out, err := h.service.HandleCallback(c.Request().Context(), core.CallbackRequest{
		Provider: c.Param("provider"),
		Params: core.CallbackParams{
			Code:             query.Get("code"),
			State:            query.Get("state"),
			Error:            query.Get("error"),
			ErrorDescription: query.Get("error_description"),
		},
	})
	if out.RedirectURL == "" {
		if err == nil {
			err = core.NewError(core.ErrorInternal, "transport: callback produced no redirect", nil)
		}
		return err
	}
	return c.Redirect(http.StatusFound, out.RedirectURL)
}

func (h *Handler) listConnections(c echo.Context) error {
	userID, err := h.caller(c)
	if err != nil {
		return err
	}
	out, err := h.service.ListConnections(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	if out == nil {
		out = []core.ConnectionSummary{}
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) disconnect(c echo.Context) error {
	userID, err := h.caller(c)
	if err != nil {
		return err
	}
	provider := core.NormalizeProviderKey(c.Param("provider"))
	if err := h.service.Disconnect(c.Request().Context(), core.DisconnectRequest{
		UserID:   userID,
		Provider: provider,
	}); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":   "disconnected",
		"provider": provider,
	})
}

func (h *Handler) platforms(c echo.Context) error {
	views := h.service.PlatformViews()
	if views == nil {
		views = []core.PlatformView{}
	}
	return c.JSON(http.StatusOK, map[string]any{"platforms": views})
}

func (h *Handler) debugConnections(c echo.Context) error {
	userID, err := h.caller(c)
	if err != nil {
		return err
	}
	views, err := h.service.DebugConnections(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	if views == nil {
		views = []core.ConnectionDebugView{}
	}
	return c.JSON(http.StatusOK, map[string]any{"connections": views})
}

func (h *Handler) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) caller(c echo.Context) (string, error) {
	userID, err := h.identity(c)
	if err != nil {
		return "", err
	}
	if userID == "" {
		return "", unauthorizedError("transport: caller identity is required")
	}
	return userID, nil
}
