package transport

import (
	"strings"

	"github.com/labstack/echo/v4"
)

const DefaultIdentityHeader = "X-User-ID"

// IdentityResolver returns the authenticated caller id for a request. An
// empty id is treated as unauthenticated.
type IdentityResolver func(c echo.Context) (string, error)

// HeaderIdentity reads the caller id from a header populated by the
// upstream session layer.
func HeaderIdentity(header string) IdentityResolver {
	header = strings.TrimSpace(header)
	if header == "" {
		header = DefaultIdentityHeader
	}
	return func(c echo.Context) (string, error) {
		return strings.TrimSpace(c.Request().Header.Get(header)), nil
	}
}
