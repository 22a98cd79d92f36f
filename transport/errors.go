package transport

import (
	"errors"
	"net/http"

	"github.com/goliatone/go-connections/core"
	goerrors "github.com/goliatone/go-errors"
	"github.com/labstack/echo/v4"
)

type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code     int    `json:"code"`
	TextCode string `json:"textCode"`
	Message  string `json:"message"`
}

func unauthorizedError(message string) error {
	return goerrors.New(message, goerrors.CategoryAuth).
		WithCode(http.StatusUnauthorized).
		WithTextCode(core.ErrorUnauthorized)
}

// errorBody maps err into the JSON error envelope. Internal failures keep a
// generic message so storage details stay in the log.
func errorBody(err error) (int, ErrorBody) {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		message := http.StatusText(httpErr.Code)
		if text, ok := httpErr.Message.(string); ok && text != "" {
			message = text
		}
		textCode := core.ErrorInternal
		switch {
		case httpErr.Code == http.StatusNotFound:
			textCode = core.ErrorConnectionNotFound
		case httpErr.Code == http.StatusUnauthorized:
			textCode = core.ErrorUnauthorized
		case httpErr.Code < http.StatusInternalServerError:
			textCode = core.ErrorBadInput
		}
		return httpErr.Code, ErrorBody{Error: ErrorDetail{Code: httpErr.Code, TextCode: textCode, Message: message}}
	}

	mapped := core.MapError(err)
	status := mapped.Code
	if status == 0 {
		status = http.StatusInternalServerError
	}
	message := mapped.Message
	if status >= http.StatusInternalServerError {
		message = http.StatusText(status)
	}
	return status, ErrorBody{Error: ErrorDetail{Code: status, TextCode: mapped.TextCode, Message: message}}
}

// ErrorHandler renders every handler error as the connection error envelope.
func (h *Handler) ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status, body := errorBody(err)
	if status >= http.StatusInternalServerError {
		mapped := core.MapError(err)
		h.logger.WithContext(c.Request().Context()).Error("request failed",
			"method", c.Request().Method,
			"path", c.Path(),
			"error", err.Error(),
			"error_text_code", mapped.TextCode,
			"error_metadata", core.RedactSensitiveMap(mapped.Metadata),
		)
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, body)
}
