package core

import (
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ErrorBadInput            = "CONNECT_BAD_INPUT"
	ErrorUnauthorized        = "CONNECT_UNAUTHORIZED"
	ErrorUnknownProvider     = "CONNECT_UNKNOWN_PROVIDER"
	ErrorProviderDenied      = "CONNECT_PROVIDER_DENIED"
	ErrorCSRFMismatch        = "CONNECT_CSRF_MISMATCH"
	ErrorMalformedCallback   = "CONNECT_MALFORMED_CALLBACK"
	ErrorConfiguration       = "CONNECT_CONFIGURATION_ERROR"
	ErrorCodeExpiredOrReused = "CONNECT_CODE_EXPIRED_OR_REUSED"
	ErrorNetworkOrTransient  = "CONNECT_NETWORK_OR_TRANSIENT"
	ErrorProfileFetchFailed  = "CONNECT_PROFILE_FETCH_FAILED"
	ErrorConnectionNotFound  = "CONNECT_CONNECTION_NOT_FOUND"
	ErrorInternal            = "CONNECT_INTERNAL_ERROR"
)

var (
	ErrStateNotFound      = errors.New("core: oauth state not found")
	ErrConnectionNotFound = errors.New("core: connection not found")
)

// redirectCodes maps text codes to the coarse value placed in the front-end
// redirect. Anything not listed collapses to internal_error.
var redirectCodes = map[string]string{
	ErrorUnknownProvider:     "unknown_provider",
	ErrorProviderDenied:      "access_denied",
	ErrorCSRFMismatch:        "csrf_mismatch",
	ErrorMalformedCallback:   "malformed_callback",
	ErrorConfiguration:       "configuration_error",
	ErrorCodeExpiredOrReused: "code_expired",
	ErrorNetworkOrTransient:  "network_error",
	ErrorProfileFetchFailed:  "profile_fetch_failed",
}

func RedirectErrorCode(err error) string {
	if err == nil {
		return ""
	}
	mapped := MapError(err)
	if code, ok := redirectCodes[mapped.TextCode]; ok {
		return code
	}
	return "internal_error"
}

// ErrorTextCode returns the text code of err after mapping it into the
// connection error envelope.
func ErrorTextCode(err error) string {
	if err == nil {
		return ""
	}
	return MapError(err).TextCode
}

func IsErrorCode(err error, textCode string) bool {
	if err == nil {
		return false
	}
	return ErrorTextCode(err) == textCode
}

// MapError converts any error into a go-errors envelope carrying an HTTP
// status and a text code.
func MapError(err error) *goerrors.Error {
	return connectErrorMapper(err)
}

func connectErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureErrorEnvelope(richErr)
	}

	switch {
	case errors.Is(err, ErrStateNotFound):
		return newConnectError(err.Error(), goerrors.CategoryAuth, ErrorCSRFMismatch)
	case errors.Is(err, ErrConnectionNotFound):
		return newConnectError(err.Error(), goerrors.CategoryNotFound, ErrorConnectionNotFound)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "provider") && strings.Contains(msg, "not registered"):
		return newConnectError(err.Error(), goerrors.CategoryNotFound, ErrorUnknownProvider)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return newConnectError(err.Error(), goerrors.CategoryBadInput, ErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureErrorEnvelope(mapped)
}

func newConnectError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

// NewError builds a classified connection error. Metadata is attached as is;
// callers must not place secrets in it.
func NewError(textCode string, message string, metadata map[string]any) *goerrors.Error {
	err := newConnectError(message, textCodeCategory(textCode), textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

// WrapError classifies source under textCode while keeping it as the cause.
func WrapError(source error, textCode string, message string, metadata map[string]any) *goerrors.Error {
	if source == nil {
		return NewError(textCode, message, metadata)
	}
	err := goerrors.Wrap(source, textCodeCategory(textCode), message).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return ensureErrorEnvelope(err)
}

func ensureErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = connectHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func textCodeCategory(textCode string) goerrors.Category {
	switch textCode {
	case ErrorBadInput, ErrorMalformedCallback, ErrorCodeExpiredOrReused:
		return goerrors.CategoryBadInput
	case ErrorUnauthorized, ErrorCSRFMismatch:
		return goerrors.CategoryAuth
	case ErrorProviderDenied:
		return goerrors.CategoryAuthz
	case ErrorUnknownProvider, ErrorConnectionNotFound:
		return goerrors.CategoryNotFound
	case ErrorNetworkOrTransient, ErrorProfileFetchFailed:
		return goerrors.CategoryExternal
	default:
		return goerrors.CategoryInternal
	}
}

func defaultTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ErrorBadInput
	case goerrors.CategoryNotFound:
		return ErrorConnectionNotFound
	case goerrors.CategoryAuth:
		return ErrorUnauthorized
	case goerrors.CategoryAuthz:
		return ErrorProviderDenied
	case goerrors.CategoryExternal:
		return ErrorNetworkOrTransient
	default:
		return ErrorInternal
	}
}

func connectHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
